package application

import (
	"time"

	"device-webserver/webserver/domain"
)

// Throttle decide se um cliente pode chegar à admissão de uma rota.
//
// Não sabe nada sobre HTTP (headers/status), apenas retorna uma decisão.
type Throttle struct {
	Store domain.LimiterStore
	// RetryAfter é usado quando o limiter não sabe dizer quando libera.
	RetryAfter time.Duration
}

func (t Throttle) Decide(key domain.ThrottleKey) domain.Decision {
	if t.Store == nil {
		return domain.Decision{Allowed: true}
	}
	lim := t.Store.Get(key)
	if lim == nil {
		return domain.Decision{Allowed: true}
	}

	ok, wait := lim.Take(time.Now())
	if ok {
		return domain.Decision{Allowed: true}
	}
	if wait <= 0 {
		wait = t.RetryAfter
	}
	if wait <= 0 {
		wait = 1 * time.Second
	}
	return domain.Decision{Allowed: false, RetryAfter: wait}
}
