package domain

// Contratos do throttle por cliente aplicado antes da admissão.

import "time"

// ThrottleKey identifica um bucket. O mesmo cliente tem um bucket por rota,
// então estourar /long não afeta outra rota assíncrona.
type ThrottleKey struct {
	Route  string
	Client string
}

func (k ThrottleKey) String() string { return k.Route + "|" + k.Client }

// Limiter consome um token em now. Sem token, devolve quanto falta para o
// próximo (0 quando não dá para saber).
type Limiter interface {
	Take(now time.Time) (ok bool, wait time.Duration)
}

type LimiterStore interface {
	Get(ThrottleKey) Limiter
}

type Decision struct {
	Allowed bool
	// RetryAfter vai no header Retry-After quando bloquear.
	RetryAfter time.Duration
}
