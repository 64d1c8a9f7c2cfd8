package webserver

import (
	"math"
	"net"
	"net/http"
	"strconv"
	"strings"
	"time"

	"device-webserver/webserver/application"
	"device-webserver/webserver/domain"
)

// KeyFunc extrai a identidade do cliente de uma request.
type KeyFunc func(r *http.Request) string

// ThrottleOptions configura o limite por cliente aplicado antes da admissão.
type ThrottleOptions struct {
	Store               domain.LimiterStore
	KeyFn               KeyFunc
	KeyHeader           string
	TrustXForwardedFor  bool
	RetryAfter          time.Duration
	AddRateLimitHeaders bool
}

type routeRate interface {
	RouteRate(route string) (float64, int)
}

func DefaultKeyFunc(keyHeader string, trustXFF bool) KeyFunc {
	return func(r *http.Request) string {
		if keyHeader != "" {
			if v := strings.TrimSpace(r.Header.Get(keyHeader)); v != "" {
				return v
			}
		}

		if trustXFF {
			// primeiro IP do X-Forwarded-For (cliente original)
			if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
				first, _, _ := strings.Cut(xff, ",")
				if ip := strings.TrimSpace(first); ip != "" {
					return ip
				}
			}
		}

		host, _, err := net.SplitHostPort(strings.TrimSpace(r.RemoteAddr))
		if err == nil && host != "" {
			return host
		}
		if r.RemoteAddr != "" {
			return r.RemoteAddr
		}
		return "unknown"
	}
}

// ThrottleMiddleware limita cada cliente na rota `route` e responde 429 com
// Retry-After. Requests bloqueadas nunca chegam ao Dispatcher.
func ThrottleMiddleware(route string, opts ThrottleOptions) func(next http.Handler) http.Handler {
	if opts.KeyFn == nil {
		opts.KeyFn = DefaultKeyFunc(opts.KeyHeader, opts.TrustXForwardedFor)
	}

	th := application.Throttle{
		Store:      opts.Store,
		RetryAfter: opts.RetryAfter,
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			key := domain.ThrottleKey{Route: route, Client: opts.KeyFn(r)}

			if opts.AddRateLimitHeaders {
				w.Header().Set("X-RateLimit-Key", key.Client)
				w.Header().Set("X-RateLimit-Route", route)
				if rr, ok := opts.Store.(routeRate); ok {
					rps, burst := rr.RouteRate(route)
					w.Header().Set("X-RateLimit-RPS", strconv.FormatFloat(rps, 'f', -1, 64))
					w.Header().Set("X-RateLimit-Burst", strconv.Itoa(burst))
				}
			}

			dec := th.Decide(key)
			if !dec.Allowed {
				w.Header().Set("Retry-After", strconv.Itoa(retryAfterSeconds(dec.RetryAfter)))
				http.Error(w, http.StatusText(http.StatusTooManyRequests), http.StatusTooManyRequests)
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

// Retry-After só aceita segundos inteiros; arredonda para cima, mínimo 1.
func retryAfterSeconds(d time.Duration) int {
	s := int(math.Ceil(d.Seconds()))
	if s < 1 {
		return 1
	}
	return s
}
