package monitoring

import (
	"encoding/json"
	"net/http"

	"github.com/prometheus/client_golang/prometheus/promhttp"
)

type Health struct {
	Status     string        `json:"status"`
	Workers    int           `json:"workers"`
	Idle       int           `json:"idle"`
	QueueDepth int           `json:"queue_depth"`
	Process    *ProcessStats `json:"process,omitempty"`
}

// NewOpsHandler monta o mux do listener de operação. pool nil indica que o
// pool não subiu: /healthz responde 503 com status "degraded".
func NewOpsHandler(m *Metrics, pool PoolState, sampler *Sampler) http.Handler {
	mux := http.NewServeMux()
	if m != nil {
		mux.Handle("GET /metrics", promhttp.HandlerFor(m.Registry, promhttp.HandlerOpts{}))
	}
	mux.HandleFunc("GET /healthz", func(w http.ResponseWriter, r *http.Request) {
		h := Health{Status: "ok"}
		code := http.StatusOK
		if pool == nil {
			h.Status = "degraded"
			code = http.StatusServiceUnavailable
		} else {
			h.Workers = pool.Size()
			h.Idle = pool.Idle()
			h.QueueDepth = pool.QueueDepth()
		}
		if sampler != nil {
			st := sampler.Last()
			h.Process = &st
		}

		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(code)
		_ = json.NewEncoder(w).Encode(h)
	})
	return mux
}
