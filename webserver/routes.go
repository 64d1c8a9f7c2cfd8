package webserver

import (
	"io"
	"net/http"

	"device-webserver/webserver/domain"
)

const busyBody = "<div>No workers available. Server busy.</div>"

type Kind int

const (
	KindSync Kind = iota
	KindAsync
)

func (k Kind) String() string {
	if k == KindAsync {
		return "async"
	}
	return "sync"
}

// Route é uma entrada do registro URI+método.
type Route struct {
	Name   string
	Method string
	Path   string
	Kind   Kind

	serve http.Handler
}

func (r Route) pattern() string {
	if r.Path == "/" {
		return r.Method + " /{$}"
	}
	return r.Method + " " + r.Path
}

// asyncHandler é o contexto tipado de uma rota assíncrona, capturado no registro.
type asyncHandler struct {
	name    string
	handler domain.Handler
	srv     *Server
}

func (a *asyncHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	ex := NewExchange(w, r)
	log := a.srv.logger.With().
		Str("request_id", ex.ID()).
		Str("route", a.name).
		Logger()
	ctx := log.WithContext(r.Context())
	log.Info().Str("uri", r.URL.Path).Msg("Async request received")

	outcome, err := a.srv.opts.Dispatcher.Dispatch(ctx, a.name, ex, a.handler)
	switch outcome {
	case domain.OutcomeAccepted:
		// o worker escreve a resposta; só podemos retornar depois do Complete.
		<-ex.Done()
	case domain.OutcomeInline:
		if err != nil {
			log.Warn().Err(err).Msg("Inline handler returned error")
		}
	case domain.OutcomeBusy:
		log.Warn().Err(err).Msg("Responding busy")
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		w.WriteHeader(http.StatusServiceUnavailable)
		_, _ = io.WriteString(w, busyBody)
	default:
		log.Error().Err(err).Msg("Dispatch failed")
		http.Error(w, "streaming unsupported", http.StatusInternalServerError)
	}
}
