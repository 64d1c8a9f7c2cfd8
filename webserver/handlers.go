package webserver

import (
	"context"
	"fmt"
	"io"
	"net/http"

	"device-webserver/webserver/application"
	"device-webserver/webserver/domain"

	"github.com/rs/zerolog"
)

const indexHTML = `<div><a href="/long">long</a></div>` +
	`<div><a href="/quick">quick</a></div>`

func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request) {
	s.logger.Debug().Msg("uri: /")
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	_, _ = io.WriteString(w, indexHTML)
}

func (s *Server) handleQuick(w http.ResponseWriter, r *http.Request) {
	s.logger.Debug().Msg("uri: /quick")
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	_, _ = fmt.Fprintf(w, "random: %d\n", s.opts.Random())
}

// handleLong simula trabalho demorado: é sempre executado num worker
// (o Dispatcher chama direto quando ctx já é de um worker).
func (s *Server) handleLong(ctx context.Context, req domain.Request) error {
	n := s.longReqs.Add(1)
	zerolog.Ctx(ctx).Info().Uint64("req_no", n).Msg("uri: /long")

	st := application.Stream{
		Chunks: application.LongChunks(n, s.opts.StreamLines),
		Pacer:  application.NewIntervalPacer(s.opts.StreamInterval),
	}
	if err := st.Run(ctx, req.SendChunk); err != nil {
		return fmt.Errorf("long stream %d: %w", n, err)
	}
	return req.EndStream()
}
