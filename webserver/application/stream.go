package application

import (
	"context"
	"fmt"
	"iter"
	"time"

	"golang.org/x/time/rate"
)

// Pacer espaça os chunks de um Stream. *rate.Limiter satisfaz a interface.
type Pacer interface {
	Wait(ctx context.Context) error
}

// NewIntervalPacer libera o primeiro chunk na hora e os seguintes a cada interval.
func NewIntervalPacer(interval time.Duration) *rate.Limiter {
	if interval <= 0 {
		return rate.NewLimiter(rate.Inf, 1)
	}
	return rate.NewLimiter(rate.Every(interval), 1)
}

// Stream é uma sequência de chunks com cadência explícita.
type Stream struct {
	Chunks iter.Seq[string]
	Pacer  Pacer
}

// Run espera o pacer antes de cada chunk e para no primeiro erro de envio.
func (s Stream) Run(ctx context.Context, send func(chunk string) error) error {
	for chunk := range s.Chunks {
		if s.Pacer != nil {
			if err := s.Pacer.Wait(ctx); err != nil {
				return fmt.Errorf("stream pacing: %w", err)
			}
		}
		if err := send(chunk); err != nil {
			return err
		}
	}
	return nil
}

// LongChunks gera a resposta de /long: o número da request e depois `lines` linhas.
func LongChunks(reqNo uint64, lines int) iter.Seq[string] {
	return func(yield func(string) bool) {
		if !yield(fmt.Sprintf("<div>req: %d</div>\n", reqNo)) {
			return
		}
		for i := 0; i < lines; i++ {
			if !yield(fmt.Sprintf("<div>%d</div>\n", i)) {
				return
			}
		}
	}
}
