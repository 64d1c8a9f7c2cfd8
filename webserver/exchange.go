package webserver

import (
	"errors"
	"fmt"
	"io"
	"net/http"
	"sync"
	"sync/atomic"

	"device-webserver/webserver/domain"

	"github.com/google/uuid"
)

var errStreamingUnsupported = errors.New("response writer does not support flushing")

// Exchange é a implementação net/http de domain.Request.
//
// Um handler Go não pode retornar enquanto outra goroutine escreve na
// resposta, então "destacar" aqui significa: a goroutine do net/http passa
// a esperar Done() e o worker vira dono do ResponseWriter até o Complete.
type Exchange struct {
	id      string
	w       http.ResponseWriter
	r       *http.Request
	flusher http.Flusher

	mu          sync.Mutex
	wroteHeader bool

	detached  atomic.Bool
	completed atomic.Bool
	done      chan struct{}
}

func NewExchange(w http.ResponseWriter, r *http.Request) *Exchange {
	f, _ := w.(http.Flusher)
	return &Exchange{
		id:      uuid.NewString(),
		w:       w,
		r:       r,
		flusher: f,
		done:    make(chan struct{}),
	}
}

func (e *Exchange) ID() string     { return e.id }
func (e *Exchange) Method() string { return e.r.Method }
func (e *Exchange) Path() string   { return e.r.URL.Path }

// Done fecha quando a request é completada.
func (e *Exchange) Done() <-chan struct{} { return e.done }

func (e *Exchange) Detached() bool { return e.detached.Load() }

// SendChunk escreve um pedaço da resposta e faz flush (transfer-encoding chunked).
func (e *Exchange) SendChunk(chunk string) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if !e.wroteHeader {
		e.w.Header().Set("Content-Type", "text/html; charset=utf-8")
		e.w.WriteHeader(http.StatusOK)
		e.wroteHeader = true
	}
	if _, err := io.WriteString(e.w, chunk); err != nil {
		return fmt.Errorf("send chunk: %w", err)
	}
	if e.flusher != nil {
		e.flusher.Flush()
	}
	return nil
}

// EndStream garante que tudo foi enviado. O terminador chunked é escrito
// pelo net/http quando o ServeHTTP original retorna.
func (e *Exchange) EndStream() error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if !e.wroteHeader {
		e.w.WriteHeader(http.StatusOK)
		e.wroteHeader = true
	}
	if e.flusher != nil {
		e.flusher.Flush()
	}
	return nil
}

func (e *Exchange) Detach() (domain.Request, error) {
	if e.flusher == nil {
		return nil, errStreamingUnsupported
	}
	if err := e.r.Context().Err(); err != nil {
		return nil, fmt.Errorf("client gone before detach: %w", err)
	}
	e.detached.Store(true)
	return e, nil
}

func (e *Exchange) Complete() error {
	if !e.completed.CompareAndSwap(false, true) {
		return domain.ErrAlreadyCompleted
	}
	close(e.done)
	return nil
}
