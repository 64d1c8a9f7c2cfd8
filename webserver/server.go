package webserver

import (
	"math/rand/v2"
	"net/http"
	"sync/atomic"
	"time"

	"device-webserver/webserver/application"
	"device-webserver/webserver/domain"

	"github.com/rs/zerolog"
)

const (
	DefaultStreamInterval = 1 * time.Second
	DefaultStreamLines    = 10
)

type Options struct {
	Dispatcher application.Dispatcher

	// StreamInterval é a cadência das linhas de /long. <= 0 não espera.
	StreamInterval time.Duration
	// StreamLines é o número de linhas depois do cabeçalho "req: N".
	StreamLines int

	// Random alimenta /quick. Padrão: math/rand/v2.
	Random func() uint32

	// Throttle, se não nil, limita /long por cliente antes da admissão.
	Throttle *ThrottleOptions

	Logger zerolog.Logger
}

// Server registra as três rotas e guarda o estado dos handlers.
type Server struct {
	opts     Options
	logger   zerolog.Logger
	longReqs atomic.Uint64
	routes   []Route
}

func New(opts Options) *Server {
	if opts.StreamLines <= 0 {
		opts.StreamLines = DefaultStreamLines
	}
	if opts.Random == nil {
		opts.Random = rand.Uint32
	}

	s := &Server{
		opts:   opts,
		logger: opts.Logger.With().Str("component", "webserver").Logger(),
	}
	s.routes = []Route{
		{Name: "index", Method: http.MethodGet, Path: "/", Kind: KindSync, serve: http.HandlerFunc(s.handleIndex)},
		{Name: "quick", Method: http.MethodGet, Path: "/quick", Kind: KindSync, serve: http.HandlerFunc(s.handleQuick)},
		s.asyncRoute("long", http.MethodGet, "/long", s.handleLong),
	}
	return s
}

// Handler monta o mux com as rotas registradas.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	for _, rt := range s.routes {
		mux.Handle(rt.pattern(), rt.serve)
	}
	return mux
}

func (s *Server) Routes() []Route {
	out := make([]Route, len(s.routes))
	copy(out, s.routes)
	return out
}

// LongRequests devolve quantas vezes /long chegou a executar num worker.
func (s *Server) LongRequests() uint64 { return s.longReqs.Load() }

func (s *Server) asyncRoute(name, method, path string, h domain.Handler) Route {
	var serve http.Handler = &asyncHandler{name: name, handler: h, srv: s}
	if s.opts.Throttle != nil {
		serve = ThrottleMiddleware(name, *s.opts.Throttle)(serve)
	}
	return Route{Name: name, Method: method, Path: path, Kind: KindAsync, serve: serve}
}
