package server

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"parking-queue/internal/logging"
	"parking-queue/internal/parking"
)

type Config struct {
	Port        string
	ServiceName string
	// Capacity of the queue installed at startup; zero starts without one.
	Capacity     int
	QueueOptions []parking.Option
	// Queues is shared with other front ends when set; otherwise the
	// server creates its own holder from QueueOptions.
	Queues *parking.QueueHolder
}

type Server struct {
	httpServer *http.Server
	handler    *Handler
}

func NewServer(cfg Config, telemetry *parking.TelemetryProvider) (*Server, error) {
	queues := cfg.Queues
	if queues == nil {
		queues = parking.NewQueueHolder(telemetry, cfg.QueueOptions...)
	}
	handler := NewHandler(cfg.ServiceName, queues)
	if cfg.Capacity != 0 {
		if err := queues.Install(context.Background(), cfg.Capacity); err != nil {
			return nil, err
		}
	}

	httpServer := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      NewRouter(handler),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	return &Server{
		httpServer: httpServer,
		handler:    handler,
	}, nil
}

func NewRouter(handler *Handler) http.Handler {
	r := chi.NewRouter()

	r.Use(RecoveryMiddleware)
	r.Use(RequestIDMiddleware)
	r.Use(TracingMiddleware)
	r.Use(LoggingMiddleware)
	r.Use(CORSMiddleware)

	r.Get("/health", handler.HealthCheck)
	r.Get("/metrics", promhttp.HandlerFor(newRegistry(handler.Queue), promhttp.HandlerOpts{}).ServeHTTP)

	r.Route("/api/parking-queue", func(r chi.Router) {
		r.Post("/", handler.CreateQueue)
		r.Post("/park", handler.Park)
		r.Post("/exit", handler.Exit)
		r.Get("/cars/{carID}", handler.Search)
		r.Delete("/cars/{carID}", handler.Remove)
		r.Post("/resize", handler.Resize)
		r.Post("/clear", handler.Clear)
		r.Get("/snapshot", handler.Snapshot)
	})

	return r
}

// Queue exposes the queue currently served, for reporters and scrapers.
func (s *Server) Queue() (*parking.InstrumentedParkingQueue, bool) {
	return s.handler.Queue()
}

// Queues returns the holder the server reads from, so a shell can drive
// the same queue.
func (s *Server) Queues() *parking.QueueHolder {
	return s.handler.queues
}

func (s *Server) Start() error {
	logging.Info(context.Background(), "starting HTTP server", "addr", s.httpServer.Addr)
	return s.httpServer.ListenAndServe()
}

func (s *Server) Shutdown(ctx context.Context) error {
	logging.Info(ctx, "shutting down HTTP server")
	return s.httpServer.Shutdown(ctx)
}
