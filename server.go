package stt_gateway

import (
	"context"
	"errors"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/agnivade/stt_gateway/audio"
	"github.com/agnivade/stt_gateway/config"
	"github.com/agnivade/stt_gateway/filter"
	"github.com/agnivade/stt_gateway/logger"
	"github.com/agnivade/stt_gateway/metrics"
	"github.com/agnivade/stt_gateway/providers"
	"github.com/agnivade/stt_gateway/queue"
)

// Server owns the listener, the job queue, the dispatcher and the shared
// engine. Client sessions never touch the engine directly.
type Server struct {
	srv        *http.Server
	log        *logger.Logger
	cfg        *config.Config
	queue      *queue.Queue[Job]
	gateway    *Gateway
	dispatcher *Dispatcher
	engine     *providers.Serialized
	metrics    *metrics.Metrics

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// New wires a server around engine, which must already be loaded. The
// engine is gated to cfg.Engine.MaxConcurrent concurrent calls. Metrics are
// registered with reg and served on /metrics.
func New(cfg *config.Config, engine providers.Engine, decoder audio.Decoder, log *logger.Logger, reg *prometheus.Registry) *Server {
	m := metrics.New(reg)
	q := queue.New[Job](cfg.Queue.MaxPending)

	gated := providers.Serialize(engine, cfg.Engine.MaxConcurrent).OnWait(func(d time.Duration) {
		m.EngineWait.Observe(d.Seconds())
	})

	worker := NewWorker(
		decoder,
		gated,
		filter.Default.With(cfg.Filter.ExtraPhrases...).Fuzzy(cfg.Filter.FuzzyThreshold),
		providers.Options{Language: cfg.Engine.Language, BeamSize: cfg.Engine.BeamSize},
		cfg.Worker.JobTimeout,
		log.Named("worker"),
		m,
	)

	ctx, cancel := context.WithCancel(context.Background())
	mux := http.NewServeMux()

	server := &Server{
		srv: &http.Server{
			Addr:         cfg.Gateway.Addr(),
			ReadTimeout:  10 * time.Second,
			WriteTimeout: 10 * time.Second,
			IdleTimeout:  60 * time.Second,
			Handler:      mux,
		},
		log:        log,
		cfg:        cfg,
		queue:      q,
		gateway:    NewGateway(cfg.Gateway, q, log.Named("gateway"), m),
		dispatcher: NewDispatcher(q, worker, cfg.Worker.Count, log.Named("dispatcher"), m),
		engine:     gated,
		metrics:    m,
		ctx:        ctx,
		cancel:     cancel,
	}

	mux.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{}))
	mux.HandleFunc("/healthz", server.handleHealth)
	mux.Handle(cfg.Gateway.Path, server.gateway)

	return server
}

// Start listens on the configured address and serves until Stop is called.
func (s *Server) Start() error {
	ln, err := net.Listen("tcp", s.srv.Addr)
	if err != nil {
		return err
	}
	return s.Serve(ln)
}

// Serve accepts sessions on ln and runs the dispatcher until Stop is called.
func (s *Server) Serve(ln net.Listener) error {
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		if err := s.dispatcher.Run(s.ctx); err != nil {
			s.log.Errorw("Dispatcher stopped", "err", err)
		}
	}()

	s.log.Infow("Starting server",
		"addr", ln.Addr().String(),
		"path", s.cfg.Gateway.Path,
		"engine", s.engine.Name())

	if err := s.srv.Serve(ln); !errors.Is(err, http.ErrServerClosed) {
		s.cancel()
		return err
	}
	return nil
}

// Stop stops accepting sessions, closes the open ones and waits for
// in-flight jobs. Queued jobs that have not started are discarded.
func (s *Server) Stop() error {
	s.log.Info("Shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	err := s.srv.Shutdown(ctx)
	s.gateway.stopAllConns()
	s.queue.Close()
	s.cancel()
	s.wg.Wait()

	if cerr := s.engine.Close(); cerr != nil {
		s.log.Warnw("Error closing engine", "err", cerr)
	}
	return err
}

// Gateway returns the server's session gateway.
func (s *Server) Gateway() *Gateway {
	return s.gateway
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok\n"))
}
