package server

import (
	"context"
	"net"
	"net/http"
	"strconv"
	"time"

	"github.com/juju/errors"
	"go.uber.org/zap"

	"github.com/vanshika/nftgateway/internal/config"
)

const (
	readHeaderTimeout = 5 * time.Second
	// writeSlack keeps the connection open past the request deadline long
	// enough to flush the error envelope or the end of an image stream.
	writeSlack = 5 * time.Second
)

// Server owns the gateway's listener and its graceful shutdown.
type Server struct {
	httpServer *http.Server
	logger     *zap.Logger
	cfg        config.HTTPConfig
	ready      chan struct{}
	addr       net.Addr
}

// New builds a Server for handler. The write timeout is raised above the
// per-request timeout when it would cut responses short.
func New(logger *zap.Logger, cfg config.HTTPConfig, handler http.Handler) *Server {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Server{
		httpServer: &http.Server{
			Addr:              net.JoinHostPort(cfg.Host, strconv.Itoa(cfg.Port)),
			Handler:           handler,
			ReadTimeout:       cfg.ReadTimeout,
			WriteTimeout:      writeTimeout(cfg),
			IdleTimeout:       cfg.IdleTimeout,
			ReadHeaderTimeout: readHeaderTimeout,
			ErrorLog:          zap.NewStdLog(logger.Named("http")),
		},
		logger: logger,
		cfg:    cfg,
		ready:  make(chan struct{}),
	}
}

func writeTimeout(cfg config.HTTPConfig) time.Duration {
	if cfg.WriteTimeout <= 0 || cfg.RequestTimeout <= 0 {
		return cfg.WriteTimeout
	}
	if floor := cfg.RequestTimeout + writeSlack; cfg.WriteTimeout < floor {
		return floor
	}
	return cfg.WriteTimeout
}

// Addr is the bound listener address; it is nil until Run is listening.
func (s *Server) Addr() net.Addr {
	select {
	case <-s.ready:
		return s.addr
	default:
		return nil
	}
}

// Ready is closed once the listener is bound.
func (s *Server) Ready() <-chan struct{} { return s.ready }

// Run serves until ctx is cancelled, then drains in-flight requests within
// the configured shutdown timeout.
func (s *Server) Run(ctx context.Context) error {
	ln, err := net.Listen("tcp", s.httpServer.Addr)
	if err != nil {
		return errors.Annotatef(err, "listen on %s", s.httpServer.Addr)
	}
	s.addr = ln.Addr()
	close(s.ready)

	s.logger.Info("starting http server",
		zap.Stringer("addr", s.addr),
		zap.Duration("request_timeout", s.cfg.RequestTimeout),
		zap.Bool("metrics", s.cfg.MetricsEnabled),
	)

	errCh := make(chan error, 1)
	go func() {
		errCh <- s.httpServer.Serve(ln)
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return errors.Trace(err)
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), s.shutdownTimeout())
	defer cancel()
	s.logger.Info("shutting down http server", zap.Duration("timeout", s.shutdownTimeout()))
	if err := s.httpServer.Shutdown(shutdownCtx); err != nil {
		return errors.Annotate(err, "graceful shutdown")
	}
	return nil
}

func (s *Server) shutdownTimeout() time.Duration {
	if s.cfg.ShutdownTimeout > 0 {
		return s.cfg.ShutdownTimeout
	}
	return 10 * time.Second
}
