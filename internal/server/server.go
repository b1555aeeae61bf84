package server

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"strconv"
	"syscall"
	"time"

	"github.com/gorilla/mux"
	"github.com/sirupsen/logrus"
)

// ShutdownTimeout bounds the graceful shutdown after a signal.
const ShutdownTimeout = 5 * time.Second

// BindError reports that the listening socket could not be created.
// It is distinct from errors while serving so callers can tell a port
// that was taken after it was chosen.
type BindError struct {
	Addr string
	Err  error
}

// Error names the address and says whether it was already taken.
func (e *BindError) Error() string {
	if e.InUse() {
		return fmt.Sprintf("address %s is already in use", e.Addr)
	}
	return fmt.Sprintf("failed to listen on %s: %v", e.Addr, e.Err)
}

func (e *BindError) Unwrap() error { return e.Err }

// InUse reports whether the address was taken by another socket.
func (e *BindError) InUse() bool {
	return errors.Is(e.Err, syscall.EADDRINUSE)
}

// Server is the upload backend.
type Server struct {
	cfg        Config
	log        logrus.FieldLogger
	store      Store
	db         Database
	httpServer *http.Server
	listener   net.Listener
	now        func() time.Time
}

// New wires the router and middleware. db may be nil.
func New(cfg Config, store Store, db Database, logger logrus.FieldLogger) *Server {
	s := &Server{
		cfg:   cfg,
		log:   logger,
		store: store,
		db:    db,
		now:   time.Now,
	}

	s.httpServer = &http.Server{
		Addr:              net.JoinHostPort(cfg.Host, strconv.Itoa(cfg.Port)),
		Handler:           s.Handler(),
		ReadHeaderTimeout: 5 * time.Second,
	}
	return s
}

// Handler returns the router wrapped in middleware:
// requestID -> logging -> recover -> CORS -> router.
func (s *Server) Handler() http.Handler {
	r := mux.NewRouter()
	r.HandleFunc("/", s.handleRoot).Methods(http.MethodGet)
	r.HandleFunc("/form", s.handleForm).Methods(http.MethodGet)
	r.HandleFunc("/upload", s.handleUpload).Methods(http.MethodPost)
	r.HandleFunc("/uploads/{name}", s.handleDownload).Methods(http.MethodGet, http.MethodHead)
	r.HandleFunc("/health", s.handleHealth).Methods(http.MethodGet)

	var handler http.Handler = r
	handler = corsMiddleware(s.cfg.CORSOrigin)(handler)
	handler = recoverMiddleware(s.log)(handler)
	handler = loggingMiddleware(s.log)(handler)
	handler = requestIDMiddleware(handler)
	return handler
}

// Listen binds the configured address. A failure is a *BindError.
func (s *Server) Listen() error {
	ln, err := net.Listen("tcp", s.httpServer.Addr)
	if err != nil {
		return &BindError{Addr: s.httpServer.Addr, Err: err}
	}
	s.listener = ln
	return nil
}

// Addr returns the bound address, or the configured one before Listen.
func (s *Server) Addr() string {
	if s.listener != nil {
		return s.listener.Addr().String()
	}
	return s.httpServer.Addr
}

// Serve accepts connections on the bound listener until Shutdown.
func (s *Server) Serve() error {
	if s.listener == nil {
		return errors.New("server is not listening")
	}
	if err := s.httpServer.Serve(s.listener); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Start binds and serves.
func (s *Server) Start() error {
	if err := s.Listen(); err != nil {
		return err
	}
	return s.Serve()
}

// Shutdown stops accepting requests, waits for in-flight ones and closes
// the database pool.
func (s *Server) Shutdown(ctx context.Context) error {
	err := s.httpServer.Shutdown(ctx)
	if s.db != nil {
		s.db.Close()
	}
	return err
}

// Run binds, serves until ctx is done, then shuts down within
// ShutdownTimeout.
func (s *Server) Run(ctx context.Context) error {
	if err := s.Listen(); err != nil {
		return err
	}
	s.log.WithField("addr", s.Addr()).Info("server running")

	errCh := make(chan error, 1)
	go func() { errCh <- s.Serve() }()

	select {
	case <-ctx.Done():
		s.log.Info("shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), ShutdownTimeout)
		defer cancel()
		if err := s.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("shutdown: %w", err)
		}
		s.log.Info("shutdown complete")
		return nil
	case err := <-errCh:
		if s.db != nil {
			s.db.Close()
		}
		return err
	}
}
