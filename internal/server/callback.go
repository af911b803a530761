package server

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/moody/internal/shared"
	"golang.org/x/oauth2"
)

// CallbackServer serves [OAuthHandler] until one redirect has been handled.
type CallbackServer struct {
	handler  *OAuthHandler
	logger   *log.Logger
	listener net.Listener
	srv      *http.Server
	errs     chan error
}

// NewCallbackServer binds addr. Use port 0 to let the OS choose one.
func NewCallbackServer(addr string, handler *OAuthHandler, logger *log.Logger) (*CallbackServer, error) {
	if logger == nil {
		logger = shared.NewLogger(nil)
	}

	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return nil, fmt.Errorf("failed to listen on %s: %w", addr, err)
	}

	router := NewBasicRouter()
	router.Use(RequestLogger(logger))
	router.Handler(handler)

	return &CallbackServer{
		handler:  handler,
		logger:   logger,
		listener: ln,
		srv:      &http.Server{Handler: router, ReadHeaderTimeout: 10 * time.Second},
		errs:     make(chan error, 1),
	}, nil
}

// Addr is the bound address, e.g. 127.0.0.1:3000.
func (s *CallbackServer) Addr() string {
	return s.listener.Addr().String()
}

// Start serves in the background.
func (s *CallbackServer) Start() {
	go func() {
		s.logger.Debug("callback server listening", "addr", s.Addr())
		if err := s.srv.Serve(s.listener); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.errs <- err
		}
	}()
}

// Wait blocks until the redirect arrives, the server fails, timeout elapses or ctx ends.
// The server is shut down before returning.
func (s *CallbackServer) Wait(ctx context.Context, timeout time.Duration) (*oauth2.Token, error) {
	defer s.shutdown()

	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	select {
	case result := <-s.handler.Result():
		if result.Err != nil {
			return nil, fmt.Errorf("%w: %v", shared.ErrAuthFailed, result.Err)
		}
		if result.Token == nil {
			return nil, fmt.Errorf("%w: no token received", shared.ErrAuthFailed)
		}
		return result.Token, nil
	case err := <-s.errs:
		return nil, fmt.Errorf("callback server error: %w", err)
	case <-ctx.Done():
		if errors.Is(ctx.Err(), context.DeadlineExceeded) {
			return nil, fmt.Errorf("%w: no authorization after %s", shared.ErrTimeout, timeout)
		}
		return nil, ctx.Err()
	}
}

func (s *CallbackServer) shutdown() {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := s.srv.Shutdown(ctx); err != nil {
		s.logger.Warn("error shutting down callback server", "error", err)
	}
}
