// Package httphandler implements the device's minimal HTTP control server
// directly on a net.Listener: one connection at a time, one request per
// connection, bounded reads, and fully framed responses.
package httphandler

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"time"

	"github.com/google/uuid"
)

// DefaultReadTimeout is the per-connection deadline for receiving a request.
const DefaultReadTimeout = 5 * time.Second

const (
	minAcceptDelay = 5 * time.Millisecond
	maxAcceptDelay = time.Second
)

// Options bounds the resources a single connection may consume.
type Options struct {
	MaxRequestBytes int
	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
}

func (o Options) withDefaults() Options {
	if o.MaxRequestBytes <= 0 {
		o.MaxRequestBytes = DefaultMaxRequestBytes
	}
	if o.ReadTimeout <= 0 {
		o.ReadTimeout = DefaultReadTimeout
	}
	if o.WriteTimeout <= 0 {
		o.WriteTimeout = o.ReadTimeout
	}
	return o
}

// Server accepts connections and answers each with exactly one response.
type Server struct {
	handler HandlerFunc
	opts    Options
	logger  *slog.Logger
}

// NewServer creates a Server dispatching requests to handler.
func NewServer(handler HandlerFunc, opts Options, logger *slog.Logger) *Server {
	return &Server{
		handler: handler,
		opts:    opts.withDefaults(),
		logger:  logger,
	}
}

// ListenAndServe listens on the TCP address addr and calls Serve.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("listen on %s: %w", addr, err)
	}

	s.logger.Info("control server listening", "addr", ln.Addr().String())
	return s.Serve(ctx, ln)
}

// Serve accepts connections on ln and handles them one at a time until ctx
// is canceled or accepting fails permanently. Cancellation closes the
// listener; a request already being handled runs to completion. Serve
// returns nil after cancellation and the accept error otherwise. The
// listener is always closed on return.
func (s *Server) Serve(ctx context.Context, ln net.Listener) error {
	stop := context.AfterFunc(ctx, func() {
		_ = ln.Close()
	})
	defer stop()
	defer ln.Close()

	connCtx := context.WithoutCancel(ctx)
	var delay time.Duration

	for {
		conn, err := ln.Accept()
		if err != nil {
			if ctx.Err() != nil {
				s.logger.Info("control server stopped")
				return nil
			}

			if isTemporary(err) {
				delay = nextAcceptDelay(delay)
				s.logger.Warn("accept failed, retrying", "error", err, "delay", delay)

				select {
				case <-time.After(delay):
					continue
				case <-ctx.Done():
					s.logger.Info("control server stopped")
					return nil
				}
			}

			return fmt.Errorf("accept connection: %w", err)
		}

		delay = 0
		s.handleConn(connCtx, conn)
	}
}

// handleConn reads one request, answers it, and closes conn.
func (s *Server) handleConn(ctx context.Context, conn net.Conn) {
	defer conn.Close()

	connID := uuid.NewString()
	logger := s.logger.With("conn_id", connID)

	defer func() {
		if rec := recover(); rec != nil {
			logger.Error("recovered panic in connection", "panic", rec)
			resp := writeError(StatusInternalServerError, "internal server error")
			_ = resp.writeTo(conn)
		}
	}()

	if err := conn.SetReadDeadline(time.Now().Add(s.opts.ReadTimeout)); err != nil {
		logger.Warn("failed to set read deadline", "error", err)
	}

	var resp Response
	req, err := readRequest(conn, s.opts.MaxRequestBytes)
	if err != nil {
		logger.Warn("rejected request",
			"remote", conn.RemoteAddr().String(),
			"transport", errors.Is(err, ErrTransport),
			"error", err,
		)
		resp = writeText(StatusBadRequest, StatusText(StatusBadRequest))
	} else {
		req.ConnID = connID
		resp = s.handler(ctx, req)
	}

	if err := conn.SetWriteDeadline(time.Now().Add(s.opts.WriteTimeout)); err != nil {
		logger.Warn("failed to set write deadline", "error", err)
	}
	if err := resp.writeTo(conn); err != nil {
		logger.Warn("failed to write response", "status", resp.Status, "error", err)
	}
}

func nextAcceptDelay(delay time.Duration) time.Duration {
	if delay == 0 {
		return minAcceptDelay
	}
	return min(delay*2, maxAcceptDelay)
}

// isTemporary reports whether err is an accept error worth retrying, such as
// running out of file descriptors.
func isTemporary(err error) bool {
	var t interface{ Temporary() bool }
	return errors.As(err, &t) && t.Temporary()
}
