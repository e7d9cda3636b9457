package httphandler

import (
	"context"
	"log/slog"
	"time"
)

// HandlerFunc answers one request. It never writes to the connection itself.
type HandlerFunc func(ctx context.Context, req *Request) Response

// loggingMiddleware logs each request with connection id, method, path,
// status, and duration.
func loggingMiddleware(logger *slog.Logger, next HandlerFunc) HandlerFunc {
	return func(ctx context.Context, req *Request) Response {
		start := time.Now()

		resp := next(ctx, req)

		logger.Info("http request",
			"conn_id", req.ConnID,
			"method", req.Method,
			"path", req.Path,
			"status", resp.Status,
			"duration", time.Since(start).Round(time.Microsecond),
		)
		return resp
	}
}

// recoveryMiddleware recovers from panics in handlers, logs the error,
// and returns a 500 response.
func recoveryMiddleware(logger *slog.Logger, next HandlerFunc) HandlerFunc {
	return func(ctx context.Context, req *Request) (resp Response) {
		defer func() {
			if v := recover(); v != nil {
				logger.Error("panic recovered",
					"panic", v,
					"conn_id", req.ConnID,
					"path", req.Path,
				)
				resp = writeError(StatusInternalServerError, "internal server error")
			}
		}()

		return next(ctx, req)
	}
}
