// ABOUTME: HTTP middleware wrapping every gateway route
// ABOUTME: Request logging with captured status and panic recovery into JSON-RPC 500s

package gateway

import (
	"log/slog"
	"net/http"
	"runtime/debug"
	"time"

	"github.com/2389/pipedrive-gateway/internal/auth"
	"github.com/2389/pipedrive-gateway/internal/jsonrpc"
)

// Logging logs method, path, status, duration and the caller. The
// Authorization header is never logged in full.
func Logging(logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			rw := wrap(w)

			next.ServeHTTP(rw, r)

			attrs := []any{
				slog.String("method", r.Method),
				slog.String("path", r.URL.Path),
				slog.Int("status", rw.status),
				slog.Duration("duration", time.Since(start)),
				slog.String("remote", r.RemoteAddr),
				slog.String("user_agent", r.UserAgent()),
			}
			if h := r.Header.Get("Authorization"); h != "" {
				attrs = append(attrs, slog.String("authorization", auth.MaskToken(h)))
			}

			if rw.status >= http.StatusInternalServerError {
				logger.Error("request", attrs...)
			} else {
				logger.Info("request", attrs...)
			}
		})
	}
}

// Recovery turns a panic into a JSON-RPC internal error and logs the stack.
func Recovery(logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			rw := wrap(w)
			defer func() {
				if err := recover(); err != nil {
					logger.Error("panic recovered",
						slog.Any("error", err),
						slog.String("path", r.URL.Path),
						slog.String("method", r.Method),
						slog.String("stack", string(debug.Stack())),
					)

					// Headers already sent; nothing useful left to write
					if rw.wroteHeader {
						return
					}
					_ = jsonrpc.WriteError(rw, http.StatusInternalServerError, nil,
						jsonrpc.NewError(jsonrpc.CodeInternalError, "Internal error", "Internal server error"))
				}
			}()

			next.ServeHTTP(rw, r)
		})
	}
}

// Chain combines middleware; the first one wraps all the others.
func Chain(middlewares ...func(http.Handler) http.Handler) func(http.Handler) http.Handler {
	return func(final http.Handler) http.Handler {
		for i := len(middlewares) - 1; i >= 0; i-- {
			final = middlewares[i](final)
		}
		return final
	}
}

// responseWriter captures the status code.
type responseWriter struct {
	http.ResponseWriter
	status      int
	wroteHeader bool
}

func (w *responseWriter) WriteHeader(status int) {
	if !w.wroteHeader {
		w.status = status
		w.wroteHeader = true
		w.ResponseWriter.WriteHeader(status)
	}
}

func (w *responseWriter) Write(b []byte) (int, error) {
	if !w.wroteHeader {
		w.WriteHeader(http.StatusOK)
	}
	return w.ResponseWriter.Write(b)
}

func (w *responseWriter) Unwrap() http.ResponseWriter {
	return w.ResponseWriter
}

// wrap returns w as a *responseWriter, reusing an existing wrapper.
func wrap(w http.ResponseWriter) *responseWriter {
	if rw, ok := w.(*responseWriter); ok {
		return rw
	}
	return &responseWriter{ResponseWriter: w, status: http.StatusOK}
}
