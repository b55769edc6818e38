package chi

import (
	"errors"
	"net/http"
	"time"

	chiMiddleware "github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"

	logpkg "github.com/kailas-cloud/vecrag/internal/logger"
)

// RequestID assigns X-Request-ID (or reuses the inbound one) before logging sees the request.
var RequestID = chiMiddleware.RequestID

// JSONRecoverer turns a handler panic into a 500 with the usual JSON error
// body. http.ErrAbortHandler is re-raised so net/http can drop the connection.
func JSONRecoverer(logger *zap.Logger) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			defer func() {
				rvr := recover()
				if rvr == nil {
					return
				}
				if err, ok := rvr.(error); ok && errors.Is(err, http.ErrAbortHandler) {
					panic(rvr)
				}
				logger.Error("Handler panicked",
					zap.Any("panic", rvr),
					zap.String("method", r.Method),
					zap.String("path", r.URL.Path),
					zap.Stack("stacktrace"),
				)
				writeError(w, http.StatusInternalServerError, codeInternal, "internal error")
			}()
			next.ServeHTTP(w, r)
		})
	}
}

// AccessLog stores a request-scoped logger (tagged with request_id) in the
// context and writes one summary line per request when the handler returns.
// Handlers that ran a RAG trace expose its id in X-Trace-ID.
func AccessLog(logger *zap.Logger) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			id := chiMiddleware.GetReqID(r.Context())
			if id != "" {
				w.Header().Set("X-Request-ID", id)
			}
			log := logger.With(zap.String("request_id", id))

			ww := chiMiddleware.NewWrapResponseWriter(w, r.ProtoMajor)
			next.ServeHTTP(ww, r.WithContext(logpkg.NewContext(r.Context(), log)))

			log.Info("http_request", accessFields(r, ww, time.Since(start))...)
		})
	}
}

func accessFields(r *http.Request, ww chiMiddleware.WrapResponseWriter, took time.Duration) []zap.Field {
	fields := []zap.Field{
		zap.String("method", r.Method),
		zap.String("path", r.URL.Path),
		zap.Int("status", ww.Status()),
		zap.Duration("latency", took),
		zap.String("ip", r.RemoteAddr),
		zap.Int64("content_length", r.ContentLength),
		zap.Int("response_bytes", ww.BytesWritten()),
	}
	if trace := ww.Header().Get("X-Trace-ID"); trace != "" {
		fields = append(fields, zap.String("trace_id", trace))
	}
	return fields
}
