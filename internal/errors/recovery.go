package errors

import (
	"net/http"
	"runtime/debug"

	"go.uber.org/zap"

	"github.com/copyleftdev/egoserver/internal/logging"
)

// RecoveryMiddleware returns a middleware that recovers from panics.
func RecoveryMiddleware(logger *zap.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			defer func() {
				rec := recover()
				if rec == nil {
					return
				}
				if rec == http.ErrAbortHandler {
					panic(rec)
				}

				l := logger
				if scoped := logging.FromContext(r.Context()); scoped.Core().Enabled(zap.ErrorLevel) {
					l = scoped
				}
				l.Error("Recovered from panic",
					zap.Any("panic", rec),
					zap.String("method", r.Method),
					zap.String("path", r.URL.Path),
					zap.String("query", r.URL.RawQuery),
					zap.ByteString("stack", debug.Stack()),
				)

				Write(w, New(http.StatusInternalServerError, "internal", http.StatusText(http.StatusInternalServerError)))
			}()

			next.ServeHTTP(w, r)
		})
	}
}
