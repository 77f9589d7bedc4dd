package middleware

import (
	"net/http"
	"runtime/debug"

	"github.com/vyrodovalexey/scoregw/internal/observability"
	"github.com/vyrodovalexey/scoregw/internal/util"
)

// Recovery returns a middleware that recovers from panics and answers
// with a 500 Internal error. http.ErrAbortHandler is re-panicked so the
// server can abort the connection.
func Recovery(logger observability.Logger) func(http.Handler) http.Handler {
	if logger == nil {
		logger = observability.NopLogger()
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			defer func() {
				rec := recover()
				if rec == nil {
					return
				}
				if rec == http.ErrAbortHandler { //nolint:errorlint // sentinel compared by identity
					panic(rec)
				}

				logger.WithContext(r.Context()).Error("panic recovered",
					observability.String("path", r.URL.Path),
					observability.String("method", r.Method),
					observability.Any("error", rec),
					observability.String("stack", string(debug.Stack())),
				)

				util.WriteError(w, util.KindInternal, msgInternal)
			}()

			next.ServeHTTP(w, r)
		})
	}
}
