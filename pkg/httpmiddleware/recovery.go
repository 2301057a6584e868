package httpmiddleware

import (
	"fmt"
	"net/http"
	"runtime/debug"

	"github.com/lewisedginton/itinerary_planner/pkg/logger"
)

const recoveryMessage = "Internal server error"

// Recovery turns a handler panic into a plain 500 and logs it with the
// request's correlation ID and stack. http.ErrAbortHandler is re-raised so
// net/http can abort the connection as usual.
func Recovery(log logger.Logger) func(http.Handler) http.Handler {
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
				logPanic(r, rec, log)

				// a hijacked websocket has no usable response writer
				if r.Header.Get("Connection") == "Upgrade" {
					return
				}
				w.Header().Set("Content-Type", "text/plain; charset=utf-8")
				w.Header().Set("Connection", "close")
				w.WriteHeader(http.StatusInternalServerError)
				_, _ = w.Write([]byte(recoveryMessage))
			}()

			next.ServeHTTP(w, r)
		})
	}
}

func logPanic(r *http.Request, rec any, log logger.Logger) {
	fields := []logger.LogField{
		logger.StringField("panic_error", fmt.Sprintf("%v", rec)),
		logger.HTTPMethodField(r.Method),
		logger.HTTPPathField(r.URL.Path),
		logger.ClientIPField(r.RemoteAddr),
		logger.StringField("stack_trace", string(debug.Stack())),
	}
	if id := r.Header.Get(logger.CorrelationIDHeader); id != "" {
		fields = append(fields, logger.CorrelationIDField(id))
	}
	if r.URL.RawQuery != "" {
		fields = append(fields, logger.StringField("query_params", r.URL.RawQuery))
	}
	log.Error("HTTP request panic recovered", fields...)
}
