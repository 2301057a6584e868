package httpmiddleware

import (
	"net/http"

	"github.com/google/uuid"
	"github.com/lewisedginton/itinerary_planner/pkg/logger"
)

// CorrelationID gives every request a fresh correlation ID. Client supplied
// values are ignored. The ID is set on the request header, echoed on the
// response and stored in the request context for logger.GetLoggerFromContext.
func CorrelationID() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			id := uuid.New().String()

			r.Header.Set(logger.CorrelationIDHeader, id)
			w.Header().Set(logger.CorrelationIDHeader, id)

			next.ServeHTTP(w, r.WithContext(logger.WithCorrelationIDContext(r.Context(), id)))
		})
	}
}
