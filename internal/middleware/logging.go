package middleware

import (
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"

	"github.com/windfall/phonoecho_service/internal/observe"
)

// Logger returns a request logging middleware. When metrics is non-nil the
// request duration is also recorded.
func Logger(log zerolog.Logger, metrics *observe.Metrics) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()

			// Wrap response writer to capture status code
			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)

			requestID := middleware.GetReqID(r.Context())

			next.ServeHTTP(ww, r)

			duration := time.Since(start)
			status := ww.Status()
			if status == 0 {
				status = http.StatusOK
			}

			if metrics != nil {
				metrics.HTTPRequestDuration.Record(r.Context(), duration.Seconds(), metric.WithAttributes(
					attribute.String("method", r.Method),
					attribute.String("status", strconv.Itoa(status)),
				))
			}

			log.Info().
				Str("request_id", requestID).
				Str("method", r.Method).
				Str("path", r.URL.Path).
				Str("remote_addr", r.RemoteAddr).
				Str("user_id", GetUserID(r.Context())).
				Int("status", status).
				Int("bytes", ww.BytesWritten()).
				Dur("duration", duration).
				Str("user_agent", r.UserAgent()).
				Msg("HTTP request")
		})
	}
}
