package middleware

import (
	"net/http"
	"time"

	"github.com/go-kratos/kratos/v2/log"
	"github.com/google/uuid"
	"github.com/gorilla/mux"

	"jamesfarrell.me/youtube-chat/internal/api/handlers"
	"jamesfarrell.me/youtube-chat/internal/logging"
)

const RequestIDHeader = "X-Request-ID"

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (s *statusRecorder) WriteHeader(code int) {
	s.status = code
	s.ResponseWriter.WriteHeader(code)
}

// Logging tags every request with an id, recovers handler panics and
// logs one line per request.
func Logging(logger log.Logger) mux.MiddlewareFunc {
	helper := logging.Helper(logger, "http")
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			id := r.Header.Get(RequestIDHeader)
			if id == "" {
				id = uuid.NewString()
			}
			w.Header().Set(RequestIDHeader, id)

			rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
			start := time.Now()
			defer func() {
				if p := recover(); p != nil {
					helper.Errorw("msg", "handler panic", "request_id", id, "panic", p)
					handlers.WriteError(rec, http.StatusInternalServerError, "internal server error")
				}
				helper.Infow(
					"msg", "request",
					"request_id", id,
					"method", r.Method,
					"path", r.URL.Path,
					"status", rec.status,
					"latency", time.Since(start).String(),
				)
			}()
			next.ServeHTTP(rec, r)
		})
	}
}
