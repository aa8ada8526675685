package devserver

import (
	"log"
	"net/http"
	"time"
)

// LoggingMiddleware logs each request with method, path, status, and
// duration, kept as a hand-rolled middleware rather than reaching for a
// chi middleware package, matching the teacher's internal/api/middleware.go.
func LoggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := &statusWriter{ResponseWriter: w, status: 200}
		next.ServeHTTP(ww, r)
		log.Printf("%s %s %d %v", r.Method, r.URL.Path, ww.status, time.Since(start))
	})
}

// statusWriter captures the HTTP status for logging.
type statusWriter struct {
	http.ResponseWriter
	status int
}

func (w *statusWriter) WriteHeader(code int) {
	w.status = code
	w.ResponseWriter.WriteHeader(code)
}
