package server

import (
	"log"
	"net/http"
	"time"
)

func logMiddleware(next http.Handler, corsEnabled bool) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		setCORSHeaders(w, corsEnabled)
		sw := newStatusResponseWriter(w)
		next.ServeHTTP(sw, r)

		level := "info"
		switch {
		case sw.Status() >= http.StatusInternalServerError:
			level = "error"
		case r.URL.Path == "/health":
			level = "debug"
		}
		log.Printf(
			"level=%s msg=\"http request\" method=%s path=%s status=%d bytes=%d remote=%s duration=%s",
			level,
			r.Method,
			r.URL.Path,
			sw.Status(),
			sw.Bytes(),
			clientIP(r),
			time.Since(start),
		)
	})
}
