package middleware

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
)

func TracingMiddleware(next http.Handler) http.Handler {
	tr := otel.Tracer("taskmaster/http")
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		reqID := chimw.GetReqID(ctx)

		sw := &statusWriter{ResponseWriter: w}
		start := time.Now()

		ctx, span := tr.Start(ctx, r.Method+" "+r.URL.Path)
		defer span.End()

		r = r.WithContext(ctx)
		next.ServeHTTP(sw, r)

		if sw.status == 0 {
			sw.status = http.StatusOK
		}
		dur := time.Since(start).Milliseconds()

		attrs := []attribute.KeyValue{
			attribute.String("http.method", r.Method),
			attribute.String("http.target", r.URL.Path),
			attribute.Int("http.status_code", sw.status),
			attribute.String("request.id", reqID),
			attribute.Int64("http.duration_ms", dur),
		}
		// After serving, chi knows the matched pattern (/tasks/{id}),
		// which groups spans better than the raw path.
		if rctx := chi.RouteContext(r.Context()); rctx != nil {
			if pattern := rctx.RoutePattern(); pattern != "" {
				attrs = append(attrs, attribute.String("http.route", pattern))
				span.SetName(r.Method + " " + pattern)
			}
		}
		span.SetAttributes(attrs...)

		if sc := span.SpanContext(); sc.IsValid() {
			w.Header().Set("Trace-Id", sc.TraceID().String())
		}
	})
}
