package controller

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5/middleware"
	"github.com/google/uuid"
	"github.com/streamsave/server/pkg/ctxlogger"
	"github.com/streamsave/server/pkg/rest"
)

func (c controller) requestIdMw(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		ctx = ctxlogger.AppendCtx(ctx, slog.String("request_id", uuid.NewString()))
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func (c controller) requestLoggingMw(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)

		if r.URL.Path == "/healthz" {
			return
		}

		c.logger.InfoContext(r.Context(), "request",
			"method", r.Method,
			"url", r.URL.String(),
			"remote_addr", r.RemoteAddr,
			"status", ww.Status(),
			"duration", time.Since(start),
		)
	})
}

func (c controller) rateLimitMw(next http.Handler) http.Handler {
	if c.rateLimiter == nil {
		return next
	}

	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ok, err := c.rateLimiter.Allow(r.Context(), c.clientKey(r))
		if err != nil {
			c.logger.WarnContext(r.Context(), "rate limiter failed", "error", err)
		} else if !ok {
			rest.WriteJSON(w, http.StatusTooManyRequests, rest.Envelope{"error": "rate limit exceeded"})
			return
		}

		next.ServeHTTP(w, r)
	})
}
