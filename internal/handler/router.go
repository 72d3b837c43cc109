/*
Package handler provides the HTTP handlers and routing setup for the WA Dash media server.

This file defines the main Router, applying necessary middleware like logging, metrics,
CORS, operator authentication and IP-based rate limiting before delegating requests
to the media and storage handlers.
*/
package handler

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/rs/cors"
	"golang.org/x/time/rate"

	"wadash/internal/app/media"
	"wadash/internal/pkg/auth/jwt"
	"wadash/internal/pkg/limiter"
	"wadash/internal/pkg/logx"
	"wadash/internal/pkg/req"
	"wadash/internal/pkg/resp"
)

// Router sets up the main HTTP routing table (chi.Router) for the application.
// The upload rate limiter's cleanup goroutine stops when ctx is done.
func Router(ctx context.Context, deps *AppDeps) http.Handler {
	uploadLimiter := limiter.NewIPRateLimiter(ctx, rate.Limit(deps.Config.UploadRate), deps.Config.UploadBurst)

	r := chi.NewRouter()

	corsAllowedOrigins := []string{}
	if deps.Config.IsDevelopment() {
		corsAllowedOrigins = []string{"*"}
	} else if len(deps.Config.AllowedOrigins) > 0 {
		corsAllowedOrigins = deps.Config.AllowedOrigins
	}

	c := cors.New(cors.Options{
		AllowedOrigins:   corsAllowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		ExposedHeaders:   []string{"Retry-After"},
		AllowCredentials: true,
		MaxAge:           300,
	})
	r.Use(c.Handler)

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(deps.Metrics.Middleware)
	r.Use(logx.RequestLogger())
	r.Use(middleware.Recoverer)

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		data := map[string]string{
			"status":  "ok",
			"service": "WA Dash Media Server",
		}
		resp.RespondSuccess(w, r, data)
	})
	r.Method(http.MethodGet, "/metrics", deps.Metrics.Handler())

	r.Route("/api", func(api chi.Router) {
		api.Use(jwt.IdentityExtractorMiddleware(deps.Config.JWTSecret))
		api.Use(jwt.RequireIdentity)

		api.Get("/media", HandleListMedia(deps))
		api.Get("/media/exists", HandleMediaExists(deps))
		api.Get("/storage/health", HandleStorageHealth(deps))

		api.Group(func(ops chi.Router) {
			ops.Use(jwt.RequireOperator)

			ops.With(
				req.LimitBody(media.MaxUploadSize()+req.MultipartOverhead),
				uploadLimiter.Middleware,
			).Post("/media/{category}", HandleUploadMedia(deps))
			ops.Delete("/media", HandleDeleteMedia(deps))
		})
	})

	return r
}
