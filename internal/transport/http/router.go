package http

import (
	"net/http"

	"github.com/go-bgg-gateway/internal/config"
	"github.com/go-bgg-gateway/internal/transport/http/handler"
	appmiddleware "github.com/go-bgg-gateway/internal/transport/http/middleware"
	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

// NewRouter builds and returns the application router.
func NewRouter(cfg *config.Config, deps *Deps) http.Handler {
	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	r := chi.NewRouter()
	r.Use(chimiddleware.RequestID)
	r.Use(appmiddleware.RequestLogger(logger))
	r.Use(chimiddleware.Recoverer)
	r.Use(appmiddleware.Metrics)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   cfg.AllowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		AllowCredentials: false,
		MaxAge:           300,
	}))
	r.MethodNotAllowed(handler.MethodNotAllowed)
	r.NotFound(handler.NotFound)

	authMw := appmiddleware.Auth(deps.TokenVerifier, logger)

	// 5 requests/second, burst of 10 per client IP on the verification routes.
	verifyRL := appmiddleware.NewRateLimiter(rate.Limit(5), 10, cfg.TrustedProxyPrefixes()...)

	healthH := handler.NewHealthHandler()
	bggH := handler.NewBGGHandler(deps.Games, logger)
	verifyH := handler.NewVerificationHandler(deps.Verification, logger)

	r.Get("/health", healthH.Ping)
	if deps.Metrics != nil {
		r.Method(http.MethodGet, "/metrics", deps.Metrics)
	}

	r.Get("/bggSearch", bggH.Search)
	r.Get("/bggThing", bggH.Thing)

	r.Group(func(r chi.Router) {
		r.Use(verifyRL.Limit)
		r.Use(authMw)

		r.Post("/sendVerificationEmail", verifyH.Send)
		r.Post("/exchangeVerificationCode", verifyH.Exchange)
	})

	return r
}
