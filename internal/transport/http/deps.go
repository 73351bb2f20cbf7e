package http

import (
	"net/http"

	"github.com/go-bgg-gateway/internal/application/game"
	"github.com/go-bgg-gateway/internal/application/verification"
	appmiddleware "github.com/go-bgg-gateway/internal/transport/http/middleware"
	"go.uber.org/zap"
)

// Deps holds the services and collaborators the router needs.
type Deps struct {
	Games         game.Service
	Verification  verification.Service
	TokenVerifier appmiddleware.TokenVerifier
	Logger        *zap.Logger
	// Metrics serves /metrics when set.
	Metrics http.Handler
}
