package middleware

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/go-bgg-gateway/internal/domain"
	"github.com/go-bgg-gateway/internal/infrastructure/firebase"
	"go.uber.org/zap"
)

type contextKey string

const TokenKey contextKey = "id_token"

// TokenVerifier validates identity provider ID tokens.
type TokenVerifier interface {
	VerifyIDToken(ctx context.Context, raw string) (*firebase.Token, error)
}

// Auth returns middleware that validates the Bearer ID token and injects it into context.
func Auth(verifier TokenVerifier, logger *zap.Logger) func(http.Handler) http.Handler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			authHeader := r.Header.Get("Authorization")
			raw, ok := strings.CutPrefix(authHeader, "Bearer ")
			if !ok || strings.TrimSpace(raw) == "" {
				writeJSONError(w, http.StatusUnauthorized, "missing or invalid authorization header")
				return
			}
			tok, err := verifier.VerifyIDToken(r.Context(), strings.TrimSpace(raw))
			if err != nil {
				if errors.Is(err, domain.ErrUnauthorized) {
					writeJSONError(w, http.StatusUnauthorized, "invalid or expired token")
					return
				}
				logger.Error("token verification failed", zap.Error(err))
				writeJSONError(w, http.StatusInternalServerError, "could not verify token")
				return
			}
			ctx := context.WithValue(r.Context(), TokenKey, tok)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// TokenFromContext extracts the verified ID token from the request context.
func TokenFromContext(ctx context.Context) (*firebase.Token, bool) {
	t, ok := ctx.Value(TokenKey).(*firebase.Token)
	return t, ok
}
