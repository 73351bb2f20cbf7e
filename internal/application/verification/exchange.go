package verification

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/go-bgg-gateway/internal/domain"
	"github.com/go-bgg-gateway/internal/pkg/metrics"
	"github.com/go-bgg-gateway/internal/pkg/token"
	"go.uber.org/zap"
)

// maxCreateAttempts bounds code regeneration when a freshly drawn code is already taken.
const maxCreateAttempts = 5

type codeStore interface {
	Create(ctx context.Context, v *domain.VerificationCode) error
	Get(ctx context.Context, code string) (*domain.VerificationCode, error)
	Delete(ctx context.Context, code string) error
	ListByEmail(ctx context.Context, email string) ([]domain.VerificationCode, error)
	DeleteMany(ctx context.Context, codes []string) error
}

// CleanupResult reports the removal of older codes for the same email after a new one is issued.
// A non-nil Err never fails the issuance.
type CleanupResult struct {
	Superseded int
	Err        error
}

type IssueResult struct {
	Code      string
	ExpiresAt time.Time
	Cleanup   CleanupResult
}

// Exchange issues short codes standing in for long oobCodes and redeems them exactly once.
type Exchange struct {
	store   codeStore
	newCode func() (string, error)
	now     func() time.Time
	logger  *zap.Logger
}

func NewExchange(store codeStore, logger *zap.Logger) *Exchange {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Exchange{
		store:   store,
		newCode: token.NewShortCode,
		now:     time.Now,
		logger:  logger,
	}
}

// Create stores a new short code for email. Collisions are retried with a fresh code up to
// maxCreateAttempts times, after which domain.ErrCodeGeneration is returned.
func (e *Exchange) Create(ctx context.Context, email, oobCode string) (*IssueResult, error) {
	email = normalizeEmail(email)
	now := e.now()
	expiresAt := now.Add(domain.VerificationCodeTTL)

	var code string
	for attempt := 1; ; attempt++ {
		if attempt > maxCreateAttempts {
			metrics.CodesIssuedTotal.WithLabelValues("exhausted").Inc()
			return nil, domain.ErrCodeGeneration
		}
		c, err := e.newCode()
		if err != nil {
			return nil, err
		}
		err = e.store.Create(ctx, &domain.VerificationCode{
			Code:      c,
			Email:     email,
			OOBCode:   oobCode,
			CreatedAt: now,
			ExpiresAt: expiresAt.Unix(),
		})
		if err == nil {
			code = c
			break
		}
		if !errors.Is(err, domain.ErrConflict) {
			metrics.CodesIssuedTotal.WithLabelValues("error").Inc()
			return nil, fmt.Errorf("store verification code: %w", err)
		}
		e.logger.Debug("short code collision, regenerating", zap.Int("attempt", attempt))
	}
	metrics.CodesIssuedTotal.WithLabelValues("ok").Inc()

	cleanup := e.supersede(ctx, email, code)
	if cleanup.Err != nil {
		e.logger.Warn("cleanup of superseded verification codes failed",
			zap.String("email", email),
			zap.Error(cleanup.Err),
		)
	}
	return &IssueResult{Code: code, ExpiresAt: time.Unix(expiresAt.Unix(), 0), Cleanup: cleanup}, nil
}

// supersede deletes every code for email except keep.
func (e *Exchange) supersede(ctx context.Context, email, keep string) CleanupResult {
	existing, err := e.store.ListByEmail(ctx, email)
	if err != nil {
		return CleanupResult{Err: fmt.Errorf("list codes: %w", err)}
	}
	stale := make([]string, 0, len(existing))
	for _, v := range existing {
		if v.Code != keep {
			stale = append(stale, v.Code)
		}
	}
	if len(stale) == 0 {
		return CleanupResult{}
	}
	if err := e.store.DeleteMany(ctx, stale); err != nil {
		return CleanupResult{Err: fmt.Errorf("delete codes: %w", err)}
	}
	return CleanupResult{Superseded: len(stale)}
}

// Resolve redeems code for expectedEmail and returns the oobCode it stands for.
// The code is deleted on every outcome except domain.ErrForbidden, so the rightful owner can still use it.
func (e *Exchange) Resolve(ctx context.Context, code, expectedEmail string) (string, error) {
	code = strings.ToUpper(strings.TrimSpace(code))
	if code == "" {
		return "", fmt.Errorf("empty code: %w", domain.ErrNotFound)
	}

	v, err := e.store.Get(ctx, code)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			metrics.CodesRedeemedTotal.WithLabelValues("not_found").Inc()
		}
		return "", err
	}

	if v.OOBCode == "" || v.Email == "" {
		metrics.CodesRedeemedTotal.WithLabelValues("invalid").Inc()
		if err := e.store.Delete(ctx, code); err != nil {
			return "", fmt.Errorf("delete invalid code: %w", err)
		}
		return "", fmt.Errorf("verification code is invalid: %w", domain.ErrNotFound)
	}
	if normalizeEmail(v.Email) != normalizeEmail(expectedEmail) {
		metrics.CodesRedeemedTotal.WithLabelValues("forbidden").Inc()
		return "", fmt.Errorf("code belongs to another account: %w", domain.ErrForbidden)
	}
	if v.Expired(e.now()) {
		metrics.CodesRedeemedTotal.WithLabelValues("expired").Inc()
		if err := e.store.Delete(ctx, code); err != nil {
			return "", fmt.Errorf("delete expired code: %w", err)
		}
		return "", fmt.Errorf("verification code expired: %w", domain.ErrExpired)
	}

	if err := e.store.Delete(ctx, code); err != nil {
		return "", fmt.Errorf("consume code: %w", err)
	}
	metrics.CodesRedeemedTotal.WithLabelValues("ok").Inc()
	return v.OOBCode, nil
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
