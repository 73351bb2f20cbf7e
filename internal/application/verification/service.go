package verification

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"

	"github.com/go-bgg-gateway/internal/domain"
	"github.com/go-bgg-gateway/internal/infrastructure/firebase"
	smtpinfra "github.com/go-bgg-gateway/internal/infrastructure/smtp"
	"go.uber.org/zap"
)

// RawOOBCodeMinLength separates short codes from raw oobCodes: anything longer is passed through
// untouched. A genuinely short raw oobCode would be misread as a short code.
const RawOOBCodeMinLength = 16

// Caller is the authenticated account making the request.
type Caller struct {
	UID   string
	Email string
}

type Service interface {
	// SendVerificationEmail emails a short code and the full verification link to the caller's address.
	SendVerificationEmail(ctx context.Context, caller Caller, requestedEmail string) error
	// ExchangeVerificationCode turns a short code back into the oobCode it stands for.
	ExchangeVerificationCode(ctx context.Context, caller Caller, code string) (string, error)
}

type identity interface {
	GetUser(ctx context.Context, uid string) (*firebase.User, error)
	EmailVerificationLink(ctx context.Context, email string) (string, error)
}

type mailer interface {
	Configured() bool
	SendVerificationCode(ctx context.Context, to string, data smtpinfra.VerificationEmail) error
}

type exchanger interface {
	Create(ctx context.Context, email, oobCode string) (*IssueResult, error)
	Resolve(ctx context.Context, code, expectedEmail string) (string, error)
}

type ServiceDeps struct {
	Identity identity
	Mailer   mailer
	Exchange exchanger
	Logger   *zap.Logger
}

type service struct {
	identity identity
	mailer   mailer
	exchange exchanger
	logger   *zap.Logger
}

func NewService(deps ServiceDeps) Service {
	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &service{
		identity: deps.Identity,
		mailer:   deps.Mailer,
		exchange: deps.Exchange,
		logger:   logger,
	}
}

func (s *service) SendVerificationEmail(ctx context.Context, caller Caller, requestedEmail string) error {
	if !s.mailer.Configured() {
		return fmt.Errorf("email service is not configured: %w", domain.ErrServiceUnavailable)
	}
	email, err := s.accountEmail(ctx, caller)
	if err != nil {
		return err
	}
	if requested := strings.TrimSpace(requestedEmail); requested != "" && !strings.EqualFold(requested, email) {
		return fmt.Errorf("cannot verify another account's email: %w", domain.ErrForbidden)
	}

	link, err := s.identity.EmailVerificationLink(ctx, email)
	switch {
	case errors.Is(err, domain.ErrNotFound):
		return fmt.Errorf("account email is not registered with the identity provider: %w", domain.ErrBadRequest)
	case err != nil:
		return err
	}
	oobCode, err := oobCodeFromLink(link)
	if err != nil {
		return err
	}

	issued, err := s.exchange.Create(ctx, email, oobCode)
	if err != nil {
		return err
	}
	if err := s.mailer.SendVerificationCode(ctx, email, smtpinfra.VerificationEmail{
		Code:      issued.Code,
		Link:      link,
		ExpiresIn: domain.VerificationCodeTTL,
	}); err != nil {
		return err
	}

	s.logger.Info("verification email sent",
		zap.String("uid", caller.UID),
		zap.Int("superseded", issued.Cleanup.Superseded),
	)
	return nil
}

func (s *service) ExchangeVerificationCode(ctx context.Context, caller Caller, code string) (string, error) {
	code = strings.TrimSpace(code)
	if code == "" {
		return "", fmt.Errorf("code is required: %w", domain.ErrBadRequest)
	}
	if len(code) > RawOOBCodeMinLength {
		return code, nil
	}
	email, err := s.accountEmail(ctx, caller)
	if err != nil {
		return "", err
	}
	return s.exchange.Resolve(ctx, code, email)
}

// accountEmail prefers the stored account record over the token claim.
func (s *service) accountEmail(ctx context.Context, caller Caller) (string, error) {
	user, err := s.identity.GetUser(ctx, caller.UID)
	switch {
	case errors.Is(err, domain.ErrNotFound):
		return "", fmt.Errorf("account %s no longer exists: %w", caller.UID, domain.ErrUnauthorized)
	case err != nil:
		return "", err
	}
	email := strings.TrimSpace(user.Email)
	if email == "" {
		email = strings.TrimSpace(caller.Email)
	}
	if email == "" {
		return "", fmt.Errorf("account has no email address: %w", domain.ErrBadRequest)
	}
	return email, nil
}

func oobCodeFromLink(link string) (string, error) {
	u, err := url.Parse(link)
	if err != nil {
		return "", fmt.Errorf("parse verification link: %w", err)
	}
	oobCode := u.Query().Get("oobCode")
	if oobCode == "" {
		return "", errors.New("verification link has no oobCode")
	}
	return oobCode, nil
}
