package firebase

import (
	"context"
	"fmt"

	"firebase.google.com/go/v4/auth"
	"github.com/go-bgg-gateway/internal/domain"
)

// Token is a verified Firebase ID token.
type Token struct {
	UID           string
	Email         string
	EmailVerified bool
}

// User is the subset of an account record the service needs.
type User struct {
	UID           string
	Email         string
	EmailVerified bool
}

// authClient is the part of *auth.Client the gateway uses.
type authClient interface {
	VerifyIDToken(ctx context.Context, idToken string) (*auth.Token, error)
	GetUser(ctx context.Context, uid string) (*auth.UserRecord, error)
	EmailVerificationLinkWithSettings(ctx context.Context, email string, settings *auth.ActionCodeSettings) (string, error)
}

// sdkErrors classifies Admin SDK failures.
type sdkErrors struct {
	userNotFound    func(error) bool
	emailNotFound   func(error) bool
	certFetchFailed func(error) bool
}

var adminSDKErrors = sdkErrors{
	userNotFound:    auth.IsUserNotFound,
	emailNotFound:   auth.IsEmailNotFound,
	certFetchFailed: auth.IsCertificateFetchFailed,
}

// Auth verifies ID tokens and manages accounts through the Admin SDK. Key rotation and
// certificate caching are handled by the SDK.
type Auth struct {
	client      authClient
	continueURL string
	errs        sdkErrors
}

type AuthOption func(*Auth)

// WithContinueURL sets where the verification link sends the user afterwards.
func WithContinueURL(u string) AuthOption {
	return func(a *Auth) { a.continueURL = u }
}

// NewAuth wraps the app's auth client. With a nil app every call fails with
// domain.ErrServiceUnavailable.
func NewAuth(app *App, opts ...AuthOption) *Auth {
	a := &Auth{errs: adminSDKErrors}
	if app != nil && app.auth != nil {
		a.client = app.auth
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

var errNotInitialized = fmt.Errorf("identity provider is not initialized: %w", domain.ErrServiceUnavailable)

// VerifyIDToken checks signature, audience, issuer and expiry. Rejected tokens return a
// domain.ErrUnauthorized-wrapped error; a failed certificate download does not.
func (a *Auth) VerifyIDToken(ctx context.Context, raw string) (*Token, error) {
	if a.client == nil {
		return nil, errNotInitialized
	}
	t, err := a.client.VerifyIDToken(ctx, raw)
	if err != nil {
		if a.errs.certFetchFailed(err) {
			return nil, fmt.Errorf("fetch id token certificates: %w", err)
		}
		return nil, fmt.Errorf("%w: %v", domain.ErrUnauthorized, err)
	}
	if t.UID == "" {
		return nil, fmt.Errorf("id token has no subject: %w", domain.ErrUnauthorized)
	}
	email, _ := t.Claims["email"].(string)
	verified, _ := t.Claims["email_verified"].(bool)
	return &Token{UID: t.UID, Email: email, EmailVerified: verified}, nil
}

// GetUser loads the account for uid. Unknown accounts return domain.ErrNotFound.
func (a *Auth) GetUser(ctx context.Context, uid string) (*User, error) {
	if a.client == nil {
		return nil, errNotInitialized
	}
	rec, err := a.client.GetUser(ctx, uid)
	if err != nil {
		if a.errs.userNotFound(err) {
			return nil, fmt.Errorf("user %s: %w", uid, domain.ErrNotFound)
		}
		return nil, fmt.Errorf("lookup user: %w", err)
	}
	u := &User{UID: uid, EmailVerified: rec.EmailVerified}
	if rec.UserInfo != nil {
		u.UID = rec.UID
		u.Email = rec.Email
	}
	return u, nil
}

// EmailVerificationLink generates a verification link for email without sending it. An address
// the provider has no account for returns domain.ErrNotFound.
func (a *Auth) EmailVerificationLink(ctx context.Context, email string) (string, error) {
	if a.client == nil {
		return "", errNotInitialized
	}
	var settings *auth.ActionCodeSettings
	if a.continueURL != "" {
		settings = &auth.ActionCodeSettings{URL: a.continueURL}
	}
	link, err := a.client.EmailVerificationLinkWithSettings(ctx, email, settings)
	if err != nil {
		if a.errs.emailNotFound(err) || a.errs.userNotFound(err) {
			return "", fmt.Errorf("no account for email: %w", domain.ErrNotFound)
		}
		return "", fmt.Errorf("generate verification link: %w", err)
	}
	if link == "" {
		return "", fmt.Errorf("generate verification link: empty link")
	}
	return link, nil
}
