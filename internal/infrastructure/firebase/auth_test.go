package firebase

import (
	"context"
	"errors"
	"testing"

	"firebase.google.com/go/v4/auth"
	"github.com/go-bgg-gateway/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

// --- mock ---

type mockAuthClient struct{ mock.Mock }

func (m *mockAuthClient) VerifyIDToken(ctx context.Context, idToken string) (*auth.Token, error) {
	args := m.Called(ctx, idToken)
	t, _ := args.Get(0).(*auth.Token)
	return t, args.Error(1)
}

func (m *mockAuthClient) GetUser(ctx context.Context, uid string) (*auth.UserRecord, error) {
	args := m.Called(ctx, uid)
	u, _ := args.Get(0).(*auth.UserRecord)
	return u, args.Error(1)
}

func (m *mockAuthClient) EmailVerificationLinkWithSettings(ctx context.Context, email string, settings *auth.ActionCodeSettings) (string, error) {
	args := m.Called(ctx, email, settings)
	return args.String(0), args.Error(1)
}

var (
	errUserNotFound  = errors.New("USER_NOT_FOUND")
	errEmailNotFound = errors.New("EMAIL_NOT_FOUND")
	errCertFetch     = errors.New("CERTIFICATE_FETCH_FAILED")
)

func newTestAuth(client authClient, opts ...AuthOption) *Auth {
	a := NewAuth(nil, opts...)
	a.client = client
	a.errs = sdkErrors{
		userNotFound:    func(err error) bool { return errors.Is(err, errUserNotFound) },
		emailNotFound:   func(err error) bool { return errors.Is(err, errEmailNotFound) },
		certFetchFailed: func(err error) bool { return errors.Is(err, errCertFetch) },
	}
	return a
}

// --- VerifyIDToken ---

func TestVerifyIDToken_Claims(t *testing.T) {
	c := &mockAuthClient{}
	c.On("VerifyIDToken", mock.Anything, "tok").Return(&auth.Token{
		UID:    "uid-1",
		Claims: map[string]interface{}{"email": "a@example.com", "email_verified": true},
	}, nil)

	tok, err := newTestAuth(c).VerifyIDToken(context.Background(), "tok")
	require.NoError(t, err)
	assert.Equal(t, &Token{UID: "uid-1", Email: "a@example.com", EmailVerified: true}, tok)
}

func TestVerifyIDToken_Rejected(t *testing.T) {
	c := &mockAuthClient{}
	c.On("VerifyIDToken", mock.Anything, "expired").Return(nil, errors.New("ID token has expired"))
	c.On("VerifyIDToken", mock.Anything, "anon").Return(&auth.Token{}, nil)

	a := newTestAuth(c)
	for _, raw := range []string{"expired", "anon"} {
		_, err := a.VerifyIDToken(context.Background(), raw)
		assert.ErrorIs(t, err, domain.ErrUnauthorized, raw)
	}
}

func TestVerifyIDToken_CertificateFetchIsNotUnauthorized(t *testing.T) {
	c := &mockAuthClient{}
	c.On("VerifyIDToken", mock.Anything, "tok").Return(nil, errCertFetch)

	_, err := newTestAuth(c).VerifyIDToken(context.Background(), "tok")
	require.Error(t, err)
	assert.NotErrorIs(t, err, domain.ErrUnauthorized)
	assert.ErrorIs(t, err, errCertFetch)
}

func TestVerifyIDToken_DelegatesEveryCallToSDK(t *testing.T) {
	c := &mockAuthClient{}
	c.On("VerifyIDToken", mock.Anything, "unknown-kid").Return(nil, errors.New("failed to verify token signature"))

	a := newTestAuth(c)
	for i := 0; i < 3; i++ {
		_, err := a.VerifyIDToken(context.Background(), "unknown-kid")
		assert.ErrorIs(t, err, domain.ErrUnauthorized)
	}
	c.AssertNumberOfCalls(t, "VerifyIDToken", 3)
}

// --- GetUser ---

func TestGetUser(t *testing.T) {
	c := &mockAuthClient{}
	c.On("GetUser", mock.Anything, "uid-1").Return(&auth.UserRecord{
		UserInfo:      &auth.UserInfo{UID: "uid-1", Email: "a@example.com"},
		EmailVerified: false,
	}, nil)

	u, err := newTestAuth(c).GetUser(context.Background(), "uid-1")
	require.NoError(t, err)
	assert.Equal(t, &User{UID: "uid-1", Email: "a@example.com"}, u)
}

func TestGetUser_NotFound(t *testing.T) {
	c := &mockAuthClient{}
	c.On("GetUser", mock.Anything, "uid-1").Return(nil, errUserNotFound)

	_, err := newTestAuth(c).GetUser(context.Background(), "uid-1")
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestGetUser_UpstreamError(t *testing.T) {
	c := &mockAuthClient{}
	c.On("GetUser", mock.Anything, "uid-1").Return(nil, errors.New("PERMISSION_DENIED"))

	_, err := newTestAuth(c).GetUser(context.Background(), "uid-1")
	require.Error(t, err)
	assert.NotErrorIs(t, err, domain.ErrNotFound)
	assert.Contains(t, err.Error(), "PERMISSION_DENIED")
}

// --- EmailVerificationLink ---

func TestEmailVerificationLink_ContinueURL(t *testing.T) {
	c := &mockAuthClient{}
	c.On("EmailVerificationLinkWithSettings", mock.Anything, "a@example.com",
		&auth.ActionCodeSettings{URL: "https://app.example.com/verified"}).
		Return("https://example.firebaseapp.com/__/auth/action?mode=verifyEmail&oobCode=abc", nil)

	link, err := newTestAuth(c, WithContinueURL("https://app.example.com/verified")).
		EmailVerificationLink(context.Background(), "a@example.com")
	require.NoError(t, err)
	assert.Contains(t, link, "oobCode=abc")
}

func TestEmailVerificationLink_NoSettingsWithoutContinueURL(t *testing.T) {
	c := &mockAuthClient{}
	c.On("EmailVerificationLinkWithSettings", mock.Anything, "a@example.com", (*auth.ActionCodeSettings)(nil)).
		Return("https://example.firebaseapp.com/__/auth/action?oobCode=abc", nil)

	_, err := newTestAuth(c).EmailVerificationLink(context.Background(), "a@example.com")
	require.NoError(t, err)
	c.AssertExpectations(t)
}

func TestEmailVerificationLink_Errors(t *testing.T) {
	tests := []struct {
		name     string
		link     string
		err      error
		notFound bool
	}{
		{"email not found", "", errEmailNotFound, true},
		{"user not found", "", errUserNotFound, true},
		{"upstream failure", "", errors.New("INTERNAL"), false},
		{"empty link", "", nil, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := &mockAuthClient{}
			c.On("EmailVerificationLinkWithSettings", mock.Anything, mock.Anything, mock.Anything).Return(tt.link, tt.err)

			_, err := newTestAuth(c).EmailVerificationLink(context.Background(), "a@example.com")
			require.Error(t, err)
			if tt.notFound {
				assert.ErrorIs(t, err, domain.ErrNotFound)
			} else {
				assert.NotErrorIs(t, err, domain.ErrNotFound)
			}
		})
	}
}

// --- uninitialized ---

func TestAuth_WithoutApp(t *testing.T) {
	a := NewAuth(nil)
	ctx := context.Background()

	_, err := a.VerifyIDToken(ctx, "tok")
	assert.ErrorIs(t, err, domain.ErrServiceUnavailable)
	assert.NotErrorIs(t, err, domain.ErrUnauthorized)

	_, err = a.GetUser(ctx, "uid-1")
	assert.ErrorIs(t, err, domain.ErrServiceUnavailable)

	_, err = a.EmailVerificationLink(ctx, "a@example.com")
	assert.ErrorIs(t, err, domain.ErrServiceUnavailable)
}
