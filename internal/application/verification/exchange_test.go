package verification

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/go-bgg-gateway/internal/domain"
	"github.com/go-bgg-gateway/internal/pkg/token"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// --- fakes ---

type memCodeStore struct {
	codes     map[string]domain.VerificationCode
	createErr error
	listErr   error
	deleteErr error
	creates   int
}

func newMemCodeStore() *memCodeStore {
	return &memCodeStore{codes: map[string]domain.VerificationCode{}}
}

func (m *memCodeStore) Create(_ context.Context, v *domain.VerificationCode) error {
	m.creates++
	if m.createErr != nil {
		return m.createErr
	}
	if _, ok := m.codes[v.Code]; ok {
		return fmt.Errorf("code already exists: %w", domain.ErrConflict)
	}
	m.codes[v.Code] = *v
	return nil
}

func (m *memCodeStore) Get(_ context.Context, code string) (*domain.VerificationCode, error) {
	v, ok := m.codes[code]
	if !ok {
		return nil, fmt.Errorf("verification code not found: %w", domain.ErrNotFound)
	}
	return &v, nil
}

func (m *memCodeStore) Delete(_ context.Context, code string) error {
	if m.deleteErr != nil {
		return m.deleteErr
	}
	delete(m.codes, code)
	return nil
}

func (m *memCodeStore) ListByEmail(_ context.Context, email string) ([]domain.VerificationCode, error) {
	if m.listErr != nil {
		return nil, m.listErr
	}
	var out []domain.VerificationCode
	for _, v := range m.codes {
		if v.Email == email {
			out = append(out, v)
		}
	}
	return out, nil
}

func (m *memCodeStore) DeleteMany(_ context.Context, codes []string) error {
	if m.deleteErr != nil {
		return m.deleteErr
	}
	for _, c := range codes {
		delete(m.codes, c)
	}
	return nil
}

// --- helpers ---

var fixedNow = time.Unix(1_760_000_000, 0)

func newTestExchange(store *memCodeStore, codes ...string) *Exchange {
	e := NewExchange(store, nil)
	e.now = func() time.Time { return fixedNow }
	if len(codes) > 0 {
		i := 0
		e.newCode = func() (string, error) {
			c := codes[i%len(codes)]
			i++
			return c, nil
		}
	}
	return e
}

// --- issuance ---

func TestCreate_StoresCodeWithTTL(t *testing.T) {
	store := newMemCodeStore()
	e := newTestExchange(store)

	res, err := e.Create(context.Background(), " A@Example.com ", "long-oob-code")
	require.NoError(t, err)
	require.Len(t, res.Code, token.ShortCodeLength)
	for _, c := range res.Code {
		assert.True(t, strings.ContainsRune(token.Alphabet, c))
	}
	assert.Equal(t, fixedNow.Add(domain.VerificationCodeTTL).Unix(), res.ExpiresAt.Unix())
	assert.NoError(t, res.Cleanup.Err)

	stored := store.codes[res.Code]
	assert.Equal(t, "a@example.com", stored.Email)
	assert.Equal(t, "long-oob-code", stored.OOBCode)
	assert.Equal(t, fixedNow.Add(15*time.Minute).Unix(), stored.ExpiresAt)
}

func TestCreate_RetriesOnCollision(t *testing.T) {
	store := newMemCodeStore()
	store.codes["AAAAAA"] = domain.VerificationCode{Code: "AAAAAA", Email: "x@example.com", OOBCode: "x"}
	store.codes["BBBBBB"] = domain.VerificationCode{Code: "BBBBBB", Email: "y@example.com", OOBCode: "y"}
	e := newTestExchange(store, "AAAAAA", "BBBBBB", "CCCCCC")

	res, err := e.Create(context.Background(), "a@example.com", "oob")
	require.NoError(t, err)
	assert.Equal(t, "CCCCCC", res.Code)
	assert.Equal(t, 3, store.creates)
}

func TestCreate_GivesUpAfterFiveCollisions(t *testing.T) {
	store := newMemCodeStore()
	store.codes["AAAAAA"] = domain.VerificationCode{Code: "AAAAAA", Email: "x@example.com", OOBCode: "x"}
	e := newTestExchange(store, "AAAAAA")

	_, err := e.Create(context.Background(), "a@example.com", "oob")
	assert.ErrorIs(t, err, domain.ErrCodeGeneration)
	assert.EqualError(t, err, "failed to generate a code, try again")
	assert.Equal(t, 5, store.creates)
}

func TestCreate_StoreErrorIsNotRetried(t *testing.T) {
	store := newMemCodeStore()
	store.createErr = errors.New("provisioned throughput exceeded")
	e := newTestExchange(store)

	_, err := e.Create(context.Background(), "a@example.com", "oob")
	require.Error(t, err)
	assert.NotErrorIs(t, err, domain.ErrCodeGeneration)
	assert.Equal(t, 1, store.creates)
}

func TestCreate_SupersedesOlderCodesForSameEmail(t *testing.T) {
	store := newMemCodeStore()
	store.codes["OLD111"] = domain.VerificationCode{Code: "OLD111", Email: "a@example.com", OOBCode: "1"}
	store.codes["OLD222"] = domain.VerificationCode{Code: "OLD222", Email: "a@example.com", OOBCode: "2"}
	store.codes["OTHER3"] = domain.VerificationCode{Code: "OTHER3", Email: "b@example.com", OOBCode: "3"}
	e := newTestExchange(store, "NEW444")

	res, err := e.Create(context.Background(), "a@example.com", "oob")
	require.NoError(t, err)
	assert.Equal(t, CleanupResult{Superseded: 2}, res.Cleanup)
	assert.Contains(t, store.codes, "NEW444")
	assert.Contains(t, store.codes, "OTHER3")
	assert.NotContains(t, store.codes, "OLD111")
	assert.NotContains(t, store.codes, "OLD222")
}

func TestCreate_CleanupFailureIsReportedNotReturned(t *testing.T) {
	store := newMemCodeStore()
	store.listErr = errors.New("index not ready")
	e := newTestExchange(store, "NEW444")

	res, err := e.Create(context.Background(), "a@example.com", "oob")
	require.NoError(t, err)
	assert.Equal(t, "NEW444", res.Code)
	assert.Error(t, res.Cleanup.Err)
	assert.Zero(t, res.Cleanup.Superseded)
	assert.Contains(t, store.codes, "NEW444")
}

// --- redemption ---

func TestResolve_IsSingleUse(t *testing.T) {
	store := newMemCodeStore()
	e := newTestExchange(store, "K7PQ2M")
	_, err := e.Create(context.Background(), "a@example.com", "long-oob")
	require.NoError(t, err)

	oob, err := e.Resolve(context.Background(), " k7pq2m ", "A@example.com")
	require.NoError(t, err)
	assert.Equal(t, "long-oob", oob)
	assert.Empty(t, store.codes)

	_, err = e.Resolve(context.Background(), "K7PQ2M", "a@example.com")
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestResolve_WrongOwnerKeepsCode(t *testing.T) {
	store := newMemCodeStore()
	e := newTestExchange(store, "K7PQ2M")
	_, err := e.Create(context.Background(), "a@example.com", "long-oob")
	require.NoError(t, err)

	_, err = e.Resolve(context.Background(), "K7PQ2M", "b@example.com")
	assert.ErrorIs(t, err, domain.ErrForbidden)
	assert.Contains(t, store.codes, "K7PQ2M")

	oob, err := e.Resolve(context.Background(), "K7PQ2M", "a@example.com")
	require.NoError(t, err)
	assert.Equal(t, "long-oob", oob)
}

func TestResolve_ExpiredIsDeleted(t *testing.T) {
	store := newMemCodeStore()
	store.codes["K7PQ2M"] = domain.VerificationCode{
		Code:      "K7PQ2M",
		Email:     "a@example.com",
		OOBCode:   "long-oob",
		ExpiresAt: fixedNow.Add(-time.Second).Unix(),
	}
	e := newTestExchange(store)

	_, err := e.Resolve(context.Background(), "K7PQ2M", "a@example.com")
	assert.ErrorIs(t, err, domain.ErrExpired)
	assert.NotContains(t, store.codes, "K7PQ2M")
}

func TestResolve_ExpiringThisSecondIsStillValid(t *testing.T) {
	store := newMemCodeStore()
	store.codes["K7PQ2M"] = domain.VerificationCode{Code: "K7PQ2M", Email: "a@example.com", OOBCode: "long-oob", ExpiresAt: fixedNow.Unix()}
	e := newTestExchange(store)

	oob, err := e.Resolve(context.Background(), "K7PQ2M", "a@example.com")
	require.NoError(t, err)
	assert.Equal(t, "long-oob", oob)
}

func TestResolve_CorruptDocumentIsDeleted(t *testing.T) {
	for name, doc := range map[string]domain.VerificationCode{
		"missing oob code": {Code: "K7PQ2M", Email: "a@example.com", ExpiresAt: fixedNow.Add(time.Minute).Unix()},
		"missing email":    {Code: "K7PQ2M", OOBCode: "long-oob", ExpiresAt: fixedNow.Add(time.Minute).Unix()},
	} {
		t.Run(name, func(t *testing.T) {
			store := newMemCodeStore()
			store.codes["K7PQ2M"] = doc
			e := newTestExchange(store)

			_, err := e.Resolve(context.Background(), "K7PQ2M", "a@example.com")
			assert.ErrorIs(t, err, domain.ErrNotFound)
			assert.Empty(t, store.codes)
		})
	}
}

func TestResolve_EmptyCode(t *testing.T) {
	e := newTestExchange(newMemCodeStore())
	_, err := e.Resolve(context.Background(), "   ", "a@example.com")
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestResolve_DeleteFailureIsReturned(t *testing.T) {
	store := newMemCodeStore()
	store.codes["K7PQ2M"] = domain.VerificationCode{Code: "K7PQ2M", Email: "a@example.com", OOBCode: "long-oob", ExpiresAt: fixedNow.Add(time.Minute).Unix()}
	store.deleteErr = errors.New("network")
	e := newTestExchange(store)

	_, err := e.Resolve(context.Background(), "K7PQ2M", "a@example.com")
	require.Error(t, err)
	assert.Contains(t, store.codes, "K7PQ2M")
}
