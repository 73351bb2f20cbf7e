package game

import (
	"context"
	"errors"
	"strconv"
	"testing"
	"time"

	"github.com/go-bgg-gateway/internal/domain"
	"github.com/go-bgg-gateway/internal/infrastructure/bgg"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

const thingXML = `<items>
	<item type="boardgame" id="13">
		<image>https://cf.geekdo-images.com/catan.jpg</image>
		<name type="primary" value="CATAN" />
		<description>Trade &amp;amp; build.</description>
		<minplayers value="3" />
		<maxplayers value="4" />
		<minplaytime value="60" />
		<maxplaytime value="120" />
		<link type="boardgamecategory" value="Negotiation" />
		<statistics><ratings>
			<ranks><rank name="boardgame" value="555" /></ranks>
			<averageweight value="2.29" />
		</ratings></statistics>
	</item>
</items>`

const searchXML = `<items total="2">
	<item type="boardgame" id="13"><name type="primary" value="CATAN" /><yearpublished value="1995" /></item>
	<item type="boardgame" id="278"><name type="primary" value="Catan Card Game" /></item>
</items>`

// --- fakes ---

type memStore struct {
	games  map[int]domain.Game
	getErr error
	puts   int
}

func newMemStore() *memStore { return &memStore{games: map[int]domain.Game{}} }

func (m *memStore) Get(_ context.Context, bggID int) (*domain.Game, error) {
	if m.getErr != nil {
		return nil, m.getErr
	}
	g, ok := m.games[bggID]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return &g, nil
}

func (m *memStore) Upsert(_ context.Context, g *domain.Game) error {
	m.puts++
	m.games[g.BggID] = *g
	return nil
}

type fakeFetcher struct {
	body  string
	err   error
	calls []string
}

func (f *fakeFetcher) FetchXML(_ context.Context, rawURL string) (*bgg.Document, error) {
	f.calls = append(f.calls, rawURL)
	if f.err != nil {
		return nil, f.err
	}
	return bgg.Parse([]byte(f.body))
}

func (f *fakeFetcher) ThingURL(id int) string {
	return "thing:" + strconv.Itoa(id)
}

func (f *fakeFetcher) SearchURL(query string) string { return "search:" + query }

type mockArchive struct{ mock.Mock }

func (m *mockArchive) Put(ctx context.Context, key string, body []byte) error {
	return m.Called(ctx, key, body).Error(0)
}

// --- helpers ---

var now = time.Unix(1_760_000_000, 0)

func newSvc(t *testing.T, store *memStore, f *fakeFetcher, cacheSize int) Service {
	t.Helper()
	svc, err := NewService(ServiceDeps{
		Store:     store,
		Fetcher:   f,
		CacheSize: cacheSize,
		Now:       func() time.Time { return now },
	})
	require.NoError(t, err)
	return svc
}

func ttlSeconds() int64 { return int64(domain.GameCacheTTL / time.Second) }

// --- tests ---

func TestGetGame_MissFetchesAndStores(t *testing.T) {
	store := newMemStore()
	f := &fakeFetcher{body: thingXML}
	svc := newSvc(t, store, f, 0)

	res, err := svc.GetGame(context.Background(), 13)
	require.NoError(t, err)
	assert.Equal(t, SourceBGG, res.Source)
	assert.Equal(t, "CATAN", res.Game.Name)
	assert.Equal(t, domain.DifficultyMedium, res.Game.Difficulty)
	assert.Equal(t, now.Unix(), res.Game.LastFetchedAt)
	assert.Len(t, f.calls, 1)
	assert.Equal(t, 1, store.puts)
	assert.Equal(t, *res.Game, store.games[13])
}

func TestGetGame_SecondCallServedFromCache(t *testing.T) {
	for _, size := range []int{0, 16} {
		store := newMemStore()
		f := &fakeFetcher{body: thingXML}
		svc := newSvc(t, store, f, size)

		first, err := svc.GetGame(context.Background(), 13)
		require.NoError(t, err)
		second, err := svc.GetGame(context.Background(), 13)
		require.NoError(t, err)

		assert.Equal(t, SourceCache, second.Source, "cache size %d", size)
		assert.Equal(t, first.Game, second.Game, "cache size %d", size)
		assert.Len(t, f.calls, 1, "cache size %d", size)
		assert.Equal(t, 1, store.puts, "cache size %d", size)
	}
}

func TestGetGame_TTLBoundary(t *testing.T) {
	tests := []struct {
		name          string
		lastFetchedAt int64
		wantSource    string
	}{
		{"stale one second past ttl", now.Unix() - ttlSeconds() - 1, SourceBGG},
		{"stale exactly at ttl", now.Unix() - ttlSeconds(), SourceBGG},
		{"fresh one second before ttl", now.Unix() - ttlSeconds() + 1, SourceCache},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store := newMemStore()
			store.games[13] = domain.Game{BggID: 13, Name: "old", LastFetchedAt: tt.lastFetchedAt}
			f := &fakeFetcher{body: thingXML}
			svc := newSvc(t, store, f, 0)

			res, err := svc.GetGame(context.Background(), 13)
			require.NoError(t, err)
			assert.Equal(t, tt.wantSource, res.Source)
			if tt.wantSource == SourceBGG {
				assert.Equal(t, "CATAN", store.games[13].Name)
				assert.Equal(t, now.Unix(), store.games[13].LastFetchedAt)
			} else {
				assert.Empty(t, f.calls)
				assert.Equal(t, "old", res.Game.Name)
			}
		})
	}
}

func TestGetGame_StaleLRUEntryIsRefetched(t *testing.T) {
	store := newMemStore()
	f := &fakeFetcher{body: thingXML}
	current := now
	svc, err := NewService(ServiceDeps{Store: store, Fetcher: f, CacheSize: 4, Now: func() time.Time { return current }})
	require.NoError(t, err)

	_, err = svc.GetGame(context.Background(), 13)
	require.NoError(t, err)

	current = now.Add(domain.GameCacheTTL)
	res, err := svc.GetGame(context.Background(), 13)
	require.NoError(t, err)
	assert.Equal(t, SourceBGG, res.Source)
	assert.Len(t, f.calls, 2)
}

func TestGetGame_NoItemIsNotFound(t *testing.T) {
	store := newMemStore()
	svc := newSvc(t, store, &fakeFetcher{body: `<items termsofuse="x"></items>`}, 0)

	_, err := svc.GetGame(context.Background(), 99999999)
	assert.ErrorIs(t, err, domain.ErrNotFound)
	assert.Zero(t, store.puts)
}

func TestGetGame_InvalidID(t *testing.T) {
	svc := newSvc(t, newMemStore(), &fakeFetcher{}, 0)
	_, err := svc.GetGame(context.Background(), 0)
	assert.ErrorIs(t, err, domain.ErrBadRequest)
}

func TestGetGame_StoreErrorIsReturned(t *testing.T) {
	store := newMemStore()
	store.getErr = errors.New("throttled")
	f := &fakeFetcher{body: thingXML}
	svc := newSvc(t, store, f, 0)

	_, err := svc.GetGame(context.Background(), 13)
	require.Error(t, err)
	assert.Empty(t, f.calls)
}

func TestGetGame_UpstreamTimeoutPropagates(t *testing.T) {
	f := &fakeFetcher{err: errors.Join(errors.New("BGG queue timeout: please try again later"), domain.ErrUpstreamTimeout)}
	svc := newSvc(t, newMemStore(), f, 0)

	_, err := svc.GetGame(context.Background(), 13)
	assert.ErrorIs(t, err, domain.ErrUpstreamTimeout)
}

func TestGetGame_ArchivesRawPayloadBestEffort(t *testing.T) {
	archive := &mockArchive{}
	archive.On("Put", mock.Anything, "bgg/thing/13/1760000000.xml", []byte(thingXML)).Return(errors.New("bucket missing"))

	svc, err := NewService(ServiceDeps{
		Store:   newMemStore(),
		Fetcher: &fakeFetcher{body: thingXML},
		Archive: archive,
		Now:     func() time.Time { return now },
	})
	require.NoError(t, err)

	res, err := svc.GetGame(context.Background(), 13)
	require.NoError(t, err)
	assert.Equal(t, SourceBGG, res.Source)
	archive.AssertExpectations(t)
}

func TestSearch(t *testing.T) {
	f := &fakeFetcher{body: searchXML}
	svc := newSvc(t, newMemStore(), f, 0)

	results, err := svc.Search(context.Background(), "  catan ")
	require.NoError(t, err)
	assert.Equal(t, []string{"search:catan"}, f.calls)
	require.Len(t, results, 2)
	assert.Equal(t, 13, results[0].ID)
	require.NotNil(t, results[0].Year)
	assert.Equal(t, 1995, *results[0].Year)
	assert.Nil(t, results[1].Year)
}

func TestSearch_EmptyQuery(t *testing.T) {
	f := &fakeFetcher{}
	svc := newSvc(t, newMemStore(), f, 0)

	for _, q := range []string{"", "   ", "\t\n"} {
		_, err := svc.Search(context.Background(), q)
		assert.ErrorIs(t, err, domain.ErrBadRequest)
	}
	assert.Empty(t, f.calls)
}
