package game

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/go-bgg-gateway/internal/domain"
	"github.com/go-bgg-gateway/internal/infrastructure/bgg"
	s3infra "github.com/go-bgg-gateway/internal/infrastructure/s3"
	"github.com/go-bgg-gateway/internal/pkg/metrics"
	lru "github.com/hashicorp/golang-lru"
	"go.uber.org/zap"
)

const (
	SourceCache = "cache"
	SourceBGG   = "bgg"
)

// Result is a game together with where it was served from.
type Result struct {
	Source string       `json:"source"`
	Game   *domain.Game `json:"game"`
}

type Service interface {
	// GetGame returns the cached game when fresh, otherwise refetches it from BGG and stores it.
	GetGame(ctx context.Context, bggID int) (*Result, error)
	// Search runs a live BGG board game search. Results are never cached.
	Search(ctx context.Context, query string) ([]domain.SearchResult, error)
}

type gameStore interface {
	Get(ctx context.Context, bggID int) (*domain.Game, error)
	Upsert(ctx context.Context, g *domain.Game) error
}

type fetcher interface {
	FetchXML(ctx context.Context, rawURL string) (*bgg.Document, error)
	ThingURL(id int) string
	SearchURL(query string) string
}

type archiver interface {
	Put(ctx context.Context, key string, body []byte) error
}

// ServiceDeps wires the game service. Archive and CacheSize are optional.
type ServiceDeps struct {
	Store     gameStore
	Fetcher   fetcher
	Archive   archiver
	CacheSize int
	Logger    *zap.Logger
	Now       func() time.Time
}

type service struct {
	store   gameStore
	fetcher fetcher
	archive archiver
	cache   *lru.Cache
	logger  *zap.Logger
	now     func() time.Time
}

func NewService(deps ServiceDeps) (Service, error) {
	s := &service{
		store:   deps.Store,
		fetcher: deps.Fetcher,
		archive: deps.Archive,
		logger:  deps.Logger,
		now:     deps.Now,
	}
	if s.logger == nil {
		s.logger = zap.NewNop()
	}
	if s.now == nil {
		s.now = time.Now
	}
	if deps.CacheSize > 0 {
		cache, err := lru.New(deps.CacheSize)
		if err != nil {
			return nil, fmt.Errorf("create game cache: %w", err)
		}
		s.cache = cache
	}
	return s, nil
}

func (s *service) GetGame(ctx context.Context, bggID int) (*Result, error) {
	if bggID <= 0 {
		return nil, fmt.Errorf("invalid bgg id %d: %w", bggID, domain.ErrBadRequest)
	}
	now := s.now()

	if g, ok := s.cached(bggID, now); ok {
		metrics.GameLookupsTotal.WithLabelValues(SourceCache).Inc()
		return &Result{Source: SourceCache, Game: g}, nil
	}

	stored, err := s.store.Get(ctx, bggID)
	switch {
	case err == nil && stored.IsFresh(now):
		s.remember(stored)
		metrics.GameLookupsTotal.WithLabelValues(SourceCache).Inc()
		return &Result{Source: SourceCache, Game: stored}, nil
	case err != nil && !errors.Is(err, domain.ErrNotFound):
		return nil, fmt.Errorf("read cached game %d: %w", bggID, err)
	}

	doc, err := s.fetcher.FetchXML(ctx, s.fetcher.ThingURL(bggID))
	if err != nil {
		return nil, fmt.Errorf("fetch bgg thing %d: %w", bggID, err)
	}
	item := doc.Root.First("item")
	if item == nil {
		return nil, fmt.Errorf("bgg thing %d: %w", bggID, domain.ErrNotFound)
	}

	g := bgg.MapThing(item, now)
	g.BggID = bggID
	if err := s.store.Upsert(ctx, &g); err != nil {
		return nil, fmt.Errorf("store game %d: %w", bggID, err)
	}
	s.remember(&g)
	s.archiveRaw(ctx, bggID, now, doc.Raw)

	metrics.GameLookupsTotal.WithLabelValues(SourceBGG).Inc()
	return &Result{Source: SourceBGG, Game: &g}, nil
}

func (s *service) Search(ctx context.Context, query string) ([]domain.SearchResult, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return nil, fmt.Errorf("query is required: %w", domain.ErrBadRequest)
	}
	doc, err := s.fetcher.FetchXML(ctx, s.fetcher.SearchURL(query))
	if err != nil {
		return nil, fmt.Errorf("bgg search: %w", err)
	}
	return bgg.ParseSearch(doc), nil
}

// cached returns a copy of a fresh in-process entry. Stale entries are evicted.
func (s *service) cached(bggID int, now time.Time) (*domain.Game, bool) {
	if s.cache == nil {
		return nil, false
	}
	v, ok := s.cache.Get(bggID)
	if !ok {
		return nil, false
	}
	g := v.(domain.Game)
	if !g.IsFresh(now) {
		s.cache.Remove(bggID)
		return nil, false
	}
	return &g, true
}

func (s *service) remember(g *domain.Game) {
	if s.cache != nil {
		s.cache.Add(g.BggID, *g)
	}
}

func (s *service) archiveRaw(ctx context.Context, bggID int, fetchedAt time.Time, raw []byte) {
	if s.archive == nil || len(raw) == 0 {
		return
	}
	if err := s.archive.Put(ctx, s3infra.ThingKey(bggID, fetchedAt), raw); err != nil {
		s.logger.Warn("archive bgg payload failed", zap.Int("bgg_id", bggID), zap.Error(err))
	}
}
