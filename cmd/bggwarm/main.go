// Command bggwarm fills the game cache ahead of traffic. BGG ids come from the arguments or,
// when none are given, one per line on stdin.
package main

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"log"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"sync/atomic"
	"syscall"

	"github.com/go-bgg-gateway/internal/application/game"
	"github.com/go-bgg-gateway/internal/config"
	"github.com/go-bgg-gateway/internal/infrastructure/bgg"
	"github.com/go-bgg-gateway/internal/infrastructure/dynamo"
	"github.com/go-bgg-gateway/internal/pkg/logger"
	"github.com/joho/godotenv"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

type gameGetter interface {
	GetGame(ctx context.Context, bggID int) (*game.Result, error)
}

type summary struct {
	Cached  int32
	Fetched int32
	Failed  int32
}

func main() {
	_ = godotenv.Load()
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config: %v", err)
	}
	zl, err := logger.New(cfg.LogLevel, cfg.AppEnv)
	if err != nil {
		log.Fatalf("logger: %v", err)
	}
	defer func() { _ = zl.Sync() }()

	var in io.Reader
	if len(os.Args) == 1 {
		in = os.Stdin
	}
	ids, err := readIDs(os.Args[1:], in)
	if err != nil {
		zl.Fatal("read ids", zap.Error(err))
	}
	if len(ids) == 0 {
		zl.Fatal("no bgg ids given")
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	dynamoClient, err := dynamo.NewClient(ctx, cfg)
	if err != nil {
		zl.Fatal("dynamodb client", zap.Error(err))
	}
	svc, err := game.NewService(game.ServiceDeps{
		Store:   dynamo.NewGameRepo(dynamoClient, cfg.DynamoTables.Games),
		Fetcher: bgg.NewClient(cfg.BGG, zl.Named("bgg")),
		Logger:  zl.Named("game"),
	})
	if err != nil {
		zl.Fatal("game service", zap.Error(err))
	}

	s := warm(ctx, svc, ids, cfg.WarmConcurrency, zl)
	fmt.Printf("warmed %d games: %d already cached, %d fetched from bgg, %d failed\n",
		len(ids), s.Cached, s.Fetched, s.Failed)
	if s.Failed > 0 {
		os.Exit(1)
	}
}

// warm looks up every id with at most concurrency requests in flight. A failed id does not stop the rest.
func warm(ctx context.Context, svc gameGetter, ids []int, concurrency int, zl *zap.Logger) summary {
	if concurrency < 1 {
		concurrency = 1
	}
	var s summary
	var g errgroup.Group
	g.SetLimit(concurrency)
	for _, id := range ids {
		id := id
		g.Go(func() error {
			res, err := svc.GetGame(ctx, id)
			if err != nil {
				atomic.AddInt32(&s.Failed, 1)
				zl.Warn("warm failed", zap.Int("bgg_id", id), zap.Error(err))
				return nil
			}
			if res.Source == game.SourceCache {
				atomic.AddInt32(&s.Cached, 1)
			} else {
				atomic.AddInt32(&s.Fetched, 1)
			}
			return nil
		})
	}
	_ = g.Wait()
	return s
}

// readIDs parses args, or when args is empty, whitespace separated ids from in.
// Duplicates are dropped, keeping first-seen order.
func readIDs(args []string, in io.Reader) ([]int, error) {
	var tokens []string
	if len(args) > 0 {
		tokens = args
	} else if in != nil {
		sc := bufio.NewScanner(in)
		for sc.Scan() {
			tokens = append(tokens, strings.Fields(sc.Text())...)
		}
		if err := sc.Err(); err != nil {
			return nil, fmt.Errorf("read stdin: %w", err)
		}
	}

	seen := make(map[int]bool, len(tokens))
	ids := make([]int, 0, len(tokens))
	for _, tok := range tokens {
		id, err := strconv.Atoi(strings.TrimSpace(tok))
		if err != nil || id <= 0 {
			return nil, fmt.Errorf("invalid bgg id %q", tok)
		}
		if seen[id] {
			continue
		}
		seen[id] = true
		ids = append(ids, id)
	}
	return ids, nil
}
