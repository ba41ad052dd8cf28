package logic

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/courtvision/prediction-api/internal/models"
)

// Sync kinds accepted by SyncService.Trigger.
const (
	SyncPlayers     = "players"
	SyncTournaments = "tournaments"
	SyncMatches     = "matches"
	SyncNews        = "news"
)

// SyncStore is the persistence the feed sync writes to.
type SyncStore interface {
	UpsertPlayer(ctx context.Context, p *models.Player) error
	UpsertTournament(ctx context.Context, t *models.Tournament) error
	UpsertMatch(ctx context.Context, m *models.Match) error
	InsertNews(ctx context.Context, a *models.NewsArticle) error
}

// SyncService pulls reference data from an external JSON feed. Each trigger
// runs in the background and reports only through logs.
type SyncService struct {
	store   SyncStore
	baseURL string
	client  *http.Client
	timeout time.Duration
	logger  *zap.SugaredLogger

	mu      sync.Mutex
	running map[string]bool
	wg      sync.WaitGroup
}

func NewSyncService(store SyncStore, baseURL string, timeout time.Duration, logger *zap.Logger) *SyncService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &SyncService{
		store:   store,
		baseURL: strings.TrimRight(baseURL, "/"),
		client:  &http.Client{Timeout: timeout},
		timeout: timeout,
		logger:  logger.Sugar(),
		running: make(map[string]bool),
	}
}

// Trigger starts a background pull of one kind. A pull of the same kind that
// is still running is not started twice.
func (s *SyncService) Trigger(kind string) (string, error) {
	switch kind {
	case SyncPlayers, SyncTournaments, SyncMatches, SyncNews:
	default:
		return "", fmt.Errorf("unknown sync kind %q: %w", kind, ErrInvalidInput)
	}
	if s.baseURL == "" {
		return "", fmt.Errorf("data feed is not configured: %w", ErrInvalidInput)
	}

	s.mu.Lock()
	if s.running[kind] {
		s.mu.Unlock()
		return fmt.Sprintf("%s sync already running", kind), nil
	}
	s.running[kind] = true
	s.mu.Unlock()

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		defer func() {
			s.mu.Lock()
			delete(s.running, kind)
			s.mu.Unlock()
		}()

		ctx, cancel := context.WithTimeout(context.Background(), s.timeout)
		defer cancel()
		n, err := s.Run(ctx, kind)
		if err != nil {
			s.logger.Errorw("Sync failed", "kind", kind, "stored", n, "error", err)
			return
		}
		s.logger.Infow("Sync completed", "kind", kind, "stored", n)
	}()
	return fmt.Sprintf("%s sync started", kind), nil
}

// Wait blocks until all triggered pulls have finished.
func (s *SyncService) Wait() {
	s.wg.Wait()
}

// Run pulls one kind synchronously and returns how many rows were stored.
func (s *SyncService) Run(ctx context.Context, kind string) (int, error) {
	switch kind {
	case SyncPlayers:
		var items []models.Player
		return syncEach(ctx, s, kind, &items, func(i int) error { return s.store.UpsertPlayer(ctx, &items[i]) })
	case SyncTournaments:
		var items []models.Tournament
		return syncEach(ctx, s, kind, &items, func(i int) error { return s.store.UpsertTournament(ctx, &items[i]) })
	case SyncMatches:
		var items []models.Match
		return syncEach(ctx, s, kind, &items, func(i int) error { return s.store.UpsertMatch(ctx, &items[i]) })
	case SyncNews:
		var items []models.NewsArticle
		return syncEach(ctx, s, kind, &items, func(i int) error { return s.store.InsertNews(ctx, &items[i]) })
	}
	return 0, fmt.Errorf("unknown sync kind %q: %w", kind, ErrInvalidInput)
}

func syncEach[T any](ctx context.Context, s *SyncService, kind string, items *[]T, store func(i int) error) (int, error) {
	if err := s.fetch(ctx, kind, items); err != nil {
		return 0, err
	}
	stored := 0
	for i := range *items {
		if err := store(i); err != nil {
			s.logger.Warnw("Failed to store synced row", "kind", kind, "index", i, "error", err)
			continue
		}
		stored++
	}
	return stored, nil
}

func (s *SyncService) fetch(ctx context.Context, kind string, out interface{}) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.baseURL+"/"+kind, nil)
	if err != nil {
		return fmt.Errorf("failed to create feed request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := s.client.Do(req)
	if err != nil {
		return fmt.Errorf("feed request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("feed returned status %d for %s", resp.StatusCode, kind)
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("failed to decode %s feed: %w", kind, err)
	}
	return nil
}
