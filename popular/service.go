// Package popular keeps a periodically refreshed list of the most active authors.
package popular

import (
	"context"
	"sync"
	"time"

	"github.com/user/tvitter-go/config"
	"github.com/user/tvitter-go/logging"
	"github.com/user/tvitter-go/messages"
)

// refreshTimeout bounds a single refresh query.
const refreshTimeout = 10 * time.Second

// AuthorSource loads the authors with the most tvits.
type AuthorSource interface {
	TopAuthors(ctx context.Context, n int) ([]messages.AuthorStats, error)
}

// Service refreshes the popular-authors snapshot in the background.
type Service struct {
	source   AuthorSource
	interval time.Duration
	limit    int
	log      logging.Logger
	now      func() time.Time

	mu          sync.RWMutex
	snapshot    []messages.AuthorStats
	refreshedAt time.Time

	wg sync.WaitGroup
}

func NewService(source AuthorSource, cfg *config.PopularConfig, log logging.Logger) *Service {
	return &Service{
		source:   source,
		interval: cfg.RefreshInterval,
		limit:    cfg.Limit,
		log:      log,
		now:      time.Now,
		snapshot: []messages.AuthorStats{},
	}
}

// Start refreshes once and then on every interval until stopChan is closed.
// Call Wait after closing stopChan to let the refresher finish.
func (s *Service) Start(stopChan <-chan struct{}) {
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		s.log.Info(context.Background(), "popular authors service started", "interval", s.interval.String(), "limit", s.limit)
		defer s.log.Info(context.Background(), "popular authors service stopped")

		ctx, cancel := context.WithCancel(context.Background())
		defer cancel()
		go func() {
			select {
			case <-stopChan:
				cancel()
			case <-ctx.Done():
			}
		}()

		s.refreshLogged(ctx)

		ticker := time.NewTicker(s.interval)
		defer ticker.Stop()
		for {
			select {
			case <-stopChan:
				return
			case <-ticker.C:
				s.refreshLogged(ctx)
			}
		}
	}()
}

// Wait blocks until the refresher goroutine has exited.
func (s *Service) Wait() {
	s.wg.Wait()
}

// Refresh reloads the snapshot now. On failure the previous snapshot is kept.
func (s *Service) Refresh(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, refreshTimeout)
	defer cancel()

	authors, err := s.source.TopAuthors(ctx, s.limit)
	if err != nil {
		return err
	}

	s.mu.Lock()
	s.snapshot = authors
	s.refreshedAt = s.now()
	s.mu.Unlock()
	return nil
}

func (s *Service) refreshLogged(ctx context.Context) {
	if err := s.Refresh(ctx); err != nil {
		if ctx.Err() != nil {
			return
		}
		s.log.Warn(ctx, "cannot refresh popular authors", "error", err)
	}
}

// Snapshot returns a copy of the latest list of popular authors.
func (s *Service) Snapshot() []messages.AuthorStats {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]messages.AuthorStats, len(s.snapshot))
	copy(out, s.snapshot)
	return out
}

// RefreshedAt reports when the snapshot was last loaded, or zero if never.
func (s *Service) RefreshedAt() time.Time {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.refreshedAt
}
