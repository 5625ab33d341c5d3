/*
scheduler.go - Background snapshot refresh

PURPOSE:
  Periodically fetches every dataset through the configured source so the
  snapshot table always holds a recent payload, then prunes old snapshots.
  An export that runs while the records service is down is then served
  from a snapshot that is at most one interval old.

DESIGN:
  - Runs a background goroutine with configurable check interval
  - Runs once immediately on Start
  - Fetch failures are logged; pruning still runs

USAGE:
  scheduler := NewSnapshotScheduler(src, store, log)
  scheduler.Start()
  // ... later
  scheduler.Stop()

SEE ALSO:
  - source/snapshot.go: SnapshotSource saves the payloads
*/
package api

import (
	"context"
	"sync"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/warp/attendance-export/source"
)

// SnapshotPruner deletes old snapshots. Implemented by sqlite.Store.
type SnapshotPruner interface {
	PruneSnapshots(ctx context.Context, kind string, keep int) (int64, error)
}

// SnapshotScheduler refreshes dataset snapshots in the background.
type SnapshotScheduler struct {
	Source        source.Source
	Store         SnapshotPruner
	CheckInterval time.Duration
	Keep          int
	FetchTimeout  time.Duration
	Enabled       bool

	log    logrus.FieldLogger
	ticker *time.Ticker
	stop   chan struct{}
	wg     sync.WaitGroup
	mu     sync.Mutex
}

// NewSnapshotScheduler creates a new scheduler.
func NewSnapshotScheduler(src source.Source, store SnapshotPruner, log logrus.FieldLogger) *SnapshotScheduler {
	if log == nil {
		log = logrus.StandardLogger()
	}
	return &SnapshotScheduler{
		Source:        src,
		Store:         store,
		CheckInterval: 1 * time.Hour,
		Keep:          10,
		FetchTimeout:  time.Minute,
		Enabled:       true,
		log:           log.WithField("component", "snapshot-scheduler"),
	}
}

// Start begins the scheduler.
func (s *SnapshotScheduler) Start() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.Enabled {
		s.log.Info("disabled, not starting")
		return
	}
	if s.ticker != nil {
		return
	}

	s.ticker = time.NewTicker(s.CheckInterval)
	s.stop = make(chan struct{})
	s.wg.Add(1)

	go s.run(s.ticker, s.stop)

	s.log.WithField("interval", s.CheckInterval).Info("started")
}

// Stop stops the scheduler and waits for a running refresh to finish.
func (s *SnapshotScheduler) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.ticker != nil {
		s.ticker.Stop()
		close(s.stop)
		s.wg.Wait()
		s.ticker = nil
		s.log.Info("stopped")
	}
}

func (s *SnapshotScheduler) run(ticker *time.Ticker, stop <-chan struct{}) {
	defer s.wg.Done()

	s.Refresh(context.Background())

	for {
		select {
		case <-ticker.C:
			s.Refresh(context.Background())
		case <-stop:
			return
		}
	}
}

// Refresh fetches every dataset once and prunes old snapshots. It returns
// the number of datasets fetched.
func (s *SnapshotScheduler) Refresh(ctx context.Context) int {
	fetched := 0
	for _, kind := range source.AllKinds {
		log := s.log.WithField("kind", kind)

		fctx, cancel := context.WithTimeout(ctx, s.FetchTimeout)
		p, err := s.Source.Fetch(fctx, kind)
		cancel()
		if err != nil {
			log.WithError(err).Warn("refresh failed")
		} else {
			fetched++
			log.WithFields(logrus.Fields{"origin": p.Origin, "records": len(p.Records)}).Debug("refreshed")
		}

		pruned, err := s.Store.PruneSnapshots(ctx, string(kind), s.Keep)
		if err != nil {
			log.WithError(err).Warn("prune failed")
			continue
		}
		if pruned > 0 {
			log.WithField("pruned", pruned).Info("pruned snapshots")
		}
	}
	return fetched
}
