package api

import (
	"context"
	"testing"
	"time"

	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/warp/attendance-export/source"
	"github.com/warp/attendance-export/store/sqlite"
)

func TestSnapshotScheduler_RefreshSavesAndPrunes(t *testing.T) {
	// GIVEN: a snapshot-backed source over the fixtures
	store, err := sqlite.New(":memory:")
	require.NoError(t, err)
	defer store.Close()

	log, _ := test.NewNullLogger()
	src := &source.SnapshotSource{Inner: &source.FixtureSource{Dir: fixtureDir}, Store: store, Log: log}
	sched := NewSnapshotScheduler(src, store, log)
	sched.Keep = 2

	// WHEN: it refreshes three times
	ctx := context.Background()
	for i := 0; i < 3; i++ {
		assert.Equal(t, len(source.AllKinds), sched.Refresh(ctx))
	}

	// THEN: only Keep snapshots per dataset remain
	for _, kind := range source.AllKinds {
		raw, _, err := store.LatestSnapshot(ctx, string(kind))
		require.NoError(t, err)
		assert.NotEmpty(t, raw)

		pruned, err := store.PruneSnapshots(ctx, string(kind), 2)
		require.NoError(t, err)
		assert.Zero(t, pruned, kind)
	}
}

func TestSnapshotScheduler_RefreshFailure(t *testing.T) {
	store, err := sqlite.New(":memory:")
	require.NoError(t, err)
	defer store.Close()

	log, hook := test.NewNullLogger()
	sched := NewSnapshotScheduler(failingSource{}, store, log)

	assert.Zero(t, sched.Refresh(context.Background()))
	assert.Equal(t, "refresh failed", hook.LastEntry().Message)
}

func TestSnapshotScheduler_StartStop(t *testing.T) {
	store, err := sqlite.New(":memory:")
	require.NoError(t, err)
	defer store.Close()

	log, _ := test.NewNullLogger()
	sched := NewSnapshotScheduler(&source.FixtureSource{Dir: fixtureDir}, store, log)
	sched.CheckInterval = time.Hour

	sched.Start()
	sched.Start()
	sched.Stop()
	sched.Stop()

	sched.Enabled = false
	sched.Start()
	assert.Nil(t, sched.ticker)
}
