package workshop

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kuiporro/pgf-fleet-workshop/internal/domain"
)

func newCachedTimelineRig(t *testing.T) (*timelineRig, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	rig := newTimelineRig()
	rig.aggregator = NewTimelineAggregator(TimelineDependencies{
		WorkOrderRepo:   rig.orders,
		StatusEventRepo: rig.statuses,
		PauseRepo:       rig.pauses,
		CommentRepo:     rig.comments,
		EvidenceRepo:    rig.evidence,
		Cache:           client,
		CacheTTL:        time.Minute,
		SourceTimeout:   time.Second,
	})
	return rig, mr
}

func TestBuildCachesCompleteResult(t *testing.T) {
	rig, mr := newCachedTimelineRig(t)
	ctx := context.Background()
	order := rig.openInExecution(t)

	first, err := rig.aggregator.Build(ctx, order.ID)
	require.NoError(t, err)
	require.False(t, first.Partial)
	assert.True(t, mr.Exists("timeline:"+order.ID))

	// A write that bypasses the engine stays invisible until the entry
	// expires.
	rig.comments.comments = append(rig.comments.comments, domain.CommentRecord{
		ID:           "com-1",
		WorkOrderRef: order.ID,
		Actor:        mechanic,
		Body:         "falta el filtro",
		OccurredAt:   rig.clock.Now(),
	})
	cached, err := rig.aggregator.Build(ctx, order.ID)
	require.NoError(t, err)
	assert.Len(t, cached.Entries, len(first.Entries))

	mr.FastForward(2 * time.Minute)
	fresh, err := rig.aggregator.Build(ctx, order.ID)
	require.NoError(t, err)
	assert.Len(t, fresh.Entries, len(first.Entries)+1)
}

func TestPartialResultNeverCached(t *testing.T) {
	rig, mr := newCachedTimelineRig(t)
	ctx := context.Background()
	order := rig.openInExecution(t)

	rig.comments.fail = errSourceDown
	degraded, err := rig.aggregator.Build(ctx, order.ID)
	require.NoError(t, err)
	require.True(t, degraded.Partial)
	assert.False(t, mr.Exists("timeline:"+order.ID), "a degraded timeline must not be cached")

	rig.comments.fail = nil
	recovered, err := rig.aggregator.Build(ctx, order.ID)
	require.NoError(t, err)
	assert.False(t, recovered.Partial)
	assert.True(t, mr.Exists("timeline:"+order.ID))
}

func TestInvalidateCacheDropsEntry(t *testing.T) {
	rig, mr := newCachedTimelineRig(t)
	ctx := context.Background()
	order := rig.openInExecution(t)

	first, err := rig.aggregator.Build(ctx, order.ID)
	require.NoError(t, err)
	require.True(t, mr.Exists("timeline:"+order.ID))

	rig.aggregator.InvalidateCache(ctx, order.ID)
	assert.False(t, mr.Exists("timeline:"+order.ID))

	rig.comments.comments = append(rig.comments.comments, domain.CommentRecord{
		ID:           "com-1",
		WorkOrderRef: order.ID,
		Actor:        mechanic,
		Body:         "presion de llantas revisada",
		OccurredAt:   rig.clock.Now(),
	})
	fresh, err := rig.aggregator.Build(ctx, order.ID)
	require.NoError(t, err)
	assert.Len(t, fresh.Entries, len(first.Entries)+1)
}
