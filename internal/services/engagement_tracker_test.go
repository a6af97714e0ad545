package services

import (
	"context"
	"strings"
	"sync"
	"testing"

	"github.com/ahmetcoskunkizilkaya/campus-stories/internal/metrics"
	"github.com/ahmetcoskunkizilkaya/campus-stories/internal/models"
	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRecordViewIsIdempotentPerIdentity(t *testing.T) {
	f := newFixture()
	story := f.submit(t, "Idempotent views")
	ctx := context.Background()
	viewer := session("viewer-session-0001")

	first, err := f.tracker.RecordView(ctx, story.ID, viewer)
	require.NoError(t, err)
	assert.True(t, first.Recorded)

	for i := 0; i < 4; i++ {
		again, err := f.tracker.RecordView(ctx, story.ID, viewer)
		require.NoError(t, err)
		assert.False(t, again.Recorded)
	}

	assert.Equal(t, int64(1), f.reload(t, story.ID).ViewCount)
}

func TestRecordViewWithoutSessionFallsBackToAddress(t *testing.T) {
	f := newFixture()
	story := f.submit(t, "Tokenless viewer")
	ctx := context.Background()
	resolver, _ := newTestResolver(false)

	for i := 0; i < 5; i++ {
		who := resolver.Resolve(ctx, ResolveInput{RemoteAddr: "192.0.2.55:4242"})
		require.True(t, who.SessionMinted)

		kind, key := who.ProxyKey()
		assert.Equal(t, models.IdentityAddress, kind)
		assert.Equal(t, "192.0.2.55", key)

		res, err := f.tracker.RecordView(ctx, story.ID, who)
		require.NoError(t, err)
		assert.Equal(t, i == 0, res.Recorded)

		_, err = f.tracker.RecordReport(ctx, story.ID, who, "spam")
		require.NoError(t, err)
	}

	got := f.reload(t, story.ID)
	assert.Equal(t, int64(1), got.ViewCount)
	assert.Equal(t, int64(1), got.ReportCount)

	other := resolver.Resolve(ctx, ResolveInput{RemoteAddr: "192.0.2.56:4242"})
	res, err := f.tracker.RecordView(ctx, story.ID, other)
	require.NoError(t, err)
	assert.True(t, res.Recorded)
}

func TestRecordViewDistinctIdentities(t *testing.T) {
	f := newFixture()
	story := f.submit(t, "Distinct viewers")
	ctx := context.Background()
	account := uuid.New()

	identities := []Identity{
		session("viewer-session-0001"),
		session("viewer-session-0002"),
		{Tier: models.TierRegistered, AccountID: &account, SessionToken: "viewer-session-0001"},
		{NetworkAddress: "198.51.100.4"},
	}
	for _, id := range identities {
		res, err := f.tracker.RecordView(ctx, story.ID, id)
		require.NoError(t, err)
		assert.True(t, res.Recorded)
	}

	assert.Equal(t, int64(4), f.reload(t, story.ID).ViewCount)
}

func TestRecordViewConcurrentSameIdentity(t *testing.T) {
	f := newFixture()
	story := f.submit(t, "Racing views")
	viewer := session("viewer-session-0001")

	var wg sync.WaitGroup
	var mu sync.Mutex
	recorded := 0
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			res, err := f.tracker.RecordView(context.Background(), story.ID, viewer)
			if assert.NoError(t, err) && res.Recorded {
				mu.Lock()
				recorded++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, 1, recorded)
	assert.Equal(t, int64(1), f.reload(t, story.ID).ViewCount)
}

func TestRecordViewUnknownStory(t *testing.T) {
	f := newFixture()
	_, err := f.tracker.RecordView(context.Background(), uuid.New(), session("viewer-session-0001"))
	assert.ErrorIs(t, err, ErrStoryNotFound)
}

func TestToggleLikeIsItsOwnInverse(t *testing.T) {
	f := newFixture()
	story := f.submit(t, "Toggle likes")
	ctx := context.Background()
	fan := session("fan-session-000001")

	other, err := f.tracker.ToggleLike(ctx, story.ID, session("fan-session-000002"))
	require.NoError(t, err)
	require.True(t, other.Liked)
	before := f.reload(t, story.ID).LikeCount

	on, err := f.tracker.ToggleLike(ctx, story.ID, fan)
	require.NoError(t, err)
	assert.True(t, on.Liked)
	assert.Equal(t, before+1, on.LikeCount)

	off, err := f.tracker.ToggleLike(ctx, story.ID, fan)
	require.NoError(t, err)
	assert.False(t, off.Liked)
	assert.Equal(t, before, off.LikeCount)

	again, err := f.tracker.ToggleLike(ctx, story.ID, fan)
	require.NoError(t, err)
	assert.True(t, again.Liked, "an unliked identity can like again")
	assert.Equal(t, before+1, again.LikeCount)
}

func TestRecordReportRequiresReason(t *testing.T) {
	f := newFixture()
	story := f.submit(t, "Reported story")
	ctx := context.Background()
	reporter := session("reporter-session-01")

	for _, reason := range []string{"", "   "} {
		_, err := f.tracker.RecordReport(ctx, story.ID, reporter, reason)
		var verr *ValidationError
		require.ErrorAs(t, err, &verr)
		assert.Equal(t, "reason", verr.Field)
	}

	_, err := f.tracker.RecordReport(ctx, story.ID, reporter, strings.Repeat("x", ReportReasonMaxLen+1))
	assert.Error(t, err)
	assert.Equal(t, int64(0), f.reload(t, story.ID).ReportCount)
}

func TestRecordReportOncePerIdentity(t *testing.T) {
	f := newFixture()
	story := f.submit(t, "Reported story")
	ctx := context.Background()
	reporter := session("reporter-session-01")

	first, err := f.tracker.RecordReport(ctx, story.ID, reporter, "spam")
	require.NoError(t, err)
	assert.True(t, first.Recorded)
	assert.Equal(t, int64(1), first.ReportCount)

	dup, err := f.tracker.RecordReport(ctx, story.ID, reporter, "still spam")
	require.NoError(t, err)
	assert.False(t, dup.Recorded)
	assert.Equal(t, int64(1), dup.ReportCount)

	reported, _, err := f.queue.ListReported(ctx, Page{})
	require.NoError(t, err)
	require.Len(t, reported, 1)
	require.Len(t, reported[0].Reports, 1)
	assert.Equal(t, "spam", reported[0].Reports[0].Reason)
}

func TestCounterDriftDoesNotFailRequest(t *testing.T) {
	f := newFixture()
	story := f.submit(t, "Drifting counters")
	ctx := context.Background()

	broken := NewEngagementTracker(f.repo, NewStoryStore(brokenCounters{f.repo}))
	driftBefore := testutil.ToFloat64(metrics.CounterDrift.WithLabelValues("view"))

	res, err := broken.RecordView(ctx, story.ID, session("viewer-session-0001"))
	require.NoError(t, err)
	assert.True(t, res.Recorded)

	assert.Equal(t, driftBefore+1, testutil.ToFloat64(metrics.CounterDrift.WithLabelValues("view")))
	assert.Equal(t, int64(0), f.reload(t, story.ID).ViewCount, "counter lags the event")

	// The event is still the source of truth for dedup.
	res, err = f.tracker.RecordView(ctx, story.ID, session("viewer-session-0001"))
	require.NoError(t, err)
	assert.False(t, res.Recorded)
}

func TestEngagementMetrics(t *testing.T) {
	f := newFixture()
	story := f.submit(t, "Metered story")
	ctx := context.Background()

	recorded := testutil.ToFloat64(metrics.EngagementEvents.WithLabelValues("like", metrics.ResultRecorded))
	removed := testutil.ToFloat64(metrics.EngagementEvents.WithLabelValues("like", metrics.ResultRemoved))

	fan := session("fan-session-000001")
	_, err := f.tracker.ToggleLike(ctx, story.ID, fan)
	require.NoError(t, err)
	_, err = f.tracker.ToggleLike(ctx, story.ID, fan)
	require.NoError(t, err)

	assert.Equal(t, recorded+1, testutil.ToFloat64(metrics.EngagementEvents.WithLabelValues("like", metrics.ResultRecorded)))
	assert.Equal(t, removed+1, testutil.ToFloat64(metrics.EngagementEvents.WithLabelValues("like", metrics.ResultRemoved)))
}
