package session

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/verte-zerg/prompter/internal/capture"
	"github.com/verte-zerg/prompter/internal/clock"
	"github.com/verte-zerg/prompter/internal/model"
)

type fakeSource struct {
	mu          sync.Mutex
	openErr     error
	finalizeErr error
	payload     []byte
	opened      int
	released    int
	finalized   int
}

func (s *fakeSource) Open(_ context.Context, _ capture.Constraints) (capture.Stream, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.openErr != nil {
		return nil, s.openErr
	}
	s.opened++
	return &fakeStream{src: s}, nil
}

type fakeStream struct {
	src *fakeSource
}

func (f *fakeStream) Record(onChunk capture.ChunkFunc) (capture.Recording, error) {
	if onChunk != nil && len(f.src.payload) > 0 {
		onChunk(f.src.payload)
	}
	return &fakeRecording{src: f.src}, nil
}

func (f *fakeStream) Release() error {
	f.src.mu.Lock()
	defer f.src.mu.Unlock()
	f.src.released++
	return nil
}

type fakeRecording struct {
	src *fakeSource
}

func (r *fakeRecording) Finalize(context.Context) (*capture.Clip, error) {
	r.src.mu.Lock()
	defer r.src.mu.Unlock()
	r.src.finalized++
	if r.src.finalizeErr != nil {
		return nil, r.src.finalizeErr
	}
	return capture.NewClip(r.src.payload, capture.ClipMIME, capture.ClipExt, time.Unix(0, 0)), nil
}

var tallCue = Cue{
	Geometry: model.Geometry{ContentHeight: 1000, ViewportHeight: 100},
	FontSize: 20,
	Excerpt:  "hello",
}

func newTestController(t *testing.T, cfg Config, opts ...Option) (*Controller, *clock.Fake, *fakeSource) {
	t.Helper()
	clk := clock.NewFake(time.Date(2024, 9, 1, 12, 0, 0, 0, time.UTC))
	src := &fakeSource{payload: []byte("webm-bytes")}
	c := New(cfg, clk, src, opts...)
	t.Cleanup(c.Close)
	return c, clk, src
}

func TestStartIsIdempotent(t *testing.T) {
	c, _, src := newTestController(t, Config{})
	ctx := context.Background()

	require.NoError(t, c.Start(ctx, tallCue))
	first := c.Snapshot()
	require.NoError(t, c.Start(ctx, tallCue))
	second := c.Snapshot()

	assert.Equal(t, first, second)
	assert.Equal(t, StateActive, second.State)
	assert.Equal(t, 0, second.Elapsed)
	assert.False(t, second.NearLimit)
	assert.Equal(t, 0.0, second.Offset)
	assert.Equal(t, 1, src.opened)
}

func TestStopFromEditingIsNoop(t *testing.T) {
	c, _, src := newTestController(t, Config{})
	before := c.Snapshot()

	take, err := c.Stop(context.Background())
	require.NoError(t, err)
	assert.Empty(t, take.ID)
	assert.Equal(t, before, c.Snapshot())
	assert.Equal(t, 0, src.finalized)
}

func TestNearLimitAfterFiftyFiveTicks(t *testing.T) {
	c, clk, _ := newTestController(t, Config{})
	require.NoError(t, c.Start(context.Background(), tallCue))

	clk.Advance(54 * time.Second)
	snap := c.Snapshot()
	assert.Equal(t, 54, snap.Elapsed)
	assert.False(t, snap.NearLimit)

	clk.Advance(time.Second)
	snap = c.Snapshot()
	assert.Equal(t, 55, snap.Elapsed)
	assert.True(t, snap.NearLimit)

	take, err := c.Stop(context.Background())
	require.NoError(t, err)
	assert.True(t, take.NearLimit)
	assert.False(t, c.Snapshot().NearLimit)
}

func TestTickByHand(t *testing.T) {
	c, _, _ := newTestController(t, Config{})
	c.Tick()
	assert.Equal(t, 0, c.Snapshot().Elapsed, "tick while editing")

	require.NoError(t, c.Start(context.Background(), tallCue))
	for i := 0; i < 55; i++ {
		c.Tick()
	}
	assert.True(t, c.Snapshot().NearLimit)
}

func TestLeadInThenScrollThenStop(t *testing.T) {
	c, clk, _ := newTestController(t, Config{})
	c.SetSpeed(5)
	require.NoError(t, c.Start(context.Background(), tallCue))

	clk.Advance(3700 * time.Millisecond)
	snap := c.Snapshot()
	assert.True(t, snap.Scrolling)
	assert.Equal(t, 0.0, snap.Offset)

	clk.Advance(100 * time.Millisecond)
	assert.Equal(t, -5.0, c.Snapshot().Offset)

	_, err := c.Stop(context.Background())
	require.NoError(t, err)

	clk.Advance(10 * time.Second)
	snap = c.Snapshot()
	assert.Equal(t, -5.0, snap.Offset)
	assert.Equal(t, StateEditing, snap.State)
	assert.Equal(t, 0, clk.Pending())
}

func TestNoScrollDuringLeadIn(t *testing.T) {
	c, clk, _ := newTestController(t, Config{Speed: 5})
	require.NoError(t, c.Start(context.Background(), tallCue))

	clk.Advance(3699 * time.Millisecond)
	snap := c.Snapshot()
	assert.False(t, snap.Scrolling)
	assert.Equal(t, 0.0, snap.Offset)
}

func TestSpeedChangeAppliesMidScroll(t *testing.T) {
	c, clk, _ := newTestController(t, Config{Speed: 2})
	require.NoError(t, c.Start(context.Background(), tallCue))
	clk.Advance(3800 * time.Millisecond)
	assert.Equal(t, -2.0, c.Snapshot().Offset)

	assert.Equal(t, 8.0, c.SetSpeed(8))
	clk.Advance(100 * time.Millisecond)
	assert.Equal(t, -10.0, c.Snapshot().Offset)

	assert.Equal(t, 8.5, c.AdjustSpeed(0.5))
	assert.Equal(t, 10.0, c.AdjustSpeed(5))
}

func TestScrollHaltsAtBound(t *testing.T) {
	c, clk, _ := newTestController(t, Config{Speed: 10})
	cue := Cue{Geometry: model.Geometry{ContentHeight: 125, ViewportHeight: 100}}
	require.NoError(t, c.Start(context.Background(), cue))

	clk.Advance(3700*time.Millisecond + 300*time.Millisecond)
	snap := c.Snapshot()
	assert.Equal(t, -25.0, snap.Offset)
	assert.True(t, snap.Halted)
	assert.Equal(t, 1, clk.Pending(), "only the elapsed tick remains")

	clk.Advance(5 * time.Second)
	assert.Equal(t, -25.0, c.Snapshot().Offset)
}

func TestDeviceFailureReturnsToEditing(t *testing.T) {
	c, clk, src := newTestController(t, Config{})
	src.openErr = capture.ErrPermissionDenied

	err := c.Start(context.Background(), tallCue)
	require.Error(t, err)
	assert.ErrorIs(t, err, capture.ErrPermissionDenied)

	snap := c.Snapshot()
	assert.Equal(t, StateEditing, snap.State)
	assert.ErrorIs(t, snap.LastErr, capture.ErrPermissionDenied)
	assert.Equal(t, 0, clk.Pending())

	src.openErr = nil
	require.NoError(t, c.Start(context.Background(), tallCue))
	snap = c.Snapshot()
	assert.Equal(t, StateActive, snap.State)
	assert.NoError(t, snap.LastErr)
}

func TestLimitIsAdvisoryByDefault(t *testing.T) {
	c, clk, _ := newTestController(t, Config{})
	require.NoError(t, c.Start(context.Background(), tallCue))

	clk.Advance(70 * time.Second)
	snap := c.Snapshot()
	assert.Equal(t, StateActive, snap.State)
	assert.Equal(t, 70, snap.Elapsed)
	assert.True(t, snap.LimitReached)
}

func TestEnforcedLimitStopsRecording(t *testing.T) {
	var takes []model.Take
	var clips []*capture.Clip
	handler := func(take model.Take, clip *capture.Clip) {
		takes = append(takes, take)
		clips = append(clips, clip)
	}
	c, clk, src := newTestController(t, Config{EnforceLimit: true}, WithTakeHandler(handler))
	require.NoError(t, c.Start(context.Background(), tallCue))

	clk.Advance(65 * time.Second)
	snap := c.Snapshot()
	assert.Equal(t, StateEditing, snap.State)
	assert.Equal(t, 60, snap.Elapsed)
	require.NotNil(t, snap.Clip)
	assert.Equal(t, 1, snap.Takes)
	assert.Equal(t, 1, src.finalized)
	assert.Equal(t, 1, src.released)

	require.Len(t, takes, 1)
	assert.True(t, takes[0].LimitReached)
	assert.Equal(t, 60, takes[0].Elapsed)
	assert.Equal(t, "hello", takes[0].Excerpt)
	assert.Equal(t, len("webm-bytes"), takes[0].ClipSize)
	assert.Equal(t, snap.Clip, clips[0])
}

func TestEncodingFailureLeavesNoClip(t *testing.T) {
	c, _, src := newTestController(t, Config{})
	src.finalizeErr = capture.ErrEncodingFailure
	require.NoError(t, c.Start(context.Background(), tallCue))

	take, err := c.Stop(context.Background())
	require.Error(t, err)
	assert.ErrorIs(t, err, capture.ErrEncodingFailure)
	assert.NotEmpty(t, take.ClipErr)
	assert.False(t, take.HasClip())

	snap := c.Snapshot()
	assert.Equal(t, StateEditing, snap.State)
	assert.Nil(t, snap.Clip)
	assert.Equal(t, 1, src.released)
}

func TestRehearseNeverOpensCamera(t *testing.T) {
	called := false
	c, clk, src := newTestController(t, Config{Speed: 3}, WithTakeHandler(func(model.Take, *capture.Clip) { called = true }))
	c.Rehearse(tallCue)

	snap := c.Snapshot()
	assert.Equal(t, StateActive, snap.State)
	assert.Equal(t, model.ModeRehearse, snap.Mode)
	assert.False(t, snap.Recording())

	clk.Advance(3800 * time.Millisecond)
	snap = c.Snapshot()
	assert.Equal(t, 0, snap.Elapsed)
	assert.Equal(t, -3.0, snap.Offset)

	require.NoError(t, c.Start(context.Background(), tallCue), "start while rehearsing is ignored")
	take, err := c.Stop(context.Background())
	require.NoError(t, err)
	assert.Equal(t, model.ModeRehearse, take.Mode)
	assert.False(t, called)
	assert.Equal(t, 0, src.opened)
	assert.Equal(t, 0, c.Snapshot().Takes)
}

func TestCloseCancelsEverything(t *testing.T) {
	clk := clock.NewFake(time.Unix(0, 0))
	src := &fakeSource{}
	c := New(Config{}, clk, src)
	require.NoError(t, c.Start(context.Background(), tallCue))
	clk.Advance(4 * time.Second)
	require.Positive(t, clk.Pending())

	c.Close()
	c.Close()
	assert.Equal(t, 0, clk.Pending())
	assert.Equal(t, 1, src.released)

	before := c.Snapshot()
	clk.Advance(time.Minute)
	assert.Equal(t, before, c.Snapshot())
	assert.ErrorIs(t, c.Start(context.Background(), tallCue), ErrClosed)
}

func TestRestartResetsCounters(t *testing.T) {
	c, clk, _ := newTestController(t, Config{Speed: 5})
	require.NoError(t, c.Start(context.Background(), tallCue))
	clk.Advance(58 * time.Second)
	_, err := c.Stop(context.Background())
	require.NoError(t, err)

	require.NoError(t, c.Start(context.Background(), tallCue))
	snap := c.Snapshot()
	assert.Equal(t, 0, snap.Elapsed)
	assert.False(t, snap.NearLimit)
	assert.False(t, snap.LimitReached)
	assert.Equal(t, 0.0, snap.Offset)
	assert.Equal(t, int64(len("webm-bytes")), snap.BytesRecorded)
}

func TestConfigDefaults(t *testing.T) {
	cfg := Config{}.withDefaults()
	assert.Equal(t, DefaultLeadIn, cfg.LeadIn)
	assert.Equal(t, DefaultScrollTick, cfg.ScrollTick)
	assert.Equal(t, 60, cfg.MaxSeconds)
	assert.Equal(t, 55, cfg.NearLimit)
	assert.Equal(t, DefaultSpeed, cfg.Speed)

	cfg = Config{MaxSeconds: 30, NearLimit: 90, Speed: 99}.withDefaults()
	assert.Equal(t, 25, cfg.NearLimit)
	assert.Equal(t, 10.0, cfg.Speed)

	cfg = Config{LeadIn: -time.Second}.withDefaults()
	assert.Equal(t, time.Duration(0), cfg.LeadIn)
}
