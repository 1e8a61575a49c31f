package session

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/verte-zerg/prompter/internal/capture"
	"github.com/verte-zerg/prompter/internal/clock"
	"github.com/verte-zerg/prompter/internal/model"
	"github.com/verte-zerg/prompter/internal/scroll"
)

// TakeHandler receives every finished recording. clip is nil when encoding failed.
type TakeHandler func(take model.Take, clip *capture.Clip)

// Option configures a Controller.
type Option func(*Controller)

// WithLogger sets the logger.
func WithLogger(logger *zap.Logger) Option {
	return func(c *Controller) {
		if logger != nil {
			c.logger = logger
		}
	}
}

// WithTakeHandler registers a callback invoked after each recording stops.
func WithTakeHandler(h TakeHandler) Option {
	return func(c *Controller) {
		c.onTake = h
	}
}

// Controller owns the editing/recording state machine. All state changes
// happen under mu; scheduled callbacks carry the generation they were armed
// for and do nothing once it has moved on.
type Controller struct {
	cfg    Config
	clock  clock.Clock
	source capture.Source
	logger *zap.Logger
	onTake TakeHandler

	mu           sync.Mutex
	closed       bool
	state        State
	mode         model.Mode
	gen          uint64
	cue          Cue
	elapsed      int
	nearLimit    bool
	nearSeen     bool
	limitReached bool
	engine       *scroll.Engine
	scrolling    bool
	startedAt    time.Time
	clip         *capture.Clip
	takes        int
	lastErr      error

	secondTimer clock.Timer
	leadInTimer clock.Timer
	scrollTimer clock.Timer

	stream    capture.Stream
	recording capture.Recording
	bytes     atomic.Int64
}

// New returns a controller in the editing state.
func New(cfg Config, clk clock.Clock, source capture.Source, opts ...Option) *Controller {
	cfg = cfg.withDefaults()
	c := &Controller{
		cfg:    cfg,
		clock:  clk,
		source: source,
		logger: zap.NewNop(),
		state:  StateEditing,
		mode:   model.ModeRecord,
		engine: scroll.NewEngine(cfg.Speed),
	}
	for _, opt := range opts {
		opt(c)
	}
	c.logger = c.logger.Named("session")
	return c
}

// Start opens the camera, begins recording and arms the elapsed-time tick and
// the scroll lead-in. It does nothing unless the controller is editing. A
// device failure leaves the controller editing and is returned.
func (c *Controller) Start(ctx context.Context, cue Cue) error {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return ErrClosed
	}
	if c.state != StateEditing {
		c.logger.Debug("start ignored", zap.String("state", string(c.state)))
		c.mu.Unlock()
		return nil
	}
	c.state = StateStarting
	c.mode = model.ModeRecord
	c.resetLocked(cue)
	gen := c.gen
	constraints := c.cfg.Constraints
	c.mu.Unlock()

	stream, rec, err := c.openCapture(ctx, constraints)

	c.mu.Lock()
	if c.gen != gen || c.state != StateStarting {
		c.mu.Unlock()
		c.releaseStream(stream)
		return ErrClosed
	}
	if err != nil {
		c.state = StateEditing
		c.lastErr = err
		c.mu.Unlock()
		c.logger.Warn("failed to start recording", zap.Error(err))
		return fmt.Errorf("failed to start recording: %w", err)
	}
	c.stream = stream
	c.recording = rec
	c.activateLocked(gen)
	stopOffset := c.engine.StopOffset()
	c.mu.Unlock()
	c.logger.Info("recording started", zap.Float64("stop_offset", stopOffset))
	return nil
}

// Rehearse scrolls the script without recording or counting time.
func (c *Controller) Rehearse(cue Cue) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed || c.state != StateEditing {
		return
	}
	c.mode = model.ModeRehearse
	c.resetLocked(cue)
	c.activateLocked(c.gen)
	c.logger.Info("rehearsal started")
}

// Stop cancels the timers, finalizes and releases the capture and returns to
// editing. It does nothing unless a session is active. The scroll offset is
// left where it stopped.
func (c *Controller) Stop(ctx context.Context) (model.Take, error) {
	c.mu.Lock()
	if c.state != StateActive {
		c.logger.Debug("stop ignored", zap.String("state", string(c.state)))
		c.mu.Unlock()
		return model.Take{}, nil
	}
	c.state = StateStopping
	c.gen++
	c.cancelTimersLocked()
	rec, stream := c.recording, c.stream
	c.recording, c.stream = nil, nil
	take := c.takeLocked(c.clock.Now())
	c.mu.Unlock()

	var clip *capture.Clip
	var err error
	if rec != nil {
		clip, err = rec.Finalize(ctx)
	}
	c.releaseStream(stream)

	c.mu.Lock()
	c.state = StateEditing
	c.nearLimit = false
	c.scrolling = false
	if clip != nil {
		c.clip = clip
		take.ClipID = clip.ID
		take.ClipMIME = clip.MIME
		take.ClipExt = clip.Ext
		take.ClipSize = clip.Size()
	}
	if err != nil {
		take.ClipErr = err.Error()
		c.lastErr = err
	}
	if take.Mode == model.ModeRecord {
		c.takes++
	}
	handler := c.onTake
	c.mu.Unlock()

	if err != nil {
		c.logger.Warn("clip unavailable", zap.String("take", take.ID), zap.Error(err))
	} else {
		c.logger.Info("session stopped",
			zap.String("take", take.ID),
			zap.String("mode", string(take.Mode)),
			zap.Int("elapsed", take.Elapsed),
			zap.Int("clip_bytes", take.ClipSize),
		)
	}
	if handler != nil && take.Mode == model.ModeRecord {
		handler(take, clip)
	}
	if err != nil {
		return take, fmt.Errorf("failed to finalize clip: %w", err)
	}
	return take, nil
}

// Tick advances the elapsed-time counter by one second. The periodic timer
// calls it while a recording is active.
func (c *Controller) Tick() {
	c.mu.Lock()
	gen := c.gen
	c.mu.Unlock()
	c.tick(gen)
}

func (c *Controller) tick(gen uint64) {
	c.mu.Lock()
	if c.gen != gen || c.state != StateActive || c.mode != model.ModeRecord {
		c.mu.Unlock()
		return
	}
	c.elapsed++
	if c.elapsed >= c.cfg.NearLimit {
		c.nearLimit = true
		c.nearSeen = true
	}
	if c.elapsed >= c.cfg.MaxSeconds && !c.limitReached {
		c.limitReached = true
		c.logger.Warn("recording limit reached", zap.Int("max_seconds", c.cfg.MaxSeconds), zap.Bool("enforced", c.cfg.EnforceLimit))
	}
	autoStop := c.cfg.EnforceLimit && c.limitReached
	c.mu.Unlock()

	if autoStop {
		if _, err := c.Stop(context.Background()); err != nil {
			c.logger.Warn("automatic stop failed", zap.Error(err))
		}
	}
}

func (c *Controller) beginScroll(gen uint64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.gen != gen || c.state != StateActive {
		return
	}
	c.leadInTimer = nil
	c.scrolling = true
	if c.engine.Halted() {
		return
	}
	c.scrollTimer = c.clock.Every(c.cfg.ScrollTick, func() { c.step(gen) })
}

func (c *Controller) step(gen uint64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.gen != gen || c.state != StateActive {
		return
	}
	if c.engine.Step() {
		return
	}
	if c.scrollTimer != nil {
		c.scrollTimer.Stop()
		c.scrollTimer = nil
	}
	c.logger.Debug("scroll reached end", zap.Float64("offset", c.engine.Offset()))
}

// SetSpeed changes the scroll rate; an active scroll picks it up on its next
// tick. The clamped value is returned.
func (c *Controller) SetSpeed(v float64) float64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.cfg.Speed = c.engine.SetSpeed(v)
	return c.cfg.Speed
}

// AdjustSpeed changes the scroll rate by delta.
func (c *Controller) AdjustSpeed(delta float64) float64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.cfg.Speed = c.engine.SetSpeed(c.engine.Speed() + delta)
	return c.cfg.Speed
}

// Snapshot returns the current state.
func (c *Controller) Snapshot() Snapshot {
	c.mu.Lock()
	defer c.mu.Unlock()
	return Snapshot{
		State:         c.state,
		Mode:          c.mode,
		Elapsed:       c.elapsed,
		MaxSeconds:    c.cfg.MaxSeconds,
		NearLimit:     c.nearLimit,
		LimitReached:  c.limitReached,
		Offset:        c.engine.Offset(),
		StopOffset:    c.engine.StopOffset(),
		Speed:         c.engine.Speed(),
		Scrolling:     c.scrolling,
		Halted:        c.engine.Halted(),
		BytesRecorded: c.bytes.Load(),
		Clip:          c.clip,
		Takes:         c.takes,
		LastErr:       c.lastErr,
	}
}

// Close cancels every timer and releases the camera. It is safe to call on
// any exit path and more than once.
func (c *Controller) Close() {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return
	}
	c.closed = true
	c.gen++
	c.cancelTimersLocked()
	stream := c.stream
	c.stream, c.recording = nil, nil
	c.state = StateEditing
	c.nearLimit = false
	c.scrolling = false
	c.mu.Unlock()

	c.releaseStream(stream)
	c.logger.Debug("controller closed")
}

func (c *Controller) openCapture(ctx context.Context, constraints capture.Constraints) (capture.Stream, capture.Recording, error) {
	if c.source == nil {
		return nil, nil, fmt.Errorf("%w: no capture source configured", capture.ErrDeviceUnavailable)
	}
	stream, err := c.source.Open(ctx, constraints)
	if err != nil {
		return nil, nil, err
	}
	rec, err := stream.Record(func(data []byte) { c.bytes.Add(int64(len(data))) })
	if err != nil {
		c.releaseStream(stream)
		return nil, nil, err
	}
	return stream, rec, nil
}

func (c *Controller) releaseStream(stream capture.Stream) {
	if stream == nil {
		return
	}
	if err := stream.Release(); err != nil {
		c.logger.Warn("failed to release capture device", zap.Error(err))
	}
}

func (c *Controller) resetLocked(cue Cue) {
	c.gen++
	c.cue = cue
	c.elapsed = 0
	c.nearLimit = false
	c.nearSeen = false
	c.limitReached = false
	c.scrolling = false
	c.lastErr = nil
	c.bytes.Store(0)
	c.engine.Reset(cue.Geometry.ContentHeight, cue.Geometry.ViewportHeight)
}

func (c *Controller) activateLocked(gen uint64) {
	c.state = StateActive
	c.startedAt = c.clock.Now()
	if c.mode == model.ModeRecord {
		c.secondTimer = c.clock.Every(time.Second, func() { c.tick(gen) })
	}
	c.leadInTimer = c.clock.AfterFunc(c.cfg.LeadIn, func() { c.beginScroll(gen) })
}

func (c *Controller) cancelTimersLocked() {
	for _, t := range []*clock.Timer{&c.secondTimer, &c.leadInTimer, &c.scrollTimer} {
		if *t != nil {
			(*t).Stop()
			*t = nil
		}
	}
}

func (c *Controller) takeLocked(end time.Time) model.Take {
	return model.Take{
		ID:           uuid.NewString(),
		Mode:         c.mode,
		StartedAt:    c.startedAt,
		EndedAt:      end,
		Elapsed:      c.elapsed,
		NearLimit:    c.nearSeen,
		LimitReached: c.limitReached,
		FontSize:     c.cue.FontSize,
		Speed:        c.engine.Speed(),
		Excerpt:      c.cue.Excerpt,
	}
}
