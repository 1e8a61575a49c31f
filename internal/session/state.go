// Package session coordinates recording, the elapsed-time counter and
// teleprompter scrolling.
package session

import (
	"errors"
	"time"

	"github.com/verte-zerg/prompter/internal/capture"
	"github.com/verte-zerg/prompter/internal/model"
	"github.com/verte-zerg/prompter/internal/scroll"
)

// State is the lifecycle state of the controller.
type State string

const (
	StateEditing  State = "editing"
	StateStarting State = "starting"
	StateActive   State = "active"
	StateStopping State = "stopping"
)

const (
	DefaultLeadIn     = 3700 * time.Millisecond
	DefaultScrollTick = 100 * time.Millisecond
	DefaultMaxSeconds = 60
	DefaultNearLimit  = 55
	DefaultSpeed      = 4.0
)

// ErrClosed is returned by Start after Close.
var ErrClosed = errors.New("session controller closed")

// Config holds timing and capture parameters. Zero values take defaults;
// a negative LeadIn starts scrolling immediately.
type Config struct {
	LeadIn       time.Duration
	ScrollTick   time.Duration
	MaxSeconds   int
	NearLimit    int
	EnforceLimit bool
	Speed        float64
	Constraints  capture.Constraints
}

func (c Config) withDefaults() Config {
	switch {
	case c.LeadIn < 0:
		c.LeadIn = 0
	case c.LeadIn == 0:
		c.LeadIn = DefaultLeadIn
	}
	if c.ScrollTick <= 0 {
		c.ScrollTick = DefaultScrollTick
	}
	if c.MaxSeconds <= 0 {
		c.MaxSeconds = DefaultMaxSeconds
	}
	if c.NearLimit <= 0 || c.NearLimit > c.MaxSeconds {
		c.NearLimit = c.MaxSeconds - (DefaultMaxSeconds - DefaultNearLimit)
		if c.NearLimit < 1 {
			c.NearLimit = 1
		}
	}
	if c.Speed == 0 {
		c.Speed = DefaultSpeed
	}
	c.Speed = scroll.ClampSpeed(c.Speed)
	return c
}

// Cue is what the presentation layer knows about the script when a session
// begins.
type Cue struct {
	Geometry model.Geometry
	FontSize int
	Excerpt  string
}

// Snapshot is a copy of the controller state for rendering.
type Snapshot struct {
	State         State
	Mode          model.Mode
	Elapsed       int
	MaxSeconds    int
	NearLimit     bool
	LimitReached  bool
	Offset        float64
	StopOffset    float64
	Speed         float64
	Scrolling     bool
	Halted        bool
	BytesRecorded int64
	Clip          *capture.Clip
	Takes         int
	LastErr       error
}

// Editing reports whether the script may be edited.
func (s Snapshot) Editing() bool {
	return s.State == StateEditing
}

// Recording reports whether a camera session is in progress.
func (s Snapshot) Recording() bool {
	return s.Mode == model.ModeRecord && (s.State == StateActive || s.State == StateStarting)
}
