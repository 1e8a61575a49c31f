// Package model defines shared data structures.
package model

import "time"

// Mode distinguishes a recorded take from a scroll rehearsal.
type Mode string

const (
	// ModeRecord scrolls the script while the camera records.
	ModeRecord Mode = "record"
	// ModeRehearse scrolls the script without touching the camera.
	ModeRehearse Mode = "rehearse"
)

// Settings defines teleprompter and recording settings.
type Settings struct {
	FontSize     int
	Speed        float64
	LeadIn       time.Duration
	ScrollTick   time.Duration
	MaxSeconds   int
	NearLimit    int
	EnforceLimit bool
	OutputDir    string
	ExportFormat string
	Capture      CaptureSettings
}

// CaptureSettings maps device and encoding constraints for the recorder.
type CaptureSettings struct {
	VideoDevice string
	AudioDevice string
	Audio       bool
	Width       int
	Height      int
	FrameRate   int
}

// Geometry describes the scrollable content at session start, in scroll units.
type Geometry struct {
	ContentHeight  float64
	ViewportHeight float64
}

// Take captures a completed recording or rehearsal.
type Take struct {
	ID           string
	Mode         Mode
	StartedAt    time.Time
	EndedAt      time.Time
	Elapsed      int
	NearLimit    bool
	LimitReached bool
	FontSize     int
	Speed        float64
	Excerpt      string
	ClipID       string
	ClipMIME     string
	ClipExt      string
	ClipSize     int
	ClipErr      string
	ExportPath   string
}

// HasClip reports whether the take produced a playable clip.
func (t Take) HasClip() bool {
	return t.ClipSize > 0
}
