// Package scroll advances the teleprompter offset over time.
package scroll

import "math"

const (
	// RowPitch is the number of offset units in one terminal row.
	RowPitch = 10.0
	// MinSpeed is the slowest scroll rate in units per tick.
	MinSpeed = 1.0
	// MaxSpeed is the fastest scroll rate in units per tick.
	MaxSpeed = 10.0
	// SpeedStep is the increment used by keys and the mouse wheel.
	SpeedStep = 0.5
)

// Engine holds a one-dimensional offset that only moves toward its bound.
// Offsets are zero or negative; the text moves up as the offset decreases.
type Engine struct {
	offset float64
	speed  float64
	bound  float64
	halted bool
}

// NewEngine returns an engine at offset zero with the given speed.
func NewEngine(speed float64) *Engine {
	return &Engine{speed: ClampSpeed(speed)}
}

// ClampSpeed limits v to [MinSpeed, MaxSpeed].
func ClampSpeed(v float64) float64 {
	if math.IsNaN(v) {
		return MinSpeed
	}
	return math.Max(MinSpeed, math.Min(MaxSpeed, v))
}

// Bound returns -(contentHeight - viewportHeight), capped at zero for content
// that already fits.
func Bound(contentHeight, viewportHeight float64) float64 {
	overflow := contentHeight - viewportHeight
	if overflow <= 0 {
		return 0
	}
	return -overflow
}

// Reset moves the offset back to zero and recomputes the bound.
func (e *Engine) Reset(contentHeight, viewportHeight float64) {
	e.offset = 0
	e.bound = Bound(contentHeight, viewportHeight)
	e.halted = e.bound == 0
}

// Step advances the offset by one tick. It returns false once the bound has
// been reached; later calls leave the offset unchanged.
func (e *Engine) Step() bool {
	if e.halted {
		return false
	}
	next := e.offset - e.speed
	if next <= e.bound {
		e.offset = e.bound
		e.halted = true
		return false
	}
	e.offset = next
	return true
}

// SetSpeed changes the rate used by the next Step and returns the clamped value.
func (e *Engine) SetSpeed(v float64) float64 {
	e.speed = ClampSpeed(v)
	return e.speed
}

// Speed returns the current rate in units per tick.
func (e *Engine) Speed() float64 {
	return e.speed
}

// Offset returns the current offset.
func (e *Engine) Offset() float64 {
	return e.offset
}

// StopOffset returns the bound computed by the last Reset.
func (e *Engine) StopOffset() float64 {
	return e.bound
}

// Halted reports whether the engine has reached its bound.
func (e *Engine) Halted() bool {
	return e.halted
}

// Row converts the offset into the number of whole rows scrolled past.
func (e *Engine) Row() int {
	return RowAt(e.offset)
}

// RowAt converts an offset into whole rows scrolled past.
func RowAt(offset float64) int {
	if offset >= 0 {
		return 0
	}
	return int(math.Floor(-offset / RowPitch))
}
