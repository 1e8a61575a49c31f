package scroll

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStepNeverPassesBound(t *testing.T) {
	for speed := MinSpeed; speed <= MaxSpeed; speed += 0.25 {
		e := NewEngine(speed)
		e.Reset(1234, 200)
		stop := e.StopOffset()
		require.Equal(t, -1034.0, stop)

		for i := 0; i < 5000; i++ {
			e.Step()
			require.GreaterOrEqual(t, e.Offset(), stop, "speed %.2f tick %d", speed, i)
		}
		assert.True(t, e.Halted(), "speed %.2f", speed)
		assert.Equal(t, stop, e.Offset())
	}
}

func TestStepAfterHaltIsNoop(t *testing.T) {
	e := NewEngine(7)
	e.Reset(30, 10)

	assert.True(t, e.Step())
	assert.Equal(t, -7.0, e.Offset())
	assert.True(t, e.Step())
	assert.False(t, e.Step())
	assert.Equal(t, -20.0, e.Offset())

	assert.False(t, e.Step())
	assert.Equal(t, -20.0, e.Offset())
}

func TestContentThatFitsNeverMoves(t *testing.T) {
	e := NewEngine(5)
	e.Reset(50, 100)

	assert.Equal(t, 0.0, e.StopOffset())
	assert.True(t, e.Halted())
	assert.False(t, e.Step())
	assert.Equal(t, 0.0, e.Offset())
}

func TestSetSpeedAppliesOnNextStep(t *testing.T) {
	e := NewEngine(2)
	e.Reset(1000, 100)

	e.Step()
	assert.Equal(t, -2.0, e.Offset())

	assert.Equal(t, 6.0, e.SetSpeed(6))
	e.Step()
	assert.Equal(t, -8.0, e.Offset())
}

func TestClampSpeed(t *testing.T) {
	assert.Equal(t, MinSpeed, ClampSpeed(0))
	assert.Equal(t, MinSpeed, ClampSpeed(-3))
	assert.Equal(t, MaxSpeed, ClampSpeed(42))
	assert.Equal(t, 4.5, ClampSpeed(4.5))
	assert.Equal(t, MinSpeed, ClampSpeed(math.NaN()))
}

func TestResetReturnsToTop(t *testing.T) {
	e := NewEngine(10)
	e.Reset(100, 20)
	for e.Step() {
	}
	require.True(t, e.Halted())

	e.Reset(300, 20)
	assert.Equal(t, 0.0, e.Offset())
	assert.False(t, e.Halted())
	assert.Equal(t, -280.0, e.StopOffset())
}

func TestRow(t *testing.T) {
	e := NewEngine(5)
	e.Reset(1000, 100)
	assert.Equal(t, 0, e.Row())
	e.Step()
	assert.Equal(t, 0, e.Row())
	e.Step()
	assert.Equal(t, 1, e.Row())
	e.SetSpeed(9.5)
	e.Step()
	assert.Equal(t, 1, e.Row())
	e.Step()
	assert.Equal(t, 2, e.Row())
}
