// Package capture defines the camera/microphone recording contract and its
// ffmpeg implementation.
package capture

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"time"

	"github.com/google/uuid"
)

var (
	// ErrPermissionDenied is returned when the OS refuses access to a device.
	ErrPermissionDenied = errors.New("capture permission denied")
	// ErrDeviceUnavailable is returned when a device or the encoder is missing or busy.
	ErrDeviceUnavailable = errors.New("capture device unavailable")
	// ErrEncodingFailure is returned when no clip could be assembled.
	ErrEncodingFailure = errors.New("clip encoding failed")
)

// Constraints describe the requested capture.
type Constraints struct {
	VideoDevice string
	AudioDevice string
	Audio       bool
	Width       int
	Height      int
	FrameRate   int
}

// ChunkFunc receives encoded bytes as the recorder emits them.
type ChunkFunc func(data []byte)

// Source opens capture devices.
type Source interface {
	Open(ctx context.Context, c Constraints) (Stream, error)
}

// Stream is a live device handle.
type Stream interface {
	// Record begins encoding. onChunk may be nil.
	Record(onChunk ChunkFunc) (Recording, error)
	// Release stops the underlying device tracks.
	Release() error
}

// Recording is an in-progress encode.
type Recording interface {
	// Finalize stops encoding and assembles the clip.
	Finalize(ctx context.Context) (*Clip, error)
}

// Clip is an assembled recording.
type Clip struct {
	ID        string
	Data      []byte
	MIME      string
	Ext       string
	CreatedAt time.Time
}

// NewClip wraps encoded bytes in a Clip with a fresh id.
func NewClip(data []byte, mime, ext string, createdAt time.Time) *Clip {
	return &Clip{
		ID:        uuid.NewString(),
		Data:      data,
		MIME:      mime,
		Ext:       ext,
		CreatedAt: createdAt,
	}
}

// Size returns the clip length in bytes.
func (c *Clip) Size() int {
	if c == nil {
		return 0
	}
	return len(c.Data)
}

// ClassifyOpenError maps an OS error from probing a device onto the capture
// error taxonomy.
func ClassifyOpenError(device string, err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, fs.ErrPermission) {
		return fmt.Errorf("%w: %s: %v", ErrPermissionDenied, device, err)
	}
	return fmt.Errorf("%w: %s: %v", ErrDeviceUnavailable, device, err)
}

// IsDeviceError reports whether err means the device could not be acquired.
func IsDeviceError(err error) bool {
	return errors.Is(err, ErrPermissionDenied) || errors.Is(err, ErrDeviceUnavailable)
}
