// Package export writes recorded clips to disk.
package export

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	ffmpeg "github.com/u2takey/ffmpeg-go"
	"go.uber.org/zap"
)

const (
	// BaseName is the fixed file name every export uses.
	BaseName = "video"

	FormatWebM = "webm"
	FormatMP4  = "mp4"
)

// Transcoder converts a WebM clip into another container at outPath.
type Transcoder func(ctx context.Context, clip []byte, outPath string) error

// Exporter writes clips under a fixed file name in a directory.
type Exporter struct {
	dir       string
	format    string
	transcode Transcoder
	logger    *zap.Logger
}

// New returns an Exporter. An empty format means WebM.
func New(dir, format string, logger *zap.Logger) (*Exporter, error) {
	format = strings.ToLower(strings.TrimSpace(format))
	if format == "" {
		format = FormatWebM
	}
	if format != FormatWebM && format != FormatMP4 {
		return nil, fmt.Errorf("unsupported export format %q (use %s or %s)", format, FormatWebM, FormatMP4)
	}
	if dir == "" {
		dir = "."
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Exporter{
		dir:       dir,
		format:    format,
		transcode: FFmpegMP4,
		logger:    logger.Named("export"),
	}, nil
}

// Path returns the destination file for the configured format.
func (e *Exporter) Path() string {
	return filepath.Join(e.dir, BaseName+"."+e.format)
}

// Write stores the clip at Path, replacing any earlier export.
func (e *Exporter) Write(ctx context.Context, clip []byte) (string, error) {
	if len(clip) == 0 {
		return "", fmt.Errorf("clip is empty")
	}
	if err := os.MkdirAll(e.dir, 0o755); err != nil {
		return "", fmt.Errorf("failed to create export directory: %w", err)
	}
	path := e.Path()
	tmpFile, err := os.CreateTemp(e.dir, BaseName+"-*."+e.format)
	if err != nil {
		return "", fmt.Errorf("failed to create temp clip: %w", err)
	}
	tmpPath := tmpFile.Name()
	defer func() {
		_ = tmpFile.Close()
		_ = os.Remove(tmpPath)
	}()

	switch e.format {
	case FormatMP4:
		if err := tmpFile.Close(); err != nil {
			return "", fmt.Errorf("failed to close temp clip: %w", err)
		}
		if err := e.transcode(ctx, clip, tmpPath); err != nil {
			return "", fmt.Errorf("failed to transcode clip: %w", err)
		}
	default:
		if _, err := tmpFile.Write(clip); err != nil {
			return "", fmt.Errorf("failed to write clip: %w", err)
		}
		if err := tmpFile.Close(); err != nil {
			return "", fmt.Errorf("failed to close clip: %w", err)
		}
	}
	if err := os.Rename(tmpPath, path); err != nil {
		return "", fmt.Errorf("failed to write clip: %w", err)
	}
	e.logger.Info("clip exported", zap.String("path", path), zap.Int("bytes", len(clip)))
	return path, nil
}

// FFmpegMP4 transcodes WebM from memory to H.264/AAC MP4.
func FFmpegMP4(ctx context.Context, clip []byte, outPath string) error {
	var stderr bytes.Buffer
	cmd := mp4Stream(outPath).
		WithInput(bytes.NewReader(clip)).
		WithErrorOutput(&stderr).
		Compile()
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := cmd.Start(); err != nil {
		return err
	}
	done := make(chan error, 1)
	go func() { done <- cmd.Wait() }()
	select {
	case err := <-done:
		if err != nil {
			return fmt.Errorf("ffmpeg: %w: %s", err, strings.TrimSpace(stderr.String()))
		}
		return nil
	case <-ctx.Done():
		_ = cmd.Process.Kill()
		<-done
		return ctx.Err()
	}
}

func mp4Stream(outPath string) *ffmpeg.Stream {
	return ffmpeg.Input("pipe:0", ffmpeg.KwArgs{"f": "webm"}).
		Output(outPath, ffmpeg.KwArgs{
			"f":        "mp4",
			"c:v":      "libx264",
			"c:a":      "aac",
			"b:a":      "192k",
			"preset":   "fast",
			"movflags": "+faststart",
		}).
		GlobalArgs("-hide_banner", "-loglevel", "error").
		OverWriteOutput()
}
