package capture

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"runtime"
	"strconv"
	"sync"
	"time"

	ffmpeg "github.com/u2takey/ffmpeg-go"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

const (
	// ClipMIME is the container type produced by the recorder.
	ClipMIME = "video/webm"
	// ClipExt is the file extension matching ClipMIME.
	ClipExt = ".webm"

	defaultStopTimeout = 5 * time.Second
	chunkSize          = 32 * 1024
)

func init() {
	// The compiled command line would otherwise be printed over the TUI.
	ffmpeg.LogCompiledCommand = false
}

// FFmpeg records the camera and microphone by running ffmpeg and reading
// VP9/Opus WebM from its stdout.
type FFmpeg struct {
	logger      *zap.Logger
	goos        string
	lookPath    func(string) (string, error)
	checkDevice func(string) error
	stopTimeout time.Duration
	now         func() time.Time
}

// NewFFmpeg returns a Source for the current platform.
func NewFFmpeg(logger *zap.Logger) *FFmpeg {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &FFmpeg{
		logger:      logger.Named("capture"),
		goos:        runtime.GOOS,
		lookPath:    exec.LookPath,
		checkDevice: statDevice,
		stopTimeout: defaultStopTimeout,
		now:         time.Now,
	}
}

// DefaultConstraints returns portrait 720x1280 capture at 30 fps with audio,
// using the platform's default devices.
func DefaultConstraints(goos string) Constraints {
	c := Constraints{
		Audio:     true,
		Width:     720,
		Height:    1280,
		FrameRate: 30,
	}
	switch goos {
	case "darwin":
		c.VideoDevice = "0"
		c.AudioDevice = "0"
	case "windows":
		c.VideoDevice = "Integrated Camera"
		c.AudioDevice = "Microphone"
	default:
		c.VideoDevice = "/dev/video0"
		c.AudioDevice = "default"
	}
	return c
}

func withDefaults(c Constraints, goos string) Constraints {
	def := DefaultConstraints(goos)
	if c.VideoDevice == "" {
		c.VideoDevice = def.VideoDevice
	}
	if c.AudioDevice == "" {
		c.AudioDevice = def.AudioDevice
	}
	if c.Width <= 0 || c.Height <= 0 {
		c.Width, c.Height = def.Width, def.Height
	}
	if c.FrameRate <= 0 {
		c.FrameRate = def.FrameRate
	}
	return c
}

// Open implements Source. It checks that ffmpeg is installed and, on Linux,
// that the video device can be opened.
func (f *FFmpeg) Open(ctx context.Context, c Constraints) (Stream, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if _, err := f.lookPath("ffmpeg"); err != nil {
		return nil, fmt.Errorf("%w: ffmpeg not found in PATH: %v", ErrDeviceUnavailable, err)
	}
	c = withDefaults(c, f.goos)
	if f.goos == "linux" {
		if err := f.checkDevice(c.VideoDevice); err != nil {
			return nil, ClassifyOpenError(c.VideoDevice, err)
		}
	}
	f.logger.Info("device opened",
		zap.String("video", c.VideoDevice),
		zap.String("audio", c.AudioDevice),
		zap.Bool("audio_enabled", c.Audio),
		zap.Int("width", c.Width),
		zap.Int("height", c.Height),
	)
	return &ffmpegStream{src: f, constraints: c}, nil
}

func statDevice(path string) error {
	file, err := os.OpenFile(path, os.O_RDWR, 0)
	if err != nil {
		return err
	}
	return file.Close()
}

// buildStream assembles the ffmpeg graph for the platform.
func buildStream(goos string, c Constraints) *ffmpeg.Stream {
	fps := strconv.Itoa(c.FrameRate)
	var streams []*ffmpeg.Stream
	switch goos {
	case "darwin":
		audio := "none"
		if c.Audio {
			audio = c.AudioDevice
		}
		in := ffmpeg.Input(c.VideoDevice+":"+audio, ffmpeg.KwArgs{"f": "avfoundation", "framerate": fps})
		streams = append(streams, in.Video())
		if c.Audio {
			streams = append(streams, in.Audio())
		}
	case "windows":
		name := "video=" + c.VideoDevice
		if c.Audio {
			name += ":audio=" + c.AudioDevice
		}
		in := ffmpeg.Input(name, ffmpeg.KwArgs{"f": "dshow", "framerate": fps})
		streams = append(streams, in.Video())
		if c.Audio {
			streams = append(streams, in.Audio())
		}
	default:
		video := ffmpeg.Input(c.VideoDevice, ffmpeg.KwArgs{"f": "v4l2", "framerate": fps})
		streams = append(streams, video.Video())
		if c.Audio {
			audio := ffmpeg.Input(c.AudioDevice, ffmpeg.KwArgs{"f": "pulse"})
			streams = append(streams, audio.Audio())
		}
	}

	out := ffmpeg.KwArgs{
		"f":        "webm",
		"c:v":      "libvpx-vp9",
		"b:v":      "2M",
		"deadline": "realtime",
		"cpu-used": "8",
		"vf":       portraitFilter(c.Width, c.Height),
	}
	if c.Audio {
		out["c:a"] = "libopus"
		out["b:a"] = "128k"
	}
	return ffmpeg.Output(streams, "pipe:1", out).GlobalArgs("-hide_banner", "-loglevel", "error", "-nostats")
}

// portraitFilter center-crops the camera frame to width:height and scales it.
func portraitFilter(width, height int) string {
	return fmt.Sprintf("crop='min(iw,ih*%d/%d)':'min(ih,iw*%d/%d)',scale=%d:%d",
		width, height, height, width, width, height)
}

type ffmpegStream struct {
	src         *FFmpeg
	constraints Constraints

	mu       sync.Mutex
	rec      *ffmpegRecording
	released bool
}

// Record implements Stream.
func (s *ffmpegStream) Record(onChunk ChunkFunc) (Recording, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.released {
		return nil, fmt.Errorf("%w: stream already released", ErrDeviceUnavailable)
	}
	if s.rec != nil {
		return nil, fmt.Errorf("recording already started")
	}

	cmd := buildStream(s.src.goos, s.constraints).Compile()
	stdin, err := cmd.StdinPipe()
	if err != nil {
		return nil, fmt.Errorf("failed to open ffmpeg stdin: %w", err)
	}
	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return nil, fmt.Errorf("failed to open ffmpeg stdout: %w", err)
	}
	stderr, err := cmd.StderrPipe()
	if err != nil {
		return nil, fmt.Errorf("failed to open ffmpeg stderr: %w", err)
	}
	if err := cmd.Start(); err != nil {
		return nil, fmt.Errorf("%w: failed to start ffmpeg: %v", ErrDeviceUnavailable, err)
	}
	s.src.logger.Info("recording started", zap.Int("pid", cmd.Process.Pid))

	rec := newRecording(s.src.logger, onChunk, s.src.stopTimeout, s.src.now)
	rec.cmd = cmd
	rec.stdin = stdin
	rec.start(stdout, stderr)
	s.rec = rec
	return rec, nil
}

// Release implements Stream. A recording that was never finalized is killed.
func (s *ffmpegStream) Release() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.released {
		return nil
	}
	s.released = true
	if s.rec != nil {
		s.rec.abort()
	}
	s.src.logger.Info("device released", zap.String("video", s.constraints.VideoDevice))
	return nil
}

type ffmpegRecording struct {
	logger      *zap.Logger
	onChunk     ChunkFunc
	stopTimeout time.Duration
	now         func() time.Time

	cmd   *exec.Cmd
	stdin io.WriteCloser

	mu   sync.Mutex
	data []byte

	stopOnce sync.Once
	done     chan struct{}
	err      error
}

func newRecording(logger *zap.Logger, onChunk ChunkFunc, stopTimeout time.Duration, now func() time.Time) *ffmpegRecording {
	return &ffmpegRecording{
		logger:      logger,
		onChunk:     onChunk,
		stopTimeout: stopTimeout,
		now:         now,
		done:        make(chan struct{}),
	}
}

func (r *ffmpegRecording) start(stdout, stderr io.Reader) {
	g := new(errgroup.Group)
	g.Go(func() error { return r.pump(stdout) })
	g.Go(func() error { return r.drainStderr(stderr) })
	go func() {
		readErr := g.Wait()
		waitErr := r.cmd.Wait()
		r.err = errors.Join(readErr, waitErr)
		close(r.done)
	}()
}

// pump copies encoded output into the clip buffer and forwards each chunk.
func (r *ffmpegRecording) pump(stdout io.Reader) error {
	buf := make([]byte, chunkSize)
	for {
		n, err := stdout.Read(buf)
		if n > 0 {
			chunk := append([]byte(nil), buf[:n]...)
			r.mu.Lock()
			r.data = append(r.data, chunk...)
			r.mu.Unlock()
			if r.onChunk != nil {
				r.onChunk(chunk)
			}
		}
		if err == io.EOF {
			return nil
		}
		if err != nil {
			return fmt.Errorf("failed to read ffmpeg output: %w", err)
		}
	}
}

func (r *ffmpegRecording) drainStderr(stderr io.Reader) error {
	scanner := bufio.NewScanner(stderr)
	for scanner.Scan() {
		r.logger.Warn("ffmpeg", zap.String("line", scanner.Text()))
	}
	return scanner.Err()
}

func (r *ffmpegRecording) requestStop() {
	r.stopOnce.Do(func() {
		if _, err := io.WriteString(r.stdin, "q"); err != nil {
			r.logger.Debug("failed to send quit to ffmpeg", zap.Error(err))
		}
		if err := r.stdin.Close(); err != nil {
			r.logger.Debug("failed to close ffmpeg stdin", zap.Error(err))
		}
	})
}

func (r *ffmpegRecording) kill() {
	if r.cmd == nil || r.cmd.Process == nil {
		return
	}
	if err := r.cmd.Process.Kill(); err != nil && !errors.Is(err, os.ErrProcessDone) {
		r.logger.Warn("failed to kill ffmpeg", zap.Error(err))
	}
}

func (r *ffmpegRecording) abort() {
	select {
	case <-r.done:
		return
	default:
	}
	r.requestStop()
	r.kill()
	<-r.done
}

// Finalize implements Recording. ffmpeg is asked to quit so it can write the
// WebM trailer; it is killed if it does not exit in time.
func (r *ffmpegRecording) Finalize(ctx context.Context) (*Clip, error) {
	r.requestStop()
	timer := time.NewTimer(r.stopTimeout)
	defer timer.Stop()
	select {
	case <-r.done:
	case <-ctx.Done():
		r.kill()
		<-r.done
	case <-timer.C:
		r.logger.Warn("ffmpeg did not stop in time", zap.Duration("timeout", r.stopTimeout))
		r.kill()
		<-r.done
	}
	return r.assemble()
}

func (r *ffmpegRecording) assemble() (*Clip, error) {
	r.mu.Lock()
	data := r.data
	r.mu.Unlock()
	if len(data) == 0 {
		return nil, fmt.Errorf("%w: ffmpeg produced no output: %v", ErrEncodingFailure, r.err)
	}
	if r.err != nil {
		r.logger.Warn("ffmpeg exited with error; keeping partial clip", zap.Error(r.err), zap.Int("bytes", len(data)))
	}
	return NewClip(data, ClipMIME, ClipExt, r.now()), nil
}
