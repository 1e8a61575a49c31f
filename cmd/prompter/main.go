// Package main provides the CLI entrypoint for prompter.
package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/exec"
	"path/filepath"
	"runtime"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/verte-zerg/prompter/internal/capture"
	"github.com/verte-zerg/prompter/internal/clock"
	"github.com/verte-zerg/prompter/internal/config"
	"github.com/verte-zerg/prompter/internal/export"
	"github.com/verte-zerg/prompter/internal/layout"
	"github.com/verte-zerg/prompter/internal/logging"
	"github.com/verte-zerg/prompter/internal/model"
	"github.com/verte-zerg/prompter/internal/scroll"
	"github.com/verte-zerg/prompter/internal/script"
	"github.com/verte-zerg/prompter/internal/session"
	"github.com/verte-zerg/prompter/internal/store"
	"github.com/verte-zerg/prompter/internal/summary"
	"github.com/verte-zerg/prompter/internal/tui"
)

const (
	defaultFontSize     = layout.ReferenceFontSize
	defaultSpeed        = session.DefaultSpeed
	defaultLeadIn       = session.DefaultLeadIn
	defaultMaxSeconds   = session.DefaultMaxSeconds
	defaultNearLimit    = session.DefaultNearLimit
	defaultExportFormat = export.FormatWebM
	defaultCaptionWidth = 32
)

type rootOptions struct {
	fontSize     int
	speed        float64
	leadIn       time.Duration
	maxSeconds   int
	nearLimit    int
	enforceLimit bool
	outputDir    string
	exportFormat string
	device       string
	audioDevice  string
	audio        bool
	width        int
	height       int
	frameRate    int
	logFile      string
	debug        bool
}

var (
	rootOpts     rootOptions
	captionWidth int
)

func main() {
	rootCmd := newRootCmd()
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:           "prompter [script-file]",
		Short:         "Terminal teleprompter with webcam recording",
		SilenceUsage:  true,
		SilenceErrors: false,
		Args:          cobra.MaximumNArgs(1),
		RunE:          runPrompterCmd,
	}

	def := capture.DefaultConstraints(runtime.GOOS)
	flags := rootCmd.Flags()
	flags.IntVar(&rootOpts.fontSize, "font-size", defaultFontSize, "font size (10-100)")
	flags.Float64Var(&rootOpts.speed, "speed", defaultSpeed, "scroll speed (1-10)")
	flags.DurationVar(&rootOpts.leadIn, "lead-in", defaultLeadIn, "delay between start and scrolling")
	flags.IntVar(&rootOpts.maxSeconds, "max-seconds", defaultMaxSeconds, "recording time budget in seconds")
	flags.IntVar(&rootOpts.nearLimit, "near-limit", defaultNearLimit, "elapsed seconds at which the warning border starts")
	flags.BoolVar(&rootOpts.enforceLimit, "enforce-limit", false, "stop recording automatically at the time budget")
	flags.StringVar(&rootOpts.outputDir, "output-dir", config.DefaultOutputDir(), "directory for exported clips")
	flags.StringVar(&rootOpts.exportFormat, "format", defaultExportFormat, "export format (webm or mp4)")
	flags.StringVar(&rootOpts.device, "device", def.VideoDevice, "video capture device")
	flags.StringVar(&rootOpts.audioDevice, "audio-device", def.AudioDevice, "audio capture device")
	flags.BoolVar(&rootOpts.audio, "audio", def.Audio, "record audio")
	flags.IntVar(&rootOpts.width, "width", def.Width, "video width")
	flags.IntVar(&rootOpts.height, "height", def.Height, "video height")
	flags.IntVar(&rootOpts.frameRate, "framerate", def.FrameRate, "video frame rate")
	flags.StringVar(&rootOpts.logFile, "log-file", config.DefaultLogPath(), "log file path")
	flags.BoolVar(&rootOpts.debug, "debug", false, "log at debug level")

	rootCmd.AddCommand(newConfigCmd())
	rootCmd.AddCommand(newDevicesCmd())
	rootCmd.AddCommand(newCaptionCmd())

	return rootCmd
}

func runPrompterCmd(cmd *cobra.Command, args []string) error {
	fileCfg, err := config.LoadConfig(config.DefaultConfigPath())
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}
	if err := applyFileConfig(cmd, &rootOpts, fileCfg.Prompter); err != nil {
		return err
	}

	var doc script.Script
	if len(args) == 1 {
		doc, err = script.Load(args[0])
		if err != nil {
			return fmt.Errorf("failed to load script: %w", err)
		}
		applyIntConfig(cmd, "font-size", &rootOpts.fontSize, doc.FontSize)
		applyFloatConfig(cmd, "speed", &rootOpts.speed, doc.Speed)
	}

	settings := rootOpts.settings()
	if err := validateSettings(settings); err != nil {
		return err
	}

	level := zapcore.InfoLevel
	if rootOpts.debug {
		level = zapcore.DebugLevel
	}
	logger, closeLog, err := logging.New(logging.Options{Path: rootOpts.logFile, Level: level})
	if err != nil {
		return fmt.Errorf("failed to open log: %w", err)
	}
	defer func() {
		if cerr := closeLog(); cerr != nil {
			logErrf("failed to close log: %v\n", cerr)
		}
	}()

	st, err := store.OpenMemory()
	if err != nil {
		return fmt.Errorf("failed to open take ledger: %w", err)
	}
	defer func() {
		if cerr := st.Close(); cerr != nil {
			logErrf("failed to close take ledger: %v\n", cerr)
		}
	}()

	exporter, err := export.New(settings.OutputDir, settings.ExportFormat, logger)
	if err != nil {
		return err
	}

	ctrl := session.New(sessionConfig(settings), clock.NewReal(), capture.NewFFmpeg(logger),
		session.WithLogger(logger),
		session.WithTakeHandler(tui.RecordTakes(st, logger)),
	)
	defer ctrl.Close()

	logger.Info("prompter started",
		zap.String("script", scriptName(args)),
		zap.Int("font_size", settings.FontSize),
		zap.Float64("speed", settings.Speed),
		zap.String("output", exporter.Path()),
	)

	m := tui.NewModel(tui.Options{
		Script:     doc.Text,
		Title:      doc.Title,
		FontSize:   settings.FontSize,
		Controller: ctrl,
		Ledger:     st,
		Exporter:   exporter,
		Logger:     logger,
	})
	program := tea.NewProgram(m, tea.WithAltScreen(), tea.WithMouseCellMotion())
	if _, err := program.Run(); err != nil {
		return fmt.Errorf("failed to run TUI: %w", err)
	}

	takes, err := st.ListTakes(context.Background())
	if err != nil {
		return fmt.Errorf("failed to list takes: %w", err)
	}
	return summary.Print(cmd.OutOrStdout(), takes)
}

func (o rootOptions) settings() model.Settings {
	return model.Settings{
		FontSize:     o.fontSize,
		Speed:        o.speed,
		LeadIn:       o.leadIn,
		ScrollTick:   session.DefaultScrollTick,
		MaxSeconds:   o.maxSeconds,
		NearLimit:    o.nearLimit,
		EnforceLimit: o.enforceLimit,
		OutputDir:    o.outputDir,
		ExportFormat: strings.ToLower(strings.TrimSpace(o.exportFormat)),
		Capture: model.CaptureSettings{
			VideoDevice: o.device,
			AudioDevice: o.audioDevice,
			Audio:       o.audio,
			Width:       o.width,
			Height:      o.height,
			FrameRate:   o.frameRate,
		},
	}
}

func sessionConfig(s model.Settings) session.Config {
	leadIn := s.LeadIn
	if leadIn == 0 {
		leadIn = -1
	}
	return session.Config{
		LeadIn:       leadIn,
		ScrollTick:   s.ScrollTick,
		MaxSeconds:   s.MaxSeconds,
		NearLimit:    s.NearLimit,
		EnforceLimit: s.EnforceLimit,
		Speed:        s.Speed,
		Constraints: capture.Constraints{
			VideoDevice: s.Capture.VideoDevice,
			AudioDevice: s.Capture.AudioDevice,
			Audio:       s.Capture.Audio,
			Width:       s.Capture.Width,
			Height:      s.Capture.Height,
			FrameRate:   s.Capture.FrameRate,
		},
	}
}

func applyFileConfig(cmd *cobra.Command, o *rootOptions, cfg config.PrompterConfig) error {
	applyIntConfig(cmd, "font-size", &o.fontSize, cfg.FontSize)
	applyFloatConfig(cmd, "speed", &o.speed, cfg.Speed)
	if err := applyDurationConfig(cmd, "lead-in", &o.leadIn, cfg.LeadIn); err != nil {
		return err
	}
	applyIntConfig(cmd, "max-seconds", &o.maxSeconds, cfg.MaxSeconds)
	applyIntConfig(cmd, "near-limit", &o.nearLimit, cfg.NearLimit)
	applyBoolConfig(cmd, "enforce-limit", &o.enforceLimit, cfg.EnforceLimit)
	applyStringConfig(cmd, "output-dir", &o.outputDir, cfg.OutputDir)
	applyStringConfig(cmd, "format", &o.exportFormat, cfg.ExportFormat)
	applyStringConfig(cmd, "device", &o.device, cfg.Device)
	applyStringConfig(cmd, "audio-device", &o.audioDevice, cfg.AudioDevice)
	applyBoolConfig(cmd, "audio", &o.audio, cfg.Audio)
	applyIntConfig(cmd, "width", &o.width, cfg.Width)
	applyIntConfig(cmd, "height", &o.height, cfg.Height)
	applyIntConfig(cmd, "framerate", &o.frameRate, cfg.FrameRate)
	applyStringConfig(cmd, "log-file", &o.logFile, cfg.LogFile)
	return nil
}

func newConfigCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "config",
		Short: "Create/open config file",
		Args:  cobra.NoArgs,
		RunE:  runConfigCmd,
	}
}

func runConfigCmd(_ *cobra.Command, _ []string) error {
	path := config.DefaultConfigPath()
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}
	if _, err := os.Stat(path); err != nil {
		if !os.IsNotExist(err) {
			return fmt.Errorf("failed to stat config: %w", err)
		}
		if err := os.WriteFile(path, []byte(defaultConfigTemplate()), 0o644); err != nil {
			return fmt.Errorf("failed to write config: %w", err)
		}
	}

	editor := strings.TrimSpace(os.Getenv("EDITOR"))
	if editor == "" {
		editor = "vi"
	}
	parts := strings.Fields(editor)
	if len(parts) == 0 {
		return fmt.Errorf("editor command is empty")
	}
	cmd := exec.Command(parts[0], append(parts[1:], path)...)
	cmd.Stdin = os.Stdin
	cmd.Stdout = os.Stdout
	cmd.Stderr = os.Stderr
	if err := cmd.Run(); err != nil {
		return fmt.Errorf("failed to open editor: %w", err)
	}
	return nil
}

func newDevicesCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "devices",
		Short: "List video capture devices",
		Args:  cobra.NoArgs,
		RunE:  runDevicesCmd,
	}
}

func runDevicesCmd(cmd *cobra.Command, _ []string) error {
	devices, err := capture.ListVideoDevices("/dev")
	if err != nil {
		return err
	}
	if len(devices) == 0 {
		logErrln("No video devices found.")
		return fmt.Errorf("no video devices found")
	}
	for _, dev := range devices {
		if _, err := fmt.Fprintln(cmd.OutOrStdout(), dev); err != nil {
			return fmt.Errorf("failed to write output: %w", err)
		}
	}
	return nil
}

func newCaptionCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "caption [text...]",
		Short: "Wrap text into a caption of at most four lines",
		RunE:  runCaptionCmd,
	}
	cmd.Flags().IntVar(&captionWidth, "width", defaultCaptionWidth, "maximum characters per line")
	return cmd
}

func runCaptionCmd(cmd *cobra.Command, args []string) error {
	if captionWidth <= 0 {
		return fmt.Errorf("--width must be > 0")
	}
	text := strings.Join(args, " ")
	if len(args) == 0 {
		data, err := io.ReadAll(cmd.InOrStdin())
		if err != nil {
			return fmt.Errorf("failed to read stdin: %w", err)
		}
		text = string(data)
	}
	caption := layout.Caption(text, captionWidth)
	if caption == "" {
		return nil
	}
	if _, err := fmt.Fprintln(cmd.OutOrStdout(), caption); err != nil {
		return fmt.Errorf("failed to write output: %w", err)
	}
	return nil
}

func applyStringConfig(cmd *cobra.Command, name string, target, value *string) {
	if value == nil {
		return
	}
	if cmd.Flags().Changed(name) {
		return
	}
	*target = *value
}

func applyIntConfig(cmd *cobra.Command, name string, target, value *int) {
	if value == nil {
		return
	}
	if cmd.Flags().Changed(name) {
		return
	}
	*target = *value
}

func applyFloatConfig(cmd *cobra.Command, name string, target, value *float64) {
	if value == nil {
		return
	}
	if cmd.Flags().Changed(name) {
		return
	}
	*target = *value
}

func applyBoolConfig(cmd *cobra.Command, name string, target, value *bool) {
	if value == nil {
		return
	}
	if cmd.Flags().Changed(name) {
		return
	}
	*target = *value
}

func applyDurationConfig(cmd *cobra.Command, name string, target *time.Duration, value *string) error {
	if value == nil {
		return nil
	}
	if cmd.Flags().Changed(name) {
		return nil
	}
	d, err := time.ParseDuration(strings.TrimSpace(*value))
	if err != nil {
		return fmt.Errorf("invalid %s in config: %w", name, err)
	}
	*target = d
	return nil
}

func defaultConfigTemplate() string {
	def := capture.DefaultConstraints(runtime.GOOS)
	return fmt.Sprintf(`# prompter configuration
# Uncomment a value to enable it. CLI flags override config values.

[prompter]
# font-size = %d          # Font size (10-100)
# speed = %.1f             # Scroll speed (1-10)
# lead-in = %q          # Delay between start and scrolling
# max-seconds = %d        # Recording time budget
# near-limit = %d         # Elapsed seconds at which the border starts blinking
# enforce-limit = false   # Stop recording automatically at max-seconds
# output-dir = %q
# export-format = %q    # webm or mp4
# device = %q
# audio-device = %q
# audio = true
# width = %d
# height = %d
# framerate = %d
# log-file = %q
`,
		defaultFontSize,
		defaultSpeed,
		defaultLeadIn.String(),
		defaultMaxSeconds,
		defaultNearLimit,
		config.DefaultOutputDir(),
		defaultExportFormat,
		def.VideoDevice,
		def.AudioDevice,
		def.Width,
		def.Height,
		def.FrameRate,
		config.DefaultLogPath(),
	)
}

func validateSettings(s model.Settings) error {
	if s.FontSize < layout.MinFontSize || s.FontSize > layout.MaxFontSize {
		return fmt.Errorf("--font-size must be between %d and %d", layout.MinFontSize, layout.MaxFontSize)
	}
	if s.Speed < scroll.MinSpeed || s.Speed > scroll.MaxSpeed {
		return fmt.Errorf("--speed must be between %.0f and %.0f", scroll.MinSpeed, scroll.MaxSpeed)
	}
	if s.LeadIn < 0 {
		return fmt.Errorf("--lead-in must be >= 0")
	}
	if s.MaxSeconds <= 0 {
		return fmt.Errorf("--max-seconds must be > 0")
	}
	if s.NearLimit <= 0 || s.NearLimit > s.MaxSeconds {
		return fmt.Errorf("--near-limit must be between 1 and --max-seconds")
	}
	if s.ExportFormat != export.FormatWebM && s.ExportFormat != export.FormatMP4 {
		return fmt.Errorf("--format must be %s or %s", export.FormatWebM, export.FormatMP4)
	}
	if s.OutputDir == "" {
		return fmt.Errorf("--output-dir must not be empty")
	}
	if s.Capture.Width <= 0 || s.Capture.Height <= 0 {
		return fmt.Errorf("--width and --height must be > 0")
	}
	if s.Capture.FrameRate <= 0 {
		return fmt.Errorf("--framerate must be > 0")
	}
	return nil
}

func scriptName(args []string) string {
	if len(args) == 0 {
		return ""
	}
	return args[0]
}

func logErrf(format string, args ...any) {
	if _, err := fmt.Fprintf(os.Stderr, format, args...); err != nil {
		// Best-effort logging to stderr.
		_ = err
	}
}

func logErrln(args ...any) {
	if _, err := fmt.Fprintln(os.Stderr, args...); err != nil {
		// Best-effort logging to stderr.
		_ = err
	}
}
