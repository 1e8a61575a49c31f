// Package tui provides the Bubble Tea teleprompter interface.
package tui

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/textarea"
	tea "github.com/charmbracelet/bubbletea"
	"go.uber.org/zap"

	"github.com/verte-zerg/prompter/internal/capture"
	"github.com/verte-zerg/prompter/internal/layout"
	"github.com/verte-zerg/prompter/internal/model"
	"github.com/verte-zerg/prompter/internal/scroll"
	"github.com/verte-zerg/prompter/internal/session"
	"github.com/verte-zerg/prompter/internal/store"
)

const (
	frameInterval  = 50 * time.Millisecond
	blinkInterval  = 500 * time.Millisecond
	errorLifetime  = 5 * time.Second
	fontStep       = 2
	excerptColumns = 24
	placeholder    = "Type your script here..."
)

// Controller is the session lifecycle the interface drives.
type Controller interface {
	Start(ctx context.Context, cue session.Cue) error
	Rehearse(cue session.Cue)
	Stop(ctx context.Context) (model.Take, error)
	AdjustSpeed(delta float64) float64
	Snapshot() session.Snapshot
	Close()
}

// Exporter writes a clip to its destination file.
type Exporter interface {
	Write(ctx context.Context, clip []byte) (string, error)
}

// Options configures NewModel.
type Options struct {
	Script     string
	Title      string
	FontSize   int
	Controller Controller
	Ledger     Ledger
	Exporter   Exporter
	Logger     *zap.Logger
}

// Model implements the Bubble Tea teleprompter UI.
type Model struct {
	ctrl     Controller
	ledger   Ledger
	exporter Exporter
	logger   *zap.Logger

	keys   keyMap
	help   help.Model
	editor textarea.Model
	title  string

	width    int
	height   int
	fontSize int

	snap    session.Snapshot
	active  bool
	pending bool
	framing bool
	blink   bool
	takes   []model.Take

	status   string
	errMsg   string
	errSeq   int
	quitting bool

	tick func(time.Duration, func(time.Time) tea.Msg) tea.Cmd
}

// NewModel constructs the teleprompter model in the editing state.
func NewModel(opts Options) *Model {
	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	editor := textarea.New()
	editor.Placeholder = placeholder
	editor.Prompt = ""
	editor.ShowLineNumbers = false
	editor.CharLimit = 0
	editor.MaxHeight = 0
	editor.SetValue(opts.Script)
	editor.Focus()

	fontSize := opts.FontSize
	if fontSize == 0 {
		fontSize = layout.ReferenceFontSize
	}

	m := &Model{
		ctrl:     opts.Controller,
		ledger:   opts.Ledger,
		exporter: opts.Exporter,
		logger:   logger.Named("tui"),
		keys:     defaultKeys(),
		help:     help.New(),
		editor:   editor,
		title:    opts.Title,
		fontSize: layout.ClampFontSize(fontSize),
		tick:     tea.Tick,
	}
	m.snap = m.ctrl.Snapshot()
	m.keys.sync(true, false)
	return m
}

// Init implements tea.Model.
func (m *Model) Init() tea.Cmd {
	return textarea.Blink
}

// Update implements tea.Model.
func (m *Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.help.Width = msg.Width
		m.resizeEditor()
		return m, nil
	case tea.KeyMsg:
		return m.handleKey(msg)
	case tea.MouseMsg:
		return m.handleMouse(msg)
	case frameMsg:
		m.framing = false
		m.blink = time.Time(msg).UnixMilli()/blinkInterval.Milliseconds()%2 == 0
		cmd := m.sync()
		if m.pending || !m.snap.Editing() {
			return m, tea.Batch(cmd, m.frame())
		}
		return m, cmd
	case startedMsg:
		m.pending = false
		if msg.err != nil {
			m.active = false
		}
		m.sync()
		if msg.err != nil {
			m.editor.Focus()
			return m, m.setError(describeStartError(msg.err))
		}
		m.status = "recording"
		return m, m.frame()
	case stoppedMsg:
		m.pending = false
		m.active = false
		m.sync()
		m.editor.Focus()
		cmds := []tea.Cmd{m.loadTakes()}
		switch {
		case msg.err != nil:
			cmds = append(cmds, m.setError(fmt.Sprintf("take saved without video: %v", msg.err)))
		case msg.take.Mode == model.ModeRecord:
			m.status = fmt.Sprintf("take recorded (%s)", formatClock(msg.take.Elapsed))
		case msg.take.Mode == model.ModeRehearse:
			m.status = "scroll test finished"
		default:
			m.status = "stopped"
		}
		return m, tea.Batch(cmds...)
	case exportedMsg:
		m.pending = false
		if msg.err != nil {
			return m, m.setError(fmt.Sprintf("export failed: %v", msg.err))
		}
		m.status = "saved " + msg.path
		return m, m.loadTakes()
	case takesLoadedMsg:
		if msg.err != nil {
			m.logger.Warn("failed to load takes", zap.Error(msg.err))
			return m, nil
		}
		m.takes = msg.takes
		m.keys.sync(m.snap.Editing(), m.hasClip())
		m.resizeEditor()
		return m, nil
	case clearErrorMsg:
		if msg.seq == m.errSeq {
			m.errMsg = ""
		}
		return m, nil
	}

	if m.snap.Editing() {
		var cmd tea.Cmd
		m.editor, cmd = m.editor.Update(msg)
		return m, cmd
	}
	return m, nil
}

func (m *Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keys.Quit):
		m.quitting = true
		m.ctrl.Close()
		return m, tea.Quit
	case key.Matches(msg, m.keys.Help):
		m.help.ShowAll = !m.help.ShowAll
		m.resizeEditor()
		return m, nil
	case key.Matches(msg, m.keys.Record):
		if m.snap.Editing() {
			return m, m.startRecording()
		}
		return m, m.stopSession()
	case key.Matches(msg, m.keys.Rehearse):
		if m.snap.Editing() {
			return m, m.startRehearsal()
		}
		return m, m.stopSession()
	case key.Matches(msg, m.keys.Stop):
		return m, m.stopSession()
	case key.Matches(msg, m.keys.Export):
		return m, m.export()
	case key.Matches(msg, m.keys.FontUp):
		m.setFontSize(m.fontSize + fontStep)
		return m, nil
	case key.Matches(msg, m.keys.FontDown):
		m.setFontSize(m.fontSize - fontStep)
		return m, nil
	case key.Matches(msg, m.keys.Faster):
		m.adjustSpeed(scroll.SpeedStep)
		return m, nil
	case key.Matches(msg, m.keys.Slower):
		m.adjustSpeed(-scroll.SpeedStep)
		return m, nil
	}
	if !m.snap.Editing() || m.pending {
		return m, nil
	}
	var cmd tea.Cmd
	m.editor, cmd = m.editor.Update(msg)
	return m, cmd
}

func (m *Model) handleMouse(msg tea.MouseMsg) (tea.Model, tea.Cmd) {
	switch msg.Button {
	case tea.MouseButtonWheelUp:
		m.adjustSpeed(scroll.SpeedStep)
	case tea.MouseButtonWheelDown:
		m.adjustSpeed(-scroll.SpeedStep)
	}
	return m, nil
}

func (m *Model) startRecording() tea.Cmd {
	if m.pending {
		return nil
	}
	m.pending = true
	m.errMsg = ""
	m.status = "opening camera"
	m.editor.Blur()
	cue := m.cue()
	ctrl := m.ctrl
	start := func() tea.Msg {
		return startedMsg{err: ctrl.Start(context.Background(), cue)}
	}
	return tea.Batch(start, m.frame())
}

func (m *Model) startRehearsal() tea.Cmd {
	if m.pending {
		return nil
	}
	m.errMsg = ""
	m.status = "scroll test"
	m.editor.Blur()
	m.ctrl.Rehearse(m.cue())
	m.sync()
	return m.frame()
}

func (m *Model) stopSession() tea.Cmd {
	if m.pending || m.snap.Editing() {
		return nil
	}
	m.pending = true
	m.status = "stopping"
	ctrl := m.ctrl
	return func() tea.Msg {
		take, err := ctrl.Stop(context.Background())
		return stoppedMsg{take: take, err: err}
	}
}

func (m *Model) export() tea.Cmd {
	if m.pending || !m.snap.Editing() || m.ledger == nil || m.exporter == nil {
		return nil
	}
	m.pending = true
	m.status = "exporting"
	ledger, exporter := m.ledger, m.exporter
	return func() tea.Msg {
		ctx := context.Background()
		take, err := ledger.LatestTake(ctx)
		if err != nil {
			return exportedMsg{err: err}
		}
		data, err := ledger.ClipData(ctx, take.ID)
		if err != nil {
			return exportedMsg{err: err}
		}
		path, err := exporter.Write(ctx, data)
		if err != nil {
			return exportedMsg{err: err}
		}
		if err := ledger.SetExportPath(ctx, take.ID, path); err != nil {
			return exportedMsg{path: path, err: err}
		}
		return exportedMsg{path: path}
	}
}

func (m *Model) loadTakes() tea.Cmd {
	if m.ledger == nil {
		return nil
	}
	ledger := m.ledger
	return func() tea.Msg {
		takes, err := ledger.ListTakes(context.Background())
		return takesLoadedMsg{takes: takes, err: err}
	}
}

// sync refreshes the snapshot and reports a session that ended on its own.
func (m *Model) sync() tea.Cmd {
	m.snap = m.ctrl.Snapshot()
	var cmd tea.Cmd
	if !m.snap.Editing() {
		m.active = true
	} else if m.active && !m.pending {
		m.active = false
		m.editor.Focus()
		m.status = "session ended"
		if m.snap.LimitReached {
			m.status = "recording stopped at the time limit"
		}
		if m.snap.LastErr != nil {
			cmd = m.setError(m.snap.LastErr.Error())
		}
		cmd = tea.Batch(cmd, m.loadTakes())
	}
	m.keys.sync(m.snap.Editing(), m.hasClip())
	return cmd
}

func (m *Model) cue() session.Cue {
	text := m.editor.Value()
	lines := layout.Wrap(text, m.columns())
	return session.Cue{
		Geometry: model.Geometry{
			ContentHeight:  float64(len(lines)) * scroll.RowPitch,
			ViewportHeight: float64(m.bodyRows()) * scroll.RowPitch,
		},
		FontSize: m.fontSize,
		Excerpt:  layout.Caption(text, excerptColumns),
	}
}

// setFontSize is ignored outside editing: the scroll bound is fixed from the
// wrapped script when a session starts.
func (m *Model) setFontSize(size int) {
	if !m.snap.Editing() || m.pending {
		return
	}
	m.fontSize = layout.ClampFontSize(size)
	m.resizeEditor()
}

func (m *Model) adjustSpeed(delta float64) {
	speed := m.ctrl.AdjustSpeed(delta)
	m.snap.Speed = speed
}

func (m *Model) setError(text string) tea.Cmd {
	m.errSeq++
	m.errMsg = text
	seq := m.errSeq
	return m.tick(errorLifetime, func(time.Time) tea.Msg {
		return clearErrorMsg{seq: seq}
	})
}

func (m *Model) hasClip() bool {
	for _, take := range m.takes {
		if take.HasClip() {
			return true
		}
	}
	return false
}

func (m *Model) resizeEditor() {
	width := m.columns()
	if panel := m.takesPanelWidth(); panel > 0 && width > m.innerWidth()-panel-1 {
		width = m.innerWidth() - panel - 1
	}
	if width < 1 {
		width = 1
	}
	m.editor.SetWidth(width)
	m.editor.SetHeight(m.bodyRows())
}

// frame schedules the next redraw; only one frame tick is in flight at a time.
func (m *Model) frame() tea.Cmd {
	if m.framing {
		return nil
	}
	m.framing = true
	return m.tick(frameInterval, func(t time.Time) tea.Msg {
		return frameMsg(t)
	})
}

func describeStartError(err error) string {
	switch {
	case errors.Is(err, session.ErrClosed):
		return "session closed"
	case errors.Is(err, capture.ErrPermissionDenied):
		return "camera access denied: " + err.Error()
	case errors.Is(err, capture.ErrDeviceUnavailable):
		return "camera unavailable: " + err.Error()
	default:
		return err.Error()
	}
}

var _ Ledger = (*store.Store)(nil)
