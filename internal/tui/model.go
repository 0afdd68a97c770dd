// Package tui is the interactive terminal front end for the upload widget.
//
// The terminal has no drag events, so a bracketed paste stands in for a drop:
// dragging files onto most terminal emulators pastes their paths.
package tui

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/charmbracelet/bubbles/progress"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/runger/hiconvert/internal/download"
	"github.com/runger/hiconvert/internal/widget"
)

// uiState is the phase of the current submission, as reported by the widget.
type uiState int

const (
	stateIdle       uiState = iota // Nothing submitted yet
	stateSubmitting                // Request in flight
	stateDone                      // Results shown
	stateFailed                    // Error shown
)

// Downloader saves a result artifact locally.
type Downloader interface {
	Fetch(ctx context.Context, rawURL, dir string) (*download.Result, error)
}

// Options configures the model beyond the widget itself.
type Options struct {
	Downloader  Downloader // nil disables ctrl+d
	DownloadDir string
	Logger      *slog.Logger
}

// selectionMsg carries the widget selection after a choose or drop.
type selectionMsg struct {
	files []widget.File
	err   error // Path resolution failure; selection unchanged
}

// submitDoneMsg is sent when widget.Submit returns.
type submitDoneMsg struct {
	files []widget.File
	err   error
}

// downloadDoneMsg is sent when a download finishes.
type downloadDoneMsg struct {
	file   string
	result *download.Result
	err    error
}

// Model is the Bubble Tea model for the upload screen.
type Model struct {
	ctx    context.Context
	w      *widget.Widget
	view   *eventView
	wopts  widget.Options
	opts   Options
	logger *slog.Logger

	state         uiState
	status        string
	statusLevel   widget.StatusLevel
	dragActive    bool
	submitEnabled bool
	progress      widget.Progress
	errText       string
	rendering     *widget.Rendering

	files  []widget.File
	cursor int // Index into rendering.Entries

	// notice is a one-line message about the last local action (download, bad path).
	notice    string
	noticeErr bool

	input textinput.Model
	bar   progress.Model

	width  int
	height int

	initial  []string // Paths chosen on startup
	quitting bool
}

// NewModel creates the widget and its terminal view.
func NewModel(ctx context.Context, wopts widget.Options, opts Options) Model {
	logger := opts.Logger
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	if wopts.Logger == nil {
		wopts.Logger = logger
	}

	v := newEventView()

	ti := textinput.New()
	ti.Prompt = "> "
	ti.Placeholder = "path/to/plan.pdf"
	ti.PromptStyle = queryStyle
	ti.Focus()

	return Model{
		ctx:           ctx,
		w:             widget.New(v, wopts),
		view:          v,
		wopts:         wopts,
		opts:          opts,
		logger:        logger,
		submitEnabled: true,
		input:         ti,
		bar:           progress.New(progress.WithDefaultGradient(), progress.WithoutPercentage()),
	}
}

// Close unblocks any widget goroutine still reporting to the model.
// Call it after the program exits.
func (m Model) Close() {
	m.view.stop()
}

// WithPaths returns a copy of m that chooses paths on startup.
func (m Model) WithPaths(paths []string) Model {
	m.initial = append([]string(nil), paths...)
	return m
}

// Init implements tea.Model.
func (m Model) Init() tea.Cmd {
	cmds := []tea.Cmd{textinput.Blink, m.view.wait()}
	if len(m.initial) > 0 {
		ctx, w, paths := m.ctx, m.w, m.initial
		cmds = append(cmds, func() tea.Msg { return choosePaths(ctx, w, paths) })
	}
	return tea.Batch(cmds...)
}

// Update implements tea.Model.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		return m.handleKey(msg)

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.bar.Width = max(10, min(m.contentWidth()-16, 60))
		m.input.Width = m.contentWidth() - 4
		return m, nil

	case statusMsg, dragMsg, submitEnabledMsg, progressMsg, resultsMsg, errorMsg:
		m = m.applyViewMsg(msg)
		return m, m.view.wait()

	case selectionMsg:
		if msg.err != nil {
			m.setNotice(msg.err.Error(), true)
			return m, nil
		}
		m.files = msg.files
		m.notice = ""
		return m, nil

	case submitDoneMsg:
		m.files = msg.files
		if errors.Is(msg.err, widget.ErrBusy) {
			m.setNotice(widget.UserMessage(msg.err), true)
		}
		return m, nil

	case downloadDoneMsg:
		if msg.err != nil {
			m.logger.Warn("download failed", "file", msg.file, "error", msg.err)
			m.setNotice(fmt.Sprintf("Download of %s failed: %v", msg.file, msg.err), true)
			return m, nil
		}
		m.setNotice(fmt.Sprintf("Saved %s (%s)", msg.result.Path, formatBytes(msg.result.Bytes)), false)
		return m, nil
	}

	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

// applyViewMsg folds one widget update into the model.
func (m Model) applyViewMsg(msg tea.Msg) Model {
	switch msg := msg.(type) {
	case statusMsg:
		m.status = msg.text
		m.statusLevel = msg.level
	case dragMsg:
		m.dragActive = msg.active
	case submitEnabledMsg:
		m.submitEnabled = msg.enabled
	case progressMsg:
		m.progress = msg.progress
		if msg.progress == widget.ProgressStarted {
			m.state = stateSubmitting
			m.errText = ""
		}
	case resultsMsg:
		r := msg.rendering
		m.rendering = &r
		m.cursor = 0
		m.state = stateDone
		m.errText = ""
	case errorMsg:
		m.errText = msg.text
		m.state = stateFailed
	}
	return m
}

// handleKey processes keyboard input.
func (m Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if msg.Paste {
		return m, m.dropCmd(string(msg.Runes))
	}

	switch msg.Type {
	case tea.KeyEsc, tea.KeyCtrlC:
		m.quitting = true
		return m, tea.Quit

	case tea.KeyEnter:
		text := strings.TrimSpace(m.input.Value())
		if text == "" {
			return m.submit()
		}
		m.input.SetValue("")
		return m, m.chooseCmd(text)

	case tea.KeyCtrlS:
		return m.submit()

	case tea.KeyUp:
		if m.cursor > 0 {
			m.cursor--
		}
		return m, nil

	case tea.KeyDown:
		if m.rendering != nil && m.cursor < len(m.rendering.Entries)-1 {
			m.cursor++
		}
		return m, nil

	case tea.KeyCtrlD:
		return m.download()
	}

	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

// submit starts a submission unless the submit control is disabled.
func (m Model) submit() (tea.Model, tea.Cmd) {
	if !m.submitEnabled {
		return m, nil
	}
	ctx, w := m.ctx, m.w
	return m, func() tea.Msg {
		_, err := w.Submit(ctx)
		return submitDoneMsg{files: w.Selection(), err: err}
	}
}

// chooseCmd resolves typed paths and replaces the selection, like a file picker.
func (m Model) chooseCmd(text string) tea.Cmd {
	ctx, w := m.ctx, m.w
	return func() tea.Msg {
		paths, err := ParsePaths(text)
		if err != nil {
			return selectionMsg{err: err}
		}
		return choosePaths(ctx, w, paths)
	}
}

func choosePaths(ctx context.Context, w *widget.Widget, paths []string) tea.Msg {
	files, err := widget.FilesFromPaths(paths)
	if err != nil {
		return selectionMsg{err: err}
	}
	if err := w.Dispatch(ctx, widget.FilesChosen{Files: files}); err != nil {
		return selectionMsg{err: err}
	}
	return selectionMsg{files: w.Selection()}
}

// dropCmd treats pasted text as files dropped on the target. The drop
// affordance is shown while the paths are resolved.
func (m Model) dropCmd(text string) tea.Cmd {
	ctx, w := m.ctx, m.w
	return func() tea.Msg {
		_ = w.Dispatch(ctx, widget.DragEnter{})
		files, err := resolve(text)
		if err != nil {
			_ = w.Dispatch(ctx, widget.DragLeave{})
			return selectionMsg{err: err}
		}
		if len(files) == 0 {
			_ = w.Dispatch(ctx, widget.DragLeave{})
			return selectionMsg{files: w.Selection()}
		}
		_ = w.Dispatch(ctx, widget.Drop{Files: files})
		return selectionMsg{files: w.Selection()}
	}
}

func resolve(text string) ([]widget.File, error) {
	paths, err := ParsePaths(text)
	if err != nil {
		return nil, err
	}
	return widget.FilesFromPaths(paths)
}

// download fetches the artifact of the highlighted result.
func (m Model) download() (tea.Model, tea.Cmd) {
	if m.rendering == nil || m.cursor >= len(m.rendering.Entries) {
		return m, nil
	}
	e := m.rendering.Entries[m.cursor]
	if e.DownloadURL == "" {
		m.setNotice(fmt.Sprintf("%s has no file to download", e.File), true)
		return m, nil
	}
	if m.opts.Downloader == nil {
		m.setNotice("Downloads are disabled", true)
		return m, nil
	}

	ctx, dl, dir := m.ctx, m.opts.Downloader, m.opts.DownloadDir
	m.setNotice("Downloading "+e.File+"...", false)
	return m, func() tea.Msg {
		res, err := dl.Fetch(ctx, e.DownloadURL, dir)
		return downloadDoneMsg{file: e.File, result: res, err: err}
	}
}

func (m *Model) setNotice(text string, isErr bool) {
	m.notice = text
	m.noticeErr = isErr
}

// contentWidth is the usable width inside the window.
func (m Model) contentWidth() int {
	if m.width <= 0 {
		return 80 // Before the first WindowSizeMsg
	}
	return m.width
}

// --- View rendering ---

var (
	titleStyle    = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("15")).Background(lipgloss.Color("62")).Padding(0, 1)
	selectedStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("15"))
	normalStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("252"))
	queryStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("214"))
	warnStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("214"))
	errorStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("196"))
	successStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("42"))
	dimStyle      = lipgloss.NewStyle().Foreground(lipgloss.Color("241"))

	dropZoneStyle = lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(lipgloss.Color("241")).
		Padding(0, 2)

	dropZoneActiveStyle = dropZoneStyle.BorderForeground(lipgloss.Color("214"))

	buttonStyle         = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("15")).Background(lipgloss.Color("62")).Padding(0, 1)
	buttonDisabledStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("245")).Background(lipgloss.Color("236")).Padding(0, 1)
)

const helpText = "enter: add paths / submit  ctrl+s: submit  ↑/↓: select result  ctrl+d: download  esc: quit"

// View implements tea.Model.
func (m Model) View() string {
	if m.quitting {
		return ""
	}

	var b strings.Builder
	b.WriteString(titleStyle.Render("hiconvert"))
	b.WriteString(dimStyle.Render("  " + Truncate(m.wopts.Endpoint, m.contentWidth()-14)))
	b.WriteString("\n\n")

	b.WriteString(m.viewDropZone())
	b.WriteString("\n")
	b.WriteString(m.viewSelection())
	b.WriteString(m.input.View())
	b.WriteString("\n\n")
	b.WriteString(m.viewControls())
	b.WriteString("\n")

	if m.state == stateFailed && m.errText != "" {
		b.WriteString("\n")
		b.WriteString(errorStyle.Render(Truncate(Clean(m.errText), m.contentWidth())))
		b.WriteString("\n")
	}
	if m.rendering != nil {
		b.WriteString("\n")
		b.WriteString(m.viewResults())
	}
	if m.notice != "" {
		style := dimStyle
		if m.noticeErr {
			style = warnStyle
		}
		b.WriteString("\n")
		b.WriteString(style.Render(Truncate(m.notice, m.contentWidth())))
		b.WriteString("\n")
	}

	b.WriteString("\n")
	b.WriteString(dimStyle.Render(Truncate(helpText, m.contentWidth())))
	return b.String()
}

func (m Model) viewDropZone() string {
	style, hint := dropZoneStyle, "Drop files here, or type paths below"
	if m.dragActive {
		style, hint = dropZoneActiveStyle, "Release to select"
	}
	inner := m.contentWidth() - 6
	lines := []string{normalStyle.Render(Truncate(hint, inner))}
	if m.status != "" {
		lines = append(lines, levelStyle(m.statusLevel).Render(Truncate(m.status, inner)))
	}
	return style.Width(inner).Render(strings.Join(lines, "\n"))
}

func (m Model) viewSelection() string {
	if len(m.files) == 0 {
		return ""
	}
	var b strings.Builder
	nameWidth := m.contentWidth() - 16
	for _, f := range m.files {
		name := MiddleTruncate(Clean(f.Name), nameWidth)
		line := "  " + name + dimStyle.Render("  "+formatBytes(f.Size))
		if p := m.wopts.Predicate; p != nil && !p.Accept(f) {
			line = dimStyle.Render("  "+name+"  ignored")
		}
		b.WriteString(line)
		b.WriteString("\n")
	}
	return b.String()
}

func (m Model) viewControls() string {
	button := buttonStyle.Render("Submit")
	if !m.submitEnabled {
		button = buttonDisabledStyle.Render("Submit")
	}

	switch m.progress {
	case widget.ProgressStarted:
		return button + "  " + m.bar.ViewAs(0) + dimStyle.Render(" uploading")
	case widget.ProgressComplete:
		return button + "  " + m.bar.ViewAs(1) + successStyle.Render(" done")
	default:
		return button
	}
}

func (m Model) viewResults() string {
	r := m.rendering
	if !r.HasList() {
		return normalStyle.Render(Truncate(Clean(r.Notice), m.contentWidth())) + "\n"
	}

	var b strings.Builder
	width := m.contentWidth() - 2
	for i, e := range r.Entries {
		line := Clean(e.File) + ": " + Clean(e.Message)
		if e.DownloadURL != "" {
			line += "  [" + Clean(e.CSVPath) + "]"
		}
		line = Truncate(line, width)

		switch {
		case i == m.cursor:
			b.WriteString(selectedStyle.Render("> " + line))
		case e.Status == "error":
			b.WriteString(errorStyle.Render("  " + line))
		default:
			b.WriteString(normalStyle.Render("  " + line))
		}
		b.WriteString("\n")
	}
	return b.String()
}

func levelStyle(level widget.StatusLevel) lipgloss.Style {
	switch level {
	case widget.StatusWarning:
		return warnStyle
	case widget.StatusError:
		return errorStyle
	case widget.StatusSuccess:
		return successStyle
	default:
		return normalStyle
	}
}

// formatBytes renders a size with a binary unit.
func formatBytes(n int64) string {
	const unit = 1024
	if n < unit {
		return fmt.Sprintf("%d B", n)
	}
	div, exp := int64(unit), 0
	for v := n / unit; v >= unit; v /= unit {
		div *= unit
		exp++
	}
	return fmt.Sprintf("%.1f %ciB", float64(n)/float64(div), "KMGTPE"[exp])
}
