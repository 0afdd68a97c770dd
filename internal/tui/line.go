package tui

import (
	"fmt"
	"io"
	"sync"

	"github.com/charmbracelet/lipgloss"
	"github.com/muesli/termenv"

	"github.com/runger/hiconvert/internal/widget"
)

// LineView implements widget.View for non-interactive use. Status, progress
// and errors are written as one line each; results are returned by Submit
// and printed by the caller with PrintResults.
type LineView struct {
	mu    sync.Mutex
	out   io.Writer
	width int

	info, warn, fail, ok, dim lipgloss.Style
}

// NewLineView writes to out using the given color profile. A width of zero
// disables truncation.
func NewLineView(out io.Writer, profile termenv.Profile, width int) *LineView {
	r := lipgloss.NewRenderer(out)
	r.SetColorProfile(profile)
	return &LineView{
		out:   out,
		width: width,
		info:  r.NewStyle(),
		warn:  r.NewStyle().Foreground(lipgloss.Color("214")),
		fail:  r.NewStyle().Foreground(lipgloss.Color("196")),
		ok:    r.NewStyle().Foreground(lipgloss.Color("42")),
		dim:   r.NewStyle().Foreground(lipgloss.Color("241")),
	}
}

func (v *LineView) println(style lipgloss.Style, text string) {
	text = Clean(text)
	if v.width > 0 {
		text = Truncate(text, v.width)
	}
	v.mu.Lock()
	defer v.mu.Unlock()
	fmt.Fprintln(v.out, style.Render(text))
}

func (v *LineView) SetStatus(text string, level widget.StatusLevel) {
	switch level {
	case widget.StatusWarning:
		v.println(v.warn, text)
	case widget.StatusError:
		v.println(v.fail, text)
	case widget.StatusSuccess:
		v.println(v.ok, text)
	default:
		v.println(v.info, text)
	}
}

func (v *LineView) SetDragActive(bool) {}

func (v *LineView) SetSubmitEnabled(bool) {}

func (v *LineView) SetProgress(p widget.Progress) {
	if p == widget.ProgressStarted {
		v.println(v.dim, "Uploading...")
	}
}

func (v *LineView) ShowResults(widget.Rendering) {}

func (v *LineView) ShowError(text string) {
	v.println(v.fail, "Error: "+text)
}

// PrintResults writes r as text: the notice alone, or one line per file with
// the download link indented below it.
func PrintResults(out io.Writer, r widget.Rendering, profile termenv.Profile) error {
	re := lipgloss.NewRenderer(out)
	re.SetColorProfile(profile)
	name := re.NewStyle().Bold(true)
	fail := re.NewStyle().Foreground(lipgloss.Color("196"))
	link := re.NewStyle().Foreground(lipgloss.Color("39"))

	if !r.HasList() {
		_, err := fmt.Fprintln(out, Clean(r.Notice))
		return err
	}

	for _, e := range r.Entries {
		msg := Clean(e.Message)
		if e.Status == "error" {
			msg = fail.Render(msg)
		}
		if _, err := fmt.Fprintf(out, "%s: %s\n", name.Render(Clean(e.File)), msg); err != nil {
			return err
		}
		if e.DownloadURL != "" {
			if _, err := fmt.Fprintf(out, "  %s\n", link.Render(e.DownloadURL)); err != nil {
				return err
			}
		}
	}
	return nil
}
