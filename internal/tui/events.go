package tui

import (
	"sync"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/runger/hiconvert/internal/widget"
)

// viewBuffer bounds the number of widget updates queued for the model.
const viewBuffer = 64

// Messages produced by the widget through eventView.
type (
	statusMsg struct {
		text  string
		level widget.StatusLevel
	}
	dragMsg          struct{ active bool }
	submitEnabledMsg struct{ enabled bool }
	progressMsg      struct{ progress widget.Progress }
	resultsMsg       struct{ rendering widget.Rendering }
	errorMsg         struct{ text string }
)

// eventView implements widget.View by queueing one tea.Msg per call.
// The widget calls it from command goroutines; the model drains the queue
// on the Bubble Tea goroutine, so model state is only mutated in Update.
type eventView struct {
	ch       chan tea.Msg
	done     chan struct{}
	stopOnce sync.Once
}

func newEventView() *eventView {
	return &eventView{
		ch:   make(chan tea.Msg, viewBuffer),
		done: make(chan struct{}),
	}
}

func (v *eventView) send(msg tea.Msg) {
	select {
	case v.ch <- msg:
	case <-v.done:
	}
}

// stop releases any widget goroutine blocked on a full queue.
func (v *eventView) stop() {
	v.stopOnce.Do(func() { close(v.done) })
}

// wait returns a command that delivers the next queued update.
func (v *eventView) wait() tea.Cmd {
	return func() tea.Msg {
		select {
		case msg := <-v.ch:
			return msg
		case <-v.done:
			return nil
		}
	}
}

func (v *eventView) SetStatus(text string, level widget.StatusLevel) {
	v.send(statusMsg{text: text, level: level})
}

func (v *eventView) SetDragActive(active bool) { v.send(dragMsg{active: active}) }

func (v *eventView) SetSubmitEnabled(enabled bool) { v.send(submitEnabledMsg{enabled: enabled}) }

func (v *eventView) SetProgress(p widget.Progress) { v.send(progressMsg{progress: p}) }

func (v *eventView) ShowResults(r widget.Rendering) { v.send(resultsMsg{rendering: r}) }

func (v *eventView) ShowError(text string) { v.send(errorMsg{text: text}) }
