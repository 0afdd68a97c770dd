package widget

// Progress is the state of the submission indicator. There is no streaming;
// the indicator jumps from started to complete after a successful response,
// or back to idle after any failure.
type Progress int

const (
	ProgressIdle Progress = iota
	ProgressStarted
	ProgressComplete
)

func (p Progress) String() string {
	switch p {
	case ProgressStarted:
		return "started"
	case ProgressComplete:
		return "complete"
	default:
		return "idle"
	}
}

// View is the front end a Widget drives. Implementations must be safe to
// call from the goroutine running a submission.
type View interface {
	SetStatus(msg string, level StatusLevel)
	SetDragActive(active bool)
	SetSubmitEnabled(enabled bool)
	SetProgress(p Progress)
	ShowResults(r Rendering)
	ShowError(msg string)
}

// Command is a user action dispatched to a Widget.
type Command interface {
	command()
}

// FilesChosen comes from the native file picker.
type FilesChosen struct{ Files []File }

// DragEnter, DragOver and DragLeave drive the drop target affordance.
type DragEnter struct{}
type DragOver struct{}
type DragLeave struct{}

// Drop carries files dropped on the target.
type Drop struct{ Files []File }

// Submit sends the current selection.
type Submit struct{}

func (FilesChosen) command() {}
func (DragEnter) command()   {}
func (DragOver) command()    {}
func (DragLeave) command()   {}
func (Drop) command()        {}
func (Submit) command()      {}
