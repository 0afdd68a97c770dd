package widget

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"sync/atomic"
	"time"
)

// Options configures a Widget.
type Options struct {
	Endpoint     string // Absolute URL of the process endpoint
	DownloadBase string // Prefix for download links
	FieldName    string // Defaults to FieldSingle or FieldMulti
	Multiple     bool
	AcceptJSON   bool

	Predicate        Predicate // nil accepts every file
	FilterUpload     bool      // Send only accepted files
	ResetAfterSubmit bool      // Clear the selection once a request completes
	MaxFileBytes     int64     // 0 disables the size check

	Client   *http.Client
	Opener   Opener
	Logger   *slog.Logger
	Recorder Recorder
}

// Recorder persists the outcome of every submission that reached the network.
type Recorder interface {
	RecordSubmission(ctx context.Context, rec SubmissionRecord) error
}

// SubmissionRecord describes one finished submission.
type SubmissionRecord struct {
	StartedAt time.Time
	EndedAt   time.Time
	Endpoint  string
	Files     []string
	Rendering *Rendering // nil on failure
	Err       error
}

// Widget is one upload widget instance bound to a View.
type Widget struct {
	view      View
	opts      Options
	selection selectionManager
	sub       submitter
	logger    *slog.Logger
	inflight  atomic.Bool
}

// New creates a Widget. The submit control starts enabled.
func New(view View, opts Options) *Widget {
	if opts.Client == nil {
		// No timeout: a submission runs until it completes or fails.
		opts.Client = &http.Client{}
	}
	if opts.Opener == nil {
		opts.Opener = OpenFromDisk
	}
	if opts.FieldName == "" {
		opts.FieldName = FieldSingle
		if opts.Multiple {
			opts.FieldName = FieldMulti
		}
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}

	return &Widget{
		view: view,
		opts: opts,
		selection: selectionManager{
			predicate: opts.Predicate,
			multiple:  opts.Multiple,
		},
		sub: submitter{
			client:     opts.Client,
			endpoint:   opts.Endpoint,
			field:      opts.FieldName,
			acceptJSON: opts.AcceptJSON,
			open:       opts.Opener,
		},
		logger: logger,
	}
}

// Dispatch applies one user command. Only Submit can fail. Its errors have
// already been shown through the View, except ErrBusy, which leaves the View
// untouched so the running submission's display is kept.
func (w *Widget) Dispatch(ctx context.Context, cmd Command) error {
	switch c := cmd.(type) {
	case FilesChosen:
		w.Choose(c.Files)
	case DragEnter, DragOver:
		w.view.SetDragActive(true)
	case DragLeave:
		w.view.SetDragActive(false)
	case Drop:
		w.view.SetDragActive(false)
		w.Choose(c.Files)
	case Submit:
		_, err := w.Submit(ctx)
		return err
	default:
		return fmt.Errorf("unknown command %T", cmd)
	}
	return nil
}

// Choose replaces the selection and updates the status line.
func (w *Widget) Choose(files []File) {
	msg, level := w.selection.replace(files)
	w.logger.Debug("selection changed", "files", len(files))
	w.view.SetStatus(msg, level)
}

// Selection returns a copy of the current selection.
func (w *Widget) Selection() []File {
	return w.selection.snapshot()
}

// Busy reports whether a submission is in flight.
func (w *Widget) Busy() bool {
	return w.inflight.Load()
}

// Submit validates the selection, posts it, and renders the outcome.
// At most one submission runs at a time; a concurrent call gets ErrBusy
// without touching the network or the View.
func (w *Widget) Submit(ctx context.Context) (rendering *Rendering, err error) {
	if !w.inflight.CompareAndSwap(false, true) {
		return nil, ErrBusy
	}
	defer w.inflight.Store(false)

	files, err := w.uploadSet()
	if err != nil {
		w.view.ShowError(UserMessage(err))
		return nil, err
	}

	w.view.SetSubmitEnabled(false)
	w.view.SetProgress(ProgressStarted)
	started := time.Now()
	sent := names(files)

	defer func() {
		if rendering != nil {
			w.view.SetProgress(ProgressComplete)
		} else {
			w.view.SetProgress(ProgressIdle)
		}
		if w.opts.ResetAfterSubmit {
			w.selection.clear()
		}
		w.record(ctx, SubmissionRecord{
			StartedAt: started,
			EndedAt:   time.Now(),
			Endpoint:  w.opts.Endpoint,
			Files:     sent,
			Rendering: rendering,
			Err:       err,
		})
		w.view.SetSubmitEnabled(true)
	}()

	w.logger.Info("submitting files", "endpoint", w.opts.Endpoint, "files", len(files))

	resp, err := w.sub.send(ctx, files)
	if err != nil {
		w.logger.Error("process request failed", "error", err)
		w.view.ShowError(UserMessage(err))
		return nil, err
	}

	pr, err := Interpret(resp, sent, w.logger)
	if err != nil {
		w.logger.Warn("process request rejected", "status", resp.StatusCode, "error", err)
		w.view.ShowError(UserMessage(err))
		return nil, err
	}

	r := Render(pr, w.opts.DownloadBase)
	w.logger.Info("process request complete",
		"entries", len(r.Entries),
		"duration_ms", time.Since(started).Milliseconds(),
	)
	w.view.ShowResults(r)
	if r.HasList() {
		w.view.SetStatus(fmt.Sprintf("%d file(s) processed", len(r.Entries)), StatusSuccess)
	}
	return &r, nil
}

// uploadSet applies the pre-submission guard and returns the files to send.
func (w *Widget) uploadSet() ([]File, error) {
	files := w.selection.snapshot()
	if len(files) == 0 {
		return nil, &ValidationError{Msg: MsgNoFileSelected}
	}

	part := Split(files, w.opts.Predicate)
	if len(part.Accepted) == 0 {
		return nil, &ValidationError{Msg: noMatchMessage(len(files))}
	}
	if w.opts.FilterUpload {
		files = part.Accepted
	}

	if w.opts.MaxFileBytes > 0 {
		for _, f := range files {
			if f.Size > w.opts.MaxFileBytes {
				return nil, &ValidationError{
					Msg: fmt.Sprintf("%s is too large (%d bytes, limit %d)", f.Name, f.Size, w.opts.MaxFileBytes),
				}
			}
		}
	}
	return files, nil
}

func (w *Widget) record(ctx context.Context, rec SubmissionRecord) {
	if w.opts.Recorder == nil {
		return
	}
	if err := w.opts.Recorder.RecordSubmission(context.WithoutCancel(ctx), rec); err != nil {
		w.logger.Warn("failed to record submission", "error", err)
	}
}
