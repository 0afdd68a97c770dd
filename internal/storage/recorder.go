package storage

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/runger/hiconvert/internal/widget"
)

// Recorder adapts a Store to widget.Recorder.
type Recorder struct {
	store Store
	newID func() string
}

// NewRecorder returns a Recorder writing to store.
func NewRecorder(store Store) *Recorder {
	return &Recorder{store: store, newID: uuid.NewString}
}

// RecordSubmission implements widget.Recorder.
func (r *Recorder) RecordSubmission(ctx context.Context, rec widget.SubmissionRecord) error {
	sub := FromRecord(r.newID(), rec)
	if err := r.store.CreateSubmission(ctx, sub); err != nil {
		return fmt.Errorf("failed to record submission: %w", err)
	}
	return nil
}

// FromRecord converts a finished widget submission into a Submission.
func FromRecord(id string, rec widget.SubmissionRecord) *Submission {
	sub := &Submission{
		SubmissionID:    id,
		StartedAtUnixMs: rec.StartedAt.UnixMilli(),
		EndedAtUnixMs:   rec.EndedAt.UnixMilli(),
		DurationMs:      rec.EndedAt.Sub(rec.StartedAt).Milliseconds(),
		Endpoint:        rec.Endpoint,
		FileCount:       len(rec.Files),
		Files:           append([]string(nil), rec.Files...),
		Status:          StatusSuccess,
	}

	if rec.Err != nil || rec.Rendering == nil {
		sub.Status = StatusError
		sub.Error = widget.UserMessage(rec.Err)
		return sub
	}

	sub.Notice = rec.Rendering.Notice
	for _, e := range rec.Rendering.Entries {
		sub.Outcomes = append(sub.Outcomes, Outcome{
			File:        e.File,
			Message:     e.Message,
			Status:      e.Status,
			CSVPath:     e.CSVPath,
			DownloadURL: e.DownloadURL,
		})
	}
	return sub
}

// Prune removes submissions older than retention. A zero retention keeps everything.
func Prune(ctx context.Context, store Store, retention time.Duration, now time.Time) (int64, error) {
	if retention <= 0 {
		return 0, nil
	}
	return store.PruneSubmissions(ctx, now.Add(-retention).UnixMilli())
}
