// Package storage provides SQLite-based persistent storage for hiconvert.
// It keeps a history of submissions and the per-file outcomes the
// conversion service reported for each of them.
package storage

import "context"

// Store defines the interface for all storage operations.
type Store interface {
	// Submissions
	CreateSubmission(ctx context.Context, s *Submission) error
	GetSubmission(ctx context.Context, submissionID string) (*Submission, error)
	GetSubmissionByPrefix(ctx context.Context, prefix string) (*Submission, error)
	QuerySubmissions(ctx context.Context, q SubmissionQuery) ([]Submission, error)
	PruneSubmissions(ctx context.Context, beforeUnixMs int64) (int64, error)

	// Lifecycle
	Close() error
}

// Submission statuses.
const (
	StatusSuccess = "success"
	StatusError   = "error"
)

// Submission is one request to the process endpoint.
type Submission struct {
	SubmissionID    string    `json:"submission_id"`
	StartedAtUnixMs int64     `json:"started_at_unix_ms"`
	EndedAtUnixMs   int64     `json:"ended_at_unix_ms"`
	DurationMs      int64     `json:"duration_ms"`
	Endpoint        string    `json:"endpoint"`
	FileCount       int       `json:"file_count"`
	Files           []string  `json:"files,omitempty"` // Names sent, in order; empty in query results
	Status          string    `json:"status"`          // success or error
	Error           string    `json:"error,omitempty"` // User-facing message when Status is error
	Notice          string    `json:"notice,omitempty"`
	Outcomes        []Outcome `json:"outcomes,omitempty"`
}

// Outcome is one per-file result of a successful submission.
type Outcome struct {
	Position    int    `json:"position"`
	File        string `json:"file"`
	Message     string `json:"message"`
	Status      string `json:"status,omitempty"` // success, error, or empty when the server did not say
	CSVPath     string `json:"csv_path,omitempty"`
	DownloadURL string `json:"download_url,omitempty"`
}

// SubmissionQuery defines parameters for querying submissions.
// Files and Outcomes are not loaded by QuerySubmissions; use GetSubmission.
type SubmissionQuery struct {
	Status    string // Only this status when set
	SinceMs   int64  // Started at or after, when > 0
	FileMatch string // Substring of a sent file name (case-insensitive)
	Limit     int
	Offset    int
}
