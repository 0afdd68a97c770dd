package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
)

// ErrSubmissionNotFound is returned when a submission is not found.
var ErrSubmissionNotFound = errors.New("submission not found")

// ErrAmbiguousPrefix is returned when a prefix matches more than one submission.
var ErrAmbiguousPrefix = errors.New("submission id prefix is ambiguous")

const errSubmissionIDRequired = "submission_id is required"

// CreateSubmission stores a submission with its files and outcomes in one
// transaction.
func (s *SQLiteStore) CreateSubmission(ctx context.Context, sub *Submission) error {
	if sub == nil {
		return errors.New("submission cannot be nil")
	}
	if sub.SubmissionID == "" {
		return errors.New(errSubmissionIDRequired)
	}
	if sub.Endpoint == "" {
		return errors.New("endpoint is required")
	}
	if sub.Status != StatusSuccess && sub.Status != StatusError {
		return fmt.Errorf("invalid status: %q", sub.Status)
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	_, err = tx.ExecContext(ctx, `
		INSERT INTO submissions (
			submission_id, started_at_unix_ms, ended_at_unix_ms, duration_ms,
			endpoint, file_count, status, error, notice
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
	`,
		sub.SubmissionID,
		sub.StartedAtUnixMs,
		sub.EndedAtUnixMs,
		sub.DurationMs,
		sub.Endpoint,
		fileCount(sub),
		sub.Status,
		nullableString(sub.Error),
		nullableString(sub.Notice),
	)
	if err != nil {
		if isDuplicateKeyError(err) {
			return fmt.Errorf("submission with id %s already exists", sub.SubmissionID)
		}
		return fmt.Errorf("failed to create submission: %w", err)
	}

	for i, name := range sub.Files {
		if _, err := tx.ExecContext(ctx, `
			INSERT INTO submission_files (submission_id, position, name) VALUES (?, ?, ?)
		`, sub.SubmissionID, i, name); err != nil {
			return fmt.Errorf("failed to record file %s: %w", name, err)
		}
	}

	for i := range sub.Outcomes {
		o := &sub.Outcomes[i]
		o.Position = i
		if _, err := tx.ExecContext(ctx, `
			INSERT INTO outcomes (
				submission_id, position, file, message, status, csv_path, download_url
			) VALUES (?, ?, ?, ?, ?, ?, ?)
		`,
			sub.SubmissionID, i, o.File, o.Message,
			nullableString(o.Status),
			nullableString(o.CSVPath),
			nullableString(o.DownloadURL),
		); err != nil {
			return fmt.Errorf("failed to record outcome for %s: %w", o.File, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit submission: %w", err)
	}
	return nil
}

// GetSubmission loads a submission with its files and outcomes.
func (s *SQLiteStore) GetSubmission(ctx context.Context, submissionID string) (*Submission, error) {
	if submissionID == "" {
		return nil, errors.New(errSubmissionIDRequired)
	}

	row := s.db.QueryRowContext(ctx, `
		SELECT submission_id, started_at_unix_ms, ended_at_unix_ms, duration_ms,
		       endpoint, status, error, notice, file_count
		FROM submissions
		WHERE submission_id = ?
	`, submissionID)

	sub, err := scanSubmission(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrSubmissionNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get submission: %w", err)
	}

	if err := s.loadDetails(ctx, sub); err != nil {
		return nil, err
	}
	return sub, nil
}

// GetSubmissionByPrefix resolves a unique id prefix, as printed by
// `hiconvert history`, and loads the submission.
func (s *SQLiteStore) GetSubmissionByPrefix(ctx context.Context, prefix string) (*Submission, error) {
	if prefix == "" {
		return nil, errors.New(errSubmissionIDRequired)
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT submission_id FROM submissions WHERE submission_id LIKE ? ESCAPE '\' LIMIT 2
	`, escapeLike(prefix)+"%")
	if err != nil {
		return nil, fmt.Errorf("failed to resolve prefix: %w", err)
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("failed to scan submission id: %w", err)
		}
		ids = append(ids, id)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to resolve prefix: %w", err)
	}
	rows.Close()

	switch len(ids) {
	case 0:
		return nil, ErrSubmissionNotFound
	case 1:
		return s.GetSubmission(ctx, ids[0])
	default:
		return nil, ErrAmbiguousPrefix
	}
}

// QuerySubmissions lists submissions, newest first.
func (s *SQLiteStore) QuerySubmissions(ctx context.Context, q SubmissionQuery) ([]Submission, error) {
	query := `
		SELECT submission_id, started_at_unix_ms, ended_at_unix_ms, duration_ms,
		       endpoint, status, error, notice, file_count
		FROM submissions s
		WHERE 1=1
	`
	args := make([]interface{}, 0)

	if q.Status != "" {
		query += " AND status = ?"
		args = append(args, q.Status)
	}

	if q.SinceMs > 0 {
		query += " AND started_at_unix_ms >= ?"
		args = append(args, q.SinceMs)
	}

	if q.FileMatch != "" {
		query += ` AND EXISTS (
			SELECT 1 FROM submission_files f
			WHERE f.submission_id = s.submission_id AND lower(f.name) LIKE ? ESCAPE '\'
		)`
		args = append(args, "%"+escapeLike(strings.ToLower(q.FileMatch))+"%")
	}

	query += " ORDER BY started_at_unix_ms DESC, submission_id"

	limit := q.Limit
	if limit <= 0 {
		limit = 1000
	}
	query += " LIMIT ? OFFSET ?"
	args = append(args, limit, q.Offset)

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query submissions: %w", err)
	}
	defer rows.Close()

	var subs []Submission
	for rows.Next() {
		var (
			sub     Submission
			errText sql.NullString
			notice  sql.NullString
		)
		if err := rows.Scan(
			&sub.SubmissionID, &sub.StartedAtUnixMs, &sub.EndedAtUnixMs, &sub.DurationMs,
			&sub.Endpoint, &sub.Status, &errText, &notice, &sub.FileCount,
		); err != nil {
			return nil, fmt.Errorf("failed to scan submission: %w", err)
		}
		sub.Error = errText.String
		sub.Notice = notice.String
		subs = append(subs, sub)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating submissions: %w", err)
	}
	return subs, nil
}

// PruneSubmissions deletes submissions started before the cutoff, with their
// files and outcomes. It returns the number of submissions removed.
func (s *SQLiteStore) PruneSubmissions(ctx context.Context, beforeUnixMs int64) (int64, error) {
	result, err := s.db.ExecContext(ctx, `
		DELETE FROM submissions WHERE started_at_unix_ms < ?
	`, beforeUnixMs)
	if err != nil {
		return 0, fmt.Errorf("failed to prune submissions: %w", err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to get rows affected: %w", err)
	}
	return n, nil
}

func fileCount(sub *Submission) int {
	if len(sub.Files) > 0 {
		return len(sub.Files)
	}
	return sub.FileCount
}

func scanSubmission(row *sql.Row) (*Submission, error) {
	var (
		sub     Submission
		errText sql.NullString
		notice  sql.NullString
	)
	if err := row.Scan(
		&sub.SubmissionID, &sub.StartedAtUnixMs, &sub.EndedAtUnixMs, &sub.DurationMs,
		&sub.Endpoint, &sub.Status, &errText, &notice, &sub.FileCount,
	); err != nil {
		return nil, err
	}
	sub.Error = errText.String
	sub.Notice = notice.String
	return &sub, nil
}

func (s *SQLiteStore) loadDetails(ctx context.Context, sub *Submission) error {
	rows, err := s.db.QueryContext(ctx, `
		SELECT name FROM submission_files WHERE submission_id = ? ORDER BY position
	`, sub.SubmissionID)
	if err != nil {
		return fmt.Errorf("failed to load files: %w", err)
	}
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			rows.Close()
			return fmt.Errorf("failed to scan file: %w", err)
		}
		sub.Files = append(sub.Files, name)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return fmt.Errorf("failed to load files: %w", err)
	}

	rows, err = s.db.QueryContext(ctx, `
		SELECT position, file, message, status, csv_path, download_url
		FROM outcomes WHERE submission_id = ? ORDER BY position
	`, sub.SubmissionID)
	if err != nil {
		return fmt.Errorf("failed to load outcomes: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var (
			o                         Outcome
			status, csvPath, download sql.NullString
		)
		if err := rows.Scan(&o.Position, &o.File, &o.Message, &status, &csvPath, &download); err != nil {
			return fmt.Errorf("failed to scan outcome: %w", err)
		}
		o.Status = status.String
		o.CSVPath = csvPath.String
		o.DownloadURL = download.String
		sub.Outcomes = append(sub.Outcomes, o)
	}
	return rows.Err()
}

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

func escapeLike(s string) string {
	return likeEscaper.Replace(s)
}
