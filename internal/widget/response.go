package widget

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"path"
)

// maxResponseBytes bounds how much of a response body is read.
const maxResponseBytes = 8 << 20

// errNotObject is the cause of a MalformedResponseError for well-formed JSON
// that is not an object (null, numbers, strings, arrays).
var errNotObject = errors.New("response is not a JSON object")

// maxLoggedBody bounds how much of an invalid body ends up in the log.
const maxLoggedBody = 2048

// Outcome is one file's result as reported by the server.
type Outcome struct {
	File    string `json:"file"`
	Message string `json:"message"`
	CSVPath string `json:"csv_path,omitempty"`
	Status  string `json:"status,omitempty"` // success or error, when the server says
}

// ProcessResponse is the JSON body of the process endpoint. It covers both
// the multi-file shape and the legacy single-file shape.
type ProcessResponse struct {
	Status  string    `json:"status,omitempty"`
	Message string    `json:"message,omitempty"`
	Error   string    `json:"error,omitempty"`
	CSVPath string    `json:"csv_path,omitempty"` // Legacy single-file shape
	Results []Outcome `json:"results,omitempty"`
}

// Interpret reads and classifies a process response. On success the legacy
// shape is normalized into Results; sent is the list of submitted names.
//
// Order matters: a body that is not JSON is reported as malformed before the
// status code is looked at, so a structured error on a non-2xx response wins
// over the generic "HTTP <status>" text.
func Interpret(resp *http.Response, sent []string, logger *slog.Logger) (*ProcessResponse, error) {
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return nil, &TransportError{Err: fmt.Errorf("failed to read response: %w", err)}
	}

	var pr ProcessResponse
	if err := decodeObject(raw, &pr); err != nil {
		if logger != nil {
			logger.Warn("invalid process response",
				"status", resp.StatusCode,
				"body", truncate(string(raw), maxLoggedBody),
				"error", err,
			)
		}
		return nil, &MalformedResponseError{
			StatusCode: resp.StatusCode,
			Body:       truncate(string(raw), maxLoggedBody),
			Err:        err,
		}
	}

	ok := resp.StatusCode >= 200 && resp.StatusCode < 300
	if !ok || pr.Error != "" {
		msg := pr.Error
		if msg == "" {
			msg = fmt.Sprintf("HTTP %d", resp.StatusCode)
		}
		return nil, &ApplicationError{StatusCode: resp.StatusCode, Msg: msg}
	}

	normalizeLegacy(&pr, sent)
	return &pr, nil
}

// decodeObject unmarshals raw into v. json.Unmarshal accepts null into a
// struct, so anything that does not start with '{' is rejected first.
func decodeObject(raw []byte, v any) error {
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 || trimmed[0] != '{' {
		if json.Valid(trimmed) {
			return errNotObject
		}
	}
	return json.Unmarshal(trimmed, v)
}

// normalizeLegacy folds {status, csv_path} into a single Outcome.
func normalizeLegacy(pr *ProcessResponse, sent []string) {
	if len(pr.Results) > 0 || pr.CSVPath == "" {
		return
	}
	name := path.Base(pr.CSVPath)
	if len(sent) > 0 {
		name = sent[0]
	}
	msg := pr.Message
	if msg == "" {
		msg = msgProcessingFinish
	}
	pr.Results = []Outcome{{
		File:    name,
		Message: msg,
		CSVPath: pr.CSVPath,
		Status:  pr.Status,
	}}
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
