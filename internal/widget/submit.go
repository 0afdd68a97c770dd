package widget

import (
	"context"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/textproto"
	"strings"
)

// Field names used by the process endpoint.
const (
	FieldSingle = "file"
	FieldMulti  = "files[]"
)

// submitter turns a file list into one multipart POST.
type submitter struct {
	client     *http.Client
	endpoint   string
	field      string
	acceptJSON bool
	open       Opener
}

// send posts files and returns the raw response. The caller owns the body.
// A non-nil error is a *ValidationError when a selected file could not be
// read, and a *TransportError otherwise.
func (s *submitter) send(ctx context.Context, files []File) (*http.Response, error) {
	pr, pw := io.Pipe()
	mw := multipart.NewWriter(pw)

	written := make(chan error, 1)
	go func() {
		err := s.writeParts(mw, files)
		pw.CloseWithError(err)
		written <- err
	}()

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.endpoint, pr)
	if err != nil {
		pr.CloseWithError(err)
		return nil, &TransportError{Err: err}
	}
	req.Header.Set("Content-Type", mw.FormDataContentType())
	if s.acceptJSON {
		req.Header.Set("Accept", "application/json")
	}

	resp, err := s.client.Do(req)
	if err != nil {
		pr.CloseWithError(err)
		if verr := readFailure(<-written); verr != nil {
			return nil, verr
		}
		return nil, &TransportError{Err: err}
	}

	// The server may answer before it has read the whole body.
	select {
	case werr := <-written:
		if verr := readFailure(werr); verr != nil {
			resp.Body.Close()
			return nil, verr
		}
	case <-ctx.Done():
	}
	return resp, nil
}

// readFailure returns err as a *ValidationError when it comes from reading a
// local file, nil otherwise.
func readFailure(err error) *ValidationError {
	var verr *ValidationError
	if errors.As(err, &verr) {
		return verr
	}
	return nil
}

// writeParts streams every file into mw and closes it.
func (s *submitter) writeParts(mw *multipart.Writer, files []File) error {
	for _, f := range files {
		if err := s.writePart(mw, f); err != nil {
			return err
		}
	}
	return mw.Close()
}

func (s *submitter) writePart(mw *multipart.Writer, f File) error {
	rc, err := s.open(f)
	if err != nil {
		return cannotRead(f, err)
	}
	defer rc.Close()

	h := make(textproto.MIMEHeader)
	h.Set("Content-Disposition", fmt.Sprintf(`form-data; name="%s"; filename="%s"`,
		quoteEscaper.Replace(s.field), quoteEscaper.Replace(f.Name)))
	ct := f.MIMEType
	if ct == "" {
		ct = "application/octet-stream"
	}
	h.Set("Content-Type", ct)

	part, err := mw.CreatePart(h)
	if err != nil {
		return fmt.Errorf("failed to create part for %s: %w", f.Name, err)
	}
	src := &sourceReader{r: rc}
	if _, err := io.Copy(part, src); err != nil {
		if src.err != nil {
			return cannotRead(f, src.err)
		}
		return fmt.Errorf("failed to write %s: %w", f.Name, err)
	}
	return nil
}

func cannotRead(f File, err error) *ValidationError {
	return &ValidationError{Msg: fmt.Sprintf("Cannot read %s: %v", f.Name, err), Err: err}
}

// sourceReader remembers a read error so it can be told apart from a write
// error on the request side of the pipe.
type sourceReader struct {
	r   io.Reader
	err error
}

func (sr *sourceReader) Read(p []byte) (int, error) {
	n, err := sr.r.Read(p)
	if err != nil && err != io.EOF {
		sr.err = err
	}
	return n, err
}

var quoteEscaper = strings.NewReplacer("\\", "\\\\", `"`, "\\\"")
