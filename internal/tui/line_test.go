package tui

import (
	"bytes"
	"testing"

	"github.com/muesli/termenv"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/runger/hiconvert/internal/widget"
)

func TestLineView(t *testing.T) {
	var buf bytes.Buffer
	v := NewLineView(&buf, termenv.Ascii, 0)

	v.SetStatus("1 file(s) selected", widget.StatusInfo)
	v.SetDragActive(true)
	v.SetSubmitEnabled(false)
	v.SetProgress(widget.ProgressStarted)
	v.ShowError("Network error: could not reach the server")
	v.SetProgress(widget.ProgressIdle)

	assert.Equal(t,
		"1 file(s) selected\nUploading...\nError: Network error: could not reach the server\n",
		buf.String())
}

func TestLineView_CleansAndTruncates(t *testing.T) {
	var buf bytes.Buffer
	v := NewLineView(&buf, termenv.Ascii, 10)

	v.SetStatus("\x1b]0;title\x07status line that is long", widget.StatusWarning)
	assert.Equal(t, "status li…\n", buf.String())
}

func TestPrintResults(t *testing.T) {
	var buf bytes.Buffer
	err := PrintResults(&buf, widget.Rendering{Entries: []widget.Entry{
		{File: "a.pdf", Message: "ok", CSVPath: "a/b c.csv", DownloadURL: "http://h/download/a/b%20c.csv"},
		{File: "b.pdf", Message: "no\ntable", Status: "error"},
	}}, termenv.Ascii)
	require.NoError(t, err)

	assert.Equal(t, "a.pdf: ok\n  http://h/download/a/b%20c.csv\nb.pdf: no table\n", buf.String())
}

func TestPrintResults_Notice(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, PrintResults(&buf, widget.Rendering{Notice: "Nothing to convert"}, termenv.Ascii))
	assert.Equal(t, "Nothing to convert\n", buf.String())
}
