package tui

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"sync"
	"testing"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/runger/hiconvert/internal/download"
	"github.com/runger/hiconvert/internal/widget"
)

// --- Test helpers ---

// fakeDownloader records fetched URLs and returns a canned result.
type fakeDownloader struct {
	mu   sync.Mutex
	urls []string
	err  error
}

func (d *fakeDownloader) Fetch(_ context.Context, rawURL, dir string) (*download.Result, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.urls = append(d.urls, rawURL)
	if d.err != nil {
		return nil, d.err
	}
	return &download.Result{URL: rawURL, Path: filepath.Join(dir, "b c.csv"), Bytes: 2048}, nil
}

func newTestModel(t *testing.T, endpoint string, dl Downloader) Model {
	t.Helper()
	wopts := widget.Options{
		Endpoint:     endpoint + "/process",
		DownloadBase: endpoint + "/download",
		Multiple:     true,
		AcceptJSON:   true,
		Predicate:    widget.Extension(".pdf"),
	}
	m := NewModel(context.Background(), wopts, Options{Downloader: dl, DownloadDir: t.TempDir()})
	t.Cleanup(m.Close)
	return m
}

func update(t *testing.T, m Model, msg tea.Msg) (Model, tea.Cmd) {
	t.Helper()
	result, cmd := m.Update(msg)
	return result.(Model), cmd
}

// pump feeds every queued widget update into the model.
func pump(t *testing.T, m Model) Model {
	t.Helper()
	for {
		select {
		case msg := <-m.view.ch:
			m, _ = update(t, m, msg)
		default:
			return m
		}
	}
}

// runCmd executes cmd synchronously, feeds its message back into the model,
// then applies the widget updates it produced.
func runCmd(t *testing.T, m Model, cmd tea.Cmd) Model {
	t.Helper()
	require.NotNil(t, cmd)
	m, _ = update(t, m, cmd())
	return pump(t, m)
}

func key(k tea.KeyType) tea.KeyMsg { return tea.KeyMsg{Type: k} }

func writeFiles(t *testing.T, names ...string) []string {
	t.Helper()
	dir := t.TempDir()
	paths := make([]string, len(names))
	for i, n := range names {
		paths[i] = filepath.Join(dir, n)
		require.NoError(t, os.WriteFile(paths[i], []byte("%PDF-1.4 "+n), 0644))
	}
	return paths
}

// choose types paths into the input and presses Enter.
func choose(t *testing.T, m Model, paths ...string) Model {
	t.Helper()
	text := ""
	for _, p := range paths {
		text += "'" + p + "' "
	}
	m.input.SetValue(text)
	m, cmd := update(t, m, key(tea.KeyEnter))
	return runCmd(t, m, cmd)
}

func processServer(t *testing.T, status int, body string) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		_, _ = io.WriteString(w, body)
	}))
	t.Cleanup(srv.Close)
	return srv
}

// --- Selection ---

func TestModel_ChooseTypedPaths(t *testing.T) {
	paths := writeFiles(t, "plan-a.pdf", "notes.txt")
	m := newTestModel(t, "http://localhost:10000", nil)

	m = choose(t, m, paths...)

	assert.Len(t, m.files, 2)
	assert.Empty(t, m.input.Value(), "input is cleared after choosing")
	assert.Contains(t, m.status, "1 matching file(s) selected")
	assert.Equal(t, widget.StatusInfo, m.statusLevel)

	view := m.View()
	assert.Contains(t, view, "plan-a.pdf")
	assert.Contains(t, view, "notes.txt  ignored")
}

func TestModel_PasteIsDrop(t *testing.T) {
	paths := writeFiles(t, "plan a.pdf")
	m := newTestModel(t, "http://localhost:10000", nil)

	m, cmd := update(t, m, tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune("'" + paths[0] + "'"), Paste: true})
	require.NotNil(t, cmd)
	msg := cmd()

	// The drop target lights up before the drop lands.
	assert.Equal(t, dragMsg{active: true}, <-m.view.ch)
	assert.Equal(t, dragMsg{active: false}, <-m.view.ch)

	m, _ = update(t, m, msg)
	m = pump(t, m)

	assert.False(t, m.dragActive)
	require.Len(t, m.files, 1)
	assert.Equal(t, "plan a.pdf", m.files[0].Name)
	assert.Empty(t, m.input.Value(), "pasted text never reaches the input")
}

func TestModel_PasteFileURI(t *testing.T) {
	paths := writeFiles(t, "plan.pdf")
	m := newTestModel(t, "http://localhost:10000", nil)

	m, cmd := update(t, m, tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune("file://" + paths[0]), Paste: true})
	m = runCmd(t, m, cmd)

	require.Len(t, m.files, 1)
	assert.Equal(t, paths[0], m.files[0].Path)
}

func TestModel_DropBadPath(t *testing.T) {
	m := newTestModel(t, "http://localhost:10000", nil)

	m, cmd := update(t, m, tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune("/does/not/exist.pdf"), Paste: true})
	m = runCmd(t, m, cmd)

	assert.False(t, m.dragActive)
	assert.Empty(t, m.files)
	assert.True(t, m.noticeErr)
	assert.Contains(t, m.notice, "exist.pdf")
}

// --- Submission ---

func TestModel_SubmitShowsResults(t *testing.T) {
	srv := processServer(t, http.StatusOK,
		`{"results":[{"file":"plan-a.pdf","message":"ok","csv_path":"a/b c.csv"},{"file":"plan-b.pdf","message":"no table","status":"error"}]}`)
	paths := writeFiles(t, "plan-a.pdf", "plan-b.pdf")
	m := newTestModel(t, srv.URL, nil)
	m = choose(t, m, paths...)

	m, cmd := update(t, m, key(tea.KeyEnter))
	m = runCmd(t, m, cmd)

	assert.Equal(t, stateDone, m.state)
	assert.True(t, m.submitEnabled)
	assert.Equal(t, widget.ProgressComplete, m.progress)
	assert.Equal(t, "2 file(s) processed", m.status)
	assert.Equal(t, widget.StatusSuccess, m.statusLevel)

	require.NotNil(t, m.rendering)
	require.Len(t, m.rendering.Entries, 2)
	assert.Equal(t, srv.URL+"/download/a/b%20c.csv", m.rendering.Entries[0].DownloadURL)
	assert.Empty(t, m.rendering.Entries[1].DownloadURL)

	view := m.View()
	assert.Contains(t, view, "> plan-a.pdf: ok  [a/b c.csv]")
	assert.Contains(t, view, "plan-b.pdf: no table")
}

func TestModel_SubmitNotice(t *testing.T) {
	srv := processServer(t, http.StatusOK, `{"message":"Nothing to convert"}`)
	paths := writeFiles(t, "plan.pdf")
	m := newTestModel(t, srv.URL, nil)
	m = choose(t, m, paths...)

	m, cmd := update(t, m, tea.KeyMsg{Type: tea.KeyCtrlS})
	m = runCmd(t, m, cmd)

	require.NotNil(t, m.rendering)
	assert.False(t, m.rendering.HasList())
	assert.Contains(t, m.View(), "Nothing to convert")
}

func TestModel_SubmitWithoutSelection(t *testing.T) {
	m := newTestModel(t, "http://localhost:10000", nil)

	m, cmd := update(t, m, key(tea.KeyEnter))
	m = runCmd(t, m, cmd)

	assert.Equal(t, stateFailed, m.state)
	assert.Equal(t, widget.MsgNoFileSelected, m.errText)
	assert.Equal(t, widget.ProgressIdle, m.progress)
	assert.Contains(t, m.View(), widget.MsgNoFileSelected)
}

func TestModel_SubmitServerError(t *testing.T) {
	srv := processServer(t, http.StatusInternalServerError, `{"error":"converter crashed"}`)
	paths := writeFiles(t, "plan.pdf")
	m := newTestModel(t, srv.URL, nil)
	m = choose(t, m, paths...)

	m, cmd := update(t, m, key(tea.KeyEnter))
	m = runCmd(t, m, cmd)

	assert.Equal(t, stateFailed, m.state)
	assert.Equal(t, "converter crashed", m.errText)
	assert.True(t, m.submitEnabled, "submit is re-enabled after a failure")
	assert.Equal(t, widget.ProgressIdle, m.progress)
	assert.Nil(t, m.rendering)
}

func TestModel_SubmitIgnoredWhileDisabled(t *testing.T) {
	m := newTestModel(t, "http://localhost:10000", nil)
	m, _ = update(t, m, submitEnabledMsg{enabled: false})

	_, cmd := update(t, m, key(tea.KeyEnter))
	assert.Nil(t, cmd)
	assert.Contains(t, m.View(), "Submit")
}

func TestModel_BusyNotice(t *testing.T) {
	m := newTestModel(t, "http://localhost:10000", nil)

	m, _ = update(t, m, submitDoneMsg{err: widget.ErrBusy})
	assert.Equal(t, widget.MsgSubmissionBusy, m.notice)
	assert.True(t, m.noticeErr)
}

// --- Results and downloads ---

func withResults(t *testing.T, m Model) Model {
	t.Helper()
	m, _ = update(t, m, resultsMsg{rendering: widget.Rendering{Entries: []widget.Entry{
		{File: "a.pdf", Message: "ok", CSVPath: "a/b c.csv", DownloadURL: "http://h/download/a/b%20c.csv"},
		{File: "b.pdf", Message: "no table", Status: "error"},
	}}})
	return m
}

func TestModel_CursorBounds(t *testing.T) {
	m := withResults(t, newTestModel(t, "http://h", nil))

	m, _ = update(t, m, key(tea.KeyUp))
	assert.Equal(t, 0, m.cursor)

	m, _ = update(t, m, key(tea.KeyDown))
	m, _ = update(t, m, key(tea.KeyDown))
	assert.Equal(t, 1, m.cursor)
	assert.Contains(t, m.View(), "> b.pdf: no table")
}

func TestModel_Download(t *testing.T) {
	dl := &fakeDownloader{}
	m := withResults(t, newTestModel(t, "http://h", dl))

	m, cmd := update(t, m, key(tea.KeyCtrlD))
	assert.Contains(t, m.notice, "Downloading a.pdf")
	m = runCmd(t, m, cmd)

	assert.Equal(t, []string{"http://h/download/a/b%20c.csv"}, dl.urls)
	assert.False(t, m.noticeErr)
	assert.Contains(t, m.notice, "b c.csv (2.0 KiB)")
}

func TestModel_DownloadFailure(t *testing.T) {
	dl := &fakeDownloader{err: errors.New("HTTP 404")}
	m := withResults(t, newTestModel(t, "http://h", dl))

	m, cmd := update(t, m, key(tea.KeyCtrlD))
	m = runCmd(t, m, cmd)

	assert.True(t, m.noticeErr)
	assert.Contains(t, m.notice, "HTTP 404")
}

func TestModel_DownloadWithoutArtifact(t *testing.T) {
	dl := &fakeDownloader{}
	m := withResults(t, newTestModel(t, "http://h", dl))
	m, _ = update(t, m, key(tea.KeyDown))

	m, cmd := update(t, m, key(tea.KeyCtrlD))
	assert.Nil(t, cmd)
	assert.Empty(t, dl.urls)
	assert.Contains(t, m.notice, "b.pdf has no file to download")
}

func TestModel_DownloadDisabled(t *testing.T) {
	m := withResults(t, newTestModel(t, "http://h", nil))

	m, cmd := update(t, m, key(tea.KeyCtrlD))
	assert.Nil(t, cmd)
	assert.Equal(t, "Downloads are disabled", m.notice)
}

// --- Lifecycle ---

func TestModel_EscQuits(t *testing.T) {
	m := newTestModel(t, "http://h", nil)

	m, cmd := update(t, m, key(tea.KeyEsc))
	require.NotNil(t, cmd)
	assert.IsType(t, tea.QuitMsg{}, cmd())
	assert.Empty(t, m.View())
}

func TestModel_WindowSize(t *testing.T) {
	m := newTestModel(t, "http://h", nil)

	m, _ = update(t, m, tea.WindowSizeMsg{Width: 40, Height: 20})
	assert.Equal(t, 40, m.contentWidth())
	assert.Equal(t, 24, m.bar.Width)

	m, _ = update(t, m, tea.WindowSizeMsg{Width: 200, Height: 50})
	assert.Equal(t, 60, m.bar.Width)
}

func TestModel_ViewMsgRearmsListener(t *testing.T) {
	m := newTestModel(t, "http://h", nil)

	_, cmd := update(t, m, statusMsg{text: "hi"})
	require.NotNil(t, cmd)

	m.view.SetDragActive(true)
	assert.Equal(t, dragMsg{active: true}, cmd())
}

func TestModel_CloseReleasesListener(t *testing.T) {
	m := newTestModel(t, "http://h", nil)
	wait := m.view.wait()

	m.Close()
	assert.Nil(t, wait())

	// Sends after Close never block, even with the queue full.
	for i := 0; i < viewBuffer+1; i++ {
		m.view.SetStatus("x", widget.StatusInfo)
	}
}

func TestFormatBytes(t *testing.T) {
	assert.Equal(t, "512 B", formatBytes(512))
	assert.Equal(t, "1.5 KiB", formatBytes(1536))
	assert.Equal(t, "16.0 MiB", formatBytes(16<<20))
}

func TestModel_WithPathsChoosesOnInit(t *testing.T) {
	paths := writeFiles(t, "plan.pdf")
	m := newTestModel(t, "http://h", nil).WithPaths(paths)

	cmd := m.Init()
	require.NotNil(t, cmd)
	batch, ok := cmd().(tea.BatchMsg)
	require.True(t, ok)
	require.Len(t, batch, 3)

	// The last command chooses the startup paths; the others block or tick.
	m = runCmd(t, m, batch[2])
	require.Len(t, m.files, 1)
	assert.Equal(t, "plan.pdf", m.files[0].Name)
}
