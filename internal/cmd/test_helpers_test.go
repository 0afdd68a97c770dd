package cmd

import (
	"bytes"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/runger/hiconvert/internal/config"
)

type historyGlobals struct {
	status    string
	format    string
	limit     int
	since     time.Duration
	olderThan time.Duration
}

type uploadGlobals struct {
	format   string
	filter   string
	single   bool
	all      bool
	download bool
}

func withHistoryGlobals(t *testing.T, g historyGlobals) {
	t.Helper()
	oldLimit, oldStatus, oldFormat := historyLimit, historyStatus, historyFormat
	oldSince, oldOlder := historySince, historyOlderThan

	historyLimit = g.limit
	historyStatus = g.status
	historyFormat = g.format
	if historyFormat == "" {
		historyFormat = "text"
	}
	historySince = g.since
	historyOlderThan = g.olderThan

	t.Cleanup(func() {
		historyLimit = oldLimit
		historyStatus = oldStatus
		historyFormat = oldFormat
		historySince = oldSince
		historyOlderThan = oldOlder
	})
}

func withUploadGlobals(t *testing.T, g uploadGlobals) {
	t.Helper()
	old := uploadGlobals{
		format:   uploadFormat,
		filter:   uploadFilter,
		single:   uploadSingle,
		all:      uploadAll,
		download: uploadDownload,
	}
	uploadFormat = g.format
	if uploadFormat == "" {
		uploadFormat = "text"
	}
	uploadFilter = g.filter
	uploadSingle = g.single
	uploadAll = g.all
	uploadDownload = g.download

	t.Cleanup(func() {
		uploadFormat = old.format
		uploadFilter = old.filter
		uploadSingle = old.single
		uploadAll = old.all
		uploadDownload = old.download
	})
}

// isolate points config, data and the server URL at fresh locations so the
// host's configuration and history never leak into a test.
func isolate(t *testing.T, server string) *config.Paths {
	t.Helper()
	root := t.TempDir()
	t.Setenv("HOME", root)
	t.Setenv("XDG_CONFIG_HOME", filepath.Join(root, "config"))
	t.Setenv("XDG_DATA_HOME", filepath.Join(root, "data"))
	t.Setenv("HICONVERT_SERVER_URL", "")
	t.Setenv("HICONVERT_LOG_LEVEL", "")
	t.Setenv("HICONVERT_DEBUG", "")
	t.Chdir(root)

	disableColors()
	t.Cleanup(applyColorMode)

	oldServer := serverURL
	serverURL = server
	t.Cleanup(func() { serverURL = oldServer })

	return config.DefaultPaths()
}

// conversionServer fakes the process and download endpoints.
func conversionServer(t *testing.T, processStatus int, processBody string) *httptest.Server {
	t.Helper()
	mux := http.NewServeMux()
	mux.HandleFunc("POST /process", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(processStatus)
		_, _ = io.WriteString(w, processBody)
	})
	mux.HandleFunc("GET /download/", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/csv")
		_, _ = io.WriteString(w, "a,b\n1,2\n")
	})
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv
}

func writePDFs(t *testing.T, names ...string) []string {
	t.Helper()
	dir := t.TempDir()
	paths := make([]string, len(names))
	for i, n := range names {
		paths[i] = filepath.Join(dir, n)
		if err := os.WriteFile(paths[i], []byte("%PDF-1.4\n"), 0644); err != nil {
			t.Fatal(err)
		}
	}
	return paths
}

func captureStdout(t *testing.T, fn func()) string {
	t.Helper()
	old := os.Stdout
	r, w, err := os.Pipe()
	if err != nil {
		t.Fatalf("os.Pipe() failed: %v", err)
	}
	os.Stdout = w

	outC := make(chan string)
	go func() {
		var buf bytes.Buffer
		_, _ = io.Copy(&buf, r)
		outC <- buf.String()
	}()

	fn()
	_ = w.Close()
	os.Stdout = old
	out := <-outC
	_ = r.Close()
	return out
}
