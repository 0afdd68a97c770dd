package cmd

import (
	"context"
	"encoding/json"
	"strings"
	"testing"
	"time"

	"github.com/runger/hiconvert/internal/config"
	"github.com/runger/hiconvert/internal/storage"
)

func TestFormatDurationMs(t *testing.T) {
	tests := []struct {
		expected string
		ms       int64
	}{
		{"0ms", 0},
		{"999ms", 999},
		{"1.0s", 1000},
		{"1.5s", 1500},
		{"59.0s", 59000},
		{"1m0s", 60000},
		{"1m30s", 90000},
	}

	for _, tt := range tests {
		result := formatDurationMs(tt.ms)
		if result != tt.expected {
			t.Errorf("formatDurationMs(%d) = %q, want %q", tt.ms, result, tt.expected)
		}
	}
}

func TestHistoryCmd_Flags(t *testing.T) {
	expectedFlags := []struct {
		name      string
		shorthand string
	}{
		{"limit", "n"},
		{"status", "s"},
		{"since", ""},
		{"format", ""},
	}

	for _, f := range expectedFlags {
		flag := historyCmd.Flags().Lookup(f.name)
		if flag == nil {
			t.Errorf("Expected flag --%s to be registered", f.name)
			continue
		}
		if flag.Shorthand != f.shorthand {
			t.Errorf("Flag --%s: expected shorthand %q, got %q", f.name, f.shorthand, flag.Shorthand)
		}
	}

	if historyPruneCmd.Flags().Lookup("older-than") == nil {
		t.Error("Expected flag --older-than on history prune")
	}
}

// seedHistory records three submissions: an old success, a recent error,
// and a recent notice.
func seedHistory(t *testing.T, paths *config.Paths) {
	t.Helper()
	store, err := storage.NewSQLiteStore(paths.DatabaseFile())
	if err != nil {
		t.Fatalf("NewSQLiteStore() error = %v", err)
	}
	defer store.Close()

	now := time.Now()
	subs := []*storage.Submission{
		{
			SubmissionID:    "aaaa1111-0000-0000-0000-000000000000",
			StartedAtUnixMs: now.Add(-48 * time.Hour).UnixMilli(),
			DurationMs:      1500,
			Endpoint:        "http://localhost:10000/process",
			Files:           []string{"plan-a.pdf", "plan-b.pdf"},
			Status:          storage.StatusSuccess,
			Outcomes: []storage.Outcome{
				{File: "plan-a.pdf", Message: "ok", CSVPath: "a.csv", DownloadURL: "http://localhost:10000/download/a.csv"},
				{File: "plan-b.pdf", Message: "no table", Status: "error"},
			},
		},
		{
			SubmissionID:    "bbbb2222-0000-0000-0000-000000000000",
			StartedAtUnixMs: now.Add(-time.Hour).UnixMilli(),
			DurationMs:      30,
			Endpoint:        "http://localhost:10000/process",
			Files:           []string{"invoice-plan.pdf"},
			Status:          storage.StatusError,
			Error:           "Network error: could not reach the server",
		},
		{
			SubmissionID:    "bbbb3333-0000-0000-0000-000000000000",
			StartedAtUnixMs: now.Add(-time.Minute).UnixMilli(),
			DurationMs:      200,
			Endpoint:        "http://localhost:10000/process",
			Files:           []string{"plan-c.pdf"},
			Status:          storage.StatusSuccess,
			Notice:          "Nothing to convert",
		},
	}
	for _, s := range subs {
		if err := store.CreateSubmission(context.Background(), s); err != nil {
			t.Fatalf("CreateSubmission() error = %v", err)
		}
	}
}

func TestRunHistory_List(t *testing.T) {
	paths := isolate(t, "")
	seedHistory(t, paths)
	withHistoryGlobals(t, historyGlobals{})

	var runErr error
	out := captureStdout(t, func() {
		runErr = runHistory(historyCmd, nil)
	})
	if runErr != nil {
		t.Fatalf("runHistory() error = %v", runErr)
	}

	for _, want := range []string{"aaaa1111", "bbbb2222", "bbbb3333", "Nothing to convert", "2 file(s)", "Showing 3 submission(s)"} {
		if !strings.Contains(out, want) {
			t.Errorf("history output missing %q:\n%s", want, out)
		}
	}
	// Oldest first.
	if strings.Index(out, "aaaa1111") > strings.Index(out, "bbbb3333") {
		t.Errorf("expected oldest submission first:\n%s", out)
	}
}

func TestRunHistory_Filters(t *testing.T) {
	paths := isolate(t, "")
	seedHistory(t, paths)

	withHistoryGlobals(t, historyGlobals{status: storage.StatusError})
	out := captureStdout(t, func() {
		if err := runHistory(historyCmd, nil); err != nil {
			t.Errorf("runHistory() error = %v", err)
		}
	})
	if !strings.Contains(out, "bbbb2222") || strings.Contains(out, "aaaa1111") {
		t.Errorf("--status error output wrong:\n%s", out)
	}

	withHistoryGlobals(t, historyGlobals{since: 24 * time.Hour})
	out = captureStdout(t, func() {
		if err := runHistory(historyCmd, []string{"INVOICE"}); err != nil {
			t.Errorf("runHistory() error = %v", err)
		}
	})
	if !strings.Contains(out, "Showing 1 submission(s)") {
		t.Errorf("--since with file match output wrong:\n%s", out)
	}

	out = captureStdout(t, func() {
		if err := runHistory(historyCmd, []string{"nomatch"}); err != nil {
			t.Errorf("runHistory() error = %v", err)
		}
	})
	if !strings.Contains(out, "No submissions found with a file matching 'nomatch'") {
		t.Errorf("empty result output wrong:\n%s", out)
	}
}

func TestRunHistory_JSON(t *testing.T) {
	paths := isolate(t, "")
	seedHistory(t, paths)
	withHistoryGlobals(t, historyGlobals{format: "json", limit: 2})

	out := captureStdout(t, func() {
		if err := runHistory(historyCmd, nil); err != nil {
			t.Errorf("runHistory() error = %v", err)
		}
	})

	var subs []storage.Submission
	if err := json.Unmarshal([]byte(out), &subs); err != nil {
		t.Fatalf("invalid JSON %q: %v", out, err)
	}
	if len(subs) != 2 || subs[0].SubmissionID != "bbbb3333-0000-0000-0000-000000000000" {
		t.Errorf("unexpected JSON result: %+v", subs)
	}
}

func TestRunHistory_InvalidFlags(t *testing.T) {
	withHistoryGlobals(t, historyGlobals{status: "pending"})
	if err := runHistory(historyCmd, nil); err == nil {
		t.Error("expected error for invalid --status")
	}

	withHistoryGlobals(t, historyGlobals{format: "xml"})
	if err := runHistory(historyCmd, nil); err == nil {
		t.Error("expected error for invalid --format")
	}
}

func TestRunHistory_Disabled(t *testing.T) {
	paths := isolate(t, "")
	withHistoryGlobals(t, historyGlobals{})
	cfg := config.DefaultConfig()
	cfg.History.Enabled = false
	if err := cfg.SaveToFile(paths.ConfigFile()); err != nil {
		t.Fatal(err)
	}

	err := runHistory(historyCmd, nil)
	if err == nil || !strings.Contains(err.Error(), "history is disabled") {
		t.Errorf("runHistory() error = %v, want history disabled", err)
	}
}

func TestRunHistoryShow(t *testing.T) {
	paths := isolate(t, "")
	seedHistory(t, paths)

	out := captureStdout(t, func() {
		if err := runHistoryShow(historyShowCmd, []string{"aaaa"}); err != nil {
			t.Errorf("runHistoryShow() error = %v", err)
		}
	})
	for _, want := range []string{
		"aaaa1111-0000-0000-0000-000000000000",
		"plan-a.pdf, plan-b.pdf",
		"plan-a.pdf: ok",
		"http://localhost:10000/download/a.csv",
		"plan-b.pdf: no table",
	} {
		if !strings.Contains(out, want) {
			t.Errorf("show output missing %q:\n%s", want, out)
		}
	}

	if err := runHistoryShow(historyShowCmd, []string{"bbbb"}); err == nil || !strings.Contains(err.Error(), "more than one") {
		t.Errorf("expected ambiguous prefix error, got %v", err)
	}
	if err := runHistoryShow(historyShowCmd, []string{"zzzz"}); err == nil || !strings.Contains(err.Error(), "no submission matches") {
		t.Errorf("expected not found error, got %v", err)
	}
}

func TestRunHistoryPrune(t *testing.T) {
	paths := isolate(t, "")
	seedHistory(t, paths)
	withHistoryGlobals(t, historyGlobals{olderThan: 24 * time.Hour})

	out := captureStdout(t, func() {
		if err := runHistoryPrune(historyPruneCmd, nil); err != nil {
			t.Errorf("runHistoryPrune() error = %v", err)
		}
	})
	if !strings.Contains(out, "Pruned 1 submission(s)") {
		t.Errorf("prune output wrong: %q", out)
	}
}

func TestShortID(t *testing.T) {
	if got := shortID("abcdef123456"); got != "abcdef12" {
		t.Errorf("shortID() = %q", got)
	}
	if got := shortID("abc"); got != "abc" {
		t.Errorf("shortID() = %q", got)
	}
}
