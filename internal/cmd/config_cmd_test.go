package cmd

import (
	"os"
	"strings"
	"testing"

	"github.com/runger/hiconvert/internal/config"
)

func TestRunConfig_List(t *testing.T) {
	paths := isolate(t, "")

	var runErr error
	out := captureStdout(t, func() {
		runErr = runConfig(configCmd, nil)
	})
	if runErr != nil {
		t.Fatalf("runConfig() error = %v", runErr)
	}

	for _, key := range config.ListKeys() {
		if !strings.Contains(out, key) {
			t.Errorf("list output missing key %q", key)
		}
	}
	if !strings.Contains(out, "server.base_url = http://localhost:10000") {
		t.Errorf("list output missing default base URL:\n%s", out)
	}
	if !strings.Contains(out, "upload.download_dir = (not set)") {
		t.Errorf("list output should mark unset keys:\n%s", out)
	}
	if !strings.Contains(out, paths.ConfigFile()) {
		t.Errorf("list output missing config file path:\n%s", out)
	}
}

func TestRunConfig_SetThenGet(t *testing.T) {
	paths := isolate(t, "")

	out := captureStdout(t, func() {
		if err := runConfig(configCmd, []string{"upload.filter", "pdf-ext"}); err != nil {
			t.Errorf("set error = %v", err)
		}
	})
	if !strings.Contains(out, "upload.filter = pdf-ext") {
		t.Errorf("set output = %q", out)
	}

	cfg, err := config.LoadFromFile(paths.ConfigFile())
	if err != nil {
		t.Fatalf("LoadFromFile() error = %v", err)
	}
	if cfg.Upload.Filter != "pdf-ext" {
		t.Errorf("saved filter = %q, want pdf-ext", cfg.Upload.Filter)
	}

	out = captureStdout(t, func() {
		if err := runConfig(configCmd, []string{"upload.filter"}); err != nil {
			t.Errorf("get error = %v", err)
		}
	})
	if strings.TrimSpace(out) != "pdf-ext" {
		t.Errorf("get output = %q, want pdf-ext", out)
	}
}

func TestRunConfig_SetDoesNotPersistEnv(t *testing.T) {
	paths := isolate(t, "")
	t.Setenv("HICONVERT_SERVER_URL", "http://env.example:9000")

	captureStdout(t, func() {
		if err := runConfig(configCmd, []string{"history.list_limit", "50"}); err != nil {
			t.Errorf("set error = %v", err)
		}
	})

	data, err := os.ReadFile(paths.ConfigFile())
	if err != nil {
		t.Fatalf("ReadFile() error = %v", err)
	}
	if strings.Contains(string(data), "env.example") {
		t.Errorf("environment override was written to the config file:\n%s", data)
	}
	if !strings.Contains(string(data), "list_limit: 50") {
		t.Errorf("config file missing new value:\n%s", data)
	}
}

func TestRunConfig_InvalidValues(t *testing.T) {
	isolate(t, "")

	tests := []struct {
		key, value string
	}{
		{"upload.filter", "docx"},
		{"server.base_url", "ftp://example.com"},
		{"history.list_limit", "many"},
		{"nosection.key", "x"},
	}
	for _, tt := range tests {
		captureStdout(t, func() {
			if err := runConfig(configCmd, []string{tt.key, tt.value}); err == nil {
				t.Errorf("runConfig(%s=%s) expected error", tt.key, tt.value)
			}
		})
	}

	if err := runConfig(configCmd, []string{"server.nope"}); err == nil {
		t.Error("expected error for unknown key")
	}
}

func TestFormatBool(t *testing.T) {
	tests := []struct {
		input    bool
		contains string
	}{
		{true, "enabled"},
		{false, "disabled"},
	}

	for _, tt := range tests {
		result := formatBool(tt.input)
		if !strings.Contains(result, tt.contains) {
			t.Errorf("formatBool(%v) = %q, should contain %q", tt.input, result, tt.contains)
		}
	}
}

func TestFormatSize(t *testing.T) {
	tests := []struct {
		bytes    int64
		expected string
	}{
		{0, "0 B"},
		{100, "100 B"},
		{1024, "1.0 KB"},
		{1536, "1.5 KB"},
		{1048576, "1.0 MB"},
		{1073741824, "1.0 GB"},
	}

	for _, tt := range tests {
		result := formatSize(tt.bytes)
		if result != tt.expected {
			t.Errorf("formatSize(%d) = %q, want %q", tt.bytes, result, tt.expected)
		}
	}
}
