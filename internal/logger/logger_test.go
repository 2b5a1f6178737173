package logger

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// capture routes output to a buffer and restores the defaults afterwards.
func capture(t *testing.T, verbose bool) *bytes.Buffer {
	t.Helper()
	var buf bytes.Buffer
	SetOutput(&buf)
	SetVerbose(verbose)
	t.Cleanup(func() {
		_ = Configure(Config{})
		SetVerbose(false)
		SetOutput(os.Stderr)
	})
	return &buf
}

func TestSetVerbose(t *testing.T) {
	capture(t, false)
	assert.False(t, IsVerbose())

	SetVerbose(true)
	assert.True(t, IsVerbose())
}

func TestLevels(t *testing.T) {
	tests := []struct {
		name    string
		verbose bool
		log     func()
		want    string
	}{
		{"debug verbose", true, func() { Debug("chunk %s", "c-1") }, "[DEBUG] chunk c-1\n"},
		{"debug quiet", false, func() { Debug("chunk %s", "c-1") }, ""},
		{"info verbose", true, func() { Info("indexed %d chunks", 42) }, "[INFO] indexed 42 chunks\n"},
		{"info quiet", false, func() { Info("indexed %d chunks", 42) }, ""},
		{"warn quiet", false, func() { Warn("salt %s", "missing") }, "[WARN] salt missing\n"},
		{"error quiet", false, func() { Error("batch %d failed", 3) }, "[ERROR] batch 3 failed\n"},
		{"section verbose", true, func() { Section("Ingest") }, "\n=== Ingest ===\n"},
		{"section quiet", false, func() { Section("Ingest") }, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			buf := capture(t, tt.verbose)
			tt.log()
			assert.Equal(t, tt.want, buf.String())
		})
	}
}

func TestConfigure_JSON(t *testing.T) {
	buf := capture(t, true)
	require.NoError(t, Configure(Config{Format: FormatJSON}))

	Info("indexed %d chunks", 7)
	Section("ignored in JSON")

	var entry map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry), "one JSON entry expected, got %q", buf.String())
	assert.Equal(t, "info", entry["level"])
	assert.Equal(t, "indexed 7 chunks", entry["msg"])
	assert.Contains(t, entry, "time")
}

func TestConfigure_RejectsUnknownFormat(t *testing.T) {
	capture(t, false)
	assert.ErrorContains(t, Configure(Config{Format: "xml"}), `"xml"`)
}

func TestConfigure_File(t *testing.T) {
	buf := capture(t, false)
	path := filepath.Join(t.TempDir(), "whis.log")
	require.NoError(t, Configure(Config{File: path}))

	Warn("generation %d committed", 3)
	Debug("not verbose, not mirrored")
	require.NoError(t, Sync())

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), `"msg":"generation 3 committed"`)
	assert.NotContains(t, string(data), "mirrored")
	assert.Equal(t, "[WARN] generation 3 committed\n", buf.String())
}

func TestOrDefault(t *testing.T) {
	assert.Equal(t, 10, orDefault(0, 10))
	assert.Equal(t, 10, orDefault(-1, 10))
	assert.Equal(t, 4, orDefault(4, 10))
}

func TestConcurrentAccess(t *testing.T) {
	capture(t, false)

	var wg sync.WaitGroup
	for i := range 10 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			SetVerbose(i%2 == 0)
			Debug("worker %d", i)
			Warn("worker %d", i)
			_ = IsVerbose()
		}()
	}
	wg.Wait()
}
