package file

import (
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewConfigStore_CreatesDirectory(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "a", "b")

	store, err := NewConfigStore(dir)
	require.NoError(t, err)
	assert.DirExists(t, dir)
	assert.Equal(t, filepath.Join(dir, "config.toml"), store.Path())
	assert.Empty(t, store.Keys())
	assert.NoFileExists(t, store.Path(), "opening does not write")
}

func TestNewConfigStore_LoadsNestedTables(t *testing.T) {
	dir := t.TempDir()
	content := `
[sanitizer]
max_chars = 1200
auto_tag = false
extra_detectors = ["TICKET|marker|[TICKET]|INC-[0-9]{6}"]

[embedding]
provider = "ollama"
requests_per_second = 2

[retrieval.teacher]
k = 5
`
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.toml"), []byte(content), 0o600))

	store, err := NewConfigStore(dir)
	require.NoError(t, err)

	assert.Equal(t, []string{
		"embedding.provider",
		"embedding.requests_per_second",
		"retrieval.teacher.k",
		"sanitizer.auto_tag",
		"sanitizer.extra_detectors",
		"sanitizer.max_chars",
	}, store.Keys())

	k, ok := store.Get("retrieval.teacher.k")
	require.True(t, ok)
	assert.Equal(t, int64(5), k, "TOML integers decode as int64")

	provider, _ := store.Get("embedding.provider")
	assert.Equal(t, "ollama", provider)

	detectors, _ := store.Get("sanitizer.extra_detectors")
	assert.Equal(t, []any{"TICKET|marker|[TICKET]|INC-[0-9]{6}"}, detectors)
}

func TestConfigStore_ApplyPersistsAsTables(t *testing.T) {
	dir := t.TempDir()
	store, err := NewConfigStore(dir)
	require.NoError(t, err)

	require.NoError(t, store.Set("embedding.api_key", "sk-file"))
	require.NoError(t, store.Apply(map[string]any{
		"embedding.provider":    "openai",
		"index.metric":          "l2",
		"retrieval.assistant.k": 10,
	}, "embedding.api_key"))

	raw, err := os.ReadFile(store.Path())
	require.NoError(t, err)
	assert.Contains(t, string(raw), "[embedding]")
	assert.Contains(t, string(raw), "[retrieval.assistant]")
	assert.NotContains(t, string(raw), "sk-file")

	reloaded, err := NewConfigStore(dir)
	require.NoError(t, err)
	assert.Equal(t, store.Keys(), reloaded.Keys())
	k, _ := reloaded.Get("retrieval.assistant.k")
	assert.Equal(t, int64(10), k)
}

func TestConfigStore_FailedApplyChangesNothing(t *testing.T) {
	store, err := NewConfigStore(t.TempDir())
	require.NoError(t, err)
	require.NoError(t, store.Set("index.metric", "cosine"))

	err = store.Apply(map[string]any{"index.metric": "l2", "bad": make(chan int)})
	require.Error(t, err)

	metric, _ := store.Get("index.metric")
	assert.Equal(t, "cosine", metric)
	_, ok := store.Get("bad")
	assert.False(t, ok)
}

func TestConfigStore_FilePermissions(t *testing.T) {
	store, err := NewConfigStore(t.TempDir())
	require.NoError(t, err)
	require.NoError(t, store.Set("log.format", "json"))

	info, err := os.Stat(store.Path())
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0o600), info.Mode().Perm())

	entries, err := os.ReadDir(filepath.Dir(store.Path()))
	require.NoError(t, err)
	assert.Len(t, entries, 1, "temp files are cleaned up")
}

func TestConfigStore_Load(t *testing.T) {
	t.Run("invalid TOML", func(t *testing.T) {
		dir := t.TempDir()
		require.NoError(t, os.WriteFile(filepath.Join(dir, "config.toml"), []byte("not [valid toml"), 0o600))
		_, err := NewConfigStore(dir)
		assert.ErrorContains(t, err, "parsing")
	})

	t.Run("empty file", func(t *testing.T) {
		dir := t.TempDir()
		require.NoError(t, os.WriteFile(filepath.Join(dir, "config.toml"), nil, 0o600))
		store, err := NewConfigStore(dir)
		require.NoError(t, err)
		assert.Empty(t, store.Keys())
	})

	t.Run("picks up external edits", func(t *testing.T) {
		dir := t.TempDir()
		store, err := NewConfigStore(dir)
		require.NoError(t, err)
		require.NoError(t, os.WriteFile(store.Path(), []byte("[log]\nformat = \"json\"\n"), 0o600))

		require.NoError(t, store.Load())
		format, ok := store.Get("log.format")
		assert.True(t, ok)
		assert.Equal(t, "json", format)
	})
}

func TestConfigStore_Concurrency(t *testing.T) {
	store, err := NewConfigStore(t.TempDir())
	require.NoError(t, err)

	var wg sync.WaitGroup
	for i := range 10 {
		wg.Add(1)
		go func(n int) {
			defer wg.Done()
			_ = store.Set("counter", n)
			_, _ = store.Get("counter")
		}(i)
	}
	wg.Wait()

	_, ok := store.Get("counter")
	assert.True(t, ok)
}

func TestUnflattenMap(t *testing.T) {
	got := unflattenMap(map[string]any{
		"a.b":   1,
		"a.c.d": "x",
		"e":     true,
		"e.f":   2,
	})

	assert.Equal(t, map[string]any{
		"a": map[string]any{
			"b": 1,
			"c": map[string]any{"d": "x"},
		},
		"e":   true,
		"e.f": 2,
	}, got)
}
