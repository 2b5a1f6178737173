package sqlite

import (
	"context"
	"fmt"
	"path/filepath"
	"testing"
	"testing/fstest"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/whis/internal/core/domain"
)

// setupTestStore creates a temporary SQLite store for testing.
func setupTestStore(t *testing.T) *Store {
	t.Helper()

	store, err := NewStore(t.TempDir())
	require.NoError(t, err)
	require.NotNil(t, store)

	t.Cleanup(func() {
		assert.NoError(t, store.Close())
	})
	return store
}

func testCorpus(n, dim int) ([]domain.SanitizedChunk, []domain.EmbeddingRecord) {
	ingested := time.Date(2024, 3, 1, 9, 0, 0, 0, time.UTC)
	chunks := make([]domain.SanitizedChunk, n)
	records := make([]domain.EmbeddingRecord, n)
	for i := range n {
		id := fmt.Sprintf("kb-0123456789ab-%03d", i)
		chunks[i] = domain.SanitizedChunk{
			ChunkID:        id,
			Title:          "Auth Failures",
			Text:           fmt.Sprintf("chunk %d from EMAIL_abcdef0123", i),
			SourcePath:     "notes/auth.md",
			SHA256:         "0123456789abcdef",
			Tags:           []string{"attack:t1110", "tool:sigma"},
			IngestedAt:     ingested,
			PIIRedacted:    true,
			RedactionStats: map[string]int{"EMAIL": 1},
			Provenance:     domain.Provenance{Section: "triage", ChunkIndex: i},
		}
		vec := make([]float32, dim)
		for j := range vec {
			vec[j] = float32(i+1) * float32(j+1) / 10
		}
		records[i] = domain.EmbeddingRecord{ChunkID: id, Vector: vec, Metadata: map[string]string{"title": "Auth Failures"}}
	}
	return chunks, records
}

func testGeneration(buildID string, dim int) domain.Generation {
	settings := domain.DefaultSettings()
	return domain.Generation{
		BuildID:        buildID,
		EmbeddingModel: "hashing-4",
		Dimension:      dim,
		Metric:         domain.MetricInnerProduct,
		SaltEpoch:      "a1b2c3d4e5f6",
		SecureSalt:     true,
		Policies:       settings.Policies(),
		CreatedAt:      time.Date(2024, 3, 2, 10, 30, 0, 123, time.UTC),
	}
}

// ==================== Store Creation Tests ====================

func TestNewStore(t *testing.T) {
	dir := t.TempDir()
	store, err := NewStore(dir)
	require.NoError(t, err)
	defer store.Close()

	assert.Equal(t, filepath.Join(dir, "registry.db"), store.Path())
	assert.FileExists(t, store.Path())
}

func TestNewStore_MigrationsRecorded(t *testing.T) {
	store := setupTestStore(t)

	var version int
	err := store.db.QueryRow("SELECT MAX(version) FROM schema_migrations").Scan(&version)
	require.NoError(t, err)
	assert.Equal(t, 2, version)

	for _, table := range []string{"generations", "generation_chunks", "current_generation", "pruned_generations"} {
		var name string
		err := store.db.QueryRow(
			"SELECT name FROM sqlite_master WHERE type='table' AND name=?", table,
		).Scan(&name)
		require.NoError(t, err, table)
	}
}

func TestNewStore_ReopenKeepsData(t *testing.T) {
	dir := t.TempDir()
	ctx := context.Background()

	store, err := NewStore(dir)
	require.NoError(t, err)
	chunks, records := testCorpus(2, 4)
	id, err := store.GenerationStore().Commit(ctx, testGeneration("build-1", 4), chunks, records)
	require.NoError(t, err)
	require.NoError(t, store.Close())

	reopened, err := NewStore(dir)
	require.NoError(t, err)
	defer reopened.Close()

	current, err := reopened.GenerationStore().Current(ctx)
	require.NoError(t, err)
	assert.Equal(t, id, current.ID)
}

func TestNewStore_SchemaTooNew(t *testing.T) {
	dir := t.TempDir()
	store, err := NewStore(dir)
	require.NoError(t, err)
	_, err = store.db.Exec("INSERT INTO schema_migrations (version) VALUES (99)")
	require.NoError(t, err)
	require.NoError(t, store.Close())

	_, err = NewStore(dir)
	assert.ErrorIs(t, err, ErrSchemaTooNew)
}

func TestPendingMigrations(t *testing.T) {
	fsys := fstest.MapFS{
		"010_late.up.sql":     {Data: []byte("SELECT 1;")},
		"002_second.up.sql":   {Data: []byte("SELECT 1;")},
		"002_second.down.sql": {Data: []byte("SELECT 1;")},
		"README.md":           {Data: []byte("notes")},
	}

	got, err := pendingMigrations(fsys)
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, migration{version: 2, name: "002_second.up.sql"}, got[0])
	assert.Equal(t, 10, got[1].version)

	_, err = pendingMigrations(fstest.MapFS{"initial.up.sql": {Data: []byte("SELECT 1;")}})
	assert.Error(t, err)
}

// ==================== Generation Tests ====================

func TestGenerationStore_CurrentEmpty(t *testing.T) {
	gs := setupTestStore(t).GenerationStore()

	_, err := gs.Current(context.Background())
	assert.ErrorIs(t, err, domain.ErrNoGeneration)

	gens, err := gs.List(context.Background())
	require.NoError(t, err)
	assert.Empty(t, gens)
}

func TestGenerationStore_CommitAndLoad(t *testing.T) {
	ctx := context.Background()
	gs := setupTestStore(t).GenerationStore()

	chunks, records := testCorpus(3, 4)
	gen := testGeneration("build-1", 4)

	id, err := gs.Commit(ctx, gen, chunks, records)
	require.NoError(t, err)
	assert.Positive(t, id)

	current, err := gs.Current(ctx)
	require.NoError(t, err)
	assert.Equal(t, id, current.ID)
	assert.Equal(t, "build-1", current.BuildID)
	assert.Equal(t, 3, current.ChunkCount)
	assert.Equal(t, 4, current.Dimension)
	assert.Equal(t, domain.MetricInnerProduct, current.Metric)
	assert.True(t, current.SecureSalt)
	assert.Equal(t, "a1b2c3d4e5f6", current.SaltEpoch)
	assert.True(t, gen.CreatedAt.Equal(current.CreatedAt))
	assert.Equal(t, gen.Policies, current.Policies)

	gotChunks, gotRecords, err := gs.Load(ctx, id)
	require.NoError(t, err)
	require.Len(t, gotChunks, 3)
	require.Len(t, gotRecords, 3)
	for i := range chunks {
		assert.Equal(t, chunks[i].ChunkID, gotChunks[i].ChunkID)
		assert.Equal(t, chunks[i].Text, gotChunks[i].Text)
		assert.Equal(t, chunks[i].Tags, gotChunks[i].Tags)
		assert.Equal(t, chunks[i].RedactionStats, gotChunks[i].RedactionStats)
		assert.Equal(t, chunks[i].Provenance, gotChunks[i].Provenance)
		assert.True(t, chunks[i].IngestedAt.Equal(gotChunks[i].IngestedAt))
		assert.Equal(t, records[i].ChunkID, gotRecords[i].ChunkID)
		assert.Equal(t, records[i].Vector, gotRecords[i].Vector)
		assert.Equal(t, records[i].Metadata, gotRecords[i].Metadata)
	}
}

func TestGenerationStore_CommitAdvancesPointer(t *testing.T) {
	ctx := context.Background()
	gs := setupTestStore(t).GenerationStore()

	chunks, records := testCorpus(2, 4)
	first, err := gs.Commit(ctx, testGeneration("build-1", 4), chunks, records)
	require.NoError(t, err)
	second, err := gs.Commit(ctx, testGeneration("build-2", 4), chunks, records)
	require.NoError(t, err)
	assert.Greater(t, second, first)

	current, err := gs.Current(ctx)
	require.NoError(t, err)
	assert.Equal(t, second, current.ID)

	gens, err := gs.List(ctx)
	require.NoError(t, err)
	require.Len(t, gens, 2)
	assert.Equal(t, "build-1", gens[0].BuildID)
	assert.Equal(t, "build-2", gens[1].BuildID)
}

func TestGenerationStore_CommitIsAllOrNothing(t *testing.T) {
	ctx := context.Background()
	gs := setupTestStore(t).GenerationStore()

	chunks, records := testCorpus(2, 4)
	first, err := gs.Commit(ctx, testGeneration("build-1", 4), chunks, records)
	require.NoError(t, err)

	tests := []struct {
		name    string
		mutate  func([]domain.SanitizedChunk, []domain.EmbeddingRecord) ([]domain.SanitizedChunk, []domain.EmbeddingRecord)
		wantErr error
	}{
		{
			name: "misaligned lengths",
			mutate: func(c []domain.SanitizedChunk, r []domain.EmbeddingRecord) ([]domain.SanitizedChunk, []domain.EmbeddingRecord) {
				return c, r[:1]
			},
			wantErr: domain.ErrInvalidInput,
		},
		{
			name: "mismatched chunk id",
			mutate: func(c []domain.SanitizedChunk, r []domain.EmbeddingRecord) ([]domain.SanitizedChunk, []domain.EmbeddingRecord) {
				r[1].ChunkID = "kb-other-000"
				return c, r
			},
			wantErr: domain.ErrInvalidInput,
		},
		{
			name: "wrong dimension",
			mutate: func(c []domain.SanitizedChunk, r []domain.EmbeddingRecord) ([]domain.SanitizedChunk, []domain.EmbeddingRecord) {
				r[0].Vector = r[0].Vector[:3]
				return c, r
			},
			wantErr: domain.ErrDimensionMismatch,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c, r := testCorpus(2, 4)
			c, r = tt.mutate(c, r)
			_, err := gs.Commit(ctx, testGeneration("bad-"+tt.name, 4), c, r)
			assert.ErrorIs(t, err, tt.wantErr)

			current, err := gs.Current(ctx)
			require.NoError(t, err)
			assert.Equal(t, first, current.ID)
		})
	}

	// A duplicate build ID fails inside the transaction.
	_, err = gs.Commit(ctx, testGeneration("build-1", 4), chunks, records)
	require.Error(t, err)

	gens, err := gs.List(ctx)
	require.NoError(t, err)
	assert.Len(t, gens, 1)

	var rows int
	require.NoError(t, gs.(*generationStore).store.db.QueryRow(
		"SELECT COUNT(*) FROM generation_chunks").Scan(&rows))
	assert.Equal(t, 2, rows)
}

func TestGenerationStore_EmptyGeneration(t *testing.T) {
	ctx := context.Background()
	gs := setupTestStore(t).GenerationStore()

	id, err := gs.Commit(ctx, testGeneration("empty", 4), nil, nil)
	require.NoError(t, err)

	gen, err := gs.Get(ctx, id)
	require.NoError(t, err)
	assert.Zero(t, gen.ChunkCount)

	chunks, records, err := gs.Load(ctx, id)
	require.NoError(t, err)
	assert.Empty(t, chunks)
	assert.Empty(t, records)
}

func TestGenerationStore_Activate(t *testing.T) {
	ctx := context.Background()
	gs := setupTestStore(t).GenerationStore()

	chunks, records := testCorpus(1, 4)
	first, err := gs.Commit(ctx, testGeneration("build-1", 4), chunks, records)
	require.NoError(t, err)
	_, err = gs.Commit(ctx, testGeneration("build-2", 4), chunks, records)
	require.NoError(t, err)

	require.NoError(t, gs.Activate(ctx, first))
	current, err := gs.Current(ctx)
	require.NoError(t, err)
	assert.Equal(t, first, current.ID)

	err = gs.Activate(ctx, 999)
	assert.ErrorIs(t, err, domain.ErrNotFound)
	current, err = gs.Current(ctx)
	require.NoError(t, err)
	assert.Equal(t, first, current.ID)
}

func TestGenerationStore_GetNotFound(t *testing.T) {
	gs := setupTestStore(t).GenerationStore()

	_, err := gs.Get(context.Background(), 42)
	assert.ErrorIs(t, err, domain.ErrNotFound)

	_, _, err = gs.Load(context.Background(), 42)
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestGenerationStore_Prune(t *testing.T) {
	ctx := context.Background()
	store := setupTestStore(t)
	gs := store.GenerationStore()

	chunks, records := testCorpus(3, 4)
	var ids []int64
	for i := range 4 {
		id, err := gs.Commit(ctx, testGeneration(fmt.Sprintf("build-%d", i), 4), chunks, records)
		require.NoError(t, err)
		ids = append(ids, id)
	}
	require.NoError(t, gs.Activate(ctx, ids[0]))

	_, err := gs.Prune(ctx, 0)
	assert.ErrorIs(t, err, domain.ErrInvalidInput)

	pruned, err := gs.Prune(ctx, 2)
	require.NoError(t, err)
	assert.Equal(t, []int64{ids[1]}, pruned, "current generation is spared")

	_, err = gs.Get(ctx, ids[1])
	assert.ErrorIs(t, err, domain.ErrNotFound)

	var orphans int
	require.NoError(t, store.db.QueryRow(
		"SELECT COUNT(*) FROM generation_chunks WHERE generation_id = ?", ids[1]).Scan(&orphans))
	assert.Zero(t, orphans)

	var buildID string
	var chunkCount int
	require.NoError(t, store.db.QueryRow(
		"SELECT build_id, chunk_count FROM pruned_generations WHERE generation_id = ?", ids[1],
	).Scan(&buildID, &chunkCount))
	assert.Equal(t, "build-1", buildID)
	assert.Equal(t, 3, chunkCount)

	gens, err := gs.List(ctx)
	require.NoError(t, err)
	assert.Len(t, gens, 3)

	pruned, err = gs.Prune(ctx, 10)
	require.NoError(t, err)
	assert.Empty(t, pruned)

	next, err := gs.Commit(ctx, testGeneration("build-9", 4), chunks, records)
	require.NoError(t, err)
	assert.Greater(t, next, ids[3], "IDs are not reused")
}

// ==================== Helper Function Tests ====================

func TestFloat32Conversion(t *testing.T) {
	in := []float32{0, 1.5, -2.25, 3.4028235e38}
	assert.Equal(t, in, bytesToFloat32Slice(float32SliceToBytes(in)))
	assert.Len(t, float32SliceToBytes(in), 16)
	assert.Nil(t, float32SliceToBytes(nil))
	assert.Nil(t, bytesToFloat32Slice(nil))
}
