package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/custodia-labs/whis/internal/core/domain"
	"github.com/custodia-labs/whis/internal/core/ports/driven"
)

// generationStore implements driven.GenerationStore.
type generationStore struct {
	store *Store
}

var _ driven.GenerationStore = (*generationStore)(nil)

const generationColumns = `g.id, g.build_id, g.embedding_model, g.dimension, g.chunk_count,
	g.metric, g.salt_epoch, g.secure_salt, g.policies, g.created_at`

// Commit writes the generation, its chunks and the current pointer in one transaction.
func (s *generationStore) Commit(
	ctx context.Context,
	gen domain.Generation,
	chunks []domain.SanitizedChunk,
	records []domain.EmbeddingRecord,
) (int64, error) {
	if err := domain.CheckAligned(chunks, records, gen.Dimension); err != nil {
		return 0, err
	}
	if gen.CreatedAt.IsZero() {
		gen.CreatedAt = time.Now().UTC()
	}
	gen.ChunkCount = len(chunks)

	policiesJSON, err := json.Marshal(gen.Policies)
	if err != nil {
		return 0, fmt.Errorf("marshalling policies: %w", err)
	}

	tx, err := s.store.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck

	res, err := tx.ExecContext(ctx, `
		INSERT INTO generations (build_id, embedding_model, dimension, chunk_count, metric,
			salt_epoch, secure_salt, policies, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, gen.BuildID, gen.EmbeddingModel, gen.Dimension, gen.ChunkCount, string(gen.Metric),
		gen.SaltEpoch, gen.SecureSalt, string(policiesJSON), gen.CreatedAt.UTC().Format(time.RFC3339Nano))
	if err != nil {
		return 0, fmt.Errorf("saving generation: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("reading generation id: %w", err)
	}

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO generation_chunks (generation_id, position, chunk_id, record, embedding, metadata)
		VALUES (?, ?, ?, ?, ?, ?)
	`)
	if err != nil {
		return 0, fmt.Errorf("preparing statement: %w", err)
	}
	defer stmt.Close()

	for i := range chunks {
		recordJSON, err := json.Marshal(chunks[i])
		if err != nil {
			return 0, fmt.Errorf("marshalling chunk %s: %w", chunks[i].ChunkID, err)
		}
		metadataJSON, err := json.Marshal(records[i].Metadata)
		if err != nil {
			return 0, fmt.Errorf("marshalling metadata %s: %w", chunks[i].ChunkID, err)
		}
		if _, err := stmt.ExecContext(ctx, id, i, chunks[i].ChunkID, string(recordJSON),
			float32SliceToBytes(records[i].Vector), string(metadataJSON)); err != nil {
			return 0, fmt.Errorf("saving chunk %s: %w", chunks[i].ChunkID, err)
		}
	}

	if err := setCurrent(ctx, tx, id); err != nil {
		return 0, err
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("committing transaction: %w", err)
	}
	return id, nil
}

// Current returns the generation the pointer refers to.
func (s *generationStore) Current(ctx context.Context) (*domain.Generation, error) {
	row := s.store.db.QueryRowContext(ctx, `
		SELECT `+generationColumns+`
		FROM current_generation c JOIN generations g ON g.id = c.generation_id
		WHERE c.singleton = 1
	`)
	gen, err := scanGeneration(row)
	if errors.Is(err, domain.ErrNotFound) {
		return nil, domain.ErrNoGeneration
	}
	return gen, err
}

// Get returns a generation by ID.
func (s *generationStore) Get(ctx context.Context, id int64) (*domain.Generation, error) {
	row := s.store.db.QueryRowContext(ctx, `
		SELECT `+generationColumns+` FROM generations g WHERE g.id = ?
	`, id)
	return scanGeneration(row)
}

// List returns all generations, oldest first.
func (s *generationStore) List(ctx context.Context) ([]domain.Generation, error) {
	rows, err := s.store.db.QueryContext(ctx, `
		SELECT `+generationColumns+` FROM generations g ORDER BY g.id
	`)
	if err != nil {
		return nil, fmt.Errorf("listing generations: %w", err)
	}
	defer rows.Close()

	var gens []domain.Generation
	for rows.Next() {
		gen, err := scanGeneration(rows)
		if err != nil {
			return nil, err
		}
		gens = append(gens, *gen)
	}
	return gens, rows.Err()
}

// Load returns a generation's chunks and records in position order.
func (s *generationStore) Load(ctx context.Context, id int64) ([]domain.SanitizedChunk, []domain.EmbeddingRecord, error) {
	if _, err := s.Get(ctx, id); err != nil {
		return nil, nil, err
	}

	rows, err := s.store.db.QueryContext(ctx, `
		SELECT chunk_id, record, embedding, metadata
		FROM generation_chunks WHERE generation_id = ? ORDER BY position
	`, id)
	if err != nil {
		return nil, nil, fmt.Errorf("loading generation %d: %w", id, err)
	}
	defer rows.Close()

	var chunks []domain.SanitizedChunk
	var records []domain.EmbeddingRecord
	for rows.Next() {
		var chunkID, recordJSON, metadataJSON string
		var embedding []byte
		if err := rows.Scan(&chunkID, &recordJSON, &embedding, &metadataJSON); err != nil {
			return nil, nil, fmt.Errorf("scanning chunk: %w", err)
		}

		var chunk domain.SanitizedChunk
		if err := json.Unmarshal([]byte(recordJSON), &chunk); err != nil {
			return nil, nil, fmt.Errorf("unmarshalling chunk %s: %w", chunkID, err)
		}
		record := domain.EmbeddingRecord{ChunkID: chunkID, Vector: bytesToFloat32Slice(embedding)}
		if metadataJSON != "" && metadataJSON != "null" {
			if err := json.Unmarshal([]byte(metadataJSON), &record.Metadata); err != nil {
				return nil, nil, fmt.Errorf("unmarshalling metadata %s: %w", chunkID, err)
			}
		}

		chunks = append(chunks, chunk)
		records = append(records, record)
	}
	return chunks, records, rows.Err()
}

// Activate moves the current pointer to an existing generation.
func (s *generationStore) Activate(ctx context.Context, id int64) error {
	if _, err := s.Get(ctx, id); err != nil {
		return err
	}

	tx, err := s.store.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck

	if err := setCurrent(ctx, tx, id); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("committing transaction: %w", err)
	}
	return nil
}

// Prune deletes old generations and their chunks in one transaction and
// records each in pruned_generations.
func (s *generationStore) Prune(ctx context.Context, keep int) ([]int64, error) {
	if keep < 1 {
		return nil, fmt.Errorf("%w: keep must be at least 1, got %d", domain.ErrInvalidInput, keep)
	}

	tx, err := s.store.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck

	rows, err := tx.QueryContext(ctx, `
		SELECT g.id FROM generations g
		WHERE g.id NOT IN (SELECT id FROM generations ORDER BY id DESC LIMIT ?)
		  AND g.id NOT IN (SELECT generation_id FROM current_generation)
		ORDER BY g.id
	`, keep)
	if err != nil {
		return nil, fmt.Errorf("selecting generations to prune: %w", err)
	}
	var ids []int64
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			rows.Close()
			return nil, fmt.Errorf("scanning generation id: %w", err)
		}
		ids = append(ids, id)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, err
	}
	if len(ids) == 0 {
		return nil, nil
	}

	prunedAt := time.Now().UTC().Format(time.RFC3339Nano)
	for _, id := range ids {
		if _, err := tx.ExecContext(ctx, `
			INSERT INTO pruned_generations (generation_id, build_id, salt_epoch, chunk_count, pruned_at)
			SELECT id, build_id, salt_epoch, chunk_count, ? FROM generations WHERE id = ?
		`, prunedAt, id); err != nil {
			return nil, fmt.Errorf("recording pruned generation %d: %w", id, err)
		}
		if _, err := tx.ExecContext(ctx, `DELETE FROM generation_chunks WHERE generation_id = ?`, id); err != nil {
			return nil, fmt.Errorf("deleting chunks of generation %d: %w", id, err)
		}
		if _, err := tx.ExecContext(ctx, `DELETE FROM generations WHERE id = ?`, id); err != nil {
			return nil, fmt.Errorf("deleting generation %d: %w", id, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("committing transaction: %w", err)
	}
	s.store.reclaim(ctx)
	return ids, nil
}

// Close is a no-op; the owning Store closes the database.
func (s *generationStore) Close() error {
	return nil
}

func setCurrent(ctx context.Context, tx *sql.Tx, id int64) error {
	_, err := tx.ExecContext(ctx, `
		INSERT INTO current_generation (singleton, generation_id) VALUES (1, ?)
		ON CONFLICT(singleton) DO UPDATE SET generation_id = excluded.generation_id
	`, id)
	if err != nil {
		return fmt.Errorf("updating current generation: %w", err)
	}
	return nil
}

// rowScanner is satisfied by *sql.Row and *sql.Rows.
type rowScanner interface {
	Scan(dest ...any) error
}

func scanGeneration(row rowScanner) (*domain.Generation, error) {
	var gen domain.Generation
	var metric, policiesJSON, createdAt string
	if err := row.Scan(&gen.ID, &gen.BuildID, &gen.EmbeddingModel, &gen.Dimension, &gen.ChunkCount,
		&metric, &gen.SaltEpoch, &gen.SecureSalt, &policiesJSON, &createdAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, fmt.Errorf("scanning generation: %w", err)
	}

	gen.Metric = domain.Metric(metric)
	if err := json.Unmarshal([]byte(policiesJSON), &gen.Policies); err != nil {
		return nil, fmt.Errorf("unmarshalling policies: %w", err)
	}
	t, err := time.Parse(time.RFC3339Nano, createdAt)
	if err != nil {
		return nil, fmt.Errorf("parsing created_at: %w", err)
	}
	gen.CreatedAt = t
	return &gen, nil
}
