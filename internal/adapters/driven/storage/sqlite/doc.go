// Package sqlite provides the SQLite-backed generation registry.
//
// This adapter uses modernc.org/sqlite, a pure Go SQLite implementation that requires
// no CGO, enabling easy cross-compilation. It implements driven.GenerationStore:
// every committed index generation, its chunk records and vectors, and the
// pointer to the generation currently served to queries.
//
// # Schema
//
// The database schema is managed through versioned migrations stored in the
// migrations/ directory. Each migration is a pair of .up.sql and .down.sql files.
// Opening a registry written by a newer binary fails with ErrSchemaTooNew.
//
// # Retention
//
// Prune deletes old generations with their chunks and logs each one in
// pruned_generations. The served generation is never pruned.
//
// # Data Location
//
// By default, the database is stored at ~/.whis/data/registry.db
//
// # Thread Safety
//
// All operations are thread-safe. A commit writes the generation, its chunks
// and the pointer update in one transaction, so a reader sees either the old
// generation or the complete new one.
package sqlite
