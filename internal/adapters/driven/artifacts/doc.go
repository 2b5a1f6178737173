// Package artifacts reads and writes the on-disk interchange form of an index
// generation.
//
// A generation directory holds three files:
//
//   - chunks.jsonl: one sanitised chunk record per line, aligned by position
//     with the vectors
//   - vectors.f32: a small header followed by little-endian float32 rows
//   - manifest.json: model, dimension, chunk count, creation time, salt epoch
//     and the retrieval policy of each mode
//
// Export writes the manifest last, so a directory with a manifest is complete.
package artifacts
