// Package driven holds the interfaces core services call to reach storage,
// embedding backends and document sources.
//
// Services see only these interfaces; adapters under internal/adapters/driven
// and the sanitizer, connector and normaliser packages implement them.
//
// Needed for every build or query:
//
//   - EmbeddingService turns chunk and query text into vectors.
//   - VectorIndex answers exact nearest-neighbour searches over one generation,
//     and VectorIndexFactory builds one for a loaded generation.
//   - GenerationStore is the versioned registry behind the current pointer.
//   - DocumentSanitizer redacts and chunks raw documents.
//   - ConfigStore reads flat dotted keys and writes them back with Apply,
//     which commits a whole batch or nothing.
//
// Needed only by some entry points:
//
//   - DocumentSource supplies raw documents for batch ingest. Library callers
//     can hand documents over directly.
//   - PostProcessor enriches chunks after splitting; a PostProcessorPipeline
//     runs them in order and reports their Names for the manifest.
//   - GenerationArchive exports and imports generations as files.
//
// Nothing here imports adapter packages; the domain package is the only
// dependency.
package driven
