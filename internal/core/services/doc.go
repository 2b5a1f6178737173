// Package services wires the driven ports into the operations the CLI, MCP
// server and console call: ingest, index builds and generation management,
// retrieval behind the policy gate, and settings.
//
// Services depend on ports only. Tests run them over the in-memory store,
// the hashing embedder and the flat index.
package services
