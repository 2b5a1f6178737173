package domain

import "time"

// SkippedDocument records a document dropped from an ingest run.
type SkippedDocument struct {
	SourcePath string `json:"source_path"`
	Reason     string `json:"reason"`
}

// IngestReport is the audit summary of one ingest run.
type IngestReport struct {
	RunID      string    `json:"run_id"`
	StartedAt  time.Time `json:"started_at"`
	FinishedAt time.Time `json:"finished_at"`

	// Documents is the number of documents sanitised successfully.
	Documents int `json:"documents"`

	// Chunks is the number of chunks emitted after de-duplication.
	Chunks int `json:"chunks"`

	// Duplicates counts chunks dropped because an earlier document produced
	// the same content-addressed ID.
	Duplicates int `json:"duplicates"`

	Skipped []SkippedDocument `json:"skipped"`

	// RedactionTotals sums document-level redaction counts per detector.
	RedactionTotals map[string]int `json:"redaction_totals"`

	SecureSalt bool   `json:"secure_salt"`
	SaltEpoch  string `json:"salt_epoch"`
}

// IngestResult holds the chunks of an ingest run, in document order, and its report.
type IngestResult struct {
	Chunks []SanitizedChunk
	Report IngestReport
}

// BuildRequest is the input to an index build.
type BuildRequest struct {
	Chunks []SanitizedChunk

	// SaltEpoch and SecureSalt describe the key the chunks were sanitised with.
	SaltEpoch  string
	SecureSalt bool
}

// RebuildReport summarises an ingest followed by an index build.
type RebuildReport struct {
	Ingest     IngestReport `json:"ingest"`
	Generation Generation   `json:"generation"`
}
