// Package sanitizer turns raw documents into redacted, content-addressed chunks.
//
// The pipeline is normalise → redact → heading cleanup → hash → split. Redaction
// applies an ordered list of compiled detectors; identity-bearing values (email,
// IP, UUID) become keyed pseudonyms so equal raw values stay joinable across
// chunks, while timestamps, paths, URLs and secrets become fixed markers.
//
// Sanitisation is idempotent: running it over its own output finds nothing new.
package sanitizer
