package sanitizer

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"

	"github.com/custodia-labs/whis/internal/core/domain"
	"github.com/custodia-labs/whis/internal/logger"
)

// pseudonymHexLen is the number of hex digits kept from the HMAC.
const pseudonymHexLen = 10

// devKey is used only when insecure salts are explicitly allowed.
const devKey = "whis-development-salt-do-not-use"

// Pseudonymizer maps sensitive values to stable keyed identifiers.
// It is safe for concurrent use.
type Pseudonymizer struct {
	key    []byte
	secure bool
}

// NewPseudonymizer creates a pseudonymizer keyed by salt. An empty salt is a
// configuration error unless allowInsecure is set, in which case a fixed
// development key is used and every output is marked non-secure.
func NewPseudonymizer(salt string, allowInsecure bool) (*Pseudonymizer, error) {
	if salt != "" {
		return &Pseudonymizer{key: []byte(salt), secure: true}, nil
	}
	if !allowInsecure {
		return nil, &domain.ConfigurationError{Field: "sanitizer.salt", Err: domain.ErrMissingSalt}
	}
	logger.Warn("no pseudonymisation salt set; using the development key, pseudonyms are not secret")
	return &Pseudonymizer{key: []byte(devKey), secure: false}, nil
}

// Pseudonym returns prefix + "_" + the first hex digits of HMAC-SHA256(key, value).
func (p *Pseudonymizer) Pseudonym(prefix, value string) string {
	mac := hmac.New(sha256.New, p.key)
	mac.Write([]byte(value))
	return prefix + "_" + hex.EncodeToString(mac.Sum(nil))[:pseudonymHexLen]
}

// Secure reports whether a real salt was supplied.
func (p *Pseudonymizer) Secure() bool {
	return p.secure
}

// Epoch fingerprints the key without revealing it. Chunks sanitised under
// different epochs have unjoinable pseudonyms.
func (p *Pseudonymizer) Epoch() string {
	sum := sha256.Sum256(append([]byte("whis-salt-epoch:"), p.key...))
	return hex.EncodeToString(sum[:])[:12]
}
