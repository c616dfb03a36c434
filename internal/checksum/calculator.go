package checksum

import (
	"crypto/sha256"
	"encoding/hex"
)

// Calculator computes content checksums.
type Calculator interface {
	// CalculateRaw computes a checksum of the exact bytes.
	CalculateRaw(content []byte) string
}

// SHA256 implements Calculator with SHA-256 and lowercase hex output.
type SHA256 struct{}

var _ Calculator = SHA256{}

// New creates a SHA-256 calculator.
func New() SHA256 {
	return SHA256{}
}

// CalculateRaw computes SHA-256 of content.
func (c SHA256) CalculateRaw(content []byte) string {
	hash := sha256.Sum256(content)
	return hex.EncodeToString(hash[:])
}
