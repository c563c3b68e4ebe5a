package checksum

import (
	"bytes"
	"crypto/sha256"
	"encoding/hex"
)

// SHA256 fingerprints export content with SHA-256.
// It is a zero-size type and safe for concurrent use.
type SHA256 struct{}

// New creates a new SHA-256 based calculator.
func New() SHA256 {
	return SHA256{}
}

// CalculateNormalized computes SHA-256 of normalized content.
func (c SHA256) CalculateNormalized(content []byte) string {
	hash := sha256.Sum256(normalize(content))
	return hex.EncodeToString(hash[:])
}

var utf8BOM = []byte{0xEF, 0xBB, 0xBF}

func normalize(content []byte) []byte {
	content = bytes.TrimPrefix(content, utf8BOM)
	content = bytes.ReplaceAll(content, []byte("\r\n"), []byte("\n"))
	content = bytes.ReplaceAll(content, []byte("\r"), []byte("\n"))
	return bytes.TrimRight(content, "\n")
}
