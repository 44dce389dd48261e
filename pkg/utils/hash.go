package utils

import (
	"crypto/sha256"
	"encoding/hex"
)

// Fingerprint identifies the exact bytes of a fetched page. The hash is
// computed over the raw HTML as fetched, not over the cleaned text, so it can
// be compared against the bytes written to disk.
type Fingerprint struct {
	SHA256 string
	Length int
}

// FingerprintBytes computes the SHA-256 hash and length of raw content bytes.
func FingerprintBytes(content []byte) Fingerprint {
	sum := sha256.Sum256(content)
	return Fingerprint{
		SHA256: hex.EncodeToString(sum[:]),
		Length: len(content),
	}
}

// CalculateStringSHA256 computes the SHA-256 hash of a string.
func CalculateStringSHA256(content string) string {
	sum := sha256.Sum256([]byte(content))
	return hex.EncodeToString(sum[:])
}
