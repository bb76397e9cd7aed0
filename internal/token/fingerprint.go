package token

import (
	"encoding/hex"
	"strings"

	"golang.org/x/crypto/blake2b"
)

// FingerprintHasher derives the opaque device hash embedded in tokens.
// Raw fingerprints are never placed in a token.
type FingerprintHasher struct {
	key [32]byte
}

func NewFingerprintHasher(secret []byte) FingerprintHasher {
	// blake2b keys are capped at 64 bytes; fold the secret to a fixed key.
	return FingerprintHasher{key: blake2b.Sum256(append([]byte("fingerprint:"), secret...))}
}

// Hash returns the hex keyed BLAKE2b-256 of the trimmed fingerprint.
func (h FingerprintHasher) Hash(fingerprint string) string {
	mac, err := blake2b.New256(h.key[:])
	if err != nil {
		// Only possible for keys longer than 64 bytes.
		panic(err)
	}
	mac.Write([]byte(strings.TrimSpace(fingerprint)))
	return hex.EncodeToString(mac.Sum(nil))
}
