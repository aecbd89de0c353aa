// Package anchor verifies governance metadata against its on-chain anchor:
// the blake2b-256 hash of the exact document bytes.
package anchor

import (
	"crypto/subtle"
	"encoding/hex"
	"errors"
	"fmt"
	"strings"

	"golang.org/x/crypto/blake2b"
)

// ErrHashMismatch is returned when document bytes do not match the anchor hash.
var ErrHashMismatch = errors.New("anchor hash mismatch")

// ErrInvalidHash is returned for hashes that are not 32 hex-encoded bytes.
var ErrInvalidHash = errors.New("invalid anchor hash")

// Size is the length in bytes of an anchor hash.
const Size = blake2b.Size256

// Anchor is an on-chain pointer to a metadata document.
type Anchor struct {
	URL      string `json:"url" yaml:"url"`
	DataHash string `json:"dataHash" yaml:"dataHash"`
}

// Hash returns the hex-encoded blake2b-256 hash of data.
func Hash(data []byte) string {
	sum := blake2b.Sum256(data)
	return hex.EncodeToString(sum[:])
}

// Verify checks data against a hex-encoded blake2b-256 hash.
func Verify(data []byte, expected string) error {
	want, err := hex.DecodeString(strings.TrimSpace(expected))
	if err != nil || len(want) != Size {
		return fmt.Errorf("%w: %q", ErrInvalidHash, expected)
	}
	got := blake2b.Sum256(data)
	if subtle.ConstantTimeCompare(got[:], want) != 1 {
		return fmt.Errorf("%w: expected %s, got %s", ErrHashMismatch, strings.ToLower(strings.TrimSpace(expected)), hex.EncodeToString(got[:]))
	}
	return nil
}

// Verify checks data against the anchor's hash.
func (a Anchor) Verify(data []byte) error {
	return Verify(data, a.DataHash)
}
