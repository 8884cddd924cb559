// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package commitment

import (
	"encoding/hex"
	"errors"
	"fmt"
	"regexp"
	"strings"

	"golang.org/x/crypto/sha3"
)

var (
	ErrEmptyIdentity = errors.New("identity is required")
	ErrInvalidHex    = errors.New("invalid bytes32 hex")
)

// Domain tags keep the two digests of one identity unrelated.
const (
	commitmentTag = "quadvote/commitment/v1"
	nullifierTag  = "quadvote/nullifier/v1"
)

var emailPattern = regexp.MustCompile(`\S+@\S+\.\S+`)

// Bytes32 is a 32-byte value as passed to a contract bytes32 argument.
type Bytes32 [32]byte

// Hex returns 0x followed by 64 lowercase hex characters.
func (b Bytes32) Hex() string {
	return "0x" + hex.EncodeToString(b[:])
}

func (b Bytes32) String() string {
	return b.Hex()
}

func (b Bytes32) MarshalText() ([]byte, error) {
	return []byte(b.Hex()), nil
}

func (b *Bytes32) UnmarshalText(text []byte) error {
	s := string(text)
	if !strings.HasPrefix(s, "0x") || len(s) != 66 {
		return fmt.Errorf("%w: %q", ErrInvalidHex, s)
	}
	if _, err := hex.Decode(b[:], text[2:]); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidHex, err)
	}
	return nil
}

// Pair is the commitment/nullifier pair attached to a submitted ballot.
// The commitment identifies the voter across elections; the nullifier is
// scoped to one election and blocks a second ballot from the same identity.
type Pair struct {
	Commitment Bytes32 `json:"commitment"`
	Nullifier  Bytes32 `json:"nullifier"`
}

// Derive computes the pair for an identity (usually an email address).
// These are plain Keccak-256 digests, not zero-knowledge proofs.
func Derive(electionID, identity string) (Pair, error) {
	id := normalize(identity)
	if id == "" {
		return Pair{}, ErrEmptyIdentity
	}
	return Pair{
		Commitment: Keccak256([]byte(commitmentTag), []byte(id)),
		Nullifier:  Keccak256([]byte(nullifierTag), []byte(electionID), []byte{0}, []byte(id)),
	}, nil
}

// Keccak256 hashes the concatenation of parts.
func Keccak256(parts ...[]byte) Bytes32 {
	h := sha3.NewLegacyKeccak256()
	for _, p := range parts {
		h.Write(p)
	}
	var out Bytes32
	h.Sum(out[:0])
	return out
}

// ValidEmail is a loose shape check, not RFC 5322 validation.
func ValidEmail(s string) bool {
	return emailPattern.MatchString(s)
}

func normalize(identity string) string {
	return strings.ToLower(strings.TrimSpace(identity))
}
