// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package auth

import (
	"crypto/hmac"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"
	"errors"
	"fmt"
	"math/big"
	"strings"

	"github.com/google/uuid"
)

var (
	ErrInvalidAdminKey = errors.New("invalid admin key")
	ErrInvalidToken    = errors.New("invalid token format")
)

// Key derivation labels, one per use of the same salt.
const (
	purposeAdmin = "admin-key"
	purposeSlug  = "share-slug"
	purposeIP    = "ip-hash"
	purposeVoter = "voter-identity"
)

// NewID returns a random UUIDv4 without dashes.
func NewID() string {
	return strings.ReplaceAll(uuid.NewString(), "-", "")
}

func mac(salt, purpose, value string) []byte {
	h := hmac.New(sha256.New, []byte(salt))
	h.Write([]byte(purpose))
	h.Write([]byte{0})
	h.Write([]byte(value))
	return h.Sum(nil)
}

// AdminKey derives the election admin key. It is never stored; the server
// recomputes it to validate requests.
func AdminKey(electionID, salt string) string {
	return base64.RawURLEncoding.EncodeToString(mac(salt, purposeAdmin, electionID))
}

// ValidateAdminKey checks if the provided admin key is valid for the election
func ValidateAdminKey(electionID, adminKey, salt string) error {
	if adminKey == "" {
		return ErrInvalidAdminKey
	}
	if !hmac.Equal([]byte(adminKey), []byte(AdminKey(electionID, salt))) {
		return ErrInvalidAdminKey
	}
	return nil
}

// NewVoterToken creates a random 192-bit voter secret.
func NewVoterToken() (string, error) {
	b := make([]byte, 24)
	if _, err := rand.Read(b); err != nil {
		return "", fmt.Errorf("failed to generate voter token: %w", err)
	}
	return base64.RawURLEncoding.EncodeToString(b), nil
}

// ValidateVoterToken checks the token shape before it reaches the database.
func ValidateVoterToken(token string) error {
	raw, err := base64.RawURLEncoding.DecodeString(token)
	if err != nil || len(raw) != 24 {
		return ErrInvalidToken
	}
	return nil
}

// ShareSlug derives a short base62 slug from the election ID.
func ShareSlug(electionID, salt string) string {
	sum := mac(salt, purposeSlug, electionID)
	return new(big.Int).SetBytes(sum[:8]).Text(62)
}

// VoterIdentity is the stand-in identity used for commitments when the
// voter supplies no email. Stable for a given token.
func VoterIdentity(voterToken, salt string) string {
	return hex.EncodeToString(mac(salt, purposeVoter, voterToken))
}

// HashIP returns a salted 64-bit digest of a client address.
func HashIP(ip, salt string) string {
	return hex.EncodeToString(mac(salt, purposeIP, ip)[:8])
}
