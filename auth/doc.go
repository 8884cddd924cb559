// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

/*
Package auth provides key, token and identifier generation.

# Admin Keys

Admin keys are HMAC-SHA256 values derived from the election ID:

	adminKey := auth.AdminKey(electionID, salt)
	err := auth.ValidateAdminKey(electionID, adminKey, salt)

Since they are deterministic, the server validates them without storing them.

# Voter Tokens

Voter tokens are random 24-byte secrets, URL-safe base64 without padding:

	token, err := auth.NewVoterToken()

A token is issued when a voter claims a username and authenticates every
ballot request after that.

# Share Slugs

	slug := auth.ShareSlug(electionID, salt)

Base62 (0-9, a-z, A-Z), deterministic from the election ID and salt.

# IDs

	id := auth.NewID() // 32 hex characters, UUIDv4

# Hashing

HashIP and VoterIdentity use the same HMAC construction with a distinct
purpose label, so one salt never yields the same digest for two uses.
*/
package auth
