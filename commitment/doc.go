// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

// Package commitment derives the bytes32 commitment and nullifier values
// attached to a submitted ballot.
//
// Both values are Keccak-256 digests of a normalized identity with distinct
// domain tags. They identify and de-duplicate voters; they do not prove
// anything about the voter.
package commitment
