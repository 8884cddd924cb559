// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

// Package ledger builds the on-chain vote payload for a finished ballot.
// Sending the transaction is left to the voter's wallet.
package ledger
