// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package handlers

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"sort"

	"github.com/danielhkuo/quadvote/models"
)

// ComputeTally aggregates every submitted ballot of an election into ranked
// per-choice totals. Choices nobody voted for are included with zeros.
//
// Ranking: total votes desc, then voter count desc, then credits spent asc,
// then choice position. Ties on everything but position share a rank.
func ComputeTally(q querier, electionID string) ([]models.ChoiceTally, error) {
	rows, err := q.Query(`
		SELECT c.id, c.label, c.position,
		       COALESCE(SUM(a.votes), 0),
		       COALESCE(SUM(a.votes * a.votes), 0),
		       COUNT(a.ballot_id)
		FROM choice c
		LEFT JOIN allocation a ON a.choice_id = c.id AND a.votes > 0
		WHERE c.election_id = $1
		GROUP BY c.id, c.label, c.position
	`, electionID)
	if err != nil {
		return nil, fmt.Errorf("failed to query allocations: %w", err)
	}
	defer rows.Close()

	tallies := []models.ChoiceTally{}
	for rows.Next() {
		var t models.ChoiceTally
		if err := rows.Scan(&t.ChoiceID, &t.Label, &t.Position, &t.TotalVotes, &t.CreditsSpent, &t.VoterCount); err != nil {
			return nil, fmt.Errorf("failed to scan tally row: %w", err)
		}
		tallies = append(tallies, t)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating tally rows: %w", err)
	}

	rankTallies(tallies)
	return tallies, nil
}

func rankTallies(tallies []models.ChoiceTally) {
	sort.Slice(tallies, func(i, j int) bool {
		a, b := tallies[i], tallies[j]
		if a.TotalVotes != b.TotalVotes {
			return a.TotalVotes > b.TotalVotes
		}
		if a.VoterCount != b.VoterCount {
			return a.VoterCount > b.VoterCount
		}
		if a.CreditsSpent != b.CreditsSpent {
			return a.CreditsSpent < b.CreditsSpent
		}
		return a.Position < b.Position
	})

	for i := range tallies {
		if i > 0 && sameStanding(tallies[i-1], tallies[i]) {
			tallies[i].Rank = tallies[i-1].Rank
			continue
		}
		tallies[i].Rank = i + 1
	}
}

func sameStanding(a, b models.ChoiceTally) bool {
	return a.TotalVotes == b.TotalVotes && a.VoterCount == b.VoterCount && a.CreditsSpent == b.CreditsSpent
}

// computeInputsHash fingerprints the set of ballots a snapshot was computed
// from, so a result can be checked against the ballot table later.
func computeInputsHash(q querier, electionID string) (string, error) {
	rows, err := q.Query(`SELECT id FROM ballot WHERE election_id = $1 ORDER BY id`, electionID)
	if err != nil {
		return "", err
	}
	defer rows.Close()

	h := sha256.New()
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return "", err
		}
		h.Write([]byte(id))
		h.Write([]byte{'\n'})
	}
	if err := rows.Err(); err != nil {
		return "", err
	}
	return hex.EncodeToString(h.Sum(nil)), nil
}
