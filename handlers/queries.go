// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package handlers

import (
	"database/sql"
	"time"

	"github.com/danielhkuo/quadvote/db"
	"github.com/danielhkuo/quadvote/models"
)

var isUniqueViolation = db.IsUniqueViolation

// querier is satisfied by both *sql.DB and *sql.Tx. SQLite runs on a single
// connection, so code inside a transaction must only query through the tx.
type querier interface {
	Exec(query string, args ...any) (sql.Result, error)
	Query(query string, args ...any) (*sql.Rows, error)
	QueryRow(query string, args ...any) *sql.Row
}

const electionColumns = `id, title, COALESCE(description, ''), creator_name, method, credits, topic_id,
	status, share_slug, closes_at, closed_at, final_snapshot_id, created_at`

func scanElection(row *sql.Row) (models.Election, error) {
	var e models.Election
	err := row.Scan(&e.ID, &e.Title, &e.Description, &e.CreatorName, &e.Method, &e.Credits, &e.TopicID,
		&e.Status, &e.ShareSlug, &e.ClosesAt, &e.ClosedAt, &e.FinalSnapshotID, &e.CreatedAt)
	return e, err
}

func electionByID(q querier, id string) (models.Election, error) {
	return scanElection(q.QueryRow(`SELECT `+electionColumns+` FROM election WHERE id = $1`, id))
}

func electionBySlug(q querier, slug string) (models.Election, error) {
	return scanElection(q.QueryRow(`SELECT `+electionColumns+` FROM election WHERE share_slug = $1`, slug))
}

// acceptingVotes reports whether ballots may still change at now.
func acceptingVotes(e models.Election, now time.Time) bool {
	if e.Status != models.StatusOpen {
		return false
	}
	return e.ClosesAt == nil || now.Before(*e.ClosesAt)
}

func choicesFor(q querier, electionID string) ([]models.Choice, error) {
	rows, err := q.Query(`
		SELECT id, election_id, label, position
		FROM choice
		WHERE election_id = $1
		ORDER BY position
	`, electionID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	choices := []models.Choice{}
	for rows.Next() {
		var c models.Choice
		if err := rows.Scan(&c.ID, &c.ElectionID, &c.Label, &c.Position); err != nil {
			return nil, err
		}
		choices = append(choices, c)
	}
	return choices, rows.Err()
}

// submittedVotes returns the stored allocation of a voter's ballot, keyed by
// choice id. It is empty when the voter has not submitted yet.
func submittedVotes(q querier, electionID, voterToken string) (map[string]int, error) {
	rows, err := q.Query(`
		SELECT a.choice_id, a.votes
		FROM allocation a
		JOIN ballot b ON b.id = a.ballot_id
		WHERE b.election_id = $1 AND b.voter_token = $2
	`, electionID, voterToken)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	votes := make(map[string]int)
	for rows.Next() {
		var choiceID string
		var n int
		if err := rows.Scan(&choiceID, &n); err != nil {
			return nil, err
		}
		votes[choiceID] = n
	}
	return votes, rows.Err()
}

func ballotCount(q querier, electionID string) (int, error) {
	var n int
	err := q.QueryRow(`SELECT COUNT(*) FROM ballot WHERE election_id = $1`, electionID).Scan(&n)
	return n, err
}

func voterClaimed(q querier, electionID, voterToken string) (bool, error) {
	var exists bool
	err := q.QueryRow(`
		SELECT EXISTS(SELECT 1 FROM voter_claim WHERE election_id = $1 AND voter_token = $2)
	`, electionID, voterToken).Scan(&exists)
	return exists, err
}
