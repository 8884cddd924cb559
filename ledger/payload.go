// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package ledger

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/holiman/uint256"

	"github.com/danielhkuo/quadvote/commitment"
	"github.com/danielhkuo/quadvote/quadratic"
)

var (
	ErrNoVotesCast          = errors.New("no votes cast")
	ErrLocationProofTooLong = errors.New("location proof too long")
)

// MaxLocationProofLen bounds the free-form proof string passed through to
// the contract.
const MaxLocationProofLen = 1024

// VotePayload holds the arguments of the contract call
//
//	vote(uint256 topicId, bytes32 nullifier, bytes32 voterCommitment,
//	     string locationProof, uint256[] voteData)
//
// VoteData interleaves choice positions and vote counts:
// [index0, votes0, index1, votes1, ...].
type VotePayload struct {
	TopicID       *uint256.Int
	Nullifier     commitment.Bytes32
	Commitment    commitment.Bytes32
	LocationProof string
	VoteData      []*uint256.Int
}

// NewVotePayload encodes the ballot's non-zero allocations. locationProof is
// passed through unchanged and may be empty.
func NewVotePayload(topicID uint64, pair commitment.Pair, locationProof string, b *quadratic.Ballot) (VotePayload, error) {
	if len(locationProof) > MaxLocationProofLen {
		return VotePayload{}, fmt.Errorf("%w: %d bytes, max %d", ErrLocationProofTooLong, len(locationProof), MaxLocationProofLen)
	}
	pairs := b.VoteData()
	if len(pairs) == 0 {
		return VotePayload{}, ErrNoVotesCast
	}

	data := make([]*uint256.Int, 0, 2*len(pairs))
	for _, p := range pairs {
		data = append(data, uint256.NewInt(uint64(p.Index)), uint256.NewInt(uint64(p.Votes)))
	}

	return VotePayload{
		TopicID:       uint256.NewInt(topicID),
		Nullifier:     pair.Nullifier,
		Commitment:    pair.Commitment,
		LocationProof: locationProof,
		VoteData:      data,
	}, nil
}

// Allocations decodes VoteData back into (index, votes) pairs.
func (p VotePayload) Allocations() ([]quadratic.VotePair, error) {
	if len(p.VoteData)%2 != 0 {
		return nil, fmt.Errorf("vote data has odd length %d", len(p.VoteData))
	}
	out := make([]quadratic.VotePair, 0, len(p.VoteData)/2)
	for i := 0; i < len(p.VoteData); i += 2 {
		idx, votes := p.VoteData[i], p.VoteData[i+1]
		if !idx.IsUint64() || !votes.IsUint64() {
			return nil, fmt.Errorf("vote data entry %d overflows uint64", i/2)
		}
		out = append(out, quadratic.VotePair{Index: int(idx.Uint64()), Votes: int(votes.Uint64())})
	}
	return out, nil
}

type payloadJSON struct {
	TopicID       string             `json:"topic_id"`
	Nullifier     commitment.Bytes32 `json:"nullifier"`
	Commitment    commitment.Bytes32 `json:"voter_commitment"`
	LocationProof string             `json:"location_proof"`
	VoteData      []string           `json:"vote_data"`
}

// MarshalJSON writes uint256 values as decimal strings so clients do not
// lose precision in JavaScript numbers.
func (p VotePayload) MarshalJSON() ([]byte, error) {
	out := payloadJSON{
		Nullifier:     p.Nullifier,
		Commitment:    p.Commitment,
		LocationProof: p.LocationProof,
		VoteData:      make([]string, len(p.VoteData)),
	}
	if p.TopicID != nil {
		out.TopicID = p.TopicID.Dec()
	}
	for i, v := range p.VoteData {
		out.VoteData[i] = v.Dec()
	}
	return json.Marshal(out)
}

func (p *VotePayload) UnmarshalJSON(data []byte) error {
	var in payloadJSON
	if err := json.Unmarshal(data, &in); err != nil {
		return err
	}

	topic, err := uint256.FromDecimal(in.TopicID)
	if err != nil {
		return fmt.Errorf("topic_id: %w", err)
	}
	values := make([]*uint256.Int, len(in.VoteData))
	for i, s := range in.VoteData {
		v, err := uint256.FromDecimal(s)
		if err != nil {
			return fmt.Errorf("vote_data[%d]: %w", i, err)
		}
		values[i] = v
	}

	*p = VotePayload{
		TopicID:       topic,
		Nullifier:     in.Nullifier,
		Commitment:    in.Commitment,
		LocationProof: in.LocationProof,
		VoteData:      values,
	}
	return nil
}
