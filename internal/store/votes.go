package store

import (
	"context"
	"fmt"
	"time"

	"github.com/murphyslaws/murphys-laws/internal/core"
)

// Vote records or replaces the vote of voter on a law. A voter holds at most
// one vote per law; voting again switches its direction.
func (s *Store) Vote(ctx context.Context, lawID int64, voteType core.VoteType, voter string) error {
	if s == nil || s.DB == nil {
		return errNotInitialized
	}
	if ctx == nil {
		ctx = context.Background()
	}
	if _, ok := core.ParseVoteType(string(voteType)); !ok {
		return fmt.Errorf("invalid vote type %q", voteType)
	}

	_, err := s.DB.ExecContext(ctx, `
		INSERT INTO votes (law_id, vote_type, voter_identifier, created_at)
		VALUES (?, ?, ?, ?)
		ON CONFLICT(law_id, voter_identifier)
		DO UPDATE SET vote_type = excluded.vote_type, created_at = excluded.created_at
	`, lawID, string(voteType), voter, time.Now().UTC().Unix())
	if err != nil {
		return fmt.Errorf("record vote: %w", err)
	}
	return nil
}

// RemoveVote deletes the vote of voter on a law. It reports whether a vote
// existed.
func (s *Store) RemoveVote(ctx context.Context, lawID int64, voter string) (bool, error) {
	if s == nil || s.DB == nil {
		return false, errNotInitialized
	}
	if ctx == nil {
		ctx = context.Background()
	}

	result, err := s.DB.ExecContext(ctx, `
		DELETE FROM votes WHERE law_id = ? AND voter_identifier = ?
	`, lawID, voter)
	if err != nil {
		return false, fmt.Errorf("remove vote: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("remove vote: %w", err)
	}
	return affected > 0, nil
}

// VoteCounts returns the up and down tallies of a law.
func (s *Store) VoteCounts(ctx context.Context, lawID int64) (core.VoteCounts, error) {
	if s == nil || s.DB == nil {
		return core.VoteCounts{}, errNotInitialized
	}
	if ctx == nil {
		ctx = context.Background()
	}

	var counts core.VoteCounts
	err := s.DB.QueryRowContext(ctx, `
		SELECT
			COALESCE(SUM(CASE WHEN vote_type = 'up' THEN 1 ELSE 0 END), 0),
			COALESCE(SUM(CASE WHEN vote_type = 'down' THEN 1 ELSE 0 END), 0)
		FROM votes
		WHERE law_id = ?
	`, lawID).Scan(&counts.Upvotes, &counts.Downvotes)
	if err != nil {
		return core.VoteCounts{}, fmt.Errorf("count votes: %w", err)
	}
	return counts, nil
}
