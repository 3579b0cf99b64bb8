package handlers

import (
	"fmt"
	"net/http"

	"github.com/murphyslaws/murphys-laws/internal/core"
	"github.com/murphyslaws/murphys-laws/internal/ratelimit"
	"github.com/murphyslaws/murphys-laws/internal/server/router"
)

type voteRequest struct {
	VoteType looseString `json:"vote_type"`
}

type voteResponse struct {
	LawID     int64  `json:"law_id"`
	VoteType  string `json:"vote_type,omitempty"`
	Upvotes   int64  `json:"upvotes"`
	Downvotes int64  `json:"downvotes"`
}

// Vote serves POST /api/v1/laws/:id/vote.
func (a *API) Vote(w http.ResponseWriter, r *http.Request, p router.Params) error {
	if !a.allow(w, r, ratelimit.CategoryVote) {
		return nil
	}

	lawID, ok := parseID(p.Get(0))
	if !ok {
		BadRequest(w, r, "Invalid law ID")
		return nil
	}

	var body voteRequest
	if err := ReadJSONBody(r, &body); err != nil {
		BadRequest(w, r, "Invalid JSON body")
		return nil
	}

	voteType, ok := core.ParseVoteType(string(body.VoteType))
	if !ok {
		BadRequest(w, r, `vote_type must be "up" or "down"`)
		return nil
	}

	found, err := a.lawExists(r, lawID)
	if err != nil {
		return err
	}
	if !found {
		NotFound(w, r)
		return nil
	}

	voter := VoterIdentifier(r)
	if err := a.Votes.Vote(r.Context(), lawID, voteType, voter); err != nil {
		return fmt.Errorf("vote on law %d: %w", lawID, err)
	}

	counts, err := a.Votes.VoteCounts(r.Context(), lawID)
	if err != nil {
		return fmt.Errorf("count votes on law %d: %w", lawID, err)
	}

	SendJSON(w, http.StatusOK, voteResponse{
		LawID:     lawID,
		VoteType:  string(voteType),
		Upvotes:   counts.Upvotes,
		Downvotes: counts.Downvotes,
	})
	return nil
}

// RemoveVote serves DELETE /api/v1/laws/:id/vote.
func (a *API) RemoveVote(w http.ResponseWriter, r *http.Request, p router.Params) error {
	if !a.allow(w, r, ratelimit.CategoryVote) {
		return nil
	}

	lawID, ok := parseID(p.Get(0))
	if !ok {
		BadRequest(w, r, "Invalid law ID")
		return nil
	}

	found, err := a.lawExists(r, lawID)
	if err != nil {
		return err
	}
	if !found {
		NotFound(w, r)
		return nil
	}

	if _, err := a.Votes.RemoveVote(r.Context(), lawID, VoterIdentifier(r)); err != nil {
		return fmt.Errorf("remove vote on law %d: %w", lawID, err)
	}

	counts, err := a.Votes.VoteCounts(r.Context(), lawID)
	if err != nil {
		return fmt.Errorf("count votes on law %d: %w", lawID, err)
	}

	SendJSON(w, http.StatusOK, voteResponse{
		LawID:     lawID,
		Upvotes:   counts.Upvotes,
		Downvotes: counts.Downvotes,
	})
	return nil
}

func (a *API) lawExists(r *http.Request, lawID int64) (bool, error) {
	law, err := a.Laws.GetLaw(r.Context(), lawID)
	if err != nil {
		return false, fmt.Errorf("get law %d: %w", lawID, err)
	}
	return law != nil, nil
}
