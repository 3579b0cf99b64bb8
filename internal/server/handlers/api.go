package handlers

import (
	"context"
	"net/http"
	"time"

	"github.com/murphyslaws/murphys-laws/internal/core"
	"github.com/murphyslaws/murphys-laws/internal/metrics"
	"github.com/murphyslaws/murphys-laws/internal/ratelimit"
)

// LawStore reads and accepts laws.
type LawStore interface {
	GetLaw(ctx context.Context, id int64) (*core.Law, error)
	SubmitLaw(ctx context.Context, sub core.LawSubmission) (int64, error)
}

// VoteStore records votes.
type VoteStore interface {
	Vote(ctx context.Context, lawID int64, voteType core.VoteType, voter string) error
	RemoveVote(ctx context.Context, lawID int64, voter string) (bool, error)
	VoteCounts(ctx context.Context, lawID int64) (core.VoteCounts, error)
}

// FeaturedLawSource picks the Law of the Day for a date.
type FeaturedLawSource interface {
	LawOfTheDay(ctx context.Context, day time.Time) (*core.FeaturedLaw, error)
}

// Pinger measures database round trips.
type Pinger interface {
	Ping(ctx context.Context) (time.Duration, error)
}

// RateLimiter decides whether a caller may act.
type RateLimiter interface {
	Check(identifier string, category ratelimit.Category) ratelimit.Decision
}

// ImageSource produces share cards. A nil image means the law does not exist.
type ImageSource interface {
	LawImage(ctx context.Context, lawID int64) ([]byte, error)
}

// API holds the dependencies of the /api handlers.
type API struct {
	Laws     LawStore
	Featured FeaturedLawSource
	Votes    VoteStore
	DB       Pinger
	Limiter  RateLimiter
	Images   ImageSource
}

// allow consults the limiter for the caller and answers 429 when denied.
// It reports whether the handler may proceed.
func (a *API) allow(w http.ResponseWriter, r *http.Request, category ratelimit.Category) bool {
	decision := a.Limiter.Check(VoterIdentifier(r), category)
	metrics.RecordRateLimitDecision(string(category), decision.Allowed)
	if !decision.Allowed {
		RateLimitExceeded(w, r, decision.ResetTime)
		return false
	}
	return true
}
