package core

import "strings"

// LawStatus is the moderation state of a law.
type LawStatus string

const (
	LawStatusPublished LawStatus = "published"
	LawStatusInReview  LawStatus = "in_review"
	LawStatusRejected  LawStatus = "rejected"
)

// VoteType is the direction of a vote.
type VoteType string

const (
	VoteUp   VoteType = "up"
	VoteDown VoteType = "down"
)

// ParseVoteType accepts "up" or "down".
func ParseVoteType(raw string) (VoteType, bool) {
	switch VoteType(strings.TrimSpace(raw)) {
	case VoteUp:
		return VoteUp, true
	case VoteDown:
		return VoteDown, true
	default:
		return "", false
	}
}

// Attribution credits whoever contributed a law.
type Attribution struct {
	Name         string  `json:"name"`
	ContactType  string  `json:"contact_type,omitempty"`
	ContactValue *string `json:"contact_value"`
	Note         *string `json:"note"`
}

// Law is a published law as served by the API.
type Law struct {
	ID           int64         `json:"id"`
	Title        *string       `json:"title"`
	Text         string        `json:"text"`
	FilePath     *string       `json:"file_path"`
	LineNumber   *int64        `json:"line_number"`
	Attributions []Attribution `json:"attributions"`
	Upvotes      int64         `json:"upvotes"`
	Downvotes    int64         `json:"downvotes"`
	CategoryIDs  []int64       `json:"category_ids"`
	CategoryID   *int64        `json:"category_id"`
}

// DisplayTitle returns the title, or "" when the law has none.
func (l *Law) DisplayTitle() string {
	if l == nil || l.Title == nil {
		return ""
	}
	return *l.Title
}

// FeaturedLaw is the Law of the Day for one UTC date (YYYY-MM-DD).
type FeaturedLaw struct {
	Law          *Law   `json:"law"`
	FeaturedDate string `json:"featured_date"`
}

// LawSubmission is a validated user submission.
type LawSubmission struct {
	Title      string
	Text       string
	Author     string
	Email      string
	CategoryID int64
}

// VoteCounts are the current tallies for one law.
type VoteCounts struct {
	Upvotes   int64 `json:"upvotes"`
	Downvotes int64 `json:"downvotes"`
}

// Law text bounds for submissions, in characters.
const (
	MinLawTextLength = 10
	MaxLawTextLength = 1000
)
