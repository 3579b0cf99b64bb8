package handlers

import (
	"errors"
	"fmt"
	"net/http"
	"strings"
	"unicode/utf8"

	"github.com/murphyslaws/murphys-laws/internal/core"
	"github.com/murphyslaws/murphys-laws/internal/ratelimit"
	"github.com/murphyslaws/murphys-laws/internal/server/router"
	"github.com/murphyslaws/murphys-laws/internal/store"
)

// SubmitMessage accompanies every accepted submission.
const SubmitMessage = "Law submitted successfully and is pending review"

type submitRequest struct {
	Title      looseString `json:"title"`
	Text       looseString `json:"text"`
	Author     looseString `json:"author"`
	Email      looseString `json:"email"`
	CategoryID looseInt    `json:"category_id"`
}

type submitResponse struct {
	ID      int64   `json:"id"`
	Title   *string `json:"title"`
	Text    string  `json:"text"`
	Status  string  `json:"status"`
	Message string  `json:"message"`
}

// GetLaw serves GET /api/v1/laws/:id.
func (a *API) GetLaw(w http.ResponseWriter, r *http.Request, p router.Params) error {
	id, ok := parseID(p.Get(0))
	if !ok {
		BadRequest(w, r, "Invalid law ID")
		return nil
	}

	law, err := a.Laws.GetLaw(r.Context(), id)
	if err != nil {
		return fmt.Errorf("get law %d: %w", id, err)
	}
	if law == nil {
		NotFound(w, r)
		return nil
	}

	SendJSON(w, http.StatusOK, law)
	return nil
}

// SubmitLaw serves POST /api/v1/laws. The quota is charged before the body
// is read.
func (a *API) SubmitLaw(w http.ResponseWriter, r *http.Request, _ router.Params) error {
	if !a.allow(w, r, ratelimit.CategorySubmit) {
		return nil
	}

	var body submitRequest
	if err := ReadJSONBody(r, &body); err != nil {
		BadRequest(w, r, "Invalid JSON body")
		return nil
	}

	text := strings.TrimSpace(string(body.Text))
	if text == "" {
		BadRequest(w, r, "Law text is required")
		return nil
	}

	var categoryID int64
	if body.CategoryID.Set {
		if !body.CategoryID.Valid || body.CategoryID.Value <= 0 {
			BadRequest(w, r, "Invalid category ID")
			return nil
		}
		categoryID = body.CategoryID.Value
	}

	switch n := utf8.RuneCountInString(text); {
	case n < core.MinLawTextLength:
		BadRequest(w, r, fmt.Sprintf("Law text must be at least %d characters", core.MinLawTextLength))
		return nil
	case n > core.MaxLawTextLength:
		BadRequest(w, r, fmt.Sprintf("Law text must be less than %d characters", core.MaxLawTextLength))
		return nil
	}

	sub := core.LawSubmission{
		Title:      strings.TrimSpace(string(body.Title)),
		Text:       text,
		Author:     strings.TrimSpace(string(body.Author)),
		Email:      strings.TrimSpace(string(body.Email)),
		CategoryID: categoryID,
	}

	id, err := a.Laws.SubmitLaw(r.Context(), sub)
	if errors.Is(err, store.ErrUnknownCategory) {
		BadRequest(w, r, "Invalid category ID")
		return nil
	}
	if err != nil {
		return fmt.Errorf("submit law: %w", err)
	}

	var title *string
	if sub.Title != "" {
		title = &sub.Title
	}
	SendJSON(w, http.StatusCreated, submitResponse{
		ID:      id,
		Title:   title,
		Text:    text,
		Status:  string(core.LawStatusInReview),
		Message: SubmitMessage,
	})
	return nil
}
