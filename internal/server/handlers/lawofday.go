package handlers

import (
	"fmt"
	"net/http"

	apperrors "github.com/murphyslaws/murphys-laws/internal/errors"
	"github.com/murphyslaws/murphys-laws/internal/server/router"
)

// NoPublishedLawsMessage is the 404 message when no law can be featured.
const NoPublishedLawsMessage = "No published laws available"

// LawOfTheDay serves GET /api/v1/law-of-day for the current UTC date.
func (a *API) LawOfTheDay(w http.ResponseWriter, r *http.Request, _ router.Params) error {
	if a.Featured == nil {
		respondWithError(w, r, apperrors.NewNotFoundError(NoPublishedLawsMessage))
		return nil
	}

	featured, err := a.Featured.LawOfTheDay(r.Context(), now())
	if err != nil {
		return fmt.Errorf("law of the day: %w", err)
	}
	if featured == nil {
		respondWithError(w, r, apperrors.NewNotFoundError(NoPublishedLawsMessage))
		return nil
	}

	SendJSON(w, http.StatusOK, featured)
	return nil
}
