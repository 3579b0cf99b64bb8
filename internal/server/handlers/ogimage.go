package handlers

import (
	"net/http"
	"strconv"

	gferrors "github.com/fulmenhq/gofulmen/errors"

	apperrors "github.com/murphyslaws/murphys-laws/internal/errors"
	"github.com/murphyslaws/murphys-laws/internal/server/router"
)

// LawImage serves GET /api/v1/og/law/:id.png.
func (a *API) LawImage(w http.ResponseWriter, r *http.Request, p router.Params) error {
	id, ok := parseID(p.Get(0))
	if !ok {
		BadRequest(w, r, "Invalid law ID")
		return nil
	}

	img, err := a.Images.LawImage(r.Context(), id)
	if err != nil {
		envelope := apperrors.WrapInternal(r.Context(), err, "Failed to generate image")
		envelope, _ = envelope.WithSeverity(gferrors.SeverityHigh)
		respondWithError(w, r, envelope)
		return nil
	}
	if img == nil {
		NotFound(w, r)
		return nil
	}

	h := w.Header()
	h.Set("Content-Type", "image/png")
	h.Set("Content-Length", strconv.Itoa(len(img)))
	h.Set("Cache-Control", "public, max-age=86400")
	h.Set("X-Content-Type-Options", "nosniff")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(img)
	return nil
}
