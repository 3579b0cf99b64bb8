package handlers

import (
	"context"
	"fmt"
	"net/http"
	"time"

	apperrors "github.com/murphyslaws/murphys-laws/internal/errors"
	"github.com/murphyslaws/murphys-laws/internal/metrics"
	"github.com/murphyslaws/murphys-laws/internal/server/router"
)

const apiHealthTimeout = 2 * time.Second

type apiHealthResponse struct {
	OK          bool   `json:"ok"`
	DBQueryTime string `json:"dbQueryTime"`
}

// Health serves GET /api/health: a round trip to the database.
func (a *API) Health(w http.ResponseWriter, r *http.Request, _ router.Params) error {
	ctx, cancel := context.WithTimeout(r.Context(), apiHealthTimeout)
	defer cancel()

	elapsed, err := a.DB.Ping(ctx)
	if err != nil {
		envelope := apperrors.WrapServiceUnavailable(r.Context(), err, "Database unavailable").
			WithDetails(map[string]interface{}{"ok": false})
		respondWithError(w, r, envelope)
		return nil
	}

	metrics.RecordDBQueryDuration(elapsed)
	SendJSON(w, http.StatusOK, apiHealthResponse{
		OK:          true,
		DBQueryTime: fmt.Sprintf("%dms", elapsed.Milliseconds()),
	})
	return nil
}

// DBChecker backs the ops health probes with the database.
type DBChecker struct {
	DB Pinger
}

// CheckHealth pings the database.
func (c DBChecker) CheckHealth(ctx context.Context) error {
	_, err := c.DB.Ping(ctx)
	return err
}
