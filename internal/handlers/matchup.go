package handlers

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/devapeu/aomstats-crawler/internal/logic"
	"github.com/devapeu/aomstats-crawler/internal/models"
)

// PredictMatchup returns blended win probabilities and the historical tally
// for an arbitrary two-sided matchup.
func (h *Handler) PredictMatchup(w http.ResponseWriter, r *http.Request) {
	var req models.MatchupRequest
	r.Body = http.MaxBytesReader(w, r.Body, MaxBodySize)
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.errorResponse(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if err := h.validator.Struct(req); err != nil {
		h.errorResponse(w, http.StatusBadRequest, "Both teams must have at least one player")
		return
	}

	prediction, err := h.matchup.Predict(r.Context(), req.Team1, req.Team2)
	if errors.Is(err, logic.ErrEmptyTeam) {
		h.errorResponse(w, http.StatusBadRequest, "Both teams must have at least one player")
		return
	}
	if err != nil {
		h.logger.Errorw("Failed to predict matchup", "error", err)
		h.errorResponse(w, http.StatusInternalServerError, "Failed to predict matchup")
		return
	}
	h.jsonResponse(w, http.StatusOK, prediction)
}
