package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/devapeu/aomstats-crawler/internal/models"
	"github.com/devapeu/aomstats-crawler/internal/store"
)

// CreateTournament opens a new named tournament.
func (h *Handler) CreateTournament(w http.ResponseWriter, r *http.Request) {
	var req models.CreateTournamentRequest
	r.Body = http.MaxBytesReader(w, r.Body, MaxBodySize)
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.errorResponse(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if err := h.validator.Struct(req); err != nil {
		h.errorResponse(w, http.StatusBadRequest, "Tournament name is required")
		return
	}

	t, err := h.tournaments.CreateTournament(r.Context(), req.Name)
	if err != nil {
		h.logger.Errorw("Failed to create tournament", "name", req.Name, "error", err)
		h.errorResponse(w, http.StatusInternalServerError, "Failed to create tournament")
		return
	}
	h.jsonResponse(w, http.StatusCreated, t)
}

// ListTournaments returns all tournaments, newest first.
func (h *Handler) ListTournaments(w http.ResponseWriter, r *http.Request) {
	ts, err := h.tournaments.Tournaments(r.Context())
	if err != nil {
		h.logger.Errorw("Failed to list tournaments", "error", err)
		h.errorResponse(w, http.StatusInternalServerError, "Failed to list tournaments")
		return
	}
	h.jsonResponse(w, http.StatusOK, ts)
}

// AddTournamentMatch links a match to an open tournament.
func (h *Handler) AddTournamentMatch(w http.ResponseWriter, r *http.Request) {
	tournamentID, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		h.errorResponse(w, http.StatusBadRequest, "Invalid tournament id")
		return
	}

	var req models.AddMatchRequest
	r.Body = http.MaxBytesReader(w, r.Body, MaxBodySize)
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.errorResponse(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if err := h.validator.Struct(req); err != nil {
		h.errorResponse(w, http.StatusBadRequest, "match_id is required")
		return
	}

	if err := h.tournaments.AddTournamentMatch(r.Context(), tournamentID, req.MatchID); err != nil {
		if errors.Is(err, store.ErrTournamentNotFound) {
			h.errorResponse(w, http.StatusNotFound, "Tournament not found")
			return
		}
		if errors.Is(err, store.ErrTournamentClosed) {
			h.errorResponse(w, http.StatusConflict, "Tournament is closed")
			return
		}
		h.logger.Errorw("Failed to add tournament match",
			"tournament_id", tournamentID, "match_id", req.MatchID, "error", err)
		h.errorResponse(w, http.StatusInternalServerError, "Failed to add tournament match")
		return
	}
	h.jsonResponse(w, http.StatusOK, map[string]string{"status": "added"})
}

// ListTournamentMatches returns the matches linked to a tournament.
func (h *Handler) ListTournamentMatches(w http.ResponseWriter, r *http.Request) {
	tournamentID, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		h.errorResponse(w, http.StatusBadRequest, "Invalid tournament id")
		return
	}

	matches, err := h.tournaments.TournamentMatches(r.Context(), tournamentID)
	if err != nil {
		h.logger.Errorw("Failed to list tournament matches", "tournament_id", tournamentID, "error", err)
		h.errorResponse(w, http.StatusInternalServerError, "Failed to list tournament matches")
		return
	}
	h.jsonResponse(w, http.StatusOK, matches)
}
