package handlers

import (
	"net/http"

	"github.com/devapeu/aomstats-crawler/internal/logic"
)

// GetPlayerGods returns god usage with win rates for a player.
func (h *Handler) GetPlayerGods(w http.ResponseWriter, r *http.Request) {
	profileID, err := profileIDParam(r)
	if err != nil {
		h.errorResponse(w, http.StatusBadRequest, "Invalid profile id")
		return
	}

	stats, err := h.stats.GodUsage(r.Context(), profileID, afterQuery(r))
	if err != nil {
		h.logger.Errorw("Failed to get god usage", "profile_id", profileID, "error", err)
		h.errorResponse(w, http.StatusInternalServerError, "Failed to get god usage")
		return
	}
	h.jsonResponse(w, http.StatusOK, stats)
}

// GetPlayerMaps returns map usage with win rates for a player.
func (h *Handler) GetPlayerMaps(w http.ResponseWriter, r *http.Request) {
	profileID, err := profileIDParam(r)
	if err != nil {
		h.errorResponse(w, http.StatusBadRequest, "Invalid profile id")
		return
	}

	stats, err := h.stats.MapUsage(r.Context(), profileID, afterQuery(r))
	if err != nil {
		h.logger.Errorw("Failed to get map usage", "profile_id", profileID, "error", err)
		h.errorResponse(w, http.StatusInternalServerError, "Failed to get map usage")
		return
	}
	h.jsonResponse(w, http.StatusOK, stats)
}

// GetPlayerPartners returns per-teammate win tallies for a player.
func (h *Handler) GetPlayerPartners(w http.ResponseWriter, r *http.Request) {
	h.breakdown(w, r, logic.ModePartners)
}

// GetPlayerRivals returns per-opponent win tallies against a player.
func (h *Handler) GetPlayerRivals(w http.ResponseWriter, r *http.Request) {
	h.breakdown(w, r, logic.ModeRivals)
}

func (h *Handler) breakdown(w http.ResponseWriter, r *http.Request, mode logic.BreakdownMode) {
	profileID, err := profileIDParam(r)
	if err != nil {
		h.errorResponse(w, http.StatusBadRequest, "Invalid profile id")
		return
	}

	bd, err := h.stats.Breakdown(r.Context(), profileID, mode, afterQuery(r))
	if err != nil {
		h.logger.Errorw("Failed to get breakdown", "profile_id", profileID, "mode", mode, "error", err)
		h.errorResponse(w, http.StatusInternalServerError, "Failed to get breakdown")
		return
	}
	h.jsonResponse(w, http.StatusOK, bd)
}

// GetPlayerWinStreak returns the player's current win streak.
func (h *Handler) GetPlayerWinStreak(w http.ResponseWriter, r *http.Request) {
	profileID, err := profileIDParam(r)
	if err != nil {
		h.errorResponse(w, http.StatusBadRequest, "Invalid profile id")
		return
	}

	streak, err := h.stats.WinStreak(r.Context(), profileID)
	if err != nil {
		h.logger.Errorw("Failed to get win streak", "profile_id", profileID, "error", err)
		h.errorResponse(w, http.StatusInternalServerError, "Failed to get win streak")
		return
	}
	h.jsonResponse(w, http.StatusOK, map[string]int{"winstreak": streak})
}

// GetPlayerElo returns the player's current rating.
func (h *Handler) GetPlayerElo(w http.ResponseWriter, r *http.Request) {
	profileID, err := profileIDParam(r)
	if err != nil {
		h.errorResponse(w, http.StatusBadRequest, "Invalid profile id")
		return
	}

	rating, err := h.elo.Rating(r.Context(), profileID)
	if err != nil {
		h.logger.Errorw("Failed to get rating", "profile_id", profileID, "error", err)
		h.errorResponse(w, http.StatusInternalServerError, "Failed to get rating")
		return
	}
	h.jsonResponse(w, http.StatusOK, map[string]interface{}{
		"profile_id": profileID,
		"elo":        rating,
	})
}

// FetchPlayer crawls and ingests one player's unseen history on demand.
func (h *Handler) FetchPlayer(w http.ResponseWriter, r *http.Request) {
	profileID, err := profileIDParam(r)
	if err != nil {
		h.errorResponse(w, http.StatusBadRequest, "Invalid profile id")
		return
	}
	if _, ok := h.roster[profileID]; !ok {
		h.errorResponse(w, http.StatusNotFound, "Player is not tracked")
		return
	}

	inserted, err := h.syncer.SyncPlayer(r.Context(), profileID)
	if err != nil {
		h.logger.Errorw("Failed to fetch player history", "profile_id", profileID, "error", err)
		h.errorResponse(w, http.StatusBadGateway, "Failed to fetch player history")
		return
	}
	h.jsonResponse(w, http.StatusOK, map[string]interface{}{
		"profile_id": profileID,
		"inserted":   inserted,
	})
}
