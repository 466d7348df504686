package handlers

import "net/http"

// GetGlobalStats returns the dashboard aggregate: top ranked maps, top team
// matchups and the roster rating leaderboard.
func (h *Handler) GetGlobalStats(w http.ResponseWriter, r *http.Request) {
	stats, err := h.global.GlobalStats(r.Context())
	if err != nil {
		h.logger.Errorw("Failed to get global stats", "error", err)
		h.errorResponse(w, http.StatusInternalServerError, "Failed to get global stats")
		return
	}
	h.jsonResponse(w, http.StatusOK, stats)
}

// Sync runs a full roster sync in the foreground.
func (h *Handler) Sync(w http.ResponseWriter, r *http.Request) {
	if err := h.syncer.SyncOnce(r.Context()); err != nil {
		h.logger.Errorw("Manual sync failed", "error", err)
		h.errorResponse(w, http.StatusBadGateway, "Sync failed")
		return
	}
	h.jsonResponse(w, http.StatusOK, map[string]string{"status": "synced"})
}
