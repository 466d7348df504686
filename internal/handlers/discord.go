package handlers

import (
	"encoding/base64"
	"encoding/json"
	"net/http"

	"github.com/devapeu/aomstats-crawler/internal/models"
)

// maxPlannerBodySize allows for large base64-encoded screenshots.
const maxPlannerBodySize = 8 << 20

// SendPlanner forwards a rendered team-planner image to the Discord webhook.
func (h *Handler) SendPlanner(w http.ResponseWriter, r *http.Request) {
	if h.planner == nil {
		h.errorResponse(w, http.StatusInternalServerError, "Discord webhook not configured on server")
		return
	}

	var req models.PlannerRequest
	r.Body = http.MaxBytesReader(w, r.Body, maxPlannerBodySize)
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.errorResponse(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if err := h.validator.Struct(req); err != nil {
		h.errorResponse(w, http.StatusBadRequest, "Missing required field: imageBase64")
		return
	}

	image, err := base64.StdEncoding.DecodeString(req.ImageBase64)
	if err != nil {
		h.errorResponse(w, http.StatusBadRequest, "Invalid base64 image data")
		return
	}

	if err := h.planner.SendPlannerImage(r.Context(), image, req.Message); err != nil {
		h.logger.Errorw("Failed to send planner image", "error", err)
		h.errorResponse(w, http.StatusBadGateway, "Discord webhook failed")
		return
	}
	h.jsonResponse(w, http.StatusOK, map[string]string{"message": "Image sent to Discord"})
}
