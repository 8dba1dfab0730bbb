package rest

import (
	"math"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/ewilliams-labs/loopmatch/internal/core/domain"
)

type recommendRequest struct {
	BPM *float64 `json:"bpm"`
	Key string   `json:"key"`
}

type recommendationDTO struct {
	Filename string  `json:"filename"`
	BPM      float64 `json:"bpm"`
	Key      string  `json:"key"`
	Category string  `json:"category"`
	URL      string  `json:"url"`
}

type recommendResponse struct {
	DetectedBPM     float64             `json:"detectedBPM"`
	DetectedKey     string              `json:"detectedKey"`
	Recommendations []recommendationDTO `json:"recommendations"`
	Analysis        *domain.Analysis    `json:"analysis,omitempty"`
}

func toDTOs(recs []domain.Recommendation) []recommendationDTO {
	out := make([]recommendationDTO, 0, len(recs))
	for _, r := range recs {
		out = append(out, recommendationDTO{
			Filename: r.Item.Filename,
			BPM:      r.Item.BPM,
			Key:      r.Item.Key,
			Category: r.Item.Category,
			URL:      r.Item.URL,
		})
	}
	return out
}

// Recommend handles POST /api/recommend
func (h *Handler) Recommend(c *gin.Context) {
	// 1. Decode Request
	var req recommendRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, http.StatusBadRequest, "invalid request body")
		return
	}

	// 2. Validate Input
	if req.BPM == nil {
		respondError(c, http.StatusBadRequest, "bpm is required")
		return
	}

	// 3. Call Service
	recs, err := h.svc.Recommend(c.Request.Context(), *req.BPM, req.Key)
	if err != nil {
		h.fail(c, err)
		return
	}

	// 4. Respond
	c.JSON(http.StatusOK, recommendResponse{
		DetectedBPM:     *req.BPM,
		DetectedKey:     req.Key,
		Recommendations: toDTOs(recs),
	})
}

// RecommendAudio handles POST /api/recommend/audio
func (h *Handler) RecommendAudio(c *gin.Context) {
	upload, ok := h.readUpload(c)
	if !ok {
		return
	}

	analysis, recs, err := h.svc.RecommendFromAudio(c.Request.Context(), upload)
	if err != nil {
		h.fail(c, err)
		return
	}

	bpm := analysis.Result.Tempo()
	c.JSON(http.StatusOK, recommendResponse{
		DetectedBPM:     math.Round(bpm),
		DetectedKey:     analysis.Result.Key.String(),
		Recommendations: toDTOs(recs),
		Analysis:        &analysis,
	})
}
