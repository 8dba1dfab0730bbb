package rest

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/ewilliams-labs/loopmatch/internal/core/query"
)

// Filters handles GET /api/filters?q=
func (h *Handler) Filters(c *gin.Context) {
	q := strings.TrimSpace(c.Query("q"))
	filters := h.svc.ExtractFilters(q)
	c.JSON(http.StatusOK, gin.H{
		"filters": filters,
		"params":  query.Params(filters, q).Encode(),
	})
}
