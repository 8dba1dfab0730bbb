// Package rest is the HTTP adapter: gin routes over the Orchestrator.
package rest

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"github.com/ewilliams-labs/loopmatch/internal/core/domain"
	"github.com/ewilliams-labs/loopmatch/internal/core/services"
)

// Options configure the HTTP surface.
type Options struct {
	CORSOrigins []string
	Limits      domain.Limits
}

// Handler manages the HTTP interface for our application.
type Handler struct {
	svc    *services.Orchestrator
	router *gin.Engine
	limits domain.Limits
	log    zerolog.Logger
}

// NewHandler initializes the HTTP adapter and sets up routes.
func NewHandler(svc *services.Orchestrator, opts Options, log zerolog.Logger) *Handler {
	h := &Handler{
		svc:    svc,
		router: gin.New(),
		limits: opts.Limits,
		log:    log.With().Str("component", "http").Logger(),
	}
	if h.limits.MaxUploadBytes <= 0 {
		h.limits = domain.DefaultLimits()
	}
	// multipart parts beyond this spill to temp files
	h.router.MaxMultipartMemory = h.limits.MaxUploadBytes

	h.router.Use(RequestLogger(h.log), gin.Recovery(), CORS(opts.CORSOrigins))
	h.routes()

	return h
}

// ServeHTTP satisfies the http.Handler interface.
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	h.router.ServeHTTP(w, r)
}

// routes defines the mapping between URLs and methods.
func (h *Handler) routes() {
	h.router.GET("/health", h.HealthCheck)

	api := h.router.Group("/api")
	{
		api.GET("/analyze", h.AnalyzeInfo)
		api.POST("/analyze", h.Analyze)
		api.POST("/recommend", h.Recommend)
		api.POST("/recommend/audio", h.RecommendAudio)
		api.GET("/filters", h.Filters)
	}

	h.router.NoRoute(func(c *gin.Context) {
		respondError(c, http.StatusNotFound, "route not found")
	})
}

// HealthCheck is a simple endpoint to verify the API is running.
func (h *Handler) HealthCheck(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok", "message": "loopmatch is live"})
}
