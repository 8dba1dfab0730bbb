package rest

import (
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/ewilliams-labs/loopmatch/internal/core/domain"
)

// uploadFields are the multipart field names accepted for the audio file,
// in lookup order.
var uploadFields = []string{"file", "audio", "audio_file"}

// multipartOverhead is the slack allowed on top of the file size limit for
// boundaries and other form fields.
const multipartOverhead = 1 << 20

type analyzeResponse struct {
	Success bool `json:"success"`
	domain.Analysis
}

// AnalyzeInfo handles GET /api/analyze
func (h *Handler) AnalyzeInfo(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"message":          "POST an audio file as multipart/form-data to analyze it",
		"fields":           uploadFields,
		"supportedFormats": h.limits.SupportedFormats,
		"maxFileSize":      h.limits.MaxUploadBytes,
		"minFileSize":      h.limits.MinAudioBytes,
	})
}

// Analyze handles POST /api/analyze
func (h *Handler) Analyze(c *gin.Context) {
	// 1. Read the upload
	upload, ok := h.readUpload(c)
	if !ok {
		return
	}

	// 2. Call Service
	analysis, err := h.svc.Analyze(c.Request.Context(), upload)
	if err != nil {
		h.fail(c, err)
		return
	}

	// 3. Respond
	c.JSON(http.StatusOK, analyzeResponse{Success: true, Analysis: analysis})
}

// readUpload pulls the audio part out of a multipart request. On failure it
// has already written the response.
func (h *Handler) readUpload(c *gin.Context) (domain.AudioUpload, bool) {
	limit := h.limits.MaxUploadBytes
	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, limit+multipartOverhead)

	var (
		header *multipart.FileHeader
		err    error
	)
	for _, field := range uploadFields {
		header, err = c.FormFile(field)
		if err == nil {
			break
		}
		var tooBig *http.MaxBytesError
		if errors.As(err, &tooBig) {
			h.fail(c, domain.FileTooLargeError{Size: c.Request.ContentLength, Limit: limit})
			return domain.AudioUpload{}, false
		}
	}
	if header == nil {
		respondError(c, http.StatusBadRequest, fmt.Sprintf("no audio file in form fields %v", uploadFields))
		return domain.AudioUpload{}, false
	}
	if header.Size > limit {
		h.fail(c, domain.FileTooLargeError{Size: header.Size, Limit: limit})
		return domain.AudioUpload{}, false
	}

	f, err := header.Open()
	if err != nil {
		h.fail(c, fmt.Errorf("open upload: %w", err))
		return domain.AudioUpload{}, false
	}
	defer f.Close()

	data, err := io.ReadAll(io.LimitReader(f, limit+1))
	if err != nil {
		h.fail(c, fmt.Errorf("read upload: %w", err))
		return domain.AudioUpload{}, false
	}

	return domain.AudioUpload{
		Filename:    header.Filename,
		ContentType: header.Header.Get("Content-Type"),
		Data:        data,
	}, true
}
