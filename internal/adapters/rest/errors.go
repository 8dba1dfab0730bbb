package rest

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/ewilliams-labs/loopmatch/internal/core/domain"
)

type errorResponse struct {
	Success bool   `json:"success"`
	Error   string `json:"error"`
}

func respondError(c *gin.Context, status int, msg string) {
	c.AbortWithStatusJSON(status, errorResponse{Success: false, Error: msg})
}

// statusFor maps service errors to a status and a client-safe message.
// Decoder diagnostics and anything unclassified stay in the logs.
func statusFor(err error) (int, string) {
	var (
		tooLarge    domain.FileTooLargeError
		unsupported domain.UnsupportedFormatError
		silent      domain.SilentOrTooQuietError
	)
	switch {
	case errors.As(err, &tooLarge):
		return http.StatusRequestEntityTooLarge, tooLarge.Error()
	case errors.As(err, &unsupported):
		return http.StatusUnsupportedMediaType, unsupported.Error()
	case errors.As(err, &silent):
		return http.StatusUnprocessableEntity, silent.Error()
	case errors.Is(err, domain.ErrDecode):
		return http.StatusUnprocessableEntity, "audio could not be decoded"
	case errors.Is(err, domain.ErrInvalidInput):
		return http.StatusBadRequest, "invalid request"
	}
	return http.StatusInternalServerError, "internal server error"
}

// fail logs err against the request and writes the mapped response.
func (h *Handler) fail(c *gin.Context, err error) {
	status, msg := statusFor(err)
	_ = c.Error(err)
	if status == http.StatusBadRequest {
		msg = err.Error()
	}
	respondError(c, status, msg)
}
