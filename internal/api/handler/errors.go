package handler

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/quangtm-dev/dirsubmit-be/internal/queue/domain"
)

// respondError maps domain errors onto the HTTP contract. Workers treat 5xx
// as retryable and 4xx as final, so the mapping is load-bearing.
func (h *JobHandler) respondError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, domain.ErrJobNotFound):
		c.JSON(http.StatusNotFound, gin.H{
			"error": "job not found",
		})

	case errors.Is(err, domain.ErrInvalidState):
		var stateErr *domain.InvalidStateError
		resp := gin.H{
			"error":   "invalid job state",
			"message": err.Error(),
		}
		if errors.As(err, &stateErr) {
			resp["job_status"] = stateErr.Status
		}
		c.JSON(http.StatusConflict, resp)

	case errors.Is(err, domain.ErrInvalidArgument):
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "invalid argument",
			"message": err.Error(),
		})

	default:
		h.logger.Error("Request failed",
			slog.String("path", c.Request.URL.Path),
			slog.Any("error", err),
		)
		c.JSON(http.StatusInternalServerError, gin.H{
			"error": "internal error",
		})
	}
}
