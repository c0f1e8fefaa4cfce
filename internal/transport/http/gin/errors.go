package httpgin

import (
	"errors"
	"math"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/kirinyoku/gigbook/internal/domain"
	"github.com/kirinyoku/gigbook/internal/service/inbox"
)

func badRequest(c *gin.Context, msg string) {
	c.JSON(http.StatusBadRequest, ErrorResponse{Error: msg})
}

func respondErr(c *gin.Context, err error) {
	if err == nil {
		c.Status(http.StatusNoContent)
		return
	}

	var (
		validation domain.ValidationError
		permission domain.PermissionError
		notFound   domain.NotFoundError
		state      domain.StateError
		limited    domain.RateLimitedError
	)

	switch {
	case errors.As(err, &validation):
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: validation.Error()})
	case errors.As(err, &permission):
		c.JSON(http.StatusForbidden, ErrorResponse{Error: permission.Error()})
	case errors.As(err, &notFound):
		c.JSON(http.StatusNotFound, ErrorResponse{Error: notFound.Error()})
	case errors.As(err, &state):
		c.JSON(http.StatusConflict, ErrorResponse{Error: state.Error(), CurrentStatus: state.Current})
	case errors.As(err, &limited):
		secs := int(math.Ceil(limited.RetryAfter.Seconds()))
		if secs < 1 {
			secs = 1
		}
		c.Header("Retry-After", strconv.Itoa(secs))
		c.JSON(http.StatusTooManyRequests, ErrorResponse{Error: "rate limited"})
	case errors.Is(err, inbox.ErrStreamUnavailable):
		c.JSON(http.StatusServiceUnavailable, ErrorResponse{Error: inbox.ErrStreamUnavailable.Error()})
	default:
		_ = c.Error(err)
		c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "internal error"})
	}
}
