package handlers

import (
	"errors"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/dkhydro/hydrosim/internal/backend"
	"github.com/dkhydro/hydrosim/internal/database"
	"github.com/dkhydro/hydrosim/internal/validation"
)

// ErrorResponse is the uniform error body for every non-2xx reply.
type ErrorResponse struct {
	Error string `json:"error"`
}

const backendProblemMessage = "Internal problem. Please contact support."

// respondError translates service errors into HTTP replies. Validation
// rejections carry their reason to the client; backend failures are proxied
// by status but never by body; everything else is an opaque 500.
func respondError(c *gin.Context, logger *slog.Logger, err error) {
	var verr *validation.Error
	var serr *backend.StatusError

	switch {
	case errors.As(err, &verr):
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: verr.Reason})
	case errors.Is(err, database.ErrNotFound):
		c.JSON(http.StatusNotFound, ErrorResponse{Error: err.Error()})
	case errors.As(err, &serr):
		logger.Error("backend rejected request",
			"status", serr.StatusCode, "body", serr.Body, "path", c.FullPath())
		c.JSON(serr.StatusCode, ErrorResponse{Error: backendProblemMessage})
	case errors.Is(err, backend.ErrUnreachable):
		logger.Error("backend unreachable", "error", err, "path", c.FullPath())
		c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "problem accessing the backend service"})
	default:
		logger.Error("request failed", "error", err, "path", c.FullPath())
		c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "internal server error"})
	}
}

// requireQuery reads a mandatory query argument. A missing or blank value
// answers 400 naming the argument and reports false.
func requireQuery(c *gin.Context, name string) (string, bool) {
	value := c.Query(name)
	if value == "" {
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Error: fmt.Sprintf("argument '%s' must be specified", name),
		})
		return "", false
	}
	return value, true
}
