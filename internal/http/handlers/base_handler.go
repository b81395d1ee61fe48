// README: Base handler utilities (JSON helpers, error mapping).
package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"ridematch/internal/modules/advice"
	"ridematch/internal/modules/matching"
	"ridematch/internal/modules/profile"
)

type errorResponse struct {
	Error string `json:"error"`
}

// listResponse mirrors the envelope the dashboard expects.
type listResponse struct {
	Success bool `json:"success"`
	Count   int  `json:"count"`
	Data    any  `json:"data"`
}

func writeJSON(c *gin.Context, status int, v any) {
	c.JSON(status, v)
}

func writeList(c *gin.Context, count int, data any) {
	writeJSON(c, http.StatusOK, listResponse{Success: true, Count: count, Data: data})
}

func writeError(c *gin.Context, status int, msg string) {
	writeJSON(c, status, errorResponse{Error: msg})
}

func writeMatchError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, matching.ErrBadRequest):
		writeError(c, http.StatusBadRequest, err.Error())
	case errors.Is(err, matching.ErrNotFound), errors.Is(err, profile.ErrNotFound):
		writeError(c, http.StatusNotFound, err.Error())
	case errors.Is(err, matching.ErrDuplicate):
		writeError(c, http.StatusConflict, err.Error())
	case errors.Is(err, matching.ErrClosed):
		writeError(c, http.StatusServiceUnavailable, err.Error())
	case errors.Is(err, advice.ErrConfig):
		writeError(c, http.StatusInternalServerError, "scoring configuration unavailable")
	default:
		writeError(c, http.StatusInternalServerError, "internal error")
	}
}
