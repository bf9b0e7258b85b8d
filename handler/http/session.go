package http

import (
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"
)

type clearSessionRequest struct {
	SessionID string `json:"session_id" binding:"required"`
}

type clearSessionResponse struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
}

// ClearSession godoc
// @Summary Clear a session's conversation history
// @Tags query
// @Accept json
// @Produce json
// @Param body body clearSessionRequest true "Session to clear"
// @Success 200 {object} clearSessionResponse
// @Failure 400 {object} ErrorResponse
// @Router /session/clear [post]
func (h *Handler) ClearSession(c *gin.Context) {
	var req clearSessionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		sendError(c, http.StatusBadRequest, err)
		return
	}

	h.queryService.ClearSession(req.SessionID)

	c.JSON(http.StatusOK, clearSessionResponse{
		Success: true,
		Message: fmt.Sprintf("Session %s cleared", req.SessionID),
	})
}
