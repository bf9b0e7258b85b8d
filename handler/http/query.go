package http

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

type queryRequest struct {
	Query     string `json:"query" binding:"required"`
	SessionID string `json:"session_id"`
}

type queryResponse struct {
	Answer    string   `json:"answer"`
	Sources   []string `json:"sources"`
	SessionID string   `json:"session_id"`
}

// Query godoc
// @Summary Answer a question over the ingested course corpus
// @Tags query
// @Accept json
// @Produce json
// @Param body body queryRequest true "Query parameters"
// @Success 200 {object} queryResponse
// @Failure 400 {object} ErrorResponse
// @Failure 500 {object} ErrorResponse
// @Router /query [post]
func (h *Handler) Query(c *gin.Context) {
	var req queryRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		sendError(c, http.StatusBadRequest, err)
		return
	}

	answer, sources, sessionID, err := h.queryService.Query(c.Request.Context(), req.Query, req.SessionID)
	if err != nil {
		sendError(c, http.StatusInternalServerError, err)
		return
	}

	if sources == nil {
		sources = []string{}
	}

	c.JSON(http.StatusOK, queryResponse{
		Answer:    answer,
		Sources:   sources,
		SessionID: sessionID,
	})
}
