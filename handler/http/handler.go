package http

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"courserag/src/core/system"
)

// QueryService answers one user question within an optional session.
type QueryService interface {
	Query(ctx context.Context, text, sessionID string) (answer string, sources []string, usedSessionID string, err error)
	ClearSession(sessionID string)
}

// CatalogService serves course catalog statistics.
type CatalogService interface {
	ListTitles(ctx context.Context) ([]string, error)
	Count(ctx context.Context) (int64, error)
}

// SystemService reports the health of the backing components.
type SystemService interface {
	CheckHealth(ctx context.Context) (*system.HealthStatus, error)
}

type Handler struct {
	queryService   QueryService
	catalogService CatalogService
	systemService  SystemService
}

func NewHandler(queryService QueryService, catalogService CatalogService, systemService SystemService) *Handler {
	return &Handler{
		queryService:   queryService,
		catalogService: catalogService,
		systemService:  systemService,
	}
}

// RegisterRoutes registers all API routes
func (h *Handler) RegisterRoutes(r *gin.Engine) {
	api := r.Group("/api")

	api.POST("/query", h.Query)
	api.POST("/session/clear", h.ClearSession)
	api.GET("/courses", h.GetCourseStats)
	api.GET("/health", h.CheckHealth)
}

// Common error response structure
type ErrorResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

func sendError(c *gin.Context, status int, err error) {
	code := "INTERNAL_ERROR"
	if status == http.StatusBadRequest {
		code = "BAD_REQUEST"
	}

	c.JSON(status, ErrorResponse{
		Code:    code,
		Message: err.Error(),
	})
}

// CheckHealth godoc
// @Summary Check system health status
// @Tags system
// @Produce json
// @Success 200 {object} system.HealthStatus
// @Failure 500 {object} ErrorResponse
// @Router /health [get]
func (h *Handler) CheckHealth(c *gin.Context) {
	status, err := h.systemService.CheckHealth(c.Request.Context())
	if err != nil {
		sendError(c, http.StatusInternalServerError, err)
		return
	}
	c.JSON(http.StatusOK, status)
}
