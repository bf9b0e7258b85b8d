package http

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

type courseStatsResponse struct {
	TotalCourses int64    `json:"total_courses"`
	CourseTitles []string `json:"course_titles"`
}

// GetCourseStats godoc
// @Summary Course catalog statistics
// @Tags courses
// @Produce json
// @Success 200 {object} courseStatsResponse
// @Failure 500 {object} ErrorResponse
// @Router /courses [get]
func (h *Handler) GetCourseStats(c *gin.Context) {
	ctx := c.Request.Context()

	count, err := h.catalogService.Count(ctx)
	if err != nil {
		sendError(c, http.StatusInternalServerError, err)
		return
	}

	titles, err := h.catalogService.ListTitles(ctx)
	if err != nil {
		sendError(c, http.StatusInternalServerError, err)
		return
	}

	if titles == nil {
		titles = []string{}
	}

	c.JSON(http.StatusOK, courseStatsResponse{
		TotalCourses: count,
		CourseTitles: titles,
	})
}
