package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/classmark/classmark-api/internal/service"
	"github.com/classmark/classmark-api/pkg/response"
)

// DashboardHandler serves the admin landing page counts.
type DashboardHandler struct {
	service *service.DashboardService
}

// NewDashboardHandler constructs a dashboard handler.
func NewDashboardHandler(svc *service.DashboardService) *DashboardHandler {
	return &DashboardHandler{service: svc}
}

// Counts godoc
// @Summary Roster counts per role and per class
// @Tags Dashboard
// @Produce json
// @Param refresh query bool false "Bypass the cached counts"
// @Success 200 {object} response.Envelope
// @Security BearerAuth
// @Router /dashboard/counts [get]
func (h *DashboardHandler) Counts(c *gin.Context) {
	refresh := c.Query("refresh") == "true" || c.Query("refresh") == "1"
	counts, err := h.service.Counts(c.Request.Context(), refresh)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, counts, nil)
}
