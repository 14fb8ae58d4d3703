package handler

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/classmark/classmark-api/internal/models"
	"github.com/classmark/classmark-api/internal/service"
	appErrors "github.com/classmark/classmark-api/pkg/errors"
	"github.com/classmark/classmark-api/pkg/response"
)

// AttendanceHandler exposes attendance save/edit/history endpoints.
type AttendanceHandler struct {
	service *service.AttendanceService
	reports *service.ReportService
}

// NewAttendanceHandler constructs an attendance handler.
func NewAttendanceHandler(svc *service.AttendanceService, reports *service.ReportService) *AttendanceHandler {
	return &AttendanceHandler{service: svc, reports: reports}
}

// Save godoc
// @Summary Save a lecture slot's attendance
// @Description Saving the same class, subject, time slot and date again replaces the earlier submission.
// @Tags Attendance
// @Accept json
// @Produce json
// @Param payload body service.SaveAttendanceRequest true "Attendance payload"
// @Success 201 {object} response.Envelope
// @Security BearerAuth
// @Router /attendance [post]
func (h *AttendanceHandler) Save(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}

	var req service.SaveAttendanceRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Invalid(err, "invalid payload"))
		return
	}

	record, err := h.service.Save(c.Request.Context(), claims.UserID, req)
	if err != nil {
		response.Error(c, err)
		return
	}
	h.reports.InvalidateClass(c.Request.Context(), record.ClassID)
	response.Created(c, record)
}

// Update godoc
// @Summary Edit a saved record's statuses
// @Tags Attendance
// @Accept json
// @Produce json
// @Param id path string true "Record ID"
// @Param payload body service.UpdateAttendanceRequest true "Status payload"
// @Success 200 {object} response.Envelope
// @Security BearerAuth
// @Router /attendance/{id} [put]
func (h *AttendanceHandler) Update(c *gin.Context) {
	var req service.UpdateAttendanceRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Invalid(err, "invalid payload"))
		return
	}
	record, err := h.service.Update(c.Request.Context(), c.Param("id"), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	h.reports.InvalidateClass(c.Request.Context(), record.ClassID)
	response.JSON(c, http.StatusOK, record, nil)
}

// Get godoc
// @Summary Get a single attendance record
// @Tags Attendance
// @Produce json
// @Param id path string true "Record ID"
// @Success 200 {object} response.Envelope
// @Security BearerAuth
// @Router /attendance/{id} [get]
func (h *AttendanceHandler) Get(c *gin.Context) {
	record, err := h.service.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, record, nil)
}

// History godoc
// @Summary List attendance records, newest day first
// @Tags Attendance
// @Produce json
// @Param class_id query string false "Filter by class"
// @Param teacher_id query string false "Filter by teacher"
// @Param subject query string false "Filter by subject"
// @Param time_slot query string false "Filter by time slot"
// @Param date query string false "Filter by day (YYYY-MM-DD)"
// @Param page query int false "Page"
// @Param limit query int false "Page size"
// @Success 200 {object} response.Envelope
// @Security BearerAuth
// @Router /attendance [get]
func (h *AttendanceHandler) History(c *gin.Context) {
	filter := models.AttendanceFilter{
		ClassID:   c.Query("class_id"),
		TeacherID: c.Query("teacher_id"),
		Subject:   c.Query("subject"),
		TimeSlot:  c.Query("time_slot"),
		Date:      c.Query("date"),
	}
	if page, err := strconv.Atoi(c.DefaultQuery("page", "1")); err == nil {
		filter.Page = page
	}
	if size, err := strconv.Atoi(c.DefaultQuery("limit", "0")); err == nil {
		filter.PageSize = size
	}

	records, err := h.service.History(c.Request.Context(), filter)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, records, nil)
}

// Delete godoc
// @Summary Delete an attendance record
// @Tags Attendance
// @Produce json
// @Param id path string true "Record ID"
// @Success 204
// @Security BearerAuth
// @Router /attendance/{id} [delete]
func (h *AttendanceHandler) Delete(c *gin.Context) {
	record, err := h.service.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	if err := h.service.Delete(c.Request.Context(), record.ID); err != nil {
		response.Error(c, err)
		return
	}
	h.reports.InvalidateClass(c.Request.Context(), record.ClassID)
	response.NoContent(c)
}
