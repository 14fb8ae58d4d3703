package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/classmark/classmark-api/internal/service"
	appErrors "github.com/classmark/classmark-api/pkg/errors"
	"github.com/classmark/classmark-api/pkg/response"
)

// ReportHandler exposes the aggregated attendance report endpoints.
type ReportHandler struct {
	service       *service.ReportService
	exportEnabled bool
	schoolName    string
}

// NewReportHandler constructs a report handler.
func NewReportHandler(svc *service.ReportService, exportEnabled bool, schoolName string) *ReportHandler {
	return &ReportHandler{service: svc, exportEnabled: exportEnabled, schoolName: schoolName}
}

// ClassReport godoc
// @Summary Per-subject attendance summary for a whole class
// @Tags Reports
// @Produce json
// @Param class_id path string true "Class ID"
// @Param month query string false "Restrict to month (YYYY-MM)"
// @Success 200 {object} response.Envelope
// @Security BearerAuth
// @Router /reports/classes/{class_id} [get]
func (h *ReportHandler) ClassReport(c *gin.Context) {
	report, err := h.service.ClassReport(c.Request.Context(), c.Param("class_id"), c.Query("month"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, report, nil)
}

// StudentReport godoc
// @Summary Per-subject folds plus overall summary for one student
// @Tags Reports
// @Produce json
// @Param student_id path string true "Student ID"
// @Param month query string false "Restrict to month (YYYY-MM)"
// @Success 200 {object} response.Envelope
// @Security BearerAuth
// @Router /reports/students/{student_id} [get]
func (h *ReportHandler) StudentReport(c *gin.Context) {
	report, err := h.service.StudentReport(c.Request.Context(), c.Param("student_id"), c.Query("month"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, report, nil)
}

// MyReport godoc
// @Summary The calling student's own report
// @Tags Reports
// @Produce json
// @Param month query string false "Restrict to month (YYYY-MM)"
// @Success 200 {object} response.Envelope
// @Security BearerAuth
// @Router /reports/me [get]
func (h *ReportHandler) MyReport(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}
	report, err := h.service.StudentReport(c.Request.Context(), claims.UserID, c.Query("month"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, report, nil)
}

// ExportClassReport godoc
// @Summary Download the class report as CSV or PDF
// @Tags Reports
// @Produce text/csv
// @Produce application/pdf
// @Param class_id path string true "Class ID"
// @Param format query string true "csv or pdf"
// @Param month query string false "Restrict to month (YYYY-MM)"
// @Success 200 {file} binary
// @Security BearerAuth
// @Router /reports/classes/{class_id}/export [get]
func (h *ReportHandler) ExportClassReport(c *gin.Context) {
	if !h.exportEnabled {
		response.Error(c, appErrors.Clone(appErrors.ErrForbidden, "report export is disabled"))
		return
	}

	format := c.DefaultQuery("format", service.ExportFormatCSV)
	file, err := h.service.ExportClass(c.Request.Context(), c.Param("class_id"), c.Query("month"), format, h.schoolName)
	if err != nil {
		response.Error(c, err)
		return
	}

	c.Header("Content-Disposition", `attachment; filename="`+file.Filename+`"`)
	c.Data(http.StatusOK, file.ContentType, file.Body)
}
