package httpapi

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"rollcall/internal/apperr"
	"rollcall/internal/model"
)

func (h *Handler) dashboardStats(c *gin.Context) {
	actor, ok := h.actor(c)
	if !ok {
		return
	}
	start, end := c.Query("start_date"), c.Query("end_date")
	switch actor.Role {
	case model.RoleStudent:
		dash, err := h.analytics.StudentDashboard(c.Request.Context(), actor.ID, start, end)
		if err != nil {
			writeErr(c, err)
			return
		}
		c.JSON(http.StatusOK, dash)
	case model.RoleTeacher:
		dash, err := h.analytics.TeacherDashboard(c.Request.Context(), actor.ID, start, end)
		if err != nil {
			writeErr(c, err)
			return
		}
		c.JSON(http.StatusOK, dash)
	default:
		writeErr(c, apperr.Newf(apperr.PermissionDenied, "unknown role %q", actor.Role))
	}
}

func (h *Handler) attendanceTrend(c *gin.Context) {
	actor, ok := h.actor(c)
	if !ok {
		return
	}
	points, err := h.analytics.Trend(c.Request.Context(), actor, c.Query("start_date"), c.Query("end_date"))
	if err != nil {
		writeErr(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"trend_data": points})
}

func (h *Handler) subjectAnalysis(c *gin.Context) {
	actor, ok := h.actor(c)
	if !ok {
		return
	}
	switch actor.Role {
	case model.RoleStudent:
		stats, err := h.analytics.StudentSubjectAnalysis(c.Request.Context(), actor.ID)
		if err != nil {
			writeErr(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"subject_analysis": stats})
	case model.RoleTeacher:
		stats, err := h.analytics.TeacherSubjectAnalysis(c.Request.Context(), actor.ID)
		if err != nil {
			writeErr(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"subject_analysis": stats})
	default:
		writeErr(c, apperr.Newf(apperr.PermissionDenied, "unknown role %q", actor.Role))
	}
}
