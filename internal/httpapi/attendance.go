package httpapi

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"rollcall/internal/apperr"
	"rollcall/internal/attendance"
	"rollcall/internal/model"
)

func (h *Handler) recordAttendance(c *gin.Context) {
	actor, ok := h.actor(c)
	if !ok {
		return
	}
	var req attendance.CreateSessionInput
	if err := c.ShouldBindJSON(&req); err != nil {
		writeErr(c, apperr.New(apperr.Validation, "invalid request body"))
		return
	}
	session, count, err := h.attendance.CreateSession(c.Request.Context(), actor, req)
	if err != nil {
		writeErr(c, err)
		return
	}
	sessionsRecorded.Inc()
	c.JSON(http.StatusCreated, gin.H{
		"message":        "attendance recorded successfully",
		"class_session":  session,
		"students_count": count,
	})
}

func (h *Handler) updateAttendance(c *gin.Context) {
	actor, ok := h.actor(c)
	if !ok {
		return
	}
	var req struct {
		ClassSessionID    string                    `json:"class_session_id"`
		AttendanceUpdates []attendance.StatusUpdate `json:"attendance_updates"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		writeErr(c, apperr.New(apperr.Validation, "invalid request body"))
		return
	}
	updated, err := h.attendance.UpdateAttendance(c.Request.Context(), actor, req.ClassSessionID, req.AttendanceUpdates)
	if err != nil {
		writeErr(c, err)
		return
	}
	attendanceUpdates.Inc()
	c.JSON(http.StatusOK, gin.H{
		"message":       "attendance updated successfully",
		"updated_count": updated,
	})
}

func (h *Handler) sessionAttendance(c *gin.Context) {
	actor, ok := h.actor(c)
	if !ok {
		return
	}
	session, records, err := h.attendance.SessionAttendance(c.Request.Context(), actor, c.Param("id"))
	if err != nil {
		writeErr(c, err)
		return
	}
	if actor.Role == model.RoleStudent {
		c.JSON(http.StatusOK, gin.H{
			"class_session": session,
			"attendance":    records[0],
		})
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"class_session": session,
		"attendances":   records,
	})
}

func (h *Handler) studentAttendance(c *gin.Context) {
	actor, ok := h.actor(c)
	if !ok {
		return
	}
	filter, err := historyFilter(c)
	if err != nil {
		writeErr(c, err)
		return
	}
	student, records, err := h.attendance.StudentAttendance(c.Request.Context(), actor, c.Param("id"), filter)
	if err != nil {
		writeErr(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"student":     student,
		"attendances": records,
	})
}

func (h *Handler) attendanceAnalytics(c *gin.Context) {
	actor, ok := h.actor(c)
	if !ok {
		return
	}
	start, end := c.Query("start_date"), c.Query("end_date")
	switch actor.Role {
	case model.RoleStudent:
		summary, err := h.analytics.StudentStats(c.Request.Context(), actor.ID, start, end)
		if err != nil {
			writeErr(c, err)
			return
		}
		c.JSON(http.StatusOK, summary)
	case model.RoleTeacher:
		summary, err := h.analytics.TeacherStats(c.Request.Context(), actor.ID, start, end, c.Query("class"), c.Query("dept"))
		if err != nil {
			writeErr(c, err)
			return
		}
		c.JSON(http.StatusOK, summary)
	default:
		writeErr(c, apperr.Newf(apperr.PermissionDenied, "unknown role %q", actor.Role))
	}
}

func historyFilter(c *gin.Context) (attendance.HistoryFilter, error) {
	var f attendance.HistoryFilter
	if v := c.Query("start_date"); v != "" {
		parsed, err := time.Parse("2006-01-02", v)
		if err != nil {
			return f, apperr.New(apperr.Validation, "start_date must be YYYY-MM-DD")
		}
		f.StartDate = &parsed
	}
	if v := c.Query("end_date"); v != "" {
		parsed, err := time.Parse("2006-01-02", v)
		if err != nil {
			return f, apperr.New(apperr.Validation, "end_date must be YYYY-MM-DD")
		}
		f.EndDate = &parsed
	}
	f.Subject = c.Query("subject")
	return f, nil
}
