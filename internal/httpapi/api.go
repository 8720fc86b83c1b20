// Package httpapi exposes the service operations as JSON endpoints.
package httpapi

import (
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"rollcall/internal/analytics"
	"rollcall/internal/attendance"
	"rollcall/internal/auth"
	"rollcall/internal/config"
	"rollcall/internal/model"
	"rollcall/internal/user"
)

var (
	sessionsRecorded = promauto.NewCounter(prometheus.CounterOpts{
		Name: "rollcall_sessions_recorded_total",
		Help: "Class sessions created with their enrollment snapshot.",
	})
	attendanceUpdates = promauto.NewCounter(prometheus.CounterOpts{
		Name: "rollcall_attendance_updates_total",
		Help: "Attendance status update calls applied.",
	})
)

// Handler bundles the services behind the HTTP surface.
type Handler struct {
	cfg        config.App
	users      *user.Service
	attendance *attendance.Service
	analytics  *analytics.Service
}

// New creates a handler.
func New(cfg config.App, users *user.Service, att *attendance.Service, ana *analytics.Service) *Handler {
	return &Handler{cfg: cfg, users: users, attendance: att, analytics: ana}
}

// Routes registers all endpoints on the engine.
func (h *Handler) Routes(r *gin.Engine) {
	v1 := r.Group("/v1")

	authGroup := v1.Group("/auth")
	authGroup.POST("/register", h.register)
	authGroup.POST("/login", h.login)
	authGroup.POST("/refresh", h.refresh)
	authGroup.POST("/forgot-password", h.forgotPassword)
	authGroup.POST("/reset-password", h.resetPassword)

	protected := v1.Group("", auth.Bearer(h.cfg.JWTSigningKey, h.cfg.JWTIssuer))
	protected.GET("/auth/profile", h.profile)

	usersGroup := protected.Group("/users")
	usersGroup.GET("", h.listUsers)
	usersGroup.GET("/:id", h.getUser)
	usersGroup.PUT("/:id", h.updateUser)
	usersGroup.POST("/:id/activate", h.activateUser)
	usersGroup.POST("/:id/deactivate", h.deactivateUser)

	att := protected.Group("/attendance")
	att.POST("/record", h.recordAttendance)
	att.PUT("/update", h.updateAttendance)
	att.GET("/session/:id", h.sessionAttendance)
	att.GET("/student/:id", h.studentAttendance)
	att.GET("/analytics", h.attendanceAnalytics)

	dash := protected.Group("/dashboard")
	dash.GET("/stats", h.dashboardStats)
	dash.GET("/attendance-trend", h.attendanceTrend)
	dash.GET("/subject-analysis", h.subjectAnalysis)
}

// actor resolves the bearer claims to a full user row. On failure it writes
// the error response and reports false.
func (h *Handler) actor(c *gin.Context) (model.User, bool) {
	claims, ok := auth.ClaimsFrom(c)
	if !ok {
		c.AbortWithStatusJSON(401, gin.H{"error": "missing bearer token"})
		return model.User{}, false
	}
	u, err := h.users.Actor(c.Request.Context(), claims.Subject)
	if err != nil {
		writeErr(c, err)
		return model.User{}, false
	}
	return *u, true
}
