package httpapi

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"rollcall/internal/apperr"
	"rollcall/internal/model"
	"rollcall/internal/user"
)

func (h *Handler) listUsers(c *gin.Context) {
	actor, ok := h.actor(c)
	if !ok {
		return
	}
	filter := user.ListFilter{
		Role:       model.Role(c.Query("role")),
		ClassName:  c.Query("class"),
		Department: c.Query("dept"),
	}
	users, err := h.users.List(c.Request.Context(), actor, filter)
	if err != nil {
		writeErr(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"users": users})
}

func (h *Handler) getUser(c *gin.Context) {
	actor, ok := h.actor(c)
	if !ok {
		return
	}
	u, err := h.users.Get(c.Request.Context(), actor, c.Param("id"))
	if err != nil {
		writeErr(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"user": u})
}

func (h *Handler) updateUser(c *gin.Context) {
	actor, ok := h.actor(c)
	if !ok {
		return
	}
	var req user.ProfileUpdate
	if err := c.ShouldBindJSON(&req); err != nil {
		writeErr(c, apperr.New(apperr.Validation, "invalid request body"))
		return
	}
	u, err := h.users.UpdateProfile(c.Request.Context(), actor, c.Param("id"), req)
	if err != nil {
		writeErr(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"message": "user updated successfully",
		"user":    u,
	})
}

func (h *Handler) activateUser(c *gin.Context) {
	h.setUserActive(c, true, "user activated successfully")
}

func (h *Handler) deactivateUser(c *gin.Context) {
	h.setUserActive(c, false, "user deactivated successfully")
}

func (h *Handler) setUserActive(c *gin.Context, active bool, message string) {
	actor, ok := h.actor(c)
	if !ok {
		return
	}
	if err := h.users.SetActive(c.Request.Context(), actor, c.Param("id"), active); err != nil {
		writeErr(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": message})
}
