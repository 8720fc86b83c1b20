package httpapi

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"rollcall/internal/apperr"
	"rollcall/internal/auth"
	"rollcall/internal/user"
)

func (h *Handler) register(c *gin.Context) {
	var req user.RegisterInput
	if err := c.ShouldBindJSON(&req); err != nil {
		writeErr(c, apperr.New(apperr.Validation, "invalid request body"))
		return
	}
	u, err := h.users.Register(c.Request.Context(), req)
	if err != nil {
		writeErr(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{
		"message": "user registered successfully",
		"user":    u,
	})
}

func (h *Handler) login(c *gin.Context) {
	var req struct {
		PRN      string `json:"prn"`
		Password string `json:"password"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		writeErr(c, apperr.New(apperr.Validation, "invalid request body"))
		return
	}
	u, err := h.users.Login(c.Request.Context(), req.PRN, req.Password)
	if err != nil {
		writeErr(c, err)
		return
	}

	tokens, err := auth.Issue(u.ID, u.Role, h.cfg.JWTIssuer, h.cfg.JWTSigningKey, h.cfg.AccessTTL, h.cfg.RefreshTTL)
	if err != nil {
		writeErr(c, apperr.Wrap(apperr.Store, "token issue failed", err))
		return
	}
	if err := h.users.SaveRefreshToken(c.Request.Context(), u.ID, tokens.RefreshToken, tokens.RefreshExp); err != nil {
		writeErr(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message":       "login successful",
		"access_token":  tokens.AccessToken,
		"refresh_token": tokens.RefreshToken,
		"expires_at":    tokens.AccessExp.Unix(),
		"user":          u,
	})
}

func (h *Handler) refresh(c *gin.Context) {
	var req struct {
		RefreshToken string `json:"refresh_token" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		writeErr(c, apperr.New(apperr.Validation, "refresh_token is required"))
		return
	}
	claims, err := auth.Parse(req.RefreshToken, h.cfg.JWTSigningKey, h.cfg.JWTIssuer)
	if err != nil {
		writeErr(c, apperr.New(apperr.Unauthenticated, "invalid refresh token"))
		return
	}
	if err := h.users.ValidateRefreshToken(c.Request.Context(), claims.Subject, req.RefreshToken); err != nil {
		writeErr(c, err)
		return
	}

	tokens, err := auth.Issue(claims.Subject, claims.Role, h.cfg.JWTIssuer, h.cfg.JWTSigningKey, h.cfg.AccessTTL, h.cfg.RefreshTTL)
	if err != nil {
		writeErr(c, apperr.Wrap(apperr.Store, "token issue failed", err))
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"access_token": tokens.AccessToken,
		"expires_at":   tokens.AccessExp.Unix(),
	})
}

func (h *Handler) profile(c *gin.Context) {
	actor, ok := h.actor(c)
	if !ok {
		return
	}
	c.JSON(http.StatusOK, gin.H{"user": actor})
}

func (h *Handler) forgotPassword(c *gin.Context) {
	var req struct {
		PRN   string `json:"prn"`
		Email string `json:"email"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		writeErr(c, apperr.New(apperr.Validation, "invalid request body"))
		return
	}
	if err := h.users.ConfirmIdentity(c.Request.Context(), req.PRN, req.Email); err != nil {
		writeErr(c, err)
		return
	}
	// TODO: deliver the reset link by email once an outbound mailer exists.
	c.JSON(http.StatusOK, gin.H{"message": "password reset instructions sent to your email"})
}

func (h *Handler) resetPassword(c *gin.Context) {
	var req struct {
		PRN      string `json:"prn"`
		Password string `json:"password"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		writeErr(c, apperr.New(apperr.Validation, "invalid request body"))
		return
	}
	if err := h.users.ResetPassword(c.Request.Context(), req.PRN, req.Password); err != nil {
		writeErr(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "password reset successfully"})
}
