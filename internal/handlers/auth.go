package handlers

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"humanityclub/site/internal/middleware"
	"humanityclub/site/internal/respond"
	"humanityclub/site/internal/service"
)

const refreshTokenHeader = "X-Refresh-Token"

type loginRequest struct {
	Email    string `json:"email" binding:"required"`
	Password string `json:"password" binding:"required"`
}

var loginRules = fieldRules{
	"Email":    service.ErrMissingCredentials,
	"Password": service.ErrMissingCredentials,
}

func (h HandlerSet) Login(c *gin.Context) {
	var req loginRequest
	if err := bindJSON(c, &req, loginRules); err != nil {
		respond.Error(c, err)
		return
	}

	result, err := h.deps.Auth.Login(c.Request.Context(), req.Email, req.Password)
	if err != nil {
		respond.Error(c, err)
		return
	}

	respond.JSON(c, http.StatusOK, "Login successful", toSession(result))
}

type refreshRequest struct {
	RefreshToken string `json:"refreshToken"`
}

// Refresh accepts the refresh token from the body, the X-Refresh-Token
// header or a bearer header, in that order.
func (h HandlerSet) Refresh(c *gin.Context) {
	var req refreshRequest
	if err := bindJSON(c, &req, nil); err != nil {
		respond.Error(c, err)
		return
	}

	token := strings.TrimSpace(req.RefreshToken)
	if token == "" {
		token = strings.TrimSpace(c.GetHeader(refreshTokenHeader))
	}
	if token == "" {
		token, _ = middleware.BearerToken(c)
	}

	result, err := h.deps.Auth.Refresh(c.Request.Context(), token)
	if err != nil {
		respond.Error(c, err)
		return
	}

	respond.JSON(c, http.StatusOK, "Token refreshed", toSession(result))
}

func (h HandlerSet) Logout(c *gin.Context) {
	user, ok := middleware.CurrentUser(c)
	if !ok {
		respond.Error(c, middleware.ErrLoginRequired)
		return
	}

	if err := h.deps.Auth.Logout(c.Request.Context(), user.ID); err != nil {
		respond.Error(c, err)
		return
	}

	respond.JSON(c, http.StatusOK, "Logged out successfully", nil)
}

func (h HandlerSet) Me(c *gin.Context) {
	user, ok := middleware.CurrentUser(c)
	if !ok {
		respond.Error(c, middleware.ErrLoginRequired)
		return
	}
	respond.OK(c, gin.H{"user": toUser(user)})
}
