package api

import (
	"net/http"

	"waba-onboarding/internal/auth"

	"github.com/gin-gonic/gin"
)

type AuthHandler struct {
	Store *auth.Store
}

func NewAuthHandler(store *auth.Store) *AuthHandler {
	return &AuthHandler{Store: store}
}

// Login stores the backend bearer token the agent authenticates with.
func (h *AuthHandler) Login(c *gin.Context) {
	var req struct {
		Token string `json:"token" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Token is required"})
		return
	}

	if err := h.Store.SetToken(req.Token); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "Logged in"})
}

// Logout clears the stored bearer token.
func (h *AuthHandler) Logout(c *gin.Context) {
	if err := h.Store.ClearToken(); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "Logged out"})
}

// Status reports whether a token is present without revealing it.
func (h *AuthHandler) Status(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"logged_in": h.Store.Token() != ""})
}
