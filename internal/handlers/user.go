package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"plinko-backend/internal/services"
)

type UserHandler struct {
	accounts *services.RedisService
}

func NewUserHandler(accounts *services.RedisService) *UserHandler {
	return &UserHandler{accounts: accounts}
}

// GetUser is the public projection; it never includes the password hash or
// the secret PIN.
func (h *UserHandler) GetUser(c *gin.Context) {
	acct, err := h.accounts.GetAccount(c.Request.Context(), c.Param("id"))
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"ok": true, "user": acct.Public()})
}

func (h *UserHandler) Me(c *gin.Context) {
	userID := c.GetString("user_id")

	acct, err := h.accounts.GetAccount(c.Request.Context(), userID)
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"ok": true, "user": acct.Public()})
}

func (h *UserHandler) Leaderboard(c *gin.Context) {
	top, err := h.accounts.Leaderboard(c.Request.Context(), 20)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"ok": false, "error": "Server error"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"ok": true, "top": top})
}
