package handlers

import (
	"crypto/subtle"
	"net/http"

	"github.com/gin-gonic/gin"
	log "github.com/sirupsen/logrus"

	"plinko-backend/internal/config"
	"plinko-backend/internal/models"
	"plinko-backend/internal/services"
)

type AdminHandler struct {
	accounts    *services.RedisService
	withdrawals *services.WithdrawalService
	pgStore     *services.PostgresStore
	jwtService  *services.JWTService
	cfg         *config.Config
}

func NewAdminHandler(accounts *services.RedisService, withdrawals *services.WithdrawalService, pgStore *services.PostgresStore, jwtService *services.JWTService, cfg *config.Config) *AdminHandler {
	return &AdminHandler{
		accounts:    accounts,
		withdrawals: withdrawals,
		pgStore:     pgStore,
		jwtService:  jwtService,
		cfg:         cfg,
	}
}

func (h *AdminHandler) Login(c *gin.Context) {
	var req struct {
		Password string `json:"password" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"ok": false, "error": "Missing password"})
		return
	}

	if h.cfg.AdminPassword == "" ||
		subtle.ConstantTimeCompare([]byte(req.Password), []byte(h.cfg.AdminPassword)) != 1 {
		c.JSON(http.StatusUnauthorized, gin.H{"ok": false, "error": "Unauthorized"})
		return
	}

	token, err := h.jwtService.GenerateToken("admin", true)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"ok": false, "error": "Server error"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"ok": true, "token": token})
}

func (h *AdminHandler) ListUsers(c *gin.Context) {
	accounts, err := h.accounts.ListAccounts(c.Request.Context())
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"ok": false, "error": "Server error"})
		return
	}

	users := make([]*models.PublicAccount, 0, len(accounts))
	for _, acct := range accounts {
		users = append(users, acct.Public())
	}
	c.JSON(http.StatusOK, gin.H{"ok": true, "users": users})
}

func (h *AdminHandler) BlockUser(c *gin.Context) {
	var req struct {
		Block  bool   `json:"block"`
		Reason string `json:"reason"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"ok": false, "error": "Invalid request"})
		return
	}

	id := c.Param("id")
	acct, err := h.accounts.MutateAccount(c.Request.Context(), id, func(a *models.Account) error {
		a.Blocked = req.Block
		if req.Block {
			if req.Reason == "" {
				req.Reason = "Blocked by admin"
			}
			a.BlockReason = req.Reason
		} else {
			a.BlockReason = ""
		}
		return nil
	})
	if err != nil {
		fail(c, err)
		return
	}

	h.logAction(c, "block", map[string]any{
		"user_id":  acct.ID,
		"username": acct.Username,
		"block":    acct.Blocked,
		"reason":   req.Reason,
	})
	c.JSON(http.StatusOK, gin.H{"ok": true, "user": gin.H{"id": acct.ID, "blocked": acct.Blocked}})
}

func (h *AdminHandler) ListWithdrawals(c *gin.Context) {
	ws, err := h.pgStore.ListWithdrawals(c.Request.Context(), 200)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"ok": false, "error": "Server error"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"ok": true, "withdrawals": ws})
}

// ResolveWithdrawal approves or declines a pending request. Approval debits
// the account (clamped at zero) before the request flips to approved.
func (h *AdminHandler) ResolveWithdrawal(c *gin.Context) {
	var req struct {
		Action string `json:"action" binding:"required,oneof=approve decline"`
		Note   string `json:"note"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"ok": false, "error": "Invalid request"})
		return
	}

	id := c.Param("id")
	w, err := h.withdrawals.Resolve(c.Request.Context(), id, req.Action == "approve", req.Note)
	if err != nil {
		fail(c, err)
		return
	}

	h.logAction(c, "withdraw", map[string]any{
		"withdrawal_id": w.ID,
		"user_id":       w.UserID,
		"action":        req.Action,
		"note":          req.Note,
	})
	c.JSON(http.StatusOK, gin.H{"ok": true, "withdrawal": w})
}

func (h *AdminHandler) logAction(c *gin.Context, action string, details map[string]any) {
	if err := h.pgStore.LogAdminAction(c.Request.Context(), action, details); err != nil {
		log.WithError(err).WithField("action", action).Warn("failed to write admin log")
	}
}
