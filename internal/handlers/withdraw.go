package handlers

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"plinko-backend/internal/models"
	"plinko-backend/internal/services"
)

type WithdrawHandler struct {
	withdrawals  *services.WithdrawalService
	pgStore      *services.PostgresStore
	redisService *services.RedisService
}

func NewWithdrawHandler(withdrawals *services.WithdrawalService, pgStore *services.PostgresStore, redisService *services.RedisService) *WithdrawHandler {
	return &WithdrawHandler{
		withdrawals:  withdrawals,
		pgStore:      pgStore,
		redisService: redisService,
	}
}

// Request creates a pending withdrawal. Balance is not debited here; the
// admin approval does that.
func (h *WithdrawHandler) Request(c *gin.Context) {
	userID := c.GetString("user_id")

	var req models.WithdrawRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"ok": false, "error": "Invalid amount", "details": err.Error()})
		return
	}
	if req.UserID != "" && req.UserID != userID {
		c.JSON(http.StatusForbidden, gin.H{"ok": false, "error": "Cannot withdraw for another user"})
		return
	}
	if err := req.Validate(); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"ok": false, "error": "Invalid amount", "details": err.Error()})
		return
	}

	allowed, err := h.redisService.CheckRateLimit(c.Request.Context(), userID, "withdraw", services.DefaultRateLimitWithdraws, time.Minute)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"ok": false, "error": "Rate limit check failed"})
		return
	}
	if !allowed {
		c.JSON(http.StatusTooManyRequests, gin.H{"ok": false, "error": "Too many withdrawal requests. Please wait."})
		return
	}

	w, err := h.withdrawals.Request(c.Request.Context(), userID, req.Amount, req.Method, req.Details)
	if err != nil {
		fail(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"ok": true, "withdrawal": w})
}

func (h *WithdrawHandler) MyWithdrawals(c *gin.Context) {
	userID := c.GetString("user_id")

	ws, err := h.pgStore.UserWithdrawals(c.Request.Context(), userID, 50)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"ok": false, "error": "Server error"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"ok": true, "withdrawals": ws})
}
