package handlers

import (
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"plinko-backend/internal/models"
	"plinko-backend/internal/services"
)

type GameHandler struct {
	engine       *services.SettlementEngine
	redisService *services.RedisService
}

func NewGameHandler(engine *services.SettlementEngine, redisService *services.RedisService) *GameHandler {
	return &GameHandler{
		engine:       engine,
		redisService: redisService,
	}
}

// Play settles one bet for the authenticated user. The outcome is computed
// server side; a client-supplied payout is never accepted.
func (h *GameHandler) Play(c *gin.Context) {
	userID := c.GetString("user_id")

	var req models.PlayRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"ok": false, "error": "Invalid bet", "details": err.Error()})
		return
	}
	if req.UserID != "" && req.UserID != userID {
		c.JSON(http.StatusForbidden, gin.H{"ok": false, "error": "Cannot play for another user"})
		return
	}
	if err := req.Validate(); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"ok": false, "error": "Invalid bet", "details": err.Error()})
		return
	}

	allowed, err := h.redisService.CheckRateLimit(c.Request.Context(), userID, "play", services.DefaultRateLimitPlays, time.Minute)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"ok": false, "error": "Rate limit check failed"})
		return
	}
	if !allowed {
		c.JSON(http.StatusTooManyRequests, gin.H{"ok": false, "error": "Too many plays. Please wait."})
		return
	}

	result, err := h.engine.SettleBet(c.Request.Context(), userID, req.Bet)
	if err != nil {
		fail(c, err)
		return
	}

	message := "No win this time"
	if result.WinAmount > 0 {
		message = fmt.Sprintf("You won $%d", result.WinAmount)
	}

	c.JSON(http.StatusOK, gin.H{
		"ok":              true,
		"balance":         result.Balance,
		"win":             result.WinAmount,
		"isJackpot":       result.IsJackpot,
		"jackpotAward":    result.JackpotAward,
		"slot":            result.SlotLabel,
		"cumulative_wins": result.CumulativeWins,
		"message":         message,
	})
}

func (h *GameHandler) GetBalance(c *gin.Context) {
	userID := c.GetString("user_id")

	acct, err := h.engine.Balance(c.Request.Context(), userID)
	if err != nil {
		fail(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"ok": true,
		"balance": gin.H{
			"balance":          acct.Balance,
			"cumulative_wins":  acct.CumulativeWins,
			"jackpot_awarded":  acct.JackpotAwarded,
			"jackpot_unlocked": acct.JackpotUnlocked,
		},
	})
}

func (h *GameHandler) GetHistory(c *gin.Context) {
	userID := c.GetString("user_id")

	limitStr := c.DefaultQuery("limit", "50")
	limit, err := strconv.ParseInt(limitStr, 10, 64)
	if err != nil || limit <= 0 || limit > 100 {
		limit = 50
	}

	plays, err := h.redisService.UserPlays(c.Request.Context(), userID, limit)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"ok": false, "error": "Failed to get play history"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"ok":    true,
		"plays": plays,
		"count": len(plays),
	})
}
