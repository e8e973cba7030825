package handlers

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	log "github.com/sirupsen/logrus"
	"golang.org/x/crypto/bcrypt"

	"plinko-backend/internal/config"
	"plinko-backend/internal/models"
	"plinko-backend/internal/services"
)

type AuthHandler struct {
	accounts   *services.RedisService
	jwtService *services.JWTService
	notifier   *services.Notifier
	cfg        *config.Config
}

func NewAuthHandler(accounts *services.RedisService, jwtService *services.JWTService, notifier *services.Notifier, cfg *config.Config) *AuthHandler {
	return &AuthHandler{
		accounts:   accounts,
		jwtService: jwtService,
		notifier:   notifier,
		cfg:        cfg,
	}
}

func (h *AuthHandler) Register(c *gin.Context) {
	var req models.RegisterRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"ok": false, "error": "Missing required fields", "details": err.Error()})
		return
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"ok": false, "error": "Server error"})
		return
	}

	acct := models.NewAccount(req.Username, req.Email, string(hash), req.SecretPin, req.ReferralCode, h.cfg.WelcomeBonus)
	if err := h.accounts.CreateAccount(c.Request.Context(), acct); err != nil {
		fail(c, err)
		return
	}

	if req.ReferralCode != "" {
		h.creditReferrer(c, acct, req.ReferralCode)
	}
	h.notifier.Registration(acct.Username, acct.Email, req.ReferralCode)

	token, err := h.jwtService.GenerateToken(acct.ID, false)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"ok": false, "error": "Server error"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"ok":    true,
		"token": token,
		"user":  acct.Public(),
	})
}

// creditReferrer pays the referral bonus through the store's serialized
// mutate; a bad code is simply ignored, registration already succeeded.
func (h *AuthHandler) creditReferrer(c *gin.Context, newAcct *models.Account, code string) {
	ctx := c.Request.Context()

	referrer, err := h.accounts.GetAccountByReferralCode(ctx, code)
	if err != nil || referrer.ID == newAcct.ID {
		return
	}

	_, err = h.accounts.MutateAccount(ctx, referrer.ID, func(a *models.Account) error {
		for _, r := range a.Referrals {
			if r.UserID == newAcct.ID {
				return nil
			}
		}
		a.Balance += h.cfg.ReferralBonus
		a.ReferralEarned += h.cfg.ReferralBonus
		a.Referrals = append(a.Referrals, models.Referral{
			UserID:   newAcct.ID,
			Username: newAcct.Username,
			Date:     time.Now().Unix(),
		})
		return nil
	})
	if err != nil {
		log.WithError(err).WithField("referral_code", code).Warn("failed to credit referrer")
		return
	}
	h.notifier.ReferralCredited(referrer.Username, newAcct.Username, h.cfg.ReferralBonus)
}

func (h *AuthHandler) Login(c *gin.Context) {
	var req models.LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"ok": false, "error": "Missing credentials"})
		return
	}

	acct, err := h.accounts.GetAccountByLogin(c.Request.Context(), req.Username)
	if err != nil {
		fail(c, services.ErrInvalidCredentials)
		return
	}
	if err := bcrypt.CompareHashAndPassword([]byte(acct.PasswordHash), []byte(req.Password)); err != nil {
		fail(c, services.ErrInvalidCredentials)
		return
	}

	token, err := h.jwtService.GenerateToken(acct.ID, false)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"ok": false, "error": "Server error"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"ok":    true,
		"token": token,
		"user":  acct.Public(),
	})
}

func (h *AuthHandler) ResetPassword(c *gin.Context) {
	var req models.ResetPasswordRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"ok": false, "error": "Missing fields"})
		return
	}

	ctx := c.Request.Context()
	acct, err := h.accounts.GetAccountByEmail(ctx, req.Email)
	if err != nil {
		fail(c, err)
		return
	}
	if acct.SecretPin != req.SecretPin {
		fail(c, services.ErrWrongPin)
		return
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(req.NewPassword), bcrypt.DefaultCost)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"ok": false, "error": "Server error"})
		return
	}

	if _, err := h.accounts.MutateAccount(ctx, acct.ID, func(a *models.Account) error {
		a.PasswordHash = string(hash)
		return nil
	}); err != nil {
		fail(c, err)
		return
	}

	h.notifier.PasswordReset(acct.Username, acct.Email)
	c.JSON(http.StatusOK, gin.H{"ok": true})
}
