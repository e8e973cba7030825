package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"plinko-backend/internal/services"
)

// fail maps a service error to the wire envelope. Unknown errors become an
// opaque 500; the taxonomy below is the whole client-visible surface.
func fail(c *gin.Context, err error) {
	status := http.StatusInternalServerError
	message := "Server error"

	switch {
	case errors.Is(err, services.ErrInvalidBet):
		status, message = http.StatusBadRequest, "Invalid bet"
	case errors.Is(err, services.ErrInvalidAmount):
		status, message = http.StatusBadRequest, "Invalid amount"
	case errors.Is(err, services.ErrAccountNotFound):
		status, message = http.StatusBadRequest, "User not found"
	case errors.Is(err, services.ErrAccountBlocked):
		status, message = http.StatusForbidden, "User blocked"
	case errors.Is(err, services.ErrInsufficientBalance):
		status, message = http.StatusBadRequest, "Insufficient balance"
	case errors.Is(err, services.ErrWithdrawalsLocked):
		status, message = http.StatusForbidden, "Withdrawals are locked until you win the jackpot"
	case errors.Is(err, services.ErrConcurrencyTimeout):
		status, message = http.StatusTooManyRequests, "Account busy, try again"
	case errors.Is(err, services.ErrStorageFailure):
		status, message = http.StatusServiceUnavailable, "Temporary storage error, try again"
	case errors.Is(err, services.ErrUsernameTaken):
		status, message = http.StatusBadRequest, "Username taken"
	case errors.Is(err, services.ErrEmailTaken):
		status, message = http.StatusBadRequest, "Email already registered"
	case errors.Is(err, services.ErrInvalidCredentials):
		status, message = http.StatusBadRequest, "Invalid credentials"
	case errors.Is(err, services.ErrWrongPin):
		status, message = http.StatusBadRequest, "Wrong secret pin"
	case errors.Is(err, services.ErrWithdrawalNotFound):
		status, message = http.StatusNotFound, "Withdrawal not found"
	case errors.Is(err, services.ErrAlreadyResolved):
		status, message = http.StatusBadRequest, "Withdrawal already handled"
	}

	c.JSON(status, gin.H{"ok": false, "error": message})
}
