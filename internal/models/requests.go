package models

import "fmt"

type RegisterRequest struct {
	Username     string `json:"username" binding:"required,min=3,max=32"`
	Email        string `json:"email" binding:"required,email"`
	Password     string `json:"password" binding:"required,min=6"`
	SecretPin    string `json:"secret_pin" binding:"required,min=4,max=8"`
	ReferralCode string `json:"referral_code"`
}

type LoginRequest struct {
	Username string `json:"username" binding:"required"`
	Password string `json:"password" binding:"required"`
}

type ResetPasswordRequest struct {
	Email       string `json:"email" binding:"required,email"`
	SecretPin   string `json:"secret_pin" binding:"required"`
	NewPassword string `json:"new_password" binding:"required,min=6"`
}

type PlayRequest struct {
	// UserID is optional; when present it must match the authenticated user.
	// The outcome is always computed server side.
	UserID string `json:"user_id"`
	Bet    int64  `json:"bet" binding:"required"`
}

type WithdrawRequest struct {
	UserID  string `json:"user_id"`
	Amount  int64  `json:"amount" binding:"required"`
	Method  string `json:"method"`
	Details string `json:"details"`
}

func (r *PlayRequest) Validate() error {
	if r.Bet <= 0 {
		return fmt.Errorf("bet must be a positive amount")
	}
	return nil
}

func (r *WithdrawRequest) Validate() error {
	if r.Amount <= 0 {
		return fmt.Errorf("amount must be a positive amount")
	}
	return nil
}
