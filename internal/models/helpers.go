package models

import (
	"crypto/rand"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// referralAlphabet leaves out 0/O/1/I so codes survive being read aloud.
const referralAlphabet = "ABCDEFGHJKLMNPQRSTUVWXYZ23456789"

func GeneratePlayID() string {
	return fmt.Sprintf("play_%s_%d",
		time.Now().Format("20060102"),
		uuid.New().ID())
}

func GenerateReferralCode() string {
	b := make([]byte, 6)
	rand.Read(b) // crypto/rand.Read never returns an error
	for i := range b {
		// 256 is a multiple of the 32-char alphabet, so the modulo is unbiased.
		b[i] = referralAlphabet[int(b[i])%len(referralAlphabet)]
	}
	return "REF-" + string(b)
}

// NewAccount builds a fresh account with the welcome bonus credited and a
// referral code assigned. Uniqueness of the code is the store's problem.
func NewAccount(username, email, passwordHash, secretPin, referredBy string, welcomeBonus int64) *Account {
	now := time.Now().Unix()
	return &Account{
		ID:           uuid.NewString(),
		Username:     username,
		Email:        email,
		PasswordHash: passwordHash,
		SecretPin:    secretPin,
		Balance:      welcomeBonus,
		ReferralCode: GenerateReferralCode(),
		ReferredBy:   referredBy,
		Referrals:    []Referral{},
		CreatedAt:    now,
		UpdatedAt:    now,
	}
}
