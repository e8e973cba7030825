package models_test

import (
	"strings"
	"testing"

	"plinko-backend/internal/models"
)

func TestNewAccount(t *testing.T) {
	acct := models.NewAccount("alice", "alice@example.com", "hash", "1234", "REF-ABCDEF", 150)

	if acct.ID == "" {
		t.Error("Account should have an ID")
	}
	if acct.Balance != 150 {
		t.Errorf("Expected welcome bonus 150, got %d", acct.Balance)
	}
	if acct.CumulativeWins != 0 {
		t.Errorf("Fresh account should have zero cumulative wins, got %d", acct.CumulativeWins)
	}
	if acct.JackpotAwarded || acct.JackpotUnlocked {
		t.Error("Fresh account should not have jackpot flags set")
	}
	if !strings.HasPrefix(acct.ReferralCode, "REF-") || len(acct.ReferralCode) != 10 {
		t.Errorf("Unexpected referral code format: %q", acct.ReferralCode)
	}
	if acct.ReferredBy != "REF-ABCDEF" {
		t.Errorf("ReferredBy not carried: %q", acct.ReferredBy)
	}
}

func TestPublicProjectionHidesSecrets(t *testing.T) {
	acct := models.NewAccount("alice", "alice@example.com", "hash", "1234", "", 150)
	acct.Balance = 640
	acct.CumulativeWins = 500

	pub := acct.Public()
	if pub.ID != acct.ID || pub.Balance != 640 || pub.CumulativeWins != 500 {
		t.Errorf("Projection dropped fields: %+v", pub)
	}

	if pub.Username != "alice" || pub.Email != "alice@example.com" {
		t.Errorf("Projection identity fields wrong: %+v", pub)
	}
}

func TestRequestValidation(t *testing.T) {
	play := &models.PlayRequest{Bet: 10}
	if err := play.Validate(); err != nil {
		t.Errorf("Valid play request rejected: %v", err)
	}
	play.Bet = 0
	if err := play.Validate(); err == nil {
		t.Error("Zero bet should fail validation")
	}
	play.Bet = -20
	if err := play.Validate(); err == nil {
		t.Error("Negative bet should fail validation")
	}

	withdraw := &models.WithdrawRequest{Amount: 50}
	if err := withdraw.Validate(); err != nil {
		t.Errorf("Valid withdraw request rejected: %v", err)
	}
	withdraw.Amount = 0
	if err := withdraw.Validate(); err == nil {
		t.Error("Zero withdrawal should fail validation")
	}
}

func TestGenerateReferralCode(t *testing.T) {
	seen := make(map[string]bool)
	for i := 0; i < 100; i++ {
		code := models.GenerateReferralCode()
		if !strings.HasPrefix(code, "REF-") || len(code) != 10 {
			t.Fatalf("Bad referral code: %q", code)
		}
		if strings.ContainsAny(code[4:], "0O1I") {
			t.Fatalf("Referral code uses an ambiguous character: %q", code)
		}
		seen[code] = true
	}
	if len(seen) < 95 {
		t.Errorf("Referral codes collide too much: %d unique of 100", len(seen))
	}
}
