package models

// Account is the persisted player record. All monetary fields are whole
// currency units; Balance and CumulativeWins are only ever mutated through
// the account store's serialized mutate.
type Account struct {
	ID           string `json:"id" redis:"id"`
	Username     string `json:"username" redis:"username"`
	Email        string `json:"email" redis:"email"`
	PasswordHash string `json:"password_hash" redis:"password_hash"`
	SecretPin    string `json:"secret_pin" redis:"secret_pin"`

	Balance        int64 `json:"balance" redis:"balance"`
	CumulativeWins int64 `json:"cumulative_wins" redis:"cumulative_wins"`

	// JackpotAwarded flips false->true at most once and never back.
	// JackpotUnlocked gates withdrawals and flips together with it.
	JackpotAwarded  bool `json:"jackpot_awarded" redis:"jackpot_awarded"`
	JackpotUnlocked bool `json:"jackpot_unlocked" redis:"jackpot_unlocked"`

	Blocked     bool   `json:"blocked" redis:"blocked"`
	BlockReason string `json:"block_reason,omitempty" redis:"block_reason"`

	ReferralCode   string     `json:"referral_code" redis:"referral_code"`
	ReferredBy     string     `json:"referred_by,omitempty" redis:"referred_by"`
	Referrals      []Referral `json:"referrals" redis:"referrals"`
	ReferralEarned int64      `json:"referral_earned" redis:"referral_earned"`

	CreatedAt int64 `json:"created_at" redis:"created_at"`
	UpdatedAt int64 `json:"updated_at" redis:"updated_at"`
}

type Referral struct {
	UserID   string `json:"user_id"`
	Username string `json:"username"`
	Date     int64  `json:"date"`
}

// PublicAccount is the projection returned to clients. It never carries the
// password hash or the secret PIN.
type PublicAccount struct {
	ID              string     `json:"id"`
	Username        string     `json:"username"`
	Email           string     `json:"email"`
	Balance         int64      `json:"balance"`
	CumulativeWins  int64      `json:"cumulative_wins"`
	JackpotAwarded  bool       `json:"jackpot_awarded"`
	JackpotUnlocked bool       `json:"jackpot_unlocked"`
	Blocked         bool       `json:"blocked"`
	ReferralCode    string     `json:"referral_code"`
	ReferredBy      string     `json:"referred_by,omitempty"`
	Referrals       []Referral `json:"referrals"`
	ReferralEarned  int64      `json:"referral_earned"`
	CreatedAt       int64      `json:"created_at"`
}

func (a *Account) Public() *PublicAccount {
	return &PublicAccount{
		ID:              a.ID,
		Username:        a.Username,
		Email:           a.Email,
		Balance:         a.Balance,
		CumulativeWins:  a.CumulativeWins,
		JackpotAwarded:  a.JackpotAwarded,
		JackpotUnlocked: a.JackpotUnlocked,
		Blocked:         a.Blocked,
		ReferralCode:    a.ReferralCode,
		ReferredBy:      a.ReferredBy,
		Referrals:       a.Referrals,
		ReferralEarned:  a.ReferralEarned,
		CreatedAt:       a.CreatedAt,
	}
}

type LeaderboardEntry struct {
	UserID   string `json:"id"`
	Username string `json:"username"`
	Balance  int64  `json:"balance"`
}
