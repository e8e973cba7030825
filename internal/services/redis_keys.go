package services

import "time"

const (
	KeyAccount       = "account:%s"
	KeyAccountSet    = "accounts"
	KeyUsernameIndex = "index:username:%s"
	KeyEmailIndex    = "index:email:%s"
	KeyReferralIndex = "index:referral:%s"
	KeyLeaderboard   = "leaderboard:balance"
	KeyPlay          = "play:%s"
	KeyUserPlays     = "account:%s:plays"
	KeyRateLimit     = "ratelimit:%s:%s"

	TTLPlay = 30 * 24 * time.Hour

	// Keep only the most recent plays per account.
	PlayHistoryCap = 100

	DefaultRateLimitPlays     = 30 // plays per minute
	DefaultRateLimitWithdraws = 5  // withdrawal requests per minute
)
