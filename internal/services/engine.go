package services

import (
	"context"
	"time"

	log "github.com/sirupsen/logrus"

	"plinko-backend/internal/models"
)

// SettlementEngine owns the play state machine: validate a bet, debit it,
// draw an outcome, credit winnings, apply the one-time jackpot award, and
// persist the result exactly once per call. The whole transition runs inside
// the account store's serialized mutate, so two concurrent bets on one
// account can never both spend the same balance. History, award log,
// notifications and broadcasts happen after the lock is released.
type SettlementEngine struct {
	store    AccountStore
	plays    PlayLog
	sampler  Sampler
	awards   AwardLog
	notifier *Notifier
	bcast    Broadcaster

	jackpotThreshold int64
	jackpotPrize     int64
}

func NewSettlementEngine(store AccountStore, plays PlayLog, sampler Sampler, jackpotThreshold, jackpotPrize int64) *SettlementEngine {
	return &SettlementEngine{
		store:            store,
		plays:            plays,
		sampler:          sampler,
		jackpotThreshold: jackpotThreshold,
		jackpotPrize:     jackpotPrize,
	}
}

// WithAwardLog, WithNotifier and WithBroadcaster attach optional
// collaborators; the engine works without any of them.
func (e *SettlementEngine) WithAwardLog(awards AwardLog) *SettlementEngine {
	e.awards = awards
	return e
}

func (e *SettlementEngine) WithNotifier(n *Notifier) *SettlementEngine {
	e.notifier = n
	return e
}

func (e *SettlementEngine) WithBroadcaster(b Broadcaster) *SettlementEngine {
	e.bcast = b
	return e
}

// SettleBet validates and settles a single bet for userID.
//
// Validation order (first failure wins, nothing mutated):
// invalid bet, account not found, account blocked, insufficient balance.
//
// Inside the lock: debit, draw, credit, evaluate the one-time award rule,
// persist. Hitting the JACKPOT slot pays its 4000 every time and counts
// toward cumulative wins; the one-time award flag flips on the first play
// where cumulative wins reach the threshold or the JACKPOT slot lands, and
// the extra lump is credited only on the threshold path (a direct slot hit
// already paid 4000).
func (e *SettlementEngine) SettleBet(ctx context.Context, userID string, bet int64) (*models.PlayResult, error) {
	if bet <= 0 {
		return nil, ErrInvalidBet
	}

	var (
		result     models.PlayResult
		awardFired bool
		username   string
	)

	_, err := e.store.MutateAccount(ctx, userID, func(a *models.Account) error {
		if a.Blocked {
			return ErrAccountBlocked
		}
		if a.Balance < bet {
			return ErrInsufficientBalance
		}

		a.Balance -= bet

		slot := e.sampler.Draw()
		isJackpot := slot.Label == JackpotLabel
		win := slot.Amount
		if win > 0 {
			a.Balance += win
			a.CumulativeWins += win
		}

		var lump int64
		if !a.JackpotAwarded && (a.CumulativeWins >= e.jackpotThreshold || isJackpot) {
			a.JackpotAwarded = true
			a.JackpotUnlocked = true
			awardFired = true
			if !isJackpot {
				lump = e.jackpotPrize
				a.Balance += lump
			}
		}

		username = a.Username
		result = models.PlayResult{
			SlotLabel:      slot.Label,
			WinAmount:      win,
			IsJackpot:      isJackpot,
			JackpotAward:   lump,
			Balance:        a.Balance,
			CumulativeWins: a.CumulativeWins,
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	e.afterSettle(ctx, userID, username, bet, &result, awardFired)
	return &result, nil
}

// afterSettle runs the best-effort tail: the settlement is already durable,
// so failures here are logged and swallowed.
func (e *SettlementEngine) afterSettle(ctx context.Context, userID, username string, bet int64, result *models.PlayResult, awardFired bool) {
	if e.plays != nil {
		rec := &models.PlayRecord{
			ID:           models.GeneratePlayID(),
			UserID:       userID,
			Bet:          bet,
			SlotLabel:    result.SlotLabel,
			WinAmount:    result.WinAmount,
			IsJackpot:    result.IsJackpot,
			JackpotAward: result.JackpotAward,
			BalanceAfter: result.Balance,
			CreatedAt:    time.Now().Unix(),
		}
		if err := e.plays.SavePlay(ctx, rec); err != nil {
			log.WithError(err).WithField("user_id", userID).Warn("failed to record play history")
		}
	}

	if awardFired {
		award := result.JackpotAward
		if award == 0 {
			// Direct slot hit; the award that flipped the flag is the
			// slot payout itself.
			award = result.WinAmount
		}
		if e.awards != nil {
			if err := e.awards.RecordJackpotAward(ctx, userID, username, award); err != nil {
				log.WithError(err).WithField("user_id", userID).Warn("failed to record jackpot award")
			}
		}
		e.notifier.JackpotAwarded(username, award)
		if e.bcast != nil {
			e.bcast.BroadcastJackpot(username, award)
		}
	}

	if e.bcast != nil {
		e.bcast.BroadcastPlayResult(userID, result)
	}
}

// Balance returns the account's current public projection; this is the
// read-side companion to SettleBet.
func (e *SettlementEngine) Balance(ctx context.Context, userID string) (*models.Account, error) {
	return e.store.GetAccount(ctx, userID)
}
