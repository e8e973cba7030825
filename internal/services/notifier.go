package services

import (
	"context"
	"fmt"
	"time"

	"github.com/mymmrac/telego"
	tu "github.com/mymmrac/telego/telegoutil"
	log "github.com/sirupsen/logrus"
)

// Notifier pushes operational events to a Telegram chat. Every method is
// nil-safe, fire-and-forget, and runs off the request goroutine: a dead bot
// token must never affect settlement.
type Notifier struct {
	bot    *telego.Bot
	chatID telego.ChatID
}

// NewNotifier returns nil (not an error) when the bot is not configured.
func NewNotifier(token string, chatID int64) (*Notifier, error) {
	if token == "" || chatID == 0 {
		return nil, nil
	}
	bot, err := telego.NewBot(token)
	if err != nil {
		return nil, fmt.Errorf("failed to create telegram bot: %w", err)
	}
	return &Notifier{bot: bot, chatID: tu.ID(chatID)}, nil
}

func (n *Notifier) send(text string) {
	if n == nil {
		return
	}
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if _, err := n.bot.SendMessage(ctx, tu.Message(n.chatID, text)); err != nil {
			log.WithError(err).Debug("telegram notification failed")
		}
	}()
}

func (n *Notifier) Registration(username, email, referralCode string) {
	if referralCode == "" {
		referralCode = "none"
	}
	n.send(fmt.Sprintf("New registration\nUser: %s\nEmail: %s\nReferral used: %s", username, email, referralCode))
}

func (n *Notifier) ReferralCredited(referrer, newUser string, bonus int64) {
	n.send(fmt.Sprintf("Referral credited\nReferrer: %s\nNew user: %s\n+ $%d credited", referrer, newUser, bonus))
}

func (n *Notifier) JackpotAwarded(username string, amount int64) {
	n.send(fmt.Sprintf("BIG JACKPOT AWARDED\nUser: %s\nAward: $%d", username, amount))
}

func (n *Notifier) WithdrawalRequested(username string, amount int64) {
	n.send(fmt.Sprintf("Withdrawal Requested\nUser: %s\nAmount: $%d", username, amount))
}

func (n *Notifier) WithdrawalApproved(username string, amount int64) {
	n.send(fmt.Sprintf("Withdrawal Approved\nUser: %s\nAmount: $%d", username, amount))
}

func (n *Notifier) WithdrawalDeclined(username string, amount int64, reason string) {
	if reason == "" {
		reason = "none"
	}
	n.send(fmt.Sprintf("Withdrawal Declined\nUser: %s\nAmount: $%d\nReason: %s", username, amount, reason))
}

func (n *Notifier) PasswordReset(username, email string) {
	n.send(fmt.Sprintf("Password reset\nUser: %s\nEmail: %s", username, email))
}
