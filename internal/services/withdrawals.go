package services

import (
	"context"
	"time"

	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"

	"plinko-backend/internal/models"
)

// WithdrawalService enforces the jackpot gate on withdrawal requests and
// owns the pending-request lifecycle. Requesting never debits the balance;
// admin approval debits, clamped at zero.
type WithdrawalService struct {
	accounts AccountStore
	store    WithdrawalStore
	notifier *Notifier
}

func NewWithdrawalService(accounts AccountStore, store WithdrawalStore) *WithdrawalService {
	return &WithdrawalService{accounts: accounts, store: store}
}

func (s *WithdrawalService) WithNotifier(n *Notifier) *WithdrawalService {
	s.notifier = n
	return s
}

func (s *WithdrawalService) Request(ctx context.Context, userID string, amount int64, method, details string) (*models.WithdrawalRequest, error) {
	if amount <= 0 {
		return nil, ErrInvalidAmount
	}

	acct, err := s.accounts.GetAccount(ctx, userID)
	if err != nil {
		return nil, err
	}
	if acct.Blocked {
		return nil, ErrAccountBlocked
	}
	if !acct.JackpotUnlocked {
		return nil, ErrWithdrawalsLocked
	}
	if acct.Balance < amount {
		return nil, ErrInsufficientBalance
	}

	if method == "" {
		method = "local"
	}
	w := &models.WithdrawalRequest{
		ID:        uuid.NewString(),
		UserID:    userID,
		Amount:    amount,
		Method:    method,
		Details:   details,
		Status:    models.WithdrawalPending,
		CreatedAt: time.Now().UTC(),
	}
	if err := s.store.CreateWithdrawal(ctx, w); err != nil {
		return nil, err
	}

	s.notifier.WithdrawalRequested(acct.Username, amount)
	return w, nil
}

// Resolve approves or declines a pending request. The pending-to-terminal
// status transition is the gate: whoever wins it owns the request, so two
// concurrent approvals can never both debit. Approval debits at most the
// requested amount under the account lock and never drives the balance
// below zero.
func (s *WithdrawalService) Resolve(ctx context.Context, id string, approve bool, note string) (*models.WithdrawalRequest, error) {
	w, err := s.store.GetWithdrawal(ctx, id)
	if err != nil {
		return nil, err
	}
	if w.Status != models.WithdrawalPending {
		return nil, ErrAlreadyResolved
	}

	status := models.WithdrawalDeclined
	if approve {
		status = models.WithdrawalApproved
	}
	if err := s.store.ResolveWithdrawal(ctx, id, status, note); err != nil {
		return nil, err
	}
	w.Status = status
	w.AdminNote = note

	var username string
	if approve {
		acct, err := s.accounts.MutateAccount(ctx, w.UserID, func(a *models.Account) error {
			a.Balance -= w.Amount
			if a.Balance < 0 {
				a.Balance = 0
			}
			return nil
		})
		if err != nil {
			// The request is already approved; the missing debit needs
			// operator attention, not a retry that could double-spend.
			log.WithError(err).WithField("withdrawal_id", id).Error("approved withdrawal but failed to debit the account")
			return nil, err
		}
		username = acct.Username
	} else {
		if acct, err := s.accounts.GetAccount(ctx, w.UserID); err == nil {
			username = acct.Username
		}
	}

	if approve {
		s.notifier.WithdrawalApproved(username, w.Amount)
	} else {
		s.notifier.WithdrawalDeclined(username, w.Amount, note)
	}
	return w, nil
}
