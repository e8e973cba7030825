package models

import "time"

type WithdrawalStatus string

const (
	WithdrawalPending  WithdrawalStatus = "pending"
	WithdrawalApproved WithdrawalStatus = "approved"
	WithdrawalDeclined WithdrawalStatus = "declined"
)

// WithdrawalRequest is an append-only record. Creating one does not debit the
// balance; admin approval does.
type WithdrawalRequest struct {
	ID        string           `json:"id"`
	UserID    string           `json:"user_id"`
	Amount    int64            `json:"amount"`
	Method    string           `json:"method"`
	Details   string           `json:"details"`
	Status    WithdrawalStatus `json:"status"`
	AdminNote string           `json:"admin_note,omitempty"`
	CreatedAt time.Time        `json:"created_at"`
}
