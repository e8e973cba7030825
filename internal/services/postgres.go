package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"plinko-backend/internal/models"
)

const withdrawalSchema = `
CREATE TABLE IF NOT EXISTS withdrawals (
	id         UUID PRIMARY KEY,
	user_id    TEXT NOT NULL,
	amount     BIGINT NOT NULL,
	method     TEXT NOT NULL DEFAULT 'local',
	details    TEXT NOT NULL DEFAULT '',
	status     TEXT NOT NULL DEFAULT 'pending',
	admin_note TEXT NOT NULL DEFAULT '',
	created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
);
CREATE INDEX IF NOT EXISTS withdrawals_user_idx ON withdrawals (user_id, created_at DESC);

CREATE TABLE IF NOT EXISTS jackpot_awards (
	id         BIGSERIAL PRIMARY KEY,
	user_id    TEXT NOT NULL UNIQUE,
	username   TEXT NOT NULL,
	amount     BIGINT NOT NULL,
	awarded_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
);

CREATE TABLE IF NOT EXISTS admin_logs (
	id         BIGSERIAL PRIMARY KEY,
	action     TEXT NOT NULL,
	details    JSONB NOT NULL DEFAULT '{}',
	created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
);
`

// PostgresStore keeps the append-only side of the system: withdrawal
// requests, the one-time jackpot award log, and admin actions.
type PostgresStore struct {
	pool *pgxpool.Pool
}

func NewPostgresStore(ctx context.Context, dsn string) (*PostgresStore, error) {
	poolConfig, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to parse postgres dsn: %w", err)
	}
	poolConfig.MaxConnLifetime = time.Hour
	poolConfig.MaxConnIdleTime = 30 * time.Minute

	pool, err := pgxpool.NewWithConfig(ctx, poolConfig)
	if err != nil {
		return nil, fmt.Errorf("failed to create postgres pool: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("postgres unavailable: %w", err)
	}
	if _, err := pool.Exec(ctx, withdrawalSchema); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to ensure schema: %w", err)
	}
	return &PostgresStore{pool: pool}, nil
}

func (s *PostgresStore) Close() {
	s.pool.Close()
}

func (s *PostgresStore) CreateWithdrawal(ctx context.Context, w *models.WithdrawalRequest) error {
	query := `
		INSERT INTO withdrawals (id, user_id, amount, method, details, status, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`
	_, err := s.pool.Exec(ctx, query,
		w.ID, w.UserID, w.Amount, w.Method, w.Details, w.Status, w.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("%w: inserting withdrawal: %v", ErrStorageFailure, err)
	}
	return nil
}

func (s *PostgresStore) GetWithdrawal(ctx context.Context, id string) (*models.WithdrawalRequest, error) {
	query := `
		SELECT id, user_id, amount, method, details, status, admin_note, created_at
		FROM withdrawals
		WHERE id = $1
	`
	var w models.WithdrawalRequest
	err := s.pool.QueryRow(ctx, query, id).Scan(
		&w.ID, &w.UserID, &w.Amount, &w.Method, &w.Details,
		&w.Status, &w.AdminNote, &w.CreatedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrWithdrawalNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get withdrawal: %w", err)
	}
	return &w, nil
}

// ResolveWithdrawal moves a pending request to its terminal status. The
// status guard in the WHERE clause makes double-handling a no-op surfaced
// as ErrAlreadyResolved.
func (s *PostgresStore) ResolveWithdrawal(ctx context.Context, id string, status models.WithdrawalStatus, note string) error {
	query := `
		UPDATE withdrawals
		SET status = $2, admin_note = $3
		WHERE id = $1 AND status = 'pending'
	`
	tag, err := s.pool.Exec(ctx, query, id, status, note)
	if err != nil {
		return fmt.Errorf("%w: resolving withdrawal: %v", ErrStorageFailure, err)
	}
	if tag.RowsAffected() == 0 {
		return ErrAlreadyResolved
	}
	return nil
}

func (s *PostgresStore) ListWithdrawals(ctx context.Context, limit int64) ([]*models.WithdrawalRequest, error) {
	if limit <= 0 || limit > 500 {
		limit = 100
	}
	query := `
		SELECT id, user_id, amount, method, details, status, admin_note, created_at
		FROM withdrawals
		ORDER BY created_at DESC
		LIMIT $1
	`
	rows, err := s.pool.Query(ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list withdrawals: %w", err)
	}
	defer rows.Close()

	var out []*models.WithdrawalRequest
	for rows.Next() {
		var w models.WithdrawalRequest
		if err := rows.Scan(
			&w.ID, &w.UserID, &w.Amount, &w.Method, &w.Details,
			&w.Status, &w.AdminNote, &w.CreatedAt,
		); err != nil {
			return nil, fmt.Errorf("failed to scan withdrawal: %w", err)
		}
		out = append(out, &w)
	}
	return out, rows.Err()
}

func (s *PostgresStore) UserWithdrawals(ctx context.Context, userID string, limit int64) ([]*models.WithdrawalRequest, error) {
	if limit <= 0 || limit > 100 {
		limit = 50
	}
	query := `
		SELECT id, user_id, amount, method, details, status, admin_note, created_at
		FROM withdrawals
		WHERE user_id = $1
		ORDER BY created_at DESC
		LIMIT $2
	`
	rows, err := s.pool.Query(ctx, query, userID, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list user withdrawals: %w", err)
	}
	defer rows.Close()

	var out []*models.WithdrawalRequest
	for rows.Next() {
		var w models.WithdrawalRequest
		if err := rows.Scan(
			&w.ID, &w.UserID, &w.Amount, &w.Method, &w.Details,
			&w.Status, &w.AdminNote, &w.CreatedAt,
		); err != nil {
			return nil, fmt.Errorf("failed to scan withdrawal: %w", err)
		}
		out = append(out, &w)
	}
	return out, rows.Err()
}

// RecordJackpotAward appends to the award log. The UNIQUE constraint on
// user_id backs up the at-most-once invariant the engine already enforces;
// a conflict is ignored rather than failing the settlement.
func (s *PostgresStore) RecordJackpotAward(ctx context.Context, userID, username string, amount int64) error {
	query := `
		INSERT INTO jackpot_awards (user_id, username, amount)
		VALUES ($1, $2, $3)
		ON CONFLICT (user_id) DO NOTHING
	`
	if _, err := s.pool.Exec(ctx, query, userID, username, amount); err != nil {
		return fmt.Errorf("failed to record jackpot award: %w", err)
	}
	return nil
}

func (s *PostgresStore) LogAdminAction(ctx context.Context, action string, details map[string]any) error {
	payload, err := json.Marshal(details)
	if err != nil {
		return fmt.Errorf("failed to marshal admin log: %w", err)
	}
	if _, err := s.pool.Exec(ctx,
		`INSERT INTO admin_logs (action, details) VALUES ($1, $2)`,
		action, payload,
	); err != nil {
		return fmt.Errorf("failed to write admin log: %w", err)
	}
	return nil
}
