package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	log "github.com/sirupsen/logrus"

	"plinko-backend/internal/config"
	"plinko-backend/internal/models"
)

// RedisService is the durable account store. Records live as JSON blobs under
// point keys, uniqueness is enforced through SETNX index keys, and the
// leaderboard is a ZSET kept in step with every balance write. Per-account
// mutation is serialized by an in-process lock table held across the whole
// read-modify-write cycle.
type RedisService struct {
	client      *redis.Client
	locks       *KeyedMutex
	lockTimeout time.Duration
}

func NewRedisService(cfg *config.Config) (*RedisService, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPass,
		DB:       cfg.RedisDB,
	})

	if _, err := client.Ping(context.Background()).Result(); err != nil {
		return nil, fmt.Errorf("failed to connect to redis: %w", err)
	}

	return &RedisService{
		client:      client,
		locks:       NewKeyedMutex(),
		lockTimeout: cfg.LockTimeout,
	}, nil
}

func (s *RedisService) Close() error {
	return s.client.Close()
}

func (s *RedisService) GetAccount(ctx context.Context, id string) (*models.Account, error) {
	data, err := s.client.Get(ctx, fmt.Sprintf(KeyAccount, id)).Result()
	if errors.Is(err, redis.Nil) {
		return nil, ErrAccountNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get account: %w", err)
	}

	var acct models.Account
	if err := json.Unmarshal([]byte(data), &acct); err != nil {
		return nil, fmt.Errorf("failed to unmarshal account: %w", err)
	}
	return &acct, nil
}

func (s *RedisService) getAccountByIndex(ctx context.Context, indexKey string) (*models.Account, error) {
	id, err := s.client.Get(ctx, indexKey).Result()
	if errors.Is(err, redis.Nil) {
		return nil, ErrAccountNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to resolve index: %w", err)
	}
	return s.GetAccount(ctx, id)
}

// GetAccountByLogin accepts a username or an email, like the login form does.
func (s *RedisService) GetAccountByLogin(ctx context.Context, login string) (*models.Account, error) {
	acct, err := s.getAccountByIndex(ctx, fmt.Sprintf(KeyUsernameIndex, login))
	if errors.Is(err, ErrAccountNotFound) {
		return s.getAccountByIndex(ctx, fmt.Sprintf(KeyEmailIndex, login))
	}
	return acct, err
}

func (s *RedisService) GetAccountByEmail(ctx context.Context, email string) (*models.Account, error) {
	return s.getAccountByIndex(ctx, fmt.Sprintf(KeyEmailIndex, email))
}

func (s *RedisService) GetAccountByReferralCode(ctx context.Context, code string) (*models.Account, error) {
	return s.getAccountByIndex(ctx, fmt.Sprintf(KeyReferralIndex, code))
}

// CreateAccount claims the uniqueness indexes first, then writes the record.
// If a claim fails the ones already taken are rolled back. A referral code
// collision is resolved by generating a fresh code.
func (s *RedisService) CreateAccount(ctx context.Context, acct *models.Account) error {
	usernameKey := fmt.Sprintf(KeyUsernameIndex, acct.Username)
	ok, err := s.client.SetNX(ctx, usernameKey, acct.ID, 0).Result()
	if err != nil {
		return fmt.Errorf("%w: claiming username: %v", ErrStorageFailure, err)
	}
	if !ok {
		return ErrUsernameTaken
	}

	emailKey := fmt.Sprintf(KeyEmailIndex, acct.Email)
	ok, err = s.client.SetNX(ctx, emailKey, acct.ID, 0).Result()
	if err != nil {
		s.client.Del(ctx, usernameKey)
		return fmt.Errorf("%w: claiming email: %v", ErrStorageFailure, err)
	}
	if !ok {
		s.client.Del(ctx, usernameKey)
		return ErrEmailTaken
	}

	for attempt := 0; ; attempt++ {
		ok, err = s.client.SetNX(ctx, fmt.Sprintf(KeyReferralIndex, acct.ReferralCode), acct.ID, 0).Result()
		if err != nil {
			s.client.Del(ctx, usernameKey, emailKey)
			return fmt.Errorf("%w: claiming referral code: %v", ErrStorageFailure, err)
		}
		if ok {
			break
		}
		if attempt >= 10 {
			s.client.Del(ctx, usernameKey, emailKey)
			return fmt.Errorf("%w: could not allocate a unique referral code", ErrStorageFailure)
		}
		acct.ReferralCode = models.GenerateReferralCode()
	}

	if err := s.writeAccount(ctx, acct); err != nil {
		s.client.Del(ctx, usernameKey, emailKey, fmt.Sprintf(KeyReferralIndex, acct.ReferralCode))
		return err
	}
	s.client.SAdd(ctx, KeyAccountSet, acct.ID)
	return nil
}

func (s *RedisService) writeAccount(ctx context.Context, acct *models.Account) error {
	data, err := json.Marshal(acct)
	if err != nil {
		return fmt.Errorf("failed to marshal account: %w", err)
	}
	if err := s.client.Set(ctx, fmt.Sprintf(KeyAccount, acct.ID), data, 0).Err(); err != nil {
		return fmt.Errorf("%w: %v", ErrStorageFailure, err)
	}
	// The leaderboard index trails the authoritative record; the cron
	// reconciler repairs it if this write is lost.
	if err := s.client.ZAdd(ctx, KeyLeaderboard, redis.Z{
		Score:  float64(acct.Balance),
		Member: acct.ID,
	}).Err(); err != nil {
		log.WithError(err).WithField("user_id", acct.ID).Warn("leaderboard update failed")
	}
	return nil
}

// MutateAccount applies fn to the current record under the per-account lock
// and persists the result. fn returning an error aborts with nothing
// written; a failed write surfaces as ErrStorageFailure and the mutation is
// not committed.
func (s *RedisService) MutateAccount(ctx context.Context, id string, fn func(*models.Account) error) (*models.Account, error) {
	if err := s.locks.Lock(ctx, id, s.lockTimeout); err != nil {
		return nil, err
	}
	defer s.locks.Unlock(id)

	acct, err := s.GetAccount(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := fn(acct); err != nil {
		return nil, err
	}
	acct.UpdatedAt = time.Now().Unix()

	if err := s.writeAccount(ctx, acct); err != nil {
		return nil, err
	}
	return acct, nil
}

// DeleteAccount removes the record, its uniqueness indexes, the leaderboard
// entry and the play history.
func (s *RedisService) DeleteAccount(ctx context.Context, id string) error {
	acct, err := s.GetAccount(ctx, id)
	if err != nil {
		return err
	}

	s.client.Del(ctx,
		fmt.Sprintf(KeyAccount, id),
		fmt.Sprintf(KeyUsernameIndex, acct.Username),
		fmt.Sprintf(KeyEmailIndex, acct.Email),
		fmt.Sprintf(KeyReferralIndex, acct.ReferralCode),
		fmt.Sprintf(KeyUserPlays, id),
	)
	s.client.ZRem(ctx, KeyLeaderboard, id)
	s.client.SRem(ctx, KeyAccountSet, id)
	return nil
}

func (s *RedisService) ListAccounts(ctx context.Context) ([]*models.Account, error) {
	ids, err := s.client.SMembers(ctx, KeyAccountSet).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to list accounts: %w", err)
	}
	return s.bulkGetAccounts(ctx, ids)
}

func (s *RedisService) bulkGetAccounts(ctx context.Context, ids []string) ([]*models.Account, error) {
	if len(ids) == 0 {
		return []*models.Account{}, nil
	}

	pipe := s.client.Pipeline()
	cmds := make([]*redis.StringCmd, len(ids))
	for i, id := range ids {
		cmds[i] = pipe.Get(ctx, fmt.Sprintf(KeyAccount, id))
	}
	if _, err := pipe.Exec(ctx); err != nil && !errors.Is(err, redis.Nil) {
		return nil, fmt.Errorf("pipeline execution failed: %w", err)
	}

	accounts := make([]*models.Account, 0, len(ids))
	for _, cmd := range cmds {
		data, err := cmd.Result()
		if err != nil {
			continue
		}
		var acct models.Account
		if err := json.Unmarshal([]byte(data), &acct); err != nil {
			continue
		}
		accounts = append(accounts, &acct)
	}
	return accounts, nil
}

// Leaderboard returns the top n accounts by balance.
func (s *RedisService) Leaderboard(ctx context.Context, n int64) ([]models.LeaderboardEntry, error) {
	ids, err := s.client.ZRevRange(ctx, KeyLeaderboard, 0, n-1).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to read leaderboard: %w", err)
	}

	accounts, err := s.bulkGetAccounts(ctx, ids)
	if err != nil {
		return nil, err
	}

	entries := make([]models.LeaderboardEntry, 0, len(accounts))
	for _, acct := range accounts {
		entries = append(entries, models.LeaderboardEntry{
			UserID:   acct.ID,
			Username: acct.Username,
			Balance:  acct.Balance,
		})
	}
	return entries, nil
}

// RebuildLeaderboard re-scores every account. Run from the scheduler, not
// the request path.
func (s *RedisService) RebuildLeaderboard(ctx context.Context) error {
	accounts, err := s.ListAccounts(ctx)
	if err != nil {
		return err
	}
	if len(accounts) == 0 {
		return nil
	}

	members := make([]redis.Z, 0, len(accounts))
	for _, acct := range accounts {
		members = append(members, redis.Z{Score: float64(acct.Balance), Member: acct.ID})
	}
	if err := s.client.ZAdd(ctx, KeyLeaderboard, members...).Err(); err != nil {
		return fmt.Errorf("failed to rebuild leaderboard: %w", err)
	}
	return nil
}

func (s *RedisService) SavePlay(ctx context.Context, rec *models.PlayRecord) error {
	data, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("failed to marshal play record: %w", err)
	}

	if err := s.client.Set(ctx, fmt.Sprintf(KeyPlay, rec.ID), data, TTLPlay).Err(); err != nil {
		return fmt.Errorf("failed to save play record: %w", err)
	}

	userKey := fmt.Sprintf(KeyUserPlays, rec.UserID)
	if err := s.client.ZAdd(ctx, userKey, redis.Z{
		Score:  float64(rec.CreatedAt),
		Member: rec.ID,
	}).Err(); err != nil {
		return fmt.Errorf("failed to index play record: %w", err)
	}

	s.client.ZRemRangeByRank(ctx, userKey, 0, -int64(PlayHistoryCap)-1)
	s.client.Expire(ctx, userKey, TTLPlay)
	return nil
}

func (s *RedisService) UserPlays(ctx context.Context, userID string, limit int64) ([]*models.PlayRecord, error) {
	if limit <= 0 || limit > PlayHistoryCap {
		limit = 50
	}

	ids, err := s.client.ZRevRange(ctx, fmt.Sprintf(KeyUserPlays, userID), 0, limit-1).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to get play history: %w", err)
	}

	plays := make([]*models.PlayRecord, 0, len(ids))
	for _, id := range ids {
		data, err := s.client.Get(ctx, fmt.Sprintf(KeyPlay, id)).Result()
		if err != nil {
			continue
		}
		var rec models.PlayRecord
		if err := json.Unmarshal([]byte(data), &rec); err != nil {
			continue
		}
		plays = append(plays, &rec)
	}
	return plays, nil
}

func (s *RedisService) CheckRateLimit(ctx context.Context, userID, action string, limit int, window time.Duration) (bool, error) {
	key := fmt.Sprintf(KeyRateLimit, userID, action)

	count, err := s.client.Incr(ctx, key).Result()
	if err != nil {
		return false, fmt.Errorf("failed to check rate limit: %w", err)
	}
	if count == 1 {
		s.client.Expire(ctx, key, window)
	}
	return count <= int64(limit), nil
}
