package services_test

import (
	"context"
	"errors"
	"sync"
	"testing"

	"plinko-backend/internal/models"
	"plinko-backend/internal/services"
)

// memStore is an in-memory AccountStore with the same contract as the Redis
// one: per-account serialized mutate, nothing written when fn fails, and an
// injectable write failure that aborts the commit.
type memStore struct {
	mu         sync.Mutex
	accounts   map[string]*models.Account
	failWrites bool
}

func newMemStore(accounts ...*models.Account) *memStore {
	s := &memStore{accounts: make(map[string]*models.Account)}
	for _, a := range accounts {
		s.accounts[a.ID] = a
	}
	return s
}

func (s *memStore) GetAccount(ctx context.Context, id string) (*models.Account, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	a, ok := s.accounts[id]
	if !ok {
		return nil, services.ErrAccountNotFound
	}
	cp := *a
	return &cp, nil
}

func (s *memStore) MutateAccount(ctx context.Context, id string, fn func(*models.Account) error) (*models.Account, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	a, ok := s.accounts[id]
	if !ok {
		return nil, services.ErrAccountNotFound
	}
	cp := *a
	if err := fn(&cp); err != nil {
		return nil, err
	}
	if s.failWrites {
		return nil, services.ErrStorageFailure
	}
	s.accounts[id] = &cp
	out := cp
	return &out, nil
}

type memPlayLog struct {
	mu   sync.Mutex
	recs []*models.PlayRecord
}

func (l *memPlayLog) SavePlay(ctx context.Context, rec *models.PlayRecord) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.recs = append(l.recs, rec)
	return nil
}

type memAwardLog struct {
	mu     sync.Mutex
	awards []int64
}

func (l *memAwardLog) RecordJackpotAward(ctx context.Context, userID, username string, amount int64) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.awards = append(l.awards, amount)
	return nil
}

// scriptedSampler returns slots in a fixed order.
type scriptedSampler struct {
	mu    sync.Mutex
	slots []services.Slot
	pos   int
}

func slotByLabel(t *testing.T, label string) services.Slot {
	t.Helper()
	for _, s := range services.PayoutTable {
		if s.Label == label {
			return s
		}
	}
	t.Fatalf("No slot labeled %q", label)
	return services.Slot{}
}

func (s *scriptedSampler) Draw() services.Slot {
	s.mu.Lock()
	defer s.mu.Unlock()
	slot := s.slots[s.pos%len(s.slots)]
	s.pos++
	return slot
}

func testAccount(id string, balance int64) *models.Account {
	return &models.Account{
		ID:       id,
		Username: "player_" + id,
		Balance:  balance,
	}
}

func newTestEngine(store *memStore, sampler services.Sampler) (*services.SettlementEngine, *memPlayLog, *memAwardLog) {
	plays := &memPlayLog{}
	awards := &memAwardLog{}
	engine := services.NewSettlementEngine(store, plays, sampler, 2000, 4000).WithAwardLog(awards)
	return engine, plays, awards
}

func TestSettleBetValidation(t *testing.T) {
	ctx := context.Background()
	store := newMemStore(testAccount("u1", 100))
	engine, _, _ := newTestEngine(store, &scriptedSampler{slots: []services.Slot{slotByLabel(t, "LOSE")}})

	if _, err := engine.SettleBet(ctx, "u1", 0); !errors.Is(err, services.ErrInvalidBet) {
		t.Errorf("Zero bet: expected ErrInvalidBet, got %v", err)
	}
	if _, err := engine.SettleBet(ctx, "u1", -5); !errors.Is(err, services.ErrInvalidBet) {
		t.Errorf("Negative bet: expected ErrInvalidBet, got %v", err)
	}
	if _, err := engine.SettleBet(ctx, "nobody", 10); !errors.Is(err, services.ErrAccountNotFound) {
		t.Errorf("Unknown account: expected ErrAccountNotFound, got %v", err)
	}
	if _, err := engine.SettleBet(ctx, "u1", 101); !errors.Is(err, services.ErrInsufficientBalance) {
		t.Errorf("Oversized bet: expected ErrInsufficientBalance, got %v", err)
	}

	blocked := testAccount("u2", 100)
	blocked.Blocked = true
	store2 := newMemStore(blocked)
	engine2, _, _ := newTestEngine(store2, &scriptedSampler{slots: []services.Slot{slotByLabel(t, "LOSE")}})
	if _, err := engine2.SettleBet(ctx, "u2", 10); !errors.Is(err, services.ErrAccountBlocked) {
		t.Errorf("Blocked account: expected ErrAccountBlocked, got %v", err)
	}

	// None of the failures may have touched the balance.
	acct, err := store.GetAccount(ctx, "u1")
	if err != nil {
		t.Fatalf("GetAccount failed: %v", err)
	}
	if acct.Balance != 100 || acct.CumulativeWins != 0 {
		t.Errorf("Rejected bets mutated the account: balance=%d wins=%d", acct.Balance, acct.CumulativeWins)
	}
}

func TestSettleBetAwardsJackpotOnThreshold(t *testing.T) {
	ctx := context.Background()
	store := newMemStore(testAccount("u1", 150))
	sampler := &scriptedSampler{slots: []services.Slot{
		slotByLabel(t, "500"),
		slotByLabel(t, "1000"),
		slotByLabel(t, "1000"),
	}}
	engine, plays, awards := newTestEngine(store, sampler)

	// 150 - 10 + 500 = 640
	r1, err := engine.SettleBet(ctx, "u1", 10)
	if err != nil {
		t.Fatalf("First bet failed: %v", err)
	}
	if r1.Balance != 640 || r1.CumulativeWins != 500 || r1.JackpotAward != 0 {
		t.Errorf("First bet: got balance=%d wins=%d award=%d", r1.Balance, r1.CumulativeWins, r1.JackpotAward)
	}

	// 640 - 10 + 1000 = 1630
	r2, err := engine.SettleBet(ctx, "u1", 10)
	if err != nil {
		t.Fatalf("Second bet failed: %v", err)
	}
	if r2.Balance != 1630 || r2.CumulativeWins != 1500 || r2.JackpotAward != 0 {
		t.Errorf("Second bet: got balance=%d wins=%d award=%d", r2.Balance, r2.CumulativeWins, r2.JackpotAward)
	}

	// 1630 - 20 + 1000 = 2610, cumulative 2500 crosses 2000, + 4000 = 6610
	r3, err := engine.SettleBet(ctx, "u1", 20)
	if err != nil {
		t.Fatalf("Third bet failed: %v", err)
	}
	if r3.JackpotAward != 4000 {
		t.Errorf("Third bet: expected jackpot award 4000, got %d", r3.JackpotAward)
	}
	if r3.Balance != 6610 || r3.CumulativeWins != 2500 {
		t.Errorf("Third bet: got balance=%d wins=%d", r3.Balance, r3.CumulativeWins)
	}

	acct, err := store.GetAccount(ctx, "u1")
	if err != nil {
		t.Fatalf("GetAccount failed: %v", err)
	}
	if !acct.JackpotAwarded || !acct.JackpotUnlocked {
		t.Error("Jackpot flags should be set after the threshold crossing")
	}

	if len(awards.awards) != 1 || awards.awards[0] != 4000 {
		t.Errorf("Expected exactly one award log entry of 4000, got %v", awards.awards)
	}
	if len(plays.recs) != 3 {
		t.Errorf("Expected 3 play records, got %d", len(plays.recs))
	}

	// A later win must never re-fire the award.
	sampler.slots = []services.Slot{slotByLabel(t, "1000")}
	sampler.pos = 0
	r4, err := engine.SettleBet(ctx, "u1", 10)
	if err != nil {
		t.Fatalf("Fourth bet failed: %v", err)
	}
	if r4.JackpotAward != 0 {
		t.Errorf("Award fired twice: got %d", r4.JackpotAward)
	}
	if len(awards.awards) != 1 {
		t.Errorf("Expected award log to stay at one entry, got %d", len(awards.awards))
	}
}

func TestSettleBetDirectJackpotHit(t *testing.T) {
	ctx := context.Background()
	store := newMemStore(testAccount("u1", 100))
	sampler := &scriptedSampler{slots: []services.Slot{slotByLabel(t, services.JackpotLabel)}}
	engine, _, awards := newTestEngine(store, sampler)

	// 100 - 10 + 4000 = 4090; the slot payout itself is the award, no extra lump.
	r, err := engine.SettleBet(ctx, "u1", 10)
	if err != nil {
		t.Fatalf("Bet failed: %v", err)
	}
	if !r.IsJackpot {
		t.Error("Expected IsJackpot on a direct hit")
	}
	if r.WinAmount != 4000 || r.JackpotAward != 0 {
		t.Errorf("Direct hit: got win=%d award=%d", r.WinAmount, r.JackpotAward)
	}
	if r.Balance != 4090 || r.CumulativeWins != 4000 {
		t.Errorf("Direct hit: got balance=%d wins=%d", r.Balance, r.CumulativeWins)
	}

	acct, _ := store.GetAccount(ctx, "u1")
	if !acct.JackpotAwarded || !acct.JackpotUnlocked {
		t.Error("Direct hit should set the jackpot flags")
	}
	if len(awards.awards) != 1 || awards.awards[0] != 4000 {
		t.Errorf("Expected one award log entry of 4000, got %v", awards.awards)
	}

	// A second direct hit still pays the slot but is not an award event.
	r2, err := engine.SettleBet(ctx, "u1", 10)
	if err != nil {
		t.Fatalf("Second bet failed: %v", err)
	}
	if r2.WinAmount != 4000 || r2.JackpotAward != 0 {
		t.Errorf("Repeat hit: got win=%d award=%d", r2.WinAmount, r2.JackpotAward)
	}
	if len(awards.awards) != 1 {
		t.Errorf("Repeat hit logged another award: %v", awards.awards)
	}
}

func TestSettleBetStorageFailureCommitsNothing(t *testing.T) {
	ctx := context.Background()
	store := newMemStore(testAccount("u1", 100))
	store.failWrites = true
	engine, plays, _ := newTestEngine(store, &scriptedSampler{slots: []services.Slot{slotByLabel(t, "100")}})

	_, err := engine.SettleBet(ctx, "u1", 10)
	if !errors.Is(err, services.ErrStorageFailure) {
		t.Fatalf("Expected ErrStorageFailure, got %v", err)
	}

	store.failWrites = false
	acct, err := store.GetAccount(ctx, "u1")
	if err != nil {
		t.Fatalf("GetAccount failed: %v", err)
	}
	if acct.Balance != 100 || acct.CumulativeWins != 0 {
		t.Errorf("Failed write leaked a mutation: balance=%d wins=%d", acct.Balance, acct.CumulativeWins)
	}
	if len(plays.recs) != 0 {
		t.Errorf("Failed settlement recorded history: %d records", len(plays.recs))
	}
}

func TestSettleBetConcurrentNeverOverspends(t *testing.T) {
	ctx := context.Background()
	store := newMemStore(testAccount("u1", 50))
	engine, _, _ := newTestEngine(store, &scriptedSampler{slots: []services.Slot{slotByLabel(t, "LOSE")}})

	var wg sync.WaitGroup
	var succeeded, rejected int64
	var mu sync.Mutex
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := engine.SettleBet(ctx, "u1", 10)
			mu.Lock()
			defer mu.Unlock()
			if err == nil {
				succeeded++
			} else if errors.Is(err, services.ErrInsufficientBalance) {
				rejected++
			} else {
				t.Errorf("Unexpected settlement error: %v", err)
			}
		}()
	}
	wg.Wait()

	if succeeded != 5 || rejected != 5 {
		t.Errorf("Expected 5 settlements and 5 rejections from a 50 balance, got %d/%d", succeeded, rejected)
	}

	acct, _ := store.GetAccount(ctx, "u1")
	if acct.Balance != 0 {
		t.Errorf("Expected balance 0 after exhausting funds, got %d", acct.Balance)
	}
}
