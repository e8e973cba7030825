package services_test

import (
	"context"
	"errors"
	"sync"
	"testing"

	"plinko-backend/internal/models"
	"plinko-backend/internal/services"
)

type memWithdrawalStore struct {
	mu   sync.Mutex
	byID map[string]*models.WithdrawalRequest
}

func newMemWithdrawalStore() *memWithdrawalStore {
	return &memWithdrawalStore{byID: make(map[string]*models.WithdrawalRequest)}
}

func (s *memWithdrawalStore) CreateWithdrawal(ctx context.Context, w *models.WithdrawalRequest) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := *w
	s.byID[w.ID] = &cp
	return nil
}

func (s *memWithdrawalStore) GetWithdrawal(ctx context.Context, id string) (*models.WithdrawalRequest, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	w, ok := s.byID[id]
	if !ok {
		return nil, services.ErrWithdrawalNotFound
	}
	cp := *w
	return &cp, nil
}

func (s *memWithdrawalStore) ResolveWithdrawal(ctx context.Context, id string, status models.WithdrawalStatus, note string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	w, ok := s.byID[id]
	if !ok {
		return services.ErrWithdrawalNotFound
	}
	if w.Status != models.WithdrawalPending {
		return services.ErrAlreadyResolved
	}
	w.Status = status
	w.AdminNote = note
	return nil
}

func unlockedAccount(id string, balance int64) *models.Account {
	a := testAccount(id, balance)
	a.JackpotAwarded = true
	a.JackpotUnlocked = true
	return a
}

func TestWithdrawalGate(t *testing.T) {
	ctx := context.Background()
	store := newMemStore(testAccount("locked", 500), unlockedAccount("open", 500))
	svc := services.NewWithdrawalService(store, newMemWithdrawalStore())

	if _, err := svc.Request(ctx, "locked", 100, "", ""); !errors.Is(err, services.ErrWithdrawalsLocked) {
		t.Errorf("Locked account: expected ErrWithdrawalsLocked, got %v", err)
	}
	if _, err := svc.Request(ctx, "open", 0, "", ""); !errors.Is(err, services.ErrInvalidAmount) {
		t.Errorf("Zero amount: expected ErrInvalidAmount, got %v", err)
	}
	if _, err := svc.Request(ctx, "open", 501, "", ""); !errors.Is(err, services.ErrInsufficientBalance) {
		t.Errorf("Oversized amount: expected ErrInsufficientBalance, got %v", err)
	}
	if _, err := svc.Request(ctx, "missing", 100, "", ""); !errors.Is(err, services.ErrAccountNotFound) {
		t.Errorf("Unknown account: expected ErrAccountNotFound, got %v", err)
	}

	blocked := unlockedAccount("blocked", 500)
	blocked.Blocked = true
	store2 := newMemStore(blocked)
	svc2 := services.NewWithdrawalService(store2, newMemWithdrawalStore())
	if _, err := svc2.Request(ctx, "blocked", 100, "", ""); !errors.Is(err, services.ErrAccountBlocked) {
		t.Errorf("Blocked account: expected ErrAccountBlocked, got %v", err)
	}
}

func TestWithdrawalRequestDoesNotDebit(t *testing.T) {
	ctx := context.Background()
	store := newMemStore(unlockedAccount("u1", 500))
	wstore := newMemWithdrawalStore()
	svc := services.NewWithdrawalService(store, wstore)

	w, err := svc.Request(ctx, "u1", 200, "bank", "acct 42")
	if err != nil {
		t.Fatalf("Request failed: %v", err)
	}
	if w.Status != models.WithdrawalPending {
		t.Errorf("Expected pending status, got %s", w.Status)
	}
	if w.Amount != 200 || w.UserID != "u1" {
		t.Errorf("Request fields wrong: %+v", w)
	}

	acct, _ := store.GetAccount(ctx, "u1")
	if acct.Balance != 500 {
		t.Errorf("Request debited the balance: got %d", acct.Balance)
	}

	stored, err := wstore.GetWithdrawal(ctx, w.ID)
	if err != nil {
		t.Fatalf("Stored withdrawal missing: %v", err)
	}
	if stored.Status != models.WithdrawalPending {
		t.Errorf("Stored status wrong: %s", stored.Status)
	}
}

func TestWithdrawalApproveDebitsClampedAtZero(t *testing.T) {
	ctx := context.Background()
	store := newMemStore(unlockedAccount("u1", 500))
	wstore := newMemWithdrawalStore()
	svc := services.NewWithdrawalService(store, wstore)

	w, err := svc.Request(ctx, "u1", 200, "", "")
	if err != nil {
		t.Fatalf("Request failed: %v", err)
	}

	// The balance can shrink between request and approval; the debit must
	// not push it below zero.
	if _, err := store.MutateAccount(ctx, "u1", func(a *models.Account) error {
		a.Balance = 150
		return nil
	}); err != nil {
		t.Fatalf("Setup mutate failed: %v", err)
	}

	resolved, err := svc.Resolve(ctx, w.ID, true, "paid")
	if err != nil {
		t.Fatalf("Resolve failed: %v", err)
	}
	if resolved.Status != models.WithdrawalApproved {
		t.Errorf("Expected approved, got %s", resolved.Status)
	}

	acct, _ := store.GetAccount(ctx, "u1")
	if acct.Balance != 0 {
		t.Errorf("Expected balance clamped to 0, got %d", acct.Balance)
	}

	if _, err := svc.Resolve(ctx, w.ID, false, ""); !errors.Is(err, services.ErrAlreadyResolved) {
		t.Errorf("Second resolve: expected ErrAlreadyResolved, got %v", err)
	}
}

// stalledReadStore releases GetWithdrawal only once both resolvers have
// read, so each of them observes the request still pending.
type stalledReadStore struct {
	*memWithdrawalStore
	readers sync.WaitGroup
}

func (s *stalledReadStore) GetWithdrawal(ctx context.Context, id string) (*models.WithdrawalRequest, error) {
	w, err := s.memWithdrawalStore.GetWithdrawal(ctx, id)
	s.readers.Done()
	s.readers.Wait()
	return w, err
}

func TestWithdrawalConcurrentApprovalDebitsOnce(t *testing.T) {
	ctx := context.Background()
	store := newMemStore(unlockedAccount("u1", 500))
	wstore := &stalledReadStore{memWithdrawalStore: newMemWithdrawalStore()}
	svc := services.NewWithdrawalService(store, wstore)

	w, err := svc.Request(ctx, "u1", 200, "", "")
	if err != nil {
		t.Fatalf("Request failed: %v", err)
	}

	wstore.readers.Add(2)
	var wg sync.WaitGroup
	errs := make([]error, 2)
	for i := 0; i < 2; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, errs[i] = svc.Resolve(ctx, w.ID, true, "paid")
		}(i)
	}
	wg.Wait()

	var approved, lost int
	for _, err := range errs {
		switch {
		case err == nil:
			approved++
		case errors.Is(err, services.ErrAlreadyResolved):
			lost++
		default:
			t.Errorf("Unexpected resolve error: %v", err)
		}
	}
	if approved != 1 || lost != 1 {
		t.Errorf("Expected exactly one approval and one rejection, got %d/%d", approved, lost)
	}

	acct, _ := store.GetAccount(ctx, "u1")
	if acct.Balance != 300 {
		t.Errorf("Single approval of 200 from 500 should leave 300, got %d", acct.Balance)
	}

	stored, err := wstore.memWithdrawalStore.GetWithdrawal(ctx, w.ID)
	if err != nil {
		t.Fatalf("Stored withdrawal missing: %v", err)
	}
	if stored.Status != models.WithdrawalApproved {
		t.Errorf("Expected approved status, got %s", stored.Status)
	}
}

func TestWithdrawalDeclineLeavesBalance(t *testing.T) {
	ctx := context.Background()
	store := newMemStore(unlockedAccount("u1", 500))
	wstore := newMemWithdrawalStore()
	svc := services.NewWithdrawalService(store, wstore)

	w, err := svc.Request(ctx, "u1", 200, "", "")
	if err != nil {
		t.Fatalf("Request failed: %v", err)
	}

	resolved, err := svc.Resolve(ctx, w.ID, false, "verification failed")
	if err != nil {
		t.Fatalf("Resolve failed: %v", err)
	}
	if resolved.Status != models.WithdrawalDeclined {
		t.Errorf("Expected declined, got %s", resolved.Status)
	}
	if resolved.AdminNote != "verification failed" {
		t.Errorf("Expected note preserved, got %q", resolved.AdminNote)
	}

	acct, _ := store.GetAccount(ctx, "u1")
	if acct.Balance != 500 {
		t.Errorf("Decline changed the balance: got %d", acct.Balance)
	}

	if _, err := svc.Resolve(ctx, "nope", true, ""); !errors.Is(err, services.ErrWithdrawalNotFound) {
		t.Errorf("Unknown id: expected ErrWithdrawalNotFound, got %v", err)
	}
}
