package ledger

import (
	"log/slog"
	"os"
	"sync"
	"testing"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))
	s, err := Open(t.TempDir(), logger)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	return s
}

func TestCreditDebitBalance(t *testing.T) {
	s := newTestStore(t)

	if bal := s.Credit("u1", 2.5); bal != 2.5 {
		t.Errorf("after credit 2.5: balance = %v, want 2.5", bal)
	}
	if bal := s.Credit("u1", 0.1); bal != 2.6 {
		t.Errorf("after credit 0.1: balance = %v, want 2.6", bal)
	}

	if !s.Debit("u1", 1.0) {
		t.Fatal("debit 1.0 should succeed")
	}
	a, ok := s.Account("u1")
	if !ok {
		t.Fatal("account u1 should exist")
	}
	if a.Credits != 1.6 {
		t.Errorf("balance = %v, want 1.6", a.Credits)
	}
	if a.KeysRedeemed != 2 {
		t.Errorf("keys_redeemed = %d, want 2", a.KeysRedeemed)
	}
	if a.TotalCreations != 1 {
		t.Errorf("total_creations = %d, want 1", a.TotalCreations)
	}
}

func TestCreditRounding(t *testing.T) {
	s := newTestStore(t)

	// Repeated decimal additions must not accumulate float error.
	for i := 0; i < 10; i++ {
		s.Credit("u1", 0.1)
	}
	a, _ := s.Account("u1")
	if a.Credits != 1.0 {
		t.Errorf("balance after 10x 0.1 = %v, want exactly 1.0", a.Credits)
	}
}

func TestDebitNeverGoesNegative(t *testing.T) {
	s := newTestStore(t)

	if s.Debit("nobody", 1.0) {
		t.Error("debit on absent account should fail")
	}

	s.Credit("u1", 0.5)
	if s.Debit("u1", 1.0) {
		t.Error("debit beyond balance should fail")
	}
	a, _ := s.Account("u1")
	if a.Credits != 0.5 {
		t.Errorf("failed debit must not mutate: balance = %v, want 0.5", a.Credits)
	}
	if a.TotalCreations != 0 {
		t.Errorf("failed debit must not count a creation: got %d", a.TotalCreations)
	}

	// Exact balance is spendable.
	if !s.Debit("u1", 0.5) {
		t.Error("debit of exact balance should succeed")
	}
	a, _ = s.Account("u1")
	if a.Credits != 0 {
		t.Errorf("balance = %v, want 0", a.Credits)
	}
}

func TestRefundDoesNotCountRedemption(t *testing.T) {
	s := newTestStore(t)

	s.Credit("u1", 1.0)
	s.Debit("u1", 1.0)
	if bal := s.Refund("u1", 1.0); bal != 1.0 {
		t.Errorf("refund balance = %v, want 1.0", bal)
	}
	a, _ := s.Account("u1")
	if a.KeysRedeemed != 1 {
		t.Errorf("refund must not bump keys_redeemed: got %d, want 1", a.KeysRedeemed)
	}
}

func TestRedeemKeyOnce(t *testing.T) {
	s := newTestStore(t)

	token := GenerateToken()
	if err := s.CreateKey(token, "issuer", 5.0); err != nil {
		t.Fatalf("CreateKey: %v", err)
	}

	credits, ok := s.RedeemKey(token, "u1")
	if !ok || credits != 5.0 {
		t.Fatalf("first redeem = (%v, %v), want (5.0, true)", credits, ok)
	}

	// Second redemption fails regardless of redeemer.
	if _, ok := s.RedeemKey(token, "u1"); ok {
		t.Error("second redeem by same user should fail")
	}
	if _, ok := s.RedeemKey(token, "u2"); ok {
		t.Error("second redeem by another user should fail")
	}

	k, _ := s.Key(token)
	if !k.Used || k.UsedBy != "u1" || k.UsedAt == nil {
		t.Errorf("key state after redeem = %+v, want used by u1 with timestamp", k)
	}
}

func TestRedeemUnknownKey(t *testing.T) {
	s := newTestStore(t)
	if _, ok := s.RedeemKey("PD-AAAA-BBBB-CCCC-DDDD", "u1"); ok {
		t.Error("redeeming an unknown token should fail")
	}
}

func TestCreateKeyDuplicate(t *testing.T) {
	s := newTestStore(t)

	token := GenerateToken()
	if err := s.CreateKey(token, "issuer", 1.0); err != nil {
		t.Fatalf("CreateKey: %v", err)
	}
	if err := s.CreateKey(token, "issuer", 9.0); err == nil {
		t.Fatal("duplicate CreateKey must fail, not overwrite")
	}
	k, _ := s.Key(token)
	if k.Credits != 1.0 {
		t.Errorf("duplicate insert must not overwrite: credits = %v, want 1.0", k.Credits)
	}
}

func TestRedeemAndCredit(t *testing.T) {
	s := newTestStore(t)

	token := GenerateToken()
	if err := s.CreateKey(token, "issuer", 2.5); err != nil {
		t.Fatalf("CreateKey: %v", err)
	}

	credits, balance, ok := s.RedeemAndCredit(token, "u1")
	if !ok {
		t.Fatal("RedeemAndCredit should succeed")
	}
	if credits != 2.5 || balance != 2.5 {
		t.Errorf("got (credits=%v, balance=%v), want (2.5, 2.5)", credits, balance)
	}

	a, _ := s.Account("u1")
	if a.Credits != 2.5 || a.KeysRedeemed != 1 {
		t.Errorf("account = %+v, want 2.5 credits and 1 redemption", a)
	}

	if _, _, ok := s.RedeemAndCredit(token, "u2"); ok {
		t.Error("second RedeemAndCredit should fail")
	}
	if _, exists := s.Account("u2"); exists {
		t.Error("failed redemption must not create an account")
	}
}

func TestPersistenceAcrossReload(t *testing.T) {
	dir := t.TempDir()
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))

	s, err := Open(dir, logger)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	token := GenerateToken()
	if err := s.CreateKey(token, "issuer", 3.0); err != nil {
		t.Fatalf("CreateKey: %v", err)
	}
	s.RedeemAndCredit(token, "u1")
	s.RegisterChat("chan1", "u1", "roblox-dev-1234")

	// Fresh store from the same directory sees the same state.
	s2, err := Open(dir, logger)
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	a, ok := s2.Account("u1")
	if !ok || a.Credits != 3.0 {
		t.Errorf("reloaded account = (%+v, %v), want 3.0 credits", a, ok)
	}
	k, ok := s2.Key(token)
	if !ok || !k.Used {
		t.Errorf("reloaded key = (%+v, %v), want used", k, ok)
	}
	c, ok := s2.Chat("chan1")
	if !ok || c.OwnerID != "u1" {
		t.Errorf("reloaded chat = (%+v, %v), want owner u1", c, ok)
	}
}

func TestConcurrentDebits(t *testing.T) {
	s := newTestStore(t)
	s.Credit("u1", 10.0)

	// 20 concurrent debits of 1.0 against a balance of 10: exactly 10
	// must succeed. Serialization is what prevents lost updates.
	var wg sync.WaitGroup
	results := make(chan bool, 20)
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			results <- s.Debit("u1", 1.0)
		}()
	}
	wg.Wait()
	close(results)

	succeeded := 0
	for ok := range results {
		if ok {
			succeeded++
		}
	}
	if succeeded != 10 {
		t.Errorf("%d debits succeeded, want exactly 10", succeeded)
	}
	a, _ := s.Account("u1")
	if a.Credits != 0 {
		t.Errorf("final balance = %v, want 0", a.Credits)
	}
}

func TestCounts(t *testing.T) {
	s := newTestStore(t)
	s.Credit("u1", 1)
	s.Credit("u2", 1)
	s.RegisterChat("c1", "u1", "chat")

	accounts, chats := s.Counts()
	if accounts != 2 || chats != 1 {
		t.Errorf("Counts() = (%d, %d), want (2, 1)", accounts, chats)
	}
}
