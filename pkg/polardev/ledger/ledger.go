// Package ledger implements the prepaid credit economy backing PolarDev:
// accounts with credit balances, single-use redemption keys, and the
// registry of private chat channels.
//
// Persistence is three flat JSON documents (users.json, keys.json,
// chats.json), each an object keyed by string id. Every mutation rewrites
// the whole backing document. A single mutex serializes all mutations so
// overlapping debit/credit calls cannot lose updates.
package ledger

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"math"
	"os"
	"path/filepath"
	"sync"
	"time"
)

// Account is a user's credit balance record.
type Account struct {
	// Credits is the current balance, kept at 2-decimal precision.
	Credits float64 `json:"credits"`

	// KeysRedeemed counts successful key redemptions.
	KeysRedeemed int `json:"keys_redeemed"`

	// TotalCreations counts paid system creations.
	TotalCreations int `json:"total_creations"`

	CreatedAt    time.Time `json:"created_at"`
	LastActivity time.Time `json:"last_activity"`
}

// Key is a single-use redemption key. Once Used is true it stays true.
type Key struct {
	// Credits is the amount granted on redemption.
	Credits float64 `json:"credits"`

	// CreatedBy is the account id of the issuer.
	CreatedBy string    `json:"created_by"`
	CreatedAt time.Time `json:"created_at"`

	Used   bool       `json:"used"`
	UsedBy string     `json:"used_by,omitempty"`
	UsedAt *time.Time `json:"used_at,omitempty"`
}

// Chat is a registered private chat channel owned by a user.
type Chat struct {
	OwnerID     string    `json:"owner_id"`
	ChannelName string    `json:"channel_name"`
	CreatedAt   time.Time `json:"created_at"`
}

// Store holds the ledger state in memory and persists it to JSON documents.
type Store struct {
	dataDir string
	logger  *slog.Logger

	// mu serializes every mutation. Reads of a single entry also take it
	// because entries are returned by value.
	mu       sync.Mutex
	accounts map[string]*Account
	keys     map[string]*Key
	chats    map[string]*Chat

	// now is the clock, swappable in tests.
	now func() time.Time
}

// Open loads (or initializes) the ledger documents under dataDir.
func Open(dataDir string, logger *slog.Logger) (*Store, error) {
	if logger == nil {
		logger = slog.Default()
	}
	if err := os.MkdirAll(dataDir, 0o755); err != nil {
		return nil, fmt.Errorf("creating data directory: %w", err)
	}

	s := &Store{
		dataDir:  dataDir,
		logger:   logger.With("component", "ledger"),
		accounts: make(map[string]*Account),
		keys:     make(map[string]*Key),
		chats:    make(map[string]*Chat),
		now:      time.Now,
	}

	if err := loadDoc(s.usersPath(), &s.accounts); err != nil {
		return nil, err
	}
	if err := loadDoc(s.keysPath(), &s.keys); err != nil {
		return nil, err
	}
	if err := loadDoc(s.chatsPath(), &s.chats); err != nil {
		return nil, err
	}

	s.logger.Info("ledger loaded",
		"accounts", len(s.accounts),
		"keys", len(s.keys),
		"chats", len(s.chats),
	)
	return s, nil
}

func (s *Store) usersPath() string { return filepath.Join(s.dataDir, "users.json") }
func (s *Store) keysPath() string  { return filepath.Join(s.dataDir, "keys.json") }
func (s *Store) chatsPath() string { return filepath.Join(s.dataDir, "chats.json") }

// loadDoc reads a JSON document into dst. A missing file is an empty document.
func loadDoc[T any](path string, dst *map[string]*T) error {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return fmt.Errorf("reading %s: %w", filepath.Base(path), err)
	}
	if err := json.Unmarshal(data, dst); err != nil {
		return fmt.Errorf("parsing %s: %w", filepath.Base(path), err)
	}
	return nil
}

// saveDoc rewrites a whole JSON document. Failures are logged, not fatal:
// the in-memory state stays authoritative for this process.
func (s *Store) saveDoc(path string, doc any) {
	data, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		s.logger.Error("marshaling ledger document", "path", path, "error", err)
		return
	}
	if err := os.WriteFile(path, data, 0o600); err != nil {
		s.logger.Error("writing ledger document", "path", path, "error", err)
	}
}

// round2 rounds to 2 decimal places, the balance precision contract.
func round2(v float64) float64 {
	return math.Round(v*100) / 100
}

// ---------- Accounts ----------

// Account returns the account for id, if it exists.
func (s *Store) Account(id string) (Account, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	a, ok := s.accounts[id]
	if !ok {
		return Account{}, false
	}
	return *a, true
}

// ensureAccount returns the account for id, creating it if absent.
// Caller must hold mu.
func (s *Store) ensureAccount(id string) *Account {
	a, ok := s.accounts[id]
	if !ok {
		now := s.now()
		a = &Account{CreatedAt: now, LastActivity: now}
		s.accounts[id] = a
	}
	return a
}

// Credit adds amount to the account's balance, creating the account when
// absent, and increments the redeemed-key counter. Returns the new balance.
func (s *Store) Credit(id string, amount float64) float64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.creditLocked(id, amount, true)
}

// Refund returns previously debited credits to the account. Unlike Credit
// it does not touch the redeemed-key counter.
func (s *Store) Refund(id string, amount float64) float64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.creditLocked(id, amount, false)
}

func (s *Store) creditLocked(id string, amount float64, countRedemption bool) float64 {
	a := s.ensureAccount(id)
	a.Credits = round2(a.Credits + amount)
	if countRedemption {
		a.KeysRedeemed++
	}
	a.LastActivity = s.now()
	s.saveDoc(s.usersPath(), s.accounts)
	return a.Credits
}

// Debit subtracts amount from the account's balance and increments the
// creation counter. Returns false without mutation when the account is
// absent or the balance is insufficient. This is the sole admission gate
// for paid operations.
func (s *Store) Debit(id string, amount float64) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	a, ok := s.accounts[id]
	if !ok || a.Credits < amount {
		return false
	}
	a.Credits = round2(a.Credits - amount)
	a.TotalCreations++
	a.LastActivity = s.now()
	s.saveDoc(s.usersPath(), s.accounts)
	return true
}

// ---------- Redemption keys ----------

// CreateKey stores a new redemption key. Fails if the token already exists;
// token uniqueness is the caller's responsibility (see GenerateToken).
func (s *Store) CreateKey(token, issuerID string, credits float64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.keys[token]; exists {
		return fmt.Errorf("key %s already exists", token)
	}
	s.keys[token] = &Key{
		Credits:   credits,
		CreatedBy: issuerID,
		CreatedAt: s.now(),
	}
	s.saveDoc(s.keysPath(), s.keys)
	return nil
}

// Key returns the key for token, if it exists.
func (s *Store) Key(token string) (Key, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	k, ok := s.keys[token]
	if !ok {
		return Key{}, false
	}
	return *k, true
}

// Keys returns a snapshot of every issued key by token.
func (s *Store) Keys() map[string]Key {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make(map[string]Key, len(s.keys))
	for token, k := range s.keys {
		out[token] = *k
	}
	return out
}

// RedeemKey marks the key used by redeemerID and returns its credit value.
// Returns ok=false when the token is unknown or already used. A key can be
// consumed exactly once; callers that also need the balance applied should
// use RedeemAndCredit instead.
func (s *Store) RedeemKey(token, redeemerID string) (float64, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.redeemLocked(token, redeemerID)
}

func (s *Store) redeemLocked(token, redeemerID string) (float64, bool) {
	k, ok := s.keys[token]
	if !ok || k.Used {
		return 0, false
	}
	now := s.now()
	k.Used = true
	k.UsedBy = redeemerID
	k.UsedAt = &now
	s.saveDoc(s.keysPath(), s.keys)
	return k.Credits, true
}

// RedeemAndCredit marks the key used and credits the redeemer's account in
// one critical section, so a crash cannot leave a consumed key with no
// applied credit. Returns the key's credit value and the new balance.
func (s *Store) RedeemAndCredit(token, redeemerID string) (credits, newBalance float64, ok bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	credits, ok = s.redeemLocked(token, redeemerID)
	if !ok {
		return 0, 0, false
	}
	newBalance = s.creditLocked(redeemerID, credits, true)
	return credits, newBalance, true
}

// ---------- Chats ----------

// RegisterChat records a private chat channel and its owner.
func (s *Store) RegisterChat(channelID, ownerID, channelName string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.chats[channelID] = &Chat{
		OwnerID:     ownerID,
		ChannelName: channelName,
		CreatedAt:   s.now(),
	}
	s.saveDoc(s.chatsPath(), s.chats)
}

// Chat returns the registered chat for channelID, if any.
func (s *Store) Chat(channelID string) (Chat, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	c, ok := s.chats[channelID]
	if !ok {
		return Chat{}, false
	}
	return *c, true
}

// Counts returns the number of known accounts and registered chats.
func (s *Store) Counts() (accounts, chats int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.accounts), len(s.chats)
}
