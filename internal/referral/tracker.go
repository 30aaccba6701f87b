package referral

import (
	"fmt"
	"sync"
	"time"

	"github.com/sirupsen/logrus"
)

// Code describes one referral program.
type Code struct {
	Name        string
	FreeWallets int
	Description string
}

// Codes is the referral-code table. Wallet processing under a code is
// feeless up to the code's free-wallet ceiling.
var Codes = map[string]Code{
	"magnumcommunity": {
		Name:        "Magnum Community",
		FreeWallets: 10,
		Description: "Magnum Community members get feeless service for first 10 wallets!",
	},
}

// State is one user's referral record. Wallet counts are monotonic: they
// only ever increase for the life of the ledger.
type State struct {
	Code        string
	WalletCount int
	JoinedAt    time.Time
}

// Store persists referral state between restarts.
type Store interface {
	SaveReferral(userID int64, code string, walletCount int, joinedAt time.Time) error
	LoadReferrals() (map[int64]State, error)
}

// Tracker is the process-wide referral/quota ledger. Safe for concurrent use
// by multiple user operations; state is keyed by user.
type Tracker struct {
	mu     sync.RWMutex
	users  map[int64]State
	store  Store
	logger *logrus.Logger
}

// NewTracker creates a tracker. store may be nil for a memory-only ledger;
// when present, existing referral state is loaded from it at startup so a
// restart does not reset anyone's quota.
func NewTracker(store Store, logger *logrus.Logger) (*Tracker, error) {
	t := &Tracker{
		users:  make(map[int64]State),
		store:  store,
		logger: logger,
	}
	if store != nil {
		loaded, err := store.LoadReferrals()
		if err != nil {
			return nil, fmt.Errorf("failed to load referral ledger: %w", err)
		}
		for userID, state := range loaded {
			t.users[userID] = state
		}
		logger.WithField("users", len(loaded)).Info("Referral ledger loaded")
	}
	return t, nil
}

// RecordJoin registers a user under a referral code. Unknown codes are
// rejected; joining twice keeps the original record.
func (t *Tracker) RecordJoin(userID int64, code string) error {
	if _, ok := Codes[code]; !ok {
		return fmt.Errorf("unknown referral code %q", code)
	}

	t.mu.Lock()
	defer t.mu.Unlock()

	if _, exists := t.users[userID]; exists {
		return nil
	}

	state := State{Code: code, JoinedAt: time.Now()}
	t.users[userID] = state
	t.persist(userID, state)

	t.logger.WithFields(logrus.Fields{
		"user_id": userID,
		"code":    code,
	}).Info("🤝 Referral join recorded")
	return nil
}

// IsFeeless reports whether an operation covering walletCount additional
// wallets stays within the user's free-wallet ceiling. All-or-nothing: an
// operation that straddles the ceiling is fully charged. Must be called
// before IncrementWalletCount for the same operation.
func (t *Tracker) IsFeeless(userID int64, walletCount int) bool {
	t.mu.RLock()
	defer t.mu.RUnlock()

	state, ok := t.users[userID]
	if !ok {
		return false
	}
	code, ok := Codes[state.Code]
	if !ok {
		return false
	}
	return state.WalletCount+walletCount <= code.FreeWallets
}

// IncrementWalletCount commits walletCount processed wallets to the user's
// cumulative total after a successful settlement. A no-op for users without
// a referral record.
func (t *Tracker) IncrementWalletCount(userID int64, walletCount int) {
	t.mu.Lock()
	defer t.mu.Unlock()

	state, ok := t.users[userID]
	if !ok {
		return
	}
	state.WalletCount += walletCount
	t.users[userID] = state
	t.persist(userID, state)
}

// Get returns a copy of the user's referral state.
func (t *Tracker) Get(userID int64) (State, bool) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	state, ok := t.users[userID]
	return state, ok
}

// RemainingFreeWallets returns how many feeless wallets the user has left.
func (t *Tracker) RemainingFreeWallets(userID int64) int {
	t.mu.RLock()
	defer t.mu.RUnlock()

	state, ok := t.users[userID]
	if !ok {
		return 0
	}
	code, ok := Codes[state.Code]
	if !ok {
		return 0
	}
	remaining := code.FreeWallets - state.WalletCount
	if remaining < 0 {
		return 0
	}
	return remaining
}

// persist writes through to the store. Caller holds the lock.
func (t *Tracker) persist(userID int64, state State) {
	if t.store == nil {
		return
	}
	if err := t.store.SaveReferral(userID, state.Code, state.WalletCount, state.JoinedAt); err != nil {
		t.logger.WithField("user_id", userID).WithError(err).Error("Failed to persist referral state")
	}
}
