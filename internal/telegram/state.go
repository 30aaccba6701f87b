package telegram

import (
	"fmt"
	"sync"

	"github.com/gagliardetto/solana-go"
)

// Conversation states
const (
	StateWaitKeys        = "wait_keys"
	StateWaitDestination = "wait_destination"
	StateSelectBurns     = "select_burns"
)

// TokenKind mirrors the scan classification for display purposes.
type TokenKind int

const (
	TokenEmpty TokenKind = iota
	TokenBalance
	TokenInactive
)

// TokenEntry is one scanned token account carried between conversation
// steps. Owners are referenced by index into the parse order of the key
// input, so the entry itself never holds private key material.
type TokenEntry struct {
	OwnerIndex int
	Address    solana.PublicKey
	Mint       solana.PublicKey
	RawBalance uint64
	Decimals   uint8
	Symbol     string
	UIBalance  float64
	Kind       TokenKind
}

// Label is the human-readable form used on selection buttons.
func (t TokenEntry) Label() string {
	return fmt.Sprintf("%.6f %s", t.UIBalance, t.Symbol)
}

// Session is one user's in-flight cleanup conversation. Private keys are
// held only as a sealed blob and reopened at settlement time.
//
// Updates are dispatched on separate goroutines, so Selected and Busy are
// only touched through the methods below.
type Session struct {
	State       string
	SealedKeys  []byte
	WalletCount int
	Owners      []solana.PublicKey
	Tokens      []TokenEntry
	Destination *solana.PublicKey

	mu       sync.Mutex
	selected map[int]bool
	page     int
	busy     bool
}

// ToggleBurn flips one burn selection. It reports false when a settlement
// is already running and the selection can no longer change.
func (s *Session) ToggleBurn(idx int) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.busy {
		return false
	}
	s.selected[idx] = !s.selected[idx]
	return true
}

// Selected returns a copy of the current burn selection.
func (s *Session) Selected() map[int]bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make(map[int]bool, len(s.selected))
	for k, v := range s.selected {
		out[k] = v
	}
	return out
}

// Page returns the current burn-selection page.
func (s *Session) Page() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.page
}

// TurnPage moves the burn-selection page by delta within [0, pageCount).
// It reports false when the page did not change.
func (s *Session) TurnPage(delta, pageCount int) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	next := s.page + delta
	if next < 0 || next >= pageCount || next == s.page {
		return false
	}
	s.page = next
	return true
}

// BeginSettlement marks the session busy. It reports false when another
// settlement already claimed it, so only one caller proceeds.
func (s *Session) BeginSettlement() bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.busy {
		return false
	}
	s.busy = true
	return true
}

// IsBusy reports whether a settlement is currently running.
func (s *Session) IsBusy() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.busy
}

// SessionManager tracks per-user conversation sessions and language choice.
// Language survives session resets.
type SessionManager struct {
	mu       sync.RWMutex
	sessions map[int64]*Session
	langs    map[int64]string
}

func NewSessionManager() *SessionManager {
	return &SessionManager{
		sessions: make(map[int64]*Session),
		langs:    make(map[int64]string),
	}
}

// Begin replaces any existing session with a fresh one in the given state.
func (sm *SessionManager) Begin(userID int64, state string) *Session {
	sm.mu.Lock()
	defer sm.mu.Unlock()

	s := &Session{State: state, selected: make(map[int]bool)}
	sm.sessions[userID] = s
	return s
}

// Get returns the user's session, or nil when none is active.
func (sm *SessionManager) Get(userID int64) *Session {
	sm.mu.RLock()
	defer sm.mu.RUnlock()
	return sm.sessions[userID]
}

// Clear wipes a session including its sealed key material.
func (sm *SessionManager) Clear(userID int64) {
	sm.mu.Lock()
	defer sm.mu.Unlock()

	if s, ok := sm.sessions[userID]; ok {
		for i := range s.SealedKeys {
			s.SealedKeys[i] = 0
		}
	}
	delete(sm.sessions, userID)
}

// Language returns the user's language, defaulting to English.
func (sm *SessionManager) Language(userID int64) string {
	sm.mu.RLock()
	defer sm.mu.RUnlock()

	if lang, ok := sm.langs[userID]; ok {
		return lang
	}
	return "en"
}

// SetLanguage stores the user's language choice.
func (sm *SessionManager) SetLanguage(userID int64, lang string) {
	sm.mu.Lock()
	defer sm.mu.Unlock()
	sm.langs[userID] = lang
}
