// services/session.go
package services

import (
	"sync"
	"time"

	"github.com/google/uuid"

	"power-token-exchange/models"
)

// Mode says which backend a session reads and writes.
type Mode string

const (
	ModeRemote Mode = "remote"
	ModeLocal  Mode = "local"
)

// Session is the explicit per-client state every Store operation receives.
// It starts in ModeRemote and can only ever move to ModeLocal.
type Session struct {
	ID string

	mu          sync.RWMutex
	mode        Mode
	account     *models.Account
	version     uint64 // bumped on every account write
	remoteToken string
	wallet      string
	lastSeen    time.Time
}

func NewSession() *Session {
	return &Session{
		ID:       uuid.NewString(),
		mode:     ModeRemote,
		lastSeen: time.Now(),
	}
}

func (s *Session) Mode() Mode {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.mode
}

// Account returns a copy of the cached account, or nil when signed out.
func (s *Session) Account() *models.Account {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.account == nil {
		return nil
	}
	acct := *s.account
	return &acct
}

// Wallet returns the connected wallet address for this session.
func (s *Session) Wallet() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.wallet
}

func (s *Session) RemoteToken() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.remoteToken
}

func (s *Session) Touch() {
	s.mu.Lock()
	s.lastSeen = time.Now()
	s.mu.Unlock()
}

func (s *Session) LastSeen() time.Time {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.lastSeen
}

// demote moves the session to ModeLocal. Returns false if it already was.
func (s *Session) demote() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.mode == ModeLocal {
		return false
	}
	s.mode = ModeLocal
	s.remoteToken = ""
	return true
}

// accountSnapshot returns a copy of the cached account and the version it
// was read at.
func (s *Session) accountSnapshot() (*models.Account, uint64) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.account == nil {
		return nil, s.version
	}
	acct := *s.account
	return &acct, s.version
}

// refreshAccount stores acct only if the cache is unchanged since version was
// read and still holds the same account. Returns false otherwise.
func (s *Session) refreshAccount(acct *models.Account, version uint64) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.version != version || s.account == nil || s.account.ID != acct.ID {
		return false
	}
	cp := *acct
	s.account = &cp
	s.version++
	if cp.WalletAddress != "" {
		s.wallet = cp.WalletAddress
	}
	return true
}

func (s *Session) setAccount(acct *models.Account, remoteToken string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.version++
	if acct == nil {
		s.account = nil
		s.remoteToken = ""
		return
	}
	cp := *acct
	s.account = &cp
	s.remoteToken = remoteToken
	if cp.WalletAddress != "" {
		s.wallet = cp.WalletAddress
	}
}

func (s *Session) updateAccount(fn func(a *models.Account)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.account != nil {
		fn(s.account)
		s.version++
	}
}

func (s *Session) setWallet(address string) {
	s.mu.Lock()
	s.wallet = address
	s.mu.Unlock()
}

func (s *Session) clear() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.account = nil
	s.version++
	s.remoteToken = ""
	s.wallet = ""
}
