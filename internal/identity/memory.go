package identity

import (
	"context"
	"sync"
)

// MemoryAccounts is an in-process AccountStore, used when no remote store
// is configured and in tests
type MemoryAccounts struct {
	mu       sync.RWMutex
	accounts map[string]Account // by uid
}

func NewMemoryAccounts() *MemoryAccounts {
	return &MemoryAccounts{accounts: make(map[string]Account)}
}

func (m *MemoryAccounts) find(match func(Account) bool) *Account {
	m.mu.RLock()
	defer m.mu.RUnlock()
	for _, a := range m.accounts {
		if match(a) {
			found := a
			return &found
		}
	}
	return nil
}

func (m *MemoryAccounts) AccountByEmail(ctx context.Context, email string) (*Account, error) {
	return m.find(func(a Account) bool { return a.Email == email }), nil
}

func (m *MemoryAccounts) AccountByGoogleID(ctx context.Context, googleID string) (*Account, error) {
	if googleID == "" {
		return nil, nil
	}
	return m.find(func(a Account) bool { return a.GoogleID == googleID }), nil
}

func (m *MemoryAccounts) AccountByUID(ctx context.Context, uid string) (*Account, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if a, ok := m.accounts[uid]; ok {
		return &a, nil
	}
	return nil, nil
}

func (m *MemoryAccounts) CreateAccount(ctx context.Context, account Account) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, a := range m.accounts {
		if a.Email == account.Email {
			return ErrEmailInUse
		}
	}
	m.accounts[account.UID] = account
	return nil
}

func (m *MemoryAccounts) LinkGoogleID(ctx context.Context, uid, googleID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	a, ok := m.accounts[uid]
	if !ok {
		return ErrNotSignedIn
	}
	a.GoogleID = googleID
	m.accounts[uid] = a
	return nil
}

func (m *MemoryAccounts) DeleteAccount(ctx context.Context, uid string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.accounts, uid)
	return nil
}
