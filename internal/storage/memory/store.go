package memory

import (
	"context"
	"sync"

	"github.com/vb-2003/rebase-ledger/internal/interfaces"
	"github.com/vb-2003/rebase-ledger/internal/models"
)

// AccountStore is an in-memory implementation of interfaces.AccountStore,
// safe for concurrent use.
type AccountStore struct {
	mu       sync.Mutex
	accounts map[string]models.Account
}

// NewAccountStore creates an empty in-memory account store.
func NewAccountStore() *AccountStore {
	return &AccountStore{
		accounts: make(map[string]models.Account),
	}
}

// Get returns a copy of the stored account, or ok=false when the address has
// never been written.
func (m *AccountStore) Get(ctx context.Context, address string) (models.Account, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	acct, ok := m.accounts[address]
	if !ok {
		return models.Account{}, false, nil
	}
	return acct.Clone(), true, nil
}

// Put stores copies of all given accounts. In-memory writes cannot fail
// halfway, so the all-or-nothing contract holds trivially.
func (m *AccountStore) Put(ctx context.Context, accounts ...models.Account) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	for _, acct := range accounts {
		m.accounts[acct.Address] = acct.Clone()
	}
	return nil
}

// Addresses returns every address ever written, for diagnostics.
func (m *AccountStore) Addresses() []string {
	m.mu.Lock()
	defer m.mu.Unlock()

	out := make([]string, 0, len(m.accounts))
	for addr := range m.accounts {
		out = append(out, addr)
	}
	return out
}

var _ interfaces.AccountStore = (*AccountStore)(nil)
