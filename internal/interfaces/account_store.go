package interfaces

import (
	"context"

	"github.com/vb-2003/rebase-ledger/internal/models"
)

// AccountStore persists per-account ledger state. Put with more than one
// account must apply all of them or none.
type AccountStore interface {
	Get(ctx context.Context, address string) (models.Account, bool, error)
	Put(ctx context.Context, accounts ...models.Account) error
}
