package postgres

import (
	"context"
	"database/sql"

	_ "github.com/lib/pq"

	"github.com/vb-2003/rebase-ledger/internal/interfaces"
	"github.com/vb-2003/rebase-ledger/internal/models"
)

// AccountStore persists accounts in PostgreSQL. Multi-account writes run in
// one transaction so a transfer never lands half-applied.
type AccountStore struct {
	db *sql.DB
}

// NewAccountStore wraps an open database handle.
func NewAccountStore(db *sql.DB) *AccountStore {
	return &AccountStore{db: db}
}

// EnsureSchema creates the accounts table when it does not exist yet.
func (p *AccountStore) EnsureSchema(ctx context.Context) error {
	const query = `CREATE TABLE IF NOT EXISTS accounts (
		address     TEXT PRIMARY KEY,
		principal   NUMERIC NOT NULL,
		rate        NUMERIC NOT NULL,
		last_update TIMESTAMPTZ NOT NULL
	)`

	_, err := p.db.ExecContext(ctx, query)
	return err
}

func (p *AccountStore) Get(ctx context.Context, address string) (models.Account, bool, error) {
	const query = `SELECT address, principal, rate, last_update FROM accounts WHERE address = $1`

	var acct models.Account
	err := p.db.QueryRowContext(ctx, query, address).Scan(
		&acct.Address,
		&acct.Principal,
		&acct.Rate,
		&acct.LastUpdate,
	)
	if err == sql.ErrNoRows {
		return models.Account{}, false, nil
	}
	if err != nil {
		return models.Account{}, false, err
	}
	return acct, true, nil
}

func (p *AccountStore) Put(ctx context.Context, accounts ...models.Account) error {
	const query = `INSERT INTO accounts (address, principal, rate, last_update)
	VALUES ($1, $2, $3, $4)
	ON CONFLICT (address) DO UPDATE
	SET principal = EXCLUDED.principal, rate = EXCLUDED.rate, last_update = EXCLUDED.last_update`

	if len(accounts) == 1 {
		acct := accounts[0]
		_, err := p.db.ExecContext(ctx, query, acct.Address, acct.Principal, acct.Rate, acct.LastUpdate)
		return err
	}

	dbTx, err := p.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}

	defer func() {
		if err != nil {
			dbTx.Rollback()
		}
	}()

	for _, acct := range accounts {
		_, err = dbTx.ExecContext(ctx, query, acct.Address, acct.Principal, acct.Rate, acct.LastUpdate)
		if err != nil {
			return err
		}
	}
	return dbTx.Commit()
}

var _ interfaces.AccountStore = (*AccountStore)(nil)
