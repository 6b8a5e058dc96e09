package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/slumbank/slumbank/internal/ledger"
)

// CreateAccount registers a new account with a zero balance.
// The account row and its balance cache row are inserted in one
// transaction; a duplicate id returns ALREADY_EXISTS.
//
// The caller supplies ID, Username and PublicKey; Nonce starts at 0 and
// the row timestamps come from the store clock.
func (s *Store) CreateAccount(ctx context.Context, acct ledger.Account) error {
	now := s.now().UTC().Unix()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return ledger.ErrStorage(fmt.Errorf("create account: begin tx: %w", err))
	}
	defer tx.Rollback() // No-op if committed

	result, err := tx.ExecContext(ctx, `
		INSERT INTO accounts
		(id, username, public_key, nonce, created_at, updated_at)
		VALUES (?, ?, ?, 0, ?, ?)
		ON CONFLICT(id) DO NOTHING
	`, acct.ID, acct.Username, acct.PublicKey, now, now)
	if err != nil {
		return ledger.ErrStorage(fmt.Errorf("create account: insert: %w", err))
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return ledger.ErrStorage(fmt.Errorf("create account: rows affected: %w", err))
	}
	if rowsAffected == 0 {
		return ledger.ErrAlreadyExists(acct.ID)
	}

	_, err = tx.ExecContext(ctx, `
		INSERT INTO balances (account_id, balance, updated_at)
		VALUES (?, 0, ?)
	`, acct.ID, now)
	if err != nil {
		return ledger.ErrStorage(fmt.Errorf("create account: insert balance: %w", err))
	}

	if err := tx.Commit(); err != nil {
		return ledger.ErrStorage(fmt.Errorf("create account: commit: %w", err))
	}

	return nil
}

// GetAccount retrieves an account by id.
// Returns NOT_FOUND if the account is not registered.
func (s *Store) GetAccount(ctx context.Context, id string) (ledger.Account, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, username, public_key, nonce, created_at, updated_at
		FROM accounts
		WHERE id = ?
	`, id)

	var acct ledger.Account
	var createdAt, updatedAt int64
	err := row.Scan(&acct.ID, &acct.Username, &acct.PublicKey, &acct.Nonce, &createdAt, &updatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return ledger.Account{}, ledger.ErrNotFound(id)
	}
	if err != nil {
		return ledger.Account{}, ledger.ErrStorage(fmt.Errorf("get account: %w", err))
	}

	acct.CreatedAt = unixTime(createdAt)
	acct.UpdatedAt = unixTime(updatedAt)
	return acct, nil
}

// CurrentNonce returns the next nonce the account must use as a sender.
// Returns NOT_FOUND if the account is not registered.
func (s *Store) CurrentNonce(ctx context.Context, id string) (int64, error) {
	var nonce int64
	err := s.db.QueryRowContext(ctx, `
		SELECT nonce FROM accounts WHERE id = ?
	`, id).Scan(&nonce)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, ledger.ErrNotFound(id)
	}
	if err != nil {
		return 0, ledger.ErrStorage(fmt.Errorf("current nonce: %w", err))
	}
	return nonce, nil
}

// CountAccounts returns the number of registered accounts.
func (s *Store) CountAccounts(ctx context.Context) (int64, error) {
	var n int64
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM accounts`).Scan(&n); err != nil {
		return 0, ledger.ErrStorage(fmt.Errorf("count accounts: %w", err))
	}
	return n, nil
}
