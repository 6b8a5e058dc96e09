package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/slumbank/slumbank/internal/ledger"
)

// derivedBalanceSQL computes an account's balance from the transaction log:
// credits (receiver of transfer/mint) minus debits (sender of transfer/burn).
// Burn receivers are never credited; mint senders are never debited.
const derivedBalanceSQL = `
	SELECT
		COALESCE((SELECT SUM(amount) FROM transactions
			WHERE receiver = ? AND kind IN ('transfer', 'mint')), 0)
		-
		COALESCE((SELECT SUM(amount) FROM transactions
			WHERE sender = ? AND kind IN ('transfer', 'burn')), 0)
`

// GetBalance returns the cached balance for an account.
// Returns NOT_FOUND if the account is not registered.
func (s *Store) GetBalance(ctx context.Context, accountID string) (int64, error) {
	var balance int64
	err := s.db.QueryRowContext(ctx, `
		SELECT balance FROM balances WHERE account_id = ?
	`, accountID).Scan(&balance)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, ledger.ErrNotFound(accountID)
	}
	if err != nil {
		return 0, ledger.ErrStorage(fmt.Errorf("get balance: %w", err))
	}
	return balance, nil
}

// Leaderboard returns cached balances in descending order, account id
// breaking ties. Accounts with zero balance are included.
func (s *Store) Leaderboard(ctx context.Context, limit int) ([]ledger.Balance, error) {
	if limit <= 0 {
		limit = defaultHistoryLimit
	}
	if limit > maxHistoryLimit {
		limit = maxHistoryLimit
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT account_id, balance, updated_at
		FROM balances
		ORDER BY balance DESC, account_id COLLATE BINARY ASC
		LIMIT ?
	`, limit)
	if err != nil {
		return nil, ledger.ErrStorage(fmt.Errorf("leaderboard: %w", err))
	}
	defer rows.Close()

	balances := []ledger.Balance{}
	for rows.Next() {
		var b ledger.Balance
		var updatedAt int64
		if err := rows.Scan(&b.AccountID, &b.Balance, &updatedAt); err != nil {
			return nil, ledger.ErrStorage(fmt.Errorf("leaderboard: scan: %w", err))
		}
		b.UpdatedAt = unixTime(updatedAt)
		balances = append(balances, b)
	}
	if err := rows.Err(); err != nil {
		return nil, ledger.ErrStorage(fmt.Errorf("leaderboard: iterate: %w", err))
	}

	return balances, nil
}

// DerivedBalance recomputes an account's balance from the transaction log,
// ignoring the cache. Returns NOT_FOUND for unregistered accounts.
func (s *Store) DerivedBalance(ctx context.Context, accountID string) (int64, error) {
	// Existence check first: the aggregate happily returns 0 for unknown ids.
	if _, err := s.CurrentNonce(ctx, accountID); err != nil {
		return 0, err
	}

	var derived int64
	err := s.db.QueryRowContext(ctx, derivedBalanceSQL, accountID, accountID).Scan(&derived)
	if err != nil {
		return 0, ledger.ErrStorage(fmt.Errorf("derived balance: %w", err))
	}
	return derived, nil
}

// Divergence reports one account whose cached balance disagrees with the
// balance derived from the log.
type Divergence struct {
	AccountID string
	Cached    int64
	Derived   int64
}

// VerifyBalances compares every cached balance against the log-derived
// value and returns the divergent accounts. An empty slice means the
// cache is consistent.
func (s *Store) VerifyBalances(ctx context.Context) ([]Divergence, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT b.account_id, b.balance,
			COALESCE((SELECT SUM(amount) FROM transactions t
				WHERE t.receiver = b.account_id AND t.kind IN ('transfer', 'mint')), 0)
			-
			COALESCE((SELECT SUM(amount) FROM transactions t
				WHERE t.sender = b.account_id AND t.kind IN ('transfer', 'burn')), 0)
		FROM balances b
	`)
	if err != nil {
		return nil, ledger.ErrStorage(fmt.Errorf("verify balances: %w", err))
	}
	defer rows.Close()

	divergent := []Divergence{}
	for rows.Next() {
		var d Divergence
		if err := rows.Scan(&d.AccountID, &d.Cached, &d.Derived); err != nil {
			return nil, ledger.ErrStorage(fmt.Errorf("verify balances: scan: %w", err))
		}
		if d.Cached != d.Derived {
			divergent = append(divergent, d)
		}
	}
	if err := rows.Err(); err != nil {
		return nil, ledger.ErrStorage(fmt.Errorf("verify balances: iterate: %w", err))
	}

	return divergent, nil
}

// RepairBalances rewrites every cached balance from the transaction log
// in a single transaction and returns the number of rows that changed.
// The log is the source of truth; the cache always loses.
func (s *Store) RepairBalances(ctx context.Context) (int, error) {
	divergent, err := s.VerifyBalances(ctx)
	if err != nil {
		return 0, err
	}
	if len(divergent) == 0 {
		return 0, nil
	}

	now := s.now().UTC().Unix()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, ledger.ErrStorage(fmt.Errorf("repair balances: begin tx: %w", err))
	}
	defer tx.Rollback() // No-op if committed

	for _, d := range divergent {
		_, err := tx.ExecContext(ctx, `
			UPDATE balances SET balance = ?, updated_at = ?
			WHERE account_id = ?
		`, d.Derived, now, d.AccountID)
		if err != nil {
			return 0, ledger.ErrStorage(fmt.Errorf("repair balances: update %s: %w", d.AccountID, err))
		}
	}

	if err := tx.Commit(); err != nil {
		return 0, ledger.ErrStorage(fmt.Errorf("repair balances: commit: %w", err))
	}

	return len(divergent), nil
}
