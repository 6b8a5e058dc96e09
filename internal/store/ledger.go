package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/slumbank/slumbank/internal/ledger"
)

// History pagination bounds. Callers asking for more than maxHistoryLimit
// rows get maxHistoryLimit; zero or negative means defaultHistoryLimit.
const (
	defaultHistoryLimit = 50
	maxHistoryLimit     = 500
)

const txColumns = `id, sender, receiver, amount, kind, message, nonce, signature, timestamp, created_at`

// AppendTransaction inserts a transaction row without touching nonces or
// balances. Returns CONFLICT if the id is already in the log.
//
// Most callers want AcceptTransaction, which applies the full atomic
// effect. This bare append exists for audit tooling and tests.
func (s *Store) AppendTransaction(ctx context.Context, t ledger.Transaction) error {
	result, err := s.db.ExecContext(ctx, `
		INSERT INTO transactions
		(`+txColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO NOTHING
	`, t.ID, t.Sender, t.Receiver, t.Amount, string(t.Kind), t.Message,
		t.Nonce, t.Signature, t.Timestamp, s.now().UTC().Unix())
	if err != nil {
		return ledger.ErrStorage(fmt.Errorf("append transaction: %w", err))
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return ledger.ErrStorage(fmt.Errorf("append transaction: rows affected: %w", err))
	}
	if rowsAffected == 0 {
		return ledger.ErrConflict(t.ID)
	}

	return nil
}

// GetTransaction retrieves a single transaction by id.
// Returns NOT_FOUND if no such transaction was ever accepted.
func (s *Store) GetTransaction(ctx context.Context, id string) (ledger.Transaction, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT `+txColumns+`
		FROM transactions
		WHERE id = ?
	`, id)

	t, err := scanTransaction(row)
	if errors.Is(err, sql.ErrNoRows) {
		return ledger.Transaction{}, ledger.ErrTxNotFound(id)
	}
	if err != nil {
		return ledger.Transaction{}, ledger.ErrStorage(fmt.Errorf("get transaction: %w", err))
	}
	return t, nil
}

// ListByAccount returns transactions where the account is sender or
// receiver, ordered by signed timestamp (id breaks ties for stability).
//
// Returns an empty slice (not nil) when the account has no history.
func (s *Store) ListByAccount(ctx context.Context, accountID string, order ledger.Order, limit, offset int) ([]ledger.Transaction, error) {
	if limit <= 0 {
		limit = defaultHistoryLimit
	}
	if limit > maxHistoryLimit {
		limit = maxHistoryLimit
	}
	if offset < 0 {
		offset = 0
	}

	dir := "DESC"
	if order == ledger.OrderAsc {
		dir = "ASC"
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT `+txColumns+`
		FROM transactions
		WHERE sender = ? OR receiver = ?
		ORDER BY timestamp `+dir+`, id COLLATE BINARY `+dir+`
		LIMIT ? OFFSET ?
	`, accountID, accountID, limit, offset)
	if err != nil {
		return nil, ledger.ErrStorage(fmt.Errorf("list transactions: %w", err))
	}
	defer rows.Close()

	txs := []ledger.Transaction{}
	for rows.Next() {
		t, err := scanTransaction(rows)
		if err != nil {
			return nil, ledger.ErrStorage(fmt.Errorf("scan transaction: %w", err))
		}
		txs = append(txs, t)
	}
	if err := rows.Err(); err != nil {
		return nil, ledger.ErrStorage(fmt.Errorf("iterate transactions: %w", err))
	}

	return txs, nil
}

// ReplayAll streams every transaction in deterministic log order
// (timestamp ASC, id ASC) through fn. Iteration stops at the first error
// fn returns.
func (s *Store) ReplayAll(ctx context.Context, fn func(ledger.Transaction) error) error {
	rows, err := s.db.QueryContext(ctx, `
		SELECT `+txColumns+`
		FROM transactions
		ORDER BY timestamp ASC, id COLLATE BINARY ASC
	`)
	if err != nil {
		return ledger.ErrStorage(fmt.Errorf("replay: %w", err))
	}
	defer rows.Close()

	for rows.Next() {
		t, err := scanTransaction(rows)
		if err != nil {
			return ledger.ErrStorage(fmt.Errorf("replay: scan: %w", err))
		}
		if err := fn(t); err != nil {
			return err
		}
	}
	if err := rows.Err(); err != nil {
		return ledger.ErrStorage(fmt.Errorf("replay: iterate: %w", err))
	}

	return nil
}

// CountTransactions returns the total number of log entries.
func (s *Store) CountTransactions(ctx context.Context) (int64, error) {
	var n int64
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM transactions`).Scan(&n); err != nil {
		return 0, ledger.ErrStorage(fmt.Errorf("count transactions: %w", err))
	}
	return n, nil
}

// scanner covers both *sql.Row and *sql.Rows.
type scanner interface {
	Scan(dest ...any) error
}

func scanTransaction(row scanner) (ledger.Transaction, error) {
	var t ledger.Transaction
	var kind string
	var createdAt int64
	err := row.Scan(&t.ID, &t.Sender, &t.Receiver, &t.Amount, &kind, &t.Message,
		&t.Nonce, &t.Signature, &t.Timestamp, &createdAt)
	if err != nil {
		return ledger.Transaction{}, err
	}
	t.Kind = ledger.Kind(kind)
	t.CreatedAt = unixTime(createdAt)
	return t, nil
}

func unixTime(sec int64) time.Time {
	return time.Unix(sec, 0).UTC()
}
