package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/mattn/go-sqlite3"

	"github.com/slumbank/slumbank/internal/ledger"
)

// AcceptTransaction applies a validated transaction atomically: the log
// append, the sender's nonce advance, the sender debit and the receiver
// credit commit together or not at all.
//
// The processor has already verified the signature and policy, but the
// racy checks are repeated here at the database level:
//   - the log insert claims the id (ON CONFLICT DO NOTHING); a duplicate
//     returns CONFLICT
//   - the log insert also claims the (sender, nonce) slot via the unique
//     index; a different transaction reusing a consumed nonce returns
//     NONCE_MISMATCH right there, before the compare-and-swap runs
//   - the nonce advance is a compare-and-swap (WHERE nonce = ?); a
//     too-high nonce or a lost race returns NONCE_MISMATCH
//   - the debit relies on the CHECK (balance >= 0) constraint; an
//     overdraft returns INSUFFICIENT_BALANCE
//
// Debit and credit depend on kind: transfers debit the sender and credit
// the receiver, mints only credit, burns only debit. Every kind advances
// the sender's nonce.
func (s *Store) AcceptTransaction(ctx context.Context, t ledger.Transaction) error {
	now := s.now().UTC().Unix()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return ledger.ErrStorage(fmt.Errorf("accept: begin tx: %w", err))
	}
	defer tx.Rollback() // No-op if committed

	// Step 1: claim the transaction id.
	result, err := tx.ExecContext(ctx, `
		INSERT INTO transactions
		(`+txColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO NOTHING
	`, t.ID, t.Sender, t.Receiver, t.Amount, string(t.Kind), t.Message,
		t.Nonce, t.Signature, t.Timestamp, now)
	if err != nil {
		// ON CONFLICT(id) absorbs id duplicates, so a unique violation here
		// is idx_transactions_sender_nonce: an accepted transaction already
		// holds this (sender, nonce) slot.
		if isUniqueViolation(err) {
			return s.nonceMismatch(ctx, tx, t.Sender, t.Nonce)
		}
		return ledger.ErrStorage(fmt.Errorf("accept: insert transaction: %w", err))
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return ledger.ErrStorage(fmt.Errorf("accept: rows affected: %w", err))
	}
	if rowsAffected == 0 {
		return ledger.ErrConflict(t.ID)
	}

	// Step 2: advance the sender's nonce, compare-and-swap style.
	result, err = tx.ExecContext(ctx, `
		UPDATE accounts SET nonce = nonce + 1, updated_at = ?
		WHERE id = ? AND nonce = ?
	`, now, t.Sender, t.Nonce)
	if err != nil {
		return ledger.ErrStorage(fmt.Errorf("accept: advance nonce: %w", err))
	}

	rowsAffected, err = result.RowsAffected()
	if err != nil {
		return ledger.ErrStorage(fmt.Errorf("accept: rows affected: %w", err))
	}
	if rowsAffected == 0 {
		// Either the sender vanished or the nonce moved under us.
		return s.nonceMismatch(ctx, tx, t.Sender, t.Nonce)
	}

	// Step 3: debit the sender (transfers and burns).
	if t.Kind == ledger.KindTransfer || t.Kind == ledger.KindBurn {
		_, err := tx.ExecContext(ctx, `
			UPDATE balances SET balance = balance - ?, updated_at = ?
			WHERE account_id = ?
		`, t.Amount, now, t.Sender)
		if err != nil {
			if isBalanceCheckViolation(err) {
				have, need := s.overdraftDetail(ctx, tx, t.Sender, t.Amount)
				return ledger.ErrInsufficientBalance(t.Sender, have, need)
			}
			return ledger.ErrStorage(fmt.Errorf("accept: debit: %w", err))
		}
	}

	// Step 4: credit the receiver (transfers and mints).
	if t.Kind == ledger.KindTransfer || t.Kind == ledger.KindMint {
		result, err := tx.ExecContext(ctx, `
			UPDATE balances SET balance = balance + ?, updated_at = ?
			WHERE account_id = ?
		`, t.Amount, now, t.Receiver)
		if err != nil {
			return ledger.ErrStorage(fmt.Errorf("accept: credit: %w", err))
		}
		rowsAffected, err := result.RowsAffected()
		if err != nil {
			return ledger.ErrStorage(fmt.Errorf("accept: rows affected: %w", err))
		}
		if rowsAffected == 0 {
			// Every registered account has a balance row; a miss means the
			// receiver was never registered.
			return ledger.ErrNotFound(t.Receiver)
		}
	}

	if err := tx.Commit(); err != nil {
		return ledger.ErrStorage(fmt.Errorf("accept: commit: %w", err))
	}

	return nil
}

// nonceMismatch builds the NONCE_MISMATCH rejection, reading the sender's
// current nonce inside the open tx (pre-rollback) for the message.
func (s *Store) nonceMismatch(ctx context.Context, tx *sql.Tx, sender string, got int64) error {
	var current int64
	err := tx.QueryRowContext(ctx, `
		SELECT nonce FROM accounts WHERE id = ?
	`, sender).Scan(&current)
	if errors.Is(err, sql.ErrNoRows) {
		return ledger.ErrNotFound(sender)
	}
	if err != nil {
		return ledger.ErrStorage(fmt.Errorf("accept: read nonce: %w", err))
	}
	return ledger.ErrNonceMismatch(sender, got, current)
}

// isBalanceCheckViolation reports whether err is the CHECK (balance >= 0)
// constraint firing.
func isBalanceCheckViolation(err error) bool {
	var serr sqlite3.Error
	if !errors.As(err, &serr) {
		return false
	}
	return serr.ExtendedCode == sqlite3.ErrConstraintCheck
}

// isUniqueViolation reports whether err is a UNIQUE constraint firing.
func isUniqueViolation(err error) bool {
	var serr sqlite3.Error
	if !errors.As(err, &serr) {
		return false
	}
	return serr.ExtendedCode == sqlite3.ErrConstraintUnique
}

// overdraftDetail fetches the sender's balance for the INSUFFICIENT_BALANCE
// message. Best-effort: on a read error it reports have=0, which still
// carries the right code.
func (s *Store) overdraftDetail(ctx context.Context, tx *sql.Tx, accountID string, amount int64) (have, need int64) {
	var balance int64
	if err := tx.QueryRowContext(ctx, `
		SELECT balance FROM balances WHERE account_id = ?
	`, accountID).Scan(&balance); err != nil {
		return 0, amount
	}
	return balance, amount
}
