package store

import (
	"context"
	"fmt"
	"path/filepath"
	"testing"

	"github.com/slumbank/slumbank/internal/ledger"
)

// createTestStore creates a file-backed store in a temp dir.
func createTestStore(t *testing.T) *Store {
	t.Helper()
	path := filepath.Join(t.TempDir(), "test.db")
	s, err := Open(path)
	if err != nil {
		t.Fatalf("Open() failed: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

// registerTestAccount registers an account with a throwaway key.
func registerTestAccount(t *testing.T, s *Store, id string) {
	t.Helper()
	err := s.CreateAccount(context.Background(), ledger.Account{
		ID:        id,
		Username:  "user-" + id,
		PublicKey: "pk-" + id,
	})
	if err != nil {
		t.Fatalf("CreateAccount(%s) failed: %v", id, err)
	}
}

// createTestTransaction builds a transaction with a unique content-derived
// id. The store never checks signatures, so a placeholder is fine.
func createTestTransaction(sender, receiver string, amount int64, kind ledger.Kind, nonce, timestamp int64) ledger.Transaction {
	p := ledger.Payload{
		Sender:    sender,
		Receiver:  receiver,
		Amount:    amount,
		Kind:      kind,
		Nonce:     nonce,
		Timestamp: timestamp,
	}
	sig := fmt.Sprintf("sig-%s-%d", sender, nonce)
	return ledger.Transaction{
		ID:        ledger.MustTransactionID(p, sig),
		Sender:    sender,
		Receiver:  receiver,
		Amount:    amount,
		Kind:      kind,
		Nonce:     nonce,
		Signature: sig,
		Timestamp: timestamp,
	}
}

// acceptTestTransaction accepts a transaction, failing the test on error.
func acceptTestTransaction(t *testing.T, s *Store, tx ledger.Transaction) {
	t.Helper()
	if err := s.AcceptTransaction(context.Background(), tx); err != nil {
		t.Fatalf("AcceptTransaction(%s) failed: %v", tx.ID, err)
	}
}
