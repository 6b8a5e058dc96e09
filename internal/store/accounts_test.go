package store

import (
	"context"
	"testing"

	"github.com/slumbank/slumbank/internal/ledger"
)

func TestCreateAccount_StartsAtZero(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()

	registerTestAccount(t, s, "alice")

	acct, err := s.GetAccount(ctx, "alice")
	if err != nil {
		t.Fatalf("GetAccount() failed: %v", err)
	}
	if acct.Nonce != 0 {
		t.Errorf("Nonce = %d, want 0", acct.Nonce)
	}
	if acct.PublicKey != "pk-alice" {
		t.Errorf("PublicKey = %q, want %q", acct.PublicKey, "pk-alice")
	}

	balance, err := s.GetBalance(ctx, "alice")
	if err != nil {
		t.Fatalf("GetBalance() failed: %v", err)
	}
	if balance != 0 {
		t.Errorf("balance = %d, want 0", balance)
	}
}

func TestCreateAccount_Duplicate(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()

	registerTestAccount(t, s, "alice")

	err := s.CreateAccount(ctx, ledger.Account{ID: "alice", Username: "other", PublicKey: "other-key"})
	if !ledger.IsCode(err, ledger.CodeAlreadyExists) {
		t.Fatalf("duplicate CreateAccount() = %v, want ALREADY_EXISTS", err)
	}

	// The original registration must be untouched.
	acct, err := s.GetAccount(ctx, "alice")
	if err != nil {
		t.Fatalf("GetAccount() failed: %v", err)
	}
	if acct.PublicKey != "pk-alice" {
		t.Errorf("PublicKey = %q, original registration was overwritten", acct.PublicKey)
	}
}

func TestGetAccount_NotFound(t *testing.T) {
	s := createTestStore(t)

	_, err := s.GetAccount(context.Background(), "nobody")
	if !ledger.IsCode(err, ledger.CodeNotFound) {
		t.Fatalf("GetAccount(nobody) = %v, want NOT_FOUND", err)
	}
}

func TestCurrentNonce(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()

	registerTestAccount(t, s, "alice")

	nonce, err := s.CurrentNonce(ctx, "alice")
	if err != nil {
		t.Fatalf("CurrentNonce() failed: %v", err)
	}
	if nonce != 0 {
		t.Errorf("nonce = %d, want 0", nonce)
	}

	if _, err := s.CurrentNonce(ctx, "nobody"); !ledger.IsCode(err, ledger.CodeNotFound) {
		t.Errorf("CurrentNonce(nobody) = %v, want NOT_FOUND", err)
	}
}

func TestCountAccounts(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()

	n, err := s.CountAccounts(ctx)
	if err != nil || n != 0 {
		t.Fatalf("CountAccounts() = %d, %v, want 0, nil", n, err)
	}

	registerTestAccount(t, s, "alice")
	registerTestAccount(t, s, "bob")

	n, err = s.CountAccounts(ctx)
	if err != nil || n != 2 {
		t.Fatalf("CountAccounts() = %d, %v, want 2, nil", n, err)
	}
}
