package processor

import (
	"context"
	"log/slog"

	"github.com/slumbank/slumbank/internal/ledger"
	"github.com/slumbank/slumbank/internal/store"
)

// RegisterAccount creates a ledger account bound to an Ed25519 public
// key. The id is the external identity (a Discord user id in the
// original deployment); the key can never be changed afterwards.
func (p *Processor) RegisterAccount(ctx context.Context, id, username, publicKeyB64 string) (ledger.Account, error) {
	if _, err := ledger.DecodePublicKey(publicKeyB64); err != nil {
		return ledger.Account{}, &ledger.Error{
			Code:    ledger.CodeInvalidSignature,
			Message: "public key must be a base64 32-byte Ed25519 key",
			Account: id,
		}
	}

	err := p.store.CreateAccount(ctx, ledger.Account{
		ID:        id,
		Username:  username,
		PublicKey: publicKeyB64,
	})
	if err != nil {
		return ledger.Account{}, err
	}

	slog.Info("account registered", "account", id, "username", username)
	return p.store.GetAccount(ctx, id)
}

// GetAccount returns a registered account.
func (p *Processor) GetAccount(ctx context.Context, id string) (ledger.Account, error) {
	return p.store.GetAccount(ctx, id)
}

// QueryBalance returns the cached balance for an account.
func (p *Processor) QueryBalance(ctx context.Context, id string) (int64, error) {
	return p.store.GetBalance(ctx, id)
}

// QueryHistory returns a page of the account's transaction history,
// ordered by signed timestamp. The account must exist; an unknown id is
// NOT_FOUND rather than an empty page.
func (p *Processor) QueryHistory(ctx context.Context, id string, order ledger.Order, limit, offset int) ([]ledger.Transaction, error) {
	if _, err := p.store.GetAccount(ctx, id); err != nil {
		return nil, err
	}
	return p.store.ListByAccount(ctx, id, order, limit, offset)
}

// GetTransaction returns one accepted transaction by id.
func (p *Processor) GetTransaction(ctx context.Context, id string) (ledger.Transaction, error) {
	return p.store.GetTransaction(ctx, id)
}

// Leaderboard returns the top cached balances, descending.
func (p *Processor) Leaderboard(ctx context.Context, limit int) ([]ledger.Balance, error) {
	return p.store.Leaderboard(ctx, limit)
}

// RebuildBalance recomputes one account's balance from the log,
// bypassing the cache. Cache and rebuild must agree on a healthy ledger.
func (p *Processor) RebuildBalance(ctx context.Context, id string) (int64, error) {
	return p.store.DerivedBalance(ctx, id)
}

// Audit compares every cached balance against the log-derived value.
// An empty result means the cache is consistent.
func (p *Processor) Audit(ctx context.Context) ([]store.Divergence, error) {
	divergent, err := p.store.VerifyBalances(ctx)
	if err != nil {
		return nil, err
	}
	if len(divergent) > 0 {
		slog.Warn("balance cache diverged from ledger", "accounts", len(divergent))
	}
	return divergent, nil
}

// Repair rewrites diverged cached balances from the log and returns how
// many were fixed. The log always wins.
func (p *Processor) Repair(ctx context.Context) (int, error) {
	repaired, err := p.store.RepairBalances(ctx)
	if err != nil {
		return 0, err
	}
	if repaired > 0 {
		slog.Info("balance cache repaired", "accounts", repaired)
	}
	return repaired, nil
}
