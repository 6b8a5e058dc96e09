// Package processor orchestrates transaction acceptance: ordered
// validation, policy enforcement, per-account serialization and the
// atomic append.
//
// Concurrency model: signature verification and the cheap validation
// checks run outside any lock. The per-account locks (lexicographic
// acquisition for pairs) only cover the atomic accept, and the racy
// checks - nonce, funds, duplicate id - are re-verified inside the
// database transaction itself, so a lost race surfaces as the same
// rejection code it would have outside.
package processor

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/slumbank/slumbank/internal/ledger"
	"github.com/slumbank/slumbank/internal/policy"
	"github.com/slumbank/slumbank/internal/store"
)

// Store is the durability surface the processor drives. *store.Store
// implements it; tests wrap it to inject storage failures.
type Store interface {
	CreateAccount(ctx context.Context, acct ledger.Account) error
	GetAccount(ctx context.Context, id string) (ledger.Account, error)
	CurrentNonce(ctx context.Context, id string) (int64, error)
	GetBalance(ctx context.Context, id string) (int64, error)
	AcceptTransaction(ctx context.Context, t ledger.Transaction) error
	GetTransaction(ctx context.Context, id string) (ledger.Transaction, error)
	ListByAccount(ctx context.Context, id string, order ledger.Order, limit, offset int) ([]ledger.Transaction, error)
	Leaderboard(ctx context.Context, limit int) ([]ledger.Balance, error)
	DerivedBalance(ctx context.Context, id string) (int64, error)
	VerifyBalances(ctx context.Context) ([]store.Divergence, error)
	RepairBalances(ctx context.Context) (int, error)
}

// Processor validates and applies signed transactions.
//
// Thread-safety: Submit is safe for concurrent use; submissions touching
// disjoint account pairs proceed in parallel.
type Processor struct {
	store  Store
	policy policy.Policy
	locks  *accountLocks
	tokens TokenGenerator
}

// Option configures a Processor.
type Option func(*Processor)

// WithTokenGenerator replaces the correlation token source.
// Tests use FixedGenerator for deterministic logs.
func WithTokenGenerator(g TokenGenerator) Option {
	return func(p *Processor) {
		p.tokens = g
	}
}

// New creates a Processor over the given store and policy.
func New(st Store, pol policy.Policy, opts ...Option) *Processor {
	p := &Processor{
		store:  st,
		policy: pol,
		locks:  newAccountLocks(),
		tokens: UUIDv7Generator{},
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Policy returns the governance rules the processor enforces.
func (p *Processor) Policy() policy.Policy { return p.policy }

// Submission is a client-signed transaction candidate. The signature
// covers the canonical encoding of (sender, receiver, amount, kind,
// nonce, timestamp); Message rides along unsigned.
type Submission struct {
	Sender    string
	Receiver  string
	Amount    int64
	Kind      ledger.Kind
	Message   string
	Nonce     int64
	Timestamp int64
	Signature string // base64 Ed25519
}

// Submit runs the full acceptance state machine for one submission.
//
// Validation order (short-circuit on first failure):
//  1. sender and receiver exist
//  2. policy: kind-specific endpoint rules, then amount cap
//  3. amount is a positive integer
//  4. sender can cover the amount (transfer/burn)
//  5. nonce equals the sender's next expected nonce
//  6. signature verifies against the sender's registered key
//
// On success the accepted transaction is returned as stored. On
// rejection nothing is written and the error carries the specific code.
// A STORAGE_FAILURE leaves the outcome unknown: the caller must re-query
// before resubmitting.
func (p *Processor) Submit(ctx context.Context, sub Submission) (ledger.Transaction, error) {
	token := p.tokens.Generate()
	log := slog.With(
		"token", token,
		"sender", sub.Sender,
		"receiver", sub.Receiver,
		"kind", string(sub.Kind),
		"amount", sub.Amount,
		"nonce", sub.Nonce,
	)
	log.Debug("submission received")

	t, err := p.validate(ctx, sub)
	if err != nil {
		log.Warn("submission rejected", "code", string(ledger.CodeOf(err)), "error", err)
		return ledger.Transaction{}, err
	}

	unlock := p.locks.lockPair(sub.Sender, sub.Receiver)
	defer unlock()

	if err := p.store.AcceptTransaction(ctx, t); err != nil {
		log.Warn("submission rejected at accept", "code", string(ledger.CodeOf(err)), "error", err)
		return ledger.Transaction{}, err
	}

	accepted, err := p.store.GetTransaction(ctx, t.ID)
	if err != nil {
		// Committed but unreadable; report the commit, not a phantom failure.
		log.Error("accepted transaction read-back failed", "tx", t.ID, "error", err)
		accepted = t
	}

	log.Info("transaction accepted", "tx", t.ID)
	return accepted, nil
}

// validate runs the pre-lock checks and builds the content-addressed
// transaction. It never writes.
func (p *Processor) validate(ctx context.Context, sub Submission) (ledger.Transaction, error) {
	if !sub.Kind.Valid() {
		return ledger.Transaction{}, ledger.ErrPolicyViolation(sub.Sender, fmt.Sprintf("unknown transaction kind %q", sub.Kind))
	}

	// 1. Both endpoints must be registered, privileged ones included.
	sender, err := p.store.GetAccount(ctx, sub.Sender)
	if err != nil {
		return ledger.Transaction{}, err
	}
	if _, err := p.store.GetAccount(ctx, sub.Receiver); err != nil {
		return ledger.Transaction{}, err
	}

	// 2. Injected governance rules.
	if err := p.checkPolicy(sub); err != nil {
		return ledger.Transaction{}, err
	}

	// 3. Amount.
	if sub.Amount <= 0 {
		return ledger.Transaction{}, ledger.ErrInvalidAmount(sub.Amount)
	}
	if p.policy.MaxAmount > 0 && sub.Amount > p.policy.MaxAmount {
		return ledger.Transaction{}, ledger.ErrAmountOverCap(sub.Amount, p.policy.MaxAmount)
	}

	// 4. Funds, against the live cache. Re-checked by the balance CHECK
	// constraint inside the accept transaction.
	if sub.Kind == ledger.KindTransfer || sub.Kind == ledger.KindBurn {
		have, err := p.store.GetBalance(ctx, sub.Sender)
		if err != nil {
			return ledger.Transaction{}, err
		}
		if have < sub.Amount {
			return ledger.Transaction{}, ledger.ErrInsufficientBalance(sub.Sender, have, sub.Amount)
		}
	}

	// 5. Nonce. Too low is a replay, too high is out-of-order; both are
	// rejected outright, nothing is queued. Re-checked by the
	// compare-and-swap inside the accept transaction.
	if sub.Nonce != sender.Nonce {
		return ledger.Transaction{}, ledger.ErrNonceMismatch(sub.Sender, sub.Nonce, sender.Nonce)
	}

	// 6. Signature over the canonical payload, against the registered key.
	payload := ledger.Payload{
		Sender:    sub.Sender,
		Receiver:  sub.Receiver,
		Amount:    sub.Amount,
		Kind:      sub.Kind,
		Nonce:     sub.Nonce,
		Timestamp: sub.Timestamp,
	}
	canonical, err := payload.Canonical()
	if err != nil {
		return ledger.Transaction{}, ledger.ErrStorage(fmt.Errorf("canonical encoding: %w", err))
	}
	if !ledger.Verify(sender.PublicKey, canonical, sub.Signature) {
		return ledger.Transaction{}, ledger.ErrInvalidSignature(sub.Sender)
	}

	id, err := ledger.TransactionID(payload, sub.Signature)
	if err != nil {
		return ledger.Transaction{}, ledger.ErrStorage(fmt.Errorf("transaction id: %w", err))
	}

	return ledger.Transaction{
		ID:        id,
		Sender:    sub.Sender,
		Receiver:  sub.Receiver,
		Amount:    sub.Amount,
		Kind:      sub.Kind,
		Message:   sub.Message,
		Nonce:     sub.Nonce,
		Signature: sub.Signature,
		Timestamp: sub.Timestamp,
	}, nil
}

// checkPolicy enforces the kind-specific endpoint rules:
//   - mints come only from the authority
//   - burns go only to the sink
//   - the sink is never a credited receiver and never a sender
func (p *Processor) checkPolicy(sub Submission) error {
	switch sub.Kind {
	case ledger.KindMint:
		if sub.Sender != p.policy.Authority {
			return ledger.ErrPolicyViolation(sub.Sender, "only the minting authority may mint")
		}
		if sub.Receiver == p.policy.Sink {
			return ledger.ErrPolicyViolation(sub.Receiver, "minting to the sink is not allowed")
		}
	case ledger.KindBurn:
		if sub.Receiver != p.policy.Sink {
			return ledger.ErrPolicyViolation(sub.Receiver, "burns must be addressed to the sink")
		}
		if sub.Sender == p.policy.Sink {
			return ledger.ErrPolicyViolation(sub.Sender, "the sink cannot burn")
		}
	case ledger.KindTransfer:
		if sub.Receiver == p.policy.Sink {
			return ledger.ErrPolicyViolation(sub.Receiver, "transfers to the sink are not allowed, use a burn")
		}
		if sub.Sender == p.policy.Sink {
			return ledger.ErrPolicyViolation(sub.Sender, "the sink cannot send")
		}
	}
	return nil
}
