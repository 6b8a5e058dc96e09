package auction

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/slumbank/slumbank/internal/ledger"
	"github.com/slumbank/slumbank/internal/policy"
	"github.com/slumbank/slumbank/internal/processor"
)

// Submitter is the slice of the processor the manager needs to settle.
type Submitter interface {
	GetAccount(ctx context.Context, id string) (ledger.Account, error)
	Submit(ctx context.Context, sub processor.Submission) (ledger.Transaction, error)
	Policy() policy.Policy
}

// SignFunc signs a payload on behalf of an account. The CLI wires this
// to the keyring; tests sign with in-memory keys.
type SignFunc func(accountID string, p ledger.Payload) (string, error)

// Manager tracks at most one active auction per channel.
//
// Thread-safety: all methods are safe for concurrent use.
type Manager struct {
	mu       sync.Mutex
	auctions map[string]*auction
	now      func() time.Time
}

// Option configures a Manager.
type Option func(*Manager)

// WithClock replaces the manager's time source for deterministic tests.
func WithClock(now func() time.Time) Option {
	return func(m *Manager) {
		m.now = now
	}
}

// NewManager creates an empty auction manager.
func NewManager(opts ...Option) *Manager {
	m := &Manager{
		auctions: make(map[string]*auction),
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Start opens an auction on a channel. baseDuration is the initial
// window; extension is how far a sniping bid pushes the end out.
func (m *Manager) Start(channelID, creatorID string, baseDuration, extension time.Duration) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, exists := m.auctions[channelID]; exists {
		return ErrAlreadyRunning
	}

	now := m.now()
	m.auctions[channelID] = &auction{
		channelID: channelID,
		creatorID: creatorID,
		startTime: now,
		endTime:   now.Add(baseDuration),
		extension: extension,
		bids:      make(map[string]Bid),
	}

	slog.Info("auction started", "channel", channelID, "creator", creatorID, "duration", baseDuration)
	return nil
}

// PlaceBid records a bid on the channel's auction. Bids must beat the
// current highest by at least 1.
func (m *Manager) PlaceBid(channelID, bidder string, amount int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	a, exists := m.auctions[channelID]
	if !exists {
		return ErrNoAuction
	}
	if err := a.placeBid(bidder, amount, m.now()); err != nil {
		return err
	}

	slog.Debug("bid placed", "channel", channelID, "bidder", bidder, "amount", amount)
	return nil
}

// Status returns a snapshot of the channel's auction.
func (m *Manager) Status(channelID string) (Snapshot, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	a, exists := m.auctions[channelID]
	if !exists {
		return Snapshot{}, ErrNoAuction
	}
	return a.snapshot(), nil
}

// End closes the channel's auction and returns its final state. The
// caller decides whether to settle; End itself touches no balances.
func (m *Manager) End(channelID string) (Snapshot, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	a, exists := m.auctions[channelID]
	if !exists {
		return Snapshot{}, ErrNoAuction
	}
	delete(m.auctions, channelID)

	slog.Info("auction ended", "channel", channelID, "bids", len(a.bids))
	return a.snapshot(), nil
}

// Settle charges the winner through the normal transaction path: a burn
// of the winning amount, signed with the winner's key. The ledger's own
// validation applies - an underfunded winner surfaces as
// INSUFFICIENT_BALANCE and nothing is written.
func (m *Manager) Settle(ctx context.Context, snap Snapshot, sub Submitter, sign SignFunc) (ledger.Transaction, error) {
	winner, ok := snap.Winner()
	if !ok {
		return ledger.Transaction{}, ErrNoBids
	}

	acct, err := sub.GetAccount(ctx, winner.Bidder)
	if err != nil {
		return ledger.Transaction{}, err
	}

	payload := ledger.Payload{
		Sender:    winner.Bidder,
		Receiver:  sub.Policy().Sink,
		Amount:    winner.Amount,
		Kind:      ledger.KindBurn,
		Nonce:     acct.Nonce,
		Timestamp: m.now().Unix(),
	}
	sig, err := sign(winner.Bidder, payload)
	if err != nil {
		return ledger.Transaction{}, err
	}

	tx, err := sub.Submit(ctx, processor.Submission{
		Sender:    payload.Sender,
		Receiver:  payload.Receiver,
		Amount:    payload.Amount,
		Kind:      payload.Kind,
		Message:   "auction win " + snap.ChannelID,
		Nonce:     payload.Nonce,
		Timestamp: payload.Timestamp,
		Signature: sig,
	})
	if err != nil {
		return ledger.Transaction{}, err
	}

	slog.Info("auction settled", "channel", snap.ChannelID, "winner", winner.Bidder, "amount", winner.Amount, "tx", tx.ID)
	return tx, nil
}
