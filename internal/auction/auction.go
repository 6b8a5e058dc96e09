// Package auction runs in-memory timed auctions whose settlement goes
// through the transaction processor.
//
// Auctions themselves are ephemeral - only the settlement touches the
// ledger, as an ordinary signed burn from the winner. There is no
// unsigned back-door row and no direct balance mutation: if the winner
// cannot cover the bid at settlement time, the settlement is rejected
// like any other transaction.
package auction

import (
	"errors"
	"fmt"
	"sort"
	"time"
)

// snipeWindow is how close to the end a bid must land to trigger an
// extension.
const snipeWindow = 30 * time.Second

var (
	// ErrAlreadyRunning is returned when starting an auction on a channel
	// that already has one.
	ErrAlreadyRunning = errors.New("auction already running on this channel")

	// ErrNoAuction is returned for operations on a channel with no
	// active auction.
	ErrNoAuction = errors.New("no active auction on this channel")

	// ErrEnded is returned for bids on an expired auction.
	ErrEnded = errors.New("auction has already ended")

	// ErrNoBids is returned when settling an auction nobody bid on.
	ErrNoBids = errors.New("auction received no bids")
)

// Bid is one bidder's current offer. A bidder holds at most one bid per
// auction; rebidding replaces it.
type Bid struct {
	Bidder   string
	Amount   int64
	PlacedAt time.Time
}

// auction is the mutable state behind the manager's lock.
type auction struct {
	channelID string
	creatorID string
	startTime time.Time
	endTime   time.Time
	extension time.Duration
	bids      map[string]Bid
}

// placeBid validates and records a bid at time now.
func (a *auction) placeBid(bidder string, amount int64, now time.Time) error {
	if now.After(a.endTime) {
		return ErrEnded
	}

	highest := a.highestAmount()
	if amount <= highest {
		return fmt.Errorf("bid %d must beat the current highest bid %d", amount, highest)
	}

	// Anti-sniping: a bid changing the standings inside the final window
	// pushes the end out, giving everyone else a chance to respond.
	prev, rebid := a.bids[bidder]
	if (!rebid || prev.Amount != amount) && a.endTime.Sub(now) < snipeWindow {
		a.endTime = now.Add(a.extension)
	}

	a.bids[bidder] = Bid{Bidder: bidder, Amount: amount, PlacedAt: now}
	return nil
}

func (a *auction) highestAmount() int64 {
	var highest int64
	for _, b := range a.bids {
		if b.Amount > highest {
			highest = b.Amount
		}
	}
	return highest
}

// Snapshot is an immutable copy of an auction's state.
type Snapshot struct {
	ChannelID string
	CreatorID string
	StartTime time.Time
	EndTime   time.Time
	Bids      []Bid // sorted by amount descending, bidder id breaking ties
}

func (a *auction) snapshot() Snapshot {
	bids := make([]Bid, 0, len(a.bids))
	for _, b := range a.bids {
		bids = append(bids, b)
	}
	sort.Slice(bids, func(i, j int) bool {
		if bids[i].Amount != bids[j].Amount {
			return bids[i].Amount > bids[j].Amount
		}
		return bids[i].Bidder < bids[j].Bidder
	})
	return Snapshot{
		ChannelID: a.channelID,
		CreatorID: a.creatorID,
		StartTime: a.startTime,
		EndTime:   a.endTime,
		Bids:      bids,
	}
}

// Winner returns the highest bid, or false if nobody bid.
func (s Snapshot) Winner() (Bid, bool) {
	if len(s.Bids) == 0 {
		return Bid{}, false
	}
	return s.Bids[0], true
}

// TimeRemaining reports how long until the auction closes, floored at 0.
func (s Snapshot) TimeRemaining(now time.Time) time.Duration {
	if now.After(s.EndTime) {
		return 0
	}
	return s.EndTime.Sub(now)
}
