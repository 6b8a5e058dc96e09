package ledger

import "time"

// Kind classifies a transaction.
//
// Transfers move coins between two registered users. Mints create coins
// (issued by the policy authority, which is a real registered account with
// its own key and nonce). Burns destroy coins (sent to the policy sink,
// whose balance is never credited).
type Kind string

const (
	KindTransfer Kind = "transfer"
	KindMint     Kind = "mint"
	KindBurn     Kind = "burn"
)

// Valid reports whether k is a known transaction kind.
func (k Kind) Valid() bool {
	switch k {
	case KindTransfer, KindMint, KindBurn:
		return true
	}
	return false
}

// Account is a registered ledger participant.
//
// Nonce is the next nonce this account must use as a sender. It increases
// by exactly one per accepted transaction signed by this account and never
// decreases.
type Account struct {
	ID        string
	Username  string
	PublicKey string // base64 Ed25519 public key
	Nonce     int64
	CreatedAt time.Time
	UpdatedAt time.Time
}

// Transaction is one immutable entry in the append-only ledger.
//
// Once accepted, a transaction is never mutated or removed. The full set of
// transactions is the only authoritative history; the balances table is a
// cache derived from it.
type Transaction struct {
	ID        string // content-addressed, see TransactionID
	Sender    string
	Receiver  string
	Amount    int64 // smallest denomination, always positive
	Kind      Kind
	Message   string
	Nonce     int64
	Signature string // base64 Ed25519 signature over the canonical payload
	Timestamp int64  // unix seconds, claimed by the signer
	CreatedAt time.Time
}

// Payload returns the signable fields of the transaction.
func (t *Transaction) Payload() Payload {
	return Payload{
		Sender:    t.Sender,
		Receiver:  t.Receiver,
		Amount:    t.Amount,
		Kind:      t.Kind,
		Nonce:     t.Nonce,
		Timestamp: t.Timestamp,
	}
}

// Payload holds the fields covered by a transaction signature.
//
// The signature is computed over Canonical() of this struct, never over the
// Transaction itself: Message, ID and CreatedAt are deliberately outside
// the signed surface.
type Payload struct {
	Sender    string
	Receiver  string
	Amount    int64
	Kind      Kind
	Nonce     int64
	Timestamp int64
}

// Balance is the cached balance for one account.
//
// It is a materialized view over the transaction log: for every account,
// Balance equals credits (receiver of transfer/mint) minus debits (sender
// of transfer/burn). The store can recompute it from the log at any time.
type Balance struct {
	AccountID string
	Balance   int64
	UpdatedAt time.Time
}

// Order selects history ordering by signed timestamp.
type Order string

const (
	OrderAsc  Order = "asc"
	OrderDesc Order = "desc"
)
