package ledger

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
)

// DomainTransaction is the domain prefix for transaction ids.
// The version suffix enables future algorithm migration without ambiguity
// between old and new id formats.
const DomainTransaction = "slumbank/tx/v1"

// hashWithDomain computes SHA-256 over domain-separated parts.
// Format: SHA256(domain + 0x00 + part1 + 0x00 + part2 + ...)
// The null byte separator prevents boundary ambiguity between parts.
func hashWithDomain(domain string, parts ...[]byte) string {
	h := sha256.New()
	h.Write([]byte(domain))
	for _, part := range parts {
		h.Write([]byte{0x00})
		h.Write(part)
	}
	return hex.EncodeToString(h.Sum(nil))
}

// TransactionID computes the content-addressed id for a signed payload.
//
// The id covers both the canonical payload bytes and the signature, so an
// identical signed payload submitted twice maps to the same id and the
// second append fails with Conflict. Ids are stable across restarts and
// never reused.
func TransactionID(p Payload, signature string) (string, error) {
	canonical, err := p.Canonical()
	if err != nil {
		return "", fmt.Errorf("transaction id: %w", err)
	}
	return hashWithDomain(DomainTransaction, canonical, []byte(signature)), nil
}

// MustTransactionID is like TransactionID but panics on error.
// Use only in tests or when the payload is known to be valid.
func MustTransactionID(p Payload, signature string) string {
	id, err := TransactionID(p, signature)
	if err != nil {
		panic(err)
	}
	return id
}
