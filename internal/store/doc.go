// Package store provides durable SQLite storage for the slumbank ledger.
//
// It owns three tables: accounts (registry), transactions (append-only
// log, the single source of truth) and balances (derived cache). All
// writes that touch more than one row go through a single SQLite
// transaction so a crash can never leave the log and the caches
// disagreeing about an accepted transaction.
//
// The store validates nothing about signatures or policy - that is the
// processor's job. What it does enforce, at the schema level, are the
// structural invariants: positive amounts, no overdrafts, one accepted
// transaction per (sender, nonce).
package store
