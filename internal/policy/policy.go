// Package policy defines the governance rules the transaction processor
// enforces on top of ledger validation: who may mint, where burns go,
// and an optional per-transaction amount cap.
//
// Policies are written in CUE and validated against an embedded schema,
// so a malformed policy file fails at startup with a positioned error
// instead of silently minting for the wrong account.
package policy

import (
	"fmt"
	"os"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
	cueerrors "cuelang.org/go/cue/errors"
)

// schemaCUE is the policy file contract. authority and sink are account
// ids; maxAmount caps any single transaction when present.
const schemaCUE = `
#Policy: {
	authority: string & !=""
	sink:      string & !=""
	maxAmount?: int & >0
}
`

// Policy is the decoded governance configuration.
type Policy struct {
	// Authority is the only account allowed to send mints.
	Authority string

	// Sink is the only account allowed to receive burns. Its balance is
	// never credited; it exists so burns are ordinary signed transactions.
	Sink string

	// MaxAmount caps the amount of any single transaction.
	// Zero means uncapped.
	MaxAmount int64
}

// Default returns the built-in policy used when no file is given.
func Default() Policy {
	return Policy{Authority: "SYSTEM", Sink: "SINK"}
}

// Load reads and validates a CUE policy file.
func Load(path string) (Policy, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Policy{}, fmt.Errorf("policy: read %s: %w", path, err)
	}
	return Parse(data, path)
}

// Parse validates CUE policy source against the schema. filename is used
// for error positions only.
func Parse(data []byte, filename string) (Policy, error) {
	ctx := cuecontext.New()

	schema := ctx.CompileString(schemaCUE).LookupPath(cue.ParsePath("#Policy"))
	if err := schema.Err(); err != nil {
		return Policy{}, fmt.Errorf("policy: internal schema: %w", err)
	}

	value := ctx.CompileBytes(data, cue.Filename(filename))
	if err := value.Err(); err != nil {
		return Policy{}, fmt.Errorf("policy: %s", cueerrors.Details(err, nil))
	}

	unified := schema.Unify(value)
	if err := unified.Validate(cue.Concrete(true)); err != nil {
		return Policy{}, fmt.Errorf("policy: %s", cueerrors.Details(err, nil))
	}

	var p Policy
	var err error
	if p.Authority, err = unified.LookupPath(cue.ParsePath("authority")).String(); err != nil {
		return Policy{}, fmt.Errorf("policy: authority: %w", err)
	}
	if p.Sink, err = unified.LookupPath(cue.ParsePath("sink")).String(); err != nil {
		return Policy{}, fmt.Errorf("policy: sink: %w", err)
	}
	if p.Authority == p.Sink {
		return Policy{}, fmt.Errorf("policy: authority and sink must be distinct accounts, both are %q", p.Authority)
	}

	capVal := unified.LookupPath(cue.ParsePath("maxAmount"))
	if capVal.Exists() {
		if p.MaxAmount, err = capVal.Int64(); err != nil {
			return Policy{}, fmt.Errorf("policy: maxAmount: %w", err)
		}
	}

	return p, nil
}
