// Package harness executes YAML conformance scenarios against a real
// processor and store. Unlike a mock-driven harness, every step flows
// through the full validation and atomic-accept path; the scenario only
// controls inputs (keys, nonces, signatures) and asserts on outcomes.
package harness

import (
	"context"
	"crypto/ed25519"
	"fmt"
	"path/filepath"
	"time"

	"github.com/slumbank/slumbank/internal/keyring"
	"github.com/slumbank/slumbank/internal/ledger"
	"github.com/slumbank/slumbank/internal/policy"
	"github.com/slumbank/slumbank/internal/processor"
	"github.com/slumbank/slumbank/internal/store"
	"github.com/slumbank/slumbank/internal/testutil"
)

// TraceEvent records the outcome of one scenario step. Signatures and
// transaction ids are deliberately absent: keys are generated per run,
// so only key-independent fields can be golden-compared.
type TraceEvent struct {
	Step     int    `json:"step"`
	Kind     string `json:"kind"`
	Sender   string `json:"sender"`
	Receiver string `json:"receiver"`
	Amount   int64  `json:"amount"`
	Nonce    int64  `json:"nonce"`
	Outcome  string `json:"outcome"`
	Code     string `json:"code,omitempty"`
}

// Result is the outcome of running a scenario.
type Result struct {
	Passed   bool
	Failures []string
	Trace    []TraceEvent
}

// fail records an assertion failure without stopping the run.
func (r *Result) fail(format string, args ...any) {
	r.Passed = false
	r.Failures = append(r.Failures, fmt.Sprintf(format, args...))
}

// Run executes a scenario in a fresh temp-dir database. dir is the
// working directory for the database file; tests pass t.TempDir().
func Run(scenario *Scenario, dir string) (*Result, error) {
	st, err := store.Open(filepath.Join(dir, scenario.Name+".db"))
	if err != nil {
		return nil, fmt.Errorf("failed to create scenario store: %w", err)
	}
	defer st.Close()

	clock := testutil.NewDeterministicClock(time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC), time.Second)
	st.SetClock(clock.Now)

	proc := processor.New(st, policy.Default(),
		processor.WithTokenGenerator(stepTokens(len(scenario.Steps)+len(scenario.Accounts))))

	ctx := context.Background()
	result := &Result{Passed: true}

	// Register the cast, one fresh keypair each.
	keys := make(map[string]ed25519.PrivateKey, len(scenario.Accounts))
	for _, def := range scenario.Accounts {
		pubB64, priv, err := keyring.GenerateKeypair()
		if err != nil {
			return nil, fmt.Errorf("generate key for %s: %w", def.ID, err)
		}
		username := def.Username
		if username == "" {
			username = def.ID
		}
		if _, err := proc.RegisterAccount(ctx, def.ID, username, pubB64); err != nil {
			return nil, fmt.Errorf("register %s: %w", def.ID, err)
		}
		keys[def.ID] = priv
	}

	// Execute steps.
	for i, step := range scenario.Steps {
		event, err := runStep(ctx, proc, keys, clock, i+1, step)
		if err != nil {
			return nil, err
		}
		result.Trace = append(result.Trace, event)

		switch step.Expect {
		case ExpectAccepted:
			if event.Outcome != ExpectAccepted {
				result.fail("step %d: expected accepted, got %s (%s)", i+1, event.Outcome, event.Code)
			}
		case ExpectRejected:
			if event.Outcome != ExpectRejected {
				result.fail("step %d: expected rejection %s, but accepted", i+1, step.Code)
			} else if event.Code != step.Code {
				result.fail("step %d: expected code %s, got %s", i+1, step.Code, event.Code)
			}
		}
	}

	// Final-state assertions.
	for i, a := range scenario.Assertions {
		if err := checkAssertion(ctx, proc, st, result, i, a); err != nil {
			return nil, err
		}
	}

	return result, nil
}

// runStep signs and submits one step, returning its trace event.
func runStep(ctx context.Context, proc *processor.Processor, keys map[string]ed25519.PrivateKey, clock *testutil.DeterministicClock, num int, step Step) (TraceEvent, error) {
	nonce := int64(0)
	if step.Nonce != nil {
		nonce = *step.Nonce
	} else if acct, err := proc.GetAccount(ctx, step.Sender); err == nil {
		nonce = acct.Nonce
	}

	timestamp := clock.Now().Unix()
	payload := ledger.Payload{
		Sender:    step.Sender,
		Receiver:  step.Receiver,
		Amount:    step.Amount,
		Kind:      ledger.Kind(step.Kind),
		Nonce:     nonce,
		Timestamp: timestamp,
	}

	signer := step.Sender
	if step.SignAs != "" {
		signer = step.SignAs
	}

	signature := "unsigned"
	if priv, ok := keys[signer]; ok {
		toSign := payload
		if step.Tamper {
			// Signature covers a different amount than submitted.
			toSign.Amount++
		}
		sig, err := ledger.SignPayload(priv, toSign)
		if err != nil {
			return TraceEvent{}, fmt.Errorf("step %d: sign: %w", num, err)
		}
		signature = sig
	}

	event := TraceEvent{
		Step:     num,
		Kind:     step.Kind,
		Sender:   step.Sender,
		Receiver: step.Receiver,
		Amount:   step.Amount,
		Nonce:    nonce,
	}

	_, err := proc.Submit(ctx, processor.Submission{
		Sender:    step.Sender,
		Receiver:  step.Receiver,
		Amount:    step.Amount,
		Kind:      ledger.Kind(step.Kind),
		Message:   step.Message,
		Nonce:     nonce,
		Timestamp: timestamp,
		Signature: signature,
	})
	if err != nil {
		code := ledger.CodeOf(err)
		if code == "" {
			return TraceEvent{}, fmt.Errorf("step %d: non-ledger error: %w", num, err)
		}
		event.Outcome = ExpectRejected
		event.Code = string(code)
		return event, nil
	}

	event.Outcome = ExpectAccepted
	return event, nil
}

// checkAssertion evaluates one final-state assertion into result.
func checkAssertion(ctx context.Context, proc *processor.Processor, st *store.Store, result *Result, i int, a Assertion) error {
	switch a.Type {
	case AssertBalance:
		balance, err := proc.QueryBalance(ctx, a.Account)
		if err != nil {
			return fmt.Errorf("assertions[%d]: balance of %s: %w", i, a.Account, err)
		}
		if balance != a.Value {
			result.fail("assertions[%d]: %s balance = %d, want %d", i, a.Account, balance, a.Value)
		}

	case AssertNonce:
		acct, err := proc.GetAccount(ctx, a.Account)
		if err != nil {
			return fmt.Errorf("assertions[%d]: account %s: %w", i, a.Account, err)
		}
		if acct.Nonce != a.Value {
			result.fail("assertions[%d]: %s nonce = %d, want %d", i, a.Account, acct.Nonce, a.Value)
		}

	case AssertLogCount:
		count, err := st.CountTransactions(ctx)
		if err != nil {
			return fmt.Errorf("assertions[%d]: log count: %w", i, err)
		}
		if count != a.Value {
			result.fail("assertions[%d]: log count = %d, want %d", i, count, a.Value)
		}

	case AssertRebuildMatches:
		divergent, err := proc.Audit(ctx)
		if err != nil {
			return fmt.Errorf("assertions[%d]: audit: %w", i, err)
		}
		for _, d := range divergent {
			result.fail("assertions[%d]: %s cached %d != derived %d", i, d.AccountID, d.Cached, d.Derived)
		}
	}
	return nil
}

// stepTokens builds a fixed token generator sized for the scenario.
func stepTokens(n int) *processor.FixedGenerator {
	tokens := make([]string, n)
	for i := range tokens {
		tokens[i] = fmt.Sprintf("step-%03d", i+1)
	}
	return processor.NewFixedGenerator(tokens...)
}
