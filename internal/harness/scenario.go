package harness

import (
	"bytes"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/slumbank/slumbank/internal/ledger"
)

// Scenario defines a conformance scenario: a cast of accounts, a list of
// submissions, and assertions over the final ledger state.
//
// The harness owns all keys and nonces: every step is signed with the
// sender's real key and the sender's live nonce unless the step overrides
// them to provoke a rejection.
type Scenario struct {
	// Name uniquely identifies this scenario (and its golden file).
	Name string `yaml:"name"`

	// Description explains what this scenario validates.
	Description string `yaml:"description"`

	// Accounts are registered before the steps run, in order. The
	// harness generates a keypair per account.
	Accounts []AccountDef `yaml:"accounts"`

	// Steps are executed in order through the transaction processor.
	Steps []Step `yaml:"steps"`

	// Assertions validate the final state after all steps.
	Assertions []Assertion `yaml:"assertions"`
}

// AccountDef declares one scenario participant.
type AccountDef struct {
	ID       string `yaml:"id"`
	Username string `yaml:"username,omitempty"`
}

// Step is one submission. Sender, receiver, amount and kind are
// mandatory; the remaining fields override the harness's well-formed
// defaults to provoke specific rejections.
type Step struct {
	Sender   string `yaml:"sender"`
	Receiver string `yaml:"receiver"`
	Amount   int64  `yaml:"amount"`
	Kind     string `yaml:"kind"`
	Message  string `yaml:"message,omitempty"`

	// Nonce overrides the sender's live nonce (replay / out-of-order).
	Nonce *int64 `yaml:"nonce,omitempty"`

	// SignAs signs with another account's key (forgery).
	SignAs string `yaml:"sign_as,omitempty"`

	// Tamper signs a different amount than submitted (mutation in flight).
	Tamper bool `yaml:"tamper,omitempty"`

	// Expect is "accepted" or "rejected".
	Expect string `yaml:"expect"`

	// Code is the expected rejection code when Expect is "rejected".
	Code string `yaml:"code,omitempty"`
}

// Assertion validates final ledger state.
type Assertion struct {
	// Type: "balance", "nonce", "log_count" or "rebuild_matches".
	Type string `yaml:"type"`

	// Account for balance/nonce assertions.
	Account string `yaml:"account,omitempty"`

	// Value is the expected balance, nonce, or log count.
	Value int64 `yaml:"value,omitempty"`
}

// Assertion type constants.
const (
	AssertBalance        = "balance"
	AssertNonce          = "nonce"
	AssertLogCount       = "log_count"
	AssertRebuildMatches = "rebuild_matches"
)

// Step outcome constants.
const (
	ExpectAccepted = "accepted"
	ExpectRejected = "rejected"
)

// LoadScenario reads and parses a scenario YAML file. Unknown fields are
// rejected so a typo fails loudly instead of silently passing.
func LoadScenario(path string) (*Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read scenario file: %w", err)
	}

	var scenario Scenario
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true)
	if err := decoder.Decode(&scenario); err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}

	if err := validateScenario(&scenario); err != nil {
		return nil, fmt.Errorf("invalid scenario: %w", err)
	}

	return &scenario, nil
}

// validateScenario checks that required fields are present and coherent.
func validateScenario(s *Scenario) error {
	if s.Name == "" {
		return fmt.Errorf("name is required")
	}
	if s.Description == "" {
		return fmt.Errorf("description is required")
	}
	if len(s.Accounts) == 0 {
		return fmt.Errorf("accounts list is required and must be non-empty")
	}
	if len(s.Steps) == 0 {
		return fmt.Errorf("steps list is required and must be non-empty")
	}
	if len(s.Assertions) == 0 {
		return fmt.Errorf("assertions list is required and must be non-empty")
	}

	seen := make(map[string]bool)
	for i, acct := range s.Accounts {
		if acct.ID == "" {
			return fmt.Errorf("accounts[%d]: id is required", i)
		}
		if seen[acct.ID] {
			return fmt.Errorf("accounts[%d]: duplicate id %q", i, acct.ID)
		}
		seen[acct.ID] = true
	}

	for i, step := range s.Steps {
		if step.Sender == "" || step.Receiver == "" {
			return fmt.Errorf("steps[%d]: sender and receiver are required", i)
		}
		if !ledger.Kind(step.Kind).Valid() {
			return fmt.Errorf("steps[%d]: unknown kind %q", i, step.Kind)
		}
		switch step.Expect {
		case ExpectAccepted:
			if step.Code != "" {
				return fmt.Errorf("steps[%d]: code is only valid with expect: rejected", i)
			}
		case ExpectRejected:
			if step.Code == "" {
				return fmt.Errorf("steps[%d]: code is required with expect: rejected", i)
			}
		default:
			return fmt.Errorf("steps[%d]: expect must be %q or %q", i, ExpectAccepted, ExpectRejected)
		}
		if step.SignAs != "" && !seen[step.SignAs] {
			return fmt.Errorf("steps[%d]: sign_as references unknown account %q", i, step.SignAs)
		}
	}

	for i, a := range s.Assertions {
		switch a.Type {
		case AssertBalance, AssertNonce:
			if a.Account == "" {
				return fmt.Errorf("assertions[%d]: account is required for %s", i, a.Type)
			}
		case AssertLogCount, AssertRebuildMatches:
			// No extra fields required.
		default:
			return fmt.Errorf("assertions[%d]: unknown assertion type %q", i, a.Type)
		}
	}

	return nil
}
