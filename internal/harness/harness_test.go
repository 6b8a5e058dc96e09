package harness

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func loadTestScenario(t *testing.T, name string) *Scenario {
	t.Helper()
	scenario, err := LoadScenario(filepath.Join("testdata", "scenarios", name+".yaml"))
	require.NoError(t, err)
	return scenario
}

func TestLoadScenario(t *testing.T) {
	scenario := loadTestScenario(t, "ledger-worked-example")

	assert.Equal(t, "ledger-worked-example", scenario.Name)
	assert.Len(t, scenario.Accounts, 4)
	assert.Len(t, scenario.Steps, 8)
	assert.NotEmpty(t, scenario.Assertions)

	// Step 4 overrides the nonce to provoke a replay rejection.
	require.NotNil(t, scenario.Steps[3].Nonce)
	assert.Equal(t, int64(0), *scenario.Steps[3].Nonce)
	assert.Equal(t, ExpectRejected, scenario.Steps[3].Expect)
	assert.Equal(t, "NONCE_MISMATCH", scenario.Steps[3].Code)
}

func TestLoadScenarioMissingFile(t *testing.T) {
	_, err := LoadScenario(filepath.Join("testdata", "scenarios", "does-not-exist.yaml"))
	assert.Error(t, err)
}

func TestLoadScenarioValidation(t *testing.T) {
	tests := []struct {
		name    string
		yaml    string
		wantErr string
	}{
		{
			name: "unknown field",
			yaml: `
name: bad
description: typo in a step field
accounts:
  - id: A
steps:
  - sender: A
    reciever: A
    amount: 1
    kind: transfer
    expect: accepted
assertions:
  - type: rebuild_matches
`,
			wantErr: "failed to parse YAML",
		},
		{
			name: "rejected without code",
			yaml: `
name: bad
description: rejection with no expected code
accounts:
  - id: A
steps:
  - sender: A
    receiver: A
    amount: 1
    kind: transfer
    expect: rejected
assertions:
  - type: rebuild_matches
`,
			wantErr: "code is required",
		},
		{
			name: "unknown kind",
			yaml: `
name: bad
description: kind outside the closed set
accounts:
  - id: A
steps:
  - sender: A
    receiver: A
    amount: 1
    kind: teleport
    expect: accepted
assertions:
  - type: rebuild_matches
`,
			wantErr: "unknown kind",
		},
		{
			name: "duplicate account",
			yaml: `
name: bad
description: same account registered twice
accounts:
  - id: A
  - id: A
steps:
  - sender: A
    receiver: A
    amount: 1
    kind: transfer
    expect: accepted
assertions:
  - type: rebuild_matches
`,
			wantErr: "duplicate id",
		},
		{
			name: "sign_as unknown account",
			yaml: `
name: bad
description: forgery key from outside the cast
accounts:
  - id: A
steps:
  - sender: A
    receiver: A
    amount: 1
    kind: transfer
    sign_as: ghost
    expect: rejected
    code: INVALID_SIGNATURE
assertions:
  - type: rebuild_matches
`,
			wantErr: "sign_as references unknown account",
		},
		{
			name: "balance assertion without account",
			yaml: `
name: bad
description: balance assertion missing its account
accounts:
  - id: A
steps:
  - sender: A
    receiver: A
    amount: 1
    kind: transfer
    expect: accepted
assertions:
  - type: balance
    value: 1
`,
			wantErr: "account is required",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), "scenario.yaml")
			require.NoError(t, os.WriteFile(path, []byte(tt.yaml), 0o644))

			_, err := LoadScenario(path)
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestRunWorkedExample(t *testing.T) {
	scenario := loadTestScenario(t, "ledger-worked-example")

	result, err := RunWithGolden(t, scenario, t.TempDir())
	require.NoError(t, err)
	assert.True(t, result.Passed, "failures: %v", result.Failures)
	assert.Len(t, result.Trace, len(scenario.Steps))
}

func TestRunRejections(t *testing.T) {
	scenario := loadTestScenario(t, "ledger-rejections")

	result, err := RunWithGolden(t, scenario, t.TempDir())
	require.NoError(t, err)
	assert.True(t, result.Passed, "failures: %v", result.Failures)
}

func TestRunReportsAssertionFailure(t *testing.T) {
	scenario := loadTestScenario(t, "ledger-worked-example")

	// Break one expectation: the run should complete but report it.
	for i := range scenario.Assertions {
		if scenario.Assertions[i].Type == AssertBalance && scenario.Assertions[i].Account == "A" {
			scenario.Assertions[i].Value = 71
		}
	}

	result, err := Run(scenario, t.TempDir())
	require.NoError(t, err)
	assert.False(t, result.Passed)
	require.Len(t, result.Failures, 1)
	assert.Contains(t, result.Failures[0], "balance = 70, want 71")
}
