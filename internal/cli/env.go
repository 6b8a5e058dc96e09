package cli

import (
	"fmt"
	"io"
	"os"

	"github.com/slumbank/slumbank/internal/keyring"
	"github.com/slumbank/slumbank/internal/policy"
	"github.com/slumbank/slumbank/internal/processor"
	"github.com/slumbank/slumbank/internal/store"
)

// PassphraseEnv names the environment variable holding the keyring
// passphrase. Commands that sign refuse to run without it.
const PassphraseEnv = "SLUMBANK_PASSPHRASE"

// Env bundles the opened store, policy, keyring and processor for one
// command invocation.
type Env struct {
	Store     *store.Store
	Policy    policy.Policy
	Keyring   *keyring.Keyring
	Processor *processor.Processor
}

// Close releases the environment's resources.
func (e *Env) Close() error {
	return e.Store.Close()
}

// loadPolicy resolves the effective policy: the built-in default unless
// a CUE file is given.
func loadPolicy(opts *RootOptions) (policy.Policy, error) {
	if opts.PolicyPath == "" {
		return policy.Default(), nil
	}
	pol, err := policy.Load(opts.PolicyPath)
	if err != nil {
		return policy.Policy{}, WrapExitError(ExitCommandError, "failed to load policy", err)
	}
	return pol, nil
}

// openEnv opens the database and policy. withKeyring additionally opens
// the keyring, which requires the passphrase from the environment.
func openEnv(opts *RootOptions, withKeyring bool) (*Env, error) {
	pol, err := loadPolicy(opts)
	if err != nil {
		return nil, err
	}

	st, err := store.Open(opts.DBPath)
	if err != nil {
		return nil, WrapExitError(ExitCommandError, "failed to open database", err)
	}

	env := &Env{
		Store:     st,
		Policy:    pol,
		Processor: processor.New(st, pol),
	}

	if withKeyring {
		passphrase := os.Getenv(PassphraseEnv)
		if passphrase == "" {
			st.Close()
			return nil, NewExitError(ExitCommandError, fmt.Sprintf("%s is not set", PassphraseEnv))
		}
		path := opts.KeyringPath
		if path == "" {
			path = keyring.DefaultPath(opts.DBPath)
		}
		kr, err := keyring.Open(path, passphrase)
		if err != nil {
			st.Close()
			return nil, WrapExitError(ExitCommandError, "failed to open keyring", err)
		}
		env.Keyring = kr
	}

	return env, nil
}

// newFormatter builds the output formatter for a command. Diagnostic
// output goes to stderr so JSON on stdout stays parseable.
func newFormatter(opts *RootOptions, stdout, stderr io.Writer) *OutputFormatter {
	return &OutputFormatter{
		Format:    opts.Format,
		Writer:    stdout,
		ErrWriter: stderr,
		Verbose:   opts.Verbose,
	}
}
