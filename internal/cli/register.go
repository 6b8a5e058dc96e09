package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/slumbank/slumbank/internal/keyring"
)

// RegisterResult holds the outcome of an account registration.
type RegisterResult struct {
	AccountID string `json:"account_id"`
	Username  string `json:"username"`
	PublicKey string `json:"public_key"`
	Keyring   string `json:"keyring"`
}

func (r RegisterResult) String() string {
	return fmt.Sprintf("registered %s (key %s, sealed in %s)", r.AccountID, r.PublicKey, r.Keyring)
}

// NewRegisterCommand creates the register command.
func NewRegisterCommand(rootOpts *RootOptions) *cobra.Command {
	var username string

	cmd := &cobra.Command{
		Use:   "register <account-id>",
		Short: "Register a new account with a fresh Ed25519 keypair",
		Long: `Register a new account.

Generates an Ed25519 keypair, binds the public key to the account in
the ledger, and seals the private key in the keyring. The keyring
passphrase is read from ` + PassphraseEnv + `.`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runRegister(rootOpts, args[0], username, cmd)
		},
	}

	cmd.Flags().StringVarP(&username, "username", "u", "", "display name (defaults to the account id)")

	return cmd
}

func runRegister(opts *RootOptions, accountID, username string, cmd *cobra.Command) error {
	formatter := newFormatter(opts, cmd.OutOrStdout(), cmd.ErrOrStderr())

	env, err := openEnv(opts, true)
	if err != nil {
		_ = formatter.Error("INTERNAL", err.Error(), nil)
		return err
	}
	defer env.Close()

	if username == "" {
		username = accountID
	}

	pubB64, priv, err := keyring.GenerateKeypair()
	if err != nil {
		_ = formatter.Error("INTERNAL", err.Error(), nil)
		return WrapExitError(ExitCommandError, "failed to generate keypair", err)
	}

	acct, err := env.Processor.RegisterAccount(cmd.Context(), accountID, username, pubB64)
	if err != nil {
		return outputLedgerError(formatter, err)
	}

	// Seal after the account exists; an unsealed key for a registered
	// account would strand it.
	if err := env.Keyring.Seal(accountID, priv); err != nil {
		_ = formatter.Error("INTERNAL", err.Error(), nil)
		return WrapExitError(ExitCommandError, "account registered but key not sealed", err)
	}

	return formatter.Success(RegisterResult{
		AccountID: acct.ID,
		Username:  acct.Username,
		PublicKey: acct.PublicKey,
		Keyring:   env.Keyring.Path(),
	})
}
