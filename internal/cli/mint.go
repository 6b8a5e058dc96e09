package cli

import (
	"github.com/spf13/cobra"

	"github.com/slumbank/slumbank/internal/ledger"
)

// NewMintCommand creates the mint command.
func NewMintCommand(rootOpts *RootOptions) *cobra.Command {
	var message string

	cmd := &cobra.Command{
		Use:   "mint <receiver> <amount>",
		Short: "Mint new tokens to an account",
		Long: `Mint tokens into existence.

The mint is signed by the policy authority account, whose key must be
sealed in the keyring. Any other sender is a policy violation.`,
		Args:          cobra.ExactArgs(2),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			amount, err := parseAmount(args[1])
			if err != nil {
				return err
			}
			pol, err := loadPolicy(rootOpts)
			if err != nil {
				return err
			}
			return runSubmit(rootOpts, cmd, pol.Authority, args[0], amount, ledger.KindMint, message)
		},
	}

	cmd.Flags().StringVarP(&message, "message", "m", "", "free-form note recorded with the transaction (not signed)")

	return cmd
}
