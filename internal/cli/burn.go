package cli

import (
	"github.com/spf13/cobra"

	"github.com/slumbank/slumbank/internal/ledger"
)

// NewBurnCommand creates the burn command.
func NewBurnCommand(rootOpts *RootOptions) *cobra.Command {
	var message string

	cmd := &cobra.Command{
		Use:   "burn <sender> <amount>",
		Short: "Burn tokens out of circulation",
		Long: `Sign and submit a burn.

The tokens leave the sender's balance and are recorded against the
policy sink, which is never credited. The log keeps the full record.`,
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
			return runSubmit(rootOpts, cmd, args[0], pol.Sink, amount, ledger.KindBurn, message)
		},
	}

	cmd.Flags().StringVarP(&message, "message", "m", "", "free-form note recorded with the transaction (not signed)")

	return cmd
}
