package cli

import (
	"github.com/spf13/cobra"

	"github.com/slumbank/slumbank/internal/ledger"
)

// NewSendCommand creates the send command.
func NewSendCommand(rootOpts *RootOptions) *cobra.Command {
	var message string

	cmd := &cobra.Command{
		Use:   "send <sender> <receiver> <amount>",
		Short: "Transfer tokens between two accounts",
		Long: `Sign and submit a transfer.

The sender's sealed key and live nonce are used; the submission is
rejected with a stable code if the receiver is unknown, funds are
insufficient, or the nonce raced another submission.`,
		Args:          cobra.ExactArgs(3),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			amount, err := parseAmount(args[2])
			if err != nil {
				return err
			}
			return runSubmit(rootOpts, cmd, args[0], args[1], amount, ledger.KindTransfer, message)
		},
	}

	cmd.Flags().StringVarP(&message, "message", "m", "", "free-form note recorded with the transaction (not signed)")

	return cmd
}
