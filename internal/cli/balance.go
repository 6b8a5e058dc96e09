package cli

import (
	"fmt"

	"github.com/spf13/cobra"
)

// BalanceResult holds one account's balance.
type BalanceResult struct {
	AccountID string `json:"account_id"`
	Balance   int64  `json:"balance"`
	Nonce     int64  `json:"nonce"`
	Derived   *int64 `json:"derived,omitempty"`
}

func (r BalanceResult) String() string {
	if r.Derived != nil {
		return fmt.Sprintf("%s: %d (derived %d, nonce %d)", r.AccountID, r.Balance, *r.Derived, r.Nonce)
	}
	return fmt.Sprintf("%s: %d (nonce %d)", r.AccountID, r.Balance, r.Nonce)
}

// NewBalanceCommand creates the balance command.
func NewBalanceCommand(rootOpts *RootOptions) *cobra.Command {
	var rebuild bool

	cmd := &cobra.Command{
		Use:   "balance <account-id>",
		Short: "Show an account's balance",
		Long: `Show the cached balance and current nonce for an account.

With --rebuild the balance is also recomputed from the transaction log,
bypassing the cache; the two must agree on a healthy ledger.`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runBalance(rootOpts, args[0], rebuild, cmd)
		},
	}

	cmd.Flags().BoolVar(&rebuild, "rebuild", false, "recompute the balance from the log as well")

	return cmd
}

func runBalance(opts *RootOptions, accountID string, rebuild bool, cmd *cobra.Command) error {
	formatter := newFormatter(opts, cmd.OutOrStdout(), cmd.ErrOrStderr())

	env, err := openEnv(opts, false)
	if err != nil {
		_ = formatter.Error("INTERNAL", err.Error(), nil)
		return err
	}
	defer env.Close()

	ctx := cmd.Context()
	acct, err := env.Processor.GetAccount(ctx, accountID)
	if err != nil {
		return outputLedgerError(formatter, err)
	}
	balance, err := env.Processor.QueryBalance(ctx, accountID)
	if err != nil {
		return outputLedgerError(formatter, err)
	}

	result := BalanceResult{
		AccountID: acct.ID,
		Balance:   balance,
		Nonce:     acct.Nonce,
	}

	if rebuild {
		derived, err := env.Processor.RebuildBalance(ctx, accountID)
		if err != nil {
			return outputLedgerError(formatter, err)
		}
		result.Derived = &derived
		if derived != balance {
			_ = formatter.Error("DIVERGED",
				fmt.Sprintf("cached balance %d does not match log-derived %d", balance, derived), result)
			return NewExitError(ExitRejected, "balance cache diverged, run audit --repair")
		}
	}

	return formatter.Success(result)
}
