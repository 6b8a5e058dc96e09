package cli

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"
)

// BaltopEntry is one row of the leaderboard.
type BaltopEntry struct {
	Rank      int    `json:"rank"`
	AccountID string `json:"account_id"`
	Balance   int64  `json:"balance"`
}

// BaltopResult holds the balance leaderboard.
type BaltopResult struct {
	Entries []BaltopEntry `json:"entries"`
}

func (r BaltopResult) String() string {
	if len(r.Entries) == 0 {
		return "no accounts"
	}
	var b strings.Builder
	for _, e := range r.Entries {
		fmt.Fprintf(&b, "%3d. %-24s %d\n", e.Rank, e.AccountID, e.Balance)
	}
	return strings.TrimRight(b.String(), "\n")
}

// NewBaltopCommand creates the baltop command.
func NewBaltopCommand(rootOpts *RootOptions) *cobra.Command {
	var limit int

	cmd := &cobra.Command{
		Use:           "baltop",
		Short:         "Show the balance leaderboard",
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runBaltop(rootOpts, limit, cmd)
		},
	}

	cmd.Flags().IntVar(&limit, "limit", 10, "number of accounts to show")

	return cmd
}

func runBaltop(opts *RootOptions, limit int, cmd *cobra.Command) error {
	formatter := newFormatter(opts, cmd.OutOrStdout(), cmd.ErrOrStderr())

	env, err := openEnv(opts, false)
	if err != nil {
		_ = formatter.Error("INTERNAL", err.Error(), nil)
		return err
	}
	defer env.Close()

	balances, err := env.Processor.Leaderboard(cmd.Context(), limit)
	if err != nil {
		return outputLedgerError(formatter, err)
	}

	result := BaltopResult{Entries: make([]BaltopEntry, 0, len(balances))}
	for i, b := range balances {
		result.Entries = append(result.Entries, BaltopEntry{
			Rank:      i + 1,
			AccountID: b.AccountID,
			Balance:   b.Balance,
		})
	}

	return formatter.Success(result)
}
