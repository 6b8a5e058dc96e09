package cli

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/slumbank/slumbank/internal/ledger"
)

// HistoryEntry is one transaction in a history listing.
type HistoryEntry struct {
	TxID      string `json:"tx_id"`
	Kind      string `json:"kind"`
	Sender    string `json:"sender"`
	Receiver  string `json:"receiver"`
	Amount    int64  `json:"amount"`
	Message   string `json:"message,omitempty"`
	Timestamp int64  `json:"timestamp"`
}

// HistoryResult holds a page of an account's history.
type HistoryResult struct {
	AccountID string         `json:"account_id"`
	Entries   []HistoryEntry `json:"entries"`
}

func (r HistoryResult) String() string {
	if len(r.Entries) == 0 {
		return fmt.Sprintf("%s: no transactions", r.AccountID)
	}
	var b strings.Builder
	for _, e := range r.Entries {
		fmt.Fprintf(&b, "%d  %-8s  %s -> %s  %d", e.Timestamp, e.Kind, e.Sender, e.Receiver, e.Amount)
		if e.Message != "" {
			fmt.Fprintf(&b, "  %q", e.Message)
		}
		b.WriteByte('\n')
	}
	return strings.TrimRight(b.String(), "\n")
}

// NewHistoryCommand creates the history command.
func NewHistoryCommand(rootOpts *RootOptions) *cobra.Command {
	var (
		limit  int
		offset int
		order  string
	)

	cmd := &cobra.Command{
		Use:   "history <account-id>",
		Short: "List an account's transactions",
		Long: `List transactions where the account is sender or receiver,
ordered by signed timestamp (ties broken by transaction id).`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			if order != string(ledger.OrderAsc) && order != string(ledger.OrderDesc) {
				return NewExitError(ExitCommandError, fmt.Sprintf("invalid order %q: must be asc or desc", order))
			}
			return runHistory(rootOpts, args[0], ledger.Order(order), limit, offset, cmd)
		},
	}

	cmd.Flags().IntVar(&limit, "limit", 50, "maximum entries per page (capped at 500)")
	cmd.Flags().IntVar(&offset, "offset", 0, "entries to skip")
	cmd.Flags().StringVar(&order, "order", "desc", "timestamp order (asc|desc)")

	return cmd
}

func runHistory(opts *RootOptions, accountID string, order ledger.Order, limit, offset int, cmd *cobra.Command) error {
	formatter := newFormatter(opts, cmd.OutOrStdout(), cmd.ErrOrStderr())

	env, err := openEnv(opts, false)
	if err != nil {
		_ = formatter.Error("INTERNAL", err.Error(), nil)
		return err
	}
	defer env.Close()

	txs, err := env.Processor.QueryHistory(cmd.Context(), accountID, order, limit, offset)
	if err != nil {
		return outputLedgerError(formatter, err)
	}

	result := HistoryResult{AccountID: accountID, Entries: make([]HistoryEntry, 0, len(txs))}
	for _, t := range txs {
		result.Entries = append(result.Entries, HistoryEntry{
			TxID:      t.ID,
			Kind:      string(t.Kind),
			Sender:    t.Sender,
			Receiver:  t.Receiver,
			Amount:    t.Amount,
			Message:   t.Message,
			Timestamp: t.Timestamp,
		})
	}

	return formatter.Success(result)
}
