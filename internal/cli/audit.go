package cli

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"
)

// AuditDivergence is one account whose cached balance disagrees with
// the log.
type AuditDivergence struct {
	AccountID string `json:"account_id"`
	Cached    int64  `json:"cached"`
	Derived   int64  `json:"derived"`
}

// AuditResult holds the outcome of a full-ledger audit.
type AuditResult struct {
	Consistent bool              `json:"consistent"`
	Divergent  []AuditDivergence `json:"divergent,omitempty"`
	Repaired   int               `json:"repaired,omitempty"`
}

func (r AuditResult) String() string {
	if r.Consistent {
		return "balance cache consistent with ledger"
	}
	var b strings.Builder
	fmt.Fprintf(&b, "%d account(s) diverged:\n", len(r.Divergent))
	for _, d := range r.Divergent {
		fmt.Fprintf(&b, "  %s: cached %d, derived %d\n", d.AccountID, d.Cached, d.Derived)
	}
	if r.Repaired > 0 {
		fmt.Fprintf(&b, "repaired %d account(s) from the log", r.Repaired)
	}
	return strings.TrimRight(b.String(), "\n")
}

// NewAuditCommand creates the audit command.
func NewAuditCommand(rootOpts *RootOptions) *cobra.Command {
	var repair bool

	cmd := &cobra.Command{
		Use:   "audit",
		Short: "Check the balance cache against the transaction log",
		Long: `Compare every cached balance with the value derived from the
append-only log. With --repair, diverged balances are rewritten from
the log; the log always wins.

Exits 1 if any divergence was found, even after a successful repair.`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runAudit(rootOpts, repair, cmd)
		},
	}

	cmd.Flags().BoolVar(&repair, "repair", false, "rewrite diverged balances from the log")

	return cmd
}

func runAudit(opts *RootOptions, repair bool, cmd *cobra.Command) error {
	formatter := newFormatter(opts, cmd.OutOrStdout(), cmd.ErrOrStderr())

	env, err := openEnv(opts, false)
	if err != nil {
		_ = formatter.Error("INTERNAL", err.Error(), nil)
		return err
	}
	defer env.Close()

	ctx := cmd.Context()
	divergent, err := env.Processor.Audit(ctx)
	if err != nil {
		return outputLedgerError(formatter, err)
	}

	result := AuditResult{Consistent: len(divergent) == 0}
	for _, d := range divergent {
		result.Divergent = append(result.Divergent, AuditDivergence{
			AccountID: d.AccountID,
			Cached:    d.Cached,
			Derived:   d.Derived,
		})
	}

	if !result.Consistent && repair {
		repaired, err := env.Processor.Repair(ctx)
		if err != nil {
			return outputLedgerError(formatter, err)
		}
		result.Repaired = repaired
	}

	if err := formatter.Success(result); err != nil {
		return err
	}
	if !result.Consistent {
		return NewExitError(ExitRejected, fmt.Sprintf("%d account(s) diverged", len(result.Divergent)))
	}
	return nil
}
