package cli

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/spf13/cobra"

	"github.com/slumbank/slumbank/internal/ledger"
	"github.com/slumbank/slumbank/internal/processor"
)

// SubmitResult holds the outcome of an accepted submission.
type SubmitResult struct {
	TxID     string `json:"tx_id"`
	Kind     string `json:"kind"`
	Sender   string `json:"sender"`
	Receiver string `json:"receiver"`
	Amount   int64  `json:"amount"`
	Nonce    int64  `json:"nonce"`
}

func (r SubmitResult) String() string {
	return fmt.Sprintf("%s %d: %s -> %s (tx %s)", r.Kind, r.Amount, r.Sender, r.Receiver, r.TxID)
}

// signAndSubmit signs a payload with the sender's sealed key at the
// sender's live nonce and submits it.
func signAndSubmit(ctx context.Context, env *Env, sender, receiver string, amount int64, kind ledger.Kind, message string) (ledger.Transaction, error) {
	acct, err := env.Processor.GetAccount(ctx, sender)
	if err != nil {
		return ledger.Transaction{}, err
	}

	priv, err := env.Keyring.Unseal(sender)
	if err != nil {
		return ledger.Transaction{}, WrapExitError(ExitCommandError, fmt.Sprintf("no sealed key for %s", sender), err)
	}

	payload := ledger.Payload{
		Sender:    sender,
		Receiver:  receiver,
		Amount:    amount,
		Kind:      kind,
		Nonce:     acct.Nonce,
		Timestamp: time.Now().Unix(),
	}
	signature, err := ledger.SignPayload(priv, payload)
	if err != nil {
		return ledger.Transaction{}, WrapExitError(ExitCommandError, "failed to sign payload", err)
	}

	return env.Processor.Submit(ctx, processor.Submission{
		Sender:    sender,
		Receiver:  receiver,
		Amount:    amount,
		Kind:      kind,
		Message:   message,
		Nonce:     payload.Nonce,
		Timestamp: payload.Timestamp,
		Signature: signature,
	})
}

// runSubmit is the shared body of send, mint and burn.
func runSubmit(opts *RootOptions, cmd *cobra.Command, sender, receiver string, amount int64, kind ledger.Kind, message string) error {
	formatter := newFormatter(opts, cmd.OutOrStdout(), cmd.ErrOrStderr())

	env, err := openEnv(opts, true)
	if err != nil {
		_ = formatter.Error("INTERNAL", err.Error(), nil)
		return err
	}
	defer env.Close()

	t, err := signAndSubmit(cmd.Context(), env, sender, receiver, amount, kind, message)
	if err != nil {
		var exitErr *ExitError
		if errors.As(err, &exitErr) {
			_ = formatter.Error("INTERNAL", exitErr.Error(), nil)
			return exitErr
		}
		return outputLedgerError(formatter, err)
	}

	return formatter.Success(SubmitResult{
		TxID:     t.ID,
		Kind:     string(t.Kind),
		Sender:   t.Sender,
		Receiver: t.Receiver,
		Amount:   t.Amount,
		Nonce:    t.Nonce,
	})
}

// parseAmount parses an integer amount argument. Range and sign checks
// are the processor's job; this only rejects non-numbers.
func parseAmount(arg string) (int64, error) {
	amount, err := strconv.ParseInt(arg, 10, 64)
	if err != nil {
		return 0, NewExitError(ExitCommandError, fmt.Sprintf("invalid amount %q", arg))
	}
	return amount, nil
}
