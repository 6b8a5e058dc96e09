package ledger

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCodeOf_Direct(t *testing.T) {
	err := ErrNonceMismatch("alice", 3, 5)
	assert.Equal(t, CodeNonceMismatch, CodeOf(err))
}

func TestCodeOf_Wrapped(t *testing.T) {
	err := fmt.Errorf("submit: %w", ErrInsufficientBalance("alice", 10, 30))
	assert.Equal(t, CodeInsufficientBalance, CodeOf(err))
	assert.True(t, IsCode(err, CodeInsufficientBalance))
}

func TestCodeOf_NonLedgerError(t *testing.T) {
	assert.Equal(t, Code(""), CodeOf(errors.New("plain")))
	assert.False(t, IsCode(errors.New("plain"), CodeNotFound))
}

func TestErrStorage_Unwrap(t *testing.T) {
	cause := errors.New("disk full")
	err := ErrStorage(cause)
	assert.ErrorIs(t, err, cause)
	assert.Equal(t, CodeStorageFailure, CodeOf(err))
}

func TestError_Message(t *testing.T) {
	err := ErrNonceMismatch("alice", 3, 5)
	assert.Contains(t, err.Error(), "NONCE_MISMATCH")
	assert.Contains(t, err.Error(), "account=alice")

	conflict := ErrConflict("abc123")
	assert.Contains(t, conflict.Error(), "tx=abc123")
}

func TestKind_Valid(t *testing.T) {
	assert.True(t, KindTransfer.Valid())
	assert.True(t, KindMint.Valid())
	assert.True(t, KindBurn.Valid())
	assert.False(t, Kind("loan").Valid())
	assert.False(t, Kind("").Valid())
}
