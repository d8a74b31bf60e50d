package cashbook

import (
	"errors"
	"fmt"
)

// Error kinds reported by the ledger. They are local precondition failures:
// callers match them with errors.Is and react immediately, nothing is retried.
var (
	// ErrDuplicateKey reports a name or identity that is already used.
	ErrDuplicateKey = errors.New("duplicate key")
	// ErrInvalidArgument reports an unknown reference or a malformed value.
	ErrInvalidArgument = errors.New("invalid argument")
	// ErrIndexOutOfRange reports an out-of-bounds positional access.
	ErrIndexOutOfRange = errors.New("index out of range")
)

func invalidf(format string, args ...any) error {
	return fmt.Errorf(format+": %w", append(args, ErrInvalidArgument)...)
}

func duplicatef(format string, args ...any) error {
	return fmt.Errorf(format+": %w", append(args, ErrDuplicateKey)...)
}

func outOfRange(i, n int) error {
	return fmt.Errorf("index %d not in [0, %d): %w", i, n, ErrIndexOutOfRange)
}
