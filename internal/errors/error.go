package errors

import (
	"errors"
	"fmt"
)

var (
	ErrInvalidTeam          = errors.New("team must be red or blue")
	ErrMissingIdentity      = errors.New("device id or pseudo is missing")
	ErrBadPseudo            = errors.New("pseudo must be 1-20 characters")
	ErrUnknownUpgrade       = errors.New("unknown upgrade id")
	ErrInsufficientFunds    = errors.New("not enough clicks to buy upgrade")
	ErrTransientStore       = errors.New("store temporarily unavailable")
	ErrConsistencyViolation = errors.New("counter invariant violated, key is quarantined")
	ErrInternal             = errors.New("internal error")
)

// WrapTransient помечает ошибку стора как временную: такие ошибки повторяются
// с backoff, остальные отдаются вызывающему сразу.
func WrapTransient(err error) error {
	return fmt.Errorf("%w: %v", ErrTransientStore, err)
}
