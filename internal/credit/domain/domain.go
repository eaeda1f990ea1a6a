package domain

import (
	"context"
	"errors"

	"github.com/bwmarrin/snowflake"
)

var (
	// ErrAccountNotFound is returned when the account row does not exist.
	ErrAccountNotFound = errors.New("credit: account not found")

	// ErrConflict is returned by ConditionalDebit when the balance moved
	// between the read and the update. Callers re-read and retry.
	ErrConflict = errors.New("credit: balance changed concurrently")
)

// Store reads and mutates account credit balances.
//
// ConditionalDebit is a compare-and-swap: it only succeeds when the stored
// balance still equals expected, so concurrent debits can never drive a
// balance negative.
type Store interface {
	Balance(ctx context.Context, accountID snowflake.ID) (int64, error)
	ConditionalDebit(ctx context.Context, accountID snowflake.ID, amount, expected int64) error
	Grant(ctx context.Context, accountID snowflake.ID, amount int64) error
}
