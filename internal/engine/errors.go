package engine

import "errors"

// Errors returned by the ledger and the execution venue. Callers branch on them
// with errors.Is; context is added with fmt.Errorf("%w: ...").
var (
	// ErrOutOfBounds rejects a mutation that would take a position or the cash below zero.
	ErrOutOfBounds = errors.New("out of bounds")
	// ErrNotExists means there is no usable price yet; the order is retried next bar.
	ErrNotExists = errors.New("not exists")
	// ErrNotSatisfied means a limit or stop condition did not hold at the current price.
	ErrNotSatisfied = errors.New("order condition not satisfied")
	// ErrOrderExpired is terminal for the order.
	ErrOrderExpired = errors.New("order expired")
	// ErrFatal marks a broken ledger invariant. It stops the loop that hit it.
	ErrFatal = errors.New("fatal")
)
