// Package scoreerr defines the stable error codes the scoring core raises
// (spec §7). Every package that needs to signal one of these wraps a
// sentinel with fmt.Errorf("...: %w", err) so callers can still match with
// errors.Is after additional context is attached.
package scoreerr

import "errors"

var (
	// ErrInvalidWallet: malformed address format.
	ErrInvalidWallet = errors.New("invalid_wallet")
	// ErrChainUnreachable: all RPC transports exhausted retries within the deadline.
	ErrChainUnreachable = errors.New("chain_unreachable")
	// ErrQueueFull: submission rejected by the global scan cap.
	ErrQueueFull = errors.New("queue_full")
	// ErrTimeout: per-call deadline hit.
	ErrTimeout = errors.New("timeout")
	// ErrStore: unexpected error from the relational store.
	ErrStore = errors.New("store_error")
)
