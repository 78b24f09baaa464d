package account

import "errors"

// Errors returned by Machine.Receive/Propose/AddTx (spec §4.2, §7).
var (
	// ErrReplayDetected is returned when a message's counter doesn't equal
	// our counter+1. The message is dropped; state is unchanged and the
	// counter is not advanced.
	ErrReplayDetected = errors.New("account: replay detected, unexpected counter")

	// ErrChainBroken is returned when an incoming frame's prevFrameHash
	// doesn't match our expected prior hash.
	ErrChainBroken = errors.New("account: incoming frame breaks the hash chain")

	// ErrInvariantViolated is returned when applying a tx would violate
	// one of the §3 invariants (collateral going negative, capacity
	// mismatch, etc). The tx is rejected; it is never included in a
	// frame and never mutates state.
	ErrInvariantViolated = errors.New("account: tx application would violate an invariant")

	// ErrUnknownTx is returned for a tx kind the reducer doesn't
	// recognize.
	ErrUnknownTx = errors.New("account: unknown tx kind")

	// ErrNoPendingFrame is returned when a received ack references a
	// pending frame we don't have.
	ErrNoPendingFrame = errors.New("account: no pending frame to commit")

	// ErrNotReady is returned by Propose when there's nothing to
	// propose: the mempool is empty, or a pending frame already exists.
	ErrNotReady = errors.New("account: not ready to propose")
)
