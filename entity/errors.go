package entity

import "errors"

// Errors returned by Replica.Propose/Receive/AddTx (spec §4.3, §7).
var (
	// ErrNotProposer is returned by Propose when called on a non-proposer
	// validator.
	ErrNotProposer = errors.New("entity: only the proposer may propose")

	// ErrEmptyMempool is returned by Propose when there is nothing to
	// propose.
	ErrEmptyMempool = errors.New("entity: mempool is empty")

	// ErrProposalInFlight is returned by Propose when a proposed frame is
	// already awaiting commit.
	ErrProposalInFlight = errors.New("entity: a proposal is already in flight")

	// ErrConflictingLock is returned when a validator already locked a
	// different frame hash at this height.
	ErrConflictingLock = errors.New("entity: conflicting lock at this height")

	// ErrUnknownValidator is returned for a signature from a signer not
	// in the validator set.
	ErrUnknownValidator = errors.New("entity: signature from unknown validator")

	// ErrQuorumNotReached is returned when committing a frame whose
	// accumulated signer shares fall short of threshold.
	ErrQuorumNotReached = errors.New("entity: accumulated shares below threshold")

	// ErrUnknownTx is returned for a tx kind the reducer doesn't
	// recognize.
	ErrUnknownTx = errors.New("entity: unknown tx kind")

	// ErrChainBroken is returned when a proposed frame's prevFrameHash
	// doesn't match the replica's expected prior hash.
	ErrChainBroken = errors.New("entity: proposed frame breaks the hash chain")

	// ErrInvariantViolated is returned when applying a tx would violate
	// an entity-state invariant.
	ErrInvariantViolated = errors.New("entity: tx application would violate an invariant")

	// ErrProposerUnresponsive documents the liveness gap noted in
	// spec.md §9: no view-change/proposer-rotation protocol ships, so a
	// silent proposer simply never advances height. Replica.Propose and
	// Receive never return it themselves; it exists for callers layering
	// their own liveness monitor on top (see DESIGN.md Open Question 1).
	ErrProposerUnresponsive = errors.New("entity: proposer appears unresponsive (no rotation protocol implemented)")
)
