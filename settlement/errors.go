package settlement

import "errors"

var (
	// ErrEntityNotHosted is returned when an event targets an entity this
	// node holds no replica for; the watcher should route the event to
	// whichever node does instead of calling Import with it.
	ErrEntityNotHosted = errors.New("settlement: this node hosts no replica for the target entity")

	// ErrSettlementEventStale is returned by Import when seq does not
	// advance past the last sequence number accepted for the target
	// entity (spec §7 "SettlementEventStale | chain adapter | idempotent
	// skip"). It is not itself a fault: the absolute-value override
	// semantics of every JEvent make a stale replay harmless, but
	// skipping it avoids redundant entity-frame churn.
	ErrSettlementEventStale = errors.New("settlement: event sequence number is not newer than the last one accepted")

	// ErrUnsafeNotAllowed is returned by ApplyUnsafe unless the adapter
	// was constructed with AllowUnsafe set (spec §9's unsafeProcessBatch
	// open question, resolved in DESIGN.md Open Question 3: only an
	// in-process test constructor may set it, never parsed config).
	ErrUnsafeNotAllowed = errors.New("settlement: ApplyUnsafe is disabled on this adapter")
)
