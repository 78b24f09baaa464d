package settlement

import (
	"github.com/adimov-eth/xln-sub005/entity"
	"github.com/adimov-eth/xln-sub005/internal/xcrypto"
	"github.com/adimov-eth/xln-sub005/runtime"
)

// Adapter watches the jurisdiction chain and turns its events into
// runtime.Input values carrying entity.JEvent payloads (spec §2, §4.4
// "Settlement ingestion", §4.5). It is the one place outside `entity`
// that constructs a runtime.ImportJEventCommand, conceptually grounded on
// `contractcourt`'s on-chain event watching (no direct file precedent in
// the pack — the teacher watches bitcoind/neutrino chain notifications the
// same way this adapter watches jurisdiction contract logs, but the
// jurisdiction contract itself has no teacher analogue).
type Adapter struct {
	// hosted maps an entity this node replicates to the signerIdx it
	// signs frames as for that entity (spec §4.4's (signerIdx, entityId)
	// replica key).
	hosted map[xcrypto.EntityID]uint32

	// seen is the last accepted on-chain sequence number per target
	// entity, used only to detect and skip stale redeliveries (Import,
	// not ApplyUnsafe).
	seen map[xcrypto.EntityID]uint64

	// AllowUnsafe gates ApplyUnsafe. It must never be set from parsed
	// daemon config (DESIGN.md Open Question 3) — only
	// NewUnsafeAdapterForTesting sets it.
	AllowUnsafe bool
}

// NewAdapter constructs an Adapter that ingests events for the given
// hosted entity set (entityID -> the signerIdx this node signs as for
// that entity). ApplyUnsafe is disabled.
func NewAdapter(hosted map[xcrypto.EntityID]uint32) *Adapter {
	cp := make(map[xcrypto.EntityID]uint32, len(hosted))
	for k, v := range hosted {
		cp[k] = v
	}
	return &Adapter{hosted: cp, seen: make(map[xcrypto.EntityID]uint64)}
}

// NewUnsafeAdapterForTesting constructs an Adapter with ApplyUnsafe
// enabled. It must only ever be called from test code or an operator's
// own recovery tooling run by hand — never wired to a flag the daemon
// parses from a config file (spec §9's unsafeProcessBatch open question).
func NewUnsafeAdapterForTesting(hosted map[xcrypto.EntityID]uint32) *Adapter {
	a := NewAdapter(hosted)
	a.AllowUnsafe = true
	return a
}

// Hosts reports whether this adapter is configured to ingest events for
// target, and if so, which signerIdx it replicates under.
func (a *Adapter) Hosts(target xcrypto.EntityID) (uint32, bool) {
	signerIdx, ok := a.hosted[target]
	return signerIdx, ok
}

// Import builds the runtime.Input that ingests one settlement event into
// target's replica (spec §4.4 step "importJEvent(event)"). seq is the
// chain watcher's own monotonic sequence number for events concerning
// target (e.g. a (blockNumber, logIndex) pair folded into one counter);
// Import rejects a seq that does not strictly advance past the last one
// accepted, per spec §7's SettlementEventStale handling.
func (a *Adapter) Import(target xcrypto.EntityID, seq uint64, event entity.JEvent) (runtime.Input, error) {
	signerIdx, ok := a.hosted[target]
	if !ok {
		return runtime.Input{}, ErrEntityNotHosted
	}
	if seq <= a.seen[target] {
		log.Debugf("SETL: dropping stale event for %x at seq %d (last seen %d)", target.Bytes()[:4], seq, a.seen[target])
		return runtime.Input{}, ErrSettlementEventStale
	}
	a.seen[target] = seq

	return runtime.Input{
		SignerIdx: signerIdx,
		EntityID:  target,
		Cmd:       runtime.ImportJEventCommand{Event: event},
	}, nil
}

// ApplyUnsafe bypasses both Import's sequence-watermark bookkeeping and
// the normal batching/transport delay: it queues the importJ tx and
// forces an immediate proposeFrame on the same tick, so the override
// either commits in this one call (a single-validator or
// dominant-proposer-share entity, spec §4.3's "proposer's own signature
// counts") or is left proposed pending the remaining validators'
// precommits like any other frame. The override semantics of every
// JEvent (spec §4.4, §8 idempotence law) make forcing it out of the
// normal watcher sequence safe from a state-corruption standpoint; what
// it forfeits is stale-event detection and the usual batching discipline,
// which is why it is gated behind AllowUnsafe rather than exposed
// unconditionally (spec §9's unsafeProcessBatch open question).
func (a *Adapter) ApplyUnsafe(state *runtime.ServerState, target xcrypto.EntityID, event entity.JEvent, now, height uint64) (*runtime.ServerFrame, error) {
	if !a.AllowUnsafe {
		return nil, ErrUnsafeNotAllowed
	}
	signerIdx, ok := a.hosted[target]
	if !ok {
		return nil, ErrEntityNotHosted
	}

	batch := []runtime.Input{
		{SignerIdx: signerIdx, EntityID: target, Cmd: runtime.ImportJEventCommand{Event: event}},
		{SignerIdx: signerIdx, EntityID: target, Cmd: runtime.ProposeFrameCommand{}},
	}
	frame, rejects := runtime.ApplyServerFrame(state, batch, now, height)
	if len(rejects) > 0 {
		return nil, rejects[0].Err
	}
	return frame, nil
}
