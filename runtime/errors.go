package runtime

import "errors"

// Errors returned while dispatching one Input within applyServerFrame
// (spec §4.4, §7's error kind/action table). None of these abort a batch:
// the offending input is rejected and collected, and the frame continues.
var (
	// ErrUnknownReplica is returned for any command other than
	// AttachReplicaCommand addressed to a (signerIdx, entityId) pair with
	// no existing replica.
	ErrUnknownReplica = errors.New("runtime: no replica at this (signerIdx, entityId)")

	// ErrReplicaExists names an occupied (signerIdx, entityId) slot. The
	// dispatcher does not return it: AttachReplicaCommand on an occupied
	// slot queues another importReplica tx into the existing replica.
	ErrReplicaExists = errors.New("runtime: a replica already occupies this (signerIdx, entityId)")

	// ErrNonceOutOfOrder is returned when an addTx command's Nonce does
	// not strictly follow the last nonce accepted for this replica,
	// spec §7's "NonceOutOfOrder | entity addTx | reject the tx".
	ErrNonceOutOfOrder = errors.New("runtime: addTx nonce is not the next expected value")

	// ErrUnknownCommand is returned for a CommandKind the dispatcher
	// doesn't recognize.
	ErrUnknownCommand = errors.New("runtime: unknown command kind")
)
