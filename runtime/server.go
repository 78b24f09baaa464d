package runtime

import (
	"sort"

	"github.com/adimov-eth/xln-sub005/entity"
	"github.com/adimov-eth/xln-sub005/internal/xcrypto"
)

// slot holds one replica plus the runtime-level bookkeeping (the last
// accepted addTx nonce) that lives outside entity.State because it guards
// the server-frame dispatch layer, not the entity reducer itself.
type slot struct {
	replica   *entity.Replica
	lastNonce uint64
}

// ServerState is the runtime's top-level reducer target: the full set of
// replicas this process hosts, keyed by (signerIdx, entityId) (spec
// §4.4). It is safe to pass by pointer to applyServerFrame; commits
// mutate it in place once a command is accepted.
type ServerState struct {
	replicas map[ReplicaKey]*slot
}

// NewServerState constructs an empty server state hosting no replicas.
func NewServerState() *ServerState {
	return &ServerState{replicas: make(map[ReplicaKey]*slot)}
}

// Replica returns the live entity.Replica at key, or nil if none is
// attached.
func (s *ServerState) Replica(key ReplicaKey) *entity.Replica {
	if sl, ok := s.replicas[key]; ok {
		return sl.replica
	}
	return nil
}

// Reject records one input that failed to apply without aborting the
// batch (spec §4.4 "collect rejects (log, do not abort the frame)").
type Reject struct {
	Index int
	Input Input
	Err   error
}

// ServerFrame is the runtime's committed output for one tick: the
// resulting replica-set root and the root of the inputs that produced it,
// alongside the batch itself for replay (spec §4.4).
type ServerFrame struct {
	Height     uint64
	Timestamp  uint64
	Root       xcrypto.Hash
	InputsRoot xcrypto.Hash
	Batch      []Input
}

// ApplyServerFrame dispatches batch against state in order, isolating
// per-input failures, then computes the two merkle roots and emits the
// resulting ServerFrame (spec §4.4's three-step algorithm):
//
//  1. For each input in order: look up or create the replica
//     (signerIdx,entityId), dispatch the command, apply the result back
//     into state; collect rejects without aborting the frame.
//  2. root = merkle(sorted replica encodings); inputsRoot =
//     merkle(rlp(batch[i])).
//  3. Emit ServerFrame{height, timestamp, root, inputsRoot, batch}.
func ApplyServerFrame(state *ServerState, batch []Input, now uint64, height uint64) (*ServerFrame, []Reject) {
	var rejects []Reject

	for i, in := range batch {
		if err := dispatch(state, in, now); err != nil {
			log.Debugf("RUNT: rejecting input %d at (%d,%x): %v", i, in.SignerIdx, in.EntityID.Bytes()[:4], err)
			rejects = append(rejects, Reject{Index: i, Input: in, Err: err})
		}
	}

	frame := &ServerFrame{
		Height:     height,
		Timestamp:  now,
		Root:       replicaSetRoot(state),
		InputsRoot: inputsRoot(batch),
		Batch:      batch,
	}
	return frame, rejects
}

// dispatch applies one input's command to the replica at its key,
// creating the slot first if the command is AttachReplicaCommand.
func dispatch(state *ServerState, in Input, now uint64) error {
	key := in.Key()
	sl, exists := state.replicas[key]

	if attach, ok := in.Cmd.(AttachReplicaCommand); ok {
		return applyAttach(state, key, sl, exists, attach, now)
	}

	if !exists {
		return ErrUnknownReplica
	}

	switch cmd := in.Cmd.(type) {
	case AddTxCommand:
		if cmd.Nonce != sl.lastNonce+1 {
			return ErrNonceOutOfOrder
		}
		sl.replica.AddTx(cmd.Tx)
		sl.lastNonce = cmd.Nonce
		return nil
	case ProposeFrameCommand:
		_, err := sl.replica.Propose(now)
		return err
	case SignFrameCommand:
		_, err := sl.replica.Receive(cmd.Msg, now)
		return err
	case CommitFrameCommand:
		_, err := sl.replica.Receive(cmd.Msg, now)
		return err
	case DetachReplicaCommand:
		delete(state.replicas, key)
		return nil
	case ImportJEventCommand:
		sl.replica.AddTx(entity.ImportJTx{Event: cmd.Event})
		return nil
	default:
		return ErrUnknownCommand
	}
}

func applyAttach(state *ServerState, key ReplicaKey, sl *slot, exists bool, cmd AttachReplicaCommand, now uint64) error {
	if !exists {
		st := entity.NewState(key.EntityID, cmd.Factory)
		replica := entity.NewReplica(entity.ValidatorID(key.EntityID), cmd.Validators, st, cmd.Signer, cmd.Verifier)
		sl = &slot{replica: replica}
		state.replicas[key] = sl
	}
	sl.replica.AddTx(entity.ImportReplicaTx{Height: cmd.Height, Snapshot: cmd.Snapshot})
	return nil
}

// replicaEncoding deterministically serializes one replica slot's
// committed position for the server-root merkle tree: its key plus its
// current height and frame-chain tip. Account-machine and mempool state
// is intentionally excluded — those are covered by the account and entity
// tiers' own frame hashes, not the server root.
func replicaEncoding(key ReplicaKey, sl *slot) []byte {
	return xcrypto.EncodeList(
		xcrypto.EncodeUint(uint64(key.SignerIdx)),
		xcrypto.EncodeBytes(key.EntityID.Bytes()),
		xcrypto.EncodeUint(sl.replica.Height),
		xcrypto.EncodeBytes(sl.replica.PrevFrameHash.Bytes()),
	)
}

// replicaSetRoot computes merkle(sorted replica encodings) over every
// replica currently hosted by state (spec §4.4 step 2).
func replicaSetRoot(state *ServerState) xcrypto.Hash {
	keys := make([]ReplicaKey, 0, len(state.replicas))
	for k := range state.replicas {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool {
		if keys[i].SignerIdx != keys[j].SignerIdx {
			return keys[i].SignerIdx < keys[j].SignerIdx
		}
		return keys[i].EntityID.Less(keys[j].EntityID)
	})

	leaves := make([][]byte, len(keys))
	for i, k := range keys {
		leaves[i] = replicaEncoding(k, state.replicas[k])
	}
	return xcrypto.Merkle(leaves)
}

// inputsRoot computes merkle(rlp(batch[i])) over the batch in its given
// order (spec §4.4 step 2); input order is part of what the root commits
// to, so it is not sorted.
func inputsRoot(batch []Input) xcrypto.Hash {
	leaves := make([][]byte, len(batch))
	for i, in := range batch {
		leaves[i] = merkleLeaf(in)
	}
	return xcrypto.Merkle(leaves)
}
