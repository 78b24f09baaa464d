package runtime

import (
	"github.com/adimov-eth/xln-sub005/entity"
	"github.com/adimov-eth/xln-sub005/internal/xcrypto"
)

// CommandKind tags the Input-level command union (spec §4.4: "Command ∈
// {addTx, proposeFrame(header), signFrame(sig), commitFrame(frame,aggSig),
// attachReplica(snapshot), detachReplica, importJEvent(event)}").
type CommandKind uint8

const (
	CmdAddTx CommandKind = iota
	CmdProposeFrame
	CmdSignFrame
	CmdCommitFrame
	CmdAttachReplica
	CmdDetachReplica
	CmdImportJEvent
)

// Command is one instruction addressed to a single replica (signerIdx,
// entityId) within a server batch.
type Command interface {
	Kind() CommandKind
}

// AddTxCommand queues an entity-level tx into the target replica's
// mempool. Nonce must be exactly one greater than the last nonce this
// replica slot accepted (spec §7 "NonceOutOfOrder | entity addTx | reject
// the tx"); a replica's first accepted nonce is 1.
type AddTxCommand struct {
	Tx    entity.Tx
	Nonce uint64
}

func (AddTxCommand) Kind() CommandKind { return CmdAddTx }

// ProposeFrameCommand asks the target replica (which must be the
// configured proposer) to snapshot its mempool into a frame and broadcast
// it.
type ProposeFrameCommand struct{}

func (ProposeFrameCommand) Kind() CommandKind { return CmdProposeFrame }

// SignFrameCommand delivers an incoming Propose message to the target
// replica so it may verify, lock, and reply with a signed precommit (spec
// §4.3 phase 3 — the "sign" step of the four-phase protocol).
type SignFrameCommand struct {
	Msg *entity.Message
}

func (SignFrameCommand) Kind() CommandKind { return CmdSignFrame }

// CommitFrameCommand delivers an incoming Precommit (gathered at the
// proposer) or Commit (applied everywhere else) message to the target
// replica.
type CommitFrameCommand struct {
	Msg *entity.Message
}

func (CommitFrameCommand) Kind() CommandKind { return CmdCommitFrame }

// AttachReplicaCommand bootstraps a replica at (signerIdx, entityId) from
// a snapshot, for a validator joining mid-flight rather than from entity
// genesis (spec §4.4). If the replica does not yet exist, the dispatcher
// constructs one from Validators, Signer, Verifier and Factory; in either
// case the snapshot is then queued as an importReplica tx.
type AttachReplicaCommand struct {
	Snapshot   []byte
	Height     uint64
	Validators *entity.ValidatorSet
	Signer     entity.Signer
	Verifier   entity.Verifier
	Factory    entity.AccountFactory
}

func (AttachReplicaCommand) Kind() CommandKind { return CmdAttachReplica }

// DetachReplicaCommand removes a replica from the server's replica map
// entirely (e.g. the validator is leaving the set).
type DetachReplicaCommand struct{}

func (DetachReplicaCommand) Kind() CommandKind { return CmdDetachReplica }

// ImportJEventCommand ingests one settlement event from the jurisdiction
// chain as an entity-level importJ tx (spec §4.4 "Settlement ingestion").
type ImportJEventCommand struct {
	Event entity.JEvent
}

func (ImportJEventCommand) Kind() CommandKind { return CmdImportJEvent }

// ReplicaKey identifies one replica slot within the server's replica map:
// a specific validator index signing on behalf of a specific entity (spec
// §4.4 "Input = (signerIdx, entityId, Command)").
type ReplicaKey struct {
	SignerIdx uint32
	EntityID  xcrypto.EntityID
}

// Input is one command addressed to one replica within a server batch.
type Input struct {
	SignerIdx uint32
	EntityID  xcrypto.EntityID
	Cmd       Command
}

// Key returns the ReplicaKey this Input is addressed to.
func (in Input) Key() ReplicaKey {
	return ReplicaKey{SignerIdx: in.SignerIdx, EntityID: in.EntityID}
}
