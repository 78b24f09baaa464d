package entity

import (
	"github.com/adimov-eth/xln-sub005/internal/xcrypto"
)

// Replica is one validator's view of an entity (spec §4.3): it holds the
// reducer State, a mempool of pending txs, and — while a height is live —
// an optional proposal and an optional lock. Only the configured proposer
// (Validators.Order[0]) may call Propose; every validator, proposer
// included, processes Receive the same way.
type Replica struct {
	Self       ValidatorID
	Validators *ValidatorSet
	State      *State

	Height        uint64
	PrevFrameHash xcrypto.Hash
	Mempool       []Tx

	// proposal is the frame this replica is currently voting on. At the
	// proposer it stays set from Propose through Commit while precommits
	// are gathered; at a non-proposer it is set by the incoming Propose
	// message and cleared on Commit.
	proposal *Frame

	// lockedHash is the frame hash this replica has locked at Height, the
	// CometBFT-style lock of spec §4.3's "Locking" rule: once locked, a
	// differing proposal at the same height is rejected with
	// ErrConflictingLock rather than silently re-voted.
	locked     bool
	lockedHash xcrypto.Hash

	// signers accumulates precommit signatures for the current proposal,
	// kept only at the proposer (spec §4.3 phase 4's quorum tally).
	signers map[ValidatorID]Signature

	signer   Signer
	verifier Verifier
}

// NewReplica constructs a Replica at entity genesis.
func NewReplica(self ValidatorID, validators *ValidatorSet, state *State, signer Signer, verifier Verifier) *Replica {
	return &Replica{
		Self:          self,
		Validators:    validators,
		State:         state,
		PrevFrameHash: GenesisHash,
		signer:        signer,
		verifier:      verifier,
	}
}

// AddTx appends a tx to the mempool (spec §4.3 phase 1 "Gather": a
// non-proposer forwards txs it receives to the proposer, modeled here as
// every replica — proposer included — simply queuing to its own mempool;
// the caller is responsible for actually relaying non-proposer txs over
// transport to the proposer's AddTx).
func (r *Replica) AddTx(tx Tx) {
	r.Mempool = append(r.Mempool, tx)
}

func (r *Replica) isProposer() bool {
	return r.Self == r.Validators.Proposer()
}

// buildFrame applies every mempool tx against a clone of State, dropping
// any tx whose Apply returns an error rather than aborting the batch (spec
// §4.3 "unknown tx kinds are rejected", mirroring account.Machine's
// buildFrame).
func (r *Replica) buildFrame(now uint64) (*Frame, *State) {
	scratch := r.State.Clone()

	applied := make([]Tx, 0, len(r.Mempool))
	for _, tx := range r.Mempool {
		if err := tx.Apply(scratch, now); err != nil {
			continue
		}
		applied = append(applied, tx)
	}

	f := &Frame{
		Height:        r.Height,
		Timestamp:     now,
		PrevFrameHash: r.PrevFrameHash,
		Txs:           applied,
	}
	f.StateHash = ComputeStateHash(f)
	return f, scratch
}

// Propose snapshots the mempool into a new frame and broadcasts it (spec
// §4.3 phase 2). Only the configured proposer may call it.
func (r *Replica) Propose(now uint64) (*Message, error) {
	if !r.isProposer() {
		return nil, ErrNotProposer
	}
	if len(r.Mempool) == 0 {
		return nil, ErrEmptyMempool
	}
	if r.proposal != nil {
		return nil, ErrProposalInFlight
	}

	frame, _ := r.buildFrame(now)

	if r.locked && r.lockedHash != frame.StateHash {
		return nil, ErrConflictingLock
	}

	sig, err := r.signer.Sign(frame.StateHash)
	if err != nil {
		return nil, err
	}

	r.proposal = frame
	r.locked = true
	r.lockedHash = frame.StateHash
	r.signers = map[ValidatorID]Signature{r.Self: sig}

	if r.Validators.QuorumReached(r.signers) {
		// The proposer's own share alone already clears threshold (the
		// degenerate single-validator or proposer-dominant-share case):
		// commit without waiting on precommits, per "proposer's own
		// signature counts" (spec §4.3 phase 4).
		_, scratch := r.buildFrame(now)
		signers := r.signers
		r.commit(frame, scratch)
		return &Message{
			From:    r.Self,
			Height:  frame.Height,
			Phase:   PhaseCommit,
			Frame:   frame,
			Signers: signers,
		}, nil
	}

	return &Message{
		From:   r.Self,
		Height: r.Height,
		Phase:  PhasePropose,
		Frame:  frame,
		Sig:    sig,
	}, nil
}

// commit applies scratch as the new State, advances Height, and clears the
// in-flight proposal/lock/mempool (spec §4.3 phase 4).
func (r *Replica) commit(frame *Frame, scratch *State) {
	r.State = scratch
	r.Height++
	r.PrevFrameHash = frame.StateHash
	r.Mempool = nil
	r.proposal = nil
	r.locked = false
	r.signers = nil
}

// Receive processes one incoming consensus Message and returns zero or one
// outbound Message (spec §4.3's "receive(msg, now) → zero or more outbound
// messages" — in practice every phase of this protocol produces at most
// one reply per Receive call; a Commit message is rebroadcast by the
// proposer, not replied to, by its recipients).
func (r *Replica) Receive(msg *Message, now uint64) (*Message, error) {
	if !r.Validators.IsValidator(msg.From) {
		return nil, ErrUnknownValidator
	}

	switch msg.Phase {
	case PhasePropose:
		return r.receivePropose(msg, now)
	case PhasePrecommit:
		return r.receivePrecommit(msg)
	case PhaseCommit:
		return r.receiveCommit(msg)
	default:
		return nil, ErrUnknownTx
	}
}

// receivePropose handles an incoming proposed frame (spec §4.3 phase 3):
// verify the chain link, recompute the frame against this replica's own
// state to confirm the proposer's arithmetic, lock to it (rejecting a
// conflicting existing lock), and reply with a signed precommit addressed
// to the proposer.
func (r *Replica) receivePropose(msg *Message, now uint64) (*Message, error) {
	if msg.Frame == nil || msg.Frame.Height != r.Height {
		return nil, ErrChainBroken
	}
	if msg.Frame.PrevFrameHash != r.PrevFrameHash {
		return nil, ErrChainBroken
	}

	saved := r.Mempool
	r.Mempool = append([]Tx(nil), msg.Frame.Txs...)
	recomputed, _ := r.buildFrame(msg.Frame.Timestamp)
	r.Mempool = saved

	if recomputed.StateHash != msg.Frame.StateHash {
		return nil, ErrInvariantViolated
	}

	if r.locked && r.lockedHash != msg.Frame.StateHash {
		return nil, ErrConflictingLock
	}

	r.proposal = msg.Frame
	r.locked = true
	r.lockedHash = msg.Frame.StateHash

	sig, err := r.signer.Sign(msg.Frame.StateHash)
	if err != nil {
		return nil, err
	}

	proposer := r.Validators.Proposer()
	return &Message{
		From:   r.Self,
		To:     &proposer,
		Height: r.Height,
		Phase:  PhasePrecommit,
		Sig:    sig,
	}, nil
}

// receivePrecommit is processed only at the proposer: it accumulates a
// validator's precommit signature and, once accumulated shares reach
// threshold (spec §4.3 phase 4's quorum check), commits and broadcasts the
// committed frame plus the full signer set.
func (r *Replica) receivePrecommit(msg *Message) (*Message, error) {
	if !r.isProposer() || r.proposal == nil {
		// Not this replica's concern (only the proposer tallies
		// precommits); ignore rather than error so a stray precommit
		// doesn't wedge a non-proposer.
		return nil, nil
	}
	if !r.verifier.Verify(msg.From, r.proposal.StateHash, msg.Sig) {
		return nil, ErrInvariantViolated
	}

	r.signers[msg.From] = msg.Sig

	if !r.Validators.QuorumReached(r.signers) {
		return nil, nil
	}

	frame := r.proposal
	_, scratch := r.buildFrame(frame.Timestamp)
	signers := r.signers
	r.commit(frame, scratch)

	return &Message{
		From:    r.Self,
		Height:  frame.Height,
		Phase:   PhaseCommit,
		Frame:   frame,
		Signers: signers,
	}, nil
}

// receiveCommit applies a proposer-broadcast committed frame at a
// non-proposer replica, verifying the accumulated signer set clears
// quorum before trusting it (spec §4.3 phase 4's "broadcasts ... to all
// other validators so they may commit likewise").
func (r *Replica) receiveCommit(msg *Message) (*Message, error) {
	if msg.Frame == nil || msg.Frame.Height != r.Height {
		return nil, ErrChainBroken
	}
	if !r.Validators.QuorumReached(msg.Signers) {
		return nil, ErrQuorumNotReached
	}
	for id, sig := range msg.Signers {
		if !r.verifier.Verify(id, msg.Frame.StateHash, sig) {
			return nil, ErrInvariantViolated
		}
	}

	saved := r.Mempool
	r.Mempool = append([]Tx(nil), msg.Frame.Txs...)
	recomputed, scratch := r.buildFrame(msg.Frame.Timestamp)
	r.Mempool = saved

	if recomputed.StateHash != msg.Frame.StateHash {
		return nil, ErrInvariantViolated
	}

	r.commit(msg.Frame, scratch)
	return nil, nil
}
