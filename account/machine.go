package account

import (
	"math/big"

	"github.com/adimov-eth/xln-sub005/internal/xcrypto"
)

// Verifier checks a signature over a state hash. TestVerifier below matches
// TestSigner for use in tests only; production wires a real BLS/ECDSA
// verifier (spec §9 design note).
type Verifier interface {
	Verify(hash xcrypto.Hash, sig Signature) bool
}

// TestVerifier accepts any TestSigner-produced signature whose embedded
// hash matches. Test-only: never wire into a production entry point.
type TestVerifier struct{}

// Verify implements Verifier.
func (TestVerifier) Verify(hash xcrypto.Hash, sig Signature) bool {
	if len(sig) != 8+32 {
		return false
	}
	for i, b := range hash.Bytes() {
		if sig[8+i] != b {
			return false
		}
	}
	return true
}

// Machine is the bilateral (2-of-2) account consensus state machine between
// Self and Peer (spec §4.2). One Machine instance models one side's view of
// the shared ledger.
type Machine struct {
	Self xcrypto.EntityID
	Peer xcrypto.EntityID

	Height uint64

	// sendCounter is this side's own outgoing message sequence number;
	// recvCounter is the last accepted sequence number from the peer.
	// The two are independent unidirectional streams (not a single
	// shared counter) precisely so that simultaneous proposals — each
	// side emitting its own message 1 before seeing the other's — don't
	// collide on a shared sequence space.
	sendCounter uint64
	recvCounter uint64

	Mempool []Tx

	CurrentFrame *Frame
	PendingFrame *Frame

	Deltas map[TokenID]*Delta
	HTLCs  map[uint64]*HTLC

	nextHTLCID uint64

	// pending* hold the scratch state produced by the last Propose call,
	// merged into the fields above on commit. An accepted incoming frame
	// is committed directly by Receive and never passes through them.
	pendingDeltas     map[TokenID]*Delta
	pendingHTLCs      map[uint64]*HTLC
	pendingNextHTLCID uint64

	signer   Signer
	verifier Verifier

	// StallTimeout is how long, in the same units as the `now` passed to
	// Propose/Receive/Tick, a pending frame may go un-acked before Tick
	// re-sends it (spec §5, SPEC_FULL.md §C).
	StallTimeout uint64
	lastProposeAt uint64
}

// NewMachine constructs a fresh Machine at height 0 with no open tokens.
func NewMachine(self, peer xcrypto.EntityID, signer Signer, verifier Verifier) *Machine {
	return &Machine{
		Self:         self,
		Peer:         peer,
		Deltas:       make(map[TokenID]*Delta),
		HTLCs:        make(map[uint64]*HTLC),
		signer:       signer,
		verifier:     verifier,
		StallTimeout: 30,
	}
}

// IsLeft reports whether Self is the canonical left side of this account.
func (m *Machine) IsLeft() bool {
	return xcrypto.IsLeft(m.Self, m.Peer)
}

// AddTx appends a tx to the local mempool. It is not validated until a
// frame proposal applies it.
func (m *Machine) AddTx(tx Tx) {
	m.Mempool = append(m.Mempool, tx)
}

// expectedPrevHash returns the PrevFrameHash a new frame at m.Height+1 must
// carry: the genesis marker at height 0, else our current frame's
// stateHash.
func (m *Machine) expectedPrevHash() xcrypto.Hash {
	if m.CurrentFrame == nil {
		return GenesisHash
	}
	return m.CurrentFrame.StateHash
}

// cloneDeltas deep-copies the live delta set for scratch application.
func cloneDeltas(src map[TokenID]*Delta) map[TokenID]*Delta {
	out := make(map[TokenID]*Delta, len(src))
	for k, v := range src {
		out[k] = v.Clone()
	}
	return out
}

func cloneHTLCs(src map[uint64]*HTLC) map[uint64]*HTLC {
	out := make(map[uint64]*HTLC, len(src))
	for k, v := range src {
		out[k] = v.Clone()
	}
	return out
}

// buildFrame applies txs against a scratch copy of the live state at
// timestamp ts, returning the resulting Frame plus the scratch state
// (deltas/htlcs/nextHTLCID) it produced. Txs that fail validation are
// skipped, never partially applied (spec §4.2, §7).
func (m *Machine) buildFrame(txs []Tx, ts uint64) (*Frame, map[TokenID]*Delta, map[uint64]*HTLC, uint64) {
	st := &applyState{
		Deltas:     cloneDeltas(m.Deltas),
		HTLCs:      cloneHTLCs(m.HTLCs),
		NextHTLCID: m.nextHTLCID,
		SelfIsLeft: m.IsLeft(),
		Now:        ts,
	}
	ExpireHTLCs(st.HTLCs, ts)

	applied := make([]Tx, 0, len(txs))
	for _, tx := range txs {
		if err := tx.Apply(st); err != nil {
			log.Debugf("account: rejecting tx %T: %v", tx, err)
			continue
		}
		applied = append(applied, tx)
	}

	tokenIDs, sums := snapshotDeltaSums(st.Deltas)
	frame := &Frame{
		Height:        m.Height + 1,
		Timestamp:     ts,
		PrevFrameHash: m.expectedPrevHash(),
		AccountTxs:    applied,
		TokenIDs:      tokenIDs,
		DeltaSums:     sums,
	}
	frame.StateHash = ComputeStateHash(frame)

	return frame, st.Deltas, st.HTLCs, st.NextHTLCID
}

// Propose snapshots the mempool into a new frame and returns the outbound
// message carrying it, or ErrNotReady if the mempool is empty or a pending
// frame already exists (spec §4.2).
func (m *Machine) Propose(now uint64) (*Message, error) {
	if len(m.Mempool) == 0 || m.PendingFrame != nil {
		return nil, ErrNotReady
	}

	txs := m.Mempool
	m.Mempool = nil

	frame, deltas, htlcs, nextID := m.buildFrame(txs, now)

	m.PendingFrame = frame
	m.pendingDeltas = deltas
	m.pendingHTLCs = htlcs
	m.pendingNextHTLCID = nextID
	m.lastProposeAt = now

	sig, err := m.signer.Sign(frame.StateHash)
	if err != nil {
		return nil, err
	}

	m.sendCounter++
	return &Message{
		From:          m.Self,
		To:            m.Peer,
		Height:        frame.Height,
		NewFrame:      frame,
		NewSignatures: []Signature{sig},
		Counter:       m.sendCounter,
	}, nil
}

// commitPending promotes PendingFrame (and its scratch state) to
// CurrentFrame, bumping height (spec §4.2 rule 2).
func (m *Machine) commitPending() {
	m.CurrentFrame = m.PendingFrame
	m.Height = m.PendingFrame.Height
	m.Deltas = m.pendingDeltas
	m.HTLCs = m.pendingHTLCs
	m.nextHTLCID = m.pendingNextHTLCID

	m.PendingFrame = nil
	m.pendingDeltas = nil
	m.pendingHTLCs = nil
}

// rollbackPending discards our own pending proposal, returning its txs to
// the front of the mempool so they're retried on the next Propose (spec
// §4.2 "right rolls back").
func (m *Machine) rollbackPending() {
	m.Mempool = append(append([]Tx{}, m.PendingFrame.AccountTxs...), m.Mempool...)
	m.PendingFrame = nil
	m.pendingDeltas = nil
	m.pendingHTLCs = nil
}

// Receive processes an inbound Message and returns an optional outbound
// reply (spec §4.2).
func (m *Machine) Receive(msg *Message, now uint64) (*Message, error) {
	expected := m.recvCounter + 1
	if msg.Counter != expected {
		return nil, ErrReplayDetected
	}
	// recvCounter tracks the peer's message sequence, not frame
	// acceptance: it advances here even if the frame content below is
	// later rejected. A rejected frame is a fatal protocol error
	// requiring out-of-band resync, not a sequencing issue the counter
	// can paper over.
	m.recvCounter = msg.Counter

	// Rule 2: an ack for our own pending frame.
	if len(msg.PrevSignatures) > 0 {
		if m.PendingFrame == nil {
			return nil, ErrNoPendingFrame
		}
		if m.verifier.Verify(m.PendingFrame.StateHash, msg.PrevSignatures[0]) {
			m.commitPending()
		}
	}

	if msg.NewFrame == nil {
		return nil, nil
	}

	// Rule 3: an incoming proposal.
	if msg.NewFrame.PrevFrameHash != m.expectedPrevHash() {
		return nil, ErrChainBroken
	}

	if m.PendingFrame != nil {
		// Simultaneous proposal at the same height (spec §4.2, §8
		// invariant 6, §9 design note): left wins.
		if m.IsLeft() {
			// We are left and win; ignore the incoming frame and
			// keep waiting for our own ACK.
			return nil, nil
		}
		// We are right and lose: roll back our own proposal.
		m.rollbackPending()
	}

	// Recompute the frame ourselves against our own live state to verify
	// the sender's stateHash bit-for-bit (spec §3 invariant 2) before
	// trusting and signing it.
	recomputed, deltas, htlcs, nextID := m.buildFrame(msg.NewFrame.AccountTxs, msg.NewFrame.Timestamp)
	if recomputed.StateHash != msg.NewFrame.StateHash {
		return nil, ErrInvariantViolated
	}

	sig, err := m.signer.Sign(recomputed.StateHash)
	if err != nil {
		return nil, err
	}

	// The incoming frame already carries the proposer's signature
	// (msg.NewSignatures[0]); adding our own finalizes it 2-of-2, so we
	// commit immediately rather than holding it as pending (spec §4.2).
	m.CurrentFrame = recomputed
	m.Height = recomputed.Height
	m.Deltas = deltas
	m.HTLCs = htlcs
	m.nextHTLCID = nextID

	m.sendCounter++
	return &Message{
		From:           m.Self,
		To:             m.Peer,
		Height:         recomputed.Height,
		PrevSignatures: []Signature{sig},
		Counter:        m.sendCounter,
	}, nil
}

// Tick drives time-dependent behavior not triggered by an inbound message:
// proposing from a non-empty mempool, or re-sending a stalled pending
// frame's signature after StallTimeout has elapsed without an ACK
// (SPEC_FULL.md §C, spec §5's "application-level heartbeat").
func (m *Machine) Tick(now uint64) (*Message, error) {
	if m.PendingFrame != nil {
		if now < m.lastProposeAt+m.StallTimeout {
			return nil, nil
		}
		sig, err := m.signer.Sign(m.PendingFrame.StateHash)
		if err != nil {
			return nil, err
		}
		m.lastProposeAt = now
		m.sendCounter++
		return &Message{
			From:          m.Self,
			To:            m.Peer,
			Height:        m.PendingFrame.Height,
			NewFrame:      m.PendingFrame,
			NewSignatures: []Signature{sig},
			Counter:       m.sendCounter,
		}, nil
	}

	if len(m.Mempool) == 0 {
		return nil, nil
	}
	return m.Propose(now)
}

// Capacities returns the current forward/backward capacity of tokenID from
// Self's perspective, or (0,0) if no Delta exists for tokenID yet.
func (m *Machine) Capacities(tokenID TokenID) (forward, backward *big.Int) {
	d, ok := m.Deltas[tokenID]
	if !ok {
		return big.NewInt(0), big.NewInt(0)
	}
	return d.Capacities(m.IsLeft())
}
