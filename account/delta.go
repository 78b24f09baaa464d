package account

import "math/big"

// TokenID identifies a fungible asset tracked by the jurisdiction contract.
type TokenID uint32

// DefaultCreditLimit is the credit limit a newly added Delta starts with.
// Raising it requires an explicit SetCreditLimit tx (spec §4.2); starting at
// zero means a freshly opened token leg carries no unsecured risk until
// either side opts in.
var DefaultCreditLimit = big.NewInt(0)

// Delta is the per-token, per-bilateral-account balance record (spec §3).
// Collateral, credit limits, and allowances are always >= 0; OnDelta and
// OffDelta are signed.
type Delta struct {
	Collateral       *big.Int
	OnDelta          *big.Int
	OffDelta         *big.Int
	LeftCreditLimit  *big.Int
	RightCreditLimit *big.Int
	LeftAllowance    *big.Int
	RightAllowance   *big.Int
}

// NewDelta returns a zeroed Delta with DefaultCreditLimit on both sides.
func NewDelta() *Delta {
	return &Delta{
		Collateral:       big.NewInt(0),
		OnDelta:          big.NewInt(0),
		OffDelta:         big.NewInt(0),
		LeftCreditLimit:  new(big.Int).Set(DefaultCreditLimit),
		RightCreditLimit: new(big.Int).Set(DefaultCreditLimit),
		LeftAllowance:    big.NewInt(0),
		RightAllowance:   big.NewInt(0),
	}
}

// Clone returns a deep copy, used when snapshotting deltas into a pending
// frame so the live state is untouched until commit.
func (d *Delta) Clone() *Delta {
	return &Delta{
		Collateral:       new(big.Int).Set(d.Collateral),
		OnDelta:          new(big.Int).Set(d.OnDelta),
		OffDelta:         new(big.Int).Set(d.OffDelta),
		LeftCreditLimit:  new(big.Int).Set(d.LeftCreditLimit),
		RightCreditLimit: new(big.Int).Set(d.RightCreditLimit),
		LeftAllowance:    new(big.Int).Set(d.LeftAllowance),
		RightAllowance:   new(big.Int).Set(d.RightAllowance),
	}
}

// Net returns ondelta+offdelta.
func (d *Delta) Net() *big.Int {
	return new(big.Int).Add(d.OnDelta, d.OffDelta)
}

func maxBig(a, b *big.Int) *big.Int {
	if a.Cmp(b) >= 0 {
		return a
	}
	return b
}

func minBig(a, b *big.Int) *big.Int {
	if a.Cmp(b) <= 0 {
		return a
	}
	return b
}

func clampBig(v, lo, hi *big.Int) *big.Int {
	if v.Cmp(lo) < 0 {
		return lo
	}
	if v.Cmp(hi) > 0 {
		return hi
	}
	return v
}

var zero = big.NewInt(0)

// deltaBreakdown computes the named intermediate quantities from spec §3's
// "Derived capacities" bullet, as reported in worked examples (e.g. "A
// outCollateral=0, A outPeerCredit=100"):
//
//	d             = ondelta + offdelta
//	inCollateral  = max(0, collateral - max(0,d))
//	outCollateral = min(max(0,d), collateral)
//	inOwnCredit   = clamp(max(0,-d), 0, ownCreditLimit)
//	outPeerCredit = clamp(max(0, d-collateral), 0, peerCreditLimit)
//
// These describe how much of the current d is backed by collateral versus
// by each side's extended credit; they are not themselves the forward/
// backward capacity used by CheckInvariants (see capacitiesFromLeft).
func (d *Delta) deltaBreakdown(ownCreditLimit, peerCreditLimit *big.Int) (inCollateral, outCollateral, inOwnCredit, outPeerCredit *big.Int) {
	delta := d.Net()
	dPos := maxBig(zero, delta)

	outCollateral = minBig(dPos, d.Collateral)
	inCollateral = maxBig(zero, new(big.Int).Sub(d.Collateral, dPos))

	negDelta := maxBig(zero, new(big.Int).Neg(delta))
	inOwnCredit = clampBig(negDelta, zero, ownCreditLimit)

	overCollateral := maxBig(zero, new(big.Int).Sub(delta, d.Collateral))
	outPeerCredit = clampBig(overCollateral, zero, peerCreditLimit)
	return inCollateral, outCollateral, inOwnCredit, outPeerCredit
}

// capacitiesFromLeft computes (forward, backward) capacity as seen from the
// canonical left side of the account: the remaining room to push d further
// up (forward, bounded by collateral+rightCreditLimit) and the remaining
// room to pull it back down (backward, bounded by -leftCreditLimit). Unlike
// the "used so far" breakdown in deltaBreakdown, this is the quantity spec
// §3's invariant 3 and §8 invariant 3 hold constant at collateral +
// leftCreditLimit + rightCreditLimit across every reachable d:
//
//	forward  = (collateral + rightCreditLimit) - d
//	backward = d + leftCreditLimit
//
// The mirrored view for the right side swaps forward and backward, since
// right's forward (right→left) direction is a decreasing d.
func (d *Delta) capacitiesFromLeft() (forward, backward *big.Int) {
	delta := d.Net()
	forward = new(big.Int).Sub(new(big.Int).Add(d.Collateral, d.RightCreditLimit), delta)
	backward = new(big.Int).Add(delta, d.LeftCreditLimit)
	return forward, backward
}

// Capacities returns (forward, backward) capacity from selfIsLeft's
// perspective: the capacity to push the delta further in the self→peer
// direction (forward) and to receive it back (backward).
func (d *Delta) Capacities(selfIsLeft bool) (forward, backward *big.Int) {
	f, b := d.capacitiesFromLeft()
	if selfIsLeft {
		return f, b
	}
	return b, f
}

// Breakdown reports inCollateral/outCollateral/inOwnCredit/outPeerCredit
// from selfIsLeft's perspective, matching the reporting style of spec §8's
// worked scenarios (e.g. "A outCollateral=0, A outPeerCredit=100").
func (d *Delta) Breakdown(selfIsLeft bool) (inCollateral, outCollateral, inOwnCredit, outPeerCredit *big.Int) {
	ownCL, peerCL := d.LeftCreditLimit, d.RightCreditLimit
	if !selfIsLeft {
		ownCL, peerCL = d.RightCreditLimit, d.LeftCreditLimit
	}
	inC, outC, inOwn, outPeer := d.deltaBreakdown(ownCL, peerCL)
	if selfIsLeft {
		return inC, outC, inOwn, outPeer
	}
	// Mirror collateral/credit roles for the right side: right's "out"
	// is left's "in" and vice versa, since a positive d (left→right)
	// moves collateral/credit out of left's side and into right's.
	return outC, inC, outPeer, inOwn
}

// CheckInvariants verifies the §3/§8 capacity invariant: forward+backward
// capacity always equals collateral+leftCreditLimit+rightCreditLimit. It
// also rejects a negative collateral or credit limit.
func (d *Delta) CheckInvariants() error {
	if d.Collateral.Sign() < 0 {
		return ErrInvariantViolated
	}
	if d.LeftCreditLimit.Sign() < 0 || d.RightCreditLimit.Sign() < 0 {
		return ErrInvariantViolated
	}

	delta := d.Net()
	lowerBound := new(big.Int).Neg(d.LeftCreditLimit)
	upperBound := new(big.Int).Add(d.Collateral, d.RightCreditLimit)
	if delta.Cmp(lowerBound) < 0 || delta.Cmp(upperBound) > 0 {
		return ErrInvariantViolated
	}

	forward, backward := d.capacitiesFromLeft()
	sum := new(big.Int).Add(forward, backward)
	want := new(big.Int).Add(d.Collateral, d.LeftCreditLimit)
	want.Add(want, d.RightCreditLimit)
	if sum.Cmp(want) != 0 {
		return ErrInvariantViolated
	}

	return nil
}
