package account

import (
	"math/big"
	"sort"

	"github.com/adimov-eth/xln-sub005/internal/xcrypto"
)

// GenesisHash is the distinguished 32-byte constant used in place of the
// source's literal "genesis" string marker for the PrevFrameHash of the
// very first account frame (height 1, built while the machine is still at
// height 0). Both sides must agree on this value
// byte-for-byte (spec §9).
var GenesisHash = xcrypto.Keccak256([]byte("xln/account/genesis"))

// Frame is a committed (or pending) account-tier frame (spec §3).
type Frame struct {
	Height        uint64
	Timestamp     uint64
	PrevFrameHash xcrypto.Hash
	AccountTxs    []Tx
	TokenIDs      []TokenID
	DeltaSums     []*big.Int
	StateHash     xcrypto.Hash
}

// snapshotDeltaSums extracts a deterministic, token-ID-sorted view of
// deltas into parallel TokenIDs/DeltaSums slices for frame construction.
func snapshotDeltaSums(deltas map[TokenID]*Delta) ([]TokenID, []*big.Int) {
	ids := make([]TokenID, 0, len(deltas))
	for id := range deltas {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })

	sums := make([]*big.Int, len(ids))
	for i, id := range ids {
		sums[i] = deltas[id].Net()
	}
	return ids, sums
}

func encodeTx(tx Tx) xcrypto.Raw {
	switch t := tx.(type) {
	case AddDeltaTx:
		return xcrypto.EncodeList(
			xcrypto.EncodeUint(uint64(TxAddDelta)),
			xcrypto.EncodeUint(uint64(t.TokenID)),
		)
	case DirectPaymentTx:
		return xcrypto.EncodeList(
			xcrypto.EncodeUint(uint64(TxDirectPayment)),
			xcrypto.EncodeUint(uint64(t.TokenID)),
			xcrypto.EncodeInt(t.Amount),
		)
	case HTLCPaymentTx:
		return xcrypto.EncodeList(
			xcrypto.EncodeUint(uint64(TxHTLCPayment)),
			xcrypto.EncodeUint(uint64(t.TokenID)),
			xcrypto.EncodeInt(t.Amount),
			xcrypto.EncodeBytes(t.HashLock.Bytes()),
			xcrypto.EncodeUint(t.Timeout),
		)
	case RevealSecretTx:
		return xcrypto.EncodeList(
			xcrypto.EncodeUint(uint64(TxRevealSecret)),
			xcrypto.EncodeBytes(t.Preimage),
		)
	case SetCreditLimitTx:
		return xcrypto.EncodeList(
			xcrypto.EncodeUint(uint64(TxSetCreditLimit)),
			xcrypto.EncodeUint(uint64(t.TokenID)),
			xcrypto.EncodeInt(t.Amount),
			xcrypto.EncodeUint(uint64(t.Side)),
		)
	case ReserveToCollateralTx:
		return xcrypto.EncodeList(
			xcrypto.EncodeUint(uint64(TxReserveToCollateral)),
			xcrypto.EncodeUint(uint64(t.TokenID)),
			xcrypto.EncodeInt(t.Collateral),
			xcrypto.EncodeInt(t.OnDelta),
			xcrypto.EncodeUint(uint64(t.Side)),
		)
	default:
		// Unreachable for any tx that passed AddTx's type switch.
		return xcrypto.EncodeBytes(nil)
	}
}

// ComputeStateHash computes keccak256(RLP(...)) over the frame's fields,
// the construction both sides must reproduce bitwise-identically (spec §3
// invariant 2, §8 invariant 2).
func ComputeStateHash(f *Frame) xcrypto.Hash {
	txItems := make([]xcrypto.Raw, len(f.AccountTxs))
	for i, tx := range f.AccountTxs {
		txItems[i] = encodeTx(tx)
	}

	tokenItems := make([]xcrypto.Raw, len(f.TokenIDs))
	for i, id := range f.TokenIDs {
		tokenItems[i] = xcrypto.EncodeUint(uint64(id))
	}

	sumItems := make([]xcrypto.Raw, len(f.DeltaSums))
	for i, s := range f.DeltaSums {
		sumItems[i] = xcrypto.EncodeInt(s)
	}

	return xcrypto.HashRLP(
		xcrypto.EncodeUint(f.Height),
		xcrypto.EncodeUint(f.Timestamp),
		xcrypto.EncodeBytes(f.PrevFrameHash.Bytes()),
		xcrypto.EncodeList(txItems...),
		xcrypto.EncodeList(tokenItems...),
		xcrypto.EncodeList(sumItems...),
	)
}
