package entity

import (
	"github.com/adimov-eth/xln-sub005/account"
	"github.com/adimov-eth/xln-sub005/internal/xcrypto"
)

// GenesisHash is the distinguished constant used for the PrevFrameHash of
// the very first entity frame (height 0), the entity-tier analogue of
// account.GenesisHash.
var GenesisHash = xcrypto.Keccak256([]byte("xln/entity/genesis"))

// Frame is a committed (or pending) entity-tier frame (spec §4.3).
type Frame struct {
	Height        uint64
	Timestamp     uint64
	PrevFrameHash xcrypto.Hash
	Txs           []Tx
	StateHash     xcrypto.Hash
}

func encodeTx(tx Tx) xcrypto.Raw {
	switch t := tx.(type) {
	case ImportReplicaTx:
		return xcrypto.EncodeList(
			xcrypto.EncodeUint(uint64(TxImportReplica)),
			xcrypto.EncodeUint(t.Height),
			xcrypto.EncodeBytes(t.Snapshot),
		)
	case OpenAccountTx:
		return xcrypto.EncodeList(
			xcrypto.EncodeUint(uint64(TxOpenAccount)),
			xcrypto.EncodeBytes(t.Peer.Bytes()),
		)
	case DirectPaymentTx:
		return xcrypto.EncodeList(
			xcrypto.EncodeUint(uint64(TxDirectPayment)),
			xcrypto.EncodeBytes(t.Peer.Bytes()),
			xcrypto.EncodeUint(uint64(t.TokenID)),
			xcrypto.EncodeInt(t.Amount),
		)
	case HTLCPaymentTx:
		return xcrypto.EncodeList(
			xcrypto.EncodeUint(uint64(TxHTLCPayment)),
			xcrypto.EncodeBytes(t.Peer.Bytes()),
			xcrypto.EncodeUint(uint64(t.TokenID)),
			xcrypto.EncodeInt(t.Amount),
			xcrypto.EncodeBytes(t.HashLock.Bytes()),
			xcrypto.EncodeUint(t.Timeout),
		)
	case ReserveToReserveTx:
		return xcrypto.EncodeList(
			xcrypto.EncodeUint(uint64(TxReserveToReserve)),
			xcrypto.EncodeBytes(t.To.Bytes()),
			xcrypto.EncodeUint(uint64(t.TokenID)),
			xcrypto.EncodeInt(t.Amount),
		)
	case RequestWithdrawalTx:
		return xcrypto.EncodeList(
			xcrypto.EncodeUint(uint64(TxRequestWithdrawal)),
			xcrypto.EncodeUint(uint64(t.TokenID)),
			xcrypto.EncodeInt(t.Amount),
		)
	case StartDisputeTx:
		return xcrypto.EncodeList(
			xcrypto.EncodeUint(uint64(TxStartDispute)),
			xcrypto.EncodeBytes(t.Peer.Bytes()),
		)
	case JBroadcastTx:
		return xcrypto.EncodeList(
			xcrypto.EncodeUint(uint64(TxJBroadcast)),
			xcrypto.EncodeBytes(t.Payload),
		)
	case ProfileUpdateTx:
		return xcrypto.EncodeList(
			xcrypto.EncodeUint(uint64(TxProfileUpdate)),
			xcrypto.EncodeBytes(t.Profile),
		)
	case PlaceSwapOfferTx:
		return xcrypto.EncodeList(
			xcrypto.EncodeUint(uint64(TxPlaceSwapOffer)),
			xcrypto.EncodeUint(uint64(t.SellToken)),
			xcrypto.EncodeInt(t.SellAmount),
			xcrypto.EncodeUint(uint64(t.BuyToken)),
			xcrypto.EncodeInt(t.BuyAmount),
		)
	case CancelSwapOfferTx:
		return xcrypto.EncodeList(
			xcrypto.EncodeUint(uint64(TxCancelSwapOffer)),
			xcrypto.EncodeUint(t.OfferID),
		)
	case AccountInputTx:
		return xcrypto.EncodeList(
			xcrypto.EncodeUint(uint64(TxAccountInput)),
			xcrypto.EncodeBytes(t.Peer.Bytes()),
			xcrypto.EncodeBytes(account.EncodeMessage(t.Msg)),
		)
	case ImportJTx:
		return xcrypto.EncodeList(
			xcrypto.EncodeUint(uint64(TxImportJ)),
			t.Event.encode(),
		)
	default:
		// Unreachable for any tx that passed AddTx's type switch.
		return xcrypto.EncodeBytes(nil)
	}
}

// ComputeStateHash computes keccak256(RLP(...)) over the frame's fields,
// the construction both replicas (and the jurisdiction contract checking a
// hanko) must reproduce bitwise-identically (spec §3 invariant 2).
func ComputeStateHash(f *Frame) xcrypto.Hash {
	txItems := make([]xcrypto.Raw, len(f.Txs))
	for i, tx := range f.Txs {
		txItems[i] = encodeTx(tx)
	}

	return xcrypto.HashRLP(
		xcrypto.EncodeUint(f.Height),
		xcrypto.EncodeUint(f.Timestamp),
		xcrypto.EncodeBytes(f.PrevFrameHash.Bytes()),
		xcrypto.EncodeList(txItems...),
	)
}
