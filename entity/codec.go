package entity

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"io"
	"math/big"

	"github.com/adimov-eth/xln-sub005/account"
	"github.com/adimov-eth/xln-sub005/internal/xcrypto"
)

// This file implements the binary wire codec for entity txs, frames, and
// consensus messages, mirroring account/codec.go's length-prefixed framing
// exactly: byte fields are length-prefixed, integers big-endian, decode is
// the identity of encode (spec §8 round-trip law). It is independent of the
// RLP-based hashing in frame.go.

func writeUint64(buf *bytes.Buffer, v uint64) {
	var b [8]byte
	binary.BigEndian.PutUint64(b[:], v)
	buf.Write(b[:])
}

func readUint64(r io.Reader) (uint64, error) {
	var b [8]byte
	if _, err := io.ReadFull(r, b[:]); err != nil {
		return 0, err
	}
	return binary.BigEndian.Uint64(b[:]), nil
}

func writeBytes(buf *bytes.Buffer, b []byte) {
	writeUint64(buf, uint64(len(b)))
	buf.Write(b)
}

func readBytes(r io.Reader) ([]byte, error) {
	n, err := readUint64(r)
	if err != nil {
		return nil, err
	}
	b := make([]byte, n)
	if _, err := io.ReadFull(r, b); err != nil {
		return nil, err
	}
	return b, nil
}

func writeBigInt(buf *bytes.Buffer, v *big.Int) {
	sign := byte(0x00)
	mag := v
	if v.Sign() < 0 {
		sign = 0x01
		mag = new(big.Int).Neg(v)
	}
	buf.WriteByte(sign)
	writeBytes(buf, mag.Bytes())
}

func readBigInt(r io.Reader) (*big.Int, error) {
	var sign [1]byte
	if _, err := io.ReadFull(r, sign[:]); err != nil {
		return nil, err
	}
	magBytes, err := readBytes(r)
	if err != nil {
		return nil, err
	}
	v := new(big.Int).SetBytes(magBytes)
	if sign[0] == 0x01 {
		v.Neg(v)
	}
	return v, nil
}

func writeHash(buf *bytes.Buffer, h xcrypto.Hash) {
	buf.Write(h.Bytes())
}

func readHash(r io.Reader) (xcrypto.Hash, error) {
	var h xcrypto.Hash
	_, err := io.ReadFull(r, h[:])
	return h, err
}

func writeEntityID(buf *bytes.Buffer, id xcrypto.EntityID) {
	buf.Write(id.Bytes())
}

func readEntityID(r io.Reader) (xcrypto.EntityID, error) {
	var id xcrypto.EntityID
	_, err := io.ReadFull(r, id[:])
	return id, err
}

// EncodeJEvent serializes a settlement event to its wire form.
func EncodeJEvent(e JEvent) []byte {
	var buf bytes.Buffer

	switch ev := e.(type) {
	case EntityRegisteredEvent:
		buf.WriteByte(byte(jEventEntityRegistered))
		writeEntityID(&buf, ev.EntityID)
		writeUint64(&buf, ev.Number)
		writeHash(&buf, ev.BoardHash)
	case ReserveUpdatedEvent:
		buf.WriteByte(byte(jEventReserveUpdated))
		writeEntityID(&buf, ev.Entity)
		writeUint64(&buf, uint64(ev.TokenID))
		writeBigInt(&buf, ev.NewAmount)
	case ReserveToCollateralEvent:
		buf.WriteByte(byte(jEventReserveToCollateral))
		writeEntityID(&buf, ev.Peer)
		writeUint64(&buf, uint64(ev.TokenID))
		writeBigInt(&buf, ev.Collateral)
		writeBigInt(&buf, ev.OnDelta)
		buf.WriteByte(byte(ev.Side))
	case SettlementProcessedEvent:
		buf.WriteByte(byte(jEventSettlementProcessed))
		writeEntityID(&buf, ev.Left)
		writeEntityID(&buf, ev.Right)
		writeUint64(&buf, uint64(len(ev.Diffs)))
		for _, d := range ev.Diffs {
			writeUint64(&buf, uint64(d.TokenID))
			writeBigInt(&buf, d.Collateral)
			writeBigInt(&buf, d.OnDelta)
		}
		buf.WriteByte(byte(ev.Side))
	case DisputeStartedEvent:
		buf.WriteByte(byte(jEventDisputeStarted))
		writeEntityID(&buf, ev.Peer)
	case DisputeFinalizedEvent:
		buf.WriteByte(byte(jEventDisputeFinalized))
		writeEntityID(&buf, ev.Peer)
	}

	return buf.Bytes()
}

// DecodeJEvent parses a settlement event from its wire form. An
// unrecognized kind byte returns ErrUnknownTx.
func DecodeJEvent(data []byte) (JEvent, error) {
	r := bytes.NewReader(data)

	var kindByte [1]byte
	if _, err := io.ReadFull(r, kindByte[:]); err != nil {
		return nil, err
	}

	switch jEventKind(kindByte[0]) {
	case jEventEntityRegistered:
		id, err := readEntityID(r)
		if err != nil {
			return nil, err
		}
		number, err := readUint64(r)
		if err != nil {
			return nil, err
		}
		boardHash, err := readHash(r)
		if err != nil {
			return nil, err
		}
		return EntityRegisteredEvent{EntityID: id, Number: number, BoardHash: boardHash}, nil

	case jEventReserveUpdated:
		entity, err := readEntityID(r)
		if err != nil {
			return nil, err
		}
		tokenID, err := readUint64(r)
		if err != nil {
			return nil, err
		}
		amount, err := readBigInt(r)
		if err != nil {
			return nil, err
		}
		return ReserveUpdatedEvent{Entity: entity, TokenID: account.TokenID(tokenID), NewAmount: amount}, nil

	case jEventReserveToCollateral:
		peer, err := readEntityID(r)
		if err != nil {
			return nil, err
		}
		tokenID, err := readUint64(r)
		if err != nil {
			return nil, err
		}
		collateral, err := readBigInt(r)
		if err != nil {
			return nil, err
		}
		onDelta, err := readBigInt(r)
		if err != nil {
			return nil, err
		}
		var side [1]byte
		if _, err := io.ReadFull(r, side[:]); err != nil {
			return nil, err
		}
		return ReserveToCollateralEvent{
			Peer: peer, TokenID: account.TokenID(tokenID),
			Collateral: collateral, OnDelta: onDelta, Side: account.Side(side[0]),
		}, nil

	case jEventSettlementProcessed:
		left, err := readEntityID(r)
		if err != nil {
			return nil, err
		}
		right, err := readEntityID(r)
		if err != nil {
			return nil, err
		}
		n, err := readUint64(r)
		if err != nil {
			return nil, err
		}
		diffs := make([]SettlementDiff, n)
		for i := range diffs {
			tokenID, err := readUint64(r)
			if err != nil {
				return nil, err
			}
			collateral, err := readBigInt(r)
			if err != nil {
				return nil, err
			}
			onDelta, err := readBigInt(r)
			if err != nil {
				return nil, err
			}
			diffs[i] = SettlementDiff{TokenID: account.TokenID(tokenID), Collateral: collateral, OnDelta: onDelta}
		}
		var side [1]byte
		if _, err := io.ReadFull(r, side[:]); err != nil {
			return nil, err
		}
		return SettlementProcessedEvent{Left: left, Right: right, Diffs: diffs, Side: account.Side(side[0])}, nil

	case jEventDisputeStarted:
		peer, err := readEntityID(r)
		if err != nil {
			return nil, err
		}
		return DisputeStartedEvent{Peer: peer}, nil

	case jEventDisputeFinalized:
		peer, err := readEntityID(r)
		if err != nil {
			return nil, err
		}
		return DisputeFinalizedEvent{Peer: peer}, nil

	default:
		return nil, fmt.Errorf("%w: jEvent kind=%d", ErrUnknownTx, kindByte[0])
	}
}

// EncodeTx serializes a single entity Tx to its wire form.
func EncodeTx(tx Tx) []byte {
	var buf bytes.Buffer
	buf.WriteByte(byte(tx.Kind()))

	switch t := tx.(type) {
	case ImportReplicaTx:
		writeUint64(&buf, t.Height)
		writeBytes(&buf, t.Snapshot)
	case OpenAccountTx:
		writeEntityID(&buf, t.Peer)
	case DirectPaymentTx:
		writeEntityID(&buf, t.Peer)
		writeUint64(&buf, uint64(t.TokenID))
		writeBigInt(&buf, t.Amount)
	case HTLCPaymentTx:
		writeEntityID(&buf, t.Peer)
		writeUint64(&buf, uint64(t.TokenID))
		writeBigInt(&buf, t.Amount)
		writeHash(&buf, t.HashLock)
		writeUint64(&buf, t.Timeout)
	case ReserveToReserveTx:
		writeEntityID(&buf, t.To)
		writeUint64(&buf, uint64(t.TokenID))
		writeBigInt(&buf, t.Amount)
	case RequestWithdrawalTx:
		writeUint64(&buf, uint64(t.TokenID))
		writeBigInt(&buf, t.Amount)
	case StartDisputeTx:
		writeEntityID(&buf, t.Peer)
	case JBroadcastTx:
		writeBytes(&buf, t.Payload)
	case ProfileUpdateTx:
		writeBytes(&buf, t.Profile)
	case PlaceSwapOfferTx:
		writeUint64(&buf, uint64(t.SellToken))
		writeBigInt(&buf, t.SellAmount)
		writeUint64(&buf, uint64(t.BuyToken))
		writeBigInt(&buf, t.BuyAmount)
	case CancelSwapOfferTx:
		writeUint64(&buf, t.OfferID)
	case AccountInputTx:
		writeEntityID(&buf, t.Peer)
		writeBytes(&buf, account.EncodeMessage(t.Msg))
	case ImportJTx:
		writeBytes(&buf, EncodeJEvent(t.Event))
	}

	return buf.Bytes()
}

// DecodeTx parses a single entity Tx from its wire form. An unrecognized
// kind byte returns ErrUnknownTx.
func DecodeTx(data []byte) (Tx, error) {
	r := bytes.NewReader(data)

	var kindByte [1]byte
	if _, err := io.ReadFull(r, kindByte[:]); err != nil {
		return nil, err
	}

	switch TxKind(kindByte[0]) {
	case TxImportReplica:
		height, err := readUint64(r)
		if err != nil {
			return nil, err
		}
		snapshot, err := readBytes(r)
		if err != nil {
			return nil, err
		}
		return ImportReplicaTx{Height: height, Snapshot: snapshot}, nil

	case TxOpenAccount:
		peer, err := readEntityID(r)
		if err != nil {
			return nil, err
		}
		return OpenAccountTx{Peer: peer}, nil

	case TxDirectPayment:
		peer, err := readEntityID(r)
		if err != nil {
			return nil, err
		}
		tokenID, err := readUint64(r)
		if err != nil {
			return nil, err
		}
		amount, err := readBigInt(r)
		if err != nil {
			return nil, err
		}
		return DirectPaymentTx{Peer: peer, TokenID: account.TokenID(tokenID), Amount: amount}, nil

	case TxHTLCPayment:
		peer, err := readEntityID(r)
		if err != nil {
			return nil, err
		}
		tokenID, err := readUint64(r)
		if err != nil {
			return nil, err
		}
		amount, err := readBigInt(r)
		if err != nil {
			return nil, err
		}
		hashLock, err := readHash(r)
		if err != nil {
			return nil, err
		}
		timeout, err := readUint64(r)
		if err != nil {
			return nil, err
		}
		return HTLCPaymentTx{
			Peer: peer, TokenID: account.TokenID(tokenID), Amount: amount,
			HashLock: hashLock, Timeout: timeout,
		}, nil

	case TxReserveToReserve:
		to, err := readEntityID(r)
		if err != nil {
			return nil, err
		}
		tokenID, err := readUint64(r)
		if err != nil {
			return nil, err
		}
		amount, err := readBigInt(r)
		if err != nil {
			return nil, err
		}
		return ReserveToReserveTx{To: to, TokenID: account.TokenID(tokenID), Amount: amount}, nil

	case TxRequestWithdrawal:
		tokenID, err := readUint64(r)
		if err != nil {
			return nil, err
		}
		amount, err := readBigInt(r)
		if err != nil {
			return nil, err
		}
		return RequestWithdrawalTx{TokenID: account.TokenID(tokenID), Amount: amount}, nil

	case TxStartDispute:
		peer, err := readEntityID(r)
		if err != nil {
			return nil, err
		}
		return StartDisputeTx{Peer: peer}, nil

	case TxJBroadcast:
		payload, err := readBytes(r)
		if err != nil {
			return nil, err
		}
		return JBroadcastTx{Payload: payload}, nil

	case TxProfileUpdate:
		profile, err := readBytes(r)
		if err != nil {
			return nil, err
		}
		return ProfileUpdateTx{Profile: profile}, nil

	case TxPlaceSwapOffer:
		sellToken, err := readUint64(r)
		if err != nil {
			return nil, err
		}
		sellAmount, err := readBigInt(r)
		if err != nil {
			return nil, err
		}
		buyToken, err := readUint64(r)
		if err != nil {
			return nil, err
		}
		buyAmount, err := readBigInt(r)
		if err != nil {
			return nil, err
		}
		return PlaceSwapOfferTx{
			SellToken: account.TokenID(sellToken), SellAmount: sellAmount,
			BuyToken: account.TokenID(buyToken), BuyAmount: buyAmount,
		}, nil

	case TxCancelSwapOffer:
		offerID, err := readUint64(r)
		if err != nil {
			return nil, err
		}
		return CancelSwapOfferTx{OfferID: offerID}, nil

	case TxAccountInput:
		peer, err := readEntityID(r)
		if err != nil {
			return nil, err
		}
		raw, err := readBytes(r)
		if err != nil {
			return nil, err
		}
		msg, err := account.DecodeMessage(raw)
		if err != nil {
			return nil, err
		}
		return AccountInputTx{Peer: peer, Msg: msg}, nil

	case TxImportJ:
		raw, err := readBytes(r)
		if err != nil {
			return nil, err
		}
		ev, err := DecodeJEvent(raw)
		if err != nil {
			return nil, err
		}
		return ImportJTx{Event: ev}, nil

	default:
		return nil, fmt.Errorf("%w: kind=%d", ErrUnknownTx, kindByte[0])
	}
}

// EncodeFrame serializes an entity Frame to its wire form.
func EncodeFrame(f *Frame) []byte {
	var buf bytes.Buffer
	writeUint64(&buf, f.Height)
	writeUint64(&buf, f.Timestamp)
	writeHash(&buf, f.PrevFrameHash)

	writeUint64(&buf, uint64(len(f.Txs)))
	for _, tx := range f.Txs {
		writeBytes(&buf, EncodeTx(tx))
	}

	writeHash(&buf, f.StateHash)
	return buf.Bytes()
}

// DecodeFrame parses an entity Frame from its wire form.
func DecodeFrame(data []byte) (*Frame, error) {
	r := bytes.NewReader(data)

	f := &Frame{}
	var err error
	if f.Height, err = readUint64(r); err != nil {
		return nil, err
	}
	if f.Timestamp, err = readUint64(r); err != nil {
		return nil, err
	}
	if f.PrevFrameHash, err = readHash(r); err != nil {
		return nil, err
	}

	nTxs, err := readUint64(r)
	if err != nil {
		return nil, err
	}
	f.Txs = make([]Tx, nTxs)
	for i := range f.Txs {
		raw, err := readBytes(r)
		if err != nil {
			return nil, err
		}
		tx, err := DecodeTx(raw)
		if err != nil {
			return nil, err
		}
		f.Txs[i] = tx
	}

	if f.StateHash, err = readHash(r); err != nil {
		return nil, err
	}

	return f, nil
}

func writeSignerMap(buf *bytes.Buffer, signers map[ValidatorID]Signature) {
	writeUint64(buf, uint64(len(signers)))
	for id, sig := range signers {
		writeEntityID(buf, id)
		writeBytes(buf, sig)
	}
}

func readSignerMap(r io.Reader) (map[ValidatorID]Signature, error) {
	n, err := readUint64(r)
	if err != nil {
		return nil, err
	}
	m := make(map[ValidatorID]Signature, n)
	for i := uint64(0); i < n; i++ {
		id, err := readEntityID(r)
		if err != nil {
			return nil, err
		}
		sig, err := readBytes(r)
		if err != nil {
			return nil, err
		}
		m[id] = sig
	}
	return m, nil
}

// EncodeMessage serializes an entity consensus Message.
func EncodeMessage(m *Message) []byte {
	var buf bytes.Buffer
	writeEntityID(&buf, m.From)

	if m.To == nil {
		buf.WriteByte(0)
	} else {
		buf.WriteByte(1)
		writeEntityID(&buf, *m.To)
	}

	writeUint64(&buf, m.Height)
	buf.WriteByte(byte(m.Phase))

	if m.Frame == nil {
		buf.WriteByte(0)
	} else {
		buf.WriteByte(1)
		writeBytes(&buf, EncodeFrame(m.Frame))
	}

	writeBytes(&buf, m.Sig)
	writeSignerMap(&buf, m.Signers)

	return buf.Bytes()
}

// DecodeMessage parses an entity consensus Message from its wire form.
func DecodeMessage(data []byte) (*Message, error) {
	r := bytes.NewReader(data)

	m := &Message{}
	var err error
	if m.From, err = readEntityID(r); err != nil {
		return nil, err
	}

	var hasTo [1]byte
	if _, err := io.ReadFull(r, hasTo[:]); err != nil {
		return nil, err
	}
	if hasTo[0] == 1 {
		to, err := readEntityID(r)
		if err != nil {
			return nil, err
		}
		m.To = &to
	}

	if m.Height, err = readUint64(r); err != nil {
		return nil, err
	}

	var phase [1]byte
	if _, err := io.ReadFull(r, phase[:]); err != nil {
		return nil, err
	}
	m.Phase = Phase(phase[0])

	var hasFrame [1]byte
	if _, err := io.ReadFull(r, hasFrame[:]); err != nil {
		return nil, err
	}
	if hasFrame[0] == 1 {
		raw, err := readBytes(r)
		if err != nil {
			return nil, err
		}
		m.Frame, err = DecodeFrame(raw)
		if err != nil {
			return nil, err
		}
	}

	sig, err := readBytes(r)
	if err != nil {
		return nil, err
	}
	m.Sig = Signature(sig)

	if m.Signers, err = readSignerMap(r); err != nil {
		return nil, err
	}

	return m, nil
}
