package runtime

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"io"

	"github.com/adimov-eth/xln-sub005/entity"
	"github.com/adimov-eth/xln-sub005/internal/xcrypto"
)

// This file implements a round-trippable binary wire codec for Input and
// ServerFrame, mirroring entity/codec.go's and account/codec.go's
// length-prefixed framing exactly, for internal/storage to persist a
// replayable server-frame log. It is independent of codec.go's RLP-based
// merkleLeaf encoding used for hashing.

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

func writeEntityID(buf *bytes.Buffer, id xcrypto.EntityID) {
	buf.Write(id.Bytes())
}

func readEntityID(r io.Reader) (xcrypto.EntityID, error) {
	var id xcrypto.EntityID
	_, err := io.ReadFull(r, id[:])
	return id, err
}

func writeHash(buf *bytes.Buffer, h xcrypto.Hash) {
	buf.Write(h.Bytes())
}

func readHash(r io.Reader) (xcrypto.Hash, error) {
	var h xcrypto.Hash
	_, err := io.ReadFull(r, h[:])
	return h, err
}

// EncodeCommand serializes cmd to its round-trippable wire form.
//
// AttachReplicaCommand is a partial exception: its Validators/Signer/
// Verifier/Factory fields are live objects (a quorum configuration and
// cryptographic key material), not log data, so only Height and Snapshot
// round-trip. A caller replaying AttachReplicaCommand from a persisted
// log must re-supply those four fields from its own running
// configuration before dispatching it (spec §4.4 "attachReplica(snapshot)"
// names the command's one piece of data as the snapshot itself).
func EncodeCommand(cmd Command) []byte {
	var buf bytes.Buffer
	buf.WriteByte(byte(cmd.Kind()))

	switch c := cmd.(type) {
	case AddTxCommand:
		writeUint64(&buf, c.Nonce)
		writeBytes(&buf, entity.EncodeTx(c.Tx))
	case ProposeFrameCommand:
	case SignFrameCommand:
		writeBytes(&buf, entity.EncodeMessage(c.Msg))
	case CommitFrameCommand:
		writeBytes(&buf, entity.EncodeMessage(c.Msg))
	case AttachReplicaCommand:
		writeUint64(&buf, c.Height)
		writeBytes(&buf, c.Snapshot)
	case DetachReplicaCommand:
	case ImportJEventCommand:
		writeBytes(&buf, entity.EncodeJEvent(c.Event))
	}

	return buf.Bytes()
}

// DecodeCommand parses a Command from its wire form. See EncodeCommand's
// doc comment for the AttachReplicaCommand caveat.
func DecodeCommand(data []byte) (Command, error) {
	r := bytes.NewReader(data)

	var kindByte [1]byte
	if _, err := io.ReadFull(r, kindByte[:]); err != nil {
		return nil, err
	}

	switch CommandKind(kindByte[0]) {
	case CmdAddTx:
		nonce, err := readUint64(r)
		if err != nil {
			return nil, err
		}
		raw, err := readBytes(r)
		if err != nil {
			return nil, err
		}
		tx, err := entity.DecodeTx(raw)
		if err != nil {
			return nil, err
		}
		return AddTxCommand{Tx: tx, Nonce: nonce}, nil

	case CmdProposeFrame:
		return ProposeFrameCommand{}, nil

	case CmdSignFrame:
		raw, err := readBytes(r)
		if err != nil {
			return nil, err
		}
		msg, err := entity.DecodeMessage(raw)
		if err != nil {
			return nil, err
		}
		return SignFrameCommand{Msg: msg}, nil

	case CmdCommitFrame:
		raw, err := readBytes(r)
		if err != nil {
			return nil, err
		}
		msg, err := entity.DecodeMessage(raw)
		if err != nil {
			return nil, err
		}
		return CommitFrameCommand{Msg: msg}, nil

	case CmdAttachReplica:
		height, err := readUint64(r)
		if err != nil {
			return nil, err
		}
		snapshot, err := readBytes(r)
		if err != nil {
			return nil, err
		}
		return AttachReplicaCommand{Height: height, Snapshot: snapshot}, nil

	case CmdDetachReplica:
		return DetachReplicaCommand{}, nil

	case CmdImportJEvent:
		raw, err := readBytes(r)
		if err != nil {
			return nil, err
		}
		ev, err := entity.DecodeJEvent(raw)
		if err != nil {
			return nil, err
		}
		return ImportJEventCommand{Event: ev}, nil

	default:
		return nil, fmt.Errorf("%w: kind=%d", ErrUnknownCommand, kindByte[0])
	}
}

// EncodeInput serializes one Input to its round-trippable wire form, for
// internal/storage's server-frame log.
func EncodeInput(in Input) []byte {
	var buf bytes.Buffer
	writeUint64(&buf, uint64(in.SignerIdx))
	writeEntityID(&buf, in.EntityID)
	writeBytes(&buf, EncodeCommand(in.Cmd))
	return buf.Bytes()
}

// DecodeInput parses an Input from its wire form.
func DecodeInput(data []byte) (Input, error) {
	r := bytes.NewReader(data)

	signerIdx, err := readUint64(r)
	if err != nil {
		return Input{}, err
	}
	entityID, err := readEntityID(r)
	if err != nil {
		return Input{}, err
	}
	raw, err := readBytes(r)
	if err != nil {
		return Input{}, err
	}
	cmd, err := DecodeCommand(raw)
	if err != nil {
		return Input{}, err
	}

	return Input{SignerIdx: uint32(signerIdx), EntityID: entityID, Cmd: cmd}, nil
}

// EncodeServerFrame serializes a ServerFrame to its wire form.
func EncodeServerFrame(f *ServerFrame) []byte {
	var buf bytes.Buffer
	writeUint64(&buf, f.Height)
	writeUint64(&buf, f.Timestamp)
	writeHash(&buf, f.Root)
	writeHash(&buf, f.InputsRoot)

	writeUint64(&buf, uint64(len(f.Batch)))
	for _, in := range f.Batch {
		writeBytes(&buf, EncodeInput(in))
	}

	return buf.Bytes()
}

// DecodeServerFrame parses a ServerFrame from its wire form.
func DecodeServerFrame(data []byte) (*ServerFrame, error) {
	r := bytes.NewReader(data)

	f := &ServerFrame{}
	var err error
	if f.Height, err = readUint64(r); err != nil {
		return nil, err
	}
	if f.Timestamp, err = readUint64(r); err != nil {
		return nil, err
	}
	if f.Root, err = readHash(r); err != nil {
		return nil, err
	}
	if f.InputsRoot, err = readHash(r); err != nil {
		return nil, err
	}

	n, err := readUint64(r)
	if err != nil {
		return nil, err
	}
	f.Batch = make([]Input, n)
	for i := range f.Batch {
		raw, err := readBytes(r)
		if err != nil {
			return nil, err
		}
		f.Batch[i], err = DecodeInput(raw)
		if err != nil {
			return nil, err
		}
	}

	return f, nil
}
