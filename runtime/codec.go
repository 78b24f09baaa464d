package runtime

import (
	"github.com/adimov-eth/xln-sub005/entity"
	"github.com/adimov-eth/xln-sub005/internal/xcrypto"
)

// merkleLeaf RLP-encodes one Input deterministically for the inputs-root
// merkle tree (spec §4.4 step 2 "inputsRoot = merkle(rlp(batch[i]))"). This
// is a one-way hashing encoding (go-ethereum's rlp package this repo uses
// for hashing has no generic decoder for it) — EncodeInput/DecodeInput in
// wire.go provide the separate round-trippable form storage persists.
func merkleLeaf(in Input) []byte {
	return xcrypto.EncodeList(
		xcrypto.EncodeUint(uint64(in.SignerIdx)),
		xcrypto.EncodeBytes(in.EntityID.Bytes()),
		encodeCommandRLP(in.Cmd),
	)
}

func encodeCommandRLP(cmd Command) xcrypto.Raw {
	switch c := cmd.(type) {
	case AddTxCommand:
		return xcrypto.EncodeList(
			xcrypto.EncodeUint(uint64(CmdAddTx)),
			xcrypto.EncodeUint(c.Nonce),
			xcrypto.EncodeBytes(entity.EncodeTx(c.Tx)),
		)
	case ProposeFrameCommand:
		return xcrypto.EncodeList(xcrypto.EncodeUint(uint64(CmdProposeFrame)))
	case SignFrameCommand:
		return xcrypto.EncodeList(
			xcrypto.EncodeUint(uint64(CmdSignFrame)),
			xcrypto.EncodeBytes(entity.EncodeMessage(c.Msg)),
		)
	case CommitFrameCommand:
		return xcrypto.EncodeList(
			xcrypto.EncodeUint(uint64(CmdCommitFrame)),
			xcrypto.EncodeBytes(entity.EncodeMessage(c.Msg)),
		)
	case AttachReplicaCommand:
		return xcrypto.EncodeList(
			xcrypto.EncodeUint(uint64(CmdAttachReplica)),
			xcrypto.EncodeUint(c.Height),
			xcrypto.EncodeBytes(c.Snapshot),
		)
	case DetachReplicaCommand:
		return xcrypto.EncodeList(xcrypto.EncodeUint(uint64(CmdDetachReplica)))
	case ImportJEventCommand:
		return xcrypto.EncodeList(
			xcrypto.EncodeUint(uint64(CmdImportJEvent)),
			xcrypto.EncodeBytes(entity.EncodeJEvent(c.Event)),
		)
	default:
		// Unreachable for any command that passed the ServerState
		// dispatcher's own type switch.
		return xcrypto.EncodeBytes(nil)
	}
}
