package main

import (
	"encoding/hex"
	"fmt"
	"math/big"

	"github.com/adimov-eth/xln-sub005/account"
	"github.com/adimov-eth/xln-sub005/entity"
	"github.com/adimov-eth/xln-sub005/internal/storage"
	"github.com/adimov-eth/xln-sub005/internal/xcrypto"
	"github.com/adimov-eth/xln-sub005/runtime"
	"github.com/urfave/cli"
)

// parseEntityID decodes a hex-encoded entity id, left-padding it to 32
// bytes the same way entity ids are documented as opaque identifiers
// (spec §3) rather than fixed-width addresses.
func parseEntityID(s string) (xcrypto.EntityID, error) {
	var id xcrypto.EntityID
	raw, err := hex.DecodeString(s)
	if err != nil {
		return id, fmt.Errorf("invalid hex entity id: %w", err)
	}
	if len(raw) > len(id) {
		return id, fmt.Errorf("entity id longer than %d bytes", len(id))
	}
	copy(id[len(id)-len(raw):], raw)
	return id, nil
}

// accountFactory builds the bilateral account machine for a newly opened
// account. xlncli is a single-operator development tool, not a production
// signing node: it keys every account and entity replica with
// account.TestSigner/entity.TestSigner rather than a real BLS keystore,
// since internal/xcrypto does not yet expose a secret-key-holding Signer
// (only AggregateVerify/AggregateSignatures on the verify side, spec §4.1) —
// wiring a hardware or file-backed BLS signer into cmd/xlnd/cmd/xlncli is
// future work, tracked in DESIGN.md.
func accountFactory() entity.AccountFactory {
	return func(self, peer xcrypto.EntityID) *account.Machine {
		return account.NewMachine(self, peer, account.TestSigner{}, account.TestVerifier{})
	}
}

func openStorage(ctx *cli.Context) (*storage.DB, error) {
	return storage.Open(ctx.GlobalString("datadir"))
}

// nextFrameHeight returns one past the highest height already persisted to
// db, or 1 if the server-frame log is empty, so repeated xlncli invocations
// against the same datadir append rather than overwrite.
func nextFrameHeight(db *storage.DB) (uint64, error) {
	height, found, err := db.LatestServerFrameHeight()
	if err != nil {
		return 0, err
	}
	if !found {
		return 1, nil
	}
	return height + 1, nil
}

var statusCommand = cli.Command{
	Name:  "status",
	Usage: "show the latest persisted server-frame height",
	Action: func(ctx *cli.Context) error {
		db, err := openStorage(ctx)
		if err != nil {
			return err
		}
		defer db.Close()

		height, found, err := db.LatestServerFrameHeight()
		if err != nil {
			return err
		}
		if !found {
			fmt.Println("no server frames persisted yet")
			return nil
		}
		fmt.Printf("latest server-frame height: %d\n", height)
		return nil
	},
}

var showFrameCommand = cli.Command{
	Name:      "showframe",
	Usage:     "print the committed server frame at a height",
	ArgsUsage: "height",
	Action: func(ctx *cli.Context) error {
		if ctx.NArg() != 1 {
			return fmt.Errorf("expected exactly one argument: height")
		}
		var height uint64
		if _, err := fmt.Sscanf(ctx.Args().First(), "%d", &height); err != nil {
			return fmt.Errorf("invalid height: %w", err)
		}

		db, err := openStorage(ctx)
		if err != nil {
			return err
		}
		defer db.Close()

		frame, err := db.GetServerFrame(height)
		if err != nil {
			return err
		}
		if frame == nil {
			return fmt.Errorf("no server frame at height %d", height)
		}

		fmt.Printf("height=%d timestamp=%d root=%x inputsRoot=%x inputs=%d\n",
			frame.Height, frame.Timestamp, frame.Root.Bytes(), frame.InputsRoot.Bytes(), len(frame.Batch))
		return nil
	},
}

var genesisCommand = cli.Command{
	Name:      "genesis",
	Usage:     "attach a fresh single-validator replica for an entity and persist its genesis frame",
	ArgsUsage: "entity-id-hex",
	Flags: []cli.Flag{
		cli.UintFlag{
			Name:  "signeridx",
			Value: 0,
			Usage: "the signer index this node replicates the entity under",
		},
	},
	Action: func(ctx *cli.Context) error {
		if ctx.NArg() != 1 {
			return fmt.Errorf("expected exactly one argument: entity-id-hex")
		}
		eid, err := parseEntityID(ctx.Args().First())
		if err != nil {
			return err
		}
		signerIdx := uint32(ctx.Uint("signeridx"))

		db, err := openStorage(ctx)
		if err != nil {
			return err
		}
		defer db.Close()

		state := runtime.NewServerState()
		validators := entity.NewValidatorSet([]entity.ValidatorID{eid}, map[entity.ValidatorID]uint64{eid: 1})
		validators.Threshold = 1

		batch := []runtime.Input{{
			SignerIdx: signerIdx,
			EntityID:  eid,
			Cmd: runtime.AttachReplicaCommand{
				Validators: validators,
				Signer:     entity.TestSigner{ID: entity.ValidatorID(eid)},
				Verifier:   entity.TestVerifier{},
				Factory:    accountFactory(),
			},
		}}

		nextHeight, err := nextFrameHeight(db)
		if err != nil {
			return err
		}
		frame, rejects := runtime.ApplyServerFrame(state, batch, 0, nextHeight)
		for _, r := range rejects {
			return fmt.Errorf("genesis rejected: %v", r.Err)
		}
		if err := db.PutServerFrame(frame); err != nil {
			return err
		}

		key := runtime.ReplicaKey{SignerIdx: signerIdx, EntityID: eid}
		replica := state.Replica(key)
		if err := db.PutReplicaCheckpoint(key, storage.ReplicaCheckpoint{
			Height:        replica.Height,
			PrevFrameHash: replica.PrevFrameHash,
			Mempool:       replica.Mempool,
		}); err != nil {
			return err
		}

		fmt.Printf("attached entity %x at signerIdx=%d, server-frame height=%d\n", eid.Bytes(), signerIdx, frame.Height)
		return nil
	},
}

var payCommand = cli.Command{
	Name:      "pay",
	Usage:     "open an account with a peer and send one direct payment, in a single self-contained session",
	ArgsUsage: "entity-id-hex peer-id-hex amount",
	Flags: []cli.Flag{
		cli.UintFlag{
			Name:  "signeridx",
			Value: 0,
			Usage: "the signer index this node replicates the entity under",
		},
		cli.UintFlag{
			Name:  "token",
			Value: 0,
			Usage: "token id to pay in",
		},
	},
	Description: `
	pay is a one-shot demonstration of driving the runtime in-process
	(SPEC_FULL.md A.3): it attaches a fresh single-validator replica,
	opens an account with the peer, queues a direct payment, and commits
	the resulting frame, all within this process invocation. Because
	internal/storage persists only mempool and frame-chain tip (not a full
	entity.State snapshot), this command does not resume a replica's
	account state from a prior invocation -- it is a scripted
	single-session driver, not a standing wallet.
	`,
	Action: func(ctx *cli.Context) error {
		if ctx.NArg() != 3 {
			return fmt.Errorf("expected three arguments: entity-id-hex peer-id-hex amount")
		}
		eid, err := parseEntityID(ctx.Args().Get(0))
		if err != nil {
			return err
		}
		peer, err := parseEntityID(ctx.Args().Get(1))
		if err != nil {
			return err
		}
		amount, ok := new(big.Int).SetString(ctx.Args().Get(2), 10)
		if !ok {
			return fmt.Errorf("invalid amount: %s", ctx.Args().Get(2))
		}
		signerIdx := uint32(ctx.Uint("signeridx"))
		token := account.TokenID(ctx.Uint("token"))

		db, err := openStorage(ctx)
		if err != nil {
			return err
		}
		defer db.Close()

		state := runtime.NewServerState()
		validators := entity.NewValidatorSet([]entity.ValidatorID{eid}, map[entity.ValidatorID]uint64{eid: 1})
		validators.Threshold = 1
		key := runtime.ReplicaKey{SignerIdx: signerIdx, EntityID: eid}

		batch := []runtime.Input{
			{SignerIdx: signerIdx, EntityID: eid, Cmd: runtime.AttachReplicaCommand{
				Validators: validators,
				Signer:     entity.TestSigner{ID: entity.ValidatorID(eid)},
				Verifier:   entity.TestVerifier{},
				Factory:    accountFactory(),
			}},
			{SignerIdx: signerIdx, EntityID: eid, Cmd: runtime.AddTxCommand{
				Tx:    entity.OpenAccountTx{Peer: peer},
				Nonce: 1,
			}},
			{SignerIdx: signerIdx, EntityID: eid, Cmd: runtime.AddTxCommand{
				Tx:    entity.DirectPaymentTx{Peer: peer, TokenID: token, Amount: amount},
				Nonce: 2,
			}},
			{SignerIdx: signerIdx, EntityID: eid, Cmd: runtime.ProposeFrameCommand{}},
		}

		nextHeight, err := nextFrameHeight(db)
		if err != nil {
			return err
		}
		frame, rejects := runtime.ApplyServerFrame(state, batch, 0, nextHeight)
		for _, r := range rejects {
			return fmt.Errorf("input %d rejected: %v", r.Index, r.Err)
		}
		if err := db.PutServerFrame(frame); err != nil {
			return err
		}

		replica := state.Replica(key)
		if err := db.PutReplicaCheckpoint(key, storage.ReplicaCheckpoint{
			Height:        replica.Height,
			PrevFrameHash: replica.PrevFrameHash,
			Mempool:       replica.Mempool,
		}); err != nil {
			return err
		}

		fmt.Printf("paid %s of token %d from %x to %x, server-frame height=%d\n",
			amount.String(), token, eid.Bytes(), peer.Bytes(), frame.Height)
		return nil
	},
}
