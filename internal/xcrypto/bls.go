package xcrypto

import (
	"fmt"

	blst "github.com/supranational/blst/bindings/go"
)

// dst is the BLS domain separation tag used for every signature this
// package verifies. Changing it invalidates every previously issued hanko.
var dst = []byte("XLN_BLS_SIG_BLS12381G2_XMD:SHA-256_SSWU_RO_POP_")

// PublicKey wraps a compressed BLS12-381 G1 public key.
type PublicKey struct {
	p *blst.P1Affine
}

// ParsePublicKey decodes a 48-byte compressed G1 public key.
func ParsePublicKey(raw []byte) (*PublicKey, error) {
	p := new(blst.P1Affine).Uncompress(raw)
	if p == nil {
		return nil, fmt.Errorf("xcrypto: invalid BLS public key encoding")
	}
	if !p.KeyValidate() {
		return nil, fmt.Errorf("xcrypto: BLS public key fails validation")
	}
	return &PublicKey{p: p}, nil
}

// Signed pairs a message with the public key that allegedly signed it, the
// unit the aggregate verifier checks.
type Signed struct {
	PubKey *PublicKey
	Msg    []byte
}

// AggregateVerify verifies a single aggregated BLS signature against a set
// of (pubkey,msg) pairs (spec §4.1). It is used to check a hanko: the
// aggregate signature an entity's quorum produces to authorize a settlement
// batch (spec §6).
func AggregateVerify(aggSig []byte, pairs []Signed) (bool, error) {
	if len(pairs) == 0 {
		return false, fmt.Errorf("xcrypto: AggregateVerify called with no signers")
	}

	sig := new(blst.P2Affine).Uncompress(aggSig)
	if sig == nil {
		return false, fmt.Errorf("xcrypto: invalid aggregate signature encoding")
	}

	pubKeys := make([]*blst.P1Affine, len(pairs))
	msgs := make([]blst.Message, len(pairs))
	for i, pair := range pairs {
		if pair.PubKey == nil {
			return false, fmt.Errorf("xcrypto: nil public key at index %d", i)
		}
		pubKeys[i] = pair.PubKey.p
		msgs[i] = blst.Message(pair.Msg)
	}

	ok := sig.AggregateVerify(true, pubKeys, true, msgs, dst)
	return ok, nil
}

// AggregateSignatures combines individual compressed signatures into a
// single aggregate signature, the inverse operation a quorum performs
// before submitting a hanko.
func AggregateSignatures(sigs [][]byte) ([]byte, error) {
	if len(sigs) == 0 {
		return nil, fmt.Errorf("xcrypto: AggregateSignatures called with no signatures")
	}

	parsed := make([]*blst.P2Affine, len(sigs))
	for i, raw := range sigs {
		s := new(blst.P2Affine).Uncompress(raw)
		if s == nil {
			return nil, fmt.Errorf("xcrypto: invalid signature encoding at index %d", i)
		}
		parsed[i] = s
	}

	agg := new(blst.P2Aggregate)
	if !agg.Aggregate(parsed, true) {
		return nil, fmt.Errorf("xcrypto: signature aggregation failed")
	}

	return agg.ToAffine().Compress(), nil
}
