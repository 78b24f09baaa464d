package xcrypto

import (
	"math/big"

	"github.com/ethereum/go-ethereum/rlp"
)

// Raw is a pre-encoded RLP value. A slice of Raw values encodes as an RLP
// list, which is how frame/account hashes are built from heterogeneous
// fields (spec §3, §4.1): keccak256(RLP(height, [(type,data)...])).
type Raw = rlp.RawValue

// EncodeUint encodes an unsigned integer using canonical (minimal, no
// leading zero byte) RLP integer encoding.
func EncodeUint(v uint64) Raw {
	enc, err := rlp.EncodeToBytes(v)
	if err != nil {
		// rlp.EncodeToBytes never fails on a plain uint64.
		panic(err)
	}
	return enc
}

// EncodeInt encodes an arbitrary-precision signed integer (offdelta/ondelta
// are signed, spec §3) as RLP over its big.Int representation: sign is
// carried out-of-band as a single leading 0x00/0x01 byte ahead of the
// canonical unsigned magnitude, so two equal-magnitude values of opposite
// sign never collide.
func EncodeInt(v *big.Int) Raw {
	sign := byte(0x00)
	mag := v
	if v.Sign() < 0 {
		sign = 0x01
		mag = new(big.Int).Neg(v)
	}
	enc, err := rlp.EncodeToBytes([][]byte{{sign}, mag.Bytes()})
	if err != nil {
		panic(err)
	}
	return enc
}

// EncodeBytes encodes a byte string.
func EncodeBytes(b []byte) Raw {
	enc, err := rlp.EncodeToBytes(b)
	if err != nil {
		panic(err)
	}
	return enc
}

// EncodeString encodes a UTF-8 string as an RLP byte string.
func EncodeString(s string) Raw {
	return EncodeBytes([]byte(s))
}

// EncodeList wraps already-encoded RLP values into a single canonical RLP
// list, per the Ethereum RLP list-encoding rules.
func EncodeList(items ...Raw) Raw {
	enc, err := rlp.EncodeToBytes(items)
	if err != nil {
		panic(err)
	}
	return enc
}

// HashRLP keccak256-hashes the canonical RLP encoding of items wrapped as a
// list. This is the construction used for every frame/state hash in the
// system (spec §3, §4.1).
func HashRLP(items ...Raw) Hash {
	return Keccak256(EncodeList(items...))
}
