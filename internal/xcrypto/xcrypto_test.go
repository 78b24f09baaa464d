package xcrypto

import (
	"math/big"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestMerkleDuplicatesLastLeafOnOddCount(t *testing.T) {
	leaves := [][]byte{[]byte("a"), []byte("b"), []byte("c")}

	// Manually build the expected tree: level0 = [h(a), h(b), h(c)], c is
	// duplicated to make the count even, then combine pairwise.
	ha := Keccak256([]byte("a"))
	hb := Keccak256([]byte("b"))
	hc := Keccak256([]byte("c"))
	left := Keccak256(ha.Bytes(), hb.Bytes())
	right := Keccak256(hc.Bytes(), hc.Bytes())
	want := Keccak256(left.Bytes(), right.Bytes())

	require.Equal(t, want, Merkle(leaves))
}

func TestMerkleSingleLeaf(t *testing.T) {
	leaves := [][]byte{[]byte("only")}
	require.Equal(t, Keccak256([]byte("only")), Merkle(leaves))
}

func TestMerkleDeterministic(t *testing.T) {
	leaves := [][]byte{[]byte("x"), []byte("y")}
	require.Equal(t, Merkle(leaves), Merkle(leaves))
}

func TestChannelKeyOrderIndependent(t *testing.T) {
	var a, b EntityID
	a[0] = 0x01
	b[0] = 0x02

	require.Equal(t, ChannelKey(a, b), ChannelKey(b, a))
}

func TestIsLeftLexicographic(t *testing.T) {
	var a, b EntityID
	a[0] = 0x01
	b[0] = 0x02

	require.True(t, IsLeft(a, b))
	require.False(t, IsLeft(b, a))
}

func TestHashRLPDeterministic(t *testing.T) {
	items := []Raw{EncodeUint(7), EncodeBytes([]byte("payload"))}
	require.Equal(t, HashRLP(items...), HashRLP(items...))
}

func TestEncodeIntSignDoesNotCollide(t *testing.T) {
	require.NotEqual(t, EncodeInt(big.NewInt(5)), EncodeInt(big.NewInt(-5)))
	require.NotEqual(t, EncodeInt(big.NewInt(0)), EncodeInt(big.NewInt(-5)))
}
