package keys

import (
	"bytes"
	"encoding/hex"
	"errors"
	"testing"
	"testing/iotest"

	"keysweep/types"

	"github.com/btcsuite/btcd/btcec/v2"
	btcecdsa "github.com/btcsuite/btcd/btcec/v2/ecdsa"
	"github.com/btcsuite/btcd/chaincfg/chainhash"
	"github.com/decred/dcrd/dcrec/secp256k1/v4"
	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"
)

const (
	gx = "79be667ef9dcbbac55a06295ce870b07029bfcdb2dce28d959f2815b16f81798"
	gy = "483ada7726a3c4655da4fbfc0e1108a8fd17b448a68554199c47d08ffb10d4b8"

	// curveOrder is n.
	curveOrder = "fffffffffffffffffffffffffffffffebaaedce6af48a03bbfd25e8cd0364141"
)

func hexBytes(tb testing.TB, s string) []byte {
	b, err := hex.DecodeString(s)
	require.NoError(tb, err)
	return b
}

func scalarBytes(last byte) []byte {
	b := make([]byte, ScalarLen)
	b[ScalarLen-1] = last
	return b
}

// TestScalarOneIsGenerator ensures 1*G is the documented base point.
func TestScalarOneIsGenerator(t *testing.T) {
	t.Parallel()

	one, err := ParseScalar(scalarBytes(1))
	require.NoError(t, err)

	pub, err := one.PubKey()
	require.NoError(t, err)

	want := append([]byte{0x04}, hexBytes(t, gx)...)
	want = append(want, hexBytes(t, gy)...)
	require.Equal(t, want, pub.SerializeUncompressed())
	require.Len(t, pub.SerializeUncompressed(), PubKeyUncompressedLen)
	require.Len(t, pub.SerializeCompressed(), PubKeyCompressedLen)
	require.True(t, OnCurve(pub))
}

// TestSmallMultiples checks small multiples of G against the library's own
// scalar multiplication. Most of their bits are processed while the
// accumulator is still the point at infinity.
func TestSmallMultiples(t *testing.T) {
	t.Parallel()

	for _, k := range []byte{2, 3, 4, 7, 255} {
		s, err := ParseScalar(scalarBytes(k))
		require.NoError(t, err)

		pub, err := s.PubKey()
		require.NoError(t, err)

		want := secp256k1.PrivKeyFromBytes(scalarBytes(k)).PubKey()
		require.Truef(t, pub.IsEqual(want), "%d*G mismatch", k)
	}
}

// TestPubKeyProperties checks determinism, the curve equation and agreement
// with the library's base point multiplication for random scalars.
func TestPubKeyProperties(t *testing.T) {
	rapid.Check(t, func(rt *rapid.T) {
		b := rapid.SliceOfN(rapid.Byte(), ScalarLen, ScalarLen).Draw(rt, "d")

		s, err := ParseScalar(b)
		if err != nil {
			require.ErrorIs(rt, err, types.ErrCurve)
			return
		}

		pub1, err := s.PubKey()
		require.NoError(rt, err)
		pub2, err := s.PubKey()
		require.NoError(rt, err)

		require.Equal(rt, pub1.SerializeUncompressed(),
			pub2.SerializeUncompressed())
		require.True(rt, OnCurve(pub1))
		require.True(rt, pub1.IsOnCurve())

		want := secp256k1.PrivKeyFromBytes(b).PubKey()
		require.True(rt, pub1.IsEqual(want))
	})
}

// TestParseScalarRejects ensures out of range and malformed scalars fail
// with ErrCurve.
func TestParseScalarRejects(t *testing.T) {
	t.Parallel()

	n := hexBytes(t, curveOrder)
	nMinusOne := hexBytes(t, curveOrder)
	nMinusOne[ScalarLen-1]--

	tests := []struct {
		name string
		in   []byte
		ok   bool
	}{
		{name: "zero", in: make([]byte, ScalarLen)},
		{name: "order", in: n},
		{name: "all ones", in: bytes.Repeat([]byte{0xff}, ScalarLen)},
		{name: "short", in: scalarBytes(1)[1:]},
		{name: "long", in: append(scalarBytes(1), 0)},
		{name: "one", in: scalarBytes(1), ok: true},
		{name: "order minus one", in: nMinusOne, ok: true},
	}

	for _, test := range tests {
		_, err := ParseScalar(test.in)
		if test.ok {
			require.NoError(t, err, test.name)
			continue
		}

		require.ErrorIs(t, err, types.ErrCurve, test.name)
		require.True(t, types.IsRetryable(err), test.name)
	}
}

// TestGenerateScalarResamples feeds the generator out of range values first
// and checks it keeps drawing until it gets a valid scalar.
func TestGenerateScalarResamples(t *testing.T) {
	t.Parallel()

	var stream []byte
	stream = append(stream, hexBytes(t, curveOrder)...)
	stream = append(stream, make([]byte, ScalarLen)...)
	stream = append(stream, bytes.Repeat([]byte{0xff}, ScalarLen)...)
	stream = append(stream, scalarBytes(5)...)

	s, err := GenerateScalar(bytes.NewReader(stream))
	require.NoError(t, err)

	got := s.Bytes()
	require.Equal(t, scalarBytes(5), got[:])
}

// TestGenerateScalarEntropyFailure ensures a broken source is fatal.
func TestGenerateScalarEntropyFailure(t *testing.T) {
	t.Parallel()

	readErr := errors.New("device gone")
	_, err := GenerateScalar(iotest.ErrReader(readErr))
	require.ErrorIs(t, err, types.ErrEntropy)
	require.False(t, types.IsRetryable(err))

	// A short read is as bad as an error.
	_, err = GenerateScalar(bytes.NewReader(make([]byte, 10)))
	require.ErrorIs(t, err, types.ErrEntropy)

	// A source stuck on zero never yields a key.
	zeros := make([]byte, ScalarLen*(maxRejections+1))
	_, err = GenerateScalar(bytes.NewReader(zeros))
	require.ErrorIs(t, err, types.ErrEntropy)
}

// TestZeroedScalar ensures a wiped scalar can no longer derive or sign.
func TestZeroedScalar(t *testing.T) {
	t.Parallel()

	s, err := ParseScalar(scalarBytes(9))
	require.NoError(t, err)
	s.Zero()

	require.Equal(t, [ScalarLen]byte{}, s.Bytes())

	_, err = s.PubKey()
	require.ErrorIs(t, err, types.ErrCurve)

	hash := chainhash.DoubleHashB([]byte("msg"))
	_, err = s.Sign(hash)
	require.ErrorIs(t, err, types.ErrCurve)

	var zero Scalar
	_, err = zero.PubKey()
	require.ErrorIs(t, err, types.ErrCurve)
}

// TestSignMatchesBtcec compares signatures against btcec's RFC6979 signer,
// which must produce the very same bytes, and checks they are low-S and
// verify.
func TestSignMatchesBtcec(t *testing.T) {
	rapid.Check(t, func(rt *rapid.T) {
		b := rapid.SliceOfN(rapid.Byte(), ScalarLen, ScalarLen).Draw(rt, "d")
		msg := rapid.SliceOf(rapid.Byte()).Draw(rt, "msg")
		hash := chainhash.DoubleHashB(msg)

		s, err := ParseScalar(b)
		if err != nil {
			return
		}

		sig, err := s.Sign(hash)
		require.NoError(rt, err)

		again, err := s.Sign(hash)
		require.NoError(rt, err)
		require.Equal(rt, sig.Serialize(), again.Serialize())

		sigS := sig.S()
		require.False(rt, sigS.IsOverHalfOrder())

		pub, err := s.PubKey()
		require.NoError(rt, err)
		require.True(rt, sig.Verify(hash, pub))

		priv, _ := btcec.PrivKeyFromBytes(b)
		want := btcecdsa.Sign(priv, hash)
		require.Equal(rt, want.Serialize(), sig.Serialize())
	})
}

// TestSignRejectsBadDigest ensures only 32-byte digests are signed.
func TestSignRejectsBadDigest(t *testing.T) {
	t.Parallel()

	s, err := ParseScalar(scalarBytes(1))
	require.NoError(t, err)

	_, err = s.Sign([]byte{1, 2, 3})
	require.ErrorIs(t, err, types.ErrInvalidRequest)
}

// forceNonces replaces the nonce function for the rest of the test. The
// first zeros iterations get a zero nonce, whose point R has r = 0.
func forceNonces(t *testing.T, zeros uint32) *[]uint32 {
	var seen []uint32

	orig := nonceRFC6979
	t.Cleanup(func() { nonceRFC6979 = orig })

	nonceRFC6979 = func(privKey, hash, extra, version []byte,
		iteration uint32) *secp256k1.ModNScalar {

		seen = append(seen, iteration)
		if iteration < zeros {
			return new(secp256k1.ModNScalar)
		}
		return orig(privKey, hash, extra, version, iteration)
	}

	return &seen
}

// TestSignRetriesNonce rejects the first nonce and checks the signature made
// with the next one still verifies. Not parallel, it swaps the nonce
// function.
func TestSignRetriesNonce(t *testing.T) {
	s, err := ParseScalar(scalarBytes(1))
	require.NoError(t, err)
	hash := chainhash.DoubleHashB([]byte("retry"))

	first, err := s.Sign(hash)
	require.NoError(t, err)

	seen := forceNonces(t, 1)

	sig, err := s.Sign(hash)
	require.NoError(t, err)
	require.Equal(t, []uint32{0, 1}, *seen)

	pub, err := s.PubKey()
	require.NoError(t, err)
	require.True(t, sig.Verify(hash, pub))
	require.NotEqual(t, first.Serialize(), sig.Serialize())

	sigS := sig.S()
	require.False(t, sigS.IsOverHalfOrder())
}

// TestSignNonceExhausted gives up with ErrSigning once every iteration has
// produced an unusable nonce.
func TestSignNonceExhausted(t *testing.T) {
	s, err := ParseScalar(scalarBytes(1))
	require.NoError(t, err)

	seen := forceNonces(t, MaxNonceIterations)

	sig, err := s.Sign(chainhash.DoubleHashB([]byte("exhausted")))
	require.ErrorIs(t, err, types.ErrSigning)
	require.False(t, types.IsRetryable(err))
	require.Nil(t, sig)
	require.Len(t, *seen, MaxNonceIterations)
}
