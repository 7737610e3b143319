package address

import (
	"bytes"
	"encoding/hex"
	"strings"
	"testing"

	"keysweep/types"

	"github.com/btcsuite/btcd/btcutil"
	"github.com/btcsuite/btcd/btcutil/base58"
	"github.com/btcsuite/btcd/chaincfg"
	"github.com/decred/dcrd/dcrec/secp256k1/v4"
	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"
)

func generatorPubKey() *secp256k1.PublicKey {
	one := make([]byte, 32)
	one[31] = 1
	return secp256k1.PrivKeyFromBytes(one).PubKey()
}

// TestGeneratorAddress checks the well known addresses of private key 1.
func TestGeneratorAddress(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name       string
		compressed bool
		hash160    string
		addr       string
	}{{
		name:       "uncompressed",
		compressed: false,
		hash160:    "91b24bf9f5288532960ac687abb035127b1d28a5",
		addr:       "1EHNa6Q4Jz2uvNExL497mE43ikXhwF6kZm",
	}, {
		name:       "compressed",
		compressed: true,
		hash160:    "751e76e8199196d454941c45d1b3a323f1433bd6",
		addr:       "1BgGZ9tcN4rm9KBzDn7KprQz87SZ26SAMH",
	}}

	pub := generatorPubKey()
	for _, test := range tests {
		a := FromPubKey(pub, &chaincfg.MainNetParams, test.compressed)

		require.Equal(t, test.hash160, hex.EncodeToString(a.Hash160[:]),
			test.name)
		require.Equal(t, test.addr, a.String(), test.name)

		decoded, err := Decode(test.addr)
		require.NoError(t, err, test.name)
		require.Equal(t, a, decoded, test.name)
	}
}

func TestHash160(t *testing.T) {
	t.Parallel()

	require.Equal(t, "b472a266d0bd89c13706a4132ccfb16f7c3b9fcb",
		hex.EncodeToString(Hash160(nil)))
	require.Len(t, Hash160([]byte("keysweep")), Hash160Len)
}

// TestRoundTrip checks decode(encode(v, h)) = (v, h) for all hashes and
// agreement with btcutil's address encoding.
func TestRoundTrip(t *testing.T) {
	rapid.Check(t, func(rt *rapid.T) {
		h := rapid.SliceOfN(rapid.Byte(), Hash160Len, Hash160Len).Draw(rt, "hash160")

		encoded := Encode(MainNetVersion, h)

		decoded, err := Decode(encoded)
		require.NoError(rt, err)
		require.Equal(rt, MainNetVersion, decoded.Version)
		require.Equal(rt, h, decoded.Hash160[:])

		ref, err := btcutil.NewAddressPubKeyHash(h, &chaincfg.MainNetParams)
		require.NoError(rt, err)
		require.Equal(rt, ref.EncodeAddress(), encoded)

		// Every leading zero byte of the buffer is one leading '1'.
		raw := base58.Decode(encoded)
		zeros := len(raw) - len(bytes.TrimLeft(raw, "\x00"))
		ones := len(encoded) - len(strings.TrimLeft(encoded, "1"))
		require.Equal(rt, zeros, ones)
	})
}

// TestTamper flips every byte of a valid address buffer and checks the
// checksum catches each change.
func TestTamper(t *testing.T) {
	t.Parallel()

	const valid = "1EHNa6Q4Jz2uvNExL497mE43ikXhwF6kZm"
	raw := base58.Decode(valid)
	require.Len(t, raw, DecodedLen)

	for i := 0; i < DecodedLen; i++ {
		for _, mask := range []byte{0x01, 0x80, 0xff} {
			tampered := append([]byte(nil), raw...)
			tampered[i] ^= mask

			_, err := Decode(base58.Encode(tampered))
			require.ErrorIsf(t, err, types.ErrEncoding,
				"byte %d mask %#x", i, mask)
		}
	}
}

// TestDecodeMalformed covers inputs that never reach the checksum.
func TestDecodeMalformed(t *testing.T) {
	t.Parallel()

	valid := base58.Decode("1EHNa6Q4Jz2uvNExL497mE43ikXhwF6kZm")

	tests := []struct {
		name string
		in   string
	}{
		{name: "empty", in: ""},
		{name: "bad alphabet 0", in: "0EHNa6Q4Jz2uvNExL497mE43ikXhwF6kZm"},
		{name: "bad alphabet O", in: "1EHNa6Q4Jz2uvNExL497mE43ikXhwF6kZO"},
		{name: "bad alphabet I", in: "1EHNa6Q4Jz2uvNExL497mE43ikXhwF6kZI"},
		{name: "bad alphabet l", in: "1EHNa6Q4Jz2uvNExL497mE43ikXhwF6kZl"},
		{name: "short", in: base58.Encode(valid[:DecodedLen-1])},
		{name: "long", in: base58.Encode(append(valid, 0))},
	}

	for _, test := range tests {
		_, err := Decode(test.in)
		require.ErrorIs(t, err, types.ErrEncoding, test.name)
	}
}

// TestDecodeForNet ensures the version byte is enforced per network.
func TestDecodeForNet(t *testing.T) {
	t.Parallel()

	pub := generatorPubKey()
	mainAddr := FromPubKey(pub, &chaincfg.MainNetParams, false).String()
	testAddr := FromPubKey(pub, &chaincfg.TestNet3Params, false).String()

	ref, err := btcutil.NewAddressPubKeyHash(
		Hash160(pub.SerializeUncompressed()), &chaincfg.TestNet3Params,
	)
	require.NoError(t, err)
	require.Equal(t, ref.EncodeAddress(), testAddr)

	_, err = DecodeForNet(mainAddr, &chaincfg.MainNetParams)
	require.NoError(t, err)

	_, err = DecodeForNet(testAddr, &chaincfg.TestNet3Params)
	require.NoError(t, err)

	_, err = DecodeForNet(testAddr, &chaincfg.MainNetParams)
	require.ErrorIs(t, err, types.ErrEncoding)

	_, err = DecodeForNet(mainAddr, &chaincfg.TestNet3Params)
	require.ErrorIs(t, err, types.ErrEncoding)
}

// TestScriptPubKey checks the pay-to-pubkey-hash template.
func TestScriptPubKey(t *testing.T) {
	t.Parallel()

	a, err := Decode("1EHNa6Q4Jz2uvNExL497mE43ikXhwF6kZm")
	require.NoError(t, err)

	script, err := a.ScriptPubKey()
	require.NoError(t, err)
	require.Equal(t,
		"76a91491b24bf9f5288532960ac687abb035127b1d28a588ac",
		hex.EncodeToString(script))

	_, err = New(0, make([]byte, 19))
	require.ErrorIs(t, err, types.ErrEncoding)
}
