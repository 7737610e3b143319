// Package address implements the legacy pay-to-pubkey-hash address format:
// base58 text over version || hash160 || checksum, where the checksum is the
// first four bytes of the double SHA-256 of version || hash160.
package address

import (
	"bytes"
	"fmt"

	t "keysweep/types"

	"github.com/btcsuite/btcd/btcutil"
	"github.com/btcsuite/btcd/btcutil/base58"
	"github.com/btcsuite/btcd/chaincfg"
	"github.com/btcsuite/btcd/chaincfg/chainhash"
	"github.com/btcsuite/btcd/txscript"
	"github.com/decred/dcrd/dcrec/secp256k1/v4"
	"golang.org/x/crypto/ripemd160"
)

const (
	// Hash160Len is the length of a RIPEMD-160 digest.
	Hash160Len = ripemd160.Size

	// ChecksumLen is the number of double SHA-256 bytes appended to the
	// payload.
	ChecksumLen = 4

	// DecodedLen is version || hash160 || checksum.
	DecodedLen = 1 + Hash160Len + ChecksumLen
)

// MainNetVersion is the version byte of mainnet pay-to-pubkey-hash addresses.
var MainNetVersion = chaincfg.MainNetParams.PubKeyHashAddrID

// Address is a decoded pay-to-pubkey-hash address.
type Address struct {
	Version byte
	Hash160 [Hash160Len]byte
}

// Hash160 calculates RIPEMD-160(SHA-256(b)).
func Hash160(b []byte) []byte {
	return btcutil.Hash160(b)
}

// New builds an address from a version byte and a 20-byte hash.
func New(version byte, hash160 []byte) (*Address, error) {
	if len(hash160) != Hash160Len {
		return nil, t.MakeError(t.ErrEncoding, fmt.Sprintf("hash160 is "+
			"%d bytes, want %d", len(hash160), Hash160Len))
	}

	a := &Address{Version: version}
	copy(a.Hash160[:], hash160)
	return a, nil
}

// FromPubKey hashes the serialized public key into an address for the given
// network. The uncompressed form is what the legacy pipeline uses; compressed
// keys hash to a different address.
func FromPubKey(pub *secp256k1.PublicKey, params *chaincfg.Params,
	compressed bool) *Address {

	var ser []byte
	if compressed {
		ser = pub.SerializeCompressed()
	} else {
		ser = pub.SerializeUncompressed()
	}

	a := &Address{Version: params.PubKeyHashAddrID}
	copy(a.Hash160[:], Hash160(ser))
	return a
}

// String encodes the address as base58check text.
func (a *Address) String() string {
	return Encode(a.Version, a.Hash160[:])
}

// IsForNet reports whether the address carries the version byte of params.
func (a *Address) IsForNet(params *chaincfg.Params) bool {
	return a.Version == params.PubKeyHashAddrID
}

// ScriptPubKey returns the pay-to-pubkey-hash locking script
// OP_DUP OP_HASH160 <hash160> OP_EQUALVERIFY OP_CHECKSIG.
func (a *Address) ScriptPubKey() ([]byte, error) {
	return txscript.NewScriptBuilder().
		AddOp(txscript.OP_DUP).
		AddOp(txscript.OP_HASH160).
		AddData(a.Hash160[:]).
		AddOp(txscript.OP_EQUALVERIFY).
		AddOp(txscript.OP_CHECKSIG).
		Script()
}

// Encode returns base58(version || payload || checksum).
func Encode(version byte, payload []byte) string {
	data := make([]byte, 0, 1+len(payload)+ChecksumLen)
	data = append(data, version)
	data = append(data, payload...)
	data = append(data, checksum(data)...)

	return base58.Encode(data)
}

// Decode parses base58check text. The decoded buffer must be exactly 25 bytes
// and its trailing four bytes must equal the checksum recomputed over the
// leading 21; anything else is ErrEncoding.
func Decode(s string) (*Address, error) {
	data := base58.Decode(s)
	if len(data) == 0 {
		return nil, t.MakeError(t.ErrEncoding, fmt.Sprintf("address %q "+
			"is not valid base58", s))
	}
	if len(data) != DecodedLen {
		return nil, t.MakeError(t.ErrEncoding, fmt.Sprintf("address %q "+
			"decodes to %d bytes, want %d", s, len(data), DecodedLen))
	}

	payload, sum := data[:DecodedLen-ChecksumLen], data[DecodedLen-ChecksumLen:]
	if !bytes.Equal(checksum(payload), sum) {
		return nil, t.MakeError(t.ErrEncoding, fmt.Sprintf("address %q "+
			"has a checksum mismatch", s))
	}

	return New(payload[0], payload[1:])
}

// DecodeForNet decodes s and additionally requires the version byte of
// params.
func DecodeForNet(s string, params *chaincfg.Params) (*Address, error) {
	a, err := Decode(s)
	if err != nil {
		return nil, err
	}

	if !a.IsForNet(params) {
		return nil, t.MakeError(t.ErrEncoding, fmt.Sprintf("address %q "+
			"has version 0x%02x, want 0x%02x for %s", s, a.Version,
			params.PubKeyHashAddrID, params.Name))
	}

	return a, nil
}

func checksum(payload []byte) []byte {
	return chainhash.DoubleHashB(payload)[:ChecksumLen]
}
