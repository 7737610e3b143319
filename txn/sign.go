package txn

import (
	"bytes"
	"errors"
	"fmt"

	"keysweep/address"
	"keysweep/keys"
	t "keysweep/types"

	"github.com/btcsuite/btcd/chaincfg/chainhash"
	"github.com/decred/dcrd/dcrec/secp256k1/v4"
	"github.com/decred/dcrd/dcrec/secp256k1/v4/ecdsa"
)

// SigHashAll commits to every input and output.
const SigHashAll uint32 = 0x01

// ErrSigVerify is returned by VerifyInput when a spending script does not
// hold a valid signature for the input.
var ErrSigVerify = errors.New("signature verification failed")

// CalcSignatureHash computes the legacy sighash of input idx: the
// transaction is serialized with that input's script replaced by the script
// of the output it spends and every other input script emptied, the 4-byte
// hash type is appended and the result is double SHA-256 hashed.
func CalcSignatureHash(tx *Txn, idx int, hashType uint32) ([]byte, error) {
	if idx < 0 || idx >= len(tx.Inputs) {
		return nil, t.MakeError(t.ErrInvalidRequest, fmt.Sprintf("input "+
			"index %d out of range [0, %d)", idx, len(tx.Inputs)))
	}
	if hashType != SigHashAll {
		return nil, t.MakeError(t.ErrInvalidRequest, fmt.Sprintf("hash "+
			"type 0x%x is not supported", hashType))
	}
	if len(tx.Inputs[idx].Utxo.PkScript) == 0 {
		return nil, t.MakeError(t.ErrInvalidRequest, fmt.Sprintf("input "+
			"%d has no previous output script", idx))
	}

	data := tx.encode(func(i int, in *TxIn) []byte {
		if i == idx {
			return in.Utxo.PkScript
		}
		return nil
	})
	data = appendUint32(data, hashType)

	return chainhash.DoubleHashB(data), nil
}

// Sign signs every input with key. Each input must be locked to the
// pay-to-pubkey-hash script of the key's uncompressed public key. Signing is
// deterministic: the same transaction and key give identical bytes.
func Sign(tx *Txn, key *keys.Scalar) error {
	if len(tx.Inputs) == 0 {
		return t.MakeError(t.ErrInvalidRequest, "transaction has no inputs")
	}

	pub, err := key.PubKey()
	if err != nil {
		return err
	}

	for i := range tx.Inputs {
		if err := signInput(tx, i, key, pub); err != nil {
			return err
		}
	}

	return nil
}

// SignInput signs a single input, leaving the others untouched.
func SignInput(tx *Txn, idx int, key *keys.Scalar) error {
	pub, err := key.PubKey()
	if err != nil {
		return err
	}

	return signInput(tx, idx, key, pub)
}

func signInput(tx *Txn, idx int, key *keys.Scalar,
	pub *secp256k1.PublicKey) error {

	hash, err := CalcSignatureHash(tx, idx, SigHashAll)
	if err != nil {
		return err
	}

	expected, err := payToPubKeyHash(pub)
	if err != nil {
		return err
	}
	if !bytes.Equal(tx.Inputs[idx].Utxo.PkScript, expected) {
		return t.MakeError(t.ErrInvalidRequest, fmt.Sprintf("input %d "+
			"is not locked to the signing key", idx))
	}

	sig, err := key.Sign(hash)
	if err != nil {
		return err
	}

	script, err := spendScript(sig, SigHashAll, pub)
	if err != nil {
		return err
	}

	tx.Inputs[idx].SigScript = script
	return nil
}

// VerifyInput checks the spending script of input idx against pub: the
// pushed key must be pub and the pushed signature must verify over the
// input's sighash.
func VerifyInput(tx *Txn, idx int, pub *secp256k1.PublicKey) error {
	if idx < 0 || idx >= len(tx.Inputs) {
		return t.MakeError(t.ErrInvalidRequest, fmt.Sprintf("input "+
			"index %d out of range [0, %d)", idx, len(tx.Inputs)))
	}

	sig, hashType, pushedKey, err := parseSpendScript(tx.Inputs[idx].SigScript)
	if err != nil {
		return fmt.Errorf("input %d: %w", idx, err)
	}

	if !pushedKey.IsEqual(pub) {
		return fmt.Errorf("input %d: %w: public key mismatch", idx,
			ErrSigVerify)
	}

	hash, err := CalcSignatureHash(tx, idx, hashType)
	if err != nil {
		return err
	}

	if !sig.Verify(hash, pub) {
		return fmt.Errorf("input %d: %w", idx, ErrSigVerify)
	}

	return nil
}

func payToPubKeyHash(pub *secp256k1.PublicKey) ([]byte, error) {
	var a address.Address
	copy(a.Hash160[:], address.Hash160(pub.SerializeUncompressed()))
	return a.ScriptPubKey()
}

// Signature returns the parsed signature of an already signed input.
func Signature(tx *Txn, idx int) (*ecdsa.Signature, error) {
	if idx < 0 || idx >= len(tx.Inputs) {
		return nil, t.MakeError(t.ErrInvalidRequest, fmt.Sprintf("input "+
			"index %d out of range [0, %d)", idx, len(tx.Inputs)))
	}

	sig, _, _, err := parseSpendScript(tx.Inputs[idx].SigScript)
	return sig, err
}
