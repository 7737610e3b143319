package txn

import (
	"encoding/hex"

	t "keysweep/types"

	"github.com/btcsuite/btcd/chaincfg/chainhash"
)

const (
	// TxVersion is the version written into every built transaction.
	TxVersion int32 = 1

	// MaxSequence disables lock time and replacement for an input.
	MaxSequence uint32 = 0xffffffff
)

// Txn is a legacy (non-witness) transaction. Until it is signed every input
// carries an empty SigScript placeholder.
type Txn struct {
	Version  int32
	Inputs   []TxIn
	Outputs  []TxOut
	LockTime uint32
}

// TxIn spends the referenced Utxo. The Utxo's value and locking script are
// not serialized; the signer needs the script for the sighash.
type TxIn struct {
	Utxo      t.Utxo
	SigScript []byte
	Sequence  uint32
}

type TxOut struct {
	Value    uint64
	PkScript []byte
}

// Encode serializes the transaction in the wire format.
func (tx *Txn) Encode() []byte {
	return tx.encode(func(_ int, in *TxIn) []byte {
		return in.SigScript
	})
}

// Hex is the hex form of Encode, the format relays accept.
func (tx *Txn) Hex() string {
	return hex.EncodeToString(tx.Encode())
}

// TxHash is the double SHA-256 of the serialization.
func (tx *Txn) TxHash() t.Hash {
	return chainhash.DoubleHashH(tx.Encode())
}

// InputValue sums the values of the referenced outputs.
func (tx *Txn) InputValue() uint64 {
	var total uint64
	for _, in := range tx.Inputs {
		total += in.Utxo.Value
	}
	return total
}

// OutputValue sums the output values.
func (tx *Txn) OutputValue() uint64 {
	var total uint64
	for _, out := range tx.Outputs {
		total += out.Value
	}
	return total
}

// IsSigned reports whether every input has a spending script.
func (tx *Txn) IsSigned() bool {
	for _, in := range tx.Inputs {
		if len(in.SigScript) == 0 {
			return false
		}
	}
	return len(tx.Inputs) > 0
}

// encode writes the transaction with the script of input i taken from
// scriptFor. The regular serialization and every sighash preimage differ
// only in those scripts.
func (tx *Txn) encode(scriptFor func(i int, in *TxIn) []byte) []byte {
	data := make([]byte, 0, EstimateSize(len(tx.Inputs), len(tx.Outputs)))

	data = appendUint32(data, uint32(tx.Version))

	data = appendVarInt(data, uint64(len(tx.Inputs)))
	for i := range tx.Inputs {
		data = encodeInput(&tx.Inputs[i], scriptFor(i, &tx.Inputs[i]), data)
	}

	data = appendVarInt(data, uint64(len(tx.Outputs)))
	for _, out := range tx.Outputs {
		data = encodeOutput(out, data)
	}

	data = appendUint32(data, tx.LockTime)

	return data
}
