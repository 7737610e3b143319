package types

import (
	"fmt"

	"github.com/btcsuite/btcd/chaincfg/chainhash"
)

// Outputs

// Hash is a transaction id in internal byte order, the order it is
// serialized in. Its String form is the reversed hex explorers show.
type Hash = chainhash.Hash

// HashFromStr parses a display form (reversed) transaction id. Unlike
// chainhash.NewHashFromStr it insists on all 64 hex characters.
func HashFromStr(s string) (Hash, error) {
	if len(s) != chainhash.MaxHashStringSize {
		return Hash{}, fmt.Errorf("txid %q is %d characters, want %d", s,
			len(s), chainhash.MaxHashStringSize)
	}

	h, err := chainhash.NewHashFromStr(s)
	if err != nil {
		return Hash{}, err
	}

	return *h, nil
}

type OutPoint struct {
	Hash  Hash
	Index uint32
}

func (o OutPoint) String() string {
	return fmt.Sprintf("%v:%d", o.Hash, o.Index)
}

// Utxo is an unspent output claimed as an input to a new transaction. Value
// and PkScript describe the referenced output; both are committed to by the
// signature of the spending input.
type Utxo struct {
	OutPoint OutPoint
	Value    uint64
	PkScript []byte
}
