package txn

import (
	"fmt"

	"github.com/btcsuite/btcd/txscript"
	"github.com/decred/dcrd/dcrec/secp256k1/v4"
	"github.com/decred/dcrd/dcrec/secp256k1/v4/ecdsa"
)

// spendScript builds push(DER(sig) || hashType) push(pubkey).
func spendScript(sig *ecdsa.Signature, hashType uint32,
	pub *secp256k1.PublicKey) ([]byte, error) {

	sigBytes := append(sig.Serialize(), byte(hashType))

	return txscript.NewScriptBuilder().
		AddData(sigBytes).
		AddData(pub.SerializeUncompressed()).
		Script()
}

func parseSpendScript(script []byte) (*ecdsa.Signature, uint32,
	*secp256k1.PublicKey, error) {

	if len(script) == 0 {
		return nil, 0, nil, fmt.Errorf("%w: input is not signed",
			ErrSigVerify)
	}

	pushes, err := txscript.PushedData(script)
	if err != nil {
		return nil, 0, nil, err
	}
	if len(pushes) != 2 || len(pushes[0]) < 2 {
		return nil, 0, nil, fmt.Errorf("%w: malformed spending script",
			ErrSigVerify)
	}

	rawSig := pushes[0]
	hashType := uint32(rawSig[len(rawSig)-1])

	sig, err := ecdsa.ParseDERSignature(rawSig[:len(rawSig)-1])
	if err != nil {
		return nil, 0, nil, err
	}

	pub, err := secp256k1.ParsePubKey(pushes[1])
	if err != nil {
		return nil, 0, nil, err
	}

	return sig, hashType, pub, nil
}
