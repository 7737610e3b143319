package txn

// Byte sizes of the legacy pay-to-pubkey-hash transaction parts. Inputs are
// sized for the worst case: a 72-byte DER signature and an uncompressed key.
const (
	// P2PKHPkScriptSize is OP_DUP OP_HASH160 <20> OP_EQUALVERIFY OP_CHECKSIG.
	P2PKHPkScriptSize = 1 + 1 + 1 + 20 + 1 + 1

	// P2PKHSigScriptSize is push(sig || hashtype) push(pubkey).
	P2PKHSigScriptSize = 1 + 72 + 1 + 1 + 65

	// P2PKHInputSize is outpoint, script length, script and sequence.
	P2PKHInputSize = 32 + 4 + 1 + P2PKHSigScriptSize + 4

	// P2PKHOutputSize is value, script length and script.
	P2PKHOutputSize = 8 + 1 + P2PKHPkScriptSize

	// baseTxSize is version and lock time.
	baseTxSize = 4 + 4
)

// EstimateSize returns the serialized size in bytes of a fully signed
// transaction with numInputs P2PKH inputs and numOutputs P2PKH outputs.
func EstimateSize(numInputs, numOutputs int) int {
	return baseTxSize +
		varIntSize(uint64(numInputs)) + numInputs*P2PKHInputSize +
		varIntSize(uint64(numOutputs)) + numOutputs*P2PKHOutputSize
}

// EstimateFee is EstimateSize priced at feeRate units per byte.
func EstimateFee(numInputs, numOutputs int, feeRate uint64) uint64 {
	return uint64(EstimateSize(numInputs, numOutputs)) * feeRate
}
