package txn

import (
	"encoding/binary"
)

func appendUint32(data []byte, v uint32) []byte {
	return binary.LittleEndian.AppendUint32(data, v)
}

// appendVarInt writes the compact size prefix used for counts and script
// lengths.
func appendVarInt(data []byte, v uint64) []byte {
	switch {
	case v < 0xfd:
		return append(data, byte(v))
	case v <= 0xffff:
		data = append(data, 0xfd)
		return binary.LittleEndian.AppendUint16(data, uint16(v))
	case v <= 0xffffffff:
		data = append(data, 0xfe)
		return binary.LittleEndian.AppendUint32(data, uint32(v))
	default:
		data = append(data, 0xff)
		return binary.LittleEndian.AppendUint64(data, v)
	}
}

func varIntSize(v uint64) int {
	switch {
	case v < 0xfd:
		return 1
	case v <= 0xffff:
		return 3
	case v <= 0xffffffff:
		return 5
	default:
		return 9
	}
}

func appendScript(data []byte, script []byte) []byte {
	data = appendVarInt(data, uint64(len(script)))
	return append(data, script...)
}

// The prevout hash is kept in internal byte order, which is the reverse of
// the hex txid explorers display.
func encodeInput(in *TxIn, script []byte, data []byte) []byte {
	data = append(data, in.Utxo.OutPoint.Hash[:]...)
	data = appendUint32(data, in.Utxo.OutPoint.Index)
	data = appendScript(data, script)
	data = appendUint32(data, in.Sequence)
	return data
}

func encodeOutput(out TxOut, data []byte) []byte {
	data = binary.LittleEndian.AppendUint64(data, out.Value)
	data = appendScript(data, out.PkScript)
	return data
}
