package txn

import (
	"fmt"
	"math"

	"keysweep/address"
	t "keysweep/types"

	"github.com/btcsuite/btcd/btcutil"
	"github.com/btcsuite/btcwallet/wallet/txrules"
)

const (
	// MaxFeeRate caps the fee rate in units per byte. Anything above it is
	// a mistake, not a bid.
	MaxFeeRate = 1_000

	// maxValue is the money supply. No utxo or set of utxos is worth more.
	maxValue = uint64(btcutil.MaxSatoshi)
)

// DustLimit is the smallest P2PKH output relays accept at the default relay
// fee. Smaller change is left to the fee instead.
var DustLimit = uint64(txrules.GetDustThreshold(
	P2PKHPkScriptSize, txrules.DefaultRelayFeePerKb,
))

// FeeMode decides who pays the fee.
type FeeMode uint8

const (
	// FeeOnTop sends Amount to the destination and takes the fee from the
	// remaining input value.
	FeeOnTop FeeMode = iota

	// SubtractFee sends Amount minus the fee to the destination.
	SubtractFee
)

func (m FeeMode) String() string {
	switch m {
	case FeeOnTop:
		return "ontop"
	case SubtractFee:
		return "subtract"
	default:
		return fmt.Sprintf("FeeMode(%d)", uint8(m))
	}
}

// ChangePolicy decides what happens to input value beyond the payment.
type ChangePolicy uint8

const (
	// ChangeToSource returns any remainder to the change address in a
	// second output.
	ChangeToSource ChangePolicy = iota

	// SweepAll spends every utxo into a single destination output worth
	// the total minus the fee. Amount and FeeMode are ignored.
	SweepAll
)

func (p ChangePolicy) String() string {
	switch p {
	case ChangeToSource:
		return "change"
	case SweepAll:
		return "sweep"
	default:
		return fmt.Sprintf("ChangePolicy(%d)", uint8(p))
	}
}

// BuildRequest describes a payment from utxos locked to one key.
type BuildRequest struct {
	// Utxos are candidate inputs, consumed in order.
	Utxos []t.Utxo

	Destination *address.Address

	// Change receives the remainder under ChangeToSource. It is normally
	// the address the utxos are locked to.
	Change *address.Address

	Amount uint64

	// FeeRate is in units per byte of the estimated signed size.
	FeeRate uint64

	FeeMode  FeeMode
	Policy   ChangePolicy
	LockTime uint32
}

// BuildResult is an unsigned transaction plus its accounting. The inputs
// always add up to the outputs plus Fee.
type BuildResult struct {
	Tx  *Txn
	Fee uint64

	// ChangeIndex is the index of the change output, or -1.
	ChangeIndex int
}

// Build selects inputs and assembles the unsigned transaction. It fails with
// ErrInsufficientFunds when the utxos cannot pay for the request.
func Build(req *BuildRequest) (*BuildResult, error) {
	if err := req.validate(); err != nil {
		return nil, err
	}

	destScript, err := req.Destination.ScriptPubKey()
	if err != nil {
		return nil, err
	}

	if req.Policy == SweepAll {
		return buildSweep(req, destScript)
	}

	selected, total, err := selectUtxos(req)
	if err != nil {
		return nil, err
	}

	changeScript, err := req.Change.ScriptPubKey()
	if err != nil {
		return nil, err
	}

	n := len(selected)
	feeSingle := EstimateFee(n, 1, req.FeeRate)
	feeChange := EstimateFee(n, 2, req.FeeRate)

	var (
		outputs []TxOut
		fee     uint64
	)
	switch req.FeeMode {
	case FeeOnTop:
		// Selection guarantees total >= amount + feeSingle. A remainder
		// that cannot pay for a change output of at least DustLimit
		// stays with the fee and is reported there.
		fee = total - req.Amount
		outputs = []TxOut{{Value: req.Amount, PkScript: destScript}}

		if change, ok := subChecked(total, addSaturating(req.Amount,
			feeChange)); ok && change >= DustLimit {

			fee = feeChange
			outputs = append(outputs, TxOut{
				Value: change, PkScript: changeScript,
			})
		}

	case SubtractFee:
		change := total - req.Amount

		fee = feeSingle
		if change >= DustLimit {
			fee = feeChange
		}
		if req.Amount <= fee || req.Amount-fee < DustLimit {
			return nil, t.MakeError(t.ErrInsufficientFunds, fmt.Sprintf(
				"amount %d does not cover fee %d and a spendable "+
					"output", req.Amount, fee))
		}

		outputs = []TxOut{{Value: req.Amount - fee, PkScript: destScript}}
		if change >= DustLimit {
			outputs = append(outputs, TxOut{
				Value: change, PkScript: changeScript,
			})
		} else {
			fee += change
		}
	}

	changeIndex := -1
	if len(outputs) == 2 {
		changeIndex = 1
	}

	return &BuildResult{
		Tx:          newTxn(selected, outputs, req.LockTime),
		Fee:         fee,
		ChangeIndex: changeIndex,
	}, nil
}

func buildSweep(req *BuildRequest, destScript []byte) (*BuildResult, error) {
	var total uint64
	for _, u := range req.Utxos {
		total += u.Value
	}

	fee := EstimateFee(len(req.Utxos), 1, req.FeeRate)
	if total <= fee || total-fee < DustLimit {
		return nil, t.MakeError(t.ErrInsufficientFunds, fmt.Sprintf(
			"balance %d does not cover fee %d and a spendable output",
			total, fee))
	}

	outputs := []TxOut{{Value: total - fee, PkScript: destScript}}

	return &BuildResult{
		Tx:          newTxn(req.Utxos, outputs, req.LockTime),
		Fee:         fee,
		ChangeIndex: -1,
	}, nil
}

// selectUtxos takes utxos in order until they cover the amount, plus the
// single output fee under FeeOnTop.
func selectUtxos(req *BuildRequest) ([]t.Utxo, uint64, error) {
	var (
		total uint64
		need  uint64
	)
	for i, u := range req.Utxos {
		total += u.Value

		need = req.Amount
		if req.FeeMode == FeeOnTop {
			need = addSaturating(need, EstimateFee(i+1, 1, req.FeeRate))
		}

		if total >= need {
			return req.Utxos[:i+1], total, nil
		}
	}

	return nil, 0, t.MakeError(t.ErrInsufficientFunds, fmt.Sprintf(
		"inputs total %d, need %d", total, need))
}

func newTxn(utxos []t.Utxo, outputs []TxOut, lockTime uint32) *Txn {
	tx := &Txn{
		Version:  TxVersion,
		Inputs:   make([]TxIn, 0, len(utxos)),
		Outputs:  outputs,
		LockTime: lockTime,
	}

	for _, u := range utxos {
		tx.Inputs = append(tx.Inputs, TxIn{
			Utxo:     u,
			Sequence: MaxSequence,
		})
	}

	return tx
}

func (r *BuildRequest) validate() error {
	// Input totals stay within the money supply, so no sum over the
	// utxos can wrap.
	var total uint64
	for _, u := range r.Utxos {
		if u.Value == 0 {
			return t.MakeError(t.ErrInvalidRequest, fmt.Sprintf("utxo "+
				"%v has no value", u.OutPoint))
		}
		if u.Value > maxValue || total > maxValue-u.Value {
			return t.MakeError(t.ErrInvalidRequest, fmt.Sprintf("utxo "+
				"values exceed %v", btcutil.Amount(maxValue)))
		}
		total += u.Value
	}

	switch {
	case len(r.Utxos) == 0:
		return t.MakeError(t.ErrInvalidRequest, "no utxos to spend")

	case r.FeeRate == 0:
		return t.MakeError(t.ErrInvalidRequest, "fee rate must be positive")

	case r.FeeRate > MaxFeeRate:
		return t.MakeError(t.ErrInvalidRequest, fmt.Sprintf("fee rate "+
			"%d exceeds %d", r.FeeRate, MaxFeeRate))

	case r.Destination == nil:
		return t.MakeError(t.ErrInvalidRequest, "missing destination")

	case r.Policy != ChangeToSource && r.Policy != SweepAll:
		return t.MakeError(t.ErrInvalidRequest, fmt.Sprintf("unknown "+
			"change policy %v", r.Policy))

	case r.Policy == SweepAll:
		return nil

	case r.Change == nil:
		return t.MakeError(t.ErrInvalidRequest, "missing change address")

	case r.FeeMode != FeeOnTop && r.FeeMode != SubtractFee:
		return t.MakeError(t.ErrInvalidRequest, fmt.Sprintf("unknown "+
			"fee mode %v", r.FeeMode))

	case r.Amount == 0:
		return t.MakeError(t.ErrInvalidRequest, "amount must be positive")

	case r.FeeMode == FeeOnTop && r.Amount < DustLimit:
		return t.MakeError(t.ErrInvalidRequest, fmt.Sprintf("amount "+
			"%d is below the dust limit %d", r.Amount, DustLimit))
	}

	return nil
}

// addSaturating returns a + b, or MaxUint64 when the sum would wrap. A
// saturated requirement can never be met by real inputs.
func addSaturating(a, b uint64) uint64 {
	if a > math.MaxUint64-b {
		return math.MaxUint64
	}
	return a + b
}

// subChecked returns a - b and whether it did not underflow.
func subChecked(a, b uint64) (uint64, bool) {
	if b > a {
		return 0, false
	}
	return a - b, true
}
