package search

import (
	"context"
	"fmt"

	"keysweep/address"
	"keysweep/txn"
	t "keysweep/types"

	"github.com/btcsuite/btcd/btcutil"
	"github.com/lightningnetwork/lnd/fn/v2"
)

// Chain is the full set of collaborators a sweep needs.
type Chain interface {
	BalanceSource

	UTXOs(ctx context.Context, addr string) ([]t.Utxo, error)
	FeeRate(ctx context.Context) uint64
	Broadcast(ctx context.Context, rawTxHex string) (string, error)
}

// SweepRequest describes where the funds of a candidate go.
type SweepRequest struct {
	Destination *address.Address

	Policy  txn.ChangePolicy
	FeeMode txn.FeeMode

	// Amount is ignored under SweepAll.
	Amount uint64

	// FeeRate overrides the chain's estimate when set.
	FeeRate fn.Option[uint64]

	// DryRun builds and signs but does not broadcast.
	DryRun bool
}

// SweepResult is the signed transaction and what became of it.
type SweepResult struct {
	Tx   *txn.Txn
	TxID string
	Fee  uint64
}

// Sweep spends the candidate's utxos as requested: it fetches utxos and a
// fee rate, builds, signs, verifies each input and broadcasts the raw hex.
func Sweep(ctx context.Context, chain Chain, cand *Candidate,
	req *SweepRequest) (*SweepResult, error) {

	source := cand.Address.String()

	utxos, err := chain.UTXOs(ctx, source)
	if err != nil {
		return nil, fmt.Errorf("unable to fetch utxos of %v: %w", source,
			err)
	}
	if len(utxos) == 0 {
		return nil, t.MakeError(t.ErrInsufficientFunds, fmt.Sprintf(
			"address %v has no spendable outputs", source))
	}

	feeRate := req.FeeRate.UnwrapOrFunc(func() uint64 {
		return chain.FeeRate(ctx)
	})
	log.Infof("Using fee rate %d per byte", feeRate)

	built, err := txn.Build(&txn.BuildRequest{
		Utxos:       utxos,
		Destination: req.Destination,
		Change:      cand.Address,
		Amount:      req.Amount,
		FeeRate:     feeRate,
		FeeMode:     req.FeeMode,
		Policy:      req.Policy,
	})
	if err != nil {
		return nil, err
	}

	if err := txn.Sign(built.Tx, cand.Key); err != nil {
		return nil, err
	}

	for i := range built.Tx.Inputs {
		if err := txn.VerifyInput(built.Tx, i, cand.PubKey); err != nil {
			return nil, err
		}
	}

	result := &SweepResult{
		Tx:   built.Tx,
		TxID: built.Tx.TxHash().String(),
		Fee:  built.Fee,
	}

	log.Infof("Signed %v: %d inputs, %d outputs, fee %v",
		result.TxID, len(built.Tx.Inputs), len(built.Tx.Outputs),
		btcutil.Amount(built.Fee))

	if req.DryRun {
		log.Infof("Dry run, not broadcasting %v", built.Tx.Hex())
		return result, nil
	}

	txid, err := chain.Broadcast(ctx, built.Tx.Hex())
	if err != nil {
		return nil, fmt.Errorf("broadcast of %v failed: %w", result.TxID,
			err)
	}

	if txid != result.TxID {
		log.Warnf("Relay reported txid %v, computed %v", txid,
			result.TxID)
		result.TxID = txid
	}

	return result, nil
}
