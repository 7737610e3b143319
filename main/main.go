package main

import (
	"context"
	"errors"
	"os"
	"os/signal"

	"keysweep/chainapi"
	"keysweep/search"

	"github.com/btcsuite/btcd/btcutil"
	flags "github.com/jessevdk/go-flags"
	"github.com/lightningnetwork/lnd/fn/v2"
)

func main() {
	if err := run(os.Args[1:]); err != nil {
		var flagErr *flags.Error
		if errors.As(err, &flagErr) && flagErr.Type == flags.ErrHelp {
			return
		}

		mainLog.Errorf("%v", err)
		os.Exit(1)
	}
}

func run(args []string) error {
	cfg, err := loadConfig(args)
	if err != nil {
		return err
	}
	setLogLevels(cfg.logLevel)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	client := chainapi.NewClient(&chainapi.ClientConfig{
		URL:             cfg.APIURL,
		RequestTimeout:  cfg.RequestTimeout,
		MaxRetries:      cfg.MaxRetries,
		FallbackFeeRate: cfg.FallbackFee,
	})

	searcher := search.New(&search.Config{
		Workers:          cfg.Workers,
		MaxAttempts:      cfg.MaxAttempts,
		Net:              cfg.net,
		LookupTimeout:    cfg.RequestTimeout,
		ProgressInterval: cfg.ProgressInterval,
	}, client)

	mainLog.Infof("Sending found funds to %v (policy=%v)", cfg.destination,
		cfg.policy)

	found, err := searcher.Run(ctx)
	if err != nil {
		return err
	}
	defer found.Wipe()

	mainLog.Infof("Address %v holds %v", found.Address,
		btcutil.Amount(found.Balance))

	feeRate := fn.None[uint64]()
	if cfg.FeeRate > 0 {
		feeRate = fn.Some(cfg.FeeRate)
	}

	result, err := search.Sweep(ctx, client, found.Candidate,
		&search.SweepRequest{
			Destination: cfg.destination,
			Policy:      cfg.policy,
			FeeMode:     cfg.feeMode,
			Amount:      cfg.Amount,
			FeeRate:     feeRate,
			DryRun:      cfg.DryRun,
		})
	if err != nil {
		return err
	}

	if cfg.DryRun {
		mainLog.Infof("Transaction %v signed, not sent, fee %v",
			result.TxID, btcutil.Amount(result.Fee))
		return nil
	}

	mainLog.Infof("Transaction %v sent, fee %v", result.TxID,
		btcutil.Amount(result.Fee))

	return nil
}
