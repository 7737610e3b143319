package main

import (
	"fmt"
	"time"

	"keysweep/address"
	"keysweep/chainapi"
	"keysweep/txn"

	"github.com/btcsuite/btcd/chaincfg"
	"github.com/btcsuite/btclog"
	flags "github.com/jessevdk/go-flags"
)

const (
	defaultWorkers          = 4
	defaultRequestTimeout   = 10 * time.Second
	defaultMaxRetries       = 2
	defaultProgressInterval = 1000
	defaultLogLevel         = "info"
)

// config defines the configuration options for keysweep.
type config struct {
	Target string `long:"target" description:"Address that receives the swept funds" required:"true"`

	Workers     int    `long:"workers" description:"Number of concurrent search workers"`
	MaxAttempts uint64 `long:"maxattempts" description:"Stop after this many attempts; 0 searches until interrupted"`

	APIURL         string        `long:"apiurl" description:"Base URL of the Esplora API (default: mempool.space for the selected network)"`
	RequestTimeout time.Duration `long:"requesttimeout" description:"Timeout of a single API request"`
	MaxRetries     int           `long:"maxretries" description:"Retries of a failed API request"`
	FeeRate        uint64        `long:"feerate" description:"Fee rate in units per byte; 0 asks the API"`
	FallbackFee    uint64        `long:"fallbackfee" description:"Fee rate used when the API estimate is unavailable"`

	TestNet bool `long:"testnet" description:"Use testnet3 address versions"`

	Policy  string `long:"policy" description:"What happens to the funds" choice:"sweep" choice:"change"`
	FeeMode string `long:"feemode" description:"Who pays the fee under --policy=change" choice:"ontop" choice:"subtract"`
	Amount  uint64 `long:"amount" description:"Amount to send under --policy=change"`

	DryRun bool `long:"dryrun" description:"Sign but do not broadcast"`

	ProgressInterval uint64 `long:"progress" description:"Log progress every this many attempts; 0 disables"`
	DebugLevel       string `short:"d" long:"debuglevel" description:"Logging level {trace, debug, info, warn, error, critical, off}"`

	// Set by validate.
	net         *chaincfg.Params
	destination *address.Address
	policy      txn.ChangePolicy
	feeMode     txn.FeeMode
	logLevel    btclog.Level
}

func defaultConfig() config {
	return config{
		Workers:          defaultWorkers,
		RequestTimeout:   defaultRequestTimeout,
		MaxRetries:       defaultMaxRetries,
		FallbackFee:      chainapi.DefaultFeeRate,
		Policy:           txn.SweepAll.String(),
		FeeMode:          txn.FeeOnTop.String(),
		ProgressInterval: defaultProgressInterval,
		DebugLevel:       defaultLogLevel,
	}
}

// loadConfig parses the command line over the defaults and validates the
// result.
func loadConfig(args []string) (*config, error) {
	cfg := defaultConfig()

	if _, err := flags.NewParser(&cfg, flags.Default).ParseArgs(args); err != nil {
		return nil, err
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

func (c *config) validate() error {
	c.net = &chaincfg.MainNetParams
	defaultURL := chainapi.DefaultURL
	if c.TestNet {
		c.net = &chaincfg.TestNet3Params
		defaultURL = chainapi.DefaultTestNetURL
	}

	// An explicit --apiurl wins on either network.
	if c.APIURL == "" {
		c.APIURL = defaultURL
	}

	dest, err := address.DecodeForNet(c.Target, c.net)
	if err != nil {
		return fmt.Errorf("invalid target address: %w", err)
	}
	c.destination = dest

	switch c.Policy {
	case txn.SweepAll.String():
		c.policy = txn.SweepAll
	case txn.ChangeToSource.String():
		c.policy = txn.ChangeToSource
	default:
		return fmt.Errorf("unknown policy %q", c.Policy)
	}

	switch c.FeeMode {
	case txn.FeeOnTop.String():
		c.feeMode = txn.FeeOnTop
	case txn.SubtractFee.String():
		c.feeMode = txn.SubtractFee
	default:
		return fmt.Errorf("unknown fee mode %q", c.FeeMode)
	}

	if c.policy == txn.ChangeToSource && c.Amount == 0 {
		return fmt.Errorf("--amount is required with --policy=%v",
			c.policy)
	}

	if c.Workers < 1 {
		return fmt.Errorf("--workers must be at least 1, got %d",
			c.Workers)
	}

	level, ok := btclog.LevelFromString(c.DebugLevel)
	if !ok {
		return fmt.Errorf("unknown debug level %q", c.DebugLevel)
	}
	c.logLevel = level

	return nil
}
