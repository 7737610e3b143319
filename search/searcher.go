package search

import (
	"context"
	"crypto/rand"
	"errors"
	"io"
	"sync"
	"sync/atomic"
	"time"

	t "keysweep/types"

	"github.com/btcsuite/btcd/btcutil"
	"github.com/btcsuite/btcd/chaincfg"
	"github.com/lightningnetwork/lnd/fn/v2"
	"golang.org/x/sync/errgroup"
)

// ErrNotFound is returned by Run when the attempt budget is used up without
// finding a funded address.
var ErrNotFound = errors.New("no funded address found")

// BalanceSource looks up address balances. None means the lookup failed.
type BalanceSource interface {
	Balance(ctx context.Context, addr string) fn.Option[uint64]
}

// Config holds the search parameters.
type Config struct {
	// Workers is the number of concurrent attempt loops. Values below one
	// mean one.
	Workers int

	// MaxAttempts caps the total number of attempts across workers. Zero
	// means no cap.
	MaxAttempts uint64

	// Net selects the address version byte.
	Net *chaincfg.Params

	// Rand is the entropy source shared by all workers. It must be safe
	// for concurrent use. Nil means crypto/rand.
	Rand io.Reader

	// LookupTimeout bounds each balance lookup. Zero means no bound beyond
	// the Run context.
	LookupTimeout time.Duration

	// ProgressInterval logs a progress line every that many attempts.
	// Zero disables progress logging.
	ProgressInterval uint64
}

// Found is a funded candidate.
type Found struct {
	*Candidate

	Balance uint64
}

// Searcher runs attempts on several workers until one of them finds an
// address with a positive balance.
type Searcher struct {
	cfg      *Config
	balances BalanceSource

	attempts atomic.Uint64
	failures atomic.Uint64
}

// New creates a searcher.
func New(cfg *Config, balances BalanceSource) *Searcher {
	return &Searcher{
		cfg:      cfg,
		balances: balances,
	}
}

// Attempts returns the number of attempts started so far.
func (s *Searcher) Attempts() uint64 {
	return s.attempts.Load()
}

// LookupFailures returns the number of balance lookups that yielded None.
func (s *Searcher) LookupFailures() uint64 {
	return s.failures.Load()
}

// Run searches until a funded address turns up, the attempt budget is spent
// (ErrNotFound) or ctx is cancelled. The first worker to find a funded
// address fires the shared cancellation; the others stop at their next
// check. A failing entropy source aborts the search.
func (s *Searcher) Run(ctx context.Context) (*Found, error) {
	workers := s.cfg.Workers
	if workers < 1 {
		workers = 1
	}

	entropy := s.cfg.Rand
	if entropy == nil {
		entropy = rand.Reader
	}

	net := s.cfg.Net
	if net == nil {
		net = &chaincfg.MainNetParams
	}

	searchCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	var (
		once  sync.Once
		found *Found
	)

	log.Infof("Starting search with %d workers", workers)

	g, gctx := errgroup.WithContext(searchCtx)
	for i := 0; i < workers; i++ {
		g.Go(func() error {
			for {
				select {
				case <-gctx.Done():
					return nil
				default:
				}

				n := s.attempts.Add(1)
				if s.cfg.MaxAttempts > 0 && n > s.cfg.MaxAttempts {
					return nil
				}
				s.logProgress(n)

				cand, err := Attempt(entropy, net)
				switch {
				case t.IsRetryable(err):
					log.Debugf("Attempt %d resampled: %v", n, err)
					continue

				case err != nil:
					return err
				}

				balance := s.lookup(gctx, cand)
				if balance == 0 {
					cand.Wipe()
					continue
				}

				claimed := false
				once.Do(func() {
					found = &Found{Candidate: cand, Balance: balance}
					claimed = true
					cancel()
				})
				if !claimed {
					cand.Wipe()
				}

				return nil
			}
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}

	if found != nil {
		log.Infof("Found funded address %v with %v after %d attempts",
			found.Address, btcutil.Amount(found.Balance),
			s.attempts.Load())
		return found, nil
	}

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	return nil, ErrNotFound
}

func (s *Searcher) lookup(ctx context.Context, cand *Candidate) uint64 {
	if s.cfg.LookupTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.cfg.LookupTimeout)
		defer cancel()
	}

	addr := cand.Address.String()
	balance := s.balances.Balance(ctx, addr)
	if balance.IsNone() {
		s.failures.Add(1)
		log.Debugf("No balance for %v", addr)
	}

	return balance.UnwrapOr(0)
}

func (s *Searcher) logProgress(n uint64) {
	if s.cfg.ProgressInterval == 0 || n%s.cfg.ProgressInterval != 0 {
		return
	}

	log.Infof("Searched %d addresses (%d failed lookups)", n,
		s.failures.Load())
}
