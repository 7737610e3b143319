package chainapi

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"keysweep/address"
	t "keysweep/types"

	"github.com/btcsuite/btcd/btcutil"
	"github.com/lightningnetwork/lnd/fn/v2"
)

const (
	// DefaultFeeRate is the fee rate in units per byte used when the fee
	// endpoint cannot be reached or returns nonsense.
	DefaultFeeRate = 10

	// DefaultURL is the public mempool.space Esplora endpoint.
	DefaultURL = "https://mempool.space/api"

	// DefaultTestNetURL is the same endpoint for testnet3.
	DefaultTestNetURL = "https://mempool.space/testnet/api"
)

var (
	// ErrBroadcastRejected is returned when the relay refuses a
	// transaction.
	ErrBroadcastRejected = errors.New("transaction rejected by relay")
)

// ClientConfig holds the configuration for the chain API client.
type ClientConfig struct {
	// URL is the base URL of the Esplora API, e.g.
	// https://mempool.space/api.
	URL string

	// RequestTimeout is the timeout for individual HTTP requests.
	RequestTimeout time.Duration

	// MaxRetries is the maximum number of retries for failed requests.
	MaxRetries int

	// FallbackFeeRate is returned by FeeRate when the estimate cannot be
	// fetched. Zero means DefaultFeeRate.
	FallbackFeeRate uint64
}

// AddressStats is the summary the API keeps per address. Balances are the
// funded minus the spent output sums.
type AddressStats struct {
	Address      string   `json:"address"`
	ChainStats   TxoStats `json:"chain_stats"`
	MempoolStats TxoStats `json:"mempool_stats"`
}

type TxoStats struct {
	FundedTxoCount int    `json:"funded_txo_count"`
	FundedTxoSum   uint64 `json:"funded_txo_sum"`
	SpentTxoCount  int    `json:"spent_txo_count"`
	SpentTxoSum    uint64 `json:"spent_txo_sum"`
	TxCount        int    `json:"tx_count"`
}

// UTXO represents an unspent transaction output.
type UTXO struct {
	TxID   string   `json:"txid"`
	Vout   uint32   `json:"vout"`
	Status TxStatus `json:"status"`
	Value  uint64   `json:"value"`
}

// TxStatus represents transaction confirmation status.
type TxStatus struct {
	Confirmed   bool  `json:"confirmed"`
	BlockHeight int64 `json:"block_height,omitempty"`
}

// RecommendedFees are the mempool.space fee buckets in units per vbyte.
type RecommendedFees struct {
	FastestFee  float64 `json:"fastestFee"`
	HalfHourFee float64 `json:"halfHourFee"`
	HourFee     float64 `json:"hourFee"`
	EconomyFee  float64 `json:"economyFee"`
	MinimumFee  float64 `json:"minimumFee"`
}

// Client is an HTTP client for the Esplora REST API. It is safe for
// concurrent use.
type Client struct {
	cfg *ClientConfig

	httpClient *http.Client
}

// NewClient creates a new client with the given configuration.
func NewClient(cfg *ClientConfig) *Client {
	return &Client{
		cfg: cfg,
		httpClient: &http.Client{
			Timeout: cfg.RequestTimeout,
		},
	}
}

// AddressStats fetches the funding summary of an address.
func (c *Client) AddressStats(ctx context.Context,
	addr string) (*AddressStats, error) {

	body, err := c.doGet(ctx, "/address/"+addr)
	if err != nil {
		return nil, err
	}

	var stats AddressStats
	if err := json.Unmarshal(body, &stats); err != nil {
		return nil, fmt.Errorf("failed to decode response: %w", err)
	}

	return &stats, nil
}

// Balance returns the confirmed plus unconfirmed balance of addr. Any network
// or parsing failure yields None.
func (c *Client) Balance(ctx context.Context, addr string) fn.Option[uint64] {
	stats, err := c.AddressStats(ctx, addr)
	if err != nil {
		log.Debugf("Balance lookup for %v failed: %v", addr, err)
		return fn.None[uint64]()
	}

	funded := stats.ChainStats.FundedTxoSum + stats.MempoolStats.FundedTxoSum
	spent := stats.ChainStats.SpentTxoSum + stats.MempoolStats.SpentTxoSum
	if spent > funded {
		log.Warnf("Address %v reports spent %d > funded %d", addr,
			spent, funded)
		return fn.None[uint64]()
	}

	log.Tracef("Address %v balance %v", addr,
		btcutil.Amount(funded-spent))

	return fn.Some(funded - spent)
}

// UTXOs fetches the unspent outputs of a pay-to-pubkey-hash address, each
// carrying the locking script of the address.
func (c *Client) UTXOs(ctx context.Context, addr string) ([]t.Utxo, error) {
	decoded, err := address.Decode(addr)
	if err != nil {
		return nil, err
	}
	pkScript, err := decoded.ScriptPubKey()
	if err != nil {
		return nil, err
	}

	body, err := c.doGet(ctx, "/address/"+addr+"/utxo")
	if err != nil {
		return nil, err
	}

	var raw []*UTXO
	if err := json.Unmarshal(body, &raw); err != nil {
		return nil, fmt.Errorf("failed to decode response: %w", err)
	}

	utxos := make([]t.Utxo, 0, len(raw))
	for _, u := range raw {
		hash, err := t.HashFromStr(u.TxID)
		if err != nil {
			return nil, fmt.Errorf("invalid txid %q: %w", u.TxID, err)
		}

		utxos = append(utxos, t.Utxo{
			OutPoint: t.OutPoint{Hash: hash, Index: u.Vout},
			Value:    u.Value,
			PkScript: pkScript,
		})
	}

	return utxos, nil
}

// FeeRate returns the fastest recommended fee rate, rounded up, or the
// fallback rate when it cannot be fetched.
func (c *Client) FeeRate(ctx context.Context) uint64 {
	fallback := c.cfg.FallbackFeeRate
	if fallback == 0 {
		fallback = DefaultFeeRate
	}

	body, err := c.doGet(ctx, "/v1/fees/recommended")
	if err != nil {
		log.Warnf("Fee estimate unavailable, using fallback %d: %v",
			fallback, err)
		return fallback
	}

	var fees RecommendedFees
	if err := json.Unmarshal(body, &fees); err != nil {
		log.Warnf("Fee estimate undecodable, using fallback %d: %v",
			fallback, err)
		return fallback
	}

	if fees.FastestFee <= 0 {
		log.Warnf("Fee estimate %v is not positive, using fallback %d",
			fees.FastestFee, fallback)
		return fallback
	}

	rate := uint64(fees.FastestFee)
	if float64(rate) < fees.FastestFee {
		rate++
	}

	return rate
}

// Broadcast posts a hex encoded raw transaction and returns the txid the
// relay reports.
func (c *Client) Broadcast(ctx context.Context, rawTxHex string) (string,
	error) {

	resp, err := c.doRequest(
		ctx, http.MethodPost, "/tx", []byte(rawTxHex),
	)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("failed to read response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("%w: status %d: %s", ErrBroadcastRejected,
			resp.StatusCode, strings.TrimSpace(string(body)))
	}

	txid := strings.TrimSpace(string(body))
	log.Infof("Broadcast transaction %v", txid)

	return txid, nil
}

// doRequest performs an HTTP request with retries. Only transport failures
// are retried; any HTTP response is handed back to the caller.
func (c *Client) doRequest(ctx context.Context, method, path string,
	body []byte) (*http.Response, error) {

	url := strings.TrimRight(c.cfg.URL, "/") + path

	var lastErr error
	for i := 0; i <= c.cfg.MaxRetries; i++ {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		default:
		}

		var reader io.Reader
		if body != nil {
			reader = bytes.NewReader(body)
		}

		req, err := http.NewRequestWithContext(ctx, method, url, reader)
		if err != nil {
			return nil, fmt.Errorf("failed to create request: %w", err)
		}

		if body != nil {
			req.Header.Set("Content-Type", "text/plain")
		}

		resp, err := c.httpClient.Do(req)
		if err != nil {
			lastErr = err
			log.Debugf("%s %s attempt %d failed: %v", method, path,
				i+1, err)

			if i < c.cfg.MaxRetries {
				select {
				case <-time.After(time.Duration(i+1) * 100 * time.Millisecond):
				case <-ctx.Done():
					return nil, ctx.Err()
				}
			}
			continue
		}

		return resp, nil
	}

	return nil, fmt.Errorf("request failed after %d attempts: %w",
		c.cfg.MaxRetries+1, lastErr)
}

// doGet performs a GET request and returns the response body.
func (c *Client) doGet(ctx context.Context, path string) ([]byte, error) {
	resp, err := c.doRequest(ctx, http.MethodGet, path, nil)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("API returned status %d: %s",
			resp.StatusCode, string(body))
	}

	return body, nil
}
