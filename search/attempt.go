package search

import (
	"io"

	"keysweep/address"
	"keysweep/keys"

	"github.com/btcsuite/btcd/chaincfg"
	"github.com/decred/dcrd/dcrec/secp256k1/v4"
)

// Candidate is one generated identity. The owner must call Wipe once the key
// is no longer needed.
type Candidate struct {
	Key     *keys.Scalar
	PubKey  *secp256k1.PublicKey
	Address *address.Address
}

// Wipe zeroes the private scalar.
func (c *Candidate) Wipe() {
	if c.Key != nil {
		c.Key.Zero()
	}
}

// Attempt draws a fresh scalar from rand and derives its uncompressed public
// key and address on net. It has no side effects beyond reading rand.
func Attempt(rand io.Reader, net *chaincfg.Params) (*Candidate, error) {
	key, err := keys.GenerateScalar(rand)
	if err != nil {
		return nil, err
	}

	return FromScalar(key, net)
}

// FromScalar derives the candidate for an existing scalar.
func FromScalar(key *keys.Scalar, net *chaincfg.Params) (*Candidate, error) {
	pub, err := key.PubKey()
	if err != nil {
		key.Zero()
		return nil, err
	}

	return &Candidate{
		Key:     key,
		PubKey:  pub,
		Address: address.FromPubKey(pub, net, false),
	}, nil
}
