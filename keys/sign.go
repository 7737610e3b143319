package keys

import (
	"fmt"

	t "keysweep/types"

	"github.com/decred/dcrd/dcrec/secp256k1/v4"
	"github.com/decred/dcrd/dcrec/secp256k1/v4/ecdsa"
)

// MaxNonceIterations bounds the RFC6979 counter. Each extra iteration is only
// needed when r or s comes out zero, which happens with negligible
// probability.
const MaxNonceIterations = 16

// nonceRFC6979 derives the nonce for an iteration. Tests replace it to force
// the retry path.
var nonceRFC6979 = secp256k1.NonceRFC6979

// Sign produces a deterministic ECDSA signature of the 32-byte digest hash.
// The nonce is derived per RFC6979 from the scalar and the digest, so signing
// the same digest with the same key always yields the same signature. S is
// normalized to the lower half of the group order.
func (s *Scalar) Sign(hash []byte) (*ecdsa.Signature, error) {
	if err := s.valid(); err != nil {
		return nil, err
	}
	if len(hash) != 32 {
		return nil, t.MakeError(t.ErrInvalidRequest, fmt.Sprintf("digest "+
			"is %d bytes, want 32", len(hash)))
	}

	privBytes := s.k.Bytes()
	defer zeroArray(&privBytes)

	// e is the digest reduced mod n.
	var e secp256k1.ModNScalar
	e.SetByteSlice(hash)

	for iteration := uint32(0); iteration < MaxNonceIterations; iteration++ {
		k := nonceRFC6979(privBytes[:], hash, nil, nil, iteration)

		// R = kG, r = R.x mod n
		var kG secp256k1.JacobianPoint
		secp256k1.ScalarBaseMultNonConst(k, &kG)
		kG.ToAffine()

		var r secp256k1.ModNScalar
		rBytes := kG.X.Bytes()
		r.SetByteSlice(rBytes[:])
		if r.IsZero() {
			k.Zero()
			continue
		}

		// s = k^-1 (e + d*r) mod n
		kInv := new(secp256k1.ModNScalar).InverseValNonConst(k)
		k.Zero()

		sig := new(secp256k1.ModNScalar).Mul2(&s.k, &r).Add(&e).Mul(kInv)
		kInv.Zero()
		if sig.IsZero() {
			continue
		}

		if sig.IsOverHalfOrder() {
			sig.Negate()
		}

		return ecdsa.NewSignature(&r, sig), nil
	}

	return nil, t.MakeError(t.ErrSigning, fmt.Sprintf("no valid nonce "+
		"after %d iterations", MaxNonceIterations))
}
