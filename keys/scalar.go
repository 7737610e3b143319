package keys

import (
	"fmt"
	"io"

	t "keysweep/types"

	"github.com/decred/dcrd/dcrec/secp256k1/v4"
)

const (
	// ScalarLen is the length of a serialized private scalar.
	ScalarLen = 32

	// maxRejections bounds the resampling loop in GenerateScalar. A value
	// outside [1, n-1] turns up with probability ~2^-128 per draw, so a
	// source that keeps producing them is broken, not unlucky.
	maxRejections = 64
)

// Scalar is a secp256k1 private key scalar d with 0 < d < n. The zero value
// is not a valid scalar and every operation on it fails with ErrCurve.
type Scalar struct {
	k secp256k1.ModNScalar
}

// GenerateScalar reads 32 bytes from rand, interprets them as a big-endian
// integer and resamples while the value is 0 or not below the group order. A
// failing source is fatal and reported as ErrEntropy.
func GenerateScalar(rand io.Reader) (*Scalar, error) {
	var buf [ScalarLen]byte
	defer zeroArray(&buf)

	for i := 0; i < maxRejections; i++ {
		if _, err := io.ReadFull(rand, buf[:]); err != nil {
			return nil, t.Error{
				Err:         t.ErrEntropy,
				Description: fmt.Sprintf("reading entropy: %v", err),
			}
		}

		var s Scalar
		overflow := s.k.SetByteSlice(buf[:])
		if overflow || s.k.IsZero() {
			s.k.Zero()
			continue
		}

		return &s, nil
	}

	return nil, t.MakeError(t.ErrEntropy, fmt.Sprintf("entropy source "+
		"produced %d out of range scalars in a row", maxRejections))
}

// ParseScalar interprets b as a big-endian private scalar. It must be exactly
// 32 bytes and encode a value in [1, n-1].
func ParseScalar(b []byte) (*Scalar, error) {
	if len(b) != ScalarLen {
		return nil, t.MakeError(t.ErrCurve, fmt.Sprintf("malformed "+
			"scalar: %d bytes, want %d", len(b), ScalarLen))
	}

	var s Scalar
	if overflow := s.k.SetByteSlice(b); overflow {
		s.k.Zero()
		return nil, t.MakeError(t.ErrCurve, "scalar is not below the "+
			"group order")
	}
	if s.k.IsZero() {
		return nil, t.MakeError(t.ErrCurve, "scalar is zero")
	}

	return &s, nil
}

// Bytes returns the big-endian encoding of the scalar. The caller owns the
// copy and should wipe it when done.
func (s *Scalar) Bytes() [ScalarLen]byte {
	return s.k.Bytes()
}

// Zero wipes the scalar. It is invalid afterwards.
func (s *Scalar) Zero() {
	s.k.Zero()
}

func (s *Scalar) valid() error {
	if s == nil || s.k.IsZero() {
		return t.MakeError(t.ErrCurve, "scalar is zero")
	}
	return nil
}

func zeroArray(b *[ScalarLen]byte) {
	for i := range b {
		b[i] = 0
	}
}
