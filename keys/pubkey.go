package keys

import (
	"encoding/hex"

	t "keysweep/types"

	"github.com/decred/dcrd/dcrec/secp256k1/v4"
)

const (
	// PubKeyUncompressedLen is 0x04 || X || Y.
	PubKeyUncompressedLen = 65

	// PubKeyCompressedLen is 0x02/0x03 || X.
	PubKeyCompressedLen = 33
)

// generator is the secp256k1 base point G in Jacobian form with Z = 1.
var generator = func() secp256k1.JacobianPoint {
	var x, y, z secp256k1.FieldVal
	x.SetByteSlice(mustDecodeHex("79be667ef9dcbbac55a06295ce870b07029bfcdb2dce28d959f2815b16f81798"))
	y.SetByteSlice(mustDecodeHex("483ada7726a3c4655da4fbfc0e1108a8fd17b448a68554199c47d08ffb10d4b8"))
	z.SetInt(1)
	return secp256k1.MakeJacobianPoint(&x, &y, &z)
}()

// PubKey computes Q = d*G.
func (s *Scalar) PubKey() (*secp256k1.PublicKey, error) {
	if err := s.valid(); err != nil {
		return nil, err
	}

	k := s.k.Bytes()
	defer zeroArray(&k)

	var q secp256k1.JacobianPoint
	scalarBaseMult(&k, &q)

	if isInfinity(&q) {
		return nil, t.MakeError(t.ErrCurve, "derived point is the "+
			"point at infinity")
	}

	q.ToAffine()
	return secp256k1.NewPublicKey(&q.X, &q.Y), nil
}

// scalarBaseMult is a left-to-right double-and-add over the 256 bits of k.
// Every bit costs one doubling and one addition; the bit only decides which
// of the two results is carried forward.
func scalarBaseMult(k *[ScalarLen]byte, result *secp256k1.JacobianPoint) {
	var acc, doubled, sum secp256k1.JacobianPoint

	for _, b := range k {
		for bit := 7; bit >= 0; bit-- {
			secp256k1.DoubleNonConst(&acc, &doubled)
			secp256k1.AddNonConst(&doubled, &generator, &sum)

			if (b>>uint(bit))&1 == 1 {
				acc.Set(&sum)
			} else {
				acc.Set(&doubled)
			}
		}
	}

	result.Set(&acc)
}

func isInfinity(p *secp256k1.JacobianPoint) bool {
	return (p.X.IsZero() && p.Y.IsZero()) || p.Z.IsZero()
}

// OnCurve reports whether (x, y) satisfies y^2 = x^3 + 7 (mod p).
func OnCurve(pub *secp256k1.PublicKey) bool {
	var p secp256k1.JacobianPoint
	pub.AsJacobian(&p)

	var y2, x3 secp256k1.FieldVal
	y2.SquareVal(&p.Y).Normalize()
	x3.SquareVal(&p.X).Mul(&p.X).AddInt(7).Normalize()

	return y2.Equals(&x3)
}

func mustDecodeHex(s string) []byte {
	b, err := hex.DecodeString(s)
	if err != nil {
		panic(err)
	}
	return b
}
