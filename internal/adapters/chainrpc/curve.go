package chainrpc

import "math/big"

// Edwards25519 curve parameters: -x^2 + y^2 = 1 + d*x^2*y^2 over the field
// Z_p with p = 2^255 - 19. Used only to reject PDA candidates that happen to
// land on the curve, per Solana's find_program_address contract.
var (
	curveP = new(big.Int).Sub(new(big.Int).Lsh(big.NewInt(1), 255), big.NewInt(19))
	curveD = func() *big.Int {
		// d = -121665/121666 mod p
		num := big.NewInt(-121665)
		den := big.NewInt(121666)
		denInv := new(big.Int).ModInverse(den, curveP)
		d := new(big.Int).Mul(num, denInv)
		return d.Mod(d, curveP)
	}()
)

// isValidEdwardsYCoordinate decodes a little-endian 32-byte candidate as a
// compressed Edwards point (sign bit in the top bit of the last byte, y in
// the remaining 255 bits) and reports whether a corresponding x exists,
// i.e. whether the point actually lies on the curve.
func isValidEdwardsYCoordinate(le []byte) bool {
	be := make([]byte, 32)
	for i, b := range le {
		be[31-i] = b
	}
	be[0] &^= 0x80 // clear the sign bit before interpreting y

	y := new(big.Int).SetBytes(be)
	if y.Cmp(curveP) >= 0 {
		return false
	}

	ySq := new(big.Int).Mul(y, y)
	ySq.Mod(ySq, curveP)

	// u = y^2 - 1, v = d*y^2 + 1; x^2 = u/v
	u := new(big.Int).Sub(ySq, big.NewInt(1))
	u.Mod(u, curveP)
	v := new(big.Int).Mul(curveD, ySq)
	v.Add(v, big.NewInt(1))
	v.Mod(v, curveP)

	if v.Sign() == 0 {
		return false
	}
	vInv := new(big.Int).ModInverse(v, curveP)
	if vInv == nil {
		return false
	}
	xSq := new(big.Int).Mul(u, vInv)
	xSq.Mod(xSq, curveP)

	return isQuadraticResidue(xSq)
}

// isQuadraticResidue reports whether a has a square root mod curveP, using
// Euler's criterion: a is a QR iff a^((p-1)/2) == 1 mod p.
func isQuadraticResidue(a *big.Int) bool {
	if a.Sign() == 0 {
		return true
	}
	exp := new(big.Int).Sub(curveP, big.NewInt(1))
	exp.Rsh(exp, 1)
	r := new(big.Int).Exp(a, exp, curveP)
	return r.Cmp(big.NewInt(1)) == 0
}
