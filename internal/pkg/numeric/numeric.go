package numeric

import "math/big"

// BasisPoints is the denominator for all percentage math (10000 = 100%).
const BasisPoints = 10_000

// TokenScale is the 18-decimal fixed-point base for token amounts.
var TokenScale = new(big.Int).Exp(big.NewInt(10), big.NewInt(18), nil)

var (
	bpsDen = big.NewInt(BasisPoints)
	zero   = big.NewInt(0)
)

// MulDiv returns floor(a*b/den). den must be positive; a zero denominator
// returns zero rather than panicking so callers can treat it as "no share".
func MulDiv(a, b, den *big.Int) *big.Int {
	if den.Sign() <= 0 {
		return new(big.Int)
	}
	out := new(big.Int).Mul(a, b)
	return out.Quo(out, den)
}

// Bps returns floor(amount*bps/10000).
func Bps(amount *big.Int, bps int64) *big.Int {
	return MulDiv(amount, big.NewInt(bps), bpsDen)
}

// Sqrt returns the integer square root of x (floor). Negative input yields zero.
func Sqrt(x *big.Int) *big.Int {
	if x.Sign() <= 0 {
		return new(big.Int)
	}
	return new(big.Int).Sqrt(x)
}

// Min returns the smaller of a and b as a fresh value.
func Min(a, b *big.Int) *big.Int {
	if a.Cmp(b) <= 0 {
		return new(big.Int).Set(a)
	}
	return new(big.Int).Set(b)
}

// IsPositive reports whether x is non-nil and > 0.
func IsPositive(x *big.Int) bool {
	return x != nil && x.Cmp(zero) > 0
}
