package reliability

import (
	"math"
	"math/big"

	"github.com/shopspring/decimal"
)

// Round2 rounds v to two decimal places, half to even on the exact binary
// value of v. 2.675 is stored as 2.67499999... and so rounds to 2.67.
// Non-finite values are returned unchanged.
func Round2(v float64) float64 {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return v
	}
	return exactDecimal(v).RoundBank(2).InexactFloat64()
}

// exactDecimal returns the exact decimal expansion of v. Every finite float64
// is mant·2^exp, and 2^-n equals 5^n·10^-n, so the expansion is finite.
func exactDecimal(v float64) decimal.Decimal {
	frac, exp := math.Frexp(v)
	mant := big.NewInt(int64(math.Ldexp(frac, 53)))
	exp -= 53
	if exp >= 0 {
		return decimal.NewFromBigInt(mant.Lsh(mant, uint(exp)), 0)
	}
	five := new(big.Int).Exp(big.NewInt(5), big.NewInt(int64(-exp)), nil)
	return decimal.NewFromBigInt(mant.Mul(mant, five), int32(exp))
}
