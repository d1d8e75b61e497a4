package numeric

import (
	"math/big"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestMulDiv_Floors(t *testing.T) {
	// 7*3/2 = 10.5 -> 10
	out := MulDiv(big.NewInt(7), big.NewInt(3), big.NewInt(2))
	assert.Equal(t, int64(10), out.Int64())
}

func TestMulDiv_ZeroDenominator(t *testing.T) {
	out := MulDiv(big.NewInt(7), big.NewInt(3), big.NewInt(0))
	assert.Equal(t, int64(0), out.Int64())
}

func TestBps(t *testing.T) {
	// 5% of 100000
	out := Bps(big.NewInt(100_000), 500)
	assert.Equal(t, int64(5_000), out.Int64())

	// floor: 250 bps of 999 = 24.975 -> 24
	out = Bps(big.NewInt(999), 250)
	assert.Equal(t, int64(24), out.Int64())
}

func TestSqrt(t *testing.T) {
	assert.Equal(t, int64(0), Sqrt(big.NewInt(-4)).Int64())
	assert.Equal(t, int64(0), Sqrt(big.NewInt(0)).Int64())
	assert.Equal(t, int64(3), Sqrt(big.NewInt(10)).Int64())
	assert.Equal(t, int64(1000), Sqrt(big.NewInt(1_000_000)).Int64())
}

func TestMin_ReturnsCopy(t *testing.T) {
	a, b := big.NewInt(5), big.NewInt(9)
	m := Min(a, b)
	assert.Equal(t, int64(5), m.Int64())
	m.SetInt64(99)
	assert.Equal(t, int64(5), a.Int64())
}

func TestIsPositive(t *testing.T) {
	assert.False(t, IsPositive(nil))
	assert.False(t, IsPositive(big.NewInt(0)))
	assert.False(t, IsPositive(big.NewInt(-1)))
	assert.True(t, IsPositive(big.NewInt(1)))
}

func TestTokenScale(t *testing.T) {
	expect, _ := new(big.Int).SetString("1000000000000000000", 10)
	assert.Zero(t, TokenScale.Cmp(expect))
}
