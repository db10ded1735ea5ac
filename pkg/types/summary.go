package types

import "math/big"

// Summary is the aggregated view over a filtered record set. It is
// recomputed on every query and never persisted. Value carries the sum of
// raw mantissas; Scale is the maximum scale observed among the inputs, not
// a common scale the values were normalized to.
type Summary struct {
	Count uint64
	Value *big.Int
	Scale uint8
}

// ZeroSummary is the result of aggregating an empty record set.
func ZeroSummary() Summary {
	return Summary{Count: 0, Value: new(big.Int), Scale: 0}
}

func (s Summary) IsZero() bool {
	return s.Count == 0 && (s.Value == nil || s.Value.Sign() == 0) && s.Scale == 0
}

// int128 bounds for wire encoding of Summary.Value.
var (
	MaxInt128 = new(big.Int).Sub(new(big.Int).Lsh(big.NewInt(1), 127), big.NewInt(1))
	MinInt128 = new(big.Int).Neg(new(big.Int).Lsh(big.NewInt(1), 127))
)

// FitsInt128 reports whether v is representable as a two's-complement
// 128-bit integer.
func FitsInt128(v *big.Int) bool {
	if v == nil {
		return true
	}
	return v.Cmp(MinInt128) >= 0 && v.Cmp(MaxInt128) <= 0
}
