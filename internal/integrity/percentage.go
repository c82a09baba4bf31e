package integrity

import (
	"fmt"

	"github.com/shopspring/decimal"

	"bin-ranges/internal/domain"
)

var hundred = decimal.NewFromInt(100)

// PercentageChange returns |candidate-promoted| / promoted * 100.
// A zero promoted size is ErrArgument rather than an infinite change.
func PercentageChange(promoted, candidate int64) (decimal.Decimal, error) {
	if promoted == 0 {
		return decimal.Zero, fmt.Errorf("%w: promoted size cannot be 0", domain.ErrArgument)
	}
	if promoted < 0 || candidate < 0 {
		return decimal.Zero, fmt.Errorf("%w: sizes cannot be negative [promoted: %d] [candidate: %d]", domain.ErrArgument, promoted, candidate)
	}

	delta := decimal.NewFromInt(candidate - promoted).Abs()
	return delta.Mul(hundred).Div(decimal.NewFromInt(promoted)), nil
}
