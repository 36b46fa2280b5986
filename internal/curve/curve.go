// Package curve defines the pricing strategies a pair can be bound to.
package curve

import (
	"errors"
	"fmt"
	"sort"

	"github.com/holiman/uint256"
	"golang.org/x/exp/maps"

	"github.com/LightmNFT/lightm-market/internal/model"
)

// ErrPriceOverflow reports a price step that left the representable range.
var ErrPriceOverflow = errors.New("price overflow")

// Curve is the pricing contract consulted by pairs. Implementations are
// pure: price steps depend only on the supplied spot price and delta,
// never on retained state.
type Curve interface {
	// ValidateDelta reports whether delta is usable by this curve.
	ValidateDelta(delta *uint256.Int) bool

	// ValidateSpotPrice reports whether spotPrice is usable by this curve.
	ValidateSpotPrice(spotPrice *uint256.Int) bool

	// IncreasePrice returns the spot price moved one step up the curve.
	IncreasePrice(spotPrice, delta *uint256.Int) (*uint256.Int, error)

	// DecreasePrice returns the spot price moved one step down the curve.
	DecreasePrice(spotPrice, delta *uint256.Int) (*uint256.Int, error)
}

// KindLinear names the linear reference curve.
const KindLinear = "linear"

var builders = map[string]func() Curve{
	KindLinear: func() Curve { return Linear{} },
}

// New builds the curve implementation registered under kind.
func New(kind string) (Curve, error) {
	build, ok := builders[kind]
	if !ok {
		return nil, fmt.Errorf("%w: unknown curve kind %q", model.ErrInvalidInput, kind)
	}
	return build(), nil
}

// Kinds returns the registered curve kinds in sorted order.
func Kinds() []string {
	kinds := maps.Keys(builders)
	sort.Strings(kinds)
	return kinds
}
