package curve

import "github.com/holiman/uint256"

// Linear moves the price by a fixed delta per step.
type Linear struct{}

// ValidateDelta accepts any delta; every step size is meaningful here.
func (Linear) ValidateDelta(*uint256.Int) bool { return true }

// ValidateSpotPrice accepts any spot price.
func (Linear) ValidateSpotPrice(*uint256.Int) bool { return true }

// IncreasePrice returns spotPrice + delta. The step fails rather than
// wrapping when the sum exceeds 256 bits.
func (Linear) IncreasePrice(spotPrice, delta *uint256.Int) (*uint256.Int, error) {
	next, overflow := new(uint256.Int).AddOverflow(spotPrice, delta)
	if overflow {
		return nil, ErrPriceOverflow
	}
	return next, nil
}

// DecreasePrice returns spotPrice - delta, saturating at zero when delta
// exceeds the spot price.
func (Linear) DecreasePrice(spotPrice, delta *uint256.Int) (*uint256.Int, error) {
	if delta.Gt(spotPrice) {
		return uint256.NewInt(0), nil
	}
	return new(uint256.Int).Sub(spotPrice, delta), nil
}
