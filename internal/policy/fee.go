package policy

import (
	"fmt"

	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"

	"github.com/LightmNFT/lightm-market/internal/model"
)

// Fee multipliers are WAD-scaled: 1e18 represents 100%.
const maxProtocolFeeWad uint64 = 100_000_000_000_000_000

// MaxProtocolFee returns the protocol fee multiplier cap, 10%.
func MaxProtocolFee() *uint256.Int {
	return uint256.NewInt(maxProtocolFeeWad)
}

// FeeController stores the protocol fee configuration: who collects and how
// much of each trade.
type FeeController struct {
	recipient  common.Address
	multiplier *uint256.Int
}

// NewFeeController validates and stores the initial fee configuration.
func NewFeeController(recipient common.Address, multiplier *uint256.Int) (*FeeController, error) {
	fc := &FeeController{multiplier: uint256.NewInt(0)}
	if err := fc.ChangeRecipient(recipient); err != nil {
		return nil, err
	}
	if err := fc.ChangeMultiplier(multiplier); err != nil {
		return nil, err
	}
	return fc, nil
}

// ChangeRecipient points fee collection at newRecipient.
func (fc *FeeController) ChangeRecipient(newRecipient common.Address) error {
	if newRecipient == (common.Address{}) {
		return fmt.Errorf("%w: zero fee recipient", model.ErrInvalidInput)
	}
	fc.recipient = newRecipient
	return nil
}

// ChangeMultiplier sets the protocol fee multiplier, capped at
// MaxProtocolFee.
func (fc *FeeController) ChangeMultiplier(newMultiplier *uint256.Int) error {
	if newMultiplier == nil {
		return fmt.Errorf("%w: nil fee multiplier", model.ErrInvalidInput)
	}
	if newMultiplier.Gt(MaxProtocolFee()) {
		return fmt.Errorf("%w: fee multiplier %s above cap %s", model.ErrInvalidInput, newMultiplier, MaxProtocolFee())
	}
	fc.multiplier = new(uint256.Int).Set(newMultiplier)
	return nil
}

// Recipient returns the current fee recipient.
func (fc *FeeController) Recipient() common.Address {
	return fc.recipient
}

// Multiplier returns the current fee multiplier.
func (fc *FeeController) Multiplier() *uint256.Int {
	return new(uint256.Int).Set(fc.multiplier)
}
