package model

import (
	"fmt"

	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"
	"github.com/shopspring/decimal"
)

// ParseAddress decodes a required hex identity. The zero address counts as
// missing.
func ParseAddress(s string) (common.Address, error) {
	addr, err := ParseOptionalAddress(s)
	if err != nil {
		return common.Address{}, err
	}
	if addr == (common.Address{}) {
		return common.Address{}, fmt.Errorf("%w: zero address", ErrInvalidInput)
	}
	return addr, nil
}

// ParseOptionalAddress decodes a hex identity, accepting empty input as the
// zero address.
func ParseOptionalAddress(s string) (common.Address, error) {
	if s == "" {
		return common.Address{}, nil
	}
	if !common.IsHexAddress(s) {
		return common.Address{}, fmt.Errorf("%w: bad address %q", ErrInvalidInput, s)
	}
	return common.HexToAddress(s), nil
}

// ParseWad converts a decimal fraction such as "0.005" into 18-decimal fixed
// point. More than 18 fractional digits are rejected rather than truncated.
func ParseWad(s string) (*uint256.Int, error) {
	d, err := decimal.NewFromString(s)
	if err != nil {
		return nil, fmt.Errorf("%w: bad decimal %q", ErrInvalidInput, s)
	}
	if d.IsNegative() {
		return nil, fmt.Errorf("%w: negative value %q", ErrInvalidInput, s)
	}
	scaled := d.Mul(decimal.New(1, 18))
	if !scaled.IsInteger() {
		return nil, fmt.Errorf("%w: more than 18 decimal places in %q", ErrInvalidInput, s)
	}
	wad, err := uint256.FromDecimal(scaled.String())
	if err != nil {
		return nil, fmt.Errorf("%w: value %q out of range", ErrInvalidInput, s)
	}
	return wad, nil
}

// FormatWad renders an 18-decimal fixed point value as a decimal fraction.
func FormatWad(v *uint256.Int) string {
	return decimal.NewFromBigInt(v.ToBig(), -18).String()
}

// ParseAmount parses a non-negative integer amount in base units.
func ParseAmount(s string) (*uint256.Int, error) {
	amt, err := uint256.FromDecimal(s)
	if err != nil {
		return nil, fmt.Errorf("%w: bad amount %q", ErrInvalidInput, s)
	}
	return amt, nil
}
