// Package policy holds the governance state consulted by the pair factory:
// ownership, the curve whitelist, call/router grants, and the protocol fee
// configuration. Components here carry no locks of their own; the factory
// serializes every access.
package policy

import (
	"fmt"

	"github.com/ethereum/go-ethereum/common"

	"github.com/LightmNFT/lightm-market/internal/model"
)

// Ownable gates administrative operations behind a single owner identity.
type Ownable struct {
	owner common.Address
}

// NewOwnable returns an Ownable held by owner.
func NewOwnable(owner common.Address) (*Ownable, error) {
	if owner == (common.Address{}) {
		return nil, fmt.Errorf("%w: zero owner", model.ErrInvalidInput)
	}
	return &Ownable{owner: owner}, nil
}

// Owner returns the current owner.
func (o *Ownable) Owner() common.Address {
	return o.owner
}

// CheckOwner fails unless caller holds the owner role.
func (o *Ownable) CheckOwner(caller common.Address) error {
	if caller != o.owner {
		return fmt.Errorf("%w: caller %s is not the owner", model.ErrUnauthorized, caller.Hex())
	}
	return nil
}

// TransferOwnership hands the owner role to newOwner.
func (o *Ownable) TransferOwnership(newOwner common.Address) error {
	if newOwner == (common.Address{}) {
		return fmt.Errorf("%w: zero new owner", model.ErrInvalidInput)
	}
	o.owner = newOwner
	return nil
}
