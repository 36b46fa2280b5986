package policy

import (
	"fmt"

	"github.com/ethereum/go-ethereum/common"

	"github.com/LightmNFT/lightm-market/internal/model"
)

// AccessController tracks call-target and router grants. Routers move pair
// assets on traders' behalf, so one identity must never hold both grants at
// once.
type AccessController struct {
	callAllowed   map[common.Address]bool
	routerAllowed map[common.Address]bool
}

// NewAccessController returns a controller with no grants.
func NewAccessController() *AccessController {
	return &AccessController{
		callAllowed:   make(map[common.Address]bool),
		routerAllowed: make(map[common.Address]bool),
	}
}

// SetCallAllowed flips the call grant for target. Granting fails while
// target holds the router grant.
func (a *AccessController) SetCallAllowed(target common.Address, allowed bool) error {
	if allowed && a.routerAllowed[target] {
		return fmt.Errorf("%w: %s is an allowed router", model.ErrNotAllowed, target.Hex())
	}
	if allowed {
		a.callAllowed[target] = true
	} else {
		delete(a.callAllowed, target)
	}
	return nil
}

// SetRouterAllowed flips the router grant for router. Granting fails while
// router holds the call grant.
func (a *AccessController) SetRouterAllowed(router common.Address, allowed bool) error {
	if router == (common.Address{}) {
		return fmt.Errorf("%w: zero router", model.ErrInvalidInput)
	}
	if allowed && a.callAllowed[router] {
		return fmt.Errorf("%w: %s is an allowed call target", model.ErrNotAllowed, router.Hex())
	}
	if allowed {
		a.routerAllowed[router] = true
	} else {
		delete(a.routerAllowed, router)
	}
	return nil
}

// IsCallAllowed reports whether target holds the call grant.
func (a *AccessController) IsCallAllowed(target common.Address) bool {
	return a.callAllowed[target]
}

// IsRouterAllowed reports whether router holds the router grant.
func (a *AccessController) IsRouterAllowed(router common.Address) bool {
	return a.routerAllowed[router]
}

// CallTargets returns the granted call targets in hex order.
func (a *AccessController) CallTargets() []common.Address {
	return sortedKeys(a.callAllowed)
}

// Routers returns the granted routers in hex order.
func (a *AccessController) Routers() []common.Address {
	return sortedKeys(a.routerAllowed)
}
