package policy

import (
	"sort"

	"github.com/ethereum/go-ethereum/common"
)

// CurveRegistry tracks which bonding-curve identities createPair may bind.
type CurveRegistry struct {
	allowed map[common.Address]bool
}

// NewCurveRegistry returns an empty whitelist.
func NewCurveRegistry() *CurveRegistry {
	return &CurveRegistry{allowed: make(map[common.Address]bool)}
}

// SetAllowed flips the whitelist entry for curve. Setting the current value
// again changes nothing.
func (r *CurveRegistry) SetAllowed(curve common.Address, allowed bool) {
	if allowed {
		r.allowed[curve] = true
		return
	}
	delete(r.allowed, curve)
}

// IsAllowed reports whether curve is whitelisted.
func (r *CurveRegistry) IsAllowed(curve common.Address) bool {
	return r.allowed[curve]
}

// Allowed returns the whitelisted curves in hex order.
func (r *CurveRegistry) Allowed() []common.Address {
	return sortedKeys(r.allowed)
}

func sortedKeys(set map[common.Address]bool) []common.Address {
	addrs := make([]common.Address, 0, len(set))
	for addr := range set {
		addrs = append(addrs, addr)
	}
	sort.Slice(addrs, func(i, j int) bool { return addrs[i].Hex() < addrs[j].Hex() })
	return addrs
}
