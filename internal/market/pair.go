package market

import (
	"fmt"
	"sort"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"

	"github.com/LightmNFT/lightm-market/internal/curve"
	"github.com/LightmNFT/lightm-market/internal/model"
)

// maxTradeFeeWad caps a trade pool's own fee at 90% (WAD-scaled).
const maxTradeFeeWad uint64 = 900_000_000_000_000_000

func maxTradeFee() *uint256.Int {
	return uint256.NewInt(maxTradeFeeWad)
}

// Pair is one trading venue. The factory materializes it from a template,
// initializes it, funds it, and thereafter only answers identity queries
// about it; trading itself happens outside the factory.
type Pair struct {
	address    common.Address
	factory    common.Address
	variant    model.PairVariant
	collection common.Address
	curveAddr  common.Address
	pricing    curve.Curve
	token      common.Address // zero unless the variant trades a fungible token
	poolType   model.PoolType
	seq        uint64
	createdAt  time.Time

	owner          common.Address
	assetRecipient common.Address
	delta          *uint256.Int
	fee            *uint256.Int
	spotPrice      *uint256.Int

	// ids received for the pair's own collection; only consulted for
	// variants whose collection cannot be enumerated
	heldIDs map[uint64]struct{}
}

type pairConfig struct {
	address    common.Address
	factory    common.Address
	variant    model.PairVariant
	collection common.Address
	curveAddr  common.Address
	pricing    curve.Curve
	token      common.Address
	poolType   model.PoolType
	seq        uint64
	createdAt  time.Time
}

func newPair(cfg pairConfig) *Pair {
	return &Pair{
		address:    cfg.address,
		factory:    cfg.factory,
		variant:    cfg.variant,
		collection: cfg.collection,
		curveAddr:  cfg.curveAddr,
		pricing:    cfg.pricing,
		token:      cfg.token,
		poolType:   cfg.poolType,
		seq:        cfg.seq,
		createdAt:  cfg.createdAt,
		heldIDs:    make(map[uint64]struct{}),
	}
}

// initialize validates and stores the mutable creation parameters. Fee rules
// are the pair's own: token and nft pools take no fee, trade pools keep the
// fee below the cap and pay out to themselves.
func (p *Pair) initialize(owner, assetRecipient common.Address, delta, fee, spotPrice *uint256.Int) error {
	if owner == (common.Address{}) {
		return fmt.Errorf("%w: zero pair owner", model.ErrInvalidInput)
	}
	if delta == nil || fee == nil || spotPrice == nil {
		return fmt.Errorf("%w: nil pair parameter", model.ErrInvalidInput)
	}

	switch p.poolType {
	case model.PoolTypeToken, model.PoolTypeNFT:
		if !fee.IsZero() {
			return fmt.Errorf("%w: nonzero fee for %s pool", model.ErrInvalidInput, p.poolType)
		}
	case model.PoolTypeTrade:
		if fee.Cmp(maxTradeFee()) >= 0 {
			return fmt.Errorf("%w: trade fee %s not below cap %s", model.ErrInvalidInput, fee, maxTradeFee())
		}
		if assetRecipient != (common.Address{}) {
			return fmt.Errorf("%w: trade pool cannot name an asset recipient", model.ErrInvalidInput)
		}
	default:
		return fmt.Errorf("%w: unknown pool type %d", model.ErrInvalidInput, p.poolType)
	}

	if !p.pricing.ValidateDelta(delta) {
		return fmt.Errorf("%w: delta %s rejected by curve", model.ErrInvalidInput, delta)
	}
	if !p.pricing.ValidateSpotPrice(spotPrice) {
		return fmt.Errorf("%w: spot price %s rejected by curve", model.ErrInvalidInput, spotPrice)
	}

	p.owner = owner
	p.assetRecipient = assetRecipient
	p.delta = new(uint256.Int).Set(delta)
	p.fee = new(uint256.Int).Set(fee)
	p.spotPrice = new(uint256.Int).Set(spotPrice)
	return nil
}

// OnNFTReceived records arrivals of the pair's own collection for variants
// whose collection cannot be enumerated. Foreign NFTs are accepted but not
// tracked.
func (p *Pair) OnNFTReceived(collection, from common.Address, id uint64) {
	if p.variant.Enumerable() || collection != p.collection {
		return
	}
	p.heldIDs[id] = struct{}{}
}

// Address returns the pair identity.
func (p *Pair) Address() common.Address {
	return p.address
}

// Variant returns the template variant the pair was installed from.
func (p *Pair) Variant() model.PairVariant {
	return p.variant
}

// Collection returns the NFT collection the pair trades.
func (p *Pair) Collection() common.Address {
	return p.collection
}

// Curve returns the bonding-curve identity the pair is bound to.
func (p *Pair) Curve() common.Address {
	return p.curveAddr
}

// Token returns the fungible token for token variants, zero otherwise.
func (p *Pair) Token() common.Address {
	return p.token
}

// PoolType returns the trade direction the pair supports.
func (p *Pair) PoolType() model.PoolType {
	return p.poolType
}

// Owner returns the pair creator.
func (p *Pair) Owner() common.Address {
	return p.owner
}

// AssetRecipient returns where swapped-out assets are sent. Pools that did
// not name one, and all trade pools, pay out to the pair itself.
func (p *Pair) AssetRecipient() common.Address {
	if p.poolType == model.PoolTypeTrade || p.assetRecipient == (common.Address{}) {
		return p.address
	}
	return p.assetRecipient
}

// Delta returns the curve step parameter.
func (p *Pair) Delta() *uint256.Int {
	return new(uint256.Int).Set(p.delta)
}

// Fee returns the pair's own trade fee.
func (p *Pair) Fee() *uint256.Int {
	return new(uint256.Int).Set(p.fee)
}

// SpotPrice returns the current spot price.
func (p *Pair) SpotPrice() *uint256.Int {
	return new(uint256.Int).Set(p.spotPrice)
}

// TrackedNFTs returns the sorted ids the pair recorded through its receive
// hook. Enumerable variants track nothing here; the ledger's index answers
// for them.
func (p *Pair) TrackedNFTs() []uint64 {
	ids := make([]uint64, 0, len(p.heldIDs))
	for id := range p.heldIDs {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids
}

func (p *Pair) record() model.PairRecord {
	rec := model.PairRecord{
		Address:    p.address.Hex(),
		Variant:    p.variant.String(),
		AssetKind:  p.variant.AssetKind().String(),
		PoolType:   p.poolType.String(),
		Collection: p.collection.Hex(),
		Curve:      p.curveAddr.Hex(),
		Owner:      p.owner.Hex(),
		Delta:      p.delta.Dec(),
		Fee:        p.fee.Dec(),
		SpotPrice:  p.spotPrice.Dec(),
		Seq:        p.seq,
		CreatedAt:  p.createdAt.UTC().Format(time.RFC3339Nano),
	}
	if p.token != (common.Address{}) {
		rec.Token = p.token.Hex()
	}
	if p.assetRecipient != (common.Address{}) {
		rec.AssetRecipient = p.assetRecipient.Hex()
	}
	return rec
}
