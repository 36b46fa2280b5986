// Package market implements the pair factory: creating trading pairs from
// immutable templates, proving pair authenticity, taking deposits, and
// carrying the governance surface around them.
package market

import (
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"
	"go.uber.org/zap"

	"github.com/LightmNFT/lightm-market/internal/curve"
	"github.com/LightmNFT/lightm-market/internal/ledger"
	"github.com/LightmNFT/lightm-market/internal/metrics"
	"github.com/LightmNFT/lightm-market/internal/model"
	"github.com/LightmNFT/lightm-market/internal/policy"
)

// ErrUnknownPair reports a lookup for an identity the factory never created.
var ErrUnknownPair = errors.New("unknown pair")

// FactoryConfig carries the construction-time parameters.
type FactoryConfig struct {
	Address               common.Address
	Owner                 common.Address
	Templates             [model.VariantCount]common.Address
	ProtocolFeeRecipient  common.Address
	ProtocolFeeMultiplier *uint256.Int
}

// CreatePairParams are the caller-supplied inputs to CreatePair.
type CreatePairParams struct {
	AssetKind             model.AssetKind
	Collection            common.Address
	Curve                 common.Address
	Token                 common.Address // required for token pairs, zero otherwise
	AssetRecipient        common.Address
	PoolType              model.PoolType
	Delta                 *uint256.Int
	Fee                   *uint256.Int
	SpotPrice             *uint256.Int
	InitialNFTIDs         []uint64
	InitialFungibleAmount *uint256.Int
}

// PairDetail is a pair record joined with its live holdings.
type PairDetail struct {
	model.PairRecord
	NativeBalance string   `json:"native_balance"`
	TokenBalance  string   `json:"token_balance,omitempty"`
	HeldNFTs      []uint64 `json:"held_nfts"`
}

// PolicySnapshot is the governance state in one read.
type PolicySnapshot struct {
	Owner                 string            `json:"owner"`
	ProtocolFeeRecipient  string            `json:"protocol_fee_recipient"`
	ProtocolFeeMultiplier string            `json:"protocol_fee_multiplier"`
	MaxProtocolFee        string            `json:"max_protocol_fee"`
	Templates             map[string]string `json:"templates"`
	InstalledCurves       map[string]string `json:"installed_curves"`
	AllowedCurves         []string          `json:"allowed_curves"`
	CallTargets           []string          `json:"call_targets"`
	Routers               []string          `json:"routers"`
}

type installedCurve struct {
	kind string
	impl curve.Curve
}

// Factory creates pairs from the four templates and owns the governance
// state around them. Every exported operation runs entirely under one lock,
// so each call is a single atomic step in a total order.
type Factory struct {
	mu sync.RWMutex

	address   common.Address
	ledger    *ledger.Ledger
	deployer  *cloneDeployer
	ownership *policy.Ownable
	curves    *policy.CurveRegistry
	access    *policy.AccessController
	fees      *policy.FeeController
	installed map[common.Address]installedCurve
	pairs     map[common.Address]*Pair
	events    []model.Event
	logger    *zap.Logger
	metrics   *metrics.Metrics
	now       func() time.Time
}

// NewFactory wires the factory and its governance components. Every
// template identity and the fee recipient must be non-zero and the fee
// multiplier within the protocol cap.
func NewFactory(cfg FactoryConfig, led *ledger.Ledger, logger *zap.Logger, mtr *metrics.Metrics) (*Factory, error) {
	if led == nil {
		return nil, fmt.Errorf("ledger is required")
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.Address == (common.Address{}) {
		return nil, fmt.Errorf("%w: zero factory address", model.ErrInvalidInput)
	}
	for v := model.PairVariant(0); v < model.VariantCount; v++ {
		if cfg.Templates[v] == (common.Address{}) {
			return nil, fmt.Errorf("%w: zero template for variant %s", model.ErrInvalidInput, v)
		}
	}
	ownership, err := policy.NewOwnable(cfg.Owner)
	if err != nil {
		return nil, err
	}
	fees, err := policy.NewFeeController(cfg.ProtocolFeeRecipient, cfg.ProtocolFeeMultiplier)
	if err != nil {
		return nil, err
	}

	return &Factory{
		address:   cfg.Address,
		ledger:    led,
		deployer:  newCloneDeployer(cfg.Address, cfg.Templates),
		ownership: ownership,
		curves:    policy.NewCurveRegistry(),
		access:    policy.NewAccessController(),
		fees:      fees,
		installed: make(map[common.Address]installedCurve),
		pairs:     make(map[common.Address]*Pair),
		logger:    logger,
		metrics:   mtr,
		now:       time.Now,
	}, nil
}

// Address returns the factory identity.
func (f *Factory) Address() common.Address {
	return f.address
}

// Owner returns the current governance owner.
func (f *Factory) Owner() common.Address {
	f.mu.RLock()
	defer f.mu.RUnlock()

	return f.ownership.Owner()
}

// CreatePair validates params, materializes a pair from the matching
// template, moves the initial assets from caller into it, and journals the
// creation. On any failure nothing is observable: no identity is consumed,
// no assets move, no event is appended.
func (f *Factory) CreatePair(caller common.Address, params CreatePairParams) (common.Address, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if caller == (common.Address{}) {
		return common.Address{}, fmt.Errorf("%w: zero caller", model.ErrInvalidInput)
	}
	if !f.curves.IsAllowed(params.Curve) {
		return common.Address{}, fmt.Errorf("%w: curve %s not whitelisted", model.ErrNotAllowed, params.Curve.Hex())
	}
	entry, ok := f.installed[params.Curve]
	if !ok {
		return common.Address{}, fmt.Errorf("%w: curve %s has no installed implementation", model.ErrInvalidInput, params.Curve.Hex())
	}
	if !params.AssetKind.Valid() {
		return common.Address{}, fmt.Errorf("%w: unknown asset kind %d", model.ErrInvalidInput, params.AssetKind)
	}
	switch params.AssetKind {
	case model.AssetToken:
		if params.Token == (common.Address{}) {
			return common.Address{}, fmt.Errorf("%w: token pair needs a token", model.ErrInvalidInput)
		}
		if _, err := f.ledger.TokenInfo(params.Token); err != nil {
			return common.Address{}, err
		}
	case model.AssetNative:
		if params.Token != (common.Address{}) {
			return common.Address{}, fmt.Errorf("%w: native pair cannot bind a token", model.ErrInvalidInput)
		}
	}
	colInfo, err := f.ledger.CollectionInfo(params.Collection)
	if err != nil {
		return common.Address{}, err
	}

	variant := model.VariantFor(params.AssetKind, colInfo.Enumerable)
	addr := f.deployer.nextInstance(variant)

	pair := newPair(pairConfig{
		address:    addr,
		factory:    f.address,
		variant:    variant,
		collection: params.Collection,
		curveAddr:  params.Curve,
		pricing:    entry.impl,
		token:      params.Token,
		poolType:   params.PoolType,
		seq:        f.deployer.nextSeq,
		createdAt:  f.now().UTC(),
	})
	if err := pair.initialize(caller, params.AssetRecipient, params.Delta, params.Fee, params.SpotPrice); err != nil {
		return common.Address{}, err
	}

	tx := f.ledger.Begin()
	if amount := params.InitialFungibleAmount; amount != nil && !amount.IsZero() {
		switch params.AssetKind {
		case model.AssetNative:
			err = tx.TransferNative(caller, addr, amount)
		case model.AssetToken:
			err = tx.TransferToken(params.Token, caller, addr, amount)
		}
		if err != nil {
			return common.Address{}, err
		}
	}
	for _, id := range params.InitialNFTIDs {
		if err := tx.TransferNFT(params.Collection, caller, addr, id); err != nil {
			return common.Address{}, err
		}
	}

	// The receiver hook must be live before the commit delivers the initial
	// ids to the pair.
	f.ledger.SetNFTReceiver(addr, pair)
	if err := tx.Commit(); err != nil {
		f.ledger.SetNFTReceiver(addr, nil)
		return common.Address{}, err
	}

	installed := f.deployer.install(variant)
	f.pairs[installed] = pair
	f.appendEvent(model.Event{
		Type:       model.EventNewPair,
		Caller:     caller.Hex(),
		Pair:       installed.Hex(),
		Collection: params.Collection.Hex(),
	})
	if f.metrics != nil {
		f.metrics.PairsCreated.Inc()
	}
	f.logger.Info("pair created",
		zap.String("pair", installed.Hex()),
		zap.String("variant", variant.String()),
		zap.String("collection", params.Collection.Hex()),
		zap.String("pool_type", params.PoolType.String()),
		zap.Uint64("seq", pair.seq),
	)
	return installed, nil
}

// IsPair reports whether candidate is a genuine pair of the given variant.
// It never errors; unknown variants and identities report false.
func (f *Factory) IsPair(candidate common.Address, variant model.PairVariant) bool {
	f.mu.RLock()
	defer f.mu.RUnlock()

	return f.deployer.isInstanceOf(candidate, variant)
}

// DepositNFTs batch-transfers ids from caller to recipient. The whole batch
// applies or none of it; a duplicate id fails once its first transfer has
// moved it. Deposits landing on a pair are journaled.
func (f *Factory) DepositNFTs(caller, collection common.Address, ids []uint64, recipient common.Address) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	tx := f.ledger.Begin()
	for _, id := range ids {
		if err := tx.TransferNFT(collection, caller, recipient, id); err != nil {
			return err
		}
	}
	if err := tx.Commit(); err != nil {
		return err
	}

	if _, ok := f.pairs[recipient]; ok {
		f.appendEvent(model.Event{
			Type:       model.EventNFTDeposit,
			Caller:     caller.Hex(),
			Pair:       recipient.Hex(),
			Collection: collection.Hex(),
		})
	}
	if f.metrics != nil {
		f.metrics.Deposits.WithLabelValues("nft").Inc()
	}
	f.logger.Info("nft deposit",
		zap.String("collection", collection.Hex()),
		zap.String("recipient", recipient.Hex()),
		zap.Int("ids", len(ids)),
	)
	return nil
}

// DepositTokens transfers amount of token from caller to recipient. The
// deposit is journaled iff recipient is a pair bound to that token.
func (f *Factory) DepositTokens(caller, token common.Address, amount *uint256.Int, recipient common.Address) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	tx := f.ledger.Begin()
	if err := tx.TransferToken(token, caller, recipient, amount); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return err
	}

	if p, ok := f.pairs[recipient]; ok && p.token == token {
		f.appendEvent(model.Event{
			Type:   model.EventTokenDeposit,
			Caller: caller.Hex(),
			Pair:   recipient.Hex(),
			Token:  token.Hex(),
			Amount: amount.Dec(),
		})
	}
	if f.metrics != nil {
		f.metrics.Deposits.WithLabelValues("token").Inc()
	}
	f.logger.Info("token deposit",
		zap.String("token", token.Hex()),
		zap.String("recipient", recipient.Hex()),
		zap.String("amount", amount.Dec()),
	)
	return nil
}

// InstallCurve registers a pricing implementation under addr. Installation
// makes the implementation callable; whether createPair may bind it is the
// whitelist's separate decision.
func (f *Factory) InstallCurve(caller, addr common.Address, kind string) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	if err := f.ownership.CheckOwner(caller); err != nil {
		return err
	}
	if addr == (common.Address{}) {
		return fmt.Errorf("%w: zero curve address", model.ErrInvalidInput)
	}
	if _, ok := f.installed[addr]; ok {
		return fmt.Errorf("%w: curve %s already installed", model.ErrInvalidInput, addr.Hex())
	}
	impl, err := curve.New(kind)
	if err != nil {
		return err
	}
	f.installed[addr] = installedCurve{kind: kind, impl: impl}
	f.logger.Info("curve installed", zap.String("curve", addr.Hex()), zap.String("kind", kind))
	return nil
}

// SetCurveAllowed flips curveAddr's whitelist entry.
func (f *Factory) SetCurveAllowed(caller, curveAddr common.Address, allowed bool) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	if err := f.ownership.CheckOwner(caller); err != nil {
		return err
	}
	f.curves.SetAllowed(curveAddr, allowed)
	f.appendEvent(model.Event{
		Type:    model.EventCurveStatusUpdate,
		Caller:  caller.Hex(),
		Subject: curveAddr.Hex(),
		Allowed: &allowed,
	})
	f.logger.Info("curve status updated", zap.String("curve", curveAddr.Hex()), zap.Bool("allowed", allowed))
	return nil
}

// SetCallAllowed flips target's call grant.
func (f *Factory) SetCallAllowed(caller, target common.Address, allowed bool) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	if err := f.ownership.CheckOwner(caller); err != nil {
		return err
	}
	if err := f.access.SetCallAllowed(target, allowed); err != nil {
		return err
	}
	f.appendEvent(model.Event{
		Type:    model.EventCallTargetStatusUpdate,
		Caller:  caller.Hex(),
		Subject: target.Hex(),
		Allowed: &allowed,
	})
	f.logger.Info("call target status updated", zap.String("target", target.Hex()), zap.Bool("allowed", allowed))
	return nil
}

// SetRouterAllowed flips router's router grant.
func (f *Factory) SetRouterAllowed(caller, router common.Address, allowed bool) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	if err := f.ownership.CheckOwner(caller); err != nil {
		return err
	}
	if err := f.access.SetRouterAllowed(router, allowed); err != nil {
		return err
	}
	f.appendEvent(model.Event{
		Type:    model.EventRouterStatusUpdate,
		Caller:  caller.Hex(),
		Subject: router.Hex(),
		Allowed: &allowed,
	})
	f.logger.Info("router status updated", zap.String("router", router.Hex()), zap.Bool("allowed", allowed))
	return nil
}

// ChangeProtocolFeeRecipient points protocol fee collection at recipient.
func (f *Factory) ChangeProtocolFeeRecipient(caller, recipient common.Address) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	if err := f.ownership.CheckOwner(caller); err != nil {
		return err
	}
	if err := f.fees.ChangeRecipient(recipient); err != nil {
		return err
	}
	f.appendEvent(model.Event{
		Type:    model.EventFeeRecipientUpdate,
		Caller:  caller.Hex(),
		Subject: recipient.Hex(),
	})
	f.logger.Info("protocol fee recipient updated", zap.String("recipient", recipient.Hex()))
	return nil
}

// ChangeProtocolFeeMultiplier sets the protocol fee multiplier.
func (f *Factory) ChangeProtocolFeeMultiplier(caller common.Address, multiplier *uint256.Int) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	if err := f.ownership.CheckOwner(caller); err != nil {
		return err
	}
	if err := f.fees.ChangeMultiplier(multiplier); err != nil {
		return err
	}
	f.appendEvent(model.Event{
		Type:   model.EventFeeMultiplierUpdate,
		Caller: caller.Hex(),
		Amount: multiplier.Dec(),
	})
	f.logger.Info("protocol fee multiplier updated", zap.String("multiplier", multiplier.Dec()))
	return nil
}

// WithdrawNativeProtocolFees sweeps the factory's native balance to the fee
// recipient and returns the swept amount.
func (f *Factory) WithdrawNativeProtocolFees(caller common.Address) (*uint256.Int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if err := f.ownership.CheckOwner(caller); err != nil {
		return nil, err
	}
	amount := f.ledger.NativeBalance(f.address)
	if amount.IsZero() {
		return amount, nil
	}

	tx := f.ledger.Begin()
	if err := tx.TransferNative(f.address, f.fees.Recipient(), amount); err != nil {
		return nil, err
	}
	if err := tx.Commit(); err != nil {
		return nil, err
	}
	f.logger.Info("native protocol fees withdrawn",
		zap.String("recipient", f.fees.Recipient().Hex()),
		zap.String("amount", amount.Dec()),
	)
	return amount, nil
}

// WithdrawTokenProtocolFees sweeps the factory's balance of token to the fee
// recipient and returns the swept amount.
func (f *Factory) WithdrawTokenProtocolFees(caller, token common.Address) (*uint256.Int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if err := f.ownership.CheckOwner(caller); err != nil {
		return nil, err
	}
	amount, err := f.ledger.TokenBalance(token, f.address)
	if err != nil {
		return nil, err
	}
	if amount.IsZero() {
		return amount, nil
	}

	tx := f.ledger.Begin()
	if err := tx.TransferToken(token, f.address, f.fees.Recipient(), amount); err != nil {
		return nil, err
	}
	if err := tx.Commit(); err != nil {
		return nil, err
	}
	f.logger.Info("token protocol fees withdrawn",
		zap.String("token", token.Hex()),
		zap.String("recipient", f.fees.Recipient().Hex()),
		zap.String("amount", amount.Dec()),
	)
	return amount, nil
}

// TransferOwnership hands the governance owner role to newOwner.
func (f *Factory) TransferOwnership(caller, newOwner common.Address) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	if err := f.ownership.CheckOwner(caller); err != nil {
		return err
	}
	if err := f.ownership.TransferOwnership(newOwner); err != nil {
		return err
	}
	f.appendEvent(model.Event{
		Type:    model.EventOwnershipTransferred,
		Caller:  caller.Hex(),
		Subject: newOwner.Hex(),
	})
	f.logger.Info("ownership transferred", zap.String("new_owner", newOwner.Hex()))
	return nil
}

// GetPair returns the pair record joined with its live holdings.
func (f *Factory) GetPair(addr common.Address) (PairDetail, error) {
	f.mu.RLock()
	defer f.mu.RUnlock()

	p, ok := f.pairs[addr]
	if !ok {
		return PairDetail{}, fmt.Errorf("%w: %s", ErrUnknownPair, addr.Hex())
	}

	detail := PairDetail{
		PairRecord:    p.record(),
		NativeBalance: f.ledger.NativeBalance(addr).Dec(),
	}
	if p.token != (common.Address{}) {
		if bal, err := f.ledger.TokenBalance(p.token, addr); err == nil {
			detail.TokenBalance = bal.Dec()
		}
	}
	if p.variant.Enumerable() {
		if ids, err := f.ledger.OwnedNFTs(p.collection, addr); err == nil {
			detail.HeldNFTs = ids
		}
	} else {
		detail.HeldNFTs = p.TrackedNFTs()
	}
	return detail, nil
}

// ListPairs returns every pair record in creation order.
func (f *Factory) ListPairs() []model.PairRecord {
	f.mu.RLock()
	defer f.mu.RUnlock()

	list := make([]*Pair, 0, len(f.pairs))
	for _, p := range f.pairs {
		list = append(list, p)
	}
	sort.Slice(list, func(i, j int) bool { return list[i].seq < list[j].seq })

	records := make([]model.PairRecord, len(list))
	for i, p := range list {
		records[i] = p.record()
	}
	return records
}

// PolicySnapshot returns the current governance state.
func (f *Factory) PolicySnapshot() PolicySnapshot {
	f.mu.RLock()
	defer f.mu.RUnlock()

	snap := PolicySnapshot{
		Owner:                 f.ownership.Owner().Hex(),
		ProtocolFeeRecipient:  f.fees.Recipient().Hex(),
		ProtocolFeeMultiplier: f.fees.Multiplier().Dec(),
		MaxProtocolFee:        policy.MaxProtocolFee().Dec(),
		Templates:             make(map[string]string, model.VariantCount),
		InstalledCurves:       make(map[string]string, len(f.installed)),
	}
	for v := model.PairVariant(0); v < model.VariantCount; v++ {
		snap.Templates[v.String()] = f.deployer.templates[v].Hex()
	}
	for addr, entry := range f.installed {
		snap.InstalledCurves[addr.Hex()] = entry.kind
	}
	snap.AllowedCurves = hexList(f.curves.Allowed())
	snap.CallTargets = hexList(f.access.CallTargets())
	snap.Routers = hexList(f.access.Routers())
	return snap
}

// EventsSince returns journal entries with Seq greater than seq, oldest
// first.
func (f *Factory) EventsSince(seq uint64) []model.Event {
	f.mu.RLock()
	defer f.mu.RUnlock()

	if seq >= uint64(len(f.events)) {
		return nil
	}
	out := make([]model.Event, len(f.events)-int(seq))
	copy(out, f.events[seq:])
	return out
}

func (f *Factory) appendEvent(e model.Event) {
	now := f.now().UTC()
	e.Seq = uint64(len(f.events)) + 1
	e.Timestamp = uint64(now.Unix())
	e.EmittedAt = now.Format(time.RFC3339Nano)
	f.events = append(f.events, e)
	if f.metrics != nil {
		f.metrics.EventsAppended.Inc()
	}
}

func hexList(addrs []common.Address) []string {
	out := make([]string, len(addrs))
	for i, a := range addrs {
		out[i] = a.Hex()
	}
	return out
}
