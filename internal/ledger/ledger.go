// Package ledger tracks native coin, fungible token, and NFT holdings for
// every account the market touches. It is the settlement source of truth:
// pairs, deposits, and fee withdrawals all move value through it.
package ledger

import (
	"errors"
	"fmt"
	"sort"
	"sync"

	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"

	"github.com/LightmNFT/lightm-market/internal/model"
)

// ErrNotEnumerable reports an owned-id query against a collection that does
// not maintain a per-owner index.
var ErrNotEnumerable = errors.New("collection not enumerable")

// TokenInfo describes a registered fungible token.
type TokenInfo struct {
	Symbol   string `json:"symbol"`
	Decimals uint8  `json:"decimals"`
}

// CollectionInfo describes a registered NFT collection. Enumerable
// collections maintain a per-owner id index and can answer OwnedNFTs.
type CollectionInfo struct {
	Symbol     string `json:"symbol"`
	Enumerable bool   `json:"enumerable"`
}

// NFTReceiver is notified after a committed transfer hands an NFT to the
// registered account.
type NFTReceiver interface {
	OnNFTReceived(collection, from common.Address, id uint64)
}

type tokenState struct {
	info     TokenInfo
	balances map[common.Address]*uint256.Int
}

type collectionState struct {
	info    CollectionInfo
	owners  map[uint64]common.Address
	byOwner map[common.Address]map[uint64]struct{}
}

// Ledger is safe for concurrent use. All mutations from transfers go through
// Tx so multi-step operations apply all-or-nothing.
type Ledger struct {
	mu          sync.RWMutex
	native      map[common.Address]*uint256.Int
	tokens      map[common.Address]*tokenState
	collections map[common.Address]*collectionState
	receivers   map[common.Address]NFTReceiver
}

// NewLedger returns an empty ledger.
func NewLedger() *Ledger {
	return &Ledger{
		native:      make(map[common.Address]*uint256.Int),
		tokens:      make(map[common.Address]*tokenState),
		collections: make(map[common.Address]*collectionState),
		receivers:   make(map[common.Address]NFTReceiver),
	}
}

// RegisterToken adds a fungible token under addr.
func (l *Ledger) RegisterToken(addr common.Address, info TokenInfo) error {
	if addr == (common.Address{}) {
		return fmt.Errorf("%w: zero token address", model.ErrInvalidInput)
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	if _, ok := l.tokens[addr]; ok {
		return fmt.Errorf("%w: token %s already registered", model.ErrInvalidInput, addr.Hex())
	}
	l.tokens[addr] = &tokenState{
		info:     info,
		balances: make(map[common.Address]*uint256.Int),
	}
	return nil
}

// RegisterCollection adds an NFT collection under addr.
func (l *Ledger) RegisterCollection(addr common.Address, info CollectionInfo) error {
	if addr == (common.Address{}) {
		return fmt.Errorf("%w: zero collection address", model.ErrInvalidInput)
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	if _, ok := l.collections[addr]; ok {
		return fmt.Errorf("%w: collection %s already registered", model.ErrInvalidInput, addr.Hex())
	}
	col := &collectionState{
		info:   info,
		owners: make(map[uint64]common.Address),
	}
	if info.Enumerable {
		col.byOwner = make(map[common.Address]map[uint64]struct{})
	}
	l.collections[addr] = col
	return nil
}

// MintNFT creates id in collection and assigns it to owner.
func (l *Ledger) MintNFT(collection common.Address, id uint64, owner common.Address) error {
	if owner == (common.Address{}) {
		return fmt.Errorf("%w: zero nft owner", model.ErrInvalidInput)
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	col, ok := l.collections[collection]
	if !ok {
		return fmt.Errorf("%w: unknown collection %s", model.ErrInvalidInput, collection.Hex())
	}
	if _, ok := col.owners[id]; ok {
		return fmt.Errorf("%w: nft %d already minted in %s", model.ErrInvalidInput, id, collection.Hex())
	}
	col.owners[id] = owner
	col.index(owner, id)
	return nil
}

// CreditNative adds amount to addr's native balance.
func (l *Ledger) CreditNative(addr common.Address, amount *uint256.Int) error {
	if addr == (common.Address{}) || amount == nil {
		return fmt.Errorf("%w: bad native credit", model.ErrInvalidInput)
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	bal := ensureBalance(l.native, addr)
	bal.Add(bal, amount)
	return nil
}

// CreditToken adds amount to addr's balance of token.
func (l *Ledger) CreditToken(token, addr common.Address, amount *uint256.Int) error {
	if addr == (common.Address{}) || amount == nil {
		return fmt.Errorf("%w: bad token credit", model.ErrInvalidInput)
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	tok, ok := l.tokens[token]
	if !ok {
		return fmt.Errorf("%w: unknown token %s", model.ErrInvalidInput, token.Hex())
	}
	bal := ensureBalance(tok.balances, addr)
	bal.Add(bal, amount)
	return nil
}

// NativeBalance returns addr's native balance.
func (l *Ledger) NativeBalance(addr common.Address) *uint256.Int {
	l.mu.RLock()
	defer l.mu.RUnlock()

	if bal, ok := l.native[addr]; ok {
		return new(uint256.Int).Set(bal)
	}
	return uint256.NewInt(0)
}

// TokenBalance returns addr's balance of token.
func (l *Ledger) TokenBalance(token, addr common.Address) (*uint256.Int, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()

	tok, ok := l.tokens[token]
	if !ok {
		return nil, fmt.Errorf("%w: unknown token %s", model.ErrInvalidInput, token.Hex())
	}
	if bal, ok := tok.balances[addr]; ok {
		return new(uint256.Int).Set(bal), nil
	}
	return uint256.NewInt(0), nil
}

// TokenInfo returns the registration record for token.
func (l *Ledger) TokenInfo(token common.Address) (TokenInfo, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()

	tok, ok := l.tokens[token]
	if !ok {
		return TokenInfo{}, fmt.Errorf("%w: unknown token %s", model.ErrInvalidInput, token.Hex())
	}
	return tok.info, nil
}

// CollectionInfo returns the registration record for collection.
func (l *Ledger) CollectionInfo(collection common.Address) (CollectionInfo, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()

	col, ok := l.collections[collection]
	if !ok {
		return CollectionInfo{}, fmt.Errorf("%w: unknown collection %s", model.ErrInvalidInput, collection.Hex())
	}
	return col.info, nil
}

// NFTOwner returns the current owner of id in collection.
func (l *Ledger) NFTOwner(collection common.Address, id uint64) (common.Address, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()

	col, ok := l.collections[collection]
	if !ok {
		return common.Address{}, fmt.Errorf("%w: unknown collection %s", model.ErrInvalidInput, collection.Hex())
	}
	owner, ok := col.owners[id]
	if !ok {
		return common.Address{}, fmt.Errorf("%w: nft %d not minted in %s", model.ErrInvalidInput, id, collection.Hex())
	}
	return owner, nil
}

// OwnedNFTs returns the sorted ids owner holds in collection. Only
// enumerable collections can answer; others return ErrNotEnumerable.
func (l *Ledger) OwnedNFTs(collection, owner common.Address) ([]uint64, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()

	col, ok := l.collections[collection]
	if !ok {
		return nil, fmt.Errorf("%w: unknown collection %s", model.ErrInvalidInput, collection.Hex())
	}
	if !col.info.Enumerable {
		return nil, fmt.Errorf("%w: %s", ErrNotEnumerable, collection.Hex())
	}

	ids := make([]uint64, 0, len(col.byOwner[owner]))
	for id := range col.byOwner[owner] {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids, nil
}

// Tokens returns the registered token addresses in hex order.
func (l *Ledger) Tokens() []common.Address {
	l.mu.RLock()
	defer l.mu.RUnlock()

	addrs := make([]common.Address, 0, len(l.tokens))
	for addr := range l.tokens {
		addrs = append(addrs, addr)
	}
	sort.Slice(addrs, func(i, j int) bool { return addrs[i].Hex() < addrs[j].Hex() })
	return addrs
}

// Collections returns the registered collection addresses in hex order.
func (l *Ledger) Collections() []common.Address {
	l.mu.RLock()
	defer l.mu.RUnlock()

	addrs := make([]common.Address, 0, len(l.collections))
	for addr := range l.collections {
		addrs = append(addrs, addr)
	}
	sort.Slice(addrs, func(i, j int) bool { return addrs[i].Hex() < addrs[j].Hex() })
	return addrs
}

// SetNFTReceiver registers a hook fired whenever a committed transfer hands
// addr an NFT. A nil receiver unregisters the hook.
func (l *Ledger) SetNFTReceiver(addr common.Address, r NFTReceiver) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if r == nil {
		delete(l.receivers, addr)
		return
	}
	l.receivers[addr] = r
}

func (c *collectionState) index(owner common.Address, id uint64) {
	if c.byOwner == nil {
		return
	}
	ids, ok := c.byOwner[owner]
	if !ok {
		ids = make(map[uint64]struct{})
		c.byOwner[owner] = ids
	}
	ids[id] = struct{}{}
}

func (c *collectionState) unindex(owner common.Address, id uint64) {
	if c.byOwner == nil {
		return
	}
	if ids, ok := c.byOwner[owner]; ok {
		delete(ids, id)
		if len(ids) == 0 {
			delete(c.byOwner, owner)
		}
	}
}

func ensureBalance(balances map[common.Address]*uint256.Int, addr common.Address) *uint256.Int {
	bal, ok := balances[addr]
	if !ok {
		bal = uint256.NewInt(0)
		balances[addr] = bal
	}
	return bal
}
