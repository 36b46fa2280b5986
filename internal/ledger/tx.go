package ledger

import (
	"errors"
	"fmt"

	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"

	"github.com/LightmNFT/lightm-market/internal/model"
)

type opKind int

const (
	opNative opKind = iota
	opToken
	opNFT
)

type op struct {
	kind   opKind
	asset  common.Address // token or collection; unset for native
	from   common.Address
	to     common.Address
	amount *uint256.Int
	id     uint64
}

// Tx stages transfers without touching ledger state. Every staged transfer
// is validated against the projected balances, so a transfer invalidated by
// an earlier op in the same Tx fails at staging time. Commit applies all
// staged ops or none; an uncommitted Tx can simply be dropped.
type Tx struct {
	led  *Ledger
	view *overlay
	ops  []op
	done bool
}

// Begin opens a staged transaction against the ledger.
func (l *Ledger) Begin() *Tx {
	return &Tx{led: l, view: newOverlay(l)}
}

// TransferNative stages a native-coin transfer.
func (tx *Tx) TransferNative(from, to common.Address, amount *uint256.Int) error {
	return tx.stage(op{kind: opNative, from: from, to: to, amount: amount})
}

// TransferToken stages a fungible-token transfer.
func (tx *Tx) TransferToken(token, from, to common.Address, amount *uint256.Int) error {
	return tx.stage(op{kind: opToken, asset: token, from: from, to: to, amount: amount})
}

// TransferNFT stages an NFT transfer.
func (tx *Tx) TransferNFT(collection, from, to common.Address, id uint64) error {
	return tx.stage(op{kind: opNFT, asset: collection, from: from, to: to, id: id})
}

func (tx *Tx) stage(p op) error {
	if tx.done {
		return errors.New("transaction already committed")
	}
	if p.kind != opNFT {
		if p.amount == nil {
			return fmt.Errorf("%w: nil amount", model.ErrTransferFailed)
		}
		p.amount = new(uint256.Int).Set(p.amount)
	}

	tx.led.mu.RLock()
	err := tx.view.stage(p)
	tx.led.mu.RUnlock()
	if err != nil {
		return err
	}

	tx.ops = append(tx.ops, p)
	return nil
}

// Commit revalidates the staged ops against current ledger state under the
// write lock and applies them all, then fires NFT receiver hooks. On error
// nothing is applied.
func (tx *Tx) Commit() error {
	if tx.done {
		return errors.New("transaction already committed")
	}
	tx.done = true

	notes, err := tx.led.commit(tx.ops)
	if err != nil {
		return err
	}
	for _, n := range notes {
		n.receiver.OnNFTReceived(n.collection, n.from, n.id)
	}
	return nil
}

type receiverNote struct {
	receiver   NFTReceiver
	collection common.Address
	from       common.Address
	id         uint64
}

func (l *Ledger) commit(ops []op) ([]receiverNote, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	replay := newOverlay(l)
	for _, p := range ops {
		if err := replay.stage(p); err != nil {
			return nil, err
		}
	}

	var notes []receiverNote
	for _, p := range ops {
		switch p.kind {
		case opNative:
			from := ensureBalance(l.native, p.from)
			from.Sub(from, p.amount)
			to := ensureBalance(l.native, p.to)
			to.Add(to, p.amount)
		case opToken:
			tok := l.tokens[p.asset]
			from := ensureBalance(tok.balances, p.from)
			from.Sub(from, p.amount)
			to := ensureBalance(tok.balances, p.to)
			to.Add(to, p.amount)
		case opNFT:
			col := l.collections[p.asset]
			col.unindex(p.from, p.id)
			col.owners[p.id] = p.to
			col.index(p.to, p.id)
			if r, ok := l.receivers[p.to]; ok {
				notes = append(notes, receiverNote{receiver: r, collection: p.asset, from: p.from, id: p.id})
			}
		}
	}
	return notes, nil
}

// overlay projects staged ops over ledger state without mutating it. The
// caller must hold the ledger lock around each call.
type overlay struct {
	led      *Ledger
	native   map[common.Address]*uint256.Int
	token    map[common.Address]map[common.Address]*uint256.Int
	nftOwner map[common.Address]map[uint64]common.Address
}

func newOverlay(l *Ledger) *overlay {
	return &overlay{
		led:      l,
		native:   make(map[common.Address]*uint256.Int),
		token:    make(map[common.Address]map[common.Address]*uint256.Int),
		nftOwner: make(map[common.Address]map[uint64]common.Address),
	}
}

func (o *overlay) stage(p op) error {
	if p.from == (common.Address{}) || p.to == (common.Address{}) {
		return fmt.Errorf("%w: zero transfer party", model.ErrTransferFailed)
	}

	switch p.kind {
	case opNative:
		from := o.nativeBalance(p.from)
		if from.Lt(p.amount) {
			return fmt.Errorf("%w: insufficient native balance at %s", model.ErrTransferFailed, p.from.Hex())
		}
		o.native[p.from] = from.Sub(from, p.amount)
		to := o.nativeBalance(p.to)
		o.native[p.to] = to.Add(to, p.amount)

	case opToken:
		if _, ok := o.led.tokens[p.asset]; !ok {
			return fmt.Errorf("%w: unknown token %s", model.ErrTransferFailed, p.asset.Hex())
		}
		from := o.tokenBalance(p.asset, p.from)
		if from.Lt(p.amount) {
			return fmt.Errorf("%w: insufficient %s balance at %s", model.ErrTransferFailed, p.asset.Hex(), p.from.Hex())
		}
		o.setTokenBalance(p.asset, p.from, from.Sub(from, p.amount))
		to := o.tokenBalance(p.asset, p.to)
		o.setTokenBalance(p.asset, p.to, to.Add(to, p.amount))

	case opNFT:
		if _, ok := o.led.collections[p.asset]; !ok {
			return fmt.Errorf("%w: unknown collection %s", model.ErrTransferFailed, p.asset.Hex())
		}
		owner, ok := o.nftOwnerOf(p.asset, p.id)
		if !ok {
			return fmt.Errorf("%w: nft %d not minted in %s", model.ErrTransferFailed, p.id, p.asset.Hex())
		}
		if owner != p.from {
			return fmt.Errorf("%w: nft %d in %s not owned by %s", model.ErrTransferFailed, p.id, p.asset.Hex(), p.from.Hex())
		}
		owners, ok := o.nftOwner[p.asset]
		if !ok {
			owners = make(map[uint64]common.Address)
			o.nftOwner[p.asset] = owners
		}
		owners[p.id] = p.to
	}
	return nil
}

func (o *overlay) nativeBalance(addr common.Address) *uint256.Int {
	if bal, ok := o.native[addr]; ok {
		return bal
	}
	if bal, ok := o.led.native[addr]; ok {
		return new(uint256.Int).Set(bal)
	}
	return uint256.NewInt(0)
}

func (o *overlay) tokenBalance(token, addr common.Address) *uint256.Int {
	if bals, ok := o.token[token]; ok {
		if bal, ok := bals[addr]; ok {
			return bal
		}
	}
	if tok, ok := o.led.tokens[token]; ok {
		if bal, ok := tok.balances[addr]; ok {
			return new(uint256.Int).Set(bal)
		}
	}
	return uint256.NewInt(0)
}

func (o *overlay) setTokenBalance(token, addr common.Address, bal *uint256.Int) {
	bals, ok := o.token[token]
	if !ok {
		bals = make(map[common.Address]*uint256.Int)
		o.token[token] = bals
	}
	bals[addr] = bal
}

func (o *overlay) nftOwnerOf(collection common.Address, id uint64) (common.Address, bool) {
	if owners, ok := o.nftOwner[collection]; ok {
		if owner, ok := owners[id]; ok {
			return owner, true
		}
	}
	if col, ok := o.led.collections[collection]; ok {
		if owner, ok := col.owners[id]; ok {
			return owner, true
		}
	}
	return common.Address{}, false
}
