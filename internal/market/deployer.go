package market

import (
	"encoding/binary"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"

	"github.com/LightmNFT/lightm-market/internal/model"
)

// cloneDeployer materializes pair instances from the four templates. Each
// instance identity is derived from the factory identity, the template
// identity and a per-factory sequence number, so authenticity can later be
// proved by recomputing the derivation instead of trusting stored metadata.
type cloneDeployer struct {
	factory   common.Address
	templates [model.VariantCount]common.Address
	nextSeq   uint64
	instances map[common.Address]instanceRecord
}

type instanceRecord struct {
	variant model.PairVariant
	seq     uint64
}

func newCloneDeployer(factory common.Address, templates [model.VariantCount]common.Address) *cloneDeployer {
	return &cloneDeployer{
		factory:   factory,
		templates: templates,
		instances: make(map[common.Address]instanceRecord),
	}
}

// nextInstance returns the identity the next install for variant will take,
// without consuming the sequence number. Callers use it to move assets to a
// pair before deciding whether the creation sticks.
func (d *cloneDeployer) nextInstance(variant model.PairVariant) common.Address {
	return d.derive(d.templates[variant], d.nextSeq)
}

// install consumes the next sequence number and records the new instance.
func (d *cloneDeployer) install(variant model.PairVariant) common.Address {
	seq := d.nextSeq
	d.nextSeq++

	addr := d.derive(d.templates[variant], seq)
	d.instances[addr] = instanceRecord{variant: variant, seq: seq}
	return addr
}

// isInstanceOf reports whether candidate was installed from variant's
// template. The stored record alone is never trusted: the identity is
// recomputed from it and must match the candidate exactly. Unknown
// candidates and unknown variants report false.
func (d *cloneDeployer) isInstanceOf(candidate common.Address, variant model.PairVariant) bool {
	if !variant.Valid() {
		return false
	}
	rec, ok := d.instances[candidate]
	if !ok || rec.variant != variant {
		return false
	}
	return d.derive(d.templates[rec.variant], rec.seq) == candidate
}

func (d *cloneDeployer) derive(template common.Address, seq uint64) common.Address {
	var seqBytes [8]byte
	binary.BigEndian.PutUint64(seqBytes[:], seq)
	salt := common.BytesToHash(crypto.Keccak256(seqBytes[:]))
	return crypto.CreateAddress2(d.factory, salt, crypto.Keccak256(template.Bytes()))
}
