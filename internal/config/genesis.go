package config

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/ethereum/go-ethereum/common"

	"github.com/LightmNFT/lightm-market/internal/model"
)

// Genesis describes the initial market state loaded at startup: the factory
// identity and governance parameters plus the ledger's registered assets,
// premined NFTs, and funded accounts.
type Genesis struct {
	Factory     GenesisFactory      `json:"factory"`
	Curves      []GenesisCurve      `json:"curves"`
	Tokens      []GenesisToken      `json:"tokens"`
	Collections []GenesisCollection `json:"collections"`
	Accounts    []GenesisAccount    `json:"accounts"`
}

// GenesisFactory carries the factory construction parameters. Templates maps
// a variant name such as "enumerable-native" to a template identity and must
// name all four variants. The multiplier is a decimal fraction, e.g. "0.005".
type GenesisFactory struct {
	Address               string            `json:"address"`
	Owner                 string            `json:"owner"`
	ProtocolFeeRecipient  string            `json:"protocol_fee_recipient"`
	ProtocolFeeMultiplier string            `json:"protocol_fee_multiplier"`
	Templates             map[string]string `json:"templates"`
}

type GenesisCurve struct {
	Address string `json:"address"`
	Kind    string `json:"kind"`
	Allowed bool   `json:"allowed"`
}

// GenesisToken registers a fungible token. Balances maps holder to amount in
// base units.
type GenesisToken struct {
	Address  string            `json:"address"`
	Symbol   string            `json:"symbol"`
	Decimals uint8             `json:"decimals"`
	Balances map[string]string `json:"balances"`
}

// GenesisCollection registers an NFT collection. NFTs maps owner to premined
// ids.
type GenesisCollection struct {
	Address    string              `json:"address"`
	Symbol     string              `json:"symbol"`
	Enumerable bool                `json:"enumerable"`
	NFTs       map[string][]uint64 `json:"nfts"`
}

type GenesisAccount struct {
	Address string `json:"address"`
	Balance string `json:"balance"`
}

// LoadGenesis reads and validates a genesis file.
func LoadGenesis(path string) (Genesis, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Genesis{}, fmt.Errorf("read genesis: %w", err)
	}

	var g Genesis
	if err := json.Unmarshal(data, &g); err != nil {
		return Genesis{}, fmt.Errorf("parse genesis: %w", err)
	}
	if err := g.Validate(); err != nil {
		return Genesis{}, fmt.Errorf("invalid genesis: %w", err)
	}
	return g, nil
}

// Validate checks every identity and amount in the file so startup fails
// before any state is built.
func (g Genesis) Validate() error {
	if _, err := model.ParseAddress(g.Factory.Address); err != nil {
		return fmt.Errorf("factory address: %w", err)
	}
	if _, err := model.ParseAddress(g.Factory.Owner); err != nil {
		return fmt.Errorf("factory owner: %w", err)
	}
	if _, err := model.ParseAddress(g.Factory.ProtocolFeeRecipient); err != nil {
		return fmt.Errorf("protocol fee recipient: %w", err)
	}
	if _, err := model.ParseWad(g.Factory.ProtocolFeeMultiplier); err != nil {
		return fmt.Errorf("protocol fee multiplier: %w", err)
	}
	if _, err := g.Factory.TemplateAddresses(); err != nil {
		return err
	}

	for _, c := range g.Curves {
		if _, err := model.ParseAddress(c.Address); err != nil {
			return fmt.Errorf("curve address: %w", err)
		}
		if c.Kind == "" {
			return fmt.Errorf("%w: curve %s has no kind", model.ErrInvalidInput, c.Address)
		}
	}

	for _, tok := range g.Tokens {
		if _, err := model.ParseAddress(tok.Address); err != nil {
			return fmt.Errorf("token address: %w", err)
		}
		for holder, amount := range tok.Balances {
			if _, err := model.ParseAddress(holder); err != nil {
				return fmt.Errorf("token %s holder: %w", tok.Address, err)
			}
			if _, err := model.ParseAmount(amount); err != nil {
				return fmt.Errorf("token %s balance of %s: %w", tok.Address, holder, err)
			}
		}
	}

	for _, col := range g.Collections {
		if _, err := model.ParseAddress(col.Address); err != nil {
			return fmt.Errorf("collection address: %w", err)
		}
		for owner := range col.NFTs {
			if _, err := model.ParseAddress(owner); err != nil {
				return fmt.Errorf("collection %s owner: %w", col.Address, err)
			}
		}
	}

	for _, acct := range g.Accounts {
		if _, err := model.ParseAddress(acct.Address); err != nil {
			return fmt.Errorf("account address: %w", err)
		}
		if _, err := model.ParseAmount(acct.Balance); err != nil {
			return fmt.Errorf("account %s balance: %w", acct.Address, err)
		}
	}

	return nil
}

// TemplateAddresses resolves the template map into the per-variant array.
// Every variant must be present with a non-zero identity.
func (f GenesisFactory) TemplateAddresses() ([model.VariantCount]common.Address, error) {
	var out [model.VariantCount]common.Address
	seen := 0
	for name, raw := range f.Templates {
		variant, err := model.ParsePairVariant(name)
		if err != nil {
			return out, fmt.Errorf("template %q: %w", name, err)
		}
		addr, err := model.ParseAddress(raw)
		if err != nil {
			return out, fmt.Errorf("template %q: %w", name, err)
		}
		out[variant] = addr
		seen++
	}
	if seen != int(model.VariantCount) {
		return out, fmt.Errorf("%w: genesis must name all %d pair templates", model.ErrInvalidInput, model.VariantCount)
	}
	return out, nil
}
