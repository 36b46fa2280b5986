package model

import "fmt"

// AssetKind selects the fungible side of a pair.
type AssetKind uint8

const (
	AssetNative AssetKind = iota
	AssetToken
)

func (k AssetKind) String() string {
	switch k {
	case AssetNative:
		return "native"
	case AssetToken:
		return "token"
	default:
		return fmt.Sprintf("asset(%d)", uint8(k))
	}
}

// Valid reports whether k is a known asset kind.
func (k AssetKind) Valid() bool {
	return k == AssetNative || k == AssetToken
}

// ParseAssetKind converts a string into an AssetKind.
func ParseAssetKind(input string) (AssetKind, error) {
	switch input {
	case "native":
		return AssetNative, nil
	case "token":
		return AssetToken, nil
	default:
		return 0, fmt.Errorf("%w: unknown asset kind %q", ErrInvalidInput, input)
	}
}

// PoolType describes which trade direction a pair supports.
type PoolType uint8

const (
	PoolTypeToken PoolType = iota
	PoolTypeNFT
	PoolTypeTrade
)

func (p PoolType) String() string {
	switch p {
	case PoolTypeToken:
		return "token"
	case PoolTypeNFT:
		return "nft"
	case PoolTypeTrade:
		return "trade"
	default:
		return fmt.Sprintf("pool(%d)", uint8(p))
	}
}

// Valid reports whether p is a known pool type.
func (p PoolType) Valid() bool {
	return p == PoolTypeToken || p == PoolTypeNFT || p == PoolTypeTrade
}

// ParsePoolType converts a string into a PoolType.
func ParsePoolType(input string) (PoolType, error) {
	switch input {
	case "token":
		return PoolTypeToken, nil
	case "nft":
		return PoolTypeNFT, nil
	case "trade":
		return PoolTypeTrade, nil
	default:
		return 0, fmt.Errorf("%w: unknown pool type %q", ErrInvalidInput, input)
	}
}

// PairVariant identifies one of the four pair templates.
type PairVariant uint8

const (
	VariantEnumerableNative PairVariant = iota
	VariantMissingEnumerableNative
	VariantEnumerableToken
	VariantMissingEnumerableToken

	VariantCount = 4
)

func (v PairVariant) String() string {
	switch v {
	case VariantEnumerableNative:
		return "enumerable-native"
	case VariantMissingEnumerableNative:
		return "missing-enumerable-native"
	case VariantEnumerableToken:
		return "enumerable-token"
	case VariantMissingEnumerableToken:
		return "missing-enumerable-token"
	default:
		return fmt.Sprintf("variant(%d)", uint8(v))
	}
}

// ParsePairVariant converts a string into a PairVariant.
func ParsePairVariant(input string) (PairVariant, error) {
	switch input {
	case "enumerable-native":
		return VariantEnumerableNative, nil
	case "missing-enumerable-native":
		return VariantMissingEnumerableNative, nil
	case "enumerable-token":
		return VariantEnumerableToken, nil
	case "missing-enumerable-token":
		return VariantMissingEnumerableToken, nil
	default:
		return 0, fmt.Errorf("%w: unknown pair variant %q", ErrInvalidInput, input)
	}
}

// Valid reports whether the variant is one of the four known templates.
func (v PairVariant) Valid() bool {
	return v < VariantCount
}

// VariantFor picks the template variant for an asset kind and the
// collection's enumeration capability.
func VariantFor(kind AssetKind, enumerable bool) PairVariant {
	if kind == AssetNative {
		if enumerable {
			return VariantEnumerableNative
		}
		return VariantMissingEnumerableNative
	}
	if enumerable {
		return VariantEnumerableToken
	}
	return VariantMissingEnumerableToken
}

// AssetKind returns the fungible side encoded in the variant.
func (v PairVariant) AssetKind() AssetKind {
	if v == VariantEnumerableNative || v == VariantMissingEnumerableNative {
		return AssetNative
	}
	return AssetToken
}

// Enumerable reports whether the variant relies on collection enumeration.
func (v PairVariant) Enumerable() bool {
	return v == VariantEnumerableNative || v == VariantEnumerableToken
}
