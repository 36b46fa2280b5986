package model

// PairRecord is the storage projection of a pair instance.
type PairRecord struct {
	Address        string `json:"address"`
	Variant        string `json:"variant"`
	AssetKind      string `json:"asset_kind"`
	PoolType       string `json:"pool_type"`
	Collection     string `json:"collection"`
	Curve          string `json:"curve"`
	Token          string `json:"token,omitempty"`
	Owner          string `json:"owner"`
	AssetRecipient string `json:"asset_recipient,omitempty"`
	Delta          string `json:"delta"`
	Fee            string `json:"fee"`
	SpotPrice      string `json:"spot_price"`
	Seq            uint64 `json:"seq"`
	CreatedAt      string `json:"created_at"`
}
