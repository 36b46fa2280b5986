package api

// ErrorResponse is the JSON envelope for failed requests.
type ErrorResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// StatusResponse acknowledges a state change with no other payload.
type StatusResponse struct {
	Status string `json:"status"`
}

// HealthResponse reports liveness plus a couple of cheap gauges.
type HealthResponse struct {
	Status    string `json:"status"`
	Pairs     int    `json:"pairs"`
	UptimeSec int64  `json:"uptime_sec"`
}

// CreatePairRequest mirrors the factory's create parameters. Amounts are
// integer decimal strings in base units.
type CreatePairRequest struct {
	Caller                string   `json:"caller"`
	AssetKind             string   `json:"asset_kind"`
	Collection            string   `json:"collection"`
	Curve                 string   `json:"curve"`
	Token                 string   `json:"token,omitempty"`
	AssetRecipient        string   `json:"asset_recipient,omitempty"`
	PoolType              string   `json:"pool_type"`
	Delta                 string   `json:"delta"`
	Fee                   string   `json:"fee"`
	SpotPrice             string   `json:"spot_price"`
	InitialNFTIDs         []uint64 `json:"initial_nft_ids,omitempty"`
	InitialFungibleAmount string   `json:"initial_fungible_amount,omitempty"`
}

type DepositNFTsRequest struct {
	Caller     string   `json:"caller"`
	Collection string   `json:"collection"`
	IDs        []uint64 `json:"ids"`
	Recipient  string   `json:"recipient"`
}

type DepositTokensRequest struct {
	Caller    string `json:"caller"`
	Token     string `json:"token"`
	Amount    string `json:"amount"`
	Recipient string `json:"recipient"`
}

// VerifyResponse answers whether an identity is a factory-created pair of
// the given variant.
type VerifyResponse struct {
	Address string `json:"address"`
	Variant string `json:"variant"`
	IsPair  bool   `json:"is_pair"`
}

// AccountResponse lists an identity's holdings. NFT ids are reported for
// enumerable collections only.
type AccountResponse struct {
	Address       string              `json:"address"`
	NativeBalance string              `json:"native_balance"`
	TokenBalances map[string]string   `json:"token_balances,omitempty"`
	NFTs          map[string][]uint64 `json:"nfts,omitempty"`
}

type InstallCurveRequest struct {
	Caller  string `json:"caller"`
	Address string `json:"address"`
	Kind    string `json:"kind"`
}

// SetAllowedRequest flips a whitelist entry; the subject address rides in
// the URL.
type SetAllowedRequest struct {
	Caller  string `json:"caller"`
	Allowed bool   `json:"allowed"`
}

type FeeRecipientRequest struct {
	Caller    string `json:"caller"`
	Recipient string `json:"recipient"`
}

// FeeMultiplierRequest carries the multiplier as a decimal fraction such as
// "0.005".
type FeeMultiplierRequest struct {
	Caller     string `json:"caller"`
	Multiplier string `json:"multiplier"`
}

// WithdrawFeesRequest drains accrued protocol fees. Token empty means the
// native asset.
type WithdrawFeesRequest struct {
	Caller string `json:"caller"`
	Token  string `json:"token,omitempty"`
}

type WithdrawFeesResponse struct {
	Amount string `json:"amount"`
}

type TransferOwnershipRequest struct {
	Caller   string `json:"caller"`
	NewOwner string `json:"new_owner"`
}

// Devnet requests register assets and fund accounts directly on the ledger.
type RegisterTokenRequest struct {
	Address  string `json:"address"`
	Symbol   string `json:"symbol"`
	Decimals uint8  `json:"decimals"`
}

type RegisterCollectionRequest struct {
	Address    string `json:"address"`
	Symbol     string `json:"symbol"`
	Enumerable bool   `json:"enumerable"`
}

type MintNFTsRequest struct {
	Owner string   `json:"owner"`
	IDs   []uint64 `json:"ids"`
}

type FundRequest struct {
	Address string `json:"address"`
	Amount  string `json:"amount"`
	Token   string `json:"token,omitempty"`
}
