package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/go-chi/chi/v5"
	"github.com/holiman/uint256"
	"go.uber.org/zap"

	"github.com/LightmNFT/lightm-market/internal/ledger"
	"github.com/LightmNFT/lightm-market/internal/market"
	"github.com/LightmNFT/lightm-market/internal/model"
)

// Handler exposes the factory and ledger over HTTP. All domain rules live
// below it; handlers only decode, delegate, and map errors to status codes.
type Handler struct {
	factory *market.Factory
	ledger  *ledger.Ledger
	logger  *zap.Logger
	started time.Time
}

func NewHandler(factory *market.Factory, led *ledger.Ledger, logger *zap.Logger) *Handler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Handler{
		factory: factory,
		ledger:  led,
		logger:  logger,
		started: time.Now(),
	}
}

func (h *Handler) Healthz(w http.ResponseWriter, r *http.Request) {
	h.writeJSON(w, http.StatusOK, HealthResponse{
		Status:    "ok",
		Pairs:     len(h.factory.ListPairs()),
		UptimeSec: int64(time.Since(h.started).Seconds()),
	})
}

func (h *Handler) CreatePair(w http.ResponseWriter, r *http.Request) {
	var req CreatePairRequest
	if err := decodeJSON(r, &req); err != nil {
		h.writeError(w, err)
		return
	}

	caller, err := model.ParseAddress(req.Caller)
	if err != nil {
		h.writeError(w, fmt.Errorf("caller: %w", err))
		return
	}
	params, err := createPairParams(req)
	if err != nil {
		h.writeError(w, err)
		return
	}

	addr, err := h.factory.CreatePair(caller, params)
	if err != nil {
		h.writeError(w, err)
		return
	}

	detail, err := h.factory.GetPair(addr)
	if err != nil {
		h.writeError(w, err)
		return
	}
	h.writeJSON(w, http.StatusCreated, detail)
}

func createPairParams(req CreatePairRequest) (market.CreatePairParams, error) {
	var params market.CreatePairParams

	kind, err := model.ParseAssetKind(req.AssetKind)
	if err != nil {
		return params, err
	}
	poolType, err := model.ParsePoolType(req.PoolType)
	if err != nil {
		return params, err
	}
	collection, err := model.ParseAddress(req.Collection)
	if err != nil {
		return params, fmt.Errorf("collection: %w", err)
	}
	curveAddr, err := model.ParseAddress(req.Curve)
	if err != nil {
		return params, fmt.Errorf("curve: %w", err)
	}
	token, err := model.ParseOptionalAddress(req.Token)
	if err != nil {
		return params, fmt.Errorf("token: %w", err)
	}
	recipient, err := model.ParseOptionalAddress(req.AssetRecipient)
	if err != nil {
		return params, fmt.Errorf("asset_recipient: %w", err)
	}
	delta, err := model.ParseAmount(req.Delta)
	if err != nil {
		return params, fmt.Errorf("delta: %w", err)
	}
	fee, err := model.ParseAmount(req.Fee)
	if err != nil {
		return params, fmt.Errorf("fee: %w", err)
	}
	spot, err := model.ParseAmount(req.SpotPrice)
	if err != nil {
		return params, fmt.Errorf("spot_price: %w", err)
	}
	fungible := uint256.NewInt(0)
	if req.InitialFungibleAmount != "" {
		fungible, err = model.ParseAmount(req.InitialFungibleAmount)
		if err != nil {
			return params, fmt.Errorf("initial_fungible_amount: %w", err)
		}
	}

	return market.CreatePairParams{
		AssetKind:             kind,
		Collection:            collection,
		Curve:                 curveAddr,
		Token:                 token,
		AssetRecipient:        recipient,
		PoolType:              poolType,
		Delta:                 delta,
		Fee:                   fee,
		SpotPrice:             spot,
		InitialNFTIDs:         req.InitialNFTIDs,
		InitialFungibleAmount: fungible,
	}, nil
}

func (h *Handler) ListPairs(w http.ResponseWriter, r *http.Request) {
	h.writeJSON(w, http.StatusOK, h.factory.ListPairs())
}

func (h *Handler) GetPair(w http.ResponseWriter, r *http.Request) {
	addr, err := model.ParseAddress(chi.URLParam(r, "address"))
	if err != nil {
		h.writeError(w, err)
		return
	}
	detail, err := h.factory.GetPair(addr)
	if err != nil {
		h.writeError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, detail)
}

func (h *Handler) VerifyPair(w http.ResponseWriter, r *http.Request) {
	addr, err := model.ParseAddress(chi.URLParam(r, "address"))
	if err != nil {
		h.writeError(w, err)
		return
	}
	variant, err := model.ParsePairVariant(r.URL.Query().Get("variant"))
	if err != nil {
		h.writeError(w, err)
		return
	}

	h.writeJSON(w, http.StatusOK, VerifyResponse{
		Address: addr.Hex(),
		Variant: variant.String(),
		IsPair:  h.factory.IsPair(addr, variant),
	})
}

func (h *Handler) DepositNFTs(w http.ResponseWriter, r *http.Request) {
	var req DepositNFTsRequest
	if err := decodeJSON(r, &req); err != nil {
		h.writeError(w, err)
		return
	}

	caller, err := model.ParseAddress(req.Caller)
	if err != nil {
		h.writeError(w, fmt.Errorf("caller: %w", err))
		return
	}
	collection, err := model.ParseAddress(req.Collection)
	if err != nil {
		h.writeError(w, fmt.Errorf("collection: %w", err))
		return
	}
	recipient, err := model.ParseAddress(req.Recipient)
	if err != nil {
		h.writeError(w, fmt.Errorf("recipient: %w", err))
		return
	}

	if err := h.factory.DepositNFTs(caller, collection, req.IDs, recipient); err != nil {
		h.writeError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, StatusResponse{Status: "ok"})
}

func (h *Handler) DepositTokens(w http.ResponseWriter, r *http.Request) {
	var req DepositTokensRequest
	if err := decodeJSON(r, &req); err != nil {
		h.writeError(w, err)
		return
	}

	caller, err := model.ParseAddress(req.Caller)
	if err != nil {
		h.writeError(w, fmt.Errorf("caller: %w", err))
		return
	}
	token, err := model.ParseAddress(req.Token)
	if err != nil {
		h.writeError(w, fmt.Errorf("token: %w", err))
		return
	}
	recipient, err := model.ParseAddress(req.Recipient)
	if err != nil {
		h.writeError(w, fmt.Errorf("recipient: %w", err))
		return
	}
	amount, err := model.ParseAmount(req.Amount)
	if err != nil {
		h.writeError(w, fmt.Errorf("amount: %w", err))
		return
	}

	if err := h.factory.DepositTokens(caller, token, amount, recipient); err != nil {
		h.writeError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, StatusResponse{Status: "ok"})
}

func (h *Handler) GetAccount(w http.ResponseWriter, r *http.Request) {
	addr, err := model.ParseAddress(chi.URLParam(r, "address"))
	if err != nil {
		h.writeError(w, err)
		return
	}

	resp := AccountResponse{
		Address:       addr.Hex(),
		NativeBalance: h.ledger.NativeBalance(addr).Dec(),
	}

	for _, token := range h.ledger.Tokens() {
		bal, err := h.ledger.TokenBalance(token, addr)
		if err != nil || bal.IsZero() {
			continue
		}
		if resp.TokenBalances == nil {
			resp.TokenBalances = make(map[string]string)
		}
		resp.TokenBalances[token.Hex()] = bal.Dec()
	}

	for _, collection := range h.ledger.Collections() {
		info, err := h.ledger.CollectionInfo(collection)
		if err != nil || !info.Enumerable {
			continue
		}
		ids, err := h.ledger.OwnedNFTs(collection, addr)
		if err != nil || len(ids) == 0 {
			continue
		}
		if resp.NFTs == nil {
			resp.NFTs = make(map[string][]uint64)
		}
		resp.NFTs[collection.Hex()] = ids
	}

	h.writeJSON(w, http.StatusOK, resp)
}

func (h *Handler) GetPolicy(w http.ResponseWriter, r *http.Request) {
	h.writeJSON(w, http.StatusOK, h.factory.PolicySnapshot())
}

func (h *Handler) InstallCurve(w http.ResponseWriter, r *http.Request) {
	var req InstallCurveRequest
	if err := decodeJSON(r, &req); err != nil {
		h.writeError(w, err)
		return
	}

	caller, err := model.ParseAddress(req.Caller)
	if err != nil {
		h.writeError(w, fmt.Errorf("caller: %w", err))
		return
	}
	addr, err := model.ParseAddress(req.Address)
	if err != nil {
		h.writeError(w, fmt.Errorf("address: %w", err))
		return
	}

	if err := h.factory.InstallCurve(caller, addr, req.Kind); err != nil {
		h.writeError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, StatusResponse{Status: "ok"})
}

// setAllowed handles the three whitelist toggles, which differ only in the
// factory method they hit.
func (h *Handler) setAllowed(w http.ResponseWriter, r *http.Request, set func(caller, subject common.Address, allowed bool) error) {
	var req SetAllowedRequest
	if err := decodeJSON(r, &req); err != nil {
		h.writeError(w, err)
		return
	}

	caller, err := model.ParseAddress(req.Caller)
	if err != nil {
		h.writeError(w, fmt.Errorf("caller: %w", err))
		return
	}
	subject, err := model.ParseOptionalAddress(chi.URLParam(r, "address"))
	if err != nil {
		h.writeError(w, fmt.Errorf("address: %w", err))
		return
	}

	if err := set(caller, subject, req.Allowed); err != nil {
		h.writeError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, StatusResponse{Status: "ok"})
}

func (h *Handler) SetCurveAllowed(w http.ResponseWriter, r *http.Request) {
	h.setAllowed(w, r, h.factory.SetCurveAllowed)
}

func (h *Handler) SetCallTargetAllowed(w http.ResponseWriter, r *http.Request) {
	h.setAllowed(w, r, h.factory.SetCallAllowed)
}

func (h *Handler) SetRouterAllowed(w http.ResponseWriter, r *http.Request) {
	h.setAllowed(w, r, h.factory.SetRouterAllowed)
}

func (h *Handler) SetFeeRecipient(w http.ResponseWriter, r *http.Request) {
	var req FeeRecipientRequest
	if err := decodeJSON(r, &req); err != nil {
		h.writeError(w, err)
		return
	}

	caller, err := model.ParseAddress(req.Caller)
	if err != nil {
		h.writeError(w, fmt.Errorf("caller: %w", err))
		return
	}
	recipient, err := model.ParseOptionalAddress(req.Recipient)
	if err != nil {
		h.writeError(w, fmt.Errorf("recipient: %w", err))
		return
	}

	if err := h.factory.ChangeProtocolFeeRecipient(caller, recipient); err != nil {
		h.writeError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, StatusResponse{Status: "ok"})
}

func (h *Handler) SetFeeMultiplier(w http.ResponseWriter, r *http.Request) {
	var req FeeMultiplierRequest
	if err := decodeJSON(r, &req); err != nil {
		h.writeError(w, err)
		return
	}

	caller, err := model.ParseAddress(req.Caller)
	if err != nil {
		h.writeError(w, fmt.Errorf("caller: %w", err))
		return
	}
	multiplier, err := model.ParseWad(req.Multiplier)
	if err != nil {
		h.writeError(w, fmt.Errorf("multiplier: %w", err))
		return
	}

	if err := h.factory.ChangeProtocolFeeMultiplier(caller, multiplier); err != nil {
		h.writeError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, StatusResponse{Status: "ok"})
}

func (h *Handler) WithdrawFees(w http.ResponseWriter, r *http.Request) {
	var req WithdrawFeesRequest
	if err := decodeJSON(r, &req); err != nil {
		h.writeError(w, err)
		return
	}

	caller, err := model.ParseAddress(req.Caller)
	if err != nil {
		h.writeError(w, fmt.Errorf("caller: %w", err))
		return
	}

	var amount *uint256.Int
	if req.Token == "" {
		amount, err = h.factory.WithdrawNativeProtocolFees(caller)
	} else {
		var token common.Address
		token, err = model.ParseAddress(req.Token)
		if err == nil {
			amount, err = h.factory.WithdrawTokenProtocolFees(caller, token)
		}
	}
	if err != nil {
		h.writeError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, WithdrawFeesResponse{Amount: amount.Dec()})
}

func (h *Handler) TransferOwnership(w http.ResponseWriter, r *http.Request) {
	var req TransferOwnershipRequest
	if err := decodeJSON(r, &req); err != nil {
		h.writeError(w, err)
		return
	}

	caller, err := model.ParseAddress(req.Caller)
	if err != nil {
		h.writeError(w, fmt.Errorf("caller: %w", err))
		return
	}
	newOwner, err := model.ParseOptionalAddress(req.NewOwner)
	if err != nil {
		h.writeError(w, fmt.Errorf("new_owner: %w", err))
		return
	}

	if err := h.factory.TransferOwnership(caller, newOwner); err != nil {
		h.writeError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, StatusResponse{Status: "ok"})
}

func (h *Handler) RegisterToken(w http.ResponseWriter, r *http.Request) {
	var req RegisterTokenRequest
	if err := decodeJSON(r, &req); err != nil {
		h.writeError(w, err)
		return
	}

	addr, err := model.ParseAddress(req.Address)
	if err != nil {
		h.writeError(w, fmt.Errorf("address: %w", err))
		return
	}
	if err := h.ledger.RegisterToken(addr, ledger.TokenInfo{Symbol: req.Symbol, Decimals: req.Decimals}); err != nil {
		h.writeError(w, err)
		return
	}
	h.writeJSON(w, http.StatusCreated, StatusResponse{Status: "ok"})
}

func (h *Handler) RegisterCollection(w http.ResponseWriter, r *http.Request) {
	var req RegisterCollectionRequest
	if err := decodeJSON(r, &req); err != nil {
		h.writeError(w, err)
		return
	}

	addr, err := model.ParseAddress(req.Address)
	if err != nil {
		h.writeError(w, fmt.Errorf("address: %w", err))
		return
	}
	if err := h.ledger.RegisterCollection(addr, ledger.CollectionInfo{Symbol: req.Symbol, Enumerable: req.Enumerable}); err != nil {
		h.writeError(w, err)
		return
	}
	h.writeJSON(w, http.StatusCreated, StatusResponse{Status: "ok"})
}

func (h *Handler) MintNFTs(w http.ResponseWriter, r *http.Request) {
	var req MintNFTsRequest
	if err := decodeJSON(r, &req); err != nil {
		h.writeError(w, err)
		return
	}

	collection, err := model.ParseAddress(chi.URLParam(r, "address"))
	if err != nil {
		h.writeError(w, fmt.Errorf("collection: %w", err))
		return
	}
	owner, err := model.ParseAddress(req.Owner)
	if err != nil {
		h.writeError(w, fmt.Errorf("owner: %w", err))
		return
	}
	if len(req.IDs) == 0 {
		h.writeError(w, fmt.Errorf("%w: no ids", model.ErrInvalidInput))
		return
	}

	for _, id := range req.IDs {
		if err := h.ledger.MintNFT(collection, id, owner); err != nil {
			h.writeError(w, err)
			return
		}
	}
	h.writeJSON(w, http.StatusCreated, StatusResponse{Status: "ok"})
}

func (h *Handler) Fund(w http.ResponseWriter, r *http.Request) {
	var req FundRequest
	if err := decodeJSON(r, &req); err != nil {
		h.writeError(w, err)
		return
	}

	addr, err := model.ParseAddress(req.Address)
	if err != nil {
		h.writeError(w, fmt.Errorf("address: %w", err))
		return
	}
	amount, err := model.ParseAmount(req.Amount)
	if err != nil {
		h.writeError(w, fmt.Errorf("amount: %w", err))
		return
	}

	if req.Token == "" {
		err = h.ledger.CreditNative(addr, amount)
	} else {
		var token common.Address
		token, err = model.ParseAddress(req.Token)
		if err == nil {
			err = h.ledger.CreditToken(token, addr, amount)
		}
	}
	if err != nil {
		h.writeError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, StatusResponse{Status: "ok"})
}

func decodeJSON(r *http.Request, dst any) error {
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		return fmt.Errorf("%w: bad request body: %v", model.ErrInvalidInput, err)
	}
	return nil
}

func (h *Handler) writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		h.logger.Warn("encode response", zap.Error(err))
	}
}

func (h *Handler) writeError(w http.ResponseWriter, err error) {
	status, code := classify(err)
	h.logger.Warn("request failed",
		zap.String("code", code),
		zap.Int("status", status),
		zap.Error(err),
	)

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(ErrorResponse{Code: code, Message: err.Error()})
}

func classify(err error) (int, string) {
	switch {
	case errors.Is(err, model.ErrInvalidInput):
		return http.StatusBadRequest, "invalid_input"
	case errors.Is(err, model.ErrUnauthorized):
		return http.StatusForbidden, "unauthorized"
	case errors.Is(err, model.ErrNotAllowed):
		return http.StatusConflict, "not_allowed"
	case errors.Is(err, model.ErrTransferFailed):
		return http.StatusUnprocessableEntity, "transfer_failed"
	case errors.Is(err, market.ErrUnknownPair):
		return http.StatusNotFound, "not_found"
	default:
		return http.StatusInternalServerError, "internal_error"
	}
}
