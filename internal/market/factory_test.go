package market

import (
	"errors"
	"reflect"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"

	"github.com/LightmNFT/lightm-market/internal/curve"
	"github.com/LightmNFT/lightm-market/internal/ledger"
	"github.com/LightmNFT/lightm-market/internal/model"
	"github.com/LightmNFT/lightm-market/internal/policy"
)

var (
	factoryAddr = common.HexToAddress("0x00000000000000000000000000000000000000F0")
	ownerAddr   = common.HexToAddress("0x0000000000000000000000000000000000000001")
	feeTaker    = common.HexToAddress("0x0000000000000000000000000000000000000002")
	creator     = common.HexToAddress("0x0000000000000000000000000000000000000003")
	outsider    = common.HexToAddress("0x0000000000000000000000000000000000000004")
	linearAddr  = common.HexToAddress("0x00000000000000000000000000000000000000C1")
	enumCol     = common.HexToAddress("0x00000000000000000000000000000000000000E1")
	missingCol  = common.HexToAddress("0x00000000000000000000000000000000000000E2")
	usdToken    = common.HexToAddress("0x00000000000000000000000000000000000000A1")
)

func newTestFactory(t *testing.T) (*Factory, *ledger.Ledger) {
	t.Helper()

	led := ledger.NewLedger()
	if err := led.RegisterToken(usdToken, ledger.TokenInfo{Symbol: "USDX", Decimals: 18}); err != nil {
		t.Fatalf("register token: %v", err)
	}
	if err := led.RegisterCollection(enumCol, ledger.CollectionInfo{Symbol: "ENUM", Enumerable: true}); err != nil {
		t.Fatalf("register collection: %v", err)
	}
	if err := led.RegisterCollection(missingCol, ledger.CollectionInfo{Symbol: "MISS", Enumerable: false}); err != nil {
		t.Fatalf("register collection: %v", err)
	}
	for id := uint64(1); id <= 5; id++ {
		if err := led.MintNFT(enumCol, id, creator); err != nil {
			t.Fatalf("mint: %v", err)
		}
		if err := led.MintNFT(missingCol, id, creator); err != nil {
			t.Fatalf("mint: %v", err)
		}
	}
	if err := led.CreditNative(creator, uint256.NewInt(1000)); err != nil {
		t.Fatalf("credit: %v", err)
	}
	if err := led.CreditToken(usdToken, creator, uint256.NewInt(1000)); err != nil {
		t.Fatalf("credit: %v", err)
	}

	f, err := NewFactory(FactoryConfig{
		Address:               factoryAddr,
		Owner:                 ownerAddr,
		Templates:             testTemplates(),
		ProtocolFeeRecipient:  feeTaker,
		ProtocolFeeMultiplier: uint256.NewInt(5_000_000_000_000_000),
	}, led, nil, nil)
	if err != nil {
		t.Fatalf("new factory: %v", err)
	}
	if err := f.InstallCurve(ownerAddr, linearAddr, curve.KindLinear); err != nil {
		t.Fatalf("install curve: %v", err)
	}
	if err := f.SetCurveAllowed(ownerAddr, linearAddr, true); err != nil {
		t.Fatalf("allow curve: %v", err)
	}
	return f, led
}

func nativeNFTPoolParams() CreatePairParams {
	return CreatePairParams{
		AssetKind:             model.AssetNative,
		Collection:            enumCol,
		Curve:                 linearAddr,
		PoolType:              model.PoolTypeNFT,
		Delta:                 uint256.NewInt(10),
		Fee:                   uint256.NewInt(0),
		SpotPrice:             uint256.NewInt(100),
		InitialNFTIDs:         []uint64{1, 2},
		InitialFungibleAmount: uint256.NewInt(5),
	}
}

func eventsOfType(f *Factory, eventType string) []model.Event {
	var out []model.Event
	for _, e := range f.EventsSince(0) {
		if e.Type == eventType {
			out = append(out, e)
		}
	}
	return out
}

func TestNewFactoryValidation(t *testing.T) {
	led := ledger.NewLedger()
	base := FactoryConfig{
		Address:               factoryAddr,
		Owner:                 ownerAddr,
		Templates:             testTemplates(),
		ProtocolFeeRecipient:  feeTaker,
		ProtocolFeeMultiplier: uint256.NewInt(0),
	}

	cfg := base
	cfg.Templates[2] = common.Address{}
	if _, err := NewFactory(cfg, led, nil, nil); !errors.Is(err, model.ErrInvalidInput) {
		t.Fatalf("zero template should fail, got %v", err)
	}

	cfg = base
	cfg.ProtocolFeeRecipient = common.Address{}
	if _, err := NewFactory(cfg, led, nil, nil); !errors.Is(err, model.ErrInvalidInput) {
		t.Fatalf("zero fee recipient should fail, got %v", err)
	}

	cfg = base
	cfg.ProtocolFeeMultiplier = new(uint256.Int).AddUint64(policy.MaxProtocolFee(), 1)
	if _, err := NewFactory(cfg, led, nil, nil); !errors.Is(err, model.ErrInvalidInput) {
		t.Fatalf("multiplier above cap should fail, got %v", err)
	}

	cfg = base
	cfg.Owner = common.Address{}
	if _, err := NewFactory(cfg, led, nil, nil); !errors.Is(err, model.ErrInvalidInput) {
		t.Fatalf("zero owner should fail, got %v", err)
	}

	if _, err := NewFactory(base, led, nil, nil); err != nil {
		t.Fatalf("valid config rejected: %v", err)
	}
}

func TestCreatePairEndToEnd(t *testing.T) {
	f, led := newTestFactory(t)

	pairAddr, err := f.CreatePair(creator, nativeNFTPoolParams())
	if err != nil {
		t.Fatalf("create pair: %v", err)
	}

	if got := led.NativeBalance(pairAddr); !got.Eq(uint256.NewInt(5)) {
		t.Fatalf("pair native balance = %s, want 5", got)
	}
	if got := led.NativeBalance(creator); !got.Eq(uint256.NewInt(995)) {
		t.Fatalf("creator native balance = %s, want 995", got)
	}
	ids, err := led.OwnedNFTs(enumCol, pairAddr)
	if err != nil {
		t.Fatalf("owned nfts: %v", err)
	}
	if !reflect.DeepEqual(ids, []uint64{1, 2}) {
		t.Fatalf("pair holds %v, want [1 2]", ids)
	}

	created := eventsOfType(f, model.EventNewPair)
	if len(created) != 1 {
		t.Fatalf("NewPair events = %d, want 1", len(created))
	}
	if created[0].Pair != pairAddr.Hex() || created[0].Collection != enumCol.Hex() {
		t.Fatalf("creation event mismatch: %+v", created[0])
	}

	if !f.IsPair(pairAddr, model.VariantEnumerableNative) {
		t.Fatal("pair should verify against its variant")
	}
	for v := model.PairVariant(0); v < model.VariantCount; v++ {
		if v == model.VariantEnumerableNative {
			continue
		}
		if f.IsPair(pairAddr, v) {
			t.Fatalf("pair verified against foreign variant %s", v)
		}
	}

	detail, err := f.GetPair(pairAddr)
	if err != nil {
		t.Fatalf("get pair: %v", err)
	}
	if detail.SpotPrice != "100" || detail.Delta != "10" || detail.NativeBalance != "5" {
		t.Fatalf("detail mismatch: %+v", detail)
	}
	if detail.Variant != model.VariantEnumerableNative.String() {
		t.Fatalf("variant = %s", detail.Variant)
	}
	if !reflect.DeepEqual(detail.HeldNFTs, []uint64{1, 2}) {
		t.Fatalf("held nfts = %v", detail.HeldNFTs)
	}
}

func TestCreatePairMissingEnumerableTokenPair(t *testing.T) {
	f, led := newTestFactory(t)

	params := CreatePairParams{
		AssetKind:             model.AssetToken,
		Collection:            missingCol,
		Curve:                 linearAddr,
		Token:                 usdToken,
		PoolType:              model.PoolTypeTrade,
		Delta:                 uint256.NewInt(3),
		Fee:                   uint256.NewInt(100_000_000_000_000_000),
		SpotPrice:             uint256.NewInt(50),
		InitialNFTIDs:         []uint64{4, 5},
		InitialFungibleAmount: uint256.NewInt(200),
	}
	pairAddr, err := f.CreatePair(creator, params)
	if err != nil {
		t.Fatalf("create pair: %v", err)
	}

	if !f.IsPair(pairAddr, model.VariantMissingEnumerableToken) {
		t.Fatal("wrong variant selected")
	}

	bal, err := led.TokenBalance(usdToken, pairAddr)
	if err != nil {
		t.Fatalf("token balance: %v", err)
	}
	if !bal.Eq(uint256.NewInt(200)) {
		t.Fatalf("pair token balance = %s, want 200", bal)
	}

	// The collection cannot be enumerated; the receive hook must have
	// tracked the initial ids.
	detail, err := f.GetPair(pairAddr)
	if err != nil {
		t.Fatalf("get pair: %v", err)
	}
	if !reflect.DeepEqual(detail.HeldNFTs, []uint64{4, 5}) {
		t.Fatalf("held nfts = %v, want [4 5]", detail.HeldNFTs)
	}
	if detail.Token != usdToken.Hex() {
		t.Fatalf("token = %s", detail.Token)
	}
}

func TestCreatePairRejectsUnlistedCurve(t *testing.T) {
	f, led := newTestFactory(t)

	strange := common.HexToAddress("0x00000000000000000000000000000000000000C9")
	params := nativeNFTPoolParams()
	params.Curve = strange

	if _, err := f.CreatePair(creator, params); !errors.Is(err, model.ErrNotAllowed) {
		t.Fatalf("unlisted curve should fail with ErrNotAllowed, got %v", err)
	}
	if got := led.NativeBalance(creator); !got.Eq(uint256.NewInt(1000)) {
		t.Fatalf("creator balance changed: %s", got)
	}
	if pairs := f.ListPairs(); len(pairs) != 0 {
		t.Fatalf("pairs = %d, want 0", len(pairs))
	}
	if created := eventsOfType(f, model.EventNewPair); len(created) != 0 {
		t.Fatalf("creation events = %d, want 0", len(created))
	}

	// Whitelisted but never installed: the whitelist passes, the directory
	// lookup does not.
	if err := f.SetCurveAllowed(ownerAddr, strange, true); err != nil {
		t.Fatalf("allow curve: %v", err)
	}
	if _, err := f.CreatePair(creator, params); !errors.Is(err, model.ErrInvalidInput) {
		t.Fatalf("uninstalled curve should fail with ErrInvalidInput, got %v", err)
	}
}

func TestCreatePairTransferFailureLeavesNoState(t *testing.T) {
	f, led := newTestFactory(t)

	params := nativeNFTPoolParams()
	params.InitialNFTIDs = []uint64{1, 1}
	if _, err := f.CreatePair(creator, params); !errors.Is(err, model.ErrTransferFailed) {
		t.Fatalf("duplicate initial id should fail with ErrTransferFailed, got %v", err)
	}

	if got := led.NativeBalance(creator); !got.Eq(uint256.NewInt(1000)) {
		t.Fatalf("creator balance = %s, want 1000", got)
	}
	owner, err := led.NFTOwner(enumCol, 1)
	if err != nil {
		t.Fatalf("owner: %v", err)
	}
	if owner != creator {
		t.Fatalf("nft moved on failed create")
	}
	if pairs := f.ListPairs(); len(pairs) != 0 {
		t.Fatalf("pairs = %d, want 0", len(pairs))
	}
	if created := eventsOfType(f, model.EventNewPair); len(created) != 0 {
		t.Fatalf("creation events = %d, want 0", len(created))
	}

	// Insufficient funds behave the same way.
	params = nativeNFTPoolParams()
	params.InitialFungibleAmount = uint256.NewInt(5000)
	if _, err := f.CreatePair(creator, params); !errors.Is(err, model.ErrTransferFailed) {
		t.Fatalf("overdraft should fail with ErrTransferFailed, got %v", err)
	}

	// The failed attempts consumed no identity: the first success still
	// takes creation slot 0.
	pairAddr, err := f.CreatePair(creator, nativeNFTPoolParams())
	if err != nil {
		t.Fatalf("create pair: %v", err)
	}
	detail, err := f.GetPair(pairAddr)
	if err != nil {
		t.Fatalf("get pair: %v", err)
	}
	if detail.Seq != 0 {
		t.Fatalf("seq = %d, want 0", detail.Seq)
	}
}

func TestCreatePairValidation(t *testing.T) {
	f, _ := newTestFactory(t)

	params := nativeNFTPoolParams()
	params.Token = usdToken
	if _, err := f.CreatePair(creator, params); !errors.Is(err, model.ErrInvalidInput) {
		t.Fatalf("native pair with token should fail, got %v", err)
	}

	params = nativeNFTPoolParams()
	params.AssetKind = model.AssetToken
	if _, err := f.CreatePair(creator, params); !errors.Is(err, model.ErrInvalidInput) {
		t.Fatalf("token pair without token should fail, got %v", err)
	}

	params = nativeNFTPoolParams()
	params.Collection = common.HexToAddress("0x00000000000000000000000000000000000000EE")
	if _, err := f.CreatePair(creator, params); !errors.Is(err, model.ErrInvalidInput) {
		t.Fatalf("unknown collection should fail, got %v", err)
	}

	params = nativeNFTPoolParams()
	params.Fee = uint256.NewInt(1)
	if _, err := f.CreatePair(creator, params); !errors.Is(err, model.ErrInvalidInput) {
		t.Fatalf("nonzero fee on nft pool should fail, got %v", err)
	}

	if _, err := f.CreatePair(common.Address{}, nativeNFTPoolParams()); !errors.Is(err, model.ErrInvalidInput) {
		t.Fatalf("zero caller should fail, got %v", err)
	}
}

func TestIsPairVariantMatrix(t *testing.T) {
	f, _ := newTestFactory(t)

	cases := []struct {
		kind       model.AssetKind
		collection common.Address
		token      common.Address
		want       model.PairVariant
	}{
		{model.AssetNative, enumCol, common.Address{}, model.VariantEnumerableNative},
		{model.AssetNative, missingCol, common.Address{}, model.VariantMissingEnumerableNative},
		{model.AssetToken, enumCol, usdToken, model.VariantEnumerableToken},
		{model.AssetToken, missingCol, usdToken, model.VariantMissingEnumerableToken},
	}

	for _, tc := range cases {
		params := CreatePairParams{
			AssetKind:  tc.kind,
			Collection: tc.collection,
			Curve:      linearAddr,
			Token:      tc.token,
			PoolType:   model.PoolTypeNFT,
			Delta:      uint256.NewInt(1),
			Fee:        uint256.NewInt(0),
			SpotPrice:  uint256.NewInt(10),
		}
		pairAddr, err := f.CreatePair(creator, params)
		if err != nil {
			t.Fatalf("create %s pair: %v", tc.want, err)
		}
		for v := model.PairVariant(0); v < model.VariantCount; v++ {
			if got := f.IsPair(pairAddr, v); got != (v == tc.want) {
				t.Fatalf("IsPair(%s pair, %s) = %v", tc.want, v, got)
			}
		}
	}

	if f.IsPair(outsider, model.VariantEnumerableNative) {
		t.Fatal("outsider verified as pair")
	}
	if f.IsPair(factoryAddr, model.PairVariant(42)) {
		t.Fatal("unknown variant verified")
	}
}

func TestDepositNFTs(t *testing.T) {
	f, led := newTestFactory(t)

	pairAddr, err := f.CreatePair(creator, nativeNFTPoolParams())
	if err != nil {
		t.Fatalf("create pair: %v", err)
	}

	if err := f.DepositNFTs(creator, enumCol, []uint64{3}, pairAddr); err != nil {
		t.Fatalf("deposit to pair: %v", err)
	}
	deposits := eventsOfType(f, model.EventNFTDeposit)
	if len(deposits) != 1 || deposits[0].Pair != pairAddr.Hex() {
		t.Fatalf("deposit events = %+v", deposits)
	}
	ids, err := led.OwnedNFTs(enumCol, pairAddr)
	if err != nil {
		t.Fatalf("owned: %v", err)
	}
	if !reflect.DeepEqual(ids, []uint64{1, 2, 3}) {
		t.Fatalf("pair holds %v", ids)
	}

	// A transfer to a plain account moves assets but journals nothing.
	if err := f.DepositNFTs(creator, enumCol, []uint64{4}, outsider); err != nil {
		t.Fatalf("deposit to outsider: %v", err)
	}
	if got := eventsOfType(f, model.EventNFTDeposit); len(got) != 1 {
		t.Fatalf("deposit events = %d, want 1", len(got))
	}

	// Duplicate ids fail the whole batch.
	if err := f.DepositNFTs(creator, enumCol, []uint64{5, 5}, pairAddr); !errors.Is(err, model.ErrTransferFailed) {
		t.Fatalf("duplicate deposit should fail with ErrTransferFailed, got %v", err)
	}
	owner, err := led.NFTOwner(enumCol, 5)
	if err != nil {
		t.Fatalf("owner: %v", err)
	}
	if owner != creator {
		t.Fatal("nft 5 moved on failed deposit")
	}
}

func TestDepositTokens(t *testing.T) {
	f, led := newTestFactory(t)

	params := CreatePairParams{
		AssetKind:  model.AssetToken,
		Collection: enumCol,
		Curve:      linearAddr,
		Token:      usdToken,
		PoolType:   model.PoolTypeToken,
		Delta:      uint256.NewInt(1),
		Fee:        uint256.NewInt(0),
		SpotPrice:  uint256.NewInt(10),
	}
	tokenPair, err := f.CreatePair(creator, params)
	if err != nil {
		t.Fatalf("create token pair: %v", err)
	}
	nativePair, err := f.CreatePair(creator, nativeNFTPoolParams())
	if err != nil {
		t.Fatalf("create native pair: %v", err)
	}

	if err := f.DepositTokens(creator, usdToken, uint256.NewInt(30), tokenPair); err != nil {
		t.Fatalf("deposit tokens: %v", err)
	}
	deposits := eventsOfType(f, model.EventTokenDeposit)
	if len(deposits) != 1 || deposits[0].Pair != tokenPair.Hex() || deposits[0].Amount != "30" {
		t.Fatalf("token deposit events = %+v", deposits)
	}
	bal, err := led.TokenBalance(usdToken, tokenPair)
	if err != nil {
		t.Fatalf("balance: %v", err)
	}
	if !bal.Eq(uint256.NewInt(30)) {
		t.Fatalf("pair token balance = %s", bal)
	}

	// Depositing a token a pair is not bound to transfers but journals
	// nothing.
	if err := f.DepositTokens(creator, usdToken, uint256.NewInt(10), nativePair); err != nil {
		t.Fatalf("deposit to native pair: %v", err)
	}
	if got := eventsOfType(f, model.EventTokenDeposit); len(got) != 1 {
		t.Fatalf("token deposit events = %d, want 1", len(got))
	}

	if err := f.DepositTokens(creator, common.HexToAddress("0xDEAD"), uint256.NewInt(1), tokenPair); !errors.Is(err, model.ErrTransferFailed) {
		t.Fatalf("unknown token should fail with ErrTransferFailed, got %v", err)
	}
}

func TestAdminOperationsRequireOwner(t *testing.T) {
	f, _ := newTestFactory(t)

	checks := []struct {
		name string
		call func() error
	}{
		{"install curve", func() error { return f.InstallCurve(outsider, common.HexToAddress("0xC2"), curve.KindLinear) }},
		{"set curve allowed", func() error { return f.SetCurveAllowed(outsider, linearAddr, false) }},
		{"set call allowed", func() error { return f.SetCallAllowed(outsider, outsider, true) }},
		{"set router allowed", func() error { return f.SetRouterAllowed(outsider, outsider, true) }},
		{"change fee recipient", func() error { return f.ChangeProtocolFeeRecipient(outsider, outsider) }},
		{"change fee multiplier", func() error { return f.ChangeProtocolFeeMultiplier(outsider, uint256.NewInt(1)) }},
		{"transfer ownership", func() error { return f.TransferOwnership(outsider, outsider) }},
		{"withdraw native fees", func() error { _, err := f.WithdrawNativeProtocolFees(outsider); return err }},
		{"withdraw token fees", func() error { _, err := f.WithdrawTokenProtocolFees(outsider, usdToken); return err }},
	}
	for _, tc := range checks {
		if err := tc.call(); !errors.Is(err, model.ErrUnauthorized) {
			t.Fatalf("%s by outsider should fail with ErrUnauthorized, got %v", tc.name, err)
		}
	}
}

func TestMutualExclusionThroughFactory(t *testing.T) {
	f, _ := newTestFactory(t)
	x := common.HexToAddress("0x0000000000000000000000000000000000000077")

	if err := f.SetCallAllowed(ownerAddr, x, true); err != nil {
		t.Fatalf("grant call: %v", err)
	}
	if err := f.SetRouterAllowed(ownerAddr, x, true); !errors.Is(err, model.ErrNotAllowed) {
		t.Fatalf("router over call should fail with ErrNotAllowed, got %v", err)
	}
	// The failed grant journals nothing.
	if got := eventsOfType(f, model.EventRouterStatusUpdate); len(got) != 0 {
		t.Fatalf("router events = %d, want 0", len(got))
	}

	snap := f.PolicySnapshot()
	if !reflect.DeepEqual(snap.CallTargets, []string{x.Hex()}) {
		t.Fatalf("call targets = %v", snap.CallTargets)
	}
	if len(snap.Routers) != 0 {
		t.Fatalf("routers = %v", snap.Routers)
	}
}

func TestProtocolFeeGovernance(t *testing.T) {
	f, _ := newTestFactory(t)

	over := new(uint256.Int).AddUint64(policy.MaxProtocolFee(), 1)
	if err := f.ChangeProtocolFeeMultiplier(ownerAddr, over); !errors.Is(err, model.ErrInvalidInput) {
		t.Fatalf("multiplier above cap should fail, got %v", err)
	}
	if got := f.PolicySnapshot().ProtocolFeeMultiplier; got != "5000000000000000" {
		t.Fatalf("multiplier changed on failed update: %s", got)
	}

	if err := f.ChangeProtocolFeeMultiplier(ownerAddr, uint256.NewInt(7)); err != nil {
		t.Fatalf("change multiplier: %v", err)
	}
	if got := f.PolicySnapshot().ProtocolFeeMultiplier; got != "7" {
		t.Fatalf("multiplier = %s", got)
	}
	events := eventsOfType(f, model.EventFeeMultiplierUpdate)
	if len(events) != 1 || events[0].Amount != "7" {
		t.Fatalf("multiplier events = %+v", events)
	}

	if err := f.ChangeProtocolFeeRecipient(ownerAddr, outsider); err != nil {
		t.Fatalf("change recipient: %v", err)
	}
	if got := f.PolicySnapshot().ProtocolFeeRecipient; got != outsider.Hex() {
		t.Fatalf("recipient = %s", got)
	}
}

func TestWithdrawProtocolFees(t *testing.T) {
	f, led := newTestFactory(t)

	// Nothing accrued yet.
	swept, err := f.WithdrawNativeProtocolFees(ownerAddr)
	if err != nil {
		t.Fatalf("withdraw empty: %v", err)
	}
	if !swept.IsZero() {
		t.Fatalf("swept = %s, want 0", swept)
	}

	if err := led.CreditNative(factoryAddr, uint256.NewInt(42)); err != nil {
		t.Fatalf("credit: %v", err)
	}
	if err := led.CreditToken(usdToken, factoryAddr, uint256.NewInt(17)); err != nil {
		t.Fatalf("credit: %v", err)
	}

	swept, err = f.WithdrawNativeProtocolFees(ownerAddr)
	if err != nil {
		t.Fatalf("withdraw native: %v", err)
	}
	if !swept.Eq(uint256.NewInt(42)) {
		t.Fatalf("swept = %s, want 42", swept)
	}
	if got := led.NativeBalance(feeTaker); !got.Eq(uint256.NewInt(42)) {
		t.Fatalf("fee taker balance = %s", got)
	}
	if got := led.NativeBalance(factoryAddr); !got.IsZero() {
		t.Fatalf("factory balance = %s", got)
	}

	swept, err = f.WithdrawTokenProtocolFees(ownerAddr, usdToken)
	if err != nil {
		t.Fatalf("withdraw token: %v", err)
	}
	if !swept.Eq(uint256.NewInt(17)) {
		t.Fatalf("swept = %s, want 17", swept)
	}
	bal, err := led.TokenBalance(usdToken, feeTaker)
	if err != nil {
		t.Fatalf("balance: %v", err)
	}
	if !bal.Eq(uint256.NewInt(17)) {
		t.Fatalf("fee taker token balance = %s", bal)
	}

	if _, err := f.WithdrawTokenProtocolFees(ownerAddr, common.HexToAddress("0xDEAD")); !errors.Is(err, model.ErrInvalidInput) {
		t.Fatalf("unknown token withdraw should fail, got %v", err)
	}
}

func TestTransferOwnership(t *testing.T) {
	f, _ := newTestFactory(t)
	newOwner := common.HexToAddress("0x0000000000000000000000000000000000000055")

	if err := f.TransferOwnership(ownerAddr, common.Address{}); !errors.Is(err, model.ErrInvalidInput) {
		t.Fatalf("zero new owner should fail, got %v", err)
	}
	if err := f.TransferOwnership(ownerAddr, newOwner); err != nil {
		t.Fatalf("transfer ownership: %v", err)
	}
	if f.Owner() != newOwner {
		t.Fatalf("owner = %s", f.Owner().Hex())
	}

	if err := f.SetCurveAllowed(ownerAddr, linearAddr, false); !errors.Is(err, model.ErrUnauthorized) {
		t.Fatalf("old owner should be locked out, got %v", err)
	}
	if err := f.SetCurveAllowed(newOwner, linearAddr, false); err != nil {
		t.Fatalf("new owner rejected: %v", err)
	}

	events := eventsOfType(f, model.EventOwnershipTransferred)
	if len(events) != 1 || events[0].Subject != newOwner.Hex() {
		t.Fatalf("ownership events = %+v", events)
	}
}

func TestEventJournalSequencing(t *testing.T) {
	f, _ := newTestFactory(t)

	if _, err := f.CreatePair(creator, nativeNFTPoolParams()); err != nil {
		t.Fatalf("create pair: %v", err)
	}
	if err := f.SetCallAllowed(ownerAddr, outsider, true); err != nil {
		t.Fatalf("set call allowed: %v", err)
	}

	all := f.EventsSince(0)
	if len(all) != 3 { // curve whitelist grant, NewPair, call grant
		t.Fatalf("events = %d, want 3", len(all))
	}
	for i, e := range all {
		if e.Seq != uint64(i)+1 {
			t.Fatalf("event %d has seq %d", i, e.Seq)
		}
		if e.Timestamp == 0 || e.EmittedAt == "" {
			t.Fatalf("event %d missing timestamps: %+v", i, e)
		}
	}

	tail := f.EventsSince(2)
	if len(tail) != 1 || tail[0].Seq != 3 {
		t.Fatalf("tail = %+v", tail)
	}
	if got := f.EventsSince(3); got != nil {
		t.Fatalf("past-end tail = %+v", got)
	}
}

func TestListPairsOrdered(t *testing.T) {
	f, _ := newTestFactory(t)

	first, err := f.CreatePair(creator, nativeNFTPoolParams())
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	params := nativeNFTPoolParams()
	params.Collection = missingCol
	params.InitialNFTIDs = nil
	params.InitialFungibleAmount = nil
	second, err := f.CreatePair(creator, params)
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	pairs := f.ListPairs()
	if len(pairs) != 2 {
		t.Fatalf("pairs = %d", len(pairs))
	}
	if pairs[0].Address != first.Hex() || pairs[1].Address != second.Hex() {
		t.Fatalf("order wrong: %s, %s", pairs[0].Address, pairs[1].Address)
	}
	if pairs[0].Seq != 0 || pairs[1].Seq != 1 {
		t.Fatalf("seqs = %d, %d", pairs[0].Seq, pairs[1].Seq)
	}

	if _, err := f.GetPair(outsider); !errors.Is(err, ErrUnknownPair) {
		t.Fatalf("unknown pair lookup should fail with ErrUnknownPair, got %v", err)
	}
}
