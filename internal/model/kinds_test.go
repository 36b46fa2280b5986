package model

import (
	"encoding/json"
	"errors"
	"testing"
)

func TestVariantFor(t *testing.T) {
	cases := []struct {
		kind       AssetKind
		enumerable bool
		want       PairVariant
	}{
		{AssetNative, true, VariantEnumerableNative},
		{AssetNative, false, VariantMissingEnumerableNative},
		{AssetToken, true, VariantEnumerableToken},
		{AssetToken, false, VariantMissingEnumerableToken},
	}

	for _, tc := range cases {
		got := VariantFor(tc.kind, tc.enumerable)
		if got != tc.want {
			t.Fatalf("VariantFor(%s, %v) = %s, want %s", tc.kind, tc.enumerable, got, tc.want)
		}
		if got.AssetKind() != tc.kind {
			t.Fatalf("variant %s reports kind %s, want %s", got, got.AssetKind(), tc.kind)
		}
		if got.Enumerable() != tc.enumerable {
			t.Fatalf("variant %s reports enumerable %v, want %v", got, got.Enumerable(), tc.enumerable)
		}
	}
}

func TestParsePairVariantRoundTrip(t *testing.T) {
	for v := PairVariant(0); v < VariantCount; v++ {
		parsed, err := ParsePairVariant(v.String())
		if err != nil {
			t.Fatalf("parse %q: %v", v.String(), err)
		}
		if parsed != v {
			t.Fatalf("round trip mismatch: %s != %s", parsed, v)
		}
	}

	if _, err := ParsePairVariant("bonded-native"); !errors.Is(err, ErrInvalidInput) {
		t.Fatalf("expected ErrInvalidInput, got %v", err)
	}
}

func TestParsePoolType(t *testing.T) {
	for _, p := range []PoolType{PoolTypeToken, PoolTypeNFT, PoolTypeTrade} {
		parsed, err := ParsePoolType(p.String())
		if err != nil {
			t.Fatalf("parse %q: %v", p.String(), err)
		}
		if parsed != p {
			t.Fatalf("round trip mismatch: %s != %s", parsed, p)
		}
	}

	if _, err := ParsePoolType("hybrid"); !errors.Is(err, ErrInvalidInput) {
		t.Fatalf("expected ErrInvalidInput, got %v", err)
	}
}

func TestEventOmitsEmptyFields(t *testing.T) {
	event := Event{
		Seq:       7,
		Type:      EventNewPair,
		Caller:    "0x1111111111111111111111111111111111111111",
		Pair:      "0x2222222222222222222222222222222222222222",
		Timestamp: 1700000000,
	}

	data, err := json.Marshal(event)
	if err != nil {
		t.Fatalf("marshal failed: %v", err)
	}

	var decoded map[string]interface{}
	if err := json.Unmarshal(data, &decoded); err != nil {
		t.Fatalf("unmarshal failed: %v", err)
	}

	for _, key := range []string{"token", "subject", "allowed", "amount"} {
		if _, ok := decoded[key]; ok {
			t.Fatalf("empty field %q should be omitted", key)
		}
	}
	if decoded["type"] != EventNewPair {
		t.Fatalf("type mismatch: %v", decoded["type"])
	}
}
