package curve

import (
	"errors"
	"testing"

	"github.com/holiman/uint256"

	"github.com/LightmNFT/lightm-market/internal/model"
)

func TestLinearIncreasePrice(t *testing.T) {
	spot := uint256.NewInt(100)
	delta := uint256.NewInt(10)

	next, err := Linear{}.IncreasePrice(spot, delta)
	if err != nil {
		t.Fatalf("increase failed: %v", err)
	}
	if !next.Eq(uint256.NewInt(110)) {
		t.Fatalf("got %s, want 110", next)
	}
	if !spot.Eq(uint256.NewInt(100)) || !delta.Eq(uint256.NewInt(10)) {
		t.Fatalf("inputs mutated: spot=%s delta=%s", spot, delta)
	}
}

func TestLinearIncreasePriceOverflow(t *testing.T) {
	spot := new(uint256.Int).SetAllOne()
	delta := uint256.NewInt(1)

	if _, err := (Linear{}).IncreasePrice(spot, delta); !errors.Is(err, ErrPriceOverflow) {
		t.Fatalf("expected ErrPriceOverflow, got %v", err)
	}
}

func TestLinearDecreasePrice(t *testing.T) {
	next, err := Linear{}.DecreasePrice(uint256.NewInt(100), uint256.NewInt(10))
	if err != nil {
		t.Fatalf("decrease failed: %v", err)
	}
	if !next.Eq(uint256.NewInt(90)) {
		t.Fatalf("got %s, want 90", next)
	}
}

func TestLinearDecreasePriceSaturates(t *testing.T) {
	next, err := Linear{}.DecreasePrice(uint256.NewInt(10), uint256.NewInt(100))
	if err != nil {
		t.Fatalf("decrease failed: %v", err)
	}
	if !next.IsZero() {
		t.Fatalf("got %s, want 0", next)
	}
}

func TestLinearValidators(t *testing.T) {
	if !(Linear{}).ValidateDelta(uint256.NewInt(0)) {
		t.Fatal("linear curve should accept any delta")
	}
	if !(Linear{}).ValidateSpotPrice(uint256.NewInt(0)) {
		t.Fatal("linear curve should accept any spot price")
	}
}

func TestNew(t *testing.T) {
	c, err := New(KindLinear)
	if err != nil {
		t.Fatalf("building linear curve: %v", err)
	}
	if _, ok := c.(Linear); !ok {
		t.Fatalf("got %T, want Linear", c)
	}

	if _, err := New("exponential"); !errors.Is(err, model.ErrInvalidInput) {
		t.Fatalf("expected ErrInvalidInput, got %v", err)
	}

	kinds := Kinds()
	if len(kinds) != 1 || kinds[0] != KindLinear {
		t.Fatalf("unexpected kinds: %v", kinds)
	}
}
