package types

// coin_test.go — checked-arithmetic overflow/underflow coverage for
// Coin/Coins, styled after dex/auction_test.go's plain Go (not
// table-driven) helper-function style.

import (
	"math/big"
	"testing"

	"grug/apperror"
)

func mustDenom(t *testing.T, s string) Denom {
	t.Helper()
	d, err := NewDenom(s)
	if err != nil {
		t.Fatalf("NewDenom(%q): %v", s, err)
	}
	return d
}

func TestNewCoinRejectsNonPositiveAmount(t *testing.T) {
	denom := mustDenom(t, "uusdc")
	if _, err := NewCoin(denom, big.NewInt(0)); err == nil {
		t.Fatal("expected error for zero amount")
	}
	if _, err := NewCoin(denom, big.NewInt(-1)); err == nil {
		t.Fatal("expected error for negative amount")
	}
}

func TestNewCoinRejectsOver128Bits(t *testing.T) {
	denom := mustDenom(t, "uusdc")
	tooBig := new(big.Int).Lsh(big.NewInt(1), 128) // 2^128, one past maxUint128
	if _, err := NewCoin(denom, tooBig); err == nil {
		t.Fatal("expected error for amount exceeding 128 bits")
	}

	maxOK := new(big.Int).Sub(tooBig, big.NewInt(1)) // 2^128 - 1, exactly maxUint128
	if _, err := NewCoin(denom, maxOK); err != nil {
		t.Fatalf("expected max uint128 amount to be accepted, got: %v", err)
	}
}

func TestCoinsAddOverflowsPastMaxUint128(t *testing.T) {
	denom := mustDenom(t, "uusdc")
	maxAmt := new(big.Int).Sub(new(big.Int).Lsh(big.NewInt(1), 128), big.NewInt(1))

	a, err := NewCoins(Coin{Denom: denom, Amount: maxAmt})
	if err != nil {
		t.Fatalf("NewCoins: %v", err)
	}
	b, err := NewCoins(Coin{Denom: denom, Amount: big.NewInt(1)})
	if err != nil {
		t.Fatalf("NewCoins: %v", err)
	}

	if _, err := a.Add(b); err == nil {
		t.Fatal("expected overflow error adding 1 to maxUint128")
	} else if !apperror.IsMath(err) {
		t.Fatalf("expected a math error, got: %v", err)
	}
}

func TestCoinsAddMergesDistinctAndSharedDenoms(t *testing.T) {
	usdc := mustDenom(t, "uusdc")
	atom := mustDenom(t, "uatom")

	a, err := NewCoins(Coin{Denom: usdc, Amount: big.NewInt(100)})
	if err != nil {
		t.Fatalf("NewCoins: %v", err)
	}
	b, err := NewCoins(
		Coin{Denom: usdc, Amount: big.NewInt(50)},
		Coin{Denom: atom, Amount: big.NewInt(7)},
	)
	if err != nil {
		t.Fatalf("NewCoins: %v", err)
	}

	sum, err := a.Add(b)
	if err != nil {
		t.Fatalf("Add: %v", err)
	}
	if got := sum.Get("uusdc"); got == nil || got.Cmp(big.NewInt(150)) != 0 {
		t.Fatalf("uusdc = %v, want 150", got)
	}
	if got := sum.Get("uatom"); got == nil || got.Cmp(big.NewInt(7)) != 0 {
		t.Fatalf("uatom = %v, want 7", got)
	}
}

func TestCoinsSubUnderflowsOnInsufficientBalance(t *testing.T) {
	denom := mustDenom(t, "uusdc")
	a, err := NewCoins(Coin{Denom: denom, Amount: big.NewInt(10)})
	if err != nil {
		t.Fatalf("NewCoins: %v", err)
	}
	b, err := NewCoins(Coin{Denom: denom, Amount: big.NewInt(11)})
	if err != nil {
		t.Fatalf("NewCoins: %v", err)
	}

	if _, err := a.Sub(b); err == nil {
		t.Fatal("expected underflow error")
	} else if !apperror.IsMath(err) {
		t.Fatalf("expected a math error, got: %v", err)
	}
}

func TestCoinsSubUnderflowsOnMissingDenom(t *testing.T) {
	usdc := mustDenom(t, "uusdc")
	atom := mustDenom(t, "uatom")
	a, err := NewCoins(Coin{Denom: usdc, Amount: big.NewInt(10)})
	if err != nil {
		t.Fatalf("NewCoins: %v", err)
	}
	b, err := NewCoins(Coin{Denom: atom, Amount: big.NewInt(1)})
	if err != nil {
		t.Fatalf("NewCoins: %v", err)
	}

	if _, err := a.Sub(b); err == nil {
		t.Fatal("expected error subtracting a denom the set doesn't hold")
	}
}

func TestCoinsSubDropsZeroedDenom(t *testing.T) {
	denom := mustDenom(t, "uusdc")
	a, err := NewCoins(Coin{Denom: denom, Amount: big.NewInt(10)})
	if err != nil {
		t.Fatalf("NewCoins: %v", err)
	}
	b, err := NewCoins(Coin{Denom: denom, Amount: big.NewInt(10)})
	if err != nil {
		t.Fatalf("NewCoins: %v", err)
	}

	out, err := a.Sub(b)
	if err != nil {
		t.Fatalf("Sub: %v", err)
	}
	if out.Len() != 0 {
		t.Fatalf("expected zeroed denom to be dropped, got %d items", out.Len())
	}
}

func TestNewCoinsRejectsDuplicateDenoms(t *testing.T) {
	denom := mustDenom(t, "uusdc")
	if _, err := NewCoins(
		Coin{Denom: denom, Amount: big.NewInt(1)},
		Coin{Denom: denom, Amount: big.NewInt(2)},
	); err == nil {
		t.Fatal("expected error for duplicate denom")
	}
}
