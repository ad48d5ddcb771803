package dpo

import (
	"errors"
	"math/big"
	"testing"

	"github.com/ethereum/go-ethereum/common"
)

var (
	vaultAddr  = common.HexToAddress("0x00000000000000000000000000000000000a0001")
	alice      = common.HexToAddress("0x1111111111111111111111111111111111111111")
	bob        = common.HexToAddress("0x2222222222222222222222222222222222222222")
	collection = common.HexToAddress("0x3333333333333333333333333333333333333333")
)

func TestMintRequiresAuthorization(t *testing.T) {
	ledger := NewLedger()

	if err := ledger.MintAs(vaultAddr, collection, 1, alice, big.NewInt(100)); !errors.Is(err, ErrUnauthorizedMinter) {
		t.Fatalf("unauthorized mint: got %v, want ErrUnauthorizedMinter", err)
	}

	ledger.AuthorizeMinter(vaultAddr, true)
	if !ledger.IsAuthorizedMinter(vaultAddr) {
		t.Fatalf("minter not authorized after grant")
	}
	if err := ledger.MintAs(vaultAddr, collection, 1, alice, big.NewInt(100)); err != nil {
		t.Fatalf("mint: %v", err)
	}

	ledger.AuthorizeMinter(vaultAddr, false)
	if err := ledger.MintAs(vaultAddr, collection, 1, alice, big.NewInt(1)); !errors.Is(err, ErrUnauthorizedMinter) {
		t.Fatalf("mint after revoke: got %v, want ErrUnauthorizedMinter", err)
	}
}

func TestMintAccumulatesSupplyAndHoldings(t *testing.T) {
	ledger := NewLedger()
	ledger.AuthorizeMinter(vaultAddr, true)

	ledger.MintAs(vaultAddr, collection, 1, alice, big.NewInt(100))
	ledger.MintAs(vaultAddr, collection, 1, alice, big.NewInt(50))
	ledger.MintAs(vaultAddr, collection, 2, bob, big.NewInt(30))

	if supply := ledger.Supply(collection, 1); supply.Cmp(big.NewInt(150)) != 0 {
		t.Fatalf("item 1 supply = %s, want 150", supply)
	}
	if supply := ledger.Supply(collection, 2); supply.Cmp(big.NewInt(30)) != 0 {
		t.Fatalf("item 2 supply = %s, want 30", supply)
	}
	if bal := ledger.BalanceOf(collection, 1, alice); bal.Cmp(big.NewInt(150)) != 0 {
		t.Fatalf("alice item 1 balance = %s, want 150", bal)
	}
	if bal := ledger.BalanceOf(collection, 1, bob); bal.Sign() != 0 {
		t.Fatalf("bob item 1 balance = %s, want 0", bal)
	}

	if err := ledger.MintAs(vaultAddr, collection, 1, alice, big.NewInt(0)); !errors.Is(err, ErrInvalidAmount) {
		t.Fatalf("zero mint: got %v, want ErrInvalidAmount", err)
	}
}

func TestTransferPerItem(t *testing.T) {
	ledger := NewLedger()
	ledger.AuthorizeMinter(vaultAddr, true)
	ledger.MintAs(vaultAddr, collection, 1, alice, big.NewInt(100))

	if err := ledger.Transfer(collection, 1, bob, alice, big.NewInt(10)); !errors.Is(err, ErrInsufficientHolding) {
		t.Fatalf("transfer without holding: got %v, want ErrInsufficientHolding", err)
	}
	if err := ledger.Transfer(collection, 1, alice, bob, big.NewInt(101)); !errors.Is(err, ErrInsufficientHolding) {
		t.Fatalf("over-transfer: got %v, want ErrInsufficientHolding", err)
	}

	if err := ledger.Transfer(collection, 1, alice, bob, big.NewInt(40)); err != nil {
		t.Fatalf("transfer: %v", err)
	}
	if bal := ledger.BalanceOf(collection, 1, alice); bal.Cmp(big.NewInt(60)) != 0 {
		t.Fatalf("alice balance = %s, want 60", bal)
	}
	if bal := ledger.BalanceOf(collection, 1, bob); bal.Cmp(big.NewInt(40)) != 0 {
		t.Fatalf("bob balance = %s, want 40", bal)
	}
	// Transfers never change supply.
	if supply := ledger.Supply(collection, 1); supply.Cmp(big.NewInt(100)) != 0 {
		t.Fatalf("supply after transfer = %s, want 100", supply)
	}
}

func TestMinterBindsCaller(t *testing.T) {
	ledger := NewLedger()
	minter := NewMinter(ledger, vaultAddr)

	if err := minter.Mint(collection, 1, alice, big.NewInt(5)); !errors.Is(err, ErrUnauthorizedMinter) {
		t.Fatalf("mint before authorization: got %v, want ErrUnauthorizedMinter", err)
	}
	ledger.AuthorizeMinter(vaultAddr, true)
	if err := minter.Mint(collection, 1, alice, big.NewInt(5)); err != nil {
		t.Fatalf("mint: %v", err)
	}
	if bal := ledger.BalanceOf(collection, 1, alice); bal.Cmp(big.NewInt(5)) != 0 {
		t.Fatalf("balance = %s, want 5", bal)
	}
}
