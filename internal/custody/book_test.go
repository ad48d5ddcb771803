package custody

import (
	"errors"
	"testing"

	"github.com/ethereum/go-ethereum/common"
)

var (
	alice      = common.HexToAddress("0x1111111111111111111111111111111111111111")
	bob        = common.HexToAddress("0x2222222222222222222222222222222222222222")
	collection = common.HexToAddress("0x3333333333333333333333333333333333333333")
)

func TestHolderOfUnknownItem(t *testing.T) {
	book := NewBook()
	if _, err := book.HolderOf(collection, 1); !errors.Is(err, ErrUnknownItem) {
		t.Fatalf("unknown item: got %v, want ErrUnknownItem", err)
	}
}

func TestTransfer(t *testing.T) {
	book := NewBook()
	book.Register(collection, 1, alice)

	if err := book.Transfer(collection, 2, alice, bob); !errors.Is(err, ErrUnknownItem) {
		t.Fatalf("transfer unknown item: got %v, want ErrUnknownItem", err)
	}
	if err := book.Transfer(collection, 1, bob, alice); !errors.Is(err, ErrNotHolder) {
		t.Fatalf("transfer by non-holder: got %v, want ErrNotHolder", err)
	}
	// Failed transfer left the book unchanged.
	if holder, _ := book.HolderOf(collection, 1); holder != alice {
		t.Fatalf("holder changed by failed transfer: %s", holder.Hex())
	}

	if err := book.Transfer(collection, 1, alice, bob); err != nil {
		t.Fatalf("transfer: %v", err)
	}
	if holder, _ := book.HolderOf(collection, 1); holder != bob {
		t.Fatalf("holder = %s, want bob", holder.Hex())
	}
}
