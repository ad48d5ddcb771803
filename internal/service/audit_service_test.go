package service

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/mosaical/nftvault/internal/model"
)

func TestAuditBufferRingAndFilter(t *testing.T) {
	buf := newAuditBuffer(3)

	for i := 1; i <= 5; i++ {
		buf.Add(&model.AuditLog{
			ID:      fmt.Sprintf("req-%d", i),
			Account: "0xaaaa",
		})
	}
	// Capacity 3 keeps only the last three, newest first.
	got := buf.List("", 10)
	if len(got) != 3 {
		t.Fatalf("list = %d entries, want 3", len(got))
	}
	if got[0].ID != "req-5" || got[2].ID != "req-3" {
		t.Fatalf("order = %s..%s, want req-5..req-3", got[0].ID, got[2].ID)
	}

	buf.Add(&model.AuditLog{ID: "req-6", Account: "0xbbbb"})
	byAccount := buf.List("0xbbbb", 10)
	if len(byAccount) != 1 || byAccount[0].ID != "req-6" {
		t.Fatalf("account filter = %+v", byAccount)
	}

	if limited := buf.List("", 1); len(limited) != 1 || limited[0].ID != "req-6" {
		t.Fatalf("limit = %+v", limited)
	}
}

func TestAuditServiceWritesAndLists(t *testing.T) {
	svc, err := NewAuditService(t.TempDir(), nil)
	if err != nil {
		t.Fatalf("new audit service: %v", err)
	}

	svc.Log(&model.AuditLog{
		ID:        "req-1",
		Account:   "0xaaaa",
		Method:    "POST",
		Path:      "/v1/vault/loans",
		CreatedAt: time.Now(),
	})
	svc.Log(&model.AuditLog{
		ID:        "req-2",
		Account:   "0xbbbb",
		Method:    "POST",
		Path:      "/v1/vault/deposits",
		CreatedAt: time.Now(),
	})

	records, err := svc.List(context.Background(), "0xaaaa", 10, nil, nil)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(records) != 1 || records[0].ID != "req-1" {
		t.Fatalf("records = %+v", records)
	}

	svc.Close()
}
