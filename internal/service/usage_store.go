package service

import (
	"context"
	"sync"
	"time"
)

// BorrowUsageStore 跟踪账户的实时借款用量（当日笔数与金额）
type BorrowUsageStore struct {
	mu          sync.RWMutex
	dailyVolume map[string]float64 // Key: Account:YYYY-MM-DD
	dailyLoans  map[string]int
}

func NewBorrowUsageStore() *BorrowUsageStore {
	return &BorrowUsageStore{
		dailyVolume: make(map[string]float64),
		dailyLoans:  make(map[string]int),
	}
}

func (s *BorrowUsageStore) GetDailyUsage(ctx context.Context, account string) (int, float64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	key := s.makeKey(account)
	return s.dailyLoans[key], s.dailyVolume[key], nil
}

func (s *BorrowUsageStore) AddDailyUsage(ctx context.Context, account string, loans int, amount float64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	key := s.makeKey(account)
	s.dailyVolume[key] += amount
	s.dailyLoans[key] += loans
	return nil
}

func (s *BorrowUsageStore) makeKey(account string) string {
	// 按 UTC 日期分割
	return account + ":" + time.Now().UTC().Format("2006-01-02")
}
