package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	VaultOpsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "nftvault_operations_total",
		Help: "The total number of vault operations processed",
	}, []string{"op", "status"})

	LatencyBucket = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "nftvault_latency_bucket",
		Help:    "Request latency in seconds",
		Buckets: prometheus.DefBuckets,
	}, []string{"endpoint"})

	LoanRejects = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "nftvault_loan_rejects_total",
		Help: "Total loan precondition rejections",
	}, []string{"reason"})

	LiquidationsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "nftvault_liquidations_total",
		Help: "Total successful liquidations",
	})

	DebtTokensMinted = promauto.NewCounter(prometheus.CounterOpts{
		Name: "nftvault_dpo_minted_wei_total",
		Help: "Total DPO tokens minted against borrows, in wei",
	})
)
