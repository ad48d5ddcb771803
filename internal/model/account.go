package model

import "github.com/ethereum/go-ethereum/common"

// RateLimitConfig caps how fast a caller may hit the mutating endpoints.
type RateLimitConfig struct {
	QPS   float64 `json:"qps"`
	Burst int     `json:"burst"`
}

// Account represents an authenticated caller of the vault. The address is the
// identity every custody and loan record is keyed against; the API key is what
// the gateway hands out for authentication.
type Account struct {
	Address common.Address  `json:"address"`
	Name    string          `json:"name"`
	APIKey  string          `json:"api_key"`
	Rate    RateLimitConfig `json:"rate_limit"`
}
