package model

import (
	"time"
)

// AuditLog captures one complete vault request for later inspection. Business
// context (loan amounts, failure codes, liquidation outcomes) is attached by
// handlers via the audit middleware helpers.
type AuditLog struct {
	ID        string `json:"id"`
	Account   string `json:"account"`
	Method    string `json:"method"`
	Path      string `json:"path"`
	IP        string `json:"ip"`
	UserAgent string `json:"user_agent"`

	RequestBody   string `json:"request_body"`
	RequestHeader string `json:"request_header"`

	StatusCode   int    `json:"status_code"`
	ResponseBody string `json:"response_body"`
	LatencyMs    int64  `json:"latency_ms"`

	Context map[string]interface{} `json:"context"`

	CreatedAt time.Time `json:"created_at"`
}
