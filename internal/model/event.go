package model

import "time"

// Vault event types pushed to stream subscribers.
const (
	EventDeposit     = "deposit"
	EventWithdraw    = "withdraw"
	EventBorrow      = "borrow"
	EventRepay       = "repay"
	EventLiquidation = "liquidation"
)

// VaultEvent is one state transition, broadcast over the event stream.
// Amount carries the wei value relevant to the event type: borrowed amount,
// debt paid, or liquidation sale price.
type VaultEvent struct {
	Type       string    `json:"type"`
	Collection string    `json:"collection"`
	ItemID     uint64    `json:"item_id"`
	Account    string    `json:"account"`
	Amount     string    `json:"amount,omitempty"`
	CreatedAt  time.Time `json:"created_at"`
}
