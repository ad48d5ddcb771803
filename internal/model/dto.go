package model

// DepositRequest asks the vault to take custody of a collateral item.
type DepositRequest struct {
	Collection string `json:"collection" binding:"required"`
	ItemID     uint64 `json:"item_id" binding:"required"`
}

// WithdrawRequest releases custody back to the depositor.
type WithdrawRequest struct {
	Collection string `json:"collection" binding:"required"`
	ItemID     uint64 `json:"item_id" binding:"required"`
}

// BorrowRequest opens or tops up a loan. Amount is a decimal wei string.
type BorrowRequest struct {
	Collection string `json:"collection" binding:"required"`
	ItemID     uint64 `json:"item_id" binding:"required"`
	Amount     string `json:"amount" binding:"required"`
}

// RepayRequest settles a loan in full. Payment is a decimal wei string and
// must cover total debt at the instant of repayment; overpayment is refunded.
type RepayRequest struct {
	Collection string `json:"collection" binding:"required"`
	ItemID     uint64 `json:"item_id" binding:"required"`
	Payment    string `json:"payment" binding:"required"`
}

// LiquidateRequest seizes an underwater position.
type LiquidateRequest struct {
	Collection string `json:"collection" binding:"required"`
	ItemID     uint64 `json:"item_id" binding:"required"`
}

// PositionResponse is the read model for one (collection, item) position.
// Monetary values are decimal wei strings; ratios are basis points.
type PositionResponse struct {
	Collection   string `json:"collection"`
	ItemID       uint64 `json:"item_id"`
	Owner        string `json:"owner,omitempty"`
	Borrower     string `json:"borrower,omitempty"`
	Principal    string `json:"principal"`
	TotalDebt    string `json:"total_debt"`
	MaxBorrow    string `json:"max_borrow"`
	FloorPrice   string `json:"floor_price"`
	UtilityScore uint64 `json:"utility_score"`
	CurrentLTVBp string `json:"current_ltv_bp"`
	ThresholdBp  uint64 `json:"liquidation_threshold_bp"`
	LoanActive   bool   `json:"loan_active"`
	Liquidatable bool   `json:"liquidatable"`
}

// LoanResponse is returned from the mutating loan endpoints. AccruedInterest
// is interest already owed that no longer accrues, carried separately from
// principal under the non-compounding top-up policy.
type LoanResponse struct {
	Collection       string `json:"collection"`
	ItemID           uint64 `json:"item_id"`
	Borrower         string `json:"borrower"`
	Principal        string `json:"principal"`
	AccruedInterest  string `json:"accrued_interest"`
	AccrualTimestamp int64  `json:"accrual_timestamp"`
	IsActive         bool   `json:"is_active"`
}

// RepayResponse reports the settled debt and any refund.
type RepayResponse struct {
	Collection string `json:"collection"`
	ItemID     uint64 `json:"item_id"`
	DebtPaid   string `json:"debt_paid"`
	Refund     string `json:"refund"`
}

// LiquidationResponse reports the outcome of a seizure.
type LiquidationResponse struct {
	Collection string `json:"collection"`
	ItemID     uint64 `json:"item_id"`
	NewOwner   string `json:"new_owner"`
	SalePrice  string `json:"sale_price"`
	DebtClosed string `json:"debt_closed"`
	Settlement string `json:"settlement"`
}
