package vault

import "errors"

var (
	ErrNilState                   = errors.New("vault engine: state not configured")
	ErrInvalidAmount              = errors.New("vault engine: amount must be positive")
	ErrInvalidRiskTier            = errors.New("vault engine: risk tier out of range")
	ErrCollectionNotSupported     = errors.New("vault engine: collection not supported")
	ErrAlreadySupported           = errors.New("vault engine: collection already supported")
	ErrUnknownCollection          = errors.New("vault engine: unknown collection")
	ErrCollectionHasActiveLoans   = errors.New("vault engine: collection has active loans")
	ErrAssetAlreadyDeposited      = errors.New("vault engine: asset already deposited")
	ErrNoDeposit                  = errors.New("vault engine: no deposit for asset")
	ErrNotYourAsset               = errors.New("vault engine: caller does not own asset")
	ErrActiveLoanExists           = errors.New("vault engine: active loan exists")
	ErrNoActiveLoan               = errors.New("vault engine: no active loan")
	ErrExceedsMaxLTV              = errors.New("vault engine: exceeds max LTV")
	ErrInsufficientPayment        = errors.New("vault engine: insufficient payment")
	ErrNotLiquidatable            = errors.New("vault engine: position not liquidatable")
	ErrInsufficientVaultLiquidity = errors.New("vault engine: insufficient vault liquidity")
	ErrInsufficientBalance        = errors.New("vault engine: insufficient balance")
)
