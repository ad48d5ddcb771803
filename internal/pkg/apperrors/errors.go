package apperrors

import (
	"fmt"
	"net/http"
)

type ErrorType string

const (
	ErrUnauthorized        ErrorType = "UNAUTHORIZED"
	ErrCollectionSupport   ErrorType = "COLLECTION_NOT_SUPPORTED"
	ErrAlreadySupported    ErrorType = "ALREADY_SUPPORTED"
	ErrUnknownCollection   ErrorType = "UNKNOWN_COLLECTION"
	ErrCollectionHasLoans  ErrorType = "COLLECTION_HAS_ACTIVE_LOANS"
	ErrNotYourAsset        ErrorType = "NOT_YOUR_ASSET"
	ErrActiveLoanExists    ErrorType = "ACTIVE_LOAN_EXISTS"
	ErrExceedsMaxLTV       ErrorType = "EXCEEDS_MAX_LTV"
	ErrInsufficientPayment ErrorType = "INSUFFICIENT_PAYMENT"
	ErrNotLiquidatable     ErrorType = "NOT_LIQUIDATABLE"
	ErrNoActiveLoan        ErrorType = "NO_ACTIVE_LOAN"
	ErrVaultLiquidity      ErrorType = "INSUFFICIENT_VAULT_LIQUIDITY"
	ErrInvalidRequest      ErrorType = "INVALID_REQUEST"
	ErrNotFound            ErrorType = "NOT_FOUND"
	ErrReadOnly            ErrorType = "READ_ONLY_MODE"
	ErrInternal            ErrorType = "INTERNAL_ERROR"
)

// AppError is the standard error struct for the application. Type is the
// stable machine-matchable code callers and tests assert on.
type AppError struct {
	Type       ErrorType `json:"code"`
	Message    string    `json:"message"`
	Suggestion string    `json:"suggestion,omitempty"`
	HTTPStatus int       `json:"-"`
	Cause      error     `json:"-"`
}

func (e *AppError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Cause)
	}
	return e.Message
}

func New(errType ErrorType, msg string, cause error) *AppError {
	return &AppError{
		Type:       errType,
		Message:    msg,
		Cause:      cause,
		HTTPStatus: mapTypeToStatus(errType),
		Suggestion: mapTypeToSuggestion(errType),
	}
}

func NewInvalidRequest(msg string) *AppError {
	return New(ErrInvalidRequest, msg, nil)
}

func Wrap(err error) *AppError {
	if err == nil {
		return nil
	}
	if appErr, ok := err.(*AppError); ok {
		return appErr
	}
	return New(ErrInternal, err.Error(), err)
}

func mapTypeToStatus(t ErrorType) int {
	switch t {
	case ErrUnauthorized, ErrNotYourAsset:
		return http.StatusForbidden
	case ErrCollectionSupport, ErrAlreadySupported, ErrExceedsMaxLTV,
		ErrInsufficientPayment, ErrInvalidRequest:
		return http.StatusBadRequest
	case ErrActiveLoanExists, ErrNotLiquidatable, ErrNoActiveLoan, ErrCollectionHasLoans:
		return http.StatusConflict
	case ErrUnknownCollection, ErrNotFound:
		return http.StatusNotFound
	case ErrVaultLiquidity, ErrReadOnly:
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

func mapTypeToSuggestion(t ErrorType) string {
	switch t {
	case ErrExceedsMaxLTV:
		return "Request an amount at or below the position's max borrow."
	case ErrInsufficientPayment:
		return "Fetch current total debt and repay at least that amount."
	case ErrActiveLoanExists:
		return "Repay the loan in full before withdrawing the collateral."
	case ErrNotLiquidatable:
		return "Position LTV is below the liquidation threshold."
	case ErrVaultLiquidity:
		return "Retry once the vault treasury has been funded."
	case ErrUnauthorized:
		return "Check API keys."
	default:
		return ""
	}
}
