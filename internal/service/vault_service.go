package service

import (
	"context"
	"errors"
	"math/big"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/shopspring/decimal"

	"github.com/mosaical/nftvault/internal/model"
	"github.com/mosaical/nftvault/internal/oracle"
	"github.com/mosaical/nftvault/internal/pkg/apperrors"
	"github.com/mosaical/nftvault/internal/pkg/metrics"
	"github.com/mosaical/nftvault/internal/vault"
)

// EventPublisher receives vault state transitions for fan-out to stream
// subscribers. Publish must not block.
type EventPublisher interface {
	Publish(event model.VaultEvent)
}

// VaultService sits between the HTTP layer and the vault engine: it parses
// wire amounts, translates engine errors, emits metrics and events, and
// runs operator risk caps before a borrow reaches the engine.
type VaultService struct {
	engine *vault.Engine
	prices *oracle.Feed
	events EventPublisher
	risk   *RiskEngine
}

func NewVaultService(engine *vault.Engine, prices *oracle.Feed, events EventPublisher, risk *RiskEngine) *VaultService {
	return &VaultService{
		engine: engine,
		prices: prices,
		events: events,
		risk:   risk,
	}
}

func (s *VaultService) Engine() *vault.Engine { return s.engine }

// ParseWeiAmount parses a decimal wei string. Scientific notation is
// accepted ("2e18"); fractional wei is not.
func ParseWeiAmount(raw string) (*big.Int, *apperrors.AppError) {
	dec, err := decimal.NewFromString(raw)
	if err != nil {
		return nil, apperrors.NewInvalidRequest("amount is not a valid decimal number")
	}
	if !dec.IsInteger() {
		return nil, apperrors.NewInvalidRequest("amount must be a whole number of wei")
	}
	if dec.Sign() <= 0 {
		return nil, apperrors.NewInvalidRequest("amount must be positive")
	}
	return dec.BigInt(), nil
}

func parseCollection(raw string) (common.Address, *apperrors.AppError) {
	if !common.IsHexAddress(raw) {
		return common.Address{}, apperrors.NewInvalidRequest("collection must be a 20-byte hex address")
	}
	return common.HexToAddress(raw), nil
}

func (s *VaultService) Deposit(ctx context.Context, account *model.Account, req *model.DepositRequest) (*model.PositionResponse, error) {
	collection, appErr := parseCollection(req.Collection)
	if appErr != nil {
		return nil, appErr
	}
	_, err := s.engine.Deposit(account.Address, collection, req.ItemID)
	if err != nil {
		metrics.VaultOpsTotal.WithLabelValues("deposit", "error").Inc()
		return nil, TranslateVaultError(err)
	}
	metrics.VaultOpsTotal.WithLabelValues("deposit", "ok").Inc()
	s.publish(model.EventDeposit, collection, req.ItemID, account.Address, nil)
	return s.position(collection, req.ItemID)
}

func (s *VaultService) Withdraw(ctx context.Context, account *model.Account, req *model.WithdrawRequest) error {
	collection, appErr := parseCollection(req.Collection)
	if appErr != nil {
		return appErr
	}
	if err := s.engine.Withdraw(account.Address, collection, req.ItemID); err != nil {
		metrics.VaultOpsTotal.WithLabelValues("withdraw", "error").Inc()
		return TranslateVaultError(err)
	}
	metrics.VaultOpsTotal.WithLabelValues("withdraw", "ok").Inc()
	s.publish(model.EventWithdraw, collection, req.ItemID, account.Address, nil)
	return nil
}

func (s *VaultService) Borrow(ctx context.Context, account *model.Account, req *model.BorrowRequest) (*model.LoanResponse, error) {
	collection, appErr := parseCollection(req.Collection)
	if appErr != nil {
		return nil, appErr
	}
	amount, appErr := ParseWeiAmount(req.Amount)
	if appErr != nil {
		return nil, appErr
	}

	if s.risk != nil {
		if err := s.risk.CheckBorrow(ctx, account, amount); err != nil {
			metrics.VaultOpsTotal.WithLabelValues("borrow", "risk_reject").Inc()
			return nil, apperrors.New(apperrors.ErrInvalidRequest, err.Error(), err)
		}
	}

	loan, err := s.engine.Borrow(account.Address, collection, req.ItemID, amount)
	if err != nil {
		metrics.VaultOpsTotal.WithLabelValues("borrow", "error").Inc()
		translated := TranslateVaultError(err)
		metrics.LoanRejects.WithLabelValues(string(translated.Type)).Inc()
		return nil, translated
	}
	metrics.VaultOpsTotal.WithLabelValues("borrow", "ok").Inc()
	metrics.DebtTokensMinted.Add(weiToFloat(amount))
	if s.risk != nil {
		s.risk.PostBorrowHook(ctx, account, amount)
	}
	s.publish(model.EventBorrow, collection, req.ItemID, account.Address, amount)

	accrued := "0"
	if loan.AccruedInterest != nil {
		accrued = loan.AccruedInterest.String()
	}
	return &model.LoanResponse{
		Collection:       collection.Hex(),
		ItemID:           req.ItemID,
		Borrower:         loan.Borrower.Hex(),
		Principal:        loan.Principal.String(),
		AccruedInterest:  accrued,
		AccrualTimestamp: loan.AccrualTimestamp,
		IsActive:         loan.IsActive,
	}, nil
}

func (s *VaultService) Repay(ctx context.Context, account *model.Account, req *model.RepayRequest) (*model.RepayResponse, error) {
	collection, appErr := parseCollection(req.Collection)
	if appErr != nil {
		return nil, appErr
	}
	payment, appErr := ParseWeiAmount(req.Payment)
	if appErr != nil {
		return nil, appErr
	}

	debtPaid, refund, err := s.engine.Repay(account.Address, collection, req.ItemID, payment)
	if err != nil {
		metrics.VaultOpsTotal.WithLabelValues("repay", "error").Inc()
		return nil, TranslateVaultError(err)
	}
	metrics.VaultOpsTotal.WithLabelValues("repay", "ok").Inc()
	s.publish(model.EventRepay, collection, req.ItemID, account.Address, debtPaid)

	return &model.RepayResponse{
		Collection: collection.Hex(),
		ItemID:     req.ItemID,
		DebtPaid:   debtPaid.String(),
		Refund:     refund.String(),
	}, nil
}

func (s *VaultService) Liquidate(ctx context.Context, account *model.Account, req *model.LiquidateRequest) (*model.LiquidationResponse, error) {
	collection, appErr := parseCollection(req.Collection)
	if appErr != nil {
		return nil, appErr
	}

	result, err := s.engine.Liquidate(account.Address, collection, req.ItemID)
	if err != nil {
		metrics.VaultOpsTotal.WithLabelValues("liquidate", "error").Inc()
		return nil, TranslateVaultError(err)
	}
	metrics.VaultOpsTotal.WithLabelValues("liquidate", "ok").Inc()
	metrics.LiquidationsTotal.Inc()
	s.publish(model.EventLiquidation, collection, req.ItemID, account.Address, result.SalePrice)

	return &model.LiquidationResponse{
		Collection: collection.Hex(),
		ItemID:     req.ItemID,
		NewOwner:   result.NewOwner.Hex(),
		SalePrice:  result.SalePrice.String(),
		DebtClosed: result.DebtClosed.String(),
		Settlement: string(result.Settlement),
	}, nil
}

func (s *VaultService) Position(ctx context.Context, collectionHex string, itemID uint64) (*model.PositionResponse, error) {
	collection, appErr := parseCollection(collectionHex)
	if appErr != nil {
		return nil, appErr
	}
	return s.position(collection, itemID)
}

func (s *VaultService) position(collection common.Address, itemID uint64) (*model.PositionResponse, error) {
	cfg, err := s.engine.Collection(collection)
	if err != nil {
		return nil, TranslateVaultError(err)
	}
	dep, err := s.engine.DepositOf(collection, itemID)
	if err != nil {
		return nil, TranslateVaultError(err)
	}
	loan, err := s.engine.LoanOf(collection, itemID)
	if err != nil {
		return nil, TranslateVaultError(err)
	}
	maxBorrow, err := s.engine.MaxBorrowAmount(collection, itemID)
	if err != nil {
		return nil, TranslateVaultError(err)
	}
	totalDebt, err := s.engine.TotalDebt(collection, itemID)
	if err != nil {
		return nil, TranslateVaultError(err)
	}
	ltv, err := s.engine.CurrentLTVBp(collection, itemID)
	if err != nil {
		return nil, TranslateVaultError(err)
	}

	resp := &model.PositionResponse{
		Collection:   collection.Hex(),
		ItemID:       itemID,
		Principal:    "0",
		TotalDebt:    totalDebt.String(),
		MaxBorrow:    maxBorrow.String(),
		FloorPrice:   s.prices.FloorPrice(collection).String(),
		UtilityScore: s.prices.UtilityScore(collection, itemID),
		CurrentLTVBp: ltv.String(),
		ThresholdBp:  cfg.LiquidationThresholdBp,
		Liquidatable: ltv.Cmp(new(big.Int).SetUint64(cfg.LiquidationThresholdBp)) >= 0 && totalDebt.Sign() > 0,
	}
	if dep != nil {
		resp.Owner = dep.Owner.Hex()
	}
	if loan != nil {
		resp.Borrower = loan.Borrower.Hex()
		resp.Principal = loan.Principal.String()
		resp.LoanActive = loan.IsActive
	}
	return resp, nil
}

func (s *VaultService) Collections(ctx context.Context) ([]*model.CollectionConfig, error) {
	cols, err := s.engine.Collections()
	if err != nil {
		return nil, TranslateVaultError(err)
	}
	return cols, nil
}

// AccountSummary returns an account's native balance plus today's borrow
// activity.
func (s *VaultService) AccountSummary(ctx context.Context, account *model.Account) (map[string]interface{}, error) {
	balance, err := s.engine.Balance(account.Address)
	if err != nil {
		return nil, TranslateVaultError(err)
	}
	summary := map[string]interface{}{
		"address": account.Address.Hex(),
		"name":    account.Name,
		"balance": balance.String(),
	}
	if s.risk != nil && s.risk.repo != nil {
		loans, volume, err := s.risk.repo.GetDailyUsage(ctx, account.Address.Hex())
		if err == nil {
			summary["daily_loans"] = loans
			summary["daily_volume"] = volume
		}
	}
	return summary, nil
}

func (s *VaultService) publish(eventType string, collection common.Address, itemID uint64, account common.Address, amount *big.Int) {
	if s.events == nil {
		return
	}
	event := model.VaultEvent{
		Type:       eventType,
		Collection: collection.Hex(),
		ItemID:     itemID,
		Account:    account.Hex(),
		CreatedAt:  time.Now().UTC(),
	}
	if amount != nil {
		event.Amount = amount.String()
	}
	s.events.Publish(event)
}

// weiToFloat converts wei to whole native units for metrics and usage
// counters, where float precision is acceptable.
func weiToFloat(amount *big.Int) float64 {
	return decimal.NewFromBigInt(amount, -18).InexactFloat64()
}

// TranslateVaultError maps engine sentinels onto the wire error model.
func TranslateVaultError(err error) *apperrors.AppError {
	switch {
	case errors.Is(err, vault.ErrCollectionNotSupported):
		return apperrors.New(apperrors.ErrCollectionSupport, "collection not supported", err)
	case errors.Is(err, vault.ErrAlreadySupported):
		return apperrors.New(apperrors.ErrAlreadySupported, "collection already supported", err)
	case errors.Is(err, vault.ErrUnknownCollection):
		return apperrors.New(apperrors.ErrUnknownCollection, "unknown collection", err)
	case errors.Is(err, vault.ErrCollectionHasActiveLoans):
		return apperrors.New(apperrors.ErrCollectionHasLoans, "collection has active loans", err)
	case errors.Is(err, vault.ErrInvalidRiskTier):
		return apperrors.NewInvalidRequest("risk tier out of range")
	case errors.Is(err, vault.ErrInvalidAmount):
		return apperrors.NewInvalidRequest("amount must be positive")
	case errors.Is(err, vault.ErrAssetAlreadyDeposited):
		return apperrors.New(apperrors.ErrInvalidRequest, "asset already deposited", err)
	case errors.Is(err, vault.ErrNoDeposit):
		return apperrors.New(apperrors.ErrNotFound, "no deposit for this asset", err)
	case errors.Is(err, vault.ErrNotYourAsset):
		return apperrors.New(apperrors.ErrNotYourAsset, "not your NFT", err)
	case errors.Is(err, vault.ErrActiveLoanExists):
		return apperrors.New(apperrors.ErrActiveLoanExists, "active loan exists", err)
	case errors.Is(err, vault.ErrNoActiveLoan):
		return apperrors.New(apperrors.ErrNoActiveLoan, "no active loan", err)
	case errors.Is(err, vault.ErrExceedsMaxLTV):
		return apperrors.New(apperrors.ErrExceedsMaxLTV, "exceeds max LTV", err)
	case errors.Is(err, vault.ErrInsufficientPayment):
		return apperrors.New(apperrors.ErrInsufficientPayment, "insufficient payment", err)
	case errors.Is(err, vault.ErrNotLiquidatable):
		return apperrors.New(apperrors.ErrNotLiquidatable, "not liquidatable", err)
	case errors.Is(err, vault.ErrInsufficientVaultLiquidity):
		return apperrors.New(apperrors.ErrVaultLiquidity, "insufficient vault liquidity", err)
	case errors.Is(err, vault.ErrInsufficientBalance):
		return apperrors.New(apperrors.ErrInsufficientPayment, "insufficient account balance", err)
	default:
		return apperrors.Wrap(err)
	}
}
