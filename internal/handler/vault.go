package handler

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/mosaical/nftvault/internal/middleware"
	"github.com/mosaical/nftvault/internal/model"
	"github.com/mosaical/nftvault/internal/pkg/apperrors"
	"github.com/mosaical/nftvault/internal/service"
)

type VaultHandler struct {
	svc *service.VaultService
}

func NewVaultHandler(svc *service.VaultService) *VaultHandler {
	return &VaultHandler{svc: svc}
}

func (h *VaultHandler) Deposit(c *gin.Context) {
	account, ok := callerAccount(c)
	if !ok {
		return
	}

	var req model.DepositRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.Error(apperrors.NewInvalidRequest(err.Error()))
		return
	}

	resp, err := h.svc.Deposit(c.Request.Context(), account, &req)
	if err != nil {
		middleware.AddAuditContext(c, "error", err.Error())
		c.Error(err)
		return
	}

	middleware.AddAuditContext(c, "collection", req.Collection)
	middleware.AddAuditContext(c, "item_id", req.ItemID)

	c.JSON(http.StatusCreated, resp)
}

func (h *VaultHandler) Withdraw(c *gin.Context) {
	account, ok := callerAccount(c)
	if !ok {
		return
	}

	var req model.WithdrawRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.Error(apperrors.NewInvalidRequest(err.Error()))
		return
	}

	if err := h.svc.Withdraw(c.Request.Context(), account, &req); err != nil {
		middleware.AddAuditContext(c, "error", err.Error())
		c.Error(err)
		return
	}

	middleware.AddAuditContext(c, "collection", req.Collection)
	middleware.AddAuditContext(c, "item_id", req.ItemID)

	c.JSON(http.StatusOK, gin.H{"status": "withdrawn"})
}

func (h *VaultHandler) Borrow(c *gin.Context) {
	account, ok := callerAccount(c)
	if !ok {
		return
	}

	var req model.BorrowRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.Error(apperrors.NewInvalidRequest(err.Error()))
		return
	}

	resp, err := h.svc.Borrow(c.Request.Context(), account, &req)
	if err != nil {
		middleware.AddAuditContext(c, "error", err.Error())
		c.Error(err)
		return
	}

	middleware.AddAuditContext(c, "collection", req.Collection)
	middleware.AddAuditContext(c, "item_id", req.ItemID)
	middleware.AddAuditContext(c, "amount", req.Amount)

	c.JSON(http.StatusCreated, resp)
}

func (h *VaultHandler) Repay(c *gin.Context) {
	account, ok := callerAccount(c)
	if !ok {
		return
	}

	var req model.RepayRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.Error(apperrors.NewInvalidRequest(err.Error()))
		return
	}

	resp, err := h.svc.Repay(c.Request.Context(), account, &req)
	if err != nil {
		middleware.AddAuditContext(c, "error", err.Error())
		c.Error(err)
		return
	}

	middleware.AddAuditContext(c, "collection", req.Collection)
	middleware.AddAuditContext(c, "item_id", req.ItemID)
	middleware.AddAuditContext(c, "debt_paid", resp.DebtPaid)

	c.JSON(http.StatusOK, resp)
}

func (h *VaultHandler) Liquidate(c *gin.Context) {
	account, ok := callerAccount(c)
	if !ok {
		return
	}

	var req model.LiquidateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.Error(apperrors.NewInvalidRequest(err.Error()))
		return
	}

	resp, err := h.svc.Liquidate(c.Request.Context(), account, &req)
	if err != nil {
		middleware.AddAuditContext(c, "error", err.Error())
		c.Error(err)
		return
	}

	middleware.AddAuditContext(c, "collection", req.Collection)
	middleware.AddAuditContext(c, "item_id", req.ItemID)
	middleware.AddAuditContext(c, "sale_price", resp.SalePrice)

	c.JSON(http.StatusOK, resp)
}

func (h *VaultHandler) Position(c *gin.Context) {
	collection := c.Param("collection")
	itemID, err := strconv.ParseUint(c.Param("item"), 10, 64)
	if err != nil {
		c.Error(apperrors.NewInvalidRequest("item must be an unsigned integer"))
		return
	}

	resp, svcErr := h.svc.Position(c.Request.Context(), collection, itemID)
	if svcErr != nil {
		c.Error(svcErr)
		return
	}
	c.JSON(http.StatusOK, resp)
}

func (h *VaultHandler) Collections(c *gin.Context) {
	cols, err := h.svc.Collections(c.Request.Context())
	if err != nil {
		c.Error(err)
		return
	}
	c.JSON(http.StatusOK, cols)
}

func (h *VaultHandler) AccountSummary(c *gin.Context) {
	account, ok := callerAccount(c)
	if !ok {
		return
	}
	summary, err := h.svc.AccountSummary(c.Request.Context(), account)
	if err != nil {
		c.Error(err)
		return
	}
	c.JSON(http.StatusOK, summary)
}

// callerAccount pulls the authenticated account set by AuthMiddleware.
func callerAccount(c *gin.Context) (*model.Account, bool) {
	accountVal, exists := c.Get(middleware.ContextAccountKey)
	if !exists {
		c.Error(apperrors.New(apperrors.ErrUnauthorized, "unauthorized: missing account context", nil))
		return nil, false
	}
	return accountVal.(*model.Account), true
}
