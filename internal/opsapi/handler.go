// Package opsapi is the outer HTTP surface over OPS and WAL: the three
// money-movement entry points and the balance reads spec §6's "Operations
// API" names. It owns no business logic of its own — every handler decodes
// and validates a request, calls into ops.UseCase/wallet.UseCase, and maps
// the result or error onto the wire shape.
package opsapi

import (
	"github.com/gofiber/fiber/v2"
	validator "gopkg.in/go-playground/validator.v9"

	"github.com/shoreline-pay/ledgercore/internal/ops"
	"github.com/shoreline-pay/ledgercore/internal/platform/httpx"
	"github.com/shoreline-pay/ledgercore/internal/platform/mlog"
	"github.com/shoreline-pay/ledgercore/internal/wallet"
)

// Handler wires the fiber routes to OPS and WAL.
type Handler struct {
	Ops      *ops.UseCase
	Wallet   *wallet.UseCase
	validate *validator.Validate
}

// NewHandler builds a Handler over its collaborators.
func NewHandler(opsUC *ops.UseCase, walletUC *wallet.UseCase) *Handler {
	return &Handler{Ops: opsUC, Wallet: walletUC, validate: validator.New()}
}

func (h *Handler) decode(c *fiber.Ctx, dst any) error {
	if err := c.BodyParser(dst); err != nil {
		return httpx.ValidationFailed("Request", err.Error())
	}

	if err := h.validate.Struct(dst); err != nil {
		return httpx.ValidationFailed("Request", err.Error())
	}

	return nil
}

// CreateDeposit handles POST /v1/deposits (spec §6).
func (h *Handler) CreateDeposit(c *fiber.Ctx) error {
	var req moneyRequest
	if err := h.decode(c, &req); err != nil {
		return httpx.WithError(c, err)
	}

	result, err := h.Ops.CreateDeposit(c.UserContext(), toOpsRequest(tenantID(c), req))
	if err != nil {
		return httpx.WithError(c, err)
	}

	return httpx.Created(c, toResultResponse(result))
}

// CreateWithdrawal handles POST /v1/withdrawals (spec §6).
func (h *Handler) CreateWithdrawal(c *fiber.Ctx) error {
	var req moneyRequest
	if err := h.decode(c, &req); err != nil {
		return httpx.WithError(c, err)
	}

	result, err := h.Ops.CreateWithdrawal(c.UserContext(), toOpsRequest(tenantID(c), req))
	if err != nil {
		return httpx.WithError(c, err)
	}

	return httpx.Created(c, toResultResponse(result))
}

// CreateTransfer handles POST /v1/transfers (spec §6).
func (h *Handler) CreateTransfer(c *fiber.Ctx) error {
	var req moneyRequest
	if err := h.decode(c, &req); err != nil {
		return httpx.WithError(c, err)
	}

	result, err := h.Ops.CreateTransfer(c.UserContext(), toOpsRequest(tenantID(c), req))
	if err != nil {
		return httpx.WithError(c, err)
	}

	return httpx.Created(c, toResultResponse(result))
}

// WalletBalance handles GET /v1/wallets/:walletId (spec §6 "walletBalance").
func (h *Handler) WalletBalance(c *fiber.Ctx) error {
	logger := mlog.NewLoggerFromContext(c.UserContext())

	w, err := h.Wallet.ReadBalance(c.UserContext(), c.Params("walletId"))
	if err != nil {
		logger.Warnf("opsapi: wallet balance read failed: %v", err)
		return httpx.WithError(c, err)
	}

	return httpx.OK(c, toWalletBalanceResponse(*w))
}

// UserBalances handles GET /v1/users/:userId/balances (spec §6
// "userBalances").
func (h *Handler) UserBalances(c *fiber.Ctx) error {
	wallets, err := h.Wallet.UserBalances(c.UserContext(), tenantID(c), c.Params("userId"))
	if err != nil {
		return httpx.WithError(c, err)
	}

	out := make([]walletBalanceResponse, 0, len(wallets))
	for _, w := range wallets {
		out = append(out, toWalletBalanceResponse(w))
	}

	return httpx.OK(c, out)
}

// BulkWalletBalances handles POST /v1/wallets/bulk (spec §6
// "bulkWalletBalances").
func (h *Handler) BulkWalletBalances(c *fiber.Ctx) error {
	var req bulkWalletBalancesRequest
	if err := h.decode(c, &req); err != nil {
		return httpx.WithError(c, err)
	}

	wallets, err := h.Wallet.BulkReadBalances(c.UserContext(), req.WalletIDs)
	if err != nil {
		return httpx.WithError(c, err)
	}

	out := make([]walletBalanceResponse, 0, len(wallets))
	for _, w := range wallets {
		out = append(out, toWalletBalanceResponse(w))
	}

	return httpx.OK(c, out)
}

func toOpsRequest(tenant string, req moneyRequest) ops.Request {
	return ops.Request{
		TenantID:    tenant,
		FromUserID:  req.FromUserID,
		ToUserID:    req.ToUserID,
		Amount:      req.Amount,
		Currency:    req.Currency,
		Method:      req.Method,
		ExternalRef: req.ExternalRef,
		Metadata:    req.Metadata,
	}
}

func toResultResponse(r *ops.Result) resultResponse {
	out := resultResponse{
		Success:         r.Success,
		DebitTxID:       r.DebitTxID,
		CreditTxID:      r.CreditTxID,
		SagaID:          r.SagaID,
		Errors:          r.Errors,
		ExecutionTimeMs: r.ExecutionTimeMs,
	}

	if r.Transfer != nil {
		out.Transfer = &transferResponse{
			ID:          r.Transfer.ID,
			Kind:        string(r.Transfer.Kind),
			FromUserID:  r.Transfer.FromUserID,
			ToUserID:    r.Transfer.ToUserID,
			Amount:      r.Transfer.Amount,
			FeeAmount:   r.Transfer.FeeAmount,
			Currency:    r.Transfer.Currency,
			Status:      string(r.Transfer.Status),
			ExternalRef: r.Transfer.ExternalRef,
		}
	}

	return out
}

func toWalletBalanceResponse(w wallet.Wallet) walletBalanceResponse {
	return walletBalanceResponse{
		WalletID:            w.ID,
		UserID:              w.UserID,
		Currency:            w.Currency,
		Balance:             w.Balance,
		BonusBalance:        w.BonusBalance,
		AvailableBalance:    w.AvailableBalance(),
		LifetimeDeposits:    w.LifetimeDeposits,
		LifetimeWithdrawals: w.LifetimeWithdrawals,
		LifetimeFees:        w.LifetimeFees,
		Status:              string(w.Status),
	}
}
