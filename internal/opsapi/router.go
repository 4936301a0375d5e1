package opsapi

import (
	"github.com/gofiber/fiber/v2"

	"github.com/shoreline-pay/ledgercore/internal/platform/authn"
)

// Mount registers every Operations API route under app, guarded by
// verifier's bearer-token check.
func Mount(app *fiber.App, h *Handler, verifier *authn.Verifier) {
	app.Get("/healthz", func(c *fiber.Ctx) error { return c.SendString("healthy") })

	v1 := app.Group("/v1", RequireAuth(verifier))

	v1.Post("/deposits", h.CreateDeposit)
	v1.Post("/withdrawals", h.CreateWithdrawal)
	v1.Post("/transfers", h.CreateTransfer)

	v1.Get("/wallets/:walletId", h.WalletBalance)
	v1.Post("/wallets/bulk", h.BulkWalletBalances)
	v1.Get("/users/:userId/balances", h.UserBalances)
}
