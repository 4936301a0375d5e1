package opsapi

import (
	"errors"

	"github.com/gofiber/fiber/v2"

	"github.com/shoreline-pay/ledgercore/internal/platform/authn"
	"github.com/shoreline-pay/ledgercore/internal/platform/httpx"
	"github.com/shoreline-pay/ledgercore/internal/platform/ledgererr"
)

type tenantContextKey string

const tenantLocalsKey tenantContextKey = "tenantId"

// RequireAuth validates the request's bearer token with verifier and places
// the authenticated tenant in fiber locals; handlers read the tenant from
// there rather than from the request body (see moneyRequest's comment).
func RequireAuth(verifier *authn.Verifier) fiber.Handler {
	return func(c *fiber.Ctx) error {
		claims, err := verifier.Verify(c.Get(fiber.HeaderAuthorization))
		if err != nil {
			if errors.Is(err, authn.ErrMissingToken) {
				return httpx.WithError(c, ledgererr.Translate(ledgererr.ErrUnauthorized, "Request"))
			}

			return httpx.WithError(c, err)
		}

		c.Locals(string(tenantLocalsKey), claims.TenantID)

		return c.Next()
	}
}

func tenantID(c *fiber.Ctx) string {
	if v, ok := c.Locals(string(tenantLocalsKey)).(string); ok {
		return v
	}

	return ""
}
