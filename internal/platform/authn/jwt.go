// Package authn validates bearer tokens at the HTTP boundary. It never
// decides business capabilities (e.g. allowNegative) itself — that is the
// permission.Oracle's job; authn only establishes who the caller is.
package authn

import (
	"errors"
	"fmt"
	"strings"

	"github.com/golang-jwt/jwt/v5"

	"github.com/shoreline-pay/ledgercore/internal/platform/ledgererr"
)

// Claims carries the identity fields the ledger trusts from a validated
// token: the tenant and the authenticated subject (user or service).
type Claims struct {
	jwt.RegisteredClaims
	TenantID string `json:"tenantId"`
}

// Verifier validates bearer tokens against a fixed HMAC secret, without
// depending on a sibling auth service's JWK endpoint.
type Verifier struct {
	secret []byte
}

// NewVerifier builds a Verifier over the given shared secret.
func NewVerifier(secret string) *Verifier {
	return &Verifier{secret: []byte(secret)}
}

// ErrMissingToken is returned when the Authorization header is absent or malformed.
var ErrMissingToken = errors.New("authn: missing bearer token")

// Verify extracts and validates the bearer token from an Authorization
// header value, returning the claims on success.
func (v *Verifier) Verify(authorizationHeader string) (*Claims, error) {
	token := strings.TrimPrefix(authorizationHeader, "Bearer ")
	if token == authorizationHeader || token == "" {
		return nil, ErrMissingToken
	}

	claims := &Claims{}

	parsed, err := jwt.ParseWithClaims(token, claims, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method %v", t.Header["alg"])
		}

		return v.secret, nil
	})
	if err != nil || !parsed.Valid {
		return nil, ledgererr.UnauthorizedError{
			Code:    ledgererr.ErrUnauthorized.Error(),
			Title:   "Invalid Token",
			Message: "The provided bearer token is expired, invalid or malformed.",
		}
	}

	return claims, nil
}
