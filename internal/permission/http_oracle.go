package permission

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"github.com/sony/gobreaker"
)

// HTTPOracle calls an external capability service over HTTP, guarded by a
// circuit breaker so a flaky permission service degrades OPS's latency
// instead of cascading into every saga step (same discipline as
// storage.postgres.Executor, applied to an outbound dependency instead of a
// database).
type HTTPOracle struct {
	baseURL string
	client  *http.Client
	breaker *gobreaker.CircuitBreaker
}

// NewHTTPOracle builds an HTTPOracle against baseURL (e.g.
// "https://permissions.internal").
func NewHTTPOracle(baseURL string) *HTTPOracle {
	st := gobreaker.Settings{
		Name:        "permission-oracle",
		MaxRequests: 1,
		Interval:    30 * time.Second,
		Timeout:     15 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.Requests >= 10 && float64(counts.TotalFailures)/float64(counts.Requests) >= 0.5
		},
	}

	return &HTTPOracle{
		baseURL: baseURL,
		client:  &http.Client{Timeout: 2 * time.Second},
		breaker: gobreaker.NewCircuitBreaker(st),
	}
}

type capabilityResponse struct {
	AllowNegative bool   `json:"allowNegative"`
	CreditLimit   *int64 `json:"creditLimit"`
}

// Lookup implements Oracle.
func (o *HTTPOracle) Lookup(ctx context.Context, tenantID, userID string) (Capability, error) {
	result, err := o.breaker.Execute(func() (any, error) {
		u := fmt.Sprintf("%s/v1/tenants/%s/users/%s/capability", o.baseURL, url.PathEscape(tenantID), url.PathEscape(userID))

		req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
		if err != nil {
			return nil, err
		}

		resp, err := o.client.Do(req)
		if err != nil {
			return nil, err
		}
		defer resp.Body.Close()

		if resp.StatusCode != http.StatusOK {
			return nil, fmt.Errorf("permission: unexpected status %d", resp.StatusCode)
		}

		var body capabilityResponse
		if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
			return nil, err
		}

		return body, nil
	})
	if err != nil {
		return Capability{}, err
	}

	body := result.(capabilityResponse)

	return Capability{AllowNegative: body.AllowNegative, CreditLimit: body.CreditLimit}, nil
}
