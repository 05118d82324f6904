package platform

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/evoplatform/evogate/internal/backoff"
	"github.com/evoplatform/evogate/internal/logger"
	"github.com/evoplatform/evogate/internal/logger/tag"
)

// RPC endpoint paths on the platform API gateway.
const (
	licenseValidatePath      = "/api/licenses/validate"
	awsCredentialsListPath   = "/api/aws/credentials/list"
	azureCredentialsListPath = "/api/azure/credentials/list"
	demoVerifyPath           = "/api/demo/verify"
)

const (
	defaultTimeout       = 30 * time.Second
	retryInitialInterval = 500 * time.Millisecond
)

// Client is an HTTP client for the EVO Platform RPC endpoints. All calls
// are made on behalf of a session and carry its bearer token.
type Client struct {
	client    *resty.Client
	retryMax  int
	durations prometheus.ObserverVec
}

// ClientOption is a functional option for configuring the Client.
type ClientOption func(*Client)

// WithTimeout sets the per-request timeout.
func WithTimeout(d time.Duration) ClientOption {
	return func(c *Client) {
		c.client.SetTimeout(d)
	}
}

// WithRetryMax bounds retries of transient failures.
func WithRetryMax(n int) ClientOption {
	return func(c *Client) {
		c.retryMax = n
	}
}

// WithDurationMetric records per-endpoint RPC durations on the given
// observer. The observer must carry an "endpoint" label.
func WithDurationMetric(obs prometheus.ObserverVec) ClientOption {
	return func(c *Client) {
		c.durations = obs
	}
}

// NewClient creates a new platform API client for the given base URL.
func NewClient(baseURL string, opts ...ClientOption) *Client {
	client := resty.New().
		SetBaseURL(baseURL).
		SetTimeout(defaultTimeout).
		SetHeader("Accept", "application/json").
		SetHeader("User-Agent", "evogate")
	c := &Client{client: client, retryMax: 3}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// httpError represents a non-2xx response from the platform.
type httpError struct {
	status   int
	endpoint string
}

func (e *httpError) Error() string {
	return fmt.Sprintf("platform returned %d for %s", e.status, e.endpoint)
}

// isRetriableError reports whether an error is worth retrying: network
// failures, 5xx, and 429. 4xx responses are terminal.
func isRetriableError(err error) bool {
	var he *httpError
	if errors.As(err, &he) {
		return he.status >= http.StatusInternalServerError ||
			he.status == http.StatusTooManyRequests
	}
	return true
}

func classifyResponse(resp *resty.Response, endpoint string) error {
	if resp.IsSuccess() {
		return nil
	}
	return &httpError{status: resp.StatusCode(), endpoint: endpoint}
}

// get fetches the raw body of an endpoint with retry on transient failures.
func (c *Client) get(ctx context.Context, token, endpoint string, query map[string]string) ([]byte, error) {
	policy := backoff.NewExponentialBackoffPolicy(retryInitialInterval)
	policy.MaxRetries = c.retryMax

	var body []byte
	start := time.Now()
	err := backoff.Retry(ctx, func(ctx context.Context) error {
		resp, err := c.client.R().
			SetContext(ctx).
			SetAuthToken(token).
			SetQueryParams(query).
			Get(endpoint)
		if err != nil {
			return err
		}
		if err := classifyResponse(resp, endpoint); err != nil {
			return err
		}
		body = resp.Body()
		return nil
	}, policy, isRetriableError)
	if err != nil {
		return nil, err
	}

	elapsed := time.Since(start)
	if c.durations != nil {
		c.durations.With(prometheus.Labels{"endpoint": endpoint}).Observe(elapsed.Seconds())
	}
	logger.Debug(ctx, "Platform RPC completed",
		tag.Endpoint(endpoint), tag.Duration(elapsed))
	return body, nil
}

// ValidateLicense checks the subscription/seat status for an organization.
func (c *Client) ValidateLicense(ctx context.Context, token, orgID string) (LicenseStatus, error) {
	body, err := c.get(ctx, token, licenseValidatePath, map[string]string{"org_id": orgID})
	if err != nil {
		return LicenseStatus{}, fmt.Errorf("failed to validate license: %w", err)
	}

	var raw struct {
		IsValid bool   `json:"isValid"`
		Reason  string `json:"reason"`
		Message string `json:"message"`
	}
	if err := decodeObject(body, &raw); err != nil {
		return LicenseStatus{}, fmt.Errorf("failed to decode license status: %w", err)
	}

	status := LicenseStatus{IsValid: raw.IsValid, Message: raw.Message}
	if !raw.IsValid {
		reason, err := ParseLicenseReason(raw.Reason)
		if err != nil {
			return LicenseStatus{}, fmt.Errorf("failed to decode license status: %w", err)
		}
		status.Reason = reason
	}
	return status, nil
}

// ListCloudAccounts returns all connected cloud accounts for an
// organization, merging the AWS and Azure credential listings. An empty
// result is a valid, meaningful state; an error means the listing could not
// be completed and callers must not treat it as empty.
func (c *Client) ListCloudAccounts(ctx context.Context, token, orgID string) ([]CloudAccount, error) {
	query := map[string]string{"org_id": orgID}

	var accounts []CloudAccount
	for _, src := range []struct {
		endpoint string
		provider string
	}{
		{awsCredentialsListPath, "aws"},
		{azureCredentialsListPath, "azure"},
	} {
		body, err := c.get(ctx, token, src.endpoint, query)
		if err != nil {
			return nil, fmt.Errorf("failed to list %s accounts: %w", src.provider, err)
		}
		var list []CloudAccount
		if err := decodeList(body, &list); err != nil {
			return nil, fmt.Errorf("failed to decode %s accounts: %w", src.provider, err)
		}
		for i := range list {
			if list[i].Provider == "" {
				list[i].Provider = src.provider
			}
		}
		accounts = append(accounts, list...)
	}
	return accounts, nil
}

// VerifyDemo checks whether the session is a sandboxed demo session.
// Callers bound the wait with the context deadline; on expiry the demo gate
// fails open.
func (c *Client) VerifyDemo(ctx context.Context, token string) (DemoState, error) {
	body, err := c.get(ctx, token, demoVerifyPath, nil)
	if err != nil {
		return DemoState{}, fmt.Errorf("failed to verify demo mode: %w", err)
	}

	var state DemoState
	if err := decodeObject(body, &state); err != nil {
		return DemoState{}, fmt.Errorf("failed to decode demo state: %w", err)
	}
	return state, nil
}
