package frontend

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/evoplatform/evogate/internal/config"
	"github.com/evoplatform/evogate/internal/session"
)

// platformStub fakes the EVO Platform RPC endpoints.
type platformStub struct {
	mu        sync.Mutex
	license   string
	aws       string
	azure     string
	demo      string
	demoDelay time.Duration
	calls     map[string]int
}

func newPlatformStub() *platformStub {
	return &platformStub{
		license: `{"isValid":true}`,
		aws:     `{"items":[{"id":"aws-1","name":"prod"}]}`,
		azure:   `[]`,
		demo:    `{"isDemoMode":false,"verified":false}`,
		calls:   make(map[string]int),
	}
}

func (p *platformStub) callCount(path string) int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.calls[path]
}

func (p *platformStub) handler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		p.mu.Lock()
		p.calls[r.URL.Path]++
		var body string
		delay := time.Duration(0)
		switch r.URL.Path {
		case "/api/licenses/validate":
			body = p.license
		case "/api/aws/credentials/list":
			body = p.aws
		case "/api/azure/credentials/list":
			body = p.azure
		case "/api/demo/verify":
			body = p.demo
			delay = p.demoDelay
		}
		p.mu.Unlock()

		if body == "" {
			http.NotFound(w, r)
			return
		}
		if delay > 0 {
			select {
			case <-time.After(delay):
			case <-r.Context().Done():
				return
			}
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(body))
	})
}

// newGateway wires a Server against the stub and returns its handler plus
// a valid gateway session token.
func newGateway(t *testing.T, stub *platformStub, mut ...func(*config.Config)) (http.Handler, string) {
	t.Helper()

	upstream := httptest.NewServer(stub.handler())
	t.Cleanup(upstream.Close)

	cfg := &config.Config{
		Auth: config.Auth{
			TokenSecret:        "test-secret",
			MaxResolveAttempts: 3,
		},
		Platform: config.Platform{
			BaseURL:  upstream.URL,
			Timeout:  5 * time.Second,
			RetryMax: 1,
		},
		Gates: config.Gates{
			LicenseRevalidateInterval: time.Minute,
			DemoVerifyTimeout:         2 * time.Second,
			ExemptPaths:               config.DefaultExemptPaths,
		},
	}
	for _, m := range mut {
		m(cfg)
	}

	srv, err := NewServer(context.Background(), cfg)
	require.NoError(t, err)

	token, err := srv.resolver.IssueToken(&session.Session{
		UserID: "user-1",
		Email:  "dev@example.com",
		OrgID:  "org-1",
		Roles:  []string{"admin"},
	}, time.Hour)
	require.NoError(t, err)

	return srv.Handler(), token
}

func doRequest(handler http.Handler, method, target, token string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, target, nil)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	return rec
}

func TestServerAllowsLicensedSession(t *testing.T) {
	t.Parallel()

	handler, token := newGateway(t, newPlatformStub())
	rec := doRequest(handler, http.MethodGet, "/app/dashboard", token)

	require.Equal(t, http.StatusOK, rec.Code)
	var body map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "console", body["screen"])
	assert.Equal(t, "user-1", body["userId"])
	assert.Equal(t, "org-1", body["orgId"])
}

func TestServerRedirectsUnauthenticated(t *testing.T) {
	t.Parallel()

	handler, _ := newGateway(t, newPlatformStub())
	rec := doRequest(handler, http.MethodGet, "/app/dashboard", "")

	require.Equal(t, http.StatusSeeOther, rec.Code)
	loc, err := url.Parse(rec.Header().Get("Location"))
	require.NoError(t, err)
	assert.Equal(t, "/auth", loc.Path)
	assert.Equal(t, "authentication_required", loc.Query().Get("reason"))
	assert.Equal(t, "authentication_required", rec.Header().Get("X-Evo-Gate-Reason"))

	// The sign-in screen itself renders without credentials.
	rec = doRequest(handler, http.MethodGet, rec.Header().Get("Location"), "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "sign-in")
}

func TestServerPrefixSiblingPathsStayGated(t *testing.T) {
	t.Parallel()

	stub := newPlatformStub()
	stub.license = `{"isValid":false,"reason":"no_seats","message":"All seats are assigned."}`
	handler, token := newGateway(t, stub)

	// Sharing the /auth prefix does not make a path a sign-in screen.
	rec := doRequest(handler, http.MethodGet, "/authors/report", "")
	require.Equal(t, http.StatusSeeOther, rec.Code)
	loc, err := url.Parse(rec.Header().Get("Location"))
	require.NoError(t, err)
	assert.Equal(t, "/auth", loc.Path)

	// Nor does sharing the /license-management prefix escape the license gate.
	rec = doRequest(handler, http.MethodGet, "/authority-dashboard", token)
	require.Equal(t, http.StatusForbidden, rec.Code)
	rec = doRequest(handler, http.MethodGet, "/license-managementx", token)
	require.Equal(t, http.StatusForbidden, rec.Code)
}

func TestServerBlocksInvalidLicense(t *testing.T) {
	t.Parallel()

	stub := newPlatformStub()
	stub.license = `{"isValid":false,"reason":"no_seats","message":"All seats are assigned."}`
	handler, token := newGateway(t, stub)

	rec := doRequest(handler, http.MethodGet, "/app/dashboard", token)
	require.Equal(t, http.StatusForbidden, rec.Code)
	assert.Equal(t, "no_seats", rec.Header().Get("X-Evo-Gate-Reason"))

	var screen blockedScreen
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &screen))
	assert.Equal(t, "No seats available", screen.Title)
	assert.Equal(t, "no_seats", screen.Reason)
	assert.Contains(t, screen.Remediation, "Request a seat")
	require.Len(t, screen.Actions, 2)
	assert.Equal(t, "/license-management", screen.Actions[0].Target)
	assert.Equal(t, "/auth/sign-out", screen.Actions[1].Target)

	// The license screen stays reachable so the block can be resolved.
	rec = doRequest(handler, http.MethodGet, "/license-management", token)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "license-management")
}

func TestServerRedirectsWhenNoCloudAccounts(t *testing.T) {
	t.Parallel()

	stub := newPlatformStub()
	stub.aws = `[]`
	handler, token := newGateway(t, stub)

	rec := doRequest(handler, http.MethodGet, "/app/dashboard", token)
	require.Equal(t, http.StatusSeeOther, rec.Code)
	loc, err := url.Parse(rec.Header().Get("Location"))
	require.NoError(t, err)
	assert.Equal(t, "/cloud-credentials", loc.Path)
	assert.Equal(t, "no_cloud_accounts", loc.Query().Get("reason"))

	// Following the redirect terminates: the destination is exempt.
	rec = doRequest(handler, http.MethodGet, rec.Header().Get("Location"), token)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "cloud-credentials")
	assert.Contains(t, rec.Body.String(), "no_cloud_accounts")
}

func TestServerExemptPathSkipsAccountGate(t *testing.T) {
	t.Parallel()

	stub := newPlatformStub()
	stub.aws = `[]`
	handler, token := newGateway(t, stub)

	rec := doRequest(handler, http.MethodGet, "/settings/profile", token)
	require.Equal(t, http.StatusOK, rec.Code)
}

func TestServerVerifiedDemoSkipsAccountGate(t *testing.T) {
	t.Parallel()

	stub := newPlatformStub()
	stub.aws = `[]`
	stub.demo = `{"isDemoMode":true,"verified":true}`
	handler, token := newGateway(t, stub)

	rec := doRequest(handler, http.MethodGet, "/app/dashboard", token)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Zero(t, stub.callCount("/api/aws/credentials/list"))
	assert.Zero(t, stub.callCount("/api/azure/credentials/list"))
}

func TestServerDemoTimeoutFailsOpen(t *testing.T) {
	t.Parallel()

	stub := newPlatformStub()
	stub.demoDelay = 2 * time.Second
	handler, token := newGateway(t, stub, func(cfg *config.Config) {
		cfg.Gates.DemoVerifyTimeout = 100 * time.Millisecond
	})

	start := time.Now()
	rec := doRequest(handler, http.MethodGet, "/app/dashboard", token)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Less(t, time.Since(start), 2*time.Second)
}

func TestServerSignOut(t *testing.T) {
	t.Parallel()

	handler, token := newGateway(t, newPlatformStub())
	rec := doRequest(handler, http.MethodGet, "/auth/sign-out", token)

	require.Equal(t, http.StatusSeeOther, rec.Code)
	assert.Equal(t, "/auth", rec.Header().Get("Location"))

	var cleared bool
	for _, c := range rec.Result().Cookies() {
		if c.Name == session.CookieName && c.MaxAge < 0 {
			cleared = true
		}
	}
	assert.True(t, cleared, "session cookie should be expired")
}

func TestServerHealthAndMetrics(t *testing.T) {
	t.Parallel()

	handler, token := newGateway(t, newPlatformStub())

	rec := doRequest(handler, http.MethodGet, "/healthz", "")
	require.Equal(t, http.StatusOK, rec.Code)

	// One guarded request so the decision counter has a sample.
	rec = doRequest(handler, http.MethodGet, "/app/dashboard", token)
	require.Equal(t, http.StatusOK, rec.Code)

	rec = doRequest(handler, http.MethodGet, "/metrics", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.True(t, strings.Contains(rec.Body.String(), "evogate_uptime_seconds"))
	assert.True(t, strings.Contains(rec.Body.String(), "evogate_gate_decisions_total"))
	assert.True(t, strings.Contains(rec.Body.String(), "evogate_platform_rpc_duration_seconds"))
}
