package gate

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/evoplatform/evogate/internal/config"
	"github.com/evoplatform/evogate/internal/platform"
)

type fakeLister struct {
	accounts []platform.CloudAccount
	err      error
}

func (f *fakeLister) ListCloudAccounts(_ context.Context, _, _ string) ([]platform.CloudAccount, error) {
	return f.accounts, f.err
}

func TestCloudAccountGateEmptyRedirects(t *testing.T) {
	t.Parallel()

	g := NewCloudAccountGate(&fakeLister{}, config.DefaultExemptPaths)
	result := g.Evaluate(context.Background(), testSession())

	assert.True(t, result.Redirect)
	assert.Equal(t, ReasonNoCloudAccounts, result.Reason)
	assert.NotEmpty(t, result.Message)
}

func TestCloudAccountGateAccountsPresent(t *testing.T) {
	t.Parallel()

	g := NewCloudAccountGate(&fakeLister{accounts: []platform.CloudAccount{
		{ID: "a1", Name: "prod", Provider: "aws"},
	}}, config.DefaultExemptPaths)

	result := g.Evaluate(context.Background(), testSession())
	assert.False(t, result.Redirect)
}

func TestCloudAccountGateErrorFailsOpen(t *testing.T) {
	t.Parallel()

	// A listing error must not redirect: an empty result cannot be
	// distinguished from a broken listing.
	g := NewCloudAccountGate(&fakeLister{err: errors.New("listing down")}, config.DefaultExemptPaths)

	result := g.Evaluate(context.Background(), testSession())
	assert.False(t, result.Redirect)
}

func TestCloudAccountGateExempt(t *testing.T) {
	t.Parallel()

	g := NewCloudAccountGate(&fakeLister{}, config.DefaultExemptPaths)

	tests := []struct {
		path   string
		exempt bool
	}{
		{"/auth", true},
		{"/auth/sign-in", true},
		{"/settings/profile", true},
		{"/legal/terms", true},
		{"/license-management", true},
		{"/cloud-credentials", true},
		{"/app", false},
		{"/dashboard", false},
		{"/", false},
		// Exemption is per path segment, not a raw prefix match.
		{"/settingsfoo", false},
		{"/authority", false},
		{"/legalese", false},
	}
	for _, tc := range tests {
		assert.Equal(t, tc.exempt, g.Exempt(tc.path), "path %s", tc.path)
	}
}
