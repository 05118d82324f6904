package gate

import (
	"context"

	"github.com/samber/lo"

	"github.com/evoplatform/evogate/internal/logger"
	"github.com/evoplatform/evogate/internal/logger/tag"
	"github.com/evoplatform/evogate/internal/platform"
	"github.com/evoplatform/evogate/internal/session"
)

// AccountLister returns the connected cloud accounts for an organization.
type AccountLister interface {
	ListCloudAccounts(ctx context.Context, token, orgID string) ([]platform.CloudAccount, error)
}

// AccountResult is the outcome of a cloud-account gate evaluation.
type AccountResult struct {
	// Redirect reports whether the request must be sent to the
	// account-connection screen.
	Redirect bool
	// Reason is the machine-readable reason code for the redirect.
	Reason string
	// Message is the human-readable message for the destination screen.
	Message string
}

// CloudAccountGate redirects sessions without any connected cloud account
// to the account-connection screen. It only runs for non-exempt routes and
// once the license gate has resolved valid; verified demo sessions suppress
// it entirely.
type CloudAccountGate struct {
	lister      AccountLister
	exemptPaths []string
}

// NewCloudAccountGate creates the gate with the given exemption allow-list
// of path prefixes.
func NewCloudAccountGate(lister AccountLister, exemptPaths []string) *CloudAccountGate {
	return &CloudAccountGate{lister: lister, exemptPaths: exemptPaths}
}

// Exempt reports whether the path is on the fixed exemption allow-list.
// Matching is segment-aware so /settingsfoo is not exempted by /settings.
func (g *CloudAccountGate) Exempt(path string) bool {
	return lo.SomeBy(g.exemptPaths, func(prefix string) bool {
		return PathHasPrefix(path, prefix)
	})
}

// Evaluate checks whether the organization has any connected cloud account.
// A listing error fails open: the gate is skipped for this cycle and never
// redirects on error, since an empty result could not be distinguished from
// a broken listing.
func (g *CloudAccountGate) Evaluate(ctx context.Context, sess *session.Session) AccountResult {
	accounts, err := g.lister.ListCloudAccounts(ctx, sess.Token, sess.OrgID)
	if err != nil {
		logger.Warn(ctx, "Cloud account listing failed, skipping gate",
			tag.Gate(GateCloudAccounts), tag.Org(sess.OrgID), tag.Error(err))
		return AccountResult{}
	}

	if len(accounts) == 0 {
		logger.Info(ctx, "No cloud accounts connected, redirecting",
			tag.Gate(GateCloudAccounts), tag.Org(sess.OrgID),
			tag.Target(TargetCloudCredentials))
		return AccountResult{
			Redirect: true,
			Reason:   ReasonNoCloudAccounts,
			Message:  "Connect an AWS or Azure account to start using the console.",
		}
	}

	logger.Debug(ctx, "Cloud accounts present",
		tag.Gate(GateCloudAccounts), tag.Org(sess.OrgID), tag.Count(len(accounts)))
	return AccountResult{}
}
