// Package gate implements the navigation gating that governs which console
// surface a session is permitted to reach: session resolution, license
// validation, cloud-account presence, and demo-mode detection, composed in
// fixed order by a Guard.
package gate

import (
	"context"
	"net/http"
	"strings"
	"sync"

	"github.com/google/uuid"

	"github.com/evoplatform/evogate/internal/logger"
	"github.com/evoplatform/evogate/internal/logger/tag"
	"github.com/evoplatform/evogate/internal/platform"
	"github.com/evoplatform/evogate/internal/session"
)

// State is the outcome class of a gate evaluation.
type State int

const (
	// StateLoading means a required check is still outstanding.
	StateLoading State = iota
	// StateBlocked means the request is terminally blocked (invalid license).
	StateBlocked
	// StateRedirecting means the request must be sent to another screen.
	StateRedirecting
	// StateAllowed means the requested content may be rendered.
	StateAllowed
)

// String implements fmt.Stringer.
func (s State) String() string {
	switch s {
	case StateLoading:
		return "loading"
	case StateBlocked:
		return "blocked"
	case StateRedirecting:
		return "redirecting"
	case StateAllowed:
		return "allowed"
	default:
		return "unknown"
	}
}

// Gate names used in decisions, logs, and metrics.
const (
	GateSession       = "session"
	GateLicense       = "license"
	GateDemo          = "demo"
	GateCloudAccounts = "cloud_accounts"
)

// Redirect targets and reason codes carried to destination screens.
const (
	TargetAuth             = "/auth"
	TargetCloudCredentials = "/cloud-credentials"
	TargetSignOut          = "/auth/sign-out"

	ReasonAuthenticationRequired = "authentication_required"
	ReasonNoCloudAccounts        = "no_cloud_accounts"
)

// Path prefixes with special gate handling.
const (
	authPathPrefix    = "/auth"
	licensePathPrefix = "/license-management"
)

// PathHasPrefix reports whether path equals prefix or lies under it as a
// full segment. A plain prefix match would let /authors slip through the
// /auth exemption.
func PathHasPrefix(path, prefix string) bool {
	return path == prefix || strings.HasPrefix(path, prefix+"/")
}

// Decision is the composed result of evaluating all gates for a request.
type Decision struct {
	// ID correlates the decision across logs and responses.
	ID string
	// State is the final render decision.
	State State
	// Gate names the gate that produced a non-allowed state.
	Gate string
	// Reason is the machine-readable reason code.
	Reason string
	// Message is the human-readable explanation.
	Message string
	// Target is the redirect destination for StateRedirecting.
	Target string
	// Remediation describes the required out-of-band action for StateBlocked.
	Remediation string
}

// SessionResolver resolves the authenticated identity behind a request.
type SessionResolver interface {
	Resolve(ctx context.Context, req *http.Request) (*session.Session, error)
}

// Guard composes the gates in strict order: Session, License, Demo,
// Cloud-Account. License and demo checks run concurrently; the
// cloud-account check only runs once the license has resolved valid.
type Guard struct {
	sessions SessionResolver
	license  *LicenseGate
	demo     *DemoGate
	accounts *CloudAccountGate
}

// NewGuard creates a Guard from the individual gates.
func NewGuard(sessions SessionResolver, license *LicenseGate, demo *DemoGate, accounts *CloudAccountGate) *Guard {
	return &Guard{
		sessions: sessions,
		license:  license,
		demo:     demo,
		accounts: accounts,
	}
}

// Evaluate computes the render decision for a request. It returns the
// resolved session alongside the decision so handlers can store it in the
// request context; the session is nil when resolution failed.
func (g *Guard) Evaluate(ctx context.Context, req *http.Request) (Decision, *session.Session) {
	decision := Decision{ID: uuid.NewString(), State: StateAllowed}
	path := req.URL.Path

	// The sign-in screens must render for unauthenticated requests.
	if PathHasPrefix(path, authPathPrefix) {
		return decision, nil
	}

	sess, err := g.sessions.Resolve(ctx, req)
	if err != nil {
		logger.Debug(ctx, "Session resolution failed",
			tag.Gate(GateSession), tag.Path(path), tag.Error(err))
		decision.State = StateRedirecting
		decision.Gate = GateSession
		decision.Reason = ReasonAuthenticationRequired
		decision.Message = "Sign in to access the console."
		decision.Target = TargetAuth
		return decision, nil
	}

	// The license-management screen is always exempt from the license gate
	// so a blocked tenant can still reach it; it is also in the
	// cloud-account exemption list.
	if PathHasPrefix(path, licensePathPrefix) {
		return decision, sess
	}

	var (
		wg        sync.WaitGroup
		licResult LicenseResult
		demoState platform.DemoState
	)
	wg.Add(2)
	go func() {
		defer wg.Done()
		licResult = g.license.Evaluate(ctx, sess)
	}()
	go func() {
		defer wg.Done()
		demoState = g.demo.Evaluate(ctx, sess)
	}()
	wg.Wait()

	switch licResult.State {
	case StateLoading:
		if licResult.Err != nil {
			logger.Debug(ctx, "License status pending after fetch error",
				tag.Gate(GateLicense), tag.Org(sess.OrgID), tag.Error(licResult.Err))
		}
		decision.State = StateLoading
		decision.Gate = GateLicense
		decision.Message = "License status is being determined."
		return decision, sess
	case StateBlocked:
		decision.State = StateBlocked
		decision.Gate = GateLicense
		decision.Reason = string(licResult.Status.Reason)
		decision.Message = licResult.Status.Message
		decision.Remediation = remediationFor(licResult.Status.Reason)
		return decision, sess
	}

	// Verified demo sessions use fixture data server-side; no real cloud
	// account is required.
	if demoState.IsDemoMode && demoState.IsVerified {
		logger.Debug(ctx, "Demo session, skipping cloud-account gate",
			tag.Gate(GateDemo), tag.User(sess.UserID))
		return decision, sess
	}

	if !g.accounts.Exempt(path) {
		if result := g.accounts.Evaluate(ctx, sess); result.Redirect {
			decision.State = StateRedirecting
			decision.Gate = GateCloudAccounts
			decision.Reason = result.Reason
			decision.Message = result.Message
			decision.Target = TargetCloudCredentials
			return decision, sess
		}
	}

	return decision, sess
}

// remediationFor maps a license reason to the action shown on the blocked
// screen. There is no automatic retry; the user must act out-of-band.
func remediationFor(reason platform.LicenseReason) string {
	switch reason {
	case platform.LicenseReasonExpired:
		return "Renew your subscription or contact your account manager."
	case platform.LicenseReasonNoSeats:
		return "Request a seat from your organization administrator."
	case platform.LicenseReasonNoLicense:
		return "No license is associated with this organization. Contact sales to activate one."
	case platform.LicenseReasonSeatsExceeded:
		return "Reduce active seats or upgrade your plan."
	default:
		return "Contact your organization administrator."
	}
}
