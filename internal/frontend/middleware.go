package frontend

import (
	"net/http"
	"net/url"

	"github.com/evoplatform/evogate/internal/gate"
	"github.com/evoplatform/evogate/internal/logger"
	"github.com/evoplatform/evogate/internal/logger/tag"
	"github.com/evoplatform/evogate/internal/platform"
	"github.com/evoplatform/evogate/internal/session"
)

// gateReasonHeader carries the decision reason on redirects so API clients
// see it without parsing the Location query.
const gateReasonHeader = "X-Evo-Gate-Reason"

// blockedScreen is the terminal blocking screen rendered when the license
// gate fails. There is no automatic retry; the listed actions are the only
// ways forward.
type blockedScreen struct {
	Code        string         `json:"code"`
	Title       string         `json:"title"`
	Reason      string         `json:"reason"`
	Message     string         `json:"message,omitempty"`
	Remediation string         `json:"remediation"`
	Actions     []screenAction `json:"actions"`
}

type screenAction struct {
	Label  string `json:"label"`
	Target string `json:"target"`
}

// guardMiddleware evaluates the composed gates for every request and turns
// the decision into an HTTP response: pass-through, redirect, blocked
// screen, or loading.
func (srv *Server) guardMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		decision, sess := srv.guard.Evaluate(ctx, r)
		srv.metrics.recordDecision(decision)

		switch decision.State {
		case gate.StateAllowed:
			if sess != nil {
				r = r.WithContext(session.WithSession(ctx, sess))
			}
			next.ServeHTTP(w, r)

		case gate.StateRedirecting:
			logger.Info(ctx, "Gate redirect",
				tag.Gate(decision.Gate), tag.Reason(decision.Reason),
				tag.Path(r.URL.Path), tag.Target(decision.Target))
			target := decision.Target
			query := url.Values{}
			query.Set("reason", decision.Reason)
			if decision.Message != "" {
				query.Set("message", decision.Message)
			}
			target += "?" + query.Encode()
			w.Header().Set(gateReasonHeader, decision.Reason)
			// 303 gives replace semantics: the gated URL is not re-posted
			// and not left in a redirect loop.
			http.Redirect(w, r, target, http.StatusSeeOther)

		case gate.StateBlocked:
			logger.Info(ctx, "Gate blocked",
				tag.Gate(decision.Gate), tag.Reason(decision.Reason),
				tag.Path(r.URL.Path))
			w.Header().Set(gateReasonHeader, decision.Reason)
			writeJSON(w, http.StatusForbidden, blockedScreen{
				Code:        ErrorCodeBlocked,
				Title:       blockedTitle(decision.Reason),
				Reason:      decision.Reason,
				Message:     decision.Message,
				Remediation: decision.Remediation,
				Actions: []screenAction{
					{Label: "Manage license", Target: "/license-management"},
					{Label: "Sign out", Target: gate.TargetSignOut},
				},
			})

		case gate.StateLoading:
			w.Header().Set("Retry-After", "2")
			writeError(w, &Error{
				Code:       ErrorCodeLoading,
				Message:    decision.Message,
				HTTPStatus: http.StatusServiceUnavailable,
			})
		}
	})
}

// blockedTitle maps a license reason to the blocked screen title.
func blockedTitle(reason string) string {
	switch platform.LicenseReason(reason) {
	case platform.LicenseReasonExpired:
		return "License expired"
	case platform.LicenseReasonNoSeats:
		return "No seats available"
	case platform.LicenseReasonNoLicense:
		return "No license found"
	case platform.LicenseReasonSeatsExceeded:
		return "Seat limit exceeded"
	default:
		return "Access blocked"
	}
}
