package frontend

import (
	"net/http"

	"github.com/evoplatform/evogate/internal/gate"
	"github.com/evoplatform/evogate/internal/logger"
	"github.com/evoplatform/evogate/internal/logger/tag"
	"github.com/evoplatform/evogate/internal/session"
)

// screen is the generic descriptor the destination screens render from.
type screen struct {
	Screen  string `json:"screen"`
	Reason  string `json:"reason,omitempty"`
	Message string `json:"message,omitempty"`
}

// handleHealth reports liveness.
func (srv *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// handleAuth renders the sign-in screen. It is reachable without a session.
func (srv *Server) handleAuth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, screen{
		Screen:  "sign-in",
		Reason:  r.URL.Query().Get("reason"),
		Message: r.URL.Query().Get("message"),
	})
}

// handleSignOut clears the session cookie and drops cached gate state for
// the organization, then sends the user to the sign-in screen.
func (srv *Server) handleSignOut(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if sess, err := srv.resolver.Resolve(ctx, r); err == nil {
		srv.licenseGate.Invalidate(sess.OrgID)
		logger.Info(ctx, "Signed out", tag.User(sess.UserID), tag.Org(sess.OrgID))
	}

	http.SetCookie(w, &http.Cookie{
		Name:     session.CookieName,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		Secure:   r.TLS != nil,
		HttpOnly: true,
	})
	http.Redirect(w, r, gate.TargetAuth, http.StatusSeeOther)
}

// handleCloudCredentials renders the account-connection screen, echoing the
// reason and message the redirect carried.
func (srv *Server) handleCloudCredentials(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, screen{
		Screen:  "cloud-credentials",
		Reason:  r.URL.Query().Get("reason"),
		Message: r.URL.Query().Get("message"),
	})
}

// handleLicenseManagement renders the license-management screen. It stays
// reachable regardless of license state.
func (srv *Server) handleLicenseManagement(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, screen{
		Screen:  "license-management",
		Reason:  r.URL.Query().Get("reason"),
		Message: r.URL.Query().Get("message"),
	})
}

// handleLegal renders legal pages.
func (srv *Server) handleLegal(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, screen{Screen: "legal"})
}

// handleConsole is the protected handler used when no console origin is
// configured; it answers for any gated path that passed the guard.
func (srv *Server) handleConsole(w http.ResponseWriter, r *http.Request) {
	sess := session.FromContext(r.Context())
	resp := map[string]any{"screen": "console"}
	if sess != nil {
		resp["userId"] = sess.UserID
		resp["orgId"] = sess.OrgID
	}
	writeJSON(w, http.StatusOK, resp)
}
