package frontend

import (
	"net/http"
	"strings"
	"time"

	oidc "github.com/coreos/go-oidc"
	"github.com/google/uuid"

	"github.com/evoplatform/evogate/internal/logger"
	"github.com/evoplatform/evogate/internal/logger/tag"
	"github.com/evoplatform/evogate/internal/session"
)

// Short-lived cookies used to carry state across the authorization-code
// round trip.
const (
	stateCookie    = "evo_oauth_state"
	nonceCookie    = "evo_oauth_nonce"
	returnToCookie = "evo_return_to"

	flowCookieMaxAge = 120
	sessionTTL       = 24 * time.Hour
)

// handleLogin starts the authorization-code flow with the identity
// provider. The requested return path is kept in a cookie so the callback
// can land the user back where they started.
func (srv *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	if srv.oauth == nil {
		writeError(w, &Error{
			Code:       ErrorCodeUnauthorized,
			Message:    "sign-in is not configured",
			HTTPStatus: http.StatusNotImplemented,
		})
		return
	}

	state, nonce := uuid.NewString(), uuid.NewString()
	setFlowCookie(w, r, stateCookie, state)
	setFlowCookie(w, r, nonceCookie, nonce)

	returnTo := r.URL.Query().Get("return_to")
	if !strings.HasPrefix(returnTo, "/") || strings.HasPrefix(returnTo, "//") {
		returnTo = "/"
	}
	setFlowCookie(w, r, returnToCookie, returnTo)

	http.Redirect(w, r, srv.oauth.AuthCodeURL(state, oidc.Nonce(nonce)), http.StatusFound)
}

// handleCallback completes the flow: it exchanges the authorization code,
// verifies the ID token and nonce, and issues the gateway session cookie.
func (srv *Server) handleCallback(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if srv.oauth == nil || srv.verifier == nil {
		writeError(w, &Error{
			Code:       ErrorCodeUnauthorized,
			Message:    "sign-in is not configured",
			HTTPStatus: http.StatusNotImplemented,
		})
		return
	}

	state, err := r.Cookie(stateCookie)
	if err != nil {
		http.Error(w, "state not found", http.StatusBadRequest)
		return
	}
	if r.URL.Query().Get("state") != state.Value {
		http.Error(w, "state did not match", http.StatusBadRequest)
		return
	}

	token, err := srv.oauth.Exchange(ctx, r.URL.Query().Get("code"))
	if err != nil {
		logger.Error(ctx, "Failed to exchange authorization code", tag.Error(err))
		http.Error(w, "failed to exchange token", http.StatusBadGateway)
		return
	}
	rawIDToken, ok := token.Extra("id_token").(string)
	if !ok {
		http.Error(w, "no id_token field in oauth2 token", http.StatusBadGateway)
		return
	}

	claims, err := srv.verifier.Verify(ctx, rawIDToken)
	if err != nil {
		logger.Error(ctx, "Failed to verify ID token", tag.Error(err))
		http.Error(w, "failed to verify ID token", http.StatusUnauthorized)
		return
	}
	nonce, err := r.Cookie(nonceCookie)
	if err != nil {
		http.Error(w, "nonce not found", http.StatusBadRequest)
		return
	}
	if claims.Nonce != nonce.Value {
		http.Error(w, "nonce did not match", http.StatusBadRequest)
		return
	}

	sess := claims.Session(rawIDToken)
	issued, err := srv.resolver.IssueToken(sess, sessionTTL)
	if err != nil {
		logger.Error(ctx, "Failed to issue session token", tag.Error(err))
		http.Error(w, "failed to issue session", http.StatusInternalServerError)
		return
	}

	http.SetCookie(w, &http.Cookie{
		Name:     session.CookieName,
		Value:    issued,
		Path:     "/",
		MaxAge:   int(sessionTTL.Seconds()),
		Secure:   r.TLS != nil,
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})
	clearFlowCookies(w, r)

	returnTo := "/"
	if c, err := r.Cookie(returnToCookie); err == nil && strings.HasPrefix(c.Value, "/") {
		returnTo = c.Value
	}
	logger.Info(ctx, "Signed in", tag.User(sess.UserID), tag.Org(sess.OrgID))
	http.Redirect(w, r, returnTo, http.StatusSeeOther)
}

func setFlowCookie(w http.ResponseWriter, r *http.Request, name, value string) {
	http.SetCookie(w, &http.Cookie{
		Name:     name,
		Value:    value,
		Path:     "/",
		MaxAge:   flowCookieMaxAge,
		Secure:   r.TLS != nil,
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})
}

func clearFlowCookies(w http.ResponseWriter, r *http.Request) {
	for _, name := range []string{stateCookie, nonceCookie, returnToCookie} {
		http.SetCookie(w, &http.Cookie{
			Name:     name,
			Value:    "",
			Path:     "/",
			MaxAge:   -1,
			Secure:   r.TLS != nil,
			HttpOnly: true,
		})
	}
}
