package session

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"strings"
	"time"

	oidc "github.com/coreos/go-oidc"
	"github.com/golang-jwt/jwt/v5"

	"github.com/evoplatform/evogate/internal/backoff"
	"github.com/evoplatform/evogate/internal/logger"
	"github.com/evoplatform/evogate/internal/logger/tag"
)

// CookieName is the cookie carrying the session credential when no
// Authorization header is present.
const CookieName = "evo_session"

var (
	// ErrNoCredentials is returned when a request carries no session credential.
	ErrNoCredentials = errors.New("no session credentials")
	// ErrInvalidToken is returned when a credential fails verification.
	ErrInvalidToken = errors.New("invalid session token")
)

// Claims are the identity claims extracted from a verified credential.
// Field names follow the Cognito user pool token layout.
type Claims struct {
	Subject string   `json:"sub"`
	Email   string   `json:"email"`
	OrgID   string   `json:"custom:org_id"`
	Groups  []string `json:"cognito:groups"`
	Nonce   string   `json:"nonce"`
}

// Session converts verified claims into a session carrying the raw
// credential they were extracted from.
func (c *Claims) Session(raw string) *Session {
	return &Session{
		UserID: c.Subject,
		Email:  c.Email,
		OrgID:  c.OrgID,
		Roles:  c.Groups,
		Token:  raw,
	}
}

// TokenVerifier verifies an identity provider token and returns its claims.
type TokenVerifier interface {
	Verify(ctx context.Context, rawToken string) (*Claims, error)
}

// OIDCVerifier adapts an oidc.IDTokenVerifier to the TokenVerifier interface.
type OIDCVerifier struct {
	verifier *oidc.IDTokenVerifier
}

// NewOIDCVerifier wraps the given ID token verifier.
func NewOIDCVerifier(verifier *oidc.IDTokenVerifier) *OIDCVerifier {
	return &OIDCVerifier{verifier: verifier}
}

// Verify implements TokenVerifier. Transport failures (JWKS fetch,
// timeouts) are returned as-is so they can be retried; anything else is a
// deterministic rejection of the token itself.
func (v *OIDCVerifier) Verify(ctx context.Context, rawToken string) (*Claims, error) {
	idToken, err := v.verifier.Verify(ctx, rawToken)
	if err != nil {
		if isTransportError(err) {
			return nil, fmt.Errorf("failed to verify token: %w", err)
		}
		return nil, fmt.Errorf("%w: %s", ErrInvalidToken, err)
	}
	var claims Claims
	if err := idToken.Claims(&claims); err != nil {
		return nil, fmt.Errorf("%w: %s", ErrInvalidToken, err)
	}
	return &claims, nil
}

func isTransportError(err error) bool {
	var netErr net.Error
	if errors.As(err, &netErr) {
		return true
	}
	return errors.Is(err, context.DeadlineExceeded)
}

// isRetriableVerifyError mirrors the platform client's classification:
// a deterministic token rejection is terminal, everything else is worth
// another attempt.
func isRetriableVerifyError(err error) bool {
	return !errors.Is(err, ErrInvalidToken)
}

// gatewayClaims is the payload of gateway-issued session tokens.
type gatewayClaims struct {
	jwt.RegisteredClaims
	Email string   `json:"email"`
	OrgID string   `json:"org_id"`
	Roles []string `json:"roles"`
}

// Resolver determines the authenticated identity behind a request.
// It fails closed: any resolution failure is an error, and callers route
// the request to the sign-in screen.
type Resolver struct {
	verifier    TokenVerifier
	secret      []byte
	maxAttempts int
}

// ResolverOption is a functional option for NewResolver.
type ResolverOption func(*Resolver)

// WithVerifier sets the identity provider token verifier.
func WithVerifier(v TokenVerifier) ResolverOption {
	return func(r *Resolver) {
		r.verifier = v
	}
}

// WithTokenSecret enables verification of gateway-issued HS256 tokens.
func WithTokenSecret(secret string) ResolverOption {
	return func(r *Resolver) {
		r.secret = []byte(secret)
	}
}

// WithMaxAttempts bounds verification attempts. Exceeding the bound fails
// closed instead of looping.
func WithMaxAttempts(n int) ResolverOption {
	return func(r *Resolver) {
		if n > 0 {
			r.maxAttempts = n
		}
	}
}

// NewResolver creates a session resolver.
func NewResolver(opts ...ResolverOption) *Resolver {
	r := &Resolver{maxAttempts: 3}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Resolve returns the session behind the request, or an error when no valid
// credential is present. The credential is read from the Authorization
// header or the session cookie, and may be either a gateway-issued token or
// an identity provider ID token.
func (r *Resolver) Resolve(ctx context.Context, req *http.Request) (*Session, error) {
	raw := credentialFromRequest(req)
	if raw == "" {
		return nil, ErrNoCredentials
	}

	if len(r.secret) > 0 {
		sess, err := r.resolveGatewayToken(raw)
		if err == nil {
			return sess, nil
		}
		if r.verifier == nil {
			return nil, err
		}
	} else if r.verifier == nil {
		return nil, ErrInvalidToken
	}

	return r.resolveProviderToken(ctx, raw)
}

func (r *Resolver) resolveGatewayToken(raw string) (*Session, error) {
	var claims gatewayClaims
	_, err := jwt.ParseWithClaims(raw, &claims, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method %q", t.Method.Alg())
		}
		return r.secret, nil
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %s", ErrInvalidToken, err)
	}
	if claims.Subject == "" {
		return nil, fmt.Errorf("%w: missing subject", ErrInvalidToken)
	}
	return &Session{
		UserID: claims.Subject,
		Email:  claims.Email,
		OrgID:  claims.OrgID,
		Roles:  claims.Roles,
		Token:  raw,
	}, nil
}

func (r *Resolver) resolveProviderToken(ctx context.Context, raw string) (*Session, error) {
	policy := &backoff.ConstantBackoffPolicy{
		Interval:   250 * time.Millisecond,
		MaxRetries: r.maxAttempts - 1,
	}

	var claims *Claims
	attempt := 0
	err := backoff.Retry(ctx, func(ctx context.Context) error {
		attempt++
		var verifyErr error
		claims, verifyErr = r.verifier.Verify(ctx, raw)
		if verifyErr != nil {
			logger.Debug(ctx, "Session verification attempt failed",
				tag.Attempt(attempt), tag.Error(verifyErr))
		}
		return verifyErr
	}, policy, isRetriableVerifyError)
	if err != nil {
		return nil, fmt.Errorf("%w: %s", ErrInvalidToken, err)
	}

	if claims.Subject == "" {
		return nil, fmt.Errorf("%w: missing subject", ErrInvalidToken)
	}
	return claims.Session(raw), nil
}

// IssueToken signs a gateway session token for the given session.
func (r *Resolver) IssueToken(sess *Session, ttl time.Duration) (string, error) {
	if len(r.secret) == 0 {
		return "", errors.New("token secret not configured")
	}
	now := time.Now()
	claims := gatewayClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   sess.UserID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
		Email: sess.Email,
		OrgID: sess.OrgID,
		Roles: sess.Roles,
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(r.secret)
}

func credentialFromRequest(req *http.Request) string {
	if header := req.Header.Get("Authorization"); header != "" {
		parts := strings.SplitN(header, " ", 2)
		if len(parts) == 2 && strings.EqualFold(parts[0], "Bearer") {
			return parts[1]
		}
		return ""
	}
	if cookie, err := req.Cookie(CookieName); err == nil {
		return cookie.Value
	}
	return ""
}
