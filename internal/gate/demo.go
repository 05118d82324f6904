package gate

import (
	"context"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/evoplatform/evogate/internal/logger"
	"github.com/evoplatform/evogate/internal/logger/tag"
	"github.com/evoplatform/evogate/internal/platform"
	"github.com/evoplatform/evogate/internal/session"
)

// demoCacheSize bounds the number of session tokens with cached demo state.
const demoCacheSize = 4096

// DemoVerifier checks whether a session is a sandboxed demo session.
type DemoVerifier interface {
	VerifyDemo(ctx context.Context, token string) (platform.DemoState, error)
}

// DemoGate determines whether a session is in verified demo mode. The
// verification call is bounded by a fixed timeout; if the dependency hangs
// the gate fails open as "not demo" rather than blocking forever.
type DemoGate struct {
	verifier DemoVerifier
	timeout  time.Duration
	cache    *lru.Cache[string, platform.DemoState]
}

// NewDemoGate creates a demo gate with the given verification timeout.
func NewDemoGate(verifier DemoVerifier, timeout time.Duration) *DemoGate {
	cache, _ := lru.New[string, platform.DemoState](demoCacheSize)
	return &DemoGate{
		verifier: verifier,
		timeout:  timeout,
		cache:    cache,
	}
}

// Evaluate returns the demo state for the session. IsVerified distinguishes
// "we don't know yet" from "we checked": an unverified result is never
// treated as demo by callers. Verified results are cached per session token
// so the verification cost is paid once.
func (g *DemoGate) Evaluate(ctx context.Context, sess *session.Session) platform.DemoState {
	if state, ok := g.cache.Get(sess.Token); ok {
		return state
	}

	ctx, cancel := context.WithTimeout(ctx, g.timeout)
	defer cancel()

	state, err := g.verifier.VerifyDemo(ctx, sess.Token)
	if err != nil {
		// Fail open: proceed as a regular non-demo session.
		logger.Warn(ctx, "Demo verification failed, proceeding as non-demo",
			tag.Gate(GateDemo), tag.User(sess.UserID), tag.Error(err))
		return platform.DemoState{}
	}

	if state.IsVerified {
		g.cache.Add(sess.Token, state)
	}
	return state
}
