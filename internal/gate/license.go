package gate

import (
	"context"
	"sync"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/evoplatform/evogate/internal/logger"
	"github.com/evoplatform/evogate/internal/logger/tag"
	"github.com/evoplatform/evogate/internal/platform"
	"github.com/evoplatform/evogate/internal/session"
)

// licenseCacheSize bounds the number of organizations with cached license
// state in a single process.
const licenseCacheSize = 1024

// LicenseValidator fetches the subscription/seat status for an organization.
type LicenseValidator interface {
	ValidateLicense(ctx context.Context, token, orgID string) (platform.LicenseStatus, error)
}

// LicenseResult is the outcome of a license gate evaluation.
type LicenseResult struct {
	// State is StateAllowed, StateBlocked, or StateLoading.
	State State
	// Status is the license status backing the state. Zero for StateLoading.
	Status platform.LicenseStatus
	// Err is the most recent fetch error when no status is known yet. Nil
	// unless State is StateLoading.
	Err error
}

// LicenseGate evaluates the license status of a session's organization with
// stale-while-revalidate semantics: while a revalidation fetch is in
// flight, the previously known result is honored so a transient refetch
// never flickers an already-valid session into the blocked screen.
type LicenseGate struct {
	validator LicenseValidator
	interval  time.Duration

	mu    sync.Mutex
	cache *lru.Cache[string, *licenseEntry]
}

type licenseEntry struct {
	mu        sync.Mutex
	status    *platform.LicenseStatus
	fetchedAt time.Time
	inflight  bool
	lastErr   error
}

// NewLicenseGate creates a license gate that revalidates cached statuses
// after the given interval.
func NewLicenseGate(validator LicenseValidator, interval time.Duration) *LicenseGate {
	cache, _ := lru.New[string, *licenseEntry](licenseCacheSize)
	return &LicenseGate{
		validator: validator,
		interval:  interval,
		cache:     cache,
	}
}

// Evaluate returns the license gate result for the session's organization.
// It is read-only with respect to the platform; the only side effects are
// cache updates.
//
// Error handling is explicit about the three non-valid conditions:
//   - confirmed invalid: StateBlocked with the reason from the platform
//   - no result yet (first fetch failed or still in flight): StateLoading
//   - fetch error with a prior result: the prior result is served stale
func (g *LicenseGate) Evaluate(ctx context.Context, sess *session.Session) LicenseResult {
	entry := g.entry(sess.OrgID)

	entry.mu.Lock()
	if entry.status == nil {
		if entry.inflight {
			lastErr := entry.lastErr
			entry.mu.Unlock()
			return LicenseResult{State: StateLoading, Err: lastErr}
		}
		entry.inflight = true
		entry.mu.Unlock()

		status, err := g.validator.ValidateLicense(ctx, sess.Token, sess.OrgID)

		entry.mu.Lock()
		entry.inflight = false
		if err != nil {
			entry.lastErr = err
			entry.mu.Unlock()
			logger.Warn(ctx, "License fetch failed with no prior status",
				tag.Gate(GateLicense), tag.Org(sess.OrgID), tag.Error(err))
			return LicenseResult{State: StateLoading, Err: err}
		}
		entry.status = &status
		entry.fetchedAt = time.Now()
		entry.lastErr = nil
	} else if time.Since(entry.fetchedAt) >= g.interval && !entry.inflight {
		entry.inflight = true
		// Detach from the request so an early client disconnect does not
		// abort the revalidation.
		go g.revalidate(context.WithoutCancel(ctx), sess.Token, sess.OrgID, entry)
	}

	status := *entry.status
	entry.mu.Unlock()

	if status.IsValid {
		return LicenseResult{State: StateAllowed, Status: status}
	}
	return LicenseResult{State: StateBlocked, Status: status}
}

// Invalidate drops the cached status for an organization. Called on
// sign-out so the next session starts from a fresh fetch.
func (g *LicenseGate) Invalidate(orgID string) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.cache.Remove(orgID)
}

func (g *LicenseGate) entry(orgID string) *licenseEntry {
	g.mu.Lock()
	defer g.mu.Unlock()
	if entry, ok := g.cache.Get(orgID); ok {
		return entry
	}
	entry := &licenseEntry{}
	g.cache.Add(orgID, entry)
	return entry
}

func (g *LicenseGate) revalidate(ctx context.Context, token, orgID string, entry *licenseEntry) {
	status, err := g.validator.ValidateLicense(ctx, token, orgID)

	entry.mu.Lock()
	defer entry.mu.Unlock()
	entry.inflight = false
	if err != nil {
		// Keep serving the stale status; a fetch error is not an invalid
		// license.
		entry.lastErr = err
		logger.Warn(ctx, "License revalidation failed, serving stale status",
			tag.Gate(GateLicense), tag.Org(orgID), tag.Error(err))
		return
	}
	entry.status = &status
	entry.fetchedAt = time.Now()
	entry.lastErr = nil
}
