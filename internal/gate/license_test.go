package gate

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/evoplatform/evogate/internal/platform"
	"github.com/evoplatform/evogate/internal/session"
)

type fakeValidator struct {
	mu     sync.Mutex
	status platform.LicenseStatus
	err    error
	calls  int

	entered chan struct{} // closed when a call starts, if non-nil
	release chan struct{} // blocks the call until closed, if non-nil
}

func (f *fakeValidator) ValidateLicense(_ context.Context, _, _ string) (platform.LicenseStatus, error) {
	f.mu.Lock()
	f.calls++
	entered, release := f.entered, f.release
	status, err := f.status, f.err
	f.mu.Unlock()

	if entered != nil {
		close(entered)
		f.mu.Lock()
		f.entered = nil
		f.mu.Unlock()
	}
	if release != nil {
		<-release
		f.mu.Lock()
		status, err = f.status, f.err
		f.mu.Unlock()
	}
	return status, err
}

func (f *fakeValidator) set(status platform.LicenseStatus, err error) {
	f.mu.Lock()
	f.status, f.err = status, err
	f.mu.Unlock()
}

func (f *fakeValidator) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}

func testSession() *session.Session {
	return &session.Session{
		UserID: "user-1",
		Email:  "user@example.com",
		OrgID:  "org-1",
		Token:  "tok",
	}
}

func TestLicenseGateValid(t *testing.T) {
	t.Parallel()

	v := &fakeValidator{status: platform.LicenseStatus{IsValid: true}}
	g := NewLicenseGate(v, time.Minute)

	result := g.Evaluate(context.Background(), testSession())
	assert.Equal(t, StateAllowed, result.State)
	assert.True(t, result.Status.IsValid)
}

func TestLicenseGateInvalidBlocks(t *testing.T) {
	t.Parallel()

	v := &fakeValidator{status: platform.LicenseStatus{
		Reason:  platform.LicenseReasonNoSeats,
		Message: "All seats are assigned",
	}}
	g := NewLicenseGate(v, time.Minute)

	result := g.Evaluate(context.Background(), testSession())
	assert.Equal(t, StateBlocked, result.State)
	assert.Equal(t, platform.LicenseReasonNoSeats, result.Status.Reason)
}

func TestLicenseGateFirstFetchErrorIsLoading(t *testing.T) {
	t.Parallel()

	v := &fakeValidator{err: errors.New("upstream down")}
	g := NewLicenseGate(v, time.Minute)

	// A fetch error with no prior result must not render the blocked
	// screen; it is indistinguishable from "still loading" to the user.
	result := g.Evaluate(context.Background(), testSession())
	assert.Equal(t, StateLoading, result.State)
	assert.ErrorContains(t, result.Err, "upstream down")

	// Once the upstream recovers the next evaluation resolves.
	v.set(platform.LicenseStatus{IsValid: true}, nil)
	result = g.Evaluate(context.Background(), testSession())
	assert.Equal(t, StateAllowed, result.State)
	assert.NoError(t, result.Err)
}

func TestLicenseGateNoFlickerDuringRevalidation(t *testing.T) {
	t.Parallel()

	v := &fakeValidator{status: platform.LicenseStatus{IsValid: true}}
	g := NewLicenseGate(v, 0) // every evaluation is immediately stale

	sess := testSession()
	result := g.Evaluate(context.Background(), sess)
	require.Equal(t, StateAllowed, result.State)

	// The upstream starts failing. Revalidation errors must keep serving
	// the last known valid status instead of flickering to blocked.
	v.set(platform.LicenseStatus{}, errors.New("transient"))
	for range 5 {
		result = g.Evaluate(context.Background(), sess)
		assert.Equal(t, StateAllowed, result.State)
	}
}

func TestLicenseGateConfirmedInvalidReplacesStale(t *testing.T) {
	t.Parallel()

	v := &fakeValidator{status: platform.LicenseStatus{IsValid: true}}
	g := NewLicenseGate(v, 0)

	sess := testSession()
	require.Equal(t, StateAllowed, g.Evaluate(context.Background(), sess).State)

	// An affirmative invalid from the platform is not a transient error;
	// once the background refetch lands the gate must block.
	v.set(platform.LicenseStatus{Reason: platform.LicenseReasonExpired}, nil)
	require.Eventually(t, func() bool {
		return g.Evaluate(context.Background(), sess).State == StateBlocked
	}, 5*time.Second, 10*time.Millisecond)
}

func TestLicenseGateLoadingWhileFirstFetchInFlight(t *testing.T) {
	t.Parallel()

	v := &fakeValidator{
		status:  platform.LicenseStatus{IsValid: true},
		entered: make(chan struct{}),
		release: make(chan struct{}),
	}
	g := NewLicenseGate(v, time.Minute)
	sess := testSession()

	done := make(chan LicenseResult, 1)
	go func() {
		done <- g.Evaluate(context.Background(), sess)
	}()

	<-v.entered
	// Another request for the same org while the first fetch is in flight
	// sees the loading state instead of waiting.
	result := g.Evaluate(context.Background(), sess)
	assert.Equal(t, StateLoading, result.State)

	close(v.release)
	assert.Equal(t, StateAllowed, (<-done).State)
}

func TestLicenseGateInvalidate(t *testing.T) {
	t.Parallel()

	v := &fakeValidator{status: platform.LicenseStatus{IsValid: true}}
	g := NewLicenseGate(v, time.Hour)
	sess := testSession()

	g.Evaluate(context.Background(), sess)
	g.Evaluate(context.Background(), sess)
	assert.Equal(t, 1, v.callCount())

	g.Invalidate(sess.OrgID)
	g.Evaluate(context.Background(), sess)
	assert.Equal(t, 2, v.callCount())
}
