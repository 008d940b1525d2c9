package notification

import (
	"context"
	"fmt"
	"io"
	"sync"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"portal-notification-service/internal/models"
)

func testLogger() *logrus.Logger {
	logger := logrus.New()
	logger.SetOutput(io.Discard)
	return logger
}

// fakeSender returns errs[i] on call i and nil once the script runs out.
type fakeSender struct {
	mu    sync.Mutex
	errs  []error
	calls int
}

func (f *fakeSender) Send(_ context.Context, _ *models.Notification, _ RenderedMessage) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	if f.calls <= len(f.errs) {
		return f.errs[f.calls-1]
	}
	return nil
}

func (f *fakeSender) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}

func fastPolicy(attempts int) RetryPolicy {
	return RetryPolicy{MaxAttempts: attempts, InitialBackoff: time.Millisecond, MaxBackoff: 2 * time.Millisecond}
}

func newTestRouter(store Store, senders map[models.Channel]Sender) *Router {
	r := NewRouter(store, NewTemplateStore(), senders, time.Second, testLogger())
	for ch := range senders {
		r.SetRetryPolicy(ch, fastPolicy(3))
	}
	return r
}

func TestRouterDispatchSuccess(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()
	sender := &fakeSender{}
	r := newTestRouter(store, map[models.Channel]Sender{models.ChannelEmail: sender})

	n := models.Notification{ID: "n1", RecipientID: "u1"}
	require.NoError(t, store.Save(ctx, n))

	outcomes := r.Dispatch(ctx, &n, ResolvedDelivery{Channels: []models.Channel{models.ChannelEmail}})
	assert.Equal(t, models.StatusSent, outcomes[models.ChannelEmail])
	assert.Equal(t, 1, sender.callCount())

	stored, err := store.Get(ctx, "n1")
	require.NoError(t, err)
	assert.Equal(t, models.StatusSent, stored.ChannelStatus[models.ChannelEmail])
}

func TestRouterRetriesTransientFailure(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()
	sender := &fakeSender{errs: []error{fmt.Errorf("connection reset"), fmt.Errorf("timeout")}}
	r := newTestRouter(store, map[models.Channel]Sender{models.ChannelSMS: sender})

	n := models.Notification{ID: "n1", RecipientID: "u1"}
	require.NoError(t, store.Save(ctx, n))

	outcomes := r.Dispatch(ctx, &n, ResolvedDelivery{Channels: []models.Channel{models.ChannelSMS}})
	assert.Equal(t, models.StatusSent, outcomes[models.ChannelSMS])
	assert.Equal(t, 3, sender.callCount())
}

func TestRouterExhaustsAttempts(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()
	sender := &fakeSender{errs: []error{
		fmt.Errorf("down"), fmt.Errorf("down"), fmt.Errorf("down"), fmt.Errorf("down"),
	}}
	r := newTestRouter(store, map[models.Channel]Sender{models.ChannelSMS: sender})

	n := models.Notification{ID: "n1", RecipientID: "u1"}
	require.NoError(t, store.Save(ctx, n))

	outcomes := r.Dispatch(ctx, &n, ResolvedDelivery{Channels: []models.Channel{models.ChannelSMS}})
	assert.Equal(t, models.StatusFailed, outcomes[models.ChannelSMS])
	assert.Equal(t, 3, sender.callCount())

	stored, err := store.Get(ctx, "n1")
	require.NoError(t, err)
	assert.Equal(t, models.StatusFailed, stored.ChannelStatus[models.ChannelSMS])
}

func TestRouterDefaultPolicyIsConfigurable(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()
	sender := &fakeSender{errs: []error{
		fmt.Errorf("down"), fmt.Errorf("down"), fmt.Errorf("down"),
	}}
	r := NewRouter(store, NewTemplateStore(), map[models.Channel]Sender{models.ChannelEmail: sender}, time.Second, testLogger())
	r.SetDefaultRetryPolicy(RetryPolicy{MaxAttempts: 2, InitialBackoff: time.Millisecond, MaxBackoff: 2 * time.Millisecond})

	n := models.Notification{ID: "n1", RecipientID: "u1"}
	require.NoError(t, store.Save(ctx, n))

	outcomes := r.Dispatch(ctx, &n, ResolvedDelivery{Channels: []models.Channel{models.ChannelEmail}})
	assert.Equal(t, models.StatusFailed, outcomes[models.ChannelEmail])
	assert.Equal(t, 2, sender.callCount(), "channel without a dedicated policy uses the configured default")
}

func TestRouterDefaultPolicyRejectsZeroAttempts(t *testing.T) {
	r := NewRouter(NewMemoryStore(), NewTemplateStore(), nil, time.Second, testLogger())
	r.SetDefaultRetryPolicy(RetryPolicy{})
	assert.Equal(t, DefaultRetryPolicy, r.policy(models.ChannelEmail))
}

func TestRouterPermanentErrorStopsRetries(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()
	sender := &fakeSender{errs: []error{fmt.Errorf("no address on file: %w", ErrPermanent)}}
	r := newTestRouter(store, map[models.Channel]Sender{models.ChannelEmail: sender})

	n := models.Notification{ID: "n1", RecipientID: "u1"}
	require.NoError(t, store.Save(ctx, n))

	outcomes := r.Dispatch(ctx, &n, ResolvedDelivery{Channels: []models.Channel{models.ChannelEmail}})
	assert.Equal(t, models.StatusFailed, outcomes[models.ChannelEmail])
	assert.Equal(t, 1, sender.callCount())
}

func TestRouterChannelsAreIsolated(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()
	good := &fakeSender{}
	bad := &fakeSender{errs: []error{fmt.Errorf("boom: %w", ErrPermanent)}}
	r := newTestRouter(store, map[models.Channel]Sender{
		models.ChannelEmail: good,
		models.ChannelSMS:   bad,
	})

	n := models.Notification{ID: "n1", RecipientID: "u1"}
	require.NoError(t, store.Save(ctx, n))

	outcomes := r.Dispatch(ctx, &n, ResolvedDelivery{Channels: []models.Channel{models.ChannelEmail, models.ChannelSMS}})
	assert.Equal(t, models.StatusSent, outcomes[models.ChannelEmail])
	assert.Equal(t, models.StatusFailed, outcomes[models.ChannelSMS])
}

func TestRouterMissingSenderFails(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()
	r := newTestRouter(store, map[models.Channel]Sender{})

	n := models.Notification{ID: "n1", RecipientID: "u1"}
	require.NoError(t, store.Save(ctx, n))

	outcomes := r.Dispatch(ctx, &n, ResolvedDelivery{Channels: []models.Channel{models.ChannelWebhook}})
	assert.Equal(t, models.StatusFailed, outcomes[models.ChannelWebhook])

	stored, err := store.Get(ctx, "n1")
	require.NoError(t, err)
	assert.Equal(t, models.StatusFailed, stored.ChannelStatus[models.ChannelWebhook])
}

func TestRouterExpiredBeforeDispatch(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()
	sender := &fakeSender{}
	r := newTestRouter(store, map[models.Channel]Sender{models.ChannelEmail: sender})

	past := time.Now().Add(-time.Minute)
	n := models.Notification{ID: "n1", RecipientID: "u1", ExpiresAt: &past}
	require.NoError(t, store.Save(ctx, n))

	outcomes := r.Dispatch(ctx, &n, ResolvedDelivery{Channels: []models.Channel{models.ChannelEmail}})
	assert.Equal(t, models.StatusFailed, outcomes[models.ChannelEmail])
	assert.Zero(t, sender.callCount(), "expired notifications never reach the sender")
}

func TestRouterExpiryCheckedBetweenAttempts(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()
	sender := &fakeSender{errs: []error{fmt.Errorf("down"), fmt.Errorf("down")}}
	r := newTestRouter(store, map[models.Channel]Sender{models.ChannelEmail: sender})

	base := time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)
	expiry := base.Add(30 * time.Second)
	n := models.Notification{ID: "n1", RecipientID: "u1", ExpiresAt: &expiry}
	require.NoError(t, store.Save(ctx, n))

	// valid for the pre-check and the first attempt, expired afterwards
	calls := 0
	r.now = func() time.Time {
		calls++
		if calls <= 2 {
			return base
		}
		return base.Add(time.Minute)
	}

	outcomes := r.Dispatch(ctx, &n, ResolvedDelivery{Channels: []models.Channel{models.ChannelEmail}})
	assert.Equal(t, models.StatusFailed, outcomes[models.ChannelEmail])
	assert.Equal(t, 1, sender.callCount())
}
