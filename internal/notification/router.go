package notification

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"portal-notification-service/internal/models"
)

// RetryPolicy bounds delivery attempts for one channel.
type RetryPolicy struct {
	MaxAttempts    int
	InitialBackoff time.Duration
	MaxBackoff     time.Duration
}

// DefaultRetryPolicy is applied to channels without a dedicated policy.
var DefaultRetryPolicy = RetryPolicy{
	MaxAttempts:    3,
	InitialBackoff: time.Second,
	MaxBackoff:     30 * time.Second,
}

// Router fans a resolved notification out to its enabled channels. Channel
// sends run independently and in parallel; a failing channel never affects
// its siblings. Each send is bounded by the configured timeout and retried
// with exponential backoff up to the channel's policy.
type Router struct {
	store         Store
	templates     *TemplateStore
	senders       map[models.Channel]Sender
	policies      map[models.Channel]RetryPolicy
	defaultPolicy RetryPolicy
	sendTimeout   time.Duration
	log           *logrus.Logger
	now           func() time.Time
}

// NewRouter constructs a Router.
func NewRouter(store Store, templates *TemplateStore, senders map[models.Channel]Sender, sendTimeout time.Duration, log *logrus.Logger) *Router {
	if sendTimeout <= 0 {
		sendTimeout = 10 * time.Second
	}
	return &Router{
		store:         store,
		templates:     templates,
		senders:       senders,
		policies:      make(map[models.Channel]RetryPolicy),
		defaultPolicy: DefaultRetryPolicy,
		sendTimeout:   sendTimeout,
		log:           log,
		now:           time.Now,
	}
}

// SetRetryPolicy overrides the retry policy for one channel.
func (r *Router) SetRetryPolicy(ch models.Channel, p RetryPolicy) {
	r.policies[ch] = p
}

// SetDefaultRetryPolicy replaces the policy applied to channels without a
// dedicated one. A policy without at least one attempt is ignored.
func (r *Router) SetDefaultRetryPolicy(p RetryPolicy) {
	if p.MaxAttempts < 1 {
		return
	}
	r.defaultPolicy = p
}

func (r *Router) policy(ch models.Channel) RetryPolicy {
	if p, ok := r.policies[ch]; ok {
		return p
	}
	return r.defaultPolicy
}

// Dispatch delivers the notification on every resolved channel and returns
// the per-channel outcome once all channels have settled.
func (r *Router) Dispatch(ctx context.Context, n *models.Notification, resolved ResolvedDelivery) map[models.Channel]models.ChannelStatus {
	outcomes := make(map[models.Channel]models.ChannelStatus, len(resolved.Channels))
	var mu sync.Mutex
	var wg sync.WaitGroup

	for _, ch := range resolved.Channels {
		wg.Add(1)
		go func(ch models.Channel) {
			defer wg.Done()
			status := r.dispatchChannel(ctx, n, ch)
			mu.Lock()
			outcomes[ch] = status
			mu.Unlock()
		}(ch)
	}
	wg.Wait()

	return outcomes
}

// dispatchChannel runs the attempt loop for a single channel and returns its
// terminal status.
func (r *Router) dispatchChannel(ctx context.Context, n *models.Notification, ch models.Channel) models.ChannelStatus {
	log := r.log.WithFields(logrus.Fields{"notification_id": n.ID, "channel": ch})

	if n.IsExpired(r.now()) {
		log.Warn("Notification expired before dispatch")
		r.recordStatus(ctx, n.ID, ch, models.StatusFailed)
		return models.StatusFailed
	}

	sender, ok := r.senders[ch]
	if !ok {
		log.Errorf("No sender registered for channel %s", ch)
		r.recordStatus(ctx, n.ID, ch, models.StatusFailed)
		return models.StatusFailed
	}

	r.recordStatus(ctx, n.ID, ch, models.StatusPending)

	msg := r.templates.Render(n, ch)
	policy := r.policy(ch)
	backoff := policy.InitialBackoff

	var lastErr error
	for attempt := 1; attempt <= policy.MaxAttempts; attempt++ {
		if n.IsExpired(r.now()) {
			log.Warnf("Aborting attempt %d: %v", attempt, ErrExpired)
			r.recordStatus(ctx, n.ID, ch, models.StatusFailed)
			return models.StatusFailed
		}

		sendCtx, cancel := context.WithTimeout(ctx, r.sendTimeout)
		err := sender.Send(sendCtx, n, msg)
		cancel()

		if err == nil {
			r.recordStatus(ctx, n.ID, ch, models.StatusSent)
			log.Infof("Dispatched on attempt %d/%d", attempt, policy.MaxAttempts)
			return models.StatusSent
		}
		lastErr = err
		log.Errorf("Attempt %d/%d failed: %v", attempt, policy.MaxAttempts, err)

		if errors.Is(err, ErrPermanent) {
			break
		}
		if attempt < policy.MaxAttempts {
			select {
			case <-ctx.Done():
				r.recordStatus(ctx, n.ID, ch, models.StatusFailed)
				return models.StatusFailed
			case <-time.After(backoff):
			}
			backoff *= 2
			if policy.MaxBackoff > 0 && backoff > policy.MaxBackoff {
				backoff = policy.MaxBackoff
			}
		}
	}

	log.Errorf("Delivery failed permanently: %v", lastErr)
	r.recordStatus(ctx, n.ID, ch, models.StatusFailed)
	return models.StatusFailed
}

// recordStatus persists a channel-status transition. The store enforces
// monotonicity; a persistence failure is logged and does not abort delivery.
func (r *Router) recordStatus(ctx context.Context, id string, ch models.Channel, status models.ChannelStatus) {
	if err := r.store.UpdateChannelStatus(ctx, id, ch, status); err != nil {
		r.log.WithFields(logrus.Fields{"notification_id": id, "channel": ch}).
			Errorf("Status update to %s failed: %v", status, err)
	}
}
