package notification

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/sirupsen/logrus"

	"portal-notification-service/internal/audit"
	"portal-notification-service/internal/config"
	"portal-notification-service/internal/models"
	"portal-notification-service/internal/utils"
)

var (
	mSubmitted = promauto.NewCounter(prometheus.CounterOpts{
		Name: "notification_submitted_total",
		Help: "Notifications accepted for processing",
	})
	mSuppressed = promauto.NewCounter(prometheus.CounterOpts{
		Name: "notification_suppressed_total",
		Help: "Notifications suppressed by preference resolution",
	})
	mDigested = promauto.NewCounter(prometheus.CounterOpts{
		Name: "notification_digested_total",
		Help: "Notifications deferred into a digest buffer",
	})
	mDispatched = promauto.NewCounter(prometheus.CounterOpts{
		Name: "notification_dispatched_total",
		Help: "Notifications handed to the delivery router",
	})
	mExpired = promauto.NewCounter(prometheus.CounterOpts{
		Name: "notification_expired_total",
		Help: "Notifications dropped because they expired",
	})
	mQueueFull = promauto.NewCounter(prometheus.CounterOpts{
		Name: "notification_queue_full_total",
		Help: "Notifications dropped because the task queue was full",
	})
)

// Service is the notification engine: it validates submissions, expands
// targets to recipients, resolves preferences, gates on quiet hours, buffers
// digests, and drives the delivery router. One logical task per incoming
// notification; processing for one user never blocks another.
type Service struct {
	store     Store
	prefs     PreferenceSource
	templates *TemplateStore
	directory Directory
	router    *Router
	digest    *DigestScheduler
	audit     audit.Recorder
	log       *logrus.Logger
	cfg       config.Config
	tasks     chan models.Notification
	ctx       context.Context
	cancel    context.CancelFunc
	wg        *sync.WaitGroup
	now       func() time.Time
}

// New constructs the engine Service.
func New(store Store, prefs PreferenceSource, templates *TemplateStore, directory Directory, router *Router, digest *DigestScheduler, rec audit.Recorder, log *logrus.Logger, cfg config.Config) *Service {
	ctx, cancel := context.WithCancel(context.Background())
	return &Service{
		store:     store,
		prefs:     prefs,
		templates: templates,
		directory: directory,
		router:    router,
		digest:    digest,
		audit:     rec,
		log:       log,
		cfg:       cfg,
		tasks:     make(chan models.Notification, cfg.Notification.QueueSize),
		ctx:       ctx,
		cancel:    cancel,
		now:       time.Now,
	}
}

// Logger exposes the Service's logger to the Kafka consumer or caller.
func (s *Service) Logger() *logrus.Logger {
	return s.log
}

// Store exposes the notification store to the API layer.
func (s *Service) Store() Store {
	return s.store
}

// Templates exposes the in-memory template store to the API layer.
func (s *Service) Templates() *TemplateStore {
	return s.templates
}

// Start launches the worker pool and the digest flush ticker.
func (s *Service) Start(wg *sync.WaitGroup) {
	s.wg = wg
	for i := 0; i < s.cfg.Notification.MaxWorkers; i++ {
		s.wg.Add(1)
		go s.worker(i)
	}
	s.wg.Add(1)
	go s.digestTicker()
}

// Close stops the workers and ticker.
func (s *Service) Close() {
	s.cancel()
}

// Submit validates an incoming notification, expands its target to concrete
// recipients via the directory, and queues one task per recipient. It
// rejects only structurally invalid input.
func (s *Service) Submit(ctx context.Context, n models.Notification) error {
	if n.Type == "" {
		return &ValidationError{Field: "type", Reason: "is required"}
	}
	if err := n.Target.Validate(); err != nil {
		return &ValidationError{Field: "target", Reason: err.Error()}
	}
	if n.Level == "" {
		n.Level = models.LevelInfo
	}
	if !n.Level.Valid() {
		return &ValidationError{Field: "level", Reason: "is not a known severity"}
	}
	if len(n.Channels) == 0 {
		// an event that does not constrain channels may use any of them
		n.Channels = append([]models.Channel(nil), models.AllChannels...)
	}
	if n.ID == "" {
		n.ID = uuid.New().String()
	}
	if n.CreatedAt.IsZero() {
		n.CreatedAt = s.now()
	}

	recipients, err := s.directory.ResolveTarget(ctx, n.Target)
	if err != nil {
		return err
	}
	if len(recipients) == 0 {
		s.log.Warnf("Notification %s resolves to no recipients", n.ID)
		return nil
	}

	for _, userID := range recipients {
		task := n.Clone()
		task.RecipientID = userID
		if len(recipients) > 1 {
			task.ID = uuid.New().String()
		}
		s.queue(task)
	}
	mSubmitted.Inc()
	return nil
}

// queue enqueues one per-recipient task for processing.
func (s *Service) queue(task models.Notification) {
	select {
	case s.tasks <- task:
		s.log.Debugf("Queued task: notification_id=%s user_id=%s", task.ID, task.RecipientID)
	default:
		mQueueFull.Inc()
		s.log.Errorf("Queue full, dropping task: notification_id=%s", task.ID)
	}
}

// worker processes tasks until the context is cancelled.
func (s *Service) worker(id int) {
	defer s.wg.Done()
	for {
		select {
		case <-s.ctx.Done():
			s.log.Infof("Worker %d stopped", id)
			return
		case task := <-s.tasks:
			s.handle(task)
		}
	}
}

// handle runs the resolution pipeline for one (notification, recipient)
// task. Preference reads are a snapshot: changes taking effect mid-flight
// never alter an already-resolved delivery.
func (s *Service) handle(n models.Notification) {
	now := s.now()

	if n.IsExpired(now) {
		mExpired.Inc()
		s.record(n, "expired", ReasonExpired, nil)
		return
	}

	prefs := s.preferences(n.RecipientID)

	resolved, suppressed := Resolve(&n, prefs)
	if suppressed != nil {
		mSuppressed.Inc()
		s.log.Debugf("Notification %s suppressed for user %s: %s", n.ID, n.RecipientID, suppressed.Reason)
		s.record(n, "suppressed", suppressed.Reason, nil)
		return
	}

	// carry the effective channel set and level into the stored record
	n.Channels = resolved.Channels
	n.Level = resolved.Level

	if s.shouldDefer(&n, prefs, now) {
		n.ChannelStatus = make(map[models.Channel]models.ChannelStatus, len(resolved.Channels))
		for _, ch := range resolved.Channels {
			n.ChannelStatus[ch] = models.StatusPending
		}
		s.saveWithRetry(n)
		s.digest.Enqueue(n.RecipientID, n)
		mDigested.Inc()
		s.record(n, "digested", "", resolved.Channels)
		return
	}

	s.saveWithRetry(n)
	s.dispatch(n, resolved)
}

// shouldDefer decides between immediate dispatch and the digest buffer.
// Critical notifications are always immediate; digest preference and quiet
// hours both defer; a future scheduled_for defers until its time.
func (s *Service) shouldDefer(n *models.Notification, prefs models.Preferences, now time.Time) bool {
	if n.ScheduledFor != nil && n.ScheduledFor.After(now) {
		return true
	}
	if n.Level == models.LevelCritical {
		return false
	}
	return prefs.DigestEnabled || IsQuietNow(prefs, now)
}

// dispatch hands a resolved notification to the router and audits the
// outcome.
func (s *Service) dispatch(n models.Notification, resolved ResolvedDelivery) {
	mDispatched.Inc()
	outcomes := s.router.Dispatch(s.ctx, &n, resolved)
	for ch, st := range outcomes {
		if n.ChannelStatus == nil {
			n.ChannelStatus = make(map[models.Channel]models.ChannelStatus)
		}
		n.ChannelStatus[ch] = st
	}
	if n.Settled() {
		s.log.Infof("Notification %s settled for user %s", n.ID, n.RecipientID)
	}
	s.record(n, "dispatched", "", resolved.Channels)
}

// digestTicker fires once a minute and flushes due digest buffers.
func (s *Service) digestTicker() {
	defer s.wg.Done()
	ticker := time.NewTicker(time.Minute)
	defer ticker.Stop()
	for {
		select {
		case <-s.ctx.Done():
			return
		case <-ticker.C:
			s.FlushDigests(s.now())
		}
	}
}

// FlushDigests drains every buffer whose owner's cadence fires at now. A
// user who disabled digests mid-cycle has their buffer released immediately
// as individual deliveries once outside quiet hours; it is never silently
// dropped. Digest delivery bypasses quiet-hours suppression: the content was
// already deferred once.
func (s *Service) FlushDigests(now time.Time) {
	for _, userID := range s.digest.UserIDs() {
		prefs := s.preferences(userID)

		if prefs.DigestEnabled {
			if Due(prefs, now) {
				s.flushUser(userID, now)
			}
			continue
		}
		if IsQuietNow(prefs, now) {
			continue
		}
		s.flushUser(userID, now)
	}
}

// flushUser drains one buffer and routes its content in enqueue order. Items
// scheduled for a later time go back into the buffer.
func (s *Service) flushUser(userID string, now time.Time) {
	buffered := s.digest.Flush(userID)
	for _, n := range buffered {
		if n.ScheduledFor != nil && n.ScheduledFor.After(now) {
			s.digest.Enqueue(userID, n)
			continue
		}
		s.dispatch(n, ResolvedDelivery{Channels: n.Channels, Level: n.Level})
	}
}

// OnDeliveryReceipt applies an asynchronous delivery confirmation from a
// channel that supports receipts.
func (s *Service) OnDeliveryReceipt(ctx context.Context, id string, ch models.Channel) error {
	return s.store.UpdateChannelStatus(ctx, id, ch, models.StatusDelivered)
}

// preferences fetches the recipient's preference snapshot, falling back to
// system defaults when the source is unavailable.
func (s *Service) preferences(userID string) models.Preferences {
	prefs, err := s.prefs.GetPreferences(s.ctx, userID)
	if err != nil {
		s.log.Errorf("Preference lookup failed for user %s, using defaults: %v", userID, err)
		return models.DefaultPreferences(userID)
	}
	return prefs
}

// saveWithRetry persists the notification record. A resolved decision is
// never lost solely because persistence was momentarily down: on failure the
// write is retried in the background, independently of channel retries.
func (s *Service) saveWithRetry(n models.Notification) {
	if err := s.store.Save(s.ctx, n); err != nil {
		s.log.Errorf("Save failed for notification %s, retrying in background: %v", n.ID, err)
		go func() {
			_ = utils.Retry(s.ctx, s.log, 5, time.Second, func(ctx context.Context) error {
				return s.store.Save(ctx, n)
			})
		}()
	}
}

// record emits a best-effort audit event; failures never block delivery.
func (s *Service) record(n models.Notification, decision, reason string, channels []models.Channel) {
	s.audit.Record(s.ctx, audit.Event{
		NotificationID: n.ID,
		RecipientID:    n.RecipientID,
		Decision:       decision,
		Reason:         reason,
		Channels:       channels,
		Timestamp:      s.now(),
	})
}
