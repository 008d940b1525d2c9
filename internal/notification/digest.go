package notification

import (
	"sync"
	"time"

	"portal-notification-service/internal/models"
)

// DigestScheduler buffers notifications deferred from immediate delivery and
// drains them per user when the configured cadence fires. Enqueue and Flush
// are safe under concurrent use from multiple event sources; a flush for one
// user never contends with another user's buffer beyond the map lock.
type DigestScheduler struct {
	mu      sync.Mutex
	buffers map[string][]models.Notification
}

// NewDigestScheduler constructs an empty scheduler.
func NewDigestScheduler() *DigestScheduler {
	return &DigestScheduler{buffers: make(map[string][]models.Notification)}
}

// Enqueue appends a resolved notification to the user's pending buffer.
func (d *DigestScheduler) Enqueue(userID string, n models.Notification) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.buffers[userID] = append(d.buffers[userID], n)
}

// Flush atomically drains and returns the user's buffer in enqueue order.
func (d *DigestScheduler) Flush(userID string) []models.Notification {
	d.mu.Lock()
	defer d.mu.Unlock()
	buffered := d.buffers[userID]
	delete(d.buffers, userID)
	return buffered
}

// Pending returns the number of buffered notifications for a user.
func (d *DigestScheduler) Pending(userID string) int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return len(d.buffers[userID])
}

// UserIDs returns every user with a non-empty buffer.
func (d *DigestScheduler) UserIDs() []string {
	d.mu.Lock()
	defer d.mu.Unlock()
	ids := make([]string, 0, len(d.buffers))
	for id := range d.buffers {
		ids = append(ids, id)
	}
	return ids
}

// Due reports whether the user's digest cadence fires at now (interpreted in
// the user's timezone, minute granularity). Hourly matches the minute of
// digestTime every hour, daily matches HH:mm, weekly additionally matches the
// configured weekday.
func Due(prefs models.Preferences, now time.Time) bool {
	if !prefs.DigestEnabled {
		return false
	}
	at, err := parseClock(prefs.DigestTime)
	if err != nil {
		return false
	}
	local := now.In(prefs.Location())
	minute := local.Hour()*60 + local.Minute()

	switch prefs.DigestFrequency {
	case models.DigestHourly:
		return local.Minute() == at%60
	case models.DigestDaily:
		return minute == at
	case models.DigestWeekly:
		return local.Weekday() == prefs.DigestWeekday && minute == at
	default:
		return false
	}
}
