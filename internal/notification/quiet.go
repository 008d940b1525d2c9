package notification

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"portal-notification-service/internal/models"
)

// IsQuietNow reports whether now (interpreted in the user's timezone) falls
// inside the configured quiet-hours window. The window end is exclusive; a
// start after the end wraps overnight (e.g. 22:00-06:00). Critical
// notifications bypass quiet hours entirely, but that rule lives in the
// engine, not here.
func IsQuietNow(prefs models.Preferences, now time.Time) bool {
	if !prefs.QuietHoursEnabled {
		return false
	}
	start, err := parseClock(prefs.QuietHoursStart)
	if err != nil {
		return false
	}
	end, err := parseClock(prefs.QuietHoursEnd)
	if err != nil {
		return false
	}

	local := now.In(prefs.Location())
	minute := local.Hour()*60 + local.Minute()

	if start <= end {
		return minute >= start && minute < end
	}
	// overnight wraparound
	return minute >= start || minute < end
}

// parseClock converts "HH:mm" to minutes since midnight.
func parseClock(s string) (int, error) {
	parts := strings.SplitN(s, ":", 2)
	if len(parts) != 2 {
		return 0, fmt.Errorf("invalid clock value %q", s)
	}
	h, err := strconv.Atoi(parts[0])
	if err != nil || h < 0 || h > 23 {
		return 0, fmt.Errorf("invalid hour in %q", s)
	}
	m, err := strconv.Atoi(parts[1])
	if err != nil || m < 0 || m > 59 {
		return 0, fmt.Errorf("invalid minute in %q", s)
	}
	return h*60 + m, nil
}
