package notification

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"portal-notification-service/internal/models"
)

func quietPrefs(start, end string) models.Preferences {
	return models.Preferences{
		UserID:            "u1",
		Enabled:           true,
		QuietHoursEnabled: true,
		QuietHoursStart:   start,
		QuietHoursEnd:     end,
	}
}

func at(hour, min int) time.Time {
	return time.Date(2026, 3, 10, hour, min, 0, 0, time.UTC)
}

func TestIsQuietNowOvernightWindow(t *testing.T) {
	prefs := quietPrefs("22:00", "06:00")

	assert.True(t, IsQuietNow(prefs, at(23, 30)))
	assert.True(t, IsQuietNow(prefs, at(2, 0)))
	assert.True(t, IsQuietNow(prefs, at(22, 0)), "start is inclusive")
	assert.False(t, IsQuietNow(prefs, at(6, 0)), "end is exclusive")
	assert.False(t, IsQuietNow(prefs, at(12, 0)))
}

func TestIsQuietNowSameDayWindow(t *testing.T) {
	prefs := quietPrefs("13:00", "14:00")

	assert.True(t, IsQuietNow(prefs, at(13, 0)))
	assert.True(t, IsQuietNow(prefs, at(13, 59)))
	assert.False(t, IsQuietNow(prefs, at(14, 0)))
	assert.False(t, IsQuietNow(prefs, at(12, 59)))
}

func TestIsQuietNowDisabled(t *testing.T) {
	prefs := quietPrefs("00:00", "23:59")
	prefs.QuietHoursEnabled = false

	assert.False(t, IsQuietNow(prefs, at(12, 0)))
}

func TestIsQuietNowUsesUserTimezone(t *testing.T) {
	prefs := quietPrefs("22:00", "06:00")
	prefs.Timezone = "Asia/Tokyo"

	// 14:00 UTC is 23:00 in Tokyo
	assert.True(t, IsQuietNow(prefs, at(14, 0)))
	// 03:00 UTC is 12:00 in Tokyo
	assert.False(t, IsQuietNow(prefs, at(3, 0)))
}

func TestIsQuietNowInvalidClockDisablesWindow(t *testing.T) {
	assert.False(t, IsQuietNow(quietPrefs("25:00", "06:00"), at(23, 0)))
	assert.False(t, IsQuietNow(quietPrefs("22:00", "junk"), at(23, 0)))
	assert.False(t, IsQuietNow(quietPrefs("", ""), at(23, 0)))
}
