package notification

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"portal-notification-service/internal/models"
)

func TestDigestFlushDrainsInOrder(t *testing.T) {
	d := NewDigestScheduler()
	d.Enqueue("u1", models.Notification{ID: "a"})
	d.Enqueue("u1", models.Notification{ID: "b"})
	d.Enqueue("u1", models.Notification{ID: "c"})
	d.Enqueue("u2", models.Notification{ID: "x"})

	require.Equal(t, 3, d.Pending("u1"))

	buffered := d.Flush("u1")
	require.Len(t, buffered, 3)
	assert.Equal(t, "a", buffered[0].ID)
	assert.Equal(t, "b", buffered[1].ID)
	assert.Equal(t, "c", buffered[2].ID)

	assert.Empty(t, d.Flush("u1"), "second flush is empty")
	assert.Equal(t, 1, d.Pending("u2"), "other buffers are untouched")
}

func TestDigestUserIDs(t *testing.T) {
	d := NewDigestScheduler()
	assert.Empty(t, d.UserIDs())

	d.Enqueue("u1", models.Notification{ID: "a"})
	d.Enqueue("u2", models.Notification{ID: "b"})
	assert.ElementsMatch(t, []string{"u1", "u2"}, d.UserIDs())

	d.Flush("u1")
	assert.Equal(t, []string{"u2"}, d.UserIDs())
}

func TestDueDaily(t *testing.T) {
	prefs := models.Preferences{
		DigestEnabled:   true,
		DigestFrequency: models.DigestDaily,
		DigestTime:      "08:30",
	}

	assert.True(t, Due(prefs, at(8, 30)))
	assert.False(t, Due(prefs, at(8, 31)))
	assert.False(t, Due(prefs, at(20, 30)))
}

func TestDueHourlyMatchesMinute(t *testing.T) {
	prefs := models.Preferences{
		DigestEnabled:   true,
		DigestFrequency: models.DigestHourly,
		DigestTime:      "08:15",
	}

	assert.True(t, Due(prefs, at(8, 15)))
	assert.True(t, Due(prefs, at(21, 15)))
	assert.False(t, Due(prefs, at(21, 16)))
}

func TestDueWeekly(t *testing.T) {
	prefs := models.Preferences{
		DigestEnabled:   true,
		DigestFrequency: models.DigestWeekly,
		DigestTime:      "09:00",
		DigestWeekday:   time.Tuesday,
	}

	// 2026-03-10 is a Tuesday
	assert.True(t, Due(prefs, at(9, 0)))
	assert.False(t, Due(prefs, at(9, 0).AddDate(0, 0, 1)))
}

func TestDueRespectsTimezone(t *testing.T) {
	prefs := models.Preferences{
		DigestEnabled:   true,
		DigestFrequency: models.DigestDaily,
		DigestTime:      "08:00",
		Timezone:        "Asia/Tokyo",
	}

	// 23:00 UTC is 08:00 next day in Tokyo
	assert.True(t, Due(prefs, at(23, 0)))
	assert.False(t, Due(prefs, at(8, 0)))
}

func TestDueDisabledOrInvalid(t *testing.T) {
	prefs := models.Preferences{
		DigestEnabled:   false,
		DigestFrequency: models.DigestDaily,
		DigestTime:      "08:00",
	}
	assert.False(t, Due(prefs, at(8, 0)))

	prefs.DigestEnabled = true
	prefs.DigestTime = "bogus"
	assert.False(t, Due(prefs, at(8, 0)))
}
