package models

import "time"

// DigestFrequency is the cadence of batched delivery.
type DigestFrequency string

const (
	DigestHourly DigestFrequency = "hourly"
	DigestDaily  DigestFrequency = "daily"
	DigestWeekly DigestFrequency = "weekly"
)

// TypeOverride is a per-notification-type preference override. An empty
// Channels slice falls back to the globally enabled channel map, an empty
// Level inherits the global minimum level.
type TypeOverride struct {
	Enabled  bool      `json:"enabled"`
	Channels []Channel `json:"channels,omitempty"`
	Level    Level     `json:"level,omitempty"`
}

// Preferences is one record per user, created lazily with system defaults on
// the first event for that user. Records are superseded by new versions,
// never deleted.
type Preferences struct {
	UserID            string                  `json:"user_id"`
	Enabled           bool                    `json:"enabled"`
	QuietHoursEnabled bool                    `json:"quiet_hours_enabled"`
	QuietHoursStart   string                  `json:"quiet_hours_start,omitempty"` // HH:mm
	QuietHoursEnd     string                  `json:"quiet_hours_end,omitempty"`   // HH:mm
	Timezone          string                  `json:"timezone,omitempty"`          // IANA name, empty means UTC
	Channels          map[Channel]bool        `json:"channels"`
	MinimumLevel      Level                   `json:"minimum_level"`
	TypeOverrides     map[string]TypeOverride `json:"type_overrides,omitempty"`
	DigestEnabled     bool                    `json:"digest_enabled"`
	DigestFrequency   DigestFrequency         `json:"digest_frequency,omitempty"`
	DigestTime        string                  `json:"digest_time,omitempty"` // HH:mm
	DigestWeekday     time.Weekday            `json:"digest_weekday,omitempty"`
	UpdatedAt         time.Time               `json:"updated_at"`
}

// DefaultPreferences returns the system defaults applied when a user has no
// stored record: everything on, in-app and email only, no quiet hours, no
// digest.
func DefaultPreferences(userID string) Preferences {
	return Preferences{
		UserID:  userID,
		Enabled: true,
		Channels: map[Channel]bool{
			ChannelInApp: true,
			ChannelEmail: true,
		},
		MinimumLevel:    LevelInfo,
		DigestFrequency: DigestDaily,
		DigestTime:      "08:00",
		DigestWeekday:   time.Monday,
	}
}

// EnabledChannels returns the channels switched on in the global map.
func (p Preferences) EnabledChannels() []Channel {
	var out []Channel
	for _, ch := range AllChannels {
		if p.Channels[ch] {
			out = append(out, ch)
		}
	}
	return out
}

// Location resolves the user's timezone, falling back to UTC when unset or
// unparseable.
func (p Preferences) Location() *time.Location {
	if p.Timezone == "" {
		return time.UTC
	}
	loc, err := time.LoadLocation(p.Timezone)
	if err != nil {
		return time.UTC
	}
	return loc
}
