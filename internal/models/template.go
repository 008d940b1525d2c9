package models

import "time"

// ChannelTemplate is one rendering variant of a notification type for a
// single channel.
type ChannelTemplate struct {
	Subject string `json:"subject,omitempty"`
	Title   string `json:"title"`
	Body    string `json:"body"`
	Format  string `json:"format,omitempty"` // text, html, markdown
}

// Template holds the per-channel content variants for one notification type
// plus the variables its bodies may reference and defaults for unset ones.
type Template struct {
	Type      string                      `json:"type"`
	Variants  map[Channel]ChannelTemplate `json:"variants"`
	Variables []string                    `json:"variables,omitempty"`
	Defaults  map[string]string           `json:"defaults,omitempty"`
	UpdatedAt time.Time                   `json:"updated_at"`
}

// Variant returns the rendering for the channel, falling back to the in-app
// variant when the channel has no dedicated content.
func (t Template) Variant(ch Channel) (ChannelTemplate, bool) {
	if v, ok := t.Variants[ch]; ok {
		return v, true
	}
	v, ok := t.Variants[ChannelInApp]
	return v, ok
}
