package notification

import (
	"fmt"
	"regexp"
	"sync"

	"portal-notification-service/internal/models"
)

// RenderedMessage is the channel-specific content handed to a sender.
type RenderedMessage struct {
	Subject string
	Title   string
	Body    string
	Format  string
}

// TemplateStore holds one template per notification type with per-channel
// content variants.
type TemplateStore struct {
	mu     sync.RWMutex
	byType map[string]models.Template
}

// NewTemplateStore constructs an empty store.
func NewTemplateStore() *TemplateStore {
	return &TemplateStore{byType: make(map[string]models.Template)}
}

// Register adds or replaces the template for a type.
func (s *TemplateStore) Register(t models.Template) error {
	if t.Type == "" {
		return fmt.Errorf("template type is required")
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.byType[t.Type] = t
	return nil
}

// GetTemplate returns the template for a type, or ErrTemplateNotFound.
func (s *TemplateStore) GetTemplate(typ string) (models.Template, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	t, ok := s.byType[typ]
	if !ok {
		return models.Template{}, ErrTemplateNotFound
	}
	return t, nil
}

// Render produces the channel content for a notification. A missing template
// or missing variant falls back to the notification's own title and message
// with no channel-specific content. Missing variables fall back to the
// template defaults, then to the empty string; they are never fatal.
func (s *TemplateStore) Render(n *models.Notification, ch models.Channel) RenderedMessage {
	tpl, err := s.GetTemplate(n.Type)
	if err != nil {
		return RenderedMessage{Title: n.Title, Body: n.Message}
	}
	variant, ok := tpl.Variant(ch)
	if !ok {
		return RenderedMessage{Title: n.Title, Body: n.Message}
	}
	return RenderedMessage{
		Subject: substitute(variant.Subject, n.Data, tpl.Defaults),
		Title:   substitute(variant.Title, n.Data, tpl.Defaults),
		Body:    substitute(variant.Body, n.Data, tpl.Defaults),
		Format:  variant.Format,
	}
}

var placeholderRe = regexp.MustCompile(`\{\{\s*([A-Za-z0-9_.]+)\s*\}\}`)

// substitute replaces {{name}} placeholders with notification data values,
// falling back to template defaults, then to the empty string.
func substitute(text string, data map[string]any, defaults map[string]string) string {
	if text == "" {
		return ""
	}
	return placeholderRe.ReplaceAllStringFunc(text, func(match string) string {
		name := placeholderRe.FindStringSubmatch(match)[1]
		if v, ok := data[name]; ok {
			return fmt.Sprint(v)
		}
		if v, ok := defaults[name]; ok {
			return v
		}
		return ""
	})
}
