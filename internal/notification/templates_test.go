package notification

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"portal-notification-service/internal/models"
)

func TestRenderSubstitutesDataThenDefaults(t *testing.T) {
	store := NewTemplateStore()
	require.NoError(t, store.Register(models.Template{
		Type: "deploy.finished",
		Variants: map[models.Channel]models.ChannelTemplate{
			models.ChannelEmail: {
				Subject: "Deploy of {{service}} {{outcome}}",
				Body:    "Service {{service}} finished in {{duration}} ({{region}})",
				Format:  "html",
			},
		},
		Defaults: map[string]string{"region": "eu-west", "outcome": "done"},
	}))

	n := models.Notification{
		Type: "deploy.finished",
		Data: map[string]any{"service": "billing", "duration": 42},
	}
	msg := store.Render(&n, models.ChannelEmail)

	assert.Equal(t, "Deploy of billing done", msg.Subject)
	assert.Equal(t, "Service billing finished in 42 (eu-west)", msg.Body)
	assert.Equal(t, "html", msg.Format)
}

func TestRenderMissingVariableBecomesEmpty(t *testing.T) {
	store := NewTemplateStore()
	require.NoError(t, store.Register(models.Template{
		Type: "alert",
		Variants: map[models.Channel]models.ChannelTemplate{
			models.ChannelInApp: {Title: "Alert: {{ missing }}"},
		},
	}))

	msg := store.Render(&models.Notification{Type: "alert"}, models.ChannelInApp)
	assert.Equal(t, "Alert: ", msg.Title)
}

func TestRenderMissingTemplateFallsBackToNotification(t *testing.T) {
	store := NewTemplateStore()

	n := models.Notification{Type: "unknown", Title: "Raw title", Message: "Raw body"}
	msg := store.Render(&n, models.ChannelEmail)

	assert.Equal(t, "Raw title", msg.Title)
	assert.Equal(t, "Raw body", msg.Body)
	assert.Empty(t, msg.Subject)
}

func TestRenderMissingVariantFallsBackToInApp(t *testing.T) {
	store := NewTemplateStore()
	require.NoError(t, store.Register(models.Template{
		Type: "alert",
		Variants: map[models.Channel]models.ChannelTemplate{
			models.ChannelInApp: {Title: "In-app title", Body: "In-app body"},
		},
	}))

	msg := store.Render(&models.Notification{Type: "alert"}, models.ChannelSMS)
	assert.Equal(t, "In-app title", msg.Title)
	assert.Equal(t, "In-app body", msg.Body)
}

func TestRegisterRequiresType(t *testing.T) {
	store := NewTemplateStore()
	assert.Error(t, store.Register(models.Template{}))

	_, err := store.GetTemplate("nope")
	assert.ErrorIs(t, err, ErrTemplateNotFound)
}
