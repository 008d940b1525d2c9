package notification

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"portal-notification-service/internal/models"
)

func TestCanTransitionForwardOnly(t *testing.T) {
	assert.True(t, CanTransition("", models.StatusPending))
	assert.True(t, CanTransition("", models.StatusFailed))
	assert.True(t, CanTransition(models.StatusPending, models.StatusSent))
	assert.True(t, CanTransition(models.StatusPending, models.StatusFailed))
	assert.True(t, CanTransition(models.StatusSent, models.StatusDelivered))

	assert.False(t, CanTransition("", models.StatusSent))
	assert.False(t, CanTransition("", models.StatusDelivered))
	assert.False(t, CanTransition(models.StatusPending, models.StatusDelivered))
	assert.False(t, CanTransition(models.StatusSent, models.StatusPending))
	assert.False(t, CanTransition(models.StatusSent, models.StatusFailed))
}

func TestCanTransitionTerminalStatesAreImmutable(t *testing.T) {
	for _, to := range []models.ChannelStatus{models.StatusPending, models.StatusSent, models.StatusDelivered} {
		assert.False(t, CanTransition(models.StatusFailed, to))
	}
	for _, to := range []models.ChannelStatus{models.StatusPending, models.StatusSent, models.StatusFailed} {
		assert.False(t, CanTransition(models.StatusDelivered, to))
	}
}

func TestCanTransitionIdempotent(t *testing.T) {
	for _, st := range []models.ChannelStatus{models.StatusPending, models.StatusSent, models.StatusDelivered, models.StatusFailed} {
		assert.True(t, CanTransition(st, st))
	}
}
