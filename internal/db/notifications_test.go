package db

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"portal-notification-service/internal/models"
)

// statusSequence scripts the states a concurrent writer leaves behind: read i
// returns states[i] (the last state repeats once exhausted) and every update
// before the final scripted state reports a lost guard.
type statusSequence struct {
	states  []models.ChannelStatus
	reads   int
	updates int
}

func (s *statusSequence) read() (models.ChannelStatus, error) {
	i := s.reads
	if i >= len(s.states) {
		i = len(s.states) - 1
	}
	s.reads++
	return s.states[i], nil
}

func (s *statusSequence) update(models.ChannelStatus) (bool, error) {
	s.updates++
	return s.reads >= len(s.states), nil
}

func TestApplyStatusUpdateFirstTry(t *testing.T) {
	seq := &statusSequence{states: []models.ChannelStatus{models.StatusPending}}
	require.NoError(t, applyStatusUpdate(models.StatusSent, seq.read, seq.update))
	assert.Equal(t, 1, seq.updates)
}

func TestApplyStatusUpdateRetriesLostRace(t *testing.T) {
	// both writers read the empty state; the other lands pending first, but
	// failed is still legal from pending and must go through on the re-read
	seq := &statusSequence{states: []models.ChannelStatus{"", models.StatusPending}}
	require.NoError(t, applyStatusUpdate(models.StatusFailed, seq.read, seq.update))
	assert.Equal(t, 2, seq.updates)
	assert.Equal(t, 2, seq.reads)
}

func TestApplyStatusUpdateRaceMakesTransitionIllegal(t *testing.T) {
	// the concurrent writer reached a terminal state; the late update becomes
	// a no-op, not an error
	seq := &statusSequence{states: []models.ChannelStatus{models.StatusPending, models.StatusFailed}}
	require.NoError(t, applyStatusUpdate(models.StatusSent, seq.read, seq.update))
	assert.Equal(t, 1, seq.updates)
}

func TestApplyStatusUpdateDisallowedTransitionIsNoOp(t *testing.T) {
	seq := &statusSequence{states: []models.ChannelStatus{models.StatusFailed}}
	require.NoError(t, applyStatusUpdate(models.StatusSent, seq.read, seq.update))
	assert.Zero(t, seq.updates)
}

func TestApplyStatusUpdateGivesUpUnderContention(t *testing.T) {
	read := func() (models.ChannelStatus, error) { return models.StatusPending, nil }
	update := func(models.ChannelStatus) (bool, error) { return false, nil }
	assert.Error(t, applyStatusUpdate(models.StatusSent, read, update))
}

func TestApplyStatusUpdatePropagatesReadError(t *testing.T) {
	read := func() (models.ChannelStatus, error) { return "", fmt.Errorf("connection reset") }
	update := func(models.ChannelStatus) (bool, error) { return true, nil }
	assert.Error(t, applyStatusUpdate(models.StatusSent, read, update))
}
