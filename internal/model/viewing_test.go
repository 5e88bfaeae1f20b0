package model

import (
    "testing"
    "time"

    "github.com/stretchr/testify/assert"
)

func TestViewingTransitions(t *testing.T) {
    assert.True(t, ViewingPending.CanTransitionTo(ViewingConfirmed))
    assert.True(t, ViewingPending.CanTransitionTo(ViewingRejected))
    assert.True(t, ViewingPending.CanTransitionTo(ViewingCancelled))
    assert.False(t, ViewingPending.CanTransitionTo(ViewingCompleted))

    assert.True(t, ViewingConfirmed.CanTransitionTo(ViewingCompleted))
    assert.True(t, ViewingConfirmed.CanTransitionTo(ViewingCancelled))
    assert.False(t, ViewingConfirmed.CanTransitionTo(ViewingRejected))

    for _, terminal := range []ViewingStatus{ViewingRejected, ViewingCompleted, ViewingCancelled} {
        assert.True(t, terminal.Terminal(), "%s", terminal)
        for _, target := range []ViewingStatus{ViewingPending, ViewingConfirmed, ViewingRejected, ViewingCompleted, ViewingCancelled} {
            assert.False(t, terminal.CanTransitionTo(target), "%s -> %s", terminal, target)
        }
    }

    assert.False(t, ViewingPending.Terminal())
    assert.False(t, ViewingConfirmed.Terminal())
}

func TestParseViewingStatus(t *testing.T) {
    st, ok := ParseViewingStatus("CONFIRMED")
    assert.True(t, ok)
    assert.Equal(t, ViewingConfirmed, st)

    _, ok = ParseViewingStatus("confirmed")
    assert.False(t, ok)
    _, ok = ParseViewingStatus("BOOKED")
    assert.False(t, ok)
}

func TestDateOnly(t *testing.T) {
    loc, err := time.LoadLocation("America/New_York")
    assert.NoError(t, err)

    // 23:30 New York is the next day in UTC.
    in := time.Date(2026, 9, 1, 23, 30, 0, 0, loc)
    assert.Equal(t, time.Date(2026, 9, 2, 0, 0, 0, 0, time.UTC), DateOnly(in))
}
