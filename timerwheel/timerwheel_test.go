package timerwheel_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/crossroads-io/xscore/timerwheel"
)

func TestNextDeadlineEmpty(t *testing.T) {
	w := timerwheel.New()
	_, ok := w.NextDeadline()
	assert.False(t, ok)
	assert.Equal(t, 0, w.Len())
}

func TestFireExpiredOrdersBySoonestFirst(t *testing.T) {
	w := timerwheel.New()
	var fired []int

	base := time.Now()
	w.AddTimer(30*time.Millisecond, func() { fired = append(fired, 3) })
	w.AddTimer(10*time.Millisecond, func() { fired = append(fired, 1) })
	w.AddTimer(20*time.Millisecond, func() { fired = append(fired, 2) })

	require.Equal(t, 3, w.Len())
	w.FireExpired(base.Add(25 * time.Millisecond))
	assert.Equal(t, []int{1, 2}, fired)
	assert.Equal(t, 1, w.Len())

	w.FireExpired(base.Add(100 * time.Millisecond))
	assert.Equal(t, []int{1, 2, 3}, fired)
	assert.Equal(t, 0, w.Len())
}

func TestRmTimerCancelsPending(t *testing.T) {
	w := timerwheel.New()
	fired := false
	id := w.AddTimer(5*time.Millisecond, func() { fired = true })
	w.RmTimer(id)
	w.FireExpired(time.Now().Add(time.Hour))
	assert.False(t, fired)
	assert.Equal(t, 0, w.Len())
}

func TestRmTimerAlreadyFiredIsNoop(t *testing.T) {
	w := timerwheel.New()
	id := w.AddTimer(time.Millisecond, func() {})
	w.FireExpired(time.Now().Add(time.Hour))
	assert.NotPanics(t, func() { w.RmTimer(id) })
}

func TestNextDeadlineReflectsSoonest(t *testing.T) {
	w := timerwheel.New()
	now := time.Now()
	w.AddTimer(50*time.Millisecond, func() {})
	soonID := w.AddTimer(5*time.Millisecond, func() {})

	d, ok := w.NextDeadline()
	require.True(t, ok)
	assert.WithinDuration(t, now.Add(5*time.Millisecond), d, 20*time.Millisecond)

	w.RmTimer(soonID)
	d, ok = w.NextDeadline()
	require.True(t, ok)
	assert.WithinDuration(t, now.Add(50*time.Millisecond), d, 20*time.Millisecond)
}
