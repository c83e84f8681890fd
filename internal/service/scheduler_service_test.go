package service

import (
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDailySpec(t *testing.T) {
	spec, err := DailySpec("09:30")
	require.NoError(t, err)
	assert.Equal(t, "0 30 9 * * *", spec)

	spec, err = DailySpec("23:05")
	require.NoError(t, err)
	assert.Equal(t, "0 5 23 * * *", spec)

	for _, bad := range []string{"", "9", "24:00", "12:60", "ab:cd", "12:00:00"} {
		_, err := DailySpec(bad)
		assert.Error(t, err, bad)
	}
}

func TestSchedulerService_Register(t *testing.T) {
	s := NewSchedulerService(time.UTC)

	_, err := s.ScheduleInterval(0, func() {})
	assert.Error(t, err)
	_, err = s.ScheduleDaily("25:00", func() {})
	assert.Error(t, err)

	id, err := s.ScheduleDaily("08:00", func() {})
	require.NoError(t, err)
	_, err = s.ScheduleInterval(5*time.Hour, func() {})
	require.NoError(t, err)
	assert.Equal(t, 2, s.Entries())

	s.Start()
	defer s.Stop()
	// Entry times are only computed once the scheduler runs.
	require.Eventually(t, func() bool { return !s.Next(id).IsZero() }, time.Second, 10*time.Millisecond)
	next := s.Next(id)
	assert.Equal(t, 8, next.Hour())
	assert.Equal(t, 0, next.Minute())
}

func TestSchedulerService_RunsAndRecovers(t *testing.T) {
	s := NewSchedulerService(nil)

	var runs atomic.Int32
	_, err := s.ScheduleInterval(time.Second, func() {
		runs.Add(1)
		panic("boom")
	})
	require.NoError(t, err)

	s.Start()
	defer s.Stop()
	assert.Eventually(t, func() bool { return runs.Load() >= 2 }, 5*time.Second, 50*time.Millisecond)
}
