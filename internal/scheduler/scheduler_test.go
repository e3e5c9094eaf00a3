package scheduler

import (
	"context"
	"testing"
	"time"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/example/drillsched/internal/database"
)

type fakeDueStore struct {
	devices []database.DeviceDueCount
	counts  map[string]int
	err     error
}

func (f *fakeDueStore) DevicesWithDue(context.Context, time.Time) ([]database.DeviceDueCount, error) {
	return f.devices, f.err
}

func (f *fakeDueStore) CountDue(_ context.Context, deviceID string, _ time.Time) (int, error) {
	return f.counts[deviceID], f.err
}

type fakeNotifier struct {
	sent map[string]int
}

func (f *fakeNotifier) SendReminders(deviceID string, dueCount int) error {
	if f.sent == nil {
		f.sent = map[string]int{}
	}
	f.sent[deviceID] = dueCount
	return nil
}

func alwaysOpen() Config {
	cfg := DefaultConfig()
	cfg.NotificationStartHour = 0
	cfg.NotificationEndHour = 23
	return cfg
}

func TestCheckAndSendReminders(t *testing.T) {
	store := &fakeDueStore{devices: []database.DeviceDueCount{
		{DeviceID: "dev-1", DueCount: 4},
		{DeviceID: "dev-2", DueCount: 1},
	}}
	notifier := &fakeNotifier{}
	s := New(store, notifier, alwaysOpen())

	s.checkAndSendReminders()

	assert.Equal(t, map[string]int{"dev-1": 4, "dev-2": 1}, notifier.sent)
}

func TestRemindersRespectWindow(t *testing.T) {
	store := &fakeDueStore{devices: []database.DeviceDueCount{{DeviceID: "dev-1", DueCount: 2}}}
	notifier := &fakeNotifier{}
	cfg := DefaultConfig()
	// A window that can never contain the current hour.
	cfg.NotificationStartHour = 25
	cfg.NotificationEndHour = 25
	s := New(store, notifier, cfg)

	s.checkAndSendReminders()
	assert.Empty(t, notifier.sent)
}

func TestRunManualCheck(t *testing.T) {
	store := &fakeDueStore{counts: map[string]int{"dev-1": 3}}
	notifier := &fakeNotifier{}
	s := New(store, notifier, alwaysOpen())

	require.NoError(t, s.RunManualCheck(context.Background(), "dev-1"))
	assert.Equal(t, map[string]int{"dev-1": 3}, notifier.sent)

	// No due tasks, no reminder.
	require.NoError(t, s.RunManualCheck(context.Background(), "dev-2"))
	assert.NotContains(t, notifier.sent, "dev-2")
}

type countingFlusher struct {
	calls int
	err   error
}

func (f *countingFlusher) Flush(context.Context) error {
	f.calls++
	return f.err
}

func TestFlushAll(t *testing.T) {
	s := New(&fakeDueStore{}, &fakeNotifier{}, DefaultConfig())

	good := &countingFlusher{}
	bad := &countingFlusher{err: errors.New("still offline")}
	s.RegisterFlusher("acct-1", good)
	s.RegisterFlusher("acct-2", bad)

	s.FlushNow()
	assert.Equal(t, 1, good.calls)
	assert.Equal(t, 1, bad.calls)

	s.UnregisterFlusher("acct-2")
	s.FlushNow()
	assert.Equal(t, 2, good.calls)
	assert.Equal(t, 1, bad.calls)
}
