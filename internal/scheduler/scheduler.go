// Package scheduler runs the background jobs: the hourly due-review reminder
// sweep and the periodic cloud-sync flush retry.
package scheduler

import (
	"context"
	"log"
	"sync"
	"time"

	"github.com/go-co-op/gocron"

	"github.com/example/drillsched/internal/database"
)

// Default notification window; reminders are only sent inside it.
const (
	DefaultNotificationStartHour = 8
	DefaultNotificationEndHour   = 22
	DefaultFlushInterval         = 30 * time.Second
)

// Config controls the background jobs.
type Config struct {
	// NotificationStartHour and NotificationEndHour bound the UTC hours
	// in which reminders go out.
	NotificationStartHour int
	NotificationEndHour   int
	// FlushInterval is how often queued cloud-sync writes are retried.
	FlushInterval time.Duration
}

// DefaultConfig returns the default job configuration.
func DefaultConfig() Config {
	return Config{
		NotificationStartHour: DefaultNotificationStartHour,
		NotificationEndHour:   DefaultNotificationEndHour,
		FlushInterval:         DefaultFlushInterval,
	}
}

// Notifier delivers due-review reminders; the transport behind it is a
// collaborator.
type Notifier interface {
	SendReminders(deviceID string, dueCount int) error
}

// DueStore is the slice of the scheduling store the reminder sweep needs.
type DueStore interface {
	DevicesWithDue(ctx context.Context, now time.Time) ([]database.DeviceDueCount, error)
	CountDue(ctx context.Context, deviceID string, now time.Time) (int, error)
}

// Flusher retries queued cloud-sync writes; each signed-in account
// registers its reconciler here.
type Flusher interface {
	Flush(ctx context.Context) error
}

// Scheduler manages the recurring jobs.
type Scheduler struct {
	scheduler *gocron.Scheduler
	store     DueStore
	notifier  Notifier
	cfg       Config

	mu       sync.Mutex
	flushers map[string]Flusher
}

// New creates a scheduler instance; Start arms the jobs.
func New(store DueStore, notifier Notifier, cfg Config) *Scheduler {
	return &Scheduler{
		scheduler: gocron.NewScheduler(time.UTC),
		store:     store,
		notifier:  notifier,
		cfg:       cfg,
		flushers:  map[string]Flusher{},
	}
}

// Start begins running all scheduled jobs without blocking.
func (s *Scheduler) Start() {
	s.scheduler.Every(1).Hour().Do(s.checkAndSendReminders)
	s.scheduler.Every(s.cfg.FlushInterval).Do(s.flushAll)
	s.scheduler.StartAsync()
}

// Stop terminates all scheduled jobs.
func (s *Scheduler) Stop() {
	s.scheduler.Stop()
}

// RegisterFlusher adds an account's reconciler to the retry tick.
func (s *Scheduler) RegisterFlusher(accountID string, f Flusher) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.flushers[accountID] = f
}

// UnregisterFlusher removes an account on sign-out.
func (s *Scheduler) UnregisterFlusher(accountID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.flushers, accountID)
}

// FlushNow retries every registered account immediately, e.g. when
// connectivity returns.
func (s *Scheduler) FlushNow() {
	s.flushAll()
}

// checkAndSendReminders notifies every device with due reviews, inside the
// configured notification window.
func (s *Scheduler) checkAndSendReminders() {
	currentHour := time.Now().UTC().Hour()
	if currentHour < s.cfg.NotificationStartHour || currentHour > s.cfg.NotificationEndHour {
		return
	}

	ctx := context.Background()
	devices, err := s.store.DevicesWithDue(ctx, time.Now().UTC())
	if err != nil {
		log.Printf("scheduler: listing devices with due tasks: %v", err)
		return
	}
	for _, d := range devices {
		if err := s.notifier.SendReminders(d.DeviceID, d.DueCount); err != nil {
			log.Printf("scheduler: reminder for device %s: %v", d.DeviceID, err)
		}
	}
}

// RunManualCheck forces a reminder check for a single device, regardless of
// the notification window.
func (s *Scheduler) RunManualCheck(ctx context.Context, deviceID string) error {
	count, err := s.store.CountDue(ctx, deviceID, time.Now().UTC())
	if err != nil {
		return err
	}
	if count > 0 {
		return s.notifier.SendReminders(deviceID, count)
	}
	return nil
}

// flushAll retries queued writes for every registered account. Transient
// failures are expected here; the reconciler keeps its queue.
func (s *Scheduler) flushAll() {
	s.mu.Lock()
	flushers := make(map[string]Flusher, len(s.flushers))
	for id, f := range s.flushers {
		flushers[id] = f
	}
	s.mu.Unlock()

	ctx := context.Background()
	for id, f := range flushers {
		if err := f.Flush(ctx); err != nil {
			log.Printf("scheduler: flush retry for account %s: %v", id, err)
		}
	}
}
