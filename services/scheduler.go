package services

import (
	"context"
	"fmt"
	"sync"

	"licensepro-backend/lock"
	"licensepro-backend/models"
	"licensepro-backend/utils"

	"github.com/pkg/errors"
	"github.com/robfig/cron/v3"
	"go.uber.org/zap"
)

// Runner is the part of NotificationService the scheduler drives.
type Runner interface {
	Run(ctx context.Context, trigger Trigger) (*RunReport, error)
}

// cronLogger adapts zap to cron's logger.
type cronLogger struct {
	log *zap.SugaredLogger
}

func (l cronLogger) Info(msg string, keysAndValues ...interface{}) {
	l.log.Debugw(msg, keysAndValues...)
}

func (l cronLogger) Error(err error, msg string, keysAndValues ...interface{}) {
	l.log.Errorw(msg, append(keysAndValues, "error", err)...)
}

// Scheduler triggers a notification run once a day at the time and in
// the timezone of the notification settings.
type Scheduler struct {
	cron   *cron.Cron
	runner Runner
	log    *zap.Logger

	mu    sync.Mutex
	entry cron.EntryID
	spec  string
}

func NewScheduler(runner Runner, log *zap.Logger) *Scheduler {
	log = log.With(zap.String("component", "scheduler"))
	cl := cronLogger{log: log.Sugar()}

	return &Scheduler{
		cron: cron.New(
			cron.WithLogger(cl),
			cron.WithChain(cron.Recover(cl), cron.SkipIfStillRunning(cl)),
		),
		runner: runner,
		log:    log,
	}
}

// CronSpec builds the daily schedule for st.
func CronSpec(st models.NotificationSettings) (string, error) {
	hour, minute, err := utils.ParseClock(st.NotificationTime)
	if err != nil {
		return "", errors.Wrap(err, "parsing notification time")
	}
	tz := st.Timezone
	if tz == "" {
		tz = "UTC"
	}
	return fmt.Sprintf("CRON_TZ=%s %d %d * * *", tz, minute, hour), nil
}

// Reload replaces the scheduled job with one matching st.
func (s *Scheduler) Reload(st models.NotificationSettings) error {
	spec, err := CronSpec(st)
	if err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if spec == s.spec && s.entry != 0 {
		return nil
	}

	id, err := s.cron.AddFunc(spec, s.runOnce)
	if err != nil {
		return errors.Wrapf(err, "scheduling %q", spec)
	}
	if s.entry != 0 {
		s.cron.Remove(s.entry)
	}
	s.entry = id
	s.spec = spec

	s.log.Info("Notification schedule set", zap.String("spec", spec), zap.Bool("enabled", st.Enabled))
	return nil
}

func (s *Scheduler) runOnce() {
	report, err := s.runner.Run(context.Background(), TriggerScheduled)
	switch {
	case errors.Is(err, ErrNotificationsDisabled):
		s.log.Info("Notifications disabled, skipping scheduled run")
	case errors.Is(err, lock.ErrRunInProgress):
		s.log.Warn("Previous notification run still in progress, skipping")
	case err != nil:
		s.log.Error("Scheduled notification run failed", zap.Error(err))
	default:
		s.log.Info("Scheduled notification run finished",
			zap.Int("emails_sent", report.TotalEmailsSent),
			zap.Int("errors", report.ErrorsCount))
	}
}

// Spec returns the active cron expression.
func (s *Scheduler) Spec() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.spec
}

func (s *Scheduler) Start() {
	s.cron.Start()
}

// Stop stops the scheduler and waits for a running job to finish.
func (s *Scheduler) Stop() {
	<-s.cron.Stop().Done()
}
