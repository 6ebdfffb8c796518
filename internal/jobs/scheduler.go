// Package jobs - фоновые задачи по расписанию (robfig/cron)
package jobs

import (
	"context"
	"fmt"
	"time"

	"github.com/robfig/cron/v3"

	"agency_messaging/pkg/logger"
)

const jobTimeout = time.Minute

// Job - задача; возвращаемое число попадает в лог как результат прогона
type Job func(ctx context.Context) (int, error)

type Scheduler struct {
	cron *cron.Cron
	log  logger.Logger
}

func NewScheduler(log logger.Logger) *Scheduler {
	return &Scheduler{
		cron: cron.New(cron.WithChain(cron.SkipIfStillRunning(cron.DiscardLogger))),
		log:  log,
	}
}

// Add регистрирует задачу. schedule - стандартное cron-выражение или "@every 1m".
func (s *Scheduler) Add(name, schedule string, job Job) error {
	if _, err := cron.ParseStandard(schedule); err != nil {
		return fmt.Errorf("invalid schedule for %s: %w", name, err)
	}
	_, err := s.cron.AddFunc(schedule, func() { s.run(name, job) })
	if err != nil {
		return fmt.Errorf("schedule %s: %w", name, err)
	}
	return nil
}

func (s *Scheduler) run(name string, job Job) {
	start := time.Now()
	ctx, cancel := context.WithTimeout(context.Background(), jobTimeout)
	defer cancel()

	n, err := job(ctx)
	if err != nil {
		s.log.Error("Job failed", "job", name, "duration", time.Since(start).String(), "error", err)
		return
	}
	s.log.Debug("Job finished", "job", name, "affected", n, "duration", time.Since(start).String())
}

func (s *Scheduler) Start() {
	s.cron.Start()
	s.log.Info("Job scheduler started", "jobs", len(s.cron.Entries()))
}

// Stop ждет завершения уже запущенных задач
func (s *Scheduler) Stop(ctx context.Context) {
	done := s.cron.Stop()
	select {
	case <-done.Done():
	case <-ctx.Done():
	}
}

// PresenceSweeper удаляет записи присутствия от упавших соединений
func PresenceSweeper(sweep func(ctx context.Context) (int, error)) Job {
	return func(ctx context.Context) (int, error) {
		return sweep(ctx)
	}
}
