package queue

import (
	"time"

	"github.com/hibiken/asynq"

	"physlib-backend/internal/config"
	types "physlib-backend/internal/shared"
	"physlib-backend/pkg/logger"
)

// Scheduler registers the periodic maintenance jobs on asynq's cron
// scheduler. It runs inside the worker process.
type Scheduler struct {
	scheduler *asynq.Scheduler
}

func NewScheduler(redisCfg config.RedisConfig) *Scheduler {
	scheduler := asynq.NewScheduler(
		asynq.RedisClientOpt{
			Addr:     redisCfg.Host,
			Password: redisCfg.Password,
			DB:       redisCfg.DB,
		},
		&asynq.SchedulerOpts{
			Location: time.UTC,
			LogLevel: asynq.InfoLevel,
		},
	)

	return &Scheduler{scheduler: scheduler}
}

func (s *Scheduler) RegisterMaintenanceJobs() error {
	if err := s.registerSweepUploadSessionsJob(); err != nil {
		return err
	}
	if err := s.registerFlushViewCountsJob(); err != nil {
		return err
	}
	return nil
}

// Idle edit sessions hold temp objects in storage; sweep them every
// 10 minutes so abandoned sessions expire within SessionIdleTTL + 10m.
func (s *Scheduler) registerSweepUploadSessionsJob() error {
	task := asynq.NewTask(types.TypeSweepUploadSessions, nil)

	_, err := s.scheduler.Register(
		"*/10 * * * *",
		task,
		asynq.Queue(types.QueueStorage),
		asynq.MaxRetry(1),
		asynq.Timeout(5*time.Minute),
	)
	if err != nil {
		logger.Error("Failed to register SweepUploadSessions job", err)
		return err
	}

	logger.Info("Registered SweepUploadSessions: every 10 minutes", map[string]interface{}{})
	return nil
}

// View counters accumulate in Redis and are flushed to the book rows in
// batches. Losing up to 5 minutes of counts on a crash is acceptable.
func (s *Scheduler) registerFlushViewCountsJob() error {
	task := asynq.NewTask(types.TypeFlushViewCounts, nil)

	_, err := s.scheduler.Register(
		"*/5 * * * *",
		task,
		asynq.Queue(types.QueueDefault),
		asynq.MaxRetry(2),
		asynq.Timeout(2*time.Minute),
	)
	if err != nil {
		logger.Error("Failed to register FlushViewCounts job", err)
		return err
	}

	logger.Info("Registered FlushViewCounts: every 5 minutes", map[string]interface{}{})
	return nil
}

func (s *Scheduler) Start() error {
	return s.scheduler.Run()
}

func (s *Scheduler) Shutdown() {
	s.scheduler.Shutdown()
}
