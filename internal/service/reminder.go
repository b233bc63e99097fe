package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"

	"triagebot/internal/model"
	"triagebot/internal/repository"
	"triagebot/pkg/logger"
	"triagebot/pkg/metrics"
	"triagebot/pkg/trace"
)

const DefaultReminderSchedule = "0 9 * * *"

type ReminderOptions struct {
	// 标准 5 段 cron 表达式或 @daily 之类的描述符
	Schedule   string
	Target     string
	RunOnStart bool
}

// ReminderScheduler 周期性扫描未提醒的记录，认领后交给 Notifier
type ReminderScheduler struct {
	repo     repository.TriageRepository
	notifier Notifier
	target   string
	schedule cron.Schedule
	onStart  bool
	logger   *zap.Logger
	now      func() time.Time
}

func NewReminderScheduler(repo repository.TriageRepository, notifier Notifier, opts ReminderOptions, logger *zap.Logger) (*ReminderScheduler, error) {
	if repo == nil {
		return nil, errors.New("reminder scheduler requires a triage repository")
	}
	spec := opts.Schedule
	if spec == "" {
		spec = DefaultReminderSchedule
	}
	schedule, err := parseSchedule(spec, time.Now())
	if err != nil {
		return nil, fmt.Errorf("reminder: %w", err)
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ReminderScheduler{
		repo:     repo,
		notifier: notifier,
		target:   opts.Target,
		schedule: schedule,
		onStart:  opts.RunOnStart,
		logger:   logger,
		now:      time.Now,
	}, nil
}

// RunSweep 列出未提醒记录并逐条认领，只为认领成功的记录生成提醒。
// 投递失败只记日志不重试，记录保持已提醒。存储出错时返回已生成的提醒和错误。
func (s *ReminderScheduler) RunSweep(ctx context.Context) ([]model.ReminderPayload, error) {
	log := logger.WithTrace(ctx, s.logger)
	log.Info("Checking for unanswered records...")

	records, err := s.repo.ListUnreminded(ctx)
	if err != nil {
		log.Error("Failed to list unreminded records", zap.Error(err))
		return nil, err
	}
	if len(records) == 0 {
		log.Info("No pending reminders")
		return nil, nil
	}

	payloads := make([]model.ReminderPayload, 0, len(records))
	for _, rec := range records {
		claimed, err := s.repo.MarkReminded(ctx, rec.ID)
		if err != nil {
			log.Error("Failed to claim record", zap.Int64("record_id", rec.ID), zap.Error(err))
			return payloads, err
		}
		if !claimed {
			log.Debug("Record already claimed by another sweep", zap.Int64("record_id", rec.ID))
			continue
		}

		payload := model.NewReminderPayload(rec)
		payloads = append(payloads, payload)
		s.deliver(ctx, log, payload)
	}

	log.Info("Reminder sweep completed",
		zap.Int("pending", len(records)),
		zap.Int("reminded", len(payloads)),
	)
	return payloads, nil
}

func (s *ReminderScheduler) deliver(ctx context.Context, log *zap.Logger, payload model.ReminderPayload) {
	if s.notifier == nil {
		return
	}
	if err := s.notifier.Deliver(ctx, s.target, payload); err != nil {
		metrics.IncrementReminderSent("failed")
		log.Error("Failed to deliver reminder",
			zap.Int64("record_id", payload.RecordID),
			zap.String("target", s.target),
			zap.Error(err),
		)
		return
	}
	metrics.IncrementReminderSent("delivered")
	log.Info("Reminder delivered",
		zap.Int64("record_id", payload.RecordID),
		zap.String("subject", payload.Subject),
	)
}

// NextRun 返回 after 之后的下一次触发时间
func (s *ReminderScheduler) NextRun(after time.Time) time.Time {
	return s.schedule.Next(after)
}

// Run 阻塞直到 ctx 取消。取消只在两次扫描之间生效，进行中的扫描会跑完。
// 调度不再会触发时返回 ErrScheduleNeverFires。
func (s *ReminderScheduler) Run(ctx context.Context) error {
	if s.onStart {
		s.sweepOnce(ctx)
	}
	return runSchedule(ctx, "reminder_sweep", s.schedule, s.now, s.logger, s.sweepOnce)
}

func (s *ReminderScheduler) sweepOnce(ctx context.Context) {
	sweepCtx := trace.WithContext(context.WithoutCancel(ctx), trace.GenerateTraceID())
	if _, err := s.RunSweep(sweepCtx); err != nil {
		s.logger.Error("Reminder sweep failed", zap.Error(err))
	}
}
