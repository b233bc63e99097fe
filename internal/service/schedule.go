package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"
)

// ErrScheduleNeverFires cron 表达式合法但永远不会触发，比如 2 月 30 日
var ErrScheduleNeverFires = errors.New("schedule never fires")

func parseSchedule(spec string, now time.Time) (cron.Schedule, error) {
	schedule, err := cron.ParseStandard(spec)
	if err != nil {
		return nil, fmt.Errorf("parse schedule %q: %w", spec, err)
	}
	if schedule.Next(now).IsZero() {
		return nil, fmt.Errorf("schedule %q: %w", spec, ErrScheduleNeverFires)
	}
	return schedule, nil
}

// runSchedule 在每个触发时间执行 job，直到 ctx 取消。
// 取消只在两次执行之间生效，job 自己决定是否跑完。
func runSchedule(ctx context.Context, name string, schedule cron.Schedule, now func() time.Time, log *zap.Logger, job func(context.Context)) error {
	for {
		next := schedule.Next(now())
		if next.IsZero() {
			return fmt.Errorf("%s: %w", name, ErrScheduleNeverFires)
		}
		delay := next.Sub(now())
		if delay < 0 {
			delay = 0
		}
		log.Info("Next run scheduled",
			zap.String("job", name),
			zap.Time("next_run", next),
			zap.Duration("delay", delay),
		)

		timer := time.NewTimer(delay)
		select {
		case <-ctx.Done():
			timer.Stop()
			log.Info("Scheduled job stopped", zap.String("job", name))
			return nil
		case <-timer.C:
			job(ctx)
		}
	}
}
