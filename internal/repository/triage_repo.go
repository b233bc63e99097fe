package repository

import (
	"context"
	"errors"

	"triagebot/internal/model"
)

var ErrRecordNotFound = errors.New("triage record not found")

// TriageRepository 未回复消息记录的存储。
// MarkReminded 是一次认领：只有把 reminded 从 false 改成 true 的那次调用返回 true。
type TriageRepository interface {
	CreateRecord(ctx context.Context, sender, subject string, category model.Category) (int64, error)
	ListUnreminded(ctx context.Context) ([]model.TriageRecord, error)
	MarkReminded(ctx context.Context, id int64) (bool, error)
	Get(ctx context.Context, id int64) (model.TriageRecord, error)
	Ping(ctx context.Context) error
	Close() error
}
