package service

import (
	"context"
	"errors"
	"sync"
	"time"

	"triagebot/internal/model"
	"triagebot/internal/repository"
)

type memoryRepo struct {
	mu      sync.Mutex
	records []model.TriageRecord

	createErr error
	listErr   error
	markErr   map[int64]error
	// 模拟别的扫描已经认领
	stolen map[int64]bool
}

func newMemoryRepo() *memoryRepo {
	return &memoryRepo{markErr: map[int64]error{}, stolen: map[int64]bool{}}
}

func (r *memoryRepo) CreateRecord(_ context.Context, sender, subject string, category model.Category) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.createErr != nil {
		return 0, r.createErr
	}
	id := int64(len(r.records) + 1)
	r.records = append(r.records, model.TriageRecord{
		ID: id, Sender: sender, Subject: subject, Category: category, CreatedAt: time.Now(),
	})
	return id, nil
}

func (r *memoryRepo) ListUnreminded(context.Context) ([]model.TriageRecord, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.listErr != nil {
		return nil, r.listErr
	}
	var out []model.TriageRecord
	for _, rec := range r.records {
		if !rec.Reminded {
			out = append(out, rec)
		}
	}
	return out, nil
}

func (r *memoryRepo) MarkReminded(_ context.Context, id int64) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if err := r.markErr[id]; err != nil {
		return false, err
	}
	for i := range r.records {
		if r.records[i].ID != id {
			continue
		}
		if r.records[i].Reminded || r.stolen[id] {
			r.records[i].Reminded = true
			return false, nil
		}
		r.records[i].Reminded = true
		return true, nil
	}
	return false, nil
}

func (r *memoryRepo) Get(_ context.Context, id int64) (model.TriageRecord, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, rec := range r.records {
		if rec.ID == id {
			return rec, nil
		}
	}
	return model.TriageRecord{}, repository.ErrRecordNotFound
}

func (r *memoryRepo) Ping(context.Context) error { return nil }
func (r *memoryRepo) Close() error               { return nil }

func (r *memoryRepo) count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.records)
}

type summarizerCall struct {
	text      string
	maxLength int
}

type fakeSummarizer struct {
	mu    sync.Mutex
	calls []summarizerCall
	err   error
}

func (s *fakeSummarizer) Summarize(_ context.Context, text string, maxLength int) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls = append(s.calls, summarizerCall{text: text, maxLength: maxLength})
	if s.err != nil {
		return "", s.err
	}
	return "summary of message", nil
}

type delivery struct {
	target  string
	payload model.ReminderPayload
}

type fakeNotifier struct {
	mu         sync.Mutex
	deliveries []delivery
	err        error
	notify     chan struct{}
}

func (n *fakeNotifier) Deliver(_ context.Context, target string, p model.ReminderPayload) error {
	n.mu.Lock()
	n.deliveries = append(n.deliveries, delivery{target: target, payload: p})
	n.mu.Unlock()
	if n.notify != nil {
		select {
		case n.notify <- struct{}{}:
		default:
		}
	}
	return n.err
}

func (n *fakeNotifier) all() []delivery {
	n.mu.Lock()
	defer n.mu.Unlock()
	return append([]delivery(nil), n.deliveries...)
}

var errStore = errors.New("disk full")
