package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"triagebot/internal/model"
)

const sqliteSchema = `
CREATE TABLE IF NOT EXISTS triage_records (
	id         INTEGER PRIMARY KEY AUTOINCREMENT,
	sender     TEXT NOT NULL,
	subject    TEXT NOT NULL,
	category   TEXT NOT NULL,
	created_at TIMESTAMP NOT NULL,
	reminded   BOOLEAN NOT NULL DEFAULT 0
);
CREATE INDEX IF NOT EXISTS idx_triage_records_reminded ON triage_records(reminded, id);
`

type SQLiteTriageRepository struct {
	db     *sql.DB
	logger *zap.Logger
	now    func() time.Time
}

// NewSQLiteTriageRepository 建表后返回仓库，db 的生命周期归仓库所有
func NewSQLiteTriageRepository(ctx context.Context, db *sql.DB, logger *zap.Logger) (*SQLiteTriageRepository, error) {
	if _, err := db.ExecContext(ctx, sqliteSchema); err != nil {
		return nil, fmt.Errorf("create triage_records table: %w", err)
	}
	return &SQLiteTriageRepository{db: db, logger: logger, now: time.Now}, nil
}

func (r *SQLiteTriageRepository) CreateRecord(ctx context.Context, sender, subject string, category model.Category) (int64, error) {
	createdAt := r.now().UTC().Format(time.RFC3339Nano)
	res, err := r.db.ExecContext(ctx,
		`INSERT INTO triage_records (sender, subject, category, created_at, reminded) VALUES (?, ?, ?, ?, 0)`,
		sender, subject, string(category), createdAt,
	)
	if err != nil {
		r.logger.Error("Failed to insert triage record", zap.Error(err))
		return 0, fmt.Errorf("insert triage record: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("read triage record id: %w", err)
	}

	r.logger.Info("Triage record inserted",
		zap.Int64("record_id", id),
		zap.String("category", string(category)),
	)
	return id, nil
}

func (r *SQLiteTriageRepository) ListUnreminded(ctx context.Context) ([]model.TriageRecord, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT id, sender, subject, category, created_at, reminded
		   FROM triage_records
		  WHERE reminded = 0
		  ORDER BY id ASC`,
	)
	if err != nil {
		r.logger.Error("Failed to list unreminded records", zap.Error(err))
		return nil, fmt.Errorf("list unreminded records: %w", err)
	}
	defer rows.Close()

	var records []model.TriageRecord
	for rows.Next() {
		rec, err := scanSQLiteRecord(rows)
		if err != nil {
			return nil, err
		}
		records = append(records, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate unreminded records: %w", err)
	}
	return records, nil
}

func (r *SQLiteTriageRepository) MarkReminded(ctx context.Context, id int64) (bool, error) {
	res, err := r.db.ExecContext(ctx,
		`UPDATE triage_records SET reminded = 1 WHERE id = ? AND reminded = 0`, id,
	)
	if err != nil {
		r.logger.Error("Failed to mark record reminded", zap.Int64("record_id", id), zap.Error(err))
		return false, fmt.Errorf("mark record %d reminded: %w", id, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("mark record %d reminded: %w", id, err)
	}
	return n == 1, nil
}

func (r *SQLiteTriageRepository) Get(ctx context.Context, id int64) (model.TriageRecord, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT id, sender, subject, category, created_at, reminded FROM triage_records WHERE id = ?`, id,
	)
	rec, err := scanSQLiteRecord(row)
	if errors.Is(err, sql.ErrNoRows) {
		return model.TriageRecord{}, ErrRecordNotFound
	}
	return rec, err
}

func (r *SQLiteTriageRepository) Ping(ctx context.Context) error {
	return r.db.PingContext(ctx)
}

func (r *SQLiteTriageRepository) Close() error {
	return r.db.Close()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanSQLiteRecord(s rowScanner) (model.TriageRecord, error) {
	var (
		rec       model.TriageRecord
		category  string
		createdAt string
	)
	if err := s.Scan(&rec.ID, &rec.Sender, &rec.Subject, &category, &createdAt, &rec.Reminded); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return rec, err
		}
		return rec, fmt.Errorf("scan triage record: %w", err)
	}
	rec.Category = model.ParseCategory(category)
	t, err := time.Parse(time.RFC3339Nano, createdAt)
	if err != nil {
		return rec, fmt.Errorf("parse created_at %q: %w", createdAt, err)
	}
	rec.CreatedAt = t
	return rec, nil
}
