package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"

	"triagebot/internal/model"
)

const postgresSchema = `
CREATE TABLE IF NOT EXISTS triage_records (
	id         BIGSERIAL PRIMARY KEY,
	sender     TEXT NOT NULL,
	subject    TEXT NOT NULL,
	category   TEXT NOT NULL,
	created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
	reminded   BOOLEAN NOT NULL DEFAULT FALSE
);
CREATE INDEX IF NOT EXISTS idx_triage_records_unreminded ON triage_records(id) WHERE reminded = FALSE;
`

type PostgresTriageRepository struct {
	db     *pgxpool.Pool
	logger *zap.Logger
}

func NewPostgresTriageRepository(ctx context.Context, db *pgxpool.Pool, logger *zap.Logger) (*PostgresTriageRepository, error) {
	if _, err := db.Exec(ctx, postgresSchema); err != nil {
		return nil, fmt.Errorf("create triage_records table: %w", err)
	}
	return &PostgresTriageRepository{db: db, logger: logger}, nil
}

func (r *PostgresTriageRepository) CreateRecord(ctx context.Context, sender, subject string, category model.Category) (int64, error) {
	var id int64
	err := r.db.QueryRow(ctx,
		`INSERT INTO triage_records (sender, subject, category) VALUES ($1, $2, $3) RETURNING id`,
		sender, subject, string(category),
	).Scan(&id)
	if err != nil {
		r.logger.Error("Failed to insert triage record", zap.Error(err))
		return 0, fmt.Errorf("insert triage record: %w", err)
	}

	r.logger.Info("Triage record inserted",
		zap.Int64("record_id", id),
		zap.String("category", string(category)),
	)
	return id, nil
}

func (r *PostgresTriageRepository) ListUnreminded(ctx context.Context) ([]model.TriageRecord, error) {
	rows, err := r.db.Query(ctx,
		`SELECT id, sender, subject, category, created_at, reminded
		   FROM triage_records
		  WHERE reminded = FALSE
		  ORDER BY id ASC`,
	)
	if err != nil {
		r.logger.Error("Failed to list unreminded records", zap.Error(err))
		return nil, fmt.Errorf("list unreminded records: %w", err)
	}
	defer rows.Close()

	var records []model.TriageRecord
	for rows.Next() {
		rec, err := scanPostgresRecord(rows)
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

func (r *PostgresTriageRepository) MarkReminded(ctx context.Context, id int64) (bool, error) {
	tag, err := r.db.Exec(ctx,
		`UPDATE triage_records SET reminded = TRUE WHERE id = $1 AND reminded = FALSE`, id,
	)
	if err != nil {
		r.logger.Error("Failed to mark record reminded", zap.Int64("record_id", id), zap.Error(err))
		return false, fmt.Errorf("mark record %d reminded: %w", id, err)
	}
	return tag.RowsAffected() == 1, nil
}

func (r *PostgresTriageRepository) Get(ctx context.Context, id int64) (model.TriageRecord, error) {
	row := r.db.QueryRow(ctx,
		`SELECT id, sender, subject, category, created_at, reminded FROM triage_records WHERE id = $1`, id,
	)
	rec, err := scanPostgresRecord(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return model.TriageRecord{}, ErrRecordNotFound
	}
	return rec, err
}

func (r *PostgresTriageRepository) Ping(ctx context.Context) error {
	return r.db.Ping(ctx)
}

func (r *PostgresTriageRepository) Close() error {
	r.db.Close()
	return nil
}

func scanPostgresRecord(row pgx.Row) (model.TriageRecord, error) {
	var (
		rec      model.TriageRecord
		category string
	)
	if err := row.Scan(&rec.ID, &rec.Sender, &rec.Subject, &category, &rec.CreatedAt, &rec.Reminded); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return rec, err
		}
		return rec, fmt.Errorf("scan triage record: %w", err)
	}
	rec.Category = model.ParseCategory(category)
	return rec, nil
}
