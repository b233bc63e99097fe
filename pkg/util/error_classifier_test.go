package util

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"testing"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
)

func TestIsRetryableError(t *testing.T) {
	var syntaxErr error
	{
		var v map[string]any
		syntaxErr = json.Unmarshal([]byte("{"), &v)
	}

	tests := []struct {
		name      string
		err       error
		retryable bool
		errType   string
	}{
		{name: "nil", err: nil, retryable: false, errType: ""},
		{name: "json syntax", err: fmt.Errorf("decode: %w", syntaxErr), retryable: false, errType: "json_decode_error"},
		{name: "canceled", err: context.Canceled, retryable: false, errType: "context_canceled"},
		{name: "deadline", err: fmt.Errorf("create record: %w", context.DeadlineExceeded), retryable: true, errType: "timeout"},
		{name: "no rows", err: pgx.ErrNoRows, retryable: false, errType: "record_not_found"},
		{name: "pg serialization", err: &pgconn.PgError{Code: "40001"}, retryable: true, errType: "db_transient_error"},
		{name: "pg unique", err: &pgconn.PgError{Code: "23505"}, retryable: false, errType: "duplicate_key"},
		{name: "pg syntax", err: &pgconn.PgError{Code: "42601"}, retryable: false, errType: "db_error"},
		{name: "sqlite busy", err: errors.New("database is locked (5) (SQLITE_BUSY)"), retryable: true, errType: "db_busy"},
		{name: "unknown", err: errors.New("boom"), retryable: false, errType: "unknown_error"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			retryable, errType := IsRetryableError(tt.err)
			assert.Equal(t, tt.retryable, retryable)
			assert.Equal(t, tt.errType, errType)
		})
	}
}

func TestShouldRetry(t *testing.T) {
	assert.True(t, ShouldRetry(1, 3, true))
	assert.True(t, ShouldRetry(3, 3, true))
	assert.False(t, ShouldRetry(4, 3, true))
	assert.False(t, ShouldRetry(1, 3, false))
}
