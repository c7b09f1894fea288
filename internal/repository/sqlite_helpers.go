package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"strings"
	"time"

	"inpaint/internal/image"
)

const (
	sqliteBusyCode          = 5
	busyRetryAttempts       = 5
	busyRetryInitialBackoff = 10 * time.Millisecond
	busyRetryMaxBackoff     = 200 * time.Millisecond

	sourceColumns = "name, description, width, height, tags_json"
	targetColumns = "name, description, width, height, rating, sampler, checkpoint"
)

type querier interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanSource(row rowScanner) (*image.Source, error) {
	var (
		src         image.Source
		description sql.NullString
		tagsJSON    string
	)
	if err := row.Scan(&src.Name, &description, &src.Width, &src.Height, &tagsJSON); err != nil {
		return nil, err
	}
	src.Description = description.String
	if err := json.Unmarshal([]byte(tagsJSON), &src.Tags); err != nil {
		return nil, wrapIO("decode tags for "+src.Name, err)
	}
	if src.Tags == nil {
		src.Tags = []string{}
	}
	return &src, nil
}

func scanTarget(row rowScanner) (*image.Target, error) {
	var (
		tgt         image.Target
		description sql.NullString
		sampler     string
		checkpoint  string
	)
	if err := row.Scan(&tgt.Name, &description, &tgt.Width, &tgt.Height, &tgt.Rating, &sampler, &checkpoint); err != nil {
		return nil, err
	}
	tgt.Description = description.String
	tgt.Sampler = image.Sampler(sampler)
	tgt.Checkpoint = image.Checkpoint(checkpoint)
	return &tgt, nil
}

func encodeTags(tags []string) (string, error) {
	if tags == nil {
		tags = []string{}
	}
	data, err := json.Marshal(tags)
	if err != nil {
		return "", wrapIO("encode tags", err)
	}
	return string(data), nil
}

func nullableString(value string) any {
	if value == "" {
		return nil
	}
	return value
}

func ensureContext(ctx context.Context) context.Context {
	if ctx != nil {
		return ctx
	}
	return context.Background()
}

func isSQLiteBusy(err error) bool {
	if err == nil {
		return false
	}
	var coder interface{ Code() int }
	if errors.As(err, &coder) && coder.Code()&0xff == sqliteBusyCode {
		return true
	}
	msg := err.Error()
	return strings.Contains(msg, "SQLITE_BUSY") || strings.Contains(msg, "database is locked")
}

func retryOnBusy(ctx context.Context, op func() error) error {
	delay := busyRetryInitialBackoff
	var lastErr error
	for attempt := 0; attempt < busyRetryAttempts; attempt++ {
		lastErr = op()
		if lastErr == nil {
			return nil
		}
		if !isSQLiteBusy(lastErr) || attempt == busyRetryAttempts-1 {
			break
		}
		select {
		case <-time.After(delay):
		case <-ctx.Done():
			return ctx.Err()
		}
		if next := delay * 2; next <= busyRetryMaxBackoff {
			delay = next
		}
	}
	return lastErr
}
