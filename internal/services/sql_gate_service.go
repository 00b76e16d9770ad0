package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	apperrors "sports_trivia_go_backend/internal/errors"

	"github.com/jackc/pgx/v5/pgconn"
	"gorm.io/gorm"
)

const pgQueryCanceled = "57014"

// SQLGateService executes a single read-only statement under a
// statement timeout. It is the only path by which model-authored text
// reaches the database; every other query in the codebase is a
// parameterized gorm call.
type SQLGateService struct {
	db      *gorm.DB
	timeout time.Duration
}

func NewSQLGateService(db *gorm.DB, timeout time.Duration) *SQLGateService {
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	return &SQLGateService{db: db, timeout: timeout}
}

// ExecuteReadOnly validates and runs one statement, returning the rows
// and the measured execution time in milliseconds. The timeout is set
// with SET LOCAL inside a transaction, so it is scoped to this single
// execution and released on every exit path, commit or rollback.
func (s *SQLGateService) ExecuteReadOnly(ctx context.Context, query string) ([]map[string]interface{}, int64, error) {
	trimmed := strings.TrimSpace(query)
	if err := validateReadOnly(trimmed); err != nil {
		return nil, 0, err
	}

	var rows []map[string]interface{}
	start := time.Now()
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Exec(fmt.Sprintf("SET LOCAL statement_timeout = %d", s.timeout.Milliseconds())).Error; err != nil {
			return err
		}
		return tx.Raw(trimmed).Scan(&rows).Error
	})
	elapsedMs := time.Since(start).Milliseconds()
	if err != nil {
		return nil, elapsedMs, mapExecError(err, s.timeout)
	}
	return rows, elapsedMs, nil
}

// mapExecError translates a Postgres statement cancel into the timeout
// sentinel; anything else keeps its cause.
func mapExecError(err error, bound time.Duration) error {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == pgQueryCanceled {
		return fmt.Errorf("%w: exceeded %dms", apperrors.ErrSQLExecutionTimeout, bound.Milliseconds())
	}
	return fmt.Errorf("read-only query failed: %w", err)
}

// validateReadOnly rejects anything whose first keyword is not SELECT,
// case and leading-whitespace insensitive. Runs before any database
// round-trip.
func validateReadOnly(trimmed string) error {
	fields := strings.Fields(trimmed)
	if len(fields) == 0 {
		return fmt.Errorf("%w: empty statement", apperrors.ErrSQLSafetyViolation)
	}
	if !strings.EqualFold(fields[0], "SELECT") {
		return fmt.Errorf("%w: statement begins with %q", apperrors.ErrSQLSafetyViolation, fields[0])
	}
	return nil
}
