package services

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	apperrors "sports_trivia_go_backend/internal/errors"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
)

func TestValidateReadOnly(t *testing.T) {
	cases := []struct {
		name  string
		query string
		valid bool
	}{
		{"plain select", "SELECT * FROM players", true},
		{"lowercase with leading whitespace", "  select 1", true},
		{"mixed case", "SeLeCt name FROM teams", true},
		{"delete", "DELETE FROM quiz_categories WHERE name = 'x'", false},
		{"update", "UPDATE players SET name = 'x'", false},
		{"drop", "DROP TABLE games", false},
		{"insert", "INSERT INTO teams VALUES (1)", false},
		{"cte", "WITH t AS (SELECT 1) SELECT * FROM t", false},
		{"empty", "", false},
		{"whitespace only", "   \n\t", false},
		{"select prefix but different keyword", "SELECTED something", false},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			err := validateReadOnly(tc.query)
			if tc.valid {
				assert.NoError(t, err)
			} else {
				assert.ErrorIs(t, err, apperrors.ErrSQLSafetyViolation)
			}
		})
	}
}

func TestMapExecError(t *testing.T) {
	bound := 5 * time.Second

	t.Run("statement cancel maps to timeout sentinel", func(t *testing.T) {
		err := mapExecError(&pgconn.PgError{Code: "57014", Message: "canceling statement due to statement timeout"}, bound)
		assert.ErrorIs(t, err, apperrors.ErrSQLExecutionTimeout)
		assert.Contains(t, err.Error(), "5000ms")
	})

	t.Run("wrapped statement cancel still maps", func(t *testing.T) {
		wrapped := fmt.Errorf("exec: %w", &pgconn.PgError{Code: "57014"})
		assert.ErrorIs(t, mapExecError(wrapped, bound), apperrors.ErrSQLExecutionTimeout)
	})

	t.Run("other postgres errors keep their cause", func(t *testing.T) {
		pgErr := &pgconn.PgError{Code: "42P01", Message: "relation does not exist"}
		err := mapExecError(pgErr, bound)
		assert.NotErrorIs(t, err, apperrors.ErrSQLExecutionTimeout)
		var got *pgconn.PgError
		assert.ErrorAs(t, err, &got)
	})

	t.Run("non-postgres errors keep their cause", func(t *testing.T) {
		cause := errors.New("connection reset")
		err := mapExecError(cause, bound)
		assert.NotErrorIs(t, err, apperrors.ErrSQLExecutionTimeout)
		assert.ErrorIs(t, err, cause)
	})
}

func TestExecuteReadOnlyRejectsBeforeDatabaseRoundTrip(t *testing.T) {
	// A nil *gorm.DB would panic on any database access; rejection must
	// happen strictly before that.
	gate := NewSQLGateService(nil, 0)

	rows, elapsed, err := gate.ExecuteReadOnly(context.Background(), "DELETE FROM quiz_categories WHERE name = 'x'")

	assert.ErrorIs(t, err, apperrors.ErrSQLSafetyViolation)
	assert.Nil(t, rows)
	assert.Zero(t, elapsed)
}
