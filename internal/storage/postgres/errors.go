package postgres

import (
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/tinoosan/finance/internal/errs"
)

// mapErr translates driver errors into the errs taxonomy.
func mapErr(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, pgx.ErrNoRows) {
		return errs.ErrNotFound
	}
	var pgErr *pgconn.PgError
	if !errors.As(err, &pgErr) {
		return err
	}
	switch pgErr.Code {
	case "40001", "40P01": // serialization_failure, deadlock_detected
		return fmt.Errorf("%w: %s", errs.ErrConflict, pgErr.Message)
	case "23505": // unique_violation
		return fmt.Errorf("%w: %s", errs.ErrConflict, pgErr.ConstraintName)
	case "23503": // foreign_key_violation
		switch {
		case strings.Contains(pgErr.ConstraintName, "account"):
			return errs.Invalid("account_id", "account not found", errs.ErrAccountNotFound)
		case strings.Contains(pgErr.ConstraintName, "category"):
			return errs.Invalid("category_id", "category not found", errs.ErrCategoryNotFound)
		}
	case "23514": // check_violation
		return errs.Invalid(pgErr.ConstraintName, pgErr.Message, nil)
	}
	return err
}
