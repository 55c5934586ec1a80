package database

import (
	"errors"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/lib/pq"
)

// SQLSTATE codes the stores care about.
const (
	codeUniqueViolation     = "23505"
	codeForeignKeyViolation = "23503"
)

// IsUniqueViolation reports whether err is a unique constraint rejection.
// When constraint is non-empty the violated constraint must match it.
func IsUniqueViolation(err error, constraint string) bool {
	return matches(err, codeUniqueViolation, constraint)
}

// IsForeignKeyViolation reports whether err is a foreign key rejection, either
// a dangling reference on insert or a restricted delete.
func IsForeignKeyViolation(err error) bool {
	return matches(err, codeForeignKeyViolation, "")
}

func matches(err error, code, constraint string) bool {
	gotCode, gotConstraint, ok := classify(err)
	if !ok || gotCode != code {
		return false
	}
	return constraint == "" || constraint == gotConstraint
}

// classify extracts the SQLSTATE and constraint name from a pgx or lib/pq error.
func classify(err error) (code, constraint string, ok bool) {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code, pgErr.ConstraintName, true
	}
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		return string(pqErr.Code), pqErr.Constraint, true
	}
	return "", "", false
}
