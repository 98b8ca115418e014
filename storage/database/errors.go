package database

import (
	"github.com/lib/pq"
	"github.com/pkg/errors"
)

// postgres error codes, see https://www.postgresql.org/docs/current/errcodes-appendix.html
const (
	codeUniqueViolation     = pq.ErrorCode("23505")
	codeForeignKeyViolation = pq.ErrorCode("23503")
	codeCheckViolation      = pq.ErrorCode("23514")
)

var (
	ErrUniqueViolation     = errors.New("unique violation")
	ErrForeignKeyViolation = errors.New("foreign key violation")
	ErrCheckViolation      = errors.New("check violation")
)

// ConstraintError is a constraint violation reported by the database.
type ConstraintError struct {
	Kind       error // ErrUniqueViolation, ErrForeignKeyViolation or ErrCheckViolation
	Table      string
	Constraint string
	Err        *pq.Error
}

func (e *ConstraintError) Error() string {
	return e.Kind.Error() + " on " + e.Constraint + ": " + e.Err.Message
}

// ClassifyError turns constraint violations into a *ConstraintError. Other errors are returned unchanged.
func ClassifyError(err error) error {
	pqErr, ok := errors.Cause(err).(*pq.Error)
	if !ok {
		return err
	}
	var kind error
	switch pqErr.Code {
	case codeUniqueViolation:
		kind = ErrUniqueViolation
	case codeForeignKeyViolation:
		kind = ErrForeignKeyViolation
	case codeCheckViolation:
		kind = ErrCheckViolation
	default:
		return err
	}
	return &ConstraintError{Kind: kind, Table: pqErr.Table, Constraint: pqErr.Constraint, Err: pqErr}
}

// IsConstraintError reports whether err is a `kind` violation of `constraint`. An empty constraint matches any.
func IsConstraintError(err error, kind error, constraint string) bool {
	cErr, ok := errors.Cause(ClassifyError(err)).(*ConstraintError)
	if !ok || cErr.Kind != kind {
		return false
	}
	return constraint == "" || cErr.Constraint == constraint
}

