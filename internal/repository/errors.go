package repository

import (
	"errors"

	"github.com/lib/pq"
)

var (
	// ErrDuplicate signals a unique constraint violation.
	ErrDuplicate = errors.New("duplicate record")
	// ErrInUse signals a delete or update blocked by a foreign key reference.
	ErrInUse = errors.New("record is referenced by other records")
	// ErrCreditLimit signals that a course registration would exceed the credit ceiling.
	ErrCreditLimit = errors.New("credit limit exceeded")
)

const (
	pqUniqueViolation     = "23505"
	pqForeignKeyViolation = "23503"
)

// classify maps postgres constraint violations to repository sentinels and leaves other errors untouched.
func classify(err error) error {
	var pqErr *pq.Error
	if !errors.As(err, &pqErr) {
		return err
	}
	switch string(pqErr.Code) {
	case pqUniqueViolation:
		return ErrDuplicate
	case pqForeignKeyViolation:
		return ErrInUse
	}
	return err
}
