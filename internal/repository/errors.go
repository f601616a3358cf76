package repository

import (
	"database/sql"
	"errors"

	"github.com/lib/pq"
)

// ErrDuplicate signals a unique constraint violation.
var ErrDuplicate = errors.New("duplicate record")

func isUniqueViolation(err error) bool {
	var pqErr *pq.Error
	return errors.As(err, &pqErr) && pqErr.Code == "23505"
}

// isMissingRow treats a malformed uuid key like an absent row: no record can have that id.
func isMissingRow(err error) bool {
	if errors.Is(err, sql.ErrNoRows) {
		return true
	}
	var pqErr *pq.Error
	return errors.As(err, &pqErr) && pqErr.Code == "22P02"
}
