package repository

import (
	"database/sql"
	"errors"
	"fmt"

	"github.com/noah-isme/academia-api/pkg/database"
)

// wrapWrite annotates a failed write, exposing unique index violations as
// database.ErrUniqueViolation so services can report a conflict.
func wrapWrite(op string, err error) error {
	if database.IsUniqueViolation(err) {
		return fmt.Errorf("%s: %w (%s)", op, database.ErrUniqueViolation, database.Constraint(err))
	}
	return fmt.Errorf("%s: %w", op, err)
}

// expectAffected turns a write that matched no row into sql.ErrNoRows.
func expectAffected(res sql.Result, op string) error {
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("%s rows affected: %w", op, err)
	}
	if affected == 0 {
		return sql.ErrNoRows
	}
	return nil
}

func isNoRows(err error) bool {
	return errors.Is(err, sql.ErrNoRows)
}
