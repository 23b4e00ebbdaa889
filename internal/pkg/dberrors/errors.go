package dberrors

import (
	"errors"
	"strings"

	"github.com/jackc/pgx/v5/pgconn" // Import pgconn for PgError
	"go.mongodb.org/mongo-driver/mongo"
)

// IsDuplicateConstraintError checks if the error is a PostgreSQL unique violation error
// for a specific constraint.
func IsDuplicateConstraintError(err error, constraintName string) bool {
	var pgErr *pgconn.PgError
	// Check if the error is a PgError, if the code is unique_violation (23505),
	// and if the constraint name matches the provided one.
	return errors.As(err, &pgErr) && pgErr.Code == "23505" && pgErr.ConstraintName == constraintName
}

// IsStringTooLongError checks if the error is a PostgreSQL string_data_right_truncation (22001) error.
func IsStringTooLongError(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "22001"
}

// IsDuplicateIndexError checks if the error is a MongoDB duplicate key error (E11000)
// raised by the named unique index.
func IsDuplicateIndexError(err error, indexName string) bool {
	if !mongo.IsDuplicateKeyError(err) {
		return false
	}
	needle := "index: " + indexName + " "

	var we mongo.WriteException
	if errors.As(err, &we) {
		for _, e := range we.WriteErrors {
			if e.Code == 11000 && strings.Contains(e.Message, needle) {
				return true
			}
		}
		return false
	}

	var ce mongo.CommandError
	if errors.As(err, &ce) {
		return strings.Contains(ce.Message, needle)
	}
	return strings.Contains(err.Error(), needle)
}
