package helpers

import "database/sql"

// GetContentNullString converts a string value to sql.NullString.
// An empty string is stored as NULL so optional unique columns stay sparse.
func GetContentNullString(s string) sql.NullString {
	if s == "" {
		return sql.NullString{}
	}
	return sql.NullString{String: s, Valid: true}
}
