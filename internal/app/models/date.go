package models

import "time"

// ParseDate accepts YYYY-MM-DD or RFC 3339 and returns the date at UTC midnight.
// An empty string yields nil.
func ParseDate(value string) (*time.Time, error) {
	if value == "" {
		return nil, nil
	}
	t, err := time.Parse(DateLayout, value)
	if err != nil {
		full, rfcErr := time.Parse(time.RFC3339, value)
		if rfcErr != nil {
			return nil, err
		}
		t = time.Date(full.Year(), full.Month(), full.Day(), 0, 0, 0, 0, time.UTC)
	}
	return &t, nil
}
