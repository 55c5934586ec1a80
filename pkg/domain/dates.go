package domain

import (
	"strings"
	"time"

	dErrors "pawnshop/pkg/domain-errors"
)

// DateLayout is the wire format of calendar dates such as passportIssueDate.
const DateLayout = time.DateOnly

// ParseDate accepts YYYY-MM-DD or an RFC3339 timestamp and returns the UTC
// calendar date at midnight. Timestamps are converted to UTC before the date
// is taken.
func ParseDate(s, field string) (time.Time, error) {
	t, err := parseTime(s, field)
	if err != nil {
		return time.Time{}, err
	}
	y, m, d := t.UTC().Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC), nil
}

// ParseTimestamp accepts an RFC3339 timestamp or YYYY-MM-DD (midnight UTC).
func ParseTimestamp(s, field string) (time.Time, error) {
	t, err := parseTime(s, field)
	if err != nil {
		return time.Time{}, err
	}
	return t.UTC(), nil
}

func parseTime(s, field string) (time.Time, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, dErrors.Newf(dErrors.CodeValidation, "%s is required", field)
	}
	if t, err := time.Parse(time.RFC3339Nano, s); err == nil {
		return t, nil
	}
	if t, err := time.Parse(DateLayout, s); err == nil {
		return t, nil
	}
	return time.Time{}, dErrors.Newf(dErrors.CodeValidation, "%s must be a date (YYYY-MM-DD) or RFC3339 timestamp", field)
}
