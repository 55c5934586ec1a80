package domain

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	dErrors "pawnshop/pkg/domain-errors"
)

func TestParseDate(t *testing.T) {
	want := time.Date(2020, 1, 1, 0, 0, 0, 0, time.UTC)

	got, err := ParseDate("2020-01-01", "passportIssueDate")
	require.NoError(t, err)
	assert.Equal(t, want, got)

	got, err = ParseDate("2020-01-01T15:04:05Z", "passportIssueDate")
	require.NoError(t, err)
	assert.Equal(t, want, got)

	got, err = ParseDate("2019-12-31T23:00:00-05:00", "passportIssueDate")
	require.NoError(t, err)
	assert.Equal(t, want, got, "offset timestamps take the UTC calendar date")

	got, err = ParseDate("2020-01-01T01:00:00+03:00", "passportIssueDate")
	require.NoError(t, err)
	assert.Equal(t, want.AddDate(0, 0, -1), got)

	_, err = ParseDate("01/01/2020", "passportIssueDate")
	assert.True(t, dErrors.HasCode(err, dErrors.CodeValidation))

	_, err = ParseDate(" ", "passportIssueDate")
	assert.True(t, dErrors.HasCode(err, dErrors.CodeValidation))
}

func TestParseTimestamp(t *testing.T) {
	got, err := ParseTimestamp("2024-02-24T03:17:07+02:00", "pawnDate")
	require.NoError(t, err)
	assert.Equal(t, time.Date(2024, 2, 24, 1, 17, 7, 0, time.UTC), got)

	got, err = ParseTimestamp("2024-02-24", "pawnDate")
	require.NoError(t, err)
	assert.Equal(t, time.Date(2024, 2, 24, 0, 0, 0, 0, time.UTC), got)
}
