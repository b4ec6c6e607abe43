package report

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFormatDuration(t *testing.T) {
	tests := []struct {
		seconds int
		want    string
	}{
		{0, "0м"},
		{59, "0м"},
		{60, "1м"},
		{3599, "59м"},
		{3600, "1ч 0м"},
		{3661, "1ч 1м"},
		{36000 + 1800, "10ч 30м"},
		{-5, "0м"},
	}
	for _, tc := range tests {
		assert.Equal(t, tc.want, FormatDuration(tc.seconds), "FormatDuration(%d)", tc.seconds)
	}
}

func TestFormatDate(t *testing.T) {
	d := time.Date(2024, 1, 5, 23, 0, 0, 0, time.UTC)
	assert.Equal(t, "05.01.2024", FormatDate(d))
	assert.Equal(t, "5 января 2024 г. в 23:00", FormatDateTime(d))
	assert.Equal(t, "31 декабря 2023 г. в 09:07", FormatDateTime(time.Date(2023, 12, 31, 9, 7, 0, 0, time.UTC)))
}

func TestParseKind(t *testing.T) {
	for _, k := range Kinds {
		got, err := ParseKind(string(k))
		require.NoError(t, err)
		assert.Equal(t, k, got)
	}

	got, err := ParseKind(" Weekly ")
	require.NoError(t, err)
	assert.Equal(t, Weekly, got)

	_, err = ParseKind("monthly")
	assert.True(t, errors.Is(err, ErrUnknownKind))
}

func TestKindTitle(t *testing.T) {
	assert.Equal(t, "Планирование", Planning.Title())
	assert.Equal(t, "Дейлик отчет", Daily.Title())
	assert.Equal(t, "Недельный отчет", Weekly.Title())
	assert.Equal(t, "Отчет о времени", Time.Title())
}

func TestFilterInput(t *testing.T) {
	in := FilterInput{
		DateFrom:   "2024-01-01",
		DateTo:     "2024-01-07",
		Users:      []string{" a@x.com ", ""},
		ProjectKey: " OPS ",
	}

	f, err := in.Filters(time.UTC)
	require.NoError(t, err)
	assert.Equal(t, "OPS", f.ProjectKey)
	assert.Equal(t, []string{"a@x.com"}, f.Users)
	require.NotNil(t, f.DateFrom)
	require.NotNil(t, f.DateTo)
	assert.Equal(t, time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC), *f.DateFrom)

	empty, err := FilterInput{}.Filters(time.UTC)
	require.NoError(t, err)
	assert.Nil(t, empty.DateFrom)
	assert.Nil(t, empty.Users)
}

func TestFilterInput_Invalid(t *testing.T) {
	_, err := FilterInput{DateFrom: "01/02/2024"}.Filters(time.UTC)
	assert.Error(t, err)

	_, err = FilterInput{DateFrom: "2024-02-01", DateTo: "2024-01-01"}.Filters(time.UTC)
	assert.Error(t, err)
}
