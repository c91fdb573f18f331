package helper

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseTimestamp(t *testing.T) {
	want := time.Date(2025, 1, 2, 3, 4, 5, 0, time.UTC)

	tests := []struct {
		name  string
		input interface{}
	}{
		{"iso with Z", "2025-01-02T03:04:05Z"},
		{"iso without zone is utc", "2025-01-02T03:04:05"},
		{"space separated", "2025-01-02 03:04:05"},
		{"explicit offset", "2025-01-02T11:04:05+08:00"},
		{"epoch seconds", float64(want.Unix())},
		{"epoch millis", float64(want.UnixMilli())},
		{"epoch int64", want.Unix()},
		{"epoch string", "1735787045"},
		{"json number", json.Number("1735787045")},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseTimestamp(tt.input)
			require.NoError(t, err)
			assert.True(t, want.Equal(got), "got %s", got)
			_, offset := got.Zone()
			assert.Equal(t, 8*60*60, offset)
		})
	}
}

func TestParseTimestampRejectsGarbage(t *testing.T) {
	for _, input := range []interface{}{"", "not a date", nil, []string{"x"}} {
		_, err := ParseTimestamp(input)
		assert.Error(t, err, "%v", input)
	}
}

func TestParseTimestampIn(t *testing.T) {
	serverZone := time.FixedZone("UTC-4", -4*60*60)

	got, err := ParseTimestampIn("2025-01-02 03:04:05", serverZone)
	require.NoError(t, err)
	assert.Equal(t, "2025-01-02T15:04:05+08:00", FormatReference(got))
}

func TestFormatReference(t *testing.T) {
	utc := time.Date(2025, 6, 30, 20, 0, 0, 0, time.UTC)
	assert.Equal(t, "2025-07-01T04:00:00+08:00", FormatReference(utc))
}
