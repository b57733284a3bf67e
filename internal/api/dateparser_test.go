package api

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseTimestampUnix(t *testing.T) {
	got, err := ParseTimestamp("1700000000", "start")
	require.NoError(t, err)
	assert.Equal(t, int64(1700000000), got)
}

func TestParseTimestampNegative(t *testing.T) {
	_, err := ParseTimestamp("-5", "start")
	assert.Error(t, err)
}

func TestParseTimestampEmpty(t *testing.T) {
	_, err := ParseTimestamp("", "start")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "start")
}

func TestParseTimestampHumanReadable(t *testing.T) {
	got, err := ParseTimestamp("2 hours ago", "start")
	require.NoError(t, err)

	want := time.Now().Add(-2 * time.Hour).Unix()
	assert.InDelta(t, want, got, 120)
}

func TestParseOptionalTimestamp(t *testing.T) {
	got, err := ParseOptionalTimestamp("", "start", 42)
	require.NoError(t, err)
	assert.Equal(t, int64(42), got)

	got, err = ParseOptionalTimestamp("1700000000", "start", 42)
	require.NoError(t, err)
	assert.Equal(t, int64(1700000000), got)
}
