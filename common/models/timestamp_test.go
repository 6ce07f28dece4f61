package models

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseTimestamp(t *testing.T) {
	timestamp, err := ParseTimestamp("20180524000000")
	require.NoError(t, err)
	assert.Equal(t, time.Date(2018, 5, 24, 0, 0, 0, 0, time.UTC), timestamp.Time())
	assert.Equal(t, "20180524000000", timestamp.String())
	assert.False(t, timestamp.IsZero())
}

func TestParseTimestampInvalid(t *testing.T) {
	tests := []struct {
		name  string
		input string
	}{
		{name: "too short", input: "2018052400000"},
		{name: "too long", input: "201805240000000"},
		{name: "non digit", input: "2018052400000x"},
		{name: "month out of range", input: "20181324000000"},
		{name: "empty", input: ""},
	}
	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			_, err := ParseTimestamp(test.input)
			assert.Error(t, err)
		})
	}
}

func TestTimestampFromTime(t *testing.T) {
	timestamp, err := TimestampFromTime(time.Date(2018, 5, 24, 12, 30, 45, 0, time.UTC))
	require.NoError(t, err)
	assert.Equal(t, "20180524123045", timestamp.String())

	_, err = TimestampFromTime(time.Date(2018, 5, 24, 12, 30, 45, 1, time.UTC))
	assert.Error(t, err, "sub-second precision must be rejected")
}

func TestTimestampFromUnix(t *testing.T) {
	timestamp := TimestampFromUnix(1527120000)
	assert.Equal(t, "20180524000000", timestamp.String())
	assert.Equal(t, int64(1527120000), timestamp.Unix())
}

func TestTimestampOrdering(t *testing.T) {
	earlier, err := ParseTimestamp("20180524000000")
	require.NoError(t, err)
	later, err := ParseTimestamp("20180524000001")
	require.NoError(t, err)
	assert.True(t, earlier.Before(later))
	assert.False(t, later.Before(earlier))
	assert.True(t, earlier.Equal(earlier))
	assert.False(t, earlier.Equal(later))
}

func TestTimestampJSONRoundTrip(t *testing.T) {
	timestamp, err := ParseTimestamp("20180524123045")
	require.NoError(t, err)
	data, err := json.Marshal(timestamp)
	require.NoError(t, err)
	assert.Equal(t, `"20180524123045"`, string(data))

	var decoded Timestamp
	require.NoError(t, json.Unmarshal(data, &decoded))
	assert.True(t, timestamp.Equal(decoded))
}

func TestTimestampScan(t *testing.T) {
	var timestamp Timestamp
	require.NoError(t, timestamp.Scan("20180524000000"))
	assert.Equal(t, "20180524000000", timestamp.String())
	require.NoError(t, timestamp.Scan([]byte("20200101000000")))
	assert.Equal(t, "20200101000000", timestamp.String())
	assert.Error(t, timestamp.Scan(20180524000000))
}
