package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseUrlParts(t *testing.T) {
	parts, err := ParseUrlParts("https://web.archive.org/web/20180524000000/https://twitter.com/FarLeftWatch/status/999825423977639936")
	require.NoError(t, err)
	assert.Equal(t, "https://twitter.com/FarLeftWatch/status/999825423977639936", parts.URL)
	assert.Equal(t, "20180524000000", parts.Timestamp.String())
}

func TestParseUrlPartsWithMarker(t *testing.T) {
	parts, err := ParseUrlParts("http://web.archive.org/web/20180524000000id_/https://example.com/")
	require.NoError(t, err)
	assert.Equal(t, "https://example.com/", parts.URL)
}

func TestParseUrlPartsInvalid(t *testing.T) {
	tests := []struct {
		name  string
		input string
	}{
		{name: "wrong host", input: "https://example.com/web/20180524000000/https://example.com/"},
		{name: "short timestamp", input: "https://web.archive.org/web/2018052400/https://example.com/"},
		{name: "missing target", input: "https://web.archive.org/web/20180524000000/"},
		{name: "bad timestamp digits", input: "https://web.archive.org/web/20181324000000/https://example.com/"},
	}
	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			_, err := ParseUrlParts(test.input)
			assert.Error(t, err)
		})
	}
}

func TestWaybackURL(t *testing.T) {
	timestamp, err := ParseTimestamp("20180524000000")
	require.NoError(t, err)
	parts := NewUrlParts("https://twitter.com/FarLeftWatch/status/999825423977639936", timestamp)

	assert.Equal(t,
		"https://web.archive.org/web/20180524000000id_/https://twitter.com/FarLeftWatch/status/999825423977639936",
		parts.WaybackURL(true, true))
	assert.Equal(t,
		"http://web.archive.org/web/20180524000000/https://twitter.com/FarLeftWatch/status/999825423977639936",
		parts.WaybackURL(false, false))
}

func TestWaybackURLRoundTrip(t *testing.T) {
	timestamp, err := ParseTimestamp("20200101123045")
	require.NoError(t, err)
	parts := NewUrlParts("https://example.com/a?b=1", timestamp)
	parsed, err := ParseUrlParts(parts.WaybackURL(true, true))
	require.NoError(t, err)
	assert.Equal(t, parts, parsed)
}
