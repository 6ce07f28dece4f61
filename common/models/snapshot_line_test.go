package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseSnapshotLineMinimal(t *testing.T) {
	input := `{"digest":"FKXGYNOJJ7H3IFO35FPUBC445EPOQRXN","content":{"a":1}}`
	line, err := ParseSnapshotLine(input)
	require.NoError(t, err)
	assert.Equal(t, "FKXGYNOJJ7H3IFO35FPUBC445EPOQRXN", line.Digest.String())
	assert.Nil(t, line.ExpectedDigest)
	assert.Nil(t, line.ClosingWhitespace)
	assert.Nil(t, line.Timestamp)
	assert.Nil(t, line.URL)
	assert.Equal(t, `{"a":1}`, line.Content)
	assert.Equal(t, input, line.String())
}

func TestParseSnapshotLineAllFields(t *testing.T) {
	input := `{"digest":"FKXGYNOJJ7H3IFO35FPUBC445EPOQRXN",` +
		`"expected_digest":"ZHYT52YPEOCHJD5FZINSDYXGQZI22WJ4",` +
		`"closing_whitespace":"\r\n",` +
		`"timestamp":"20180524000000",` +
		`"url":"https://twitter.com/FarLeftWatch/status/999825423977639936",` +
		`"content":{"id_str":"999825423977639936"}}`
	line, err := ParseSnapshotLine(input)
	require.NoError(t, err)
	assert.Equal(t, "FKXGYNOJJ7H3IFO35FPUBC445EPOQRXN", line.Digest.String())
	require.NotNil(t, line.ExpectedDigest)
	assert.Equal(t, "ZHYT52YPEOCHJD5FZINSDYXGQZI22WJ4", line.ExpectedDigest.String())
	assert.Equal(t, []byte{'\r', '\n'}, line.ClosingWhitespace)
	require.NotNil(t, line.Timestamp)
	assert.Equal(t, "20180524000000", line.Timestamp.String())
	require.NotNil(t, line.URL)
	assert.Equal(t, "https://twitter.com/FarLeftWatch/status/999825423977639936", *line.URL)
	assert.Equal(t, `{"id_str":"999825423977639936"}`, line.Content)
	assert.Equal(t, input, line.String())
}

func TestParseSnapshotLineSubsetsRoundTrip(t *testing.T) {
	inputs := []string{
		`{"digest":"FKXGYNOJJ7H3IFO35FPUBC445EPOQRXN","expected_digest":"ZHYT52YPEOCHJD5FZINSDYXGQZI22WJ4","content":{}}`,
		`{"digest":"FKXGYNOJJ7H3IFO35FPUBC445EPOQRXN","closing_whitespace":"\r\r\n","content":{"b":{}}}`,
		`{"digest":"FKXGYNOJJ7H3IFO35FPUBC445EPOQRXN","timestamp":"20200101000000","content":[1,2]}`,
		`{"digest":"FKXGYNOJJ7H3IFO35FPUBC445EPOQRXN","url":"https://example.com/a?b=1","content":{"a":"}"}}`,
	}
	for _, input := range inputs {
		line, err := ParseSnapshotLine(input)
		require.NoError(t, err, input)
		assert.Equal(t, input, line.String(), input)
	}
}

// An explicitly empty closing_whitespace field must stay distinct from an
// absent one: absent means DefaultClosingWhitespace, empty means none at all.
func TestParseSnapshotLineEmptyClosingWhitespace(t *testing.T) {
	input := `{"digest":"FKXGYNOJJ7H3IFO35FPUBC445EPOQRXN","closing_whitespace":"","content":{}}`
	line, err := ParseSnapshotLine(input)
	require.NoError(t, err)
	require.NotNil(t, line.ClosingWhitespace)
	assert.Len(t, line.ClosingWhitespace, 0)
	assert.Equal(t, input, line.String())
}

func TestParseSnapshotLineInvalid(t *testing.T) {
	tests := []struct {
		name  string
		input string
	}{
		{name: "garbage", input: "garbage"},
		{name: "empty", input: ""},
		{name: "truncated digest", input: `{"digest":"FKXGY","content":{}}`},
		{name: "bad digest characters", input: `{"digest":"11111111111111111111111111111111","content":{}}`},
		{name: "missing closing brace", input: `{"digest":"FKXGYNOJJ7H3IFO35FPUBC445EPOQRXN","content":{}`},
		{name: "bad whitespace escape", input: `{"digest":"FKXGYNOJJ7H3IFO35FPUBC445EPOQRXN","closing_whitespace":"\t","content":{}}`},
		{name: "bad timestamp", input: `{"digest":"FKXGYNOJJ7H3IFO35FPUBC445EPOQRXN","timestamp":"2018","content":{}}`},
		{name: "unterminated url", input: `{"digest":"FKXGYNOJJ7H3IFO35FPUBC445EPOQRXN","url":https`},
	}
	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			_, err := ParseSnapshotLine(test.input)
			assert.Error(t, err)
		})
	}
}

func TestSnapshotLineComputeDigest(t *testing.T) {
	// Absent closing whitespace assumes the default "\r\r\n" sequence.
	line := NewSnapshotLine(Sha1DigestOf([]byte("hello"), DefaultClosingWhitespace), "hello")
	assert.Equal(t, "RVS5UAKXJBT4V5NWTPOY6QFH54UXPYRC", line.Digest.String())
	computed, ok := line.Validate()
	assert.True(t, ok)
	assert.True(t, computed.Equal(line.Digest))

	// Explicit whitespace participates in the digest instead of the default.
	line.ClosingWhitespace = []byte{'\n'}
	computed, ok = line.Validate()
	assert.False(t, ok)
	assert.True(t, computed.Equal(Sha1DigestOf([]byte("hello\n"))))

	// Explicitly empty whitespace digests the content alone.
	line.ClosingWhitespace = []byte{}
	computed, _ = line.Validate()
	assert.True(t, computed.Equal(Sha1DigestOf([]byte("hello"))))
}

func TestSnapshotLineValidateMismatch(t *testing.T) {
	line := NewSnapshotLine(Sha1DigestOf([]byte("other")), "hello")
	computed, ok := line.Validate()
	assert.False(t, ok)
	assert.False(t, computed.Equal(line.Digest))
}
