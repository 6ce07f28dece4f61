package tweet

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const flatPayload = `{"id_str":"999825423977639936","user":{"id_str":"42","screen_name":"farleftwatch"}}`

const dataPayload = `{
	"data":{"id":"999825423977639936","author_id":"42"},
	"includes":{"users":[{"id":"42","username":"FarLeftWatch"},{"id":"7","username":"other"}]}
}`

func TestParseFlatPayload(t *testing.T) {
	snapshot, err := Parse([]byte(flatPayload))
	require.NoError(t, err)
	assert.Equal(t, uint64(999825423977639936), snapshot.ID())
	assert.Equal(t, uint64(42), snapshot.UserID())
	screenName, ok := snapshot.UserScreenName()
	require.True(t, ok)
	assert.Equal(t, "farleftwatch", screenName)
}

func TestParseDataPayload(t *testing.T) {
	snapshot, err := Parse([]byte(dataPayload))
	require.NoError(t, err)
	assert.Equal(t, uint64(999825423977639936), snapshot.ID())
	assert.Equal(t, uint64(42), snapshot.UserID())
	screenName, ok := snapshot.UserScreenName()
	require.True(t, ok)
	assert.Equal(t, "FarLeftWatch", screenName)
}

func TestParseDataPayloadUnknownAuthor(t *testing.T) {
	payload := `{"data":{"id":"1","author_id":"42"},"includes":{"users":[{"id":"7","username":"other"}]}}`
	snapshot, err := Parse([]byte(payload))
	require.NoError(t, err)
	_, ok := snapshot.UserScreenName()
	assert.False(t, ok)
}

func TestParseFlatPayloadWithoutScreenName(t *testing.T) {
	snapshot, err := Parse([]byte(`{"id_str":"1","user":{"id_str":"42","screen_name":""}}`))
	require.NoError(t, err)
	_, ok := snapshot.UserScreenName()
	assert.False(t, ok)
}

func TestParseUnrecognizedShape(t *testing.T) {
	_, err := Parse([]byte(`{"something":"else"}`))
	assert.Error(t, err)
	_, err = Parse([]byte(`not json`))
	assert.Error(t, err)
}

func TestCanonicalURL(t *testing.T) {
	snapshot, err := Parse([]byte(flatPayload))
	require.NoError(t, err)

	url, ok := CanonicalURL(snapshot, false)
	require.True(t, ok)
	assert.Equal(t, "https://twitter.com/farleftwatch/status/999825423977639936", url)

	url, ok = CanonicalURL(snapshot, true)
	require.True(t, ok)
	assert.Equal(t, "https://x.com/farleftwatch/status/999825423977639936", url)
}

func TestCanonicalURLUnresolvable(t *testing.T) {
	snapshot, err := Parse([]byte(`{"data":{"id":"1","author_id":"42"},"includes":{"users":[]}}`))
	require.NoError(t, err)
	_, ok := CanonicalURL(snapshot, false)
	assert.False(t, ok)
}

func TestUint64StrRoundTrip(t *testing.T) {
	value := Uint64Str(999825423977639936)
	data, err := value.MarshalJSON()
	require.NoError(t, err)
	assert.Equal(t, `"999825423977639936"`, string(data))

	var decoded Uint64Str
	require.NoError(t, decoded.UnmarshalJSON(data))
	assert.Equal(t, value, decoded)

	assert.Error(t, decoded.UnmarshalJSON([]byte(`"not a number"`)))
	assert.Error(t, decoded.UnmarshalJSON([]byte(`42`)))
}
