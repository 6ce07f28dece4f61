package gerror

import (
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestErrorCodeMatching(t *testing.T) {
	err := NewErrNotFound("Not Found")
	assert.True(t, IsNotFound(err))
	assert.False(t, IsValidationFailed(err))
	require.NotNil(t, ToNotFound(err))
	assert.Nil(t, ToValidationFailed(err))
	assert.Equal(t, ErrCodeNotFound, err.Code())
	assert.Equal(t, AudienceExternal, err.Audience())
}

func TestErrorCodeMatchingThroughWrapping(t *testing.T) {
	inner := NewErrDigestMismatch("AAAA", "BBBB")
	wrapped := errors.Wrap(inner, "error storing snapshot")
	assert.True(t, IsDigestMismatch(wrapped))
	assert.False(t, IsDigestMismatch(errors.New("plain error")))
	assert.False(t, IsDigestMismatch(nil))

	found := ToDigestMismatch(wrapped)
	require.NotNil(t, found)
	assert.Equal(t, "Digest mismatch", found.Message())
}

func TestErrorWrapKeepsChain(t *testing.T) {
	cause := errors.New("disk on fire")
	err := NewErrNotFound("Not Found").Wrap(cause)
	assert.Equal(t, cause, errors.Unwrap(err))
	assert.Contains(t, err.Error(), "Not Found")
	assert.Contains(t, err.Error(), "disk on fire")
	assert.Equal(t, "Not Found", err.Message())
}

func TestErrorDetails(t *testing.T) {
	err := NewErrValidationFailed("Invalid line").
		IDetail("line", 3).
		EDetail("path", "snapshots.zst")

	details := err.Details()
	require.Len(t, details, 2)
	assert.Equal(t, AudienceInternal, details["line"].Audience())
	assert.Equal(t, 3, details["line"].Value())
	assert.Equal(t, AudienceExternal, details["path"].Audience())
	assert.Equal(t, DetailKey("path"), details["path"].Key())

	// Each detail call returns a copy; the original is untouched.
	assert.Len(t, NewErrValidationFailed("Invalid line").Details(), 0)
	assert.Contains(t, err.Error(), "Invalid line")
}

func TestNewErrDigestMismatchDetails(t *testing.T) {
	err := NewErrDigestMismatch("EXPECTED", "FOUND")
	details := err.Details()
	assert.Equal(t, "EXPECTED", details["expected"].Value())
	assert.Equal(t, "FOUND", details["found"].Value())
}
