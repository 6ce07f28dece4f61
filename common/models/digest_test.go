package models

import (
	"bytes"
	"crypto/sha1"
	"encoding/json"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseSha1Digest(t *testing.T) {
	digest, err := ParseSha1Digest("FKXGYNOJJ7H3IFO35FPUBC445EPOQRXN")
	require.NoError(t, err)
	assert.Equal(t, "FKXGYNOJJ7H3IFO35FPUBC445EPOQRXN", digest.String())
	assert.True(t, digest.Equal(Sha1DigestOf([]byte("hello world"))))
}

func TestParseSha1DigestInvalid(t *testing.T) {
	_, err := ParseSha1Digest("FKXGYNOJJ7H3IFO35FPUBC445EPOQRX")
	assert.Error(t, err, "short input must be rejected")
	_, err = ParseSha1Digest("FKXGYNOJJ7H3IFO35FPUBC445EPOQRXNN")
	assert.Error(t, err, "long input must be rejected")
	_, err = ParseSha1Digest("11111111111111111111111111111111")
	assert.Error(t, err, "characters outside the Base32 alphabet must be rejected")
}

func TestSha1DigestFromBytes(t *testing.T) {
	sum := sha1.Sum([]byte("hello world"))
	digest, err := Sha1DigestFromBytes(sum[:])
	require.NoError(t, err)
	assert.Equal(t, "FKXGYNOJJ7H3IFO35FPUBC445EPOQRXN", digest.String())

	_, err = Sha1DigestFromBytes(sum[:19])
	assert.Error(t, err)
}

func TestComputeSha1Digest(t *testing.T) {
	digest, err := ComputeSha1Digest(bytes.NewReader([]byte("hello world")))
	require.NoError(t, err)
	assert.Equal(t, "FKXGYNOJJ7H3IFO35FPUBC445EPOQRXN", digest.String())

	empty, err := ComputeSha1Digest(bytes.NewReader(nil))
	require.NoError(t, err)
	assert.Equal(t, "3I42H3S6NNFQ2MSVX7XZKYAYSCX5QBYJ", empty.String())
}

func TestSha1DigestOfConcatenates(t *testing.T) {
	whole := Sha1DigestOf([]byte("hello world"))
	parts := Sha1DigestOf([]byte("hello "), []byte("world"))
	assert.True(t, whole.Equal(parts))
}

// Compare must order digests by their Base32 string form, not their raw
// bytes: digits sort before letters in ASCII but after them in the Base32
// alphabet, and the database, filesystem and object store all sort by string.
func TestSha1DigestCompareUsesStringOrder(t *testing.T) {
	low, err := ParseSha1Digest("2AAAAAAAAAAAAAAAAAAAAAAAAAAAAAAA")
	require.NoError(t, err)
	high, err := ParseSha1Digest("AAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAA")
	require.NoError(t, err)

	// The '2'-leading digest has the larger raw bytes but the smaller string.
	assert.True(t, bytes.Compare(low[:], high[:]) > 0)
	assert.True(t, low.Compare(high) < 0)
	assert.True(t, high.Compare(low) > 0)
	assert.Equal(t, 0, low.Compare(low))
	assert.Equal(t, strings.Compare(low.String(), high.String()), low.Compare(high))
}

func TestSha1DigestBounds(t *testing.T) {
	assert.Equal(t, strings.Repeat("2", Sha1DigestStrLen), MinSha1Digest.String())
	assert.Equal(t, strings.Repeat("Z", Sha1DigestStrLen), MaxSha1Digest.String())
	assert.True(t, MinSha1Digest.Compare(MaxSha1Digest) < 0)

	digest := Sha1DigestOf([]byte("hello world"))
	assert.True(t, MinSha1Digest.Compare(digest) < 0)
	assert.True(t, digest.Compare(MaxSha1Digest) < 0)
}

func TestSha1DigestJSONRoundTrip(t *testing.T) {
	digest := Sha1DigestOf([]byte("hello world"))
	data, err := json.Marshal(digest)
	require.NoError(t, err)
	assert.Equal(t, `"FKXGYNOJJ7H3IFO35FPUBC445EPOQRXN"`, string(data))

	var decoded Sha1Digest
	require.NoError(t, json.Unmarshal(data, &decoded))
	assert.True(t, digest.Equal(decoded))
}

func TestParseDigestValid(t *testing.T) {
	digest, err := ParseDigest("ZHYT52YPEOCHJD5FZINSDYXGQZI22WJ4")
	require.NoError(t, err)
	assert.True(t, digest.IsValid())
	assert.Equal(t, "ZHYT52YPEOCHJD5FZINSDYXGQZI22WJ4", digest.String())

	sha1Digest, ok := digest.Sha1()
	require.True(t, ok)
	assert.Equal(t, "ZHYT52YPEOCHJD5FZINSDYXGQZI22WJ4", sha1Digest.String())
}

func TestParseDigestOpaque(t *testing.T) {
	digest, err := ParseDigest("0123456789abcdef")
	require.NoError(t, err)
	assert.False(t, digest.IsValid())
	assert.Equal(t, "0123456789abcdef", digest.String())

	_, ok := digest.Sha1()
	assert.False(t, ok)
}

// A 32-character digest string that is not valid Base32 is an error rather
// than an opaque digest, so opaque values can never shadow a real digest.
func TestParseDigestInvalidAtSha1Length(t *testing.T) {
	_, err := ParseDigest("11111111111111111111111111111111")
	assert.Error(t, err)
}

func TestDigestFromSha1(t *testing.T) {
	sha1Digest := Sha1DigestOf([]byte("hello world"))
	digest := DigestFromSha1(sha1Digest)
	assert.True(t, digest.IsValid())
	assert.True(t, digest.Equal(DigestFromSha1(sha1Digest)))
	assert.False(t, digest.Equal(Digest{}))
}

func TestDigestScan(t *testing.T) {
	var digest Digest
	require.NoError(t, digest.Scan("ZHYT52YPEOCHJD5FZINSDYXGQZI22WJ4"))
	assert.True(t, digest.IsValid())
	require.NoError(t, digest.Scan([]byte("opaque")))
	assert.False(t, digest.IsValid())
	assert.Equal(t, "opaque", digest.String())
	assert.Error(t, digest.Scan(42))
}
