package cas

import (
	"crypto/sha1"
	"fmt"
	"hash"
	"io"

	"github.com/archivindex/archivindex/common/gerror"
	"github.com/archivindex/archivindex/common/models"
)

const (
	AWSS3StoreType StoreType = "AWS_S3"
	LocalStoreType StoreType = "LOCAL"
)

type StoreType string

func (s StoreType) String() string {
	return string(s)
}

func StoreTypes() []string {
	return []string{AWSS3StoreType.String(), LocalStoreType.String()}
}

// snapshotFileExtension is the extension of snapshot objects at rest.
// Payloads are zstd-compressed; keys are the digest of the uncompressed bytes.
const snapshotFileExtension = ".zst"

// shardPrefix returns the two-character directory shard for a digest.
func shardPrefix(digest models.Sha1Digest) string {
	return digest.String()[:2]
}

// verifyingReader recomputes the SHA-1 of everything read through it and
// compares against the expected digest once the underlying reader is drained.
type verifyingReader struct {
	reader   io.Reader
	closer   io.Closer
	hash     hash.Hash
	expected models.Sha1Digest
	verified bool
}

func newVerifyingReader(reader io.Reader, closer io.Closer, expected models.Sha1Digest) *verifyingReader {
	return &verifyingReader{
		reader:   reader,
		closer:   closer,
		hash:     sha1.New(),
		expected: expected,
	}
}

func (r *verifyingReader) Read(p []byte) (int, error) {
	n, err := r.reader.Read(p)
	if n > 0 {
		r.hash.Write(p[:n])
	}
	if err == io.EOF && !r.verified {
		r.verified = true
		found, digestErr := models.Sha1DigestFromBytes(r.hash.Sum(nil))
		if digestErr != nil {
			return n, digestErr
		}
		if !found.Equal(r.expected) {
			return n, gerror.NewErrDigestMismatch(r.expected, found)
		}
	}
	return n, err
}

func (r *verifyingReader) Close() error {
	if r.closer == nil {
		return nil
	}
	return r.closer.Close()
}

// digestFromObjectName parses a digest out of a stored object's base name,
// e.g. "ZHYT52YPEOCHJD5FZINSDYXGQZI22WJ4.zst".
func digestFromObjectName(name string) (models.Sha1Digest, error) {
	if len(name) != models.Sha1DigestStrLen+len(snapshotFileExtension) ||
		name[models.Sha1DigestStrLen:] != snapshotFileExtension {
		return models.Sha1Digest{}, fmt.Errorf("error unexpected object name %q", name)
	}
	return models.ParseSha1Digest(name[:models.Sha1DigestStrLen])
}
