package cas

import (
	"context"
	"crypto/sha1"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"

	"github.com/google/uuid"
	"github.com/klauspost/compress/zstd"
	"github.com/pkg/errors"

	"github.com/archivindex/archivindex/common/gerror"
	"github.com/archivindex/archivindex/common/logger"
	"github.com/archivindex/archivindex/common/models"
)

type LocalStoreDirectory string

func (l LocalStoreDirectory) String() string {
	return string(l)
}

func (l LocalStoreDirectory) Set(value string) error {
	l = LocalStoreDirectory(value)
	return nil
}

// LocalStore keeps snapshot bodies on the local filesystem, sharded by the
// first two characters of the digest and zstd-compressed at rest.
type LocalStore struct {
	path string
	log  logger.Log
}

func NewLocalStore(path LocalStoreDirectory, logFactory logger.LogFactory) *LocalStore {
	return &LocalStore{
		path: string(path),
		log:  logFactory("LocalSnapshotStore"),
	}
}

// Put stores the data in source under digest, verifying the digest as it writes.
// The caller is responsible for closing the reader.
func (s *LocalStore) Put(ctx context.Context, digest models.Sha1Digest, source io.Reader) error {
	objectPath := s.makeObjectPath(digest)
	_, err := os.Stat(objectPath)
	if err == nil {
		return nil // already stored; content-addressed objects are immutable
	}
	if !os.IsNotExist(err) {
		return errors.Wrapf(err, "error stating snapshot object %s", objectPath)
	}
	err = os.MkdirAll(filepath.Dir(objectPath), 0700)
	if err != nil {
		return errors.Wrap(err, "error making snapshot object directory")
	}

	// Write to a temp file alongside the final path so a failed or mismatched
	// write never leaves a partial object visible under its digest.
	tmpPath := fmt.Sprintf("%s.tmp-%s", objectPath, uuid.New().String())
	tmpFile, err := os.OpenFile(tmpPath, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0600)
	if err != nil {
		return errors.Wrapf(err, "error opening snapshot object %s for writing", tmpPath)
	}
	discard := func() {
		tmpFile.Close()
		os.Remove(tmpPath)
	}

	encoder, err := zstd.NewWriter(tmpFile)
	if err != nil {
		discard()
		return errors.Wrap(err, "error creating zstd writer")
	}
	hasher := sha1.New()
	_, err = io.Copy(encoder, io.TeeReader(source, hasher))
	if err != nil {
		discard()
		return errors.Wrapf(err, "error writing data to snapshot object %s", tmpPath)
	}
	err = encoder.Close()
	if err != nil {
		discard()
		return errors.Wrapf(err, "error flushing snapshot object %s", tmpPath)
	}
	found, err := models.Sha1DigestFromBytes(hasher.Sum(nil))
	if err != nil {
		discard()
		return err
	}
	if !found.Equal(digest) {
		discard()
		return gerror.NewErrDigestMismatch(digest, found)
	}
	err = tmpFile.Sync()
	if err != nil {
		discard()
		return errors.Wrapf(err, "error syncing snapshot object %s", tmpPath)
	}
	err = tmpFile.Close()
	if err != nil {
		os.Remove(tmpPath)
		return errors.Wrapf(err, "error closing snapshot object %s", tmpPath)
	}
	err = os.Rename(tmpPath, objectPath)
	if err != nil {
		os.Remove(tmpPath)
		return errors.Wrapf(err, "error committing snapshot object %s", objectPath)
	}
	s.log.WithField("digest", digest).Debugf("Stored object")
	return nil
}

// Get returns a reader over the uncompressed snapshot body for digest.
// The caller is responsible for closing the reader.
func (s *LocalStore) Get(ctx context.Context, digest models.Sha1Digest) (io.ReadCloser, error) {
	objectPath := s.makeObjectPath(digest)
	objectFile, err := os.Open(objectPath)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, gerror.NewErrNotFound("Not Found").Wrap(err).IDetail("digest", digest)
		}
		return nil, errors.Wrapf(err, "error opening snapshot object %s for reading", objectPath)
	}
	decoder, err := zstd.NewReader(objectFile)
	if err != nil {
		objectFile.Close()
		return nil, errors.Wrapf(err, "error creating zstd reader for snapshot object %s", objectPath)
	}
	return newVerifyingReader(decoder, &decoderCloser{decoder: decoder, file: objectFile}, digest), nil
}

// Has returns true if a snapshot body is stored for digest.
func (s *LocalStore) Has(ctx context.Context, digest models.Sha1Digest) (bool, error) {
	_, err := os.Stat(s.makeObjectPath(digest))
	if err != nil {
		if os.IsNotExist(err) {
			return false, nil
		}
		return false, errors.Wrap(err, "error stating snapshot object")
	}
	return true, nil
}

// Delete deletes the snapshot body for digest. Returns nil if it does not exist.
func (s *LocalStore) Delete(ctx context.Context, digest models.Sha1Digest) error {
	objectPath := s.makeObjectPath(digest)
	err := os.Remove(objectPath)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return fmt.Errorf("error deleting snapshot object %s: %w", objectPath, err)
	}
	return nil
}

// List lists stored digests greater than after in ascending order.
func (s *LocalStore) List(ctx context.Context, after models.Sha1Digest, limit int) ([]models.Sha1Digest, error) {
	shards, err := os.ReadDir(s.path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, errors.Wrap(err, "error reading snapshot store root")
	}
	sort.Slice(shards, func(i, j int) bool { return shards[i].Name() < shards[j].Name() })

	afterStr := after.String()
	var results []models.Sha1Digest
	for _, shard := range shards {
		if !shard.IsDir() || len(shard.Name()) != 2 {
			continue
		}
		if shard.Name() < afterStr[:2] {
			continue // every digest in this shard sorts at or before after
		}
		objects, err := os.ReadDir(filepath.Join(s.path, shard.Name()))
		if err != nil {
			return nil, errors.Wrapf(err, "error reading snapshot store shard %s", shard.Name())
		}
		sort.Slice(objects, func(i, j int) bool { return objects[i].Name() < objects[j].Name() })
		for _, object := range objects {
			if object.IsDir() {
				continue
			}
			digest, err := digestFromObjectName(object.Name())
			if err != nil {
				s.log.WithField("name", object.Name()).Warnf("Skipping unrecognized file in snapshot store")
				continue
			}
			if digest.Compare(after) <= 0 {
				continue
			}
			results = append(results, digest)
			if limit > 0 && len(results) >= limit {
				return results, nil
			}
		}
	}
	return results, nil
}

// makeObjectPath makes a path to a snapshot object on the local filesystem.
func (s *LocalStore) makeObjectPath(digest models.Sha1Digest) string {
	return filepath.Join(s.path, shardPrefix(digest), digest.String()+snapshotFileExtension)
}

// decoderCloser releases a zstd decoder and closes the file underneath it.
type decoderCloser struct {
	decoder *zstd.Decoder
	file    *os.File
}

func (c *decoderCloser) Close() error {
	c.decoder.Close()
	return c.file.Close()
}
