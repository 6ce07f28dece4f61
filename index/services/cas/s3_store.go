package cas

import (
	"bytes"
	"context"
	"crypto/sha1"
	"fmt"
	"io"
	"strings"

	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/aws/awserr"
	"github.com/aws/aws-sdk-go/aws/credentials"
	"github.com/aws/aws-sdk-go/aws/session"
	"github.com/aws/aws-sdk-go/service/s3"
	"github.com/aws/aws-sdk-go/service/s3/s3manager"
	"github.com/klauspost/compress/zstd"
	"github.com/pkg/errors"

	"github.com/archivindex/archivindex/common/gerror"
	"github.com/archivindex/archivindex/common/logger"
	"github.com/archivindex/archivindex/common/models"
)

type S3StoreConfig struct {
	BucketName      string
	Region          string
	AccessKeyID     string
	SecretAccessKey string
	// KeyPrefix is prepended to every object key, e.g. "snapshots/".
	KeyPrefix string
}

// S3Store keeps snapshot bodies in an S3 bucket using the same digest-sharded
// key scheme as LocalStore, under a configurable key prefix.
type S3Store struct {
	s3       *s3.S3
	uploader *s3manager.Uploader
	config   S3StoreConfig
	log      logger.Log
}

func NewS3Store(config S3StoreConfig, logFactory logger.LogFactory) (*S3Store, error) {
	if config.BucketName == "" {
		return nil, fmt.Errorf("error bucket name must be configured")
	}
	log := logFactory("AWSS3SnapshotStore")
	cfg := &aws.Config{}
	log.Infof("Using bucket: %s", config.BucketName)
	if config.Region != "" {
		log.Infof("Using region: %s", config.Region)
		cfg = cfg.WithRegion(config.Region)
	} else {
		log.Info("Using default region")
	}
	if config.AccessKeyID != "" && config.SecretAccessKey != "" {
		log.Infof("Using static credentials: %s", config.AccessKeyID)
		cfg = cfg.WithCredentials(credentials.NewStaticCredentials(config.AccessKeyID, config.SecretAccessKey, ""))
	} else {
		log.Infof("Using default credentials")
	}
	sess, err := session.NewSession(cfg)
	if err != nil {
		return nil, fmt.Errorf("error creating AWS session: %w", err)
	}
	return &S3Store{
		s3:       s3.New(sess),
		uploader: s3manager.NewUploader(sess),
		config:   config,
		log:      log,
	}, nil
}

// Put stores the data in source under digest, verifying the digest before
// uploading. The caller is responsible for closing the reader.
func (s *S3Store) Put(ctx context.Context, digest models.Sha1Digest, source io.Reader) error {
	exists, err := s.Has(ctx, digest)
	if err != nil {
		return err
	}
	if exists {
		return nil // already stored; content-addressed objects are immutable
	}

	// Compress and hash in full before uploading so a digest mismatch never
	// leaves a corrupt object in the bucket.
	var compressed bytes.Buffer
	encoder, err := zstd.NewWriter(&compressed)
	if err != nil {
		return errors.Wrap(err, "error creating zstd writer")
	}
	hasher := sha1.New()
	_, err = io.Copy(encoder, io.TeeReader(source, hasher))
	if err != nil {
		return errors.Wrap(err, "error compressing snapshot body")
	}
	err = encoder.Close()
	if err != nil {
		return errors.Wrap(err, "error flushing snapshot body")
	}
	found, err := models.Sha1DigestFromBytes(hasher.Sum(nil))
	if err != nil {
		return err
	}
	if !found.Equal(digest) {
		return gerror.NewErrDigestMismatch(digest, found)
	}

	key := s.makeObjectKey(digest)
	input := &s3manager.UploadInput{
		Body:                 bytes.NewReader(compressed.Bytes()),
		Bucket:               aws.String(s.config.BucketName),
		ContentType:          aws.String("application/zstd"),
		Key:                  aws.String(key),
		ServerSideEncryption: aws.String("AES256"),
	}
	out, err := s.uploader.UploadWithContext(ctx, input)
	if err != nil {
		return fmt.Errorf("error putting snapshot object %s: %s", key, err)
	}
	s.log.WithField("bucket", s.config.BucketName).
		WithField("key", key).
		WithField("upload_id", out.UploadID).
		Debugf("Uploaded object")
	return nil
}

// Get returns a reader over the uncompressed snapshot body for digest.
// The caller is responsible for closing the reader.
func (s *S3Store) Get(ctx context.Context, digest models.Sha1Digest) (io.ReadCloser, error) {
	key := s.makeObjectKey(digest)
	input := &s3.GetObjectInput{
		Bucket: aws.String(s.config.BucketName),
		Key:    aws.String(key),
	}
	output, err := s.s3.GetObjectWithContext(ctx, input)
	if err != nil {
		if isS3NotFound(err) {
			return nil, gerror.NewErrNotFound("Not Found").Wrap(err).IDetail("digest", digest)
		}
		return nil, fmt.Errorf("error getting snapshot object %s: %s", key, err)
	}
	decoder, err := zstd.NewReader(output.Body)
	if err != nil {
		output.Body.Close()
		return nil, errors.Wrapf(err, "error creating zstd reader for snapshot object %s", key)
	}
	return newVerifyingReader(decoder, &s3DecoderCloser{decoder: decoder, body: output.Body}, digest), nil
}

// Has returns true if a snapshot body is stored for digest.
func (s *S3Store) Has(ctx context.Context, digest models.Sha1Digest) (bool, error) {
	key := s.makeObjectKey(digest)
	input := &s3.HeadObjectInput{
		Bucket: aws.String(s.config.BucketName),
		Key:    aws.String(key),
	}
	_, err := s.s3.HeadObjectWithContext(ctx, input)
	if err != nil {
		if isS3NotFound(err) {
			return false, nil
		}
		return false, fmt.Errorf("error heading snapshot object %s: %s", key, err)
	}
	return true, nil
}

// Delete deletes the snapshot body for digest. Returns nil if it does not exist.
func (s *S3Store) Delete(ctx context.Context, digest models.Sha1Digest) error {
	key := s.makeObjectKey(digest)
	input := &s3.DeleteObjectInput{
		Bucket: aws.String(s.config.BucketName),
		Key:    aws.String(key),
	}
	_, err := s.s3.DeleteObjectWithContext(ctx, input)
	if err != nil {
		return fmt.Errorf("error deleting snapshot object %s: %s", key, err)
	}
	return nil
}

// List lists stored digests greater than after in ascending order.
func (s *S3Store) List(ctx context.Context, after models.Sha1Digest, limit int) ([]models.Sha1Digest, error) {
	input := &s3.ListObjectsV2Input{
		Bucket:     aws.String(s.config.BucketName),
		Prefix:     aws.String(s.config.KeyPrefix),
		StartAfter: aws.String(s.makeObjectKey(after)),
	}
	var results []models.Sha1Digest
	var parseErr error
	err := s.s3.ListObjectsV2PagesWithContext(ctx, input, func(page *s3.ListObjectsV2Output, lastPage bool) bool {
		for _, obj := range page.Contents {
			name := strings.TrimPrefix(*obj.Key, s.config.KeyPrefix)
			slash := strings.IndexByte(name, '/')
			if slash >= 0 {
				name = name[slash+1:]
			}
			digest, err := digestFromObjectName(name)
			if err != nil {
				parseErr = errors.Wrapf(err, "error parsing snapshot object key %q", *obj.Key)
				return false
			}
			results = append(results, digest)
			if limit > 0 && len(results) >= limit {
				return false
			}
		}
		return true
	})
	if err != nil {
		return nil, fmt.Errorf("error listing snapshot objects after %s: %w", after, err)
	}
	if parseErr != nil {
		return nil, parseErr
	}
	return results, nil
}

// makeObjectKey makes an S3 object key for a digest.
// Keys keep the two-character shard so digest order and key order agree with LocalStore.
func (s *S3Store) makeObjectKey(digest models.Sha1Digest) string {
	return s.config.KeyPrefix + shardPrefix(digest) + "/" + digest.String() + snapshotFileExtension
}

// s3DecoderCloser releases a zstd decoder and closes the object body underneath it.
type s3DecoderCloser struct {
	decoder *zstd.Decoder
	body    io.ReadCloser
}

func (c *s3DecoderCloser) Close() error {
	c.decoder.Close()
	return c.body.Close()
}

func isS3NotFound(err error) bool {
	var awsErr awserr.Error
	if errors.As(err, &awsErr) {
		switch awsErr.Code() {
		case s3.ErrCodeNoSuchKey, "NotFound":
			return true
		}
	}
	return false
}
