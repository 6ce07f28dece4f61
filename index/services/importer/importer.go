package importer

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/h2non/filetype"
	"github.com/hashicorp/go-multierror"
	"github.com/klauspost/compress/gzip"
	"github.com/klauspost/compress/zstd"
	"github.com/pkg/errors"

	"github.com/archivindex/archivindex/common/logger"
	"github.com/archivindex/archivindex/common/models"
	"github.com/archivindex/archivindex/common/util"
	"github.com/archivindex/archivindex/index/services"
	"github.com/archivindex/archivindex/index/store"
)

type compression int

const (
	compressionNone compression = iota
	compressionZstd
	compressionGzip
)

// ImporterService bulk-imports digest-named snapshot files into the snapshot
// store and records them in the capture index.
type ImporterService struct {
	db             *store.DB
	captureStore   services.CaptureStore
	ingestionStore services.IngestionStore
	snapshotStore  services.SnapshotStore
	logger.Log
}

func NewImporterService(
	db *store.DB,
	captureStore services.CaptureStore,
	ingestionStore services.IngestionStore,
	snapshotStore services.SnapshotStore,
	logFactory logger.LogFactory) *ImporterService {

	return &ImporterService{
		db:             db,
		captureStore:   captureStore,
		ingestionStore: ingestionStore,
		snapshotStore:  snapshotStore,
		Log:            logFactory("ImporterService"),
	}
}

// DigestMismatch records a snapshot file whose contents hash to a different
// digest than its name claims.
type DigestMismatch struct {
	Path     string
	Expected models.Sha1Digest
	Found    models.Sha1Digest
}

// ImportResult summarizes one import run.
type ImportResult struct {
	// Imported counts files stored into the snapshot store.
	Imported int
	// Skipped lists files that are not digest-named snapshot files.
	Skipped []string
	// Mismatched lists files whose contents do not hash to their name.
	Mismatched []*DigestMismatch
}

type snapshotFile struct {
	path        string
	digest      models.Sha1Digest
	compression compression
}

// Import walks the supplied directories and imports every digest-named
// snapshot file found. Files that are not shaped like snapshot files are
// skipped and recorded; files whose contents do not match their digest are
// recorded as mismatches and not stored. Per-file failures are aggregated
// into the returned error; I/O errors during the walk abort the run.
func (s *ImporterService) Import(ctx context.Context, dirs []string) (*ImportResult, error) {
	result := &ImportResult{}
	var files []snapshotFile
	for _, dir := range dirs {
		err := filepath.Walk(dir, func(path string, info os.FileInfo, err error) error {
			if err != nil {
				return err
			}
			if info.IsDir() {
				return nil
			}
			file, ok := parseSnapshotFileName(path)
			if !ok {
				s.WithField("path", path).Debugf("Skipping file; not a digest-named snapshot")
				result.Skipped = append(result.Skipped, path)
				return nil
			}
			files = append(files, file)
			return nil
		})
		if err != nil {
			return nil, errors.Wrapf(err, "error walking snapshot directory %s", dir)
		}
	}

	var merr *multierror.Error
	for _, file := range files {
		mismatch, err := s.importFile(ctx, file)
		if err != nil {
			merr = multierror.Append(merr, errors.Wrapf(err, "error importing %s", file.path))
			continue
		}
		if mismatch != nil {
			result.Mismatched = append(result.Mismatched, mismatch)
			continue
		}
		result.Imported++
	}
	s.WithField("imported", result.Imported).
		WithField("skipped", len(result.Skipped)).
		WithField("mismatched", len(result.Mismatched)).
		Infof("Import run finished")
	return result, merr.ErrorOrNil()
}

// importFile validates and stores a single snapshot file.
// A digest mismatch is a result, not an error; anything else that stops the
// file being stored is an error.
func (s *ImporterService) importFile(ctx context.Context, file snapshotFile) (*DigestMismatch, error) {
	f, err := os.Open(file.path)
	if err != nil {
		return nil, errors.Wrap(err, "error opening snapshot file")
	}
	defer f.Close()

	err = confirmCompression(f, file.compression)
	if err != nil {
		return nil, err
	}

	countingReader := util.NewCountingReader(f)
	var reader io.Reader = countingReader
	switch file.compression {
	case compressionZstd:
		decoder, err := zstd.NewReader(reader)
		if err != nil {
			return nil, errors.Wrap(err, "error creating zstd reader")
		}
		defer decoder.Close()
		reader = decoder
	case compressionGzip:
		decoder, err := gzip.NewReader(reader)
		if err != nil {
			return nil, errors.Wrap(err, "error creating gzip reader")
		}
		defer decoder.Close()
		reader = decoder
	}

	body, err := io.ReadAll(reader)
	if err != nil {
		return nil, errors.Wrap(err, "error reading snapshot file")
	}
	found := models.Sha1DigestOf(body)
	if !found.Equal(file.digest) {
		return &DigestMismatch{Path: file.path, Expected: file.digest, Found: found}, nil
	}

	err = s.snapshotStore.Put(ctx, file.digest, bytes.NewReader(body))
	if err != nil {
		return nil, errors.Wrap(err, "error storing snapshot body")
	}
	err = s.captureStore.MarkStored(ctx, nil, file.digest)
	if err != nil {
		return nil, errors.Wrap(err, "error marking captures stored")
	}
	s.WithField("digest", file.digest).
		WithField("bytes_read", countingReader.Count()).
		Debugf("Imported snapshot")
	return nil, nil
}

// parseSnapshotFileName recognizes files named `<digest>` with an optional
// `.zst` or `.gz` suffix.
func parseSnapshotFileName(path string) (snapshotFile, bool) {
	name := filepath.Base(path)
	comp := compressionNone
	switch {
	case strings.HasSuffix(name, ".zst"):
		comp = compressionZstd
		name = strings.TrimSuffix(name, ".zst")
	case strings.HasSuffix(name, ".gz"):
		comp = compressionGzip
		name = strings.TrimSuffix(name, ".gz")
	}
	digest, err := models.ParseSha1Digest(name)
	if err != nil {
		return snapshotFile{}, false
	}
	return snapshotFile{path: path, digest: digest, compression: comp}, true
}

// confirmCompression checks the file's magic bytes agree with the compression
// implied by its extension. The file is repositioned to offset 0 on success.
func confirmCompression(f *os.File, comp compression) error {
	header := make([]byte, 261) // header length from https://github.com/h2non/filetype
	n, err := io.ReadFull(f, header)
	if err != nil && err != io.EOF && err != io.ErrUnexpectedEOF {
		return errors.Wrap(err, "error reading snapshot file header")
	}
	_, err = f.Seek(0, io.SeekStart)
	if err != nil {
		return errors.Wrap(err, "error seeking to beginning of snapshot file")
	}
	kind, err := filetype.Match(header[:n])
	if err != nil {
		return errors.Wrap(err, "error sniffing snapshot file type")
	}
	switch comp {
	case compressionZstd:
		if kind.Extension != "zst" {
			return fmt.Errorf("error file has .zst extension but contents are not zstd")
		}
	case compressionGzip:
		if kind.Extension != "gz" {
			return fmt.Errorf("error file has .gz extension but contents are not gzip")
		}
	case compressionNone:
		if kind.Extension == "zst" || kind.Extension == "gz" {
			return fmt.Errorf("error file is %s-compressed but has no compression extension", kind.Extension)
		}
	}
	return nil
}
