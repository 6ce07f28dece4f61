package snapshots

import (
	"os"

	"github.com/klauspost/compress/zstd"
	"github.com/pkg/errors"

	"github.com/archivindex/archivindex/common/gerror"
	"github.com/archivindex/archivindex/common/models"
)

// Writer emits snapshot lines in ascending digest order into a
// zstd-compressed NDJSON file. Consecutive writes of the same digest are
// suppressed; a digest lower than the previous one is an error.
type Writer struct {
	file    *os.File
	encoder *zstd.Encoder
	last    *models.Sha1Digest
	count   int
}

// NewWriter creates a new snapshot line file at path. The file must not
// already exist.
func NewWriter(path string) (*Writer, error) {
	file, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0600)
	if err != nil {
		return nil, errors.Wrapf(err, "error creating snapshot line file %s", path)
	}
	encoder, err := zstd.NewWriter(file)
	if err != nil {
		file.Close()
		os.Remove(path)
		return nil, errors.Wrap(err, "error creating zstd writer")
	}
	return &Writer{file: file, encoder: encoder}, nil
}

// Write appends one snapshot line. Returns true if the line was written,
// false if it was suppressed as a duplicate of the previous digest.
func (w *Writer) Write(line models.SnapshotLine) (bool, error) {
	if w.last != nil {
		cmp := line.Digest.Compare(*w.last)
		if cmp == 0 {
			return false, nil
		}
		if cmp < 0 {
			return false, gerror.NewErrValidationFailed("Out of order digest").
				IDetail("digest", line.Digest).
				IDetail("previous", *w.last)
		}
	}
	_, err := w.encoder.Write(append([]byte(line.String()), '\n'))
	if err != nil {
		return false, errors.Wrap(err, "error writing snapshot line")
	}
	digest := line.Digest
	w.last = &digest
	w.count++
	return true, nil
}

// Count returns the number of lines written so far.
func (w *Writer) Count() int {
	return w.count
}

// Close flushes and closes the file.
func (w *Writer) Close() error {
	err := w.encoder.Close()
	if err != nil {
		w.file.Close()
		return errors.Wrap(err, "error flushing snapshot line file")
	}
	err = w.file.Close()
	if err != nil {
		return errors.Wrap(err, "error closing snapshot line file")
	}
	return nil
}
