package snapshots

import (
	"bytes"
	"context"
	"io"

	"github.com/pkg/errors"

	"github.com/archivindex/archivindex/common/logger"
	"github.com/archivindex/archivindex/common/models"
	"github.com/archivindex/archivindex/index/services"
	"github.com/archivindex/archivindex/index/services/snapshots/tweet"
)

// exportBatchSize is the page size used when exporting stored captures.
const exportBatchSize = 100

type SnapshotService struct {
	captureStore  services.CaptureStore
	snapshotStore services.SnapshotStore
	logger.Log
}

func NewSnapshotService(
	captureStore services.CaptureStore,
	snapshotStore services.SnapshotStore,
	logFactory logger.LogFactory) *SnapshotService {

	return &SnapshotService{
		captureStore:  captureStore,
		snapshotStore: snapshotStore,
		Log:           logFactory("SnapshotService"),
	}
}

// DigestMismatch records a line whose recorded digest does not match the
// digest of its content.
type DigestMismatch struct {
	Expected models.Sha1Digest
	Found    models.Sha1Digest
}

// ValidationReport is the result of validating one snapshot line file.
type ValidationReport struct {
	Path string
	// ValidCount is the number of lines that parse, hash to their recorded
	// digest, and strictly ascend.
	ValidCount int
	// InvalidLines holds the 1-based numbers of lines that failed to parse.
	InvalidLines []int
	// DigestMismatches holds lines whose content does not hash to their digest.
	DigestMismatches []DigestMismatch
	// OutOfOrder holds digests that do not strictly ascend. Duplicates count
	// as out of order.
	OutOfOrder []models.Sha1Digest
}

// IsSuccessful reports whether the file validated cleanly.
func (r *ValidationReport) IsSuccessful() bool {
	return len(r.InvalidLines) == 0 && len(r.DigestMismatches) == 0 && len(r.OutOfOrder) == 0
}

// ValidateFile checks a snapshot line file: every line parses, every digest
// matches its content, and digests strictly ascend. A mismatched line is not
// order-checked and does not advance the ordering cursor.
func (s *SnapshotService) ValidateFile(path string) (*ValidationReport, error) {
	report := &ValidationReport{Path: path}
	last := models.MinSha1Digest
	err := s.forEachLine(path, func(lineNumber int, raw string) error {
		line, err := models.ParseSnapshotLine(raw)
		if err != nil {
			report.InvalidLines = append(report.InvalidLines, lineNumber)
			return nil
		}
		found, ok := line.Validate()
		if !ok {
			report.DigestMismatches = append(report.DigestMismatches, DigestMismatch{
				Expected: line.Digest,
				Found:    found,
			})
			return nil
		}
		if line.Digest.Compare(last) > 0 {
			report.ValidCount++
			last = line.Digest
		} else {
			report.OutOfOrder = append(report.OutOfOrder, line.Digest)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	s.WithField("path", path).
		WithField("valid", report.ValidCount).
		WithField("invalid", len(report.InvalidLines)).
		WithField("mismatched", len(report.DigestMismatches)).
		WithField("out_of_order", len(report.OutOfOrder)).
		Infof("Validated snapshot line file")
	return report, nil
}

// FindIncomplete returns the digests of lines that do not record a timestamp.
func (s *SnapshotService) FindIncomplete(path string) ([]models.Sha1Digest, error) {
	var digests []models.Sha1Digest
	err := s.forEachLine(path, func(lineNumber int, raw string) error {
		line, err := models.ParseSnapshotLine(raw)
		if err != nil {
			return errors.Wrapf(err, "error parsing line %d", lineNumber)
		}
		if line.Timestamp == nil {
			digests = append(digests, line.Digest)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return digests, nil
}

// TweetURL pairs a line's digest with the canonical status URL recovered from
// its tweet payload. URL is empty when the payload does not identify an author.
type TweetURL struct {
	Digest models.Sha1Digest
	URL    string
}

// ResolveTweetURLs parses the content of every line that does not record a
// URL as an archived tweet payload and resolves its canonical status URL.
func (s *SnapshotService) ResolveTweetURLs(path string) ([]TweetURL, error) {
	var results []TweetURL
	err := s.forEachLine(path, func(lineNumber int, raw string) error {
		line, err := models.ParseSnapshotLine(raw)
		if err != nil {
			return errors.Wrapf(err, "error parsing line %d", lineNumber)
		}
		if line.URL != nil {
			return nil
		}
		result := TweetURL{Digest: line.Digest}
		snapshot, err := tweet.Parse([]byte(line.Content))
		if err == nil {
			if url, ok := tweet.CanonicalURL(snapshot, false); ok {
				result.URL = url
			}
		}
		results = append(results, result)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return results, nil
}

// Export writes every indexed capture whose body is in the snapshot store to
// a new snapshot line file at path, in ascending digest order. Returns the
// number of lines written.
func (s *SnapshotService) Export(ctx context.Context, path string) (int, error) {
	writer, err := NewWriter(path)
	if err != nil {
		return 0, err
	}

	afterDigest := ""
	for {
		captures, err := s.captureStore.ListStoredCaptures(ctx, nil, afterDigest, exportBatchSize)
		if err != nil {
			writer.Close()
			return writer.Count(), errors.Wrap(err, "error listing stored captures")
		}
		if len(captures) == 0 {
			break
		}
		for _, capture := range captures {
			err = s.exportCapture(ctx, writer, capture)
			if err != nil {
				writer.Close()
				return writer.Count(), err
			}
		}
		afterDigest = captures[len(captures)-1].Digest.String()
	}
	err = writer.Close()
	if err != nil {
		return writer.Count(), err
	}
	s.WithField("path", path).WithField("lines", writer.Count()).Infof("Exported snapshot line file")
	return writer.Count(), nil
}

func (s *SnapshotService) exportCapture(ctx context.Context, writer *Writer, capture *models.Capture) error {
	digest, ok := capture.Digest.Sha1()
	if !ok {
		s.WithField("digest", capture.Digest).Warnf("Skipping stored capture with opaque digest")
		return nil
	}
	reader, err := s.snapshotStore.Get(ctx, digest)
	if err != nil {
		return errors.Wrapf(err, "error reading snapshot body %s", digest)
	}
	body, err := io.ReadAll(reader)
	closeErr := reader.Close()
	if err != nil {
		return errors.Wrapf(err, "error reading snapshot body %s", digest)
	}
	if closeErr != nil {
		return errors.Wrapf(closeErr, "error closing snapshot body %s", digest)
	}

	content, closing := splitClosingWhitespace(body)
	line := models.SnapshotLine{
		Digest:            digest,
		ClosingWhitespace: closing,
		Timestamp:         &capture.Timestamp,
		URL:               &capture.Original,
		Content:           string(content),
	}
	_, err = writer.Write(line)
	return err
}

// splitClosingWhitespace splits the trailing run of \r and \n bytes off a
// snapshot body. The split keeps the line's digest equal to the digest of the
// whole body. A trailing run equal to the default is recorded implicitly.
func splitClosingWhitespace(body []byte) (content []byte, closing []byte) {
	end := len(body)
	for end > 0 && (body[end-1] == '\r' || body[end-1] == '\n') {
		end--
	}
	content = body[:end]
	closing = body[end:]
	if bytes.Equal(closing, models.DefaultClosingWhitespace) {
		closing = nil
	}
	return content, closing
}

func (s *SnapshotService) forEachLine(path string, fn func(lineNumber int, raw string) error) error {
	reader, err := OpenReader(path)
	if err != nil {
		return err
	}
	defer reader.Close()
	for lineNumber := 1; ; lineNumber++ {
		raw, err := reader.Next()
		if err == io.EOF {
			return nil
		}
		if err != nil {
			return err
		}
		err = fn(lineNumber, raw)
		if err != nil {
			return err
		}
	}
}
