package models

import (
	"time"

	"github.com/hashicorp/go-multierror"
	"github.com/pkg/errors"
)

// Capture is one indexed CDX record: a (urlkey, timestamp, digest) triple
// plus the metadata the index recorded for it. The normal 7-column form
// leaves the WARC location columns empty.
type Capture struct {
	// UrlKey is the SURT form of the captured URL
	UrlKey Surt `json:"urlkey" db:"capture_urlkey"`
	// Timestamp is the capture instant
	Timestamp Timestamp `json:"timestamp" db:"capture_timestamp"`
	// Original is the URL as captured
	Original string `json:"original" db:"capture_original"`
	MimeType MimeType `json:"mimetype" db:"capture_mimetype"`
	// StatusCode is stored as its integer value; the empty marker is 0
	StatusCode StatusCode `json:"statuscode" db:"capture_statuscode"`
	// Digest is the digest string exactly as the index reported it
	Digest Digest `json:"digest" db:"capture_digest"`
	// DigestValid records whether Digest decodes as a Base32 SHA-1 digest
	DigestValid bool `json:"digest_valid" db:"capture_digest_valid"`
	// Length is the compressed record length, if known
	Length *uint32 `json:"length,omitempty" db:"capture_length"`
	// Redirect is the redirect target from the extended form, if any
	Redirect *string `json:"redirect,omitempty" db:"capture_redirect"`
	// RobotFlags is the robots exclusion flags from the extended form, if any
	RobotFlags *string `json:"robotflags,omitempty" db:"capture_robotflags"`
	// Offset locates the record inside its WARC file (extended form only)
	Offset *uint64 `json:"offset,omitempty" db:"capture_offset"`
	// FileName is the WARC file name (extended form only)
	FileName *string `json:"filename,omitempty" db:"capture_filename"`
	CreatedAt time.Time `json:"created_at" goqu:"skipupdate" db:"capture_created_at"`
	// Stored records whether the snapshot body is present in the CAS
	Stored bool `json:"stored" db:"capture_stored"`
}

// CaptureFromCdxItem converts a normal-form CDX row.
func CaptureFromCdxItem(item CdxItem, now time.Time) *Capture {
	return &Capture{
		UrlKey:      item.Key,
		Timestamp:   item.Timestamp,
		Original:    item.Original,
		MimeType:    item.MimeType,
		StatusCode:  item.StatusCode,
		Digest:      item.Digest,
		DigestValid: item.Digest.IsValid(),
		Length:      item.Length,
		CreatedAt:   now,
	}
}

// CaptureFromCdxExtendedItem converts an extended-form CDX row.
func CaptureFromCdxExtendedItem(item CdxExtendedItem, now time.Time) *Capture {
	capture := CaptureFromCdxItem(item.CdxItem, now)
	capture.Redirect = item.Redirect
	capture.RobotFlags = item.RobotFlags
	offset := item.Offset
	capture.Offset = &offset
	fileName := item.FileName
	capture.FileName = &fileName
	return capture
}

// ItemInfo identifies the snapshot this capture points at.
func (m *Capture) ItemInfo() ItemInfo {
	return ItemInfo{
		UrlParts:       NewUrlParts(m.Original, m.Timestamp),
		ExpectedDigest: m.Digest,
	}
}

func (m *Capture) Validate() error {
	var result *multierror.Error
	if m.UrlKey.IsZero() {
		result = multierror.Append(result, errors.New("error urlkey must be set"))
	}
	if m.Timestamp.IsZero() {
		result = multierror.Append(result, errors.New("error timestamp must be set"))
	}
	if m.Original == "" {
		result = multierror.Append(result, errors.New("error original must be set"))
	}
	if m.Digest.String() == "" {
		result = multierror.Append(result, errors.New("error digest must be set"))
	}
	if m.DigestValid != m.Digest.IsValid() {
		result = multierror.Append(result, errors.New("error digest valid flag does not match digest"))
	}
	if m.CreatedAt.IsZero() {
		result = multierror.Append(result, errors.New("error created at must be set"))
	}
	return result.ErrorOrNil()
}
