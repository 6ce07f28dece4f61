package models

import (
	"fmt"
	"regexp"

	"github.com/archivindex/archivindex/common/gerror"
)

var waybackURLPattern = regexp.MustCompile(`^https?://web\.archive\.org/web/(\d{14})(?:id_)?/(.+)$`)

// UrlParts identifies a single capture: the archived URL plus the capture
// timestamp. Together they address a snapshot on web.archive.org.
type UrlParts struct {
	URL       string    `json:"url"`
	Timestamp Timestamp `json:"timestamp"`
}

func NewUrlParts(url string, timestamp Timestamp) UrlParts {
	return UrlParts{URL: url, Timestamp: timestamp}
}

// ParseUrlParts extracts the capture address from a web.archive.org URL,
// with or without the id_ (unmodified content) marker.
func ParseUrlParts(input string) (UrlParts, error) {
	matches := waybackURLPattern.FindStringSubmatch(input)
	if matches == nil {
		return UrlParts{}, gerror.NewErrValidationFailed("Invalid Wayback Machine URL").EDetail("url", input)
	}
	timestamp, err := ParseTimestamp(matches[1])
	if err != nil {
		return UrlParts{}, err
	}
	return NewUrlParts(matches[2], timestamp), nil
}

// WaybackURL composes the web.archive.org URL for this capture. When original
// is true the id_ marker is included, which requests the archived bytes
// without the Wayback Machine's rewriting.
func (p UrlParts) WaybackURL(https bool, original bool) string {
	scheme := "http"
	if https {
		scheme = "https"
	}
	marker := ""
	if original {
		marker = "id_"
	}
	return fmt.Sprintf("%s://web.archive.org/web/%s%s/%s", scheme, p.Timestamp, marker, p.URL)
}
