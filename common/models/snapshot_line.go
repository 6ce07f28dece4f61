package models

import (
	"crypto/sha1"
	"strings"

	"github.com/archivindex/archivindex/common/gerror"
)

// DefaultClosingWhitespace is the trailing whitespace the Wayback Machine
// serves with most snapshot bodies. It is stripped before the content is
// recorded but still participates in the digest, so lines that omit the
// closing_whitespace field assume this sequence.
var DefaultClosingWhitespace = []byte{'\r', '\r', '\n'}

const (
	snapshotDigestKey            = "digest"
	snapshotExpectedDigestKey    = "expected_digest"
	snapshotClosingWhitespaceKey = "closing_whitespace"
	snapshotTimestampKey         = "timestamp"
	snapshotURLKey               = "url"
	snapshotContentKey           = "content"
	snapshotTimestampLen         = 14
)

// SnapshotLine is one line of a snapshot file: a JSON object with a fixed
// field order so lines can be parsed positionally and rendered
// byte-identically. Content is the raw JSON document of the archived page.
type SnapshotLine struct {
	Digest Sha1Digest
	// ExpectedDigest records the digest the CDX index claimed when it differs
	// from the digest of the bytes actually served.
	ExpectedDigest *Sha1Digest
	// ClosingWhitespace holds the trailing '\r'/'\n' bytes stripped from the
	// body; nil means DefaultClosingWhitespace.
	ClosingWhitespace []byte
	Timestamp         *Timestamp
	URL               *string
	Content           string
}

func NewSnapshotLine(digest Sha1Digest, content string) SnapshotLine {
	return SnapshotLine{Digest: digest, Content: content}
}

func errInvalidLine() gerror.Error {
	return gerror.NewErrValidationFailed("Invalid line")
}

// ParseSnapshotLine parses one line. The fixed field order means a handful of
// positional reads suffice; anything that does not match is an invalid line.
func ParseSnapshotLine(line string) (SnapshotLine, error) {
	index := len(snapshotDigestKey) + 5

	if len(line) < index+Sha1DigestStrLen {
		return SnapshotLine{}, errInvalidLine()
	}
	digest, err := ParseSha1Digest(line[index : index+Sha1DigestStrLen])
	if err != nil {
		return SnapshotLine{}, errInvalidLine()
	}
	index += Sha1DigestStrLen + 3

	if len(line) < index+2 {
		return SnapshotLine{}, errInvalidLine()
	}

	parsed := SnapshotLine{Digest: digest}

	if index < len(line) && strings.HasPrefix(line[index:], snapshotExpectedDigestKey) {
		index += len(snapshotExpectedDigestKey) + 3
		if len(line) < index+Sha1DigestStrLen {
			return SnapshotLine{}, errInvalidLine()
		}
		expected, err := ParseSha1Digest(line[index : index+Sha1DigestStrLen])
		if err != nil {
			return SnapshotLine{}, errInvalidLine()
		}
		parsed.ExpectedDigest = &expected
		index += Sha1DigestStrLen + 3
	}

	if index < len(line) && strings.HasPrefix(line[index:], snapshotClosingWhitespaceKey) {
		index += len(snapshotClosingWhitespaceKey) + 3
		var whitespace []byte
		i := 0
		for {
			if index+i >= len(line) {
				return SnapshotLine{}, errInvalidLine()
			}
			ch := line[index+i]
			if ch == '"' {
				break
			}
			if i%2 == 0 {
				if ch != '\\' {
					return SnapshotLine{}, errInvalidLine()
				}
			} else {
				switch ch {
				case 'n':
					whitespace = append(whitespace, '\n')
				case 'r':
					whitespace = append(whitespace, '\r')
				default:
					return SnapshotLine{}, errInvalidLine()
				}
			}
			i++
		}
		if whitespace == nil {
			whitespace = []byte{}
		}
		parsed.ClosingWhitespace = whitespace
		index += i + 3
	}

	if index < len(line) && strings.HasPrefix(line[index:], snapshotTimestampKey) {
		index += len(snapshotTimestampKey) + 3
		if len(line) < index+snapshotTimestampLen {
			return SnapshotLine{}, errInvalidLine()
		}
		timestamp, err := ParseTimestamp(line[index : index+snapshotTimestampLen])
		if err != nil {
			return SnapshotLine{}, errInvalidLine()
		}
		parsed.Timestamp = &timestamp
		index += snapshotTimestampLen + 3
	}

	if index < len(line) && strings.HasPrefix(line[index:], snapshotURLKey) {
		index += len(snapshotURLKey) + 3
		i := strings.IndexByte(line[index:], '"')
		if i < 0 {
			return SnapshotLine{}, errInvalidLine()
		}
		url := line[index : index+i]
		parsed.URL = &url
		index += i + 3
	}

	index += len(snapshotContentKey) + 2
	if len(line) < index+1 || line[len(line)-1] != '}' {
		return SnapshotLine{}, errInvalidLine()
	}
	parsed.Content = line[index : len(line)-1]

	return parsed, nil
}

// String renders the line in its canonical byte-identical form.
func (l SnapshotLine) String() string {
	var sb strings.Builder
	sb.WriteString(`{"`)
	sb.WriteString(snapshotDigestKey)
	sb.WriteString(`":"`)
	sb.WriteString(l.Digest.String())
	sb.WriteString(`",`)

	if l.ExpectedDigest != nil {
		sb.WriteString(`"`)
		sb.WriteString(snapshotExpectedDigestKey)
		sb.WriteString(`":"`)
		sb.WriteString(l.ExpectedDigest.String())
		sb.WriteString(`",`)
	}

	if l.ClosingWhitespace != nil {
		sb.WriteString(`"`)
		sb.WriteString(snapshotClosingWhitespaceKey)
		sb.WriteString(`":"`)
		for _, ch := range l.ClosingWhitespace {
			switch ch {
			case '\n':
				sb.WriteString(`\n`)
			case '\r':
				sb.WriteString(`\r`)
			}
		}
		sb.WriteString(`",`)
	}

	if l.Timestamp != nil {
		sb.WriteString(`"`)
		sb.WriteString(snapshotTimestampKey)
		sb.WriteString(`":"`)
		sb.WriteString(l.Timestamp.String())
		sb.WriteString(`",`)
	}

	if l.URL != nil {
		sb.WriteString(`"`)
		sb.WriteString(snapshotURLKey)
		sb.WriteString(`":"`)
		sb.WriteString(*l.URL)
		sb.WriteString(`",`)
	}

	sb.WriteString(`"`)
	sb.WriteString(snapshotContentKey)
	sb.WriteString(`":`)
	sb.WriteString(l.Content)
	sb.WriteString(`}`)
	return sb.String()
}

// ComputeDigest returns the SHA-1 of the content bytes plus the closing
// whitespace, which is how the Wayback Machine's digests are computed.
func (l SnapshotLine) ComputeDigest() Sha1Digest {
	h := sha1.New()
	h.Write([]byte(l.Content))
	if l.ClosingWhitespace != nil {
		h.Write(l.ClosingWhitespace)
	} else {
		h.Write(DefaultClosingWhitespace)
	}
	var digest Sha1Digest
	copy(digest[:], h.Sum(nil))
	return digest
}

// Validate recomputes the digest and compares it to the recorded one; the
// computed digest is returned either way.
func (l SnapshotLine) Validate() (Sha1Digest, bool) {
	computed := l.ComputeDigest()
	return computed, computed == l.Digest
}
