package models

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"net"
	"net/url"
	"sort"
	"strings"

	"github.com/archivindex/archivindex/common/gerror"
)

// Surt is a simplified Sort-friendly URI Reordering Transform key, e.g.
// "com,twitter)/some/path?k=v". Only the features needed to handle Wayback
// Machine CDX results are implemented.
//
// The domain section (before the closing parenthesis) is the reversed,
// comma-separated domain name; the remainder is the path and query.
type Surt struct {
	source         string
	domainPartLens []int
}

// ParseSurt parses a SURT key. Domain section characters outside ASCII
// alphanumerics, '-', ',' and ')' are rejected; everything after the closing
// parenthesis is accepted verbatim.
func ParseSurt(input string) (Surt, error) {
	var (
		partLens []int
		partLen  int
	)
loop:
	for i := 0; i < len(input); i++ {
		switch ch := input[i]; {
		case ch >= 'a' && ch <= 'z', ch >= 'A' && ch <= 'Z', ch >= '0' && ch <= '9', ch == '-':
			partLen++
		case ch == ',':
			partLens = append(partLens, partLen)
			partLen = 0
		case ch == ')':
			partLens = append(partLens, partLen)
			break loop
		default:
			return Surt{}, gerror.NewErrValidationFailed("Invalid SURT").EDetail("surt", input)
		}
	}
	return Surt{source: input, domainPartLens: partLens}, nil
}

// SurtFromURL derives the SURT key for an http(s) URL the way the Wayback
// Machine CDX index does: lowercase, "www" domain parts dropped, domain parts
// reversed, trailing slash stripped, query pairs decoded and sorted by key.
func SurtFromURL(input string) (Surt, error) {
	cleaned := strings.ToLower(stripURLWhitespace(input))
	u, err := url.Parse(cleaned)
	if err != nil {
		return Surt{}, gerror.NewErrValidationFailed("Invalid URL").EDetail("url", input).Wrap(err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return Surt{}, gerror.NewErrValidationFailed("Unexpected URL").EDetail("url", input)
	}
	host := u.Hostname()
	if host == "" || u.Port() != "" || net.ParseIP(host) != nil {
		return Surt{}, gerror.NewErrValidationFailed("Unexpected URL").EDetail("url", input)
	}

	var (
		sb       strings.Builder
		partLens []int
		parts    = strings.Split(host, ".")
	)
	for i := len(parts) - 1; i >= 0; i-- {
		part := parts[i]
		if part == "www" {
			continue
		}
		if len(part) > 255 {
			return Surt{}, gerror.NewErrValidationFailed("Invalid domain part").EDetail("part", part)
		}
		sb.WriteString(part)
		sb.WriteByte(',')
		partLens = append(partLens, len(part))
	}

	source := strings.TrimSuffix(sb.String(), ",")
	source += ")"
	source += decodeSurtPath(u.EscapedPath())
	source = strings.TrimSuffix(source, "/")

	if pairs := parseQueryPairs(u.RawQuery); len(pairs) > 0 {
		sort.SliceStable(pairs, func(i, j int) bool { return pairs[i].key < pairs[j].key })
		source += "?"
		for i, pair := range pairs {
			if i > 0 {
				source += "&"
			}
			source += pair.key + "="
			if pair.value != "" {
				source += decodeSurtQueryValue(pair.value)
			}
		}
	}

	return Surt{source: source, domainPartLens: partLens}, nil
}

func (s Surt) String() string {
	return s.source
}

// IsZero reports whether the Surt is the zero value rather than a parsed key.
func (s Surt) IsZero() bool {
	return s.source == "" && s.domainPartLens == nil
}

// Equal reports whether two SURT keys are identical.
func (s Surt) Equal(other Surt) bool {
	return s.source == other.source
}

// Compare orders SURT keys lexicographically, which is the CDX index order.
func (s Surt) Compare(other Surt) int {
	return strings.Compare(s.source, other.source)
}

func (s Surt) pathStart() int {
	start := len(s.domainPartLens)
	for _, l := range s.domainPartLens {
		start += l
	}
	return start
}

// DomainNameParts returns the domain name parts in SURT (reversed) order,
// e.g. ["com", "twitter"].
func (s Surt) DomainNameParts() []string {
	section := s.source[:s.pathStart()-1]
	parts := make([]string, 0, len(s.domainPartLens))
	for _, l := range s.domainPartLens {
		parts = append(parts, section[:l])
		section = strings.TrimPrefix(section[l:], ",")
	}
	return parts
}

// Path returns the path and query portion of the key, starting with '/'.
func (s Surt) Path() string {
	return s.source[s.pathStart():]
}

// CanonicalURL reassembles an https URL from the key. The result is the
// canonical form the index would produce, not necessarily the URL the key
// was derived from.
func (s Surt) CanonicalURL() string {
	var sb strings.Builder
	sb.WriteString("https://")
	parts := s.DomainNameParts()
	for i := len(parts) - 1; i >= 1; i-- {
		sb.WriteString(parts[i])
		sb.WriteByte('.')
	}
	if len(parts) > 0 {
		sb.WriteString(parts[0])
	}
	sb.WriteString(s.Path())
	return sb.String()
}

func (s Surt) MarshalJSON() ([]byte, error) {
	return json.Marshal(s.source)
}

func (s *Surt) UnmarshalJSON(data []byte) error {
	var str string
	if err := json.Unmarshal(data, &str); err != nil {
		return err
	}
	parsed, err := ParseSurt(str)
	if err != nil {
		return err
	}
	*s = parsed
	return nil
}

// Value implements driver.Valuer, storing the key as its string form.
func (s Surt) Value() (driver.Value, error) {
	return s.source, nil
}

// Scan implements sql.Scanner.
func (s *Surt) Scan(src interface{}) error {
	var str string
	switch v := src.(type) {
	case string:
		str = v
	case []byte:
		str = string(v)
	default:
		return fmt.Errorf("error scanning SURT: unsupported type %T", src)
	}
	parsed, err := ParseSurt(str)
	if err != nil {
		return err
	}
	*s = parsed
	return nil
}

type queryPair struct {
	key   string
	value string
}

// parseQueryPairs splits a raw query into decoded key/value pairs, preserving
// order and duplicates (unlike url.ParseQuery, which merges by key).
func parseQueryPairs(rawQuery string) []queryPair {
	if rawQuery == "" {
		return nil
	}
	var pairs []queryPair
	for _, piece := range strings.Split(rawQuery, "&") {
		if piece == "" {
			continue
		}
		rawKey, rawValue, _ := strings.Cut(piece, "=")
		key, err := url.QueryUnescape(rawKey)
		if err != nil {
			key = rawKey
		}
		value, err := url.QueryUnescape(rawValue)
		if err != nil {
			value = rawValue
		}
		pairs = append(pairs, queryPair{key: key, value: value})
	}
	return pairs
}

// decodeSurtPath applies the selective percent-decoding the CDX index uses
// for path components. The replacement set and order are load-bearing.
func decodeSurtPath(value string) string {
	value = strings.ReplaceAll(value, "%22", "\"")
	value = strings.ReplaceAll(value, "%2a", "*")
	value = strings.ReplaceAll(value, "%5c", "\\")
	value = strings.ReplaceAll(value, "%3c", "<")
	value = strings.ReplaceAll(value, "%3e", ">")
	value = strings.ReplaceAll(value, "%27", "'")
	value = strings.ReplaceAll(value, "%7b", "{")
	value = strings.ReplaceAll(value, "%7d", "}")
	value = strings.ReplaceAll(value, "\n", "%0a")
	value = strings.ReplaceAll(value, "//", "/")
	return value
}

func decodeSurtQueryValue(value string) string {
	value = strings.ReplaceAll(value, "+", "%20")
	value = strings.ReplaceAll(value, " ", "+")
	value = strings.ReplaceAll(value, "\n", "%0a")
	value = strings.ReplaceAll(value, "%5e", "^")
	return value
}

// stripURLWhitespace removes ASCII tab and newlines, which URL parsers are
// expected to ignore anywhere in the input.
func stripURLWhitespace(input string) string {
	if !strings.ContainsAny(input, "\t\r\n") {
		return input
	}
	var sb strings.Builder
	sb.Grow(len(input))
	for i := 0; i < len(input); i++ {
		switch input[i] {
		case '\t', '\r', '\n':
		default:
			sb.WriteByte(input[i])
		}
	}
	return sb.String()
}
