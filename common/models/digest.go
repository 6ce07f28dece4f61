package models

import (
	"crypto/sha1"
	"database/sql/driver"
	"encoding/base32"
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/archivindex/archivindex/common/gerror"
	"github.com/pkg/errors"
)

// Sha1DigestStrLen is the length of a Base32-encoded SHA-1 digest.
const Sha1DigestStrLen = 32

// Sha1Digest is a raw SHA-1 digest. The Wayback Machine encodes these as
// 32-character Base32 (RFC 4648) strings in CDX results and snapshot URLs.
type Sha1Digest [20]byte

// MinSha1Digest and MaxSha1Digest bound the canonical digest order, which is
// the ASCII order of the Base32 form. '2' is the smallest character in the
// Base32 alphabet under ASCII order and 'Z' the largest.
var (
	MinSha1Digest = mustParseSha1Digest(strings.Repeat("2", Sha1DigestStrLen))
	MaxSha1Digest = mustParseSha1Digest(strings.Repeat("Z", Sha1DigestStrLen))
)

func mustParseSha1Digest(input string) Sha1Digest {
	digest, err := ParseSha1Digest(input)
	if err != nil {
		panic(err)
	}
	return digest
}

// ParseSha1Digest parses the canonical 32-character Base32 form.
func ParseSha1Digest(input string) (Sha1Digest, error) {
	if len(input) != Sha1DigestStrLen {
		return Sha1Digest{}, gerror.NewErrValidationFailed("Invalid SHA-1 digest string length").EDetail("digest", input)
	}
	decoded, err := base32.StdEncoding.DecodeString(input)
	if err != nil {
		return Sha1Digest{}, gerror.NewErrValidationFailed("Invalid SHA-1 digest string").EDetail("digest", input).Wrap(err)
	}
	var digest Sha1Digest
	copy(digest[:], decoded)
	return digest, nil
}

// Sha1DigestFromBytes converts a raw 20-byte digest.
func Sha1DigestFromBytes(value []byte) (Sha1Digest, error) {
	if len(value) != sha1.Size {
		return Sha1Digest{}, gerror.NewErrValidationFailed("Invalid SHA-1 digest length").IDetail("length", len(value))
	}
	var digest Sha1Digest
	copy(digest[:], value)
	return digest, nil
}

// ComputeSha1Digest computes the SHA-1 digest of everything read from input.
func ComputeSha1Digest(input io.Reader) (Sha1Digest, error) {
	h := sha1.New()
	if _, err := io.Copy(h, input); err != nil {
		return Sha1Digest{}, errors.Wrap(err, "error computing SHA-1 digest")
	}
	return Sha1DigestFromBytes(h.Sum(nil))
}

// Sha1DigestOf computes the SHA-1 digest of the supplied byte slices in order.
func Sha1DigestOf(data ...[]byte) Sha1Digest {
	h := sha1.New()
	for _, d := range data {
		h.Write(d)
	}
	var digest Sha1Digest
	copy(digest[:], h.Sum(nil))
	return digest
}

func (d Sha1Digest) String() string {
	return base32.StdEncoding.EncodeToString(d[:])
}

// Compare orders digests by the ASCII order of their canonical Base32 form.
// This is the order the capture index, the snapshot store layouts, and
// snapshot line files all sort in. Note it differs from raw byte order
// because digits sort before letters in ASCII but after them in the Base32
// alphabet.
func (d Sha1Digest) Compare(other Sha1Digest) int {
	return strings.Compare(d.String(), other.String())
}

func (d Sha1Digest) Equal(other Sha1Digest) bool {
	return d == other
}

func (d Sha1Digest) MarshalJSON() ([]byte, error) {
	return json.Marshal(d.String())
}

func (d *Sha1Digest) UnmarshalJSON(data []byte) error {
	var str string
	if err := json.Unmarshal(data, &str); err != nil {
		return err
	}
	parsed, err := ParseSha1Digest(str)
	if err != nil {
		return err
	}
	*d = parsed
	return nil
}

// Digest is a digest string from a CDX result. In most cases these are
// Base32-encoded SHA-1 digests, but some use unknown encodings; those are
// preserved verbatim so records round-trip exactly.
type Digest struct {
	sha1  Sha1Digest
	valid bool
	raw   string
}

// ParseDigest parses a CDX digest string. A 32-character string must be
// valid Base32; anything of another length is preserved as opaque.
func ParseDigest(input string) (Digest, error) {
	if len(input) != Sha1DigestStrLen {
		return Digest{raw: input}, nil
	}
	sha1Digest, err := ParseSha1Digest(input)
	if err != nil {
		return Digest{}, err
	}
	return Digest{sha1: sha1Digest, valid: true}, nil
}

// DigestFromSha1 wraps a known-valid SHA-1 digest.
func DigestFromSha1(digest Sha1Digest) Digest {
	return Digest{sha1: digest, valid: true}
}

// IsValid reports whether the digest is a decodable SHA-1 digest.
func (d Digest) IsValid() bool {
	return d.valid
}

// Sha1 returns the decoded SHA-1 digest. The second return is false for
// opaque digests.
func (d Digest) Sha1() (Sha1Digest, bool) {
	return d.sha1, d.valid
}

func (d Digest) String() string {
	if d.valid {
		return d.sha1.String()
	}
	return d.raw
}

func (d Digest) Equal(other Digest) bool {
	return d.valid == other.valid && d.sha1 == other.sha1 && d.raw == other.raw
}

func (d Digest) MarshalJSON() ([]byte, error) {
	return json.Marshal(d.String())
}

func (d *Digest) UnmarshalJSON(data []byte) error {
	var str string
	if err := json.Unmarshal(data, &str); err != nil {
		return err
	}
	parsed, err := ParseDigest(str)
	if err != nil {
		return err
	}
	*d = parsed
	return nil
}

// Value implements driver.Valuer, storing the string form.
func (d Digest) Value() (driver.Value, error) {
	return d.String(), nil
}

// Scan implements sql.Scanner.
func (d *Digest) Scan(src interface{}) error {
	var str string
	switch v := src.(type) {
	case string:
		str = v
	case []byte:
		str = string(v)
	default:
		return fmt.Errorf("error scanning digest: unsupported type %T", src)
	}
	parsed, err := ParseDigest(str)
	if err != nil {
		return err
	}
	*d = parsed
	return nil
}

// Value implements driver.Valuer, storing the canonical Base32 form.
func (d Sha1Digest) Value() (driver.Value, error) {
	return d.String(), nil
}

// Scan implements sql.Scanner.
func (d *Sha1Digest) Scan(src interface{}) error {
	var str string
	switch v := src.(type) {
	case string:
		str = v
	case []byte:
		str = string(v)
	default:
		return fmt.Errorf("error scanning SHA-1 digest: unsupported type %T", src)
	}
	parsed, err := ParseSha1Digest(str)
	if err != nil {
		return err
	}
	*d = parsed
	return nil
}
