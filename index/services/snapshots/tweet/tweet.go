// Package tweet decodes the archived tweet payloads found in snapshot files.
// Two JSON shapes appear in the archive: the API v2 shape with a data object
// and an includes section, and the legacy flat shape.
package tweet

import (
	"encoding/json"
	"fmt"
	"strconv"

	"github.com/archivindex/archivindex/common/gerror"
)

// Snapshot is an archived tweet payload in either wire shape.
type Snapshot interface {
	ID() uint64
	UserID() uint64
	// UserScreenName returns false when the author cannot be resolved from
	// the payload.
	UserScreenName() (string, bool)
}

// CanonicalURL composes the status URL for a snapshot, on x.com when useX is
// set and twitter.com otherwise. The second return is false when the author
// is not resolvable.
func CanonicalURL(s Snapshot, useX bool) (string, bool) {
	screenName, ok := s.UserScreenName()
	if !ok {
		return "", false
	}
	domain := "twitter"
	if useX {
		domain = "x"
	}
	return fmt.Sprintf("https://%s.com/%s/status/%d", domain, screenName, s.ID()), true
}

// Parse decodes a tweet payload, trying the API v2 shape first and falling
// back to the legacy flat shape.
func Parse(content []byte) (Snapshot, error) {
	var data DataSnapshot
	if err := json.Unmarshal(content, &data); err == nil && data.Data.ID != 0 {
		return &data, nil
	}
	var flat FlatSnapshot
	if err := json.Unmarshal(content, &flat); err == nil && flat.IDStr != 0 {
		return &flat, nil
	}
	return nil, gerror.NewErrValidationFailed("Unrecognized tweet snapshot shape")
}

// Uint64Str is a uint64 that is string-encoded on the wire, which is how the
// Twitter API represents IDs too large for JSON numbers.
type Uint64Str uint64

func (u Uint64Str) MarshalJSON() ([]byte, error) {
	return json.Marshal(strconv.FormatUint(uint64(u), 10))
}

func (u *Uint64Str) UnmarshalJSON(data []byte) error {
	var str string
	if err := json.Unmarshal(data, &str); err != nil {
		return err
	}
	value, err := strconv.ParseUint(str, 10, 64)
	if err != nil {
		return err
	}
	*u = Uint64Str(value)
	return nil
}
