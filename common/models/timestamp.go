package models

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"time"

	"github.com/archivindex/archivindex/common/gerror"
)

// TimestampLayout is the 14-digit Wayback Machine URL timestamp format.
const TimestampLayout = "20060102150405"

// Timestamp is a Wayback Machine URL timestamp: a UTC instant with second
// precision, rendered as exactly 14 digits.
type Timestamp struct {
	t time.Time
}

// ParseTimestamp parses a 14-digit YYYYMMDDHHMMSS string as a UTC instant.
func ParseTimestamp(input string) (Timestamp, error) {
	if len(input) != 14 {
		return Timestamp{}, gerror.NewErrValidationFailed("Invalid timestamp length").EDetail("timestamp", input)
	}
	t, err := time.ParseInLocation(TimestampLayout, input, time.UTC)
	if err != nil {
		return Timestamp{}, gerror.NewErrValidationFailed("Invalid timestamp").EDetail("timestamp", input).Wrap(err)
	}
	return Timestamp{t: t}, nil
}

// TimestampFromTime converts a time.Time. Sub-second precision is rejected
// rather than silently truncated.
func TimestampFromTime(t time.Time) (Timestamp, error) {
	if t.Nanosecond() != 0 {
		return Timestamp{}, gerror.NewErrValidationFailed("Subsecond timestamp input").EDetail("time", t)
	}
	return Timestamp{t: t.UTC()}, nil
}

// TimestampFromUnix converts Unix seconds.
func TimestampFromUnix(seconds int64) Timestamp {
	return Timestamp{t: time.Unix(seconds, 0).UTC()}
}

func (t Timestamp) String() string {
	return t.t.Format(TimestampLayout)
}

func (t Timestamp) Time() time.Time {
	return t.t
}

func (t Timestamp) Unix() int64 {
	return t.t.Unix()
}

func (t Timestamp) IsZero() bool {
	return t.t.IsZero()
}

func (t Timestamp) Equal(other Timestamp) bool {
	return t.t.Equal(other.t)
}

func (t Timestamp) Before(other Timestamp) bool {
	return t.t.Before(other.t)
}

func (t Timestamp) MarshalJSON() ([]byte, error) {
	return json.Marshal(t.String())
}

func (t *Timestamp) UnmarshalJSON(data []byte) error {
	var str string
	if err := json.Unmarshal(data, &str); err != nil {
		return err
	}
	parsed, err := ParseTimestamp(str)
	if err != nil {
		return err
	}
	*t = parsed
	return nil
}

// Value implements driver.Valuer, storing the 14-digit string form so the
// database sort order matches chronological order.
func (t Timestamp) Value() (driver.Value, error) {
	return t.String(), nil
}

// Scan implements sql.Scanner.
func (t *Timestamp) Scan(src interface{}) error {
	var str string
	switch v := src.(type) {
	case string:
		str = v
	case []byte:
		str = string(v)
	default:
		return fmt.Errorf("error scanning timestamp: unsupported type %T", src)
	}
	parsed, err := ParseTimestamp(str)
	if err != nil {
		return err
	}
	*t = parsed
	return nil
}
