package models

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
)

// MimeType is a MIME type string from a CDX result. text/html and
// application/json get named constants since they account for nearly all of
// the index; anything else is preserved verbatim.
type MimeType struct {
	value string
}

var (
	MimeTypeTextHTML        = MimeType{value: "text/html"}
	MimeTypeApplicationJSON = MimeType{value: "application/json"}
)

func ParseMimeType(input string) MimeType {
	return MimeType{value: input}
}

func (m MimeType) String() string {
	return m.value
}

func (m MimeType) IsHTML() bool {
	return m == MimeTypeTextHTML
}

func (m MimeType) IsJSON() bool {
	return m == MimeTypeApplicationJSON
}

func (m MimeType) MarshalJSON() ([]byte, error) {
	return json.Marshal(m.value)
}

func (m *MimeType) UnmarshalJSON(data []byte) error {
	var str string
	if err := json.Unmarshal(data, &str); err != nil {
		return err
	}
	*m = ParseMimeType(str)
	return nil
}

// Value implements driver.Valuer.
func (m MimeType) Value() (driver.Value, error) {
	return m.value, nil
}

// Scan implements sql.Scanner.
func (m *MimeType) Scan(src interface{}) error {
	switch v := src.(type) {
	case string:
		*m = ParseMimeType(v)
	case []byte:
		*m = ParseMimeType(string(v))
	default:
		return fmt.Errorf("error scanning MIME type: unsupported type %T", src)
	}
	return nil
}
