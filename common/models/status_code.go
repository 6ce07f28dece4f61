package models

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/archivindex/archivindex/common/gerror"
)

// StatusCode is an HTTP status code as recorded in a CDX result.
//
// This is a closed vocabulary covering only the values seen in the index.
// StatusCodeEmpty represents a hyphen in the CDX result, which typically
// indicates a 200 response; it compares before every numeric code and is
// distinct from StatusCodeOK.
type StatusCode uint16

const (
	StatusCodeEmpty                       StatusCode = 0
	StatusCodeOK                          StatusCode = 200
	StatusCodeMovedPermanently            StatusCode = 301
	StatusCodeFound                       StatusCode = 302
	StatusCodeSeeOther                    StatusCode = 303
	StatusCodeTemporaryRedirect           StatusCode = 307
	StatusCodeBadRequest                  StatusCode = 400
	StatusCodeUnauthorized                StatusCode = 401
	StatusCodeForbidden                   StatusCode = 403
	StatusCodeNotFound                    StatusCode = 404
	StatusCodeUpgradeRequired             StatusCode = 426
	StatusCodeTooManyRequests             StatusCode = 429
	StatusCodeRequestHeaderFieldsTooLarge StatusCode = 431
	StatusCodeInternalServerError         StatusCode = 500
	StatusCodeBadGateway                  StatusCode = 502
	StatusCodeServiceUnavailable          StatusCode = 503
	StatusCodeGatewayTimeout              StatusCode = 504
	StatusCodeCloudflareUnknownError      StatusCode = 520
	StatusCodeCloudflareWebServerDown     StatusCode = 521
	StatusCodeCloudflareTimeout           StatusCode = 524
)

// StatusCodeValues lists every supported status code in sort order.
var StatusCodeValues = []StatusCode{
	StatusCodeEmpty,
	StatusCodeOK,
	StatusCodeMovedPermanently,
	StatusCodeFound,
	StatusCodeSeeOther,
	StatusCodeTemporaryRedirect,
	StatusCodeBadRequest,
	StatusCodeUnauthorized,
	StatusCodeForbidden,
	StatusCodeNotFound,
	StatusCodeUpgradeRequired,
	StatusCodeTooManyRequests,
	StatusCodeRequestHeaderFieldsTooLarge,
	StatusCodeInternalServerError,
	StatusCodeBadGateway,
	StatusCodeServiceUnavailable,
	StatusCodeGatewayTimeout,
	StatusCodeCloudflareUnknownError,
	StatusCodeCloudflareWebServerDown,
	StatusCodeCloudflareTimeout,
}

var statusCodeStrings = map[StatusCode]string{
	StatusCodeEmpty:                       "-",
	StatusCodeOK:                          "200",
	StatusCodeMovedPermanently:            "301",
	StatusCodeFound:                       "302",
	StatusCodeSeeOther:                    "303",
	StatusCodeTemporaryRedirect:           "307",
	StatusCodeBadRequest:                  "400",
	StatusCodeUnauthorized:                "401",
	StatusCodeForbidden:                   "403",
	StatusCodeNotFound:                    "404",
	StatusCodeUpgradeRequired:             "426",
	StatusCodeTooManyRequests:             "429",
	StatusCodeRequestHeaderFieldsTooLarge: "431",
	StatusCodeInternalServerError:         "500",
	StatusCodeBadGateway:                  "502",
	StatusCodeServiceUnavailable:          "503",
	StatusCodeGatewayTimeout:              "504",
	StatusCodeCloudflareUnknownError:      "520",
	StatusCodeCloudflareWebServerDown:     "521",
	StatusCodeCloudflareTimeout:           "524",
}

var statusCodesByString = func() map[string]StatusCode {
	m := make(map[string]StatusCode, len(statusCodeStrings))
	for code, str := range statusCodeStrings {
		m[str] = code
	}
	return m
}()

// ParseStatusCode parses the CDX encoding of a status code ("-" or digits).
func ParseStatusCode(input string) (StatusCode, error) {
	code, ok := statusCodesByString[input]
	if !ok {
		return 0, gerror.NewErrValidationFailed("Unsupported status code").EDetail("statuscode", input)
	}
	return code, nil
}

// StatusCodeFromValue converts an integer value; 0 maps to StatusCodeEmpty.
func StatusCodeFromValue(value uint16) (StatusCode, error) {
	code := StatusCode(value)
	if _, ok := statusCodeStrings[code]; !ok {
		return 0, gerror.NewErrValidationFailed("Unsupported status code").EDetail("statuscode", value)
	}
	return code, nil
}

func (c StatusCode) String() string {
	if str, ok := statusCodeStrings[c]; ok {
		return str
	}
	return fmt.Sprintf("%d", uint16(c))
}

// IntValue returns the integer value of the status code. Note that this
// returns zero for StatusCodeEmpty even though those typically indicate a
// 200 response; use HTTPStatus for the logical status code.
func (c StatusCode) IntValue() uint16 {
	return uint16(c)
}

// HTTPStatus maps the code to a standard HTTP status. StatusCodeEmpty maps
// to 200 and the Cloudflare error codes map to the generic 500.
func (c StatusCode) HTTPStatus() int {
	switch c {
	case StatusCodeEmpty:
		return http.StatusOK
	case StatusCodeCloudflareUnknownError, StatusCodeCloudflareWebServerDown, StatusCodeCloudflareTimeout:
		return http.StatusInternalServerError
	default:
		return int(c)
	}
}

func (c StatusCode) MarshalJSON() ([]byte, error) {
	return json.Marshal(c.String())
}

func (c *StatusCode) UnmarshalJSON(data []byte) error {
	var str string
	if err := json.Unmarshal(data, &str); err != nil {
		return err
	}
	parsed, err := ParseStatusCode(str)
	if err != nil {
		return err
	}
	*c = parsed
	return nil
}

// Value implements driver.Valuer, storing the integer value.
func (c StatusCode) Value() (driver.Value, error) {
	return int64(c), nil
}

// Scan implements sql.Scanner.
func (c *StatusCode) Scan(src interface{}) error {
	value, ok := src.(int64)
	if !ok {
		return fmt.Errorf("error scanning status code: unsupported type %T", src)
	}
	parsed, err := StatusCodeFromValue(uint16(value))
	if err != nil {
		return err
	}
	*c = parsed
	return nil
}
