package models

import (
	"encoding/json"
	"strconv"

	"github.com/archivindex/archivindex/common/gerror"
)

var cdxItemListHeader = []string{
	"urlkey",
	"timestamp",
	"original",
	"mimetype",
	"statuscode",
	"digest",
	"length",
}

// CdxItem is one row of a Wayback Machine CDX search result in its normal
// 7-column form.
type CdxItem struct {
	Key        Surt
	Timestamp  Timestamp
	Original   string
	MimeType   MimeType
	StatusCode StatusCode
	Digest     Digest
	// Length is the compressed record length; "-" in the result means unknown.
	Length *uint32
}

// ItemInfo identifies the snapshot an item points at together with the digest
// the index claims for it.
type ItemInfo struct {
	UrlParts       UrlParts `json:"url_parts"`
	ExpectedDigest Digest   `json:"expected_digest"`
}

func (i CdxItem) ItemInfo() ItemInfo {
	return ItemInfo{
		UrlParts:       NewUrlParts(i.Original, i.Timestamp),
		ExpectedDigest: i.Digest,
	}
}

// CdxItemList is a decoded CDX search result page. The wire format is a JSON
// array of arrays: a header row, data rows, then optionally an empty row
// followed by a single-element row carrying a resume key.
type CdxItemList struct {
	Values []CdxItem
	// ResumeKey is empty when the result has no further pages.
	ResumeKey string
}

func (l *CdxItemList) UnmarshalJSON(data []byte) error {
	var rows [][]string
	if err := json.Unmarshal(data, &rows); err != nil {
		return gerror.NewErrMalformedCdx("Invalid CDX result").Wrap(err)
	}
	if len(rows) == 0 {
		*l = CdxItemList{}
		return nil
	}
	if !stringSlicesEqual(rows[0], cdxItemListHeader) {
		return gerror.NewErrMalformedCdx("Invalid CDX item list header").IDetail("header", rows[0])
	}

	list := CdxItemList{Values: make([]CdxItem, 0, len(rows)-1)}
	for i := 1; i < len(rows); i++ {
		row := rows[i]
		if len(row) == 0 {
			// An empty row separates the data rows from the resume key, which
			// must be the final row.
			if i != len(rows)-2 || len(rows[i+1]) != 1 {
				return gerror.NewErrMalformedCdx("Invalid CDX resume key rows")
			}
			list.ResumeKey = rows[i+1][0]
			break
		}
		item, err := parseCdxItemRow(row)
		if err != nil {
			return err
		}
		list.Values = append(list.Values, item)
	}
	*l = list
	return nil
}

func parseCdxItemRow(row []string) (CdxItem, error) {
	if len(row) != len(cdxItemListHeader) {
		return CdxItem{}, gerror.NewErrMalformedCdx("Invalid CDX row length").IDetail("length", len(row))
	}
	key, err := ParseSurt(row[0])
	if err != nil {
		return CdxItem{}, err
	}
	timestamp, err := ParseTimestamp(row[1])
	if err != nil {
		return CdxItem{}, err
	}
	statusCode, err := ParseStatusCode(row[4])
	if err != nil {
		return CdxItem{}, err
	}
	digest, err := ParseDigest(row[5])
	if err != nil {
		return CdxItem{}, err
	}
	length, err := parseCdxLength(row[6])
	if err != nil {
		return CdxItem{}, err
	}
	return CdxItem{
		Key:        key,
		Timestamp:  timestamp,
		Original:   row[2],
		MimeType:   ParseMimeType(row[3]),
		StatusCode: statusCode,
		Digest:     digest,
		Length:     length,
	}, nil
}

func parseCdxLength(input string) (*uint32, error) {
	if input == "-" {
		return nil, nil
	}
	value, err := strconv.ParseUint(input, 10, 32)
	if err != nil {
		return nil, gerror.NewErrMalformedCdx("Invalid CDX length").EDetail("length", input).Wrap(err)
	}
	length := uint32(value)
	return &length, nil
}

func stringSlicesEqual(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}
