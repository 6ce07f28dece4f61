package models

import (
	"encoding/json"
	"strconv"

	"github.com/archivindex/archivindex/common/gerror"
)

var cdxExtendedItemListHeader = []string{
	"urlkey",
	"timestamp",
	"original",
	"mimetype",
	"statuscode",
	"digest",
	"redirect",
	"robotflags",
	"length",
	"offset",
	"filename",
}

// CdxExtendedItem is one row of a CDX result in its extended 11-column form,
// which additionally locates the record inside the archive's WARC files.
type CdxExtendedItem struct {
	CdxItem
	// Redirect is nil when the result records "-".
	Redirect *string
	// RobotFlags is nil when the result records "-".
	RobotFlags *string
	Offset     uint64
	FileName   string
}

// CdxExtendedItemList is a decoded extended-form CDX result page, with the
// same row framing as CdxItemList.
type CdxExtendedItemList struct {
	Values    []CdxExtendedItem
	ResumeKey string
}

func (l *CdxExtendedItemList) UnmarshalJSON(data []byte) error {
	var rows [][]string
	if err := json.Unmarshal(data, &rows); err != nil {
		return gerror.NewErrMalformedCdx("Invalid CDX result").Wrap(err)
	}
	if len(rows) == 0 {
		*l = CdxExtendedItemList{}
		return nil
	}
	if !stringSlicesEqual(rows[0], cdxExtendedItemListHeader) {
		return gerror.NewErrMalformedCdx("Invalid CDX item list header").IDetail("header", rows[0])
	}

	list := CdxExtendedItemList{Values: make([]CdxExtendedItem, 0, len(rows)-1)}
	for i := 1; i < len(rows); i++ {
		row := rows[i]
		if len(row) == 0 {
			if i != len(rows)-2 || len(rows[i+1]) != 1 {
				return gerror.NewErrMalformedCdx("Invalid CDX resume key rows")
			}
			list.ResumeKey = rows[i+1][0]
			break
		}
		item, err := parseCdxExtendedItemRow(row)
		if err != nil {
			return err
		}
		list.Values = append(list.Values, item)
	}
	*l = list
	return nil
}

func parseCdxExtendedItemRow(row []string) (CdxExtendedItem, error) {
	if len(row) != len(cdxExtendedItemListHeader) {
		return CdxExtendedItem{}, gerror.NewErrMalformedCdx("Invalid CDX row length").IDetail("length", len(row))
	}
	key, err := ParseSurt(row[0])
	if err != nil {
		return CdxExtendedItem{}, err
	}
	timestamp, err := ParseTimestamp(row[1])
	if err != nil {
		return CdxExtendedItem{}, err
	}
	statusCode, err := ParseStatusCode(row[4])
	if err != nil {
		return CdxExtendedItem{}, err
	}
	digest, err := ParseDigest(row[5])
	if err != nil {
		return CdxExtendedItem{}, err
	}
	length, err := parseCdxLength(row[8])
	if err != nil {
		return CdxExtendedItem{}, err
	}
	offset, err := strconv.ParseUint(row[9], 10, 64)
	if err != nil {
		return CdxExtendedItem{}, gerror.NewErrMalformedCdx("Invalid CDX offset").EDetail("offset", row[9]).Wrap(err)
	}
	return CdxExtendedItem{
		CdxItem: CdxItem{
			Key:        key,
			Timestamp:  timestamp,
			Original:   row[2],
			MimeType:   ParseMimeType(row[3]),
			StatusCode: statusCode,
			Digest:     digest,
			Length:     length,
		},
		Redirect:   hyphenToNil(row[6]),
		RobotFlags: hyphenToNil(row[7]),
		Offset:     offset,
		FileName:   row[10],
	}, nil
}

func hyphenToNil(value string) *string {
	if value == "-" {
		return nil
	}
	return &value
}
