package models

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testCdxItem(t *testing.T) CdxItem {
	t.Helper()
	var list CdxItemList
	require.NoError(t, json.Unmarshal([]byte(cdxResultPage), &list))
	require.NotEmpty(t, list.Values)
	return list.Values[0]
}

func TestCaptureFromCdxItem(t *testing.T) {
	item := testCdxItem(t)
	now := time.Date(2020, 1, 1, 0, 0, 0, 0, time.UTC)
	capture := CaptureFromCdxItem(item, now)

	assert.True(t, capture.UrlKey.Equal(item.Key))
	assert.True(t, capture.Timestamp.Equal(item.Timestamp))
	assert.Equal(t, item.Original, capture.Original)
	assert.Equal(t, item.MimeType, capture.MimeType)
	assert.Equal(t, item.StatusCode, capture.StatusCode)
	assert.True(t, capture.Digest.Equal(item.Digest))
	assert.True(t, capture.DigestValid)
	assert.Equal(t, item.Length, capture.Length)
	assert.Equal(t, now, capture.CreatedAt)
	assert.False(t, capture.Stored)
	assert.NoError(t, capture.Validate())
}

func TestCaptureFromCdxItemOpaqueDigest(t *testing.T) {
	var list CdxItemList
	require.NoError(t, json.Unmarshal([]byte(cdxResultPage), &list))
	capture := CaptureFromCdxItem(list.Values[1], time.Now())
	assert.False(t, capture.DigestValid)
	assert.NoError(t, capture.Validate())
}

func TestCaptureFromCdxExtendedItem(t *testing.T) {
	var list CdxExtendedItemList
	require.NoError(t, json.Unmarshal([]byte(cdxExtendedResultPage), &list))
	now := time.Date(2020, 1, 1, 0, 0, 0, 0, time.UTC)

	capture := CaptureFromCdxExtendedItem(list.Values[1], now)
	require.NotNil(t, capture.Redirect)
	assert.Equal(t, "https://twitter.com/farleftwatch", *capture.Redirect)
	require.NotNil(t, capture.RobotFlags)
	assert.Equal(t, "A", *capture.RobotFlags)
	require.NotNil(t, capture.Offset)
	assert.Equal(t, uint64(0), *capture.Offset)
	require.NotNil(t, capture.FileName)
	assert.Equal(t, "archive-part-00002.warc.gz", *capture.FileName)
	assert.NoError(t, capture.Validate())
}

func TestCaptureValidate(t *testing.T) {
	capture := &Capture{}
	assert.Error(t, capture.Validate())

	capture = CaptureFromCdxItem(testCdxItem(t), time.Now())
	capture.DigestValid = false
	assert.Error(t, capture.Validate(), "digest valid flag must match the digest")
}

func TestCaptureItemInfo(t *testing.T) {
	capture := CaptureFromCdxItem(testCdxItem(t), time.Now())
	info := capture.ItemInfo()
	assert.Equal(t, capture.Original, info.UrlParts.URL)
	assert.True(t, capture.Timestamp.Equal(info.UrlParts.Timestamp))
	assert.True(t, capture.Digest.Equal(info.ExpectedDigest))
}
