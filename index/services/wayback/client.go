package wayback

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/google/uuid"
	"github.com/hashicorp/go-retryablehttp"
	"github.com/pkg/errors"

	"github.com/archivindex/archivindex/common/gerror"
	"github.com/archivindex/archivindex/common/logger"
	"github.com/archivindex/archivindex/common/models"
)

const DefaultCdxSearchURL = "https://web.archive.org/cdx/search/cdx"

// DefaultMinRequestInterval is the default pause enforced between requests to archive.org.
const DefaultMinRequestInterval = 2 * time.Second

const (
	MatchTypeExact  MatchType = "exact"
	MatchTypePrefix MatchType = "prefix"
	MatchTypeHost   MatchType = "host"
	MatchTypeDomain MatchType = "domain"
)

// MatchType selects how the CDX API matches the url parameter.
type MatchType string

func (m MatchType) String() string {
	return string(m)
}

type ClientConfig struct {
	// CdxSearchURL is the CDX search endpoint; DefaultCdxSearchURL unless overridden for tests.
	CdxSearchURL string
	// MinRequestInterval is the minimum pause between requests to archive.org.
	MinRequestInterval time.Duration
}

// SearchRequest describes one CDX search.
type SearchRequest struct {
	URL       string
	MatchType MatchType
	// Filters are CDX filter expressions, e.g. "statuscode:200", passed through verbatim.
	Filters []string
	// Limit caps the number of rows per page; 0 uses the server default.
	Limit int
}

// CdxPage is one decoded page of a CDX search result.
type CdxPage struct {
	Number    int
	Items     []models.CdxItem
	ResumeKey string
	// RawBody is the page body exactly as returned by the server.
	RawBody []byte
}

// PageHandler is called once per result page, in order. Returning an error
// stops the search.
type PageHandler func(page *CdxPage) error

// Client talks to the archive.org Wayback Machine: CDX index searches and
// snapshot body downloads.
type Client struct {
	config          ClientConfig
	retryableClient *retryablehttp.Client
	pacer           *Pacer
	log             logger.Log
}

func NewClient(config ClientConfig, clk clock.Clock, logFactory logger.LogFactory) *Client {
	log := logFactory("WaybackClient")
	if config.CdxSearchURL == "" {
		config.CdxSearchURL = DefaultCdxSearchURL
	}
	if config.MinRequestInterval == 0 {
		config.MinRequestInterval = DefaultMinRequestInterval
	}
	retryableClient := retryablehttp.NewClient()
	retryableClient.RetryWaitMin = time.Millisecond * 100
	retryableClient.RetryWaitMax = time.Second * 5
	retryableClient.RetryMax = 10
	retryableClient.Logger = NewLeveledLogger(log) // use adaptor to get log level support
	retryableClient.HTTPClient = &http.Client{}
	return &Client{
		config:          config,
		retryableClient: retryableClient,
		pacer:           NewPacer(clk, config.MinRequestInterval),
		log:             log,
	}
}

// Search runs a CDX search and hands each result page to handler, following
// resume keys until the result is exhausted or handler returns an error.
func (c *Client) Search(ctx context.Context, request SearchRequest, handler PageHandler) error {
	log := c.log.WithField("session_id", uuid.New().String()).WithField("url", request.URL)
	resumeKey := ""
	for pageNumber := 0; ; pageNumber++ {
		searchURL, err := c.makeSearchURL(request, resumeKey)
		if err != nil {
			return err
		}
		log.WithField("page", pageNumber).Debugf("Requesting CDX page")
		body, err := c.get(ctx, searchURL)
		if err != nil {
			return errors.Wrapf(err, "error fetching CDX page %d", pageNumber)
		}
		var list models.CdxItemList
		err = json.Unmarshal(body, &list)
		if err != nil {
			return gerror.NewErrMalformedCdx("Malformed CDX result page").
				Wrap(err).
				IDetail("page", pageNumber)
		}
		log.WithField("page", pageNumber).
			WithField("items", len(list.Values)).
			Infof("Received CDX page")
		err = handler(&CdxPage{
			Number:    pageNumber,
			Items:     list.Values,
			ResumeKey: list.ResumeKey,
			RawBody:   body,
		})
		if err != nil {
			return err
		}
		if list.ResumeKey == "" {
			return nil
		}
		resumeKey = list.ResumeKey
	}
}

// DownloadSnapshot fetches the unmodified (id_-marked) snapshot body for info.
// If the expected digest is a valid SHA-1 the body is verified against it and
// gerror.ErrDigestMismatch is returned on disagreement.
func (c *Client) DownloadSnapshot(ctx context.Context, info models.ItemInfo) ([]byte, error) {
	snapshotURL := info.UrlParts.WaybackURL(true, true)
	c.log.WithField("url", snapshotURL).Debugf("Downloading snapshot")
	body, err := c.get(ctx, snapshotURL)
	if err != nil {
		return nil, errors.Wrapf(err, "error downloading snapshot %s", snapshotURL)
	}
	if expected, ok := info.ExpectedDigest.Sha1(); ok {
		found := models.Sha1DigestOf(body)
		if !found.Equal(expected) {
			return nil, gerror.NewErrDigestMismatch(expected, found).IDetail("url", snapshotURL)
		}
	}
	return body, nil
}

// get performs one paced GET and returns the response body.
func (c *Client) get(ctx context.Context, requestURL string) ([]byte, error) {
	err := c.pacer.Wait(ctx)
	if err != nil {
		return nil, err
	}
	req, err := retryablehttp.NewRequest("GET", requestURL, nil)
	if err != nil {
		return nil, errors.Wrap(err, "error making request")
	}
	req = req.WithContext(ctx)
	res, err := c.retryableClient.Do(req)
	if err != nil {
		return nil, errors.Wrap(err, "error during request")
	}
	defer res.Body.Close()
	body, err := io.ReadAll(res.Body)
	if err != nil {
		return nil, errors.Wrap(err, "error reading response body")
	}
	switch {
	case res.StatusCode == http.StatusOK:
		return body, nil
	case res.StatusCode == http.StatusTooManyRequests:
		return nil, gerror.NewErrRateLimited("Rate limited by archive.org").IDetail("url", requestURL)
	default:
		return nil, fmt.Errorf("error %d in HTTP response for %s", res.StatusCode, requestURL)
	}
}

func (c *Client) makeSearchURL(request SearchRequest, resumeKey string) (string, error) {
	base, err := url.Parse(c.config.CdxSearchURL)
	if err != nil {
		return "", errors.Wrap(err, "error parsing CDX search URL")
	}
	values := url.Values{}
	values.Set("url", request.URL)
	values.Set("output", "json")
	values.Set("showResumeKey", "true")
	if request.MatchType != "" {
		values.Set("matchType", request.MatchType.String())
	}
	for _, filter := range request.Filters {
		values.Add("filter", filter)
	}
	if request.Limit > 0 {
		values.Set("limit", strconv.Itoa(request.Limit))
	}
	if resumeKey != "" {
		values.Set("resumeKey", resumeKey)
	}
	base.RawQuery = values.Encode()
	return base.String(), nil
}
