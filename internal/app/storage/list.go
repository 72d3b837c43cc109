package storage

import (
	"context"
	"encoding/xml"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"wadash/internal/app/storage/sigv4"
)

// maxListBody bounds the size of a ListBucketResult document.
const maxListBody = 8 << 20

// ObjectInfo describes one entry of a bucket listing.
type ObjectInfo struct {
	Key          string    `json:"key"`
	URL          string    `json:"url"`
	Size         int64     `json:"size"`
	ETag         string    `json:"etag,omitempty"`
	LastModified time.Time `json:"lastModified"`
}

type listBucketResult struct {
	XMLName     xml.Name `xml:"ListBucketResult"`
	Name        string   `xml:"Name"`
	Prefix      string   `xml:"Prefix"`
	IsTruncated bool     `xml:"IsTruncated"`
	Contents    []struct {
		Key          string    `xml:"Key"`
		LastModified time.Time `xml:"LastModified"`
		ETag         string    `xml:"ETag"`
		Size         int64     `xml:"Size"`
	} `xml:"Contents"`
}

// List returns the objects whose keys start with prefix. Only the first page the
// store returns is read; a truncated listing is logged and returned as is.
func (c *Client) List(ctx context.Context, prefix string) (objects []ObjectInfo, err error) {
	start := time.Now()
	defer func() { c.observe(OpList, err, start) }()

	u := c.bucketURL()
	u.RawQuery = sigv4.EncodeQuery(url.Values{"prefix": {prefix}})

	resp, err := c.send(ctx, OpList, prefix, http.MethodGet, u)
	if err != nil {
		return nil, err
	}
	defer drainAndClose(resp.Body)

	if !isSuccess(resp.StatusCode) {
		return nil, statusError(OpList, prefix, resp)
	}

	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxListBody))
	if err != nil {
		return nil, &Error{Op: OpList, Key: prefix, Kind: ErrNetwork, Err: err}
	}

	var result listBucketResult
	if err := xml.Unmarshal(raw, &result); err != nil {
		return nil, &Error{Op: OpList, Key: prefix, Kind: ErrMalformedResponse, Status: resp.StatusCode, Err: err}
	}
	if result.IsTruncated {
		c.log.Warn().Str("prefix", prefix).Int("returned", len(result.Contents)).Msg("Listing truncated, continuation is not followed")
	}

	objects = make([]ObjectInfo, 0, len(result.Contents))
	for _, entry := range result.Contents {
		objects = append(objects, ObjectInfo{
			Key:          entry.Key,
			URL:          c.ObjectURL(entry.Key),
			Size:         entry.Size,
			ETag:         strings.Trim(entry.ETag, `"`),
			LastModified: entry.LastModified,
		})
	}
	return objects, nil
}
