package storage

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/rs/zerolog"

	"wadash/internal/app/storage/sigv4"
	"wadash/internal/pkg/logx"
)

// Operation names used in errors, logs and metrics.
const (
	OpUpload = "upload"
	OpDelete = "delete"
	OpPing   = "ping"
	OpList   = "list"
	OpExists = "exists"
)

const (
	defaultContentType = "application/octet-stream"
	defaultRegion      = "us-east-1"
	defaultTimeout     = 30 * time.Second
)

// ErrInvalidKey marks an empty or unusable object key.
var ErrInvalidKey = errors.New("storage: invalid object key")

// File is an in-memory payload to upload.
type File struct {
	Name     string
	MimeType string
	Data     []byte
}

// UploadOptions overrides per-upload request attributes.
type UploadOptions struct {
	ContentType string
}

// Observer receives one callback per finished operation.
type Observer interface {
	ObserveOperation(op string, outcome string, elapsed time.Duration)
}

// Client talks to an S3-compatible store over plain HTTP, signing every call with SigV4.
// It holds no mutable state and is safe for concurrent use.
type Client struct {
	endpoint *url.URL
	bucket   string
	region   string
	creds    sigv4.Credentials

	httpClient *http.Client
	now        func() time.Time
	observer   Observer
	log        zerolog.Logger
}

// Option customizes a Client.
type Option func(*Client)

// WithHTTPClient replaces the transport used for every request.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		if hc != nil {
			c.httpClient = hc
		}
	}
}

// WithClock replaces the time source used for request signing.
func WithClock(now func() time.Time) Option {
	return func(c *Client) {
		if now != nil {
			c.now = now
		}
	}
}

// WithObserver registers an operation observer, typically a metrics sink.
func WithObserver(o Observer) Option {
	return func(c *Client) {
		c.observer = o
	}
}

// NewClient validates cfg and builds a Client.
func NewClient(cfg ServiceConfig, opts ...Option) (*Client, error) {
	if cfg.S3Endpoint == "" {
		return nil, errors.New("storage: endpoint is required")
	}
	if cfg.S3BucketName == "" {
		return nil, errors.New("storage: bucket name is required")
	}
	if cfg.S3AccessKeyID == "" || cfg.S3SecretAccessKey == "" {
		return nil, errors.New("storage: access key and secret key are required")
	}

	endpoint, err := url.Parse(strings.TrimRight(cfg.S3Endpoint, "/"))
	if err != nil {
		return nil, fmt.Errorf("storage: invalid endpoint: %w", err)
	}
	if endpoint.Scheme != "http" && endpoint.Scheme != "https" {
		return nil, fmt.Errorf("storage: endpoint scheme must be http or https, got %q", endpoint.Scheme)
	}
	if endpoint.Host == "" {
		return nil, errors.New("storage: endpoint host is required")
	}
	endpoint.RawQuery = ""
	endpoint.Fragment = ""

	region := cfg.S3Region
	if region == "" {
		region = defaultRegion
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = defaultTimeout
	}

	c := &Client{
		endpoint:   endpoint,
		bucket:     cfg.S3BucketName,
		region:     region,
		creds:      sigv4.Credentials{AccessKey: cfg.S3AccessKeyID, SecretKey: cfg.S3SecretAccessKey},
		httpClient: &http.Client{Timeout: timeout},
		now:        time.Now,
		log:        logx.Component("storage"),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// Bucket returns the configured bucket name.
func (c *Client) Bucket() string {
	return c.bucket
}

// ObjectURL returns the path-style URL of key: {endpoint}/{bucket}/{key}.
func (c *Client) ObjectURL(key string) string {
	u := c.objectURL(normalizeKey(key))
	return u.String()
}

// Upload stores file under key, overwriting any existing object, and returns the object URL.
// An empty key falls back to the file name.
func (c *Client) Upload(ctx context.Context, key string, file File, opts UploadOptions) (objectURL string, err error) {
	start := time.Now()
	defer func() { c.observe(OpUpload, err, start) }()

	key = normalizeKey(key)
	if key == "" {
		key = normalizeKey(file.Name)
	}
	if key == "" {
		return "", &Error{Op: OpUpload, Kind: ErrInvalidKey}
	}

	contentType := firstNonEmpty(opts.ContentType, file.MimeType, defaultContentType)
	payloadHash := sigv4.SHA256Hex(file.Data)
	u := c.objectURL(key)

	req, err := http.NewRequestWithContext(ctx, http.MethodPut, u.String(), bytes.NewReader(file.Data))
	if err != nil {
		return "", &Error{Op: OpUpload, Key: key, Kind: ErrSigning, Err: err}
	}
	req.ContentLength = int64(len(file.Data))
	req.Header.Set("Content-Type", contentType)
	req.Header.Set("Content-Length", fmt.Sprintf("%d", len(file.Data)))
	sigv4.SignHTTP(req, payloadHash, c.creds, c.region, c.now())

	c.log.Debug().
		Str("key", key).
		Str("size", humanize.Bytes(uint64(len(file.Data)))).
		Str("content_type", contentType).
		Msg("Uploading object")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", &Error{Op: OpUpload, Key: key, Kind: ErrNetwork, Err: err}
	}
	defer drainAndClose(resp.Body)

	if !isSuccess(resp.StatusCode) {
		e := statusError(OpUpload, key, resp)
		if e.Kind == ErrUnexpectedStatus {
			e.Kind = ErrUploadFailed
		}
		return "", e
	}

	return u.String(), nil
}

// Delete removes the object addressed by objectURL. The URL must point into this
// client's endpoint and bucket; a missing object yields ErrNotFound.
func (c *Client) Delete(ctx context.Context, objectURL string) (err error) {
	start := time.Now()
	defer func() { c.observe(OpDelete, err, start) }()

	key, err := c.KeyFromURL(objectURL)
	if err != nil {
		return err
	}

	resp, err := c.send(ctx, OpDelete, key, http.MethodDelete, c.objectURL(key))
	if err != nil {
		return err
	}
	defer drainAndClose(resp.Body)

	if !isSuccess(resp.StatusCode) {
		return statusError(OpDelete, key, resp)
	}
	return nil
}

// Ping checks {endpoint}/{bucket}/ with a signed HEAD. HTTP 200, 403 and 404 all prove
// the store is reachable and return nil.
func (c *Client) Ping(ctx context.Context) (err error) {
	start := time.Now()
	defer func() { c.observe(OpPing, err, start) }()

	resp, err := c.send(ctx, OpPing, "", http.MethodHead, c.bucketURL())
	if err != nil {
		return err
	}
	defer drainAndClose(resp.Body)

	switch resp.StatusCode {
	case http.StatusOK, http.StatusForbidden, http.StatusNotFound:
		c.log.Debug().Int("status", resp.StatusCode).Msg("Store reachable")
		return nil
	}
	return statusError(OpPing, "", resp)
}

// Exists issues a plain unsigned HEAD for the object addressed by objectURL. The URL
// must point into this client's endpoint and bucket, and the object must be readable
// without credentials (public-read bucket).
func (c *Client) Exists(ctx context.Context, objectURL string) (exists bool, err error) {
	start := time.Now()
	defer func() {
		if err == nil && !exists {
			c.observe(OpExists, ErrNotFound, start)
			return
		}
		c.observe(OpExists, err, start)
	}()

	key, err := c.keyFromURL(OpExists, objectURL)
	if err != nil {
		return false, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodHead, c.objectURL(key).String(), nil)
	if err != nil {
		return false, &Error{Op: OpExists, Key: key, Kind: ErrInvalidKey, Err: err}
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return false, &Error{Op: OpExists, Key: key, Kind: ErrNetwork, Err: err}
	}
	defer drainAndClose(resp.Body)

	if isSuccess(resp.StatusCode) {
		return true, nil
	}
	if resp.StatusCode == http.StatusNotFound {
		return false, nil
	}
	return false, statusError(OpExists, key, resp)
}

// KeyFromURL extracts the object key from a URL produced by ObjectURL.
func (c *Client) KeyFromURL(objectURL string) (string, error) {
	return c.keyFromURL(OpDelete, objectURL)
}

func (c *Client) keyFromURL(op, objectURL string) (string, error) {
	u, err := url.Parse(objectURL)
	if err != nil {
		return "", &Error{Op: op, Kind: ErrForeignURL, Err: err}
	}
	if !strings.EqualFold(u.Scheme, c.endpoint.Scheme) || !strings.EqualFold(u.Host, c.endpoint.Host) {
		return "", &Error{Op: op, Kind: ErrForeignURL}
	}

	prefix := c.endpoint.Path + "/" + c.bucket + "/"
	if !strings.HasPrefix(u.Path, prefix) {
		return "", &Error{Op: op, Kind: ErrForeignURL}
	}
	key := normalizeKey(strings.TrimPrefix(u.Path, prefix))
	if key == "" {
		return "", &Error{Op: op, Kind: ErrInvalidKey}
	}
	return key, nil
}

// send signs a body-less request with UNSIGNED-PAYLOAD and executes it.
func (c *Client) send(ctx context.Context, op, key, method string, u *url.URL) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, method, u.String(), nil)
	if err != nil {
		return nil, &Error{Op: op, Key: key, Kind: ErrSigning, Err: err}
	}
	sigv4.SignHTTP(req, sigv4.UnsignedPayload, c.creds, c.region, c.now())

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, &Error{Op: op, Key: key, Kind: ErrNetwork, Err: err}
	}
	return resp, nil
}

func (c *Client) bucketURL() *url.URL {
	u := *c.endpoint
	u.Path = c.endpoint.Path + "/" + c.bucket + "/"
	u.RawPath = sigv4.EscapePath(u.Path)
	return &u
}

func (c *Client) objectURL(key string) *url.URL {
	u := *c.endpoint
	u.Path = c.endpoint.Path + "/" + c.bucket + "/" + key
	u.RawPath = sigv4.EscapePath(u.Path)
	return &u
}

func (c *Client) observe(op string, err error, start time.Time) {
	if c.observer == nil {
		return
	}
	c.observer.ObserveOperation(op, Outcome(err), time.Since(start))
}

// Outcome maps an operation error to a short label for metrics and logs.
func Outcome(err error) string {
	switch {
	case err == nil:
		return "ok"
	case errors.Is(err, ErrClockSkew):
		return "clock_skew"
	case errors.Is(err, ErrAuthRejected):
		return "auth_rejected"
	case errors.Is(err, ErrNotFound):
		return "not_found"
	case errors.Is(err, ErrNetwork):
		return "network"
	case errors.Is(err, ErrForeignURL):
		return "foreign_url"
	case errors.Is(err, ErrInvalidKey):
		return "invalid_key"
	case errors.Is(err, ErrMalformedResponse):
		return "malformed_response"
	case errors.Is(err, ErrUploadFailed):
		return "upload_failed"
	case errors.Is(err, ErrSigning):
		return "signing"
	}
	return "error"
}

func normalizeKey(key string) string {
	return strings.TrimLeft(strings.TrimSpace(key), "/")
}

func isSuccess(status int) bool {
	return status >= 200 && status < 300
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}

func drainAndClose(body io.ReadCloser) {
	_, _ = io.Copy(io.Discard, io.LimitReader(body, maxErrorBody))
	_ = body.Close()
}
