package storage

import (
	"encoding/xml"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
)

// maxErrorBody bounds how much of a failed response body is kept for diagnostics.
const maxErrorBody = 4 << 10

var (
	// ErrSigning marks a request that could not be built or signed.
	ErrSigning = errors.New("storage: request signing failed")

	// ErrNetwork marks a transport failure: DNS, timeout, connection refused or reset.
	ErrNetwork = errors.New("storage: network failure")

	// ErrAuthRejected marks an HTTP 403 from the store.
	ErrAuthRejected = errors.New("storage: request rejected by store")

	// ErrClockSkew marks a 403 the store attributed to the request timestamp.
	ErrClockSkew = errors.New("storage: request time too skewed")

	// ErrNotFound marks an HTTP 404.
	ErrNotFound = errors.New("storage: object not found")

	// ErrUploadFailed matches any non-2xx answer to an upload, whatever its Kind.
	ErrUploadFailed = errors.New("storage: upload failed")

	// ErrUnexpectedStatus marks any other non-success status.
	ErrUnexpectedStatus = errors.New("storage: unexpected status")

	// ErrForeignURL marks an object URL outside the configured endpoint and bucket.
	ErrForeignURL = errors.New("storage: url does not belong to this store")

	// ErrMalformedResponse marks a response body that could not be decoded.
	ErrMalformedResponse = errors.New("storage: malformed response")
)

// Error describes a failed storage operation.
// Kind is one of the package sentinels and is matched by errors.Is.
type Error struct {
	Op     string
	Key    string
	Kind   error
	Status int
	Code   string
	Body   string
	Err    error
}

func (e *Error) Error() string {
	var b strings.Builder
	b.WriteString(e.Op)
	if e.Key != "" {
		b.WriteString(" ")
		b.WriteString(e.Key)
	}
	b.WriteString(": ")
	b.WriteString(e.Kind.Error())
	if e.Status != 0 {
		fmt.Fprintf(&b, " (HTTP %d", e.Status)
		if e.Code != "" {
			b.WriteString(" ")
			b.WriteString(e.Code)
		}
		b.WriteString(")")
	}
	if e.Err != nil {
		b.WriteString(": ")
		b.WriteString(e.Err.Error())
	}
	return b.String()
}

// Is reports whether target is the error's kind. A clock skew rejection is also an
// auth rejection, and every status failure of an upload is also ErrUploadFailed.
func (e *Error) Is(target error) bool {
	switch {
	case target == e.Kind:
		return true
	case target == ErrAuthRejected:
		return e.Kind == ErrClockSkew
	case target == ErrUploadFailed:
		return e.Op == OpUpload && e.Status != 0
	}
	return false
}

func (e *Error) Unwrap() error {
	return e.Err
}

// s3ErrorResponse is the XML document S3 returns with failed requests.
type s3ErrorResponse struct {
	XMLName xml.Name `xml:"Error"`
	Code    string   `xml:"Code"`
	Message string   `xml:"Message"`
}

// statusError builds an *Error for a non-success response and consumes at most maxErrorBody bytes of it.
func statusError(op, key string, resp *http.Response) *Error {
	raw, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))

	e := &Error{
		Op:     op,
		Key:    key,
		Kind:   ErrUnexpectedStatus,
		Status: resp.StatusCode,
		Body:   string(raw),
	}

	var parsed s3ErrorResponse
	if len(raw) > 0 && xml.Unmarshal(raw, &parsed) == nil {
		e.Code = parsed.Code
	}

	switch resp.StatusCode {
	case http.StatusForbidden:
		e.Kind = ErrAuthRejected
		if e.Code == "RequestTimeTooSkewed" {
			e.Kind = ErrClockSkew
		}
	case http.StatusNotFound:
		e.Kind = ErrNotFound
	}

	return e
}
