/*
Package sigv4 implements AWS Signature Version 4 request signing for S3-compatible stores.

The signer is a pure function of the request descriptor, the credentials and the region.
The timestamp it signs with is the X-Amz-Date header the caller placed in the descriptor,
so the value on the wire and the value in the signature are always the same string.
*/
package sigv4

import (
	"encoding/hex"
	"net/http"
	"net/url"
	"sort"
	"strings"
	"time"
)

const (
	// Algorithm is the SigV4 algorithm identifier.
	Algorithm = "AWS4-HMAC-SHA256"

	// ServiceS3 is the only service name this package signs for.
	ServiceS3 = "s3"

	// AmzDateFormat is the layout of the X-Amz-Date header.
	AmzDateFormat = "20060102T150405Z"

	scopeTerminator = "aws4_request"

	HeaderAmzDate       = "X-Amz-Date"
	HeaderContentSHA256 = "X-Amz-Content-Sha256"
	HeaderAuthorization = "Authorization"
)

// ignoredHeaders are never part of the signature, even when present on the request.
var ignoredHeaders = map[string]struct{}{
	"authorization":   {},
	"user-agent":      {},
	"expect":          {},
	"x-amzn-trace-id": {},
}

// Credentials is a static access key pair.
type Credentials struct {
	AccessKey string
	SecretKey string
}

// String hides the secret key so credentials can be passed to formatters safely.
func (c Credentials) String() string {
	return "Credentials{AccessKey:" + c.AccessKey + ", SecretKey:REDACTED}"
}

// GoString implements fmt.GoStringer with the same redaction as String.
func (c Credentials) GoString() string {
	return c.String()
}

// Scope binds a signature to a date, region and service.
type Scope struct {
	DateStamp string
	Region    string
	Service   string
}

// String returns the credential scope, e.g. 20240101/us-east-1/s3/aws4_request.
func (s Scope) String() string {
	return s.DateStamp + "/" + s.Region + "/" + s.Service + "/" + scopeTerminator
}

// Request describes the parts of an HTTP request that take part in signing.
// Path must already be URI-encoded and Query already canonical.
type Request struct {
	Method      string
	Path        string
	Query       string
	Headers     map[string]string
	PayloadHash string
}

// FormatAmzDate formats t as an X-Amz-Date value in UTC.
func FormatAmzDate(t time.Time) string {
	return t.UTC().Format(AmzDateFormat)
}

// amzDate returns the X-Amz-Date value of the descriptor, matching the header name case-insensitively.
func (r Request) amzDate() string {
	for name, value := range r.Headers {
		if strings.EqualFold(name, HeaderAmzDate) {
			return strings.TrimSpace(value)
		}
	}
	return ""
}

// ScopeFor builds the credential scope for an X-Amz-Date value and region.
func ScopeFor(amzDate, region string) Scope {
	dateStamp := amzDate
	if len(dateStamp) > 8 {
		dateStamp = dateStamp[:8]
	}
	return Scope{DateStamp: dateStamp, Region: region, Service: ServiceS3}
}

// CanonicalHeaders returns the canonical header block (each line ends in \n) and
// the semicolon separated list of signed header names.
func CanonicalHeaders(headers map[string]string) (canonical string, signed string) {
	keys := make([]string, 0, len(headers))
	for k := range headers {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	merged := make(map[string]string, len(keys))
	names := make([]string, 0, len(keys))
	for _, k := range keys {
		name := strings.ToLower(strings.TrimSpace(k))
		value := normalizeSpaces(headers[k])
		if prev, ok := merged[name]; ok {
			merged[name] = prev + "," + value
			continue
		}
		merged[name] = value
		names = append(names, name)
	}
	sort.Strings(names)

	var b strings.Builder
	for _, name := range names {
		b.WriteString(name)
		b.WriteByte(':')
		b.WriteString(merged[name])
		b.WriteByte('\n')
	}
	return b.String(), strings.Join(names, ";")
}

// CanonicalRequest returns the canonical request string and the signed header list.
func CanonicalRequest(r Request) (canonical string, signedHeaders string) {
	headers, signed := CanonicalHeaders(r.Headers)
	path := r.Path
	if path == "" {
		path = "/"
	}
	canonical = strings.Join([]string{
		r.Method,
		path,
		r.Query,
		headers,
		signed,
		r.PayloadHash,
	}, "\n")
	return canonical, signed
}

// StringToSign builds the SigV4 string to sign from a canonical request.
func StringToSign(amzDate string, scope Scope, canonicalRequest string) string {
	return strings.Join([]string{
		Algorithm,
		amzDate,
		scope.String(),
		SHA256Hex([]byte(canonicalRequest)),
	}, "\n")
}

// DeriveSigningKey runs the HMAC-SHA256 chain date -> region -> service -> aws4_request.
func DeriveSigningKey(secretKey string, scope Scope) []byte {
	kDate := hmacSHA256([]byte("AWS4"+secretKey), scope.DateStamp)
	kRegion := hmacSHA256(kDate, scope.Region)
	kService := hmacSHA256(kRegion, scope.Service)
	return hmacSHA256(kService, scopeTerminator)
}

// Sign returns the Authorization header value for r.
// A descriptor missing required headers still yields a signature; the store rejects it.
func Sign(r Request, creds Credentials, region string) string {
	amzDate := r.amzDate()
	scope := ScopeFor(amzDate, region)

	canonical, signed := CanonicalRequest(r)
	stringToSign := StringToSign(amzDate, scope, canonical)
	signature := hex.EncodeToString(hmacSHA256(DeriveSigningKey(creds.SecretKey, scope), stringToSign))

	return Algorithm +
		" Credential=" + creds.AccessKey + "/" + scope.String() +
		", SignedHeaders=" + signed +
		", Signature=" + signature
}

// SignHTTP stamps req with Host, X-Amz-Date and X-Amz-Content-Sha256, then signs every
// header on the request and sets Authorization. req.URL.RawQuery must already be canonical.
func SignHTTP(req *http.Request, payloadHash string, creds Credentials, region string, now time.Time) {
	host := req.Host
	if host == "" {
		host = req.URL.Host
	}
	req.Header.Set("Host", host)
	req.Header.Set(HeaderAmzDate, FormatAmzDate(now))
	req.Header.Set(HeaderContentSHA256, payloadHash)

	headers := make(map[string]string, len(req.Header))
	for name, values := range req.Header {
		if _, skip := ignoredHeaders[strings.ToLower(name)]; skip {
			continue
		}
		headers[name] = strings.Join(values, ",")
	}

	desc := Request{
		Method:      req.Method,
		Path:        req.URL.EscapedPath(),
		Query:       req.URL.RawQuery,
		Headers:     headers,
		PayloadHash: payloadHash,
	}
	req.Header.Set(HeaderAuthorization, Sign(desc, creds, region))
}

// EscapePath URI-encodes every byte of p except unreserved characters and '/'.
func EscapePath(p string) string {
	return uriEncode(p, false)
}

// EncodeQuery renders values in canonical form: RFC 3986 encoded, sorted by key then value.
func EncodeQuery(values url.Values) string {
	if len(values) == 0 {
		return ""
	}
	type pair struct {
		k string
		v string
	}
	pairs := make([]pair, 0, len(values))
	for k, vs := range values {
		for _, v := range vs {
			pairs = append(pairs, pair{uriEncode(k, true), uriEncode(v, true)})
		}
	}
	sort.Slice(pairs, func(i, j int) bool {
		if pairs[i].k == pairs[j].k {
			return pairs[i].v < pairs[j].v
		}
		return pairs[i].k < pairs[j].k
	})
	var b strings.Builder
	for i, p := range pairs {
		if i > 0 {
			b.WriteByte('&')
		}
		b.WriteString(p.k)
		b.WriteByte('=')
		b.WriteString(p.v)
	}
	return b.String()
}

func uriEncode(s string, encodeSlash bool) string {
	const hexDigits = "0123456789ABCDEF"
	var b strings.Builder
	b.Grow(len(s))
	for i := 0; i < len(s); i++ {
		c := s[i]
		switch {
		case 'A' <= c && c <= 'Z', 'a' <= c && c <= 'z', '0' <= c && c <= '9',
			c == '-', c == '_', c == '.', c == '~':
			b.WriteByte(c)
		case c == '/' && !encodeSlash:
			b.WriteByte(c)
		default:
			b.WriteByte('%')
			b.WriteByte(hexDigits[c>>4])
			b.WriteByte(hexDigits[c&0x0f])
		}
	}
	return b.String()
}

func normalizeSpaces(s string) string {
	return strings.Join(strings.Fields(s), " ")
}
