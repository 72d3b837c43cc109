package storage

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/xml"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"sort"
	"strconv"
	"strings"
	"sync"
	"testing"
	"time"
)

const (
	testBucket    = "test-bucket"
	testAccessKey = "AKIATEST"
	testSecretKey = "secret123"
	testRegion    = "us-east-1"
)

type storedObject struct {
	data        []byte
	contentType string
	modified    time.Time
}

// fakeStore is an in-memory S3 endpoint that checks SigV4 signatures on its own,
// without going through the sigv4 package.
type fakeStore struct {
	srv    *httptest.Server
	secret string
	region string

	mu       sync.Mutex
	objects  map[string]storedObject
	requests []*http.Request
	skewed   bool
}

func newFakeStore(t *testing.T) *fakeStore {
	t.Helper()
	fs := &fakeStore{
		secret:  testSecretKey,
		region:  testRegion,
		objects: make(map[string]storedObject),
	}
	fs.srv = httptest.NewServer(http.HandlerFunc(fs.serve))
	t.Cleanup(fs.srv.Close)
	return fs
}

func (fs *fakeStore) config() ServiceConfig {
	return ServiceConfig{
		S3BucketName:      testBucket,
		S3Endpoint:        fs.srv.URL,
		S3AccessKeyID:     testAccessKey,
		S3SecretAccessKey: testSecretKey,
		S3Region:          testRegion,
		Timeout:           5 * time.Second,
	}
}

func (fs *fakeStore) put(key string, data []byte) {
	fs.mu.Lock()
	defer fs.mu.Unlock()
	fs.objects[key] = storedObject{data: data, contentType: "application/octet-stream", modified: time.Now().UTC()}
}

func (fs *fakeStore) object(key string) (storedObject, bool) {
	fs.mu.Lock()
	defer fs.mu.Unlock()
	obj, ok := fs.objects[key]
	return obj, ok
}

func (fs *fakeStore) setSkewed(v bool) {
	fs.mu.Lock()
	defer fs.mu.Unlock()
	fs.skewed = v
}

// request returns the i-th request the store received.
func (fs *fakeStore) request(i int) *http.Request {
	fs.mu.Lock()
	defer fs.mu.Unlock()
	return fs.requests[i]
}

func (fs *fakeStore) requestCount() int {
	fs.mu.Lock()
	defer fs.mu.Unlock()
	return len(fs.requests)
}

func (fs *fakeStore) serve(w http.ResponseWriter, r *http.Request) {
	body, _ := io.ReadAll(r.Body)

	fs.mu.Lock()
	fs.requests = append(fs.requests, r)
	skewed := fs.skewed
	fs.mu.Unlock()

	prefix := "/" + testBucket + "/"
	if !strings.HasPrefix(r.URL.Path, prefix) {
		writeS3Error(w, http.StatusNotFound, "NoSuchBucket")
		return
	}
	key := strings.TrimPrefix(r.URL.Path, prefix)

	// Object HEADs are public-read.
	publicRead := r.Method == http.MethodHead && key != ""
	if !publicRead {
		if skewed {
			writeS3Error(w, http.StatusForbidden, "RequestTimeTooSkewed")
			return
		}
		if !fs.verify(r) {
			writeS3Error(w, http.StatusForbidden, "SignatureDoesNotMatch")
			return
		}
	}

	switch {
	case r.Method == http.MethodPut && key != "":
		sum := sha256.Sum256(body)
		if r.Header.Get("X-Amz-Content-Sha256") != hex.EncodeToString(sum[:]) {
			writeS3Error(w, http.StatusBadRequest, "XAmzContentSHA256Mismatch")
			return
		}
		fs.mu.Lock()
		fs.objects[key] = storedObject{data: body, contentType: r.Header.Get("Content-Type"), modified: time.Now().UTC()}
		fs.mu.Unlock()
		w.Header().Set("ETag", `"etag"`)
		w.WriteHeader(http.StatusOK)

	case r.Method == http.MethodDelete && key != "":
		fs.mu.Lock()
		_, ok := fs.objects[key]
		delete(fs.objects, key)
		fs.mu.Unlock()
		if !ok {
			writeS3Error(w, http.StatusNotFound, "NoSuchKey")
			return
		}
		w.WriteHeader(http.StatusNoContent)

	case r.Method == http.MethodHead && key == "":
		w.WriteHeader(http.StatusOK)

	case r.Method == http.MethodHead:
		if _, ok := fs.object(key); !ok {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		w.WriteHeader(http.StatusOK)

	case r.Method == http.MethodGet && key == "":
		fs.writeListing(w, r.URL.Query().Get("prefix"))

	default:
		writeS3Error(w, http.StatusMethodNotAllowed, "MethodNotAllowed")
	}
}

func (fs *fakeStore) writeListing(w http.ResponseWriter, prefix string) {
	fs.mu.Lock()
	keys := make([]string, 0, len(fs.objects))
	for k := range fs.objects {
		if strings.HasPrefix(k, prefix) {
			keys = append(keys, k)
		}
	}
	sort.Strings(keys)

	var b strings.Builder
	b.WriteString(`<?xml version="1.0" encoding="UTF-8"?>`)
	b.WriteString(`<ListBucketResult xmlns="http://s3.amazonaws.com/doc/2006-03-01/">`)
	fmt.Fprintf(&b, "<Name>%s</Name><Prefix>%s</Prefix><IsTruncated>false</IsTruncated>", testBucket, xmlEscape(prefix))
	for _, k := range keys {
		obj := fs.objects[k]
		fmt.Fprintf(&b, "<Contents><Key>%s</Key><LastModified>%s</LastModified><ETag>&quot;%x&quot;</ETag><Size>%d</Size></Contents>",
			xmlEscape(k), obj.modified.Format(time.RFC3339), sha256.Sum256(obj.data), len(obj.data))
	}
	b.WriteString(`</ListBucketResult>`)
	fs.mu.Unlock()

	w.Header().Set("Content-Type", "application/xml")
	_, _ = io.WriteString(w, b.String())
}

// verify recomputes the signature of r from the headers it names.
func (fs *fakeStore) verify(r *http.Request) bool {
	auth := r.Header.Get("Authorization")
	if !strings.HasPrefix(auth, "AWS4-HMAC-SHA256 ") {
		return false
	}
	params := map[string]string{}
	for _, part := range strings.Split(strings.TrimPrefix(auth, "AWS4-HMAC-SHA256 "), ",") {
		kv := strings.SplitN(strings.TrimSpace(part), "=", 2)
		if len(kv) == 2 {
			params[kv[0]] = kv[1]
		}
	}
	credParts := strings.Split(params["Credential"], "/")
	if len(credParts) != 5 || credParts[0] != testAccessKey || credParts[2] != fs.region {
		return false
	}

	amzDate := r.Header.Get("X-Amz-Date")
	if len(amzDate) < 8 || amzDate[:8] != credParts[1] {
		return false
	}

	signed := strings.Split(params["SignedHeaders"], ";")
	var headers strings.Builder
	for _, h := range signed {
		var value string
		switch h {
		case "host":
			value = r.Host
		case "content-length":
			value = strconv.FormatInt(r.ContentLength, 10)
		default:
			value = r.Header.Get(h)
		}
		headers.WriteString(h + ":" + strings.Join(strings.Fields(value), " ") + "\n")
	}

	query := strings.ReplaceAll(r.URL.Query().Encode(), "+", "%20")
	canonical := strings.Join([]string{
		r.Method,
		r.URL.EscapedPath(),
		query,
		headers.String(),
		params["SignedHeaders"],
		r.Header.Get("X-Amz-Content-Sha256"),
	}, "\n")
	digest := sha256.Sum256([]byte(canonical))
	scope := credParts[1] + "/" + fs.region + "/s3/aws4_request"
	stringToSign := "AWS4-HMAC-SHA256\n" + amzDate + "\n" + scope + "\n" + hex.EncodeToString(digest[:])

	mac := func(key []byte, data string) []byte {
		h := hmac.New(sha256.New, key)
		h.Write([]byte(data))
		return h.Sum(nil)
	}
	key := mac(mac(mac(mac([]byte("AWS4"+fs.secret), credParts[1]), fs.region), "s3"), "aws4_request")
	expected := hex.EncodeToString(mac(key, stringToSign))
	return hmac.Equal([]byte(expected), []byte(params["Signature"]))
}

func writeS3Error(w http.ResponseWriter, status int, code string) {
	w.Header().Set("Content-Type", "application/xml")
	w.WriteHeader(status)
	_, _ = fmt.Fprintf(w, `<?xml version="1.0" encoding="UTF-8"?><Error><Code>%s</Code><Message>%s</Message></Error>`, code, code)
}

func xmlEscape(s string) string {
	var b strings.Builder
	_ = xml.EscapeText(&b, []byte(s))
	return b.String()
}
