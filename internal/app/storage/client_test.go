package storage

import (
	"context"
	"errors"
	"io"
	"net/http"
	"strings"
	"sync"
	"testing"
	"time"

	"wadash/internal/app/storage/sigv4"
)

type roundTripFunc func(*http.Request) (*http.Response, error)

func (f roundTripFunc) RoundTrip(r *http.Request) (*http.Response, error) {
	return f(r)
}

func stubResponse(status int, body string) *http.Response {
	return &http.Response{
		StatusCode: status,
		Header:     make(http.Header),
		Body:       io.NopCloser(strings.NewReader(body)),
	}
}

func newTestClient(t *testing.T, cfg ServiceConfig, opts ...Option) *Client {
	t.Helper()
	c, err := NewClient(cfg, opts...)
	if err != nil {
		t.Fatalf("NewClient: %v", err)
	}
	return c
}

type recordingObserver struct {
	mu  sync.Mutex
	ops []string
}

func (o *recordingObserver) ObserveOperation(op, outcome string, _ time.Duration) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.ops = append(o.ops, op+":"+outcome)
}

func TestNewClientValidatesConfig(t *testing.T) {
	base := ServiceConfig{
		S3BucketName:      testBucket,
		S3Endpoint:        "https://s3.example.com",
		S3AccessKeyID:     testAccessKey,
		S3SecretAccessKey: testSecretKey,
	}
	cases := map[string]func(*ServiceConfig){
		"missing endpoint": func(c *ServiceConfig) { c.S3Endpoint = "" },
		"missing bucket":   func(c *ServiceConfig) { c.S3BucketName = "" },
		"missing secret":   func(c *ServiceConfig) { c.S3SecretAccessKey = "" },
		"bad scheme":       func(c *ServiceConfig) { c.S3Endpoint = "ftp://s3.example.com" },
		"no host":          func(c *ServiceConfig) { c.S3Endpoint = "https://" },
	}
	for name, mutate := range cases {
		t.Run(name, func(t *testing.T) {
			cfg := base
			mutate(&cfg)
			_, err := NewClient(cfg)
			if err == nil {
				t.Fatal("expected error")
			}
			if strings.Contains(err.Error(), testSecretKey) {
				t.Fatalf("secret leaked in %v", err)
			}
		})
	}

	c := newTestClient(t, base)
	if c.region != defaultRegion {
		t.Fatalf("default region = %q", c.region)
	}
}

func TestUploadReferenceSignature(t *testing.T) {
	var captured *http.Request
	hc := &http.Client{Transport: roundTripFunc(func(r *http.Request) (*http.Response, error) {
		captured = r
		return stubResponse(http.StatusOK, ""), nil
	})}
	fixed := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

	c := newTestClient(t, ServiceConfig{
		S3BucketName:      "test-bucket",
		S3Endpoint:        "https://s3.example.com",
		S3AccessKeyID:     "AKIATEST",
		S3SecretAccessKey: "secret123",
		S3Region:          "us-east-1",
	}, WithHTTPClient(hc), WithClock(func() time.Time { return fixed }))

	got, err := c.Upload(context.Background(), "file.txt", File{Data: []byte("hello")}, UploadOptions{ContentType: "text/plain"})
	if err != nil {
		t.Fatalf("Upload: %v", err)
	}
	if got != "https://s3.example.com/test-bucket/file.txt" {
		t.Fatalf("url = %s", got)
	}

	const want = "AWS4-HMAC-SHA256 Credential=AKIATEST/20240101/us-east-1/s3/aws4_request, " +
		"SignedHeaders=content-length;content-type;host;x-amz-content-sha256;x-amz-date, " +
		"Signature=b1a83c884cb0a910faef963eac82dde2a77d9c1c49deaa57b412ccef35be9b9e"
	if auth := captured.Header.Get("Authorization"); auth != want {
		t.Fatalf("Authorization\n got: %s\nwant: %s", auth, want)
	}
	if captured.Header.Get("X-Amz-Date") != "20240101T000000Z" {
		t.Fatalf("X-Amz-Date = %s", captured.Header.Get("X-Amz-Date"))
	}
	if captured.Method != http.MethodPut || captured.ContentLength != 5 {
		t.Fatalf("unexpected request %s len=%d", captured.Method, captured.ContentLength)
	}
}

func TestUploadAgainstStore(t *testing.T) {
	fs := newFakeStore(t)
	obs := &recordingObserver{}
	c := newTestClient(t, fs.config(), WithObserver(obs))
	ctx := context.Background()

	objectURL, err := c.Upload(ctx, "/profile-photo/folder one/a+b.png", File{Name: "a+b.png", MimeType: "image/png", Data: []byte("png")}, UploadOptions{})
	if err != nil {
		t.Fatalf("Upload: %v", err)
	}
	if want := fs.srv.URL + "/test-bucket/profile-photo/folder%20one/a%2Bb.png"; objectURL != want {
		t.Fatalf("url = %s, want %s", objectURL, want)
	}
	obj, ok := fs.object("profile-photo/folder one/a+b.png")
	if !ok || string(obj.data) != "png" || obj.contentType != "image/png" {
		t.Fatalf("stored object = %+v, %v", obj, ok)
	}

	// Overwrite is implicit.
	if _, err := c.Upload(ctx, "profile-photo/folder one/a+b.png", File{Data: []byte("v2")}, UploadOptions{ContentType: "image/webp"}); err != nil {
		t.Fatalf("second Upload: %v", err)
	}
	obj, _ = fs.object("profile-photo/folder one/a+b.png")
	if string(obj.data) != "v2" || obj.contentType != "image/webp" {
		t.Fatalf("overwrite not applied: %+v", obj)
	}

	if len(obs.ops) != 2 || obs.ops[0] != "upload:ok" {
		t.Fatalf("observer saw %v", obs.ops)
	}
}

func TestUploadContentTypeFallback(t *testing.T) {
	fs := newFakeStore(t)
	c := newTestClient(t, fs.config())

	if _, err := c.Upload(context.Background(), "", File{Name: "blob.bin", Data: []byte{1, 2, 3}}, UploadOptions{}); err != nil {
		t.Fatalf("Upload: %v", err)
	}
	obj, ok := fs.object("blob.bin")
	if !ok || obj.contentType != defaultContentType {
		t.Fatalf("stored object = %+v, %v", obj, ok)
	}
}

func TestUploadZeroBytes(t *testing.T) {
	fs := newFakeStore(t)
	c := newTestClient(t, fs.config())

	if _, err := c.Upload(context.Background(), "empty.txt", File{}, UploadOptions{}); err != nil {
		t.Fatalf("Upload: %v", err)
	}
	obj, ok := fs.object("empty.txt")
	if !ok || len(obj.data) != 0 {
		t.Fatalf("stored object = %+v, %v", obj, ok)
	}
	if got := fs.request(0).Header.Get("X-Amz-Content-Sha256"); got != sigv4.EmptyPayloadHash {
		t.Fatalf("payload hash = %s", got)
	}
}

func TestUploadRequiresKey(t *testing.T) {
	c := newTestClient(t, newFakeStore(t).config())
	_, err := c.Upload(context.Background(), " / ", File{Data: []byte("x")}, UploadOptions{})
	if !errors.Is(err, ErrInvalidKey) {
		t.Fatalf("err = %v, want ErrInvalidKey", err)
	}
}

func TestUploadRejectedSignature(t *testing.T) {
	fs := newFakeStore(t)
	cfg := fs.config()
	cfg.S3SecretAccessKey = "wrong-secret"
	c := newTestClient(t, cfg)

	_, err := c.Upload(context.Background(), "file.txt", File{Data: []byte("hello")}, UploadOptions{})
	if !errors.Is(err, ErrUploadFailed) || !errors.Is(err, ErrAuthRejected) {
		t.Fatalf("err = %v, want upload failure with auth rejection", err)
	}
	var se *Error
	if !errors.As(err, &se) {
		t.Fatalf("err is %T", err)
	}
	if se.Status != http.StatusForbidden || se.Code != "SignatureDoesNotMatch" || !strings.Contains(se.Body, "SignatureDoesNotMatch") {
		t.Fatalf("unexpected error details %+v", se)
	}
	if strings.Contains(err.Error(), "wrong-secret") {
		t.Fatalf("secret leaked in %v", err)
	}
}

func TestUploadServerErrorIsUploadFailed(t *testing.T) {
	hc := &http.Client{Transport: roundTripFunc(func(r *http.Request) (*http.Response, error) {
		return stubResponse(http.StatusInternalServerError, "<Error><Code>InternalError</Code></Error>"), nil
	})}
	c := newTestClient(t, newFakeStore(t).config(), WithHTTPClient(hc))

	_, err := c.Upload(context.Background(), "k", File{Data: []byte("x")}, UploadOptions{})
	var se *Error
	if !errors.As(err, &se) || se.Kind != ErrUploadFailed || se.Status != 500 || se.Code != "InternalError" {
		t.Fatalf("err = %#v", err)
	}
	if Outcome(err) != "upload_failed" {
		t.Fatalf("outcome = %s", Outcome(err))
	}
}

func TestClockSkewIsClassified(t *testing.T) {
	fs := newFakeStore(t)
	fs.setSkewed(true)
	c := newTestClient(t, fs.config(), WithClock(func() time.Time { return time.Now().Add(-time.Hour) }))

	_, err := c.Upload(context.Background(), "file.txt", File{Data: []byte("hello")}, UploadOptions{})
	if !errors.Is(err, ErrClockSkew) || !errors.Is(err, ErrAuthRejected) {
		t.Fatalf("err = %v, want clock skew", err)
	}
	if Outcome(err) != "clock_skew" {
		t.Fatalf("outcome = %s", Outcome(err))
	}
}

func TestUploadNetworkError(t *testing.T) {
	fs := newFakeStore(t)
	cfg := fs.config()
	fs.srv.Close()

	c := newTestClient(t, cfg)
	_, err := c.Upload(context.Background(), "file.txt", File{Data: []byte("hello")}, UploadOptions{})
	if !errors.Is(err, ErrNetwork) {
		t.Fatalf("err = %v, want ErrNetwork", err)
	}
}

func TestDelete(t *testing.T) {
	fs := newFakeStore(t)
	c := newTestClient(t, fs.config())
	ctx := context.Background()

	fs.put("group-image/x.jpg", []byte("jpg"))
	if err := c.Delete(ctx, c.ObjectURL("group-image/x.jpg")); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if _, ok := fs.object("group-image/x.jpg"); ok {
		t.Fatal("object still present")
	}
	if got := fs.request(0).Header.Get("X-Amz-Content-Sha256"); got != sigv4.UnsignedPayload {
		t.Fatalf("payload hash = %s", got)
	}

	err := c.Delete(ctx, c.ObjectURL("group-image/x.jpg"))
	if !errors.Is(err, ErrNotFound) {
		t.Fatalf("second Delete err = %v, want ErrNotFound", err)
	}
}

func TestDeleteForeignURL(t *testing.T) {
	fs := newFakeStore(t)
	c := newTestClient(t, fs.config())

	for _, u := range []string{
		"https://evil.example.com/test-bucket/k",
		fs.srv.URL + "/other-bucket/k",
		fs.srv.URL + "/test-bucket/",
		"::not a url",
	} {
		if err := c.Delete(context.Background(), u); err == nil {
			t.Fatalf("Delete(%q) succeeded", u)
		}
	}
	if n := fs.requestCount(); n != 0 {
		t.Fatalf("store received %d requests", n)
	}
}

func TestKeyFromURLRoundTrip(t *testing.T) {
	c := newTestClient(t, newFakeStore(t).config())
	for _, key := range []string{"a.txt", "tutorial-video/2024/intro clip.mp4", "x/y+z(1).pdf"} {
		got, err := c.KeyFromURL(c.ObjectURL(key))
		if err != nil || got != key {
			t.Fatalf("KeyFromURL(ObjectURL(%q)) = %q, %v", key, got, err)
		}
	}
}

func TestPingStatuses(t *testing.T) {
	cfg := ServiceConfig{
		S3BucketName:      testBucket,
		S3Endpoint:        "https://s3.example.com",
		S3AccessKeyID:     testAccessKey,
		S3SecretAccessKey: testSecretKey,
	}
	for _, tc := range []struct {
		status int
		ok     bool
	}{
		{http.StatusOK, true},
		{http.StatusForbidden, true},
		{http.StatusNotFound, true},
		{http.StatusInternalServerError, false},
		{http.StatusMovedPermanently, false},
	} {
		var method, path string
		hc := &http.Client{Transport: roundTripFunc(func(r *http.Request) (*http.Response, error) {
			method, path = r.Method, r.URL.Path
			return stubResponse(tc.status, ""), nil
		})}
		err := newTestClient(t, cfg, WithHTTPClient(hc)).Ping(context.Background())
		if (err == nil) != tc.ok {
			t.Fatalf("status %d: err = %v", tc.status, err)
		}
		if method != http.MethodHead || path != "/test-bucket/" {
			t.Fatalf("ping sent %s %s", method, path)
		}
	}
}

func TestPingTransportFailures(t *testing.T) {
	fs := newFakeStore(t)
	cfg := fs.config()
	fs.srv.Close()
	if err := newTestClient(t, cfg).Ping(context.Background()); !errors.Is(err, ErrNetwork) {
		t.Fatalf("refused: err = %v", err)
	}

	slow := &http.Client{
		Timeout: 20 * time.Millisecond,
		Transport: roundTripFunc(func(r *http.Request) (*http.Response, error) {
			<-r.Context().Done()
			return nil, r.Context().Err()
		}),
	}
	if err := newTestClient(t, cfg, WithHTTPClient(slow)).Ping(context.Background()); !errors.Is(err, ErrNetwork) {
		t.Fatalf("timeout: err = %v", err)
	}
}

func TestList(t *testing.T) {
	fs := newFakeStore(t)
	c := newTestClient(t, fs.config())
	ctx := context.Background()

	fs.put("tutorial-document/b.pdf", []byte("bb"))
	fs.put("tutorial-document/a b.pdf", []byte("a"))
	fs.put("profile-photo/me.png", []byte("png"))

	objects, err := c.List(ctx, "tutorial-document/")
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(objects) != 2 {
		t.Fatalf("got %d objects: %+v", len(objects), objects)
	}
	if objects[0].Key != "tutorial-document/a b.pdf" || objects[0].Size != 1 {
		t.Fatalf("first object = %+v", objects[0])
	}
	if objects[0].URL != c.ObjectURL("tutorial-document/a b.pdf") {
		t.Fatalf("object url = %s", objects[0].URL)
	}
	if strings.Contains(objects[0].ETag, `"`) || objects[0].LastModified.IsZero() {
		t.Fatalf("etag/modified not parsed: %+v", objects[0])
	}

	all, err := c.List(ctx, "")
	if err != nil || len(all) != 3 {
		t.Fatalf("List all = %d, %v", len(all), err)
	}
}

func TestListMalformedBody(t *testing.T) {
	hc := &http.Client{Transport: roundTripFunc(func(r *http.Request) (*http.Response, error) {
		if r.URL.RawQuery != "prefix=a%2Fb" {
			t.Errorf("query = %q", r.URL.RawQuery)
		}
		return stubResponse(http.StatusOK, "<html>not a listing</html>"), nil
	})}
	c := newTestClient(t, newFakeStore(t).config(), WithHTTPClient(hc))

	_, err := c.List(context.Background(), "a/b")
	if !errors.Is(err, ErrMalformedResponse) {
		t.Fatalf("err = %v, want ErrMalformedResponse", err)
	}
}

func TestExists(t *testing.T) {
	fs := newFakeStore(t)
	c := newTestClient(t, fs.config())
	ctx := context.Background()

	fs.put("group-image/g.png", []byte("g"))
	ok, err := c.Exists(ctx, c.ObjectURL("group-image/g.png"))
	if err != nil || !ok {
		t.Fatalf("Exists = %v, %v", ok, err)
	}
	if auth := fs.request(0).Header.Get("Authorization"); auth != "" {
		t.Fatalf("exists check must be unsigned, got %s", auth)
	}

	ok, err = c.Exists(ctx, c.ObjectURL("group-image/missing.png"))
	if err != nil || ok {
		t.Fatalf("Exists(missing) = %v, %v", ok, err)
	}

	sent := fs.requestCount()
	for _, foreign := range []string{
		"file:///etc/passwd",
		"http://169.254.169.254/latest/meta-data/",
		fs.srv.URL + "/other-bucket/g.png",
	} {
		if _, err := c.Exists(ctx, foreign); !errors.Is(err, ErrForeignURL) {
			t.Fatalf("Exists(%q) err = %v, want ErrForeignURL", foreign, err)
		}
	}
	if fs.requestCount() != sent {
		t.Fatalf("foreign existence checks reached the network: %d requests", fs.requestCount()-sent)
	}
}

func TestConcurrentUploads(t *testing.T) {
	fs := newFakeStore(t)
	c := newTestClient(t, fs.config())

	var wg sync.WaitGroup
	errs := make(chan error, 16)
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			key := "batch/" + string(rune('a'+i)) + ".txt"
			if _, err := c.Upload(context.Background(), key, File{Data: []byte(key)}, UploadOptions{}); err != nil {
				errs <- err
			}
		}(i)
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		t.Fatalf("Upload: %v", err)
	}

	objects, err := c.List(context.Background(), "batch/")
	if err != nil || len(objects) != 16 {
		t.Fatalf("List = %d, %v", len(objects), err)
	}
}
