package httpclient

import (
	"compress/gzip"
	"context"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/andybalholm/brotli"
	"golang.org/x/net/html/charset"
)

// Error is a failed fetch: transport error (DNS, connect, timeout, TLS) or
// HTTP status >= 400. Status is 0 for transport errors.
type Error struct {
	URL    string
	Status int
	Err    error
}

func (e *Error) Error() string {
	if e.Status > 0 {
		return fmt.Sprintf("HTTP error %d for %s", e.Status, e.URL)
	}
	return fmt.Sprintf("Network error for %s: %v", e.URL, e.Err)
}

func (e *Error) Unwrap() error { return e.Err }

// Response is the decoded outcome of one Get.
type Response struct {
	Status int
	Header http.Header
	// Body is the response body decoded to UTF-8 according to the
	// Content-Type charset (default utf-8, undecodable bytes replaced).
	// Empty on 304.
	Body string
}

// NotModified reports whether the server answered 304.
func (r *Response) NotModified() bool { return r.Status == http.StatusNotModified }

// Get issues one GET with the given extra headers. 304 is a success path:
// the caller receives the status and headers with an empty body. Statuses
// >= 400 and all transport errors come back as *Error.
//
// The per-host limiter is consulted before the request goes out.
func Get(ctx context.Context, client *http.Client, url string, headers map[string]string, timeout time.Duration) (*Response, error) {
	if client == nil {
		client = WithTimeout(timeout)
	}

	if err := HostLimiter.Wait(ctx, url); err != nil {
		return nil, &Error{URL: url, Err: err}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, &Error{URL: url, Err: err}
	}
	req.Header.Set("Accept-Encoding", "gzip, br")
	for k, v := range headers {
		req.Header.Set(k, v)
	}

	resp, err := client.Do(req)
	if err != nil {
		return nil, &Error{URL: url, Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotModified {
		return &Response{Status: resp.StatusCode, Header: resp.Header}, nil
	}
	if resp.StatusCode >= 400 {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil, &Error{URL: url, Status: resp.StatusCode}
	}

	body, err := decodeBody(resp)
	if err != nil {
		return nil, &Error{URL: url, Err: fmt.Errorf("read body: %w", err)}
	}
	return &Response{Status: resp.StatusCode, Header: resp.Header, Body: body}, nil
}

// decodeBody undoes Content-Encoding, then converts the bytes to UTF-8 using
// the Content-Type charset (utf-8 when absent). Decoding is lenient:
// undecodable bytes become U+FFFD instead of failing the fetch.
func decodeBody(resp *http.Response) (string, error) {
	var r io.Reader = resp.Body
	switch resp.Header.Get("Content-Encoding") {
	case "gzip":
		gz, err := gzip.NewReader(r)
		if err != nil {
			return "", err
		}
		defer gz.Close()
		r = gz
	case "br":
		r = brotli.NewReader(r)
	}

	contentType := resp.Header.Get("Content-Type")
	decoded, err := charset.NewReader(r, contentType)
	if err != nil {
		// Unknown charset label: fall back to reading raw bytes.
		decoded = r
	}
	raw, err := io.ReadAll(decoded)
	if err != nil {
		return "", err
	}
	return string(raw), nil
}
