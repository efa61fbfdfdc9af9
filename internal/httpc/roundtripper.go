package httpc

import (
	"bytes"
	"io"
	"net/http"
	"strings"
)

type roundTripper struct{ t Transport }

// AsRoundTripper exposes a Transport to libraries that want an *http.Client
// (golang.org/x/oauth2 token exchange). Set-Cookie headers pass through unchanged.
func AsRoundTripper(t Transport) http.RoundTripper { return roundTripper{t: t} }

func (rt roundTripper) RoundTrip(r *http.Request) (*http.Response, error) {
	req := NewRequest(r.Method, r.URL.Scheme+"://"+r.URL.Host+r.URL.EscapedPath())
	req.Query = r.URL.Query()
	req.Header = r.Header.Clone()
	if r.Body != nil {
		b, err := io.ReadAll(r.Body)
		_ = r.Body.Close()
		if err != nil {
			return nil, err
		}
		req.Body = b
	}
	resp, err := rt.t.Send(r.Context(), req)
	if err != nil {
		return nil, err
	}
	hdr := resp.Header
	if hdr == nil {
		hdr = http.Header{}
	}
	return &http.Response{
		Status:        http.StatusText(resp.StatusCode),
		StatusCode:    resp.StatusCode,
		Proto:         "HTTP/1.1",
		ProtoMajor:    1,
		ProtoMinor:    1,
		Header:        hdr,
		Body:          io.NopCloser(bytes.NewReader(resp.Body)),
		ContentLength: int64(len(resp.Body)),
		Request:       r,
	}, nil
}

// ContentTypeIs reports whether the response Content-Type has the given media type prefix.
func (r *Response) ContentTypeIs(prefix string) bool {
	if r == nil || r.Header == nil {
		return false
	}
	return strings.HasPrefix(strings.ToLower(r.Header.Get("Content-Type")), prefix)
}
