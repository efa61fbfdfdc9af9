package httpc

import (
	"context"
	"crypto/tls"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/loykin/zephyrrun/internal/common"
	"github.com/loykin/zephyrrun/internal/constants"
	"github.com/loykin/zephyrrun/internal/util"
)

// Request is a transport-neutral outbound call.
type Request struct {
	Method string
	URL    string
	Header http.Header
	Query  url.Values
	Body   []byte
}

// NewRequest returns a Request with initialized header and query maps.
func NewRequest(method, rawURL string) *Request {
	return &Request{Method: method, URL: rawURL, Header: http.Header{}, Query: url.Values{}}
}

// Response is what the core sees of a remote reply.
type Response struct {
	StatusCode int
	Header     http.Header
	Body       []byte
	Cookies    []*http.Cookie
}

// IsSuccess reports a 2xx status.
func (r *Response) IsSuccess() bool {
	return r != nil && r.StatusCode >= 200 && r.StatusCode < 300
}

// Transport sends a request and returns the raw response. Implementations must not follow
// redirects and must not keep their own cookie state: cookies are owned by the session.
type Transport interface {
	Send(ctx context.Context, req *Request) (*Response, error)
}

// TransportError marks connect, TLS and timeout failures that produced no response.
type TransportError struct {
	Method string
	URL    string
	Err    error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("transport: %s %s: %v", e.Method, e.URL, e.Err)
}

func (e *TransportError) Unwrap() error { return e.Err }

// Options configures the default resty-backed transport.
type Options struct {
	Insecure      bool
	MinTLSVersion string
	MaxTLSVersion string
	Timeout       time.Duration
	UserAgent     string
	Logger        *common.Logger
}

// Httpc builds resty clients from TLS settings.
type Httpc struct {
	TlsConfig *tls.Config
	Timeout   time.Duration
	UserAgent string
}

// New returns a resty.Client configured according to the receiver's settings.
// Defaults: MinVersion TLS1.2 when MinVersion is zero. Redirects are surfaced rather than
// followed and the built-in cookie jar is disabled.
func (h *Httpc) New() *resty.Client {
	c := resty.New()
	c.SetCookieJar(nil)
	c.SetRedirectPolicy(resty.RedirectPolicyFunc(func(*http.Request, []*http.Request) error {
		return http.ErrUseLastResponse
	}))
	c.SetHeader("User-Agent", util.TrimWithDefault(h.UserAgent, constants.DefaultUserAgent))
	timeout := h.Timeout
	if timeout <= 0 {
		timeout = constants.DefaultTimeout
	}
	c.SetTimeout(timeout)
	if cfg := h.TlsConfig; cfg != nil {
		if cfg.MinVersion == 0 {
			cfg.MinVersion = tls.VersionTLS12
		}
		c.SetTLSClientConfig(cfg)
	}
	return c
}

// ParseTLSVersion converts "1.2", "12", "tls1.2" style strings into crypto/tls constants.
// Returns 0 if the version string is not recognized.
func ParseTLSVersion(version string) uint16 {
	switch util.TrimAndLower(version) {
	case "1.0", "10", "tls1.0", "tls10":
		return tls.VersionTLS10
	case "1.1", "11", "tls1.1", "tls11":
		return tls.VersionTLS11
	case "1.2", "12", "tls1.2", "tls12":
		return tls.VersionTLS12
	case "1.3", "13", "tls1.3", "tls13":
		return tls.VersionTLS13
	default:
		return 0
	}
}

// RestyTransport is the default Transport.
type RestyTransport struct {
	client *resty.Client
}

// NewTransport builds a RestyTransport. Disabling certificate verification is reported once
// through the supplied logger.
func NewTransport(opts Options) (*RestyTransport, error) {
	var cfg *tls.Config
	if opts.Insecure || opts.MinTLSVersion != "" || opts.MaxTLSVersion != "" {
		cfg = &tls.Config{InsecureSkipVerify: opts.Insecure} // #nosec G402 -- opt-in via client.insecure
		if v, ok := util.TrimEmptyCheck(opts.MinTLSVersion); ok {
			if cfg.MinVersion = ParseTLSVersion(v); cfg.MinVersion == 0 {
				return nil, fmt.Errorf("httpc: unknown min_tls_version %q", v)
			}
		}
		if v, ok := util.TrimEmptyCheck(opts.MaxTLSVersion); ok {
			if cfg.MaxVersion = ParseTLSVersion(v); cfg.MaxVersion == 0 {
				return nil, fmt.Errorf("httpc: unknown max_tls_version %q", v)
			}
		}
		if cfg.MinVersion != 0 && cfg.MaxVersion != 0 && cfg.MinVersion > cfg.MaxVersion {
			return nil, fmt.Errorf("httpc: min_tls_version %s is above max_tls_version %s", opts.MinTLSVersion, opts.MaxTLSVersion)
		}
	}
	if opts.Insecure {
		common.OrDefault(opts.Logger).WithComponent("httpc").Warn("TLS certificate verification is disabled")
	}
	h := &Httpc{TlsConfig: cfg, Timeout: opts.Timeout, UserAgent: opts.UserAgent}
	return &RestyTransport{client: h.New()}, nil
}

// Send issues the request once. A nil error always comes with a non-nil Response.
func (t *RestyTransport) Send(ctx context.Context, req *Request) (*Response, error) {
	if ctx == nil {
		ctx = context.Background()
	}
	r := t.client.R().SetContext(ctx)
	for k, vs := range req.Header {
		for _, v := range vs {
			r.Header.Add(k, v)
		}
	}
	if len(req.Query) > 0 {
		r.SetQueryParamsFromValues(req.Query)
	}
	if req.Body != nil {
		r.SetBody(req.Body)
	}
	resp, err := r.Execute(req.Method, req.URL)
	if err != nil {
		return nil, &TransportError{Method: req.Method, URL: req.URL, Err: err}
	}
	return &Response{
		StatusCode: resp.StatusCode(),
		Header:     resp.Header(),
		Body:       resp.Body(),
		Cookies:    resp.Cookies(),
	}, nil
}
