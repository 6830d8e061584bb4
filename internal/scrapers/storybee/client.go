package storybee

import (
	"bufio"
	"bytes"
	"compress/flate"
	"compress/gzip"
	"compress/zlib"
	"context"
	"fmt"
	"io"
	"math"
	"net/http"
	"net/http/cookiejar"
	"storybee-crawler/internal/assert"
	"storybee-crawler/internal/telemetry"
	"strings"
	"sync"
	"time"

	cloudflarebp "github.com/DaRealFreak/cloudflare-bp-go"
	"github.com/avast/retry-go/v4"
	"github.com/go-resty/resty/v2"
	"golang.org/x/time/rate"
)

const (
	report_client_fetch = "client.fetch"
	report_client_open  = "client.open"
	report_client_retry = "client.retry"
)

const DefaultUserAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/123.0.0.0 Safari/537.36"

type ClientOptions struct {
	UserAgent string
	Referer   string
	Timeout   time.Duration
	// MaxRedirects is the number of redirects a single request may follow.
	MaxRedirects int
	// RetryAttempts is the total number of tries for a request, including the first.
	RetryAttempts uint
	RetryDelay    time.Duration
	// RequestsPerSecond limits outgoing requests, 0 disables the limit.
	RequestsPerSecond float64
	CloudflareBypass  bool
	Cookies           []*http.Cookie
}

func DefaultClientOptions() ClientOptions {
	return ClientOptions{
		UserAgent:     DefaultUserAgent,
		Referer:       DefaultBaseUrl,
		Timeout:       time.Minute,
		MaxRedirects:  10,
		RetryAttempts: 3,
		RetryDelay:    time.Second,
	}
}

// DefaultHeaders is the header profile sent with every request.
func DefaultHeaders(userAgent, referer string) map[string]string {
	return map[string]string{
		"Accept":                    "text/html,application/xhtml+xml,application/xml;q=0.9,image/avif,image/webp,*/*;q=0.8",
		"Accept-Encoding":           "gzip, deflate",
		"User-Agent":                userAgent,
		"Referer":                   referer,
		"Upgrade-Insecure-Requests": "1",
	}
}

type Request struct {
	// Method defaults to GET.
	Method string
	Url    string
	Body   []byte
	// NoRedirect returns 3xx responses as they are instead of following them.
	NoRedirect bool
}

// Client is the http session shared by every component of a run.
type Client struct {
	http *resty.Client
	opts ClientOptions
	tel  telemetry.API
}

func NewClient(opts ClientOptions, tel telemetry.API) (*Client, error) {
	assert.NotNil(tel)
	assert.NotEmptyStr(opts.UserAgent)

	tel = telemetry.NewScopedAPI("storybee_scraper", tel)

	if opts.RetryAttempts == 0 {
		opts.RetryAttempts = 1
	}
	if opts.MaxRedirects < 0 {
		opts.MaxRedirects = 0
	}

	httpClient := resty.New()
	if opts.Timeout > 0 {
		httpClient.SetTimeout(opts.Timeout)
	}
	jar, err := cookiejar.New(nil)
	if err != nil {
		return nil, err
	}
	httpClient.SetCookieJar(jar)
	httpClient.SetCookies(opts.Cookies)
	if opts.CloudflareBypass {
		httpClient.GetClient().Transport = cloudflarebp.AddCloudFlareByPass(httpClient.GetClient().Transport)
	}
	httpClient.SetHeaders(DefaultHeaders(opts.UserAgent, opts.Referer))

	// redirects are followed by hand in do() so that every hop is counted
	httpClient.SetRedirectPolicy(resty.RedirectPolicyFunc(func(*http.Request, []*http.Request) error {
		return http.ErrUseLastResponse
	}))

	if opts.RequestsPerSecond > 0 {
		burst := int(math.Ceil(opts.RequestsPerSecond))
		rateLimiter := rate.NewLimiter(rate.Limit(opts.RequestsPerSecond), burst)
		httpClient.OnBeforeRequest(func(_ *resty.Client, req *resty.Request) error {
			return rateLimiter.Wait(req.Context())
		})
	}

	telemetry.InstrumentResty(httpClient, tel, "storybee-crawler/storybee")

	return &Client{
		http: httpClient,
		opts: opts,
		tel:  tel,
	}, nil
}

func isRedirect(status int) bool {
	switch status {
	case http.StatusMovedPermanently,
		http.StatusFound,
		http.StatusSeeOther,
		http.StatusTemporaryRedirect,
		http.StatusPermanentRedirect:
		return true
	}
	return false
}

func (c *Client) release(res *resty.Response, stream bool) {
	if !stream {
		return
	}
	res.RawBody().Close()
	telemetry.FinishResponse(c.tel, res)
}

// do performs a single attempt of the request, following at most MaxRedirects redirects.
func (c *Client) do(ctx context.Context, req Request, stream bool) (*resty.Response, error) {
	method := req.Method
	if method == "" {
		method = http.MethodGet
	}
	target := req.Url
	body := req.Body

	for hops := 0; ; hops++ {
		r := c.http.R().
			SetContext(ctx).
			SetDoNotParseResponse(stream)
		if body != nil {
			r.SetBody(body)
		}

		res, err := r.Execute(method, target)
		if err != nil {
			return nil, &FetchError{Method: method, Url: target, Err: err}
		}

		status := res.StatusCode()
		if req.NoRedirect || !isRedirect(status) {
			if status >= 400 {
				c.release(res, stream)
				return nil, &FetchError{Method: method, Url: target, StatusCode: status}
			}
			return res, nil
		}

		location, err := res.RawResponse.Location()
		c.release(res, stream)
		if err != nil {
			return nil, &FetchError{
				Method:     method,
				Url:        target,
				StatusCode: status,
				Err:        fmt.Errorf("redirect target: %w", err),
			}
		}
		if hops >= c.opts.MaxRedirects {
			return nil, &FetchError{
				Method:     method,
				Url:        req.Url,
				StatusCode: status,
				Err:        ErrRedirectLoop,
			}
		}

		c.tel.ReportDebug("follow redirect", status, target, location.String())
		target = location.String()
		body = nil
	}
}

func (c *Client) retryOptions(ctx context.Context, reportId string, req Request) []retry.Option {
	return []retry.Option{
		retry.Context(ctx),
		retry.Attempts(c.opts.RetryAttempts),
		retry.Delay(c.opts.RetryDelay),
		retry.DelayType(retry.BackOffDelay),
		retry.RetryIf(isTransient),
		retry.LastErrorOnly(true),
		retry.OnRetry(func(n uint, err error) {
			c.tel.ReportWarning(
				report_client_retry,
				fmt.Errorf("%s attempt %d failed: %w", reportId, n+1, err),
				req.Url,
			)
		}),
	}
}

// Fetch performs the request and returns the decoded response body.
func (c *Client) Fetch(ctx context.Context, req Request) ([]byte, error) {
	body, err := retry.DoWithData(
		func() ([]byte, error) {
			res, err := c.do(ctx, req, false)
			if err != nil {
				return nil, err
			}
			body, err := decodeBody(res.Header().Get("Content-Encoding"), res.Body())
			if err != nil {
				return nil, &FetchError{
					Method:     res.Request.Method,
					Url:        res.Request.URL,
					StatusCode: res.StatusCode(),
					Err:        fmt.Errorf("decode body: %w", err),
				}
			}
			return body, nil
		},
		c.retryOptions(ctx, report_client_fetch, req)...,
	)
	if err != nil {
		c.tel.ReportWarning(report_client_fetch, err, req.Url)
		return nil, err
	}
	return body, nil
}

func (c *Client) Get(ctx context.Context, url string) ([]byte, error) {
	return c.Fetch(ctx, Request{Method: http.MethodGet, Url: url})
}

// Open performs a GET request and returns the response body without buffering it. Only
// establishing the response is retried, a failure while reading the body is returned by Read.
func (c *Client) Open(ctx context.Context, url string) (io.ReadCloser, error) {
	req := Request{Method: http.MethodGet, Url: url}

	body, err := retry.DoWithData(
		func() (io.ReadCloser, error) {
			res, err := c.do(ctx, req, true)
			if err != nil {
				return nil, err
			}
			reader, err := decodeStream(res.Header().Get("Content-Encoding"), res.RawBody())
			if err != nil {
				c.release(res, true)
				return nil, &FetchError{
					Method:     res.Request.Method,
					Url:        res.Request.URL,
					StatusCode: res.StatusCode(),
					Err:        fmt.Errorf("decode body: %w", err),
				}
			}
			return &streamBody{
				Reader: reader,
				finish: func() { c.release(res, true) },
			}, nil
		},
		c.retryOptions(ctx, report_client_open, req)...,
	)
	if err != nil {
		c.tel.ReportWarning(report_client_open, err, url)
		return nil, err
	}
	return body, nil
}

type streamBody struct {
	io.Reader
	once   sync.Once
	finish func()
}

func (b *streamBody) Close() error {
	b.once.Do(b.finish)
	return nil
}

func isEncoding(header, name string) bool {
	return strings.EqualFold(strings.TrimSpace(header), name)
}

// newDeflateReader accepts both zlib wrapped and raw deflate streams, servers send either
// under the "deflate" content encoding.
func newDeflateReader(r io.Reader) (io.Reader, error) {
	buffered := bufio.NewReader(r)
	header, err := buffered.Peek(2)
	if err != nil && err != io.EOF {
		return nil, err
	}
	if len(header) == 2 && header[0]&0x0f == 8 && (uint16(header[0])<<8|uint16(header[1]))%31 == 0 {
		return zlib.NewReader(buffered)
	}
	return flate.NewReader(buffered), nil
}

// decodeBody decodes a buffered body. Resty already removes gzip encoding from buffered
// responses, leaving deflate.
func decodeBody(encoding string, body []byte) ([]byte, error) {
	if !isEncoding(encoding, "deflate") {
		return body, nil
	}
	reader, err := newDeflateReader(bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	return io.ReadAll(reader)
}

func decodeStream(encoding string, body io.Reader) (io.Reader, error) {
	switch {
	case isEncoding(encoding, "gzip"):
		return gzip.NewReader(body)
	case isEncoding(encoding, "deflate"):
		return newDeflateReader(body)
	}
	return body, nil
}
