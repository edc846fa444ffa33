package webclient

import (
	"fmt"
	"net/http"
	"net/http/cookiejar"
	"net/url"
	"stlib/lib/telemetry"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	cloudflarebp "github.com/DaRealFreak/cloudflare-bp-go"
	"github.com/go-resty/resty/v2"
	"golang.org/x/net/publicsuffix"
	"golang.org/x/time/rate"
)

const (
	DefaultUserAgent        = "stlib/1.0 (multi-session web client)"
	DefaultTimeout          = time.Second * 30
	DefaultRetryDelay       = time.Second * 5
	DefaultMaxServerRetries = 3
)

const (
	report_transport_close = "transport.close"
)

type TransportOptions struct {
	// DisableRaiseOnError makes 4xx and 5xx responses come back as a
	// Response instead of a StatusError.
	DisableRaiseOnError bool
	// Header is added to every request, a "User-Agent" in it replaces
	// DefaultUserAgent.
	Header map[string]string
	// BaseUrl is prefixed to relative request urls.
	BaseUrl string
	Timeout time.Duration

	// RetryDelay is the pause between two attempts of the same request.
	RetryDelay time.Duration
	// MaxServerRetries bounds the retries of 5xx responses, a negative
	// value disables them.
	MaxServerRetries int

	// RateLimit is the max number of requests per second, zero disables it.
	RateLimit rate.Limit
	RateBurst int

	// RedirectDomain restricts the redirects that are followed to a hostname.
	RedirectDomain string
	// CloudflareBypass wraps the round tripper with browser-like TLS and headers.
	CloudflareBypass bool

	// MessageOutput receives a dump of every exchange when set.
	MessageOutput telemetry.MessageOutput
}

func (o TransportOptions) withDefaults() TransportOptions {
	if o.Timeout == 0 {
		o.Timeout = DefaultTimeout
	}
	if o.RetryDelay == 0 {
		o.RetryDelay = DefaultRetryDelay
	}
	if o.MaxServerRetries == 0 {
		o.MaxServerRetries = DefaultMaxServerRetries
	}
	if o.MaxServerRetries < 0 {
		o.MaxServerRetries = 0
	}
	if o.RateLimit > 0 && o.RateBurst <= 0 {
		o.RateBurst = 1
	}
	return o
}

func hasHeader(header map[string]string, name string) bool {
	for k := range header {
		if strings.EqualFold(k, name) {
			return true
		}
	}
	return false
}

// Transport is the long-lived http client bound to one session index. It is
// safe for concurrent requests. Transports are created and closed by a Registry.
type Transport struct {
	index int
	http  *resty.Client
	jar   http.CookieJar
	tel   telemetry.API

	raiseOnError     bool
	retryDelay       time.Duration
	maxServerRetries int

	closeOnce sync.Once
	closed    atomic.Bool
}

func newTransport(index int, opts TransportOptions, tel telemetry.API) (*Transport, error) {
	opts = opts.withDefaults()

	jar, err := cookiejar.New(&cookiejar.Options{PublicSuffixList: publicsuffix.List})
	if err != nil {
		return nil, err
	}

	client := resty.New()
	client.SetCookieJar(jar)
	client.SetTimeout(opts.Timeout)
	if opts.BaseUrl != "" {
		_, err := url.Parse(opts.BaseUrl)
		if err != nil {
			return nil, fmt.Errorf("webclient: invalid base url: %w", err)
		}
		client.SetBaseURL(opts.BaseUrl)
	}
	if opts.CloudflareBypass {
		client.GetClient().Transport = cloudflarebp.AddCloudFlareByPass(client.GetClient().Transport)
	}
	if opts.RedirectDomain != "" {
		client.SetRedirectPolicy(resty.DomainCheckRedirectPolicy(opts.RedirectDomain))
	}

	if !hasHeader(opts.Header, "user-agent") {
		client.SetHeader("User-Agent", DefaultUserAgent)
	}
	client.SetHeaders(opts.Header)

	tel = telemetry.NewScopedAPI(fmt.Sprintf("transport[%d]", index), tel)
	telemetry.InstrumentResty(client, "stlib/webclient/http", tel, opts.MessageOutput)

	// registered after the instrumentation so a wait that fails is traced
	if opts.RateLimit > 0 {
		rateLimiter := rate.NewLimiter(opts.RateLimit, opts.RateBurst)
		client.OnBeforeRequest(func(_ *resty.Client, req *resty.Request) error {
			return rateLimiter.Wait(req.Context())
		})
	}

	return &Transport{
		index:            index,
		http:             client,
		jar:              jar,
		tel:              tel,
		raiseOnError:     !opts.DisableRaiseOnError,
		retryDelay:       opts.RetryDelay,
		maxServerRetries: opts.MaxServerRetries,
	}, nil
}

func (t *Transport) Index() int {
	return t.index
}

// Http exposes the underlying resty client, for requests the engine does not cover.
func (t *Transport) Http() *resty.Client {
	return t.http
}

// RaiseOnError reports whether 4xx and 5xx responses are turned into errors.
func (t *Transport) RaiseOnError() bool {
	return t.raiseOnError
}

// SetCookies stores cookies in the in-memory jar as if `u` had set them.
func (t *Transport) SetCookies(u *url.URL, cookies []*http.Cookie) {
	t.jar.SetCookies(u, cookies)
}

// Cookies returns the cookies the jar would send to `u`.
func (t *Transport) Cookies(u *url.URL) []*http.Cookie {
	return t.jar.Cookies(u)
}

func (t *Transport) Closed() bool {
	return t.closed.Load()
}

// Close releases the idle connections of the transport, it only has an
// effect the first time it is called.
func (t *Transport) Close() {
	t.closeOnce.Do(func() {
		t.closed.Store(true)
		t.http.GetClient().CloseIdleConnections()
		t.tel.ReportDebug(report_transport_close)
	})
}
