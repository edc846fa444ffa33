package webclient

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"mime"
	"net"
	"net/http"
	"net/url"
	"stlib/internal/assert"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/go-resty/resty/v2"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/net/html/charset"
)

var tracer = otel.Tracer("stlib/webclient")

var retryCounter metric.Int64Counter

func init() {
	var err error
	retryCounter, err = otel.Meter("stlib/webclient").Int64Counter(
		"webclient.request.retries",
		metric.WithDescription("Number of request attempts that were retried."),
	)
	if err != nil {
		panic(err)
	}
}

const (
	report_engine_execute = "engine.execute"
)

// loginRedirectMarker is part of the location the service redirects to once
// the session is no longer authenticated.
const loginRedirectMarker = "login/home/?goto="

type RequestOptions struct {
	// Params are added to the query string.
	Params url.Values
	// Data is sent as an urlencoded form, a request with data is a POST,
	// any other request is a GET.
	Data map[string]string
	// Header is added to the headers of the transport for this request.
	Header map[string]string

	// DisableAutoRecover surfaces connection failures and server errors on
	// the first attempt instead of retrying them.
	DisableAutoRecover bool
	// RawBody keeps the body as received instead of decoding it to utf-8 text.
	RawBody bool

	// Configure is called on the request before every attempt.
	Configure func(req *resty.Request)
}

type outcome int

const (
	outcomeDone outcome = iota
	outcomeRetry
	outcomeFail
)

type execution struct {
	transport *Transport
	method    string
	url       string
	opts      RequestOptions

	serverRetries int
}

// Execute performs a request on `transport`, retrying it according to the
// transport's policy:
//
//   - connection failures are retried without bound, every RetryDelay.
//   - 5xx responses are retried up to MaxServerRetries times.
//   - 4xx responses and redirects to the login page are never retried.
//
// With DisableAutoRecover nothing is retried. Cancelling ctx stops the
// retries, the returned error then wraps ctx.Err().
func Execute(ctx context.Context, transport *Transport, rawUrl string, opts RequestOptions) (Response, error) {
	assert.NotNil(transport, "transport")

	method := http.MethodGet
	if len(opts.Data) > 0 {
		method = http.MethodPost
	}

	ctx, span := tracer.Start(ctx, "webclient:Execute", trace.WithAttributes(
		attribute.String("http.request.method", method),
		attribute.String("url.full", rawUrl),
		attribute.Int("webclient.session_index", transport.index),
	))
	defer span.End()

	e := execution{
		transport: transport,
		method:    method,
		url:       rawUrl,
		opts:      opts,
	}

	for attempt := 1; ; attempt++ {
		res, out, err := e.attempt(ctx)
		switch out {
		case outcomeDone:
			return res, nil
		case outcomeFail:
			span.RecordError(err)
			span.SetStatus(codes.Error, "request failed")
			return Response{}, err
		}

		span.AddEvent("retry", trace.WithAttributes(
			attribute.Int("attempt", attempt),
			attribute.String("reason", err.Error()),
		))
		retryCounter.Add(ctx, 1, metric.WithAttributes(
			attribute.Bool("connection_failure", errors.Is(err, ErrConnectionFailure)),
		))
		transport.tel.ReportWarning(
			report_engine_execute,
			fmt.Errorf("retrying in %s: %w", transport.retryDelay, err),
			attempt,
		)

		err = sleepContext(ctx, transport.retryDelay)
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, "request cancelled")
			return Response{}, fmt.Errorf("webclient: %s %s: %w", method, rawUrl, err)
		}
	}
}

func (e *execution) attempt(ctx context.Context) (Response, outcome, error) {
	if e.transport.Closed() {
		return Response{}, outcomeFail, fmt.Errorf("%w: index %d", ErrTransportClosed, e.transport.index)
	}

	req := e.transport.http.R().SetContext(ctx)
	if len(e.opts.Params) > 0 {
		req.SetQueryParamsFromValues(e.opts.Params)
	}
	if len(e.opts.Header) > 0 {
		req.SetHeaders(e.opts.Header)
	}
	if len(e.opts.Data) > 0 {
		req.SetFormData(e.opts.Data)
	}
	if e.opts.Configure != nil {
		e.opts.Configure(req)
	}

	res, err := req.Execute(e.method, e.url)

	// a refused redirect still comes back with the response that asked for it
	var location string
	if res != nil {
		location = redirectLocation(res.RawResponse)
	}
	if strings.Contains(location, loginRedirectMarker) {
		return Response{}, outcomeFail, fmt.Errorf("%w: %s %s redirected to %s", ErrNotLoggedIn, e.method, e.url, location)
	}
	if err != nil {
		return e.classifyFailure(ctx, err)
	}

	if e.transport.raiseOnError && res.StatusCode() >= 400 {
		statusErr := &StatusError{
			Method:     e.method,
			Url:        e.url,
			StatusCode: res.StatusCode(),
			Status:     res.Status(),
		}
		if statusErr.Client() {
			return Response{}, outcomeFail, statusErr
		}
		if !e.opts.DisableAutoRecover && e.serverRetries < e.transport.maxServerRetries {
			e.serverRetries++
			return Response{}, outcomeRetry, statusErr
		}
		return Response{}, outcomeFail, statusErr
	}

	response, err := e.materialize(res, location)
	if err != nil {
		return Response{}, outcomeFail, err
	}
	return response, outcomeDone, nil
}

func (e *execution) classifyFailure(ctx context.Context, err error) (Response, outcome, error) {
	if ctxErr := ctx.Err(); ctxErr != nil {
		return Response{}, outcomeFail, fmt.Errorf("webclient: %s %s: %w", e.method, e.url, ctxErr)
	}

	connErr := &ConnectionError{Method: e.method, Url: e.url, Err: err}
	if !isTransient(err) || e.opts.DisableAutoRecover {
		return Response{}, outcomeFail, connErr
	}
	return Response{}, outcomeRetry, connErr
}

// isTransient reports whether err is a failure of the network rather than of
// the request itself (a bad url, a refused redirect).
func isTransient(err error) bool {
	var opErr *net.OpError
	if errors.As(err, &opErr) {
		return true
	}
	var dnsErr *net.DNSError
	if errors.As(err, &dnsErr) {
		return true
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return true
	}
	return errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF)
}

// redirectLocation returns the Location header of the first redirect of the
// exchange, or the Location of the response itself if there was no redirect.
func redirectLocation(res *http.Response) string {
	if res == nil {
		return ""
	}
	first := res
	for req := res.Request; req != nil && req.Response != nil; req = req.Response.Request {
		first = req.Response
	}
	return first.Header.Get("Location")
}

func (e *execution) materialize(res *resty.Response, location string) (Response, error) {
	contentType := res.Header().Get("Content-Type")

	body := res.Body()
	if !e.opts.RawBody {
		decoded, err := io.ReadAll(textReader(body, contentType))
		if err != nil {
			return Response{}, fmt.Errorf("webclient: decode body of %s %s: %w", e.method, e.url, err)
		}
		body = decoded
	}

	finalUrl := e.url
	if res.RawResponse != nil && res.RawResponse.Request != nil {
		finalUrl = res.RawResponse.Request.URL.String()
	}

	return Response{
		status:      res.StatusCode(),
		method:      e.method,
		url:         finalUrl,
		params:      cloneValues(e.opts.Params),
		cookies:     res.Cookies(),
		body:        body,
		raw:         e.opts.RawBody,
		contentType: mediaType(contentType),
		location:    location,
	}, nil
}

// textReader decodes body to utf-8 according to the charset of the
// content type, or the one sniffed from the body. A body without a declared
// charset that is already valid utf-8 is kept as is.
func textReader(body []byte, contentType string) io.Reader {
	_, params, _ := mime.ParseMediaType(contentType)
	if params["charset"] == "" && utf8.Valid(body) {
		return bytes.NewReader(body)
	}
	reader, err := charset.NewReader(bytes.NewReader(body), contentType)
	if err != nil {
		return bytes.NewReader(body)
	}
	return reader
}

func mediaType(contentType string) string {
	if contentType == "" {
		return "application/octet-stream"
	}
	parsed, _, err := mime.ParseMediaType(contentType)
	if err != nil {
		return strings.TrimSpace(strings.Split(contentType, ";")[0])
	}
	return parsed
}

func sleepContext(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
