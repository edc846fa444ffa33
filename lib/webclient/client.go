package webclient

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"stlib/lib/htmlutil"
	"stlib/lib/scriptdata"
	"stlib/lib/telemetry"

	"github.com/PuerkitoBio/goquery"
)

const (
	report_client_request_json   = "client.request-json"
	report_client_request_html   = "client.request-html"
	report_client_request_script = "client.request-script"
)

// Client is the base every client kind is built on, it binds a session index
// to its transport and provides the request helpers. Instances only come
// from a Registry through a Kind.
type Client struct {
	index     int
	transport *Transport
	tel       telemetry.API
}

func (c *Client) Index() int {
	return c.index
}

func (c *Client) Transport() *Transport {
	return c.transport
}

// Telemetry returns the telemetry API of the registry the client belongs to.
func (c *Client) Telemetry() telemetry.API {
	return c.tel
}

// UpdateCookies adds cookies to the session as if `rawUrl` had set them.
func (c *Client) UpdateCookies(rawUrl string, cookies []*http.Cookie) error {
	u, err := url.Parse(rawUrl)
	if err != nil {
		return err
	}
	c.transport.SetCookies(u, cookies)
	return nil
}

// Cookies returns the session cookies that would be sent to `rawUrl`.
func (c *Client) Cookies(rawUrl string) ([]*http.Cookie, error) {
	u, err := url.Parse(rawUrl)
	if err != nil {
		return nil, err
	}
	return c.transport.Cookies(u), nil
}

func (c *Client) Request(ctx context.Context, rawUrl string, opts RequestOptions) (Response, error) {
	return Execute(ctx, c.transport, rawUrl, opts)
}

// RequestJSON requests `rawUrl` and decodes the body as a json object.
func (c *Client) RequestJSON(ctx context.Context, rawUrl string, opts RequestOptions) (map[string]any, error) {
	res, err := c.Request(ctx, rawUrl, opts)
	if err != nil {
		return nil, err
	}

	var decoded any
	err = json.Unmarshal(res.body, &decoded)
	if err != nil {
		c.tel.ReportBroken(report_client_request_json, fmt.Errorf("unmarshal: %w", err), rawUrl)
		return nil, fmt.Errorf("%w: %s: %w", ErrInvalidResponseShape, rawUrl, err)
	}
	object, ok := decoded.(map[string]any)
	if !ok {
		err = fmt.Errorf("%w: %s: expected a json object, got %T", ErrInvalidResponseShape, rawUrl, decoded)
		c.tel.ReportBroken(report_client_request_json, err)
		return nil, err
	}
	return object, nil
}

// RequestJSONAs requests `rawUrl` and decodes the json body into a T.
func RequestJSONAs[T any](ctx context.Context, c *Client, rawUrl string, opts RequestOptions) (T, error) {
	var out T

	res, err := c.Request(ctx, rawUrl, opts)
	if err != nil {
		return out, err
	}
	err = json.Unmarshal(res.body, &out)
	if err != nil {
		c.tel.ReportBroken(report_client_request_json, fmt.Errorf("unmarshal: %w", err), rawUrl)
		return out, fmt.Errorf("%w: %s: %w", ErrInvalidResponseShape, rawUrl, err)
	}
	return out, nil
}

// RequestHTML requests `rawUrl` and parses the body as an html document.
func (c *Client) RequestHTML(ctx context.Context, rawUrl string, opts RequestOptions) (*goquery.Document, error) {
	opts.RawBody = false
	res, err := c.Request(ctx, rawUrl, opts)
	if err != nil {
		return nil, err
	}
	doc, err := htmlutil.Parse(bytes.NewReader(res.body))
	if err != nil {
		c.tel.ReportBroken(report_client_request_html, fmt.Errorf("parse: %w", err), rawUrl)
		return nil, err
	}
	return doc, nil
}

func (c *Client) requestScript(ctx context.Context, rawUrl string, index int, opts RequestOptions) (string, error) {
	doc, err := c.RequestHTML(ctx, rawUrl, opts)
	if err != nil {
		return "", err
	}
	script, ok := htmlutil.Script(doc, index)
	if !ok {
		err = fmt.Errorf("%w: index %d of %s", ErrScriptNotFound, index, rawUrl)
		c.tel.ReportWarning(report_client_request_script, err)
		return "", err
	}
	return script, nil
}

// ScriptCall locates a function call inside a script of a page.
type ScriptCall struct {
	// Index is the zero-based index of the script among all the scripts of the page.
	Index int
	// Target is a substring of the line holding the call.
	Target string
	// Delimiter splits the script into lines, it defaults to scriptdata.DefaultCallDelimiter.
	Delimiter string
}

// RequestJSONFromScript requests an html page and extracts the `key:"value"`
// arguments of a call in one of its scripts.
func (c *Client) RequestJSONFromScript(ctx context.Context, rawUrl string, call ScriptCall, opts RequestOptions) (map[string]string, error) {
	script, err := c.requestScript(ctx, rawUrl, call.Index, opts)
	if err != nil {
		return nil, err
	}
	return scriptdata.FromCall(script, call.Target, call.Delimiter), nil
}

// ScriptVars locates the variable assignments inside a script of a page.
type ScriptVars struct {
	// Index is the zero-based index of the script among all the scripts of the page.
	Index int
	// Delimiter splits the script into statements, it defaults to scriptdata.DefaultAssignmentDelimiter.
	Delimiter string
}

// RequestVarsFromScript requests an html page and decodes the json values
// assigned to variables in one of its scripts.
func (c *Client) RequestVarsFromScript(ctx context.Context, rawUrl string, vars ScriptVars, opts RequestOptions) (map[string]any, error) {
	script, err := c.requestScript(ctx, rawUrl, vars.Index, opts)
	if err != nil {
		return nil, err
	}
	return scriptdata.Assignments(script, vars.Delimiter), nil
}
