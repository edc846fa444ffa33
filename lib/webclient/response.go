package webclient

import (
	"net/http"
	"net/url"
	"strings"
)

// Response is one completed http exchange. It is immutable, accessors that
// return reference types return copies.
type Response struct {
	status      int
	method      string
	url         string
	params      url.Values
	cookies     []*http.Cookie
	body        []byte
	raw         bool
	contentType string
	location    string
}

func (r Response) Status() int {
	return r.status
}

// Method is the http method that was inferred for the request.
func (r Response) Method() string {
	return r.method
}

// Url is the final url of the exchange, after redirects.
func (r Response) Url() string {
	return r.url
}

// Params returns the query params the request was sent with.
func (r Response) Params() url.Values {
	return cloneValues(r.params)
}

func cloneValues(values url.Values) url.Values {
	out := make(url.Values, len(values))
	for k, v := range values {
		out[k] = append([]string(nil), v...)
	}
	return out
}

// Cookies returns the cookies set by the response.
func (r Response) Cookies() []*http.Cookie {
	out := make([]*http.Cookie, len(r.cookies))
	for i, c := range r.cookies {
		copied := *c
		out[i] = &copied
	}
	return out
}

// Cookie looks up a cookie set by the response, names are compared case-insensitively.
func (r Response) Cookie(name string) (*http.Cookie, bool) {
	for _, c := range r.cookies {
		if strings.EqualFold(c.Name, name) {
			copied := *c
			return &copied, true
		}
	}
	return nil, false
}

// Raw reports whether the body holds the bytes as received instead of
// text decoded to utf-8.
func (r Response) Raw() bool {
	return r.raw
}

// Body returns a copy of the response body.
func (r Response) Body() []byte {
	return append([]byte(nil), r.body...)
}

func (r Response) Text() string {
	return string(r.body)
}

// ContentType is the media type of the response without parameters, ex. "text/html".
func (r Response) ContentType() string {
	return r.contentType
}

// Location is the redirect location that was inspected for the exchange,
// the first hop's if the request was redirected.
func (r Response) Location() string {
	return r.location
}
