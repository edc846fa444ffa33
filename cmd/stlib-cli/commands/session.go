package commands

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"os"
	"stlib/lib/webclient"
	"strings"

	"github.com/spf13/cobra"
)

// newSession creates the session of `kind` at the --session index and
// seeds its transport with the configured cookies.
func newSession[T any](kind webclient.Kind[T]) (T, error) {
	client, err := webclient.NewSession(registry, kind, *sessionIdx)
	if err != nil {
		return client, err
	}
	if len(config.Cookies) == 0 {
		return client, nil
	}

	transport, err := registry.Transport(*sessionIdx)
	if err != nil {
		return client, err
	}
	u, err := url.Parse(config.CookieUrl)
	if err != nil {
		return client, fmt.Errorf("invalid cookie_url: %w", err)
	}
	cookies := make([]*http.Cookie, 0, len(config.Cookies))
	for name, value := range config.Cookies {
		cookies = append(cookies, &http.Cookie{Name: name, Value: value, Path: "/"})
	}
	transport.SetCookies(u, cookies)
	return client, nil
}

// parsePairs turns `key=value` arguments into url values.
func parsePairs(pairs []string) (url.Values, error) {
	values := url.Values{}
	for _, pair := range pairs {
		key, value, ok := strings.Cut(pair, "=")
		if !ok || key == "" {
			return nil, fmt.Errorf("expected key=value, got %q", pair)
		}
		values.Add(key, value)
	}
	return values, nil
}

// addRequestFlags registers the flags shared by every command that fetches
// a url and returns a function building the request options from them.
func addRequestFlags(cmd *cobra.Command) func() (webclient.RequestOptions, error) {
	params := cmd.Flags().StringArrayP("param", "p", nil, "A query parameter as key=value, can be repeated.")
	data := cmd.Flags().StringArrayP("data", "d", nil, "A form field as key=value, makes the request a POST.")
	headers := cmd.Flags().StringArrayP("header", "H", nil, "A header as name=value, can be repeated.")

	return func() (webclient.RequestOptions, error) {
		opts := webclient.RequestOptions{DisableAutoRecover: *noRecover}

		var err error
		opts.Params, err = parsePairs(*params)
		if err != nil {
			return opts, err
		}
		form, err := parsePairs(*data)
		if err != nil {
			return opts, err
		}
		opts.Data = firstValues(form)
		header, err := parsePairs(*headers)
		if err != nil {
			return opts, err
		}
		opts.Header = firstValues(header)
		return opts, nil
	}
}

func firstValues(values url.Values) map[string]string {
	if len(values) == 0 {
		return nil
	}
	out := make(map[string]string, len(values))
	for key := range values {
		out[key] = values.Get(key)
	}
	return out
}

func printJSON(value any) error {
	encoder := json.NewEncoder(os.Stdout)
	encoder.SetIndent("", "  ")
	return encoder.Encode(value)
}
