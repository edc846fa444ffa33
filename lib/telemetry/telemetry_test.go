package telemetry

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/go-resty/resty/v2"
	"github.com/stretchr/testify/require"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
)

func TestScopedAPI(t *testing.T) {
	mem := &MemoryAPI{}
	scoped := NewScopedAPI("registry", NewScopedAPI("transport[1]", mem))

	scoped.ReportBroken("new-session", errors.New("boom"))
	scoped.ReportCount("close", 3)

	broken := mem.Reports("broken", "")
	require.Len(t, broken, 1)
	require.Equal(t, "transport[1]: registry: new-session", broken[0].Id)

	counts := mem.Reports("count", "close")
	require.Len(t, counts, 1)
	require.Equal(t, []any{int64(3)}, counts[0].Params)

	require.Empty(t, mem.Reports("warning", ""))
}

func TestOrDefault(t *testing.T) {
	require.Equal(t, SlogAPI{}, OrDefault(nil))

	mem := &MemoryAPI{}
	require.Same(t, mem, OrDefault(mem))
}

func TestInstrumentResty(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("X-Test", "yes")
		w.Write([]byte("hello"))
	}))
	defer server.Close()

	dir := filepath.Join(t.TempDir(), "messages")
	output, err := NewFilesystemOutput(dir)
	require.NoError(t, err)

	mem := &MemoryAPI{}
	client := resty.New()
	InstrumentResty(client, "test", mem, output)

	res, err := client.R().Get(server.URL + "/greeting")
	require.NoError(t, err)
	require.Equal(t, "hello", res.String())

	require.Len(t, mem.Reports("debug", report_resty_request), 1)
	require.Len(t, mem.Reports("debug", report_resty_response), 1)

	dump, err := os.ReadFile(filepath.Join(dir, "1.txt"))
	require.NoError(t, err)
	require.Contains(t, string(dump), "GET "+server.URL+"/greeting")
	require.Contains(t, string(dump), "X-Test: yes")
	require.Contains(t, string(dump), "hello")
}

func TestInstrumentRestyError(t *testing.T) {
	server := httptest.NewServer(http.NotFoundHandler())
	serverUrl := server.URL
	server.Close()

	mem := &MemoryAPI{}
	client := resty.New()
	InstrumentResty(client, "test", mem, nil)

	_, err := client.R().Get(serverUrl)
	require.Error(t, err)

	warnings := mem.Reports("warning", report_resty_response)
	require.Len(t, warnings, 1)
}

func TestFilesystemOutputClearsDirectory(t *testing.T) {
	dir := t.TempDir()
	stale := filepath.Join(dir, "stale.txt")
	require.NoError(t, os.WriteFile(stale, []byte("old"), 0600))

	output, err := NewFilesystemOutput(dir)
	require.NoError(t, err)
	require.NoFileExists(t, stale)

	output.Write("7", "contents")
	contents, err := os.ReadFile(filepath.Join(dir, "7.txt"))
	require.NoError(t, err)
	require.Equal(t, "contents", string(contents))
}

func TestFormatRequestBody(t *testing.T) {
	require.Equal(t, "<NO BODY AVAILABLE>", formatRequestBody(nil))

	get, err := http.NewRequest(http.MethodGet, "http://localhost/", nil)
	require.NoError(t, err)
	require.Equal(t, "<NO BODY AVAILABLE>", formatRequestBody(get))

	get.GetBody = func() (io.ReadCloser, error) {
		return nil, nil
	}
	require.Equal(t, "<NO BODY AVAILABLE>", formatRequestBody(get))
}

// a hook failing before the instrumentation ran must not end the caller's span.
func TestInstrumentRestyKeepsCallerSpan(t *testing.T) {
	server := httptest.NewServer(http.NotFoundHandler())
	defer server.Close()

	provider := sdktrace.NewTracerProvider()
	defer provider.Shutdown(context.Background())

	for _, limiterFirst := range []bool{true, false} {
		limited := errors.New("rate limited")
		mem := &MemoryAPI{}
		client := resty.New()
		if limiterFirst {
			client.OnBeforeRequest(func(*resty.Client, *resty.Request) error { return limited })
		}
		InstrumentResty(client, "test", mem, nil)
		if !limiterFirst {
			client.OnBeforeRequest(func(*resty.Client, *resty.Request) error { return limited })
		}

		ctx, parent := provider.Tracer("test").Start(context.Background(), "caller")
		_, err := client.R().SetContext(ctx).Get(server.URL)
		require.ErrorIs(t, err, limited)
		require.True(t, parent.IsRecording(), "caller span ended by the instrumentation")
		parent.End()

		require.Len(t, mem.Reports("warning", report_resty_response), 1)
	}
}
