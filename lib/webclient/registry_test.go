package webclient

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"stlib/lib/telemetry"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

type otherClient struct {
	*Client
}

var otherKind = NewKind("webclient_test.otherClient", func(base *Client) (*otherClient, error) {
	return &otherClient{Client: base}, nil
})

func newTestRegistry(t *testing.T) (*Registry, *telemetry.MemoryAPI) {
	tel := &telemetry.MemoryAPI{}
	r := NewRegistry(RegistryOptions{
		Telemetry: tel,
		TransportDefaults: TransportOptions{
			RetryDelay: time.Millisecond,
		},
	})
	t.Cleanup(r.Close)
	return r, tel
}

func TestNewSessionDuplicate(t *testing.T) {
	r, _ := newTestRegistry(t)

	_, err := NewSession(r, BaseKind, 0)
	require.NoError(t, err)

	_, err = NewSession(r, BaseKind, 0)
	require.ErrorIs(t, err, ErrDuplicateSession)

	_, err = NewSession(r, BaseKind, 1)
	require.NoError(t, err)
	require.Equal(t, 2, r.Len())
}

func TestMissingSession(t *testing.T) {
	r, _ := newTestRegistry(t)

	_, err := GetSession(r, BaseKind, 0)
	require.ErrorIs(t, err, ErrNoSuchSession)

	err = DestroySession(r, BaseKind, 0, false)
	require.ErrorIs(t, err, ErrNoSuchSession)

	err = DestroySession(r, BaseKind, 0, true)
	require.NoError(t, err)

	_, err = r.Transport(0)
	require.ErrorIs(t, err, ErrNoSuchSession)
}

func TestGetSession(t *testing.T) {
	r, _ := newTestRegistry(t)

	created, err := NewSession(r, BaseKind, 3)
	require.NoError(t, err)

	fetched, err := GetSession(r, BaseKind, 3)
	require.NoError(t, err)
	require.Same(t, created, fetched)
	require.Equal(t, 3, fetched.Index())

	_, err = GetSession(r, otherKind, 3)
	require.ErrorIs(t, err, ErrNoSuchSession)
}

func TestTransportSharedAcrossKinds(t *testing.T) {
	r, _ := newTestRegistry(t)

	base, err := NewSession(r, BaseKind, 0)
	require.NoError(t, err)
	other, err := NewSession(r, otherKind, 0)
	require.NoError(t, err)

	require.Same(t, base.Transport(), other.Transport())
	require.Equal(t, 1, r.Len())

	transport, err := r.Transport(0)
	require.NoError(t, err)
	require.Same(t, transport, base.Transport())
}

func TestNewTransportThenSession(t *testing.T) {
	r, _ := newTestRegistry(t)

	transport, err := r.NewTransport(1, TransportOptions{DisableRaiseOnError: true})
	require.NoError(t, err)
	require.False(t, transport.RaiseOnError())

	_, err = r.NewTransport(1, TransportOptions{})
	require.ErrorIs(t, err, ErrDuplicateSession)

	client, err := NewSession(r, BaseKind, 1)
	require.NoError(t, err)
	require.Same(t, transport, client.Transport())
}

func TestDestroySessionClosesTransport(t *testing.T) {
	r, tel := newTestRegistry(t)

	base, err := NewSession(r, BaseKind, 0)
	require.NoError(t, err)
	_, err = NewSession(r, otherKind, 0)
	require.NoError(t, err)

	err = DestroySession(r, BaseKind, 0, false)
	require.NoError(t, err)

	require.True(t, base.Transport().Closed())
	require.Equal(t, 0, r.Len())

	_, err = GetSession(r, otherKind, 0)
	require.ErrorIs(t, err, ErrNoSuchSession)
	require.Len(t, tel.Reports("warning", report_registry_destroy_session), 1)

	_, err = base.Request(context.Background(), "http://127.0.0.1:1", RequestOptions{})
	require.ErrorIs(t, err, ErrTransportClosed)

	// the index is free again.
	recreated, err := NewSession(r, BaseKind, 0)
	require.NoError(t, err)
	require.NotSame(t, base.Transport(), recreated.Transport())
}

func TestConcurrentNewSession(t *testing.T) {
	r, _ := newTestRegistry(t)

	const workers = 32
	var created, duplicates atomic.Int64
	var wg sync.WaitGroup
	start := make(chan struct{})

	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			<-start
			_, err := NewSession(r, BaseKind, 7)
			switch {
			case err == nil:
				created.Add(1)
			case errors.Is(err, ErrDuplicateSession):
				duplicates.Add(1)
			}
		}()
	}
	close(start)
	wg.Wait()

	require.Equal(t, int64(1), created.Load())
	require.Equal(t, int64(workers-1), duplicates.Load())
	require.Equal(t, 1, r.Len())
}

func TestFactoryErrorReleasesTransport(t *testing.T) {
	r, tel := newTestRegistry(t)

	failing := NewKind("webclient_test.failing", func(base *Client) (*Client, error) {
		return nil, errors.New("boom")
	})
	_, err := NewSession(r, failing, 0)
	require.EqualError(t, err, "boom")
	require.Equal(t, 0, r.Len())
	require.Len(t, tel.Reports("broken", report_registry_new_session), 1)

	// an existing transport is left alone.
	transport, err := r.NewTransport(1, TransportOptions{})
	require.NoError(t, err)
	_, err = NewSession(r, failing, 1)
	require.Error(t, err)
	require.False(t, transport.Closed())
	require.Equal(t, 1, r.Len())
}

func TestRegistryClose(t *testing.T) {
	r, _ := newTestRegistry(t)

	a, err := NewSession(r, BaseKind, 0)
	require.NoError(t, err)
	b, err := NewSession(r, otherKind, 1)
	require.NoError(t, err)

	r.Close()
	require.True(t, a.Transport().Closed())
	require.True(t, b.Transport().Closed())
	require.Equal(t, 0, r.Len())

	_, err = GetSession(r, BaseKind, 0)
	require.ErrorIs(t, err, ErrNoSuchSession)

	// closing twice is harmless.
	r.Close()
	a.Transport().Close()
}

func TestCloseOnDone(t *testing.T) {
	r, _ := newTestRegistry(t)

	client, err := NewSession(r, BaseKind, 0)
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	r.CloseOnDone(ctx)
	require.False(t, client.Transport().Closed())

	cancel()
	require.Eventually(t, client.Transport().Closed, time.Second, time.Millisecond)
}

func TestDefaultUserAgent(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(r.UserAgent()))
	}))
	defer server.Close()

	r, _ := newTestRegistry(t)

	client, err := NewSession(r, BaseKind, 0)
	require.NoError(t, err)
	res, err := client.Request(context.Background(), server.URL, RequestOptions{})
	require.NoError(t, err)
	require.Equal(t, DefaultUserAgent, res.Text())

	_, err = r.NewTransport(1, TransportOptions{
		Header: map[string]string{"user-agent": "custom/1.0"},
	})
	require.NoError(t, err)
	client, err = NewSession(r, BaseKind, 1)
	require.NoError(t, err)
	res, err = client.Request(context.Background(), server.URL, RequestOptions{})
	require.NoError(t, err)
	require.Equal(t, "custom/1.0", res.Text())
}
