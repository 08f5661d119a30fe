package fetch

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// newTestClient returns a client whose backoff sleeps are recorded
// instead of waited out.
func newTestClient(t *testing.T) (*Client, *[]time.Duration) {
	t.Helper()
	c, err := NewClient("", "")
	require.NoError(t, err)

	var slept []time.Duration
	c.sleep = func(ctx context.Context, d time.Duration) error {
		slept = append(slept, d)
		return ctx.Err()
	}
	return c, &slept
}

func TestFetchDocumentHeaders(t *testing.T) {
	var got http.Header
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got = r.Header.Clone()
		w.Write([]byte("<html></html>"))
	}))
	defer srv.Close()

	c, _ := newTestClient(t)
	_, _, err := c.FetchDocument(context.Background(), srv.URL)
	require.NoError(t, err)

	assert.Contains(t, got.Get("User-Agent"), "Mozilla/5.0 (Windows NT 10.0; Win64; x64)")
	assert.Equal(t, acceptHeader, got.Get("Accept"))
	assert.Equal(t, acceptLanguageHeader, got.Get("Accept-Language"))
}

func TestRetryPolicy(t *testing.T) {
	t.Run("429 retried with doubling backoff", func(t *testing.T) {
		var hits atomic.Int32
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			hits.Add(1)
			w.WriteHeader(http.StatusTooManyRequests)
		}))
		defer srv.Close()

		c, slept := newTestClient(t)
		_, _, err := c.FetchDocument(context.Background(), srv.URL)

		var statusErr *StatusError
		require.ErrorAs(t, err, &statusErr)
		assert.Equal(t, http.StatusTooManyRequests, statusErr.Code)
		assert.EqualValues(t, 3, hits.Load())
		assert.Equal(t, []time.Duration{1 * time.Second, 2 * time.Second}, *slept)
	})

	t.Run("retry-after extends the 429 delay", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Retry-After", "30")
			w.WriteHeader(http.StatusTooManyRequests)
		}))
		defer srv.Close()

		c, slept := newTestClient(t)
		_, _, err := c.FetchDocument(context.Background(), srv.URL)
		require.Error(t, err)

		require.Len(t, *slept, 2)
		for _, d := range *slept {
			assert.Greater(t, d, 10*time.Second, "Retry-After should override the base delay")
		}
	})

	t.Run("5xx retried with flat delay", func(t *testing.T) {
		var hits atomic.Int32
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			hits.Add(1)
			w.WriteHeader(http.StatusBadGateway)
		}))
		defer srv.Close()

		c, slept := newTestClient(t)
		_, _, err := c.FetchDocument(context.Background(), srv.URL)
		require.Error(t, err)
		assert.EqualValues(t, 3, hits.Load())
		assert.Equal(t, []time.Duration{transientDelay, transientDelay}, *slept)
	})

	t.Run("4xx fails immediately", func(t *testing.T) {
		var hits atomic.Int32
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			hits.Add(1)
			w.WriteHeader(http.StatusNotFound)
		}))
		defer srv.Close()

		c, slept := newTestClient(t)
		_, _, err := c.FetchDocument(context.Background(), srv.URL)

		var statusErr *StatusError
		require.ErrorAs(t, err, &statusErr)
		assert.Equal(t, http.StatusNotFound, statusErr.Code)
		assert.EqualValues(t, 1, hits.Load())
		assert.Empty(t, *slept)
	})

	t.Run("document fetch gets all attempts", func(t *testing.T) {
		var hits atomic.Int32
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if hits.Add(1) < 3 {
				w.WriteHeader(http.StatusServiceUnavailable)
				return
			}
			w.Write([]byte("<html>late but fine</html>"))
		}))
		defer srv.Close()

		c, slept := newTestClient(t)
		body, _, err := c.FetchDocument(context.Background(), srv.URL)
		require.NoError(t, err)
		assert.Contains(t, string(body), "late but fine")
		assert.EqualValues(t, 3, hits.Load())
		assert.Equal(t, []time.Duration{transientDelay, transientDelay}, *slept)
	})

	t.Run("recovers on a later attempt", func(t *testing.T) {
		var hits atomic.Int32
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if hits.Add(1) < 3 {
				w.WriteHeader(http.StatusServiceUnavailable)
				return
			}
			w.Write([]byte("ok"))
		}))
		defer srv.Close()

		c, _ := newTestClient(t)
		stream, err := c.FetchStream(context.Background(), srv.URL)
		require.NoError(t, err)
		defer stream.Close()
		assert.Equal(t, 3, stream.Attempts)
	})

	t.Run("cancelled context stops retrying", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusBadGateway)
		}))
		defer srv.Close()

		c, err := NewClient("", "")
		require.NoError(t, err)
		ctx, cancel := context.WithCancel(context.Background())
		c.sleep = func(ctx context.Context, d time.Duration) error {
			cancel()
			return ctx.Err()
		}

		_, _, err = c.get(ctx, srv.URL)
		assert.True(t, errors.Is(err, context.Canceled))
	})
}

func TestStreamFilename(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Disposition", `attachment; filename="photo.jpg"`)
		w.Write([]byte("data"))
	}))
	defer srv.Close()

	c, _ := newTestClient(t)
	stream, err := c.FetchStream(context.Background(), srv.URL)
	require.NoError(t, err)
	defer stream.Close()

	assert.Equal(t, "photo.jpg", stream.Filename())
	assert.EqualValues(t, 4, stream.ContentLength)
}

func TestNewClientProxy(t *testing.T) {
	t.Run("bad proxy URL rejected", func(t *testing.T) {
		_, err := NewClient("://not-a-url", "")
		assert.Error(t, err)
	})

	t.Run("socks5 accepted", func(t *testing.T) {
		_, err := NewClient("socks5://127.0.0.1:1080", "")
		assert.NoError(t, err)
	})
}
