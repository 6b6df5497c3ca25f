package llm

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestClient(endpoint string, timeout time.Duration) *Client {
	return NewClient(Config{
		Endpoint:      endpoint,
		Model:         "test-model",
		APIKey:        "test-key",
		Timeout:       timeout,
		RatePerSecond: 1000, // don't throttle tests
		Burst:         1000,
	})
}

func TestGenerate_Success(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "Bearer test-key", r.Header.Get("Authorization"))
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
		w.Write([]byte(`{"choices":[{"message":{"role":"assistant","content":"the analysis text"}}]}`))
	}))
	defer srv.Close()

	c := newTestClient(srv.URL, 5*time.Second)
	text, err := c.Generate(context.Background(), "describe this product")
	require.NoError(t, err)
	assert.Equal(t, "the analysis text", text)
}

func TestGenerate_Non200IsExternalServiceError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
	}))
	defer srv.Close()

	c := newTestClient(srv.URL, 5*time.Second)
	_, err := c.Generate(context.Background(), "prompt")
	require.ErrorIs(t, err, ErrExternalService)
}

func TestGenerate_TimeoutIsExternalServiceError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(300 * time.Millisecond)
	}))
	defer srv.Close()

	c := newTestClient(srv.URL, 50*time.Millisecond)
	_, err := c.Generate(context.Background(), "prompt")
	require.ErrorIs(t, err, ErrExternalService)
}

func TestGenerate_EmptyChoices(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"choices":[]}`))
	}))
	defer srv.Close()

	c := newTestClient(srv.URL, 5*time.Second)
	_, err := c.Generate(context.Background(), "prompt")
	require.ErrorIs(t, err, ErrExternalService)
}

func TestGenerate_BreakerOpensAfterConsecutiveFailures(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	c := newTestClient(srv.URL, 5*time.Second)
	for i := 0; i < 5; i++ {
		_, err := c.Generate(context.Background(), "prompt")
		require.Error(t, err)
	}

	// The breaker is open now; the request never reaches the server.
	_, err := c.Generate(context.Background(), "prompt")
	require.ErrorIs(t, err, ErrExternalService)
	assert.Contains(t, err.Error(), "circuit open")
}
