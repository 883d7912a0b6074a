package firecrawl

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fairyhunter13/ai-interview-coach/internal/domain"
)

func TestSearch_ParsesResults(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/search", r.URL.Path)
		assert.Equal(t, "Bearer fc-key", r.Header.Get("Authorization"))
		var body map[string]any
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, "go context cancellation", body["query"])
		assert.Equal(t, float64(5), body["limit"])
		_, _ = w.Write([]byte(`{"data":[
			{"title":"Context","url":"https://go.dev/blog/context","description":"cancellation"},
			{"title":"no url skipped","url":"","description":"x"}
		]}`))
	}))
	defer srv.Close()

	c := New(srv.URL, "fc-key")
	res, err := c.Search(context.Background(), "go context cancellation", 5)
	require.NoError(t, err)
	require.Len(t, res, 1)
	assert.Equal(t, "https://go.dev/blog/context", res[0].URL)
	assert.Equal(t, "cancellation", res[0].Content)
}

func TestSearch_EmptyData(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`{"data":[]}`))
	}))
	defer srv.Close()

	c := New(srv.URL, "fc-key")
	res, err := c.Search(context.Background(), "obscure topic", 3)
	require.NoError(t, err)
	assert.Empty(t, res)
}

func TestSearch_MissingKey(t *testing.T) {
	c := New("http://unused", "")
	assert.False(t, c.Enabled())
	_, err := c.Search(context.Background(), "q", 5)
	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrInvalidArgument)
}

func TestSearch_ServerError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	c := New(srv.URL, "fc-key")
	_, err := c.Search(context.Background(), "q", 5)
	require.Error(t, err)
}
