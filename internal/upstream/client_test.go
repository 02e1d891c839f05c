package upstream

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/juju/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

func newTestClient(t *testing.T) *Client {
	return NewClient(nil, zaptest.NewLogger(t), nil)
}

func TestCallSendsProviderHeaders(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "secret", r.Header.Get("x-api-key"))
		assert.Equal(t, "application/json", r.Header.Get("Accept"))
		assert.Equal(t, "dwr", r.URL.Query().Get("q"))
		_, _ = io.WriteString(w, `{"ok":true}`)
	}))
	defer srv.Close()

	resp, err := newTestClient(t).Call(context.Background(), NeynarProvider("secret"), Request{
		URL:   srv.URL + "/v2/farcaster/user/search",
		Query: map[string][]string{"q": {"dwr"}},
	})
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.JSONEq(t, `{"ok":true}`, string(resp.Body))
}

func TestCallClassifiesStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/missing":
			http.Error(w, `{"message":"no such user"}`, http.StatusNotFound)
		default:
			http.Error(w, "boom", http.StatusBadGateway)
		}
	}))
	defer srv.Close()
	c := newTestClient(t)

	_, err := c.Call(context.Background(), NeynarProvider("k"), Request{URL: srv.URL + "/missing"})
	require.Error(t, err)
	assert.True(t, errors.Is(err, errors.NotFound))
	ue, ok := AsError(err)
	require.True(t, ok)
	assert.Equal(t, KindHTTPStatus, ue.Kind)
	assert.Equal(t, http.StatusNotFound, ue.StatusCode)
	assert.Contains(t, string(ue.Body), "no such user")

	_, err = c.Call(context.Background(), NeynarProvider("k"), Request{URL: srv.URL + "/down"})
	require.Error(t, err)
	assert.False(t, IsNotFound(err))
	assert.Equal(t, "http_5xx", outcome(err))
}

func TestCallTimeout(t *testing.T) {
	release := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-release:
		case <-r.Context().Done():
		}
	}))
	defer srv.Close()
	defer close(release)

	_, err := newTestClient(t).Call(context.Background(), NeynarProvider("k"), Request{
		URL:     srv.URL,
		Timeout: 50 * time.Millisecond,
	})
	require.Error(t, err)
	assert.True(t, errors.Is(err, errors.Timeout))
	ue, _ := AsError(err)
	assert.Equal(t, KindTimeout, ue.Kind)
}

func TestCallJSONDecodeError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = io.WriteString(w, `not json`)
	}))
	defer srv.Close()

	var out map[string]any
	err := newTestClient(t).CallJSON(context.Background(), NeynarProvider("k"), Request{URL: srv.URL}, &out)
	ue, ok := AsError(err)
	require.True(t, ok)
	assert.Equal(t, KindDecode, ue.Kind)
}

func TestCallWithFallbackUsesBackup(t *testing.T) {
	var primaryHits atomic.Int32
	primary := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		primaryHits.Add(1)
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer primary.Close()
	backup := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = io.WriteString(w, `{"value":42}`)
	}))
	defer backup.Close()

	p := ZapperProvider("k")
	var got struct{ Value int }
	err := newTestClient(t).CallWithFallback(context.Background(),
		[]Endpoint{{Provider: p, URL: primary.URL}, {Provider: p, URL: backup.URL}},
		Request{Method: http.MethodPost, Body: map[string]string{"q": "x"}},
		func(b []byte) error { return json.Unmarshal(b, &got) },
	)
	require.NoError(t, err)
	assert.Equal(t, 42, got.Value)
	assert.Equal(t, int32(1), primaryHits.Load())
}

func TestCallWithFallbackNotFoundShortCircuits(t *testing.T) {
	primary := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))
	defer primary.Close()
	var backupHits atomic.Int32
	backup := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		backupHits.Add(1)
	}))
	defer backup.Close()

	p := ZapperProvider("k")
	err := newTestClient(t).CallWithFallback(context.Background(),
		[]Endpoint{{Provider: p, URL: primary.URL}, {Provider: p, URL: backup.URL}},
		Request{},
		func([]byte) error { return nil },
	)
	require.Error(t, err)
	assert.True(t, IsNotFound(err))
	assert.Zero(t, backupHits.Load())
}

func TestGraphQLNotFoundMessage(t *testing.T) {
	var backupHits atomic.Int32
	primary := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var body struct {
			Query     string         `json:"query"`
			Variables map[string]any `json:"variables"`
		}
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, "ghost", body.Variables["username"])
		assert.Equal(t, "k", r.Header.Get("x-zapper-api-key"))
		_, _ = io.WriteString(w, `{"data":null,"errors":[{"message":"Farcaster profile not found"}]}`)
	}))
	defer primary.Close()
	backup := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		backupHits.Add(1)
	}))
	defer backup.Close()

	p := ZapperProvider("k")
	_, err := newTestClient(t).GraphQL(context.Background(),
		[]Endpoint{{Provider: p, URL: primary.URL}, {Provider: p, URL: backup.URL}},
		"query($username: String) { farcasterProfile(username: $username) { fid } }",
		map[string]any{"username": "ghost"},
	)
	require.Error(t, err)
	assert.True(t, IsNotFound(err))
	ue, ok := AsError(err)
	require.True(t, ok)
	assert.Equal(t, KindGraphQL, ue.Kind)
	assert.Equal(t, "zapper", ue.Provider)
	assert.Zero(t, backupHits.Load())
}

func TestGraphQLOtherErrorsFallBack(t *testing.T) {
	primary := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = io.WriteString(w, `{"errors":[{"message":"internal resolver failure"}]}`)
	}))
	defer primary.Close()
	backup := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = io.WriteString(w, `{"data":{"farcasterProfile":{"fid":3}}}`)
	}))
	defer backup.Close()

	p := ZapperProvider("k")
	data, err := newTestClient(t).GraphQL(context.Background(),
		[]Endpoint{{Provider: p, URL: primary.URL}, {Provider: p, URL: backup.URL}}, "query { x }", nil)
	require.NoError(t, err)
	assert.JSONEq(t, `{"farcasterProfile":{"fid":3}}`, string(data))
}

func TestStreamReturnsOpenBody(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "image/png")
		_, _ = w.Write([]byte("\x89PNG\r\n\x1a\n"))
	}))
	defer srv.Close()

	resp, err := newTestClient(t).Stream(context.Background(), Provider{Name: "image"}, Request{URL: srv.URL})
	require.NoError(t, err)
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	require.NoError(t, resp.Body.Close())
	assert.Equal(t, "\x89PNG\r\n\x1a\n", string(body))
}

func TestRedactsSecretsFromErrors(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
	}))
	defer srv.Close()

	_, err := newTestClient(t).Call(context.Background(), AlchemyProvider("topsecret"), Request{URL: srv.URL + "/v2/topsecret"})
	ue, ok := AsError(err)
	require.True(t, ok)
	assert.NotContains(t, ue.URL, "topsecret")
	assert.True(t, ue.ClientError())
}
