package server

import (
	"context"
	"io"
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/vanshika/nftgateway/internal/config"
)

func TestWriteTimeoutCoversRequestTimeout(t *testing.T) {
	cases := []struct {
		name  string
		cfg   config.HTTPConfig
		write time.Duration
	}{
		{"raised", config.HTTPConfig{WriteTimeout: 10 * time.Second, RequestTimeout: 30 * time.Second}, 35 * time.Second},
		{"kept", config.HTTPConfig{WriteTimeout: 60 * time.Second, RequestTimeout: 30 * time.Second}, 60 * time.Second},
		{"no request timeout", config.HTTPConfig{WriteTimeout: 10 * time.Second}, 10 * time.Second},
		{"unbounded writes", config.HTTPConfig{RequestTimeout: 30 * time.Second}, 0},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.write, writeTimeout(tc.cfg))
		})
	}
}

func TestRunServesUntilCancelled(t *testing.T) {
	router := NewRouter(zaptest.NewLogger(t), newDeps(t))
	srv := New(zaptest.NewLogger(t), config.HTTPConfig{
		Host:            "127.0.0.1",
		Port:            0,
		ShutdownTimeout: 5 * time.Second,
	}, router)
	assert.Nil(t, srv.Addr())

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- srv.Run(ctx) }()

	select {
	case <-srv.Ready():
	case err := <-done:
		t.Fatalf("server exited early: %v", err)
	case <-time.After(5 * time.Second):
		t.Fatal("server did not start listening")
	}
	require.NotNil(t, srv.Addr())

	resp, err := http.Get("http://" + srv.Addr().String() + "/api/health")
	require.NoError(t, err)
	body, err := io.ReadAll(resp.Body)
	_ = resp.Body.Close()
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, string(body), `"status":"ok"`)

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(10 * time.Second):
		t.Fatal("server did not shut down")
	}
}

func TestRunReportsListenFailure(t *testing.T) {
	srv := New(zaptest.NewLogger(t), config.HTTPConfig{Host: "127.0.0.1", Port: -1}, http.NotFoundHandler())
	err := srv.Run(context.Background())
	require.Error(t, err)
	assert.Nil(t, srv.Addr())
}
