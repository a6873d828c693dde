package bridge

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/polisai/polis-flavor/pkg/channel"
	"github.com/polisai/polis-flavor/pkg/flavor"
)

const aliasChannel = "com.personalfinance.app/flavor"

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newMessenger(t *testing.T, value string) *channel.Messenger {
	t.Helper()
	m := channel.NewMessenger(nil)
	resolver := flavor.NewResolver(flavor.Static(value), flavor.WithLogger(quietLogger()))
	require.NoError(t, m.Register(flavor.NewEndpoint("", resolver)))
	require.NoError(t, m.Alias(aliasChannel, flavor.DefaultChannel))
	return m
}

func newTestServer(t *testing.T, cfg *ServerConfig, value string) (*Server, *httptest.Server) {
	t.Helper()
	s := NewServer(cfg, newMessenger(t, value), quietLogger())
	ts := httptest.NewServer(s.Handler())
	t.Cleanup(ts.Close)
	return s, ts
}

func post(t *testing.T, url, body string) (int, string) {
	t.Helper()
	resp, err := http.Post(url, "application/json", strings.NewReader(body))
	require.NoError(t, err)
	defer resp.Body.Close()
	data, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	return resp.StatusCode, string(data)
}

func get(t *testing.T, url string) (int, string) {
	t.Helper()
	resp, err := http.Get(url)
	require.NoError(t, err)
	defer resp.Body.Close()
	data, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	return resp.StatusCode, string(data)
}

func TestServer_GetFlavor(t *testing.T) {
	_, ts := newTestServer(t, nil, "prod")

	status, body := post(t, ts.URL+"/channels/io.polis.flavor%2Fflavor", `{"method":"getFlavor","args":null}`)
	assert.Equal(t, http.StatusOK, status)
	assert.JSONEq(t, `["prod"]`, body)
}

func TestServer_DefaultsToDev(t *testing.T) {
	_, ts := newTestServer(t, nil, "")

	status, body := post(t, ts.URL+"/channels/io.polis.flavor%2Fflavor", `{"method":"getFlavor"}`)
	assert.Equal(t, http.StatusOK, status)
	assert.JSONEq(t, `["dev"]`, body)
}

func TestServer_ChannelNameForms(t *testing.T) {
	_, ts := newTestServer(t, nil, "stg")

	paths := []string{
		"/channels/io.polis.flavor/flavor",
		"/channels/io.polis.flavor%2Fflavor",
		"/channels/com.personalfinance.app%2Fflavor",
	}
	for _, p := range paths {
		t.Run(p, func(t *testing.T) {
			status, body := post(t, ts.URL+p, `{"method":"getFlavor","args":{"ignored":true}}`)
			assert.Equal(t, http.StatusOK, status)
			assert.JSONEq(t, `["stg"]`, body)
		})
	}
}

func TestServer_NotImplemented(t *testing.T) {
	_, ts := newTestServer(t, nil, "prod")

	status, body := post(t, ts.URL+"/channels/io.polis.flavor%2Fflavor", `{"method":"getVersion","args":null}`)
	assert.Equal(t, http.StatusOK, status)
	assert.Empty(t, body)
}

func TestServer_UnknownChannel(t *testing.T) {
	_, ts := newTestServer(t, nil, "prod")

	status, body := post(t, ts.URL+"/channels/nobody%2Fhome", `{"method":"getFlavor"}`)
	assert.Equal(t, http.StatusNotFound, status)
	assert.Empty(t, body)
}

func TestServer_MalformedCall(t *testing.T) {
	_, ts := newTestServer(t, nil, "prod")

	for _, body := range []string{`not json`, `{"args":null}`, ``} {
		status, _ := post(t, ts.URL+"/channels/io.polis.flavor%2Fflavor", body)
		assert.Equal(t, http.StatusBadRequest, status, "body %q", body)
	}
}

func TestServer_MessageTooLarge(t *testing.T) {
	cfg := DefaultServerConfig()
	cfg.MaxMessageBytes = 8
	_, ts := newTestServer(t, cfg, "prod")

	status, _ := post(t, ts.URL+"/channels/io.polis.flavor%2Fflavor", `{"method":"getFlavor","args":null}`)
	assert.Equal(t, http.StatusRequestEntityTooLarge, status)
}

func TestServer_Channels(t *testing.T) {
	_, ts := newTestServer(t, nil, "prod")

	status, body := get(t, ts.URL+"/channels")
	require.Equal(t, http.StatusOK, status)

	var infos []ChannelInfo
	require.NoError(t, json.Unmarshal([]byte(body), &infos))
	assert.Equal(t, []ChannelInfo{
		{Name: aliasChannel, Endpoint: flavor.DefaultChannel, Methods: []string{flavor.MethodGetFlavor}},
		{Name: flavor.DefaultChannel, Endpoint: flavor.DefaultChannel, Methods: []string{flavor.MethodGetFlavor}},
	}, infos)
}

func TestServer_Health(t *testing.T) {
	_, ts := newTestServer(t, nil, "prod")

	status, body := get(t, ts.URL+"/healthz")
	assert.Equal(t, http.StatusOK, status)
	assert.JSONEq(t, `{"status":"ok"}`, body)
}

func TestServer_Metrics(t *testing.T) {
	_, ts := newTestServer(t, nil, "prod")

	post(t, ts.URL+"/channels/io.polis.flavor%2Fflavor", `{"method":"getFlavor"}`)
	post(t, ts.URL+"/channels/io.polis.flavor%2Fflavor", `{"method":"getVersion"}`)

	status, body := get(t, ts.URL+"/metrics")
	require.Equal(t, http.StatusOK, status)
	assert.Contains(t, body, `flavor_bridge_calls_total{channel="io.polis.flavor/flavor",method="getFlavor",status="success"} 1`)
	assert.Contains(t, body, `flavor_bridge_calls_total{channel="io.polis.flavor/flavor",method="getVersion",status="not_implemented"} 1`)
	assert.Contains(t, body, `flavor_bridge_http_requests_total{endpoint="/channels/*",method="POST",status_code="200"} 2`)
	assert.Contains(t, body, "flavor_bridge_call_duration_seconds")
}

func TestServer_MetricsDisabled(t *testing.T) {
	cfg := DefaultServerConfig()
	cfg.Metrics.Enabled = false
	s, ts := newTestServer(t, cfg, "prod")

	assert.Nil(t, s.Metrics())
	status, _ := get(t, ts.URL+"/metrics")
	assert.Equal(t, http.StatusNotFound, status)
}

func TestServer_StartStop(t *testing.T) {
	cfg := DefaultServerConfig()
	cfg.ListenAddr = "127.0.0.1:0"
	s := NewServer(cfg, newMessenger(t, "prod"), quietLogger())

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- s.Start(ctx) }()

	require.Eventually(t, func() bool { return s.Addr() != "" }, 2*time.Second, 10*time.Millisecond)

	status, _ := get(t, "http://"+s.Addr()+"/healthz")
	assert.Equal(t, http.StatusOK, status)

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("server did not stop")
	}
}

func TestServer_StartListenError(t *testing.T) {
	cfg := DefaultServerConfig()
	cfg.ListenAddr = "256.0.0.1:bad"
	s := NewServer(cfg, newMessenger(t, "prod"), quietLogger())

	err := s.Start(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to listen")
}
