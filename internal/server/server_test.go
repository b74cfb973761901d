package server

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/micro-nova/amplipi-hub/internal/amplipi"
	"github.com/micro-nova/amplipi-hub/internal/auth"
	"github.com/micro-nova/amplipi-hub/internal/config"
)

func newFakeController(t *testing.T) *httptest.Server {
	t.Helper()
	status := amplipi.Status{
		Sources: []amplipi.Source{
			{ID: 0, Name: "1", Input: "stream=1001", Info: &amplipi.SourceInfo{Name: "Groove Salad", State: "playing"}},
			{ID: 1, Name: "2", Input: ""},
			{ID: 2, Name: "3", Input: ""},
			{ID: 3, Name: "4", Input: ""},
		},
		Zones: []amplipi.Zone{
			{ID: 0, Name: "Living Room", SourceID: 0, VolF: amplipi.Ptr(0.4)},
			{ID: 1, Name: "Kitchen", SourceID: -1, VolF: amplipi.Ptr(0.2)},
		},
		Groups: []amplipi.Group{
			{ID: 100, Name: "Downstairs", SourceID: 0, Zones: []int{0, 1}},
		},
		Streams: []amplipi.Stream{
			{ID: 1001, Name: "Groove Salad", Type: "internetradio"},
		},
	}
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		if r.Method == http.MethodGet && r.URL.Path == "/" {
			json.NewEncoder(w).Encode(status)
			return
		}
		w.Write([]byte("{}"))
	}))
}

func setupEnv(t *testing.T, controllerURL string) config.Config {
	t.Helper()
	parsed, err := url.Parse(controllerURL)
	require.NoError(t, err)

	tempDir := t.TempDir()
	t.Setenv("JWT_SECRET", "this-is-a-development-secret-string-32chars")
	t.Setenv("ALLOW_TEST_MODE", "true")
	t.Setenv("SQLITE_DB_PATH", filepath.Join(tempDir, "amplipi-hub.db"))
	t.Setenv("ASSET_INSTALL_DIR", filepath.Join(tempDir, "assets"))
	t.Setenv("AMPLIPI_HOST", parsed.Hostname())
	t.Setenv("AMPLIPI_PORT", parsed.Port())
	t.Setenv("AMPLIPI_API_PATH", "/")

	cfg, err := config.Load()
	require.NoError(t, err)
	return cfg
}

func newTestServer(t *testing.T) (*httptest.Server, config.Config) {
	t.Helper()
	controller := newFakeController(t)
	t.Cleanup(controller.Close)

	cfg := setupEnv(t, controller.URL)
	handler, shutdown, err := NewHandler(cfg, Options{DisablePoller: true})
	require.NoError(t, err)
	t.Cleanup(func() {
		require.NoError(t, shutdown(nil))
	})

	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return srv, cfg
}

func testModeGet(t *testing.T, url string) *http.Response {
	t.Helper()
	req, err := http.NewRequest(http.MethodGet, url, nil)
	require.NoError(t, err)
	req.Header.Set("x-test-mode", "true")
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	return resp
}

func testModePost(t *testing.T, url string, payload any) *http.Response {
	t.Helper()
	body, err := json.Marshal(payload)
	require.NoError(t, err)
	req, err := http.NewRequest(http.MethodPost, url, bytes.NewReader(body))
	require.NoError(t, err)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("x-test-mode", "true")
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	return resp
}

func decodeBody(t *testing.T, resp *http.Response, out any) {
	t.Helper()
	require.NoError(t, json.NewDecoder(resp.Body).Decode(out))
	require.NoError(t, resp.Body.Close())
}

func TestHealthAndTokenRefresh(t *testing.T) {
	srv, cfg := newTestServer(t)

	resp, err := http.Get(srv.URL + "/v1/health")
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var health struct {
		Status string `json:"status"`
	}
	decodeBody(t, resp, &health)
	require.Equal(t, "healthy", health.Status)

	pair, err := auth.GenerateTokenPair(cfg, auth.TokenPayload{Sub: "e2e", DeviceName: "E2E"})
	require.NoError(t, err)

	body, _ := json.Marshal(map[string]any{"refresh_token": pair.RefreshToken})
	refreshResp, err := http.Post(srv.URL+"/v1/auth/refresh", "application/json", bytes.NewReader(body))
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, refreshResp.StatusCode)
	var refresh struct {
		AccessToken string `json:"access_token"`
		TokenType   string `json:"token_type"`
	}
	decodeBody(t, refreshResp, &refresh)
	require.NotEmpty(t, refresh.AccessToken)
	require.Equal(t, "Bearer", refresh.TokenType)
}

func TestProtectedRoutesRequireAuth(t *testing.T) {
	srv, _ := newTestServer(t)

	resp, err := http.Get(srv.URL + "/v1/players")
	require.NoError(t, err)
	require.NoError(t, resp.Body.Close())
	require.Equal(t, http.StatusUnauthorized, resp.StatusCode)
}

func TestPlayersEndToEnd(t *testing.T) {
	srv, _ := newTestServer(t)

	resp := testModeGet(t, srv.URL+"/v1/players")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var list struct {
		Object string `json:"object"`
		Data   []struct {
			UniqueID  string `json:"unique_id"`
			Kind      string `json:"kind"`
			Available bool   `json:"available"`
			State     string `json:"state"`
		} `json:"data"`
	}
	decodeBody(t, resp, &list)
	require.Equal(t, "list", list.Object)

	ids := map[string]string{}
	for _, p := range list.Data {
		ids[p.UniqueID] = p.State
	}
	require.Contains(t, ids, "amplipi_source_0")
	require.Contains(t, ids, "amplipi_zone_0")
	require.Contains(t, ids, "amplipi_group_100")
	require.Contains(t, ids, "amplipi_stream_1001")
	require.Contains(t, ids, "amplipi_announcement")
	require.Equal(t, "playing", ids["amplipi_source_0"])

	cmdResp := testModePost(t, srv.URL+"/v1/players/amplipi_zone_0/volume", map[string]any{"level": 0.5})
	require.Equal(t, http.StatusOK, cmdResp.StatusCode)
	require.NoError(t, cmdResp.Body.Close())

	missing := testModeGet(t, srv.URL+"/v1/players/amplipi_zone_99")
	require.NoError(t, missing.Body.Close())
	require.Equal(t, http.StatusNotFound, missing.StatusCode)
}

func TestMediaLibraryEndToEnd(t *testing.T) {
	srv, _ := newTestServer(t)

	created := testModePost(t, srv.URL+"/v1/media/library", map[string]any{
		"name": "Doorbell",
		"url":  "http://host/doorbell.mp3",
	})
	require.Equal(t, http.StatusCreated, created.StatusCode)
	var item struct {
		ItemID    string `json:"item_id"`
		Reference string `json:"reference"`
	}
	decodeBody(t, created, &item)
	require.NotEmpty(t, item.ItemID)
	require.Equal(t, "media-source://media_library/"+item.ItemID, item.Reference)

	got := testModeGet(t, srv.URL+"/v1/media/library/"+item.ItemID)
	require.NoError(t, got.Body.Close())
	require.Equal(t, http.StatusOK, got.StatusCode)
}

func TestSystemStatusAndAuditTrail(t *testing.T) {
	srv, _ := newTestServer(t)

	resp := testModeGet(t, srv.URL+"/v1/system/status")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var status struct {
		Object        string `json:"object"`
		Version       string `json:"version"`
		DatabaseOK    bool   `json:"database_ok"`
		PollerRunning bool   `json:"poller_running"`
	}
	decodeBody(t, resp, &status)
	require.Equal(t, "system_status", status.Object)
	require.NotEmpty(t, status.Version)
	require.True(t, status.DatabaseOK)
	require.False(t, status.PollerRunning)

	auditResp := testModeGet(t, srv.URL+"/v1/audit/events?type=SYSTEM_STARTUP")
	require.Equal(t, http.StatusOK, auditResp.StatusCode)
	var events struct {
		Data []struct {
			Type string `json:"type"`
		} `json:"data"`
	}
	decodeBody(t, auditResp, &events)
	require.NotEmpty(t, events.Data)
	require.Equal(t, "SYSTEM_STARTUP", events.Data[0].Type)
}
