package server

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"connectrpc.com/connect"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mmynk/pledgeboard/internal/config"
	"github.com/mmynk/pledgeboard/internal/storage/sqlite"
	"github.com/mmynk/pledgeboard/pkg/api"
	"github.com/mmynk/pledgeboard/pkg/api/apiconnect"
)

func newTestServer(t *testing.T) (*App, *httptest.Server) {
	t.Helper()
	dir := t.TempDir()

	static := filepath.Join(dir, "static")
	require.NoError(t, os.MkdirAll(static, 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(static, "index.html"), []byte("<h1>pledgeboard</h1>"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(static, "app.js"), []byte("console.log('hi')"), 0o644))

	cfg := config.Default()
	cfg.DBPath = filepath.Join(dir, "test.db")
	cfg.StaticPath = static
	cfg.JWTSecret = "test-secret-0123456789"
	cfg.TokenTTL = time.Hour
	cfg.Admins = []string{"root"}

	store, err := sqlite.New(cfg.DBPath)
	require.NoError(t, err)

	app := NewApp(cfg, store)
	srv := httptest.NewServer(app.Handler())
	t.Cleanup(func() {
		srv.Close()
		store.Close()
	})
	return app, srv
}

func get(t *testing.T, url string) (int, string) {
	t.Helper()
	resp, err := http.Get(url)
	require.NoError(t, err)
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	return resp.StatusCode, string(body)
}

func TestHealthz(t *testing.T) {
	_, srv := newTestServer(t)

	code, body := get(t, srv.URL+"/healthz")
	assert.Equal(t, http.StatusOK, code)
	assert.Equal(t, "ok", body)
}

func TestStaticFiles(t *testing.T) {
	_, srv := newTestServer(t)

	code, body := get(t, srv.URL+"/")
	assert.Equal(t, http.StatusOK, code)
	assert.Contains(t, body, "pledgeboard")

	code, body = get(t, srv.URL+"/app.js")
	assert.Equal(t, http.StatusOK, code)
	assert.Contains(t, body, "console.log")

	// Unknown pages fall back to the index.
	code, body = get(t, srv.URL+"/threads/123")
	assert.Equal(t, http.StatusOK, code)
	assert.Contains(t, body, "pledgeboard")

	code, _ = get(t, srv.URL+"/pledgeboard.v1.NoSuchService/Call")
	assert.Equal(t, http.StatusNotFound, code)
}

func TestCORSPreflight(t *testing.T) {
	_, srv := newTestServer(t)

	req, err := http.NewRequest(http.MethodOptions, srv.URL+apiconnect.ThreadServiceListThreadsProcedure, nil)
	require.NoError(t, err)
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	resp.Body.Close()

	assert.Equal(t, http.StatusNoContent, resp.StatusCode)
	assert.Equal(t, "*", resp.Header.Get("Access-Control-Allow-Origin"))
	assert.Contains(t, resp.Header.Get("Access-Control-Allow-Headers"), "Authorization")
}

func TestConnectRoutesAndMetrics(t *testing.T) {
	_, srv := newTestServer(t)
	ctx := context.Background()

	authClient := apiconnect.NewAuthServiceClient(http.DefaultClient, srv.URL)
	reg, err := authClient.Register(ctx, connect.NewRequest(&api.RegisterRequest{
		Username: "root",
		Password: "correct-horse",
	}))
	require.NoError(t, err)
	assert.True(t, reg.Msg.User.IsAdmin)

	threads := apiconnect.NewThreadServiceClient(http.DefaultClient, srv.URL)
	list, err := threads.ListThreads(ctx, connect.NewRequest(&api.ListThreadsRequest{}))
	require.NoError(t, err)
	assert.Empty(t, list.Msg.Threads)

	// The ledger requires a token.
	ledger := apiconnect.NewLedgerServiceClient(http.DefaultClient, srv.URL)
	_, err = ledger.GetSummary(ctx, connect.NewRequest(&api.GetSummaryRequest{}))
	require.Error(t, err)
	assert.Equal(t, connect.CodeUnauthenticated, connect.CodeOf(err))

	req := connect.NewRequest(&api.GetSummaryRequest{})
	req.Header().Set("Authorization", "Bearer "+reg.Msg.Token)
	sum, err := ledger.GetSummary(ctx, req)
	require.NoError(t, err)
	assert.True(t, sum.Msg.Owed.IsZero())

	code, body := get(t, srv.URL+"/metrics")
	assert.Equal(t, http.StatusOK, code)
	assert.Contains(t, body, "pledgeboard_rpc_requests_total")
	assert.True(t, strings.Contains(body, `procedure="/pledgeboard.v1.ThreadService/ListThreads"`), "metrics:\n%s", body)
}
