package server

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"immich-wallpaper/internal/app/controller"
)

type fakeController struct {
	mu         sync.Mutex
	status     controller.Status
	advanceErr error
	advances   int
	restarts   int
}

func (f *fakeController) Status() controller.Status {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.status
}

func (f *fakeController) Advance(ctx context.Context) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.advances++
	if f.advanceErr != nil {
		return f.advanceErr
	}
	f.status.Index++
	return nil
}

func (f *fakeController) Restart() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.restarts++
}

func do(t *testing.T, h http.Handler, method, path string) *httptest.ResponseRecorder {
	t.Helper()
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(method, path, nil))
	return rec
}

func TestStatus(t *testing.T) {
	ctrl := &fakeController{status: controller.Status{
		State:       controller.Active,
		AlbumID:     "album-1",
		CatalogSize: 3,
		Index:       2,
		CurrentID:   "c",
	}}
	rec := do(t, NewRouter(ctrl), http.MethodGet, "/status")

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))
	var body map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "active", body["state"])
	assert.Equal(t, "album-1", body["album_id"])
	assert.EqualValues(t, 3, body["catalog_size"])
	assert.NotContains(t, body, "last_change")
}

func TestAdvance(t *testing.T) {
	tests := []struct {
		name   string
		err    error
		status int
	}{
		{"ok", nil, http.StatusOK},
		{"not active", controller.ErrNotActive, http.StatusConflict},
		{"timeout", context.DeadlineExceeded, http.StatusGatewayTimeout},
		{"cycle failed", errors.New("download failed"), http.StatusBadGateway},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ctrl := &fakeController{advanceErr: tt.err}
			rec := do(t, NewRouter(ctrl), http.MethodPost, "/advance")
			assert.Equal(t, tt.status, rec.Code)
			assert.Equal(t, 1, ctrl.advances)
			if tt.err != nil {
				assert.JSONEq(t, `{"error":"`+tt.err.Error()+`"}`, rec.Body.String())
			}
		})
	}
}

func TestRestart(t *testing.T) {
	ctrl := &fakeController{}
	h := NewRouter(ctrl)
	assert.Equal(t, http.StatusAccepted, do(t, h, http.MethodPost, "/restart").Code)
	assert.Equal(t, 1, ctrl.restarts)
	assert.Equal(t, http.StatusMethodNotAllowed, do(t, h, http.MethodGet, "/restart").Code)
	assert.Equal(t, 1, ctrl.restarts)
}

func TestMetrics(t *testing.T) {
	h := NewRouter(&fakeController{})
	do(t, h, http.MethodGet, "/status")
	rec := do(t, h, http.MethodGet, "/metrics")

	require.Equal(t, http.StatusOK, rec.Code)
	body := rec.Body.String()
	assert.Contains(t, body, "immich_wallpaper_catalog_size")
	assert.Contains(t, body, `immich_wallpaper_http_requests_total{method="GET",route="/status",status="200"}`)
}

func TestServe(t *testing.T) {
	ctrl := &fakeController{status: controller.Status{State: controller.Active, CatalogSize: 5}}
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	srv := New(ln.Addr().String(), ctrl)
	errCh := make(chan error, 1)
	go func() { errCh <- srv.Serve(ctx, ln) }()

	status, err := Advance(context.Background(), ln.Addr().String())
	require.NoError(t, err)
	assert.Equal(t, controller.Active, status.State)
	assert.Equal(t, 1, status.Index)

	resp, err := http.Get("http://" + ln.Addr().String() + "/status")
	require.NoError(t, err)
	_, _ = io.Copy(io.Discard, resp.Body)
	resp.Body.Close()

	cancel()
	select {
	case err := <-errCh:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("server did not shut down")
	}
}

func TestAdvanceClient_NotActive(t *testing.T) {
	ts := httptest.NewServer(NewRouter(&fakeController{advanceErr: controller.ErrNotActive}))
	defer ts.Close()

	_, err := Advance(context.Background(), ts.URL)
	require.Error(t, err)
	assert.Contains(t, err.Error(), controller.ErrNotActive.Error())
}

func TestAdvanceClient_NotRunning(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	addr := ln.Addr().String()
	require.NoError(t, ln.Close())

	_, err = Advance(context.Background(), addr)
	assert.ErrorContains(t, err, "is immich-wallpaper running?")
}
