package app

import (
	"context"
	"encoding/json"
	"net"
	"net/http"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"immich-wallpaper/internal/app/controller"
	"immich-wallpaper/internal/immich/api"
	"immich-wallpaper/internal/immich/immichtest"
)

func freeAddr(t *testing.T) string {
	t.Helper()
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	addr := ln.Addr().String()
	require.NoError(t, ln.Close())
	return addr
}

func getStatus(addr string) (controller.Status, error) {
	var status controller.Status
	resp, err := http.Get("http://" + addr + "/status")
	if err != nil {
		return status, err
	}
	defer resp.Body.Close()
	err = json.NewDecoder(resp.Body).Decode(&status)
	return status, err
}

func TestRunHeadless(t *testing.T) {
	srv := immichtest.NewServer(t)
	srv.Update(func(s *immichtest.Server) {
		s.Albums["album"] = []api.AssetMetadata{immichtest.Image("a"), immichtest.Image("b")}
	})
	dir := t.TempDir()
	conf := DefaultConfig()
	conf.Remote = srv.Config()
	conf.AlbumID = "album"
	conf.LocalStorage.LocalStoragePath = filepath.Join(dir, "cache")
	conf.StateFile = filepath.Join(dir, "state", "index")
	conf.Server.Listen = freeAddr(t)

	a := newWallpaperApp(filepath.Join(dir, "config.toml"), conf)
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- a.runHeadless(ctx) }()

	var status controller.Status
	require.Eventually(t, func() bool {
		var err error
		status, err = getStatus(conf.Server.Listen)
		return err == nil && status.State == controller.Active
	}, 5*time.Second, 20*time.Millisecond)
	assert.Equal(t, 2, status.CatalogSize)

	// The preview is cached whether or not a wallpaper could be applied.
	require.Eventually(t, func() bool {
		entries, err := os.ReadDir(conf.LocalStorage.LocalStoragePath)
		return err == nil && len(entries) > 0
	}, 5*time.Second, 20*time.Millisecond)
	_, err := os.Stat(conf.StateFile)
	assert.NoError(t, err)

	cancel()
	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(10 * time.Second):
		t.Fatal("app did not stop")
	}
	assert.Equal(t, controller.Stopped, a.ctrl.State())
	assert.Equal(t, 1, srv.Requests("logout"))
}

func TestWallpaperApp_Source(t *testing.T) {
	dir := t.TempDir()
	conf := DefaultConfig()
	conf.LocalStorage.LocalStoragePath = dir
	a := newWallpaperApp(filepath.Join(dir, "config.toml"), conf)

	first := a.source(conf)
	assert.Same(t, first, a.source(conf))

	conf.PictureOptions = "centered"
	assert.Same(t, first, a.source(conf), "display options do not need a new client")

	conf.Remote.Email = "other@example.com"
	assert.NotSame(t, first, a.source(conf))
	a.wg.Wait()
}

func TestWallpaperApp_ConfigChangeBeforeStart(t *testing.T) {
	conf := DefaultConfig()
	a := newWallpaperApp("config.toml", conf)
	next := conf
	next.AlbumID = "other"
	assert.NotPanics(t, func() { a.onConfigChange(conf, next) })
}
