package api_test

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"immich-wallpaper/internal/immich/api"
)

func newTestClient(t *testing.T, h http.Handler) api.Client {
	t.Helper()
	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)
	// Trailing slash is stripped by the client.
	client, err := api.NewClient(api.Config{ServerURL: srv.URL + "/", UserAgent: "test-agent"})
	require.NoError(t, err)
	return client
}

func TestNewClient_InvalidURL(t *testing.T) {
	for _, u := range []string{"", "photos.example.com", "ftp://photos.example.com", "http://"} {
		_, err := api.NewClient(api.Config{ServerURL: u})
		assert.Error(t, err, "server url %q", u)
	}
}

func TestNormalizeServerURL(t *testing.T) {
	assert.Equal(t, "https://a.example", api.NormalizeServerURL("https://a.example/"))
	assert.Equal(t, "https://a.example/", api.NormalizeServerURL("https://a.example//"))
	assert.Equal(t, "https://a.example", api.NormalizeServerURL("https://a.example"))
}

func TestLogin(t *testing.T) {
	tests := []struct {
		name    string
		status  int
		body    string
		wantErr error
	}{
		{name: "ok", status: http.StatusOK, body: `{"accessToken":"tok"}`},
		{name: "created", status: http.StatusCreated, body: `{"accessToken":"tok","userId":"u1"}`},
		{name: "unauthorized", status: http.StatusUnauthorized, body: `{"message":"Incorrect email or password"}`, wantErr: api.ErrInvalidCredentials},
		{name: "missing token", status: http.StatusCreated, body: `{"userId":"u1"}`, wantErr: api.ErrMalformedResponse},
		{name: "not json", status: http.StatusOK, body: `<html>`, wantErr: api.ErrMalformedResponse},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			client := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				assert.Equal(t, http.MethodPost, r.Method)
				assert.Equal(t, "/api/auth/login", r.URL.Path)
				assert.Equal(t, "test-agent", r.Header.Get("User-Agent"))
				var creds api.Credentials
				assert.NoError(t, json.NewDecoder(r.Body).Decode(&creds))
				assert.Equal(t, api.Credentials{Email: "me@example.com", Password: "hunter2"}, creds)
				w.WriteHeader(tt.status)
				w.Write([]byte(tt.body))
			}))
			resp, err := client.Login(context.Background(), api.Credentials{Email: "me@example.com", Password: "hunter2"})
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				assert.Nil(t, resp)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, "tok", resp.AccessToken)
		})
	}
}

func TestLogin_ServerError(t *testing.T) {
	client := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	_, err := client.Login(context.Background(), api.Credentials{Email: "a", Password: "b"})
	var serr *api.ServerError
	require.ErrorAs(t, err, &serr)
	assert.Equal(t, http.StatusBadGateway, serr.Status)
}

func TestLogin_Unreachable(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	srv.Close()
	client, err := api.NewClient(api.Config{ServerURL: srv.URL})
	require.NoError(t, err)
	_, err = client.Login(context.Background(), api.Credentials{Email: "a", Password: "b"})
	assert.ErrorIs(t, err, api.ErrUnreachable)
}

func TestServerSubpath(t *testing.T) {
	var gotPath string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		w.Write([]byte(`{"res":"pong"}`))
	}))
	defer srv.Close()
	client, err := api.NewClient(api.Config{ServerURL: srv.URL + "/immich/"})
	require.NoError(t, err)
	require.NoError(t, client.Ping(context.Background()))
	assert.Equal(t, "/immich/api/server/ping", gotPath)
}

func TestGetAlbumAssets(t *testing.T) {
	client := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/albums/album-1", r.URL.Path)
		assert.Equal(t, "Bearer tok", r.Header.Get("Authorization"))
		w.Write([]byte(`{"id":"album-1","assets":[{"id":"a1","type":"IMAGE"},{"id":"v1","type":"VIDEO"}]}`))
	}))
	mds, err := client.GetAlbumAssets(context.Background(), "tok", "album-1")
	require.NoError(t, err)
	require.Len(t, mds, 2)
	assert.True(t, mds[0].IsImage())
	assert.False(t, mds[1].IsImage())
}

func TestGetRandomAssets(t *testing.T) {
	client := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/assets/random", r.URL.Path)
		assert.Equal(t, "100", r.URL.Query().Get("count"))
		w.Write([]byte(`[{"id":"a1","type":"IMAGE","originalFileName":"IMG_1.jpg"}]`))
	}))
	mds, err := client.GetRandomAssets(context.Background(), "tok", api.RandomSampleSize)
	require.NoError(t, err)
	require.Len(t, mds, 1)
	assert.Equal(t, "IMG_1.jpg", mds[0].Name)
}

func TestFetchErrors(t *testing.T) {
	t.Run("status", func(t *testing.T) {
		client := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusUnauthorized)
			w.Write([]byte(`{"message":"Invalid user token"}`))
		}))
		_, err := client.GetAlbumAssets(context.Background(), "stale", "album-1")
		var ferr *api.FetchError
		require.ErrorAs(t, err, &ferr)
		assert.Equal(t, http.StatusUnauthorized, ferr.Status)
		assert.Contains(t, ferr.Body, "Invalid user token")
		assert.ErrorIs(t, err, api.ErrUnauthorized)
	})
	t.Run("wrong shape", func(t *testing.T) {
		client := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Write([]byte(`{"assets":"nope"}`))
		}))
		_, err := client.GetRandomAssets(context.Background(), "tok", 1)
		var ferr *api.FetchError
		require.ErrorAs(t, err, &ferr)
		assert.Equal(t, http.StatusOK, ferr.Status)
		assert.ErrorIs(t, err, api.ErrMalformedResponse)
		assert.False(t, errors.Is(err, api.ErrUnauthorized))
	})
}

func TestGetThumbnail(t *testing.T) {
	client := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "preview", r.URL.Query().Get("size"))
		switch r.URL.Path {
		case "/api/assets/a1/thumbnail":
			w.Write([]byte("jpeg-bytes"))
		default:
			w.WriteHeader(http.StatusInternalServerError)
		}
	}))
	data, err := client.GetThumbnail(context.Background(), "tok", "a1")
	require.NoError(t, err)
	assert.Equal(t, "jpeg-bytes", string(data))

	_, err = client.GetThumbnail(context.Background(), "tok", "a2")
	var derr *api.DownloadError
	require.ErrorAs(t, err, &derr)
	assert.Equal(t, http.StatusInternalServerError, derr.Status)
	assert.Equal(t, api.AssetID("a2"), derr.ID)
}
