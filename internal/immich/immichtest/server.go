// Package immichtest provides an in-process fake immich server for tests.
package immichtest

import (
	"bytes"
	"encoding/json"
	"image/color"
	"net/http"
	"net/http/httptest"
	"strconv"
	"sync"
	"testing"

	"github.com/disintegration/imaging"
	"github.com/go-chi/chi/v5"

	"immich-wallpaper/internal/immich/api"
)

const (
	Email    = "user@example.com"
	Password = "hunter2"
	Token    = "test-token"
)

// Server is a fake immich server. The exported fields may be changed between
// requests; they are guarded by the server's lock.
type Server struct {
	*httptest.Server

	mu sync.Mutex
	// LoginStatus, when non-zero, is returned by the login endpoint instead
	// of checking credentials.
	LoginStatus int
	// CatalogStatus, when non-zero, is returned by the album and random
	// endpoints.
	CatalogStatus int
	// ThumbnailStatus, when non-zero, is returned by the thumbnail endpoint.
	ThumbnailStatus int
	// InfoStatus, when non-zero, is returned by the asset info endpoint.
	InfoStatus int
	// TokenRevoked makes every authenticated endpoint answer 401.
	TokenRevoked bool
	// LoginGate, when non-nil, holds every login request open until it is
	// closed or the client goes away.
	LoginGate chan struct{}

	Albums    map[api.AlbumID][]api.AssetMetadata
	Random    []api.AssetMetadata
	Thumbnail map[api.AssetID][]byte

	requests map[string]int
}

// NewServer starts a fake immich server that is closed when the test ends.
func NewServer(t testing.TB) *Server {
	t.Helper()
	s := &Server{
		Albums:    map[api.AlbumID][]api.AssetMetadata{},
		Thumbnail: map[api.AssetID][]byte{},
		requests:  map[string]int{},
	}
	s.Server = httptest.NewServer(s.routes())
	t.Cleanup(s.Close)
	return s
}

// Config returns a complete api.Config pointing at the server.
func (s *Server) Config() api.Config {
	return api.Config{ServerURL: s.URL, Email: Email, Password: Password}
}

// Update runs f with the server's lock held.
func (s *Server) Update(f func(s *Server)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	f(s)
}

// Requests returns how many requests were made to the named route. Route
// names are "login", "logout", "albums", "album", "random", "info" and
// "thumbnail".
func (s *Server) Requests(route string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.requests[route]
}

func (s *Server) routes() http.Handler {
	r := chi.NewRouter()
	r.Route("/api", func(r chi.Router) {
		r.Get("/server/ping", func(w http.ResponseWriter, r *http.Request) {
			writeJSON(w, http.StatusOK, map[string]string{"res": "pong"})
		})
		r.Post("/auth/login", s.login)
		r.Group(func(r chi.Router) {
			r.Use(s.authenticated)
			r.Post("/auth/logout", s.count("logout", func(w http.ResponseWriter, r *http.Request) {
				writeJSON(w, http.StatusOK, map[string]any{"successful": true})
			}))
			r.Get("/albums", s.count("albums", s.albums))
			r.Get("/albums/{id}", s.count("album", s.album))
			r.Get("/assets/random", s.count("random", s.random))
			r.Get("/assets/{id}", s.count("info", s.info))
			r.Get("/assets/{id}/thumbnail", s.count("thumbnail", s.thumbnail))
		})
	})
	return r
}

func (s *Server) count(route string, next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		s.mu.Lock()
		s.requests[route]++
		s.mu.Unlock()
		next(w, r)
	}
}

func (s *Server) authenticated(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		s.mu.Lock()
		revoked := s.TokenRevoked
		s.mu.Unlock()
		if revoked || r.Header.Get("Authorization") != "Bearer "+Token {
			writeJSON(w, http.StatusUnauthorized, map[string]string{"message": "Invalid user token"})
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (s *Server) login(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	s.requests["login"]++
	status, gate := s.LoginStatus, s.LoginGate
	s.mu.Unlock()
	if gate != nil {
		select {
		case <-gate:
		case <-r.Context().Done():
			return
		}
	}
	if status != 0 {
		writeJSON(w, status, map[string]string{"message": http.StatusText(status)})
		return
	}
	var creds api.Credentials
	if err := json.NewDecoder(r.Body).Decode(&creds); err != nil || creds.Email != Email || creds.Password != Password {
		writeJSON(w, http.StatusUnauthorized, map[string]string{"message": "Incorrect email or password"})
		return
	}
	writeJSON(w, http.StatusCreated, api.LoginResponse{AccessToken: Token, UserEmail: Email})
}

func (s *Server) albums(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	defer s.mu.Unlock()
	albums := make([]api.Album, 0, len(s.Albums))
	for id, assets := range s.Albums {
		albums = append(albums, api.Album{ID: id, Name: string(id), AssetCount: len(assets)})
	}
	writeJSON(w, http.StatusOK, albums)
}

func (s *Server) album(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.CatalogStatus != 0 {
		writeJSON(w, s.CatalogStatus, map[string]string{"message": "catalog failure"})
		return
	}
	id := api.AlbumID(chi.URLParam(r, "id"))
	assets, ok := s.Albums[id]
	if !ok {
		writeJSON(w, http.StatusBadRequest, map[string]string{"message": "Not found or no album.read access"})
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"id": id, "assets": assets})
}

func (s *Server) random(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.CatalogStatus != 0 {
		writeJSON(w, s.CatalogStatus, map[string]string{"message": "catalog failure"})
		return
	}
	count, _ := strconv.Atoi(r.URL.Query().Get("count"))
	assets := s.Random
	if count > 0 && len(assets) > count {
		assets = assets[:count]
	}
	if assets == nil {
		assets = []api.AssetMetadata{}
	}
	writeJSON(w, http.StatusOK, assets)
}

func (s *Server) info(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.InfoStatus != 0 {
		writeJSON(w, s.InfoStatus, map[string]string{"message": "info failure"})
		return
	}
	id := api.AssetID(chi.URLParam(r, "id"))
	for _, md := range s.allAssets() {
		if md.ID == id {
			writeJSON(w, http.StatusOK, md)
			return
		}
	}
	writeJSON(w, http.StatusBadRequest, map[string]string{"message": "Not found"})
}

func (s *Server) thumbnail(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.ThumbnailStatus != 0 {
		writeJSON(w, s.ThumbnailStatus, map[string]string{"message": "thumbnail failure"})
		return
	}
	id := api.AssetID(chi.URLParam(r, "id"))
	data, ok := s.Thumbnail[id]
	if !ok {
		data = JPEG(nil)
	}
	w.Header().Set("Content-Type", "image/jpeg")
	_, _ = w.Write(data)
}

func (s *Server) allAssets() []api.AssetMetadata {
	all := append([]api.AssetMetadata{}, s.Random...)
	for _, assets := range s.Albums {
		all = append(all, assets...)
	}
	return all
}

// Image returns the metadata of an image asset.
func Image(id string) api.AssetMetadata {
	return api.AssetMetadata{ID: api.AssetID(id), Type: api.AssetTypeImage, Name: id + ".jpg"}
}

// Video returns the metadata of a video asset.
func Video(id string) api.AssetMetadata {
	return api.AssetMetadata{ID: api.AssetID(id), Type: "VIDEO", Name: id + ".mp4", Duration: "0:00:05.000"}
}

// JPEG encodes a small solid image. A nil color defaults to gray.
func JPEG(c color.Color) []byte {
	if c == nil {
		c = color.Gray{Y: 128}
	}
	img := imaging.New(8, 8, c)
	var buf bytes.Buffer
	if err := imaging.Encode(&buf, img, imaging.JPEG); err != nil {
		panic(err)
	}
	return buf.Bytes()
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
