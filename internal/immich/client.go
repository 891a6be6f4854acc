package immich

import (
	"cmp"
	"context"
	"errors"
	"log/slog"
	"os"
	"slices"
	"time"

	"immich-wallpaper/internal/immich/api"
)

// Client provides the rotation engine's view of an immich server: a session,
// the photo catalog, asset metadata with in-memory caching and previews
// cached on local storage.
//
// A Client is bound to one server and one set of credentials. When either
// changes, build a new Client.
type Client struct {
	conf   api.Config
	remote remoteClient
	cache  metadataCache
	local  *localStorage
	now    func() time.Time

	session sessionHolder
}

// remoteClient is the immich HTTP API.
type remoteClient interface {
	Ping(ctx context.Context) error
	Login(ctx context.Context, creds api.Credentials) (*api.LoginResponse, error)
	Logout(ctx context.Context, token string) error
	GetAlbums(ctx context.Context, token string) ([]Album, error)
	GetAlbumAssets(ctx context.Context, token string, id AlbumID) ([]AssetMetadata, error)
	GetRandomAssets(ctx context.Context, token string, count int) ([]AssetMetadata, error)
	GetAssetInfo(ctx context.Context, token string, id AssetID) (*AssetMetadata, error)
	GetThumbnail(ctx context.Context, token string, id AssetID) ([]byte, error)
}

// metadataCache stores asset metadata by id.
type metadataCache interface {
	Get(id AssetID) (*AssetMetadata, bool)
	Add(id AssetID, md *AssetMetadata)
	Len() int
}

// clientOpt is used for configuring the [Client].
type clientOpt func(*Client)

// WithRemote adds the remote immich server. If the configuration is
// incomplete or the server URL is invalid, the remote stays unconfigured and
// every call fails with ErrConfigIncomplete.
func WithRemote(conf api.Config) clientOpt {
	return func(c *Client) {
		c.conf = conf
		if !conf.Complete() {
			slog.Debug("immich remote not configured", "server_url", conf.ServerURL)
			return
		}
		remote, err := api.NewClient(conf)
		if err != nil {
			slog.Error("could not create immich client", "error", err)
			return
		}
		c.remote = remote
	}
}

// WithInMemoryCache adds an in-memory metadata cache to the Client, if
// configured. If multiple are provided, the last is used.
func WithInMemoryCache(conf InMemoryConfig) clientOpt {
	return func(c *Client) {
		if !conf.UseInMemoryCache {
			return
		}
		c.cache = newInMemoryCache(conf)
	}
}

// WithLocalStorage adds the local preview cache. If multiple are provided,
// the last is used.
func WithLocalStorage(conf LocalConfig) clientOpt {
	return func(c *Client) {
		if err := os.MkdirAll(conf.LocalStoragePath, 0o755); err != nil {
			slog.Error("could not create local storage directory", "error", err)
			return
		}
		c.local = newLocalStorage(conf)
	}
}

// WithClock overrides the time source used for session timestamps.
func WithClock(now func() time.Time) clientOpt {
	return func(c *Client) { c.now = now }
}

// NewClient initializes a new client with the provided options. See
// [WithRemote], [WithInMemoryCache] and [WithLocalStorage].
func NewClient(opts ...clientOpt) *Client {
	client := &Client{
		remote: noopClient{},
		cache:  noopCache{},
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(client)
	}
	return client
}

// ListAlbums returns all albums sorted by name, used to help users find an
// album id.
func (c *Client) ListAlbums(ctx context.Context, token string) ([]Album, error) {
	albums, err := c.remote.GetAlbums(ctx, token)
	if err != nil {
		return nil, err
	}
	slices.SortFunc(albums, func(a, b Album) int { return cmp.Compare(a.Name, b.Name) })
	return albums, nil
}

// errNoLocalStorage is returned by cache operations when no cache directory
// could be set up.
var errNoLocalStorage = errors.New("no local storage configured")

// noopClient provides a noop implementation for an unconfigured remote.
type noopClient struct{}

func (noopClient) Ping(context.Context) error { return ErrConfigIncomplete }
func (noopClient) Login(context.Context, api.Credentials) (*api.LoginResponse, error) {
	return nil, ErrConfigIncomplete
}
func (noopClient) Logout(context.Context, string) error { return ErrConfigIncomplete }
func (noopClient) GetAlbums(context.Context, string) ([]Album, error) {
	return nil, ErrConfigIncomplete
}
func (noopClient) GetAlbumAssets(context.Context, string, AlbumID) ([]AssetMetadata, error) {
	return nil, ErrConfigIncomplete
}
func (noopClient) GetRandomAssets(context.Context, string, int) ([]AssetMetadata, error) {
	return nil, ErrConfigIncomplete
}
func (noopClient) GetAssetInfo(context.Context, string, AssetID) (*AssetMetadata, error) {
	return nil, ErrConfigIncomplete
}
func (noopClient) GetThumbnail(context.Context, string, AssetID) ([]byte, error) {
	return nil, ErrConfigIncomplete
}

// noopCache never holds anything.
type noopCache struct{}

func (noopCache) Get(AssetID) (*AssetMetadata, bool) { return nil, false }
func (noopCache) Add(AssetID, *AssetMetadata)        {}
func (noopCache) Len() int                           { return 0 }
