package app

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/zalando/go-keyring"

	"immich-wallpaper/internal/app/controller"
	"immich-wallpaper/internal/app/controller/planners"
	"immich-wallpaper/internal/app/notify"
	"immich-wallpaper/internal/app/server"
	"immich-wallpaper/internal/app/wallpaper"
	"immich-wallpaper/internal/immich"
)

const (
	appName = "immich-wallpaper"

	// keyringService is the OS keyring service the password is stored
	// under, keyed by email.
	keyringService = appName

	defaultCacheSize    = 500 * 1000 * 1000
	defaultMetadataSize = 256
	defaultMetadataTTL  = time.Hour
)

// Config is the top-level configuration struct that is loaded via TOML
// decoding of the file specified by the IMMICH_WALLPAPER_CONFIG environment
// variable (or $XDG_CONFIG_HOME/immich-wallpaper/config.toml if empty).
//
// This is the primary way to configure the application.
type Config struct {
	// AlbumID selects the album to rotate through. Empty means random
	// photos from the whole library.
	AlbumID immich.AlbumID `toml:"album-id"`
	// ChangeInterval is the time between wallpaper changes in seconds.
	ChangeInterval int `toml:"change-interval"`
	// RetryDelay is how long to wait in seconds after a failed login or
	// catalog fetch.
	RetryDelay    int                    `toml:"retry-delay"`
	PlanAlgorithm planners.PlanAlgorithm `toml:"plan-algorithm"`
	// StateFile persists the rotation index across restarts.
	StateFile     string `toml:"state-file"`
	ShowPanelIcon bool   `toml:"show-panel-icon"`

	wallpaper.Options
	notify.Preferences

	immich.Config

	Log    LogConfig     `toml:"log"`
	Server server.Config `toml:"server"`
}

// LogConfig configures logging.
type LogConfig struct {
	Level slog.Level `toml:"level"`
	// File, when set, receives the logs as well, rotated by size.
	File string `toml:"file"`
}

// DefaultConfig returns the configuration used for keys missing from the
// file.
func DefaultConfig() Config {
	conf := Config{
		ChangeInterval: int(controller.DefaultChangeInterval / time.Second),
		RetryDelay:     int(controller.DefaultRetryDelay / time.Second),
		StateFile:      filepath.Join(stateDir(), "index"),
		ShowPanelIcon:  true,
	}
	conf.LocalStorage = immich.LocalConfig{
		LocalStoragePath: filepath.Join(cacheDir(), "wallpapers"),
		LocalStorageSize: defaultCacheSize,
	}
	conf.InMemoryCache = immich.InMemoryConfig{
		UseInMemoryCache:  true,
		InMemoryCacheSize: defaultMetadataSize,
		InMemoryCacheTTL:  defaultMetadataTTL,
	}
	conf.Log.Level = slog.LevelInfo
	return conf
}

// ConfigPath returns the configuration file to load.
func ConfigPath() string {
	if p := os.Getenv("IMMICH_WALLPAPER_CONFIG"); p != "" {
		return p
	}
	dir, err := os.UserConfigDir()
	if err != nil {
		return "config.toml"
	}
	return filepath.Join(dir, appName, "config.toml")
}

// LoadConfig reads the configuration file at path on top of [DefaultConfig],
// then applies environment overrides and the keyring. A missing file is not
// an error; the environment alone may configure the app.
func LoadConfig(path string) (*Config, error) {
	conf := DefaultConfig()

	// TOML-decode config file contents.
	md, err := toml.DecodeFile(path, &conf)
	switch {
	case errors.Is(err, fs.ErrNotExist):
		slog.Warn("config file not found, using defaults", "path", path)
	case err != nil:
		return nil, fmt.Errorf("%s: %w", path, err)
	default:
		if undecoded := md.Undecoded(); len(undecoded) > 0 {
			slog.Warn("unknown config keys", "path", path, "keys", fmt.Sprint(undecoded))
		}
	}

	// Load values from environment variables.
	conf.Remote.HydrateFromEnv()
	if v, ok := os.LookupEnv("IMMICH_ALBUM_ID"); ok {
		conf.AlbumID = immich.AlbumID(v)
	}
	conf.AlbumID = immich.AlbumID(strings.TrimSpace(string(conf.AlbumID)))

	if conf.Remote.PasswordKeyring && conf.Remote.Password == "" && conf.Remote.Email != "" {
		password, err := keyring.Get(keyringService, conf.Remote.Email)
		switch {
		case errors.Is(err, keyring.ErrNotFound):
			slog.Warn("no password in keyring", "service", keyringService, "user", conf.Remote.Email)
		case err != nil:
			slog.Error("failed to read password from keyring", "error", err)
		default:
			conf.Remote.Password = password
		}
	}
	return &conf, nil
}

// Controller derives the rotation settings. The source is supplied by the
// caller since it outlives a single configuration.
func (c Config) Controller(source controller.Source) controller.Config {
	return controller.Config{
		Source:         source,
		AlbumID:        c.AlbumID,
		ChangeInterval: time.Duration(c.ChangeInterval) * time.Second,
		RetryDelay:     time.Duration(c.RetryDelay) * time.Second,
		PlanAlgorithm:  c.PlanAlgorithm,
	}
}

// sourceKey holds the settings an immich client is built from.
type sourceKey struct {
	remote struct {
		serverURL, email, password string
	}
	local immich.LocalConfig
	cache immich.InMemoryConfig
}

func (c Config) sourceKey() sourceKey {
	var k sourceKey
	k.remote.serverURL = c.Remote.ServerURL
	k.remote.email = c.Remote.Email
	k.remote.password = c.Remote.Password
	k.local = c.LocalStorage
	k.cache = c.InMemoryCache
	return k
}

// NeedsRestart reports whether going from c to next changes how the
// rotation runs. Display-only settings are read on use and need no restart.
func (c Config) NeedsRestart(next Config) bool {
	return c.sourceKey() != next.sourceKey() ||
		c.AlbumID != next.AlbumID ||
		controller.ClampInterval(time.Duration(c.ChangeInterval)*time.Second) !=
			controller.ClampInterval(time.Duration(next.ChangeInterval)*time.Second) ||
		c.RetryDelay != next.RetryDelay ||
		c.PlanAlgorithm.String() != next.PlanAlgorithm.String()
}

// LogValue implements slog.LogValuer so the password never reaches the logs.
func (c Config) LogValue() slog.Value {
	return slog.GroupValue(
		slog.String("server_url", c.Remote.ServerURL),
		slog.String("email", c.Remote.Email),
		slog.Bool("password_set", c.Remote.Password != ""),
		slog.String("album_id", string(c.AlbumID)),
		slog.Int("change_interval", c.ChangeInterval),
		slog.String("plan_algorithm", c.PlanAlgorithm.String()),
		slog.String("cache_dir", c.LocalStorage.LocalStoragePath),
		slog.String("cache_size", c.LocalStorage.LocalStorageSize.String()),
		slog.String("state_file", c.StateFile),
		slog.String("listen", c.Server.Listen),
	)
}

func cacheDir() string {
	if dir, err := os.UserCacheDir(); err == nil {
		return filepath.Join(dir, appName)
	}
	return filepath.Join(os.TempDir(), appName)
}

func stateDir() string {
	if dir := os.Getenv("XDG_STATE_HOME"); dir != "" {
		return filepath.Join(dir, appName)
	}
	if home, err := os.UserHomeDir(); err == nil {
		return filepath.Join(home, ".local", "state", appName)
	}
	return filepath.Join(os.TempDir(), appName)
}
