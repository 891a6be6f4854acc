package immich

import (
	"time"

	"github.com/dustin/go-humanize"

	"immich-wallpaper/internal/immich/api"
)

// Config holds configuration values for caching behavior.
//
// It is organized to take advantage of TOML parsing, however this package does
// not handle parsing and has no expectation on how it will be initialized.
type Config struct {
	// Local storage holds one downloaded preview per asset so wallpapers
	// survive restarts and are not downloaded twice.
	LocalStorage LocalConfig `toml:"cache"`

	// In memory cache for asset metadata shown in notifications.
	InMemoryCache InMemoryConfig `toml:"metadata-cache"`

	// Remote configuration for connecting to the immich API.
	Remote api.Config `toml:"immich"`
}

// LocalConfig configures the on-disk wallpaper cache.
type LocalConfig struct {
	// LocalStoragePath is the cache directory. Files are named {assetId}.jpg.
	LocalStoragePath string `toml:"cache-dir"`
	// LocalStorageSize bounds the directory. Files of assets no longer in
	// the catalog are removed, oldest first, until under this size. Zero
	// disables pruning.
	LocalStorageSize HumanBytes `toml:"cache-size"`
}

// InMemoryConfig configures the asset metadata cache.
type InMemoryConfig struct {
	UseInMemoryCache bool `toml:"enabled"`
	// InMemoryCacheSize is the number of asset metadata entries kept.
	InMemoryCacheSize int `toml:"size"`
	// InMemoryCacheTTL is how long an entry is served before it is fetched
	// again. Zero means entries never expire.
	InMemoryCacheTTL time.Duration `toml:"ttl"`
}

// HumanBytes is a custom type to decode human-readable byte values into an
// integer.
type HumanBytes uint64

// UnmarshalText implements toml.TextUnmarshaler.
func (h *HumanBytes) UnmarshalText(text []byte) error {
	nbytes, err := humanize.ParseBytes(string(text))
	*h = HumanBytes(nbytes)
	return err
}

// MarshalText implements encoding.TextMarshaler.
func (h HumanBytes) MarshalText() ([]byte, error) {
	return []byte(humanize.Bytes(uint64(h))), nil
}

// String converts the integer back into a human-readable representation.
func (h *HumanBytes) String() string {
	if h == nil {
		return ""
	}
	return humanize.Bytes(uint64(*h))
}
