package immich

import (
	"github.com/hashicorp/golang-lru/v2/expirable"
)

const defaultInMemoryCacheSize = 256

// inMemoryCache is a metadataCache backed by an LRU whose entries expire
// after the configured TTL.
type inMemoryCache struct {
	*expirable.LRU[AssetID, *AssetMetadata]
}

// Add writes the asset metadata to the cache.
func (i inMemoryCache) Add(id AssetID, md *AssetMetadata) {
	i.LRU.Add(id, md)
}

// newInMemoryCache initializes an [inMemoryCache].
func newInMemoryCache(conf InMemoryConfig) inMemoryCache {
	size := conf.InMemoryCacheSize
	if size <= 0 {
		size = defaultInMemoryCacheSize
	}
	return inMemoryCache{expirable.NewLRU[AssetID, *AssetMetadata](size, nil, conf.InMemoryCacheTTL)}
}
