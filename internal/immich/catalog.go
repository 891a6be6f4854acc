package immich

import (
	"context"
	"log/slog"
	"strings"

	"immich-wallpaper/internal/immich/api"
)

// FetchCatalog retrieves the current candidate photos. A non-blank albumID
// scopes the catalog to that album; otherwise a random sample of
// api.RandomSampleSize assets from the whole library is used. Only images are
// kept. An empty Catalog is not an error.
func (c *Client) FetchCatalog(ctx context.Context, token string, albumID AlbumID) (Catalog, error) {
	albumID = AlbumID(strings.TrimSpace(string(albumID)))
	log := slog.With("album_id", albumID)

	var (
		mds []AssetMetadata
		err error
	)
	if albumID != "" {
		log.Debug("fetching album assets")
		mds, err = c.remote.GetAlbumAssets(ctx, token, albumID)
	} else {
		log.Debug("fetching random assets", "count", api.RandomSampleSize)
		mds, err = c.remote.GetRandomAssets(ctx, token, api.RandomSampleSize)
	}
	if err != nil {
		return nil, err
	}

	catalog := make(Catalog, 0, len(mds))
	for _, md := range mds {
		if !md.IsImage() {
			continue
		}
		catalog = append(catalog, md)
	}
	log.Info("fetched catalog", "assets", len(mds), "images", len(catalog))
	return catalog, nil
}
