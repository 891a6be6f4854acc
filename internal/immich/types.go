package immich

import "immich-wallpaper/internal/immich/api"

// Redeclare the immich API types.
type AssetID = api.AssetID
type Album = api.Album
type AlbumID = api.AlbumID
type AssetMetadata = api.AssetMetadata
type ExifInfo = api.ExifInfo

// Redeclare the immich API errors so callers only need this package.
type ServerError = api.ServerError
type FetchError = api.FetchError
type DownloadError = api.DownloadError

var (
	ErrConfigIncomplete   = api.ErrConfigIncomplete
	ErrInvalidCredentials = api.ErrInvalidCredentials
	ErrUnreachable        = api.ErrUnreachable
	ErrMalformedResponse  = api.ErrMalformedResponse
	ErrUnauthorized       = api.ErrUnauthorized
)

// Catalog is the ordered, image-only working set of assets considered for
// rotation. A fetch always produces a new Catalog; catalogs are never merged.
type Catalog []AssetMetadata

// IDs returns the asset ids in catalog order.
func (c Catalog) IDs() []AssetID {
	ids := make([]AssetID, len(c))
	for i, md := range c {
		ids[i] = md.ID
	}
	return ids
}
