package immich

import (
	"context"
	"log/slog"
)

// PhotoMetadata describes the photo currently shown. It is produced per
// rotation for observers and never persisted.
type PhotoMetadata struct {
	ID               AssetID
	OriginalFileName string
	Description      string
	DateTimeOriginal string
	TimeZone         string
	// Location is nil when the photo has no GPS coordinates.
	Location *Location
}

// Location is where a photo was taken.
type Location struct {
	Latitude  float64
	Longitude float64
	City      string
	State     string
	Country   string
}

// NewPhotoMetadata extracts PhotoMetadata from the API representation.
func NewPhotoMetadata(md AssetMetadata) *PhotoMetadata {
	pm := &PhotoMetadata{
		ID:               md.ID,
		OriginalFileName: md.Name,
	}
	exif := md.ExifInfo
	if exif == nil {
		return pm
	}
	pm.Description = exif.Description
	pm.DateTimeOriginal = exif.DateTimeOriginal
	pm.TimeZone = exif.TimeZone
	if exif.Latitude != nil && exif.Longitude != nil {
		pm.Location = &Location{
			Latitude:  *exif.Latitude,
			Longitude: *exif.Longitude,
			City:      exif.City,
			State:     exif.State,
			Country:   exif.Country,
		}
	}
	return pm
}

// GetMetadata returns the metadata of an asset. It first checks the
// in-memory cache, then the remote server; remote results are cached.
func (c *Client) GetMetadata(ctx context.Context, token string, id AssetID) (*PhotoMetadata, error) {
	log := slog.With("id", id)
	if md, ok := c.cache.Get(id); ok {
		log.Debug("found asset metadata in cache")
		return NewPhotoMetadata(*md), nil
	}
	md, err := c.remote.GetAssetInfo(ctx, token, id)
	if err != nil {
		log.Debug("failed to get asset metadata from remote", "error", err)
		return nil, err
	}
	c.cache.Add(id, md)
	return NewPhotoMetadata(*md), nil
}
