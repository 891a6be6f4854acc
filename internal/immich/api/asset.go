package api

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"path"
)

// AssetTypeImage is the asset type of photos. Everything else (videos,
// audio, "OTHER") is not rotated.
const AssetTypeImage = "IMAGE"

// RandomSampleSize is how many assets are requested from the random endpoint
// when no album is configured.
const RandomSampleSize = 100

// AssetID is the immich ID for an asset, usually in the shape of UUIDv4.
type AssetID string

// AssetMetadata contains relevant asset information retrieved from the immich API.
//
// See: https://api.immich.app/endpoints/assets/getAssetInfo
type AssetMetadata struct {
	ID       AssetID   `json:"id"`
	Type     string    `json:"type"`
	Name     string    `json:"originalFileName"`
	Duration string    `json:"duration"`
	ExifInfo *ExifInfo `json:"exifInfo,omitempty"`
}

// IsImage reports whether the asset is a photo.
func (md AssetMetadata) IsImage() bool { return md.Type == AssetTypeImage }

// ExifInfo contains relevant EXIF data associated with an asset. Fields the
// server does not know are null in the response.
//
// See: https://api.immich.app/models/ExifResponseDto
type ExifInfo struct {
	City             string   `json:"city"`
	State            string   `json:"state"`
	Country          string   `json:"country"`
	Description      string   `json:"description"`
	DateTimeOriginal string   `json:"dateTimeOriginal"`
	TimeZone         string   `json:"timeZone"`
	Latitude         *float64 `json:"latitude"`
	Longitude        *float64 `json:"longitude"`
}

// GetRandomAssets retrieves a random sample of count assets from the whole
// library. The response is a bare array.
//
// See: https://api.immich.app/endpoints/assets/getRandom
func (c Client) GetRandomAssets(ctx context.Context, token string, count int) ([]AssetMetadata, error) {
	p := fmt.Sprintf("/assets/random?count=%d", count)
	resp, err := c.do(ctx, http.MethodGet, p, token, nil)
	if err != nil {
		return nil, err
	}
	var mds []AssetMetadata
	if err := decodeFetch(resp, &mds); err != nil {
		return nil, err
	}
	return mds, nil
}

// GetAssetInfo gets the full metadata associated with an asset, including
// its EXIF information.
//
// See: https://api.immich.app/endpoints/assets/getAssetInfo
func (c Client) GetAssetInfo(ctx context.Context, token string, id AssetID) (*AssetMetadata, error) {
	resp, err := c.do(ctx, http.MethodGet, path.Join("/assets", url.PathEscape(string(id))), token, nil)
	if err != nil {
		return nil, err
	}
	var md AssetMetadata
	if err := decodeFetch(resp, &md); err != nil {
		return nil, err
	}
	return &md, nil
}

// GetThumbnail downloads the preview-sized rendition of an asset.
//
// See: https://api.immich.app/endpoints/assets/viewAsset
func (c Client) GetThumbnail(ctx context.Context, token string, id AssetID) ([]byte, error) {
	p := path.Join("/assets", url.PathEscape(string(id)), "thumbnail")
	resp, err := c.do(ctx, http.MethodGet, p+"?size=preview", token, nil)
	if err != nil {
		return nil, &DownloadError{ID: id, Err: err}
	}
	if resp.StatusCode != http.StatusOK {
		return nil, &DownloadError{ID: id, Status: resp.StatusCode}
	}
	return resp.Body, nil
}
