package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/url"
	"path"
)

// AlbumID is the immich ID for an album, usually in the shape of UUIDv4.
type AlbumID string

// Album contains relevant album information retrieved from the immich API.
//
// See: https://api.immich.app/models/AlbumResponseDto
type Album struct {
	Name        string  `json:"albumName"`
	Description string  `json:"description"`
	ID          AlbumID `json:"id"`
	Order       string  `json:"order"`
	AssetCount  int     `json:"assetCount"`
}

// GetAlbums retrieves all albums visible to the token.
//
// See: https://api.immich.app/endpoints/albums/getAllAlbums
func (c Client) GetAlbums(ctx context.Context, token string) ([]Album, error) {
	resp, err := c.do(ctx, http.MethodGet, "/albums", token, nil)
	if err != nil {
		return nil, err
	}
	var albums []Album
	if err := decodeFetch(resp, &albums); err != nil {
		return nil, err
	}
	return albums, nil
}

// GetAlbumAssets retrieves the album asset metadata for the provided album ID.
// The response is an object with an "assets" array.
//
// See: https://api.immich.app/endpoints/albums/getAlbumInfo
func (c Client) GetAlbumAssets(ctx context.Context, token string, id AlbumID) ([]AssetMetadata, error) {
	p := path.Join("/albums", url.PathEscape(string(id)))
	resp, err := c.do(ctx, http.MethodGet, p, token, nil)
	if err != nil {
		return nil, err
	}
	var ar struct {
		Assets []AssetMetadata `json:"assets"`
	}
	if err := decodeFetch(resp, &ar); err != nil {
		return nil, err
	}
	return ar.Assets, nil
}

// decodeFetch is a helper function to turn a non-200 status or an
// undecodable body into a *FetchError.
func decodeFetch(resp *Response, v any) error {
	if resp.StatusCode != http.StatusOK {
		return &FetchError{Status: resp.StatusCode, Body: bodyPrefix(resp.Body)}
	}
	if err := json.Unmarshal(resp.Body, v); err != nil {
		return &FetchError{Status: resp.StatusCode, Body: bodyPrefix(resp.Body), Err: errors.Join(ErrMalformedResponse, err)}
	}
	return nil
}
