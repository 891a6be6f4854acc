package api

import (
	"errors"
	"fmt"
	"net/http"
)

var (
	// ErrConfigIncomplete is returned before any request is made when the
	// server URL, email or password is missing.
	ErrConfigIncomplete = errors.New("incomplete immich configuration")
	// ErrInvalidCredentials is returned when login is rejected with a 401.
	ErrInvalidCredentials = errors.New("invalid immich credentials")
	// ErrUnreachable wraps transport failures where no response was received.
	ErrUnreachable = errors.New("immich server unreachable")
	// ErrMalformedResponse is returned when a successful response cannot be
	// decoded or lacks a required field.
	ErrMalformedResponse = errors.New("malformed immich response")
	// ErrUnauthorized matches any FetchError or DownloadError caused by a 401,
	// meaning the held token is no longer valid.
	ErrUnauthorized = errors.New("immich token rejected")
)

// ServerError is an unexpected HTTP status from the login (or ping) endpoint.
type ServerError struct {
	Op     string
	Status int
}

func (e *ServerError) Error() string {
	return fmt.Sprintf("%s: unexpected status code %d", e.Op, e.Status)
}

// FetchError is returned when the catalog or asset metadata could not be
// retrieved, either due to a non-200 status or an unparseable body.
type FetchError struct {
	Status int
	// Body is a prefix of the response body.
	Body string
	Err  error
}

func (e *FetchError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("fetch failed with status %d: %v", e.Status, e.Err)
	}
	return fmt.Sprintf("fetch failed with status %d: %s", e.Status, e.Body)
}

func (e *FetchError) Unwrap() error { return e.Err }

func (e *FetchError) Is(target error) bool {
	return target == ErrUnauthorized && e.Status == http.StatusUnauthorized
}

// DownloadError is returned when an asset thumbnail could not be downloaded
// or is not a decodable image.
type DownloadError struct {
	ID     AssetID
	Status int
	Err    error
}

func (e *DownloadError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("download of asset %s failed (status %d): %v", e.ID, e.Status, e.Err)
	}
	return fmt.Sprintf("download of asset %s failed with status %d", e.ID, e.Status)
}

func (e *DownloadError) Unwrap() error { return e.Err }

func (e *DownloadError) Is(target error) bool {
	return target == ErrUnauthorized && e.Status == http.StatusUnauthorized
}
