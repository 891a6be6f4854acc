package formatters

import (
	"fmt"
	"net/url"
	"strconv"
	"strings"

	"immich-wallpaper/internal/immich"
)

// MapProvider is the site location links point to.
type MapProvider string

const (
	OpenStreetMap MapProvider = "openstreetmap"
	GoogleMaps    MapProvider = "googlemaps"
)

// UnmarshalText implements toml.TextUnmarshaler.
func (m *MapProvider) UnmarshalText(text []byte) error {
	switch p := MapProvider(strings.ToLower(strings.TrimSpace(string(text)))); p {
	case OpenStreetMap, GoogleMaps:
		*m = p
		return nil
	}
	return fmt.Errorf("unsupported map provider %q, expected one of [%s %s]", string(text), OpenStreetMap, GoogleMaps)
}

// MapLink returns a link showing the location on the provider's map, or ""
// without a location. Unknown providers fall back to OpenStreetMap.
func MapLink(provider MapProvider, loc *immich.Location) string {
	if loc == nil {
		return ""
	}
	lat := strconv.FormatFloat(loc.Latitude, 'f', 6, 64)
	lon := strconv.FormatFloat(loc.Longitude, 'f', 6, 64)
	switch provider {
	case GoogleMaps:
		q := url.Values{"api": {"1"}, "query": {lat + "," + lon}}
		return "https://www.google.com/maps/search/?" + q.Encode()
	default:
		q := url.Values{"mlat": {lat}, "mlon": {lon}}
		return fmt.Sprintf("https://www.openstreetmap.org/?%s#map=15/%s/%s", q.Encode(), lat, lon)
	}
}
