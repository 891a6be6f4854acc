package formatters

import (
	"fmt"

	"immich-wallpaper/internal/immich"
)

type ImageLocation struct{}

func (ImageLocation) Name() string { return "image-location" }

func (ImageLocation) Format(meta *immich.PhotoMetadata) string {
	return LocationText(meta.Location)
}

// LocationText names a place the way people say it: the state is only used
// for places in the United States.
func LocationText(loc *immich.Location) string {
	if loc == nil {
		return ""
	}
	const usa = "United States of America"
	city, state, country := loc.City, loc.State, loc.Country
	switch {
	case country != usa && country != "" && city != "":
		return fmt.Sprintf("%s, %s", city, country)
	case country != usa && country != "":
		return country
	case country == usa && city != "" && state != "":
		return fmt.Sprintf("%s, %s", city, state)
	case country == usa && city != "":
		return city
	case country == usa && state != "":
		return state
	case city != "":
		return city
	}
	return fmt.Sprintf("%.4f, %.4f", loc.Latitude, loc.Longitude)
}
