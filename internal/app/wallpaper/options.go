package wallpaper

import (
	"fmt"
	"maps"
	"regexp"
	"slices"
	"strings"
)

// PictureOptions is how GNOME fits the wallpaper to the screen.
type PictureOptions string

const DefaultPictureOptions PictureOptions = "zoom"

// pictureOptions is the LUT of the fit modes accepted by
// org.gnome.desktop.background picture-options.
var pictureOptions = map[string]PictureOptions{
	"zoom":      "zoom",
	"centered":  "centered",
	"scaled":    "scaled",
	"stretched": "stretched",
	"spanned":   "spanned",
	"wallpaper": "wallpaper",
}

// UnmarshalText implements toml.TextUnmarshaler.
func (p *PictureOptions) UnmarshalText(text []byte) error {
	opt, ok := pictureOptions[strings.ToLower(strings.TrimSpace(string(text)))]
	if !ok {
		return fmt.Errorf(
			"unsupported picture options %q, expected one of %v",
			string(text), slices.Sorted(maps.Keys(pictureOptions)),
		)
	}
	*p = opt
	return nil
}

func (p PictureOptions) orDefault() PictureOptions {
	if p == "" {
		return DefaultPictureOptions
	}
	return p
}

// Color is a background color in "#RRGGBB" form.
type Color string

var colorRE = regexp.MustCompile(`^#[0-9a-fA-F]{6}$`)

// UnmarshalText implements toml.TextUnmarshaler.
func (c *Color) UnmarshalText(text []byte) error {
	s := strings.TrimSpace(string(text))
	if !colorRE.MatchString(s) {
		return fmt.Errorf("invalid color %q, expected #RRGGBB", string(text))
	}
	*c = Color(strings.ToLower(s))
	return nil
}

// Options are the display-only settings applied with every wallpaper.
type Options struct {
	PictureOptions  PictureOptions `toml:"picture-options"`
	BackgroundColor Color          `toml:"background-color"`
}
