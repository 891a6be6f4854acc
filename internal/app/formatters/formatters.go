package formatters

import (
	"fmt"
	"slices"
	"strings"

	"immich-wallpaper/internal/immich"
)

// TextFormatter renders one line of text about a photo. An empty result
// means there is nothing to show.
type TextFormatter interface {
	Name() string
	Format(*immich.PhotoMetadata) string
}

// FormatConfig is a TextFormatter chosen by name in the configuration.
type FormatConfig struct {
	TextFormatter
}

var (
	// formatters is the list of available text formatters.
	formatters = []TextFormatter{
		new(FileName),
		new(ImageDateTime),
		new(ImageLocation),
		new(Description),
	}

	// formattersByName is a LUT of name to TextFormatter, built via [init].
	formattersByName = map[string]TextFormatter{}
)

// DefaultFormats are used when no formats are configured.
func DefaultFormats() []FormatConfig {
	return []FormatConfig{
		{new(FileName)},
		{new(ImageDateTime)},
		{new(ImageLocation)},
	}
}

// UnmarshalText implements toml.TextUnmarshaler.
func (f *FormatConfig) UnmarshalText(text []byte) error {
	name := strings.ToLower(strings.TrimSpace(string(text)))
	if fc, ok := formattersByName[name]; ok {
		f.TextFormatter = fc
		return nil
	}
	var validFormatters []string
	for key := range formattersByName {
		validFormatters = append(validFormatters, fmt.Sprintf("%q", key))
	}
	slices.Sort(validFormatters)
	return fmt.Errorf(
		"unsupported text formatter %q, expected one of %v",
		string(text), validFormatters,
	)
}

// MarshalText implements encoding.TextMarshaler.
func (f FormatConfig) MarshalText() ([]byte, error) {
	return []byte(f.TextFormatter.Name()), nil
}

// Lines formats the metadata with every formatter, skipping empty results.
func Lines(meta *immich.PhotoMetadata, fcs []FormatConfig) []string {
	if meta == nil {
		return nil
	}
	var lines []string
	for _, fc := range fcs {
		if fc.TextFormatter == nil {
			continue
		}
		if line := fc.Format(meta); line != "" {
			lines = append(lines, line)
		}
	}
	return lines
}

// FileName is the original file name of the photo.
type FileName struct{}

func (FileName) Name() string { return "file-name" }

func (FileName) Format(meta *immich.PhotoMetadata) string { return meta.OriginalFileName }

// Description is the photo's description, if any.
type Description struct{}

func (Description) Name() string { return "description" }

func (Description) Format(meta *immich.PhotoMetadata) string {
	return strings.TrimSpace(meta.Description)
}

func init() {
	for _, fc := range formatters {
		formattersByName[fc.Name()] = fc
	}
}
