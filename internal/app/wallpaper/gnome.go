// Package wallpaper sets the desktop background.
package wallpaper

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"os/exec"
	"path/filepath"
	"strings"
)

const gnomeBackgroundSchema = "org.gnome.desktop.background"

// Runner runs an external command.
type Runner func(ctx context.Context, name string, args ...string) error

// execRunner runs the command and includes its output in the error.
func execRunner(ctx context.Context, name string, args ...string) error {
	out, err := exec.CommandContext(ctx, name, args...).CombinedOutput()
	if err != nil {
		if msg := strings.TrimSpace(string(out)); msg != "" {
			return fmt.Errorf("%s: %w: %s", name, err, msg)
		}
		return fmt.Errorf("%s: %w", name, err)
	}
	return nil
}

// GNOME applies wallpapers through gsettings.
type GNOME struct {
	options func() Options
	run     Runner
}

// gnomeOpt is used for configuring [GNOME].
type gnomeOpt func(*GNOME)

// WithRunner replaces how gsettings is executed.
func WithRunner(run Runner) gnomeOpt {
	return func(g *GNOME) { g.run = run }
}

// NewGNOME returns a GNOME applier. options is read on every Apply, so
// display changes take effect with the next wallpaper.
func NewGNOME(options func() Options, opts ...gnomeOpt) *GNOME {
	g := &GNOME{options: options, run: execRunner}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

// Available reports whether gsettings can be found.
func Available() bool {
	_, err := exec.LookPath("gsettings")
	return err == nil
}

// Apply sets the image at path as both the light and dark wallpaper along
// with the configured fit mode and fill color.
func (g *GNOME) Apply(ctx context.Context, path string) error {
	abs, err := filepath.Abs(path)
	if err != nil {
		return err
	}
	uri := (&url.URL{Scheme: "file", Path: abs}).String()
	opts := g.options()

	settings := [][2]string{
		{"picture-uri", uri},
		{"picture-uri-dark", uri},
		{"picture-options", string(opts.PictureOptions.orDefault())},
	}
	if opts.BackgroundColor != "" {
		settings = append(settings, [2]string{"primary-color", string(opts.BackgroundColor)})
	}

	var errs []error
	for _, kv := range settings {
		if err := g.run(ctx, "gsettings", "set", gnomeBackgroundSchema, kv[0], kv[1]); err != nil {
			errs = append(errs, fmt.Errorf("failed to set %s: %w", kv[0], err))
			// Without the uri there is nothing left to style.
			if kv[0] == "picture-uri" {
				break
			}
		}
	}
	if err := errors.Join(errs...); err != nil {
		return err
	}
	slog.Info("set wallpaper",
		"path", abs,
		"picture_options", opts.PictureOptions.orDefault(),
		"background_color", opts.BackgroundColor,
	)
	return nil
}
