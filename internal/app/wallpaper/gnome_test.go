package wallpaper_test

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"

	"github.com/BurntSushi/toml"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"immich-wallpaper/internal/app/wallpaper"
)

type recordedRunner struct {
	mu    sync.Mutex
	calls []string
	fail  string
}

func (r *recordedRunner) run(_ context.Context, name string, args ...string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	call := name + " " + strings.Join(args, " ")
	r.calls = append(r.calls, call)
	if r.fail != "" && strings.Contains(call, r.fail) {
		return errors.New("exit status 1")
	}
	return nil
}

func TestGNOME_Apply(t *testing.T) {
	r := &recordedRunner{}
	g := wallpaper.NewGNOME(func() wallpaper.Options {
		return wallpaper.Options{PictureOptions: "spanned", BackgroundColor: "#112233"}
	}, wallpaper.WithRunner(r.run))

	require.NoError(t, g.Apply(context.Background(), "/cache/my photo.jpg"))
	assert.Equal(t, []string{
		"gsettings set org.gnome.desktop.background picture-uri file:///cache/my%20photo.jpg",
		"gsettings set org.gnome.desktop.background picture-uri-dark file:///cache/my%20photo.jpg",
		"gsettings set org.gnome.desktop.background picture-options spanned",
		"gsettings set org.gnome.desktop.background primary-color #112233",
	}, r.calls)
}

func TestGNOME_Apply_Defaults(t *testing.T) {
	r := &recordedRunner{}
	g := wallpaper.NewGNOME(func() wallpaper.Options { return wallpaper.Options{} }, wallpaper.WithRunner(r.run))

	require.NoError(t, g.Apply(context.Background(), "/cache/a.jpg"))
	require.Len(t, r.calls, 3)
	assert.Equal(t, "gsettings set org.gnome.desktop.background picture-options zoom", r.calls[2])
}

func TestGNOME_Apply_ReadsOptionsEachTime(t *testing.T) {
	r := &recordedRunner{}
	opts := wallpaper.Options{PictureOptions: "zoom"}
	g := wallpaper.NewGNOME(func() wallpaper.Options { return opts }, wallpaper.WithRunner(r.run))

	require.NoError(t, g.Apply(context.Background(), "/cache/a.jpg"))
	opts.PictureOptions = "centered"
	require.NoError(t, g.Apply(context.Background(), "/cache/a.jpg"))
	assert.Equal(t, "gsettings set org.gnome.desktop.background picture-options centered", r.calls[len(r.calls)-1])
}

func TestGNOME_Apply_Failure(t *testing.T) {
	r := &recordedRunner{fail: "picture-uri file"}
	g := wallpaper.NewGNOME(func() wallpaper.Options { return wallpaper.Options{} }, wallpaper.WithRunner(r.run))

	err := g.Apply(context.Background(), "/cache/a.jpg")
	assert.ErrorContains(t, err, "failed to set picture-uri")
	assert.Len(t, r.calls, 1, "nothing else is set when the uri fails")
}

func TestOptions_Decode(t *testing.T) {
	var opts wallpaper.Options
	_, err := toml.Decode(`
picture-options = "Scaled"
background-color = "#A0B1C2"
`, &opts)
	require.NoError(t, err)
	assert.Equal(t, wallpaper.PictureOptions("scaled"), opts.PictureOptions)
	assert.Equal(t, wallpaper.Color("#a0b1c2"), opts.BackgroundColor)

	_, err = toml.Decode(`picture-options = "tiled"`, &opts)
	assert.ErrorContains(t, err, `unsupported picture options "tiled"`)

	for _, c := range []string{"red", "#12345", "#1234567", "123456"} {
		_, err = toml.Decode(`background-color = "`+c+`"`, &opts)
		assert.Error(t, err, "color %q", c)
	}
}
