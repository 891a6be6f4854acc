package notify

import (
	"context"
	"net/url"
	"strings"
	"sync"
	"testing"
	"time"

	"fyne.io/fyne/v2"
	"fyne.io/fyne/v2/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"immich-wallpaper/internal/app/controller"
	"immich-wallpaper/internal/app/formatters"
	"immich-wallpaper/internal/immich"
)

type recordingSender struct {
	mu   sync.Mutex
	sent []*fyne.Notification
}

func (r *recordingSender) SendNotification(n *fyne.Notification) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.sent = append(r.sent, n)
}

var paris = &immich.PhotoMetadata{
	ID:               "a",
	OriginalFileName: "IMG_0001.jpg",
	Location:         &immich.Location{Latitude: 48.8584, Longitude: 2.2945, City: "Paris", Country: "France"},
}

func TestNotifier_ShowLocation(t *testing.T) {
	sender := &recordingSender{}
	conf := Preferences{ShowLocation: true, MapProvider: formatters.OpenStreetMap}
	n := NewNotifier(func() Preferences { return conf }, sender)

	n.Notify(controller.WallpaperChanged{Path: "/cache/a.jpg", Metadata: paris})
	require.Len(t, sender.sent, 1)
	assert.Equal(t, "Paris, France", sender.sent[0].Title)
	assert.Equal(t, "IMG_0001.jpg\n"+formatters.MapLink(formatters.OpenStreetMap, paris.Location), sender.sent[0].Content)
	assert.Same(t, paris, n.Current())
}

func TestNotifier_Gated(t *testing.T) {
	sender := &recordingSender{}
	conf := Preferences{ShowLocation: false}
	n := NewNotifier(func() Preferences { return conf }, sender)

	n.Notify(controller.WallpaperChanged{Metadata: paris})
	assert.Empty(t, sender.sent, "show-location is off")

	conf.ShowLocation = true
	n.Notify(controller.WallpaperChanged{Metadata: &immich.PhotoMetadata{OriginalFileName: "x.jpg"}})
	n.Notify(controller.WallpaperChanged{})
	assert.Empty(t, sender.sent, "nothing to show without a location")
	assert.Nil(t, n.Current())

	n.Notify(controller.StateChanged{From: controller.Idle, To: controller.Authenticating})
	assert.Empty(t, sender.sent)
}

func TestNotifier_CatalogEmpty(t *testing.T) {
	sender := &recordingSender{}
	n := NewNotifier(func() Preferences { return Preferences{} }, sender)

	n.Notify(controller.CatalogEmpty{AlbumID: "album-1"})
	require.Len(t, sender.sent, 1)
	assert.Contains(t, sender.sent[0].Content, "album-1")
}

func TestNotifier_Headless(t *testing.T) {
	n := NewNotifier(func() Preferences { return Preferences{ShowLocation: true} }, nil)
	n.Notify(controller.WallpaperChanged{Metadata: paris})
	assert.Same(t, paris, n.Current())
}

func TestMessage_NoDuplicateLocation(t *testing.T) {
	title, body := Message(paris, Preferences{
		MapProvider: formatters.GoogleMaps,
		Formats:     []formatters.FormatConfig{{TextFormatter: formatters.ImageLocation{}}},
	})
	assert.Equal(t, "Paris, France", title)
	assert.True(t, strings.HasPrefix(body, "https://www.google.com/maps/"), body)
}

type urlApp struct {
	fyne.App
	mu     sync.Mutex
	opened []string
}

func (a *urlApp) OpenURL(u *url.URL) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.opened = append(a.opened, u.String())
	return nil
}

func TestTray(t *testing.T) {
	a := &urlApp{App: test.NewTempApp(t)}
	advanced := make(chan struct{}, 1)
	restarted := make(chan struct{}, 1)
	notifier := NewNotifier(func() Preferences { return Preferences{} }, nil)
	tray := NewTray(a, Actions{
		Advance: func(context.Context) error { advanced <- struct{}{}; return nil },
		Restart: func() { restarted <- struct{}{} },
		Quit:    func() {},
	}, notifier, func() Preferences { return Preferences{MapProvider: formatters.OpenStreetMap} })

	assert.False(t, tray.Install(), "the test driver has no tray")
	assert.True(t, tray.next.Disabled)
	assert.True(t, tray.location.Disabled)

	tray.Notify(controller.StateChanged{From: controller.FetchingCatalog, To: controller.Active})
	assert.Equal(t, "Status: active", tray.status.Label)
	assert.False(t, tray.next.Disabled)

	tray.next.Action()
	select {
	case <-advanced:
	case <-time.After(time.Second):
		t.Fatal("advance was not called")
	}

	for _, obs := range []controller.Observer{notifier, tray} {
		obs.Notify(controller.WallpaperChanged{Metadata: paris})
	}
	assert.False(t, tray.location.Disabled)
	tray.location.Action()
	require.Len(t, a.opened, 1)
	assert.Contains(t, a.opened[0], "openstreetmap.org")

	tray.Notify(controller.StateChanged{From: controller.Active, To: controller.RetryWait})
	assert.True(t, tray.next.Disabled)
}
