// Package notify shows scheduler events on the desktop.
package notify

import (
	"log/slog"
	"strings"
	"sync"

	"fyne.io/fyne/v2"

	"immich-wallpaper/internal/app/controller"
	"immich-wallpaper/internal/app/formatters"
	"immich-wallpaper/internal/immich"
)

const appTitle = "Immich Wallpaper"

// Preferences holds the display-only notification settings.
type Preferences struct {
	ShowLocation bool                      `toml:"show-location"`
	MapProvider  formatters.MapProvider    `toml:"map-provider"`
	Formats      []formatters.FormatConfig `toml:"notification-format"`
}

// Sender delivers a desktop notification. fyne.App implements it.
type Sender interface {
	SendNotification(*fyne.Notification)
}

// Notifier is a controller.Observer that tells the user where the current
// photo was taken. Without a Sender it logs instead.
type Notifier struct {
	conf func() Preferences
	send Sender

	mu      sync.Mutex
	current *immich.PhotoMetadata
}

// NewNotifier returns a Notifier. conf is read for every event. A nil send
// means there is no desktop session.
func NewNotifier(conf func() Preferences, send Sender) *Notifier {
	return &Notifier{conf: conf, send: send}
}

// Notify implements controller.Observer.
func (n *Notifier) Notify(e controller.Event) {
	switch e := e.(type) {
	case controller.WallpaperChanged:
		n.mu.Lock()
		n.current = e.Metadata
		n.mu.Unlock()
		conf := n.conf()
		if !conf.ShowLocation || e.Metadata == nil || e.Metadata.Location == nil {
			return
		}
		title, body := Message(e.Metadata, conf)
		n.deliver(title, body)
	case controller.CatalogEmpty:
		body := "No photos available. Check the album id or add photos."
		if e.AlbumID != "" {
			body = "No photos available in album " + string(e.AlbumID) + "."
		}
		n.deliver(appTitle, body)
	}
}

// Current returns the metadata of the photo on screen, or nil.
func (n *Notifier) Current() *immich.PhotoMetadata {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.current
}

func (n *Notifier) deliver(title, body string) {
	if n.send == nil {
		slog.Info("notification", "title", title, "body", body)
		return
	}
	n.send.SendNotification(fyne.NewNotification(title, body))
}

// Message builds the notification for a photo: the title is where it was
// taken and the body the configured lines plus a map link.
func Message(meta *immich.PhotoMetadata, conf Preferences) (string, string) {
	title := formatters.LocationText(meta.Location)
	if title == "" {
		title = appTitle
	}
	fcs := conf.Formats
	if len(fcs) == 0 {
		fcs = formatters.DefaultFormats()
	}
	var lines []string
	for _, line := range formatters.Lines(meta, fcs) {
		// The location is already the title.
		if line != title {
			lines = append(lines, line)
		}
	}
	if link := formatters.MapLink(conf.MapProvider, meta.Location); link != "" {
		lines = append(lines, link)
	}
	return title, strings.Join(lines, "\n")
}
