package notify

import (
	"context"
	"log/slog"
	"net/url"
	"sync"
	"time"

	"fyne.io/fyne/v2"
	"fyne.io/fyne/v2/driver/desktop"

	"immich-wallpaper/internal/app/controller"
	"immich-wallpaper/internal/app/formatters"
)

const advanceTimeout = 2 * time.Minute

// Actions are what the tray menu can trigger.
type Actions struct {
	Advance func(ctx context.Context) error
	Restart func()
	Quit    func()
}

// Tray is the system tray menu. It is a controller.Observer so the menu
// follows the scheduler.
type Tray struct {
	app      fyne.App
	actions  Actions
	notifier *Notifier
	conf     func() Preferences

	mu        sync.Mutex
	installed bool
	menu      *fyne.Menu
	status    *fyne.MenuItem
	next      *fyne.MenuItem
	location  *fyne.MenuItem
}

// NewTray builds the menu. The notifier provides the current photo's
// location.
func NewTray(a fyne.App, actions Actions, notifier *Notifier, conf func() Preferences) *Tray {
	t := &Tray{app: a, actions: actions, notifier: notifier, conf: conf}
	t.status = fyne.NewMenuItem(statusLabel(controller.Idle), nil)
	t.status.Disabled = true
	t.next = fyne.NewMenuItem("Next Wallpaper", t.advance)
	t.next.Disabled = true
	t.location = fyne.NewMenuItem("Open Location", t.openLocation)
	t.location.Disabled = true
	t.menu = fyne.NewMenu(appTitle,
		t.status,
		fyne.NewMenuItemSeparator(),
		t.next,
		fyne.NewMenuItem("Reload", func() { go t.actions.Restart() }),
		t.location,
		fyne.NewMenuItemSeparator(),
		fyne.NewMenuItem("Quit", func() { t.actions.Quit() }),
	)
	return t
}

// Install shows the menu in the system tray. It reports false when the
// driver has no tray.
func (t *Tray) Install() bool {
	desk, ok := t.app.(desktop.App)
	if !ok {
		slog.Warn("tray icon not supported on this platform")
		return false
	}
	desk.SetSystemTrayMenu(t.menu)
	t.mu.Lock()
	t.installed = true
	t.mu.Unlock()
	return true
}

// Notify implements controller.Observer.
func (t *Tray) Notify(e controller.Event) {
	var update func()
	switch e := e.(type) {
	case controller.StateChanged:
		update = func() {
			t.status.Label = statusLabel(e.To)
			t.next.Disabled = e.To != controller.Active
		}
	case controller.WallpaperChanged:
		update = func() {
			t.location.Disabled = e.Metadata == nil || e.Metadata.Location == nil
		}
	default:
		return
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	if !t.installed {
		update()
		return
	}
	fyne.Do(func() {
		update()
		t.menu.Refresh()
	})
}

func (t *Tray) advance() {
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), advanceTimeout)
		defer cancel()
		if err := t.actions.Advance(ctx); err != nil {
			slog.Warn("failed to advance wallpaper", "error", err)
		}
	}()
}

func (t *Tray) openLocation() {
	meta := t.notifier.Current()
	if meta == nil || meta.Location == nil {
		return
	}
	u, err := url.Parse(formatters.MapLink(t.conf().MapProvider, meta.Location))
	if err != nil {
		slog.Error("invalid map link", "error", err)
		return
	}
	if err := t.app.OpenURL(u); err != nil {
		slog.Error("failed to open map link", "url", u, "error", err)
	}
}

func statusLabel(s controller.State) string {
	return "Status: " + s.String()
}
