package app

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"sync"
	"time"

	"fyne.io/fyne/v2"
	fyneapp "fyne.io/fyne/v2/app"

	"immich-wallpaper/internal/app/controller"
	"immich-wallpaper/internal/app/notify"
	"immich-wallpaper/internal/app/server"
	"immich-wallpaper/internal/app/wallpaper"
	"immich-wallpaper/internal/immich"
)

const (
	appID = "io.github.immich-wallpaper"

	requestTimeout = 2 * time.Minute
	logoutTimeout  = 5 * time.Second
)

// wallpaperApp wires the configuration, the immich client and the rotation
// together.
type wallpaperApp struct {
	settings *settings
	ctrl     *controller.Controller

	clientMu  sync.Mutex
	client    *immich.Client
	clientKey sourceKey

	wg sync.WaitGroup
}

func newWallpaperApp(path string, conf Config) *wallpaperApp {
	a := &wallpaperApp{}
	a.settings = newSettings(path, conf, a.onConfigChange)
	return a
}

// source returns the immich client for conf, building a new one when the
// server, credentials or cache settings changed. The previous session is
// logged out in the background.
func (a *wallpaperApp) source(conf Config) *immich.Client {
	a.clientMu.Lock()
	defer a.clientMu.Unlock()
	key := conf.sourceKey()
	if a.client != nil && a.clientKey == key {
		return a.client
	}
	if old := a.client; old != nil {
		a.wg.Go(func() { logout(old) })
	}
	a.client = newClient(conf)
	a.clientKey = key
	return a.client
}

func newClient(conf Config) *immich.Client {
	remote := conf.Remote
	remote.UserAgent = appName
	remote.Timeout = requestTimeout
	client := immich.NewClient(
		immich.WithRemote(remote),
		immich.WithLocalStorage(conf.LocalStorage),
		immich.WithInMemoryCache(conf.InMemoryCache),
	)
	slog.Info("created immich client")
	return client
}

func logout(client *immich.Client) {
	ctx, cancel := context.WithTimeout(context.Background(), logoutTimeout)
	defer cancel()
	client.Logout(ctx)
}

// configure is read by the controller on start and every restart.
func (a *wallpaperApp) configure() controller.Config {
	conf := a.settings.Get()
	return conf.Controller(a.source(conf))
}

func (a *wallpaperApp) preferences() notify.Preferences {
	return a.settings.Get().Preferences
}

func (a *wallpaperApp) wallpaperOptions() wallpaper.Options {
	return a.settings.Get().Options
}

func (a *wallpaperApp) onConfigChange(prev, next Config) {
	if !prev.NeedsRestart(next) {
		slog.Debug("config change needs no restart")
		return
	}
	slog.Info("config changed, restarting rotation")
	if a.ctrl != nil {
		a.ctrl.Restart()
	}
}

// start runs the rotation, the config watcher and, if configured, the
// control API until ctx is done.
func (a *wallpaperApp) start(ctx context.Context, observers ...controller.Observer) {
	conf := a.settings.Get()
	if !wallpaper.Available() {
		slog.Warn("gsettings not found, wallpapers cannot be applied")
	}
	a.ctrl = controller.New(
		a.configure,
		controller.NewFileStateStore(conf.StateFile),
		wallpaper.NewGNOME(a.wallpaperOptions),
		controller.WithObserver(observers...),
	)
	a.ctrl.Start()

	a.wg.Go(func() {
		diagCtx, cancel := context.WithTimeout(ctx, logoutTimeout)
		defer cancel()
		diag := a.source(a.settings.Get()).Diagnostics(diagCtx)
		slog.Info("client diagnostics",
			"remote_configured", diag.RemoteConfigured,
			"remote_error", diag.RemoteConnectedError,
			"cache_dir", diag.LocalStoragePath,
			"cache_used", diag.LocalStorageUsed,
			"cache_files", diag.LocalStorageFiles,
			"cache_error", diag.LocalStorageError,
		)
	})
	a.wg.Go(func() {
		if err := a.settings.Watch(ctx); err != nil {
			slog.Error("config watcher stopped", "error", err)
		}
	})
	if conf.Server.Listen != "" {
		a.wg.Go(func() {
			if err := server.New(conf.Server.Listen, a.ctrl).Run(ctx); err != nil {
				slog.Error("control API failed", "error", err)
			}
		})
	}
}

// stop stops the rotation and logs out. The context passed to start must be
// done before calling stop.
func (a *wallpaperApp) stop() {
	a.ctrl.Stop()
	a.clientMu.Lock()
	client := a.client
	a.clientMu.Unlock()
	if client != nil {
		logout(client)
	}
	a.wg.Wait()
	slog.Info("stopped")
}

func (a *wallpaperApp) runHeadless(ctx context.Context) error {
	slog.Info("no desktop session, running without notifications")
	notifier := notify.NewNotifier(a.preferences, nil)
	a.start(ctx, notifier)
	<-ctx.Done()
	a.stop()
	return nil
}

func (a *wallpaperApp) runDesktop(ctx context.Context) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	fa := fyneapp.NewWithID(appID)
	notifier := notify.NewNotifier(a.preferences, fa)
	observers := []controller.Observer{notifier}
	if a.settings.Get().ShowPanelIcon {
		tray := notify.NewTray(fa, notify.Actions{
			Advance: func(ctx context.Context) error { return a.ctrl.Advance(ctx) },
			Restart: func() { a.ctrl.Restart() },
			Quit:    fa.Quit,
		}, notifier, a.preferences)
		if tray.Install() {
			observers = append(observers, tray)
		}
	}
	a.start(ctx, observers...)

	runDone := make(chan struct{})
	go func() {
		select {
		case <-ctx.Done():
			fyne.Do(fa.Quit)
		case <-runDone:
		}
	}()
	fa.Run()
	close(runDone)

	cancel()
	a.stop()
	return nil
}

// hasDesktop reports whether a graphical session is available.
func hasDesktop() bool {
	return os.Getenv("DISPLAY") != "" || os.Getenv("WAYLAND_DISPLAY") != ""
}

// Run loads the configuration and rotates wallpapers until ctx is done or
// the user quits from the tray.
func Run(ctx context.Context) error {
	path := ConfigPath()
	conf, err := LoadConfig(path)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}
	closer := SetupLogging(conf.Log)
	defer closer.Close()
	slog.Info("loaded config", "path", path, "config", *conf)

	a := newWallpaperApp(path, *conf)
	if hasDesktop() {
		return a.runDesktop(ctx)
	}
	return a.runHeadless(ctx)
}
