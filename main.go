package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"

	"immich-wallpaper/internal/app"
)

const usage = `Usage: immich-wallpaper [command]

Commands:
  run      rotate wallpapers (default)
  albums   list the albums of the configured account
  next     change the wallpaper of the running instance now

The configuration file is read from $IMMICH_WALLPAPER_CONFIG or
$XDG_CONFIG_HOME/immich-wallpaper/config.toml.
`

func main() {
	logger := slog.New(slog.NewJSONHandler(os.Stderr, nil))
	slog.SetDefault(logger)

	flag.Usage = func() { fmt.Fprint(flag.CommandLine.Output(), usage) }
	flag.Parse()

	// A .env file only fills variables that are not already set.
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		slog.Warn("failed to load .env", "error", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	var err error
	switch cmd := flag.Arg(0); cmd {
	case "", "run":
		err = app.Run(ctx)
	case "albums":
		err = app.ListAlbums(ctx, os.Stdout)
	case "next":
		err = app.Next(ctx, os.Stdout)
	default:
		flag.Usage()
		os.Exit(2)
	}
	if err != nil {
		slog.Error("app failed", "error", err)
		os.Exit(1)
	}
}
