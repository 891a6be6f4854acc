package app

import (
	"context"
	"errors"
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/dustin/go-humanize"

	"immich-wallpaper/internal/app/server"
	"immich-wallpaper/internal/immich"
)

// ListAlbums prints the albums of the configured account so the user can
// pick an album-id.
func ListAlbums(ctx context.Context, w io.Writer) error {
	conf, err := LoadConfig(ConfigPath())
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}
	remote := conf.Remote
	remote.UserAgent = appName
	client := immich.NewClient(immich.WithRemote(remote))
	return printAlbums(ctx, client, w)
}

func printAlbums(ctx context.Context, client *immich.Client, w io.Writer) error {
	token, err := client.EnsureSession(ctx)
	if err != nil {
		return err
	}
	defer client.Logout(context.WithoutCancel(ctx))

	albums, err := client.ListAlbums(ctx, token)
	if err != nil {
		return err
	}
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tPHOTOS\tNAME")
	for _, album := range albums {
		fmt.Fprintf(tw, "%s\t%s\t%s\n", album.ID, humanize.Comma(int64(album.AssetCount)), album.Name)
	}
	return tw.Flush()
}

// errNoControlAPI is returned when the running instance cannot be reached
// because the control API is disabled.
var errNoControlAPI = errors.New("control API disabled, set listen in the [server] section")

// Next asks the running instance to change the wallpaper now.
func Next(ctx context.Context, w io.Writer) error {
	conf, err := LoadConfig(ConfigPath())
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}
	if conf.Server.Listen == "" {
		return errNoControlAPI
	}
	status, err := server.Advance(ctx, conf.Server.Listen)
	if err != nil {
		return err
	}
	fmt.Fprintf(w, "%s (%d/%d)\n", status.CurrentID, status.Index+1, status.CatalogSize)
	return nil
}
