package immich

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"time"

	mapset "github.com/deckarep/golang-set/v2"
	"github.com/disintegration/imaging"
	"github.com/dustin/go-humanize"
	_ "golang.org/x/image/webp"

	"immich-wallpaper/internal/fileutil"
)

// cacheExt is the extension of cached previews. Immich serves previews as
// JPEG.
const cacheExt = ".jpg"

const staleTempAge = 10 * time.Minute

// localStorage stores one preview per asset in a directory, named
// deterministically by asset id.
type localStorage struct {
	conf LocalConfig
}

func newLocalStorage(conf LocalConfig) *localStorage {
	return &localStorage{conf}
}

// path returns the cache file of an asset. Ids that could escape the cache
// directory are rejected.
func (l *localStorage) path(id AssetID) (string, error) {
	s := string(id)
	if s == "" || strings.Contains(s, "..") || strings.ContainsAny(s, `/\`) {
		return "", fmt.Errorf("invalid asset id %q", s)
	}
	return filepath.Join(l.conf.LocalStoragePath, s+cacheExt), nil
}

// LocalPath returns where the preview of an asset is (or would be) cached.
func (c *Client) LocalPath(id AssetID) (string, error) {
	if c.local == nil {
		return "", errNoLocalStorage
	}
	return c.local.path(id)
}

// EnsureLocal makes sure the preview of the asset is in local storage and
// returns its path. A file that is already cached is reused; otherwise the
// preview is downloaded, checked to be a decodable image and written
// atomically, so a reader never sees a partial file.
func (c *Client) EnsureLocal(ctx context.Context, token string, md AssetMetadata) (string, error) {
	if c.local == nil {
		return "", errNoLocalStorage
	}
	log := slog.With("id", md.ID, "name", md.Name)
	p, err := c.local.path(md.ID)
	if err != nil {
		return "", err
	}
	if info, err := os.Stat(p); err == nil && info.Mode().IsRegular() && info.Size() > 0 {
		log.Debug("found asset in local storage", "size", humanize.Bytes(uint64(info.Size())))
		return p, nil
	}

	log.Debug("fetching asset from remote")
	data, err := c.remote.GetThumbnail(ctx, token, md.ID)
	if err != nil {
		return "", err
	}
	if _, err := imaging.Decode(bytes.NewReader(data)); err != nil {
		return "", &DownloadError{ID: md.ID, Status: 200, Err: fmt.Errorf("not an image: %w", err)}
	}
	if err := fileutil.WriteFileAtomic(p, data, 0o644); err != nil {
		return "", fmt.Errorf("failed to store asset %s: %w", md.ID, err)
	}
	log.Info("fetched asset from remote", "size", humanize.Bytes(uint64(len(data))))
	return p, nil
}

// cachedFile is a file found in local storage.
type cachedFile struct {
	path    string
	id      AssetID
	size    int64
	modTime time.Time
}

// Prune removes cached previews of assets that are not in the catalog, oldest
// first, until local storage is within its configured size. Stale temporary
// files are removed as well. keep (usually the current wallpaper)
// is never removed. It returns how many files were removed. Nothing more is
// removed once ctx is done.
func (c *Client) Prune(ctx context.Context, catalog Catalog, keep string) (int, error) {
	if c.local == nil {
		return 0, errNoLocalStorage
	}
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	limit := uint64(c.local.conf.LocalStorageSize)
	entries, err := os.ReadDir(c.local.conf.LocalStoragePath)
	if err != nil {
		return 0, err
	}

	known := mapset.NewThreadUnsafeSet(catalog.IDs()...)
	var (
		total      uint64
		candidates []cachedFile
		removed    int
	)
	for _, entry := range entries {
		if ctx.Err() != nil {
			return removed, ctx.Err()
		}
		if entry.IsDir() {
			continue
		}
		p := filepath.Join(c.local.conf.LocalStoragePath, entry.Name())
		info, err := entry.Info()
		if err != nil {
			continue
		}
		if fileutil.IsTemp(entry.Name()) {
			// Only temp files old enough to not belong to a running download.
			if time.Since(info.ModTime()) > staleTempAge && os.Remove(p) == nil {
				removed++
			}
			continue
		}
		if filepath.Ext(entry.Name()) != cacheExt {
			continue
		}
		total += uint64(info.Size())
		id := AssetID(strings.TrimSuffix(entry.Name(), cacheExt))
		if p == keep || known.Contains(id) {
			continue
		}
		candidates = append(candidates, cachedFile{path: p, id: id, size: info.Size(), modTime: info.ModTime()})
	}
	if limit == 0 || total <= limit {
		return removed, nil
	}

	slices.SortFunc(candidates, func(a, b cachedFile) int { return a.modTime.Compare(b.modTime) })
	for _, f := range candidates {
		if total <= limit {
			break
		}
		if ctx.Err() != nil {
			return removed, ctx.Err()
		}
		if err := os.Remove(f.path); err != nil {
			slog.Debug("failed to prune cached asset", "id", f.id, "error", err)
			continue
		}
		total -= uint64(f.size)
		removed++
	}
	slog.Info("pruned local storage",
		"removed", removed,
		"size", humanize.Bytes(total),
		"limit", humanize.Bytes(limit))
	return removed, nil
}
