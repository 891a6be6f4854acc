package immich

import (
	"context"
	"os"

	"github.com/dustin/go-humanize"
)

// ClientDiagnostics holds the information from the call to [Diagnostics].
type ClientDiagnostics struct {
	RemoteConfigured     bool
	RemoteConnectedError error
	LocalStoragePath     string
	LocalStorageUsed     string
	LocalStorageFiles    int
	LocalStorageError    error
	InMemoryEntries      int
}

// Diagnostics reports how the client is configured, how much local storage is
// in use and checks if the remote is reachable.
func (c *Client) Diagnostics(ctx context.Context) ClientDiagnostics {
	diagnostics := ClientDiagnostics{}
	_, noop := c.remote.(noopClient)
	diagnostics.RemoteConfigured = !noop
	diagnostics.RemoteConnectedError = c.remote.Ping(ctx)
	diagnostics.InMemoryEntries = c.cache.Len()

	if c.local != nil {
		diagnostics.LocalStoragePath = c.local.conf.LocalStoragePath
		var used uint64
		entries, err := os.ReadDir(c.local.conf.LocalStoragePath)
		diagnostics.LocalStorageError = err
		for _, entry := range entries {
			if info, err := entry.Info(); err == nil && info.Mode().IsRegular() {
				used += uint64(info.Size())
				diagnostics.LocalStorageFiles++
			}
		}
		diagnostics.LocalStorageUsed = humanize.Bytes(used)
	}
	return diagnostics
}
