package server

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"

	"immich-wallpaper/internal/app/controller"
)

// Advance asks the instance serving the control API at addr to change the
// wallpaper now, and returns its status afterwards.
func Advance(ctx context.Context, addr string) (*controller.Status, error) {
	base := addr
	if !strings.Contains(base, "://") {
		base = "http://" + base
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, strings.TrimSuffix(base, "/")+"/advance", nil)
	if err != nil {
		return nil, err
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("is immich-wallpaper running? %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return nil, err
	}
	if resp.StatusCode != http.StatusOK {
		var e errorResponse
		if json.Unmarshal(body, &e) == nil && e.Error != "" {
			return nil, fmt.Errorf("advance failed: %s", e.Error)
		}
		return nil, fmt.Errorf("advance failed: %s", resp.Status)
	}
	var status controller.Status
	if err := json.Unmarshal(body, &status); err != nil {
		return nil, fmt.Errorf("malformed status: %w", err)
	}
	return &status, nil
}
