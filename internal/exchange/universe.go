package exchange

import (
	"context"
	"errors"
	"time"

	"ezdawg-sip-go/internal/models"

	"go.uber.org/zap"
)

// ErrUniverseUnavailable means neither the venue nor the static assets file
// could produce an asset universe.
var ErrUniverseUnavailable = errors.New("asset universe unavailable")

type infoRequest struct {
	Type string `json:"type"`
	User string `json:"user,omitempty"`
}

type spotMetaResponse struct {
	Universe []models.SpotAsset `json:"universe"`
}

// SpotMeta fetches the venue's spot asset universe (names with their integer
// indexes) straight from the info endpoint, bypassing the snapshot.
func (c *Client) SpotMeta(ctx context.Context) ([]models.SpotAsset, error) {
	var out spotMetaResponse
	if err := c.postJSON(ctx, "/info", infoRequest{Type: "spotMeta"}, &out); err != nil {
		return nil, err
	}

	zap.L().Debug("Fetched spot universe", zap.Int("count", len(out.Universe)))
	return out.Universe, nil
}

// Universe returns the spot asset universe. Online it serves a snapshot
// refreshed lazily after the TTL; a failed refresh falls back to the stale
// snapshot, then to the static assets file. Offline it serves the static
// file directly.
func (c *Client) Universe(ctx context.Context) ([]models.SpotAsset, error) {
	if c.baseURL == "" {
		if len(c.staticAssets) == 0 {
			return nil, ErrUniverseUnavailable
		}
		return c.staticAssets, nil
	}

	c.mu.Lock()
	if c.universe != nil && time.Since(c.fetchedAt) < c.universeTTL {
		snapshot := c.universe
		c.mu.Unlock()
		return snapshot, nil
	}
	stale := c.universe
	c.mu.Unlock()

	// Concurrent refreshes are harmless; last writer wins.
	assets, err := c.SpotMeta(ctx)
	if err != nil {
		if stale != nil {
			zap.L().Warn("Universe refresh failed, serving stale snapshot", zap.Error(err))
			return stale, nil
		}
		if len(c.staticAssets) > 0 {
			zap.L().Warn("Universe refresh failed, serving static assets file", zap.Error(err))
			return c.staticAssets, nil
		}
		return nil, ErrUniverseUnavailable
	}

	c.mu.Lock()
	c.universe = assets
	c.fetchedAt = time.Now()
	c.mu.Unlock()

	return assets, nil
}
