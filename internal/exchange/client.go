// Package exchange is the REST boundary to the venue: spot asset universe
// lookups and agent approvals. An empty base URL puts the client in offline
// mode serving the static assets file only.
package exchange

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net"
	"net/http"
	"sync"
	"time"

	"ezdawg-sip-go/internal/models"

	"go.uber.org/zap"
	"golang.org/x/net/http2"
)

// ActionSigner signs canonical action messages with a wallet key. The
// signature package provides a local in-process implementation; callers that
// keep keys elsewhere supply their own.
type ActionSigner interface {
	Address() string
	SignAction(message string) ([]byte, error)
}

type Client struct {
	baseURL      string
	httpClient   http.Client
	universeTTL  time.Duration
	staticAssets []models.SpotAsset

	mu        sync.Mutex
	universe  []models.SpotAsset
	fetchedAt time.Time
}

func NewClient(cfg models.ExchangeConfig) (*Client, error) {
	httpClient, err := createCustomHttpClient(cfg.Timeout)
	if err != nil {
		return nil, fmt.Errorf("unable to create custom http client: %w", err)
	}

	client := &Client{
		baseURL:     cfg.BaseURL,
		httpClient:  httpClient,
		universeTTL: cfg.UniverseTTL,
	}

	if cfg.AssetsFile != "" {
		assets, err := LoadStaticUniverse(cfg.AssetsFile)
		if err != nil {
			if cfg.BaseURL == "" {
				return nil, fmt.Errorf("offline mode requires a readable assets file: %w", err)
			}
			zap.L().Warn("Static assets file not loaded, venue is the only universe source",
				zap.String("file", cfg.AssetsFile),
				zap.Error(err))
		} else {
			client.staticAssets = assets
		}
	} else if cfg.BaseURL == "" {
		return nil, fmt.Errorf("exchange client needs a base URL or an assets file")
	}

	if cfg.BaseURL == "" {
		zap.L().Info("Exchange client in offline mode",
			zap.Int("static_assets", len(client.staticAssets)))
	} else {
		zap.L().Info("Exchange client initialized", zap.String("base_url", cfg.BaseURL))
	}

	return client, nil
}

func createCustomHttpClient(timeout time.Duration) (http.Client, error) {
	tr := &http.Transport{
		ResponseHeaderTimeout: 30 * time.Second,
		Proxy:                 http.ProxyFromEnvironment,
		DialContext: (&net.Dialer{
			KeepAlive: 30 * time.Second,
			DualStack: true,
			Timeout:   15 * time.Second,
		}).DialContext,
		MaxIdleConns:          10,
		IdleConnTimeout:       90 * time.Second,
		TLSHandshakeTimeout:   10 * time.Second,
		MaxIdleConnsPerHost:   5,
		ExpectContinueTimeout: 5 * time.Second,
	}

	if err := http2.ConfigureTransport(tr); err != nil {
		return http.Client{}, err
	}

	return http.Client{
		Transport: tr,
		Timeout:   timeout,
	}, nil
}

func (c *Client) postJSON(ctx context.Context, path string, payload any, out any) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("unable to encode request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("unable to build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("request to %s failed: %w", path, err)
	}
	defer func() {
		if err := resp.Body.Close(); err != nil {
			zap.L().Warn("Failed to close response body", zap.Error(err))
		}
	}()

	if resp.StatusCode != http.StatusOK {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("unexpected status %d from %s: %s", resp.StatusCode, path, string(snippet))
	}

	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("unable to decode response from %s: %w", path, err)
	}
	return nil
}
