// Package assets checks configured image keys against the Rich Presence
// assets uploaded to a Discord application.
//
// Discord silently shows a blank image for an unknown key, so a typo in
// config is otherwise invisible. The asset list is fetched from Discord's
// public application endpoint and cached on disk; a failed fetch falls back
// to a stale cache before giving up.
package assets

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"slices"
	"strings"
	"time"

	"github.com/hashicorp/go-retryablehttp"
	"tools.zach/dev/editorcord/internal/atomicfile"
)

// DefaultEndpoint lists an application's assets; %s is the application ID.
const DefaultEndpoint = "https://discord.com/api/v9/oauth2/applications/%s/assets"

const maxResponseBytes = 1 << 20

// Asset is one uploaded Rich Presence image.
type Asset struct {
	ID   string `json:"id"`
	Name string `json:"name"`
	Type int    `json:"type"`
}

// cacheFile is the on-disk form of a fetched asset list.
type cacheFile struct {
	AppID     string    `json:"app_id"`
	FetchedAt time.Time `json:"fetched_at"`
	Names     []string  `json:"names"`
}

// Checker fetches and caches asset names.
type Checker struct {
	// Endpoint is a format string taking the application ID.
	Endpoint string
	// CachePath is where the asset list is cached. Empty disables caching.
	CachePath string
	// MaxAge is how long a cached list is used without refetching.
	MaxAge time.Duration

	client *retryablehttp.Client
	now    func() time.Time
}

// NewChecker returns a Checker against [DefaultEndpoint].
func NewChecker(cachePath string, maxAge time.Duration) *Checker {
	client := retryablehttp.NewClient()
	client.RetryMax = 2
	client.RetryWaitMax = 5 * time.Second
	client.HTTPClient.Timeout = 10 * time.Second
	client.Logger = nil
	return &Checker{
		Endpoint:  DefaultEndpoint,
		CachePath: cachePath,
		MaxAge:    maxAge,
		client:    client,
		now:       time.Now,
	}
}

// Names returns the asset names for appID, from cache when fresh. When the
// fetch fails and a stale cache exists, the stale names are returned along
// with the fetch error.
func (c *Checker) Names(ctx context.Context, appID string) ([]string, error) {
	cached, cacheErr := c.readCache(appID)
	if cacheErr == nil && c.now().Sub(cached.FetchedAt) < c.MaxAge {
		return cached.Names, nil
	}

	names, err := c.fetch(ctx, appID)
	if err != nil {
		if cacheErr == nil {
			return cached.Names, fmt.Errorf("using stale asset cache: %w", err)
		}
		return nil, err
	}

	if c.CachePath != "" {
		cf := cacheFile{AppID: appID, FetchedAt: c.now().UTC(), Names: names}
		if werr := atomicfile.WriteJSON(c.CachePath, cf, 0o644); werr != nil {
			return names, fmt.Errorf("writing asset cache: %w", werr)
		}
	}
	return names, nil
}

func (c *Checker) fetch(ctx context.Context, appID string) ([]string, error) {
	url := fmt.Sprintf(c.Endpoint, appID)
	req, err := retryablehttp.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, err
	}
	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("GET %s: %w", url, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("GET %s: status %d", url, resp.StatusCode)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes+1))
	if err != nil {
		return nil, fmt.Errorf("reading assets response: %w", err)
	}
	if len(body) > maxResponseBytes {
		return nil, fmt.Errorf("assets response exceeds %d bytes", maxResponseBytes)
	}

	var list []Asset
	if err := json.Unmarshal(body, &list); err != nil {
		return nil, fmt.Errorf("decoding assets response: %w", err)
	}
	names := make([]string, 0, len(list))
	for _, a := range list {
		names = append(names, a.Name)
	}
	slices.Sort(names)
	return names, nil
}

func (c *Checker) readCache(appID string) (cacheFile, error) {
	var cf cacheFile
	if c.CachePath == "" {
		return cf, os.ErrNotExist
	}
	data, err := os.ReadFile(c.CachePath)
	if err != nil {
		return cf, err
	}
	if err := json.Unmarshal(data, &cf); err != nil {
		return cf, err
	}
	if cf.AppID != appID {
		return cf, errors.New("asset cache belongs to another application")
	}
	return cf, nil
}

// Missing returns the keys that are not uploaded assets. Empty keys and
// external image URLs are skipped since Discord resolves those itself.
func Missing(names []string, keys ...string) []string {
	var out []string
	for _, k := range keys {
		if k == "" || isExternal(k) || slices.Contains(out, k) {
			continue
		}
		if !slices.Contains(names, k) {
			out = append(out, k)
		}
	}
	return out
}

func isExternal(key string) bool {
	return strings.HasPrefix(key, "https://") ||
		strings.HasPrefix(key, "http://") ||
		strings.HasPrefix(key, "mp:")
}

// Validate logs a warning for every key that does not name an uploaded
// asset. Lookup failures are logged and otherwise ignored.
func (c *Checker) Validate(ctx context.Context, appID string, keys []string, log *slog.Logger) {
	names, err := c.Names(ctx, appID)
	if err != nil {
		log.Warn("asset check", "error", err)
		if names == nil {
			return
		}
	}
	for _, k := range Missing(names, keys...) {
		log.Warn("image key is not an uploaded asset", "key", k, "app_id", appID)
	}
}
