// Package fetcher talks to the public radar, advisory and outlook services.
package fetcher

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/bytedance/sonic"
	"github.com/go-resty/resty/v2"
	"github.com/mmcdole/gofeed"
	"github.com/paulmach/orb/geojson"
	"github.com/samber/lo"
	"go.uber.org/zap"

	"github.com/Zachdehooge/radar-dashboard/internal/advisory"
	"github.com/Zachdehooge/radar-dashboard/internal/radar"
)

const userAgent = "radar-dashboard/1.0 (github.com/Zachdehooge/radar-dashboard)"

// Options configures the upstream endpoints and HTTP behaviour.
type Options struct {
	TimestampsURL string
	FeedURL       string
	Timeout       time.Duration
	Retries       int
}

type Client struct {
	http   *resty.Client
	opts   Options
	logger *zap.Logger
}

func New(opts Options, logger *zap.Logger) *Client {
	client := resty.New().
		SetTimeout(opts.Timeout).
		SetRetryCount(opts.Retries).
		SetRetryWaitTime(1 * time.Second).
		SetRetryMaxWaitTime(5 * time.Second).
		SetHeader("User-Agent", userAgent)

	return &Client{
		http:   client,
		opts:   opts,
		logger: logger,
	}
}

// get fetches url and returns the body of a 2xx response.
func (c *Client) get(ctx context.Context, url string) ([]byte, error) {
	resp, err := c.http.R().SetContext(ctx).Get(url)
	if err != nil {
		return nil, fmt.Errorf("HTTP GET %s failed: %w", url, err)
	}
	if resp.IsError() {
		snip := resp.Body()
		if len(snip) > 200 {
			snip = snip[:200]
		}
		return nil, fmt.Errorf("%s returned HTTP %d: %s", url, resp.StatusCode(), string(snip))
	}
	c.logger.Debug("fetched",
		zap.String("url", url),
		zap.Int("bytes", len(resp.Body())),
		zap.Duration("elapsed", resp.Time()))
	return resp.Body(), nil
}

// Timestamps returns the most recent maxFrames radar timestamps, oldest first.
func (c *Client) Timestamps(ctx context.Context, maxFrames int) ([]radar.Timestamp, error) {
	body, err := c.get(ctx, c.opts.TimestampsURL)
	if err != nil {
		return nil, err
	}
	all, err := parseTimestamps(body)
	if err != nil {
		return nil, err
	}
	if maxFrames > 0 && len(all) > maxFrames {
		all = all[len(all)-maxFrames:]
	}
	return all, nil
}

// parseTimestamps accepts both the legacy maps.json array and the
// weather-maps.json document.
func parseTimestamps(body []byte) ([]radar.Timestamp, error) {
	var list []int64
	if err := sonic.Unmarshal(body, &list); err == nil {
		return lo.Map(list, func(v int64, _ int) radar.Timestamp { return radar.Timestamp(v) }), nil
	}

	var doc struct {
		Radar struct {
			Past []struct {
				Time int64 `json:"time"`
			} `json:"past"`
		} `json:"radar"`
	}
	if err := sonic.Unmarshal(body, &doc); err != nil {
		return nil, fmt.Errorf("failed to parse timestamps: %w", err)
	}
	out := make([]radar.Timestamp, 0, len(doc.Radar.Past))
	for _, p := range doc.Radar.Past {
		out = append(out, radar.Timestamp(p.Time))
	}
	return out, nil
}

// Feed returns the items of the advisory RSS feed in feed order.
func (c *Client) Feed(ctx context.Context) ([]advisory.Item, error) {
	body, err := c.get(ctx, c.opts.FeedURL)
	if err != nil {
		return nil, err
	}
	return parseFeed(body)
}

func parseFeed(body []byte) ([]advisory.Item, error) {
	feed, err := gofeed.NewParser().ParseString(string(body))
	if err != nil {
		return nil, fmt.Errorf("failed to parse feed: %w", err)
	}
	items := make([]advisory.Item, 0, len(feed.Items))
	for _, it := range feed.Items {
		id := it.Link
		if id == "" {
			id = it.GUID
		}
		if id == "" {
			continue
		}
		items = append(items, advisory.Item{ID: id, Title: it.Title})
	}
	return items, nil
}

// Payload returns the raw bytes at url, typically a zipped shapefile.
func (c *Client) Payload(ctx context.Context, url string) ([]byte, error) {
	return c.get(ctx, url)
}

// Boundaries loads a static GeoJSON boundary file from disk.
func Boundaries(path string) (*geojson.FeatureCollection, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read basemap: %w", err)
	}
	fc, err := geojson.UnmarshalFeatureCollection(data)
	if err != nil {
		return nil, fmt.Errorf("failed to parse basemap %s: %w", path, err)
	}
	return fc, nil
}
