// Package widget runs one dashboard instance.
//
// All scheduler, reconciler and outlook state is owned by the goroutine
// running Run. Fetches run on their own goroutines and hand their results
// back to that loop as closures, so completions may arrive in any order but
// are never applied concurrently.
package widget

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geojson"
	"go.uber.org/zap"

	"github.com/Zachdehooge/radar-dashboard/internal/advisory"
	"github.com/Zachdehooge/radar-dashboard/internal/config"
	"github.com/Zachdehooge/radar-dashboard/internal/fetcher"
	"github.com/Zachdehooge/radar-dashboard/internal/mapview"
	"github.com/Zachdehooge/radar-dashboard/internal/metrics"
	"github.com/Zachdehooge/radar-dashboard/internal/radar"
	"github.com/Zachdehooge/radar-dashboard/internal/shapefile"
)

// FrameInterval is the animation cadence.
const FrameInterval = 500 * time.Millisecond

// DefaultUpdateInterval is used when the configured refresh interval is not positive.
const DefaultUpdateInterval = 10 * time.Minute

const (
	basemapLayerID = "basemap"
	markersLayerID = "markers"
)

var ErrStopped = errors.New("widget stopped")

// Source is the set of upstream fetches the widget needs.
type Source interface {
	Timestamps(ctx context.Context, maxFrames int) ([]radar.Timestamp, error)
	Feed(ctx context.Context) ([]advisory.Item, error)
	Payload(ctx context.Context, url string) ([]byte, error)
}

// Decoder turns a payload into features.
type Decoder func(data []byte, emit func(*geojson.Feature)) error

// Status is a consistent view of the loop-owned state.
type Status struct {
	Frames            []radar.Timestamp `json:"frames"`
	Current           *radar.Timestamp  `json:"current,omitempty"`
	Cursor            int               `json:"cursor"`
	Advisories        int               `json:"advisories"`
	PendingAdvisories int               `json:"pendingAdvisories"`
	Outlook           bool              `json:"outlook"`
}

type Widget struct {
	cfg    *config.Config
	src    Source
	decode Decoder
	logger *zap.Logger

	m          *mapview.Map
	frames     *radar.Scheduler
	advisories *advisory.Reconciler
	outlook    *advisory.Outlook
	markers    *mapview.Layer

	frameInterval  time.Duration
	updateInterval time.Duration
	events         chan func()
	done           chan struct{}
	inflight       sync.WaitGroup
}

type Option func(*Widget)

// WithDecoder replaces the shapefile decoder.
func WithDecoder(d Decoder) Option {
	return func(w *Widget) { w.decode = d }
}

// WithFrameInterval changes the animation cadence.
func WithFrameInterval(d time.Duration) Option {
	return func(w *Widget) { w.frameInterval = d }
}

func New(cfg *config.Config, src Source, logger *zap.Logger, opts ...Option) *Widget {
	m := mapview.New()
	w := &Widget{
		cfg:           cfg,
		src:           src,
		decode:        shapefile.Decode,
		logger:        logger,
		m:             m,
		frames:        radar.NewScheduler(m, cfg.Scheme),
		advisories:    advisory.NewReconciler(m),
		outlook:       advisory.NewOutlook(m),
		frameInterval:  FrameInterval,
		updateInterval: cfg.UpdateInterval,
		events:         make(chan func(), 16),
		done:           make(chan struct{}),
	}
	for _, opt := range opts {
		opt(w)
	}
	// tickers panic on non-positive durations
	if w.updateInterval <= 0 {
		w.updateInterval = DefaultUpdateInterval
	}
	if w.frameInterval <= 0 {
		w.frameInterval = FrameInterval
	}
	return w
}

// Map is the layer collection observers may snapshot.
func (w *Widget) Map() *mapview.Map { return w.m }

// Run drives the widget until ctx is cancelled. Timers are stopped and
// in-flight fetches are abandoned on return.
func (w *Widget) Run(ctx context.Context) error {
	defer close(w.done)
	defer w.inflight.Wait()

	w.loadBasemap()
	w.setMarkers(w.cfg.Markers)
	w.refresh(ctx)

	refresh := time.NewTicker(w.updateInterval)
	defer refresh.Stop()

	var animation *time.Ticker
	var tick <-chan time.Time
	defer func() {
		if animation != nil {
			animation.Stop()
		}
	}()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-refresh.C:
			w.refresh(ctx)
		case <-tick:
			w.frames.Advance()
		case fn := <-w.events:
			fn()
			// the loop only animates once there is something to show
			if animation == nil && w.frames.Len() > 0 {
				animation = time.NewTicker(w.frameInterval)
				tick = animation.C
			}
		}
	}
}

// SetMarkers replaces the marker overlay. Safe to call from any goroutine.
func (w *Widget) SetMarkers(markers []config.Marker) {
	select {
	case w.events <- func() { w.setMarkers(markers) }:
	case <-w.done:
	}
}

// Status reads the loop-owned state on the loop goroutine.
func (w *Widget) Status(ctx context.Context) (Status, error) {
	result := make(chan Status, 1)
	read := func() {
		st := Status{
			Frames:            w.frames.Frames(),
			Cursor:            w.frames.Cursor(),
			Advisories:        w.advisories.Len(),
			PendingAdvisories: w.advisories.Pending(),
			Outlook:           w.outlook.Current() != nil,
		}
		if cur, ok := w.frames.Current(); ok {
			st.Current = &cur
		}
		result <- st
	}
	select {
	case w.events <- read:
	case <-w.done:
		return Status{}, ErrStopped
	case <-ctx.Done():
		return Status{}, ctx.Err()
	}
	select {
	case st := <-result:
		return st, nil
	case <-w.done:
		return Status{}, ErrStopped
	case <-ctx.Done():
		return Status{}, ctx.Err()
	}
}

// post hands fn to the loop unless the widget is shutting down.
func (w *Widget) post(ctx context.Context, fn func()) {
	select {
	case w.events <- fn:
	case <-ctx.Done():
	}
}

// spawn runs fetch on its own goroutine and posts its continuation.
func (w *Widget) spawn(ctx context.Context, source string, fetch func() func()) {
	w.inflight.Add(1)
	go func() {
		defer w.inflight.Done()
		start := time.Now()
		apply := fetch()
		metrics.FetchDuration.WithLabelValues(source).Observe(time.Since(start).Seconds())
		w.post(ctx, apply)
	}()
}

func (w *Widget) refresh(ctx context.Context) {
	w.spawn(ctx, metrics.SourceTimestamps, func() func() {
		ts, err := w.src.Timestamps(ctx, w.cfg.MaxFrames)
		return func() { w.applyTimestamps(ts, err) }
	})

	if w.cfg.Advisories {
		w.spawn(ctx, metrics.SourceFeed, func() func() {
			items, err := w.src.Feed(ctx)
			return func() { w.applyFeed(ctx, items, err) }
		})
	}

	if w.cfg.Outlook {
		seq := w.outlook.Begin()
		w.spawn(ctx, metrics.SourceOutlook, func() func() {
			features, err := w.fetchFeatures(ctx, w.cfg.OutlookURL, advisory.KeepAll)
			return func() { w.applyOutlook(seq, features, err) }
		})
	}
}

func (w *Widget) applyTimestamps(ts []radar.Timestamp, err error) {
	if err != nil {
		w.fetchFailed(metrics.SourceTimestamps, err)
		return
	}
	evicted := w.frames.Ingest(ts, w.cfg.MaxFrames)
	metrics.FramesKnown.Set(float64(w.frames.Len()))
	metrics.FramesEvicted.Add(float64(len(evicted)))
	w.logger.Debug("timestamps ingested",
		zap.Int("received", len(ts)),
		zap.Int("known", w.frames.Len()),
		zap.Int("evicted", len(evicted)))
}

func (w *Widget) applyFeed(ctx context.Context, items []advisory.Item, err error) {
	if err != nil {
		w.fetchFailed(metrics.SourceFeed, err)
		return
	}
	builds := w.advisories.Refresh(items)
	metrics.AdvisoriesHeld.Set(float64(w.advisories.Len()))
	w.logger.Debug("advisories reconciled",
		zap.Int("items", len(items)),
		zap.Int("held", w.advisories.Len()),
		zap.Int("new", len(builds)))

	for _, b := range builds {
		w.spawn(ctx, metrics.SourceAdvisory, func() func() {
			features, err := w.fetchFeatures(ctx, b.Item.ID, b.Kind.Filter())
			return func() { w.applyBuild(b, features, err) }
		})
	}
}

func (w *Widget) applyBuild(b advisory.Build, features []*geojson.Feature, err error) {
	attached := w.advisories.Complete(b, features, err)
	metrics.AdvisoriesHeld.Set(float64(w.advisories.Len()))
	switch {
	case err != nil:
		w.fetchFailed(metrics.SourceAdvisory, err, zap.String("item", b.Item.ID))
	case !attached:
		metrics.AdvisoryLayersDiscarded.Inc()
		w.logger.Debug("discarded advisory layer for retired entry",
			zap.String("item", b.Item.ID),
			zap.Uint64("generation", b.Generation))
	default:
		w.logger.Info("advisory layer attached",
			zap.String("item", b.Item.ID),
			zap.Stringer("kind", b.Kind),
			zap.Int("features", len(features)))
	}
}

func (w *Widget) applyOutlook(seq uint64, features []*geojson.Feature, err error) {
	if err != nil {
		w.fetchFailed(metrics.SourceOutlook, err)
		return
	}
	if w.outlook.Complete(seq, features) {
		w.logger.Info("outlook replaced", zap.Int("features", len(features)))
	}
}

// fetchFeatures downloads and decodes a payload off the loop goroutine.
func (w *Widget) fetchFeatures(ctx context.Context, url string, filter advisory.Filter) ([]*geojson.Feature, error) {
	data, err := w.src.Payload(ctx, url)
	if err != nil {
		return nil, err
	}
	return advisory.Assemble(filter, func(emit func(*geojson.Feature)) error {
		return w.decode(data, emit)
	})
}

func (w *Widget) fetchFailed(source string, err error, fields ...zap.Field) {
	metrics.FetchFailures.WithLabelValues(source).Inc()
	w.logger.Warn("fetch failed, skipping this cycle",
		append(fields, zap.String("source", source), zap.Error(err))...)
}

func (w *Widget) loadBasemap() {
	path := w.cfg.BasemapPath()
	if path == "" {
		return
	}
	fc, err := fetcher.Boundaries(path)
	if err != nil {
		w.fetchFailed(metrics.SourceBasemap, err)
		return
	}
	w.m.Attach(mapview.NewVectorLayer(basemapLayerID, mapview.KindGeoJSON, mapview.Style{
		Color:  "#c0c0c0",
		Weight: 1,
		Pane:   "tilePane",
	}, fc.Features))
	w.logger.Info("basemap loaded",
		zap.Stringer("basemap", w.cfg.Basemap),
		zap.Int("features", len(fc.Features)))
}

func (w *Widget) setMarkers(markers []config.Marker) {
	features := make([]*geojson.Feature, 0, len(markers))
	for _, mk := range markers {
		f := geojson.NewFeature(orb.Point{mk.Longitude, mk.Latitude})
		f.Properties["color"] = mk.Color
		f.Properties["radius"] = mk.Radius
		if mk.Label != "" {
			f.Properties["label"] = mk.Label
		}
		features = append(features, f)
	}
	var next *mapview.Layer
	if len(features) > 0 {
		next = mapview.NewVectorLayer(markersLayerID, mapview.KindMarkers, mapview.Style{
			Pane: "markerPane",
		}, features)
	}
	w.m.Replace(w.markers, next)
	w.markers = next
}
