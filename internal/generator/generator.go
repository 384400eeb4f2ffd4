package generator

import (
	"bytes"
	"fmt"
	"html/template"
	"os"
	"strings"

	"github.com/bytedance/sonic"

	"github.com/Zachdehooge/radar-dashboard/internal/config"
)

// PageView is the data the page template needs.
type PageView struct {
	Latitude    float64 `json:"latitude"`
	Longitude   float64 `json:"longitude"`
	Zoom        int     `json:"zoom"`
	Width       string  `json:"width"`
	Height      string  `json:"height"`
	Circle      bool    `json:"circle"`
	LayersURL   string  `json:"layersUrl"`
	FeaturesURL string  `json:"featuresUrl"`
	PollMs      int64   `json:"pollMs"`
}

// NewPageView derives the page settings from the configuration. baseURL is
// the server origin, or "" when the page is served by that server.
func NewPageView(cfg *config.Config, baseURL string) PageView {
	baseURL = strings.TrimSuffix(baseURL, "/")
	return PageView{
		Latitude:    cfg.Latitude,
		Longitude:   cfg.Longitude,
		Zoom:        cfg.Zoom,
		Width:       cfg.Width,
		Height:      cfg.Height,
		Circle:      cfg.Shape == config.ShapeCircle,
		LayersURL:   baseURL + LayersPath,
		FeaturesURL: baseURL + FeaturesPath,
		PollMs:      250,
	}
}

var pageTemplate = template.Must(template.New("radar").Funcs(template.FuncMap{
	"toJSON": toJSON,
}).Parse(`<!DOCTYPE html>
<html lang="en">
<head>
   <meta charset="UTF-8"/>
   <title>Radar</title>
   <link rel="stylesheet" href="https://unpkg.com/leaflet@1.9.4/dist/leaflet.css" />
   <script src="https://unpkg.com/leaflet@1.9.4/dist/leaflet.js"></script>
   <style>
      html, body { background-color: #121212; margin: 0; }
      .wrapper {
         width: {{ .Width }}; height: {{ .Height }};
         overflow: hidden; background-color: #121212;
      }
      .wrapper.circle { border-radius: 50%; }
      .leaflet-container { background: transparent; }
      .leaflet-control-attribution { display: none; }
   </style>
</head>
<body>
   <div id="map" class="wrapper{{ if .Circle }} circle{{ end }}"></div>
   <script>
      const view = {{ toJSON . }};
      const map = L.map('map', { zoomControl: false, attributionControl: false })
          .setView([view.latitude, view.longitude], view.zoom);

      // id -> { layer, key }; layer is null while features are loading
      const held = {};
      let lastVersion = -1;

      function featureStyle(style) {
          return feature => ({
              color: (feature.properties && feature.properties.color) || style.color,
              fillColor: (feature.properties && feature.properties.color) || style.fillColor || style.color,
              weight: style.weight || 1,
              fillOpacity: 0.2,
          });
      }

      function pointToLayer(style) {
          return (feature, latlng) => L.circleMarker(latlng, {
              radius: (feature.properties && feature.properties.radius) || style.radius || 3,
              color: (feature.properties && feature.properties.color) || style.color,
              fillOpacity: 0.8,
          });
      }

      function buildTile(state, entry) {
          entry.layer = L.tileLayer(state.url, {
              tileSize: state.tileSize,
              opacity: state.opacity,
              zIndex: state.zIndex,
          });
          entry.layer.addTo(map);
      }

      // features are fetched once per revision
      async function buildVector(state, entry) {
          const style = state.style || {};
          try {
              const response = await fetch(view.featuresUrl + state.revision);
              if (!response.ok) throw new Error('features: ' + response.status);
              const features = await response.json();
              if (held[state.id] !== entry) return;
              entry.layer = L.geoJSON(features, {
                  pane: style.pane || 'overlayPane',
                  style: featureStyle(style),
                  pointToLayer: pointToLayer(style),
                  onEachFeature: (feature, layer) => {
                      if (feature.properties && feature.properties.label) {
                          layer.bindTooltip(feature.properties.label);
                      }
                  },
              });
              entry.layer.addTo(map);
          } catch (e) {
              if (held[state.id] === entry) {
                  delete held[state.id];
                  lastVersion = -1;
              }
              console.log('[radar] ' + e);
          }
      }

      function drop(id) {
          if (held[id].layer) {
              map.removeLayer(held[id].layer);
          }
          delete held[id];
      }

      function apply(snapshot) {
          if (snapshot.version === lastVersion) {
              return;
          }
          lastVersion = snapshot.version;

          const seen = {};
          for (const state of snapshot.layers) {
              seen[state.id] = true;
              if (held[state.id] && held[state.id].key !== state.revision) {
                  drop(state.id);
              }
              let entry = held[state.id];
              if (!entry) {
                  entry = { layer: null, key: state.revision };
                  held[state.id] = entry;
                  if (state.kind === 'tile') {
                      buildTile(state, entry);
                  } else {
                      buildVector(state, entry);
                  }
              }
              if (state.kind === 'tile') {
                  entry.layer.setOpacity(state.opacity);
              }
          }
          for (const id of Object.keys(held)) {
              if (!seen[id]) {
                  drop(id);
              }
          }
      }

      async function poll() {
          try {
              const response = await fetch(view.layersUrl + '?_=' + Date.now());
              if (!response.ok) throw new Error('layers: ' + response.status);
              apply(await response.json());
          } catch (e) {
              console.log('[radar] ' + e);
          }
      }

      poll();
      setInterval(poll, view.pollMs);
   </script>
</body>
</html>
`))

// LayersPath is where the server publishes the layer snapshot.
const LayersPath = "/api/layers"

// FeaturesPath is the prefix of the per-revision feature documents.
const FeaturesPath = "/api/features/"

// Page renders the page served next to the layer API.
func Page(cfg *config.Config) ([]byte, error) {
	return Render(NewPageView(cfg, ""))
}

// Render writes the page to a buffer.
func Render(view PageView) ([]byte, error) {
	var buf bytes.Buffer
	if err := pageTemplate.Execute(&buf, view); err != nil {
		return nil, fmt.Errorf("failed to render page: %w", err)
	}
	return buf.Bytes(), nil
}

// WritePage renders the page and atomically replaces outputPath with it.
func WritePage(view PageView, outputPath string) error {
	data, err := Render(view)
	if err != nil {
		return err
	}

	// Write to a temp file then rename so a browser never reads a partial page.
	tmp := outputPath + ".tmp"
	if err := os.WriteFile(tmp, data, 0644); err != nil {
		return fmt.Errorf("write tmp failed: %w", err)
	}
	if err := os.Rename(tmp, outputPath); err != nil {
		return fmt.Errorf("rename failed: %w", err)
	}
	return nil
}

func toJSON(v interface{}) (template.JS, error) {
	b, err := sonic.Marshal(v)
	if err != nil {
		return "", err
	}
	return template.JS(b), nil
}
