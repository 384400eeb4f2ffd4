package generator

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Zachdehooge/radar-dashboard/internal/config"
)

func testConfig() *config.Config {
	return &config.Config{
		Latitude:  32.0809,
		Longitude: -81.0912,
		Zoom:      6,
		Width:     "300px",
		Height:    "50%",
		Shape:     config.ShapeCircle,
	}
}

func TestPage(t *testing.T) {
	page, err := Page(testConfig())
	require.NoError(t, err)

	html := string(page)
	assert.Contains(t, html, "width: 300px; height: 50%;")
	assert.Contains(t, html, `class="wrapper circle"`)
	assert.Contains(t, html, `"layersUrl":"/api/layers"`)
	assert.Contains(t, html, `"featuresUrl":"/api/features/"`)
	assert.Contains(t, html, "view.featuresUrl + state.revision")
	assert.Contains(t, html, `"latitude":32.0809`)
	assert.Contains(t, html, `"zoom":6`)
}

func TestPageSquare(t *testing.T) {
	cfg := testConfig()
	cfg.Shape = config.ShapeSquare
	page, err := Page(cfg)
	require.NoError(t, err)
	assert.Contains(t, string(page), `class="wrapper"`)
}

func TestWritePage(t *testing.T) {
	dir := t.TempDir()
	out := filepath.Join(dir, "radar.html")
	require.NoError(t, os.WriteFile(out, []byte("stale"), 0644))

	view := NewPageView(testConfig(), "http://localhost:8080/")
	require.NoError(t, WritePage(view, out))

	data, err := os.ReadFile(out)
	require.NoError(t, err)
	assert.Contains(t, string(data), `"layersUrl":"http://localhost:8080/api/layers"`)
	assert.Contains(t, string(data), `"featuresUrl":"http://localhost:8080/api/features/"`)

	_, err = os.Stat(out + ".tmp")
	assert.True(t, os.IsNotExist(err))
}

func TestWritePageMissingDir(t *testing.T) {
	view := NewPageView(testConfig(), "")
	err := WritePage(view, filepath.Join(t.TempDir(), "missing", "radar.html"))
	assert.Error(t, err)
}
