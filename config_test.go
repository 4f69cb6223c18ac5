package imgedit

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/image/draw"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	p := filepath.Join(t.TempDir(), "imgedit.toml")
	require.NoError(t, os.WriteFile(p, []byte(content), 0644))
	return p
}

func TestLoadFileConfig(t *testing.T) {
	p := writeConfig(t, `
http_addr = ":8080"
source_dir = "/srv/source"
thumbnail_dir = "/srv/thumbnail"
allowed_exts = [".png"]
backend = "imagemagick"
filter = "catmull-rom"
jpeg_quality = 85
`)

	conf, err := LoadFileConfig(p)
	require.NoError(t, err)
	assert.Equal(t, ":8080", conf.HTTPAddr)
	assert.Equal(t, "/srv/source", conf.SourceDir)
	assert.Equal(t, "/srv/thumbnail", conf.ThumbnailDir)
	assert.Equal(t, []string{".png"}, conf.AllowedExts)
	assert.Equal(t, "imagemagick", conf.Backend)
	assert.Equal(t, 85, conf.JPEGQuality)

	// defaults
	assert.Equal(t, "INFO", conf.LogLevel)
	assert.Equal(t, 4096, conf.MaxDimension)

	assert.Equal(t, DefaultMaxPixels, conf.MaxSourcePixels)

	ec := conf.EditorConfig()
	assert.Equal(t, 85, ec.Quality)
	assert.Equal(t, DefaultMaxPixels, ec.MaxPixels)
	assert.Equal(t, draw.CatmullRom, ec.Filter)
}

func TestLoadFileConfigErrors(t *testing.T) {
	tests := map[string]string{
		"unknown key":       `colour = "red"`,
		"invalid backend":   `backend = "gimp"`,
		"invalid filter":    `filter = "nearest"`,
		"invalid quality":   `jpeg_quality = 101`,
		"syntax":            `http_addr = `,
		"invalid log level": `log_level = "verbose"`,
		"invalid pixels":    `max_source_pixels = 0`,
	}
	for name, content := range tests {
		t.Run(name, func(t *testing.T) {
			_, err := LoadFileConfig(writeConfig(t, content))
			assert.Error(t, err)
		})
	}

	_, err := LoadFileConfig(filepath.Join(t.TempDir(), "missing.toml"))
	assert.Error(t, err)
}

func TestDefaultFileConfig(t *testing.T) {
	assert.NoError(t, DefaultFileConfig().Validate())
}

func TestValidateLogLevel(t *testing.T) {
	conf := DefaultFileConfig()
	for _, level := range []string{"trace", "DEBUG", "info", "warn", "error"} {
		conf.LogLevel = level
		assert.NoError(t, conf.Validate(), level)
	}
	for _, level := range []string{"", "verbose", "inf"} {
		conf.LogLevel = level
		assert.Error(t, conf.Validate(), level)
	}
}
