package imgedit

import (
	"fmt"

	"github.com/BurntSushi/toml"
	"github.com/hashicorp/go-hclog"
)

// FileConfig is the configuration file of the thumbnail server.
type FileConfig struct {
	HTTPAddr     string   `toml:"http_addr"`
	LogLevel     string   `toml:"log_level"`
	SourceDir    string   `toml:"source_dir"`
	ThumbnailDir string   `toml:"thumbnail_dir"`
	AllowedExts  []string `toml:"allowed_exts"`
	MaxDimension int      `toml:"max_dimension"`

	// MaxSourcePixels limits the width*height of decoded sources.
	MaxSourcePixels int `toml:"max_source_pixels"`

	// Backend is "native" or "imagemagick".
	Backend     string `toml:"backend"`
	Filter      string `toml:"filter"`
	JPEGQuality int    `toml:"jpeg_quality"`
}

func DefaultFileConfig() FileConfig {
	return FileConfig{
		HTTPAddr:     ":7664",
		LogLevel:     "INFO",
		SourceDir:    "source",
		ThumbnailDir: "thumbnail",
		AllowedExts: []string{
			FormatJPEG.Extension(), ".jpeg",
			FormatPNG.Extension(),
			FormatGIF.Extension(),
		},
		MaxDimension:    4096,
		MaxSourcePixels: DefaultMaxPixels,
		Backend:         "native",
		Filter:          "bilinear",
	}
}

// LoadFileConfig reads path over the defaults. Unknown keys are an error.
func LoadFileConfig(path string) (FileConfig, error) {
	conf := DefaultFileConfig()
	md, err := toml.DecodeFile(path, &conf)
	if err != nil {
		return conf, fmt.Errorf("Failed to read config: %w", err)
	}
	if undecoded := md.Undecoded(); len(undecoded) > 0 {
		return conf, fmt.Errorf("unknown config keys in %v: %v", path, undecoded)
	}
	return conf, conf.Validate()
}

func (c FileConfig) Validate() error {
	switch c.Backend {
	case "native", "imagemagick":
	default:
		return fmt.Errorf("invalid backend: %q", c.Backend)
	}
	if _, ok := Filters[c.Filter]; !ok {
		return fmt.Errorf("invalid filter: %q", c.Filter)
	}
	if c.JPEGQuality < 0 || c.JPEGQuality > 100 {
		return fmt.Errorf("invalid jpeg_quality: %d", c.JPEGQuality)
	}
	if c.MaxDimension <= 0 {
		return fmt.Errorf("invalid max_dimension: %d", c.MaxDimension)
	}
	if c.MaxSourcePixels <= 0 {
		return fmt.Errorf("invalid max_source_pixels: %d", c.MaxSourcePixels)
	}
	if hclog.LevelFromString(c.LogLevel) == hclog.NoLevel {
		return fmt.Errorf("invalid log_level: %q", c.LogLevel)
	}
	if c.SourceDir == "" || c.ThumbnailDir == "" {
		return fmt.Errorf("source_dir and thumbnail_dir are required")
	}
	return nil
}

// EditorConfig returns the Editor configuration described by c.
func (c FileConfig) EditorConfig() Config {
	return Config{
		Filter:    Filters[c.Filter],
		Quality:   c.JPEGQuality,
		MaxPixels: c.MaxSourcePixels,
	}
}
