package imgedit

import (
	"fmt"
	"image"

	"github.com/hashicorp/go-hclog"
	"golang.org/x/image/draw"
)

type Config struct {
	Logger hclog.Logger

	// Filter defaults to DefaultFilter.
	Filter draw.Interpolator

	// Quality overrides the default quality of lossy formats when > 0.
	Quality int

	// MaxPixels limits the size of decoded sources, DefaultMaxPixels when 0.
	// A negative value disables the limit.
	MaxPixels int
}

// Editor owns one decoded image and the format it was read in.
// An Editor is not safe for concurrent use.
type Editor struct {
	conf *Config
	spec FormatSpec
	img  image.Image
}

// New loads the image at path.
func New(path string, conf Config) (*Editor, error) {
	if conf.Logger == nil {
		conf.Logger = hclog.NewNullLogger()
	}
	if conf.Filter == nil {
		conf.Filter = DefaultFilter
	}
	if conf.MaxPixels == 0 {
		conf.MaxPixels = DefaultMaxPixels
	}

	tag, err := DetectFormat(path)
	if err != nil {
		return nil, err
	}
	spec, err := codec(tag)
	if err != nil {
		return nil, err
	}
	img, err := Decode(path, tag, conf.MaxPixels)
	if err != nil {
		return nil, err
	}

	b := img.Bounds()
	conf.Logger.Debug("Load", "path", path, "format", tag, "width", b.Dx(), "height", b.Dy())
	return &Editor{
		conf: &conf,
		spec: spec,
		img:  img,
	}, nil
}

// FromFile loads the image at path with the default Config.
func FromFile(path string) (*Editor, error) {
	return New(path, Config{})
}

func (e *Editor) Format() FormatTag {
	if e == nil {
		return 0
	}
	return e.spec.Tag
}

// Image returns the current image. It must not be modified.
func (e *Editor) Image() image.Image {
	if e == nil {
		return nil
	}
	return e.img
}

func (e *Editor) Bounds() image.Rectangle {
	if e == nil || e.img == nil {
		return image.Rectangle{}
	}
	return e.img.Bounds()
}

// Resize crops and scales the image so that it covers width x height.
// A height of 0 is derived from the aspect ratio.
// It reports false and keeps the image when the source is smaller than the
// box in both dimensions.
func (e *Editor) Resize(width, height int) (bool, error) {
	return e.Thumbnail(width, height, ResizeModeFill)
}

// Thumbnail resizes the image with the given mode.
func (e *Editor) Thumbnail(width, height int, mode ResizeMode) (bool, error) {
	if e == nil || e.img == nil {
		return false, ErrInvalidState
	}
	if err := mode.CheckSize(width, height); err != nil {
		return false, err
	}

	b := e.img.Bounds()
	plan, ok, err := mode.Plan(b.Dx(), b.Dy(), width, height)
	if err != nil {
		return false, err
	}
	if !ok {
		e.conf.Logger.Debug("Resize not needed", "width", b.Dx(), "height", b.Dy(),
			"targetWidth", width, "targetHeight", height, "mode", mode)
		return false, nil
	}

	e.conf.Logger.Debug("Resize", "mode", mode, "plan", fmt.Sprintf("%+v", plan))
	e.img = Resample(e.img, plan, e.spec, e.conf.Filter)
	return true, nil
}

// Save encodes the image to dest in the format it was loaded in.
func (e *Editor) Save(dest string) error {
	if e == nil || e.img == nil {
		return ErrInvalidState
	}
	quality := e.spec.DefaultQuality
	if e.conf.Quality > 0 {
		quality = e.conf.Quality
	}

	e.conf.Logger.Debug("Save", "path", dest, "format", e.spec.Tag)
	return Encode(e.img, dest, e.spec.Tag, quality)
}
