package imgedit

import (
	"fmt"
	"image"
	"image/gif"
	"image/jpeg"
	"image/png"
	"io"
	"os"

	"github.com/gabriel-vasile/mimetype"
)

// FormatTag identifies the encoding of an image file.
type FormatTag int

const (
	FormatJPEG FormatTag = iota + 1
	FormatPNG
	FormatGIF
)

func (t FormatTag) String() string {
	switch t {
	case FormatJPEG:
		return "jpeg"
	case FormatPNG:
		return "png"
	case FormatGIF:
		return "gif"
	}
	return fmt.Sprintf("FormatTag(%d)", int(t))
}

// Extension returns the usual file extension of the format, with the dot.
func (t FormatTag) Extension() string {
	switch t {
	case FormatJPEG:
		return ".jpg"
	case FormatPNG:
		return ".png"
	case FormatGIF:
		return ".gif"
	}
	return ""
}

// MIME returns the media type of the format, or "" for an unknown tag.
func (t FormatTag) MIME() string {
	if t.valid() {
		return formats[t].mime
	}
	return ""
}

func (t FormatTag) valid() bool {
	return t >= FormatJPEG && t <= FormatGIF
}

// Transparency describes how a format represents transparent pixels.
type Transparency int

const (
	// TransparencyNone formats are always opaque.
	TransparencyNone Transparency = iota

	// TransparencyColorKey formats reserve one palette entry as fully transparent.
	TransparencyColorKey

	// TransparencyAlpha formats carry a per-pixel alpha channel.
	TransparencyAlpha
)

// FormatSpec is the codec capability record of a format.
type FormatSpec struct {
	Tag          FormatTag
	Decode       func(r io.Reader) (image.Image, error)
	DecodeConfig func(r io.Reader) (image.Config, error)
	Encode       func(w io.Writer, img image.Image, quality int) error

	// DefaultQuality is 0 for formats without a lossy quality setting.
	DefaultQuality int
	Transparency   Transparency

	mime string
}

func (s FormatSpec) SupportsAlpha() bool {
	return s.Transparency != TransparencyNone
}

func (s FormatSpec) check() error {
	if s.Decode == nil || s.DecodeConfig == nil || s.Encode == nil {
		return fmt.Errorf("%w: no codec for %v", ErrMissingDependency, s.Tag)
	}
	return nil
}

// formats is indexed by FormatTag and never modified.
var formats = [...]FormatSpec{
	FormatJPEG: {
		Tag:          FormatJPEG,
		Decode:       jpeg.Decode,
		DecodeConfig: jpeg.DecodeConfig,
		Encode: func(w io.Writer, img image.Image, quality int) error {
			return jpeg.Encode(w, img, &jpeg.Options{Quality: quality})
		},
		DefaultQuality: 75,
		Transparency:   TransparencyNone,
		mime:           "image/jpeg",
	},
	FormatPNG: {
		Tag:          FormatPNG,
		Decode:       png.Decode,
		DecodeConfig: png.DecodeConfig,
		Encode: func(w io.Writer, img image.Image, _ int) error {
			return png.Encode(w, img)
		},
		Transparency: TransparencyAlpha,
		mime:         "image/png",
	},
	FormatGIF: {
		Tag: FormatGIF,
		// only the first frame
		Decode:       gif.Decode,
		DecodeConfig: gif.DecodeConfig,
		Encode: func(w io.Writer, img image.Image, _ int) error {
			return gif.Encode(w, img, nil)
		},
		Transparency: TransparencyColorKey,
		mime:         "image/gif",
	},
}

// Spec returns the FormatSpec of tag.
func Spec(tag FormatTag) (FormatSpec, error) {
	if !tag.valid() {
		return FormatSpec{}, fmt.Errorf("%w: %v", ErrUnsupportedFormat, tag)
	}
	return formats[tag], nil
}

// DetectFormat sniffs the file signature of path.
func DetectFormat(path string) (FormatTag, error) {
	mtype, err := mimetype.DetectFile(path)
	if err != nil {
		return 0, fmt.Errorf("%w: %v", ErrLoadFailure, err)
	}
	// APNG is a child of PNG and is read as its first frame
	for m := mtype; m != nil; m = m.Parent() {
		for tag := FormatJPEG; tag <= FormatGIF; tag++ {
			if m.Is(formats[tag].mime) {
				return tag, nil
			}
		}
	}
	return 0, fmt.Errorf("%w: %v (%s)", ErrUnsupportedFormat, path, mtype.String())
}

// DefaultMaxPixels is the largest source, in pixels, decoded by default.
const DefaultMaxPixels = 40_000_000

// CheckPixels rejects images whose header declares more than maxPixels
// pixels. A maxPixels <= 0 disables the check.
func CheckPixels(conf image.Config, maxPixels int) error {
	if conf.Width <= 0 || conf.Height <= 0 {
		return fmt.Errorf("%w: invalid size %dx%d", ErrLoadFailure, conf.Width, conf.Height)
	}
	if maxPixels > 0 && int64(conf.Width)*int64(conf.Height) > int64(maxPixels) {
		return fmt.Errorf("%w: %dx%d exceeds %d pixels", ErrLoadFailure, conf.Width, conf.Height, maxPixels)
	}
	return nil
}

// Decode reads the image at path with the codec of tag. The header is
// checked with CheckPixels before any pixel is allocated.
func Decode(path string, tag FormatTag, maxPixels int) (image.Image, error) {
	spec, err := codec(tag)
	if err != nil {
		return nil, err
	}

	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrLoadFailure, err)
	}
	defer f.Close()

	conf, err := spec.DecodeConfig(f)
	if err != nil {
		return nil, fmt.Errorf("%w: %v: %v", ErrLoadFailure, path, err)
	}
	if err := CheckPixels(conf, maxPixels); err != nil {
		return nil, fmt.Errorf("%v: %w", path, err)
	}
	if _, err := f.Seek(0, io.SeekStart); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrLoadFailure, err)
	}

	img, err := spec.Decode(f)
	if err != nil {
		return nil, fmt.Errorf("%w: %v: %v", ErrLoadFailure, path, err)
	}
	if img == nil {
		return nil, fmt.Errorf("%w: %v: no image", ErrLoadFailure, path)
	}
	return img, nil
}

// DecodeConfig detects the format of path and reads its dimensions
// without decoding the pixels.
func DecodeConfig(path string) (FormatTag, image.Config, error) {
	tag, err := DetectFormat(path)
	if err != nil {
		return 0, image.Config{}, err
	}
	spec, err := codec(tag)
	if err != nil {
		return 0, image.Config{}, err
	}

	f, err := os.Open(path)
	if err != nil {
		return 0, image.Config{}, fmt.Errorf("%w: %v", ErrLoadFailure, err)
	}
	defer f.Close()

	conf, err := spec.DecodeConfig(f)
	if err != nil {
		return 0, image.Config{}, fmt.Errorf("%w: %v: %v", ErrLoadFailure, path, err)
	}
	return tag, conf, nil
}

// Encode writes img to path with the codec of tag. Quality is used only by
// formats that have a default quality; a value <= 0 selects the default.
func Encode(img image.Image, path string, tag FormatTag, quality int) error {
	spec, err := codec(tag)
	if err != nil {
		return err
	}
	if img == nil {
		return fmt.Errorf("%w: nil image", ErrSaveFailure)
	}
	if spec.DefaultQuality == 0 {
		quality = 0
	} else if quality <= 0 || quality > 100 {
		quality = spec.DefaultQuality
	}

	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrSaveFailure, err)
	}

	err = spec.Encode(f, img, quality)
	if cerr := f.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		os.Remove(path)
		return fmt.Errorf("%w: %v: %v", ErrSaveFailure, path, err)
	}
	return nil
}

func codec(tag FormatTag) (FormatSpec, error) {
	spec, err := Spec(tag)
	if err != nil {
		return spec, err
	}
	return spec, spec.check()
}
