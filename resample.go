package imgedit

import (
	"image"
	"image/color"
	"image/color/palette"

	"golang.org/x/image/draw"
)

// DefaultFilter is the interpolator used when none is configured.
var DefaultFilter draw.Interpolator = draw.BiLinear

// Filters maps configuration names to interpolators.
var Filters = map[string]draw.Interpolator{
	"approx-bilinear": draw.ApproxBiLinear,
	"bilinear":        draw.BiLinear,
	"catmull-rom":     draw.CatmullRom,
}

// Resample returns a new DestW x DestH image holding the plan's source region
// of src scaled with filter. Transparency is kept according to spec.
// src is not modified.
func Resample(src image.Image, plan CropPlan, spec FormatSpec, filter draw.Interpolator) image.Image {
	if filter == nil {
		filter = DefaultFilter
	}
	canvas := image.Rect(0, 0, plan.DestX+plan.DestW, plan.DestY+plan.DestH)
	sr := plan.SrcRect().Add(src.Bounds().Min)

	switch spec.Transparency {
	case TransparencyAlpha:
		// Src copies alpha verbatim instead of compositing it.
		dst := image.NewNRGBA(canvas)
		filter.Scale(dst, plan.DestRect(), src, sr, draw.Src, nil)
		return dst

	case TransparencyColorKey:
		rgba := image.NewRGBA(canvas)
		filter.Scale(rgba, plan.DestRect(), src, sr, draw.Src, nil)
		dst := image.NewPaletted(canvas, colorKeyPalette(src))
		draw.Draw(dst, canvas, rgba, canvas.Min, draw.Src)
		return dst

	default:
		dst := image.NewRGBA(canvas)
		filter.Scale(dst, plan.DestRect(), src, sr, draw.Over, nil)
		return dst
	}
}

// colorKeyPalette returns the palette of src, or the web-safe palette for
// non-paletted images, with one entry reserved as fully transparent.
func colorKeyPalette(src image.Image) color.Palette {
	var p color.Palette
	if pm, ok := src.(*image.Paletted); ok && len(pm.Palette) > 0 {
		p = append(p, pm.Palette...)
	} else {
		p = append(p, palette.WebSafe...)
	}

	if transparentIndex(p) >= 0 {
		return p
	}
	if len(p) < 256 {
		return append(p, color.Transparent)
	}
	p[len(p)-1] = color.Transparent
	return p
}

func transparentIndex(p color.Palette) int {
	for i, c := range p {
		if _, _, _, a := c.RGBA(); a == 0 {
			return i
		}
	}
	return -1
}
