package imgedit

import (
	"image"
	"math"
)

// CropPlan draws the SrcW x SrcH region of the source at (SrcX, SrcY)
// scaled into the DestW x DestH region of the destination at (DestX, DestY).
type CropPlan struct {
	DestX, DestY int
	SrcX, SrcY   int
	DestW, DestH int
	SrcW, SrcH   int
}

// SrcRect returns the source region relative to the source origin.
func (p CropPlan) SrcRect() image.Rectangle {
	return image.Rect(p.SrcX, p.SrcY, p.SrcX+p.SrcW, p.SrcY+p.SrcH)
}

func (p CropPlan) DestRect() image.Rectangle {
	return image.Rect(p.DestX, p.DestY, p.DestX+p.DestW, p.DestY+p.DestH)
}

// Compute returns the cover-fit plan that fills a destW x destH box with the
// centered part of a srcW x srcH source, preserving the aspect ratio.
// The source is never scaled up: a target dimension larger than the source
// is reduced to the source dimension.
//
// ok is false when the source is smaller than the box in both dimensions,
// in which case the image must be left unchanged.
//
// One of destW and destH may be 0; it is then derived from the aspect ratio.
func Compute(srcW, srcH, destW, destH int) (plan CropPlan, ok bool) {
	if srcW <= 0 || srcH <= 0 || destW < 0 || destH < 0 || (destW == 0 && destH == 0) {
		return CropPlan{}, false
	}
	if srcW < destW && srcH < destH {
		return CropPlan{}, false
	}

	aspect := float64(srcW) / float64(srcH)
	newW := min(destW, srcW)
	newH := min(destH, srcH)
	if newW == 0 {
		newW = max(1, round(float64(newH)*aspect))
	}
	if newH == 0 {
		newH = max(1, round(float64(newW)/aspect))
	}

	ratio := math.Max(float64(newW)/float64(srcW), float64(newH)/float64(srcH))
	cropW := round(float64(newW) / ratio)
	cropH := round(float64(newH) / ratio)
	srcX := (srcW - cropW) / 2
	srcY := (srcH - cropH) / 2

	// absorb rounding noise
	if newW == destW-1 {
		newW = destW
	}
	if newH == destH-1 {
		newH = destH
	}

	return CropPlan{
		SrcX:  srcX,
		SrcY:  srcY,
		DestW: newW,
		DestH: newH,
		SrcW:  cropW,
		SrcH:  cropH,
	}, true
}

// FitPlan scales the whole source to fit inside the box. ok is false when
// the source already fits.
func FitPlan(srcW, srcH, destW, destH int) (plan CropPlan, ok bool) {
	if srcW <= 0 || srcH <= 0 || destW <= 0 || destH <= 0 {
		return CropPlan{}, false
	}
	if srcW <= destW && srcH <= destH {
		return CropPlan{}, false
	}

	scale := math.Min(float64(destW)/float64(srcW), float64(destH)/float64(srcH))
	return CropPlan{
		DestW: max(1, round(float64(srcW)*scale)),
		DestH: max(1, round(float64(srcH)*scale)),
		SrcW:  srcW,
		SrcH:  srcH,
	}, true
}

// StretchPlan scales the whole source to exactly destW x destH.
func StretchPlan(srcW, srcH, destW, destH int) (plan CropPlan, ok bool) {
	if srcW <= 0 || srcH <= 0 || destW <= 0 || destH <= 0 {
		return CropPlan{}, false
	}
	if srcW == destW && srcH == destH {
		return CropPlan{}, false
	}
	return CropPlan{DestW: destW, DestH: destH, SrcW: srcW, SrcH: srcH}, true
}

func round(f float64) int {
	return int(math.Round(f))
}
