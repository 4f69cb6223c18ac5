package imgedit

import "fmt"

type ResizeMode int

const (
	// Maximum values of height and width given, aspect ratio preserved.
	ResizeModeFit ResizeMode = 0

	// Minimum values of width and height given, aspect ratio preserved.
	// The image will be cut to fit it exactly.
	ResizeModeFill ResizeMode = 1

	// 	Width and height emphatically given, original aspect ratio ignored.
	ResizeModeStretch ResizeMode = 2
)

func (m ResizeMode) String() string {
	switch m {
	case ResizeModeFit:
		return "fit"
	case ResizeModeFill:
		return "fill"
	case ResizeModeStretch:
		return "stretch"
	}
	return fmt.Sprintf("ResizeMode(%d)", int(m))
}

// CheckSize validates a target box for the mode. Only ResizeModeFill
// accepts a zero width or height, derived from the aspect ratio.
func (m ResizeMode) CheckSize(width, height int) error {
	if width < 0 || height < 0 || (width == 0 && height == 0) {
		return fmt.Errorf("%w: %dx%d", ErrInvalidDimensions, width, height)
	}
	if m != ResizeModeFill && (width == 0 || height == 0) {
		return fmt.Errorf("%w: %dx%d (%v)", ErrInvalidDimensions, width, height, m)
	}
	return nil
}

// Plan dispatches to the planner of the mode.
func (m ResizeMode) Plan(srcW, srcH, destW, destH int) (CropPlan, bool, error) {
	switch m {
	case ResizeModeFit:
		plan, ok := FitPlan(srcW, srcH, destW, destH)
		return plan, ok, nil
	case ResizeModeFill:
		plan, ok := Compute(srcW, srcH, destW, destH)
		return plan, ok, nil
	case ResizeModeStretch:
		plan, ok := StretchPlan(srcW, srcH, destW, destH)
		return plan, ok, nil
	}
	return CropPlan{}, false, fmt.Errorf("unknown resize mode: %v", m)
}

// ImageResizer writes a resized copy of the image at src to dst in the
// format of src.
type ImageResizer interface {
	Resize(dst, src string, width, height uint, mode ResizeMode) error
}

// NativeResizer is an ImageResizer built on Editor.
type NativeResizer struct {
	Config Config
}

var _ ImageResizer = (*NativeResizer)(nil)

func (r *NativeResizer) Resize(dst, src string, width, height uint, mode ResizeMode) error {
	e, err := New(src, r.Config)
	if err != nil {
		return err
	}
	_, err = e.Thumbnail(int(width), int(height), mode)
	if err != nil {
		return err
	}
	return e.Save(dst)
}
