// Package imagemagick resizes images with the convert command of ImageMagick.
package imagemagick

import (
	"fmt"
	"os/exec"
	"strconv"
	"strings"

	"github.com/hashicorp/go-hclog"

	"github.com/szxp/imgedit"
)

const command = "convert"

type ImageResizer struct {
	Logger hclog.Logger

	// Quality overrides the default quality of lossy formats when > 0.
	Quality int

	// MaxPixels limits the size of sources, imgedit.DefaultMaxPixels when 0.
	// A negative value disables the limit.
	MaxPixels int
}

var _ imgedit.ImageResizer = (*ImageResizer)(nil)

func (r *ImageResizer) Resize(dst, src string, width, height uint, mode imgedit.ResizeMode) error {
	logger := r.Logger
	if logger == nil {
		logger = hclog.NewNullLogger()
	}
	if err := mode.CheckSize(int(width), int(height)); err != nil {
		return err
	}
	bin, err := exec.LookPath(command)
	if err != nil {
		return fmt.Errorf("%w: %v", imgedit.ErrMissingDependency, err)
	}

	tag, conf, err := imgedit.DecodeConfig(src)
	if err != nil {
		return err
	}
	maxPixels := r.MaxPixels
	if maxPixels == 0 {
		maxPixels = imgedit.DefaultMaxPixels
	}
	if err := imgedit.CheckPixels(conf, maxPixels); err != nil {
		return fmt.Errorf("%v: %w", src, err)
	}
	spec, err := imgedit.Spec(tag)
	if err != nil {
		return err
	}
	plan, ok, err := mode.Plan(conf.Width, conf.Height, int(width), int(height))
	if err != nil {
		return err
	}

	var p *imgedit.CropPlan
	if ok {
		p = &plan
	}
	args := Args(dst, src, spec, p, r.Quality)
	logger.Debug("Run", "cmd", bin, "args", strings.Join(args, " "))

	out, err := exec.Command(bin, args...).CombinedOutput()
	if err != nil {
		return fmt.Errorf("%w: %v: %s", imgedit.ErrSaveFailure, err, strings.TrimSpace(string(out)))
	}
	return nil
}

// Args returns the convert arguments that draw the plan's source region of
// src into dst. A nil plan copies the image unchanged. The output format is
// always the format of src.
func Args(dst, src string, spec imgedit.FormatSpec, plan *imgedit.CropPlan, quality int) []string {
	args := []string{
		// use only the first frame
		src + "[0]",
	}

	if plan != nil {
		args = append(args,
			"-crop", fmt.Sprintf("%dx%d+%d+%d", plan.SrcW, plan.SrcH, plan.SrcX, plan.SrcY),
			"+repage", // completely remove/reset the virtual canvas meta-data from the images.
			"-resize", fmt.Sprintf("%dx%d!", plan.DestW, plan.DestH),
		)
	}

	if spec.DefaultQuality > 0 {
		if quality <= 0 || quality > 100 {
			quality = spec.DefaultQuality
		}
		args = append(args, "-quality", strconv.Itoa(quality))
	}

	// the format prefix keeps the source format whatever the extension of dst
	args = append(args, strings.ToUpper(spec.Tag.String())+":"+dst)
	return args
}

func Version() (string, error) {
	ver, err := exec.Command(command, "-version").Output()
	if err != nil {
		return "", err
	}
	return string(ver), nil
}
