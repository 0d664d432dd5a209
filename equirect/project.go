package equirect

import (
	"fmt"
	"image"
	"os"
	"path/filepath"

	"github.com/edaniels/golog"
	"github.com/pkg/errors"

	"github.com/lanternscene/panoplanar/rimage"
	"github.com/lanternscene/panoplanar/utils"
)

// ExposureChannel is one radiance exposure of a panorama plus its companion
// mask. Factor is the normalization divisor that brings the exposure onto the
// batch's common radiance scale.
type ExposureChannel struct {
	Name   string
	Image  *rimage.Image
	Mask   *rimage.Image
	Factor float64
}

// Panorama is one equirectangular source with whatever companion channels the
// run uses. IsFloat flags mark channels that carry radiance data and therefore
// skip display-range clipping.
type Panorama struct {
	Stem         string
	Color        *rimage.Image
	ColorIsFloat bool
	Mask         *rimage.Image
	HDR          *rimage.Image
	HDRIsFloat   bool
	Exposures    []ExposureChannel
}

// OutputLayout names the directory for each channel category. Empty entries
// mean the category is inactive.
type OutputLayout struct {
	Color        string
	Mask         string
	HDR          string
	Exposure     map[string]string
	ExposureMask map[string]string
}

// Ensure creates every active output directory.
func (l OutputLayout) Ensure() error {
	dirs := []string{l.Color, l.Mask, l.HDR}
	for _, d := range l.Exposure {
		dirs = append(dirs, d)
	}
	for _, d := range l.ExposureMask {
		dirs = append(dirs, d)
	}
	for _, d := range dirs {
		if d == "" {
			continue
		}
		if err := os.MkdirAll(d, 0o755); err != nil {
			return errors.Wrapf(err, "cannot create output directory %q", d)
		}
	}
	return nil
}

// RenderedView records one written perspective view of a panorama.
type RenderedView struct {
	Index     int
	Direction SampleDirection
	ImagePath string
	MaskPath  string
}

// Reprojector renders every sample direction of the grid for every channel of
// a panorama. All channels of one direction are warped with identical rotation
// parameters and field of view, which is what keeps mask and radiance outputs
// pixel aligned with the color output.
type Reprojector struct {
	Warper    Warper
	Grid      SampleGrid
	Size      image.Point
	HDRSize   image.Point // zero value falls back to Size
	ClipColor bool
	Layout    OutputLayout
	Logger    golog.Logger
}

func (r *Reprojector) hdrSize() image.Point {
	if r.HDRSize.X > 0 && r.HDRSize.Y > 0 {
		return r.HDRSize
	}
	return r.Size
}

func viewFileName(stem string, index int, ext string) string {
	return fmt.Sprintf("%s_%d%s", stem, index, ext)
}

// Project renders the full direction list for one panorama and returns the
// written views in direction order. The first write or warp error aborts the
// panorama; callers treat that as fatal for the batch.
func (r *Reprojector) Project(pano *Panorama) ([]RenderedView, error) {
	if pano == nil || pano.Color == nil {
		return nil, errors.New("panorama has no color raster")
	}
	if len(r.Grid.Directions) == 0 {
		return nil, nil
	}

	// exposures are brought onto the common radiance scale once, before any
	// direction is rendered
	for _, e := range pano.Exposures {
		if e.Factor <= 0 {
			return nil, errors.Errorf("exposure %q has non-positive normalization factor %v", e.Name, e.Factor)
		}
		e.Image.Scale(float32(1 / e.Factor))
	}

	// the mask rides along at the radiance output size whenever an HDR
	// channel is active
	maskSize := r.Size
	if pano.HDR != nil {
		maskSize = r.hdrSize()
	}

	colorExt := ".png"
	if pano.ColorIsFloat {
		colorExt = rimage.FloatExtension
	}
	hdrExt := ".png"
	if pano.HDRIsFloat {
		hdrExt = rimage.FloatExtension
	}

	views := make([]RenderedView, 0, len(r.Grid.Directions))
	for idx, dir := range r.Grid.Directions {
		rot := Rotation{
			Roll:  0,
			Pitch: utils.DegToRad(dir.Pitch),
			Yaw:   utils.DegToRad(dir.Yaw),
		}
		view := RenderedView{Index: idx, Direction: dir}

		clip := r.ClipColor && !pano.ColorIsFloat
		pers, err := r.Warper.Warp(pano.Color, rot, r.Grid.FOV, r.Size, clip)
		if err != nil {
			return nil, errors.Wrapf(err, "warping %q toward direction %d", pano.Stem, idx)
		}
		view.ImagePath = filepath.Join(r.Layout.Color, viewFileName(pano.Stem, idx, colorExt))
		if err := rimage.WriteImageToFile(view.ImagePath, pers); err != nil {
			return nil, err
		}

		if pano.Mask != nil {
			persMask, err := r.Warper.Warp(pano.Mask, rot, r.Grid.FOV, maskSize, false)
			if err != nil {
				return nil, errors.Wrapf(err, "warping mask of %q toward direction %d", pano.Stem, idx)
			}
			plane, err := persMask.Plane(0)
			if err != nil {
				return nil, err
			}
			view.MaskPath = filepath.Join(r.Layout.Mask, viewFileName(pano.Stem, idx, ".png"))
			if err := rimage.WriteImageToFile(view.MaskPath, plane); err != nil {
				return nil, err
			}
		}

		if pano.HDR != nil {
			persHDR, err := r.Warper.Warp(pano.HDR, rot, r.Grid.FOV, r.hdrSize(), false)
			if err != nil {
				return nil, errors.Wrapf(err, "warping HDR of %q toward direction %d", pano.Stem, idx)
			}
			path := filepath.Join(r.Layout.HDR, viewFileName(pano.Stem, idx, hdrExt))
			if err := rimage.WriteImageToFile(path, persHDR); err != nil {
				return nil, err
			}
		}

		for _, e := range pano.Exposures {
			persExp, err := r.Warper.Warp(e.Image, rot, r.Grid.FOV, r.Size, false)
			if err != nil {
				return nil, errors.Wrapf(err, "warping exposure %q of %q toward direction %d", e.Name, pano.Stem, idx)
			}
			path := filepath.Join(r.Layout.Exposure[e.Name], viewFileName(pano.Stem, idx, rimage.FloatExtension))
			if err := rimage.WriteImageToFile(path, persExp); err != nil {
				return nil, err
			}
			if e.Mask != nil {
				persMask, err := r.Warper.Warp(e.Mask, rot, r.Grid.FOV, r.Size, false)
				if err != nil {
					return nil, errors.Wrapf(err, "warping mask of exposure %q of %q toward direction %d", e.Name, pano.Stem, idx)
				}
				plane, err := persMask.Plane(0)
				if err != nil {
					return nil, err
				}
				maskPath := filepath.Join(r.Layout.ExposureMask[e.Name], viewFileName(pano.Stem, idx, ".png"))
				if err := rimage.WriteImageToFile(maskPath, plane); err != nil {
					return nil, err
				}
			}
		}

		views = append(views, view)
	}
	if r.Logger != nil {
		r.Logger.Debugw("projected panorama", "stem", pano.Stem, "views", len(views))
	}
	return views, nil
}
