package equirect

import (
	"image"
	"os"
	"path/filepath"
	"testing"

	"github.com/edaniels/golog"
	"go.viam.com/test"

	"github.com/lanternscene/panoplanar/rimage"
)

// spyWarper records every warp invocation so alignment across channels can be
// asserted exactly.
type spyWarper struct {
	calls []spyCall
}

type spyCall struct {
	rot  Rotation
	fov  float64
	size image.Point
	clip bool
}

func (sw *spyWarper) Warp(
	src *rimage.Image, rot Rotation, fovDeg float64, size image.Point, clip bool,
) (*rimage.Image, error) {
	sw.calls = append(sw.calls, spyCall{rot, fovDeg, size, clip})
	out := rimage.NewImage(size.X, size.Y, src.Channels())
	for c := 0; c < src.Channels(); c++ {
		out.Set(0, 0, c, src.Get(0, 0, c))
	}
	return out, nil
}

func constImage(w, h, channels int, v float32) *rimage.Image {
	img := rimage.NewImage(w, h, channels)
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			for c := 0; c < channels; c++ {
				img.Set(x, y, c, v)
			}
		}
	}
	return img
}

func testLayout(t *testing.T, withMask, withHDR bool) OutputLayout {
	t.Helper()
	root := t.TempDir()
	layout := OutputLayout{Color: filepath.Join(root, "planar_projections")}
	if withMask {
		layout.Mask = filepath.Join(root, "mask_planar_projections")
	}
	if withHDR {
		layout.HDR = filepath.Join(root, "hdr_planar_projections")
	}
	test.That(t, layout.Ensure(), test.ShouldBeNil)
	return layout
}

func TestProjectChannelAlignment(t *testing.T) {
	sw := &spyWarper{}
	grid := BuildSampleGrid(8, CropFactor{}, golog.NewTestLogger(t))
	r := &Reprojector{
		Warper:    sw,
		Grid:      grid,
		Size:      image.Pt(8, 8),
		ClipColor: true,
		Layout:    testLayout(t, true, true),
		Logger:    golog.NewTestLogger(t),
	}

	pano := &Panorama{
		Stem:       "scene",
		Color:      constImage(16, 8, 3, 0.5),
		Mask:       constImage(16, 8, 1, 1),
		HDR:        constImage(16, 8, 3, 7),
		HDRIsFloat: true,
	}
	views, err := r.Project(pano)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, len(views), test.ShouldEqual, 8)
	// three channels per direction, all with identical rotation and fov
	test.That(t, len(sw.calls), test.ShouldEqual, 24)
	for i := 0; i < 8; i++ {
		color, mask, hdr := sw.calls[3*i], sw.calls[3*i+1], sw.calls[3*i+2]
		test.That(t, mask.rot, test.ShouldResemble, color.rot)
		test.That(t, hdr.rot, test.ShouldResemble, color.rot)
		test.That(t, mask.fov, test.ShouldEqual, color.fov)
		test.That(t, hdr.fov, test.ShouldEqual, color.fov)
		test.That(t, color.rot.Roll, test.ShouldEqual, 0.0)
		test.That(t, color.clip, test.ShouldBeTrue)
		test.That(t, mask.clip, test.ShouldBeFalse)
		test.That(t, hdr.clip, test.ShouldBeFalse)
	}
}

func TestProjectNaming(t *testing.T) {
	grid := BuildSampleGrid(8, CropFactor{}, golog.NewTestLogger(t))
	layout := testLayout(t, false, false)
	r := &Reprojector{
		Warper:    NewPerspectiveWarper(),
		Grid:      grid,
		Size:      image.Pt(4, 4),
		ClipColor: true,
		Layout:    layout,
	}

	views, err := r.Project(&Panorama{Stem: "pano_000", Color: constImage(16, 8, 3, 0.5)})
	test.That(t, err, test.ShouldBeNil)
	test.That(t, len(views), test.ShouldEqual, 8)
	for i, view := range views {
		test.That(t, view.Index, test.ShouldEqual, i)
		test.That(t, filepath.Base(view.ImagePath), test.ShouldEqual, viewFileName("pano_000", i, ".png"))
		_, err := os.Stat(view.ImagePath)
		test.That(t, err, test.ShouldBeNil)
	}
}

func TestProjectFloatColorWritesEXR(t *testing.T) {
	grid := BuildSampleGrid(8, CropFactor{}, golog.NewTestLogger(t))
	r := &Reprojector{
		Warper:    NewPerspectiveWarper(),
		Grid:      grid,
		Size:      image.Pt(4, 4),
		ClipColor: true,
		Layout:    testLayout(t, false, false),
	}

	views, err := r.Project(&Panorama{
		Stem:         "radiance",
		Color:        constImage(16, 8, 3, 3.5),
		ColorIsFloat: true,
	})
	test.That(t, err, test.ShouldBeNil)
	test.That(t, filepath.Ext(views[0].ImagePath), test.ShouldEqual, ".exr")

	// float color skips display-range clipping
	back, err := rimage.ReadImageFromFile(views[0].ImagePath)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, back.Get(2, 2, 0), test.ShouldEqual, float32(3.5))
}

func TestProjectMaskTracksHDRSize(t *testing.T) {
	sw := &spyWarper{}
	grid := BuildSampleGrid(8, CropFactor{}, golog.NewTestLogger(t))
	r := &Reprojector{
		Warper:    sw,
		Grid:      grid,
		Size:      image.Pt(8, 8),
		HDRSize:   image.Pt(16, 16),
		ClipColor: true,
		Layout:    testLayout(t, true, true),
	}
	_, err := r.Project(&Panorama{
		Stem:       "scene",
		Color:      constImage(16, 8, 3, 0.5),
		Mask:       constImage(16, 8, 1, 1),
		HDR:        constImage(16, 8, 3, 2),
		HDRIsFloat: true,
	})
	test.That(t, err, test.ShouldBeNil)
	test.That(t, sw.calls[0].size, test.ShouldResemble, image.Pt(8, 8))   // color
	test.That(t, sw.calls[1].size, test.ShouldResemble, image.Pt(16, 16)) // mask follows HDR size
	test.That(t, sw.calls[2].size, test.ShouldResemble, image.Pt(16, 16)) // hdr
}

func TestProjectExposures(t *testing.T) {
	sw := &spyWarper{}
	grid := BuildSampleGrid(8, CropFactor{}, golog.NewTestLogger(t))
	root := t.TempDir()
	layout := OutputLayout{
		Color: filepath.Join(root, "planar_projections"),
		Exposure: map[string]string{
			"e1": filepath.Join(root, "e1_planar_projections"),
			"e2": filepath.Join(root, "e2_planar_projections"),
		},
		ExposureMask: map[string]string{
			"e1": filepath.Join(root, "mask_e1_planar_projections"),
			"e2": filepath.Join(root, "mask_e2_planar_projections"),
		},
	}
	test.That(t, layout.Ensure(), test.ShouldBeNil)

	e1 := constImage(16, 8, 3, 4)
	e2 := constImage(16, 8, 3, 1)
	r := &Reprojector{
		Warper:    sw,
		Grid:      grid,
		Size:      image.Pt(4, 4),
		ClipColor: true,
		Layout:    layout,
	}
	_, err := r.Project(&Panorama{
		Stem:  "scene",
		Color: constImage(16, 8, 3, 0.5),
		Exposures: []ExposureChannel{
			{Name: "e1", Image: e1, Mask: constImage(16, 8, 1, 1), Factor: 8},
			{Name: "e2", Image: e2, Mask: constImage(16, 8, 1, 1), Factor: 0.5},
		},
	})
	test.That(t, err, test.ShouldBeNil)
	// normalization happens once, before warping
	test.That(t, e1.Get(0, 0, 0), test.ShouldEqual, float32(0.5))
	test.That(t, e2.Get(0, 0, 0), test.ShouldEqual, float32(2))
	// per direction: color + 2x(exposure + exposure mask)
	test.That(t, len(sw.calls), test.ShouldEqual, 8*5)

	exrs, err := filepath.Glob(filepath.Join(layout.Exposure["e1"], "*.exr"))
	test.That(t, err, test.ShouldBeNil)
	test.That(t, len(exrs), test.ShouldEqual, 8)
	pngs, err := filepath.Glob(filepath.Join(layout.ExposureMask["e2"], "*.png"))
	test.That(t, err, test.ShouldBeNil)
	test.That(t, len(pngs), test.ShouldEqual, 8)
}

func TestProjectBadExposureFactor(t *testing.T) {
	r := &Reprojector{
		Warper: NewPerspectiveWarper(),
		Grid:   BuildSampleGrid(8, CropFactor{}, golog.NewTestLogger(t)),
		Size:   image.Pt(4, 4),
		Layout: testLayout(t, false, false),
	}
	_, err := r.Project(&Panorama{
		Stem:  "scene",
		Color: constImage(16, 8, 3, 0.5),
		Exposures: []ExposureChannel{
			{Name: "e1", Image: constImage(16, 8, 3, 1), Factor: 0},
		},
	})
	test.That(t, err, test.ShouldNotBeNil)
	test.That(t, err.Error(), test.ShouldContainSubstring, "normalization factor")
}

func TestProjectNoColor(t *testing.T) {
	r := &Reprojector{Warper: NewPerspectiveWarper()}
	_, err := r.Project(&Panorama{Stem: "x"})
	test.That(t, err, test.ShouldNotBeNil)

	_, err = r.Project(nil)
	test.That(t, err, test.ShouldNotBeNil)
}
