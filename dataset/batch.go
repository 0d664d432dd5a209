package dataset

import (
	"image"
	"math"
	"os"
	"path/filepath"
	"strings"

	"github.com/edaniels/golog"
	"github.com/pkg/errors"

	"github.com/lanternscene/panoplanar/equirect"
	"github.com/lanternscene/panoplanar/rimage"
	"github.com/lanternscene/panoplanar/transform"
)

// directory names created under the panorama directory, one per channel
// category.
const (
	planarDirName   = "planar_projections"
	maskDirPrefix   = "mask_"
	hdrDirPrefix    = "hdr_"
	manifestName    = "transforms.json"
	gtMaskSourceDir = "mask"

	// intrinsics fall back to this field of view when the grid resolved none
	defaultFOV = 120.0
)

// Processor runs whole-directory reprojection batches. Processing is
// sequential; the first error aborts the batch with nothing resumable left
// behind.
type Processor struct {
	warper equirect.Warper
	logger golog.Logger
}

// NewProcessor returns a processor using the CPU reference warper.
func NewProcessor(logger golog.Logger) *Processor {
	return NewProcessorWithWarper(equirect.NewPerspectiveWarper(), logger)
}

// NewProcessorWithWarper returns a processor using the given warp capability.
func NewProcessorWithWarper(warper equirect.Warper, logger golog.Logger) *Processor {
	return &Processor{warper: warper, logger: logger}
}

func stemOf(name string) string {
	return strings.TrimSuffix(name, filepath.Ext(name))
}

// isDisplayRaster reports whether the file is an 8-bit source; the
// dual-exposure mode only accepts those.
func isDisplayRaster(name string) bool {
	switch strings.ToLower(filepath.Ext(name)) {
	case ".jpg", ".jpeg", ".png":
		return true
	default:
		return false
	}
}

// floatCompanionName maps a display-range panorama file name onto its radiance
// companion's name.
func floatCompanionName(name string) (string, error) {
	switch strings.ToLower(filepath.Ext(name)) {
	case ".png", ".jpg":
		return stemOf(name) + rimage.FloatExtension, nil
	default:
		return "", unsupportedFormat(name)
	}
}

func listPanoramas(dir string, filter func(string) bool) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, errors.Wrapf(err, "cannot list panorama directory %q", dir)
	}
	var out []string
	for _, e := range entries {
		if e.IsDir() || !filter(e.Name()) {
			continue
		}
		out = append(out, e.Name())
	}
	return out, nil
}

func requireCompanion(kind, path string) error {
	if _, err := os.Stat(path); err != nil {
		return missingCompanion(kind, path)
	}
	return nil
}

// PlanarOptions configures a plain reprojection batch: color plus optional
// mask and HDR channels.
type PlanarOptions struct {
	ImageDir        string
	OutputSize      image.Point
	SamplesPerImage int
	Crop            equirect.CropFactor

	// MaskDir holds one mask per panorama under the same file name.
	MaskDir string
	// HDRDir holds one radiance companion per panorama; with HDRIsFloat the
	// companion is the panorama's name with an .exr extension, otherwise the
	// same name.
	HDRDir        string
	HDRIsFloat    bool
	HDROutputSize image.Point
}

// CheckValid validates the options before any file is touched.
func (o PlanarOptions) CheckValid() error {
	if o.ImageDir == "" {
		return errors.New("image directory is required")
	}
	if o.OutputSize.X <= 0 || o.OutputSize.Y <= 0 {
		return errors.Errorf("invalid output size %v", o.OutputSize)
	}
	return o.Crop.CheckValid()
}

// GeneratePlanarProjections renders every panorama in the image directory and
// returns the populated output layout.
func (p *Processor) GeneratePlanarProjections(opts PlanarOptions) (equirect.OutputLayout, error) {
	var layout equirect.OutputLayout
	if err := opts.CheckValid(); err != nil {
		return layout, err
	}
	grid := equirect.BuildSampleGrid(opts.SamplesPerImage, opts.Crop, p.logger)

	layout.Color = filepath.Join(opts.ImageDir, planarDirName)
	if opts.MaskDir != "" {
		layout.Mask = filepath.Join(opts.ImageDir, maskDirPrefix+planarDirName)
	}
	if opts.HDRDir != "" {
		layout.HDR = filepath.Join(opts.ImageDir, hdrDirPrefix+planarDirName)
	}
	if err := layout.Ensure(); err != nil {
		return layout, err
	}

	reproj := &equirect.Reprojector{
		Warper:    p.warper,
		Grid:      grid,
		Size:      opts.OutputSize,
		HDRSize:   opts.HDROutputSize,
		ClipColor: true,
		Layout:    layout,
		Logger:    p.logger,
	}

	names, err := listPanoramas(opts.ImageDir, rimage.IsRasterFile)
	if err != nil {
		return layout, err
	}
	for _, name := range names {
		pano, err := p.loadPlanarPanorama(opts, name)
		if err != nil {
			return layout, err
		}
		if _, err := reproj.Project(pano); err != nil {
			return layout, err
		}
		p.logger.Infow("generated planar images", "panorama", name, "views", len(grid.Directions))
	}
	return layout, nil
}

func (p *Processor) loadPlanarPanorama(opts PlanarOptions, name string) (*equirect.Panorama, error) {
	color, err := rimage.ReadImageFromFile(filepath.Join(opts.ImageDir, name))
	if err != nil {
		return nil, err
	}
	pano := &equirect.Panorama{
		Stem:         stemOf(name),
		Color:        color,
		ColorIsFloat: rimage.IsFloatFile(name),
	}

	if opts.MaskDir != "" {
		maskPath := filepath.Join(opts.MaskDir, name)
		if err := requireCompanion("mask for", maskPath); err != nil {
			return nil, err
		}
		if pano.Mask, err = rimage.ReadImageFromFile(maskPath); err != nil {
			return nil, err
		}
	}

	if opts.HDRDir != "" {
		hdrName := name
		if opts.HDRIsFloat {
			if hdrName, err = floatCompanionName(name); err != nil {
				return nil, err
			}
		}
		hdrPath := filepath.Join(opts.HDRDir, hdrName)
		if err := requireCompanion("HDR companion for", hdrPath); err != nil {
			return nil, err
		}
		if pano.HDR, err = rimage.ReadImageFromFile(hdrPath); err != nil {
			return nil, err
		}
		pano.HDRIsFloat = opts.HDRIsFloat
	}
	return pano, nil
}

// TwoExposureOptions configures a dual-exposure batch: every panorama carries
// two radiance exposures, each with its own mask and normalization factor.
type TwoExposureOptions struct {
	ImageDir        string
	OutputSize      image.Point
	SamplesPerImage int
	Crop            equirect.CropFactor

	Exposure1Dir    string
	Exposure2Dir    string
	Mask1Dir        string
	Mask2Dir        string
	Exposure1Factor float64
	Exposure2Factor float64
}

// CheckValid validates the options before any file is touched.
func (o TwoExposureOptions) CheckValid() error {
	if o.ImageDir == "" {
		return errors.New("image directory is required")
	}
	if o.OutputSize.X <= 0 || o.OutputSize.Y <= 0 {
		return errors.Errorf("invalid output size %v", o.OutputSize)
	}
	if o.Exposure1Dir == "" || o.Exposure2Dir == "" || o.Mask1Dir == "" || o.Mask2Dir == "" {
		return errors.New("both exposure directories and both mask directories are required")
	}
	if o.Exposure1Factor <= 0 || o.Exposure2Factor <= 0 {
		return errors.Errorf("exposure factors must be positive, got %v and %v",
			o.Exposure1Factor, o.Exposure2Factor)
	}
	return o.Crop.CheckValid()
}

// GeneratePlanarProjectionsWithTwoExposures renders a dual-exposure batch.
func (p *Processor) GeneratePlanarProjectionsWithTwoExposures(opts TwoExposureOptions) (equirect.OutputLayout, error) {
	var layout equirect.OutputLayout
	if err := opts.CheckValid(); err != nil {
		return layout, err
	}
	grid := equirect.BuildSampleGrid(opts.SamplesPerImage, opts.Crop, p.logger)

	layout.Color = filepath.Join(opts.ImageDir, planarDirName)
	layout.Exposure = map[string]string{
		"e1": filepath.Join(opts.ImageDir, "e1_"+planarDirName),
		"e2": filepath.Join(opts.ImageDir, "e2_"+planarDirName),
	}
	layout.ExposureMask = map[string]string{
		"e1": filepath.Join(opts.ImageDir, maskDirPrefix+"e1_"+planarDirName),
		"e2": filepath.Join(opts.ImageDir, maskDirPrefix+"e2_"+planarDirName),
	}
	if err := layout.Ensure(); err != nil {
		return layout, err
	}

	reproj := &equirect.Reprojector{
		Warper:    p.warper,
		Grid:      grid,
		Size:      opts.OutputSize,
		ClipColor: true,
		Layout:    layout,
		Logger:    p.logger,
	}

	names, err := listPanoramas(opts.ImageDir, isDisplayRaster)
	if err != nil {
		return layout, err
	}
	for _, name := range names {
		pano, err := p.loadTwoExposurePanorama(opts, name)
		if err != nil {
			return layout, err
		}
		if _, err := reproj.Project(pano); err != nil {
			return layout, err
		}
		p.logger.Infow("generated planar images", "panorama", name, "views", len(grid.Directions))
	}
	return layout, nil
}

func (p *Processor) loadTwoExposurePanorama(opts TwoExposureOptions, name string) (*equirect.Panorama, error) {
	color, err := rimage.ReadImageFromFile(filepath.Join(opts.ImageDir, name))
	if err != nil {
		return nil, err
	}
	pano := &equirect.Panorama{Stem: stemOf(name), Color: color}

	expName, err := floatCompanionName(name)
	if err != nil {
		return nil, err
	}
	expStem := stemOf(expName)

	load := func(tag, maskDir, expDir string, factor float64) (equirect.ExposureChannel, error) {
		ch := equirect.ExposureChannel{Name: tag, Factor: factor}
		maskPath := filepath.Join(maskDir, pano.Stem+"_"+tag+".png")
		if err := requireCompanion("mask "+tag+" for", maskPath); err != nil {
			return ch, err
		}
		if ch.Mask, err = rimage.ReadImageFromFile(maskPath); err != nil {
			return ch, err
		}
		expPath := filepath.Join(expDir, expStem+"_"+tag+rimage.FloatExtension)
		if err := requireCompanion("exposure "+tag+" for", expPath); err != nil {
			return ch, err
		}
		if ch.Image, err = rimage.ReadImageFromFile(expPath); err != nil {
			return ch, err
		}
		return ch, nil
	}

	e1, err := load("e1", opts.Mask1Dir, opts.Exposure1Dir, opts.Exposure1Factor)
	if err != nil {
		return nil, err
	}
	e2, err := load("e2", opts.Mask2Dir, opts.Exposure2Dir, opts.Exposure2Factor)
	if err != nil {
		return nil, err
	}
	pano.Exposures = []equirect.ExposureChannel{e1, e2}
	return pano, nil
}

// GroundTruthOptions configures a ground-truth batch: panorama world poses are
// known, and every rendered view gets a derived camera pose in the output
// manifest.
type GroundTruthOptions struct {
	MetadataPath    string
	ImageDir        string
	OutputSize      image.Point
	SamplesPerImage int
	Crop            equirect.CropFactor

	// ClipOutput clamps color output to display range; radiance sources are
	// typically rendered unclipped.
	ClipOutput bool
	// UseMask renders the companion masks under ImageDir/mask, binarized so
	// any nonzero source pixel counts as valid.
	UseMask bool
	// UseExposure tags radiance frames with an exposure scalar by stem prefix.
	UseExposure     bool
	ExposureMarker  string
	ReducedExposure float64
}

// CheckValid validates the options before any file is touched.
func (o GroundTruthOptions) CheckValid() error {
	if o.MetadataPath == "" {
		return errors.New("metadata path is required")
	}
	if o.ImageDir == "" {
		return errors.New("image directory is required")
	}
	if o.OutputSize.X <= 0 || o.OutputSize.Y <= 0 {
		return errors.Errorf("invalid output size %v", o.OutputSize)
	}
	return o.Crop.CheckValid()
}

// GenerateGroundTruthProjections renders every panorama, derives a world pose
// per view, and writes the transforms manifest into the output directory,
// whose path it returns. Panoramas are processed in lexicographic order so
// frame numbering is deterministic.
func (p *Processor) GenerateGroundTruthProjections(opts GroundTruthOptions) (string, error) {
	if err := opts.CheckValid(); err != nil {
		return "", err
	}
	marker := opts.ExposureMarker
	if marker == "" {
		marker = DefaultExposureMarker
	}
	reduced := opts.ReducedExposure
	if reduced == 0 {
		reduced = DefaultReducedExposure
	}

	metadata, err := LoadManifest(opts.MetadataPath)
	if err != nil {
		return "", err
	}
	poses, err := metadata.PanoramaPoses()
	if err != nil {
		return "", err
	}

	grid := equirect.BuildSampleGrid(opts.SamplesPerImage, opts.Crop, p.logger)

	var layout equirect.OutputLayout
	layout.Color = filepath.Join(opts.ImageDir, planarDirName)
	if err := p.replaceDir(layout.Color); err != nil {
		return "", err
	}
	if opts.UseMask {
		layout.Mask = filepath.Join(opts.ImageDir, gtMaskSourceDir, planarDirName)
		if err := p.replaceDir(layout.Mask); err != nil {
			return "", err
		}
	}
	if err := layout.Ensure(); err != nil {
		return "", err
	}

	fov := grid.FOV
	if fov == 0 {
		fov = defaultFOV
	}
	intrinsics, err := transform.NewPinholeCameraIntrinsicsFromFOV(opts.OutputSize.X, opts.OutputSize.Y, fov)
	if err != nil {
		return "", err
	}
	manifest, err := NewManifest(intrinsics)
	if err != nil {
		return "", err
	}

	reproj := &equirect.Reprojector{
		Warper:    p.warper,
		Grid:      grid,
		Size:      opts.OutputSize,
		ClipColor: opts.ClipOutput,
		Layout:    layout,
		Logger:    p.logger,
	}

	// os.ReadDir returns names sorted, which is the ordering contract here
	names, err := listPanoramas(opts.ImageDir, rimage.IsRasterFile)
	if err != nil {
		return "", err
	}
	for _, name := range names {
		stem := stemOf(name)
		panoPose, ok := poses[stem]
		if !ok {
			return "", errors.Errorf("metadata has no pose for panorama %q", stem)
		}

		pano := &equirect.Panorama{
			Stem:         stem,
			ColorIsFloat: rimage.IsFloatFile(name),
		}
		if pano.Color, err = rimage.ReadImageFromFile(filepath.Join(opts.ImageDir, name)); err != nil {
			return "", err
		}
		if opts.UseMask {
			maskPath := filepath.Join(opts.ImageDir, gtMaskSourceDir, stem+".png")
			if err := requireCompanion("mask for", maskPath); err != nil {
				return "", err
			}
			mask, err := rimage.ReadImageFromFile(maskPath)
			if err != nil {
				return "", err
			}
			pano.Mask = binarizeMask(mask)
		}

		views, err := reproj.Project(pano)
		if err != nil {
			return "", err
		}
		for _, view := range views {
			frame := NewFrame(view.ImagePath, DeriveViewPose(panoPose, view.Direction))
			frame.MaskPath = view.MaskPath
			if opts.UseExposure && pano.ColorIsFloat {
				exposure := ExposureForStem(stem, marker, reduced)
				frame.Exposure = &exposure
			}
			manifest.Frames = append(manifest.Frames, frame)
		}
		p.logger.Infow("generated planar images", "panorama", name, "views", len(views))
	}

	manifestPath := filepath.Join(layout.Color, manifestName)
	if err := manifest.Save(manifestPath); err != nil {
		return "", err
	}
	return layout.Color, nil
}

// replaceDir removes a pre-existing output directory so stale views from a
// previous run cannot mix into the manifest.
func (p *Processor) replaceDir(dir string) error {
	if _, err := os.Stat(dir); err == nil {
		p.logger.Infow("output directory exists, removing it", "dir", dir)
		return os.RemoveAll(dir)
	}
	return nil
}

// binarizeMask collapses a mask raster to one plane where any nonzero source
// pixel becomes fully valid.
func binarizeMask(img *rimage.Image) *rimage.Image {
	out := rimage.NewImage(img.Width(), img.Height(), 1)
	for y := 0; y < img.Height(); y++ {
		for x := 0; x < img.Width(); x++ {
			for c := 0; c < img.Channels(); c++ {
				if img.Get(x, y, c) != 0 {
					out.Set(x, y, 0, 1)
					break
				}
			}
		}
	}
	return out
}

// ComputeSquareResolution picks a square view resolution from the heuristic
// that the sampled views together hold about as many pixels as the source
// panorama: numSamples * res^2 = height * width.
func ComputeSquareResolution(imageDir string, numSamples int) (image.Point, error) {
	if numSamples <= 0 {
		return image.Point{}, errors.Errorf("sample count must be positive, got %d", numSamples)
	}
	names, err := listPanoramas(imageDir, rimage.IsRasterFile)
	if err != nil {
		return image.Point{}, err
	}
	for _, name := range names {
		img, err := rimage.ReadImageFromFile(filepath.Join(imageDir, name))
		if err != nil {
			return image.Point{}, err
		}
		res := int(math.Sqrt(float64(img.Width()*img.Height()) / float64(numSamples)))
		return image.Pt(res, res), nil
	}
	return image.Point{}, errors.Errorf("no images found in %q", imageDir)
}
