// Package main renders planar perspective views from directories of
// equirectangular panoramas.
package main

import (
	"flag"
	"fmt"
	"image"
	"os"

	"github.com/edaniels/golog"

	"github.com/lanternscene/panoplanar/dataset"
	"github.com/lanternscene/panoplanar/equirect"
)

var logger = golog.NewDevelopmentLogger("planarize")

func main() {
	err := realMain(os.Args[1:])
	if err != nil {
		logger.Fatal(err)
	}
}

func realMain(args []string) error {
	if len(args) < 1 {
		return fmt.Errorf("need to specify a command (planar, exposures, gt)")
	}

	cmd := args[0]

	switch cmd {
	case "planar":
		return planar(args[1:])
	case "exposures":
		return exposures(args[1:])
	case "gt":
		return groundTruth(args[1:])
	default:
		return fmt.Errorf("unknown command: [%s]", cmd)
	}
}

type commonFlags struct {
	imageDir *string
	samples  *int
	res      *int
	cropT    *float64
	cropB    *float64
	cropL    *float64
	cropR    *float64
}

func addCommonFlags(flags *flag.FlagSet) commonFlags {
	return commonFlags{
		imageDir: flags.String("images", "", "directory of source panoramas"),
		samples:  flags.Int("samples", 8, "planar views per panorama (8 or 14)"),
		res:      flags.Int("res", 0, "square output resolution, 0 derives it from the panorama size"),
		cropT:    flags.Float64("crop-top", 0, "fraction of the panorama to crop from the top"),
		cropB:    flags.Float64("crop-bottom", 0, "fraction of the panorama to crop from the bottom"),
		cropL:    flags.Float64("crop-left", 0, "fraction of the panorama to crop from the left"),
		cropR:    flags.Float64("crop-right", 0, "fraction of the panorama to crop from the right"),
	}
}

func (cf commonFlags) crop() equirect.CropFactor {
	return equirect.CropFactor{
		Top:    *cf.cropT,
		Bottom: *cf.cropB,
		Left:   *cf.cropL,
		Right:  *cf.cropR,
	}
}

func (cf commonFlags) outputSize() (image.Point, error) {
	if *cf.imageDir == "" {
		return image.Point{}, fmt.Errorf("-images is required")
	}
	if *cf.res > 0 {
		return image.Pt(*cf.res, *cf.res), nil
	}
	return dataset.ComputeSquareResolution(*cf.imageDir, *cf.samples)
}

func planar(args []string) error {
	flags := flag.NewFlagSet("planar", flag.ContinueOnError)
	common := addCommonFlags(flags)
	maskDir := flags.String("masks", "", "optional directory of panorama masks")
	hdrDir := flags.String("hdr", "", "optional directory of HDR companions")
	hdrFloat := flags.Bool("hdr-float", false, "HDR companions are .exr radiance files")
	hdrRes := flags.Int("hdr-res", 0, "square HDR output resolution, 0 matches -res")
	if err := flags.Parse(args); err != nil {
		return err
	}

	size, err := common.outputSize()
	if err != nil {
		return err
	}
	hdrSize := size
	if *hdrRes > 0 {
		hdrSize = image.Pt(*hdrRes, *hdrRes)
	}

	p := dataset.NewProcessor(logger)
	layout, err := p.GeneratePlanarProjections(dataset.PlanarOptions{
		ImageDir:        *common.imageDir,
		OutputSize:      size,
		SamplesPerImage: *common.samples,
		Crop:            common.crop(),
		MaskDir:         *maskDir,
		HDRDir:          *hdrDir,
		HDRIsFloat:      *hdrFloat,
		HDROutputSize:   hdrSize,
	})
	if err != nil {
		return err
	}
	logger.Infow("done", "output", layout.Color)
	return nil
}

func exposures(args []string) error {
	flags := flag.NewFlagSet("exposures", flag.ContinueOnError)
	common := addCommonFlags(flags)
	e1Dir := flags.String("e1", "", "directory of first-exposure radiance files")
	e2Dir := flags.String("e2", "", "directory of second-exposure radiance files")
	mask1Dir := flags.String("mask1", "", "directory of first-exposure masks")
	mask2Dir := flags.String("mask2", "", "directory of second-exposure masks")
	f1 := flags.Float64("f1", 1, "normalization factor for the first exposure")
	f2 := flags.Float64("f2", 1, "normalization factor for the second exposure")
	if err := flags.Parse(args); err != nil {
		return err
	}

	size, err := common.outputSize()
	if err != nil {
		return err
	}

	p := dataset.NewProcessor(logger)
	layout, err := p.GeneratePlanarProjectionsWithTwoExposures(dataset.TwoExposureOptions{
		ImageDir:        *common.imageDir,
		OutputSize:      size,
		SamplesPerImage: *common.samples,
		Crop:            common.crop(),
		Exposure1Dir:    *e1Dir,
		Exposure2Dir:    *e2Dir,
		Mask1Dir:        *mask1Dir,
		Mask2Dir:        *mask2Dir,
		Exposure1Factor: *f1,
		Exposure2Factor: *f2,
	})
	if err != nil {
		return err
	}
	logger.Infow("done", "output", layout.Color)
	return nil
}

func groundTruth(args []string) error {
	flags := flag.NewFlagSet("gt", flag.ContinueOnError)
	common := addCommonFlags(flags)
	metadataPath := flags.String("metadata", "", "transforms manifest holding panorama world poses")
	clip := flags.Bool("clip", false, "clamp color output to display range")
	useMask := flags.Bool("use-mask", false, "render companion masks from <images>/mask")
	useExposure := flags.Bool("use-exposure", false, "tag radiance frames with an exposure scalar")
	marker := flags.String("exposure-marker", dataset.DefaultExposureMarker, "stem prefix marking reduced-exposure panoramas")
	reduced := flags.Float64("reduced-exposure", dataset.DefaultReducedExposure, "exposure scalar for marked panoramas")
	if err := flags.Parse(args); err != nil {
		return err
	}

	size, err := common.outputSize()
	if err != nil {
		return err
	}

	p := dataset.NewProcessor(logger)
	outDir, err := p.GenerateGroundTruthProjections(dataset.GroundTruthOptions{
		MetadataPath:    *metadataPath,
		ImageDir:        *common.imageDir,
		OutputSize:      size,
		SamplesPerImage: *common.samples,
		Crop:            common.crop(),
		ClipOutput:      *clip,
		UseMask:         *useMask,
		UseExposure:     *useExposure,
		ExposureMarker:  *marker,
		ReducedExposure: *reduced,
	})
	if err != nil {
		return err
	}
	logger.Infow("done", "output", outDir)
	return nil
}
