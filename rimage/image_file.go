package rimage

import (
	"image"
	"image/jpeg"
	"image/png"
	"os"
	"path/filepath"
	"strings"

	"github.com/pkg/errors"
	"go.uber.org/multierr"
	goutils "go.viam.com/utils"
	"golang.org/x/image/tiff"
)

// FloatExtension is the extension used for radiance (float) rasters.
const FloatExtension = ".exr"

// recognized lists every raster extension the pipeline will read.
var recognized = map[string]bool{
	".jpg":  true,
	".jpeg": true,
	".png":  true,
	".tif":  true,
	".tiff": true,
	".exr":  true,
}

// IsRasterFile reports whether the path has a recognized raster extension.
func IsRasterFile(path string) bool {
	return recognized[strings.ToLower(filepath.Ext(path))]
}

// IsFloatFile reports whether the path holds radiance (unclamped float) data.
func IsFloatFile(path string) bool {
	return strings.ToLower(filepath.Ext(path)) == FloatExtension
}

// ReadImageFromFile loads a raster. Display-range formats are normalized to
// [0,1]; EXR data is returned as stored.
func ReadImageFromFile(path string) (*Image, error) {
	switch ext := strings.ToLower(filepath.Ext(path)); ext {
	case ".exr":
		return ReadEXRFromFile(path)
	case ".png", ".jpg", ".jpeg", ".tif", ".tiff":
		//nolint:gosec
		f, err := os.Open(path)
		if err != nil {
			return nil, err
		}
		defer goutils.UncheckedErrorFunc(f.Close)
		var img image.Image
		if ext == ".tif" || ext == ".tiff" {
			img, err = tiff.Decode(f)
		} else {
			img, _, err = image.Decode(f)
		}
		if err != nil {
			return nil, errors.Wrapf(err, "cannot decode %q", path)
		}
		return ConvertImage(img), nil
	default:
		return nil, errors.Errorf("unrecognized raster extension on %q", path)
	}
}

// WriteImageToFile writes a raster, choosing the codec from the extension.
// PNG and JPEG treat samples as [0,1] display values; EXR stores them exactly.
func WriteImageToFile(path string, img *Image) error {
	switch ext := strings.ToLower(filepath.Ext(path)); ext {
	case ".exr":
		return WriteEXRToFile(path, img)
	case ".png", ".jpg", ".jpeg":
		//nolint:gosec
		f, err := os.Create(path)
		if err != nil {
			return err
		}
		if ext == ".png" {
			err = png.Encode(f, img.ToGoImage())
		} else {
			err = jpeg.Encode(f, img.ToGoImage(), nil)
		}
		return multierr.Combine(err, f.Close())
	default:
		return errors.Errorf("cannot write raster with extension %q", filepath.Ext(path))
	}
}
