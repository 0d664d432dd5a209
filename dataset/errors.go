package dataset

import "github.com/pkg/errors"

// ErrMissingCompanion is returned when a panorama requires a mask, HDR or
// exposure companion file that does not exist. It always aborts the batch:
// a hole in the dataset invalidates supervision for every view already
// rendered from it.
var ErrMissingCompanion = errors.New("companion file does not exist")

// ErrUnsupportedFormat is returned when a required companion cannot be named
// because the panorama's extension is not in the recognized raster set.
var ErrUnsupportedFormat = errors.New("unsupported raster format")

func missingCompanion(kind, path string) error {
	return errors.Wrapf(ErrMissingCompanion, "%s %q", kind, path)
}

func unsupportedFormat(name string) error {
	return errors.Wrapf(ErrUnsupportedFormat, "image format of %q", name)
}
