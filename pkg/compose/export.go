package compose

import (
	"bytes"
	"image"
	"strings"

	"github.com/disintegration/imaging"

	zferrors "github.com/dkrolls/zoneforge/pkg/errors"
)

// EncodePNG returns the raster as PNG bytes.
func EncodePNG(img image.Image) ([]byte, error) {
	var buf bytes.Buffer
	if err := imaging.Encode(&buf, img, imaging.PNG); err != nil {
		return nil, zferrors.Wrap(zferrors.ErrCodeInternal, err, "encode png")
	}
	return buf.Bytes(), nil
}

// EncodeJPEG returns the raster as JPEG bytes at the given quality (1-100).
func EncodeJPEG(img image.Image, quality int) ([]byte, error) {
	if quality < 1 || quality > 100 {
		return nil, zferrors.New(zferrors.ErrCodeInvalidInput,
			"jpeg quality must be in 1..100, got %d", quality)
	}
	var buf bytes.Buffer
	if err := imaging.Encode(&buf, img, imaging.JPEG, imaging.JPEGQuality(quality)); err != nil {
		return nil, zferrors.Wrap(zferrors.ErrCodeInternal, err, "encode jpeg")
	}
	return buf.Bytes(), nil
}

// ExportDocument produces the document form of a composition. The current
// document export is a re-encoded raster; a vector export with live text
// layers would slot in behind the same call.
func ExportDocument(out *Output) ([]byte, error) {
	if out == nil || out.Print == nil {
		return nil, zferrors.New(zferrors.ErrCodeInvalidInput, "nothing to export")
	}
	return EncodePNG(out.Print)
}

// Save writes a raster to disk, inferring the format from the extension.
func Save(img image.Image, path string) error {
	if img == nil {
		return zferrors.New(zferrors.ErrCodeInvalidInput, "nothing to save")
	}
	lower := strings.ToLower(path)
	if !strings.HasSuffix(lower, ".png") && !strings.HasSuffix(lower, ".jpg") &&
		!strings.HasSuffix(lower, ".jpeg") {
		return zferrors.New(zferrors.ErrCodeInvalidFormat,
			"unsupported output format for %s (use .png or .jpg)", path)
	}
	if err := imaging.Save(img, path); err != nil {
		return zferrors.Wrap(zferrors.ErrCodeInternal, err, "save %s", path)
	}
	return nil
}
