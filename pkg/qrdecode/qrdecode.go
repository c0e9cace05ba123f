// Package qrdecode locates and decodes QR codes in uploaded raster images.
package qrdecode

import (
	"bytes"
	"image"
	_ "image/gif"  // register GIF decoder
	_ "image/jpeg" // register JPEG decoder
	_ "image/png"  // register PNG decoder
	"strings"

	"github.com/gabriel-vasile/mimetype"
	"github.com/go-faster/errors"
	"github.com/makiuchi-d/gozxing"
	"github.com/makiuchi-d/gozxing/qrcode"
	_ "golang.org/x/image/bmp"  // register BMP decoder
	_ "golang.org/x/image/tiff" // register TIFF decoder
	_ "golang.org/x/image/webp" // register WebP decoder

	"multiapi/pkg/serrors"
)

// MaxPixels bounds the decoded raster so a small upload cannot expand into a
// huge bitmap.
const MaxPixels = 40_000_000

var (
	// ErrUnsupportedImageFormat is returned when the bytes are not a raster
	// image this package can decode.
	ErrUnsupportedImageFormat = errors.New("unsupported image format")
	// ErrNoCodeFound is returned when the image decoded but holds no readable QR code.
	ErrNoCodeFound = errors.New("no QR code found in the image")
)

// Decode returns the text payload of the first QR code found in b.
// Both failure sentinels are wrapped in serrors.ErrBadRequest.
func Decode(b []byte) (string, error) {
	if len(b) == 0 {
		return "", serrors.Wrap(serrors.ErrBadRequest, ErrUnsupportedImageFormat, "empty image")
	}

	mime := mimetype.Detect(b)
	if !strings.HasPrefix(mime.String(), "image/") {
		return "", serrors.Wrap(serrors.ErrBadRequest, ErrUnsupportedImageFormat,
			"uploaded file is %s, not an image", mime.String())
	}

	cfg, format, err := image.DecodeConfig(bytes.NewReader(b))
	if err != nil {
		return "", serrors.Wrap(serrors.ErrBadRequest, errors.Wrap(ErrUnsupportedImageFormat, err.Error()),
			"could not read %s image", mime.String())
	}
	if cfg.Width*cfg.Height > MaxPixels {
		return "", serrors.Wrap(serrors.ErrPayloadTooLarge, ErrUnsupportedImageFormat,
			"image of %dx%d pixels is too large", cfg.Width, cfg.Height)
	}

	img, _, err := image.Decode(bytes.NewReader(b))
	if err != nil {
		return "", serrors.Wrap(serrors.ErrBadRequest, errors.Wrap(ErrUnsupportedImageFormat, err.Error()),
			"could not decode %s image", format)
	}

	return DecodeImage(img)
}

// DecodeImage runs QR detection on an already decoded image.
func DecodeImage(img image.Image) (string, error) {
	bmp, err := gozxing.NewBinaryBitmapFromImage(img)
	if err != nil {
		return "", serrors.Wrap(serrors.ErrBadRequest, errors.Wrap(ErrUnsupportedImageFormat, err.Error()),
			"could not binarize image")
	}

	hints := map[gozxing.DecodeHintType]interface{}{
		gozxing.DecodeHintType_TRY_HARDER: true,
	}

	res, err := qrcode.NewQRCodeReader().Decode(bmp, hints)
	if err != nil {
		return "", serrors.Wrap(serrors.ErrBadRequest, errors.Wrap(ErrNoCodeFound, err.Error()),
			"No QR code found in the image.")
	}

	return res.GetText(), nil
}
