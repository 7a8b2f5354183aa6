package imaging

import (
	"bytes"
	"image"
	"image/jpeg"
	_ "image/png"
	"os"

	_ "golang.org/x/image/bmp"

	"face-roster-go/internal/apperrors"
)

// Decode turns an encoded image payload into an in-memory pixel buffer.
// JPEG, PNG and BMP payloads are accepted.
func Decode(data []byte) (image.Image, error) {
	if len(data) == 0 {
		return nil, apperrors.ErrInvalidInput.WithMessage("empty image payload")
	}
	img, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, apperrors.ErrInvalidInput.WithError(err)
	}
	return img, nil
}

// EncodeJPEG encodes an image as JPEG.
func EncodeJPEG(img image.Image) ([]byte, error) {
	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, img, &jpeg.Options{Quality: 90}); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// WriteJPEG encodes an image as JPEG and writes it to path.
func WriteJPEG(img image.Image, path string) error {
	data, err := EncodeJPEG(img)
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0644)
}

// Crop returns the part of img covered by rect, clamped to the image bounds.
func Crop(img image.Image, rect image.Rectangle) image.Image {
	rect = rect.Intersect(img.Bounds())
	cropped := image.NewRGBA(image.Rect(0, 0, rect.Dx(), rect.Dy()))
	for y := 0; y < rect.Dy(); y++ {
		for x := 0; x < rect.Dx(); x++ {
			cropped.Set(x, y, img.At(rect.Min.X+x, rect.Min.Y+y))
		}
	}
	return cropped
}
