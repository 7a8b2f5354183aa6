package imaging

import (
	"image"
	"image/color"
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"face-roster-go/internal/apperrors"
)

// gradientImage builds a smooth two-axis gradient so that photometric and
// geometric perturbations have visible pixel effects.
func gradientImage(w, h int) *image.RGBA {
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.SetRGBA(x, y, color.RGBA{
				R: uint8(255 * x / w),
				G: uint8(255 * y / h),
				B: 128,
				A: 255,
			})
		}
	}
	return img
}

func TestGenerateKeepsDimensions(t *testing.T) {
	gen := NewGenerator(rand.New(rand.NewSource(42)))

	for _, size := range []struct{ w, h int }{{64, 64}, {120, 80}, {33, 47}} {
		src := gradientImage(size.w, size.h)
		variants, err := gen.Generate(src, 10)
		require.NoError(t, err)
		require.Len(t, variants, 10)

		for i, v := range variants {
			assert.Equal(t, size.w, v.Bounds().Dx(), "variant %d width", i)
			assert.Equal(t, size.h, v.Bounds().Dy(), "variant %d height", i)
		}
	}
}

func TestGenerateZeroAreaInput(t *testing.T) {
	gen := NewGenerator(rand.New(rand.NewSource(1)))

	_, err := gen.Generate(image.NewRGBA(image.Rect(0, 0, 0, 10)), 3)
	require.Error(t, err)
	assert.ErrorIs(t, err, apperrors.ErrInvalidInput)

	_, err = gen.Generate(image.NewRGBA(image.Rect(0, 0, 10, 0)), 3)
	assert.ErrorIs(t, err, apperrors.ErrInvalidInput)
}

func TestGenerateDeterministicWithSeed(t *testing.T) {
	src := gradientImage(48, 48)

	genA := NewGenerator(rand.New(rand.NewSource(7)))
	genB := NewGenerator(rand.New(rand.NewSource(7)))

	variantsA, err := genA.Generate(src, 4)
	require.NoError(t, err)
	variantsB, err := genB.Generate(src, 4)
	require.NoError(t, err)

	for i := range variantsA {
		a := variantsA[i].(*image.RGBA)
		b := variantsB[i].(*image.RGBA)
		assert.Equal(t, a.Pix, b.Pix, "variant %d should be reproducible under the same seed", i)
	}
}

func TestGenerateVariantsDiffer(t *testing.T) {
	src := gradientImage(48, 48)
	gen := NewGenerator(rand.New(rand.NewSource(3)))

	variants, err := gen.Generate(src, 2)
	require.NoError(t, err)

	a := variants[0].(*image.RGBA)
	b := variants[1].(*image.RGBA)
	assert.NotEqual(t, a.Pix, b.Pix, "independent draws should perturb variants differently")
}

func TestApplyGainClamping(t *testing.T) {
	img := image.NewRGBA(image.Rect(0, 0, 1, 1))
	img.SetRGBA(0, 0, color.RGBA{R: 250, G: 10, B: 128, A: 255})

	brightened := applyGain(img, 1.1)
	px := brightened.RGBAAt(0, 0)
	assert.Equal(t, uint8(255), px.R, "overflowing channel clamps at 255")
	assert.Equal(t, uint8(11), px.G)
	assert.Equal(t, uint8(255), px.A, "alpha is untouched")
}

func TestDecodeRoundtrip(t *testing.T) {
	data, err := EncodeJPEG(gradientImage(32, 32))
	require.NoError(t, err)

	img, err := Decode(data)
	require.NoError(t, err)
	assert.Equal(t, 32, img.Bounds().Dx())
	assert.Equal(t, 32, img.Bounds().Dy())
}

func TestDecodeInvalidInput(t *testing.T) {
	_, err := Decode(nil)
	assert.ErrorIs(t, err, apperrors.ErrInvalidInput)

	_, err = Decode([]byte("definitely not an image"))
	assert.ErrorIs(t, err, apperrors.ErrInvalidInput)
}

func TestCropClampsToBounds(t *testing.T) {
	src := gradientImage(40, 40)

	cropped := Crop(src, image.Rect(-10, -10, 20, 20))
	assert.Equal(t, 20, cropped.Bounds().Dx())
	assert.Equal(t, 20, cropped.Bounds().Dy())

	cropped = Crop(src, image.Rect(30, 30, 100, 100))
	assert.Equal(t, 10, cropped.Bounds().Dx())
	assert.Equal(t, 10, cropped.Bounds().Dy())
}
