package mock

import (
	"context"
	"image"
	"image/color"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"face-roster-go/internal/imaging"
)

func encodeGradient(t *testing.T, flip bool) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, 32, 32))
	for y := 0; y < 32; y++ {
		for x := 0; x < 32; x++ {
			r := uint8(255 * x / 32)
			if flip {
				r = 255 - r
			}
			img.SetRGBA(x, y, color.RGBA{R: r, G: uint8(255 * y / 32), A: 255})
		}
	}
	data, err := imaging.EncodeJPEG(img)
	require.NoError(t, err)
	return data
}

func encodeFlat(t *testing.T) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, 32, 32))
	for y := 0; y < 32; y++ {
		for x := 0; x < 32; x++ {
			img.SetRGBA(x, y, color.RGBA{R: 90, G: 90, B: 90, A: 255})
		}
	}
	data, err := imaging.EncodeJPEG(img)
	require.NoError(t, err)
	return data
}

func TestDetect(t *testing.T) {
	p := New()

	detections, err := p.Detect(context.Background(), encodeGradient(t, false))
	require.NoError(t, err)
	require.Len(t, detections, 1)
	assert.Equal(t, 3, detections[0].Box.X)
	assert.Equal(t, 25, detections[0].Box.W)

	detections, err = p.Detect(context.Background(), encodeFlat(t))
	require.NoError(t, err)
	assert.Empty(t, detections, "a flat image contains no face")
}

func TestVerify(t *testing.T) {
	p := New()

	same, err := p.Verify(context.Background(), encodeGradient(t, false), encodeGradient(t, false))
	require.NoError(t, err)
	assert.True(t, same.Verified)
	assert.Less(t, same.Distance, DefaultThreshold)

	other, err := p.Verify(context.Background(), encodeGradient(t, false), encodeGradient(t, true))
	require.NoError(t, err)
	assert.False(t, other.Verified)
}

func TestRepresentRejectsInvalidData(t *testing.T) {
	p := New()

	_, err := p.Represent(context.Background(), []byte("not an image"))
	assert.Error(t, err)
}
