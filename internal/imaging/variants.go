package imaging

import (
	"image"
	"image/color"
	"image/draw"
	"math"
	"math/rand"
	"sync"

	xdraw "golang.org/x/image/draw"

	"face-roster-go/internal/apperrors"
)

// Generator produces photometrically and geometrically perturbed copies of
// a face crop so each identity gets a redundant gallery. Every variant has
// the exact pixel dimensions of the input crop.
type Generator struct {
	mu  sync.Mutex
	rnd *rand.Rand
}

// NewGenerator creates a Generator drawing randomness from rnd. Tests pass
// a seeded source to make the transforms deterministic; production wiring
// seeds from the clock.
func NewGenerator(rnd *rand.Rand) *Generator {
	return &Generator{rnd: rnd}
}

// Generate returns count variants of img. Each variant independently draws
// its own brightness, contrast, rotation and scale parameters.
func (g *Generator) Generate(img image.Image, count int) ([]image.Image, error) {
	bounds := img.Bounds()
	if bounds.Dx() == 0 || bounds.Dy() == 0 {
		return nil, apperrors.ErrInvalidInput.WithMessage("face crop has zero width or height")
	}

	variants := make([]image.Image, 0, count)
	for i := 0; i < count; i++ {
		g.mu.Lock()
		brightness := g.uniform(0.9, 1.1)
		contrast := g.uniform(0.9, 1.1)
		angle := g.uniform(-5, 5)
		scale := g.uniform(0.95, 1.05)
		g.mu.Unlock()

		variant := toRGBA(img)
		variant = applyGain(variant, brightness)
		variant = applyGain(variant, contrast)
		variant = rotate(variant, angle)
		variant = scaleJitter(variant, scale)
		variants = append(variants, variant)
	}
	return variants, nil
}

func (g *Generator) uniform(lo, hi float64) float64 {
	return lo + g.rnd.Float64()*(hi-lo)
}

func toRGBA(img image.Image) *image.RGBA {
	bounds := img.Bounds()
	dst := image.NewRGBA(image.Rect(0, 0, bounds.Dx(), bounds.Dy()))
	draw.Draw(dst, dst.Bounds(), img, bounds.Min, draw.Src)
	return dst
}

// applyGain multiplies every channel by factor, clamped to [0, 255].
// Brightness and contrast jitter are both plain multiplicative gains,
// applied in sequence with independent draws.
func applyGain(img *image.RGBA, factor float64) *image.RGBA {
	dst := image.NewRGBA(img.Bounds())
	for i := 0; i < len(img.Pix); i += 4 {
		dst.Pix[i] = clampByte(float64(img.Pix[i]) * factor)
		dst.Pix[i+1] = clampByte(float64(img.Pix[i+1]) * factor)
		dst.Pix[i+2] = clampByte(float64(img.Pix[i+2]) * factor)
		dst.Pix[i+3] = img.Pix[i+3]
	}
	return dst
}

func clampByte(v float64) uint8 {
	if v < 0 {
		return 0
	}
	if v > 255 {
		return 255
	}
	return uint8(math.Round(v))
}

// rotate rotates the image about its center by angle degrees. The canvas
// size is unchanged: pixels rotated outside the bounds are lost, uncovered
// pixels are filled with opaque black.
func rotate(img *image.RGBA, angle float64) *image.RGBA {
	bounds := img.Bounds()
	w, h := bounds.Dx(), bounds.Dy()
	dst := image.NewRGBA(image.Rect(0, 0, w, h))
	draw.Draw(dst, dst.Bounds(), image.NewUniform(color.Black), image.Point{}, draw.Src)

	rad := angle * math.Pi / 180
	sin, cos := math.Sincos(rad)
	cx, cy := float64(w)/2, float64(h)/2

	// Inverse mapping: for each destination pixel sample the source pixel
	// it came from, nearest-neighbor.
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			dx, dy := float64(x)-cx, float64(y)-cy
			sx := int(math.Round(cx + dx*cos - dy*sin))
			sy := int(math.Round(cy + dx*sin + dy*cos))
			if sx >= 0 && sx < w && sy >= 0 && sy < h {
				dst.SetRGBA(x, y, img.RGBAAt(sx, sy))
			}
		}
	}
	return dst
}

// scaleJitter resizes by factor and recenters onto a canvas of the original
// dimensions: larger results are center-cropped, smaller ones are centered
// on a constant black border. The output always matches the input size.
func scaleJitter(img *image.RGBA, factor float64) *image.RGBA {
	bounds := img.Bounds()
	w, h := bounds.Dx(), bounds.Dy()
	newW := int(math.Round(float64(w) * factor))
	newH := int(math.Round(float64(h) * factor))
	if newW == w && newH == h {
		return img
	}
	if newW < 1 {
		newW = 1
	}
	if newH < 1 {
		newH = 1
	}

	scaled := image.NewRGBA(image.Rect(0, 0, newW, newH))
	xdraw.ApproxBiLinear.Scale(scaled, scaled.Bounds(), img, bounds, xdraw.Src, nil)

	dst := image.NewRGBA(image.Rect(0, 0, w, h))
	draw.Draw(dst, dst.Bounds(), image.NewUniform(color.Black), image.Point{}, draw.Src)
	offset := image.Pt((newW-w)/2, (newH-h)/2)
	draw.Draw(dst, dst.Bounds(), scaled, offset, draw.Src)
	return dst
}
