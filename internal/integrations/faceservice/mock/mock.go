// Package mock provides a deterministic in-process faceservice.Provider.
// It stands in for the DeepFace service in tests and when the external
// service is disabled: embeddings are coarse color-grid signatures, so two
// crops of the same source verify against each other while images with
// different content do not.
package mock

import (
	"context"
	"image"

	"face-roster-go/internal/imaging"
	"face-roster-go/internal/integrations/faceservice"
)

const (
	// gridSize controls the embedding resolution: gridSize² cells with
	// three channels each.
	gridSize = 4

	// DefaultThreshold is the cosine distance below which a pair counts
	// as verified.
	DefaultThreshold = 0.05

	// minVariance is the per-channel spread below which an image counts
	// as flat, i.e. containing no face.
	minVariance = 8.0
)

// Provider is a deterministic stand-in for an external face service.
type Provider struct {
	Threshold float64
}

// New creates a mock provider with the default verification threshold.
func New() *Provider {
	return &Provider{Threshold: DefaultThreshold}
}

func (p *Provider) Name() string {
	return "mock"
}

func (p *Provider) Ping(_ context.Context) bool {
	return true
}

// Detect reports a single centered face for any image with enough pixel
// variance; flat images yield an empty result.
func (p *Provider) Detect(_ context.Context, data []byte) ([]faceservice.Detection, error) {
	img, err := imaging.Decode(data)
	if err != nil {
		return nil, err
	}

	if !hasVariance(img) {
		return nil, nil
	}

	bounds := img.Bounds()
	w, h := bounds.Dx(), bounds.Dy()
	return []faceservice.Detection{{
		Box: faceservice.BoundingBox{
			X: w / 10,
			Y: h / 10,
			W: w * 8 / 10,
			H: h * 8 / 10,
		},
		Confidence: 0.9,
	}}, nil
}

// Represent computes a color-grid signature over the image.
func (p *Provider) Represent(_ context.Context, data []byte) ([]float64, error) {
	img, err := imaging.Decode(data)
	if err != nil {
		return nil, err
	}
	return signature(img), nil
}

// Verify compares the signatures of two images by cosine distance.
func (p *Provider) Verify(ctx context.Context, imageA, imageB []byte) (*faceservice.Verification, error) {
	embA, err := p.Represent(ctx, imageA)
	if err != nil {
		return nil, err
	}
	embB, err := p.Represent(ctx, imageB)
	if err != nil {
		return nil, err
	}

	distance := faceservice.CosineDistance(embA, embB)
	return &faceservice.Verification{
		Verified: distance <= p.Threshold,
		Distance: distance,
	}, nil
}

// signature averages each color channel over a gridSize×gridSize partition
// of the image.
func signature(img image.Image) []float64 {
	bounds := img.Bounds()
	w, h := bounds.Dx(), bounds.Dy()
	emb := make([]float64, gridSize*gridSize*3)
	counts := make([]float64, gridSize*gridSize)

	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			gx := x * gridSize / w
			gy := y * gridSize / h
			cell := gy*gridSize + gx
			r, g, b, _ := img.At(bounds.Min.X+x, bounds.Min.Y+y).RGBA()
			emb[cell*3] += float64(r >> 8)
			emb[cell*3+1] += float64(g >> 8)
			emb[cell*3+2] += float64(b >> 8)
			counts[cell]++
		}
	}
	for cell, n := range counts {
		if n > 0 {
			emb[cell*3] /= n
			emb[cell*3+1] /= n
			emb[cell*3+2] /= n
		}
	}
	return emb
}

// hasVariance reports whether any channel spreads by more than minVariance
// across the grid cells.
func hasVariance(img image.Image) bool {
	emb := signature(img)
	for ch := 0; ch < 3; ch++ {
		lo, hi := 256.0, 0.0
		for cell := 0; cell < gridSize*gridSize; cell++ {
			v := emb[cell*3+ch]
			if v < lo {
				lo = v
			}
			if v > hi {
				hi = v
			}
		}
		if hi-lo > minVariance {
			return true
		}
	}
	return false
}
