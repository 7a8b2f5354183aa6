package faceservice

import (
	"context"
	"math"
)

// BoundingBox holds the pixel coordinates of a detected face.
type BoundingBox struct {
	X int `json:"x"`
	Y int `json:"y"`
	W int `json:"w"`
	H int `json:"h"`
}

// Detection is one detected face with its detector confidence.
type Detection struct {
	Box        BoundingBox `json:"box"`
	Confidence float64     `json:"confidence"`
}

// Verification is the result of a pairwise face comparison. Distance is in
// a metric where 0 means identical.
type Verification struct {
	Verified bool    `json:"verified"`
	Distance float64 `json:"distance"`
}

// Provider is the interface to an external face model service. All calls
// are blocking; the context bounds stalled requests.
type Provider interface {
	// Name identifies the provider implementation.
	Name() string

	// Ping reports whether the service is reachable.
	Ping(ctx context.Context) bool

	// Detect locates faces in an encoded image. An empty slice is a valid
	// "no face" result, not an error.
	Detect(ctx context.Context, image []byte) ([]Detection, error)

	// Represent extracts a fixed-length embedding for the face in an
	// encoded image. Fails on undecodable input.
	Represent(ctx context.Context, image []byte) ([]float64, error)

	// Verify compares the faces in two encoded images.
	Verify(ctx context.Context, imageA, imageB []byte) (*Verification, error)
}

// CosineDistance computes the cosine distance between two vectors:
// 0 for identical direction, up to 2 for opposite. Invalid or zero-norm
// input yields the maximum distance.
func CosineDistance(a, b []float64) float64 {
	if len(a) != len(b) || len(a) == 0 {
		return 2.0
	}

	var dot, normA, normB float64
	for i := range a {
		dot += a[i] * b[i]
		normA += a[i] * a[i]
		normB += b[i] * b[i]
	}
	if normA == 0 || normB == 0 {
		return 2.0
	}

	similarity := dot / (math.Sqrt(normA) * math.Sqrt(normB))
	// Clamp to [-1, 1] to absorb floating point error.
	if similarity > 1 {
		similarity = 1
	}
	if similarity < -1 {
		similarity = -1
	}
	return 1 - similarity
}
