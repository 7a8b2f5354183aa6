package deepface

import (
	"context"
	"encoding/base64"
	"fmt"

	"face-roster-go/config"
	"face-roster-go/internal/integrations/faceservice"
)

// Service implements the faceservice.Provider interface against a
// DeepFace-compatible API server.
type Service struct {
	client *Client
	cfg    config.DeepFaceConfig
}

// NewService creates a new DeepFace-backed provider.
func NewService(cfg config.DeepFaceConfig) *Service {
	return &Service{
		client: NewClient(cfg),
		cfg:    cfg,
	}
}

// Name returns the provider identifier.
func (s *Service) Name() string {
	return "deepface"
}

// Ping reports whether the DeepFace service is reachable.
func (s *Service) Ping(ctx context.Context) bool {
	if !s.cfg.Enabled {
		return false
	}
	return s.client.Ping(ctx)
}

// Detect locates faces in an encoded image. The represent endpoint returns
// one result per detected face including its facial area and detector
// confidence, so a detection-only pass reuses it and drops the embeddings.
func (s *Service) Detect(ctx context.Context, image []byte) ([]faceservice.Detection, error) {
	resp, err := s.client.Represent(ctx, base64.StdEncoding.EncodeToString(image))
	if err != nil {
		return nil, fmt.Errorf("face detection failed: %w", err)
	}

	detections := make([]faceservice.Detection, 0, len(resp.Results))
	for _, r := range resp.Results {
		detections = append(detections, faceservice.Detection{
			Box: faceservice.BoundingBox{
				X: r.FacialArea.X,
				Y: r.FacialArea.Y,
				W: r.FacialArea.W,
				H: r.FacialArea.H,
			},
			Confidence: r.FaceConfidence,
		})
	}
	return detections, nil
}

// Represent extracts the embedding of the most confident face in the image.
func (s *Service) Represent(ctx context.Context, image []byte) ([]float64, error) {
	resp, err := s.client.Represent(ctx, base64.StdEncoding.EncodeToString(image))
	if err != nil {
		return nil, fmt.Errorf("embedding extraction failed: %w", err)
	}
	if len(resp.Results) == 0 {
		return nil, fmt.Errorf("no face in represent response")
	}

	best := resp.Results[0]
	for _, r := range resp.Results[1:] {
		if r.FaceConfidence > best.FaceConfidence {
			best = r
		}
	}
	return best.Embedding, nil
}

// Verify compares the faces in two encoded images using the configured
// distance metric.
func (s *Service) Verify(ctx context.Context, imageA, imageB []byte) (*faceservice.Verification, error) {
	resp, err := s.client.Verify(ctx,
		base64.StdEncoding.EncodeToString(imageA),
		base64.StdEncoding.EncodeToString(imageB),
	)
	if err != nil {
		return nil, fmt.Errorf("face verification failed: %w", err)
	}
	return &faceservice.Verification{
		Verified: resp.Verified,
		Distance: resp.Distance,
	}, nil
}
