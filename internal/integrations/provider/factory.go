package provider

import (
	log "github.com/sirupsen/logrus"

	"face-roster-go/config"
	"face-roster-go/internal/integrations/deepface"
	"face-roster-go/internal/integrations/faceservice"
	"face-roster-go/internal/integrations/faceservice/mock"
)

// New selects the face service backing the gallery from the
// configuration. When the external DeepFace service is disabled the
// deterministic in-process mock is used instead, which keeps the API
// usable in development setups without a GPU container.
func New(cfg *config.Config) faceservice.Provider {
	if cfg.DeepFace.Enabled {
		log.Infof("Using DeepFace provider at %s (model=%s, detector=%s)",
			cfg.DeepFace.URL, cfg.DeepFace.Model, cfg.DeepFace.Detector)
		return deepface.NewService(cfg.DeepFace)
	}

	log.Warn("DeepFace provider disabled, falling back to the mock provider")
	return mock.New()
}
