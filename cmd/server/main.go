package main

import (
	"fmt"
	"math/rand"
	"os"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	log "github.com/sirupsen/logrus"

	"face-roster-go/config"
	"face-roster-go/internal/api/handlers"
	"face-roster-go/internal/db"
	"face-roster-go/internal/gallery"
	"face-roster-go/internal/imaging"
	"face-roster-go/internal/integrations/provider"
	"face-roster-go/internal/logger"
	"face-roster-go/internal/recognition"
	"face-roster-go/internal/service"
	"face-roster-go/internal/store"
)

const defaultConfigPath = "/config/config.yaml"

func main() {
	configPath := os.Getenv("FACE_ROSTER_CONFIG")
	if configPath == "" {
		configPath = defaultConfigPath
	}

	cfg, err := config.Load(configPath)
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	if err := logger.Init(cfg.Log); err != nil {
		log.Errorf("Failed to initialize logger completely: %v", err)
	}

	log.Info("Initializing database...")
	handle, err := db.Open(cfg.DB)
	if err != nil {
		log.Fatalf("Failed to initialize database: %v", err)
	}
	defer func() {
		if err := db.Close(handle); err != nil {
			log.WithError(err).Warn("Failed to close database")
		}
	}()

	identityStore := store.New(handle)

	faceProvider := provider.New(cfg)

	embeddingCache := gallery.NewCache(cfg.Storage.ModelDir, faceProvider, identityStore)
	generator := imaging.NewGenerator(rand.New(rand.NewSource(time.Now().UnixNano())))
	engine := recognition.NewEngine(identityStore, faceProvider, recognition.ParsePolicy(cfg.Matching.Policy))
	lifecycle := service.New(cfg.Matching, cfg.Storage.GalleryDir, identityStore,
		embeddingCache, engine, faceProvider, generator)

	apiHandler := handlers.NewAPIHandler(cfg, lifecycle, identityStore, faceProvider)

	router := gin.New()
	router.Use(gin.Recovery(), gin.Logger())
	router.Use(cors.Default())

	apiHandler.RegisterRoutes(router.Group("/api"))

	// Serve the stored gallery images for inspection.
	router.Static("/gallery", cfg.Storage.GalleryDir)

	serverAddr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
	log.Infof("Starting server on %s", serverAddr)
	if err := router.Run(serverAddr); err != nil {
		log.Fatalf("Server failed to start: %v", err)
	}
}
