package handlers

import (
	"errors"
	"io"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	log "github.com/sirupsen/logrus"

	"face-roster-go/config"
	"face-roster-go/internal/apperrors"
	"face-roster-go/internal/integrations/faceservice"
	"face-roster-go/internal/service"
	"face-roster-go/internal/store"
	"face-roster-go/internal/system"
)

// APIHandler serves the identity lifecycle API.
type APIHandler struct {
	cfg       *config.Config
	lifecycle *service.Lifecycle
	store     *store.IdentityStore
	provider  faceservice.Provider
}

// NewAPIHandler creates a new API handler.
func NewAPIHandler(cfg *config.Config, lifecycle *service.Lifecycle, st *store.IdentityStore, provider faceservice.Provider) *APIHandler {
	return &APIHandler{
		cfg:       cfg,
		lifecycle: lifecycle,
		store:     st,
		provider:  provider,
	}
}

// RegisterRoutes registers all API routes.
func (h *APIHandler) RegisterRoutes(router *gin.RouterGroup) {
	router.POST("/identities", h.RegisterIdentity)
	router.GET("/identities", h.ListIdentities)
	router.GET("/identities/counts", h.ListIdentitiesWithCounts)
	router.DELETE("/identities/:id", h.DeleteIdentity)
	router.POST("/identities/:id/retrain", h.RetrainIdentity)

	router.POST("/recognize", h.Recognize)

	router.GET("/status", h.GetStatus)
}

// RegisterIdentity registers a subject from one uploaded face image.
func (h *APIHandler) RegisterIdentity(c *gin.Context) {
	id := c.PostForm("id")
	name := c.PostForm("name")
	if id == "" || name == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "id and name are required"})
		return
	}

	variantCount := 0
	if raw := c.PostForm("variant_count"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed <= 0 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "variant_count must be a positive integer"})
			return
		}
		variantCount = parsed
	}

	imageData, ok := h.readImageForm(c)
	if !ok {
		return
	}

	result, err := h.lifecycle.Register(c.Request.Context(), id, name, imageData, variantCount)
	if err != nil {
		h.respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, result)
}

// Recognize answers "who is this?" for one uploaded image.
func (h *APIHandler) Recognize(c *gin.Context) {
	imageData, ok := h.readImageForm(c)
	if !ok {
		return
	}

	matches, err := h.lifecycle.Recognize(c.Request.Context(), imageData)
	if err != nil {
		h.respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"matches": matches})
}

// ListIdentities returns all registered identities.
func (h *APIHandler) ListIdentities(c *gin.Context) {
	identities, err := h.lifecycle.List()
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, identities)
}

// ListIdentitiesWithCounts returns identities with their gallery sizes.
func (h *APIHandler) ListIdentitiesWithCounts(c *gin.Context) {
	counts, err := h.lifecycle.ListWithCounts()
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, counts)
}

// DeleteIdentity removes an identity addressed by id or display name.
func (h *APIHandler) DeleteIdentity(c *gin.Context) {
	deleted, err := h.lifecycle.Delete(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.respondError(c, err)
		return
	}
	if !deleted {
		c.JSON(http.StatusNotFound, gin.H{
			"deleted": false,
			"code":    apperrors.ErrNotFound.Code,
			"error":   "no identity with that id or name",
		})
		return
	}
	c.JSON(http.StatusOK, gin.H{"deleted": true})
}

// RetrainIdentity rebuilds the embedding cache for one identity.
func (h *APIHandler) RetrainIdentity(c *gin.Context) {
	report, err := h.lifecycle.Retrain(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, report)
}

// GetStatus reports provider availability, record counts and basic system
// statistics.
func (h *APIHandler) GetStatus(c *gin.Context) {
	identities, err := h.store.ListIdentities()
	if err != nil {
		h.respondError(c, err)
		return
	}
	entries, err := h.store.GalleryEntries()
	if err != nil {
		h.respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"provider":        h.provider.Name(),
		"provider_online": h.provider.Ping(c.Request.Context()),
		"identities":      len(identities),
		"gallery_images":  len(entries),
		"system":          system.Snapshot(),
	})
}

// readImageForm reads the uploaded image from the multipart form. On
// failure it writes the error response and returns ok=false.
func (h *APIHandler) readImageForm(c *gin.Context) ([]byte, bool) {
	file, _, err := c.Request.FormFile("image")
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "no image uploaded or invalid form data"})
		return nil, false
	}
	defer file.Close()

	imageData, err := io.ReadAll(file)
	if err != nil {
		log.WithError(err).Error("Failed to read uploaded image")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to read uploaded image"})
		return nil, false
	}
	return imageData, true
}

// respondError maps tagged application errors onto their HTTP status and
// hides everything else behind a 500.
func (h *APIHandler) respondError(c *gin.Context, err error) {
	var appErr *apperrors.AppError
	if errors.As(err, &appErr) {
		log.WithError(err).Warnf("Request failed: %s", appErr.Code)
		c.JSON(appErr.StatusCode, gin.H{"code": appErr.Code, "error": appErr.Message})
		return
	}

	log.WithError(err).Error("Request failed")
	c.JSON(http.StatusInternalServerError, gin.H{
		"code":  apperrors.ErrInternal.Code,
		"error": apperrors.ErrInternal.Message,
	})
}
