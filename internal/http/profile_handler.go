package http

import (
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"valo-coach/internal/service"
)

const defaultAutosaveDelay = time.Second

// ProfileHandler mantiene dependencias para endpoints de perfil.
type ProfileHandler struct {
	logger      *zap.Logger
	profileServ *service.ProfileService

	autosaveDelay time.Duration
	mu            sync.Mutex
	autosavers    map[string]*service.ProfileAutosaver
}

func NewProfileHandler(logger *zap.Logger, profileServ *service.ProfileService) *ProfileHandler {
	return &ProfileHandler{
		logger:        logger,
		profileServ:   profileServ,
		autosaveDelay: defaultAutosaveDelay,
		autosavers:    make(map[string]*service.ProfileAutosaver),
	}
}

// GetProfile maneja GET /api/auth/profile.
func (h *ProfileHandler) GetProfile(c *gin.Context) {
	claims, ok := GetAuthClaims(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
		return
	}

	profile, err := h.profileServ.Get(c.Request.Context(), claims.UserID)
	if err != nil {
		h.logger.Error("get profile failed", zap.String("user_id", claims.UserID), zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "could not load profile"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"profile": profile})
}

// UpdateProfile maneja PUT /api/auth/profile.
func (h *ProfileHandler) UpdateProfile(c *gin.Context) {
	claims, ok := GetAuthClaims(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
		return
	}

	var update service.ProfileUpdate
	if err := c.ShouldBindJSON(&update); err != nil {
		h.logger.Warn("invalid profile update request", zap.Error(err))
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request"})
		return
	}

	profile, err := h.profileServ.Update(c.Request.Context(), claims.UserID, update)
	if err != nil {
		h.logger.Error("update profile failed", zap.String("user_id", claims.UserID), zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "could not update profile"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"profile": profile})
}

// AutosaveProfile maneja PATCH /api/auth/profile: acumula ediciones rápidas
// del editor y las persiste en un solo upsert tras un periodo de quietud.
func (h *ProfileHandler) AutosaveProfile(c *gin.Context) {
	claims, ok := GetAuthClaims(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
		return
	}

	var update service.ProfileUpdate
	if err := c.ShouldBindJSON(&update); err != nil {
		h.logger.Warn("invalid profile autosave request", zap.Error(err))
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request"})
		return
	}
	if update.IsEmpty() {
		c.JSON(http.StatusBadRequest, gin.H{"error": "empty update"})
		return
	}

	h.autosaverFor(claims.UserID).Queue(update)
	c.JSON(http.StatusAccepted, gin.H{"status": "queued"})
}

func (h *ProfileHandler) autosaverFor(userID string) *service.ProfileAutosaver {
	h.mu.Lock()
	defer h.mu.Unlock()
	saver, ok := h.autosavers[userID]
	if !ok {
		saver = service.NewProfileAutosaver(h.logger, h.profileServ, userID, h.autosaveDelay)
		h.autosavers[userID] = saver
	}
	return saver
}
