package service

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"
)

// ProfileAutosaver coalesce ediciones rápidas de perfil en un solo upsert
// tras un periodo de quietud; cada mutación nueva reinicia el timer.
type ProfileAutosaver struct {
	logger   *zap.Logger
	profiles *ProfileService
	userID   string
	delay    time.Duration

	mu      sync.Mutex
	pending ProfileUpdate
	dirty   bool
	timer   *time.Timer
	closed  bool
}

func NewProfileAutosaver(logger *zap.Logger, profiles *ProfileService, userID string, delay time.Duration) *ProfileAutosaver {
	if delay <= 0 {
		delay = time.Second
	}
	return &ProfileAutosaver{
		logger:   logger,
		profiles: profiles,
		userID:   userID,
		delay:    delay,
	}
}

// Queue acumula el parche y reprograma el guardado.
func (a *ProfileAutosaver) Queue(update ProfileUpdate) {
	if update.IsEmpty() {
		return
	}
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.closed {
		return
	}
	a.pending = a.pending.Merge(update)
	a.dirty = true
	if a.timer != nil {
		a.timer.Stop()
	}
	a.timer = time.AfterFunc(a.delay, func() {
		a.Flush(context.Background())
	})
}

// Flush persiste inmediatamente lo acumulado, si hay algo.
func (a *ProfileAutosaver) Flush(ctx context.Context) {
	a.mu.Lock()
	if !a.dirty {
		a.mu.Unlock()
		return
	}
	update := a.pending
	a.pending = ProfileUpdate{}
	a.dirty = false
	if a.timer != nil {
		a.timer.Stop()
		a.timer = nil
	}
	a.mu.Unlock()

	// Persistencia best-effort: un fallo se loguea y se descarta.
	if _, err := a.profiles.Update(ctx, a.userID, update); err != nil {
		a.logger.Warn("profile autosave failed", zap.String("user_id", a.userID), zap.Error(err))
	}
}

// Close descarta el timer pendiente y persiste lo que quede en cola.
func (a *ProfileAutosaver) Close() {
	a.mu.Lock()
	a.closed = true
	a.mu.Unlock()
	a.Flush(context.Background())
}
