package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"go.uber.org/zap"

	"valo-coach/internal/domain"
	"valo-coach/internal/repository"
)

// ProfileService coordina lectura y upsert del perfil de jugador.
type ProfileService struct {
	logger   *zap.Logger
	profiles repository.ProfileRepository
	users    repository.UserRepository
}

var ErrProfileNotConfigured = errors.New("profile service not configured")

func NewProfileService(logger *zap.Logger, profiles repository.ProfileRepository, users repository.UserRepository) *ProfileService {
	return &ProfileService{
		logger:   logger,
		profiles: profiles,
		users:    users,
	}
}

// ProfileUpdate es el parche parcial que llega del editor de perfil.
// Nunca incluye id: la identidad la aporta el caller autenticado.
type ProfileUpdate struct {
	DisplayName   *string `json:"display_name"`
	AvatarURL     *string `json:"avatar_url"`
	ValorantAgent *string `json:"valorant_agent"`
	ValorantRank  *string `json:"valorant_rank"`
}

func (u ProfileUpdate) IsEmpty() bool {
	return u.DisplayName == nil && u.AvatarURL == nil && u.ValorantAgent == nil && u.ValorantRank == nil
}

// Merge superpone los campos de other sobre u; other gana.
func (u ProfileUpdate) Merge(other ProfileUpdate) ProfileUpdate {
	if other.DisplayName != nil {
		u.DisplayName = other.DisplayName
	}
	if other.AvatarURL != nil {
		u.AvatarURL = other.AvatarURL
	}
	if other.ValorantAgent != nil {
		u.ValorantAgent = other.ValorantAgent
	}
	if other.ValorantRank != nil {
		u.ValorantRank = other.ValorantRank
	}
	return u
}

// Get devuelve el perfil del usuario; en la primera lectura lo inicializa
// a partir de la fila de usuario.
func (s *ProfileService) Get(ctx context.Context, userID string) (domain.UserProfile, error) {
	if s.profiles == nil {
		return domain.UserProfile{}, ErrProfileNotConfigured
	}

	profile, err := s.profiles.GetByID(ctx, userID)
	if err == nil {
		return profile, nil
	}
	if !errors.Is(err, pgx.ErrNoRows) {
		return domain.UserProfile{}, err
	}
	return s.initProfile(ctx, userID)
}

// Update aplica el parche sobre el perfil actual y lo upserta. El id nunca
// cambia: siempre es la identidad autenticada.
func (s *ProfileService) Update(ctx context.Context, userID string, update ProfileUpdate) (domain.UserProfile, error) {
	if s.profiles == nil {
		return domain.UserProfile{}, ErrProfileNotConfigured
	}

	profile, err := s.Get(ctx, userID)
	if err != nil {
		return domain.UserProfile{}, err
	}

	if update.DisplayName != nil {
		profile.DisplayName = strings.TrimSpace(*update.DisplayName)
	}
	if update.AvatarURL != nil {
		profile.AvatarURL = strings.TrimSpace(*update.AvatarURL)
	}
	if update.ValorantAgent != nil {
		profile.ValorantAgent = strings.TrimSpace(*update.ValorantAgent)
	}
	if update.ValorantRank != nil {
		profile.ValorantRank = strings.TrimSpace(*update.ValorantRank)
	}

	profile.ID = userID
	profile.UpdatedAt = time.Now().UTC()
	return s.profiles.Upsert(ctx, profile)
}

func (s *ProfileService) initProfile(ctx context.Context, userID string) (domain.UserProfile, error) {
	now := time.Now().UTC()
	profile := domain.UserProfile{
		ID:        userID,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if s.users != nil {
		if user, err := s.users.GetByID(ctx, userID); err == nil {
			profile.Email = user.Email
			profile.DisplayName = user.DisplayName
		} else if !errors.Is(err, pgx.ErrNoRows) {
			return domain.UserProfile{}, err
		}
	}
	return s.profiles.Upsert(ctx, profile)
}
