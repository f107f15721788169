package repository

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"valo-coach/internal/domain"
)

// ProfileRepository define el contrato de persistencia para perfiles de jugador.
type ProfileRepository interface {
	GetByID(ctx context.Context, id string) (domain.UserProfile, error)
	Upsert(ctx context.Context, profile domain.UserProfile) (domain.UserProfile, error)
}

type PgProfileRepository struct {
	pool *pgxpool.Pool
}

func NewPgProfileRepository(pool *pgxpool.Pool) *PgProfileRepository {
	return &PgProfileRepository{pool: pool}
}

func (r *PgProfileRepository) GetByID(ctx context.Context, id string) (domain.UserProfile, error) {
	const query = `
		SELECT id, email, display_name, avatar_url, valorant_agent, valorant_rank, created_at, updated_at
		FROM profiles
		WHERE id = $1
	`
	var p domain.UserProfile
	err := r.pool.QueryRow(ctx, query, id).Scan(
		&p.ID,
		&p.Email,
		&p.DisplayName,
		&p.AvatarURL,
		&p.ValorantAgent,
		&p.ValorantRank,
		&p.CreatedAt,
		&p.UpdatedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.UserProfile{}, err
	}
	return p, err
}

// Upsert crea o actualiza el perfil; el id del conflicto nunca se reescribe.
func (r *PgProfileRepository) Upsert(ctx context.Context, profile domain.UserProfile) (domain.UserProfile, error) {
	const query = `
		INSERT INTO profiles (id, email, display_name, avatar_url, valorant_agent, valorant_rank, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		ON CONFLICT (id) DO UPDATE SET
			email = EXCLUDED.email,
			display_name = EXCLUDED.display_name,
			avatar_url = EXCLUDED.avatar_url,
			valorant_agent = EXCLUDED.valorant_agent,
			valorant_rank = EXCLUDED.valorant_rank,
			updated_at = EXCLUDED.updated_at
		RETURNING id, email, display_name, avatar_url, valorant_agent, valorant_rank, created_at, updated_at
	`
	var p domain.UserProfile
	err := r.pool.QueryRow(ctx, query,
		profile.ID,
		profile.Email,
		profile.DisplayName,
		profile.AvatarURL,
		profile.ValorantAgent,
		profile.ValorantRank,
		profile.CreatedAt,
		profile.UpdatedAt,
	).Scan(
		&p.ID,
		&p.Email,
		&p.DisplayName,
		&p.AvatarURL,
		&p.ValorantAgent,
		&p.ValorantRank,
		&p.CreatedAt,
		&p.UpdatedAt,
	)
	return p, err
}
