package postgres

import (
	"context"
	"database/sql"
	"errors"

	"pet-wellness/internal/domain/profiles"
)

type ProfilesRepo struct {
	db *sql.DB
}

func NewProfilesRepo(db *sql.DB) *ProfilesRepo {
	return &ProfilesRepo{db: db}
}

func (r *ProfilesRepo) Get(ctx context.Context, ownerUserID string) (profiles.Profile, error) {
	var (
		p       profiles.Profile
		species string
		goal    string
	)
	err := r.db.QueryRowContext(ctx, `
		SELECT
			id, owner_user_id,
			name, species, breed,
			age, weight,
			allergies, health_goal, avatar_url,
			is_subscribed,
			created_at, updated_at
		FROM pet_profiles
		WHERE owner_user_id = $1
	`, ownerUserID).Scan(
		&p.ID,
		&p.OwnerUserID,
		&p.Name,
		&species,
		&p.Breed,
		&p.Age,
		&p.Weight,
		&p.Allergies,
		&goal,
		&p.AvatarURL,
		&p.Subscribed,
		&p.CreatedAt,
		&p.UpdatedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return profiles.Profile{}, profiles.ErrNotFound
	}
	if err != nil {
		return profiles.Profile{}, err
	}

	p.Species = profiles.Species(species)
	p.HealthGoal = profiles.HealthGoal(goal)
	return p, nil
}

// Put hace upsert por owner: un perfil por usuario.
func (r *ProfilesRepo) Put(ctx context.Context, p profiles.Profile) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO pet_profiles (
			owner_user_id, id,
			name, species, breed,
			age, weight,
			allergies, health_goal, avatar_url,
			is_subscribed,
			created_at, updated_at
		) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13)
		ON CONFLICT (owner_user_id) DO UPDATE SET
			name = EXCLUDED.name,
			species = EXCLUDED.species,
			breed = EXCLUDED.breed,
			age = EXCLUDED.age,
			weight = EXCLUDED.weight,
			allergies = EXCLUDED.allergies,
			health_goal = EXCLUDED.health_goal,
			avatar_url = EXCLUDED.avatar_url,
			is_subscribed = EXCLUDED.is_subscribed,
			updated_at = EXCLUDED.updated_at
	`,
		p.OwnerUserID,
		p.ID,
		p.Name,
		string(p.Species),
		p.Breed,
		p.Age,
		p.Weight,
		p.Allergies,
		string(p.HealthGoal),
		p.AvatarURL,
		p.Subscribed,
		p.CreatedAt,
		p.UpdatedAt,
	)
	return err
}

func (r *ProfilesRepo) Delete(ctx context.Context, ownerUserID string) error {
	_, err := r.db.ExecContext(ctx, `DELETE FROM pet_profiles WHERE owner_user_id = $1`, ownerUserID)
	return err
}
