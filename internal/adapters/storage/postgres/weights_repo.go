package postgres

import (
	"context"
	"database/sql"

	"pet-wellness/internal/domain/weights"
)

type WeightsRepo struct {
	db *sql.DB
}

func NewWeightsRepo(db *sql.DB) *WeightsRepo {
	return &WeightsRepo{db: db}
}

func (r *WeightsRepo) Add(ctx context.Context, e weights.Entry) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO weight_entries (id, owner_user_id, weight, recorded_at)
		VALUES ($1,$2,$3,$4)
	`, e.ID, e.OwnerUserID, e.Weight, e.RecordedAt)
	return err
}

func (r *WeightsRepo) ListByOwner(ctx context.Context, ownerUserID string, limit int) ([]weights.Entry, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, owner_user_id, weight, recorded_at
		FROM weight_entries
		WHERE owner_user_id = $1
		ORDER BY recorded_at DESC
		LIMIT $2
	`, ownerUserID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make([]weights.Entry, 0)
	for rows.Next() {
		var e weights.Entry
		if err := rows.Scan(&e.ID, &e.OwnerUserID, &e.Weight, &e.RecordedAt); err != nil {
			return nil, err
		}
		out = append(out, e)
	}
	return out, rows.Err()
}
