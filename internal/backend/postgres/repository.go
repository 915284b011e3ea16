// Package postgres provides pgx-backed persistence for profiles, goals, and
// trainings. Training mutations record outbox rows in the same transaction;
// the outbox dispatcher turns them into change-feed events.
package postgres

import (
	"context"
	_ "embed"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/Mehdi-code-93/fitrun/internal/domain"
)

//go:embed schema.sql
var schema string

// Repository provides Postgres-backed persistence for the collaborator boundary.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs a Repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// ApplySchema creates the tables if they do not exist. Intended for local
// development and tests.
func ApplySchema(ctx context.Context, pool *pgxpool.Pool) error {
	_, err := pool.Exec(ctx, schema)
	return err
}

// GetProfile implements backend.ProfileRepository.
func (r *Repository) GetProfile(ctx context.Context, userID string) (*domain.UserParams, error) {
	const query = `SELECT weight_kg, height_cm, age, COALESCE(first_name, ''), COALESCE(last_name, '')
        FROM profiles WHERE user_id=$1`

	row := r.pool.QueryRow(ctx, query, userID)
	var params domain.UserParams
	if err := row.Scan(&params.WeightKg, &params.HeightCm, &params.Age, &params.FirstName, &params.LastName); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return &params, nil
}

// UpsertProfile implements backend.ProfileRepository.
func (r *Repository) UpsertProfile(ctx context.Context, userID string, params domain.UserParams) error {
	const stmt = `INSERT INTO profiles (user_id, weight_kg, height_cm, age, first_name, last_name)
        VALUES ($1,$2,$3,$4,$5,$6)
        ON CONFLICT (user_id) DO UPDATE SET
            weight_kg=EXCLUDED.weight_kg,
            height_cm=EXCLUDED.height_cm,
            age=EXCLUDED.age,
            first_name=EXCLUDED.first_name,
            last_name=EXCLUDED.last_name`

	_, err := r.pool.Exec(ctx, stmt, userID, params.WeightKg, params.HeightCm, params.Age,
		nullIfEmpty(params.FirstName), nullIfEmpty(params.LastName))
	return err
}

// GetGoals implements backend.GoalsRepository.
func (r *Repository) GetGoals(ctx context.Context, userID string) (*domain.Goals, error) {
	const query = `SELECT weekly_sessions, weekly_calories FROM goals WHERE user_id=$1`

	row := r.pool.QueryRow(ctx, query, userID)
	var goals domain.Goals
	if err := row.Scan(&goals.WeeklySessions, &goals.WeeklyCalories); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return &goals, nil
}

// UpsertGoals implements backend.GoalsRepository.
func (r *Repository) UpsertGoals(ctx context.Context, userID string, goals domain.Goals) error {
	const stmt = `INSERT INTO goals (user_id, weekly_sessions, weekly_calories)
        VALUES ($1,$2,$3)
        ON CONFLICT (user_id) DO UPDATE SET
            weekly_sessions=EXCLUDED.weekly_sessions,
            weekly_calories=EXCLUDED.weekly_calories`

	_, err := r.pool.Exec(ctx, stmt, userID, goals.WeeklySessions, goals.WeeklyCalories)
	return err
}

func nullIfEmpty(value string) interface{} {
	if value == "" {
		return nil
	}
	return value
}
