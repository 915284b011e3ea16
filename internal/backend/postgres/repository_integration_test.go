//go:build integration
// +build integration

package postgres

import (
	"context"
	"testing"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/stretchr/testify/require"
	postgrescontainer "github.com/testcontainers/testcontainers-go/modules/postgres"

	"github.com/Mehdi-code-93/fitrun/internal/domain"
)

func TestTrainingLifecycleWritesOutbox(t *testing.T) {
	ctx := context.Background()
	pool, cleanup := setupPostgres(t, ctx)
	defer cleanup()

	repo := NewRepository(pool)

	fields := domain.TrainingFields{
		Category:    domain.CategoryCardio,
		Type:        "course",
		DurationMin: 45,
		Date:        time.Date(2026, 3, 2, 0, 0, 0, 0, time.UTC),
		Note:        "fractionné",
	}

	record, err := repo.InsertTraining(ctx, "user-1", fields)
	require.NoError(t, err)
	require.NotEmpty(t, record.ID)
	require.Equal(t, domain.CategoryCardio, record.Category)

	listed, err := repo.ListTrainings(ctx, "user-1")
	require.NoError(t, err)
	require.Len(t, listed, 1)
	require.Equal(t, record.ID, listed[0].ID)

	fields.DurationMin = 60
	updated, err := repo.UpdateTraining(ctx, record.ID, fields)
	require.NoError(t, err)
	require.Equal(t, 60, updated.DurationMin)

	require.NoError(t, repo.DeleteTraining(ctx, record.ID))

	listed, err = repo.ListTrainings(ctx, "user-1")
	require.NoError(t, err)
	require.Empty(t, listed)

	// One outbox row per mutation, newest last.
	rows, err := pool.Query(ctx,
		`SELECT event_type, partition_key FROM outbox ORDER BY event_id`)
	require.NoError(t, err)
	defer rows.Close()

	var count int
	for rows.Next() {
		var eventType, partitionKey string
		require.NoError(t, rows.Scan(&eventType, &partitionKey))
		require.Equal(t, "training.changed", eventType)
		require.Equal(t, "user-1", partitionKey)
		count++
	}
	require.NoError(t, rows.Err())
	require.Equal(t, 3, count)
}

func TestUpdateMissingTrainingReturnsNotFound(t *testing.T) {
	ctx := context.Background()
	pool, cleanup := setupPostgres(t, ctx)
	defer cleanup()

	repo := NewRepository(pool)

	_, err := repo.UpdateTraining(ctx, "00000000-0000-0000-0000-000000000000", domain.TrainingFields{
		Category:    domain.CategoryYoga,
		Type:        "hatha",
		DurationMin: 30,
		Date:        time.Date(2026, 3, 2, 0, 0, 0, 0, time.UTC),
	})
	require.ErrorIs(t, err, domain.ErrTrainingNotFound)

	require.ErrorIs(t, repo.DeleteTraining(ctx, "00000000-0000-0000-0000-000000000000"), domain.ErrTrainingNotFound)
}

func TestProfileAndGoalsRoundTrip(t *testing.T) {
	ctx := context.Background()
	pool, cleanup := setupPostgres(t, ctx)
	defer cleanup()

	repo := NewRepository(pool)

	params, err := repo.GetProfile(ctx, "user-1")
	require.NoError(t, err)
	require.Nil(t, params)

	want := domain.UserParams{WeightKg: 82, HeightCm: 180, Age: 31, FirstName: "Ana"}
	require.NoError(t, repo.UpsertProfile(ctx, "user-1", want))

	params, err = repo.GetProfile(ctx, "user-1")
	require.NoError(t, err)
	require.NotNil(t, params)
	require.Equal(t, want, *params)

	goals, err := repo.GetGoals(ctx, "user-1")
	require.NoError(t, err)
	require.Nil(t, goals)

	wantGoals := domain.Goals{WeeklySessions: 4, WeeklyCalories: 2500}
	require.NoError(t, repo.UpsertGoals(ctx, "user-1", wantGoals))

	goals, err = repo.GetGoals(ctx, "user-1")
	require.NoError(t, err)
	require.NotNil(t, goals)
	require.Equal(t, wantGoals, *goals)
}

func setupPostgres(t *testing.T, ctx context.Context) (*pgxpool.Pool, func()) {
	t.Helper()

	pg, err := postgrescontainer.RunContainer(ctx,
		postgrescontainer.WithDatabase("fitrun"),
		postgrescontainer.WithUsername("fitrun"),
		postgrescontainer.WithPassword("fitrun"),
	)
	require.NoError(t, err)

	connStr, err := pg.ConnectionString(ctx, "sslmode=disable")
	require.NoError(t, err)

	require.NoError(t, waitForDatabase(ctx, connStr))

	pool, err := pgxpool.New(ctx, connStr)
	require.NoError(t, err)
	require.NoError(t, ApplySchema(ctx, pool))

	cleanup := func() {
		pool.Close()
		_ = pg.Terminate(ctx)
	}
	return pool, cleanup
}

func waitForDatabase(ctx context.Context, connStr string) error {
	deadline := time.Now().Add(30 * time.Second)
	for {
		pool, err := pgxpool.New(ctx, connStr)
		if err == nil {
			err = pool.Ping(ctx)
			pool.Close()
			if err == nil {
				return nil
			}
		}
		if time.Now().After(deadline) {
			return err
		}
		time.Sleep(time.Second)
	}
}
