package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/Mehdi-code-93/fitrun/internal/domain"
	"github.com/Mehdi-code-93/fitrun/internal/events"
	"github.com/Mehdi-code-93/fitrun/internal/feed"
	"github.com/Mehdi-code-93/fitrun/internal/observability"
)

// TrainingTopic is the Kafka topic carrying training change events.
const TrainingTopic = "training_events"

const trainingColumns = `training_id, user_id, category, type, duration_min, date, COALESCE(note, '')`

// ListTrainings implements backend.TrainingRepository, newest first.
func (r *Repository) ListTrainings(ctx context.Context, userID string) ([]domain.TrainingRecord, error) {
	const query = `SELECT ` + trainingColumns + `
        FROM trainings WHERE user_id=$1
        ORDER BY date DESC, training_id DESC`

	rows, err := r.pool.Query(ctx, query, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	records := make([]domain.TrainingRecord, 0)
	for rows.Next() {
		rec, err := scanTraining(rows)
		if err != nil {
			return nil, err
		}
		records = append(records, rec)
	}
	return records, rows.Err()
}

// InsertTraining implements backend.TrainingRepository. The record and its
// change event are committed atomically.
func (r *Repository) InsertTraining(ctx context.Context, userID string, fields domain.TrainingFields) (*domain.TrainingRecord, error) {
	rec := domain.TrainingRecord{
		ID:          uuid.NewString(),
		UserID:      userID,
		Category:    fields.Category,
		Type:        fields.Type,
		DurationMin: fields.DurationMin,
		Date:        domain.DateOnly(fields.Date),
		Note:        fields.Note,
	}

	tx, err := r.pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return nil, err
	}
	defer func() {
		if err != nil {
			tx.Rollback(ctx)
		}
	}()

	const stmt = `INSERT INTO trainings (training_id, user_id, category, type, duration_min, date, note)
        VALUES ($1,$2,$3,$4,$5,$6,$7)`
	if _, err = tx.Exec(ctx, stmt, rec.ID, rec.UserID, rec.Category, rec.Type, rec.DurationMin, rec.Date, nullIfEmpty(rec.Note)); err != nil {
		return nil, err
	}

	if err = insertOutbox(ctx, tx, events.TrainingChanged{
		ChangeType: string(feed.ChangeInsert),
		UserID:     rec.UserID,
		New:        rowPtr(rec),
		OccurredAt: time.Now().UTC(),
	}); err != nil {
		return nil, err
	}

	if err = tx.Commit(ctx); err != nil {
		return nil, err
	}
	observability.RecordTrainingPersisted(time.Now().UTC())
	return &rec, nil
}

// UpdateTraining implements backend.TrainingRepository. ID and owner are
// immutable; only the mutable fields are replaced.
func (r *Repository) UpdateTraining(ctx context.Context, id string, fields domain.TrainingFields) (*domain.TrainingRecord, error) {
	tx, err := r.pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return nil, err
	}
	defer func() {
		if err != nil {
			tx.Rollback(ctx)
		}
	}()

	const stmt = `UPDATE trainings
        SET category=$2, type=$3, duration_min=$4, date=$5, note=$6
        WHERE training_id=$1
        RETURNING ` + trainingColumns

	row := tx.QueryRow(ctx, stmt, id, fields.Category, fields.Type, fields.DurationMin,
		domain.DateOnly(fields.Date), nullIfEmpty(fields.Note))
	rec, err := scanTraining(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			err = domain.ErrTrainingNotFound
		}
		return nil, err
	}

	if err = insertOutbox(ctx, tx, events.TrainingChanged{
		ChangeType: string(feed.ChangeUpdate),
		UserID:     rec.UserID,
		New:        rowPtr(rec),
		OccurredAt: time.Now().UTC(),
	}); err != nil {
		return nil, err
	}

	if err = tx.Commit(ctx); err != nil {
		return nil, err
	}
	observability.RecordTrainingPersisted(time.Now().UTC())
	return &rec, nil
}

// DeleteTraining implements backend.TrainingRepository.
func (r *Repository) DeleteTraining(ctx context.Context, id string) error {
	tx, err := r.pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return err
	}
	defer func() {
		if err != nil {
			tx.Rollback(ctx)
		}
	}()

	const stmt = `DELETE FROM trainings WHERE training_id=$1 RETURNING ` + trainingColumns
	row := tx.QueryRow(ctx, stmt, id)
	rec, err := scanTraining(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			err = domain.ErrTrainingNotFound
		}
		return err
	}

	if err = insertOutbox(ctx, tx, events.TrainingChanged{
		ChangeType: string(feed.ChangeDelete),
		UserID:     rec.UserID,
		Old:        rowPtr(rec),
		OccurredAt: time.Now().UTC(),
	}); err != nil {
		return err
	}

	return tx.Commit(ctx)
}

func insertOutbox(ctx context.Context, tx pgx.Tx, payload events.TrainingChanged) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return err
	}

	const stmt = `INSERT INTO outbox (user_id, event_type, topic, partition_key, payload)
        VALUES ($1,$2,$3,$4,$5)`
	_, err = tx.Exec(ctx, stmt, payload.UserID, events.TypeTrainingChanged, TrainingTopic, payload.UserID, body)
	return err
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanTraining(row rowScanner) (domain.TrainingRecord, error) {
	var rec domain.TrainingRecord
	err := row.Scan(&rec.ID, &rec.UserID, &rec.Category, &rec.Type, &rec.DurationMin, &rec.Date, &rec.Note)
	return rec, err
}

func rowPtr(rec domain.TrainingRecord) *events.TrainingRow {
	row := events.FromRecord(rec)
	return &row
}
