// Package domain defines the entities and business rules for fitrun.
package domain

import (
	"errors"
	"strings"
	"time"
)

var (
	// ErrTrainingNotFound is returned when a training record cannot be located.
	ErrTrainingNotFound = errors.New("training not found")
	// ErrNoSession indicates an operation that requires an authenticated session.
	ErrNoSession = errors.New("no active session")
)

// Category identifies one activity kind from the closed catalog.
type Category string

const (
	CategoryMusculation Category = "musculation"
	CategoryCardio      Category = "cardio"
	CategoryYoga        Category = "yoga"
	CategoryNatation    Category = "natation"
)

// DefaultMET is applied to records whose category is outside the catalog.
const DefaultMET = 5

// CategoryInfo describes one catalog entry and its metabolic equivalent.
type CategoryInfo struct {
	ID    Category
	Label string
	MET   float64
}

// Categories is the static activity catalog. It is configuration, not entity state.
var Categories = []CategoryInfo{
	{ID: CategoryMusculation, Label: "Musculation", MET: 5},
	{ID: CategoryCardio, Label: "Cardio", MET: 10},
	{ID: CategoryYoga, Label: "Yoga", MET: 3},
	{ID: CategoryNatation, Label: "Natation", MET: 8},
}

// MET returns the metabolic equivalent for a category, falling back to DefaultMET
// for categories outside the catalog.
func MET(c Category) float64 {
	for _, info := range Categories {
		if info.ID == c {
			return info.MET
		}
	}
	return DefaultMET
}

// KnownCategory reports whether the category belongs to the catalog.
func KnownCategory(c Category) bool {
	for _, info := range Categories {
		if info.ID == c {
			return true
		}
	}
	return false
}

// TrainingRecord is one logged activity owned by a user.
type TrainingRecord struct {
	ID          string
	UserID      string
	Category    Category
	Type        string
	DurationMin int
	Date        time.Time // calendar date, time component zeroed
	Note        string
}

// TrainingFields carries the mutable portion of a training record. ID and owner
// are immutable after creation.
type TrainingFields struct {
	Category    Category
	Type        string
	DurationMin int
	Date        time.Time
	Note        string
}

// Validate ensures the fields describe a storable record.
func (f TrainingFields) Validate() error {
	if !KnownCategory(f.Category) {
		return errors.New("category must be one of the catalog entries")
	}
	if strings.TrimSpace(f.Type) == "" {
		return errors.New("type is required")
	}
	if f.DurationMin <= 0 {
		return errors.New("duration_min must be > 0")
	}
	if f.Date.IsZero() {
		return errors.New("date is required")
	}
	return nil
}

// DateOnly truncates a timestamp to its calendar date in the timestamp's location.
func DateOnly(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location())
}
