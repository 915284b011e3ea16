// Package events defines the payloads exchanged between the API service and
// change-feed consumers.
package events

import (
	"time"

	"github.com/Mehdi-code-93/fitrun/internal/domain"
	"github.com/Mehdi-code-93/fitrun/internal/feed"
)

// TypeTrainingChanged is the event_type header carried by training mutations.
const TypeTrainingChanged = "training.changed"

// TrainingRow is the wire form of a training record.
type TrainingRow struct {
	ID          string    `json:"id"`
	UserID      string    `json:"user_id"`
	Category    string    `json:"category"`
	Type        string    `json:"type"`
	DurationMin int       `json:"duration_min"`
	Date        time.Time `json:"date"`
	Note        string    `json:"note,omitempty"`
}

// TrainingChanged is emitted for every training row mutation. New is present
// for inserts and updates, Old for deletes.
type TrainingChanged struct {
	ChangeType string       `json:"change_type"`
	UserID     string       `json:"user_id"`
	New        *TrainingRow `json:"new,omitempty"`
	Old        *TrainingRow `json:"old,omitempty"`
	OccurredAt time.Time    `json:"occurred_at"`
}

// FromRecord converts a domain record to its wire form.
func FromRecord(r domain.TrainingRecord) TrainingRow {
	return TrainingRow{
		ID:          r.ID,
		UserID:      r.UserID,
		Category:    string(r.Category),
		Type:        r.Type,
		DurationMin: r.DurationMin,
		Date:        r.Date,
		Note:        r.Note,
	}
}

// ToRecord converts a wire row back to a domain record.
func (t TrainingRow) ToRecord() domain.TrainingRecord {
	return domain.TrainingRecord{
		ID:          t.ID,
		UserID:      t.UserID,
		Category:    domain.Category(t.Category),
		Type:        t.Type,
		DurationMin: t.DurationMin,
		Date:        t.Date,
		Note:        t.Note,
	}
}

// ToChangeEvent translates the payload into a feed event. The boolean reports
// whether the change type tag was recognized.
func (e TrainingChanged) ToChangeEvent() (feed.ChangeEvent, bool) {
	ev := feed.ChangeEvent{Type: feed.ChangeType(e.ChangeType)}
	switch ev.Type {
	case feed.ChangeInsert, feed.ChangeUpdate:
		if e.New == nil {
			return ev, false
		}
		rec := e.New.ToRecord()
		ev.New = &rec
	case feed.ChangeDelete:
		if e.Old == nil {
			return ev, false
		}
		rec := e.Old.ToRecord()
		ev.Old = &rec
	default:
		return ev, false
	}
	return ev, true
}
