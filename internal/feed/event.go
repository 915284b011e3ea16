// Package feed carries asynchronous training change events and folds them into
// an in-memory collection without a full reload.
package feed

import (
	"github.com/Mehdi-code-93/fitrun/internal/domain"
)

// ChangeType tags a change event. The zero value is not a valid tag.
type ChangeType string

const (
	ChangeInsert ChangeType = "INSERT"
	ChangeUpdate ChangeType = "UPDATE"
	ChangeDelete ChangeType = "DELETE"
)

// ChangeEvent is one row-level change delivered by the remote collaborator.
// New is set for inserts and updates, Old for deletes.
type ChangeEvent struct {
	Type ChangeType
	New  *domain.TrainingRecord
	Old  *domain.TrainingRecord
}

// Fold applies one event to a newest-first collection and returns the resulting
// collection. The second return reports whether the tag was recognized; callers
// must not silently drop unrecognized tags.
//
// Insert prepends. Update replaces the record whose id matches; an absent id
// leaves the collection unchanged. Delete removes by id and is a no-op when absent.
func Fold(records []domain.TrainingRecord, ev ChangeEvent) ([]domain.TrainingRecord, bool) {
	switch ev.Type {
	case ChangeInsert:
		if ev.New == nil {
			return records, true
		}
		out := make([]domain.TrainingRecord, 0, len(records)+1)
		out = append(out, *ev.New)
		return append(out, records...), true
	case ChangeUpdate:
		if ev.New == nil {
			return records, true
		}
		out := make([]domain.TrainingRecord, len(records))
		copy(out, records)
		for i := range out {
			if out[i].ID == ev.New.ID {
				out[i] = *ev.New
			}
		}
		return out, true
	case ChangeDelete:
		if ev.Old == nil {
			return records, true
		}
		out := make([]domain.TrainingRecord, 0, len(records))
		for _, r := range records {
			if r.ID != ev.Old.ID {
				out = append(out, r)
			}
		}
		return out, true
	default:
		return records, false
	}
}
