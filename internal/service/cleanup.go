package service

import (
	"context"
	"errors"
	"log/slog"

	"socialposts/internal/storage"
)

type DeleteOutcome string

const (
	OutcomeDeleted  DeleteOutcome = "deleted"
	OutcomeNotFound DeleteOutcome = "not_found"
	OutcomeFailed   DeleteOutcome = "failed"
)

// ObjectDeletion is the result of deleting one stored object.
type ObjectDeletion struct {
	FileID  string        `json:"fileId"`
	Outcome DeleteOutcome `json:"outcome"`
	Err     error         `json:"-"`
}

// CleanupReport collects per-object outcomes of a cascade or compensating delete.
type CleanupReport struct {
	Objects []ObjectDeletion `json:"objects"`
}

func (r CleanupReport) Count(outcome DeleteOutcome) int {
	n := 0
	for _, o := range r.Objects {
		if o.Outcome == outcome {
			n++
		}
	}
	return n
}

// Complete reports whether no object is left behind in the store.
func (r CleanupReport) Complete() bool {
	return r.Count(OutcomeFailed) == 0
}

// deleteObjects attempts every delete independently. Errors are recorded and
// logged, never returned.
func deleteObjects(ctx context.Context, store storage.Store, log *slog.Logger, reason string, fileIDs []string) CleanupReport {
	report := CleanupReport{Objects: make([]ObjectDeletion, 0, len(fileIDs))}

	for _, id := range fileIDs {
		d := ObjectDeletion{FileID: id, Outcome: OutcomeDeleted}

		if err := store.Delete(ctx, id); err != nil {
			d.Err = err
			if errors.Is(err, storage.ErrObjectNotFound) {
				d.Outcome = OutcomeNotFound
				log.WarnContext(ctx, "stored object already gone", "reason", reason, "file_id", id)
			} else {
				d.Outcome = OutcomeFailed
				log.ErrorContext(ctx, "failed to delete stored object", "reason", reason, "file_id", id, "error", err)
			}
		}

		report.Objects = append(report.Objects, d)
	}

	return report
}
