// Package source acquires quiz snapshots from the realtime database or from an export file.
package source

import (
	"context"

	"github.com/okian/quizboard/internal/domain/model"
)

// Source produces one snapshot per call.
//
// Fetch always returns a usable snapshot. Quizzes that could not be acquired are listed in
// Snapshot.Missing and reported through the returned error as joined *QuizError values, so
// callers can test for ErrAuthRequired with errors.Is and still proceed.
type Source interface {
	Fetch(ctx context.Context) (model.Snapshot, error)
}
