package source

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/okian/quizboard/internal/domain/model"
	"github.com/okian/quizboard/pkg/logger"
)

// FileOption applies a configuration option to File.
type FileOption func(*File)

// WithFileQuizIDs restricts the snapshot to ids, in that order, and reports the ones absent
// from the export as missing. Without it every quiz of the export is used in lexical order.
func WithFileQuizIDs(ids []string) FileOption {
	return func(s *File) {
		s.quizIDs = append([]string(nil), ids...)
	}
}

// WithFileLogger sets the logger.
func WithFileLogger(l logger.Logger) FileOption {
	return func(s *File) {
		if l != nil {
			s.logger = l
		}
	}
}

// File reads a JSON export of the database.
type File struct {
	path    string
	quizIDs []string
	logger  logger.Logger
}

// NewFile creates a File source for path.
func NewFile(path string, opts ...FileOption) *File {
	s := &File{path: path, logger: logger.Nop()}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Fetch reads and decodes the export.
func (s *File) Fetch(ctx context.Context) (model.Snapshot, error) {
	data, err := os.ReadFile(s.path)
	if err != nil {
		return s.unavailable(fmt.Errorf("%w: %w", ErrFetch, err))
	}
	quizzes, skipped, err := decodeExport(data)
	if err != nil {
		return s.unavailable(err)
	}
	if skipped > 0 {
		s.logger.Warn(ctx, "skipped malformed submissions", logger.String("path", s.path), logger.Int("skipped", skipped))
	}

	snap := model.Snapshot{QuizIDs: s.quizIDs, Quizzes: quizzes}
	if len(s.quizIDs) > 0 {
		snap.Quizzes = make(map[string]map[string]model.RawEntry, len(s.quizIDs))
	}
	var errs []error
	for _, id := range s.quizIDs {
		if board, ok := quizzes[id]; ok {
			snap.Quizzes[id] = board
		} else {
			snap.Missing = append(snap.Missing, id)
			errs = append(errs, &QuizError{QuizID: id, Err: fmt.Errorf("%w: not in export", ErrFetch)})
		}
	}
	s.logger.Info(ctx, "snapshot loaded", logger.String("path", s.path),
		logger.Int("quizzes", len(snap.Quizzes)), logger.Int("entries", snap.EntryCount()))
	return snap, errors.Join(errs...)
}

// unavailable reports every configured quiz as missing.
func (s *File) unavailable(err error) (model.Snapshot, error) {
	return model.Snapshot{
		QuizIDs: append([]string(nil), s.quizIDs...),
		Missing: append([]string(nil), s.quizIDs...),
	}, err
}
