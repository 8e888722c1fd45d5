// Package filestore serves courses out of a static JSON document shaped like
// {"courses": [...]}, the same file a json-server mock would use.
package filestore

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/maxviazov/module-progress-console/internal/model"
	"github.com/maxviazov/module-progress-console/internal/repository"
	"github.com/rs/zerolog"
)

// Options controls how the document is read and written.
type Options struct {
	Path string
	// Resource is the top-level key holding the collection.
	Resource string
	// Watch re-reads the document whenever its mtime or size changes.
	Watch bool
	// Persist writes every mutation back to Path.
	Persist bool
}

// Store is a CourseRepository over one JSON document.
type Store struct {
	opts Options
	log  zerolog.Logger

	mu      sync.RWMutex
	courses []model.Course
	// other top-level keys of the document, kept so write-back doesn't drop them
	extra   map[string]json.RawMessage
	modTime time.Time
	size    int64
}

// Open loads the document. A missing file is only tolerated when Persist is
// set, in which case an empty collection is written out.
func Open(opts Options, logger zerolog.Logger) (*Store, error) {
	if opts.Path == "" {
		return nil, errors.New("filestore: path is required")
	}
	if opts.Resource == "" {
		opts.Resource = model.ResourceCourses
	}
	s := &Store{
		opts:  opts,
		log:   logger.With().Str("module", "repository").Str("component", "filestore").Logger(),
		extra: map[string]json.RawMessage{},
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if _, err := os.Stat(opts.Path); errors.Is(err, os.ErrNotExist) && opts.Persist {
		s.courses = []model.Course{}
		if err := s.writeLocked(s.courses); err != nil {
			return nil, err
		}
		s.log.Info().Str("path", opts.Path).Msg("created empty document")
		return s, nil
	}
	if err := s.loadLocked(); err != nil {
		return nil, err
	}
	s.log.Info().Str("path", opts.Path).Int("courses", len(s.courses)).Bool("watch", opts.Watch).Msg("document loaded")
	return s, nil
}

func (s *Store) loadLocked() error {
	info, err := os.Stat(s.opts.Path)
	if err != nil {
		return repository.Unavailable(err)
	}
	data, err := os.ReadFile(s.opts.Path)
	if err != nil {
		return repository.Unavailable(err)
	}
	var doc map[string]json.RawMessage
	if err := json.Unmarshal(data, &doc); err != nil {
		return repository.Unavailable(fmt.Errorf("decode %s: %w", s.opts.Path, err))
	}
	raw, ok := doc[s.opts.Resource]
	if !ok {
		return repository.Unavailable(fmt.Errorf("document %s has no %q collection", s.opts.Path, s.opts.Resource))
	}
	var courses []model.Course
	if err := json.Unmarshal(raw, &courses); err != nil {
		return repository.Unavailable(fmt.Errorf("decode %s.%s: %w", s.opts.Path, s.opts.Resource, err))
	}
	for i := range courses {
		if courses[i].Users == nil {
			courses[i].Users = []model.User{}
		}
	}
	delete(doc, s.opts.Resource)

	s.courses = courses
	s.extra = doc
	s.modTime = info.ModTime()
	s.size = info.Size()
	return nil
}

func (s *Store) changedLocked() (bool, error) {
	info, err := os.Stat(s.opts.Path)
	if err != nil {
		return false, repository.Unavailable(err)
	}
	return !info.ModTime().Equal(s.modTime) || info.Size() != s.size, nil
}

// fresh reloads the document under the write lock when watching and the file moved on.
func (s *Store) fresh() error {
	if !s.opts.Watch {
		return nil
	}
	s.mu.RLock()
	changed, err := s.changedLocked()
	s.mu.RUnlock()
	if err != nil || !changed {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if changed, err = s.changedLocked(); err != nil || !changed {
		return err
	}
	if err := s.loadLocked(); err != nil {
		s.log.Error().Err(err).Str("path", s.opts.Path).Msg("document reload failed")
		return err
	}
	s.log.Debug().Str("path", s.opts.Path).Int("courses", len(s.courses)).Msg("document reloaded")
	return nil
}

// writeLocked atomically replaces the document on disk with courses.
func (s *Store) writeLocked(courses []model.Course) error {
	if !s.opts.Persist {
		return nil
	}
	doc := make(map[string]any, len(s.extra)+1)
	for k, v := range s.extra {
		doc[k] = v
	}
	doc[s.opts.Resource] = courses

	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetIndent("", "  ")
	if err := enc.Encode(doc); err != nil {
		return err
	}

	dir := filepath.Dir(s.opts.Path)
	tmp, err := os.CreateTemp(dir, ".courses-*.json")
	if err != nil {
		return repository.Unavailable(err)
	}
	defer os.Remove(tmp.Name())
	if _, err := tmp.Write(buf.Bytes()); err != nil {
		tmp.Close()
		return repository.Unavailable(err)
	}
	if err := tmp.Close(); err != nil {
		return repository.Unavailable(err)
	}
	if err := os.Rename(tmp.Name(), s.opts.Path); err != nil {
		return repository.Unavailable(err)
	}

	info, err := os.Stat(s.opts.Path)
	if err != nil {
		return repository.Unavailable(err)
	}
	s.modTime = info.ModTime()
	s.size = info.Size()
	return nil
}

func (s *Store) indexLocked(id string) int {
	for i, c := range s.courses {
		if c.ID == id {
			return i
		}
	}
	return -1
}

// mutate runs fn over a copy of the collection and commits it only if write-back succeeds.
func (s *Store) mutate(fn func(courses []model.Course) ([]model.Course, error)) error {
	if err := s.fresh(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	next := make([]model.Course, len(s.courses))
	copy(next, s.courses)
	next, err := fn(next)
	if err != nil {
		return err
	}
	if err := s.writeLocked(next); err != nil {
		s.log.Error().Err(err).Str("path", s.opts.Path).Msg("document write failed")
		return err
	}
	s.courses = next
	return nil
}

func (s *Store) Ping(_ context.Context) error {
	return s.fresh()
}

func (s *Store) Count(_ context.Context) (int, error) {
	if err := s.fresh(); err != nil {
		return 0, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.courses), nil
}

func (s *Store) List(_ context.Context, q repository.ListQuery) (repository.PageResult[model.Course], error) {
	if err := s.fresh(); err != nil {
		return repository.PageResult[model.Course]{}, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	return repository.Apply(s.courses, q), nil
}

func (s *Store) GetByID(_ context.Context, id string) (model.Course, error) {
	if err := s.fresh(); err != nil {
		return model.Course{}, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	i := s.indexLocked(id)
	if i < 0 {
		return model.Course{}, repository.ErrNotFound
	}
	return s.courses[i].Clone(), nil
}

func (s *Store) Create(_ context.Context, c model.Course) (model.Course, error) {
	err := s.mutate(func(courses []model.Course) ([]model.Course, error) {
		for _, existing := range courses {
			if existing.ID == c.ID {
				return nil, repository.ErrAlreadyExists
			}
		}
		return append(courses, c.Clone()), nil
	})
	if err != nil {
		return model.Course{}, err
	}
	return c.Clone(), nil
}

func (s *Store) Update(_ context.Context, c model.Course) (model.Course, error) {
	err := s.mutate(func(courses []model.Course) ([]model.Course, error) {
		for i := range courses {
			if courses[i].ID == c.ID {
				courses[i] = c.Clone()
				return courses, nil
			}
		}
		return nil, repository.ErrNotFound
	})
	if err != nil {
		return model.Course{}, err
	}
	return c.Clone(), nil
}

func (s *Store) Delete(_ context.Context, id string) (model.Course, error) {
	var out model.Course
	err := s.mutate(func(courses []model.Course) ([]model.Course, error) {
		for i := range courses {
			if courses[i].ID == id {
				out = courses[i].Clone()
				return append(courses[:i], courses[i+1:]...), nil
			}
		}
		return nil, repository.ErrNotFound
	})
	if err != nil {
		return model.Course{}, err
	}
	return out, nil
}

var _ repository.CourseRepository = (*Store)(nil)
