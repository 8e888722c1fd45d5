package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/maxviazov/module-progress-console/internal/model"
	"github.com/maxviazov/module-progress-console/internal/repository"
	"github.com/rs/zerolog"
)

// courseService holds course use-case logic: validation + orchestration, no transport / storage details.
type courseService struct {
	repo  repository.CourseRepository
	tx    repository.TxManager
	log   zerolog.Logger
	newID func() string
}

// NewCourseService wires the course use cases. A nil tx means the backend has no transactions.
func NewCourseService(repo repository.CourseRepository, tx repository.TxManager, logger zerolog.Logger) CourseService {
	if tx == nil {
		tx = repository.NopTxManager{}
	}
	l := logger.With().Str("module", "service").Str("component", "course").Logger()
	return &courseService{repo: repo, tx: tx, log: l, newID: uuid.NewString}
}

func (s *courseService) ListCourses(ctx context.Context, q repository.ListQuery) (repository.PageResult[model.Course], error) {
	if !isValidSortField(q.Sort.Field) {
		return repository.PageResult[model.Course]{}, NewInvalidInput([]FieldError{{Field: "sort", Message: "must be one of id, course_name"}})
	}
	q.Page = normalizePage(q.Page)
	res, err := s.repo.List(ctx, q)
	if err != nil {
		s.log.Error().Err(err).Int("limit", q.Page.Limit).Int("offset", q.Page.Offset).Msg("list courses failed")
		return repository.PageResult[model.Course]{}, err
	}
	return res, nil
}

func (s *courseService) GetCourse(ctx context.Context, id string) (model.Course, error) {
	if id == "" {
		return model.Course{}, NewInvalidInput([]FieldError{{Field: "id", Message: "must not be empty"}})
	}
	return s.repo.GetByID(ctx, id)
}

func (s *courseService) CreateCourse(ctx context.Context, c model.Course) (model.Course, error) {
	start := time.Now()
	c = normalizeCourse(c)
	if c.ID == "" {
		c.ID = s.newID()
	}
	if ferrs := validateCourse(c, ""); len(ferrs) > 0 {
		s.log.Debug().Str("course_id", c.ID).Interface("field_errors", ferrs).Msg("course validation failed")
		return model.Course{}, NewInvalidInput(ferrs)
	}

	out, err := s.repo.Create(ctx, c)
	if err != nil {
		// Repository surfaces domain-level errors already, do not wrap.
		s.log.Error().Err(err).Str("course_id", c.ID).Msg("create course failed")
		return model.Course{}, err
	}
	s.log.Info().Dur("took", time.Since(start)).Str("course_id", out.ID).Int("users", len(out.Users)).Msg("course created")
	return out, nil
}

func (s *courseService) UpdateCourse(ctx context.Context, id string, c model.Course) (model.Course, error) {
	start := time.Now()
	c = normalizeCourse(c)
	var ferrs []FieldError
	if id == "" {
		ferrs = append(ferrs, FieldError{Field: "id", Message: "must not be empty"})
	}
	if c.ID != "" && c.ID != id {
		ferrs = append(ferrs, FieldError{Field: "id", Message: "must match the course being updated"})
	}
	c.ID = id
	ferrs = append(ferrs, validateCourse(c, "")...)
	if err := NewInvalidInput(ferrs); err != nil {
		s.log.Debug().Str("course_id", id).Interface("field_errors", ferrs).Msg("course validation failed")
		return model.Course{}, err
	}

	out, err := s.repo.Update(ctx, c)
	if err != nil {
		s.log.Error().Err(err).Str("course_id", id).Msg("update course failed")
		return model.Course{}, err
	}
	s.log.Info().Dur("took", time.Since(start)).Str("course_id", id).Int("users", len(out.Users)).Msg("course updated")
	return out, nil
}

func (s *courseService) DeleteCourse(ctx context.Context, id string) (model.Course, error) {
	if id == "" {
		return model.Course{}, NewInvalidInput([]FieldError{{Field: "id", Message: "must not be empty"}})
	}
	out, err := s.repo.Delete(ctx, id)
	if err != nil {
		if !errors.Is(err, repository.ErrNotFound) {
			s.log.Error().Err(err).Str("course_id", id).Msg("delete course failed")
		}
		return model.Course{}, err
	}
	s.log.Info().Str("course_id", id).Msg("course deleted")
	return out, nil
}

func (s *courseService) ImportCourses(ctx context.Context, courses []model.Course) (model.ImportSummary, error) {
	start := time.Now()
	if len(courses) == 0 {
		return model.ImportSummary{}, NewInvalidInput([]FieldError{{Field: "file", Message: "contains no courses"}})
	}

	var ferrs []FieldError
	normalized := make([]model.Course, len(courses))
	seen := make(map[string]bool, len(courses))
	for i, c := range courses {
		c = normalizeCourse(c)
		prefix := fmt.Sprintf("courses[%d].", i)
		if c.ID == "" {
			ferrs = append(ferrs, FieldError{Field: prefix + "id", Message: "must not be empty"})
		} else if seen[c.ID] {
			ferrs = append(ferrs, FieldError{Field: prefix + "id", Message: "appears more than once"})
		}
		seen[c.ID] = true
		ferrs = append(ferrs, validateCourse(c, prefix)...)
		normalized[i] = c
	}
	if err := NewInvalidInput(ferrs); err != nil {
		s.log.Debug().Int("courses", len(courses)).Interface("field_errors", ferrs).Msg("import validation failed")
		return model.ImportSummary{}, err
	}

	var summary model.ImportSummary
	err := s.tx.WithinTx(ctx, func(ctx context.Context) error {
		summary = model.ImportSummary{}
		for _, c := range normalized {
			_, err := s.repo.GetByID(ctx, c.ID)
			switch {
			case errors.Is(err, repository.ErrNotFound):
				if _, err := s.repo.Create(ctx, c); err != nil {
					return err
				}
				summary.Created++
			case err != nil:
				return err
			default:
				if _, err := s.repo.Update(ctx, c); err != nil {
					return err
				}
				summary.Updated++
			}
		}
		return nil
	})
	if err != nil {
		s.log.Error().Err(err).Int("courses", len(normalized)).Msg("import courses failed")
		return model.ImportSummary{}, err
	}
	s.log.Info().Dur("took", time.Since(start)).Int("created", summary.Created).Int("updated", summary.Updated).Msg("courses imported")
	return summary, nil
}
