// Package service holds business logic orchestration across repositories and handlers.
// Kept intentionally lean: only use-case coordination, validation and domain error shaping.
package service

import (
	"context"
	"errors"

	"github.com/maxviazov/module-progress-console/internal/model"
	"github.com/maxviazov/module-progress-console/internal/repository"
)

// ErrInvalidInput is the marker error for aggregated validation failures (maps to HTTP 400).
// Field-level details are retrieved via FieldErrors(err).
var ErrInvalidInput = errors.New("invalid input")

// FieldError describes a single invalid field in a client request.
type FieldError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

// invalidInputError aggregates multiple FieldError instances and unwraps to ErrInvalidInput.
type invalidInputError struct {
	fields []FieldError
}

func (e *invalidInputError) Error() string        { return ErrInvalidInput.Error() }
func (e *invalidInputError) Unwrap() error        { return ErrInvalidInput }
func (e *invalidInputError) Fields() []FieldError { return e.fields }

// NewInvalidInput builds an aggregated validation error if any field errors are present.
// Handlers use it too, for query parameters they fail to parse.
func NewInvalidInput(fe []FieldError) error {
	if len(fe) == 0 {
		return nil
	}
	return &invalidInputError{fields: fe}
}

// FieldErrors extracts field errors from an aggregated validation error.
func FieldErrors(err error) []FieldError {
	if err == nil {
		return nil
	}
	type feIface interface{ Fields() []FieldError }
	var v feIface
	if errors.As(err, &v) && errors.Is(err, ErrInvalidInput) {
		return v.Fields()
	}
	return nil
}

// CourseService defines course-oriented use cases of the admin console.
type CourseService interface {
	ListCourses(ctx context.Context, q repository.ListQuery) (repository.PageResult[model.Course], error)
	GetCourse(ctx context.Context, id string) (model.Course, error)
	// CreateCourse assigns a fresh id when c.ID is empty.
	CreateCourse(ctx context.Context, c model.Course) (model.Course, error)
	UpdateCourse(ctx context.Context, id string, c model.Course) (model.Course, error)
	DeleteCourse(ctx context.Context, id string) (model.Course, error)
	// ImportCourses upserts every course, all or nothing where the backend supports transactions.
	ImportCourses(ctx context.Context, courses []model.Course) (model.ImportSummary, error)
}
