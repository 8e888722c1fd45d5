package service

import (
	"errors"
	"fmt"
	"reflect"
	"strings"
	"sync"

	"github.com/go-playground/validator/v10"
	"github.com/maxviazov/module-progress-console/internal/model"
	"github.com/maxviazov/module-progress-console/internal/repository"
)

// maxPageLimit bounds a single list call; react-admin never asks for more than a few hundred.
const maxPageLimit = 1000

func normalizePage(p repository.Page) repository.Page {
	limit := p.Limit
	offset := p.Offset
	if limit <= 0 || limit > maxPageLimit {
		limit = maxPageLimit
	}
	if offset < 0 {
		offset = 0
	}
	return repository.Page{Limit: limit, Offset: offset}
}

func isValidSortField(field string) bool {
	switch field {
	case "", repository.SortByID, repository.SortByCourseName:
		return true
	default:
		return false
	}
}

var (
	validateOnce sync.Once
	validate     *validator.Validate
)

// courseValidator reports fields by their JSON names so errors line up with the payload.
func courseValidator() *validator.Validate {
	validateOnce.Do(func() {
		validate = validator.New()
		validate.RegisterTagNameFunc(func(fld reflect.StructField) string {
			name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
			if name == "-" {
				return ""
			}
			return name
		})
	})
	return validate
}

// normalizeCourse trims text fields and guarantees a non-nil users list.
func normalizeCourse(c model.Course) model.Course {
	c.ID = strings.TrimSpace(c.ID)
	c.CourseName = strings.TrimSpace(c.CourseName)
	users := make([]model.User, 0, len(c.Users))
	for _, u := range c.Users {
		users = append(users, model.User{ID: strings.TrimSpace(u.ID), Name: strings.TrimSpace(u.Name)})
	}
	c.Users = users
	return c
}

func describe(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "must not be empty"
	case "max":
		return "length must be at most " + fe.Param()
	default:
		return "failed " + fe.Tag() + " check"
	}
}

// validateCourse collects every problem with c; prefix is prepended to field paths (bulk import rows).
func validateCourse(c model.Course, prefix string) []FieldError {
	var ferrs []FieldError
	if err := courseValidator().Struct(c); err != nil {
		var verrs validator.ValidationErrors
		if !errors.As(err, &verrs) {
			return []FieldError{{Field: prefix + "course", Message: err.Error()}}
		}
		for _, fe := range verrs {
			// Namespace is "Course.users[0].id"; drop the type name.
			field := fe.Namespace()
			if i := strings.IndexByte(field, '.'); i >= 0 {
				field = field[i+1:]
			}
			ferrs = append(ferrs, FieldError{Field: prefix + field, Message: describe(fe)})
		}
	}
	seen := make(map[string]int, len(c.Users))
	for i, u := range c.Users {
		if u.ID == "" {
			continue
		}
		if first, dup := seen[u.ID]; dup {
			ferrs = append(ferrs, FieldError{
				Field:   fmt.Sprintf("%susers[%d].id", prefix, i),
				Message: fmt.Sprintf("duplicates users[%d].id", first),
			})
			continue
		}
		seen[u.ID] = i
	}
	return ferrs
}
