package repository

import (
	"sort"
	"strings"

	"github.com/maxviazov/module-progress-console/internal/model"
)

// Page represents a simple limit/offset window for listing operations.
// A zero Limit means "everything from Offset on".
type Page struct {
	Limit  int
	Offset int
}

// PageResult carries a slice of items and the total count matching the query.
// I return the total so clients can compute pagination without an extra round trip.
type PageResult[T any] struct {
	Items []T
	Total int
}

// Sort orders a listing by one field.
type Sort struct {
	Field string
	Desc  bool
}

// Sortable course fields.
const (
	SortByID         = "id"
	SortByCourseName = "course_name"
)

// CourseFilter narrows a course listing. Empty fields match everything.
type CourseFilter struct {
	IDs        []string
	Q          string
	CourseName string
	UserID     string
}

// ListQuery is everything a list call may ask of a repository.
type ListQuery struct {
	Filter CourseFilter
	Sort   Sort
	Page   Page
}

// Matches reports whether c passes every filter criterion.
func (f CourseFilter) Matches(c model.Course) bool {
	if len(f.IDs) > 0 {
		found := false
		for _, id := range f.IDs {
			if id == c.ID {
				found = true
				break
			}
		}
		if !found {
			return false
		}
	}
	if f.CourseName != "" && !containsFold(c.CourseName, f.CourseName) {
		return false
	}
	if f.UserID != "" {
		found := false
		for _, u := range c.Users {
			if u.ID == f.UserID {
				found = true
				break
			}
		}
		if !found {
			return false
		}
	}
	if f.Q != "" {
		if containsFold(c.ID, f.Q) || containsFold(c.CourseName, f.Q) {
			return true
		}
		for _, u := range c.Users {
			if containsFold(u.ID, f.Q) || containsFold(u.Name, f.Q) {
				return true
			}
		}
		return false
	}
	return true
}

// Apply evaluates q over an in-memory collection: filter, stable sort, then window.
// Backends that keep the whole collection in memory share it so they agree on semantics.
func Apply(all []model.Course, q ListQuery) PageResult[model.Course] {
	matched := make([]model.Course, 0, len(all))
	for _, c := range all {
		if q.Filter.Matches(c) {
			matched = append(matched, c.Clone())
		}
	}

	less := func(a, b model.Course) bool { return a.ID < b.ID }
	if q.Sort.Field == SortByCourseName {
		less = func(a, b model.Course) bool {
			if a.CourseName == b.CourseName {
				return a.ID < b.ID
			}
			return a.CourseName < b.CourseName
		}
	}
	sort.SliceStable(matched, func(i, j int) bool {
		if q.Sort.Desc {
			return less(matched[j], matched[i])
		}
		return less(matched[i], matched[j])
	})

	total := len(matched)
	start := q.Page.Offset
	if start < 0 {
		start = 0
	}
	if start > total {
		start = total
	}
	end := total
	if q.Page.Limit > 0 && start+q.Page.Limit < total {
		end = start + q.Page.Limit
	}
	return PageResult[model.Course]{Items: matched[start:end], Total: total}
}

func containsFold(s, sub string) bool {
	return strings.Contains(strings.ToLower(s), strings.ToLower(sub))
}
