// Package importer turns an .xlsx enrolment roster into courses.
//
// The first sheet must carry a header row naming the columns course_id,
// course_name, cwl and name (any order, case-insensitive). Each following
// row enrols one user in one course; rows sharing a course_id are grouped.
// A row with only course_id and course_name declares a course with no users.
package importer

import (
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/maxviazov/module-progress-console/internal/model"
	"github.com/xuri/excelize/v2"
)

// Column headers recognised in the first row.
const (
	ColCourseID   = "course_id"
	ColCourseName = "course_name"
	ColUserID     = "cwl"
	ColUserName   = "name"
)

// ErrMalformedWorkbook wraps every structural problem with the upload.
var ErrMalformedWorkbook = errors.New("malformed workbook")

// RowError points at the spreadsheet row (1-based, as shown in Excel) that failed.
type RowError struct {
	Row    int
	Reason string
}

func (e *RowError) Error() string { return fmt.Sprintf("row %d: %s", e.Row, e.Reason) }
func (e *RowError) Unwrap() error { return ErrMalformedWorkbook }

// ParseWorkbook reads the first sheet of an .xlsx stream.
// Courses come back in first-seen order.
func ParseWorkbook(r io.Reader) ([]model.Course, error) {
	f, err := excelize.OpenReader(r)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedWorkbook, err)
	}
	defer f.Close()

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return nil, fmt.Errorf("%w: no sheets", ErrMalformedWorkbook)
	}
	rows, err := f.GetRows(sheets[0])
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedWorkbook, err)
	}
	if len(rows) == 0 {
		return nil, fmt.Errorf("%w: sheet %q is empty", ErrMalformedWorkbook, sheets[0])
	}

	cols, err := headerIndex(rows[0])
	if err != nil {
		return nil, err
	}

	var out []model.Course
	index := map[string]int{}
	for i, row := range rows[1:] {
		line := i + 2
		cell := func(name string) string {
			j, ok := cols[name]
			if !ok || j >= len(row) {
				return ""
			}
			return strings.TrimSpace(row[j])
		}
		courseID, courseName := cell(ColCourseID), cell(ColCourseName)
		userID, userName := cell(ColUserID), cell(ColUserName)
		if courseID == "" && courseName == "" && userID == "" && userName == "" {
			continue
		}
		if courseID == "" {
			return nil, &RowError{Row: line, Reason: "course_id is empty"}
		}

		pos, seen := index[courseID]
		if !seen {
			pos = len(out)
			index[courseID] = pos
			out = append(out, model.Course{ID: courseID, CourseName: courseName, Users: []model.User{}})
		}
		c := &out[pos]
		if c.CourseName == "" {
			c.CourseName = courseName
		} else if courseName != "" && courseName != c.CourseName {
			return nil, &RowError{Row: line, Reason: fmt.Sprintf("course %s is named both %q and %q", courseID, c.CourseName, courseName)}
		}
		if userID != "" || userName != "" {
			c.Users = append(c.Users, model.User{ID: userID, Name: userName})
		}
	}
	return out, nil
}

func headerIndex(header []string) (map[string]int, error) {
	cols := make(map[string]int, len(header))
	for i, h := range header {
		cols[strings.ToLower(strings.TrimSpace(h))] = i
	}
	var missing []string
	for _, want := range []string{ColCourseID, ColCourseName, ColUserID, ColUserName} {
		if _, ok := cols[want]; !ok {
			missing = append(missing, want)
		}
	}
	if len(missing) > 0 {
		return nil, &RowError{Row: 1, Reason: "missing columns: " + strings.Join(missing, ", ")}
	}
	return cols, nil
}
