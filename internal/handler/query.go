package handler

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/maxviazov/module-progress-console/internal/model"
	"github.com/maxviazov/module-progress-console/internal/repository"
	"github.com/maxviazov/module-progress-console/internal/service"
)

// parseListQuery reads the list parameters react-admin's simple REST provider sends:
//
//	sort=["course_name","DESC"]  range=[0,24]  filter={"q":"math"}
//
// Each is a JSON literal inside a query parameter.
func parseListQuery(c *gin.Context) (repository.ListQuery, error) {
	var q repository.ListQuery
	var ferrs []service.FieldError

	if raw := c.Query("sort"); raw != "" {
		var pair []string
		if err := json.Unmarshal([]byte(raw), &pair); err != nil || len(pair) != 2 {
			ferrs = append(ferrs, service.FieldError{Field: "sort", Message: `must look like ["field","ASC"]`})
		} else {
			q.Sort.Field = pair[0]
			switch strings.ToUpper(pair[1]) {
			case "ASC":
			case "DESC":
				q.Sort.Desc = true
			default:
				ferrs = append(ferrs, service.FieldError{Field: "sort", Message: "order must be ASC or DESC"})
			}
		}
	}

	if raw := c.Query("range"); raw != "" {
		var bounds []int
		switch err := json.Unmarshal([]byte(raw), &bounds); {
		case err != nil || len(bounds) != 2:
			ferrs = append(ferrs, service.FieldError{Field: "range", Message: "must look like [start,end]"})
		case bounds[0] < 0 || bounds[1] < bounds[0]:
			ferrs = append(ferrs, service.FieldError{Field: "range", Message: "must satisfy 0 <= start <= end"})
		default:
			q.Page = repository.Page{Offset: bounds[0], Limit: bounds[1] - bounds[0] + 1}
		}
	}

	if raw := c.Query("filter"); raw != "" {
		f, err := parseFilter(raw)
		if err != nil {
			ferrs = append(ferrs, service.FieldError{Field: "filter", Message: err.Error()})
		}
		q.Filter = f
	}

	return q, service.NewInvalidInput(ferrs)
}

func parseFilter(raw string) (repository.CourseFilter, error) {
	var f repository.CourseFilter
	var fields map[string]json.RawMessage
	if err := json.Unmarshal([]byte(raw), &fields); err != nil {
		return f, fmt.Errorf("must be a JSON object")
	}
	for key, val := range fields {
		switch key {
		case "id":
			ids, err := idList(val)
			if err != nil {
				return f, fmt.Errorf("id: %w", err)
			}
			f.IDs = ids
		case "q", "course_name", "user_id":
			s, err := scalar(val)
			if err != nil {
				return f, fmt.Errorf("%s: %w", key, err)
			}
			switch key {
			case "q":
				f.Q = s
			case "course_name":
				f.CourseName = s
			default:
				f.UserID = s
			}
		}
		// other keys are ignored, as json-server would for unknown fields
	}
	return f, nil
}

// scalar accepts a JSON string or number and returns its text.
func scalar(val json.RawMessage) (string, error) {
	s, err := model.DecodeID(val)
	if err != nil {
		return "", fmt.Errorf("must be a string or number")
	}
	return s, nil
}

// idList accepts one id or an array of ids (react-admin's getMany).
func idList(val json.RawMessage) ([]string, error) {
	var many []json.RawMessage
	if err := json.Unmarshal(val, &many); err != nil {
		one, err := scalar(val)
		if err != nil {
			return nil, err
		}
		return []string{one}, nil
	}
	out := make([]string, 0, len(many))
	for _, v := range many {
		s, err := scalar(v)
		if err != nil {
			return nil, err
		}
		out = append(out, s)
	}
	return out, nil
}
