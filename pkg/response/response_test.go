package response_test

import (
	"errors"
	"fmt"
	"testing"

	"github.com/maxviazov/module-progress-console/internal/importer"
	"github.com/maxviazov/module-progress-console/internal/repository"
	"github.com/maxviazov/module-progress-console/internal/service"
	"github.com/maxviazov/module-progress-console/pkg/response"
)

func TestMapError(t *testing.T) {
	cases := []struct {
		name     string
		in       error
		wantCode int
		wantErr  string
	}{
		{"invalid_input", service.NewInvalidInput([]service.FieldError{{Field: "course_name", Message: "bad"}}), 400, "invalid_input"},
		{"malformed_workbook", &importer.RowError{Row: 3, Reason: "course_id is empty"}, 400, "malformed_workbook"},
		{"not_found", repository.ErrNotFound, 404, "not_found"},
		{"already_exists", repository.ErrAlreadyExists, 409, "already_exists"},
		{"conflict", repository.ErrConflict, 409, "conflict"},
		{"data_unavailable", repository.Unavailable(errors.New("file gone")), 503, "data_unavailable"},
		{"wrapped_not_found", fmt.Errorf("lookup: %w", repository.ErrNotFound), 404, "not_found"},
		{"internal", errors.New("boom"), 500, "internal_error"},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			code, payload := response.MapError(tc.in)
			if code != tc.wantCode || payload.Error != tc.wantErr {
				t.Fatalf("unexpected mapping: got (%d,%s) want (%d,%s)", code, payload.Error, tc.wantCode, tc.wantErr)
			}
			if tc.wantErr == "invalid_input" && len(payload.FieldErrors) == 0 {
				t.Fatalf("expected field errors in payload")
			}
		})
	}
}
