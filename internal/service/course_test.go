package service_test

import (
	"context"
	"errors"
	"testing"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/maxviazov/module-progress-console/internal/model"
	"github.com/maxviazov/module-progress-console/internal/repository"
	"github.com/maxviazov/module-progress-console/internal/service"
)

type fakeCourseRepo struct {
	items     map[string]model.Course
	createErr error
	lastQuery repository.ListQuery // capture for normalization tests
}

func newFakeCourseRepo(seed ...model.Course) *fakeCourseRepo {
	f := &fakeCourseRepo{items: map[string]model.Course{}}
	for _, c := range seed {
		f.items[c.ID] = c
	}
	return f
}

func (f *fakeCourseRepo) Ping(context.Context) error { return nil }
func (f *fakeCourseRepo) Count(context.Context) (int, error) {
	return len(f.items), nil
}
func (f *fakeCourseRepo) List(_ context.Context, q repository.ListQuery) (repository.PageResult[model.Course], error) {
	f.lastQuery = q
	all := make([]model.Course, 0, len(f.items))
	for _, c := range f.items {
		all = append(all, c)
	}
	return repository.Apply(all, q), nil
}
func (f *fakeCourseRepo) GetByID(_ context.Context, id string) (model.Course, error) {
	c, ok := f.items[id]
	if !ok {
		return model.Course{}, repository.ErrNotFound
	}
	return c, nil
}
func (f *fakeCourseRepo) Create(_ context.Context, c model.Course) (model.Course, error) {
	if f.createErr != nil {
		return model.Course{}, f.createErr
	}
	if _, ok := f.items[c.ID]; ok {
		return model.Course{}, repository.ErrAlreadyExists
	}
	f.items[c.ID] = c
	return c, nil
}
func (f *fakeCourseRepo) Update(_ context.Context, c model.Course) (model.Course, error) {
	if _, ok := f.items[c.ID]; !ok {
		return model.Course{}, repository.ErrNotFound
	}
	f.items[c.ID] = c
	return c, nil
}
func (f *fakeCourseRepo) Delete(_ context.Context, id string) (model.Course, error) {
	c, ok := f.items[id]
	if !ok {
		return model.Course{}, repository.ErrNotFound
	}
	delete(f.items, id)
	return c, nil
}

var _ repository.CourseRepository = (*fakeCourseRepo)(nil)

// countingTx records how many transactions the service opened.
type countingTx struct{ calls int }

func (c *countingTx) WithinTx(ctx context.Context, fn repository.TxFunc) error {
	c.calls++
	return fn(ctx)
}

func newSvc(repo repository.CourseRepository) service.CourseService {
	return service.NewCourseService(repo, nil, zerolog.Nop())
}

func fieldNames(err error) []string {
	var out []string
	for _, fe := range service.FieldErrors(err) {
		out = append(out, fe.Field)
	}
	return out
}

func TestCourseService_CreateCourse_Validation(t *testing.T) {
	cases := []struct {
		name       string
		input      model.Course
		wantFields []string
	}{
		{"empty_name", model.Course{ID: "1"}, []string{"course_name"}},
		{"blank_name", model.Course{ID: "1", CourseName: "   "}, []string{"course_name"}},
		{"user_without_id", model.Course{ID: "1", CourseName: "A", Users: []model.User{{Name: "Jane"}}}, []string{"users[0].id"}},
		{"user_without_name", model.Course{ID: "1", CourseName: "A", Users: []model.User{{ID: "jdoe"}}}, []string{"users[0].name"}},
		{"duplicate_user", model.Course{ID: "1", CourseName: "A", Users: []model.User{{ID: "jdoe", Name: "J"}, {ID: "jdoe", Name: "J2"}}}, []string{"users[1].id"}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := newSvc(newFakeCourseRepo()).CreateCourse(context.Background(), tc.input)
			require.ErrorIs(t, err, service.ErrInvalidInput)
			assert.Equal(t, tc.wantFields, fieldNames(err))
		})
	}
}

func TestCourseService_CreateCourse_AssignsIDAndTrims(t *testing.T) {
	repo := newFakeCourseRepo()
	out, err := newSvc(repo).CreateCourse(context.Background(), model.Course{
		CourseName: "  MATH 100 ",
		Users:      []model.User{{ID: " jdoe ", Name: "Jane Doe"}},
	})
	require.NoError(t, err)

	_, perr := uuid.Parse(out.ID)
	assert.NoError(t, perr, "generated id should be a uuid, got %q", out.ID)
	assert.Equal(t, "MATH 100", out.CourseName)
	assert.Equal(t, []model.User{{ID: "jdoe", Name: "Jane Doe"}}, out.Users)
	assert.Contains(t, repo.items, out.ID)
}

func TestCourseService_CreateCourse_NilUsersBecomeEmpty(t *testing.T) {
	out, err := newSvc(newFakeCourseRepo()).CreateCourse(context.Background(), model.Course{ID: "1", CourseName: "A"})
	require.NoError(t, err)
	assert.NotNil(t, out.Users)
	assert.Empty(t, out.Users)
}

func TestCourseService_CreateCourse_RepoErrorPassesThrough(t *testing.T) {
	repo := newFakeCourseRepo()
	repo.createErr = repository.ErrAlreadyExists
	_, err := newSvc(repo).CreateCourse(context.Background(), model.Course{ID: "1", CourseName: "A"})
	assert.ErrorIs(t, err, repository.ErrAlreadyExists)
}

func TestCourseService_UpdateCourse(t *testing.T) {
	repo := newFakeCourseRepo(model.Course{ID: "1", CourseName: "A", Users: []model.User{}})
	svc := newSvc(repo)

	out, err := svc.UpdateCourse(context.Background(), "1", model.Course{CourseName: "B"})
	require.NoError(t, err)
	assert.Equal(t, "1", out.ID, "path id wins when body omits it")
	assert.Equal(t, "B", repo.items["1"].CourseName)

	_, err = svc.UpdateCourse(context.Background(), "1", model.Course{ID: "2", CourseName: "B"})
	require.ErrorIs(t, err, service.ErrInvalidInput)
	assert.Equal(t, []string{"id"}, fieldNames(err))

	_, err = svc.UpdateCourse(context.Background(), "missing", model.Course{CourseName: "B"})
	assert.ErrorIs(t, err, repository.ErrNotFound)
}

func TestCourseService_DeleteCourse(t *testing.T) {
	repo := newFakeCourseRepo(model.Course{ID: "1", CourseName: "A"})
	svc := newSvc(repo)

	out, err := svc.DeleteCourse(context.Background(), "1")
	require.NoError(t, err)
	assert.Equal(t, "A", out.CourseName)

	_, err = svc.DeleteCourse(context.Background(), "1")
	assert.ErrorIs(t, err, repository.ErrNotFound)

	_, err = svc.DeleteCourse(context.Background(), "")
	assert.ErrorIs(t, err, service.ErrInvalidInput)
}

func TestCourseService_ListCourses_NormalizesPage(t *testing.T) {
	repo := newFakeCourseRepo()
	svc := newSvc(repo)

	_, err := svc.ListCourses(context.Background(), repository.ListQuery{Page: repository.Page{Limit: 0, Offset: -5}})
	require.NoError(t, err)
	assert.Equal(t, repository.Page{Limit: 1000, Offset: 0}, repo.lastQuery.Page)

	_, err = svc.ListCourses(context.Background(), repository.ListQuery{Page: repository.Page{Limit: 25, Offset: 50}})
	require.NoError(t, err)
	assert.Equal(t, repository.Page{Limit: 25, Offset: 50}, repo.lastQuery.Page)
}

func TestCourseService_ListCourses_RejectsUnknownSortField(t *testing.T) {
	_, err := newSvc(newFakeCourseRepo()).ListCourses(context.Background(), repository.ListQuery{
		Sort: repository.Sort{Field: "users"},
	})
	require.ErrorIs(t, err, service.ErrInvalidInput)
	assert.Equal(t, []string{"sort"}, fieldNames(err))
}

func TestCourseService_ImportCourses_Upserts(t *testing.T) {
	repo := newFakeCourseRepo(model.Course{ID: "1", CourseName: "Old", Users: []model.User{}})
	tx := &countingTx{}
	svc := service.NewCourseService(repo, tx, zerolog.Nop())

	summary, err := svc.ImportCourses(context.Background(), []model.Course{
		{ID: "1", CourseName: "New", Users: []model.User{{ID: "jdoe", Name: "Jane"}}},
		{ID: "2", CourseName: "Two"},
	})
	require.NoError(t, err)
	assert.Equal(t, model.ImportSummary{Created: 1, Updated: 1}, summary)
	assert.Equal(t, 1, tx.calls, "import runs in a single transaction")
	assert.Equal(t, "New", repo.items["1"].CourseName)
	assert.Contains(t, repo.items, "2")
}

func TestCourseService_ImportCourses_ValidatesEverythingFirst(t *testing.T) {
	repo := newFakeCourseRepo()
	_, err := newSvc(repo).ImportCourses(context.Background(), []model.Course{
		{ID: "1", CourseName: "A"},
		{ID: "1", CourseName: "B"},
		{ID: "", CourseName: ""},
	})
	require.ErrorIs(t, err, service.ErrInvalidInput)
	assert.ElementsMatch(t, []string{"courses[1].id", "courses[2].id", "courses[2].course_name"}, fieldNames(err))
	assert.Empty(t, repo.items, "nothing is written when any row is invalid")
}

func TestCourseService_ImportCourses_Empty(t *testing.T) {
	_, err := newSvc(newFakeCourseRepo()).ImportCourses(context.Background(), nil)
	assert.ErrorIs(t, err, service.ErrInvalidInput)
}

func TestFieldErrors_IgnoresOtherErrors(t *testing.T) {
	assert.Nil(t, service.FieldErrors(nil))
	assert.Nil(t, service.FieldErrors(errors.New("boom")))
	assert.Nil(t, service.FieldErrors(service.ErrInvalidInput))
}
