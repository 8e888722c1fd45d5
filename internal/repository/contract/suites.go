// Package contract holds behavioural suites every CourseRepository backend must pass.
package contract

import (
	"context"
	"fmt"
	"testing"

	"github.com/maxviazov/module-progress-console/internal/model"
	"github.com/maxviazov/module-progress-console/internal/repository"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// CourseFactory returns an empty repository and a cleanup func.
type CourseFactory func(t *testing.T) (repository.CourseRepository, func())

func seed(t *testing.T, repo repository.CourseRepository, courses ...model.Course) {
	t.Helper()
	for _, c := range courses {
		_, err := repo.Create(context.Background(), c)
		require.NoError(t, err, "seed %s", c.ID)
	}
}

func ids(items []model.Course) []string {
	out := make([]string, 0, len(items))
	for _, c := range items {
		out = append(out, c.ID)
	}
	return out
}

func RunCourseRepositoryContract(t *testing.T, makeRepo CourseFactory) {
	t.Helper()

	t.Run("count_empty", func(t *testing.T) {
		repo, cleanup := makeRepo(t)
		t.Cleanup(cleanup)
		n, err := repo.Count(context.Background())
		require.NoError(t, err)
		assert.Equal(t, 0, n)
	})

	t.Run("create_and_get", func(t *testing.T) {
		repo, cleanup := makeRepo(t)
		t.Cleanup(cleanup)
		ctx := context.Background()
		in := model.Course{
			ID:         "53718",
			CourseName: "MATH 100",
			Users:      []model.User{{ID: "jdoe", Name: "Jane Doe"}, {ID: "asmith", Name: "Al Smith"}},
		}
		created, err := repo.Create(ctx, in)
		require.NoError(t, err)
		assert.Equal(t, in, created)

		got, err := repo.GetByID(ctx, "53718")
		require.NoError(t, err)
		assert.Equal(t, in, got, "users must round-trip in order")

		n, err := repo.Count(ctx)
		require.NoError(t, err)
		assert.Equal(t, 1, n)
	})

	t.Run("get_not_found", func(t *testing.T) {
		repo, cleanup := makeRepo(t)
		t.Cleanup(cleanup)
		_, err := repo.GetByID(context.Background(), "missing")
		assert.ErrorIs(t, err, repository.ErrNotFound)
	})

	t.Run("create_duplicate", func(t *testing.T) {
		repo, cleanup := makeRepo(t)
		t.Cleanup(cleanup)
		seed(t, repo, model.Course{ID: "1", CourseName: "A", Users: []model.User{}})
		_, err := repo.Create(context.Background(), model.Course{ID: "1", CourseName: "B", Users: []model.User{}})
		assert.ErrorIs(t, err, repository.ErrAlreadyExists)
	})

	t.Run("update_replaces_users", func(t *testing.T) {
		repo, cleanup := makeRepo(t)
		t.Cleanup(cleanup)
		ctx := context.Background()
		seed(t, repo, model.Course{ID: "1", CourseName: "A", Users: []model.User{{ID: "u1", Name: "One"}}})

		upd := model.Course{ID: "1", CourseName: "A2", Users: []model.User{{ID: "u2", Name: "Two"}, {ID: "u3", Name: "Three"}}}
		out, err := repo.Update(ctx, upd)
		require.NoError(t, err)
		assert.Equal(t, upd, out)

		got, err := repo.GetByID(ctx, "1")
		require.NoError(t, err)
		assert.Equal(t, upd, got)
	})

	t.Run("update_not_found", func(t *testing.T) {
		repo, cleanup := makeRepo(t)
		t.Cleanup(cleanup)
		_, err := repo.Update(context.Background(), model.Course{ID: "nope", CourseName: "X", Users: []model.User{}})
		assert.ErrorIs(t, err, repository.ErrNotFound)
	})

	t.Run("delete", func(t *testing.T) {
		repo, cleanup := makeRepo(t)
		t.Cleanup(cleanup)
		ctx := context.Background()
		c := model.Course{ID: "1", CourseName: "A", Users: []model.User{{ID: "u1", Name: "One"}}}
		seed(t, repo, c, model.Course{ID: "2", CourseName: "B", Users: []model.User{}})

		out, err := repo.Delete(ctx, "1")
		require.NoError(t, err)
		assert.Equal(t, c, out)

		_, err = repo.GetByID(ctx, "1")
		assert.ErrorIs(t, err, repository.ErrNotFound)
		n, err := repo.Count(ctx)
		require.NoError(t, err)
		assert.Equal(t, 1, n)

		_, err = repo.Delete(ctx, "1")
		assert.ErrorIs(t, err, repository.ErrNotFound)
	})

	t.Run("list_pagination_total", func(t *testing.T) {
		repo, cleanup := makeRepo(t)
		t.Cleanup(cleanup)
		ctx := context.Background()
		for i := 0; i < 7; i++ {
			seed(t, repo, model.Course{ID: fmt.Sprintf("c%d", i), CourseName: fmt.Sprintf("Course %d", i), Users: []model.User{}})
		}
		res, err := repo.List(ctx, repository.ListQuery{Page: repository.Page{Limit: 3, Offset: 0}})
		require.NoError(t, err)
		assert.Equal(t, []string{"c0", "c1", "c2"}, ids(res.Items))
		assert.Equal(t, 7, res.Total)

		res, err = repo.List(ctx, repository.ListQuery{Page: repository.Page{Limit: 3, Offset: 6}})
		require.NoError(t, err)
		assert.Equal(t, []string{"c6"}, ids(res.Items))
		assert.Equal(t, 7, res.Total)

		res, err = repo.List(ctx, repository.ListQuery{Page: repository.Page{Limit: 3, Offset: 20}})
		require.NoError(t, err)
		assert.Empty(t, res.Items)
		assert.Equal(t, 7, res.Total)
	})

	t.Run("list_sort", func(t *testing.T) {
		repo, cleanup := makeRepo(t)
		t.Cleanup(cleanup)
		seed(t, repo,
			model.Course{ID: "1", CourseName: "Zoology", Users: []model.User{}},
			model.Course{ID: "2", CourseName: "Algebra", Users: []model.User{}},
			model.Course{ID: "3", CourseName: "Music", Users: []model.User{}},
		)
		res, err := repo.List(context.Background(), repository.ListQuery{
			Sort: repository.Sort{Field: repository.SortByCourseName, Desc: true},
		})
		require.NoError(t, err)
		assert.Equal(t, []string{"1", "3", "2"}, ids(res.Items))
	})

	t.Run("list_filters", func(t *testing.T) {
		repo, cleanup := makeRepo(t)
		t.Cleanup(cleanup)
		ctx := context.Background()
		seed(t, repo,
			model.Course{ID: "1", CourseName: "Intro Physics", Users: []model.User{{ID: "jdoe", Name: "Jane Doe"}}},
			model.Course{ID: "2", CourseName: "Advanced Physics", Users: []model.User{{ID: "bob", Name: "Bob Roe"}}},
			model.Course{ID: "3", CourseName: "Chemistry", Users: []model.User{{ID: "jdoe", Name: "Jane Doe"}}},
		)

		res, err := repo.List(ctx, repository.ListQuery{Filter: repository.CourseFilter{IDs: []string{"1", "3"}}})
		require.NoError(t, err)
		assert.Equal(t, []string{"1", "3"}, ids(res.Items))

		res, err = repo.List(ctx, repository.ListQuery{Filter: repository.CourseFilter{CourseName: "physics"}})
		require.NoError(t, err)
		assert.Equal(t, []string{"1", "2"}, ids(res.Items))
		assert.Equal(t, 2, res.Total)

		res, err = repo.List(ctx, repository.ListQuery{Filter: repository.CourseFilter{UserID: "jdoe"}})
		require.NoError(t, err)
		assert.Equal(t, []string{"1", "3"}, ids(res.Items))

		res, err = repo.List(ctx, repository.ListQuery{Filter: repository.CourseFilter{Q: "roe"}})
		require.NoError(t, err)
		assert.Equal(t, []string{"2"}, ids(res.Items))
		require.Len(t, res.Items[0].Users, 1)
		assert.Equal(t, "bob", res.Items[0].Users[0].ID)
	})
}

// TxFactory returns a transaction manager together with a course repository bound to the same store.
type TxFactory func(t *testing.T) (tx repository.TxManager, courses repository.CourseRepository, cleanup func())

func RunTxManagerContract(t *testing.T, makeTx TxFactory) {
	t.Helper()

	t.Run("commit_on_nil_error", func(t *testing.T) {
		tx, courses, cleanup := makeTx(t)
		t.Cleanup(cleanup)
		ctx := context.Background()
		err := tx.WithinTx(ctx, func(ctx context.Context) error {
			_, err := courses.Create(ctx, model.Course{ID: "tx-commit", CourseName: "Committed", Users: []model.User{}})
			return err
		})
		require.NoError(t, err)
		_, err = courses.GetByID(ctx, "tx-commit")
		assert.NoError(t, err, "committed row must be visible")
	})

	t.Run("rollback_on_error", func(t *testing.T) {
		tx, courses, cleanup := makeTx(t)
		t.Cleanup(cleanup)
		ctx := context.Background()
		marker := fmt.Errorf("boom")
		err := tx.WithinTx(ctx, func(ctx context.Context) error {
			if _, err := courses.Create(ctx, model.Course{ID: "tx-rollback", CourseName: "Rolled back", Users: []model.User{}}); err != nil {
				return err
			}
			return marker
		})
		assert.ErrorIs(t, err, marker)
		_, err = courses.GetByID(ctx, "tx-rollback")
		assert.ErrorIs(t, err, repository.ErrNotFound)
	})
}

func RunPingerContract(t *testing.T, makeRepo CourseFactory) {
	t.Helper()
	t.Run("ping_ok", func(t *testing.T) {
		repo, cleanup := makeRepo(t)
		t.Cleanup(cleanup)
		assert.NoError(t, repo.Ping(context.Background()))
	})
}
