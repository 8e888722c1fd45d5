package postgres

import (
	"context"
	"errors"
	"strings"

	sq "github.com/Masterminds/squirrel"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/maxviazov/module-progress-console/internal/model"
	"github.com/maxviazov/module-progress-console/internal/repository"
)

var psql = sq.StatementBuilder.PlaceholderFormat(sq.Dollar)

type courseRepository struct {
	pool *pgxpool.Pool
	tx   repository.TxManager
}

// NewCourseRepository builds the postgres-backed course store.
// Writes touching both courses and course_users run inside one transaction.
func NewCourseRepository(pool *pgxpool.Pool) repository.CourseRepository {
	return &courseRepository{pool: pool, tx: NewTxManager(pool)}
}

func (r *courseRepository) Ping(ctx context.Context) error {
	return NewPinger(r.pool).Ping(ctx)
}

func (r *courseRepository) Count(ctx context.Context) (int, error) {
	if err := ensurePool(r.pool); err != nil {
		return 0, err
	}
	var n int
	if err := getQ(ctx, r.pool).QueryRow(ctx, `SELECT COUNT(*) FROM courses`).Scan(&n); err != nil {
		return 0, repository.Unavailable(err)
	}
	return n, nil
}

func likePattern(s string) string {
	r := strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)
	return "%" + r.Replace(s) + "%"
}

func applyFilter(b sq.SelectBuilder, f repository.CourseFilter) sq.SelectBuilder {
	if len(f.IDs) > 0 {
		b = b.Where(sq.Eq{"c.id": f.IDs})
	}
	if f.CourseName != "" {
		b = b.Where(sq.ILike{"c.course_name": likePattern(f.CourseName)})
	}
	if f.UserID != "" {
		b = b.Where(sq.Expr(`EXISTS (SELECT 1 FROM course_users u WHERE u.course_id = c.id AND u.user_id = ?)`, f.UserID))
	}
	if f.Q != "" {
		p := likePattern(f.Q)
		b = b.Where(sq.Or{
			sq.ILike{"c.id": p},
			sq.ILike{"c.course_name": p},
			sq.Expr(`EXISTS (SELECT 1 FROM course_users u WHERE u.course_id = c.id AND (u.user_id ILIKE ? OR u.name ILIKE ?))`, p, p),
		})
	}
	return b
}

func orderBy(s repository.Sort) []string {
	dir := " ASC"
	if s.Desc {
		dir = " DESC"
	}
	// COLLATE "C" keeps ordering byte-wise, same as the in-memory backends.
	if s.Field == repository.SortByCourseName {
		return []string{`c.course_name COLLATE "C"` + dir, `c.id COLLATE "C"` + dir}
	}
	return []string{`c.id COLLATE "C"` + dir}
}

func (r *courseRepository) List(ctx context.Context, lq repository.ListQuery) (repository.PageResult[model.Course], error) {
	if err := ensurePool(r.pool); err != nil {
		return repository.PageResult[model.Course]{}, err
	}
	limit, offset := sanitizeLimitOffset(lq.Page.Limit, lq.Page.Offset)
	b := applyFilter(psql.Select("c.id", "c.course_name", "COUNT(*) OVER() AS total").From("courses c"), lq.Filter).
		OrderBy(orderBy(lq.Sort)...).
		Limit(uint64(limit)).
		Offset(uint64(offset))
	query, args, err := b.ToSql()
	if err != nil {
		return repository.PageResult[model.Course]{}, err
	}

	exec := getQ(ctx, r.pool)
	rows, err := exec.Query(ctx, query, args...)
	if err != nil {
		return repository.PageResult[model.Course]{}, repository.MapPgError(err)
	}
	defer rows.Close()

	res := repository.PageResult[model.Course]{Items: make([]model.Course, 0)}
	index := map[string]int{}
	for rows.Next() {
		var c model.Course
		var total int
		if err := rows.Scan(&c.ID, &c.CourseName, &total); err != nil {
			return repository.PageResult[model.Course]{}, repository.MapPgError(err)
		}
		c.Users = []model.User{}
		index[c.ID] = len(res.Items)
		res.Items = append(res.Items, c)
		res.Total = total
	}
	if err := rows.Err(); err != nil {
		return repository.PageResult[model.Course]{}, repository.MapPgError(err)
	}
	rows.Close()

	// An offset past the end yields no rows and therefore no window total.
	if len(res.Items) == 0 && offset > 0 {
		countSQL, countArgs, err := applyFilter(psql.Select("COUNT(*)").From("courses c"), lq.Filter).ToSql()
		if err != nil {
			return repository.PageResult[model.Course]{}, err
		}
		if err := exec.QueryRow(ctx, countSQL, countArgs...).Scan(&res.Total); err != nil {
			return repository.PageResult[model.Course]{}, repository.MapPgError(err)
		}
		return res, nil
	}
	if len(res.Items) == 0 {
		return res, nil
	}

	ids := make([]string, 0, len(res.Items))
	for _, c := range res.Items {
		ids = append(ids, c.ID)
	}
	urows, err := exec.Query(ctx,
		`SELECT course_id, user_id, name FROM course_users
		 WHERE course_id = ANY($1)
		 ORDER BY course_id, position`, ids)
	if err != nil {
		return repository.PageResult[model.Course]{}, repository.MapPgError(err)
	}
	defer urows.Close()
	for urows.Next() {
		var courseID string
		var u model.User
		if err := urows.Scan(&courseID, &u.ID, &u.Name); err != nil {
			return repository.PageResult[model.Course]{}, repository.MapPgError(err)
		}
		if i, ok := index[courseID]; ok {
			res.Items[i].Users = append(res.Items[i].Users, u)
		}
	}
	return res, repository.MapPgError(urows.Err())
}

func (r *courseRepository) GetByID(ctx context.Context, id string) (model.Course, error) {
	if err := ensurePool(r.pool); err != nil {
		return model.Course{}, err
	}
	exec := getQ(ctx, r.pool)
	var out model.Course
	err := exec.QueryRow(ctx, `SELECT id, course_name FROM courses WHERE id = $1`, id).
		Scan(&out.ID, &out.CourseName)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return model.Course{}, repository.ErrNotFound
		}
		return model.Course{}, repository.MapPgError(err)
	}
	users, err := r.users(ctx, id)
	if err != nil {
		return model.Course{}, err
	}
	out.Users = users
	return out, nil
}

func (r *courseRepository) users(ctx context.Context, courseID string) ([]model.User, error) {
	rows, err := getQ(ctx, r.pool).Query(ctx,
		`SELECT user_id, name FROM course_users WHERE course_id = $1 ORDER BY position`, courseID)
	if err != nil {
		return nil, repository.MapPgError(err)
	}
	defer rows.Close()
	users := []model.User{}
	for rows.Next() {
		var u model.User
		if err := rows.Scan(&u.ID, &u.Name); err != nil {
			return nil, repository.MapPgError(err)
		}
		users = append(users, u)
	}
	return users, repository.MapPgError(rows.Err())
}

func (r *courseRepository) insertUsers(ctx context.Context, courseID string, users []model.User) error {
	if len(users) == 0 {
		return nil
	}
	b := psql.Insert("course_users").Columns("course_id", "user_id", "name", "position")
	for i, u := range users {
		b = b.Values(courseID, u.ID, u.Name, i)
	}
	query, args, err := b.ToSql()
	if err != nil {
		return err
	}
	_, err = getQ(ctx, r.pool).Exec(ctx, query, args...)
	return repository.MapPgError(err)
}

func (r *courseRepository) Create(ctx context.Context, c model.Course) (model.Course, error) {
	if err := ensurePool(r.pool); err != nil {
		return model.Course{}, err
	}
	err := r.tx.WithinTx(ctx, func(ctx context.Context) error {
		_, err := getQ(ctx, r.pool).Exec(ctx,
			`INSERT INTO courses (id, course_name) VALUES ($1, $2)`, c.ID, c.CourseName)
		if err != nil {
			return repository.MapPgError(err)
		}
		return r.insertUsers(ctx, c.ID, c.Users)
	})
	if err != nil {
		return model.Course{}, err
	}
	return c.Clone(), nil
}

func (r *courseRepository) Update(ctx context.Context, c model.Course) (model.Course, error) {
	if err := ensurePool(r.pool); err != nil {
		return model.Course{}, err
	}
	err := r.tx.WithinTx(ctx, func(ctx context.Context) error {
		exec := getQ(ctx, r.pool)
		tag, err := exec.Exec(ctx,
			`UPDATE courses SET course_name = $2, updated_at = now() WHERE id = $1`, c.ID, c.CourseName)
		if err != nil {
			return repository.MapPgError(err)
		}
		if tag.RowsAffected() == 0 {
			return repository.ErrNotFound
		}
		if _, err := exec.Exec(ctx, `DELETE FROM course_users WHERE course_id = $1`, c.ID); err != nil {
			return repository.MapPgError(err)
		}
		return r.insertUsers(ctx, c.ID, c.Users)
	})
	if err != nil {
		return model.Course{}, err
	}
	return c.Clone(), nil
}

func (r *courseRepository) Delete(ctx context.Context, id string) (model.Course, error) {
	if err := ensurePool(r.pool); err != nil {
		return model.Course{}, err
	}
	var out model.Course
	err := r.tx.WithinTx(ctx, func(ctx context.Context) error {
		existing, err := r.GetByID(ctx, id)
		if err != nil {
			return err
		}
		// course_users rows go with it via ON DELETE CASCADE
		if _, err := getQ(ctx, r.pool).Exec(ctx, `DELETE FROM courses WHERE id = $1`, id); err != nil {
			return repository.MapPgError(err)
		}
		out = existing
		return nil
	})
	if err != nil {
		return model.Course{}, err
	}
	return out, nil
}

var _ repository.CourseRepository = (*courseRepository)(nil)
