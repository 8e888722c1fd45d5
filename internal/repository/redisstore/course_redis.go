// Package redisstore keeps courses in Redis: one JSON value per course plus
// a sorted set that remembers insertion order and gives a cheap count.
package redisstore

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/go-redis/redis/v8"
	"github.com/maxviazov/module-progress-console/internal/model"
	"github.com/maxviazov/module-progress-console/internal/repository"
	"github.com/rs/zerolog"
)

const (
	coursesKey    = "courses"     // ZSet: course ids scored by insertion sequence
	courseSeqKey  = "courses:seq" // String: insertion counter
	coursePrefix  = "course:"     // String prefix: course:{id} -> course JSON
	defaultPrefix = "mpc:"
)

// Store is a CourseRepository backed by Redis.
type Store struct {
	client *redis.Client
	prefix string
	log    zerolog.Logger
}

// New wraps an existing client. Every key is namespaced under prefix.
func New(client *redis.Client, prefix string, logger zerolog.Logger) *Store {
	if prefix == "" {
		prefix = defaultPrefix
	}
	return &Store{
		client: client,
		prefix: prefix,
		log:    logger.With().Str("module", "repository").Str("component", "redisstore").Logger(),
	}
}

func (s *Store) key(parts ...string) string {
	k := s.prefix
	for _, p := range parts {
		k += p
	}
	return k
}

func (s *Store) courseKey(id string) string { return s.key(coursePrefix, id) }

func (s *Store) Ping(ctx context.Context) error {
	if err := s.client.Ping(ctx).Err(); err != nil {
		return repository.Unavailable(err)
	}
	return nil
}

func (s *Store) Count(ctx context.Context) (int, error) {
	n, err := s.client.ZCard(ctx, s.key(coursesKey)).Result()
	if err != nil {
		return 0, repository.Unavailable(err)
	}
	return int(n), nil
}

func decode(raw string) (model.Course, error) {
	var c model.Course
	if err := json.Unmarshal([]byte(raw), &c); err != nil {
		return model.Course{}, fmt.Errorf("decode course: %w", err)
	}
	if c.Users == nil {
		c.Users = []model.User{}
	}
	return c, nil
}

func (s *Store) all(ctx context.Context) ([]model.Course, error) {
	ids, err := s.client.ZRange(ctx, s.key(coursesKey), 0, -1).Result()
	if err != nil {
		return nil, repository.Unavailable(err)
	}
	if len(ids) == 0 {
		return []model.Course{}, nil
	}
	keys := make([]string, len(ids))
	for i, id := range ids {
		keys[i] = s.courseKey(id)
	}
	vals, err := s.client.MGet(ctx, keys...).Result()
	if err != nil {
		return nil, repository.Unavailable(err)
	}
	out := make([]model.Course, 0, len(vals))
	var ghosts []interface{}
	for i, v := range vals {
		raw, ok := v.(string)
		if !ok {
			// index entry without a body: a half-finished delete
			ghosts = append(ghosts, ids[i])
			continue
		}
		c, err := decode(raw)
		if err != nil {
			return nil, repository.Unavailable(err)
		}
		out = append(out, c)
	}
	if len(ghosts) > 0 {
		// keep ZCARD in step with what List can return
		if err := s.client.ZRem(ctx, s.key(coursesKey), ghosts...).Err(); err != nil {
			s.log.Warn().Err(err).Int("ghosts", len(ghosts)).Msg("prune course index")
		} else {
			s.log.Warn().Interface("course_ids", ghosts).Msg("pruned indexed courses without a body")
		}
	}
	return out, nil
}

func (s *Store) List(ctx context.Context, q repository.ListQuery) (repository.PageResult[model.Course], error) {
	all, err := s.all(ctx)
	if err != nil {
		return repository.PageResult[model.Course]{}, err
	}
	return repository.Apply(all, q), nil
}

func (s *Store) GetByID(ctx context.Context, id string) (model.Course, error) {
	raw, err := s.client.Get(ctx, s.courseKey(id)).Result()
	if errors.Is(err, redis.Nil) {
		return model.Course{}, repository.ErrNotFound
	}
	if err != nil {
		return model.Course{}, repository.Unavailable(err)
	}
	return decode(raw)
}

func (s *Store) Create(ctx context.Context, c model.Course) (model.Course, error) {
	data, err := json.Marshal(c)
	if err != nil {
		return model.Course{}, err
	}
	ok, err := s.client.SetNX(ctx, s.courseKey(c.ID), data, 0).Result()
	if err != nil {
		return model.Course{}, repository.Unavailable(err)
	}
	if !ok {
		return model.Course{}, repository.ErrAlreadyExists
	}
	seq, err := s.client.Incr(ctx, s.key(courseSeqKey)).Result()
	if err == nil {
		err = s.client.ZAdd(ctx, s.key(coursesKey), &redis.Z{Score: float64(seq), Member: c.ID}).Err()
	}
	if err != nil {
		// undo the body so a retry isn't blocked by a ghost record
		s.client.Del(ctx, s.courseKey(c.ID))
		s.log.Error().Err(err).Str("course_id", c.ID).Msg("index course failed")
		return model.Course{}, repository.Unavailable(err)
	}
	return c.Clone(), nil
}

func (s *Store) Update(ctx context.Context, c model.Course) (model.Course, error) {
	data, err := json.Marshal(c)
	if err != nil {
		return model.Course{}, err
	}
	ok, err := s.client.SetXX(ctx, s.courseKey(c.ID), data, 0).Result()
	if err != nil {
		return model.Course{}, repository.Unavailable(err)
	}
	if !ok {
		return model.Course{}, repository.ErrNotFound
	}
	return c.Clone(), nil
}

func (s *Store) Delete(ctx context.Context, id string) (model.Course, error) {
	existing, err := s.GetByID(ctx, id)
	if err != nil {
		return model.Course{}, err
	}
	_, err = s.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Del(ctx, s.courseKey(id))
		pipe.ZRem(ctx, s.key(coursesKey), id)
		return nil
	})
	if err != nil {
		return model.Course{}, repository.Unavailable(err)
	}
	return existing, nil
}

var _ repository.CourseRepository = (*Store)(nil)
