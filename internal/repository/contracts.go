package repository

import (
	"context"

	"github.com/maxviazov/module-progress-console/internal/model"
)

// Pinger represents a minimal readiness probe capability.
// I use it to decouple health checks from storage implementation details.
type Pinger interface {
	Ping(ctx context.Context) error
}

// Counter reports the current size of a collection.
// The Content-Range middleware depends on nothing else.
type Counter interface {
	Count(ctx context.Context) (int, error)
}

// CounterFunc adapts a plain function to Counter.
type CounterFunc func(ctx context.Context) (int, error)

func (f CounterFunc) Count(ctx context.Context) (int, error) { return f(ctx) }

// TxFunc is the unit of work executed within a transaction boundary.
// I pass context through so nested calls can honor cancellations and deadlines.
type TxFunc func(ctx context.Context) error

// TxManager abstracts transactional execution for repositories that support it.
// I prefer a single entry point to keep transaction boundaries explicit and testable.
type TxManager interface {
	WithinTx(ctx context.Context, fn TxFunc) error
}

// NopTxManager runs fn directly, for backends without transactions.
type NopTxManager struct{}

func (NopTxManager) WithinTx(ctx context.Context, fn TxFunc) error { return fn(ctx) }

// CourseRepository declares persistence operations for courses.
// Implementations return domain errors from errors.go, never driver errors.
type CourseRepository interface {
	Counter
	Pinger
	List(ctx context.Context, q ListQuery) (PageResult[model.Course], error)
	GetByID(ctx context.Context, id string) (model.Course, error)
	// Create stores c as-is; the id must already be set.
	Create(ctx context.Context, c model.Course) (model.Course, error)
	// Update replaces the stored course with the same id, users included.
	Update(ctx context.Context, c model.Course) (model.Course, error)
	// Delete removes the course and returns what was stored.
	Delete(ctx context.Context, id string) (model.Course, error)
}
