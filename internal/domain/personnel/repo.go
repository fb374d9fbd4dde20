package personnel

import (
	"context"
	"errors"
)

var (
	ErrNotFound  = errors.New("personnel entry not found")
	ErrDuplicate = errors.New("employee number already registered")
)

type Repository interface {
	// GetByCode matches the code exactly against ibm or no_empleado.
	GetByCode(ctx context.Context, code string) (*Entry, error)
	// Search returns prefix matches on ibm, no_empleado or name first, then
	// substring matches, at most limit in total.
	Search(ctx context.Context, term string, limit int) ([]*Entry, error)
	List(ctx context.Context, limit, offset int) ([]*Entry, int, error)
	Create(ctx context.Context, e *Entry) error
	// Upsert inserts or replaces the entry with the same employee number.
	Upsert(ctx context.Context, e *Entry) error
}
