package order

import (
	"context"
	"errors"

	"github.com/google/uuid"
)

var ErrNotFound = errors.New("order not found")

// Repository is the remote store for one order kind. Records are created and
// deleted, never updated.
type Repository[T Record] interface {
	// List returns every record, newest first.
	List(ctx context.Context) ([]T, error)
	GetByID(ctx context.Context, id uuid.UUID) (T, error)
	// Create inserts rec without its id or timestamps and returns the row as
	// stored.
	Create(ctx context.Context, rec T) (T, error)
	Delete(ctx context.Context, id uuid.UUID) error
}

type (
	PatientRepository = Repository[PatientOrder]
	StaffRepository   = Repository[StaffOrder]
)
