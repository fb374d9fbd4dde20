package order

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"
)

// Service dispatches union-typed calls to the per-kind stores.
type Service struct {
	patients *Store[PatientOrder]
	staff    *Store[StaffOrder]
}

func NewService(patients *Store[PatientOrder], staff *Store[StaffOrder]) *Service {
	return &Service{patients: patients, staff: staff}
}

func (s *Service) Patients() *Store[PatientOrder] { return s.patients }
func (s *Service) Staff() *Store[StaffOrder]      { return s.staff }

// List refreshes the kind's cached list and returns it as orders.
func (s *Service) List(ctx context.Context, kind Kind) ([]Order, error) {
	switch kind {
	case KindPatient:
		items, err := s.patients.List(ctx)
		return wrapPatients(items), err
	case KindStaff:
		items, err := s.staff.List(ctx)
		return wrapStaff(items), err
	}
	return nil, fmt.Errorf("unknown order kind: %q", kind)
}

// Search filters the cached list of the kind.
func (s *Service) Search(kind Kind, term string) []Order {
	if kind == KindStaff {
		return wrapStaff(s.staff.Search(term))
	}
	return wrapPatients(s.patients.Search(term))
}

func (s *Service) Get(ctx context.Context, kind Kind, id uuid.UUID) (Order, error) {
	switch kind {
	case KindPatient:
		p, err := s.patients.Get(ctx, id)
		if err != nil {
			return Order{}, err
		}
		return OfPatient(p), nil
	case KindStaff:
		st, err := s.staff.Get(ctx, id)
		if err != nil {
			return Order{}, err
		}
		return OfStaff(st), nil
	}
	return Order{}, fmt.Errorf("unknown order kind: %q", kind)
}

// Create stores the active variant of o and returns the stored order.
func (s *Service) Create(ctx context.Context, o Order) (Order, error) {
	switch o.Kind {
	case KindPatient:
		p, err := s.patients.Create(ctx, o.Record().(PatientOrder))
		if err != nil {
			return Order{}, err
		}
		return OfPatient(*p), nil
	case KindStaff:
		st, err := s.staff.Create(ctx, o.Record().(StaffOrder))
		if err != nil {
			return Order{}, err
		}
		return OfStaff(*st), nil
	}
	return Order{}, fmt.Errorf("unknown order kind: %q", o.Kind)
}

func (s *Service) Delete(ctx context.Context, kind Kind, id uuid.UUID) error {
	switch kind {
	case KindPatient:
		return s.patients.Delete(ctx, id)
	case KindStaff:
		return s.staff.Delete(ctx, id)
	}
	return fmt.Errorf("unknown order kind: %q", kind)
}

func (s *Service) Loading(kind Kind) bool {
	if kind == KindStaff {
		return s.staff.Loading()
	}
	return s.patients.Loading()
}

// KindSummary is one row of the dashboard summary.
type KindSummary struct {
	Kind    Kind `json:"kind"`
	Count   int  `json:"count"`
	Loading bool `json:"loading"`
}

// Summary refreshes both lists concurrently. A failing kind reports the
// count of its previous cached list; the first error is returned alongside.
func (s *Service) Summary(ctx context.Context) ([]KindSummary, error) {
	out := make([]KindSummary, len(Kinds))
	var g errgroup.Group
	for i, kind := range Kinds {
		i, kind := i, kind
		g.Go(func() error {
			_, err := s.List(ctx, kind)
			out[i] = KindSummary{Kind: kind, Count: s.cachedLen(kind), Loading: s.Loading(kind)}
			return err
		})
	}
	err := g.Wait()
	return out, err
}

func (s *Service) cachedLen(kind Kind) int {
	if kind == KindStaff {
		return len(s.staff.Cached())
	}
	return len(s.patients.Cached())
}

func wrapPatients(items []PatientOrder) []Order {
	if items == nil {
		return nil
	}
	out := make([]Order, len(items))
	for i, p := range items {
		out[i] = OfPatient(p)
	}
	return out
}

func wrapStaff(items []StaffOrder) []Order {
	if items == nil {
		return nil
	}
	out := make([]Order, len(items))
	for i, st := range items {
		out[i] = OfStaff(st)
	}
	return out
}
