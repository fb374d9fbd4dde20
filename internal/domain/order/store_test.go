package order

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/rs/zerolog"

	"github.com/ToshioDev/alimentacion-solicitudes-forms/internal/platform/events"
	"github.com/ToshioDev/alimentacion-solicitudes-forms/internal/platform/metrics"
	"github.com/ToshioDev/alimentacion-solicitudes-forms/internal/platform/notification"
	"github.com/ToshioDev/alimentacion-solicitudes-forms/pkg/calendar"
)

// -- Mock repository --

type mockRepo[T Record] struct {
	mu        sync.Mutex
	items     []T
	calls     int
	listErr   error
	createErr error
	deleteErr error
	assign    func(T) T
	remove    func([]T, uuid.UUID) ([]T, bool)
	onList    func()
}

func (m *mockRepo[T]) List(ctx context.Context) ([]T, error) {
	m.mu.Lock()
	m.calls++
	hook := m.onList
	m.mu.Unlock()
	if hook != nil {
		hook()
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.listErr != nil {
		return nil, m.listErr
	}
	return copyOf(m.items), nil
}

func (m *mockRepo[T]) GetByID(ctx context.Context, id uuid.UUID) (T, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls++
	for _, it := range m.items {
		if it.RecordID() == id {
			return it, nil
		}
	}
	var zero T
	return zero, ErrNotFound
}

func (m *mockRepo[T]) Create(ctx context.Context, rec T) (T, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls++
	if m.createErr != nil {
		var zero T
		return zero, m.createErr
	}
	rec = m.assign(rec)
	m.items = append([]T{rec}, m.items...)
	return rec, nil
}

func (m *mockRepo[T]) Delete(ctx context.Context, id uuid.UUID) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls++
	if m.deleteErr != nil {
		return m.deleteErr
	}
	items, ok := m.remove(m.items, id)
	if !ok {
		return ErrNotFound
	}
	m.items = items
	return nil
}

func (m *mockRepo[T]) callCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.calls
}

func newMockPatientRepo() *mockRepo[PatientOrder] {
	return &mockRepo[PatientOrder]{
		assign: func(p PatientOrder) PatientOrder {
			now := time.Now()
			p.ID, p.CreatedAt, p.UpdatedAt = uuid.New(), &now, &now
			return p
		},
		remove: func(items []PatientOrder, id uuid.UUID) ([]PatientOrder, bool) {
			for i, it := range items {
				if it.ID == id {
					return append(items[:i:i], items[i+1:]...), true
				}
			}
			return items, false
		},
	}
}

func newMockStaffRepo() *mockRepo[StaffOrder] {
	return &mockRepo[StaffOrder]{
		assign: func(s StaffOrder) StaffOrder {
			now := time.Now()
			s.ID, s.CreatedAt, s.UpdatedAt = uuid.New(), &now, &now
			return s
		},
		remove: func(items []StaffOrder, id uuid.UUID) ([]StaffOrder, bool) {
			for i, it := range items {
				if it.ID == id {
					return append(items[:i:i], items[i+1:]...), true
				}
			}
			return items, false
		},
	}
}

type testDeps struct {
	feed     *notification.Feed
	recorder *events.Recorder
	metrics  *metrics.Metrics
}

func newTestDeps() (StoreDeps, testDeps) {
	td := testDeps{
		feed:     notification.NewFeed(20, zerolog.Nop()),
		recorder: &events.Recorder{},
		metrics:  metrics.New(prometheus.NewRegistry()),
	}
	return StoreDeps{Notifier: td.feed, Publisher: td.recorder, Metrics: td.metrics, Logger: zerolog.Nop()}, td
}

func lastToast(t *testing.T, f *notification.Feed) notification.Toast {
	t.Helper()
	items := f.List(time.Time{})
	if len(items) == 0 {
		t.Fatal("expected a toast")
	}
	return items[len(items)-1]
}

// -- Tests --

func TestStore_ListReplacesCache(t *testing.T) {
	repo := newMockPatientRepo()
	repo.items = []PatientOrder{{ID: uuid.New(), FullName: "Uno"}, {ID: uuid.New(), FullName: "Dos"}}
	deps, _ := newTestDeps()
	s := NewStore[PatientOrder](KindPatient, repo, deps)

	items, err := s.List(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(items) != 2 || len(s.Cached()) != 2 {
		t.Fatalf("expected 2 items, got %d / %d", len(items), len(s.Cached()))
	}
	if s.Loading() {
		t.Error("loading flag must be cleared after List")
	}
}

func TestStore_ListFailureKeepsCache(t *testing.T) {
	repo := newMockStaffRepo()
	repo.items = []StaffOrder{{ID: uuid.New(), FullName: "Ana"}}
	deps, td := newTestDeps()
	s := NewStore[StaffOrder](KindStaff, repo, deps)
	if _, err := s.List(context.Background()); err != nil {
		t.Fatalf("first list: %v", err)
	}

	repo.listErr = errors.New("connection reset")
	if _, err := s.List(context.Background()); err == nil {
		t.Fatal("expected error")
	}
	if got := s.Cached(); len(got) != 1 || got[0].FullName != "Ana" {
		t.Errorf("cache must be unchanged on failure, got %+v", got)
	}
	toast := lastToast(t, td.feed)
	if toast.Variant != notification.VariantDestructive || toast.Description != "No se pudieron cargar las órdenes de personal" {
		t.Errorf("unexpected toast %+v", toast)
	}
	if v := testutil.ToFloat64(td.metrics.OperationErrors.WithLabelValues("staff", "list")); v != 1 {
		t.Errorf("expected 1 list error, got %v", v)
	}
}

func TestStore_LoadingDuringList(t *testing.T) {
	repo := newMockPatientRepo()
	deps, _ := newTestDeps()
	s := NewStore[PatientOrder](KindPatient, repo, deps)

	var during bool
	repo.onList = func() { during = s.Loading() }
	if _, err := s.List(context.Background()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !during {
		t.Error("expected loading flag while the remote call runs")
	}
	if s.Loading() {
		t.Error("expected loading flag cleared")
	}
}

func TestStore_CreateStripsServerFieldsAndRefreshes(t *testing.T) {
	repo := newMockPatientRepo()
	deps, td := newTestDeps()
	s := NewStore[PatientOrder](KindPatient, repo, deps)

	created := time.Now().Add(-time.Hour)
	stale := uuid.New()
	in := PatientOrder{
		ID:        stale,
		Date:      calendar.New(2025, time.March, 1),
		FullName:  "Juan",
		LocalID:   3,
		CreatedAt: &created,
	}
	var seen PatientOrder
	repo.assign = func(p PatientOrder) PatientOrder {
		seen = p
		p.ID = uuid.New()
		return p
	}

	out, err := s.Create(context.Background(), in)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if seen.ID != uuid.Nil || seen.CreatedAt != nil || seen.LocalID != 0 {
		t.Errorf("server fields must be cleared before insert, got %+v", seen)
	}
	if out == nil || out.ID == uuid.Nil || out.ID == stale {
		t.Fatalf("expected a server-assigned id, got %+v", out)
	}
	if len(s.Cached()) != 1 {
		t.Errorf("expected refreshed cache with 1 item, got %d", len(s.Cached()))
	}
	toast := lastToast(t, td.feed)
	if toast.Description != "Orden del paciente guardada correctamente" {
		t.Errorf("unexpected toast %q", toast.Description)
	}
	evs := td.recorder.Events()
	if len(evs) != 1 || evs[0].Type != events.OrderCreated {
		t.Errorf("expected one order.created event, got %+v", evs)
	}
	if v := testutil.ToFloat64(td.metrics.OrdersCreated.WithLabelValues("patient")); v != 1 {
		t.Errorf("expected created counter 1, got %v", v)
	}
}

func TestStore_CreateFailure(t *testing.T) {
	repo := newMockStaffRepo()
	repo.items = []StaffOrder{{ID: uuid.New(), FullName: "Previo"}}
	deps, td := newTestDeps()
	s := NewStore[StaffOrder](KindStaff, repo, deps)
	_, _ = s.List(context.Background())

	repo.createErr = errors.New("violates check constraint")
	out, err := s.Create(context.Background(), StaffOrder{FullName: "Nuevo"})
	if err == nil || out != nil {
		t.Fatalf("expected nil result and error, got %v, %v", out, err)
	}
	if len(s.Cached()) != 1 {
		t.Error("cache must be untouched on create failure")
	}
	if lastToast(t, td.feed).Description != "No se pudo guardar la orden del personal" {
		t.Error("expected create failure toast")
	}
	if len(td.recorder.Events()) != 0 {
		t.Error("no event on failure")
	}
}

func TestStore_EventFailureDoesNotFailCreate(t *testing.T) {
	repo := newMockPatientRepo()
	deps, td := newTestDeps()
	td.recorder.Err = errors.New("broker down")
	s := NewStore[PatientOrder](KindPatient, repo, deps)

	if _, err := s.Create(context.Background(), PatientOrder{FullName: "Juan"}); err != nil {
		t.Fatalf("publish errors must not fail create: %v", err)
	}
}

func TestStore_Delete(t *testing.T) {
	id := uuid.New()
	repo := newMockStaffRepo()
	repo.items = []StaffOrder{{ID: id, FullName: "Ana"}, {ID: uuid.New(), FullName: "Luis"}}
	deps, td := newTestDeps()
	s := NewStore[StaffOrder](KindStaff, repo, deps)

	if err := s.Delete(context.Background(), id); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got := s.Cached(); len(got) != 1 || got[0].FullName != "Luis" {
		t.Errorf("unexpected cache after delete: %+v", got)
	}
	if lastToast(t, td.feed).Description != "Orden del personal eliminada correctamente" {
		t.Error("expected delete toast")
	}

	if err := s.Delete(context.Background(), uuid.New()); !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
	if lastToast(t, td.feed).Variant != notification.VariantDestructive {
		t.Error("expected failure toast")
	}
}

func TestStore_Search(t *testing.T) {
	repo := newMockPatientRepo()
	repo.items = []PatientOrder{
		{ID: uuid.New(), FullName: "José Martínez", Affiliation: "2001", Service: "Cirugía"},
		{ID: uuid.New(), FullName: "Lucía Gómez", Affiliation: "3002", Service: "Pediatría"},
	}
	deps, _ := newTestDeps()
	s := NewStore[PatientOrder](KindPatient, repo, deps)
	_, _ = s.List(context.Background())

	if got := s.Search("lucía"); len(got) != 1 || got[0].Affiliation != "3002" {
		t.Errorf("name search failed: %+v", got)
	}
	if got := s.Search("200"); len(got) != 1 {
		t.Errorf("affiliation search failed: %+v", got)
	}
	if got := s.Search("CIRUG"); len(got) != 1 {
		t.Errorf("service search failed: %+v", got)
	}
	if got := s.Search(""); len(got) != 2 {
		t.Errorf("empty term returns everything, got %d", len(got))
	}
}

func TestService_Summary(t *testing.T) {
	patients := newMockPatientRepo()
	patients.items = []PatientOrder{{ID: uuid.New()}, {ID: uuid.New()}}
	staff := newMockStaffRepo()
	staff.listErr = errors.New("timeout")
	deps, _ := newTestDeps()
	svc := NewService(NewStore[PatientOrder](KindPatient, patients, deps), NewStore[StaffOrder](KindStaff, staff, deps))

	summary, err := svc.Summary(context.Background())
	if err == nil {
		t.Error("expected the staff error to surface")
	}
	if len(summary) != 2 || summary[0].Kind != KindPatient || summary[0].Count != 2 {
		t.Errorf("unexpected summary %+v", summary)
	}
	if summary[1].Count != 0 {
		t.Errorf("failed kind keeps its previous (empty) cache, got %d", summary[1].Count)
	}
}

func TestService_CreateDispatchesByKind(t *testing.T) {
	patients := newMockPatientRepo()
	staff := newMockStaffRepo()
	deps, _ := newTestDeps()
	svc := NewService(NewStore[PatientOrder](KindPatient, patients, deps), NewStore[StaffOrder](KindStaff, staff, deps))

	out, err := svc.Create(context.Background(), OfStaff(StaffOrder{FullName: "Ana"}))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if out.Kind != KindStaff || out.Staff.ID == uuid.Nil {
		t.Errorf("unexpected result %+v", out)
	}
	if patients.callCount() != 0 {
		t.Error("patient repository must not be touched")
	}

	got, err := svc.Get(context.Background(), KindStaff, out.Staff.ID)
	if err != nil || got.Staff.FullName != "Ana" {
		t.Errorf("get after create: %+v, %v", got, err)
	}
	if _, err := svc.List(context.Background(), Kind("visitor")); err == nil {
		t.Error("expected error for unknown kind")
	}
}
