package order

import (
	"context"
	"strings"
	"sync"
	"sync/atomic"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/ToshioDev/alimentacion-solicitudes-forms/internal/platform/events"
	"github.com/ToshioDev/alimentacion-solicitudes-forms/internal/platform/metrics"
	"github.com/ToshioDev/alimentacion-solicitudes-forms/internal/platform/notification"
)

const (
	titleSuccess = "Éxito"
	titleError   = "Error"
)

type messages struct {
	listFailed   string
	created      string
	createFailed string
	deleted      string
	deleteFailed string
}

var kindMessages = map[Kind]messages{
	KindPatient: {
		listFailed:   "No se pudieron cargar las órdenes de pacientes",
		created:      "Orden del paciente guardada correctamente",
		createFailed: "No se pudo guardar la orden del paciente",
		deleted:      "Orden del paciente eliminada correctamente",
		deleteFailed: "No se pudo eliminar la orden del paciente",
	},
	KindStaff: {
		listFailed:   "No se pudieron cargar las órdenes de personal",
		created:      "Orden del personal guardada correctamente",
		createFailed: "No se pudo guardar la orden del personal",
		deleted:      "Orden del personal eliminada correctamente",
		deleteFailed: "No se pudo eliminar la orden del personal",
	},
}

// StoreDeps are the collaborators shared by both stores. Nil fields are
// replaced by no-op implementations.
type StoreDeps struct {
	Notifier  notification.Notifier
	Publisher events.Publisher
	Metrics   *metrics.Metrics
	Logger    zerolog.Logger
}

// Store wraps a Repository with the in-memory list the screens read, a
// loading flag, and user notifications. Calls are not queued: concurrent
// List calls race and the last one to finish wins.
type Store[T Record] struct {
	kind      Kind
	repo      Repository[T]
	notify    notification.Notifier
	publisher events.Publisher
	metrics   *metrics.Metrics
	logger    zerolog.Logger
	msgs      messages

	mu       sync.RWMutex
	items    []T
	inflight atomic.Int32
}

func NewStore[T Record](kind Kind, repo Repository[T], deps StoreDeps) *Store[T] {
	s := &Store[T]{
		kind:      kind,
		repo:      repo,
		notify:    deps.Notifier,
		publisher: deps.Publisher,
		metrics:   deps.Metrics,
		logger:    deps.Logger.With().Str("component", "order_store").Str("kind", string(kind)).Logger(),
		msgs:      kindMessages[kind],
	}
	if s.notify == nil {
		s.notify = discardNotifier{}
	}
	if s.publisher == nil {
		s.publisher = events.Noop{}
	}
	return s
}

func (s *Store[T]) Kind() Kind { return s.kind }

// Loading reports whether a remote call is in flight.
func (s *Store[T]) Loading() bool { return s.inflight.Load() > 0 }

func (s *Store[T]) begin() func() {
	s.inflight.Add(1)
	return func() { s.inflight.Add(-1) }
}

// List fetches every record, newest first, and replaces the cached list. On
// failure the cached list is left as it was.
func (s *Store[T]) List(ctx context.Context) ([]T, error) {
	defer s.begin()()

	items, err := s.repo.List(ctx)
	if err != nil {
		s.logger.Error().Err(err).Msg("list orders failed")
		s.notify.Error(titleError, s.msgs.listFailed)
		s.countError("list")
		return nil, err
	}

	s.mu.Lock()
	s.items = items
	s.mu.Unlock()
	if s.metrics != nil {
		s.metrics.CachedOrders.WithLabelValues(string(s.kind)).Set(float64(len(items)))
	}
	return copyOf(items), nil
}

// Get fetches one record from the remote store.
func (s *Store[T]) Get(ctx context.Context, id uuid.UUID) (T, error) {
	defer s.begin()()
	return s.repo.GetByID(ctx, id)
}

// Create stores rec without its id and timestamps. On failure it returns nil
// and leaves the cached list untouched.
func (s *Store[T]) Create(ctx context.Context, rec T) (*T, error) {
	done := s.begin()

	created, err := s.repo.Create(ctx, stripServerFields(rec))
	if err != nil {
		done()
		s.logger.Error().Err(err).Msg("create order failed")
		s.notify.Error(titleError, s.msgs.createFailed)
		s.countError("create")
		return nil, err
	}
	done()

	s.logger.Info().Str("order_id", created.RecordID().String()).Msg("order created")
	s.notify.Success(titleSuccess, s.msgs.created)
	if s.metrics != nil {
		s.metrics.OrdersCreated.WithLabelValues(string(s.kind)).Inc()
	}
	s.publish(ctx, events.OrderCreated, created)
	_, _ = s.List(ctx)
	return &created, nil
}

// Delete removes a record by id and refreshes the cached list.
func (s *Store[T]) Delete(ctx context.Context, id uuid.UUID) error {
	done := s.begin()
	err := s.repo.Delete(ctx, id)
	done()
	if err != nil {
		s.logger.Error().Err(err).Str("order_id", id.String()).Msg("delete order failed")
		s.notify.Error(titleError, s.msgs.deleteFailed)
		s.countError("delete")
		return err
	}

	s.logger.Info().Str("order_id", id.String()).Msg("order deleted")
	s.notify.Success(titleSuccess, s.msgs.deleted)
	if s.metrics != nil {
		s.metrics.OrdersDeleted.WithLabelValues(string(s.kind)).Inc()
	}
	s.publish(ctx, events.OrderDeleted, map[string]string{"id": id.String(), "kind": string(s.kind)})
	_, _ = s.List(ctx)
	return nil
}

// Cached returns a copy of the last successfully listed records.
func (s *Store[T]) Cached() []T {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return copyOf(s.items)
}

// Search filters the cached list on subject name, subject identifier,
// search code and service. The match is a case-insensitive substring; an
// empty term returns everything.
func (s *Store[T]) Search(term string) []T {
	term = strings.ToLower(strings.TrimSpace(term))
	items := s.Cached()
	if term == "" {
		return items
	}
	out := make([]T, 0, len(items))
	for _, it := range items {
		for _, field := range []string{it.SubjectName(), it.SubjectID(), it.SearchCode(), it.ServiceName()} {
			if strings.Contains(strings.ToLower(field), term) {
				out = append(out, it)
				break
			}
		}
	}
	return out
}

func (s *Store[T]) publish(ctx context.Context, t events.Type, payload any) {
	ev, err := events.New(t, string(s.kind), payload)
	if err == nil {
		err = s.publisher.Publish(ctx, ev)
	}
	if err != nil {
		s.logger.Warn().Err(err).Str("event_type", string(t)).Msg("event not published")
	}
}

func (s *Store[T]) countError(op string) {
	if s.metrics != nil {
		s.metrics.OperationErrors.WithLabelValues(string(s.kind), op).Inc()
	}
}

func copyOf[T any](items []T) []T {
	out := make([]T, len(items))
	copy(out, items)
	return out
}

// stripServerFields clears what the remote store assigns.
func stripServerFields[T Record](rec T) T {
	switch v := any(rec).(type) {
	case PatientOrder:
		v.ID, v.CreatedAt, v.UpdatedAt, v.LocalID = uuid.Nil, nil, nil, 0
		return any(v).(T)
	case StaffOrder:
		v.ID, v.CreatedAt, v.UpdatedAt, v.LocalID = uuid.Nil, nil, nil, 0
		return any(v).(T)
	}
	return rec
}

type discardNotifier struct{}

func (discardNotifier) Success(string, string) {}
func (discardNotifier) Error(string, string)   {}
