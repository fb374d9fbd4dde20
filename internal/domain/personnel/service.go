package personnel

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/rs/zerolog"

	"github.com/ToshioDev/alimentacion-solicitudes-forms/internal/platform/db"
	"github.com/ToshioDev/alimentacion-solicitudes-forms/internal/platform/events"
	"github.com/ToshioDev/alimentacion-solicitudes-forms/internal/platform/notification"
	"github.com/ToshioDev/alimentacion-solicitudes-forms/pkg/sheet"
)

const (
	// MinSearchLen is the shortest term Search answers.
	MinSearchLen       = 3
	DefaultSearchLimit = 10
)

var (
	ErrInvalidEntry   = errors.New("El nombre y número de empleado son obligatorios.")
	ErrUnreadableFile = errors.New("unreadable personnel file")
)

// Spreadsheet headers of the personnel workbook.
var (
	colName       = []string{"Nombre", "Nombre Completo"}
	colEmployee   = []string{"No. De Empleado", "No Empleado", "Numero de Empleado"}
	colPosition   = []string{"Plaza Nominal", "Puesto"}
	colBudgetLine = []string{"Renglon Presupuestario", "Renglon"}
	colIBM        = []string{"IBM", "Codigo"}
	colService    = []string{"Servicio"}
)

type Service struct {
	repo      Repository
	tx        db.Beginner
	notify    notification.Notifier
	publisher events.Publisher
	logger    zerolog.Logger
}

// NewService wires the lookup. tx may be nil, in which case imports run
// without a transaction.
func NewService(repo Repository, tx db.Beginner, notify notification.Notifier, publisher events.Publisher, logger zerolog.Logger) *Service {
	if publisher == nil {
		publisher = events.Noop{}
	}
	return &Service{
		repo:      repo,
		tx:        tx,
		notify:    notify,
		publisher: publisher,
		logger:    logger.With().Str("component", "personnel").Logger(),
	}
}

// Lookup finds the entry whose ibm or employee number equals code.
func (s *Service) Lookup(ctx context.Context, code string) (*Entry, error) {
	code = strings.TrimSpace(code)
	if code == "" {
		return nil, ErrNotFound
	}
	return s.repo.GetByCode(ctx, code)
}

// Search returns prefix matches first, then substring matches. Terms
// shorter than MinSearchLen return nothing.
func (s *Service) Search(ctx context.Context, term string, limit int) ([]*Entry, error) {
	term = strings.TrimSpace(term)
	if len([]rune(term)) < MinSearchLen {
		return []*Entry{}, nil
	}
	if limit <= 0 {
		limit = DefaultSearchLimit
	}
	items, err := s.repo.Search(ctx, term, limit)
	if err != nil {
		return nil, err
	}
	if items == nil {
		items = []*Entry{}
	}
	return items, nil
}

func (s *Service) List(ctx context.Context, limit, offset int) ([]*Entry, int, error) {
	return s.repo.List(ctx, limit, offset)
}

func (s *Service) Create(ctx context.Context, e *Entry) error {
	e.trim()
	if e.FullName == "" || e.EmployeeNumber == "" {
		return ErrInvalidEntry
	}
	if err := s.repo.Create(ctx, e); err != nil {
		if !errors.Is(err, ErrDuplicate) {
			s.logger.Error().Err(err).Str("no_empleado", e.EmployeeNumber).Msg("create personnel failed")
		}
		s.toastError("No se pudo registrar al empleado")
		return err
	}
	s.toastSuccess("Empleado registrado correctamente")
	return nil
}

// ImportResult summarizes a workbook import. Skipped holds 1-based data row
// numbers that lacked a name or employee number.
type ImportResult struct {
	Imported int   `json:"imported"`
	Skipped  []int `json:"skipped"`
}

// Import upserts every row of the workbook in one transaction; either all
// valid rows are stored or none.
func (s *Service) Import(ctx context.Context, r io.Reader, filename string) (*ImportResult, error) {
	rows, err := sheet.ReadRows(r, filename)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnreadableFile, err)
	}
	entries, skipped := EntriesFromRows(rows)
	res := &ImportResult{Skipped: skipped}

	err = s.inTx(ctx, func(ctx context.Context) error {
		for _, e := range entries {
			if err := s.repo.Upsert(ctx, e); err != nil {
				return fmt.Errorf("upsert %s: %w", e.EmployeeNumber, err)
			}
		}
		return nil
	})
	if err != nil {
		s.logger.Error().Err(err).Str("file", filename).Msg("personnel import failed")
		s.toastError("No se pudo importar el archivo de personal")
		return nil, err
	}
	res.Imported = len(entries)

	s.logger.Info().Int("imported", res.Imported).Int("skipped", len(skipped)).Str("file", filename).Msg("personnel imported")
	s.toastSuccess(fmt.Sprintf("Se importaron %d empleados", res.Imported))
	if ev, err := events.New(events.PersonnelImported, "personnel", res); err == nil {
		if err := s.publisher.Publish(ctx, ev); err != nil {
			s.logger.Warn().Err(err).Msg("event not published")
		}
	}
	return res, nil
}

// EntriesFromRows maps workbook rows to entries. Rows without a name or an
// employee number are reported by number and left out.
func EntriesFromRows(rows []sheet.Row) ([]*Entry, []int) {
	entries := make([]*Entry, 0, len(rows))
	skipped := []int{}
	for i, row := range rows {
		e := &Entry{
			FullName:       row.Get(colName...),
			EmployeeNumber: row.Get(colEmployee...),
			Position:       row.Get(colPosition...),
			BudgetLine:     row.Get(colBudgetLine...),
			IBM:            row.Get(colIBM...),
			Service:        row.Get(colService...),
		}
		e.trim()
		if e.FullName == "" || e.EmployeeNumber == "" {
			skipped = append(skipped, i+1)
			continue
		}
		entries = append(entries, e)
	}
	return entries, skipped
}

func (s *Service) inTx(ctx context.Context, fn func(ctx context.Context) error) error {
	if s.tx == nil {
		return fn(ctx)
	}
	return db.RunInTx(ctx, s.tx, fn)
}

func (s *Service) toastSuccess(msg string) {
	if s.notify != nil {
		s.notify.Success("Éxito", msg)
	}
}

func (s *Service) toastError(msg string) {
	if s.notify != nil {
		s.notify.Error("Error", msg)
	}
}
