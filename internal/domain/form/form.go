// Package form holds the editable state of the patient and staff order forms
// and moves it between the local cache, the remote store and the document
// renderer.
package form

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sync"

	"github.com/rs/zerolog"

	"github.com/ToshioDev/alimentacion-solicitudes-forms/internal/domain/order"
	"github.com/ToshioDev/alimentacion-solicitudes-forms/internal/domain/personnel"
	"github.com/ToshioDev/alimentacion-solicitudes-forms/internal/platform/document"
	"github.com/ToshioDev/alimentacion-solicitudes-forms/internal/platform/notification"
)

type State string

const (
	StateEmpty      State = "empty"
	StateEditing    State = "editing"
	StateValidating State = "validating"
	StateSubmitting State = "submitting"
)

// Outcome is how the last submit ended.
type Outcome string

const (
	OutcomeNone      Outcome = ""
	OutcomeSucceeded Outcome = "succeeded"
	OutcomeFailed    Outcome = "failed"
	OutcomeInvalid   Outcome = "invalid"
)

var (
	ErrKindMismatch = errors.New("order kind does not match the form")
	ErrNoSubject    = errors.New("document requires a subject name")
)

// Creator stores a new order remotely.
type Creator interface {
	Create(ctx context.Context, o order.Order) (order.Order, error)
}

// LocalCache is the draft, pending and submitted state of every form type.
type LocalCache interface {
	SaveDraft(ctx context.Context, o order.Order) error
	LoadDraft(ctx context.Context, kind order.Kind) (order.Order, bool, error)
	ClearDraft(ctx context.Context, kind order.Kind) error
	SavePending(ctx context.Context, o order.Order) (bool, error)
	RemovePending(ctx context.Context, o order.Order) (int, error)
	AppendSubmitted(ctx context.Context, o order.Order) (order.Order, error)
	Pending(ctx context.Context, kind order.Kind) ([]order.Order, error)
	Submitted(ctx context.Context, kind order.Kind) ([]order.Order, error)
}

type Renderer interface {
	Render(o order.Order) document.Document
}

// Directory resolves a staff search code. Optional.
type Directory interface {
	Lookup(ctx context.Context, code string) (*personnel.Entry, error)
}

// Deps are the collaborators shared by every form.
type Deps struct {
	Orders    Creator
	Cache     LocalCache
	Renderer  Renderer
	Directory Directory
	Notifier  notification.Notifier
	Importer  *order.Importer
	Logger    zerolog.Logger
}

var noSubjectMessages = map[order.Kind]string{
	order.KindPatient: "Complete al menos el nombre del paciente para generar el PDF",
	order.KindStaff:   "Complete al menos el nombre del personal para generar el PDF",
}

// Form is one order form. Operations run one at a time; View may be called
// at any point, including while a submit is waiting on the remote store.
type Form struct {
	kind      order.Kind
	orders    Creator
	cache     LocalCache
	renderer  Renderer
	directory Directory
	notify    notification.Notifier
	importer  *order.Importer
	logger    zerolog.Logger

	opMu sync.Mutex

	mu      sync.RWMutex
	current order.Order
	state   State
	outcome Outcome
	message string
}

func New(kind order.Kind, deps Deps) *Form {
	f := &Form{
		kind:      kind,
		orders:    deps.Orders,
		cache:     deps.Cache,
		renderer:  deps.Renderer,
		directory: deps.Directory,
		notify:    deps.Notifier,
		importer:  deps.Importer,
		logger:    deps.Logger.With().Str("component", "form").Str("kind", string(kind)).Logger(),
		current:   order.Empty(kind),
		state:     StateEmpty,
	}
	if f.importer == nil {
		f.importer = order.NewImporter(nil)
	}
	return f
}

func (f *Form) Kind() order.Kind { return f.kind }

// View is a snapshot of the form.
type View struct {
	Kind        order.Kind             `json:"kind"`
	State       State                  `json:"state"`
	LastOutcome Outcome                `json:"last_outcome,omitempty"`
	Message     string                 `json:"message,omitempty"`
	Fields      map[string]interface{} `json:"fields"`
}

func (f *Form) View() View {
	f.mu.RLock()
	defer f.mu.RUnlock()
	return View{
		Kind:        f.kind,
		State:       f.state,
		LastOutcome: f.outcome,
		Message:     f.message,
		Fields:      f.current.Fields(),
	}
}

func (f *Form) State() State {
	f.mu.RLock()
	defer f.mu.RUnlock()
	return f.state
}

// Current returns a copy of the fields being edited.
func (f *Form) Current() order.Order {
	f.mu.RLock()
	defer f.mu.RUnlock()
	return f.current.Clone()
}

func (f *Form) set(fn func()) {
	f.mu.Lock()
	fn()
	f.mu.Unlock()
}

// Open restores the stored draft, if there is one.
func (f *Form) Open(ctx context.Context) error {
	f.opMu.Lock()
	defer f.opMu.Unlock()

	draft, ok, err := f.cache.LoadDraft(ctx, f.kind)
	if err != nil {
		return fmt.Errorf("load %s draft: %w", f.kind, err)
	}
	if !ok {
		return nil
	}
	f.set(func() {
		f.current = draft
		f.state = StateEditing
	})
	f.logger.Debug().Msg("draft restored")
	return nil
}

// Mutate applies a field patch in either naming convention and autosaves
// the draft. On a staff form a new search code fills the subject block from
// the personnel directory when it resolves.
func (f *Form) Mutate(ctx context.Context, patch map[string]interface{}) (View, error) {
	f.opMu.Lock()
	defer f.opMu.Unlock()

	before := f.Current()
	next := order.Apply(before, patch)
	next = f.autofill(ctx, before, next)
	return f.edit(ctx, next)
}

func (f *Form) autofill(ctx context.Context, before, next order.Order) order.Order {
	if f.kind != order.KindStaff || f.directory == nil {
		return next
	}
	code := next.Record().SearchCode()
	if code == "" || code == before.Record().SearchCode() {
		return next
	}
	entry, err := f.directory.Lookup(ctx, code)
	if err != nil {
		if !errors.Is(err, personnel.ErrNotFound) {
			f.logger.Warn().Err(err).Str("code", code).Msg("personnel lookup failed")
		}
		return next
	}
	return order.Apply(next, entry.StaffFields())
}

// Load replaces the form with o, a stored, pending, submitted or imported
// record. Server fields and local ids are dropped so a submit creates a new
// order.
func (f *Form) Load(ctx context.Context, o order.Order) (View, error) {
	if o.Kind != f.kind {
		return f.View(), ErrKindMismatch
	}
	f.opMu.Lock()
	defer f.opMu.Unlock()

	fields := o.Fields()
	for _, k := range []string{"id", "created_at", "updated_at", "local_id"} {
		delete(fields, k)
	}
	return f.edit(ctx, order.Normalize(f.kind, fields))
}

func (f *Form) edit(ctx context.Context, next order.Order) (View, error) {
	f.set(func() {
		f.current = next
		f.state = StateEditing
		f.message = ""
	})
	if err := f.cache.SaveDraft(ctx, next); err != nil {
		f.logger.Error().Err(err).Msg("autosave draft failed")
		return f.View(), fmt.Errorf("save %s draft: %w", f.kind, err)
	}
	return f.View(), nil
}

// Submit runs the validation gate and, when it passes, creates the order
// remotely. A rule violation or a remote failure returns the form to
// editing with its fields intact. On success the draft is cleared, the
// matching pending entries are removed, the created order is appended to
// the history and the form is emptied.
func (f *Form) Submit(ctx context.Context) (order.Order, error) {
	f.opMu.Lock()
	defer f.opMu.Unlock()

	var current order.Order
	f.set(func() {
		current = f.current.Clone()
		f.state = StateValidating
	})

	if err := order.Validate(current); err != nil {
		f.set(func() {
			f.state = StateEditing
			f.outcome = OutcomeInvalid
			f.message = err.Error()
		})
		f.toastError(err.Error())
		return order.Order{}, err
	}

	f.set(func() { f.state = StateSubmitting })
	created, err := f.orders.Create(ctx, current)
	if err != nil {
		f.set(func() {
			f.state = StateEditing
			f.outcome = OutcomeFailed
			f.message = err.Error()
		})
		return order.Order{}, err
	}

	if err := f.cache.ClearDraft(ctx, f.kind); err != nil {
		f.logger.Warn().Err(err).Msg("clear draft after submit failed")
	}
	if _, err := f.cache.RemovePending(ctx, current); err != nil {
		f.logger.Warn().Err(err).Msg("remove pending after submit failed")
	}
	if _, err := f.cache.AppendSubmitted(ctx, created); err != nil {
		f.logger.Warn().Err(err).Msg("append submitted history failed")
	}

	f.set(func() {
		f.current = order.Empty(f.kind)
		f.state = StateEmpty
		f.outcome = OutcomeSucceeded
		f.message = ""
	})
	return created, nil
}

// RenderDocument renders the live form and opens it on surface. The form
// must at least carry a subject name. When it has a search code a pending
// snapshot is staged first; an existing entry with the same code and date is
// left untouched.
func (f *Form) RenderDocument(ctx context.Context, surface document.Surface) (document.Document, error) {
	f.opMu.Lock()
	defer f.opMu.Unlock()

	current := f.Current()
	rec := current.Record()
	if rec.SubjectName() == "" {
		f.toastError(noSubjectMessages[f.kind])
		return document.Document{}, fmt.Errorf("%w: %s", ErrNoSubject, noSubjectMessages[f.kind])
	}

	if rec.SearchCode() != "" {
		if _, err := f.cache.SavePending(ctx, current); err != nil {
			f.logger.Warn().Err(err).Msg("save pending failed")
		}
	}

	doc := f.renderer.Render(current)
	if surface != nil {
		if err := surface.Open(ctx, doc); err != nil {
			return doc, err
		}
	}
	return doc, nil
}

// Reset empties the form and drops the draft.
func (f *Form) Reset(ctx context.Context) error {
	f.opMu.Lock()
	defer f.opMu.Unlock()

	f.set(func() {
		f.current = order.Empty(f.kind)
		f.state = StateEmpty
		f.outcome = OutcomeNone
		f.message = ""
	})
	return f.cache.ClearDraft(ctx, f.kind)
}

// ImportResult lists every imported row and how many were staged as
// pending.
type ImportResult struct {
	Orders []order.Order `json:"orders"`
	Staged int           `json:"staged"`
}

// Import maps a spreadsheet onto orders of the form's kind and stages the
// rows that carry a search code into the pending list. Rows without one are
// returned but not staged.
func (f *Form) Import(ctx context.Context, r io.Reader, filename string) (*ImportResult, error) {
	f.opMu.Lock()
	defer f.opMu.Unlock()

	pending, err := f.cache.Pending(ctx, f.kind)
	if err != nil {
		return nil, err
	}
	orders, err := f.importer.ImportFile(f.kind, r, filename, len(pending))
	if err != nil {
		return nil, err
	}
	res := &ImportResult{Orders: orders}
	for _, o := range orders {
		if o.Record().SearchCode() == "" {
			continue
		}
		inserted, err := f.cache.SavePending(ctx, o)
		if err != nil {
			return res, err
		}
		if inserted {
			res.Staged++
		}
	}
	f.logger.Info().Int("rows", len(orders)).Int("staged", res.Staged).Str("file", filename).Msg("spreadsheet imported")
	if f.notify != nil {
		f.notify.Success("Éxito", fmt.Sprintf("Se importaron %d registros", len(orders)))
	}
	return res, nil
}

func (f *Form) Pending(ctx context.Context) ([]order.Order, error) {
	return f.cache.Pending(ctx, f.kind)
}

func (f *Form) Submitted(ctx context.Context) ([]order.Order, error) {
	return f.cache.Submitted(ctx, f.kind)
}

func (f *Form) toastError(msg string) {
	if f.notify != nil {
		f.notify.Error("Error", msg)
	}
}

// Manager holds one form per order kind.
type Manager struct {
	forms map[order.Kind]*Form
}

func NewManager(deps Deps) *Manager {
	m := &Manager{forms: make(map[order.Kind]*Form, len(order.Kinds))}
	for _, kind := range order.Kinds {
		m.forms[kind] = New(kind, deps)
	}
	return m
}

// Open restores the drafts of every form.
func (m *Manager) Open(ctx context.Context) error {
	for _, kind := range order.Kinds {
		if err := m.forms[kind].Open(ctx); err != nil {
			return err
		}
	}
	return nil
}

func (m *Manager) Form(kind order.Kind) *Form {
	return m.forms[kind]
}
