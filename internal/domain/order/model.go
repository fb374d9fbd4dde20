package order

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/ToshioDev/alimentacion-solicitudes-forms/pkg/calendar"
)

// Kind tags the two order variants.
type Kind string

const (
	KindPatient Kind = "patient"
	KindStaff   Kind = "staff"
)

// Kinds lists every variant in display order.
var Kinds = []Kind{KindPatient, KindStaff}

// ParseKind accepts the English tags and the Spanish route names used by the
// paper forms ("paciente", "personal").
func ParseKind(s string) (Kind, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "patient", "patients", "paciente", "pacientes":
		return KindPatient, nil
	case "staff", "personal":
		return KindStaff, nil
	}
	return "", fmt.Errorf("unknown order kind: %q", s)
}

// Table returns the backing table name for the kind.
func (k Kind) Table() string {
	if k == KindStaff {
		return "staff_food_orders"
	}
	return "patient_food_orders"
}

// MealSlot is one checkbox of the meal checklist.
type MealSlot struct {
	Key      string
	Label    string
	Selected bool
}

// Record is the behaviour shared by both variants.
type Record interface {
	OrderKind() Kind
	RecordID() uuid.UUID
	OrderDate() calendar.Date
	SubjectName() string
	// SubjectID is the printed identifier: affiliation/CUI or employee number.
	SubjectID() string
	// SearchCode is the code half of the natural key.
	SearchCode() string
	ServiceName() string
	JustificationText() string
	MealSlots() []MealSlot
}

// PatientOrder maps to the patient_food_orders table.
type PatientOrder struct {
	ID                   uuid.UUID     `db:"id" json:"id"`
	Date                 calendar.Date `db:"fecha" json:"fecha"`
	FullName             string        `db:"nombre_completo_paciente" json:"nombre_completo_paciente"`
	Affiliation          string        `db:"afiliacion_cui" json:"afiliacion_cui"`
	Bed                  string        `db:"no_cama" json:"no_cama"`
	Service              string        `db:"servicio" json:"servicio"`
	DietType             string        `db:"tipo_dieta" json:"tipo_dieta"`
	Breakfast            bool          `db:"desayuno" json:"desayuno"`
	Lunch                bool          `db:"almuerzo" json:"almuerzo"`
	Dinner               bool          `db:"cena" json:"cena"`
	MorningSnack         bool          `db:"refaccion_am" json:"refaccion_am"`
	AfternoonSnack       bool          `db:"refaccion_pm" json:"refaccion_pm"`
	NightSnack           bool          `db:"refaccion_nocturna" json:"refaccion_nocturna"`
	Justification        string        `db:"justificacion" json:"justificacion"`
	RequesterName        string        `db:"nombre_solicitante" json:"nombre_solicitante"`
	PatientSignatureName string        `db:"nombre_paciente_firma" json:"nombre_paciente_firma"`
	LocalID              int           `json:"local_id,omitempty"`
	CreatedAt            *time.Time    `db:"created_at" json:"created_at,omitempty"`
	UpdatedAt            *time.Time    `db:"updated_at" json:"updated_at,omitempty"`
}

func (p PatientOrder) OrderKind() Kind             { return KindPatient }
func (p PatientOrder) RecordID() uuid.UUID         { return p.ID }
func (p PatientOrder) OrderDate() calendar.Date    { return p.Date }
func (p PatientOrder) SubjectName() string         { return p.FullName }
func (p PatientOrder) SubjectID() string           { return p.Affiliation }
func (p PatientOrder) SearchCode() string          { return strings.TrimSpace(p.Affiliation) }
func (p PatientOrder) ServiceName() string         { return p.Service }
func (p PatientOrder) JustificationText() string   { return p.Justification }

func (p PatientOrder) MealSlots() []MealSlot {
	return []MealSlot{
		{Key: "desayuno", Label: "Desayuno", Selected: p.Breakfast},
		{Key: "almuerzo", Label: "Almuerzo", Selected: p.Lunch},
		{Key: "cena", Label: "Cena", Selected: p.Dinner},
		{Key: "refaccion_am", Label: "Refacción AM", Selected: p.MorningSnack},
		{Key: "refaccion_pm", Label: "Refacción PM", Selected: p.AfternoonSnack},
		{Key: "refaccion_nocturna", Label: "Refacción nocturna", Selected: p.NightSnack},
	}
}

// StaffOrder maps to the staff_food_orders table.
type StaffOrder struct {
	ID               uuid.UUID     `db:"id" json:"id"`
	Date             calendar.Date `db:"fecha" json:"fecha"`
	FullName         string        `db:"nombre_completo_personal" json:"nombre_completo_personal"`
	EmployeeNumber   string        `db:"no_empleado" json:"no_empleado"`
	IBM              string        `db:"ibm" json:"ibm"`
	Service          string        `db:"servicio" json:"servicio"`
	Position         string        `db:"cargo" json:"cargo"`
	DietType         string        `db:"tipo_dieta" json:"tipo_dieta"`
	Breakfast        bool          `db:"desayuno" json:"desayuno"`
	Lunch            bool          `db:"almuerzo" json:"almuerzo"`
	Dinner           bool          `db:"cena" json:"cena"`
	NightSnack       bool          `db:"refaccion_nocturna" json:"refaccion_nocturna"`
	Justification    string        `db:"justificacion" json:"justificacion"`
	RequesterName    string        `db:"nombre_solicitante" json:"nombre_solicitante"`
	CollaboratorName string        `db:"nombre_colaborador" json:"nombre_colaborador"`
	ApproverName     string        `db:"nombre_aprobador" json:"nombre_aprobador"`
	LocalID          int           `json:"local_id,omitempty"`
	CreatedAt        *time.Time    `db:"created_at" json:"created_at,omitempty"`
	UpdatedAt        *time.Time    `db:"updated_at" json:"updated_at,omitempty"`
}

func (s StaffOrder) OrderKind() Kind           { return KindStaff }
func (s StaffOrder) RecordID() uuid.UUID       { return s.ID }
func (s StaffOrder) OrderDate() calendar.Date  { return s.Date }
func (s StaffOrder) SubjectName() string       { return s.FullName }
func (s StaffOrder) SubjectID() string         { return s.EmployeeNumber }
func (s StaffOrder) ServiceName() string       { return s.Service }
func (s StaffOrder) JustificationText() string { return s.Justification }

// SearchCode is the IBM code typed into the personnel lookup; rows created
// before that field existed fall back to the employee number.
func (s StaffOrder) SearchCode() string {
	if code := strings.TrimSpace(s.IBM); code != "" {
		return code
	}
	return strings.TrimSpace(s.EmployeeNumber)
}

func (s StaffOrder) MealSlots() []MealSlot {
	return []MealSlot{
		{Key: "desayuno", Label: "Desayuno", Selected: s.Breakfast},
		{Key: "almuerzo", Label: "Almuerzo", Selected: s.Lunch},
		{Key: "cena", Label: "Cena", Selected: s.Dinner},
		{Key: "refaccion_nocturna", Label: "Refacción nocturna", Selected: s.NightSnack},
	}
}

// Order is a tagged union of the two variants. Exactly one of Patient or
// Staff is set, matching Kind.
type Order struct {
	Kind    Kind          `json:"kind"`
	Patient *PatientOrder `json:"patient,omitempty"`
	Staff   *StaffOrder   `json:"staff,omitempty"`
}

func OfPatient(p PatientOrder) Order { return Order{Kind: KindPatient, Patient: &p} }
func OfStaff(s StaffOrder) Order     { return Order{Kind: KindStaff, Staff: &s} }

// Empty returns a blank order of the given kind.
func Empty(kind Kind) Order {
	if kind == KindStaff {
		return OfStaff(StaffOrder{})
	}
	return OfPatient(PatientOrder{})
}

// Record returns the active variant. A malformed union yields an empty
// record of its kind so callers never see nil.
func (o Order) Record() Record {
	switch o.Kind {
	case KindStaff:
		if o.Staff != nil {
			return *o.Staff
		}
		return StaffOrder{}
	default:
		if o.Patient != nil {
			return *o.Patient
		}
		return PatientOrder{}
	}
}

// Clone returns a deep copy.
func (o Order) Clone() Order {
	switch o.Kind {
	case KindStaff:
		if o.Staff == nil {
			return Empty(KindStaff)
		}
		return OfStaff(*o.Staff)
	default:
		if o.Patient == nil {
			return Empty(KindPatient)
		}
		return OfPatient(*o.Patient)
	}
}

// Key is the natural key used to deduplicate local entries.
type Key struct {
	Kind Kind
	Code string
	Date calendar.Date
}

func (o Order) Key() Key {
	r := o.Record()
	return Key{Kind: o.Kind, Code: r.SearchCode(), Date: r.OrderDate()}
}

// LocalID is the local list id of the active variant, zero when unset.
func (o Order) LocalID() int {
	switch {
	case o.Kind == KindStaff && o.Staff != nil:
		return o.Staff.LocalID
	case o.Patient != nil:
		return o.Patient.LocalID
	}
	return 0
}

// SetLocalID stamps the local list id on the active variant.
func (o *Order) SetLocalID(id int) {
	switch {
	case o.Kind == KindStaff && o.Staff != nil:
		o.Staff.LocalID = id
	case o.Patient != nil:
		o.Patient.LocalID = id
	}
}

// Fields returns the order as a snake_case field map, the persisted naming
// convention.
func (o Order) Fields() map[string]interface{} {
	b, err := json.Marshal(o.Record())
	if err != nil {
		return map[string]interface{}{}
	}
	out := map[string]interface{}{}
	_ = json.Unmarshal(b, &out)
	return out
}
