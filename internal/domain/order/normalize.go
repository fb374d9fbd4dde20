package order

import (
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/ToshioDev/alimentacion-solicitudes-forms/pkg/calendar"
)

// alias pairs the persisted (snake_case) key of a field with the key the
// browser forms use (camelCase).
type alias struct {
	snake string
	camel string
}

var patientAliases = []alias{
	{"id", "id"},
	{"fecha", "fecha"},
	{"nombre_completo_paciente", "nombreCompletoPaciente"},
	{"afiliacion_cui", "afiliacionCUI"},
	{"no_cama", "noCama"},
	{"servicio", "servicio"},
	{"tipo_dieta", "tipoDieta"},
	{"desayuno", "desayuno"},
	{"almuerzo", "almuerzo"},
	{"cena", "cena"},
	{"refaccion_am", "refaccionAM"},
	{"refaccion_pm", "refaccionPM"},
	{"refaccion_nocturna", "refaccionNocturna"},
	{"justificacion", "justificacion"},
	{"nombre_solicitante", "nombreSolicitante"},
	{"nombre_paciente_firma", "nombrePacienteFirma"},
	{"local_id", "localId"},
	{"created_at", "fechaCreacion"},
}

var staffAliases = []alias{
	{"id", "id"},
	{"fecha", "fecha"},
	{"nombre_completo_personal", "nombreCompletoPersonal"},
	{"no_empleado", "noEmpleado"},
	{"ibm", "ibm"},
	{"servicio", "servicio"},
	{"cargo", "cargo"},
	{"tipo_dieta", "tipoDieta"},
	{"desayuno", "desayuno"},
	{"almuerzo", "almuerzo"},
	{"cena", "cena"},
	{"refaccion_nocturna", "refaccionNocturna"},
	{"justificacion", "justificacion"},
	{"nombre_solicitante", "nombreSolicitante"},
	{"nombre_colaborador", "nombreColaborador"},
	{"nombre_aprobador", "nombreAprobador"},
	{"local_id", "localId"},
	{"created_at", "fechaCreacion"},
}

func aliasesFor(kind Kind) []alias {
	if kind == KindStaff {
		return staffAliases
	}
	return patientAliases
}

// fieldReader resolves one field at a time: persisted key first, then the
// UI key, then the zero value.
type fieldReader struct {
	raw     map[string]interface{}
	aliases map[string]alias
}

func newFieldReader(kind Kind, raw map[string]interface{}) fieldReader {
	idx := make(map[string]alias)
	for _, a := range aliasesFor(kind) {
		idx[a.snake] = a
	}
	return fieldReader{raw: raw, aliases: idx}
}

func (r fieldReader) lookup(snake string) (interface{}, bool) {
	if v, ok := r.raw[snake]; ok && v != nil {
		return v, true
	}
	a, ok := r.aliases[snake]
	if !ok || a.camel == snake {
		return nil, false
	}
	v, ok := r.raw[a.camel]
	if !ok || v == nil {
		return nil, false
	}
	return v, true
}

func (r fieldReader) str(snake string) string {
	v, ok := r.lookup(snake)
	if !ok {
		return ""
	}
	return toString(v)
}

func (r fieldReader) flag(snake string) bool {
	v, ok := r.lookup(snake)
	if !ok {
		return false
	}
	return toBool(v)
}

func (r fieldReader) date(snake string) calendar.Date {
	v, ok := r.lookup(snake)
	if !ok {
		return calendar.Date{}
	}
	switch t := v.(type) {
	case calendar.Date:
		return t
	case time.Time:
		return calendar.FromTime(t)
	}
	d, err := calendar.Parse(toString(v))
	if err != nil {
		return calendar.Date{}
	}
	return d
}

func (r fieldReader) timestamp(snake string) *time.Time {
	v, ok := r.lookup(snake)
	if !ok {
		return nil
	}
	if t, ok := v.(time.Time); ok {
		return &t
	}
	s := toString(v)
	if s == "" {
		return nil
	}
	for _, layout := range []string{time.RFC3339Nano, time.RFC3339, "2006-01-02 15:04:05", calendar.Layout} {
		if t, err := time.Parse(layout, s); err == nil {
			return &t
		}
	}
	return nil
}

func (r fieldReader) id() uuid.UUID {
	id, err := uuid.Parse(r.str("id"))
	if err != nil {
		return uuid.Nil
	}
	return id
}

func (r fieldReader) integer(snake string) int {
	v, ok := r.lookup(snake)
	if !ok {
		return 0
	}
	switch n := v.(type) {
	case int:
		return n
	case int64:
		return int(n)
	case float64:
		return int(n)
	}
	n, _ := strconv.Atoi(toString(v))
	return n
}

// NormalizePatient builds a PatientOrder from a record in either naming
// convention. Unknown keys are ignored and missing fields take zero values.
func NormalizePatient(raw map[string]interface{}) PatientOrder {
	r := newFieldReader(KindPatient, raw)
	return PatientOrder{
		ID:                   r.id(),
		Date:                 r.date("fecha"),
		FullName:             r.str("nombre_completo_paciente"),
		Affiliation:          r.str("afiliacion_cui"),
		Bed:                  r.str("no_cama"),
		Service:              r.str("servicio"),
		DietType:             r.str("tipo_dieta"),
		Breakfast:            r.flag("desayuno"),
		Lunch:                r.flag("almuerzo"),
		Dinner:               r.flag("cena"),
		MorningSnack:         r.flag("refaccion_am"),
		AfternoonSnack:       r.flag("refaccion_pm"),
		NightSnack:           r.flag("refaccion_nocturna"),
		Justification:        r.str("justificacion"),
		RequesterName:        r.str("nombre_solicitante"),
		PatientSignatureName: r.str("nombre_paciente_firma"),
		LocalID:              r.integer("local_id"),
		CreatedAt:            r.timestamp("created_at"),
	}
}

// NormalizeStaff builds a StaffOrder from a record in either naming
// convention.
func NormalizeStaff(raw map[string]interface{}) StaffOrder {
	r := newFieldReader(KindStaff, raw)
	return StaffOrder{
		ID:               r.id(),
		Date:             r.date("fecha"),
		FullName:         r.str("nombre_completo_personal"),
		EmployeeNumber:   r.str("no_empleado"),
		IBM:              r.str("ibm"),
		Service:          r.str("servicio"),
		Position:         r.str("cargo"),
		DietType:         r.str("tipo_dieta"),
		Breakfast:        r.flag("desayuno"),
		Lunch:            r.flag("almuerzo"),
		Dinner:           r.flag("cena"),
		NightSnack:       r.flag("refaccion_nocturna"),
		Justification:    r.str("justificacion"),
		RequesterName:    r.str("nombre_solicitante"),
		CollaboratorName: r.str("nombre_colaborador"),
		ApproverName:     r.str("nombre_aprobador"),
		LocalID:          r.integer("local_id"),
		CreatedAt:        r.timestamp("created_at"),
	}
}

// Normalize dispatches to the variant's normalization function.
func Normalize(kind Kind, raw map[string]interface{}) Order {
	if kind == KindStaff {
		return OfStaff(NormalizeStaff(raw))
	}
	return OfPatient(NormalizePatient(raw))
}

// Canonicalize rewrites a partial field map to persisted keys, keeping only
// fields the variant knows. When a patch carries both spellings of a field
// the persisted one wins.
func Canonicalize(kind Kind, patch map[string]interface{}) map[string]interface{} {
	out := make(map[string]interface{}, len(patch))
	for _, a := range aliasesFor(kind) {
		if v, ok := patch[a.snake]; ok {
			out[a.snake] = v
			continue
		}
		if v, ok := patch[a.camel]; ok {
			out[a.snake] = v
		}
	}
	return out
}

// Apply overlays a field patch (either convention) onto an order.
func Apply(o Order, patch map[string]interface{}) Order {
	fields := o.Fields()
	for k, v := range Canonicalize(o.Kind, patch) {
		fields[k] = v
	}
	return Normalize(o.Kind, fields)
}

func toString(v interface{}) string {
	switch t := v.(type) {
	case string:
		return strings.TrimSpace(t)
	case float64:
		if t == math.Trunc(t) && math.Abs(t) < 1e15 {
			return strconv.FormatInt(int64(t), 10)
		}
		return strconv.FormatFloat(t, 'f', -1, 64)
	case int:
		return strconv.Itoa(t)
	case int64:
		return strconv.FormatInt(t, 10)
	case bool:
		return strconv.FormatBool(t)
	case fmt.Stringer:
		return t.String()
	case nil:
		return ""
	}
	return strings.TrimSpace(fmt.Sprint(v))
}

func toBool(v interface{}) bool {
	switch t := v.(type) {
	case bool:
		return t
	case float64:
		return t != 0
	case int:
		return t != 0
	case string:
		switch strings.ToLower(strings.TrimSpace(t)) {
		case "true", "1", "si", "sí", "x", "yes", "on":
			return true
		}
	}
	return false
}
