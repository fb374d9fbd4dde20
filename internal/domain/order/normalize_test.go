package order

import (
	"testing"
	"time"

	"github.com/ToshioDev/alimentacion-solicitudes-forms/pkg/calendar"
)

func TestNormalizeStaff_SnakeWinsOverCamel(t *testing.T) {
	s := NormalizeStaff(map[string]interface{}{
		"nombre_completo_personal": "A",
		"nombreCompletoPersonal":   "B",
	})
	if s.FullName != "A" {
		t.Errorf("expected snake value A, got %q", s.FullName)
	}
}

func TestNormalizeStaff_CamelFallback(t *testing.T) {
	s := NormalizeStaff(map[string]interface{}{
		"nombreCompletoPersonal": "B",
		"noEmpleado":             "1234",
		"nombreAprobador":        "Jefa de servicio",
	})
	if s.FullName != "B" {
		t.Errorf("expected camel value B, got %q", s.FullName)
	}
	if s.EmployeeNumber != "1234" {
		t.Errorf("expected employee number 1234, got %q", s.EmployeeNumber)
	}
	if s.ApproverName != "Jefa de servicio" {
		t.Errorf("unexpected approver %q", s.ApproverName)
	}
}

func TestNormalizeStaff_NullSnakeFallsBackToCamel(t *testing.T) {
	s := NormalizeStaff(map[string]interface{}{
		"nombre_completo_personal": nil,
		"nombreCompletoPersonal":   "B",
	})
	if s.FullName != "B" {
		t.Errorf("expected B, got %q", s.FullName)
	}
}

// A present snake_case key wins even when blank; only a missing or null one
// falls back to the camelCase spelling.
func TestNormalizeStaff_EmptySnakeStillWins(t *testing.T) {
	s := NormalizeStaff(map[string]interface{}{
		"nombre_completo_personal": "",
		"nombreCompletoPersonal":   "B",
		"servicio":                 "   ",
	})
	if s.FullName != "" {
		t.Errorf("expected blank snake value to win, got %q", s.FullName)
	}
	if s.Service != "" {
		t.Errorf("expected trimmed blank service, got %q", s.Service)
	}
}

func TestNormalizePatient_MissingFieldsAreZero(t *testing.T) {
	p := NormalizePatient(map[string]interface{}{"unknown": "x"})
	if p.FullName != "" || p.Breakfast || !p.Date.IsZero() || p.CreatedAt != nil {
		t.Errorf("expected zero values, got %+v", p)
	}
}

func TestNormalizePatient_Coercion(t *testing.T) {
	p := NormalizePatient(map[string]interface{}{
		"fecha":         "2025-03-01T18:45:00.000Z",
		"afiliacionCUI": 1234567.0,
		"desayuno":      "si",
		"almuerzo":      true,
		"cena":          float64(0),
		"refaccionAM":   "X",
		"refaccion_pm":  "no",
		"localId":       float64(7),
		"fechaCreacion": "2025-03-01T10:00:00Z",
	})
	if !p.Date.Equal(calendar.New(2025, time.March, 1)) {
		t.Errorf("unexpected date %s", p.Date)
	}
	if p.Affiliation != "1234567" {
		t.Errorf("expected numeric affiliation as integer text, got %q", p.Affiliation)
	}
	if !p.Breakfast || !p.Lunch || p.Dinner || !p.MorningSnack || p.AfternoonSnack {
		t.Errorf("unexpected meal flags %+v", p)
	}
	if p.LocalID != 7 {
		t.Errorf("expected local id 7, got %d", p.LocalID)
	}
	if p.CreatedAt == nil || p.CreatedAt.Hour() != 10 {
		t.Errorf("unexpected created_at %v", p.CreatedAt)
	}
}

func TestNormalize_RoundTripThroughFields(t *testing.T) {
	in := OfStaff(StaffOrder{
		Date:           calendar.New(2025, time.January, 15),
		FullName:       "Ana López",
		EmployeeNumber: "998",
		IBM:            "IBM-1",
		Dinner:         true,
		Justification:  "Turno doble",
	})
	out := Normalize(KindStaff, in.Fields())
	if *out.Staff != *in.Staff {
		t.Errorf("round trip mismatch:\n got %+v\nwant %+v", *out.Staff, *in.Staff)
	}
}

func TestCanonicalize(t *testing.T) {
	got := Canonicalize(KindPatient, map[string]interface{}{
		"nombreCompletoPaciente":   "camel",
		"nombre_completo_paciente": "snake",
		"noCama":                   "12",
		"desconocido":              "ignored",
	})
	if got["nombre_completo_paciente"] != "snake" {
		t.Errorf("expected snake to win, got %v", got["nombre_completo_paciente"])
	}
	if got["no_cama"] != "12" {
		t.Errorf("expected no_cama from camel key, got %v", got["no_cama"])
	}
	if _, ok := got["desconocido"]; ok {
		t.Error("unknown keys must be dropped")
	}
	if len(got) != 2 {
		t.Errorf("expected 2 keys, got %d", len(got))
	}
}

func TestApply_CamelPatchOverridesExistingSnakeValue(t *testing.T) {
	o := OfPatient(PatientOrder{FullName: "Viejo", Bed: "3"})
	o = Apply(o, map[string]interface{}{"nombreCompletoPaciente": "Nuevo"})
	if o.Patient.FullName != "Nuevo" {
		t.Errorf("expected patched name, got %q", o.Patient.FullName)
	}
	if o.Patient.Bed != "3" {
		t.Errorf("untouched field changed: %q", o.Patient.Bed)
	}
}

func TestParseKind(t *testing.T) {
	for in, want := range map[string]Kind{"patient": KindPatient, "Paciente": KindPatient, "staff": KindStaff, "personal": KindStaff} {
		got, err := ParseKind(in)
		if err != nil || got != want {
			t.Errorf("ParseKind(%q) = %q, %v", in, got, err)
		}
	}
	if _, err := ParseKind("visitante"); err == nil {
		t.Error("expected error for unknown kind")
	}
}

func TestStaffSearchCode_FallsBackToEmployeeNumber(t *testing.T) {
	if code := (StaffOrder{EmployeeNumber: " 55 "}).SearchCode(); code != "55" {
		t.Errorf("expected 55, got %q", code)
	}
	if code := (StaffOrder{IBM: "I-9", EmployeeNumber: "55"}).SearchCode(); code != "I-9" {
		t.Errorf("expected I-9, got %q", code)
	}
}

func TestOrder_RecordNeverNil(t *testing.T) {
	var o Order
	if o.Record() == nil {
		t.Fatal("expected empty record for zero order")
	}
	if (Order{Kind: KindStaff}).Record().OrderKind() != KindStaff {
		t.Error("expected staff record")
	}
}
