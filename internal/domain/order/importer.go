package order

import (
	"io"
	"strings"
	"time"

	"github.com/ToshioDev/alimentacion-solicitudes-forms/pkg/sheet"
)

// UnnamedSubject replaces a blank name on imported rows.
const UnnamedSubject = "Sin nombre"

// Extra spreadsheet headers, folded, beyond the snake and camel keys of the
// alias tables.
var headerExtras = map[Kind]map[string]string{
	KindPatient: {
		"nombre":         "nombre_completo_paciente",
		"paciente":       "nombre_completo_paciente",
		"nombrepaciente": "nombre_completo_paciente",
		"afiliacion":     "afiliacion_cui",
		"cui":            "afiliacion_cui",
		"cama":           "no_cama",
		"dieta":          "tipo_dieta",
		"tipodedieta":    "tipo_dieta",
		"solicitante":    "nombre_solicitante",
	},
	KindStaff: {
		"nombre":           "nombre_completo_personal",
		"nombrecompleto":   "nombre_completo_personal",
		"nodeempleado":     "no_empleado",
		"numerodeempleado": "no_empleado",
		"empleado":         "no_empleado",
		"plazanominal":     "cargo",
		"puesto":           "cargo",
		"codigo":           "ibm",
		"dieta":            "tipo_dieta",
		"tipodedieta":      "tipo_dieta",
		"solicitante":      "nombre_solicitante",
		"colaborador":      "nombre_colaborador",
		"aprobador":        "nombre_aprobador",
	},
}

// headerTarget is the field a folded header feeds. Lower rank wins when two
// headers of one row feed the same field: persisted key, then UI key, then
// free-form header.
type headerTarget struct {
	key  string
	rank int
}

func headerIndex(kind Kind) map[string]headerTarget {
	idx := make(map[string]headerTarget)
	for k, v := range headerExtras[kind] {
		idx[k] = headerTarget{key: v, rank: 2}
	}
	for _, a := range aliasesFor(kind) {
		idx[sheet.Fold(a.camel)] = headerTarget{key: a.snake, rank: 1}
	}
	for _, a := range aliasesFor(kind) {
		idx[sheet.Fold(a.snake)] = headerTarget{key: a.snake, rank: 0}
	}
	return idx
}

// Importer maps spreadsheet rows onto orders.
type Importer struct {
	now func() time.Time
}

// NewImporter returns an Importer; now stamps rows without a creation date
// and defaults to time.Now.
func NewImporter(now func() time.Time) *Importer {
	if now == nil {
		now = time.Now
	}
	return &Importer{now: now}
}

// Import converts every row into an order of the given kind. No row is
// dropped: a blank name becomes UnnamedSubject, a missing creation date
// becomes now, and local ids continue from existing (the current length of
// the local list).
func (im *Importer) Import(kind Kind, rows []sheet.Row, existing int) []Order {
	idx := headerIndex(kind)
	now := im.now().UTC()
	out := make([]Order, 0, len(rows))
	for i, row := range rows {
		fields := map[string]interface{}{}
		ranks := map[string]int{}
		for header, value := range row {
			target, ok := idx[sheet.Fold(header)]
			if !ok || value == "" {
				continue
			}
			rank := target.rank * 2
			if strings.TrimSpace(header) != target.key {
				rank++
			}
			if r, seen := ranks[target.key]; seen && r <= rank {
				continue
			}
			ranks[target.key] = rank
			if target.key == "fecha" {
				fields[target.key] = sheet.ParseDate(value)
				continue
			}
			fields[target.key] = value
		}

		o := Normalize(kind, fields)
		switch o.Kind {
		case KindStaff:
			if strings.TrimSpace(o.Staff.FullName) == "" {
				o.Staff.FullName = UnnamedSubject
			}
			if o.Staff.CreatedAt == nil {
				o.Staff.CreatedAt = &now
			}
		default:
			if strings.TrimSpace(o.Patient.FullName) == "" {
				o.Patient.FullName = UnnamedSubject
			}
			if o.Patient.CreatedAt == nil {
				o.Patient.CreatedAt = &now
			}
		}
		o.SetLocalID(existing + i + 1)
		out = append(out, o)
	}
	return out
}

// ImportFile reads and imports a spreadsheet in one step.
func (im *Importer) ImportFile(kind Kind, r io.Reader, filename string, existing int) ([]Order, error) {
	rows, err := sheet.ReadRows(r, filename)
	if err != nil {
		return nil, err
	}
	return im.Import(kind, rows, existing), nil
}
