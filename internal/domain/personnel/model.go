package personnel

import (
	"strings"
	"time"
)

// Entry is one row of the personnel directory (personal_info).
type Entry struct {
	EmployeeNumber string     `db:"no_empleado" json:"no_empleado"`
	FullName       string     `db:"nombre_completo" json:"nombre_completo"`
	Position       string     `db:"plaza_nominal" json:"plaza_nominal"`
	BudgetLine     string     `db:"renglon_presupuestario" json:"renglon_presupuestario"`
	IBM            string     `db:"ibm" json:"ibm"`
	Service        string     `db:"servicio" json:"servicio"`
	CreatedAt      *time.Time `db:"created_at" json:"created_at,omitempty"`
	UpdatedAt      *time.Time `db:"updated_at" json:"updated_at,omitempty"`
}

func (e *Entry) trim() {
	e.EmployeeNumber = strings.TrimSpace(e.EmployeeNumber)
	e.FullName = strings.TrimSpace(e.FullName)
	e.Position = strings.TrimSpace(e.Position)
	e.BudgetLine = strings.TrimSpace(e.BudgetLine)
	e.IBM = strings.TrimSpace(e.IBM)
	e.Service = strings.TrimSpace(e.Service)
}

// StaffFields is the staff order patch that fills the subject block from a
// directory entry. Blank directory values are left out so they do not wipe
// what the user already typed, and ibm is never part of it: the code the
// user typed stays the order's search code.
func (e Entry) StaffFields() map[string]interface{} {
	out := map[string]interface{}{
		"nombre_completo_personal": e.FullName,
		"no_empleado":              e.EmployeeNumber,
	}
	if e.Position != "" {
		out["cargo"] = e.Position
	}
	if e.Service != "" {
		out["servicio"] = e.Service
	}
	return out
}
