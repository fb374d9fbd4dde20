// Package document renders orders into the printable order sheet and hands
// the result to a Surface. Rendering is pure; every side effect lives in the
// Surface implementations.
package document

import (
	"bytes"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"github.com/ToshioDev/alimentacion-solicitudes-forms/internal/domain/order"
)

const (
	DefaultInstitution      = "INSTITUTO GUATEMALTECO DE SEGURIDAD SOCIAL"
	DefaultInstitutionShort = "IGSS"

	// DatePlaceholder is printed where an order has no date.
	DatePlaceholder = "___________"

	untitled = "Sin_Nombre"

	patientFormTitle = "ORDEN TIEMPOS SUELTOS DE ALIMENTACIÓN PARA PACIENTES"
	staffFormTitle   = "SOLICITUD DE TIEMPOS DE ALIMENTACIÓN PARA PERSONAL"

	patientMark = "✓"
	staffMark   = "X"

	MinStaffSigners = 1
	MaxStaffSigners = 3
)

// Document is a rendered order sheet.
type Document struct {
	Kind    order.Kind
	OrderID uuid.UUID
	Subject string
	Title   string
	HTML    []byte
}

// Options configures the static parts of the sheet.
type Options struct {
	Institution      string
	InstitutionShort string
	LogoURL          string
	// StaffSigners is how many signature boxes a staff sheet prints, 1 to 3:
	// requester, then approver, then collaborator.
	StaffSigners int
}

type Renderer struct {
	opts Options
}

func NewRenderer(opts Options) *Renderer {
	if opts.Institution == "" {
		opts.Institution = DefaultInstitution
	}
	if opts.InstitutionShort == "" {
		opts.InstitutionShort = DefaultInstitutionShort
	}
	if opts.StaffSigners < MinStaffSigners {
		opts.StaffSigners = MinStaffSigners
	}
	if opts.StaffSigners > MaxStaffSigners {
		opts.StaffSigners = MaxStaffSigners
	}
	return &Renderer{opts: opts}
}

type field struct {
	Label string
	Value string
}

type meal struct {
	Label string
	Mark  string
}

type signature struct {
	Label       string
	Name        string
	Description string
}

type page struct {
	Title            string
	Institution      string
	InstitutionShort string
	LogoURL          string
	FormTitle        string
	GeneralTitle     string
	SubjectTitle     string
	Date             string
	Fields           []field
	Meals            []meal
	Justification    string
	Signatures       []signature
}

// Render maps any order, including an empty one, to its sheet. Identical
// orders render to identical bytes.
func (r *Renderer) Render(o order.Order) Document {
	rec := o.Record()
	p := page{
		Institution:      r.opts.Institution,
		InstitutionShort: r.opts.InstitutionShort,
		LogoURL:          r.opts.LogoURL,
		Date:             rec.OrderDate().Display(DatePlaceholder),
		Justification:    rec.JustificationText(),
	}

	mark := patientMark
	if o.Kind == order.KindStaff {
		mark = staffMark
	}
	for _, slot := range rec.MealSlots() {
		m := meal{Label: slot.Label}
		if slot.Selected {
			m.Mark = mark
		}
		p.Meals = append(p.Meals, m)
	}

	switch v := rec.(type) {
	case order.StaffOrder:
		p.Title = Title(o)
		p.FormTitle = staffFormTitle
		p.Fields = []field{
			{"Nombre completo", v.FullName},
			{"No. empleado", v.EmployeeNumber},
			{"Cargo", v.Position},
			{"Servicio", v.Service},
			{"Tipo de dieta", v.DietType},
		}
		p.Signatures = staffSignatures(v)[:r.opts.StaffSigners]
	case order.PatientOrder:
		p.Title = Title(o)
		p.FormTitle = patientFormTitle
		p.GeneralTitle = "INFORMACIÓN GENERAL"
		p.SubjectTitle = "INFORMACIÓN DEL PACIENTE"
		p.Fields = []field{
			{"Nombre completo", v.FullName},
			{"Afiliación/CUI", v.Affiliation},
			{"No. Cama", v.Bed},
			{"Servicio", v.Service},
			{"Tipo de dieta", v.DietType},
		}
		p.Signatures = []signature{
			{"Firma y sello", v.RequesterName, "Personal responsable del servicio solicitante"},
			{"Firma o huella", v.PatientSignatureName, "Paciente"},
		}
	}

	var buf bytes.Buffer
	if err := pageTemplate.Execute(&buf, p); err != nil {
		// Executing into a buffer only fails on a template bug.
		panic(fmt.Sprintf("document: render %s: %v", o.Kind, err))
	}
	return Document{
		Kind:    rec.OrderKind(),
		OrderID: rec.RecordID(),
		Subject: rec.SubjectName(),
		Title:   p.Title,
		HTML:    buf.Bytes(),
	}
}

func staffSignatures(v order.StaffOrder) []signature {
	return []signature{
		{"Firma y sello", v.RequesterName, "Personal responsable del servicio solicitante"},
		{"Firma y sello", v.ApproverName, "Jefe inmediato"},
		{"Firma y sello", v.CollaboratorName, "Solicitante"},
	}
}

// Title is the window and file title of an order's sheet.
func Title(o order.Order) string {
	name := strings.TrimSpace(o.Record().SubjectName())
	if name == "" {
		name = untitled
	}
	if o.Kind == order.KindStaff {
		return "Solicitud_Personal_" + name
	}
	return "Orden_Paciente_" + name
}

// FileName turns a title into a safe file name ending in .html.
func FileName(title string) string {
	clean := strings.Map(func(r rune) rune {
		switch r {
		case '/', '\\', ':', '*', '?', '"', '<', '>', '|', 0:
			return '_'
		}
		return r
	}, strings.TrimSpace(title))
	if clean == "" || clean == "." || clean == ".." {
		clean = untitled
	}
	return clean + ".html"
}
