package order

import (
	"errors"
	"strings"
)

var (
	ErrDateRequired          = errors.New("La fecha es obligatoria")
	ErrNameRequired          = errors.New("El nombre completo es obligatorio")
	ErrJustificationRequired = errors.New("La justificación es obligatoria")
	ErrMealRequired          = errors.New("Debe seleccionar al menos un tiempo de comida")
)

// ValidationError reports the first rule an order breaks.
type ValidationError struct {
	Field string
	Err   error
}

func (e *ValidationError) Error() string { return e.Err.Error() }
func (e *ValidationError) Unwrap() error { return e.Err }

// Validate checks the submit rules in a fixed order (date, name,
// justification, meal slots) and returns the first violation. It has no side
// effects.
func Validate(o Order) error {
	r := o.Record()
	if r.OrderDate().IsZero() {
		return &ValidationError{Field: "fecha", Err: ErrDateRequired}
	}
	if strings.TrimSpace(r.SubjectName()) == "" {
		field := "nombre_completo_paciente"
		if o.Kind == KindStaff {
			field = "nombre_completo_personal"
		}
		return &ValidationError{Field: field, Err: ErrNameRequired}
	}
	if strings.TrimSpace(r.JustificationText()) == "" {
		return &ValidationError{Field: "justificacion", Err: ErrJustificationRequired}
	}
	for _, slot := range r.MealSlots() {
		if slot.Selected {
			return nil
		}
	}
	return &ValidationError{Field: "tiempos_comida", Err: ErrMealRequired}
}
