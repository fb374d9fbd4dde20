package order

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"github.com/ToshioDev/alimentacion-solicitudes-forms/internal/platform/auth"
)

func newTestHandler(roles ...string) (*echo.Echo, *mockRepo[PatientOrder], *mockRepo[StaffOrder]) {
	patients := newMockPatientRepo()
	staff := newMockStaffRepo()
	deps, _ := newTestDeps()
	svc := NewService(NewStore[PatientOrder](KindPatient, patients, deps), NewStore[StaffOrder](KindStaff, staff, deps))

	e := echo.New()
	if len(roles) > 0 {
		e.Use(func(next echo.HandlerFunc) echo.HandlerFunc {
			return func(c echo.Context) error {
				ctx := context.WithValue(c.Request().Context(), auth.UserRolesKey, roles)
				c.SetRequest(c.Request().WithContext(ctx))
				return next(c)
			}
		})
	}
	NewHandler(svc).RegisterRoutes(e.Group("/api/v1"))
	return e, patients, staff
}

func serve(e *echo.Echo, method, path, body string) *httptest.ResponseRecorder {
	var req *http.Request
	if body != "" {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
		req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	} else {
		req = httptest.NewRequest(method, path, nil)
	}
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	return rec
}

func TestHandler_ListSearchAndPaginate(t *testing.T) {
	e, patients, _ := newTestHandler()
	patients.items = []PatientOrder{
		{ID: uuid.New(), FullName: "Ana López", Affiliation: "CUI-1", Service: "Medicina"},
		{ID: uuid.New(), FullName: "Luis Gómez", Affiliation: "CUI-2", Service: "Cirugía"},
		{ID: uuid.New(), FullName: "Ana Ruiz", Affiliation: "CUI-3", Service: "Pediatría"},
	}

	rec := serve(e, http.MethodGet, "/api/v1/orders/pacientes?q=ana&limit=1", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	var page struct {
		Data    []PatientOrder `json:"data"`
		Total   int            `json:"total"`
		HasMore bool           `json:"has_more"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &page); err != nil {
		t.Fatal(err)
	}
	if page.Total != 2 || len(page.Data) != 1 || !page.HasMore {
		t.Errorf("unexpected page: %+v", page)
	}
	if page.Data[0].FullName != "Ana López" {
		t.Errorf("expected Ana López first, got %s", page.Data[0].FullName)
	}
}

func TestHandler_ListRemoteFailure(t *testing.T) {
	e, _, staff := newTestHandler()
	staff.listErr = errors.New("timeout")

	rec := serve(e, http.MethodGet, "/api/v1/orders/staff", "")
	if rec.Code != http.StatusBadGateway {
		t.Errorf("expected 502, got %d", rec.Code)
	}
}

func TestHandler_CreateAcceptsEitherConvention(t *testing.T) {
	e, _, staff := newTestHandler()

	body := `{"fecha":"2025-03-01","nombreCompletoPersonal":"Juan Pérez","nombre_completo_personal":"Juan P.","justificacion":"dieta especial","desayuno":true}`
	rec := serve(e, http.MethodPost, "/api/v1/orders/staff", body)
	if rec.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d: %s", rec.Code, rec.Body.String())
	}
	if len(staff.items) != 1 {
		t.Fatalf("expected 1 stored order, got %d", len(staff.items))
	}
	if staff.items[0].FullName != "Juan P." {
		t.Errorf("persisted key must win, got %q", staff.items[0].FullName)
	}
}

func TestHandler_CreateValidation(t *testing.T) {
	e, patients, _ := newTestHandler()

	rec := serve(e, http.MethodPost, "/api/v1/orders/patient", `{"fecha":"2025-03-01","nombre_completo_paciente":"Ana","justificacion":"x"}`)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), "tiempos_comida") {
		t.Errorf("expected meal field in error, got %s", rec.Body.String())
	}
	if patients.callCount() != 0 {
		t.Error("no remote call expected on validation failure")
	}
}

func TestHandler_GetAndDelete(t *testing.T) {
	e, patients, _ := newTestHandler(auth.RoleAdmin)
	id := uuid.New()
	patients.items = []PatientOrder{{ID: id, FullName: "Ana"}}

	rec := serve(e, http.MethodGet, "/api/v1/orders/patient/"+id.String(), "")
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	rec = serve(e, http.MethodGet, "/api/v1/orders/patient/not-a-uuid", "")
	if rec.Code != http.StatusBadRequest {
		t.Errorf("expected 400, got %d", rec.Code)
	}

	rec = serve(e, http.MethodDelete, "/api/v1/orders/patient/"+id.String(), "")
	if rec.Code != http.StatusNoContent {
		t.Fatalf("expected 204, got %d: %s", rec.Code, rec.Body.String())
	}
	rec = serve(e, http.MethodGet, "/api/v1/orders/patient/"+id.String(), "")
	if rec.Code != http.StatusNotFound {
		t.Errorf("expected 404 after delete, got %d", rec.Code)
	}
	rec = serve(e, http.MethodDelete, "/api/v1/orders/patient/"+id.String(), "")
	if rec.Code != http.StatusNotFound {
		t.Errorf("expected 404 on second delete, got %d", rec.Code)
	}
}

func TestHandler_DeleteRequiresAdmin(t *testing.T) {
	e, patients, _ := newTestHandler(auth.RoleUser)
	id := uuid.New()
	patients.items = []PatientOrder{{ID: id}}

	rec := serve(e, http.MethodDelete, "/api/v1/orders/patient/"+id.String(), "")
	if rec.Code != http.StatusForbidden {
		t.Errorf("expected 403, got %d", rec.Code)
	}
	if len(patients.items) != 1 {
		t.Error("order must not be deleted")
	}
}

func TestHandler_Summary(t *testing.T) {
	e, patients, staff := newTestHandler()
	patients.items = []PatientOrder{{ID: uuid.New()}}
	staff.listErr = errors.New("timeout")

	rec := serve(e, http.MethodGet, "/api/v1/orders/summary", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	var resp summaryResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatal(err)
	}
	if len(resp.Data) != 2 || resp.Data[0].Count != 1 {
		t.Errorf("unexpected summary: %+v", resp.Data)
	}
	if resp.Error == "" {
		t.Error("expected the staff failure to be reported")
	}
}

func TestHandler_UnknownKind(t *testing.T) {
	e, _, _ := newTestHandler()
	rec := serve(e, http.MethodGet, "/api/v1/orders/visitors", "")
	if rec.Code != http.StatusBadRequest {
		t.Errorf("expected 400, got %d", rec.Code)
	}
}
