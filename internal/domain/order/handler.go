package order

import (
	"errors"
	"net/http"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"github.com/ToshioDev/alimentacion-solicitudes-forms/internal/platform/auth"
	"github.com/ToshioDev/alimentacion-solicitudes-forms/pkg/pagination"
)

type Handler struct {
	svc *Service
}

func NewHandler(svc *Service) *Handler {
	return &Handler{svc: svc}
}

func (h *Handler) RegisterRoutes(api *echo.Group) {
	api.GET("/orders/summary", h.Summary)
	api.GET("/orders/:kind", h.List)
	api.POST("/orders/:kind", h.Create)
	api.GET("/orders/:kind/:id", h.Get)

	writeGroup := api.Group("", auth.RequireRole(auth.RoleAdmin))
	writeGroup.DELETE("/orders/:kind/:id", h.Delete)
}

func kindParam(c echo.Context) (Kind, error) {
	kind, err := ParseKind(c.Param("kind"))
	if err != nil {
		return "", echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	return kind, nil
}

func idParam(c echo.Context) (uuid.UUID, error) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return uuid.Nil, echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	return id, nil
}

// List refreshes the kind's list and pages through it, filtered by ?q=.
func (h *Handler) List(c echo.Context) error {
	kind, err := kindParam(c)
	if err != nil {
		return err
	}
	if _, err := h.svc.List(c.Request().Context(), kind); err != nil {
		return echo.NewHTTPError(http.StatusBadGateway, err.Error())
	}
	items := h.svc.Search(kind, c.QueryParam("q"))
	return c.JSON(http.StatusOK, pagination.Paginate(items, pagination.FromContext(c)))
}

func (h *Handler) Get(c echo.Context) error {
	kind, err := kindParam(c)
	if err != nil {
		return err
	}
	id, err := idParam(c)
	if err != nil {
		return err
	}
	o, err := h.svc.Get(c.Request().Context(), kind, id)
	if errors.Is(err, ErrNotFound) {
		return echo.NewHTTPError(http.StatusNotFound, "Orden no encontrada")
	}
	if err != nil {
		return echo.NewHTTPError(http.StatusBadGateway, err.Error())
	}
	return c.JSON(http.StatusOK, o)
}

// Create accepts the order fields in either naming convention and runs the
// submit rules before storing.
func (h *Handler) Create(c echo.Context) error {
	kind, err := kindParam(c)
	if err != nil {
		return err
	}
	var raw map[string]interface{}
	if err := c.Bind(&raw); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	o := Normalize(kind, raw)
	if err := Validate(o); err != nil {
		var verr *ValidationError
		errors.As(err, &verr)
		return echo.NewHTTPError(http.StatusBadRequest, map[string]string{
			"message": verr.Error(),
			"field":   verr.Field,
		})
	}
	created, err := h.svc.Create(c.Request().Context(), o)
	if err != nil {
		return echo.NewHTTPError(http.StatusBadGateway, err.Error())
	}
	return c.JSON(http.StatusCreated, created)
}

func (h *Handler) Delete(c echo.Context) error {
	kind, err := kindParam(c)
	if err != nil {
		return err
	}
	id, err := idParam(c)
	if err != nil {
		return err
	}
	if err := h.svc.Delete(c.Request().Context(), kind, id); err != nil {
		if errors.Is(err, ErrNotFound) {
			return echo.NewHTTPError(http.StatusNotFound, "Orden no encontrada")
		}
		return echo.NewHTTPError(http.StatusBadGateway, err.Error())
	}
	return c.NoContent(http.StatusNoContent)
}

type summaryResponse struct {
	Data  []KindSummary `json:"data"`
	Error string        `json:"error,omitempty"`
}

// Summary reports both kinds even when one of them fails to refresh; the
// failing kind keeps its previous count and the error is included.
func (h *Handler) Summary(c echo.Context) error {
	summary, err := h.svc.Summary(c.Request().Context())
	resp := summaryResponse{Data: summary}
	if err != nil {
		resp.Error = err.Error()
	}
	return c.JSON(http.StatusOK, resp)
}
