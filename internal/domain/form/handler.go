package form

import (
	"context"
	"errors"
	"net/http"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"github.com/ToshioDev/alimentacion-solicitudes-forms/internal/domain/order"
	"github.com/ToshioDev/alimentacion-solicitudes-forms/internal/platform/document"
)

// OrderFetcher reads one stored order, for loading it into a form.
type OrderFetcher interface {
	Get(ctx context.Context, kind order.Kind, id uuid.UUID) (order.Order, error)
}

// SurfaceFactory picks where a document rendered during a request goes.
type SurfaceFactory interface {
	Surface(c echo.Context) document.Surface
}

type Handler struct {
	forms    *Manager
	orders   OrderFetcher
	surfaces SurfaceFactory
}

func NewHandler(forms *Manager, orders OrderFetcher, surfaces SurfaceFactory) *Handler {
	return &Handler{forms: forms, orders: orders, surfaces: surfaces}
}

func (h *Handler) RegisterRoutes(api *echo.Group) {
	g := api.Group("/forms/:kind")
	g.GET("", h.Get)
	g.PATCH("", h.Mutate)
	g.DELETE("", h.Reset)
	g.POST("/submit", h.Submit)
	g.POST("/document", h.RenderDocument)
	g.POST("/load", h.Load)
	g.GET("/pending", h.Pending)
	g.GET("/submitted", h.Submitted)
	g.POST("/import", h.Import)
}

func (h *Handler) form(c echo.Context) (*Form, error) {
	kind, err := order.ParseKind(c.Param("kind"))
	if err != nil {
		return nil, echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	return h.forms.Form(kind), nil
}

func (h *Handler) Get(c echo.Context) error {
	f, err := h.form(c)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, f.View())
}

func (h *Handler) Mutate(c echo.Context) error {
	f, err := h.form(c)
	if err != nil {
		return err
	}
	var patch map[string]interface{}
	if err := c.Bind(&patch); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	view, err := f.Mutate(c.Request().Context(), patch)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return c.JSON(http.StatusOK, view)
}

func (h *Handler) Reset(c echo.Context) error {
	f, err := h.form(c)
	if err != nil {
		return err
	}
	if err := f.Reset(c.Request().Context()); err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return c.JSON(http.StatusOK, f.View())
}

type submitResponse struct {
	Order order.Order `json:"order"`
	Form  View        `json:"form"`
}

func (h *Handler) Submit(c echo.Context) error {
	f, err := h.form(c)
	if err != nil {
		return err
	}
	created, err := f.Submit(c.Request().Context())
	if err != nil {
		var verr *order.ValidationError
		if errors.As(err, &verr) {
			return echo.NewHTTPError(http.StatusBadRequest, map[string]string{
				"message": verr.Error(),
				"field":   verr.Field,
			})
		}
		return echo.NewHTTPError(http.StatusBadGateway, err.Error())
	}
	return c.JSON(http.StatusCreated, submitResponse{Order: created, Form: f.View()})
}

func (h *Handler) RenderDocument(c echo.Context) error {
	f, err := h.form(c)
	if err != nil {
		return err
	}
	_, err = f.RenderDocument(c.Request().Context(), h.surfaces.Surface(c))
	if errors.Is(err, ErrNoSubject) {
		return echo.NewHTTPError(http.StatusBadRequest, noSubjectMessages[f.Kind()])
	}
	return err
}

// loadRequest names the record to load. Source is one of stored (by id),
// pending or submitted (by local_id) or fields (a raw record).
type loadRequest struct {
	Source  string                 `json:"source"`
	ID      string                 `json:"id"`
	LocalID int                    `json:"local_id"`
	Fields  map[string]interface{} `json:"fields"`
}

func (h *Handler) Load(c echo.Context) error {
	f, err := h.form(c)
	if err != nil {
		return err
	}
	var req loadRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}

	ctx := c.Request().Context()
	var rec order.Order
	switch req.Source {
	case "stored":
		id, err := uuid.Parse(req.ID)
		if err != nil {
			return echo.NewHTTPError(http.StatusBadRequest, "invalid id")
		}
		rec, err = h.orders.Get(ctx, f.Kind(), id)
		if errors.Is(err, order.ErrNotFound) {
			return echo.NewHTTPError(http.StatusNotFound, "Orden no encontrada")
		}
		if err != nil {
			return echo.NewHTTPError(http.StatusBadGateway, err.Error())
		}
	case "pending", "submitted":
		list, err := f.Pending(ctx)
		if req.Source == "submitted" {
			list, err = f.Submitted(ctx)
		}
		if err != nil {
			return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
		}
		found := false
		for _, o := range list {
			if localID(o) == req.LocalID {
				rec, found = o, true
				break
			}
		}
		if !found {
			return echo.NewHTTPError(http.StatusNotFound, "Registro local no encontrado")
		}
	case "fields", "":
		rec = order.Normalize(f.Kind(), req.Fields)
	default:
		return echo.NewHTTPError(http.StatusBadRequest, "unknown source: "+req.Source)
	}

	view, err := f.Load(ctx, rec)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return c.JSON(http.StatusOK, view)
}

func localID(o order.Order) int {
	if o.Kind == order.KindStaff && o.Staff != nil {
		return o.Staff.LocalID
	}
	if o.Patient != nil {
		return o.Patient.LocalID
	}
	return 0
}

func (h *Handler) Pending(c echo.Context) error {
	f, err := h.form(c)
	if err != nil {
		return err
	}
	list, err := f.Pending(c.Request().Context())
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return c.JSON(http.StatusOK, map[string]interface{}{"data": list})
}

func (h *Handler) Submitted(c echo.Context) error {
	f, err := h.form(c)
	if err != nil {
		return err
	}
	list, err := f.Submitted(c.Request().Context())
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return c.JSON(http.StatusOK, map[string]interface{}{"data": list})
}

func (h *Handler) Import(c echo.Context) error {
	f, err := h.form(c)
	if err != nil {
		return err
	}
	file, err := c.FormFile("file")
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "file is required")
	}
	src, err := file.Open()
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, "failed to open uploaded file")
	}
	defer src.Close()

	res, err := f.Import(c.Request().Context(), src, file.Filename)
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	return c.JSON(http.StatusOK, res)
}
