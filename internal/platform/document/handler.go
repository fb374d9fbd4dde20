package document

import (
	"context"
	"errors"
	"net/http"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"

	"github.com/ToshioDev/alimentacion-solicitudes-forms/internal/domain/order"
	"github.com/ToshioDev/alimentacion-solicitudes-forms/internal/platform/blobstore"
)

// DocumentIDHeader carries the archive id of a document served inline.
const DocumentIDHeader = "X-Document-ID"

// OrderFetcher loads a stored order. order.Service satisfies it.
type OrderFetcher interface {
	Get(ctx context.Context, kind order.Kind, id uuid.UUID) (order.Order, error)
}

// Handler renders stored orders over HTTP.
type Handler struct {
	renderer *Renderer
	orders   OrderFetcher
	archive  blobstore.BlobStore
	logger   zerolog.Logger
}

// NewHandler wires the renderer to the order store. archive may be nil, in
// which case documents are served but not kept.
func NewHandler(renderer *Renderer, orders OrderFetcher, archive blobstore.BlobStore, logger zerolog.Logger) *Handler {
	return &Handler{
		renderer: renderer,
		orders:   orders,
		archive:  archive,
		logger:   logger.With().Str("component", "document").Logger(),
	}
}

func (h *Handler) RegisterRoutes(g *echo.Group) {
	g.GET("/orders/:kind/:id/document", h.HandleRenderStored)
}

// Surface returns where a document opened during request c goes: the
// archive when configured, then the response body.
func (h *Handler) Surface(c echo.Context) Surface {
	var archive Surface
	if h.archive != nil {
		archive = ArchiveSurface{
			Store:  h.archive,
			Logger: h.logger,
			OnArchived: func(meta *blobstore.BlobMetadata) {
				c.Response().Header().Set(DocumentIDHeader, meta.ID)
			},
		}
	}
	return Tee(archive, ResponseSurface{C: c})
}

func (h *Handler) HandleRenderStored(c echo.Context) error {
	kind, err := order.ParseKind(c.Param("kind"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}

	ctx := c.Request().Context()
	o, err := h.orders.Get(ctx, kind, id)
	if err != nil {
		if errors.Is(err, order.ErrNotFound) {
			return echo.NewHTTPError(http.StatusNotFound, "Orden no encontrada")
		}
		h.logger.Error().Err(err).Str("order_id", id.String()).Msg("fetch order for document failed")
		return echo.NewHTTPError(http.StatusBadGateway, "No se pudo obtener la orden")
	}

	return h.Surface(c).Open(ctx, h.renderer.Render(o))
}
