// Package notification keeps the user-facing toast messages raised by order
// operations in a bounded in-memory feed and serves them over HTTP.
package notification

import (
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"
)

// ---------------------------------------------------------------------------
// Toast
// ---------------------------------------------------------------------------

// Variant selects how a client renders the toast.
type Variant string

const (
	VariantSuccess     Variant = "success"
	VariantDestructive Variant = "destructive"
)

// Toast is a single user-facing message.
type Toast struct {
	ID          string    `json:"id"`
	Variant     Variant   `json:"variant"`
	Title       string    `json:"title"`
	Description string    `json:"description,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
}

// Notifier is what order operations need to raise toasts.
type Notifier interface {
	Success(title, description string)
	Error(title, description string)
}

// ---------------------------------------------------------------------------
// Feed
// ---------------------------------------------------------------------------

// DefaultCapacity is used when NewFeed receives a non-positive capacity.
const DefaultCapacity = 100

// Feed is a ring of the most recent toasts. Older entries are overwritten
// once the capacity is reached.
type Feed struct {
	mu     sync.RWMutex
	items  []Toast
	next   int
	full   bool
	logger zerolog.Logger
	now    func() time.Time
}

// NewFeed creates a Feed that also logs every toast.
func NewFeed(capacity int, logger zerolog.Logger) *Feed {
	if capacity <= 0 {
		capacity = DefaultCapacity
	}
	return &Feed{
		items:  make([]Toast, capacity),
		logger: logger.With().Str("component", "notification").Logger(),
		now:    time.Now,
	}
}

// Success records a success toast.
func (f *Feed) Success(title, description string) {
	t := f.push(VariantSuccess, title, description)
	f.logger.Info().Str("toast_id", t.ID).Str("title", title).Msg(description)
}

// Error records a destructive toast.
func (f *Feed) Error(title, description string) {
	t := f.push(VariantDestructive, title, description)
	f.logger.Warn().Str("toast_id", t.ID).Str("title", title).Msg(description)
}

func (f *Feed) push(v Variant, title, description string) Toast {
	t := Toast{
		ID:          uuid.New().String(),
		Variant:     v,
		Title:       title,
		Description: description,
		CreatedAt:   f.now().UTC(),
	}
	f.mu.Lock()
	f.items[f.next] = t
	f.next = (f.next + 1) % len(f.items)
	if f.next == 0 {
		f.full = true
	}
	f.mu.Unlock()
	return t
}

// List returns toasts created strictly after since, oldest first. A zero
// since returns the whole feed.
func (f *Feed) List(since time.Time) []Toast {
	f.mu.RLock()
	defer f.mu.RUnlock()

	var ordered []Toast
	if f.full {
		ordered = append(ordered, f.items[f.next:]...)
	}
	ordered = append(ordered, f.items[:f.next]...)

	out := make([]Toast, 0, len(ordered))
	for _, t := range ordered {
		if since.IsZero() || t.CreatedAt.After(since) {
			out = append(out, t)
		}
	}
	return out
}

// Len returns the number of toasts currently held.
func (f *Feed) Len() int {
	f.mu.RLock()
	defer f.mu.RUnlock()
	if f.full {
		return len(f.items)
	}
	return f.next
}

// Clear drops every toast.
func (f *Feed) Clear() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.items = make([]Toast, len(f.items))
	f.next = 0
	f.full = false
}

// ---------------------------------------------------------------------------
// HTTP Handler
// ---------------------------------------------------------------------------

// Handler exposes the feed over HTTP via Echo.
type Handler struct {
	feed *Feed
}

func NewHandler(feed *Feed) *Handler {
	return &Handler{feed: feed}
}

// RegisterRoutes registers the notification routes on the given Echo group.
func (h *Handler) RegisterRoutes(g *echo.Group) {
	g.GET("/notifications", h.HandleList)
	g.DELETE("/notifications", h.HandleClear)
}

// HandleList handles GET /notifications?since=<RFC 3339>.
func (h *Handler) HandleList(c echo.Context) error {
	var since time.Time
	if s := c.QueryParam("since"); s != "" {
		parsed, err := time.Parse(time.RFC3339Nano, s)
		if err != nil {
			return echo.NewHTTPError(http.StatusBadRequest, "since must be an RFC 3339 timestamp")
		}
		since = parsed
	}
	return c.JSON(http.StatusOK, h.feed.List(since))
}

// HandleClear handles DELETE /notifications.
func (h *Handler) HandleClear(c echo.Context) error {
	h.feed.Clear()
	return c.NoContent(http.StatusNoContent)
}
