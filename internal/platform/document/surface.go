package document

import (
	"bytes"
	"context"
	"fmt"
	"net/http"
	"net/url"
	"os"
	"path/filepath"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"

	"github.com/ToshioDev/alimentacion-solicitudes-forms/internal/platform/auth"
	"github.com/ToshioDev/alimentacion-solicitudes-forms/internal/platform/blobstore"
)

// Surface presents a rendered document to the user.
type Surface interface {
	Open(ctx context.Context, doc Document) error
}

type SurfaceFunc func(ctx context.Context, doc Document) error

func (f SurfaceFunc) Open(ctx context.Context, doc Document) error { return f(ctx, doc) }

// ResponseSurface writes the sheet as the HTTP response, the server-side
// equivalent of opening it in a new window.
type ResponseSurface struct {
	C echo.Context
}

func (s ResponseSurface) Open(_ context.Context, doc Document) error {
	name := FileName(doc.Title)
	s.C.Response().Header().Set("Content-Disposition",
		fmt.Sprintf(`inline; filename*=UTF-8''%s`, url.PathEscape(name)))
	s.C.Response().Header().Set("X-Document-Title", url.PathEscape(doc.Title))
	return s.C.HTMLBlob(http.StatusOK, doc.HTML)
}

// FileSurface writes <title>.html into Dir. LastPath holds the most recent
// file written.
type FileSurface struct {
	Dir      string
	LastPath string
}

func (s *FileSurface) Open(_ context.Context, doc Document) error {
	if err := os.MkdirAll(s.Dir, 0o750); err != nil {
		return fmt.Errorf("create output dir: %w", err)
	}
	path := filepath.Join(s.Dir, FileName(doc.Title))
	if err := os.WriteFile(path, doc.HTML, 0o640); err != nil {
		return fmt.Errorf("write document: %w", err)
	}
	s.LastPath = path
	return nil
}

// ArchiveSurface keeps a copy of every opened document in a blob store.
// OnArchived, when set, receives the stored metadata.
type ArchiveSurface struct {
	Store      blobstore.BlobStore
	Logger     zerolog.Logger
	OnArchived func(meta *blobstore.BlobMetadata)
}

func (s ArchiveSurface) Open(ctx context.Context, doc Document) error {
	meta := blobstore.BlobMetadata{
		FileName:    FileName(doc.Title),
		ContentType: echo.MIMETextHTMLCharsetUTF8,
		Kind:        string(doc.Kind),
		Subject:     doc.Subject,
		CreatedBy:   auth.UserIDFromContext(ctx),
	}
	if doc.OrderID != uuid.Nil {
		meta.OrderID = doc.OrderID.String()
	}
	stored, err := s.Store.Upload(ctx, meta, bytes.NewReader(doc.HTML))
	if err != nil {
		return fmt.Errorf("archive document: %w", err)
	}
	s.Logger.Info().Str("document_id", stored.ID).Str("kind", stored.Kind).Msg("document archived")
	if s.OnArchived != nil {
		s.OnArchived(stored)
	}
	return nil
}

// Tee opens the document on each surface in turn and stops at the first
// error. Nil surfaces are skipped.
func Tee(surfaces ...Surface) Surface {
	return SurfaceFunc(func(ctx context.Context, doc Document) error {
		for _, s := range surfaces {
			if s == nil {
				continue
			}
			if err := s.Open(ctx, doc); err != nil {
				return err
			}
		}
		return nil
	})
}
