package services

import (
	"context"
	"encoding/base64"
	"errors"
	"path"
	"strings"

	"github.com/gabriel-vasile/mimetype"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"gorm.io/gorm"

	"github.com/tbourn/go-turf-booking/internal/domain"
	"github.com/tbourn/go-turf-booking/internal/repo"
)

// DocumentTypes are the content types accepted for upload and served inline.
var DocumentTypes = []string{"image/png", "image/jpeg", "image/gif", "image/webp", "application/pdf"}

// InlineDocumentType reports whether ct may be served for display.
func InlineDocumentType(ct string) bool {
	for _, t := range DocumentTypes {
		if ct == t {
			return true
		}
	}
	return false
}

// DocumentService stores uploaded identity documents and serves them back.
type DocumentService struct {
	DB *gorm.DB
	// PublicBaseURL prefixes returned links, e.g. "https://book.example.com".
	PublicBaseURL string
	// MaxBytes caps decoded document size; 0 means unlimited.
	MaxBytes int
}

// Upload decodes a data URL ("data:<mime>;base64,<data>") or bare base64
// payload, stores it and returns its public link. The stored type comes from
// the bytes; the declared data URL type is ignored.
func (s *DocumentService) Upload(ctx context.Context, payload, name string) (string, error) {
	ctx, span := otel.Tracer("services/DocumentService").Start(ctx, "Upload")
	defer span.End()

	declared, data, err := decodeDataURL(payload)
	if err != nil {
		return "", err
	}
	if s.MaxBytes > 0 && len(data) > s.MaxBytes {
		return "", ErrDocumentTooLarge
	}
	detected := mimetype.Detect(data)
	contentType := ""
	for _, t := range DocumentTypes {
		if detected.Is(t) {
			contentType = t
			break
		}
	}
	span.SetAttributes(attribute.String("document.declared_type", declared), attribute.String("document.type", detected.String()))
	if contentType == "" {
		return "", ErrUnsupportedDocument
	}
	name = strings.TrimSpace(path.Base(strings.ReplaceAll(name, "\\", "/")))
	if name == "" || name == "." || name == "/" {
		name = "document" + detected.Extension()
	}
	span.SetAttributes(attribute.Int("document.size", len(data)))

	doc, err := repo.CreateDocument(ctx, s.DB, name, contentType, data)
	if err != nil {
		return "", err
	}
	return strings.TrimRight(s.PublicBaseURL, "/") + "/documents/" + doc.ID, nil
}

// Get returns a stored document.
func (s *DocumentService) Get(ctx context.Context, id string) (*domain.Document, error) {
	ctx, span := otel.Tracer("services/DocumentService").Start(ctx, "Get",
		trace.WithAttributes(attribute.String("document.id", id)))
	defer span.End()

	doc, err := repo.GetDocument(ctx, s.DB, id)
	if errors.Is(err, repo.ErrNotFound) {
		return nil, NotFound(ErrDocumentNotFound)
	}
	if err != nil {
		return nil, Storage("read document", err)
	}
	return doc, nil
}

func decodeDataURL(payload string) (string, []byte, error) {
	payload = strings.TrimSpace(payload)
	contentType := ""
	if strings.HasPrefix(payload, "data:") {
		meta, body, ok := strings.Cut(payload[len("data:"):], ",")
		if !ok || !strings.HasSuffix(meta, ";base64") {
			return "", nil, ErrInvalidDocument
		}
		contentType = strings.TrimSuffix(meta, ";base64")
		if i := strings.IndexByte(contentType, ';'); i >= 0 {
			contentType = contentType[:i]
		}
		payload = body
	}
	data, err := base64.StdEncoding.DecodeString(payload)
	if err != nil {
		if data, err = base64.RawStdEncoding.DecodeString(payload); err != nil {
			return "", nil, ErrInvalidDocument
		}
	}
	if len(data) == 0 {
		return "", nil, ErrInvalidDocument
	}
	return contentType, data, nil
}
