package repo

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/tbourn/go-turf-booking/internal/domain"
)

// CreateDocument stores an uploaded document and returns it with its new ID.
func CreateDocument(ctx context.Context, db *gorm.DB, name, contentType string, data []byte) (*domain.Document, error) {
	doc := &domain.Document{
		ID:          uuid.NewString(),
		Name:        name,
		ContentType: contentType,
		Size:        len(data),
		Data:        data,
		CreatedAt:   time.Now().UTC(),
	}
	if err := db.WithContext(ctx).Create(doc).Error; err != nil {
		return nil, err
	}
	return doc, nil
}

// GetDocument returns the document with id or ErrNotFound.
func GetDocument(ctx context.Context, db *gorm.DB, id string) (*domain.Document, error) {
	var doc domain.Document
	err := db.WithContext(ctx).First(&doc, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &doc, nil
}
