package repo

import (
	"SupplyRun/internal/model"
	"context"
	"errors"

	"gorm.io/gorm"
)

// ErrCollectionFull is returned by CreateWithLimit when the collection already
// holds the maximum number of documents.
var ErrCollectionFull = errors.New("collection is full")

// DocumentRepository stores documents grouped by collection path.
type DocumentRepository interface {
	// CreateWithLimit inserts doc unless its collection already holds limit
	// documents. A limit <= 0 disables the check.
	CreateWithLimit(ctx context.Context, doc *model.Document, limit int) error
	// ListByCollection returns the documents of a collection in commit order.
	ListByCollection(ctx context.Context, collection string) ([]model.Document, error)
}

type documentRepo struct {
	db *gorm.DB
}

func NewDocumentRepository(db *gorm.DB) DocumentRepository {
	return &documentRepo{db: db}
}

func (r *documentRepo) CreateWithLimit(ctx context.Context, doc *model.Document, limit int) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if limit > 0 {
			var n int64
			if err := tx.Model(&model.Document{}).Where("collection = ?", doc.Collection).Count(&n).Error; err != nil {
				return err
			}
			if n >= int64(limit) {
				return ErrCollectionFull
			}
		}
		return tx.Create(doc).Error
	})
}

func (r *documentRepo) ListByCollection(ctx context.Context, collection string) ([]model.Document, error) {
	var docs []model.Document
	err := r.db.WithContext(ctx).
		Where("collection = ?", collection).
		Order("created_at ASC").
		Order("id ASC").
		Find(&docs).Error
	if err != nil {
		return nil, err
	}
	return docs, nil
}
