package model

import "time"

// Document is one entry of a collection such as users/{uid}/lists.
// Fields holds the JSON encoded field map exactly as committed,
// server timestamps included.
type Document struct {
	ID         string `gorm:"primaryKey;size:26"`
	Collection string `gorm:"not null;index:idx_documents_collection"`
	OwnerID    string `gorm:"not null;index"`
	Fields     []byte `gorm:"not null"`

	CreatedAt time.Time `gorm:"not null" json:"created_at"`
}
