package service

import (
	"SupplyRun/internal/hub"
	"SupplyRun/internal/model"
	"SupplyRun/internal/repo"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/oklog/ulid/v2"
)

// MaxDocumentBytes caps the encoded size of one document.
const MaxDocumentBytes = 16 << 10

var (
	segmentRe   = regexp.MustCompile(`^[A-Za-z0-9_-]{1,64}$`)
	fieldNameRe = regexp.MustCompile(`^[A-Za-z][A-Za-z0-9_]{0,63}$`)
)

// DocumentView is a committed document as returned to clients.
type DocumentView struct {
	ID         string         `json:"id"`
	Fields     map[string]any `json:"fields"`
	CreateTime time.Time      `json:"create_time"`
}

// DocumentService is the document store: per-owner collections under
// users/{uid}/{collection}, server assigned timestamps and change fan-out.
type DocumentService struct {
	docs    repo.DocumentRepository
	hub     *hub.Hub
	maxDocs int
	now     func() time.Time
}

func NewDocumentService(docs repo.DocumentRepository, h *hub.Hub, maxDocs int) *DocumentService {
	return &DocumentService{docs: docs, hub: h, maxDocs: maxDocs, now: time.Now}
}

// ParseCollectionPath splits users/{uid}/{collection} into its owner and collection.
func ParseCollectionPath(path string) (owner, collection string, err error) {
	parts := strings.Split(strings.Trim(path, "/"), "/")
	if len(parts) != 3 || parts[0] != "users" || !segmentRe.MatchString(parts[1]) || !segmentRe.MatchString(parts[2]) {
		return "", "", fmt.Errorf("%w: %q", ErrInvalidPath, path)
	}
	return parts[1], parts[2], nil
}

// Authorize checks that caller may read and write the collection at path and
// returns the path in canonical form. Only the owner has access.
func (s *DocumentService) Authorize(callerUID, path string) (string, error) {
	owner, collection, err := ParseCollectionPath(path)
	if err != nil {
		return "", err
	}
	if callerUID == "" || owner != callerUID {
		return "", ErrPermissionDenied
	}
	return "users/" + owner + "/" + collection, nil
}

// Add commits one document. Every field named in serverTimestamps is set to
// the commit time, overriding any client value.
func (s *DocumentService) Add(ctx context.Context, callerUID, path string, fields map[string]any, serverTimestamps []string) (DocumentView, error) {
	collection, err := s.Authorize(callerUID, path)
	if err != nil {
		return DocumentView{}, err
	}
	if fields == nil {
		fields = map[string]any{}
	}
	for name := range fields {
		if !fieldNameRe.MatchString(name) {
			return DocumentView{}, fmt.Errorf("%w: bad field name %q", ErrInvalidArgument, name)
		}
	}

	commitTime := s.now().UTC()
	for _, name := range serverTimestamps {
		if !fieldNameRe.MatchString(name) {
			return DocumentView{}, fmt.Errorf("%w: bad field name %q", ErrInvalidArgument, name)
		}
		fields[name] = commitTime.Format(time.RFC3339Nano)
	}

	encoded, err := json.Marshal(fields)
	if err != nil {
		return DocumentView{}, fmt.Errorf("%w: %v", ErrInvalidArgument, err)
	}
	if len(encoded) > MaxDocumentBytes {
		return DocumentView{}, fmt.Errorf("%w: document exceeds %d bytes", ErrInvalidArgument, MaxDocumentBytes)
	}

	doc := &model.Document{
		ID:         ulid.Make().String(),
		Collection: collection,
		OwnerID:    callerUID,
		Fields:     encoded,
		CreatedAt:  commitTime,
	}
	if err := s.docs.CreateWithLimit(ctx, doc, s.maxDocs); err != nil {
		if errors.Is(err, repo.ErrCollectionFull) {
			return DocumentView{}, ErrQuotaExceeded
		}
		return DocumentView{}, fmt.Errorf("create document: %w", err)
	}
	s.hub.Publish(collection)

	return DocumentView{ID: doc.ID, Fields: fields, CreateTime: commitTime}, nil
}

// Snapshot returns every document currently in the collection.
func (s *DocumentService) Snapshot(ctx context.Context, callerUID, path string) ([]DocumentView, error) {
	collection, err := s.Authorize(callerUID, path)
	if err != nil {
		return nil, err
	}
	docs, err := s.docs.ListByCollection(ctx, collection)
	if err != nil {
		return nil, fmt.Errorf("list documents: %w", err)
	}

	views := make([]DocumentView, 0, len(docs))
	for _, d := range docs {
		fields := map[string]any{}
		if err := json.Unmarshal(d.Fields, &fields); err != nil {
			return nil, fmt.Errorf("decode document %s: %w", d.ID, err)
		}
		views = append(views, DocumentView{ID: d.ID, Fields: fields, CreateTime: d.CreatedAt.UTC()})
	}
	return views, nil
}

// Watch subscribes to change signals of an already authorized collection path.
func (s *DocumentService) Watch(collection string) (<-chan struct{}, func()) {
	return s.hub.Subscribe(collection)
}
