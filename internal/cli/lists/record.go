// Package lists exposes the signed-in user's lists as live, ordered snapshots.
package lists

import (
	"cmp"
	"encoding/json"
	"fmt"
	"regexp"
	"slices"
	"strings"
	"time"
)

// Document field names of a list.
const (
	FieldTitle     = "title"
	FieldCreatedAt = "createdAt"
)

// Record is one list as shown to the user. CreatedAt is nil until the
// backend has assigned the creation time.
type Record struct {
	ID        string
	Title     string
	CreatedAt *time.Time
}

// Pending reports whether the record still waits for its server timestamp.
func (r Record) Pending() bool { return r.CreatedAt == nil }

// Scope names the per-user collection that holds the lists.
type Scope struct {
	Collection string
}

// DefaultScope is the collection used when no other is configured.
var DefaultScope = Scope{Collection: "lists"}

var segmentRe = regexp.MustCompile(`^[A-Za-z0-9_-]{1,64}$`)

// Path is the backend collection path of the scope for uid.
func (s Scope) Path(uid string) string {
	return "users/" + uid + "/" + s.Collection
}

func (s Scope) valid() bool { return segmentRe.MatchString(s.Collection) }

// Document is one backend document as delivered by a feed.
type Document struct {
	ID     string
	Fields map[string]any
}

func recordFromDocument(d Document) Record {
	return Record{
		ID:        d.ID,
		Title:     stringField(d.Fields[FieldTitle]),
		CreatedAt: timeField(d.Fields[FieldCreatedAt]),
	}
}

func stringField(v any) string {
	switch s := v.(type) {
	case nil:
		return ""
	case string:
		return s
	default:
		return fmt.Sprint(s)
	}
}

// timeField accepts the encodings a timestamp may arrive in: RFC 3339
// text, a time value or epoch milliseconds. Anything else counts as absent.
func timeField(v any) *time.Time {
	var t time.Time
	switch x := v.(type) {
	case time.Time:
		t = x
	case *time.Time:
		if x == nil {
			return nil
		}
		t = *x
	case string:
		parsed, err := time.Parse(time.RFC3339Nano, strings.TrimSpace(x))
		if err != nil {
			return nil
		}
		t = parsed
	case float64:
		t = time.UnixMilli(int64(x))
	case int64:
		t = time.UnixMilli(x)
	case json.Number:
		ms, err := x.Int64()
		if err != nil {
			return nil
		}
		t = time.UnixMilli(ms)
	default:
		return nil
	}
	t = t.UTC()
	return &t
}

// orderRecords sorts newest first. Equal timestamps fall back to the id,
// descending. Pending records go last in the order they first arrived.
func orderRecords(recs []Record, arrival map[string]uint64) {
	slices.SortStableFunc(recs, func(a, b Record) int {
		switch {
		case a.CreatedAt != nil && b.CreatedAt != nil:
			if c := b.CreatedAt.Compare(*a.CreatedAt); c != 0 {
				return c
			}
			return strings.Compare(b.ID, a.ID)
		case a.CreatedAt != nil:
			return -1
		case b.CreatedAt != nil:
			return 1
		default:
			return cmp.Compare(arrival[a.ID], arrival[b.ID])
		}
	})
}
