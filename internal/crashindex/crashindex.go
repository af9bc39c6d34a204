// Package crashindex keeps a per-owner chromem-go vector collection of past
// crash summaries, so the AI-analysis variant (internal/aianalysis) can
// retrieve similar prior crashes as context. Grounded on the teacher's
// index/search.go collection.Query usage, generalized from source chunks
// to crash summaries.
package crashindex

import (
	"context"
	"sync"

	"github.com/philippgille/chromem-go"

	"github.com/tonyredondo/debugger-mcp-server-sub012/internal/errkind"
)

// Entry is one indexed crash summary.
type Entry struct {
	DumpID      string
	CrashType   string
	TopFunction string
	Summary     string
}

// Index is a per-owner collection of crash entries, backed by one
// chromem-go collection per owner so similarity search never crosses
// owner boundaries.
type Index struct {
	db *chromem.DB

	mu          sync.Mutex
	collections map[string]*chromem.Collection
}

// New constructs an in-memory Index. Production wiring may instead open a
// persistent DB at a configured path; tests use the in-memory form.
func New() *Index {
	return &Index{
		db:          chromem.NewDB(),
		collections: make(map[string]*chromem.Collection),
	}
}

func (x *Index) collectionFor(owner string) (*chromem.Collection, error) {
	x.mu.Lock()
	defer x.mu.Unlock()
	if c, ok := x.collections[owner]; ok {
		return c, nil
	}
	c, err := x.db.CreateCollection("crashes_"+owner, nil, nil)
	if err != nil {
		return nil, errkind.Wrap(errkind.KindInternal, "create crash collection", err)
	}
	x.collections[owner] = c
	return c, nil
}

// Add indexes one crash summary for owner.
func (x *Index) Add(ctx context.Context, owner string, e Entry) error {
	c, err := x.collectionFor(owner)
	if err != nil {
		return err
	}
	doc := chromem.Document{
		ID:      e.DumpID,
		Content: e.Summary,
		Metadata: map[string]string{
			"crash_type":   e.CrashType,
			"top_function": e.TopFunction,
		},
	}
	if err := c.AddDocument(ctx, doc); err != nil {
		return errkind.Wrap(errkind.KindInternal, "index crash summary", err)
	}
	return nil
}

// SimilarTo returns up to limit prior crash summaries for owner most
// similar to query, excluding dumpID itself.
func (x *Index) SimilarTo(ctx context.Context, owner, dumpID, query string, limit int) ([]Entry, error) {
	c, err := x.collectionFor(owner)
	if err != nil {
		return nil, err
	}
	if c.Count() == 0 {
		return nil, nil
	}
	n := limit + 1
	if n > c.Count() {
		n = c.Count()
	}
	results, err := c.Query(ctx, query, n, nil, nil)
	if err != nil {
		return nil, errkind.Wrap(errkind.KindInternal, "query crash index", err)
	}
	out := make([]Entry, 0, limit)
	for _, r := range results {
		if r.ID == dumpID {
			continue
		}
		out = append(out, Entry{
			DumpID:      r.ID,
			CrashType:   r.Metadata["crash_type"],
			TopFunction: r.Metadata["top_function"],
			Summary:     r.Content,
		})
		if len(out) >= limit {
			break
		}
	}
	return out, nil
}

// Count reports how many crash summaries are indexed for owner.
func (x *Index) Count(owner string) int {
	x.mu.Lock()
	c, ok := x.collections[owner]
	x.mu.Unlock()
	if !ok {
		return 0
	}
	return c.Count()
}
