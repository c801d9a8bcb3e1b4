package directory

import (
	"context"
	"errors"
	"fmt"

	model "github.com/peoplegrid/backend/internal/model/directory"
)

// ErrNotFound reports that no directory record matches. For a caller's own
// identity this means registration is required, not that the lookup should
// be retried.
var ErrNotFound = errors.New("directory: no matching record")

// Searcher is the directory lookup the resolver runs against, either the
// remote directory client or an in-process store wrapper.
type Searcher interface {
	Search(ctx context.Context, query string) ([]model.Participant, error)
}

// Resolver maps external identities and raw ids to directory records. The
// backing directory matches loosely, so results are filtered here for an
// exact normalized match.
type Resolver struct {
	dir Searcher
}

// NewResolver builds a resolver over the supplied directory.
func NewResolver(dir Searcher) *Resolver {
	return &Resolver{dir: dir}
}

// Resolve finds the record registered under the external identity. Matching
// is case-insensitive and ignores surrounding whitespace on both sides.
func (r *Resolver) Resolve(ctx context.Context, identity string) (model.Participant, error) {
	want := NormalizeIdentity(identity)
	if want == "" {
		return model.Participant{}, ErrNotFound
	}

	records, err := r.dir.Search(ctx, identity)
	if err != nil {
		return model.Participant{}, fmt.Errorf("resolve identity: %w", err)
	}

	for _, rec := range records {
		if NormalizeIdentity(rec.Email) == want {
			return rec, nil
		}
	}
	return model.Participant{}, ErrNotFound
}

// ResolveID finds the record with the given directory id.
func (r *Resolver) ResolveID(ctx context.Context, id string) (model.Participant, error) {
	if id == "" {
		return model.Participant{}, ErrNotFound
	}

	records, err := r.dir.Search(ctx, "")
	if err != nil {
		return model.Participant{}, fmt.Errorf("resolve id: %w", err)
	}

	for _, rec := range records {
		if rec.ID == id {
			return rec, nil
		}
	}
	return model.Participant{}, ErrNotFound
}

// StoreSearcher adapts an in-process Store to the Searcher interface so the
// resolver can run against it directly, without the HTTP hop.
type StoreSearcher struct {
	Store Store
}

// Search implements Searcher.
func (s StoreSearcher) Search(_ context.Context, query string) ([]model.Participant, error) {
	return s.Store.Search(query), nil
}
