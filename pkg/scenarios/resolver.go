package scenarios

import (
	"context"
	"errors"
	"fmt"
)

// Resolver applies the public-before-private lookup order and owner scoping
type Resolver struct {
	store Store
	cache *DocumentCache
}

// NewResolver creates a resolver; cache may be nil
func NewResolver(store Store, cache *DocumentCache) *Resolver {
	return &Resolver{store: store, cache: cache}
}

// ResolveByID returns the public scenario with id, or else the requester's
// private scenario with id. The first match wins.
func (r *Resolver) ResolveByID(ctx context.Context, id string, requester int64) (Document, error) {
	if id == "" {
		return nil, ErrNotFound
	}

	doc, err := r.FindPublic(ctx, id)
	if err == nil {
		return doc, nil
	}
	if !errors.Is(err, ErrNotFound) {
		return nil, err
	}

	return r.FindPrivate(ctx, id, requester)
}

// FindPublic returns the public scenario with id
func (r *Resolver) FindPublic(ctx context.Context, id string) (Document, error) {
	if r.cache != nil {
		if doc, ok := r.cache.Get(id); ok {
			return doc, nil
		}
	}

	doc, err := r.store.FindPublic(ctx, id)
	if err != nil {
		return nil, wrapStoreErr("find public scenario", err)
	}

	if r.cache != nil {
		r.cache.Add(id, doc)
	}
	return doc, nil
}

// FindPrivate returns owner's private scenario with id
func (r *Resolver) FindPrivate(ctx context.Context, id string, owner int64) (Document, error) {
	doc, err := r.store.FindPrivate(ctx, id, OwnerKey(owner))
	if err != nil {
		return nil, wrapStoreErr("find private scenario", err)
	}
	return doc, nil
}

// ListPublicMetadata returns summaries of every public scenario
func (r *Resolver) ListPublicMetadata(ctx context.Context) ([]Document, error) {
	return r.ListPublicByModel(ctx, "")
}

// ListPrivateMetadata returns summaries of owner's private scenarios
func (r *Resolver) ListPrivateMetadata(ctx context.Context, owner int64) ([]Document, error) {
	return r.ListPrivateByModel(ctx, "", owner)
}

// ListPublicByModel returns summaries of the public scenarios of modelID
func (r *Resolver) ListPublicByModel(ctx context.Context, modelID string) ([]Document, error) {
	docs, err := r.store.ListPublic(ctx, modelID)
	if err != nil {
		return nil, wrapStoreErr("list public scenarios", err)
	}
	return summarize(docs, false), nil
}

// ListPrivateByModel returns summaries of owner's private scenarios of modelID
func (r *Resolver) ListPrivateByModel(ctx context.Context, modelID string, owner int64) ([]Document, error) {
	docs, err := r.store.ListPrivate(ctx, OwnerKey(owner), modelID)
	if err != nil {
		return nil, wrapStoreErr("list private scenarios", err)
	}
	return summarize(docs, true), nil
}

// DeleteOwned deletes owner's private scenario with id. A scenario owned by
// someone else reports ErrNotFound and is left in place.
func (r *Resolver) DeleteOwned(ctx context.Context, id string, owner int64) error {
	deleted, err := r.store.DeletePrivate(ctx, id, OwnerKey(owner))
	if err != nil {
		return wrapStoreErr("delete private scenario", err)
	}
	if !deleted {
		return ErrNotFound
	}
	return nil
}

// FilterOutputs returns the named outputs of each listed scenario. With a nil
// owner the public space is searched; otherwise only owner's private scenarios
// can match.
func (r *Resolver) FilterOutputs(ctx context.Context, ids, names []string, owner *int64) ([]OutputGroup, error) {
	if len(ids) == 0 || len(names) == 0 {
		return nil, ErrMissingInput
	}

	var ownerKey *string
	if owner != nil {
		key := OwnerKey(*owner)
		ownerKey = &key
	}

	groups, err := r.store.FilterOutputs(ctx, ids, names, ownerKey)
	if err != nil {
		return nil, wrapStoreErr("filter scenario outputs", err)
	}
	return groups, nil
}

func summarize(docs []Document, dropOwner bool) []Document {
	out := make([]Document, 0, len(docs))
	for _, doc := range docs {
		out = append(out, doc.Summary(dropOwner))
	}
	return out
}

func wrapStoreErr(op string, err error) error {
	if errors.Is(err, ErrNotFound) {
		return ErrNotFound
	}
	return fmt.Errorf("%s: %w", op, err)
}
