package remote

import (
	"context"
	"encoding/json"
)

// Document is one remote document: its store-assigned ID and its raw
// field payload, decoded further by the codec.
type Document struct {
	ID   string
	Data json.RawMessage
}

// ListFilter is a server-side equality filter for list queries.
type ListFilter struct {
	Field  string
	Equals string
}

// DocumentStore is the narrow interface this core needs from the remote
// store. 2xx responses are success; a conflict on create surfaces as
// ErrConflict and a missing document as ErrNotFound so callers can apply
// idempotent-retry semantics.
type DocumentStore interface {
	// CreateDocument creates a document with the given ID and fields.
	CreateDocument(ctx context.Context, collection, id string, data any) error

	// UpdateDocument replaces the fields of an existing document.
	UpdateDocument(ctx context.Context, collection, id string, data any) error

	// DeleteDocument removes a document.
	DeleteDocument(ctx context.Context, collection, id string) error

	// ListDocuments returns up to limit documents, optionally filtered
	// server-side. Filtered-query support is not guaranteed reliable in
	// the backing store; callers must be prepared to fall back to an
	// unfiltered list.
	ListDocuments(ctx context.Context, collection string, filter *ListFilter, limit int) ([]Document, error)
}

// TokenSource supplies the opaque bearer credential attached to every
// request. Implementations are external to this core; an empty token is
// a precondition failure (ErrNotAuthenticated), not a retryable error.
type TokenSource interface {
	Token(ctx context.Context) (string, error)
}

// StaticTokenSource is a TokenSource returning a fixed credential,
// typically loaded from configuration.
type StaticTokenSource string

// Token implements the TokenSource interface.
func (s StaticTokenSource) Token(context.Context) (string, error) {
	if s == "" {
		return "", ErrNotAuthenticated
	}
	return string(s), nil
}
