package remote

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"time"
)

// ClientConfig holds the connection settings for an Appwrite-compatible
// document store.
type ClientConfig struct {
	Endpoint   string
	ProjectID  string
	DatabaseID string

	// HTTPTimeout is a transport-level ceiling; individual submissions
	// additionally carry their own context deadline.
	HTTPTimeout time.Duration
}

// Client talks to an Appwrite-compatible document REST API. It
// implements the DocumentStore interface.
type Client struct {
	cfg    ClientConfig
	tokens TokenSource
	http   *http.Client
	logger *slog.Logger
}

// Compile-time interface check.
var _ DocumentStore = (*Client)(nil)

// NewClient creates a document store client.
// Returns an error if any required setting or dependency is missing.
func NewClient(cfg ClientConfig, tokens TokenSource, logger *slog.Logger) (*Client, error) {
	if cfg.Endpoint == "" {
		return nil, errors.New("endpoint cannot be empty")
	}
	if cfg.ProjectID == "" {
		return nil, errors.New("project ID cannot be empty")
	}
	if cfg.DatabaseID == "" {
		return nil, errors.New("database ID cannot be empty")
	}
	if tokens == nil {
		return nil, errors.New("token source cannot be nil")
	}
	if cfg.HTTPTimeout <= 0 {
		cfg.HTTPTimeout = 30 * time.Second
	}
	if logger == nil {
		logger = slog.Default()
	}

	return &Client{
		cfg:    cfg,
		tokens: tokens,
		http:   &http.Client{Timeout: cfg.HTTPTimeout},
		logger: logger.With(slog.String("component", "document_store")),
	}, nil
}

// createRequest is the envelope the store expects for document creation.
type createRequest struct {
	DocumentID string `json:"documentId"`
	Data       any    `json:"data"`
}

// updateRequest is the envelope for document updates.
type updateRequest struct {
	Data any `json:"data"`
}

// documentEnvelope is one element of a list response.
type documentEnvelope struct {
	ID   string          `json:"$id"`
	Data json.RawMessage `json:"data"`
}

// listResponse is the body of a list query.
type listResponse struct {
	Total     int                `json:"total"`
	Documents []documentEnvelope `json:"documents"`
}

// errorResponse is the body the store returns on failure.
type errorResponse struct {
	Message string `json:"message"`
}

// CreateDocument implements the DocumentStore interface.
func (c *Client) CreateDocument(ctx context.Context, collection, id string, data any) error {
	body := createRequest{DocumentID: id, Data: data}
	resp, raw, err := c.do(ctx, http.MethodPost, c.documentsURL(collection), body)
	if err != nil {
		return err
	}

	switch {
	case resp.StatusCode == http.StatusConflict:
		return fmt.Errorf("create %s/%s: %w", collection, id, ErrConflict)
	case resp.StatusCode >= 200 && resp.StatusCode < 300:
		return nil
	default:
		return c.storeError("create", resp.StatusCode, raw)
	}
}

// UpdateDocument implements the DocumentStore interface.
func (c *Client) UpdateDocument(ctx context.Context, collection, id string, data any) error {
	body := updateRequest{Data: data}
	resp, raw, err := c.do(ctx, http.MethodPatch, c.documentURL(collection, id), body)
	if err != nil {
		return err
	}

	switch {
	case resp.StatusCode == http.StatusNotFound:
		return fmt.Errorf("update %s/%s: %w", collection, id, ErrNotFound)
	case resp.StatusCode >= 200 && resp.StatusCode < 300:
		return nil
	default:
		return c.storeError("update", resp.StatusCode, raw)
	}
}

// DeleteDocument implements the DocumentStore interface.
func (c *Client) DeleteDocument(ctx context.Context, collection, id string) error {
	resp, raw, err := c.do(ctx, http.MethodDelete, c.documentURL(collection, id), nil)
	if err != nil {
		return err
	}

	switch {
	case resp.StatusCode == http.StatusNotFound:
		return fmt.Errorf("delete %s/%s: %w", collection, id, ErrNotFound)
	case resp.StatusCode >= 200 && resp.StatusCode < 300:
		return nil
	default:
		return c.storeError("delete", resp.StatusCode, raw)
	}
}

// ListDocuments implements the DocumentStore interface.
func (c *Client) ListDocuments(
	ctx context.Context,
	collection string,
	filter *ListFilter,
	limit int,
) ([]Document, error) {
	u, err := url.Parse(c.documentsURL(collection))
	if err != nil {
		return nil, fmt.Errorf("building list URL: %w", err)
	}

	query := u.Query()
	if filter != nil {
		query.Add("queries[]", fmt.Sprintf("equal(%q,%q)", filter.Field, filter.Equals))
	}
	if limit > 0 {
		query.Add("limit", fmt.Sprintf("%d", limit))
	}
	u.RawQuery = query.Encode()

	resp, raw, err := c.do(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return nil, err
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, c.storeError("list", resp.StatusCode, raw)
	}

	var parsed listResponse
	if err := json.Unmarshal(raw, &parsed); err != nil {
		return nil, fmt.Errorf("parsing list response: %w", err)
	}

	docs := make([]Document, 0, len(parsed.Documents))
	for _, env := range parsed.Documents {
		docs = append(docs, Document{ID: env.ID, Data: env.Data})
	}
	return docs, nil
}

// do executes one request with auth headers and returns the response
// plus its fully-read body.
func (c *Client) do(ctx context.Context, method, rawURL string, body any) (*http.Response, []byte, error) {
	token, err := c.tokens.Token(ctx)
	if err != nil {
		return nil, nil, err
	}
	if token == "" {
		return nil, nil, ErrNotAuthenticated
	}

	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return nil, nil, fmt.Errorf("encoding request body: %w", err)
		}
		reader = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, rawURL, reader)
	if err != nil {
		return nil, nil, fmt.Errorf("building request: %w", err)
	}

	req.Header.Set("Accept", "application/json")
	req.Header.Set("X-Appwrite-Project", c.cfg.ProjectID)
	req.Header.Set("Authorization", "Bearer "+token)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, nil, fmt.Errorf("%s %s: %w", method, rawURL, err)
	}
	defer func() { _ = resp.Body.Close() }()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, nil, fmt.Errorf("reading response body: %w", err)
	}

	return resp, raw, nil
}

// storeError builds a StoreError from a failure response, extracting the
// store's message when the body is parseable.
func (c *Client) storeError(operation string, statusCode int, raw []byte) error {
	message := "unknown error"
	var parsed errorResponse
	if err := json.Unmarshal(raw, &parsed); err == nil && parsed.Message != "" {
		message = parsed.Message
	}

	c.logger.Debug("document store error",
		slog.String("operation", operation),
		slog.Int("status_code", statusCode),
		slog.String("message", message))

	return &StoreError{Operation: operation, StatusCode: statusCode, Message: message}
}

func (c *Client) documentsURL(collection string) string {
	return fmt.Sprintf("%s/databases/%s/collections/%s/documents",
		c.cfg.Endpoint, c.cfg.DatabaseID, collection)
}

func (c *Client) documentURL(collection, id string) string {
	return c.documentsURL(collection) + "/" + id
}
