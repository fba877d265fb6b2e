package apiclient

import (
	"context"
	"net/http"
	"net/url"

	"github.com/noah-isme/academy-admin/internal/models"
)

// Resource exposes the CRUD verbs of one collection endpoint.
type Resource[T any] struct {
	client *Client
	path   string
}

// NewResource binds a collection path such as "/categories".
func NewResource[T any](client *Client, path string) Resource[T] {
	return Resource[T]{client: client, path: path}
}

// Path returns the collection path.
func (r Resource[T]) Path() string { return r.path }

// List fetches the full collection.
func (r Resource[T]) List(ctx context.Context, creds Credentials) ([]T, error) {
	var out []T
	if err := r.client.Do(ctx, creds, http.MethodGet, r.path, nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// Get fetches one record.
func (r Resource[T]) Get(ctx context.Context, creds Credentials, id string) (T, error) {
	var out T
	err := r.client.Do(ctx, creds, http.MethodGet, r.itemPath(id), nil, &out)
	return out, err
}

// Create posts a new record. The API assigns its id.
func (r Resource[T]) Create(ctx context.Context, creds Credentials, payload Payload) (T, error) {
	var out T
	err := r.client.Do(ctx, creds, http.MethodPost, r.path, payload, &out)
	return out, err
}

// Update replaces the editable fields of a record.
func (r Resource[T]) Update(ctx context.Context, creds Credentials, id string, payload Payload) (T, error) {
	var out T
	err := r.client.Do(ctx, creds, http.MethodPut, r.itemPath(id), payload, &out)
	return out, err
}

// Delete removes a record. Dependent records are removed by the API.
func (r Resource[T]) Delete(ctx context.Context, creds Credentials, id string) error {
	return r.client.Do(ctx, creds, http.MethodDelete, r.itemPath(id), nil, nil)
}

func (r Resource[T]) itemPath(id string) string {
	return r.path + "/" + url.PathEscape(id)
}

// Users returns the users endpoint.
func (c *Client) Users() Resource[models.User] {
	return NewResource[models.User](c, "/users")
}

// Categories returns the categories endpoint.
func (c *Client) Categories() Resource[models.Category] {
	return NewResource[models.Category](c, "/categories")
}

// Subcategories returns the subcategories endpoint.
func (c *Client) Subcategories() Resource[models.Subcategory] {
	return NewResource[models.Subcategory](c, "/subcategories")
}

// Items returns the items endpoint.
func (c *Client) Items() Resource[models.Item] {
	return NewResource[models.Item](c, "/items")
}

// ListActivity fetches the activity log in server order.
func (c *Client) ListActivity(ctx context.Context, creds Credentials) ([]models.ActivityLogEntry, error) {
	var out []models.ActivityLogEntry
	if err := c.Do(ctx, creds, http.MethodGet, "/activity-logs", nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}
