package api

import (
	"context"
	"fmt"
	"net/http"
	"strconv"
)

// resource implements Resource[T] over the "<path>/list", "/find-by-id",
// "/add", "/update-by-id" and "/delete-by-id" endpoints.
type resource[T any] struct {
	client *Client
	path   string
	noun   string
	plural string
	// body turns an entity into the request payload and enforces local preconditions
	body func(*T) (any, error)
}

func newResource[T any](c *Client, path, noun, plural string) resource[T] {
	return resource[T]{
		client: c,
		path:   path,
		noun:   noun,
		plural: plural,
		body:   func(v *T) (any, error) { return v, nil },
	}
}

func (r resource[T]) byID(op string, id int64) string {
	return r.path + "/" + op + "/" + strconv.FormatInt(id, 10)
}

// List retrieves every entity
func (r resource[T]) List(ctx context.Context) ([]T, error) {
	var out []T
	err := r.client.do(ctx, call{
		method:   http.MethodGet,
		path:     r.path + "/list",
		auth:     true,
		fallback: fmt.Sprintf("Could not list %s.", r.plural),
	}, &out)
	if err != nil {
		return nil, err
	}
	return out, nil
}

// Find retrieves one entity by identifier
func (r resource[T]) Find(ctx context.Context, id int64) (*T, error) {
	if err := requireID(r.noun+" id", id); err != nil {
		return nil, err
	}

	var out T
	err := r.client.do(ctx, call{
		method:   http.MethodGet,
		path:     r.byID("find-by-id", id),
		auth:     true,
		fallback: fmt.Sprintf("Could not find %s %d.", r.noun, id),
	}, &out)
	if err != nil {
		return nil, err
	}
	return &out, nil
}

// Create stores a new entity
func (r resource[T]) Create(ctx context.Context, v *T) (*T, error) {
	if v == nil {
		return nil, invalid(r.noun, "is required")
	}
	payload, err := r.body(v)
	if err != nil {
		return nil, err
	}

	var out T
	err = r.client.do(ctx, call{
		method:   http.MethodPost,
		path:     r.path + "/add",
		body:     payload,
		auth:     true,
		accept:   statusCreated,
		fallback: fmt.Sprintf("Could not create %s.", r.noun),
	}, &out)
	if err != nil {
		return nil, err
	}
	return &out, nil
}

// Update replaces the entity with the given identifier
func (r resource[T]) Update(ctx context.Context, id int64, v *T) (*T, error) {
	if err := requireID(r.noun+" id", id); err != nil {
		return nil, err
	}
	if v == nil {
		return nil, invalid(r.noun, "is required")
	}
	payload, err := r.body(v)
	if err != nil {
		return nil, err
	}

	var out T
	err = r.client.do(ctx, call{
		method:   http.MethodPut,
		path:     r.byID("update-by-id", id),
		body:     payload,
		auth:     true,
		fallback: fmt.Sprintf("Could not update %s %d.", r.noun, id),
	}, &out)
	if err != nil {
		return nil, err
	}
	return &out, nil
}

// Delete removes the entity with the given identifier
func (r resource[T]) Delete(ctx context.Context, id int64) error {
	if err := requireID(r.noun+" id", id); err != nil {
		return err
	}

	return r.client.do(ctx, call{
		method:   http.MethodDelete,
		path:     r.byID("delete-by-id", id),
		auth:     true,
		fallback: fmt.Sprintf("Could not delete %s %d.", r.noun, id),
	}, nil)
}

// listBy runs a GET returning a list of T
func (r resource[T]) listBy(ctx context.Context, cl call) ([]T, error) {
	cl.method = http.MethodGet
	cl.auth = true
	var out []T
	if err := r.client.do(ctx, cl, &out); err != nil {
		return nil, err
	}
	return out, nil
}
