package nuxeo

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"reflect"
)

// Entity is implemented by every resource model the server understands.
// The marker is unexported on purpose: the set of entity types is fixed by
// the wire protocol, and arbitrary payloads go through plain maps instead.
type Entity interface {
	entityType() string
}

// identified is implemented by models that know their server-side ID, so
// put can derive the resource path from the resource itself.
type identified interface {
	entityID() string
}

// endpoint maps one logical resource path to the CRUD verbs, carrying the
// default headers sent with every call on the resource.
type endpoint struct {
	client  *Client
	path    string
	headers map[string]string
}

// newEndpoint mounts a resource below the configured API path. An empty
// resource addresses the API root itself (documents use id/... and path/...
// segments directly under it).
func newEndpoint(c *Client, resource string) endpoint {
	path := c.config.APIPath
	if resource != "" {
		path += "/" + resource
	}
	return endpoint{client: c, path: path}
}

// newRootEndpoint mounts a resource directly below the base URL, for
// endpoints that live outside the REST API path (site/automation).
func newRootEndpoint(c *Client, path string) endpoint {
	return endpoint{client: c, path: path}
}

func (e endpoint) url(path string) string {
	if path == "" {
		return e.path
	}
	return e.path + "/" + path
}

func (e endpoint) requestOpts(opts []RequestOption) []RequestOption {
	if len(e.headers) == 0 {
		return opts
	}
	return append([]RequestOption{WithHeaders(e.headers)}, opts...)
}

// get fetches one or more resources. With a nil out the body is discarded;
// an empty or 204 body leaves out untouched. List targets transparently
// accept the server's {"entries": [...]} envelope.
func (e endpoint) get(ctx context.Context, path string, out interface{}, opts ...RequestOption) error {
	resp, err := e.client.Request(ctx, http.MethodGet, e.url(path), e.requestOpts(opts)...)
	if err != nil {
		return err
	}
	if out == nil || resp.Status == http.StatusNoContent || len(resp.Body) == 0 {
		return nil
	}
	return unmarshalEntity(resp.Body, out)
}

// getRaw fetches the raw response bytes, bypassing JSON parsing.
func (e endpoint) getRaw(ctx context.Context, path string, opts ...RequestOption) ([]byte, error) {
	resp, err := e.client.Request(ctx, http.MethodGet, e.url(path), e.requestOpts(opts)...)
	if err != nil {
		return nil, err
	}
	return resp.Body, nil
}

// post creates a resource. The payload must be a typed entity or a plain
// map; anything else is rejected with BadQueryError before any I/O.
func (e endpoint) post(ctx context.Context, path string, resource, out interface{}, opts ...RequestOption) error {
	body, err := marshalResource(resource)
	if err != nil {
		return err
	}

	callOpts := e.requestOpts(opts)
	if body != nil {
		callOpts = append(callOpts, WithJSONBody(body))
	}

	resp, err := e.client.Request(ctx, http.MethodPost, e.url(path), callOpts...)
	if err != nil {
		return err
	}
	if out == nil || len(resp.Body) == 0 {
		return nil
	}
	return unmarshalEntity(resp.Body, out)
}

// put updates a resource in place. With an empty path the resource must
// know its own ID.
func (e endpoint) put(ctx context.Context, path string, resource Entity, out interface{}, opts ...RequestOption) error {
	if path == "" {
		id, ok := resource.(identified)
		if !ok || id.entityID() == "" {
			return &BadQueryError{Reason: "resource has no identifier and no path was given"}
		}
		path = id.entityID()
	}

	callOpts := append(e.requestOpts(opts), WithJSONBody(resource))
	resp, err := e.client.Request(ctx, http.MethodPut, e.url(path), callOpts...)
	if err != nil {
		return err
	}
	if out == nil || len(resp.Body) == 0 {
		return nil
	}
	return unmarshalEntity(resp.Body, out)
}

// delete removes a resource. Fire and forget: the response body is
// discarded.
func (e endpoint) delete(ctx context.Context, id string, opts ...RequestOption) error {
	_, err := e.client.Request(ctx, http.MethodDelete, e.url(id), e.requestOpts(opts)...)
	return err
}

// exists probes a resource path. A 404 is a negative answer, not an
// error; any other failure propagates.
func (e endpoint) exists(ctx context.Context, path string) (bool, error) {
	_, err := e.client.Request(ctx, http.MethodGet, e.url(path))
	if err == nil {
		return true, nil
	}

	var httpErr *HTTPError
	if errors.As(err, &httpErr) && httpErr.Status == http.StatusNotFound {
		return false, nil
	}
	return false, err
}

// marshalResource vets a POST payload: typed entities and plain maps pass
// through, everything else is a BadQueryError. A nil resource means an
// empty body.
func marshalResource(resource interface{}) (interface{}, error) {
	if resource == nil {
		return nil, nil
	}
	if _, ok := resource.(Entity); ok {
		return resource, nil
	}
	if reflect.ValueOf(resource).Kind() == reflect.Map {
		return resource, nil
	}
	return nil, &BadQueryError{Reason: "data must be a model entity or a plain map"}
}

// unmarshalEntity decodes a server entity into out. When out is a pointer
// to a slice, a {"entries": [...]} envelope is unwrapped first; single
// entities (including ones that themselves carry an "entries" field, like
// directories) decode as-is because their target is a struct.
func unmarshalEntity(data []byte, out interface{}) error {
	rv := reflect.ValueOf(out)
	if rv.Kind() == reflect.Pointer && rv.Elem().Kind() == reflect.Slice {
		var envelope struct {
			Entries json.RawMessage `json:"entries"`
		}
		if err := json.Unmarshal(data, &envelope); err == nil && envelope.Entries != nil {
			data = envelope.Entries
		}
	}
	return json.Unmarshal(data, out)
}
