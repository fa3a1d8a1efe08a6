package nuxeo

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"hash"
	"io"
	"mime/multipart"
	"net/http"
	"net/textproto"
	"reflect"
	"strings"
	"sync"
	"time"

	"github.com/hashicorp/go-hclog"
	"github.com/hashicorp/go-multierror"
)

// automationContentType asks the automation endpoint for a JSON execution
// request instead of a plain document body.
const automationContentType = "application/json+nxrequest"

// voidOperationHeader tells the server not to send the operation result
// back, sparing the transfer of blobs nobody reads.
const voidOperationHeader = "X-NXVoidOperation"

// docRef builds an automation input reference for a single document.
func docRef(uid string) string { return "doc:" + uid }

// docsRef builds an automation input reference for several documents.
func docsRef(uids []string) string { return "docs:" + strings.Join(uids, ",") }

// Operation is one automation call under construction: the command name,
// its input, and its parameters. Build one with OperationsAPI.New, fill it
// in, then run it with Execute.
type Operation struct {
	Command string
	Input   interface{}
	Params  map[string]interface{}
	Context map[string]interface{}
}

// OperationParam describes one parameter of a registered operation.
type OperationParam struct {
	Name     string   `json:"name"`
	Type     string   `json:"type"`
	Required bool     `json:"required"`
	Values   []string `json:"values"`
}

// OperationDescriptor is one operation (or chain) from the server's
// automation registry.
type OperationDescriptor struct {
	ID          string           `json:"id"`
	Label       string           `json:"label"`
	Category    string           `json:"category"`
	Description string           `json:"description"`
	Signature   []string         `json:"signature"`
	Aliases     []string         `json:"aliases"`
	Params      []OperationParam `json:"params"`
}

// OperationsAPI executes server-side automation operations and chains.
type OperationsAPI struct {
	endpoint
	logger hclog.Logger

	mu       sync.Mutex
	registry map[string]OperationDescriptor
}

func newOperationsAPI(c *Client) *OperationsAPI {
	return &OperationsAPI{
		endpoint: newRootEndpoint(c, "site/automation"),
		logger:   c.logger.Named("operations"),
	}
}

// New builds an empty operation for the given command.
func (a *OperationsAPI) New(command string) *Operation {
	return &Operation{
		Command: command,
		Params:  map[string]interface{}{},
	}
}

// Registry returns the server's operation registry, fetched once and
// cached. Chains are folded in alongside plain operations, and aliases
// resolve to the same descriptor as the canonical id.
func (a *OperationsAPI) Registry(ctx context.Context) (map[string]OperationDescriptor, error) {
	a.mu.Lock()
	defer a.mu.Unlock()

	if a.registry != nil {
		return a.registry, nil
	}

	var listing struct {
		Operations []OperationDescriptor `json:"operations"`
		Chains     []OperationDescriptor `json:"chains"`
	}
	if err := a.get(ctx, "", &listing); err != nil {
		return nil, fmt.Errorf("failed to fetch operation registry: %w", err)
	}

	registry := make(map[string]OperationDescriptor, len(listing.Operations)+len(listing.Chains))
	for _, descriptors := range [][]OperationDescriptor{listing.Operations, listing.Chains} {
		for _, desc := range descriptors {
			registry[desc.ID] = desc
			for _, alias := range desc.Aliases {
				registry[alias] = desc
			}
		}
	}

	a.registry = registry
	a.logger.Debug("fetched operation registry", "operations", len(registry))
	return registry, nil
}

// CheckParams validates an operation's parameters against the server
// registry: the command must exist, every parameter must be declared,
// required parameters must be present, and values must match the declared
// types. All violations are reported together in one BadQueryError.
func (a *OperationsAPI) CheckParams(ctx context.Context, op *Operation) error {
	registry, err := a.Registry(ctx)
	if err != nil {
		return err
	}

	desc, ok := registry[op.Command]
	if !ok {
		return &BadQueryError{Reason: fmt.Sprintf("%q is not a registered operation", op.Command)}
	}

	declared := make(map[string]OperationParam, len(desc.Params))
	for _, param := range desc.Params {
		declared[param.Name] = param
	}

	var violations *multierror.Error
	for name, value := range op.Params {
		param, ok := declared[name]
		if !ok {
			violations = multierror.Append(violations,
				fmt.Errorf("unexpected parameter %q for operation %s", name, desc.ID))
			continue
		}
		if value == nil {
			continue
		}
		if !paramTypeMatches(param.Type, value) {
			violations = multierror.Append(violations,
				fmt.Errorf("parameter %q expects type %s, got %T", name, param.Type, value))
		}
	}
	for _, param := range desc.Params {
		if !param.Required {
			continue
		}
		if _, ok := op.Params[param.Name]; !ok {
			violations = multierror.Append(violations,
				fmt.Errorf("missing required parameter %q for operation %s", param.Name, desc.ID))
		}
	}

	if err := violations.ErrorOrNil(); err != nil {
		return &BadQueryError{
			Reason: fmt.Sprintf("invalid parameters for operation %s", desc.ID),
			Err:    err,
		}
	}
	return nil
}

// paramTypeMatches reports whether a value is acceptable for a declared
// automation parameter type. Unknown types pass: the server is the
// authority on its own registry.
func paramTypeMatches(declared string, value interface{}) bool {
	kind := reflect.ValueOf(value).Kind()

	switch declared {
	case "string", "resource", "validationmethod":
		_, ok := value.(string)
		return ok
	case "boolean":
		_, ok := value.(bool)
		return ok
	case "int", "integer", "long":
		return isIntKind(kind)
	case "float", "double":
		return kind == reflect.Float32 || kind == reflect.Float64 || isIntKind(kind)
	case "date":
		if _, ok := value.(string); ok {
			return true
		}
		_, ok := value.(time.Time)
		return ok
	case "list":
		return kind == reflect.Slice || kind == reflect.Array
	case "stringlist":
		if _, ok := value.(string); ok {
			return true
		}
		return kind == reflect.Slice || kind == reflect.Array
	case "blob":
		switch value.(type) {
		case BlobSource, *Blob, string:
			return true
		}
		return false
	case "document":
		switch value.(type) {
		case string, *Document:
			return true
		}
		return false
	case "documents":
		if _, ok := value.(string); ok {
			return true
		}
		return kind == reflect.Slice || kind == reflect.Array
	case "properties", "map":
		return kind == reflect.Map
	case "serializable":
		if _, ok := value.(string); ok {
			return true
		}
		return kind == reflect.Slice || kind == reflect.Array
	case "object":
		return true
	default:
		return true
	}
}

func isIntKind(kind reflect.Kind) bool {
	switch kind {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64,
		reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		return true
	}
	return false
}

// executionRequest is the wire body of an automation call.
type executionRequest struct {
	Params  map[string]interface{} `json:"params,omitempty"`
	Context map[string]interface{} `json:"context,omitempty"`
	Input   string                 `json:"input,omitempty"`
}

// Execute runs an operation and decodes its result into out. A nil out
// marks the call void, so the server skips sending the result back.
// Blob inputs go up as a multipart/related request alongside the
// execution body.
func (a *OperationsAPI) Execute(ctx context.Context, op *Operation, out interface{}) error {
	resp, err := a.execute(ctx, op, out == nil)
	if err != nil {
		return err
	}
	if out == nil || len(resp.Body) == 0 {
		return nil
	}
	return unmarshalEntity(resp.Body, out)
}

// ExecuteTo runs an operation and streams its raw result into w. When a
// digest is given the result is verified against it and a mismatch is an
// error.
func (a *OperationsAPI) ExecuteTo(ctx context.Context, op *Operation, w io.Writer, digest string) (int64, error) {
	resp, err := a.execute(ctx, op, false)
	if err != nil {
		return 0, err
	}

	var hasher hash.Hash
	var algorithm string
	if digest != "" {
		hasher, algorithm = DigesterFromDigest(digest)
		if hasher == nil {
			return 0, &BadQueryError{Reason: fmt.Sprintf("no digester matches digest %q", digest)}
		}
	}

	n, err := w.Write(resp.Body)
	if err != nil {
		return int64(n), fmt.Errorf("failed to write operation result: %w", err)
	}

	if hasher != nil {
		hasher.Write(resp.Body)
		if computed := fmt.Sprintf("%x", hasher.Sum(nil)); computed != digest {
			return int64(n), fmt.Errorf("%s digest mismatch: expected %s, computed %s", algorithm, digest, computed)
		}
	}
	return int64(n), nil
}

func (a *OperationsAPI) execute(ctx context.Context, op *Operation, void bool) (*Response, error) {
	if a.client.config.CheckParams {
		if err := a.CheckParams(ctx, op); err != nil {
			return nil, err
		}
	}

	request := executionRequest{Context: op.Context}
	if len(op.Params) > 0 {
		request.Params = op.Params
	}

	var blob BlobSource
	switch input := op.Input.(type) {
	case nil:
	case string:
		request.Input = input
	case *Document:
		request.Input = docRef(input.UID)
	case []*Document:
		uids := make([]string, len(input))
		for i, doc := range input {
			uids[i] = doc.UID
		}
		request.Input = docsRef(uids)
	case []string:
		request.Input = docsRef(input)
	case BlobSource:
		blob = input
	default:
		return nil, &BadQueryError{Reason: fmt.Sprintf("unsupported operation input type %T", op.Input)}
	}

	var opts []RequestOption
	if void {
		opts = append(opts, WithHeader(voidOperationHeader, "true"))
	}

	if blob != nil {
		body, contentType, err := multipartExecution(request, blob)
		if err != nil {
			return nil, err
		}
		opts = append(opts, WithRawBody(body, contentType))
	} else {
		encoded, err := json.Marshal(request)
		if err != nil {
			return nil, fmt.Errorf("failed to encode execution request: %w", err)
		}
		opts = append(opts, WithRawBody(bytes.NewReader(encoded), automationContentType))
	}

	a.logger.Debug("executing operation", "command", op.Command)
	return a.client.Request(ctx, http.MethodPost, a.url(op.Command), opts...)
}

// multipartExecution packs the execution request and a blob input into a
// multipart/related body, the way the automation endpoint expects file
// inputs. The blob is closed before returning, success or not.
func multipartExecution(request executionRequest, blob BlobSource) (io.Reader, string, error) {
	defer blob.Close()

	var buf bytes.Buffer
	writer := multipart.NewWriter(&buf)

	requestHeader := textproto.MIMEHeader{}
	requestHeader.Set("Content-Type", "application/json; charset=UTF-8")
	requestHeader.Set("Content-Transfer-Encoding", "8bit")
	part, err := writer.CreatePart(requestHeader)
	if err != nil {
		return nil, "", fmt.Errorf("failed to build execution part: %w", err)
	}
	if err := writeJSON(part, request); err != nil {
		return nil, "", err
	}

	blobHeader := textproto.MIMEHeader{}
	blobHeader.Set("Content-Type", blob.BlobMimeType())
	blobHeader.Set("Content-Transfer-Encoding", "binary")
	blobHeader.Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", blob.BlobName()))
	part, err = writer.CreatePart(blobHeader)
	if err != nil {
		return nil, "", fmt.Errorf("failed to build blob part: %w", err)
	}

	data, err := blob.Data()
	if err != nil {
		return nil, "", fmt.Errorf("failed to open blob %s: %w", blob.BlobName(), err)
	}
	if _, err := io.Copy(part, data); err != nil {
		return nil, "", fmt.Errorf("failed to copy blob %s: %w", blob.BlobName(), err)
	}

	if err := writer.Close(); err != nil {
		return nil, "", fmt.Errorf("failed to finish multipart body: %w", err)
	}

	contentType := strings.Replace(writer.FormDataContentType(), "multipart/form-data", "multipart/related", 1)
	return &buf, contentType, nil
}

func writeJSON(w io.Writer, v interface{}) error {
	encoded, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("failed to encode execution request: %w", err)
	}
	_, err = w.Write(encoded)
	return err
}
