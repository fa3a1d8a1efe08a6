package nuxeo

import (
	"context"
	"fmt"
	"net/url"
	"strings"

	"github.com/hashicorp/go-hclog"
)

// enricherHeader asks the server to enrich document responses with extra
// context parameters (acls, permissions, renditions, ...).
const enricherHeader = "enrichers.document"

// DocumentsAPI addresses repository documents by uid or path. Document
// verbs that the REST resource does not expose (lock, move, permissions)
// go through the automation endpoint.
type DocumentsAPI struct {
	endpoint
	ops    *OperationsAPI
	logger hclog.Logger
}

func newDocumentsAPI(c *Client) *DocumentsAPI {
	return &DocumentsAPI{
		endpoint: newEndpoint(c, ""),
		ops:      c.Operations,
		logger:   c.logger.Named("documents"),
	}
}

// docPath builds the repository-qualified resource path for an id or path
// reference. The default repository is addressed implicitly; any other
// repository is spelled out.
func (a *DocumentsAPI) docPath(kind, ref string) string {
	repo := a.client.repository
	if repo != "" && repo != DefaultRepository {
		return fmt.Sprintf("repo/%s/%s/%s", repo, kind, ref)
	}
	return kind + "/" + ref
}

func (a *DocumentsAPI) uidPath(uid string) string { return a.docPath("id", uid) }

// pathPath escapes each segment of a repository path, keeping the
// separators intact.
func (a *DocumentsAPI) pathPath(docPath string) string {
	segments := strings.Split(strings.Trim(docPath, "/"), "/")
	for i, segment := range segments {
		segments[i] = url.PathEscape(segment)
	}
	return a.docPath("path", strings.Join(segments, "/"))
}

func (a *DocumentsAPI) attach(doc *Document) *Document {
	if doc != nil {
		doc.api = a
	}
	return doc
}

// Get fetches a document by uid.
func (a *DocumentsAPI) Get(ctx context.Context, uid string, opts ...RequestOption) (*Document, error) {
	var doc Document
	if err := a.get(ctx, a.uidPath(uid), &doc, opts...); err != nil {
		return nil, err
	}
	return a.attach(&doc), nil
}

// GetByPath fetches a document by repository path.
func (a *DocumentsAPI) GetByPath(ctx context.Context, docPath string, opts ...RequestOption) (*Document, error) {
	var doc Document
	if err := a.get(ctx, a.pathPath(docPath), &doc, opts...); err != nil {
		return nil, err
	}
	return a.attach(&doc), nil
}

// Children lists a document's direct children.
func (a *DocumentsAPI) Children(ctx context.Context, uid string) ([]Document, error) {
	var children []Document
	if err := a.get(ctx, a.uidPath(uid)+"/@children", &children); err != nil {
		return nil, err
	}
	for i := range children {
		children[i].api = a
	}
	return children, nil
}

// Create creates a document under the parent identified by uid.
func (a *DocumentsAPI) Create(ctx context.Context, parentUID string, doc *Document) (*Document, error) {
	return a.createAt(ctx, a.uidPath(parentUID), doc)
}

// CreateByPath creates a document under the parent at the given path.
func (a *DocumentsAPI) CreateByPath(ctx context.Context, parentPath string, doc *Document) (*Document, error) {
	return a.createAt(ctx, a.pathPath(parentPath), doc)
}

func (a *DocumentsAPI) createAt(ctx context.Context, parent string, doc *Document) (*Document, error) {
	if doc.EntityType == "" {
		doc.EntityType = "document"
	}
	var created Document
	if err := a.post(ctx, parent, doc, &created); err != nil {
		return nil, err
	}
	return a.attach(&created), nil
}

// Update persists a document's local changes and returns the server's
// updated copy.
func (a *DocumentsAPI) Update(ctx context.Context, doc *Document) (*Document, error) {
	if doc.UID == "" {
		return nil, &BadQueryError{Reason: "document has no uid"}
	}
	var updated Document
	if err := a.put(ctx, a.uidPath(doc.UID), doc, &updated); err != nil {
		return nil, err
	}
	return a.attach(&updated), nil
}

// Delete removes a document by uid.
func (a *DocumentsAPI) Delete(ctx context.Context, uid string) error {
	return a.delete(ctx, a.uidPath(uid))
}

// Exists probes for a document by uid.
func (a *DocumentsAPI) Exists(ctx context.Context, uid string) (bool, error) {
	return a.exists(ctx, a.uidPath(uid))
}

// ExistsByPath probes for a document by repository path.
func (a *DocumentsAPI) ExistsByPath(ctx context.Context, docPath string) (bool, error) {
	return a.exists(ctx, a.pathPath(docPath))
}

// Query runs an NXQL query; sugar over Client.Query.
func (a *DocumentsAPI) Query(ctx context.Context, nxql string, params url.Values) (*QueryResult, error) {
	return a.client.Query(ctx, nxql, params)
}

// FetchBlob retrieves the blob attached at xpath (default "blobholder:0").
func (a *DocumentsAPI) FetchBlob(ctx context.Context, uid, xpath string) ([]byte, error) {
	if xpath == "" {
		xpath = "blobholder:0"
	}
	return a.getRaw(ctx, a.uidPath(uid)+"/@blob/"+xpath)
}

// FetchRendition retrieves the content of a named rendition.
func (a *DocumentsAPI) FetchRendition(ctx context.Context, uid, name string) ([]byte, error) {
	return a.getRaw(ctx, a.uidPath(uid)+"/@rendition/"+name)
}

// FetchRenditions lists the renditions available for a document.
func (a *DocumentsAPI) FetchRenditions(ctx context.Context, uid string) ([]string, error) {
	var doc Document
	err := a.get(ctx, a.uidPath(uid), &doc, WithHeader(enricherHeader, "renditions"))
	if err != nil {
		return nil, err
	}

	raw, _ := doc.ContextParameters["renditions"].([]interface{})
	names := make([]string, 0, len(raw))
	for _, entry := range raw {
		if m, ok := entry.(map[string]interface{}); ok {
			if name, ok := m["name"].(string); ok {
				names = append(names, name)
			}
		}
	}
	return names, nil
}

// FetchACLs retrieves a document's access control lists via the acls
// enricher.
func (a *DocumentsAPI) FetchACLs(ctx context.Context, uid string) ([]ACL, error) {
	var doc struct {
		ContextParameters struct {
			ACLs []ACL `json:"acls"`
		} `json:"contextParameters"`
	}
	err := a.get(ctx, a.uidPath(uid), &doc, WithHeader(enricherHeader, "acls"))
	if err != nil {
		return nil, err
	}
	return doc.ContextParameters.ACLs, nil
}

// FetchAudit retrieves a document's audit trail.
func (a *DocumentsAPI) FetchAudit(ctx context.Context, uid string) ([]AuditEvent, error) {
	var events []AuditEvent
	if err := a.get(ctx, a.uidPath(uid)+"/@audit", &events); err != nil {
		return nil, err
	}
	return events, nil
}

// FetchLockStatus retrieves a document's lock owner and creation time.
func (a *DocumentsAPI) FetchLockStatus(ctx context.Context, uid string) (*LockStatus, error) {
	var doc Document
	err := a.get(ctx, a.uidPath(uid), &doc, WithHeader("fetch-document", "lock"))
	if err != nil {
		return nil, err
	}
	return &LockStatus{Owner: doc.LockOwner, Created: doc.LockCreated}, nil
}

// HasPermission reports whether the current user holds a permission on
// the document, via the permissions enricher.
func (a *DocumentsAPI) HasPermission(ctx context.Context, uid, permission string) (bool, error) {
	var doc Document
	err := a.get(ctx, a.uidPath(uid), &doc, WithHeader(enricherHeader, "permissions"))
	if err != nil {
		return false, err
	}

	granted, _ := doc.ContextParameters["permissions"].([]interface{})
	for _, p := range granted {
		if name, ok := p.(string); ok && name == permission {
			return true, nil
		}
	}
	return false, nil
}

// Lock takes the repository lock on a document.
func (a *DocumentsAPI) Lock(ctx context.Context, uid string) error {
	op := a.ops.New("Document.Lock")
	op.Input = docRef(uid)
	return a.ops.Execute(ctx, op, nil)
}

// Unlock releases the repository lock on a document.
func (a *DocumentsAPI) Unlock(ctx context.Context, uid string) error {
	op := a.ops.New("Document.Unlock")
	op.Input = docRef(uid)
	return a.ops.Execute(ctx, op, nil)
}

// Move relocates a document under the target parent, optionally renaming
// it.
func (a *DocumentsAPI) Move(ctx context.Context, uid, dst, name string) error {
	op := a.ops.New("Document.Move")
	op.Input = docRef(uid)
	op.Params["target"] = dst
	if name != "" {
		op.Params["name"] = name
	}
	return a.ops.Execute(ctx, op, nil)
}

// FollowTransition follows a lifecycle transition on a document.
func (a *DocumentsAPI) FollowTransition(ctx context.Context, uid, name string) error {
	op := a.ops.New("Document.FollowLifecycleTransition")
	op.Input = docRef(uid)
	op.Params["value"] = name
	return a.ops.Execute(ctx, op, nil)
}

// AddPermission grants a permission on a document. params carries the
// operation parameters (permission, username, acl, blockInheritance, ...).
func (a *DocumentsAPI) AddPermission(ctx context.Context, uid string, params map[string]interface{}) error {
	op := a.ops.New("Document.AddPermission")
	op.Input = docRef(uid)
	for k, v := range params {
		op.Params[k] = v
	}
	return a.ops.Execute(ctx, op, nil)
}

// RemovePermission revokes a permission entry from a document.
func (a *DocumentsAPI) RemovePermission(ctx context.Context, uid string, params map[string]interface{}) error {
	op := a.ops.New("Document.RemovePermission")
	op.Input = docRef(uid)
	for k, v := range params {
		op.Params[k] = v
	}
	return a.ops.Execute(ctx, op, nil)
}

// ConvertOptions selects the conversion to run: exactly one of Converter,
// Type, or Format must be set.
type ConvertOptions struct {
	Converter string
	Type      string
	Format    string
}

// Convert renders a document's main blob in another format.
func (a *DocumentsAPI) Convert(ctx context.Context, uid string, opts ConvertOptions) ([]byte, error) {
	query := url.Values{}
	switch {
	case opts.Converter != "":
		query.Set("converter", opts.Converter)
	case opts.Type != "":
		query.Set("type", opts.Type)
	case opts.Format != "":
		query.Set("format", opts.Format)
	default:
		return nil, &BadQueryError{Reason: "converting a document requires a converter, type or format"}
	}

	return a.getRaw(ctx, a.uidPath(uid)+"/@convert", WithQuery(query))
}
