package nuxeo

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/araddon/dateparse"
	"github.com/mitchellh/mapstructure"
)

// errDetached is returned when a convenience method is called on a model
// that was not produced by (or attached to) a client service.
var errDetached = errors.New("model is not attached to a client")

// Document is a repository document: file, folder, workspace, or any
// custom type. Unknown JSON fields in server responses are ignored;
// absent fields keep their zero values.
type Document struct {
	EntityType        string                 `json:"entity-type,omitempty"`
	Repository        string                 `json:"repository,omitempty"`
	UID               string                 `json:"uid,omitempty"`
	Path              string                 `json:"path,omitempty"`
	Name              string                 `json:"name,omitempty"`
	Type              string                 `json:"type,omitempty"`
	State             string                 `json:"state,omitempty"`
	ParentRef         string                 `json:"parentRef,omitempty"`
	VersionLabel      string                 `json:"versionLabel,omitempty"`
	IsCheckedOut      bool                   `json:"isCheckedOut,omitempty"`
	IsVersion         bool                   `json:"isVersion,omitempty"`
	IsProxy           bool                   `json:"isProxy,omitempty"`
	Title             string                 `json:"title,omitempty"`
	LastModified      string                 `json:"lastModified,omitempty"`
	LockOwner         string                 `json:"lockOwner,omitempty"`
	LockCreated       string                 `json:"lockCreated,omitempty"`
	Properties        map[string]interface{} `json:"properties,omitempty"`
	Facets            []string               `json:"facets,omitempty"`
	ChangeToken       string                 `json:"changeToken,omitempty"`
	ContextParameters map[string]interface{} `json:"contextParameters,omitempty"`

	api *DocumentsAPI
}

func (d *Document) entityType() string { return "document" }
func (d *Document) entityID() string   { return d.UID }

// Property returns one schema property, nil when unset.
func (d *Document) Property(name string) interface{} {
	if d.Properties == nil {
		return nil
	}
	return d.Properties[name]
}

// SetProperty records a schema property to be sent on the next Save.
func (d *Document) SetProperty(name string, value interface{}) {
	if d.Properties == nil {
		d.Properties = map[string]interface{}{}
	}
	d.Properties[name] = value
}

// SetProperties merges properties to be sent on the next Save.
func (d *Document) SetProperties(props map[string]interface{}) {
	for k, v := range props {
		d.SetProperty(k, v)
	}
}

// DecodeProperties decodes the document's schema properties into out, a
// struct with mapstructure tags (typically tagged with the prefixed field
// names, e.g. `mapstructure:"dc:title"`).
func (d *Document) DecodeProperties(out interface{}) error {
	if err := mapstructure.WeakDecode(d.Properties, out); err != nil {
		return fmt.Errorf("failed to decode document properties: %w", err)
	}
	return nil
}

// ModifiedTime parses the document's last-modified stamp, whatever format
// the server emitted it in.
func (d *Document) ModifiedTime() (time.Time, error) {
	if d.LastModified == "" {
		return time.Time{}, errors.New("document has no modification time")
	}
	return dateparse.ParseAny(d.LastModified)
}

// Save persists local changes.
func (d *Document) Save(ctx context.Context) error {
	if d.api == nil {
		return errDetached
	}
	updated, err := d.api.Update(ctx, d)
	if err != nil {
		return err
	}
	*d = *updated
	return nil
}

// Delete removes the document from the repository.
func (d *Document) Delete(ctx context.Context) error {
	if d.api == nil {
		return errDetached
	}
	return d.api.Delete(ctx, d.UID)
}

// Refresh reloads the document from the server.
func (d *Document) Refresh(ctx context.Context) error {
	if d.api == nil {
		return errDetached
	}
	latest, err := d.api.Get(ctx, d.UID)
	if err != nil {
		return err
	}
	*d = *latest
	return nil
}

// FetchBlob retrieves the blob attached at xpath (default "blobholder:0").
func (d *Document) FetchBlob(ctx context.Context, xpath string) ([]byte, error) {
	if d.api == nil {
		return nil, errDetached
	}
	return d.api.FetchBlob(ctx, d.UID, xpath)
}

// FetchRendition retrieves a named rendition's content.
func (d *Document) FetchRendition(ctx context.Context, name string) ([]byte, error) {
	if d.api == nil {
		return nil, errDetached
	}
	return d.api.FetchRendition(ctx, d.UID, name)
}

// FetchRenditions lists the renditions available for the document.
func (d *Document) FetchRenditions(ctx context.Context) ([]string, error) {
	if d.api == nil {
		return nil, errDetached
	}
	return d.api.FetchRenditions(ctx, d.UID)
}

// FetchACLs retrieves the document's access control lists.
func (d *Document) FetchACLs(ctx context.Context) ([]ACL, error) {
	if d.api == nil {
		return nil, errDetached
	}
	return d.api.FetchACLs(ctx, d.UID)
}

// FetchAudit retrieves the document's audit trail.
func (d *Document) FetchAudit(ctx context.Context) ([]AuditEvent, error) {
	if d.api == nil {
		return nil, errDetached
	}
	return d.api.FetchAudit(ctx, d.UID)
}

// FetchLockStatus retrieves the document's lock owner and creation time;
// both empty when unlocked.
func (d *Document) FetchLockStatus(ctx context.Context) (*LockStatus, error) {
	if d.api == nil {
		return nil, errDetached
	}
	return d.api.FetchLockStatus(ctx, d.UID)
}

// IsLocked reports whether the document is currently locked.
func (d *Document) IsLocked(ctx context.Context) (bool, error) {
	status, err := d.FetchLockStatus(ctx)
	if err != nil {
		return false, err
	}
	return status.Owner != "", nil
}

// Lock takes the repository lock on the document.
func (d *Document) Lock(ctx context.Context) error {
	if d.api == nil {
		return errDetached
	}
	return d.api.Lock(ctx, d.UID)
}

// Unlock releases the repository lock.
func (d *Document) Unlock(ctx context.Context) error {
	if d.api == nil {
		return errDetached
	}
	return d.api.Unlock(ctx, d.UID)
}

// Move relocates the document under dst, optionally renaming it, then
// refreshes the local copy.
func (d *Document) Move(ctx context.Context, dst, name string) error {
	if d.api == nil {
		return errDetached
	}
	if err := d.api.Move(ctx, d.UID, dst, name); err != nil {
		return err
	}
	return d.Refresh(ctx)
}

// FollowTransition follows a lifecycle transition, then refreshes the
// local copy.
func (d *Document) FollowTransition(ctx context.Context, name string) error {
	if d.api == nil {
		return errDetached
	}
	if err := d.api.FollowTransition(ctx, d.UID, name); err != nil {
		return err
	}
	return d.Refresh(ctx)
}

// Convert renders the document's main blob in another format.
func (d *Document) Convert(ctx context.Context, opts ConvertOptions) ([]byte, error) {
	if d.api == nil {
		return nil, errDetached
	}
	return d.api.Convert(ctx, d.UID, opts)
}

// AddPermission grants a permission on the document.
func (d *Document) AddPermission(ctx context.Context, params map[string]interface{}) error {
	if d.api == nil {
		return errDetached
	}
	return d.api.AddPermission(ctx, d.UID, params)
}

// RemovePermission revokes a permission entry from the document.
func (d *Document) RemovePermission(ctx context.Context, params map[string]interface{}) error {
	if d.api == nil {
		return errDetached
	}
	return d.api.RemovePermission(ctx, d.UID, params)
}

// HasPermission reports whether the current user holds the permission on
// the document.
func (d *Document) HasPermission(ctx context.Context, permission string) (bool, error) {
	if d.api == nil {
		return false, errDetached
	}
	return d.api.HasPermission(ctx, d.UID, permission)
}

// ACL is one access control list attached to a document.
type ACL struct {
	Name string `json:"name"`
	ACEs []ACE  `json:"aces"`
}

// ACE is one access control entry.
type ACE struct {
	ID         string `json:"id"`
	Username   string `json:"username"`
	Permission string `json:"permission"`
	Granted    bool   `json:"granted"`
	Creator    string `json:"creator"`
	Begin      string `json:"begin"`
	End        string `json:"end"`
	Status     string `json:"status"`
}

// AuditEvent is one entry of a document's audit trail.
type AuditEvent struct {
	ID            int64  `json:"id"`
	Category      string `json:"category"`
	EventID       string `json:"eventId"`
	DocPath       string `json:"docPath"`
	DocUUID       string `json:"docUUID"`
	PrincipalName string `json:"principalName"`
	EventDate     string `json:"eventDate"`
	Comment       string `json:"comment"`
}

// LockStatus reports who locked a document and when; zero when unlocked.
type LockStatus struct {
	Owner   string
	Created string
}

// GroupRef is a resolved group membership on a user.
type GroupRef struct {
	Name  string `json:"name"`
	Label string `json:"label"`
	URL   string `json:"url"`
}

// User is a directory user account.
type User struct {
	EntityType      string                 `json:"entity-type,omitempty"`
	ID              string                 `json:"id,omitempty"`
	Properties      map[string]interface{} `json:"properties,omitempty"`
	ExtendedGroups  []GroupRef             `json:"extendedGroups,omitempty"`
	IsAdministrator bool                   `json:"isAdministrator,omitempty"`
	IsAnonymous     bool                   `json:"isAnonymous,omitempty"`

	api *UsersAPI
}

func (u *User) entityType() string { return "user" }
func (u *User) entityID() string   { return u.ID }

// ChangePassword sets a new password and saves the user.
func (u *User) ChangePassword(ctx context.Context, password string) error {
	if u.Properties == nil {
		u.Properties = map[string]interface{}{}
	}
	u.Properties["password"] = password
	return u.Save(ctx)
}

// Save persists local changes.
func (u *User) Save(ctx context.Context) error {
	if u.api == nil {
		return errDetached
	}
	updated, err := u.api.Update(ctx, u)
	if err != nil {
		return err
	}
	*u = *updated
	return nil
}

// Delete removes the user account.
func (u *User) Delete(ctx context.Context) error {
	if u.api == nil {
		return errDetached
	}
	return u.api.Delete(ctx, u.ID)
}

// Refresh reloads the user from the server.
func (u *User) Refresh(ctx context.Context) error {
	if u.api == nil {
		return errDetached
	}
	latest, err := u.api.Get(ctx, u.ID)
	if err != nil {
		return err
	}
	*u = *latest
	return nil
}

// Group is a directory user group.
type Group struct {
	EntityType   string   `json:"entity-type,omitempty"`
	GroupName    string   `json:"groupname,omitempty"`
	GroupLabel   string   `json:"grouplabel,omitempty"`
	MemberUsers  []string `json:"memberUsers,omitempty"`
	MemberGroups []string `json:"memberGroups,omitempty"`

	api *GroupsAPI
}

func (g *Group) entityType() string { return "group" }
func (g *Group) entityID() string   { return g.GroupName }

// Save persists local changes.
func (g *Group) Save(ctx context.Context) error {
	if g.api == nil {
		return errDetached
	}
	updated, err := g.api.Update(ctx, g)
	if err != nil {
		return err
	}
	*g = *updated
	return nil
}

// Delete removes the group.
func (g *Group) Delete(ctx context.Context) error {
	if g.api == nil {
		return errDetached
	}
	return g.api.Delete(ctx, g.GroupName)
}

// Directory is a vocabulary: a named list of entries.
type Directory struct {
	EntityType    string           `json:"entity-type,omitempty"`
	DirectoryName string           `json:"directoryName,omitempty"`
	Entries       []DirectoryEntry `json:"entries,omitempty"`

	api *DirectoriesAPI
}

func (d *Directory) entityType() string { return "directory" }
func (d *Directory) entityID() string   { return d.DirectoryName }

// Entry fetches one entry of the directory.
func (d *Directory) Entry(ctx context.Context, id string) (*DirectoryEntry, error) {
	if d.api == nil {
		return nil, errDetached
	}
	return d.api.FetchEntry(ctx, d.DirectoryName, id)
}

// CreateEntry adds an entry to the directory.
func (d *Directory) CreateEntry(ctx context.Context, entry *DirectoryEntry) (*DirectoryEntry, error) {
	if d.api == nil {
		return nil, errDetached
	}
	return d.api.CreateEntry(ctx, d.DirectoryName, entry)
}

// SaveEntry persists changes to an entry of the directory.
func (d *Directory) SaveEntry(ctx context.Context, entry *DirectoryEntry) (*DirectoryEntry, error) {
	if d.api == nil {
		return nil, errDetached
	}
	return d.api.UpdateEntry(ctx, d.DirectoryName, entry)
}

// DeleteEntry removes an entry from the directory.
func (d *Directory) DeleteEntry(ctx context.Context, id string) error {
	if d.api == nil {
		return errDetached
	}
	return d.api.DeleteEntry(ctx, d.DirectoryName, id)
}

// HasEntry reports whether the directory contains an entry.
func (d *Directory) HasEntry(ctx context.Context, id string) (bool, error) {
	if d.api == nil {
		return false, errDetached
	}
	return d.api.HasEntry(ctx, d.DirectoryName, id)
}

// DirectoryEntry is one row of a vocabulary.
type DirectoryEntry struct {
	EntityType    string                 `json:"entity-type,omitempty"`
	DirectoryName string                 `json:"directoryName,omitempty"`
	Properties    map[string]interface{} `json:"properties,omitempty"`

	api *DirectoriesAPI
}

// ID returns the entry's identifier from its properties.
func (e *DirectoryEntry) ID() string {
	if e.Properties == nil {
		return ""
	}
	id, _ := e.Properties["id"].(string)
	return id
}

func (e *DirectoryEntry) entityType() string { return "directoryEntry" }
func (e *DirectoryEntry) entityID() string   { return e.ID() }

// Save persists local changes to the entry.
func (e *DirectoryEntry) Save(ctx context.Context) error {
	if e.api == nil {
		return errDetached
	}
	updated, err := e.api.UpdateEntry(ctx, e.DirectoryName, e)
	if err != nil {
		return err
	}
	*e = *updated
	return nil
}

// Delete removes the entry from its directory.
func (e *DirectoryEntry) Delete(ctx context.Context) error {
	if e.api == nil {
		return errDetached
	}
	return e.api.DeleteEntry(ctx, e.DirectoryName, e.ID())
}

// Ref is a by-id reference to another entity (actors, attached or
// target documents).
type Ref struct {
	ID string `json:"id"`
}

// TaskComment is one comment left on a workflow task.
type TaskComment struct {
	Author string `json:"author"`
	Text   string `json:"text"`
	Date   string `json:"date"`
}

// Task is a workflow task routed to one or more actors.
type Task struct {
	EntityType         string                 `json:"entity-type,omitempty"`
	ID                 string                 `json:"id,omitempty"`
	Name               string                 `json:"name,omitempty"`
	WorkflowInstanceID string                 `json:"workflowInstanceId,omitempty"`
	WorkflowModelName  string                 `json:"workflowModelName,omitempty"`
	State              string                 `json:"state,omitempty"`
	Directive          string                 `json:"directive,omitempty"`
	Created            string                 `json:"created,omitempty"`
	DueDate            string                 `json:"dueDate,omitempty"`
	NodeName           string                 `json:"nodeName,omitempty"`
	TargetDocumentIDs  []Ref                  `json:"targetDocumentIds,omitempty"`
	Actors             []Ref                  `json:"actors,omitempty"`
	Comments           []TaskComment          `json:"comments,omitempty"`
	Variables          map[string]interface{} `json:"variables,omitempty"`
	TaskInfo           map[string]interface{} `json:"taskInfo,omitempty"`

	api *TasksAPI
}

func (t *Task) entityType() string { return "task" }
func (t *Task) entityID() string   { return t.ID }

// DueTime parses the task's due date.
func (t *Task) DueTime() (time.Time, error) {
	if t.DueDate == "" {
		return time.Time{}, errors.New("task has no due date")
	}
	return dateparse.ParseAny(t.DueDate)
}

// Complete finishes the task with the given action and refreshes the
// local copy from the server's response.
func (t *Task) Complete(ctx context.Context, action string, opts CompleteOptions) error {
	if t.api == nil {
		return errDetached
	}
	updated, err := t.api.Complete(ctx, t, action, opts)
	if err != nil {
		return err
	}
	*t = *updated
	return nil
}

// Delegate adds delegated actors to the task.
func (t *Task) Delegate(ctx context.Context, actors, comment string) error {
	if t.api == nil {
		return errDetached
	}
	if err := t.api.Transfer(ctx, t, TransferDelegate, actors, comment); err != nil {
		return err
	}
	return t.Refresh(ctx)
}

// Reassign hands the task to different actors.
func (t *Task) Reassign(ctx context.Context, actors, comment string) error {
	if t.api == nil {
		return errDetached
	}
	if err := t.api.Transfer(ctx, t, TransferReassign, actors, comment); err != nil {
		return err
	}
	return t.Refresh(ctx)
}

// Refresh reloads the task from the server.
func (t *Task) Refresh(ctx context.Context) error {
	if t.api == nil {
		return errDetached
	}
	latest, err := t.api.Get(ctx, t.ID)
	if err != nil {
		return err
	}
	*t = *latest
	return nil
}

// Workflow is one instance of a workflow model, attached to documents.
type Workflow struct {
	EntityType          string                 `json:"entity-type,omitempty"`
	ID                  string                 `json:"id,omitempty"`
	Name                string                 `json:"name,omitempty"`
	Title               string                 `json:"title,omitempty"`
	State               string                 `json:"state,omitempty"`
	WorkflowModelName   string                 `json:"workflowModelName,omitempty"`
	Initiator           string                 `json:"initiator,omitempty"`
	AttachedDocumentIDs []Ref                  `json:"attachedDocumentIds,omitempty"`
	Variables           map[string]interface{} `json:"variables,omitempty"`
	GraphResource       string                 `json:"graphResource,omitempty"`

	api *WorkflowsAPI
}

func (w *Workflow) entityType() string { return "workflow" }
func (w *Workflow) entityID() string   { return w.ID }

// Delete cancels the workflow instance.
func (w *Workflow) Delete(ctx context.Context) error {
	if w.api == nil {
		return errDetached
	}
	return w.api.Delete(ctx, w.ID)
}

// Graph returns the workflow's route graph.
func (w *Workflow) Graph(ctx context.Context) (map[string]interface{}, error) {
	if w.api == nil {
		return nil, errDetached
	}
	return w.api.Graph(ctx, w.ID)
}

