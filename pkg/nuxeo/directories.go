package nuxeo

import (
	"context"
)

// DirectoriesAPI manages vocabularies and their entries.
type DirectoriesAPI struct {
	endpoint
}

func newDirectoriesAPI(c *Client) *DirectoriesAPI {
	return &DirectoriesAPI{endpoint: newEndpoint(c, "directory")}
}

// Fetch retrieves a directory with its entries.
func (a *DirectoriesAPI) Fetch(ctx context.Context, name string) (*Directory, error) {
	var entries []DirectoryEntry
	if err := a.get(ctx, name, &entries); err != nil {
		return nil, err
	}
	for i := range entries {
		entries[i].api = a
		if entries[i].DirectoryName == "" {
			entries[i].DirectoryName = name
		}
	}
	return &Directory{
		EntityType:    "directory",
		DirectoryName: name,
		Entries:       entries,
		api:           a,
	}, nil
}

// FetchEntry retrieves one entry of a directory.
func (a *DirectoriesAPI) FetchEntry(ctx context.Context, name, id string) (*DirectoryEntry, error) {
	var entry DirectoryEntry
	if err := a.get(ctx, name+"/"+id, &entry); err != nil {
		return nil, err
	}
	entry.api = a
	return &entry, nil
}

// CreateEntry adds an entry to a directory.
func (a *DirectoriesAPI) CreateEntry(ctx context.Context, name string, entry *DirectoryEntry) (*DirectoryEntry, error) {
	if entry.EntityType == "" {
		entry.EntityType = "directoryEntry"
	}
	if entry.DirectoryName == "" {
		entry.DirectoryName = name
	}

	var created DirectoryEntry
	if err := a.post(ctx, name, entry, &created); err != nil {
		return nil, err
	}
	created.api = a
	return &created, nil
}

// UpdateEntry persists changes to a directory entry.
func (a *DirectoriesAPI) UpdateEntry(ctx context.Context, name string, entry *DirectoryEntry) (*DirectoryEntry, error) {
	if entry.ID() == "" {
		return nil, &BadQueryError{Reason: "directory entry has no id property"}
	}

	var updated DirectoryEntry
	if err := a.put(ctx, name+"/"+entry.ID(), entry, &updated); err != nil {
		return nil, err
	}
	updated.api = a
	return &updated, nil
}

// DeleteEntry removes an entry from a directory.
func (a *DirectoriesAPI) DeleteEntry(ctx context.Context, name, id string) error {
	return a.delete(ctx, name+"/"+id)
}

// HasEntry probes for a directory entry.
func (a *DirectoriesAPI) HasEntry(ctx context.Context, name, id string) (bool, error) {
	return a.exists(ctx, name+"/"+id)
}
