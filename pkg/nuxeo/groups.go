package nuxeo

import (
	"context"
	"net/url"
)

// GroupsAPI manages directory user groups.
type GroupsAPI struct {
	endpoint
}

func newGroupsAPI(c *Client) *GroupsAPI {
	return &GroupsAPI{endpoint: newEndpoint(c, "group")}
}

func (a *GroupsAPI) attach(g *Group) *Group {
	if g != nil {
		g.api = a
	}
	return g
}

// Get fetches a group by name.
func (a *GroupsAPI) Get(ctx context.Context, name string) (*Group, error) {
	var group Group
	if err := a.get(ctx, name, &group); err != nil {
		return nil, err
	}
	return a.attach(&group), nil
}

// Create registers a new group.
func (a *GroupsAPI) Create(ctx context.Context, group *Group) (*Group, error) {
	if group.EntityType == "" {
		group.EntityType = "group"
	}
	var created Group
	if err := a.post(ctx, "", group, &created); err != nil {
		return nil, err
	}
	return a.attach(&created), nil
}

// Update persists a group's local changes.
func (a *GroupsAPI) Update(ctx context.Context, group *Group) (*Group, error) {
	var updated Group
	if err := a.put(ctx, "", group, &updated); err != nil {
		return nil, err
	}
	return a.attach(&updated), nil
}

// Delete removes a group.
func (a *GroupsAPI) Delete(ctx context.Context, name string) error {
	return a.delete(ctx, name)
}

// Exists probes for a group by name.
func (a *GroupsAPI) Exists(ctx context.Context, name string) (bool, error) {
	return a.exists(ctx, name)
}

// Search finds groups matching a pattern.
func (a *GroupsAPI) Search(ctx context.Context, pattern string) ([]Group, error) {
	query := url.Values{}
	query.Set("q", pattern)

	var groups []Group
	if err := a.get(ctx, "search", &groups, WithQuery(query)); err != nil {
		return nil, err
	}
	for i := range groups {
		groups[i].api = a
	}
	return groups, nil
}
